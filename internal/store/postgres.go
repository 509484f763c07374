package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/policyengine/grantkit/internal/model"
	"github.com/policyengine/grantkit/pkg/bls"
)

// PostgresStore implements Store against the shared collaboration
// backend using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS grants (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name             TEXT NOT NULL,
	foundation       TEXT NOT NULL DEFAULT '',
	program          TEXT NOT NULL DEFAULT '',
	deadline         TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'draft',
	amount_requested BIGINT NOT NULL DEFAULT 0,
	duration_years   INTEGER NOT NULL DEFAULT 0,
	metadata         JSONB,
	budget           JSONB,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS responses (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	grant_id   TEXT NOT NULL REFERENCES grants(id),
	key        TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'draft',
	word_limit INTEGER,
	char_limit INTEGER,
	question   TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (grant_id, key)
);

CREATE TABLE IF NOT EXISTS wage_cache (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	occupation TEXT NOT NULL,
	area       TEXT NOT NULL,
	year       INTEGER NOT NULL,
	data       JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (occupation, area, year)
);

CREATE INDEX IF NOT EXISTS idx_grants_status ON grants(status);
CREATE INDEX IF NOT EXISTS idx_grants_foundation ON grants(foundation);
CREATE INDEX IF NOT EXISTS idx_responses_grant_id ON responses(grant_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertGrant(ctx context.Context, grant *model.GrantRecord) error {
	if grant.ID == "" {
		grant.ID = uuid.New().String()
	}
	grant.UpdatedAt = time.Now().UTC()

	metadataJSON, err := marshalNullableBytes(grant.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal metadata")
	}
	budgetJSON, err := marshalNullableBytes(grant.Budget)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal budget")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO grants (id, name, foundation, program, deadline, status, amount_requested, duration_years, metadata, budget, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name,
		   foundation = excluded.foundation,
		   program = excluded.program,
		   deadline = excluded.deadline,
		   status = excluded.status,
		   amount_requested = excluded.amount_requested,
		   duration_years = excluded.duration_years,
		   metadata = excluded.metadata,
		   budget = excluded.budget,
		   updated_at = excluded.updated_at`,
		grant.ID, grant.Name, grant.Foundation, grant.Program, grant.Deadline,
		grant.Status, grant.AmountRequested, grant.DurationYears,
		metadataJSON, budgetJSON, grant.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert grant %s", grant.ID)
}

func (s *PostgresStore) GetGrant(ctx context.Context, id string) (*model.GrantRecord, error) {
	var g model.GrantRecord
	var metadataJSON, budgetJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, name, foundation, program, deadline, status, amount_requested, duration_years, metadata, budget, updated_at
		 FROM grants WHERE id = $1`,
		id,
	).Scan(&g.ID, &g.Name, &g.Foundation, &g.Program, &g.Deadline,
		&g.Status, &g.AmountRequested, &g.DurationYears,
		&metadataJSON, &budgetJSON, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("grant not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get grant %s", id)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &g.Metadata); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal metadata")
		}
	}
	if len(budgetJSON) > 0 {
		if err := json.Unmarshal(budgetJSON, &g.Budget); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal budget")
		}
	}
	return &g, nil
}

func (s *PostgresStore) ListGrants(ctx context.Context, filter GrantFilter) ([]model.GrantRecord, error) {
	query := `SELECT id, name, foundation, program, deadline, status, amount_requested, duration_years, metadata, budget, updated_at
	 FROM grants WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.Foundation != "" {
		query += fmt.Sprintf(` AND foundation = $%d`, argIdx)
		args = append(args, filter.Foundation)
		argIdx++
	}
	query += ` ORDER BY updated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list grants")
	}
	defer rows.Close()

	var grants []model.GrantRecord
	for rows.Next() {
		var g model.GrantRecord
		var metadataJSON, budgetJSON []byte
		err := rows.Scan(&g.ID, &g.Name, &g.Foundation, &g.Program, &g.Deadline,
			&g.Status, &g.AmountRequested, &g.DurationYears,
			&metadataJSON, &budgetJSON, &g.UpdatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan grant")
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &g.Metadata); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal metadata")
			}
		}
		if len(budgetJSON) > 0 {
			if err := json.Unmarshal(budgetJSON, &g.Budget); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal budget")
			}
		}
		grants = append(grants, g)
	}
	return grants, eris.Wrap(rows.Err(), "postgres: list grants iterate")
}

func (s *PostgresStore) UpsertResponse(ctx context.Context, response *model.ResponseRecord) error {
	if response.ID == "" {
		response.ID = uuid.New().String()
	}
	response.UpdatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO responses (id, grant_id, key, title, content, status, word_limit, char_limit, question, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (grant_id, key) DO UPDATE SET
		   title = excluded.title,
		   content = excluded.content,
		   status = excluded.status,
		   word_limit = excluded.word_limit,
		   char_limit = excluded.char_limit,
		   question = excluded.question,
		   updated_at = excluded.updated_at`,
		response.ID, response.GrantID, response.Key, response.Title,
		response.Content, response.Status, response.WordLimit,
		response.CharLimit, response.Question, response.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert response %s/%s", response.GrantID, response.Key)
}

func (s *PostgresStore) ListResponses(ctx context.Context, grantID string) ([]model.ResponseRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, grant_id, key, title, content, status, word_limit, char_limit, question, updated_at
		 FROM responses WHERE grant_id = $1 ORDER BY key`,
		grantID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list responses for %s", grantID)
	}
	defer rows.Close()

	var responses []model.ResponseRecord
	for rows.Next() {
		var r model.ResponseRecord
		err := rows.Scan(&r.ID, &r.GrantID, &r.Key, &r.Title, &r.Content,
			&r.Status, &r.WordLimit, &r.CharLimit, &r.Question, &r.UpdatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan response")
		}
		responses = append(responses, r)
	}
	return responses, eris.Wrap(rows.Err(), "postgres: list responses iterate")
}

func (s *PostgresStore) GetCachedWages(ctx context.Context, occupation, area string, year int) (*bls.WageData, error) {
	var dataJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM wage_cache WHERE occupation = $1 AND area = $2 AND year = $3`,
		occupation, area, year,
	).Scan(&dataJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached wages")
	}

	var data bls.WageData
	if err := json.Unmarshal(dataJSON, &data); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached wages")
	}
	return &data, nil
}

func (s *PostgresStore) SetCachedWages(ctx context.Context, data *bls.WageData) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal wages")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO wage_cache (id, occupation, area, year, data, cached_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (occupation, area, year) DO UPDATE SET
		   data = excluded.data,
		   cached_at = excluded.cached_at`,
		uuid.New().String(), data.OccupationCode, data.AreaCode, data.Year,
		dataJSON, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: set cached wages")
}

func marshalNullableBytes(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}
