package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/policyengine/grantkit/internal/model"
	"github.com/policyengine/grantkit/pkg/bls"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS grants (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	foundation       TEXT NOT NULL DEFAULT '',
	program          TEXT NOT NULL DEFAULT '',
	deadline         TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'draft',
	amount_requested INTEGER NOT NULL DEFAULT 0,
	duration_years   INTEGER NOT NULL DEFAULT 0,
	metadata         TEXT,
	budget           TEXT,
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS responses (
	id         TEXT PRIMARY KEY,
	grant_id   TEXT NOT NULL REFERENCES grants(id),
	key        TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'draft',
	word_limit INTEGER,
	char_limit INTEGER,
	question   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (grant_id, key)
);

CREATE TABLE IF NOT EXISTS wage_cache (
	id         TEXT PRIMARY KEY,
	occupation TEXT NOT NULL,
	area       TEXT NOT NULL,
	year       INTEGER NOT NULL,
	data       TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (occupation, area, year)
);

CREATE INDEX IF NOT EXISTS idx_grants_status ON grants(status);
CREATE INDEX IF NOT EXISTS idx_grants_foundation ON grants(foundation);
CREATE INDEX IF NOT EXISTS idx_responses_grant_id ON responses(grant_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertGrant(ctx context.Context, grant *model.GrantRecord) error {
	if grant.ID == "" {
		grant.ID = uuid.New().String()
	}
	grant.UpdatedAt = time.Now().UTC()

	metadataJSON, err := marshalNullable(grant.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal metadata")
	}
	budgetJSON, err := marshalNullable(grant.Budget)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal budget")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO grants (id, name, foundation, program, deadline, status, amount_requested, duration_years, metadata, budget, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
	return eris.Wrapf(err, "sqlite: upsert grant %s", grant.ID)
}

func (s *SQLiteStore) GetGrant(ctx context.Context, id string) (*model.GrantRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, foundation, program, deadline, status, amount_requested, duration_years, metadata, budget, updated_at
		 FROM grants WHERE id = ?`,
		id,
	)
	return scanGrant(row)
}

func (s *SQLiteStore) ListGrants(ctx context.Context, filter GrantFilter) ([]model.GrantRecord, error) {
	query := `SELECT id, name, foundation, program, deadline, status, amount_requested, duration_years, metadata, budget, updated_at
	 FROM grants WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Foundation != "" {
		query += ` AND foundation = ?`
		args = append(args, filter.Foundation)
	}
	query += ` ORDER BY updated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list grants")
	}
	defer rows.Close()

	var grants []model.GrantRecord
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, *g)
	}
	return grants, eris.Wrap(rows.Err(), "sqlite: list grants iterate")
}

func (s *SQLiteStore) UpsertResponse(ctx context.Context, response *model.ResponseRecord) error {
	if response.ID == "" {
		response.ID = uuid.New().String()
	}
	response.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO responses (id, grant_id, key, title, content, status, word_limit, char_limit, question, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
	return eris.Wrapf(err, "sqlite: upsert response %s/%s", response.GrantID, response.Key)
}

func (s *SQLiteStore) ListResponses(ctx context.Context, grantID string) ([]model.ResponseRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, grant_id, key, title, content, status, word_limit, char_limit, question, updated_at
		 FROM responses WHERE grant_id = ? ORDER BY key`,
		grantID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list responses for %s", grantID)
	}
	defer rows.Close()

	var responses []model.ResponseRecord
	for rows.Next() {
		var r model.ResponseRecord
		err := rows.Scan(&r.ID, &r.GrantID, &r.Key, &r.Title, &r.Content,
			&r.Status, &r.WordLimit, &r.CharLimit, &r.Question, &r.UpdatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan response")
		}
		responses = append(responses, r)
	}
	return responses, eris.Wrap(rows.Err(), "sqlite: list responses iterate")
}

func (s *SQLiteStore) GetCachedWages(ctx context.Context, occupation, area string, year int) (*bls.WageData, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data FROM wage_cache WHERE occupation = ? AND area = ? AND year = ?`,
		occupation, area, year,
	)

	var dataJSON string
	err := row.Scan(&dataJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached wages")
	}

	var data bls.WageData
	if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached wages")
	}
	return &data, nil
}

func (s *SQLiteStore) SetCachedWages(ctx context.Context, data *bls.WageData) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal wages")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO wage_cache (id, occupation, area, year, data, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (occupation, area, year) DO UPDATE SET
		   data = excluded.data,
		   cached_at = excluded.cached_at`,
		uuid.New().String(), data.OccupationCode, data.AreaCode, data.Year,
		string(dataJSON), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: set cached wages")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanGrant(row scannable) (*model.GrantRecord, error) {
	var g model.GrantRecord
	var metadataJSON, budgetJSON sql.NullString

	err := row.Scan(&g.ID, &g.Name, &g.Foundation, &g.Program, &g.Deadline,
		&g.Status, &g.AmountRequested, &g.DurationYears,
		&metadataJSON, &budgetJSON, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("grant not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan grant")
	}

	if metadataJSON.Valid {
		if err := json.Unmarshal([]byte(metadataJSON.String), &g.Metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal metadata")
		}
	}
	if budgetJSON.Valid {
		if err := json.Unmarshal([]byte(budgetJSON.String), &g.Budget); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal budget")
		}
	}
	return &g, nil
}

func marshalNullable(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
