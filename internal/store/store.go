// Package store persists grant project state and cached wage
// statistics, locally in SQLite or shared via Postgres.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/policyengine/grantkit/internal/model"
	"github.com/policyengine/grantkit/pkg/bls"
)

// GrantFilter specifies criteria for listing grants.
type GrantFilter struct {
	Status     string `json:"status,omitempty"`
	Foundation string `json:"foundation,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// Store defines the persistence interface shared by the local SQLite
// backend and the remote Postgres collaboration backend. Both also
// satisfy bls.Cache, so a Store can back the wage client directly.
type Store interface {
	// Grants
	UpsertGrant(ctx context.Context, grant *model.GrantRecord) error
	GetGrant(ctx context.Context, id string) (*model.GrantRecord, error)
	ListGrants(ctx context.Context, filter GrantFilter) ([]model.GrantRecord, error)

	// Responses
	UpsertResponse(ctx context.Context, response *model.ResponseRecord) error
	ListResponses(ctx context.Context, grantID string) ([]model.ResponseRecord, error)

	// Wage cache
	GetCachedWages(ctx context.Context, occupation, area string, year int) (*bls.WageData, error)
	SetCachedWages(ctx context.Context, data *bls.WageData) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Pool is the subset of pgxpool.Pool the Postgres store uses. Tests
// inject a mock implementation.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}
