// Package storage adapts the generated Ent client into the typed
// repository operations the rest of Archon calls — vector search, lexical
// search, and per-entity CRUD — keeping Ent predicate/query-builder usage
// out of the service layer.
package storage

import (
	"context"
	stdsql "database/sql"

	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/pkg/database"
)

// dbHandle is the subset of *database.Client a Store needs for queries
// ent's query builder can't express (vector distance, trigram rank).
// Declared as a local interface rather than accepting *database.Client
// directly so callers can pass a bare *sql.DB in tests.
type dbHandle interface {
	DB() *stdsql.DB
}

// Store wraps an Ent client with the query patterns Archon's knowledge
// base and project management components need, falling back to the raw
// *sql.DB connection for vector and lexical ranking queries Ent's
// predicate builder can't express directly.
type Store struct {
	client *ent.Client
	db     *stdsql.DB
}

// New creates a Store over an existing database client.
func New(dbc dbHandle, client *ent.Client) *Store {
	return &Store{client: client, db: dbc.DB()}
}

// Ping verifies the underlying connection is reachable, used by the HTTP
// health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// HealthStatus reports connectivity and connection pool statistics for the
// underlying database, used by the HTTP health endpoint to surface more
// than a bare up/down signal.
func (s *Store) HealthStatus(ctx context.Context) (*database.HealthStatus, error) {
	return database.Health(ctx, s.db)
}
