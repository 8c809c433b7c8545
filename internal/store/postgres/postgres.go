// Package postgres implements store.Store on top of PostgreSQL via pgx,
// using a single UPDATE ... FOR UPDATE SKIP LOCKED statement as the claim
// primitive so that two concurrent callers never observe the same row as
// claimable.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements store.Store backed by a pgxpool.Pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an already-configured pool. Callers are responsible for
// running migrations before use.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open creates and pings a new pool for dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool returns the underlying connection pool, for tests and migrations.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
