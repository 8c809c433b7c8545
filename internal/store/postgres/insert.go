package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/torquehq/torque/internal/store"
	"github.com/torquehq/torque/internal/task"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// Insert durably persists a new pending task, returning store.ErrConflict
// if a task with the same ID already exists.
func (s *Store) Insert(ctx context.Context, t *task.Task) error {
	headersJSON, err := json.Marshal(t.Headers)
	if err != nil {
		return fmt.Errorf("postgres: marshal headers: %w", err)
	}

	const query = `
		INSERT INTO tasks (
			id, url, body, headers, status, attempts, due_at, claimed_until,
			last_status_code, last_error, created_at, updated_at,
			timeout_ms, backoff_policy, backoff_base_ms, backoff_max_ms, max_attempts
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16, $17
		)`

	_, err = s.pool.Exec(ctx, query,
		t.ID, t.URL, t.Body, headersJSON, string(t.Status), t.Attempts, t.DueAt, t.ClaimedUntil,
		t.LastStatusCode, t.LastError, t.CreatedAt, t.UpdatedAt,
		t.Timeout.Milliseconds(), string(t.BackoffPolicy), t.BackoffBase.Milliseconds(), t.BackoffMax.Milliseconds(), t.MaxAttempts,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return store.ErrConflict
		}
		return fmt.Errorf("postgres: insert task: %w", err)
	}
	return nil
}
