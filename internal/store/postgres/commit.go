package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/torquehq/torque/internal/store"
	"github.com/torquehq/torque/internal/task"
)

// fencedUpdate executes an UPDATE guarded by an attempts equality check and
// translates a zero row count into store.ErrFencingMismatch: the claim that
// produced this commit has since been superseded by a re-claim, and the
// commit must be silently discarded rather than applied.
func (s *Store) fencedUpdate(ctx context.Context, query string, args ...interface{}) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrFencingMismatch
	}
	return nil
}

// Complete commits a successful dispatch.
func (s *Store) Complete(ctx context.Context, id string, fencingAttempts int, statusCode int) error {
	const query = `
		UPDATE tasks
		SET status = $1, claimed_until = NULL, last_status_code = $2, last_error = '', updated_at = $3
		WHERE id = $4 AND attempts = $5 AND status = $6`

	return s.fencedUpdate(ctx, query,
		string(task.StatusCompleted), statusCode, time.Now().UTC(),
		id, fencingAttempts, string(task.StatusExecuting),
	)
}

// Fail commits a permanent failure.
func (s *Store) Fail(ctx context.Context, id string, fencingAttempts int, statusCode *int, lastErr string) error {
	const query = `
		UPDATE tasks
		SET status = $1, claimed_until = NULL, last_status_code = $2, last_error = $3, updated_at = $4
		WHERE id = $5 AND attempts = $6 AND status = $7`

	return s.fencedUpdate(ctx, query,
		string(task.StatusFailed), statusCode, lastErr, time.Now().UTC(),
		id, fencingAttempts, string(task.StatusExecuting),
	)
}

// ScheduleRetry commits a transient failure and re-arms due_at. It does
// not increment attempts itself — Claim already did, for the attempt
// that just failed.
func (s *Store) ScheduleRetry(ctx context.Context, id string, fencingAttempts int, statusCode *int, lastErr string, nextDueAt time.Time) error {
	const query = `
		UPDATE tasks
		SET status = $1, claimed_until = NULL, last_status_code = $2, last_error = $3,
		    due_at = $4, updated_at = $5
		WHERE id = $6 AND attempts = $7 AND status = $8`

	return s.fencedUpdate(ctx, query,
		string(task.StatusRetry), statusCode, lastErr, nextDueAt, time.Now().UTC(),
		id, fencingAttempts, string(task.StatusExecuting),
	)
}
