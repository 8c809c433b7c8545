package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/torquehq/torque/internal/task"
)

// Claim atomically selects one claimable task and transitions it to
// executing in a single statement: the inner SELECT ... FOR UPDATE SKIP
// LOCKED takes a row-level lock on exactly one candidate and makes
// concurrent claimers skip past it rather than block on it, so two
// connections racing this query never return the same row.
//
// A task already in executing whose claimed_until has lapsed (its worker
// crashed or was partitioned away mid-attempt) is just as claimable as a
// fresh pending/retry task: this is how a lost worker's task is recovered
// without any separate orphan-recovery process, and it is prioritized
// ahead of fresh work so a stalled task does not wait behind the queue a
// second time.
func (s *Store) Claim(ctx context.Context, leaseDuration time.Duration) (*task.Task, error) {
	now := time.Now().UTC()
	until := now.Add(leaseDuration)

	query := fmt.Sprintf(`
		UPDATE tasks
		SET status = $1, claimed_until = $2, updated_at = $3, attempts = attempts + 1
		WHERE id = (
			SELECT id
			FROM tasks
			WHERE (
				(status IN ($4, $5) AND due_at <= $3)
				OR (status = $1 AND claimed_until <= $3)
			)
			ORDER BY
				CASE WHEN status = $1 THEN 0 ELSE 1 END,
				due_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s`, taskColumns)

	row := s.pool.QueryRow(ctx, query,
		string(task.StatusExecuting), until, now,
		string(task.StatusPending), string(task.StatusRetry),
	)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: claim: %w", err)
	}
	return t, nil
}
