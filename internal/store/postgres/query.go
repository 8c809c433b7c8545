package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/torquehq/torque/internal/store"
	"github.com/torquehq/torque/internal/task"
)

// Get fetches a single task by ID.
func (s *Store) Get(ctx context.Context, id string) (*task.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1`, taskColumns)

	row := s.pool.QueryRow(ctx, query, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get: %w", err)
	}
	return t, nil
}

// SelectDue returns up to limit claimable task IDs without locking or
// mutating them, for the Poller to publish notifications for.
func (s *Store) SelectDue(ctx context.Context, limit int) ([]string, error) {
	const query = `
		SELECT id FROM tasks
		WHERE status IN ($1, $2) AND due_at <= $3
		ORDER BY due_at ASC
		LIMIT $4`

	rows, err := s.pool.Query(ctx, query, string(task.StatusPending), string(task.StatusRetry), time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: select due: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: select due scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
