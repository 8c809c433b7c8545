package postgres

import (
	"context"
	"fmt"

	"github.com/torquehq/torque/internal/store"
)

// Delete removes a single task regardless of its current state.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteAll removes every task and reports how many were removed.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks`)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete all: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Stats returns a point-in-time count of tasks per status.
func (s *Store) Stats(ctx context.Context) (*store.Stats, error) {
	const query = `
		SELECT status, count(*) FROM tasks GROUP BY status`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: stats: %w", err)
	}
	defer rows.Close()

	var stats store.Stats
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("postgres: stats scan: %w", err)
		}
		switch status {
		case "pending":
			stats.Pending = count
		case "executing":
			stats.Executing = count
		case "retry":
			stats.Retry = count
		case "completed":
			stats.Completed = count
		case "failed":
			stats.Failed = count
		}
	}
	return &stats, rows.Err()
}
