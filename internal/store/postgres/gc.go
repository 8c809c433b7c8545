package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/torquehq/torque/internal/task"
)

// SweepTerminal deletes terminal tasks whose updated_at predates olderThan,
// bounding storage growth without ever touching a task that could still be
// claimed or observed via GET /tasks/:id within its retention window.
func (s *Store) SweepTerminal(ctx context.Context, olderThan time.Time) (int64, error) {
	const query = `
		DELETE FROM tasks
		WHERE status IN ($1, $2) AND updated_at < $3`

	tag, err := s.pool.Exec(ctx, query, string(task.StatusCompleted), string(task.StatusFailed), olderThan)
	if err != nil {
		return 0, fmt.Errorf("postgres: sweep terminal: %w", err)
	}
	return tag.RowsAffected(), nil
}
