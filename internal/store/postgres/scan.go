package postgres

import (
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/torquehq/torque/internal/task"
)

// taskColumns lists the column order shared by every query that returns a
// full task row in this package.
const taskColumns = `id, url, body, headers, status, attempts, due_at, claimed_until,
	last_status_code, last_error, created_at, updated_at,
	timeout_ms, backoff_policy, backoff_base_ms, backoff_max_ms, max_attempts`

func scanTask(row pgx.Row) (*task.Task, error) {
	var (
		t             task.Task
		headersJSON   []byte
		status        string
		backoffPolicy string
		timeoutMs     int64
		backoffBaseMs int64
		backoffMaxMs  int64
	)

	err := row.Scan(
		&t.ID, &t.URL, &t.Body, &headersJSON, &status, &t.Attempts, &t.DueAt, &t.ClaimedUntil,
		&t.LastStatusCode, &t.LastError, &t.CreatedAt, &t.UpdatedAt,
		&timeoutMs, &backoffPolicy, &backoffBaseMs, &backoffMaxMs, &t.MaxAttempts,
	)
	if err != nil {
		return nil, err
	}

	parsedStatus, err := task.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	t.Status = parsedStatus

	parsedPolicy, err := task.ParseBackoffPolicy(backoffPolicy)
	if err != nil {
		return nil, err
	}
	t.BackoffPolicy = parsedPolicy

	t.Timeout = time.Duration(timeoutMs) * time.Millisecond
	t.BackoffBase = time.Duration(backoffBaseMs) * time.Millisecond
	t.BackoffMax = time.Duration(backoffMaxMs) * time.Millisecond

	if len(headersJSON) > 0 {
		if err := json.Unmarshal(headersJSON, &t.Headers); err != nil {
			return nil, err
		}
	}
	if t.Headers == nil {
		t.Headers = make(map[string]string)
	}

	return &t, nil
}
