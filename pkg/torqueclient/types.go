package torqueclient

import "time"

// Task mirrors the wire representation returned by the ingress API for a
// single task (task.Snapshot on the server side).
type Task struct {
	ID             string            `json:"id"`
	URL            string            `json:"url"`
	Body           []byte            `json:"body,omitempty"`
	Status         string            `json:"status"`
	Attempts       int               `json:"attempts"`
	DueAt          time.Time         `json:"due_at"`
	ClaimedUntil   *time.Time        `json:"claimed_until,omitempty"`
	LastStatusCode *int              `json:"last_status_code,omitempty"`
	LastError      string            `json:"last_error,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Headers        map[string]string `json:"headers,omitempty"`
}

// Stats mirrors the queue-depth counters returned by GET /stats.
type Stats struct {
	Pending   int64 `json:"pending"`
	Executing int64 `json:"executing"`
	Retry     int64 `json:"retry"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

type errorResponse struct {
	Error string `json:"error"`
}
