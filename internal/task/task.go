package task

import (
	"time"

	"github.com/google/uuid"
)

// Task is the sole core entity of the dispatch engine: a target URL plus
// an opaque body to POST to it, and the lifecycle state needed to dispatch
// it at-least-once with bounded backoff. See Store for the operations that
// mutate it; nothing outside Store's transactional API should mutate a
// Task's durable fields directly.
type Task struct {
	ID       string            `json:"id" db:"id"`
	URL      string            `json:"url" db:"url"`
	Body     []byte            `json:"-" db:"body"`
	Headers  map[string]string `json:"headers" db:"headers"`
	Status   Status            `json:"status" db:"status"`
	Attempts int               `json:"attempts" db:"attempts"`

	DueAt        time.Time  `json:"due_at" db:"due_at"`
	ClaimedUntil *time.Time `json:"claimed_until,omitempty" db:"claimed_until"`

	LastStatusCode *int   `json:"last_status_code,omitempty" db:"last_status_code"`
	LastError      string `json:"last_error,omitempty" db:"last_error"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Timeout       time.Duration `json:"timeout_ms" db:"timeout_ms"`
	BackoffPolicy BackoffPolicy `json:"backoff_policy" db:"backoff_policy"`
	BackoffBase   time.Duration `json:"backoff_base_ms" db:"backoff_base_ms"`
	BackoffMax    time.Duration `json:"backoff_max_ms" db:"backoff_max_ms"`
	MaxAttempts   *int          `json:"max_attempts,omitempty" db:"max_attempts"`
}

// Defaults applied to a task created via the ingress layer, overridable by
// configuration. These mirror §6's enumerated configuration.
type Defaults struct {
	Timeout       time.Duration
	BackoffPolicy BackoffPolicy
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	MaxAttempts   *int
}

// New creates a pending Task with due_at = now, attempts = 0, ready for
// Store.Insert.
func New(url string, body []byte, headers map[string]string, d Defaults) *Task {
	now := time.Now().UTC()
	if headers == nil {
		headers = make(map[string]string)
	}
	return &Task{
		ID:            uuid.New().String(),
		URL:           url,
		Body:          body,
		Headers:       headers,
		Status:        StatusPending,
		Attempts:      0,
		DueAt:         now,
		CreatedAt:     now,
		UpdatedAt:     now,
		Timeout:       d.Timeout,
		BackoffPolicy: d.BackoffPolicy,
		BackoffBase:   d.BackoffBase,
		BackoffMax:    d.BackoffMax,
		MaxAttempts:   d.MaxAttempts,
	}
}

// CanRetry reports whether another dispatch attempt is permitted given
// max_attempts. A nil MaxAttempts means "retry indefinitely".
func (t *Task) CanRetry() bool {
	if t.MaxAttempts == nil {
		return true
	}
	return t.Attempts < *t.MaxAttempts
}

// Snapshot represents the public, wire-safe view of a Task returned by the
// ingress API.
type Snapshot struct {
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

// ToSnapshot converts a Task to its wire representation.
func (t *Task) ToSnapshot() *Snapshot {
	return &Snapshot{
		ID:             t.ID,
		URL:            t.URL,
		Body:           t.Body,
		Status:         t.Status.String(),
		Attempts:       t.Attempts,
		DueAt:          t.DueAt,
		ClaimedUntil:   t.ClaimedUntil,
		LastStatusCode: t.LastStatusCode,
		LastError:      t.LastError,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		Headers:        t.Headers,
	}
}
