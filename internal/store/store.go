// Package store defines the durable Task Store: the sole source of truth
// for task state, and the sole mutual-exclusion primitive (Claim) in the
// whole system. Every other component — the Poller's leader lock, the
// Notify Bus — is a liveness/latency optimization layered on top of it,
// never a correctness dependency.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/torquehq/torque/internal/task"
)

var (
	// ErrNotFound is returned when a task ID has no corresponding row.
	ErrNotFound = errors.New("store: task not found")

	// ErrNotClaimable is returned by Claim's caller-visible contract when
	// there is no pending or retry-due task available; it is not an error
	// condition, merely an empty result, represented as (nil, nil) by
	// Claim itself. Reserved for callers that want to distinguish "none
	// available" from a transport failure in wrapping code.
	ErrNotClaimable = errors.New("store: no claimable task available")

	// ErrFencingMismatch is returned by Complete/Fail/ScheduleRetry when
	// the attempts value supplied by the caller no longer matches the
	// row's current attempts counter — the claim that produced this
	// commit has since been superseded (claimed_until expired and another
	// worker re-claimed it) and the commit must be discarded.
	ErrFencingMismatch = errors.New("store: fencing token mismatch, commit discarded")

	// ErrConflict is returned by Insert when a task with the same ID
	// already exists. (A commit against a task that is no longer executing,
	// including a terminal one, returns ErrFencingMismatch instead.)
	ErrConflict = errors.New("store: conflicting state transition")
)

// Stats is the aggregate view backing GET /stats.
type Stats struct {
	Pending   int64 `json:"pending"`
	Executing int64 `json:"executing"`
	Retry     int64 `json:"retry"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Store is the transactional Task Store described in §4.1. Implementations
// must guarantee that Claim never hands the same task to two concurrent
// callers, using row-level locking local to the backing store — never a
// distributed lock external to it.
type Store interface {
	// Insert durably persists a new task in StatusPending. It returns
	// ErrConflict if a task with the same ID already exists.
	Insert(ctx context.Context, t *task.Task) error

	// Claim atomically selects one due, claimable task — status pending or
	// retry with due_at <= now, or status executing with an expired
	// claimed_until (a stalled lease left by a worker that never
	// committed) — and transitions it to executing, setting claimed_until
	// to now+leaseDuration and incrementing attempts. Returns (nil, nil)
	// if none are available. The returned task's Attempts is the fencing
	// token the caller must present back to Complete/Fail/ScheduleRetry.
	Claim(ctx context.Context, leaseDuration time.Duration) (*task.Task, error)

	// Complete commits a successful dispatch. fencingAttempts must equal
	// the attempts value observed at claim time, or ErrFencingMismatch is
	// returned and no row is changed.
	Complete(ctx context.Context, id string, fencingAttempts int, statusCode int) error

	// Fail commits a permanent failure.
	Fail(ctx context.Context, id string, fencingAttempts int, statusCode *int, lastErr string) error

	// ScheduleRetry commits a transient failure and re-arms due_at per the
	// task's backoff policy. It does not itself increment attempts —
	// Claim already did, on the attempt that just failed.
	ScheduleRetry(ctx context.Context, id string, fencingAttempts int, statusCode *int, lastErr string, nextDueAt time.Time) error

	// Get fetches a single task by ID.
	Get(ctx context.Context, id string) (*task.Task, error)

	// SelectDue returns up to limit task IDs that are currently claimable
	// (pending or retry, due_at <= now), for the Poller to publish
	// notifications for. It performs no locking and does not mutate state.
	SelectDue(ctx context.Context, limit int) ([]string, error)

	// SweepTerminal deletes terminal (completed/failed) tasks whose
	// updated_at is older than olderThan, returning the count removed.
	SweepTerminal(ctx context.Context, olderThan time.Time) (int64, error)

	// Delete removes a single task regardless of its state.
	Delete(ctx context.Context, id string) error

	// DeleteAll removes every task, returning the count removed.
	DeleteAll(ctx context.Context) (int64, error)

	// Stats returns a point-in-time count of tasks per status.
	Stats(ctx context.Context) (*Stats, error)
}
