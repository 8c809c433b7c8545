// Package memstore implements store.Store in memory, guarded by a single
// mutex. It backs the worker pool and poller tests without a live
// Postgres, and is a first-class substitution for single-process
// deployments that don't need cross-process durability.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/torquehq/torque/internal/store"
	"github.com/torquehq/torque/internal/task"
)

// Store is an in-memory store.Store. The zero value is not usable; use New.
type Store struct {
	mu    sync.Mutex
	tasks map[string]*task.Task
}

// New returns an empty Store.
func New() *Store {
	return &Store{tasks: make(map[string]*task.Task)}
}

func clone(t *task.Task) *task.Task {
	cp := *t
	if t.ClaimedUntil != nil {
		v := *t.ClaimedUntil
		cp.ClaimedUntil = &v
	}
	if t.LastStatusCode != nil {
		v := *t.LastStatusCode
		cp.LastStatusCode = &v
	}
	if t.MaxAttempts != nil {
		v := *t.MaxAttempts
		cp.MaxAttempts = &v
	}
	headers := make(map[string]string, len(t.Headers))
	for k, v := range t.Headers {
		headers[k] = v
	}
	cp.Headers = headers
	body := make([]byte, len(t.Body))
	copy(body, t.Body)
	cp.Body = body
	return &cp
}

func (s *Store) Insert(_ context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[t.ID]; exists {
		return store.ErrConflict
	}
	s.tasks[t.ID] = clone(t)
	return nil
}

func (s *Store) Claim(_ context.Context, leaseDuration time.Duration) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	var fresh, stalled []*task.Task
	for _, t := range s.tasks {
		switch {
		case t.Status.IsClaimable() && !t.DueAt.After(now):
			fresh = append(fresh, t)
		case t.Status == task.StatusExecuting && t.ClaimedUntil != nil && !t.ClaimedUntil.After(now):
			stalled = append(stalled, t)
		}
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].DueAt.Before(fresh[j].DueAt) })
	sort.Slice(stalled, func(i, j int) bool { return stalled[i].ClaimedUntil.Before(*stalled[j].ClaimedUntil) })

	// Stalled leases are prioritized over fresh work, same as the
	// postgres implementation's ORDER BY.
	var chosen *task.Task
	if len(stalled) > 0 {
		chosen = stalled[0]
	} else if len(fresh) > 0 {
		chosen = fresh[0]
	} else {
		return nil, nil
	}

	chosen.Status = task.StatusExecuting
	until := now.Add(leaseDuration)
	chosen.ClaimedUntil = &until
	chosen.UpdatedAt = now
	chosen.Attempts++

	return clone(chosen), nil
}

func (s *Store) Complete(_ context.Context, id string, fencingAttempts int, statusCode int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.Status != task.StatusExecuting || t.Attempts != fencingAttempts {
		return store.ErrFencingMismatch
	}
	t.Status = task.StatusCompleted
	t.ClaimedUntil = nil
	code := statusCode
	t.LastStatusCode = &code
	t.LastError = ""
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) Fail(_ context.Context, id string, fencingAttempts int, statusCode *int, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.Status != task.StatusExecuting || t.Attempts != fencingAttempts {
		return store.ErrFencingMismatch
	}
	t.Status = task.StatusFailed
	t.ClaimedUntil = nil
	t.LastStatusCode = statusCode
	t.LastError = lastErr
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) ScheduleRetry(_ context.Context, id string, fencingAttempts int, statusCode *int, lastErr string, nextDueAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.Status != task.StatusExecuting || t.Attempts != fencingAttempts {
		return store.ErrFencingMismatch
	}
	t.Status = task.StatusRetry
	t.ClaimedUntil = nil
	t.LastStatusCode = statusCode
	t.LastError = lastErr
	t.DueAt = nextDueAt
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(t), nil
}

func (s *Store) SelectDue(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var candidates []*task.Task
	for _, t := range s.tasks {
		if t.Status.IsClaimable() && !t.DueAt.After(now) {
			candidates = append(candidates, t)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].DueAt.Before(candidates[j].DueAt) })

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	ids := make([]string, len(candidates))
	for i, t := range candidates {
		ids[i] = t.ID
	}
	return ids, nil
}

func (s *Store) SweepTerminal(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, t := range s.tasks {
		if t.Status.IsTerminal() && t.UpdatedAt.Before(olderThan) {
			delete(s.tasks, id)
			count++
		}
	}
	return count, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *Store) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := int64(len(s.tasks))
	s.tasks = make(map[string]*task.Task)
	return count, nil
}

func (s *Store) Stats(_ context.Context) (*store.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats store.Stats
	for _, t := range s.tasks {
		switch t.Status {
		case task.StatusPending:
			stats.Pending++
		case task.StatusExecuting:
			stats.Executing++
		case task.StatusRetry:
			stats.Retry++
		case task.StatusCompleted:
			stats.Completed++
		case task.StatusFailed:
			stats.Failed++
		}
	}
	return &stats, nil
}
