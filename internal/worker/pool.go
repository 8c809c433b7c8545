// Package worker runs the dispatch cycle: claim a task, attempt outbound
// delivery, classify the result, and commit the transition. Concurrency
// is bounded by a fixed-size pool of goroutines, each running the same
// claim -> deliver -> commit loop independently.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/torquehq/torque/internal/bus"
	"github.com/torquehq/torque/internal/livefeed"
	"github.com/torquehq/torque/internal/logger"
	"github.com/torquehq/torque/internal/metrics"
	"github.com/torquehq/torque/internal/store"
	"github.com/torquehq/torque/internal/task"
	"github.com/torquehq/torque/internal/webhook"

	"github.com/rs/zerolog"
)

// smallThreshold bounds how soon a retry must be due before the worker
// announces it on the Notify Bus itself, rather than leaving it for the
// Poller — avoiding a tight retry spin through the bus.
const smallThreshold = time.Second

// idleWait is how long a worker blocks on the Notify Bus before falling
// back to asking the store directly for due work.
const idleWait = 2 * time.Second

// Config controls pool sizing and claim lease duration.
type Config struct {
	Concurrency     int
	ClaimDuration   time.Duration
	ShutdownTimeout time.Duration
}

// Pool runs Config.Concurrency worker goroutines against a shared Store,
// Bus, and webhook Client.
type Pool struct {
	id     string
	store  store.Store
	bus    bus.Bus
	client *webhook.Client
	hub    *livefeed.Hub // nilable; live feed is observational only
	hb     *Heartbeat    // nilable; liveness reporting is observational only
	cfg    Config
	wg     sync.WaitGroup
	stopCh chan struct{}
	active sync.Map // task ID -> struct{}, for ActiveTasks / diagnostics
}

// New constructs a Pool. id identifies this process in logs; an empty id
// is replaced with a generated one.
func New(id string, s store.Store, b bus.Bus, client *webhook.Client, cfg Config) *Pool {
	if id == "" {
		id = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	return &Pool{
		id:     id,
		store:  s,
		bus:    b,
		client: client,
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
}

// WithLiveFeed attaches a Hub that the pool publishes lifecycle events to.
// Purely observational — never affects dispatch behavior.
func (p *Pool) WithLiveFeed(hub *livefeed.Hub) *Pool {
	p.hub = hub
	return p
}

// WithHeartbeat attaches liveness reporting for GET /admin/workers.
// Purely observational — never affects claim correctness.
func (p *Pool) WithHeartbeat(hb *Heartbeat) *Pool {
	p.hb = hb
	return p
}

// ID returns this pool's process identifier, generating one in New if the
// caller didn't supply one. Exposed so a Heartbeat can be constructed with
// the same ID the pool logs under.
func (p *Pool) ID() string {
	return p.id
}

func (p *Pool) publish(e *livefeed.Event) {
	if p.hub == nil {
		return
	}
	e.Timestamp = time.Now().UTC().Unix()
	p.hub.Publish(e)
}

// Start spawns Config.Concurrency worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	if p.hb != nil {
		p.hb.Start(ctx)
	}
	for i := 0; i < p.cfg.Concurrency; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	logger.Info().Str("worker_id", p.id).Int("concurrency", p.cfg.Concurrency).Msg("worker pool started")
}

// Stop signals every worker to finish its in-flight attempt and exit,
// then blocks until they do or ShutdownTimeout elapses.
func (p *Pool) Stop() {
	close(p.stopCh)
	if p.hb != nil {
		defer p.hb.Stop()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Str("worker_id", p.id).Msg("worker pool stopped gracefully")
	case <-time.After(p.cfg.ShutdownTimeout):
		logger.Warn().Str("worker_id", p.id).Msg("worker pool shutdown timed out waiting for in-flight attempts")
	}
}

// ActiveTasks returns the count of attempts currently in flight.
func (p *Pool) ActiveTasks() int {
	count := 0
	p.active.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

func (p *Pool) run(ctx context.Context, slot int) {
	defer p.wg.Done()

	log := logger.WithWorker(fmt.Sprintf("%s-%d", p.id, slot))
	log.Info().Msg("worker started")

	notifications, unsubscribe := p.bus.Subscribe(ctx)
	defer unsubscribe()

	// Check for work immediately on startup rather than waiting out a
	// full idleWait with a cold pool.
	p.attemptClaim(ctx, log)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-notifications:
			// The notification itself carries no rights to the task; it
			// is only a hint to try claiming now rather than waiting for
			// the next poll.
			p.attemptClaim(ctx, log)
		case <-time.After(idleWait):
			p.attemptClaim(ctx, log)
		}
	}
}

func (p *Pool) attemptClaim(ctx context.Context, log zerolog.Logger) {
	t, err := p.store.Claim(ctx, p.cfg.ClaimDuration)
	if err != nil {
		log.Error().Err(err).Msg("claim failed, backing off")
		return
	}
	if t == nil {
		return // nothing claimable right now; expected and frequent
	}

	metrics.TaskClaims.Inc()
	p.publish(&livefeed.Event{Type: livefeed.EventClaimed, TaskID: t.ID, Attempts: t.Attempts})

	p.active.Store(t.ID, struct{}{})
	metrics.SetActiveWorkers(float64(p.ActiveTasks()))
	if p.hb != nil {
		p.hb.SetActiveTasks(p.ActiveTasks())
	}
	defer func() {
		p.active.Delete(t.ID)
		metrics.SetActiveWorkers(float64(p.ActiveTasks()))
		if p.hb != nil {
			p.hb.SetActiveTasks(p.ActiveTasks())
		}
	}()

	p.dispatch(ctx, t)
}

func (p *Pool) dispatch(ctx context.Context, t *task.Task) {
	log := logger.WithTask(t.ID, t.Attempts)

	start := time.Now()
	result := p.client.Deliver(ctx, t)
	metrics.RecordOutboundDuration(string(result.Outcome), time.Since(start).Seconds())

	switch result.Outcome {
	case task.OutcomeCompleted:
		code := 200
		if result.StatusCode != nil {
			code = *result.StatusCode
		}
		if err := p.store.Complete(ctx, t.ID, t.Attempts, code); err != nil {
			p.logCommitOutcome(log, err)
			return
		}
		log.Info().Msg("task completed")
		metrics.RecordOutcome("completed")
		metrics.TaskAttempts.Observe(float64(t.Attempts))
		p.publish(&livefeed.Event{Type: livefeed.EventCompleted, TaskID: t.ID, Attempts: t.Attempts, StatusCode: &code})

	case task.OutcomeFailed:
		if err := p.store.Fail(ctx, t.ID, t.Attempts, result.StatusCode, result.Err); err != nil {
			p.logCommitOutcome(log, err)
			return
		}
		log.Warn().Str("reason", result.Err).Msg("task permanently failed")
		metrics.RecordOutcome("failed")
		metrics.TaskAttempts.Observe(float64(t.Attempts))
		p.publish(&livefeed.Event{Type: livefeed.EventFailed, TaskID: t.ID, Attempts: t.Attempts, StatusCode: result.StatusCode, Err: result.Err})

	case task.OutcomeRetry:
		if !t.CanRetry() {
			if err := p.store.Fail(ctx, t.ID, t.Attempts, result.StatusCode, result.Err); err != nil {
				p.logCommitOutcome(log, err)
				return
			}
			log.Warn().Msg("max attempts exhausted, task failed")
			metrics.RecordOutcome("failed")
			metrics.TaskAttempts.Observe(float64(t.Attempts))
			p.publish(&livefeed.Event{Type: livefeed.EventFailed, TaskID: t.ID, Attempts: t.Attempts, StatusCode: result.StatusCode, Err: result.Err})
			return
		}

		delay := t.BackoffPolicy.NextDelay(t.Attempts, t.BackoffBase, t.BackoffMax)
		nextDue := time.Now().UTC().Add(delay)

		if err := p.store.ScheduleRetry(ctx, t.ID, t.Attempts, result.StatusCode, result.Err, nextDue); err != nil {
			p.logCommitOutcome(log, err)
			return
		}
		log.Info().Dur("delay", delay).Msg("task scheduled for retry")
		metrics.RecordOutcome("retry")
		p.publish(&livefeed.Event{Type: livefeed.EventRetry, TaskID: t.ID, Attempts: t.Attempts, StatusCode: result.StatusCode, Err: result.Err})

		if delay <= smallThreshold {
			if err := p.bus.Publish(ctx, t.ID); err != nil {
				log.Debug().Err(err).Msg("notify bus publish failed after retry, poller will pick it up")
			}
		}
	}
}

func (p *Pool) logCommitOutcome(log zerolog.Logger, err error) {
	if errors.Is(err, store.ErrFencingMismatch) {
		metrics.CommitFencingRejections.Inc()
		log.Debug().Msg("commit rejected by fencing, a later claimant already owns this task")
		return
	}
	log.Error().Err(err).Msg("commit failed")
}
