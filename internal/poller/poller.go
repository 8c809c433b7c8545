// Package poller implements the liveness guarantee behind the Notify
// Bus's best-effort optimization: a periodic sweep for due tasks, and a
// periodic garbage-collection sweep of terminal tasks. Every durable
// decision it makes is re-derived from the Task Store; losing a Poller
// instance (or every instance briefly) only adds latency, never
// correctness risk.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/torquehq/torque/internal/bus"
	"github.com/torquehq/torque/internal/logger"
	"github.com/torquehq/torque/internal/metrics"
	"github.com/torquehq/torque/internal/store"
)

const (
	leaderLockKey = "torque:poller:leader"
	selectLimit   = 256
)

// Config controls the Poller's cadence.
type Config struct {
	PollInterval time.Duration
	GCInterval   time.Duration
	GCRetention  time.Duration
	LeaderTTL    time.Duration
}

// Poller periodically republishes due tasks to the Notify Bus and sweeps
// terminal tasks past their retention window.
type Poller struct {
	store  store.Store
	bus    bus.Bus
	redis  *redis.Client // nil disables leader election; every instance then runs the sweep
	cfg    Config
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Poller. redisClient may be nil, in which case every
// running Poller instance performs the sweep unconditionally — correct
// for a single-process deployment, merely redundant (never incorrect) for
// a multi-process one.
func New(s store.Store, b bus.Bus, redisClient *redis.Client, cfg Config) *Poller {
	if cfg.LeaderTTL == 0 {
		// Long enough to cover one tick's work even if this process
		// stalls; short enough that a crash between acquire and release
		// only costs one missed tick, not an indefinitely stuck lock.
		cfg.LeaderTTL = cfg.PollInterval
	}
	return &Poller{
		store:  s,
		bus:    b,
		redis:  redisClient,
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
}

// Start runs the poll and GC loops until ctx is done or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(2)
	go p.pollLoop(ctx)
	go p.gcLoop(ctx)
	logger.Info().
		Dur("poll_interval", p.cfg.PollInterval).
		Dur("gc_interval", p.cfg.GCInterval).
		Msg("poller started")
}

// Stop blocks until both loops have exited.
func (p *Poller) Stop() {
	close(p.stopCh)
	p.wg.Wait()
	logger.Info().Msg("poller stopped")
}

func (p *Poller) pollLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	if !p.acquireLeader(ctx, leaderLockKey) {
		return
	}
	defer p.releaseLeader(ctx, leaderLockKey)

	metrics.PollerTicks.WithLabelValues("poll").Inc()

	ids, err := p.store.SelectDue(ctx, selectLimit)
	if err != nil {
		logger.Error().Err(err).Msg("poller: select due failed")
		return
	}
	for _, id := range ids {
		if err := p.bus.Publish(ctx, id); err != nil {
			logger.Debug().Err(err).Str("task_id", id).Msg("poller: notify publish failed, a later sweep will retry")
		}
	}
	if len(ids) > 0 {
		metrics.PollerPublished.Add(float64(len(ids)))
		logger.Debug().Int("count", len(ids)).Msg("poller: republished due tasks")
	}
}

func (p *Poller) gcLoop(ctx context.Context) {
	defer p.wg.Done()

	if p.cfg.GCInterval <= 0 {
		return
	}

	ticker := time.NewTicker(p.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.gcOnce(ctx)
		}
	}
}

func (p *Poller) gcOnce(ctx context.Context) {
	if !p.acquireLeader(ctx, leaderLockKey+":gc") {
		return
	}
	defer p.releaseLeader(ctx, leaderLockKey+":gc")

	metrics.PollerTicks.WithLabelValues("gc").Inc()

	cutoff := time.Now().UTC().Add(-p.cfg.GCRetention)
	n, err := p.store.SweepTerminal(ctx, cutoff)
	if err != nil {
		logger.Error().Err(err).Msg("poller: sweep terminal failed")
		return
	}
	if n > 0 {
		metrics.GCSweptTotal.Add(float64(n))
		logger.Info().Int64("count", n).Msg("poller: swept terminal tasks")
	}
}

// acquireLeader returns true if this process should do the work for this
// tick. With no Redis client configured, every instance is its own leader.
func (p *Poller) acquireLeader(ctx context.Context, key string) bool {
	if p.redis == nil {
		return true
	}

	locked, err := p.redis.SetNX(ctx, key, "1", p.cfg.LeaderTTL).Result()
	if err != nil {
		logger.Debug().Err(err).Msg("poller: leader lock acquisition failed, skipping this tick")
		return false
	}
	return locked
}

// releaseLeader drops the lock immediately after the tick's work
// completes, so the next tick (on this instance or another) can acquire
// it rather than waiting out the full TTL.
func (p *Poller) releaseLeader(ctx context.Context, key string) {
	if p.redis == nil {
		return
	}
	if err := p.redis.Del(ctx, key).Err(); err != nil {
		logger.Debug().Err(err).Msg("poller: leader lock release failed, it will expire via TTL")
	}
}
