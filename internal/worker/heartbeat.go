package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/torquehq/torque/internal/logger"
)

const (
	workerKeyPrefix     = "torque:worker:"
	workerSetKey        = "torque:workers:active"
	workerInfoKeySuffix = ":info"

	heartbeatInterval = 10 * time.Second
	heartbeatTimeout  = 30 * time.Second
)

// Info is the operator-facing snapshot of a running worker pool,
// published to Redis so GET /admin/workers can answer without every
// ingress process needing a direct line to every worker process.
type Info struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	ActiveTasks   int       `json:"active_tasks"`
	Concurrency   int       `json:"concurrency"`
}

// Heartbeat periodically records a Pool's liveness and activity in Redis.
// It never participates in claim correctness — that rests solely on
// claimed_until — so a missed or delayed heartbeat only makes
// GET /admin/workers stale, never incorrect in a way that affects
// dispatch.
type Heartbeat struct {
	client   *redis.Client
	workerID string
	stopCh   chan struct{}
	wg       sync.WaitGroup

	mu   sync.Mutex
	info Info
}

// NewHeartbeat constructs a Heartbeat for workerID. client may be nil, in
// which case Start/Stop are no-ops — useful for tests and deployments
// without Redis where liveness tracking is simply unavailable.
func NewHeartbeat(client *redis.Client, workerID string, concurrency int) *Heartbeat {
	return &Heartbeat{
		client:   client,
		workerID: workerID,
		stopCh:   make(chan struct{}),
		info: Info{
			ID:          workerID,
			StartedAt:   time.Now().UTC(),
			Concurrency: concurrency,
		},
	}
}

// Start registers the worker and begins sending periodic heartbeats.
func (h *Heartbeat) Start(ctx context.Context) {
	if h.client == nil {
		return
	}
	h.register(ctx)
	h.wg.Add(1)
	go h.loop(ctx)
	logger.Info().Str("worker_id", h.workerID).Msg("heartbeat started")
}

// Stop halts the heartbeat loop and deregisters the worker.
func (h *Heartbeat) Stop() {
	if h.client == nil {
		return
	}
	close(h.stopCh)
	h.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.deregister(ctx)
	logger.Info().Str("worker_id", h.workerID).Msg("heartbeat stopped")
}

// SetActiveTasks updates the active-task count reported on the next beat.
func (h *Heartbeat) SetActiveTasks(n int) {
	h.mu.Lock()
	h.info.ActiveTasks = n
	h.mu.Unlock()
}

func (h *Heartbeat) loop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	h.beat(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.beat(ctx)
		}
	}
}

func (h *Heartbeat) beat(ctx context.Context) {
	now := time.Now().UTC()

	h.mu.Lock()
	h.info.LastHeartbeat = now
	data, err := json.Marshal(h.info)
	h.mu.Unlock()
	if err != nil {
		logger.Error().Err(err).Str("worker_id", h.workerID).Msg("failed to encode worker info")
		return
	}

	if err := h.client.Set(ctx, h.infoKey(), data, heartbeatTimeout).Err(); err != nil {
		logger.Error().Err(err).Str("worker_id", h.workerID).Msg("heartbeat failed")
		return
	}
	h.client.SAdd(ctx, workerSetKey, h.workerID)
}

func (h *Heartbeat) register(ctx context.Context) {
	h.client.SAdd(ctx, workerSetKey, h.workerID)
	h.beat(ctx)
}

func (h *Heartbeat) deregister(ctx context.Context) {
	h.client.SRem(ctx, workerSetKey, h.workerID)
	h.client.Del(ctx, h.infoKey())
}

func (h *Heartbeat) infoKey() string {
	return fmt.Sprintf("%s%s%s", workerKeyPrefix, h.workerID, workerInfoKeySuffix)
}

// ActiveWorkers lists every worker whose heartbeat has not yet expired.
func ActiveWorkers(ctx context.Context, client *redis.Client) ([]Info, error) {
	ids, err := client.SMembers(ctx, workerSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("worker: list active workers: %w", err)
	}

	workers := make([]Info, 0, len(ids))
	for _, id := range ids {
		key := fmt.Sprintf("%s%s%s", workerKeyPrefix, id, workerInfoKeySuffix)
		data, err := client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			client.SRem(ctx, workerSetKey, id)
			continue
		}
		if err != nil {
			continue
		}
		var info Info
		if err := json.Unmarshal(data, &info); err != nil {
			continue
		}
		workers = append(workers, info)
	}
	return workers, nil
}
