// Package dispatcher implements the ingress-facing write path: durably
// persist a task, then best-effort-announce it over the Notify Bus. The
// durable insert always happens; the announcement never blocks or fails
// the caller.
package dispatcher

import (
	"context"

	"github.com/torquehq/torque/internal/bus"
	"github.com/torquehq/torque/internal/logger"
	"github.com/torquehq/torque/internal/metrics"
	"github.com/torquehq/torque/internal/store"
	"github.com/torquehq/torque/internal/task"
)

// Dispatcher is the single entry point new tasks flow through.
type Dispatcher struct {
	store    store.Store
	bus      bus.Bus
	defaults task.Defaults
}

// New constructs a Dispatcher using the given defaults for any task field
// not already set by the caller.
func New(s store.Store, b bus.Bus, defaults task.Defaults) *Dispatcher {
	return &Dispatcher{store: s, bus: b, defaults: defaults}
}

// Enqueue persists a new pending task and announces it. The returned task
// reflects what was durably stored, regardless of whether the
// announcement succeeded.
func (d *Dispatcher) Enqueue(ctx context.Context, url string, body []byte, headers map[string]string) (*task.Task, error) {
	t := task.New(url, body, headers, d.defaults)

	if err := d.store.Insert(ctx, t); err != nil {
		return nil, err
	}
	metrics.TasksEnqueued.Inc()

	if err := d.bus.Publish(ctx, t.ID); err != nil {
		logger.Debug().Err(err).Str("task_id", t.ID).Msg("notify bus publish failed at enqueue, poller will discover it")
	}

	return t, nil
}
