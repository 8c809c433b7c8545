// Package bus implements the Notify Bus: a best-effort, at-most-once,
// lossy fan-out of task IDs from the Dispatcher/Poller to idle workers.
// It exists purely to cut average claim latency below the Poller's
// polling interval; losing a notification (a dropped Redis message, a
// restarted process, a full channel) never loses a task, because the
// Poller's periodic SelectDue sweep rediscovers any task the bus failed
// to announce.
package bus

import "context"

// Bus publishes and subscribes to task-ready notifications. It carries no
// payload beyond the task ID — subscribers must re-fetch task state from
// the Store, since the bus message may be stale or a duplicate by the
// time it is observed.
type Bus interface {
	// Publish announces that id is now claimable. Implementations may
	// silently drop the notification under backpressure; callers must not
	// treat a Publish error as fatal to the operation that produced it.
	Publish(ctx context.Context, id string) error

	// Subscribe returns a channel of task IDs and an unsubscribe func.
	// The channel is closed when ctx is done or unsubscribe is called.
	Subscribe(ctx context.Context) (<-chan string, func())
}
