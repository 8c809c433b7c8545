package bus

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/torquehq/torque/internal/logger"
)

const notifyChannel = "torque:notify"

// RedisBus implements Bus over a single Redis Pub/Sub channel, for
// deployments running more than one process sharing a Task Store.
type RedisBus struct {
	client *redis.Client

	mu   sync.Mutex
	subs []*redis.PubSub
}

// NewRedisBus wraps an existing Redis client.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, id string) error {
	if err := b.client.Publish(ctx, notifyChannel, id).Err(); err != nil {
		logger.Debug().Err(err).Str("task_id", id).Msg("notify bus publish failed, poller will recover")
		return err
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context) (<-chan string, func()) {
	pubsub := b.client.Subscribe(ctx, notifyChannel)

	b.mu.Lock()
	b.subs = append(b.subs, pubsub)
	b.mu.Unlock()

	out := make(chan string, 256)
	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				default:
					logger.Warn().Msg("notify bus subscriber channel full, dropping notification")
				}
			}
		}
	}()

	unsubscribe := func() {
		_ = pubsub.Close()
	}
	return out, unsubscribe
}

// Close tears down every subscription created by this bus.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		_ = s.Close()
	}
	b.subs = nil
	return nil
}
