package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBus_PublishFansOutToAllSubscribers(t *testing.T) {
	b := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch1, _ := b.Subscribe(ctx)
	ch2, _ := b.Subscribe(ctx)

	require.NoError(t, b.Publish(ctx, "task-1"))

	select {
	case id := <-ch1:
		assert.Equal(t, "task-1", id)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting on subscriber 1")
	}

	select {
	case id := <-ch2:
		assert.Equal(t, "task-1", id)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting on subscriber 2")
	}
}

func TestLocalBus_PublishWithNoSubscribersDoesNotBlock(t *testing.T) {
	b := NewLocalBus()
	ctx := context.Background()
	assert.NoError(t, b.Publish(ctx, "task-1"))
}

func TestLocalBus_UnsubscribeClosesChannel(t *testing.T) {
	b := NewLocalBus()
	ctx := context.Background()

	ch, unsubscribe := b.Subscribe(ctx)
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestLocalBus_ContextCancelUnsubscribes(t *testing.T) {
	b := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch, _ := b.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel was not closed after context cancellation")
	}
}

func TestLocalBus_FullBufferDropsRatherThanBlocks(t *testing.T) {
	b := NewLocalBus()
	ctx := context.Background()
	_, _ = b.Subscribe(ctx) // unread subscriber, buffer will fill

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			_ = b.Publish(ctx, "task-flood")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}
}
