package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torquehq/torque/internal/bus"
	"github.com/torquehq/torque/internal/store/memstore"
	"github.com/torquehq/torque/internal/task"
)

func testDefaults() task.Defaults {
	return task.Defaults{
		Timeout:       5 * time.Second,
		BackoffPolicy: task.BackoffExponential,
		BackoffBase:   time.Second,
		BackoffMax:    time.Minute,
	}
}

func TestEnqueue_PersistsAndAnnounces(t *testing.T) {
	s := memstore.New()
	b := bus.NewLocalBus()
	d := New(s, b, testDefaults())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifications, _ := b.Subscribe(ctx)

	tk, err := d.Enqueue(ctx, "https://example.com/hook", []byte("payload"), nil)
	require.NoError(t, err)
	require.NotEmpty(t, tk.ID)

	stored, err := s.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusPending, stored.Status)

	select {
	case id := <-notifications:
		assert.Equal(t, tk.ID, id)
	case <-time.After(time.Second):
		t.Fatal("expected a notify bus announcement")
	}
}

func TestEnqueue_SucceedsEvenIfNobodyIsSubscribed(t *testing.T) {
	s := memstore.New()
	b := bus.NewLocalBus()
	d := New(s, b, testDefaults())

	_, err := d.Enqueue(context.Background(), "https://example.com/hook", []byte("payload"), nil)
	assert.NoError(t, err)
}
