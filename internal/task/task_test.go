package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefaults() Defaults {
	return Defaults{
		Timeout:       10 * time.Second,
		BackoffPolicy: BackoffExponential,
		BackoffBase:   time.Second,
		BackoffMax:    time.Minute,
	}
}

func TestNew(t *testing.T) {
	tk := New("https://example.com/hook", []byte(`{"a":1}`), map[string]string{"X-Foo": "bar"}, testDefaults())

	require.NotEmpty(t, tk.ID)
	assert.Equal(t, "https://example.com/hook", tk.URL)
	assert.Equal(t, StatusPending, tk.Status)
	assert.Equal(t, 0, tk.Attempts)
	assert.Nil(t, tk.ClaimedUntil)
	assert.Nil(t, tk.MaxAttempts)
	assert.WithinDuration(t, time.Now(), tk.DueAt, time.Second)
	assert.Equal(t, tk.CreatedAt, tk.UpdatedAt)
}

func TestNew_NilHeaders(t *testing.T) {
	tk := New("https://example.com/hook", nil, nil, testDefaults())
	assert.NotNil(t, tk.Headers)
	assert.Empty(t, tk.Headers)
}

func TestCanRetry_Unbounded(t *testing.T) {
	tk := New("https://example.com/hook", nil, nil, testDefaults())
	tk.Attempts = 1000
	assert.True(t, tk.CanRetry())
}

func TestCanRetry_Bounded(t *testing.T) {
	max := 3
	d := testDefaults()
	d.MaxAttempts = &max
	tk := New("https://example.com/hook", nil, nil, d)

	tk.Attempts = 2
	assert.True(t, tk.CanRetry())

	tk.Attempts = 3
	assert.False(t, tk.CanRetry())
}

func TestToSnapshot(t *testing.T) {
	tk := New("https://example.com/hook", []byte("payload"), map[string]string{"X-Foo": "bar"}, testDefaults())
	code := 502
	tk.LastStatusCode = &code
	tk.LastError = "bad gateway"

	snap := tk.ToSnapshot()
	assert.Equal(t, tk.ID, snap.ID)
	assert.Equal(t, tk.URL, snap.URL)
	assert.Equal(t, "pending", snap.Status)
	assert.Equal(t, &code, snap.LastStatusCode)
	assert.Equal(t, "bad gateway", snap.LastError)
	assert.Equal(t, tk.Headers, snap.Headers)
}
