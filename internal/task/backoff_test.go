package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackoffPolicy(t *testing.T) {
	got, err := ParseBackoffPolicy("linear")
	require.NoError(t, err)
	assert.Equal(t, BackoffLinear, got)

	got, err = ParseBackoffPolicy("exponential")
	require.NoError(t, err)
	assert.Equal(t, BackoffExponential, got)

	_, err = ParseBackoffPolicy("fibonacci")
	assert.ErrorIs(t, err, ErrInvalidBackoffPolicy)
}

func TestBackoffPolicy_NextDelay_Linear(t *testing.T) {
	base := time.Second
	max := 30 * time.Second

	assert.Equal(t, 1*time.Second, BackoffLinear.NextDelay(1, base, max))
	assert.Equal(t, 2*time.Second, BackoffLinear.NextDelay(2, base, max))
	assert.Equal(t, 3*time.Second, BackoffLinear.NextDelay(3, base, max))
}

func TestBackoffPolicy_NextDelay_Exponential(t *testing.T) {
	base := time.Second
	max := 30 * time.Second

	assert.Equal(t, 1*time.Second, BackoffExponential.NextDelay(1, base, max))
	assert.Equal(t, 2*time.Second, BackoffExponential.NextDelay(2, base, max))
	assert.Equal(t, 4*time.Second, BackoffExponential.NextDelay(3, base, max))
	assert.Equal(t, 8*time.Second, BackoffExponential.NextDelay(4, base, max))
}

func TestBackoffPolicy_NextDelay_ClampedToMax(t *testing.T) {
	base := time.Second
	max := 5 * time.Second

	assert.Equal(t, 5*time.Second, BackoffExponential.NextDelay(10, base, max))
	assert.Equal(t, 5*time.Second, BackoffLinear.NextDelay(100, base, max))
}

func TestBackoffPolicy_NextDelay_ZeroAttemptsTreatedAsFirst(t *testing.T) {
	base := time.Second
	max := 30 * time.Second

	assert.Equal(t, BackoffLinear.NextDelay(1, base, max), BackoffLinear.NextDelay(0, base, max))
}

func TestBackoffPolicy_NextDelay_Deterministic(t *testing.T) {
	// No jitter: repeated calls with identical inputs must be identical.
	base := 500 * time.Millisecond
	max := time.Minute
	first := BackoffExponential.NextDelay(5, base, max)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BackoffExponential.NextDelay(5, base, max))
	}
}
