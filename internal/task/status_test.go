package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusPending, false},
		{StatusExecuting, false},
		{StatusRetry, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestStatus_IsClaimable(t *testing.T) {
	tests := []struct {
		status    Status
		claimable bool
	}{
		{StatusPending, true},
		{StatusRetry, true},
		{StatusExecuting, false},
		{StatusCompleted, false},
		{StatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.claimable, tt.status.IsClaimable())
		})
	}
}

func TestParseStatus(t *testing.T) {
	valid := []Status{StatusPending, StatusExecuting, StatusRetry, StatusCompleted, StatusFailed}
	for _, s := range valid {
		got, err := ParseStatus(string(s))
		assert.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStatus("bogus")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
