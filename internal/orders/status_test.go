package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		ok   bool
	}{
		{"pending to processing", StatusPending, StatusProcessing, true},
		{"pending to paid", StatusPending, StatusPaid, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"processing to completed", StatusProcessing, StatusCompleted, true},
		{"processing to paid", StatusProcessing, StatusPaid, true},
		{"processing to cancelled", StatusProcessing, StatusCancelled, true},
		{"completed is terminal", StatusCompleted, StatusPending, false},
		{"paid is terminal", StatusPaid, StatusCompleted, false},
		{"cancelled to paid rejected", StatusCancelled, StatusPaid, false},
		{"pending to completed skips processing", StatusPending, StatusCompleted, false},
		{"no self transition", StatusPending, StatusPending, false},
		{"unknown status", Status("BOGUS"), StatusPaid, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to))
		})
	}
}

func TestValidInitial(t *testing.T) {
	assert.True(t, ValidInitial(StatusPending))
	assert.True(t, ValidInitial(StatusProcessing))
	assert.True(t, ValidInitial(StatusPaid))
	assert.False(t, ValidInitial(StatusCancelled))
	assert.False(t, ValidInitial(StatusCompleted))
}
