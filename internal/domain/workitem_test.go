package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionForwardOnly(t *testing.T) {
	cases := []struct {
		from    WorkItemStatus
		to      WorkItemStatus
		allowed bool
	}{
		{StatusUnassigned, StatusClaimed, true},
		{StatusUnassigned, StatusCancelled, true},
		{StatusClaimed, StatusActive, true},
		{StatusClaimed, StatusCancelled, true},
		{StatusActive, StatusResolved, true},

		// backward moves
		{StatusClaimed, StatusUnassigned, false},
		{StatusActive, StatusClaimed, false},
		{StatusResolved, StatusActive, false},

		// skips
		{StatusUnassigned, StatusActive, false},
		{StatusUnassigned, StatusResolved, false},
		{StatusClaimed, StatusResolved, false},

		// terminal states absorb
		{StatusResolved, StatusCancelled, false},
		{StatusCancelled, StatusUnassigned, false},
		{StatusCancelled, StatusClaimed, false},
		{StatusResolved, StatusResolved, false},

		// cancelling Active is not part of the lifecycle
		{StatusActive, StatusCancelled, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusResolved.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusUnassigned.IsTerminal())
	assert.False(t, StatusClaimed.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())
}

func TestStatusValid(t *testing.T) {
	for _, s := range []WorkItemStatus{StatusUnassigned, StatusClaimed, StatusActive, StatusResolved, StatusCancelled} {
		assert.True(t, s.Valid())
	}
	assert.False(t, WorkItemStatus("Open").Valid())
	assert.False(t, WorkItemStatus("").Valid())
}

func TestDerivedPriority(t *testing.T) {
	now := time.Now()
	item := &WorkItem{ID: "t1", CreatedAt: now.Add(-2 * time.Minute)}
	assert.Equal(t, PriorityNormal, item.Priority(now))
	assert.Equal(t, int64(120), int64(item.WaitTime(now).Seconds()))

	item.CreatedAt = now.Add(-6 * time.Minute)
	assert.Equal(t, PriorityHigh, item.Priority(now))

	// exactly at the threshold stays NORMAL
	item.CreatedAt = now.Add(-HighPriorityWaitThreshold)
	assert.Equal(t, PriorityNormal, item.Priority(now))
}
