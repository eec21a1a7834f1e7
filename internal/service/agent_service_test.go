package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/chat-support-backend/internal/domain"
	"github.com/spec-kit/chat-support-backend/internal/events"
	"github.com/spec-kit/chat-support-backend/internal/repository"
	apperrors "github.com/spec-kit/chat-support-backend/pkg/util"
)

type capturingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *capturingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *capturingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *capturingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(dispatcher events.Dispatcher) *AgentService {
	return NewAgentService(AgentDependencies{
		WorkItemRepo: repository.NewMemoryWorkItemRepository(),
		HistoryRepo:  repository.NewMemoryHistoryRepository(),
		Dispatcher:   dispatcher,
	})
}

func mustCreate(t *testing.T, svc *AgentService, id string) *domain.WorkItem {
	t.Helper()
	item, err := svc.CreateWorkItem(context.Background(), CreateWorkItemInput{
		ID:           id,
		CustomerName: "Sarah",
		CustomerID:   "cust-1",
	})
	require.NoError(t, err)
	return item
}

func TestCreateWorkItemRequiresID(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.CreateWorkItem(context.Background(), CreateWorkItemInput{ID: "  "})

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestCreateWorkItemDefaultsToUnassignedAndAnnounces(t *testing.T) {
	dispatcher := &capturingDispatcher{}
	svc := newTestService(dispatcher)

	item := mustCreate(t, svc, "t1")
	assert.Equal(t, domain.StatusUnassigned, item.Status)
	assert.Nil(t, item.AssignedAgentID)

	announced := dispatcher.byType(events.EventNewChatRequest)
	require.Len(t, announced, 1)
	assert.Equal(t, "t1", announced[0].ThreadID)
}

func TestClaimWorkItemSuccessShape(t *testing.T) {
	dispatcher := &capturingDispatcher{}
	svc := newTestService(dispatcher)
	mustCreate(t, svc, "t1")

	result, err := svc.ClaimWorkItem(context.Background(), "t1", "A1", "Alice")
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotNil(t, result.WorkItem)
	assert.Equal(t, domain.StatusClaimed, result.WorkItem.Status)
	require.NotNil(t, result.WorkItem.AssignedAgentID)
	assert.Equal(t, "A1", *result.WorkItem.AssignedAgentID)
	assert.NotNil(t, result.WorkItem.ClaimedAt)

	claimed := dispatcher.byType(events.EventChatClaimed)
	require.Len(t, claimed, 1)
	payload, ok := claimed[0].Payload.(events.ChatClaimedPayload)
	require.True(t, ok)
	assert.Equal(t, "Alice", payload.AgentName)
}

func TestClaimWorkItemConflictNamesWinner(t *testing.T) {
	svc := newTestService(nil)
	mustCreate(t, svc, "t1")
	ctx := context.Background()

	first, err := svc.ClaimWorkItem(ctx, "t1", "A1", "Alice")
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := svc.ClaimWorkItem(ctx, "t1", "B1", "Bob")
	require.NoError(t, err, "a lost race is a result, not an error")
	assert.False(t, second.Success)
	assert.Equal(t, "Alice", second.ClaimedBy)
	assert.NotNil(t, second.ClaimedAt)
}

func TestClaimWorkItemConcurrent(t *testing.T) {
	dispatcher := &capturingDispatcher{}
	svc := newTestService(dispatcher)
	mustCreate(t, svc, "t1")

	const agents = 8
	results := make([]*ClaimResult, agents)

	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(agents)
	for i := 0; i < agents; i++ {
		go func(i int) {
			defer done.Done()
			start.Wait()
			result, err := svc.ClaimWorkItem(context.Background(),
				"t1", fmt.Sprintf("agent-%d", i), fmt.Sprintf("Agent %d", i))
			require.NoError(t, err)
			results[i] = result
		}(i)
	}
	start.Done()
	done.Wait()

	winners := 0
	for _, result := range results {
		if result.Success {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Len(t, dispatcher.byType(events.EventChatClaimed), 1,
		"only the winning claim publishes")
}

func TestClaimWorkItemValidation(t *testing.T) {
	svc := newTestService(nil)
	mustCreate(t, svc, "t1")
	ctx := context.Background()

	_, err := svc.ClaimWorkItem(ctx, "t1", "", "Alice")
	assert.Error(t, err)

	_, err = svc.ClaimWorkItem(ctx, "t1", "A1", "")
	assert.Error(t, err)

	_, err = svc.ClaimWorkItem(ctx, "missing", "A1", "Alice")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestAssignAgentPolicy(t *testing.T) {
	svc := newTestService(nil)
	mustCreate(t, svc, "t1")
	ctx := context.Background()

	// Unassigned items go through the atomic claim under the hood.
	item, err := svc.AssignAgent(ctx, "t1", "A1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClaimed, item.Status)

	// Re-assigning to the same agent is a no-op.
	item, err = svc.AssignAgent(ctx, "t1", "A1", "Alice")
	require.NoError(t, err)
	require.NotNil(t, item.AssignedAgentID)
	assert.Equal(t, "A1", *item.AssignedAgentID)

	// A different agent cannot steal the thread.
	_, err = svc.AssignAgent(ctx, "t1", "B1", "Bob")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestGetUnassignedWorkItemsFIFO(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	repo := repository.NewMemoryWorkItemRepositoryWithClock(clock.Now)
	svc := NewAgentService(AgentDependencies{WorkItemRepo: repo})
	ctx := context.Background()

	// Created in a scrambled id order; FIFO follows creation time.
	for _, id := range []string{"t2", "t3", "t1"} {
		_, err := svc.CreateWorkItem(ctx, CreateWorkItemInput{ID: id})
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	items, err := svc.GetUnassignedWorkItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "t2", items[0].ID)
	assert.Equal(t, "t3", items[1].ID)
	assert.Equal(t, "t1", items[2].ID)

	result, err := svc.ClaimWorkItem(ctx, "t3", "A1", "Alice")
	require.NoError(t, err)
	require.True(t, result.Success)

	items, err = svc.GetUnassignedWorkItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "t2", items[0].ID)
	assert.Equal(t, "t1", items[1].ID)
}

func TestGetWorkItemsByAgentID(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	mustCreate(t, svc, "t1")
	mustCreate(t, svc, "t2")
	mustCreate(t, svc, "t3")

	for _, id := range []string{"t1", "t2"} {
		result, err := svc.ClaimWorkItem(ctx, id, "A1", "Alice")
		require.NoError(t, err)
		require.True(t, result.Success)
	}
	_, err := svc.UpdateWorkItem(ctx, "t2", domain.StatusActive)
	require.NoError(t, err)

	items, err := svc.GetWorkItemsByAgentID(ctx, "A1", nil)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	active := domain.StatusActive
	items, err = svc.GetWorkItemsByAgentID(ctx, "A1", &active)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "t2", items[0].ID)

	_, err = svc.GetWorkItemsByAgentID(ctx, "", nil)
	assert.Error(t, err)
}

func TestUpdateWorkItemRejectsBackwardTransitions(t *testing.T) {
	svc := newTestService(nil)
	mustCreate(t, svc, "t1")
	ctx := context.Background()

	result, err := svc.ClaimWorkItem(ctx, "t1", "A1", "Alice")
	require.NoError(t, err)
	require.True(t, result.Success)

	item, err := svc.UpdateWorkItem(ctx, "t1", domain.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, item.Status)

	item, err = svc.UpdateWorkItem(ctx, "t1", domain.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, item.Status)

	for _, next := range []domain.WorkItemStatus{domain.StatusActive, domain.StatusClaimed, domain.StatusUnassigned, domain.StatusCancelled} {
		_, err = svc.UpdateWorkItem(ctx, "t1", next)
		var domainErr *apperrors.DomainError
		require.ErrorAs(t, err, &domainErr, "Resolved -> %s must be rejected", next)
		assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	}
}

func TestCancelWorkItemIdempotent(t *testing.T) {
	dispatcher := &capturingDispatcher{}
	svc := newTestService(dispatcher)
	mustCreate(t, svc, "t1")
	ctx := context.Background()

	removed, err := svc.CancelWorkItem(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.CancelWorkItem(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, removed, "second cancel reports already removed")

	removed, err = svc.CancelWorkItem(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Len(t, dispatcher.byType(events.EventWorkItemCancelled), 1,
		"only the effective cancel publishes")
}

func TestCancelWorkItemRejectsResolved(t *testing.T) {
	svc := newTestService(nil)
	mustCreate(t, svc, "t1")
	ctx := context.Background()

	_, err := svc.ClaimWorkItem(ctx, "t1", "A1", "Alice")
	require.NoError(t, err)
	_, err = svc.UpdateWorkItem(ctx, "t1", domain.StatusActive)
	require.NoError(t, err)
	_, err = svc.UpdateWorkItem(ctx, "t1", domain.StatusResolved)
	require.NoError(t, err)

	_, err = svc.CancelWorkItem(ctx, "t1")
	assert.Error(t, err, "Cancelled is unreachable once Resolved")
}

// A fan-out failure must never change the claim outcome.
func TestClaimUnaffectedByNotificationFailure(t *testing.T) {
	failing := failingDispatcher{}
	svc := NewAgentService(AgentDependencies{
		WorkItemRepo: repository.NewMemoryWorkItemRepository(),
		Dispatcher:   failing,
	})
	ctx := context.Background()

	_, err := svc.CreateWorkItem(ctx, CreateWorkItemInput{ID: "t1"})
	require.NoError(t, err, "creation survives a failing fan-out")

	result, err := svc.ClaimWorkItem(ctx, "t1", "A1", "Alice")
	require.NoError(t, err)
	assert.True(t, result.Success)

	item, err := svc.GetWorkItem(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClaimed, item.Status)
}

type failingDispatcher struct{}

func (failingDispatcher) Publish(ctx context.Context, event events.Event) error {
	return errors.New("notification channel down")
}

func (failingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func TestHistoryRecordsLifecycle(t *testing.T) {
	svc := newTestService(nil)
	mustCreate(t, svc, "t1")
	ctx := context.Background()

	_, err := svc.ClaimWorkItem(ctx, "t1", "A1", "Alice")
	require.NoError(t, err)
	_, err = svc.UpdateWorkItem(ctx, "t1", domain.StatusActive)
	require.NoError(t, err)

	entries, err := svc.GetWorkItemHistory(ctx, "t1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ChangeTypeAssignee, entries[0].ChangeType)
	assert.Equal(t, domain.ChangeTypeStatus, entries[1].ChangeType)
}

func TestPurgeWorkItem(t *testing.T) {
	svc := newTestService(nil)
	mustCreate(t, svc, "t1")
	ctx := context.Background()

	existed, err := svc.PurgeWorkItem(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = svc.GetWorkItem(ctx, "t1")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
