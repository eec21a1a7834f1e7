package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/chat-support-backend/internal/domain"
)

// memoryWorkItemRepository is an in-process store used for tests and for
// running without a Postgres DSN. It mirrors the conditional-write contract of
// the Postgres implementation: every mutation re-checks its precondition under
// the same lock that applies the write, and a version counter increments per
// mutation.
type memoryWorkItemRepository struct {
	mu    sync.Mutex
	items map[string]*memoryRecord
	nowFn func() time.Time
}

type memoryRecord struct {
	item    domain.WorkItem
	version int64
}

// NewMemoryWorkItemRepository creates an empty in-memory repository.
func NewMemoryWorkItemRepository() WorkItemRepository {
	return &memoryWorkItemRepository{
		items: make(map[string]*memoryRecord),
		nowFn: time.Now,
	}
}

// NewMemoryWorkItemRepositoryWithClock creates an in-memory repository with an
// injectable clock for deterministic tests.
func NewMemoryWorkItemRepositoryWithClock(nowFn func() time.Time) WorkItemRepository {
	return &memoryWorkItemRepository{
		items: make(map[string]*memoryRecord),
		nowFn: nowFn,
	}
}

func (r *memoryWorkItemRepository) Create(ctx context.Context, item *domain.WorkItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; exists {
		return ErrAlreadyExists
	}
	now := r.nowFn()
	item.CreatedAt = now
	item.UpdatedAt = now
	r.items[item.ID] = &memoryRecord{item: cloneItem(item), version: 1}
	return nil
}

func (r *memoryWorkItemRepository) Get(ctx context.Context, id string) (*domain.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	item := cloneItem(&record.item)
	return &item, nil
}

func (r *memoryWorkItemRepository) List(ctx context.Context, filter ListFilter) ([]domain.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.WorkItem
	for _, record := range r.items {
		if filter.Status != nil && record.item.Status != *filter.Status {
			continue
		}
		if filter.AgentID != nil {
			if record.item.AssignedAgentID == nil || *record.item.AssignedAgentID != *filter.AgentID {
				continue
			}
		}
		result = append(result, cloneItem(&record.item))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *memoryWorkItemRepository) Claim(ctx context.Context, id, agentID, agentName string) (*ClaimOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if record.item.Status != domain.StatusUnassigned || record.item.AssignedAgentID != nil {
		item := cloneItem(&record.item)
		outcome := &ClaimOutcome{Claimed: false, Item: &item, ClaimedAt: item.ClaimedAt}
		if item.AssignedAgentName != nil {
			outcome.ClaimedBy = *item.AssignedAgentName
		}
		return outcome, nil
	}

	now := r.nowFn()
	record.item.Status = domain.StatusClaimed
	record.item.AssignedAgentID = strPtr(agentID)
	record.item.AssignedAgentName = strPtr(agentName)
	record.item.ClaimedAt = timePtr(now)
	record.item.UpdatedAt = now
	record.version++

	item := cloneItem(&record.item)
	return &ClaimOutcome{Claimed: true, Item: &item}, nil
}

func (r *memoryWorkItemRepository) AssignAgent(ctx context.Context, id, agentID, agentName string) (*domain.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := r.nowFn()
	record.item.Status = domain.StatusClaimed
	record.item.AssignedAgentID = strPtr(agentID)
	record.item.AssignedAgentName = strPtr(agentName)
	if record.item.ClaimedAt == nil {
		record.item.ClaimedAt = timePtr(now)
	}
	record.item.UpdatedAt = now
	record.version++

	item := cloneItem(&record.item)
	return &item, nil
}

func (r *memoryWorkItemRepository) UpdateStatus(ctx context.Context, id string, status domain.WorkItemStatus) (*domain.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	record.item.Status = status
	record.item.UpdatedAt = r.nowFn()
	record.version++

	item := cloneItem(&record.item)
	return &item, nil
}

func (r *memoryWorkItemRepository) UpdateMetadata(ctx context.Context, id string, metadata map[string]string) (*domain.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if record.item.Metadata == nil {
		record.item.Metadata = make(map[string]string, len(metadata))
	}
	for k, v := range metadata {
		record.item.Metadata[k] = v
	}
	record.item.UpdatedAt = r.nowFn()
	record.version++

	item := cloneItem(&record.item)
	return &item, nil
}

func (r *memoryWorkItemRepository) Cancel(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.items[id]
	if !ok {
		return false, nil
	}
	record.item.Status = domain.StatusCancelled
	record.item.UpdatedAt = r.nowFn()
	record.version++
	return true, nil
}

func (r *memoryWorkItemRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

func cloneItem(item *domain.WorkItem) domain.WorkItem {
	out := *item
	if item.Metadata != nil {
		out.Metadata = make(map[string]string, len(item.Metadata))
		for k, v := range item.Metadata {
			out.Metadata[k] = v
		}
	}
	if item.AssignedAgentID != nil {
		out.AssignedAgentID = strPtr(*item.AssignedAgentID)
	}
	if item.AssignedAgentName != nil {
		out.AssignedAgentName = strPtr(*item.AssignedAgentName)
	}
	if item.ClaimedAt != nil {
		out.ClaimedAt = timePtr(*item.ClaimedAt)
	}
	return out
}

func strPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}
