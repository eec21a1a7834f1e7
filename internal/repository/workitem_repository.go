package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/chat-support-backend/internal/domain"
)

// Sentinel errors returned by repository implementations. Claim races are NOT
// errors; they surface through ClaimOutcome so callers can tell a lost race
// apart from a store fault.
var (
	ErrNotFound      = errors.New("work item not found")
	ErrAlreadyExists = errors.New("work item already exists")
)

// ClaimOutcome reports the result of an atomic claim attempt. When Claimed is
// false and Item is non-nil, the item was already held and ClaimedBy/ClaimedAt
// identify the winner.
type ClaimOutcome struct {
	Claimed   bool
	Item      *domain.WorkItem
	ClaimedBy string
	ClaimedAt *time.Time
}

// ListFilter narrows listing queries.
type ListFilter struct {
	Status  *domain.WorkItemStatus
	AgentID *string
}

// WorkItemRepository encapsulates work-item persistence. Claim must be backed
// by the store's native conditional-write primitive; read-then-write has a
// race window and is not an acceptable implementation.
type WorkItemRepository interface {
	Create(ctx context.Context, item *domain.WorkItem) error
	Get(ctx context.Context, id string) (*domain.WorkItem, error)
	List(ctx context.Context, filter ListFilter) ([]domain.WorkItem, error)

	// Claim atomically transitions id from Unassigned to Claimed for the given
	// agent. At most one concurrent caller observes Claimed=true; all others
	// get the winner's identity in the outcome.
	Claim(ctx context.Context, id, agentID, agentName string) (*ClaimOutcome, error)

	// AssignAgent is the legacy single-writer assignment path. It overwrites
	// the assignee without the Unassigned precondition and must not be used
	// where concurrent callers are possible.
	AssignAgent(ctx context.Context, id, agentID, agentName string) (*domain.WorkItem, error)

	UpdateStatus(ctx context.Context, id string, status domain.WorkItemStatus) (*domain.WorkItem, error)
	UpdateMetadata(ctx context.Context, id string, metadata map[string]string) (*domain.WorkItem, error)

	// Cancel marks the item Cancelled, preserving all other fields. Returns
	// false without error when no such item exists.
	Cancel(ctx context.Context, id string) (bool, error)

	// Delete permanently removes the record. Returns whether a record existed.
	Delete(ctx context.Context, id string) (bool, error)
}

// HistoryRepository persists the work-item audit trail.
type HistoryRepository interface {
	Record(ctx context.Context, entry *domain.WorkItemHistory) error
	ListByWorkItem(ctx context.Context, workItemID string, limit int) ([]domain.WorkItemHistory, error)
}
