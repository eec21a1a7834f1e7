package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/chat-support-backend/internal/domain"
	"github.com/spec-kit/chat-support-backend/internal/events"
	"github.com/spec-kit/chat-support-backend/internal/repository"
	apperrors "github.com/spec-kit/chat-support-backend/pkg/util"
)

// AgentService coordinates the work-item queue: creation, atomic claims,
// status lifecycle, queue views and cancellation.
type AgentService struct {
	items      repository.WorkItemRepository
	history    repository.HistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	nowFn      func() time.Time
}

// AgentDependencies bundles collaborators for the agent service.
type AgentDependencies struct {
	WorkItemRepo repository.WorkItemRepository
	HistoryRepo  repository.HistoryRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// ClaimResult is the structured outcome of a claim attempt. A lost race is a
// legitimate result, not an error: Success=false with the winner's identity.
type ClaimResult struct {
	Success   bool
	WorkItem  *domain.WorkItem
	ClaimedBy string
	ClaimedAt *time.Time
}

// CreateWorkItemInput describes a new queue entry.
type CreateWorkItemInput struct {
	ID            string
	Status        domain.WorkItemStatus
	CustomerName  string
	CustomerID    string
	CreatorUserID string
	Metadata      map[string]string
}

// NewAgentService constructs the service.
func NewAgentService(deps AgentDependencies) *AgentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentService{
		items:      deps.WorkItemRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		nowFn:      time.Now,
	}
}

// CreateWorkItem registers a new work item, defaulting to Unassigned, and
// announces it to connected agents.
func (s *AgentService) CreateWorkItem(ctx context.Context, input CreateWorkItemInput) (*domain.WorkItem, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, apperrors.NewValidationError("id is required", nil)
	}
	status := input.Status
	if status == "" {
		status = domain.StatusUnassigned
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}

	item := &domain.WorkItem{
		ID:            id,
		Status:        status,
		CustomerName:  strings.TrimSpace(input.CustomerName),
		CustomerID:    input.CustomerID,
		CreatorUserID: input.CreatorUserID,
		Metadata:      input.Metadata,
	}
	if err := s.items.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, apperrors.NewConflict("work item already exists", map[string]any{"threadId": id})
		}
		return nil, err
	}

	if item.Status == domain.StatusUnassigned {
		s.publish(ctx, events.Event{
			Type:     events.EventNewChatRequest,
			ThreadID: item.ID,
			Payload:  events.NewChatRequestPayload{WorkItem: events.SnapshotOf(item)},
		})
	}
	return item, nil
}

// ClaimWorkItem attempts to take exclusive ownership of an unassigned item.
// Exactly one of any set of concurrent claims succeeds; the rest learn who
// won. The claimed event is published only after the store confirms the write.
func (s *AgentService) ClaimWorkItem(ctx context.Context, threadID, agentID, agentName string) (*ClaimResult, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, apperrors.NewValidationError("threadId is required", nil)
	}
	if strings.TrimSpace(agentID) == "" || strings.TrimSpace(agentName) == "" {
		return nil, apperrors.NewValidationError("agentId and agentName are required", nil)
	}

	outcome, err := s.items.Claim(ctx, threadID, agentID, agentName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("work item", map[string]any{"threadId": threadID})
		}
		return nil, err
	}

	if !outcome.Claimed {
		return &ClaimResult{
			Success:   false,
			WorkItem:  outcome.Item,
			ClaimedBy: outcome.ClaimedBy,
			ClaimedAt: outcome.ClaimedAt,
		}, nil
	}

	s.recordHistory(ctx, threadID, domain.ChangeTypeAssignee, &agentID,
		map[string]any{"assignedAgentId": nil},
		map[string]any{"assignedAgentId": agentID, "assignedAgentName": agentName})

	s.publish(ctx, events.Event{
		Type:     events.EventChatClaimed,
		ThreadID: threadID,
		Payload: events.ChatClaimedPayload{
			ThreadID:  threadID,
			AgentID:   agentID,
			AgentName: agentName,
		},
	})
	return &ClaimResult{Success: true, WorkItem: outcome.Item}, nil
}

// AssignAgent is the simple assignment path used by the escalation flow. It is
// guarded against racing the queue UI: an Unassigned item goes through the
// atomic claim, an item already held by the same agent is a no-op, and an item
// held by someone else is a conflict.
func (s *AgentService) AssignAgent(ctx context.Context, threadID, agentID, agentName string) (*domain.WorkItem, error) {
	if strings.TrimSpace(agentID) == "" || strings.TrimSpace(agentName) == "" {
		return nil, apperrors.NewValidationError("agentId and agentName are required", nil)
	}
	result, err := s.ClaimWorkItem(ctx, threadID, agentID, agentName)
	if err != nil {
		return nil, err
	}
	if result.Success {
		return result.WorkItem, nil
	}
	if result.WorkItem != nil && result.WorkItem.AssignedAgentID != nil && *result.WorkItem.AssignedAgentID == agentID {
		return result.WorkItem, nil
	}
	return nil, apperrors.NewConflict("work item already assigned", map[string]any{
		"threadId":  threadID,
		"claimedBy": result.ClaimedBy,
	})
}

// GetUnassignedWorkItems returns the open queue, oldest-waiting customer
// first. The snapshot is advisory; the claim re-validates atomically.
func (s *AgentService) GetUnassignedWorkItems(ctx context.Context) ([]domain.WorkItem, error) {
	status := domain.StatusUnassigned
	items, err := s.items.List(ctx, repository.ListFilter{Status: &status})
	if err != nil {
		return nil, err
	}
	sortByCreatedAt(items)
	return items, nil
}

// GetWorkItemsByAgentID returns items assigned to the agent, optionally
// filtered by status.
func (s *AgentService) GetWorkItemsByAgentID(ctx context.Context, agentID string, status *domain.WorkItemStatus) ([]domain.WorkItem, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, apperrors.NewValidationError("agentId is required", nil)
	}
	if status != nil && !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *status})
	}
	items, err := s.items.List(ctx, repository.ListFilter{AgentID: &agentID, Status: status})
	if err != nil {
		return nil, err
	}
	sortByCreatedAt(items)
	return items, nil
}

// GetWorkItems lists items by status, or everything when status is nil.
func (s *AgentService) GetWorkItems(ctx context.Context, status *domain.WorkItemStatus) ([]domain.WorkItem, error) {
	if status != nil && !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *status})
	}
	items, err := s.items.List(ctx, repository.ListFilter{Status: status})
	if err != nil {
		return nil, err
	}
	sortByCreatedAt(items)
	return items, nil
}

// GetWorkItem fetches a single item.
func (s *AgentService) GetWorkItem(ctx context.Context, threadID string) (*domain.WorkItem, error) {
	item, err := s.items.Get(ctx, threadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("work item", map[string]any{"threadId": threadID})
		}
		return nil, err
	}
	return item, nil
}

// UpdateWorkItem applies a forward-only status transition. Backward moves and
// transitions out of terminal states are rejected.
func (s *AgentService) UpdateWorkItem(ctx context.Context, threadID string, newStatus domain.WorkItemStatus) (*domain.WorkItem, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}
	current, err := s.GetWorkItem(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(current.Status, newStatus) {
		return nil, apperrors.NewValidationError("invalid status transition", map[string]any{
			"from": current.Status,
			"to":   newStatus,
		})
	}
	updated, err := s.items.UpdateStatus(ctx, threadID, newStatus)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("work item", map[string]any{"threadId": threadID})
		}
		return nil, err
	}
	s.recordHistory(ctx, threadID, domain.ChangeTypeStatus, nil,
		map[string]any{"status": current.Status},
		map[string]any{"status": newStatus})
	return updated, nil
}

// UpdateWorkItemMetadata merges the given keys into the item's metadata map,
// independent of status. Used to associate meeting links and similar context.
func (s *AgentService) UpdateWorkItemMetadata(ctx context.Context, threadID string, metadata map[string]string) (*domain.WorkItem, error) {
	if len(metadata) == 0 {
		return nil, apperrors.NewValidationError("metadata is required", nil)
	}
	updated, err := s.items.UpdateMetadata(ctx, threadID, metadata)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("work item", map[string]any{"threadId": threadID})
		}
		return nil, err
	}
	s.recordHistory(ctx, threadID, domain.ChangeTypeMetadata, nil, nil,
		map[string]any{"metadata": metadata})
	return updated, nil
}

// CancelWorkItem marks the item Cancelled and announces the removal. The
// caller's intent is "this item should no longer be live", so a missing item
// reports removed=false without an error.
func (s *AgentService) CancelWorkItem(ctx context.Context, threadID string) (bool, error) {
	current, err := s.items.Get(ctx, threadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if current.Status == domain.StatusResolved {
		return false, apperrors.NewValidationError("resolved work items cannot be cancelled", map[string]any{
			"threadId": threadID,
		})
	}
	if current.Status == domain.StatusCancelled {
		return false, nil
	}

	removed, err := s.items.Cancel(ctx, threadID)
	if err != nil {
		return false, err
	}
	if removed {
		s.recordHistory(ctx, threadID, domain.ChangeTypeStatus, nil,
			map[string]any{"status": current.Status},
			map[string]any{"status": domain.StatusCancelled})
		s.publish(ctx, events.Event{
			Type:     events.EventWorkItemCancelled,
			ThreadID: threadID,
			Payload:  events.WorkItemCancelledPayload{ThreadID: threadID},
		})
	}
	return removed, nil
}

// PurgeWorkItem permanently deletes the record. Distinct from cancellation,
// which preserves the row for audit.
func (s *AgentService) PurgeWorkItem(ctx context.Context, threadID string) (bool, error) {
	return s.items.Delete(ctx, threadID)
}

// GetWorkItemHistory returns the audit trail for a thread.
func (s *AgentService) GetWorkItemHistory(ctx context.Context, threadID string, limit int) ([]domain.WorkItemHistory, error) {
	if s.history == nil {
		return []domain.WorkItemHistory{}, nil
	}
	if _, err := s.GetWorkItem(ctx, threadID); err != nil {
		return nil, err
	}
	return s.history.ListByWorkItem(ctx, threadID, limit)
}

// Now exposes the service clock, used by handlers for derived fields.
func (s *AgentService) Now() time.Time {
	return s.nowFn()
}

func (s *AgentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.nowFn()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("event_type", string(event.Type)),
			zap.String("thread_id", event.ThreadID),
			zap.Error(err))
	}
}

func (s *AgentService) recordHistory(ctx context.Context, threadID string, changeType domain.HistoryChangeType, actorID *string, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	entry := &domain.WorkItemHistory{
		WorkItemID: threadID,
		ChangeType: changeType,
		ActorID:    actorID,
		OldValue:   oldValue,
		NewValue:   newValue,
	}
	if err := s.history.Record(ctx, entry); err != nil {
		s.logger.Warn("history record failed",
			zap.String("thread_id", threadID),
			zap.String("change_type", string(changeType)),
			zap.Error(err))
	}
}

func sortByCreatedAt(items []domain.WorkItem) {
	// Oldest first: FIFO fairness for agents scanning the queue.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
