package dto

import (
	"time"

	"github.com/spec-kit/chat-support-backend/internal/domain"
)

// CreateWorkItemRequest payload.
type CreateWorkItemRequest struct {
	ID            string                `json:"id"`
	Status        domain.WorkItemStatus `json:"status"`
	CustomerName  string                `json:"customerName"`
	CustomerID    string                `json:"customerId"`
	CreatorUserID string                `json:"creatorUserId"`
	Metadata      map[string]string     `json:"metadata"`
}

// UpdateWorkItemRequest payload.
type UpdateWorkItemRequest struct {
	Status domain.WorkItemStatus `json:"status"`
}

// ClaimWorkItemRequest payload.
type ClaimWorkItemRequest struct {
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
}

// AssignAgentRequest payload for the non-queue assignment path.
type AssignAgentRequest struct {
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
}

// UpdateMetadataRequest payload.
type UpdateMetadataRequest struct {
	Metadata map[string]string `json:"metadata"`
}

// WorkItemResponse is the wire view of a work item. WaitTimeSeconds and
// Priority are derived at response time, never stored.
type WorkItemResponse struct {
	ID                string                  `json:"id"`
	Status            domain.WorkItemStatus   `json:"status"`
	AssignedAgentID   *string                 `json:"assignedAgentId,omitempty"`
	AssignedAgentName *string                 `json:"assignedAgentName,omitempty"`
	ClaimedAt         *time.Time              `json:"claimedAt,omitempty"`
	CustomerName      string                  `json:"customerName"`
	CustomerID        string                  `json:"customerId"`
	CreatorUserID     string                  `json:"creatorUserId"`
	Metadata          map[string]string       `json:"metadata,omitempty"`
	CreatedAt         time.Time               `json:"createdAt"`
	UpdatedAt         time.Time               `json:"updatedAt"`
	WaitTimeSeconds   int64                   `json:"waitTimeSeconds"`
	Priority          domain.WorkItemPriority `json:"priority"`
}

// WorkItemListResponse wraps queue views.
type WorkItemListResponse struct {
	Items      []WorkItemResponse `json:"items"`
	TotalCount int                `json:"totalCount"`
}

// ClaimWorkItemResponse reports a claim outcome. On conflict, ClaimedBy and
// ClaimedAt name the winner so the UI can say who got there first.
type ClaimWorkItemResponse struct {
	Success   bool              `json:"success"`
	WorkItem  *WorkItemResponse `json:"workItem,omitempty"`
	ClaimedBy string            `json:"claimedBy,omitempty"`
	ClaimedAt *time.Time        `json:"claimedAt,omitempty"`
}

// WorkItemHistoryResponse is one audit trail entry.
type WorkItemHistoryResponse struct {
	ID         string                   `json:"id"`
	ChangeType domain.HistoryChangeType `json:"changeType"`
	ActorID    *string                  `json:"actorId,omitempty"`
	OldValue   map[string]any           `json:"oldValue,omitempty"`
	NewValue   map[string]any           `json:"newValue,omitempty"`
	CreatedAt  time.Time                `json:"createdAt"`
}

// FromWorkItem maps a domain item to its wire view relative to now.
func FromWorkItem(item *domain.WorkItem, now time.Time) WorkItemResponse {
	return WorkItemResponse{
		ID:                item.ID,
		Status:            item.Status,
		AssignedAgentID:   item.AssignedAgentID,
		AssignedAgentName: item.AssignedAgentName,
		ClaimedAt:         item.ClaimedAt,
		CustomerName:      item.CustomerName,
		CustomerID:        item.CustomerID,
		CreatorUserID:     item.CreatorUserID,
		Metadata:          item.Metadata,
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
		WaitTimeSeconds:   int64(item.WaitTime(now).Seconds()),
		Priority:          item.Priority(now),
	}
}

// FromWorkItems maps a slice preserving order.
func FromWorkItems(items []domain.WorkItem, now time.Time) []WorkItemResponse {
	out := make([]WorkItemResponse, 0, len(items))
	for i := range items {
		out = append(out, FromWorkItem(&items[i], now))
	}
	return out
}
