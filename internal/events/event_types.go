package events

import (
	"time"

	"github.com/spec-kit/chat-support-backend/internal/domain"
)

// EventType enumerates supported event identifiers. The names are stable:
// connected agent clients dispatch on them.
type EventType string

const (
	EventNewChatRequest    EventType = "newChatRequest"
	EventChatClaimed       EventType = "chatClaimed"
	EventWorkItemCancelled EventType = "workItemCancelled"
)

// Event represents a queue mutation emitted by the agent service.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ThreadID  string      `json:"threadId"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewChatRequestPayload announces a freshly created unassigned item.
type NewChatRequestPayload struct {
	WorkItem WorkItemSnapshot `json:"workItem"`
}

// ChatClaimedPayload tells other agents to drop the item from their queue view.
type ChatClaimedPayload struct {
	ThreadID  string `json:"threadId"`
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
}

// WorkItemCancelledPayload tells agents the item left the active lists.
type WorkItemCancelledPayload struct {
	ThreadID string `json:"threadId"`
}

// WorkItemSnapshot is the event-embedded view of a work item.
type WorkItemSnapshot struct {
	ID           string                `json:"id"`
	Status       domain.WorkItemStatus `json:"status"`
	CustomerName string                `json:"customerName"`
	CreatedAt    time.Time             `json:"createdAt"`
}

// SnapshotOf builds the event view from a domain item.
func SnapshotOf(item *domain.WorkItem) WorkItemSnapshot {
	return WorkItemSnapshot{
		ID:           item.ID,
		Status:       item.Status,
		CustomerName: item.CustomerName,
		CreatedAt:    item.CreatedAt,
	}
}
