package domain

import "time"

// HistoryChangeType categorizes audit trail entries.
type HistoryChangeType string

const (
	ChangeTypeStatus   HistoryChangeType = "STATUS"
	ChangeTypeAssignee HistoryChangeType = "ASSIGNEE"
	ChangeTypeMetadata HistoryChangeType = "METADATA"
)

// WorkItemHistory records a single mutation of a work item for audit.
type WorkItemHistory struct {
	ID         string
	WorkItemID string
	ChangeType HistoryChangeType
	ActorID    *string
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
