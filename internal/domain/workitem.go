package domain

import "time"

// WorkItemStatus enumerates queue lifecycle states. The names are part of the
// wire contract; agent clients key off them verbatim.
type WorkItemStatus string

const (
	StatusUnassigned WorkItemStatus = "Unassigned"
	StatusClaimed    WorkItemStatus = "Claimed"
	StatusActive     WorkItemStatus = "Active"
	StatusResolved   WorkItemStatus = "Resolved"
	StatusCancelled  WorkItemStatus = "Cancelled"
)

// WorkItemPriority is derived from customer wait time at read time.
type WorkItemPriority string

const (
	PriorityNormal WorkItemPriority = "NORMAL"
	PriorityHigh   WorkItemPriority = "HIGH"
)

// HighPriorityWaitThreshold is the wait time beyond which an unassigned
// request is flagged HIGH.
const HighPriorityWaitThreshold = 5 * time.Minute

// WorkItem is the queue-visible record of a support conversation. ID doubles
// as the chat thread id and never changes.
type WorkItem struct {
	ID                string
	Status            WorkItemStatus
	AssignedAgentID   *string
	AssignedAgentName *string
	ClaimedAt         *time.Time
	CustomerName      string
	CustomerID        string
	CreatorUserID     string
	Metadata          map[string]string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// WaitTime reports how long the customer has been waiting relative to now.
func (w *WorkItem) WaitTime(now time.Time) time.Duration {
	return now.Sub(w.CreatedAt)
}

// Priority derives urgency from wait time; never stored.
func (w *WorkItem) Priority(now time.Time) WorkItemPriority {
	if w.WaitTime(now) > HighPriorityWaitThreshold {
		return PriorityHigh
	}
	return PriorityNormal
}

// IsTerminal reports whether no further transitions leave this status.
func (s WorkItemStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusCancelled
}

// Valid reports whether s is one of the known statuses.
func (s WorkItemStatus) Valid() bool {
	switch s {
	case StatusUnassigned, StatusClaimed, StatusActive, StatusResolved, StatusCancelled:
		return true
	}
	return false
}

var allowedTransitions = map[WorkItemStatus][]WorkItemStatus{
	StatusUnassigned: {StatusClaimed, StatusCancelled},
	StatusClaimed:    {StatusActive, StatusCancelled},
	StatusActive:     {StatusResolved},
	StatusResolved:   {},
	StatusCancelled:  {},
}

// CanTransition reports whether current -> next follows the forward-only
// lifecycle. Terminal states reject everything, including themselves.
func CanTransition(current, next WorkItemStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
