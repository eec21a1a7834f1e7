package dto

import "time"

// StartSessionRequest opens a customer support conversation.
type StartSessionRequest struct {
	CustomerID   string `json:"customerId"`
	CustomerName string `json:"customerName"`
	Topic        string `json:"topic"`
}

// StartSessionResponse returns the created thread and queue entry.
type StartSessionResponse struct {
	ThreadID string           `json:"threadId"`
	WorkItem WorkItemResponse `json:"workItem"`
}

// EscalateMeetingRequest schedules a meeting for an active conversation.
type EscalateMeetingRequest struct {
	Subject      string     `json:"subject"`
	StartTime    *time.Time `json:"startTime,omitempty"`
	DurationMins int        `json:"durationMinutes,omitempty"`
}

// EscalateMeetingResponse reports the created meeting.
type EscalateMeetingResponse struct {
	MeetingID string           `json:"meetingId"`
	JoinURL   string           `json:"joinUrl"`
	WorkItem  WorkItemResponse `json:"workItem"`
}
