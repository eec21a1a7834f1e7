package provider

import (
	"context"
	"time"
)

// ChatThread identifies a conversation thread at the chat provider. The
// thread id doubles as the work-item id.
type ChatThread struct {
	ID    string
	Topic string
}

// ChatProvider is the external chat transport (thread and message handling
// are delegated entirely; this service never implements transport semantics).
type ChatProvider interface {
	CreateThread(ctx context.Context, topic string) (*ChatThread, error)
	AddParticipant(ctx context.Context, threadID, userID, displayName string) error
	SendMessage(ctx context.Context, threadID, senderID, content string) error
}

// Meeting is the result of a calendar escalation.
type Meeting struct {
	ID      string
	JoinURL string
	Start   time.Time
	End     time.Time
}

// MeetingProvider creates calendar meetings for escalated conversations.
type MeetingProvider interface {
	CreateMeeting(ctx context.Context, subject string, start, end time.Time) (*Meeting, error)
}
