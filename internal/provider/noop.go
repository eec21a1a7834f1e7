package provider

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NoopChatProvider stands in for the real chat transport in development and
// tests. Thread ids are generated locally; messages are logged and dropped.
type NoopChatProvider struct {
	logger *zap.Logger
}

// NewNoopChatProvider constructs the stand-in.
func NewNoopChatProvider(logger *zap.Logger) *NoopChatProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoopChatProvider{logger: logger}
}

func (p *NoopChatProvider) CreateThread(ctx context.Context, topic string) (*ChatThread, error) {
	thread := &ChatThread{ID: uuid.NewString(), Topic: topic}
	p.logger.Debug("noop chat thread created", zap.String("thread_id", thread.ID))
	return thread, nil
}

func (p *NoopChatProvider) AddParticipant(ctx context.Context, threadID, userID, displayName string) error {
	p.logger.Debug("noop participant added",
		zap.String("thread_id", threadID),
		zap.String("user_id", userID))
	return nil
}

func (p *NoopChatProvider) SendMessage(ctx context.Context, threadID, senderID, content string) error {
	p.logger.Debug("noop message sent",
		zap.String("thread_id", threadID),
		zap.String("sender_id", senderID))
	return nil
}

// NoopMeetingProvider fabricates meeting records without a calendar backend.
type NoopMeetingProvider struct {
	logger *zap.Logger
}

// NewNoopMeetingProvider constructs the stand-in.
func NewNoopMeetingProvider(logger *zap.Logger) *NoopMeetingProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoopMeetingProvider{logger: logger}
}

func (p *NoopMeetingProvider) CreateMeeting(ctx context.Context, subject string, start, end time.Time) (*Meeting, error) {
	meeting := &Meeting{
		ID:      uuid.NewString(),
		JoinURL: "https://meet.example.com/" + uuid.NewString(),
		Start:   start,
		End:     end,
	}
	p.logger.Debug("noop meeting created",
		zap.String("meeting_id", meeting.ID),
		zap.String("subject", subject))
	return meeting, nil
}
