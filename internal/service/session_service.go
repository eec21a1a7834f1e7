package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/chat-support-backend/internal/domain"
	"github.com/spec-kit/chat-support-backend/internal/provider"
	apperrors "github.com/spec-kit/chat-support-backend/pkg/util"
)

// MetadataKeyMeetingJoinURL is where the escalation flow records the meeting
// link on the work item.
const MetadataKeyMeetingJoinURL = "meetingJoinUrl"

const defaultMeetingDuration = 30 * time.Minute

// SessionService glues the external chat and meeting providers to the queue:
// a customer session creates a thread plus its work item, and an escalation
// attaches a meeting to an existing conversation.
type SessionService struct {
	chat     provider.ChatProvider
	meetings provider.MeetingProvider
	agents   *AgentService
	logger   *zap.Logger
}

// NewSessionService constructs the service.
func NewSessionService(chat provider.ChatProvider, meetings provider.MeetingProvider, agents *AgentService, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{chat: chat, meetings: meetings, agents: agents, logger: logger}
}

// StartCustomerSession creates the chat thread and the Unassigned work item
// that puts the customer into the agent queue.
func (s *SessionService) StartCustomerSession(ctx context.Context, customerID, customerName, topic string) (*domain.WorkItem, error) {
	if strings.TrimSpace(customerName) == "" {
		return nil, apperrors.NewValidationError("customerName is required", nil)
	}
	if strings.TrimSpace(topic) == "" {
		topic = "Support conversation with " + customerName
	}

	thread, err := s.chat.CreateThread(ctx, topic)
	if err != nil {
		return nil, err
	}
	if customerID != "" {
		if err := s.chat.AddParticipant(ctx, thread.ID, customerID, customerName); err != nil {
			s.logger.Warn("add participant failed",
				zap.String("thread_id", thread.ID),
				zap.Error(err))
		}
	}

	return s.agents.CreateWorkItem(ctx, CreateWorkItemInput{
		ID:            thread.ID,
		Status:        domain.StatusUnassigned,
		CustomerName:  customerName,
		CustomerID:    customerID,
		CreatorUserID: customerID,
	})
}

// EscalateToMeeting creates a calendar meeting for the conversation and
// stores the join link in the work item's metadata. The meeting is
// independent of the claim protocol.
func (s *SessionService) EscalateToMeeting(ctx context.Context, threadID, subject string, start *time.Time, duration time.Duration) (*provider.Meeting, *domain.WorkItem, error) {
	item, err := s.agents.GetWorkItem(ctx, threadID)
	if err != nil {
		return nil, nil, err
	}
	if item.Status.IsTerminal() {
		return nil, nil, apperrors.NewValidationError("cannot escalate a closed conversation", map[string]any{
			"threadId": threadID,
			"status":   item.Status,
		})
	}

	if strings.TrimSpace(subject) == "" {
		subject = "Support call with " + item.CustomerName
	}
	startAt := time.Now()
	if start != nil {
		startAt = *start
	}
	if duration <= 0 {
		duration = defaultMeetingDuration
	}

	meeting, err := s.meetings.CreateMeeting(ctx, subject, startAt, startAt.Add(duration))
	if err != nil {
		return nil, nil, err
	}

	updated, err := s.agents.UpdateWorkItemMetadata(ctx, threadID, map[string]string{
		MetadataKeyMeetingJoinURL: meeting.JoinURL,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := s.chat.SendMessage(ctx, threadID, item.CustomerID, "A meeting has been scheduled: "+meeting.JoinURL); err != nil {
		s.logger.Warn("meeting link message failed",
			zap.String("thread_id", threadID),
			zap.Error(err))
	}
	return meeting, updated, nil
}
