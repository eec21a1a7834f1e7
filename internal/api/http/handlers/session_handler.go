package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chat-support-backend/internal/api/dto"
	"github.com/spec-kit/chat-support-backend/internal/service"
	apperrors "github.com/spec-kit/chat-support-backend/pkg/util"
)

// SessionHandler serves the customer-facing session endpoints.
type SessionHandler struct {
	sessions *service.SessionService
	agents   *service.AgentService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions *service.SessionService, agents *service.AgentService) *SessionHandler {
	return &SessionHandler{sessions: sessions, agents: agents}
}

// StartSession POST /chat/startSession.
func (h *SessionHandler) StartSession(c *fiber.Ctx) error {
	var req dto.StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	item, err := h.sessions.StartCustomerSession(c.UserContext(), req.CustomerID, req.CustomerName, req.Topic)
	if err != nil {
		return err
	}
	return c.JSON(dto.StartSessionResponse{
		ThreadID: item.ID,
		WorkItem: dto.FromWorkItem(item, h.agents.Now()),
	})
}

// EscalateToMeeting POST /chat/escalateToMeeting/:threadId.
func (h *SessionHandler) EscalateToMeeting(c *fiber.Ctx) error {
	var req dto.EscalateMeetingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	duration := time.Duration(req.DurationMins) * time.Minute
	meeting, item, err := h.sessions.EscalateToMeeting(c.UserContext(), c.Params("threadId"), req.Subject, req.StartTime, duration)
	if err != nil {
		return err
	}
	return c.JSON(dto.EscalateMeetingResponse{
		MeetingID: meeting.ID,
		JoinURL:   meeting.JoinURL,
		WorkItem:  dto.FromWorkItem(item, h.agents.Now()),
	})
}
