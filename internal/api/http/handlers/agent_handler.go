package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chat-support-backend/internal/api/dto"
	"github.com/spec-kit/chat-support-backend/internal/domain"
	"github.com/spec-kit/chat-support-backend/internal/observability"
	"github.com/spec-kit/chat-support-backend/internal/service"
	apperrors "github.com/spec-kit/chat-support-backend/pkg/util"
)

// AgentHandler serves the work-item queue endpoints used by the agent app.
type AgentHandler struct {
	service *service.AgentService
	metrics *observability.Metrics
}

// NewAgentHandler constructs handler.
func NewAgentHandler(agentService *service.AgentService, metrics *observability.Metrics) *AgentHandler {
	return &AgentHandler{service: agentService, metrics: metrics}
}

// CreateWorkItem POST /agent/createAgentWorkItems.
func (h *AgentHandler) CreateWorkItem(c *fiber.Ctx) error {
	var req dto.CreateWorkItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	item, err := h.service.CreateWorkItem(c.UserContext(), service.CreateWorkItemInput{
		ID:            req.ID,
		Status:        req.Status,
		CustomerName:  req.CustomerName,
		CustomerID:    req.CustomerID,
		CreatorUserID: req.CreatorUserID,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.FromWorkItem(item, h.service.Now()))
}

// GetWorkItems GET /agent/getAgentWorkItems?status=.
func (h *AgentHandler) GetWorkItems(c *fiber.Ctx) error {
	status, err := parseStatusQuery(c)
	if err != nil {
		return err
	}
	items, err := h.service.GetWorkItems(c.UserContext(), status)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromWorkItems(items, h.service.Now()))
}

// UpdateWorkItem PUT /agent/updateAgentWorkItems/:threadId.
func (h *AgentHandler) UpdateWorkItem(c *fiber.Ctx) error {
	var req dto.UpdateWorkItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status is required", nil)
	}
	item, err := h.service.UpdateWorkItem(c.UserContext(), c.Params("threadId"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromWorkItem(item, h.service.Now()))
}

// ClaimWorkItem POST /agent/claimWorkItem/:threadId. The only endpoint where
// a 409 is an expected, well-formed outcome rather than a fault.
func (h *AgentHandler) ClaimWorkItem(c *fiber.Ctx) error {
	var req dto.ClaimWorkItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.ClaimWorkItem(c.UserContext(), c.Params("threadId"), req.AgentID, req.AgentName)
	if err != nil {
		return err
	}

	if !result.Success {
		h.metrics.RecordClaimConflict()
		return c.Status(fiber.StatusConflict).JSON(dto.ClaimWorkItemResponse{
			Success:   false,
			ClaimedBy: result.ClaimedBy,
			ClaimedAt: result.ClaimedAt,
		})
	}

	h.metrics.RecordClaimSuccess()
	view := dto.FromWorkItem(result.WorkItem, h.service.Now())
	return c.JSON(dto.ClaimWorkItemResponse{Success: true, WorkItem: &view})
}

// AssignAgent POST /agent/assignAgent/:threadId. Legacy single-writer path
// for the escalation flow; queue claims must use ClaimWorkItem.
func (h *AgentHandler) AssignAgent(c *fiber.Ctx) error {
	var req dto.AssignAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	item, err := h.service.AssignAgent(c.UserContext(), c.Params("threadId"), req.AgentID, req.AgentName)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromWorkItem(item, h.service.Now()))
}

// GetUnassignedWorkItems GET /agent/getUnassignedWorkItems.
func (h *AgentHandler) GetUnassignedWorkItems(c *fiber.Ctx) error {
	items, err := h.service.GetUnassignedWorkItems(c.UserContext())
	if err != nil {
		return err
	}
	views := dto.FromWorkItems(items, h.service.Now())
	return c.JSON(dto.WorkItemListResponse{Items: views, TotalCount: len(views)})
}

// GetMyWorkItems GET /agent/getMyWorkItems/:agentId?status=.
func (h *AgentHandler) GetMyWorkItems(c *fiber.Ctx) error {
	status, err := parseStatusQuery(c)
	if err != nil {
		return err
	}
	items, err := h.service.GetWorkItemsByAgentID(c.UserContext(), c.Params("agentId"), status)
	if err != nil {
		return err
	}
	views := dto.FromWorkItems(items, h.service.Now())
	return c.JSON(dto.WorkItemListResponse{Items: views, TotalCount: len(views)})
}

// DeleteWorkItem DELETE /agent/deleteWorkItem/:threadId. Cancels the item;
// reports success even when it was already gone, since the caller's intent is
// satisfied either way.
func (h *AgentHandler) DeleteWorkItem(c *fiber.Ctx) error {
	removed, err := h.service.CancelWorkItem(c.UserContext(), c.Params("threadId"))
	if err != nil {
		return err
	}
	message := "work item cancelled"
	if !removed {
		message = "work item already removed"
	}
	return c.JSON(fiber.Map{"success": true, "message": message})
}

// PurgeWorkItem DELETE /agent/purgeWorkItem/:threadId. Permanent cleanup,
// distinct from cancellation.
func (h *AgentHandler) PurgeWorkItem(c *fiber.Ctx) error {
	existed, err := h.service.PurgeWorkItem(c.UserContext(), c.Params("threadId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "existed": existed})
}

// UpdateMetadata PUT /agent/updateWorkItemMetadata/:threadId.
func (h *AgentHandler) UpdateMetadata(c *fiber.Ctx) error {
	var req dto.UpdateMetadataRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	item, err := h.service.UpdateWorkItemMetadata(c.UserContext(), c.Params("threadId"), req.Metadata)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromWorkItem(item, h.service.Now()))
}

// GetWorkItemHistory GET /agent/getWorkItemHistory/:threadId.
func (h *AgentHandler) GetWorkItemHistory(c *fiber.Ctx) error {
	entries, err := h.service.GetWorkItemHistory(c.UserContext(), c.Params("threadId"), c.QueryInt("limit", 100))
	if err != nil {
		return err
	}
	views := make([]dto.WorkItemHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		views = append(views, dto.WorkItemHistoryResponse{
			ID:         entry.ID,
			ChangeType: entry.ChangeType,
			ActorID:    entry.ActorID,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"items": views, "totalCount": len(views)})
}

func parseStatusQuery(c *fiber.Ctx) (*domain.WorkItemStatus, error) {
	raw := strings.TrimSpace(c.Query("status"))
	if raw == "" {
		return nil, nil
	}
	status := domain.WorkItemStatus(raw)
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": raw})
	}
	return &status, nil
}
