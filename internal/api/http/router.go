package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chat-support-backend/internal/api/http/handlers"
	"github.com/spec-kit/chat-support-backend/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Agent           *handlers.AgentHandler
	Session         *handlers.SessionHandler
	WS              *handlers.WSHandler
	AgentMiddleware *auth.AgentMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	chatGroup := app.Group("/chat")
	chatGroup.Post("/startSession", cfg.Session.StartSession)
	chatGroup.Post("/escalateToMeeting/:threadId", cfg.Session.EscalateToMeeting)

	agentGroup := app.Group("/agent", cfg.AgentMiddleware.Handle)
	agentGroup.Post("/createAgentWorkItems", cfg.Agent.CreateWorkItem)
	agentGroup.Get("/getAgentWorkItems", cfg.Agent.GetWorkItems)
	agentGroup.Put("/updateAgentWorkItems/:threadId", cfg.Agent.UpdateWorkItem)
	agentGroup.Post("/claimWorkItem/:threadId", cfg.Agent.ClaimWorkItem)
	agentGroup.Post("/assignAgent/:threadId", cfg.Agent.AssignAgent)
	agentGroup.Get("/getUnassignedWorkItems", cfg.Agent.GetUnassignedWorkItems)
	agentGroup.Get("/getMyWorkItems/:agentId", cfg.Agent.GetMyWorkItems)
	agentGroup.Delete("/deleteWorkItem/:threadId", cfg.Agent.DeleteWorkItem)
	agentGroup.Delete("/purgeWorkItem/:threadId", cfg.Agent.PurgeWorkItem)
	agentGroup.Put("/updateWorkItemMetadata/:threadId", cfg.Agent.UpdateMetadata)
	agentGroup.Get("/getWorkItemHistory/:threadId", cfg.Agent.GetWorkItemHistory)

	agentGroup.Get("/ws", cfg.WS.Upgrade, cfg.WS.Handle())
}
