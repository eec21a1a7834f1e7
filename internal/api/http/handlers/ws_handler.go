package handlers

import (
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chat-support-backend/internal/ws"
)

// WSHandler upgrades agent connections and attaches them to the hub.
type WSHandler struct {
	hub *ws.AgentHub
}

// NewWSHandler constructs handler.
func NewWSHandler(hub *ws.AgentHub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Upgrade gates the route so only websocket upgrade requests reach the
// connection handler.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if strings.TrimSpace(c.Query("agentId")) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "agentId query parameter required")
	}
	return c.Next()
}

// Handle serves a connected agent until it disconnects. Missed events are not
// replayed; clients reconcile through the queue endpoints after reconnecting.
func (h *WSHandler) Handle() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		agentID := conn.Query("agentId")
		client := ws.NewAgentClient(agentID, conn)
		h.hub.Register(client)
		defer h.hub.Unregister(client)

		go client.WritePump()
		client.ReadPump()
	})
}
