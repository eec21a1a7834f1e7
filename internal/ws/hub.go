package ws

import (
	"sync"

	"go.uber.org/zap"
)

// AgentHub maintains the set of connected agent clients and broadcasts queue
// events to them. Delivery is best-effort: a client whose send buffer is full
// misses the message and is expected to reconcile via the queue endpoints.
type AgentHub struct {
	mu     sync.RWMutex
	agents map[string]*AgentClient // agentID -> client
	logger *zap.Logger
}

// NewAgentHub creates an empty hub.
func NewAgentHub(logger *zap.Logger) *AgentHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentHub{
		agents: make(map[string]*AgentClient),
		logger: logger,
	}
}

// Register adds a client, replacing any previous connection for the same
// agent id.
func (h *AgentHub) Register(client *AgentClient) {
	h.mu.Lock()
	if existing, ok := h.agents[client.agentID]; ok {
		existing.close()
	}
	h.agents[client.agentID] = client
	total := len(h.agents)
	h.mu.Unlock()

	h.logger.Debug("agent connected",
		zap.String("agent_id", client.agentID),
		zap.Int("total_agents", total))
}

// Unregister removes the client if it is still the registered connection for
// its agent id.
func (h *AgentHub) Unregister(client *AgentClient) {
	h.mu.Lock()
	if existing, ok := h.agents[client.agentID]; ok && existing == client {
		delete(h.agents, client.agentID)
		client.close()
	}
	total := len(h.agents)
	h.mu.Unlock()

	h.logger.Debug("agent disconnected",
		zap.String("agent_id", client.agentID),
		zap.Int("total_agents", total))
}

// Broadcast queues the payload for every connected agent. Clients that cannot
// keep up are skipped; there is no retry and no ordering guarantee across
// clients.
func (h *AgentHub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for agentID, client := range h.agents {
		if !client.enqueue(payload) {
			h.logger.Warn("dropping notification for slow agent client",
				zap.String("agent_id", agentID))
		}
	}
}

// ConnectedAgents reports the number of registered clients.
func (h *AgentHub) ConnectedAgents() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.agents)
}
