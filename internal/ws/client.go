package ws

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
)

const sendBufferSize = 64

// AgentClient wraps a single agent websocket connection.
type AgentClient struct {
	agentID string
	conn    *websocket.Conn
	send    chan []byte
	once    sync.Once
}

// NewAgentClient wraps an upgraded connection for the given agent.
func NewAgentClient(agentID string, conn *websocket.Conn) *AgentClient {
	return &AgentClient{
		agentID: agentID,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
	}
}

// AgentID returns the connected agent's identifier.
func (c *AgentClient) AgentID() string {
	return c.agentID
}

// WritePump drains the send queue onto the socket. Runs until the client is
// closed or a write fails; the caller owns unregistration.
func (c *AgentClient) WritePump() {
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// ReadPump consumes (and discards) inbound frames so pings and close frames
// are processed. Returns when the peer disconnects.
func (c *AgentClient) ReadPump() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *AgentClient) enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *AgentClient) close() {
	c.once.Do(func() {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}
