package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/chat-support-backend/pkg/util"
)

const principalKey = "auth_agent"

// Principal represents the authenticated agent.
type Principal struct {
	AgentID   string
	AgentName string
}

// AgentMiddleware validates bearer tokens on agent endpoints. When disabled it
// passes requests through untouched, which is the local-development default.
type AgentMiddleware struct {
	tokens  *TokenManager
	enabled bool
}

// NewAgentMiddleware constructs middleware.
func NewAgentMiddleware(tokens *TokenManager, enabled bool) *AgentMiddleware {
	return &AgentMiddleware{tokens: tokens, enabled: enabled}
}

// Handle enforces authentication for protected routes.
func (m *AgentMiddleware) Handle(c *fiber.Ctx) error {
	if !m.enabled {
		return c.Next()
	}

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(principalKey, &Principal{AgentID: claims.AgentID, AgentName: claims.AgentName})
	return c.Next()
}

// PrincipalFromContext returns the authenticated agent, if any.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	principal, ok := c.Locals(principalKey).(*Principal)
	return principal, ok
}
