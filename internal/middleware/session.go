package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/assignment-portal-api/internal/utils"
)

// SessionHeader carries the admin session id.
const SessionHeader = "X-Session-ID"

const sessionLocalsKey = "session_id"

// SessionAuthenticator reports whether a session id is live.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, sessionID string) bool
}

// RequireSession rejects requests without a live admin session.
func RequireSession(auth SessionAuthenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := SessionID(c)
		if sessionID == "" || !auth.Authenticate(c.UserContext(), sessionID) {
			return utils.Fail(c, fiber.StatusUnauthorized, "Unauthorized - Invalid or expired session", nil)
		}

		c.Locals(sessionLocalsKey, sessionID)
		return c.Next()
	}
}

// SessionID returns the session id from the header or the sessionId query parameter.
func SessionID(c *fiber.Ctx) string {
	if value, ok := c.Locals(sessionLocalsKey).(string); ok && value != "" {
		return value
	}
	if header := strings.TrimSpace(c.Get(SessionHeader)); header != "" {
		return header
	}
	return strings.TrimSpace(c.Query("sessionId"))
}
