package middleware

import (
	"context"
	"log/slog"
	"strings"

	"fx-client-portal/services"

	"github.com/gofiber/fiber/v2"
)

const sessionKey = "session"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*services.Session, error)
}

func bearerToken(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// SessionAuth requires a valid bearer token and attaches the session.
func SessionAuth(auth Authenticator, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
		}

		sess, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			logger.Debug("🚫 [AUTH] rejected token", "path", c.Path(), "err", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
		}

		c.Locals(sessionKey, sess)
		return c.Next()
	}
}

// OptionalSession attaches a session when a valid token is present and
// lets anonymous requests through.
func OptionalSession(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := bearerToken(c); token != "" {
			if sess, err := auth.Authenticate(c.UserContext(), token); err == nil {
				c.Locals(sessionKey, sess)
			}
		}
		return c.Next()
	}
}

// OperatorOnly must run after SessionAuth or SSEAuth.
func OperatorOnly(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := CurrentSession(c)
		if sess == nil || !sess.IsOperator() {
			if sess != nil {
				logger.Warn("🚫 [AUTH] operator route refused", "user_id", sess.UserID, "path", c.Path())
			}
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": services.ErrNotOperator.Error()})
		}
		return c.Next()
	}
}

// CurrentSession returns the caller's session, or nil when anonymous.
func CurrentSession(c *fiber.Ctx) *services.Session {
	sess, _ := c.Locals(sessionKey).(*services.Session)
	return sess
}
