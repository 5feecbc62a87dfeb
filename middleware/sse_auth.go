package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SSEAuth authenticates event-stream requests. Browsers cannot set headers
// on an EventSource, so the token travels as ?token=. A bearer header is
// accepted as well.
func SSEAuth(auth Authenticator, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			token = bearerToken(c)
		}
		if token == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing token in query"})
		}

		sess, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			logger.Info("[SSEAuth] ❌ rejected stream token", "path", c.Path(), "ip", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}

		c.Locals(sessionKey, sess)
		logger.Debug("[SSEAuth] ✅ stream authenticated", "user_id", sess.UserID)
		return c.Next()
	}
}
