package middleware

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ServiceToken guards machine-to-machine routes such as the balance push.
// The token may come as X-Service-Token or as a bearer token.
func ServiceToken(expected string, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Get("X-Service-Token"))
		if token == "" {
			token = bearerToken(c)
		}
		if token == "" {
			logger.Warn("🚫 [SERVICE_AUTH] missing service token", "path", c.Path(), "ip", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "service token missing"})
		}

		if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			logger.Warn("❌ [SERVICE_AUTH] invalid service token", "path", c.Path(), "ip", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid service token"})
		}
		return c.Next()
	}
}
