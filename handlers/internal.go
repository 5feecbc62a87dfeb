package handlers

import (
	"log/slog"

	"fx-client-portal/metrics"
	"fx-client-portal/middleware"
	"fx-client-portal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// SetupInternalRoutes mounts machine-facing routes: the balance push from
// the broker feed and the metrics scrape.
func SetupInternalRoutes(app *fiber.App, balances *services.BalanceService, serviceToken string, logger *slog.Logger) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	internal := app.Group("/internal", middleware.ServiceToken(serviceToken, logger))
	internal.Post("/balances", func(c *fiber.Ctx) error {
		var body struct {
			Balances []services.BalanceUpdate `json:"balances"`
		}
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := services.ValidateBatch(body.Balances); err != nil {
			return writeError(c, logger, err)
		}
		res, err := balances.ApplyBalances(c.UserContext(), body.Balances, "push")
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(res)
	})
}
