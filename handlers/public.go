package handlers

import (
	"log/slog"

	"fx-client-portal/middleware"
	"fx-client-portal/services"

	"github.com/gofiber/fiber/v2"
)

type credentialsBody struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	AsOperator bool   `json:"as_operator"`
}

func SetupAuthRoutes(app *fiber.App, identity *services.IdentityService, logger *slog.Logger) {
	auth := app.Group("/auth")

	auth.Post("/signup", func(c *fiber.Ctx) error {
		var body credentialsBody
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, "Invalid request body")
		}
		acc, err := identity.SignUp(c.UserContext(), body.Email, body.Password)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user_id": acc.ID, "email": acc.Email})
	})

	auth.Post("/signin", func(c *fiber.Ctx) error {
		var body credentialsBody
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, "Invalid request body")
		}
		token, sess, err := identity.SignIn(c.UserContext(), body.Email, body.Password, body.AsOperator)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(fiber.Map{"token": token, "session": sess})
	})

	secured := auth.Group("", middleware.SessionAuth(identity, logger))
	secured.Post("/signout", func(c *fiber.Ctx) error {
		if err := identity.SignOut(c.UserContext(), middleware.CurrentSession(c)); err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(fiber.Map{"message": "signed out"})
	})
	secured.Get("/session", func(c *fiber.Ctx) error {
		sess := middleware.CurrentSession(c)
		return c.JSON(fiber.Map{"session": sess, "is_operator": sess.IsOperator()})
	})
}

// SetupApplicationRoutes exposes the public onboarding form. A signed-in
// applicant is linked to the new record right away.
func SetupApplicationRoutes(app *fiber.App, onboarding *services.OnboardingService, identity *services.IdentityService, limiter *middleware.RateLimiter, logger *slog.Logger) {
	app.Get("/applications/platforms", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"platforms": services.ApplicationPlatforms})
	})

	app.Post("/applications", middleware.OptionalSession(identity), limiter.Handler(), func(c *fiber.Ctx) error {
		var in services.ApplicationInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "Invalid request body")
		}
		userID := ""
		if sess := middleware.CurrentSession(c); sess != nil {
			userID = sess.UserID
		}
		client, err := onboarding.Apply(c.UserContext(), in, userID)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Application received. We will review it and get back to you on WhatsApp.",
			"client":  client,
		})
	})
}
