package handlers

import (
	"log/slog"
	"strings"

	"fx-client-portal/ledger"
	"fx-client-portal/middleware"
	"fx-client-portal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type ClientServices struct {
	Identity    *services.IdentityService
	Dashboard   *services.DashboardService
	Proofs      *services.ProofService
	Credentials *services.CredentialService
}

// SetupClientRoutes mounts everything a signed-in client uses under /me.
func SetupClientRoutes(app *fiber.App, svc ClientServices, logger *slog.Logger) {
	me := app.Group("/me", middleware.SessionAuth(svc.Identity, logger))

	me.Get("/dashboard", func(c *fiber.Ctx) error {
		d, err := svc.Dashboard.Dashboard(c.UserContext(), middleware.CurrentSession(c))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(d)
	})

	me.Post("/agreement", func(c *fiber.Ctx) error {
		var body struct {
			Accepted bool `json:"accepted"`
		}
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if !body.Accepted {
			return writeError(c, logger, ledger.NewValidationError("accepted", "You must accept the agreement to continue"))
		}
		client, err := svc.Dashboard.AcceptAgreement(c.UserContext(), middleware.CurrentSession(c))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(client)
	})

	me.Post("/credentials", func(c *fiber.Ctx) error {
		var in services.CredentialInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "Invalid request body")
		}
		cred, err := svc.Credentials.Submit(c.UserContext(), middleware.CurrentSession(c), in)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.Status(fiber.StatusCreated).JSON(cred)
	})

	me.Get("/credentials", func(c *fiber.Ctx) error {
		creds, err := svc.Credentials.ListMine(c.UserContext(), middleware.CurrentSession(c), c.Query("reveal") == "true")
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(creds)
	})

	me.Delete("/credentials/:id", func(c *fiber.Ctx) error {
		if err := svc.Credentials.Delete(c.UserContext(), middleware.CurrentSession(c), c.Params("id"), confirmed(c)); err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(fiber.Map{"message": "Credentials deleted"})
	})

	me.Post("/payment-proofs", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("screenshot")
		if err != nil {
			return writeError(c, logger, ledger.NewValidationError("screenshot", "Attach a screenshot of your payment"))
		}

		up := services.ProofUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
		}
		if raw := strings.TrimSpace(c.FormValue("amount")); raw != "" {
			amount, err := decimal.NewFromString(raw)
			if err != nil {
				return writeError(c, logger, ledger.NewValidationError("amount", "Enter a valid amount"))
			}
			up.Amount = &amount
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, logger, err)
		}
		defer f.Close()
		up.Body = f

		proof, err := svc.Proofs.Submit(c.UserContext(), middleware.CurrentSession(c), up)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.Status(fiber.StatusCreated).JSON(proof)
	})

	me.Get("/payment-proofs", func(c *fiber.Ctx) error {
		proofs, err := svc.Proofs.ListMine(c.UserContext(), middleware.CurrentSession(c))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(proofs)
	})
}
