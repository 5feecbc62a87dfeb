package handlers

import (
	"log/slog"

	"fx-client-portal/ledger"
	"fx-client-portal/middleware"
	"fx-client-portal/services"

	"github.com/gofiber/fiber/v2"
)

type AdminServices struct {
	Identity    *services.IdentityService
	Clients     *services.ClientAdminService
	Proofs      *services.ProofService
	Settings    *services.SettingsService
	Credentials *services.CredentialService
}

// SetupAdminRoutes mounts the operator console. Every route needs the
// operator role.
func SetupAdminRoutes(app *fiber.App, svc AdminServices, logger *slog.Logger) {
	admin := app.Group("/admin", middleware.SessionAuth(svc.Identity, logger), middleware.OperatorOnly(logger))

	admin.Get("/overview", func(c *fiber.Ctx) error {
		o, err := svc.Clients.Overview(c.UserContext())
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(o)
	})

	// 👥 Clients
	admin.Get("/clients", func(c *fiber.Ctx) error {
		rows, err := svc.Clients.List(c.UserContext(), ledger.ActivationStatus(c.Query("activation")))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(rows)
	})

	admin.Get("/clients/:id", func(c *fiber.Ctx) error {
		client, err := svc.Clients.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(client)
	})

	admin.Patch("/clients/:id", func(c *fiber.Ctx) error {
		var patch services.ClientPatch
		if err := c.BodyParser(&patch); err != nil {
			return badRequest(c, "Invalid request body")
		}
		client, err := svc.Clients.Update(c.UserContext(), c.Params("id"), patch)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(client)
	})

	admin.Delete("/clients/:id", func(c *fiber.Ctx) error {
		if err := svc.Clients.Delete(c.UserContext(), c.Params("id"), confirmed(c)); err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(fiber.Map{"message": "Client deleted"})
	})

	admin.Post("/clients/:id/new-cycle", func(c *fiber.Ctx) error {
		client, err := svc.Clients.NewCycle(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(client)
	})

	admin.Post("/activations/sunday", func(c *fiber.Ctx) error {
		n, err := svc.Clients.SundayActivation(c.UserContext(), "manual")
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(fiber.Map{"activated": n})
	})

	// 🧾 Payment proofs
	admin.Get("/payment-proofs", func(c *fiber.Ctx) error {
		proofs, err := svc.Proofs.ListAll(c.UserContext(), ledger.ProofStatus(c.Query("status")))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(proofs)
	})

	admin.Post("/payment-proofs/:id/confirm", func(c *fiber.Ctx) error {
		proof, err := svc.Proofs.Confirm(c.UserContext(), middleware.CurrentSession(c), c.Params("id"))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(proof)
	})

	// 🔐 Broker credentials
	admin.Get("/credentials", func(c *fiber.Ctx) error {
		creds, err := svc.Credentials.ListAll(c.UserContext(), c.Query("reveal") == "true")
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(creds)
	})

	admin.Delete("/credentials/:id", func(c *fiber.Ctx) error {
		if err := svc.Credentials.Delete(c.UserContext(), middleware.CurrentSession(c), c.Params("id"), confirmed(c)); err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(fiber.Map{"message": "Credentials deleted"})
	})

	// ⚙️ Payment settings
	admin.Get("/settings", func(c *fiber.Ctx) error {
		view, err := svc.Settings.Get(c.UserContext())
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(view)
	})

	admin.Put("/settings", func(c *fiber.Ctx) error {
		var body struct {
			Values   map[string]string `json:"values"`
			Versions map[string]int64  `json:"versions"`
		}
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, "Invalid request body")
		}
		view, err := svc.Settings.Save(c.UserContext(), body.Values, body.Versions)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(view)
	})
}
