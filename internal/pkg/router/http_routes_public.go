package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/SubGate/app/controllers"
	"github.com/ManuelReschke/SubGate/internal/pkg/constants"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get(constants.HealthRoute, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Stripe authenticates with the webhook signature, not an API key
	app.Post(constants.StripeWebhookRoute, controllers.HandleStripeWebhook)
}
