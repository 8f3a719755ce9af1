package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/ManuelReschke/SubGate/app/controllers"
)

// APIServer implements the ServerInterface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetAccess answers the gate question for one subscriber.
// Controllers read external_id from route params; the wrapper already validated it.
func (s *APIServer) GetAccess(c *fiber.Ctx, externalId string) error {
	return controllers.HandleGetAccess(c)
}

func (s *APIServer) PutSubscriber(c *fiber.Ctx, externalId string) error {
	return controllers.HandleEnsureSubscriber(c)
}

func (s *APIServer) GetSubscriber(c *fiber.Ctx, externalId string) error {
	return controllers.HandleGetSubscriber(c)
}

func (s *APIServer) PostCheckout(c *fiber.Ctx) error {
	return controllers.HandleCreateCheckout(c)
}

// Admin endpoints. Security is enforced via the admin API key middleware attached in the router.

func (s *APIServer) GetAdminOverrides(c *fiber.Ctx) error {
	return controllers.HandleAdminListOverrides(c)
}

func (s *APIServer) PostAdminOverride(c *fiber.Ctx) error {
	return controllers.HandleAdminAddOverride(c)
}

func (s *APIServer) DeleteAdminOverrides(c *fiber.Ctx) error {
	return controllers.HandleAdminClearOverrides(c)
}

func (s *APIServer) DeleteAdminOverride(c *fiber.Ctx, externalId string) error {
	return controllers.HandleAdminRemoveOverride(c)
}

func (s *APIServer) GetAdminSubscribers(c *fiber.Ctx) error {
	return controllers.HandleAdminListSubscribers(c)
}

func (s *APIServer) GetAdminStats(c *fiber.Ctx) error {
	return controllers.HandleAdminStats(c)
}

func (s *APIServer) PostAdminDeactivateSubscriber(c *fiber.Ctx, externalId string) error {
	return controllers.HandleAdminDeactivateSubscriber(c)
}
