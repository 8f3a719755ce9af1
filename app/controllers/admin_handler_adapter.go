package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/SubGate/internal/pkg/billing"
)

// Global controller instances
var (
	billingController    *BillingController
	subscriberController *SubscriberController
	adminController      *AdminController
)

// InitializeControllers initializes the global controllers with the engine
func InitializeControllers(engine *billing.Engine) {
	billingController = NewBillingController(engine.Receiver)
	subscriberController = NewSubscriberController(engine)
	adminController = NewAdminController(engine)
}

func ensureControllers() {
	if adminController == nil {
		InitializeControllers(billing.GetEngine())
	}
}

// Adapter functions used by the router

// HandleStripeWebhook - Adapter for the Stripe webhook
func HandleStripeWebhook(c *fiber.Ctx) error {
	ensureControllers()
	return billingController.HandleStripeWebhook(c)
}

// HandleGetAccess - Adapter for access checks
func HandleGetAccess(c *fiber.Ctx) error {
	ensureControllers()
	return subscriberController.HandleGetAccess(c)
}

// HandleEnsureSubscriber - Adapter for lazy registration
func HandleEnsureSubscriber(c *fiber.Ctx) error {
	ensureControllers()
	return subscriberController.HandleEnsureSubscriber(c)
}

// HandleGetSubscriber - Adapter for subscriber lookup
func HandleGetSubscriber(c *fiber.Ctx) error {
	ensureControllers()
	return subscriberController.HandleGetSubscriber(c)
}

// HandleCreateCheckout - Adapter for checkout creation
func HandleCreateCheckout(c *fiber.Ctx) error {
	ensureControllers()
	return subscriberController.HandleCreateCheckout(c)
}

// HandleAdminListOverrides - Adapter for override listing
func HandleAdminListOverrides(c *fiber.Ctx) error {
	ensureControllers()
	return adminController.HandleListOverrides(c)
}

// HandleAdminAddOverride - Adapter for adding an override
func HandleAdminAddOverride(c *fiber.Ctx) error {
	ensureControllers()
	return adminController.HandleAddOverride(c)
}

// HandleAdminRemoveOverride - Adapter for removing an override
func HandleAdminRemoveOverride(c *fiber.Ctx) error {
	ensureControllers()
	return adminController.HandleRemoveOverride(c)
}

// HandleAdminClearOverrides - Adapter for clearing the override set
func HandleAdminClearOverrides(c *fiber.Ctx) error {
	ensureControllers()
	return adminController.HandleClearOverrides(c)
}

// HandleAdminListSubscribers - Adapter for subscriber listing
func HandleAdminListSubscribers(c *fiber.Ctx) error {
	ensureControllers()
	return adminController.HandleListSubscribers(c)
}

// HandleAdminDeactivateSubscriber - Adapter for manual deactivation
func HandleAdminDeactivateSubscriber(c *fiber.Ctx) error {
	ensureControllers()
	return adminController.HandleDeactivateSubscriber(c)
}

// HandleAdminStats - Adapter for subscriber statistics
func HandleAdminStats(c *fiber.Ctx) error {
	ensureControllers()
	return adminController.HandleStats(c)
}
