package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/SubGate/app/models"
	"github.com/ManuelReschke/SubGate/app/repository"
	"github.com/ManuelReschke/SubGate/internal/pkg/billing"
)

// SubscriberController serves the front-end API: access checks, lazy
// registration and checkout.
type SubscriberController struct {
	engine *billing.Engine
}

// NewSubscriberController creates a subscriber controller.
func NewSubscriberController(engine *billing.Engine) *SubscriberController {
	return &SubscriberController{engine: engine}
}

type checkoutRequest struct {
	ExternalID    string `json:"external_id" validate:"required,max=64"`
	BillingPeriod string `json:"billing_period" validate:"omitempty,max=32"`
}

func subscriberResponse(sub *models.Subscriber) fiber.Map {
	return fiber.Map{
		"external_id":         sub.ExternalID,
		"status":              sub.Status,
		"subscribed_until":    formatTimePtr(sub.SubscribedUntil),
		"billing_period":      sub.BillingPeriod,
		"deactivation_reason": sub.DeactivationReason,
		"created_at":          formatTimePtr(&sub.CreatedAt),
	}
}

// HandleGetAccess answers whether the user may use the gated feature.
func (sc *SubscriberController) HandleGetAccess(c *fiber.Ctx) error {
	id := externalIDParam(c)
	if !validExternalID(id) {
		return errorResponse(c, fiber.StatusBadRequest, "bad_request", "invalid external id")
	}

	d, err := sc.engine.Gate.Check(c.UserContext(), id)
	if err != nil {
		log.Errorf("[Access] check for %s failed: %v", id, err)
		// fail closed but tell the caller the answer is degraded
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"external_id": id,
			"allowed":     false,
			"reason":      "error",
		})
	}
	return c.JSON(fiber.Map{
		"external_id":      d.ExternalID,
		"allowed":          d.Allowed,
		"reason":           d.Reason,
		"status":           d.Status,
		"subscribed_until": formatTimePtr(d.SubscribedUntil),
	})
}

// HandleEnsureSubscriber registers a user on first contact. Existing records
// are returned unchanged.
func (sc *SubscriberController) HandleEnsureSubscriber(c *fiber.Ctx) error {
	id := externalIDParam(c)
	if !validExternalID(id) {
		return errorResponse(c, fiber.StatusBadRequest, "bad_request", "invalid external id")
	}

	sub, created, err := sc.engine.Subscribers.Ensure(c.UserContext(), id)
	if err != nil {
		log.Errorf("[Subscriber] ensure %s failed: %v", id, err)
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to register subscriber")
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(subscriberResponse(sub))
}

// HandleGetSubscriber returns the stored record.
func (sc *SubscriberController) HandleGetSubscriber(c *fiber.Ctx) error {
	id := externalIDParam(c)
	if !validExternalID(id) {
		return errorResponse(c, fiber.StatusBadRequest, "bad_request", "invalid external id")
	}

	sub, err := sc.engine.Subscribers.GetByExternalID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriberNotFound) {
			return errorResponse(c, fiber.StatusNotFound, "not_found", "Subscriber not found")
		}
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load subscriber")
	}
	return c.JSON(subscriberResponse(sub))
}

// HandleCreateCheckout starts a Stripe checkout for the user.
func (sc *SubscriberController) HandleCreateCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "bad_request", "invalid JSON body")
	}
	if err := validate.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}

	session, err := sc.engine.Checkout.Create(c.UserContext(), req.ExternalID, req.BillingPeriod)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrUnknownPeriod):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "bad_request",
				"message": err.Error(),
				"periods": sc.engine.Checkout.Periods(),
			})
		case errors.Is(err, billing.ErrNotConfigured):
			return errorResponse(c, fiber.StatusServiceUnavailable, "not_configured", err.Error())
		default:
			log.Errorf("[Checkout] %s: %v", req.ExternalID, err)
			return errorResponse(c, fiber.StatusBadGateway, "checkout_failed", "Failed to create checkout session")
		}
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}
