package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/SubGate/internal/pkg/billing"
	"github.com/ManuelReschke/SubGate/internal/pkg/metrics"
)

const webhookBodyLimit = 1024 * 1024 // 1 MiB

// BillingController serves the Stripe webhook endpoint.
type BillingController struct {
	receiver *billing.Receiver
}

// NewBillingController creates a billing controller around a receiver.
func NewBillingController(receiver *billing.Receiver) *BillingController {
	return &BillingController{receiver: receiver}
}

// HandleStripeWebhook authenticates and processes one Stripe delivery.
// 200 acknowledges, 400 is final, 5xx asks Stripe to redeliver.
func (bc *BillingController) HandleStripeWebhook(c *fiber.Ctx) error {
	start := time.Now()
	eventType := "unknown"
	status := fiber.StatusOK
	defer func() {
		metrics.WebhookRequestsTotal.WithLabelValues(eventType, strconv.Itoa(status)).Inc()
		metrics.WebhookDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
	}()

	if !bc.receiver.Configured() {
		status = fiber.StatusServiceUnavailable
		return errorResponse(c, status, "not_configured", "webhook secret not configured")
	}

	payload := c.Body()
	if len(payload) > webhookBodyLimit {
		status = fiber.StatusRequestEntityTooLarge
		return errorResponse(c, status, "payload_too_large", "webhook body exceeds 1 MiB")
	}
	payload = append([]byte(nil), payload...)

	ack, err := bc.receiver.Receive(c.UserContext(), payload, c.Get(billing.StripeSignatureHeader))
	if err != nil {
		if errors.Is(err, billing.ErrAuthentication) {
			status = fiber.StatusBadRequest
			log.Warnf("[Webhook] rejected delivery from %s: %v", c.IP(), err)
			return errorResponse(c, status, "invalid_signature", "invalid Stripe signature")
		}

		eventType = billing.PeekEventType(payload)
		switch {
		case errors.Is(err, billing.ErrMalformedPayload):
			status = fiber.StatusBadRequest
			return errorResponse(c, status, "invalid_payload", "malformed webhook payload")
		case errors.Is(err, billing.ErrTimeout):
			status = fiber.StatusServiceUnavailable
			log.Errorf("[Webhook] %s timed out: %v", eventType, err)
			return errorResponse(c, status, "timeout", "processing timed out")
		default:
			status = fiber.StatusInternalServerError
			log.Errorf("[Webhook] %s processing failed: %v", eventType, err)
			return errorResponse(c, status, "processing_failed", "processing failed")
		}
	}

	eventType = ack.EventType
	return c.Status(status).JSON(fiber.Map{"received": true, "ack": ack})
}
