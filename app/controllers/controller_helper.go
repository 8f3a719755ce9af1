package controllers

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/SubGate/app/models"
)

var validate = validator.New()

func errorResponse(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// externalIDParam returns the trimmed :external_id route parameter.
func externalIDParam(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Params("external_id"))
}

func validExternalID(id string) bool {
	return models.ValidExternalID(id)
}

// formatTimePtr renders an optional timestamp as RFC3339 in UTC.
func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
