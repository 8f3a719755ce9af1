package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/SubGate/app/models"
	"github.com/ManuelReschke/SubGate/internal/pkg/billing"
)

// AdminController handles the administrative API: override set and manual
// deactivation.
type AdminController struct {
	engine *billing.Engine
}

// NewAdminController creates a new admin controller.
func NewAdminController(engine *billing.Engine) *AdminController {
	return &AdminController{engine: engine}
}

type overrideRequest struct {
	ExternalID string `json:"external_id" validate:"required,max=64"`
}

// HandleListOverrides returns all override ids.
func (ac *AdminController) HandleListOverrides(c *fiber.Ctx) error {
	ids, err := ac.engine.Overrides.List(c.UserContext())
	if err != nil {
		return ac.handleError(c, "Failed to list overrides", err)
	}
	return c.JSON(fiber.Map{"overrides": ids, "count": len(ids)})
}

// HandleAddOverride grants access regardless of subscription status.
func (ac *AdminController) HandleAddOverride(c *fiber.Ctx) error {
	var req overrideRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "bad_request", "invalid JSON body")
	}
	req.ExternalID = strings.TrimSpace(req.ExternalID)
	if err := validate.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}

	added, err := ac.engine.Overrides.Add(c.UserContext(), req.ExternalID)
	if err != nil {
		return ac.handleError(c, "Failed to add override", err)
	}
	log.Infof("[Admin] override for %s added (new=%v)", req.ExternalID, added)
	status := fiber.StatusOK
	if added {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"external_id": req.ExternalID, "added": added})
}

// HandleRemoveOverride removes one id from the override set.
func (ac *AdminController) HandleRemoveOverride(c *fiber.Ctx) error {
	id := externalIDParam(c)
	if !validExternalID(id) {
		return errorResponse(c, fiber.StatusBadRequest, "bad_request", "invalid external id")
	}
	if err := ac.engine.Overrides.Remove(c.UserContext(), id); err != nil {
		return ac.handleError(c, "Failed to remove override", err)
	}
	log.Infof("[Admin] override for %s removed", id)
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleClearOverrides empties the override set.
func (ac *AdminController) HandleClearOverrides(c *fiber.Ctx) error {
	if err := ac.engine.Overrides.Clear(c.UserContext()); err != nil {
		return ac.handleError(c, "Failed to clear overrides", err)
	}
	log.Info("[Admin] override set cleared")
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleListSubscribers pages through subscriber records.
func (ac *AdminController) HandleListSubscribers(c *fiber.Ctx) error {
	status := models.SubscriptionStatus(strings.TrimSpace(c.Query("status")))
	if status != "" && status != models.SubscriptionActive && status != models.SubscriptionInactive {
		return errorResponse(c, fiber.StatusBadRequest, "bad_request", "status must be active or inactive")
	}
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	ctx := c.UserContext()
	subs, err := ac.engine.Subscribers.List(ctx, status, offset, limit)
	if err != nil {
		return ac.handleError(c, "Failed to list subscribers", err)
	}
	total, err := ac.engine.Subscribers.Count(ctx, status)
	if err != nil {
		return ac.handleError(c, "Failed to count subscribers", err)
	}

	items := make([]fiber.Map, 0, len(subs))
	for i := range subs {
		items = append(items, subscriberResponse(&subs[i]))
	}
	return c.JSON(fiber.Map{"subscribers": items, "total": total, "offset": offset, "limit": limit})
}

// HandleDeactivateSubscriber revokes access manually.
func (ac *AdminController) HandleDeactivateSubscriber(c *fiber.Ctx) error {
	id := externalIDParam(c)
	if !validExternalID(id) {
		return errorResponse(c, fiber.StatusBadRequest, "bad_request", "invalid external id")
	}

	t, err := ac.engine.Reconciler.ManualDeactivate(c.UserContext(), id)
	if err != nil {
		return ac.handleError(c, "Failed to deactivate subscriber", err)
	}
	if t.Skipped == billing.SkipAbsent {
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Subscriber not found")
	}
	return c.JSON(t)
}

// HandleStats returns the cached subscriber overview; ?refresh=1 recomputes it.
func (ac *AdminController) HandleStats(c *fiber.Ctx) error {
	get := ac.engine.Statistics.Get
	if c.QueryBool("refresh", false) {
		get = ac.engine.Statistics.Refresh
	}
	data, err := get(c.UserContext())
	if err != nil {
		return ac.handleError(c, "Failed to load statistics", err)
	}
	return c.JSON(data)
}

func (ac *AdminController) handleError(c *fiber.Ctx, message string, err error) error {
	log.Errorf("[Admin] %s: %v", message, err)
	return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", message)
}
