package apiv1

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Pong defines model for Pong.
type Pong struct {
	Ping string `json:"ping"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /ping)
	GetPing(c *fiber.Ctx) error
	// (GET /access/{external_id})
	GetAccess(c *fiber.Ctx, externalId string) error
	// (PUT /subscribers/{external_id})
	PutSubscriber(c *fiber.Ctx, externalId string) error
	// (GET /subscribers/{external_id})
	GetSubscriber(c *fiber.Ctx, externalId string) error
	// (POST /checkout)
	PostCheckout(c *fiber.Ctx) error
	// (GET /admin/overrides)
	GetAdminOverrides(c *fiber.Ctx) error
	// (POST /admin/overrides)
	PostAdminOverride(c *fiber.Ctx) error
	// (DELETE /admin/overrides)
	DeleteAdminOverrides(c *fiber.Ctx) error
	// (DELETE /admin/overrides/{external_id})
	DeleteAdminOverride(c *fiber.Ctx, externalId string) error
	// (GET /admin/subscribers)
	GetAdminSubscribers(c *fiber.Ctx) error
	// (GET /admin/stats)
	GetAdminStats(c *fiber.Ctx) error
	// (POST /admin/subscribers/{external_id}/deactivate)
	PostAdminDeactivateSubscriber(c *fiber.Ctx, externalId string) error
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

// Middlewares holds the per-role security middleware.
type Middlewares struct {
	Service fiber.Handler
	Admin   fiber.Handler
}

func pathParam(c *fiber.Ctx, name string) (string, error) {
	v := c.Params(name)
	if v == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid format for parameter %s", name))
	}
	return v, nil
}

// GetPing operation middleware
func (siw *ServerInterfaceWrapper) GetPing(c *fiber.Ctx) error {
	return siw.Handler.GetPing(c)
}

// GetAccess operation middleware
func (siw *ServerInterfaceWrapper) GetAccess(c *fiber.Ctx) error {
	externalId, err := pathParam(c, "external_id")
	if err != nil {
		return err
	}
	return siw.Handler.GetAccess(c, externalId)
}

// PutSubscriber operation middleware
func (siw *ServerInterfaceWrapper) PutSubscriber(c *fiber.Ctx) error {
	externalId, err := pathParam(c, "external_id")
	if err != nil {
		return err
	}
	return siw.Handler.PutSubscriber(c, externalId)
}

// GetSubscriber operation middleware
func (siw *ServerInterfaceWrapper) GetSubscriber(c *fiber.Ctx) error {
	externalId, err := pathParam(c, "external_id")
	if err != nil {
		return err
	}
	return siw.Handler.GetSubscriber(c, externalId)
}

// PostCheckout operation middleware
func (siw *ServerInterfaceWrapper) PostCheckout(c *fiber.Ctx) error {
	return siw.Handler.PostCheckout(c)
}

// GetAdminOverrides operation middleware
func (siw *ServerInterfaceWrapper) GetAdminOverrides(c *fiber.Ctx) error {
	return siw.Handler.GetAdminOverrides(c)
}

// PostAdminOverride operation middleware
func (siw *ServerInterfaceWrapper) PostAdminOverride(c *fiber.Ctx) error {
	return siw.Handler.PostAdminOverride(c)
}

// DeleteAdminOverrides operation middleware
func (siw *ServerInterfaceWrapper) DeleteAdminOverrides(c *fiber.Ctx) error {
	return siw.Handler.DeleteAdminOverrides(c)
}

// DeleteAdminOverride operation middleware
func (siw *ServerInterfaceWrapper) DeleteAdminOverride(c *fiber.Ctx) error {
	externalId, err := pathParam(c, "external_id")
	if err != nil {
		return err
	}
	return siw.Handler.DeleteAdminOverride(c, externalId)
}

// GetAdminSubscribers operation middleware
func (siw *ServerInterfaceWrapper) GetAdminSubscribers(c *fiber.Ctx) error {
	return siw.Handler.GetAdminSubscribers(c)
}

// GetAdminStats operation middleware
func (siw *ServerInterfaceWrapper) GetAdminStats(c *fiber.Ctx) error {
	return siw.Handler.GetAdminStats(c)
}

// PostAdminDeactivateSubscriber operation middleware
func (siw *ServerInterfaceWrapper) PostAdminDeactivateSubscriber(c *fiber.Ctx) error {
	externalId, err := pathParam(c, "external_id")
	if err != nil {
		return err
	}
	return siw.Handler.PostAdminDeactivateSubscriber(c, externalId)
}

// RegisterHandlers creates http.Handler with routing matching the OpenAPI document.
// A nil middleware leaves that group unprotected.
func RegisterHandlers(router fiber.Router, si ServerInterface, mw Middlewares) {
	wrapper := ServerInterfaceWrapper{
		Handler: si,
	}

	router.Get("/ping", wrapper.GetPing)

	service := orPass(mw.Service)
	router.Get("/access/:external_id", service, wrapper.GetAccess)
	router.Put("/subscribers/:external_id", service, wrapper.PutSubscriber)
	router.Get("/subscribers/:external_id", service, wrapper.GetSubscriber)
	router.Post("/checkout", service, wrapper.PostCheckout)

	admin := router.Group("/admin", orPass(mw.Admin))
	admin.Get("/overrides", wrapper.GetAdminOverrides)
	admin.Post("/overrides", wrapper.PostAdminOverride)
	admin.Delete("/overrides", wrapper.DeleteAdminOverrides)
	admin.Delete("/overrides/:external_id", wrapper.DeleteAdminOverride)
	admin.Get("/subscribers", wrapper.GetAdminSubscribers)
	admin.Get("/stats", wrapper.GetAdminStats)
	admin.Post("/subscribers/:external_id/deactivate", wrapper.PostAdminDeactivateSubscriber)
}

func orPass(h fiber.Handler) fiber.Handler {
	if h == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return h
}
