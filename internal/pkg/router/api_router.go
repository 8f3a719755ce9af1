package router

import (
	"github.com/gofiber/fiber/v2"

	apiv1 "github.com/ManuelReschke/SubGate/internal/api/v1"
	"github.com/ManuelReschke/SubGate/internal/pkg/constants"
	"github.com/ManuelReschke/SubGate/internal/pkg/env"
	"github.com/ManuelReschke/SubGate/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	serviceKey := middleware.APIKey{Role: "service", Secret: env.GetEnv("SERVICE_API_KEY", "")}
	adminKey := middleware.APIKey{Role: "admin", Secret: env.GetEnv("ADMIN_API_KEY", "")}

	api := app.Group(constants.APIRoute, newLimiter())

	// API v1 routes
	v1 := api.Group(constants.APIV1Route)
	apiServer := apiv1.NewAPIServer()
	apiv1.RegisterHandlers(v1, apiServer, apiv1.Middlewares{
		Service: middleware.APIKeyAuthMiddleware(serviceKey, adminKey),
		Admin:   middleware.APIKeyAuthMiddleware(adminKey),
	})
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
