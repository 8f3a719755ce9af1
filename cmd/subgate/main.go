package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuelReschke/SubGate/app/controllers"
	"github.com/ManuelReschke/SubGate/app/repository"
	"github.com/ManuelReschke/SubGate/internal/pkg/billing"
	"github.com/ManuelReschke/SubGate/internal/pkg/cache"
	"github.com/ManuelReschke/SubGate/internal/pkg/constants"
	"github.com/ManuelReschke/SubGate/internal/pkg/database"
	"github.com/ManuelReschke/SubGate/internal/pkg/env"
	"github.com/ManuelReschke/SubGate/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	deps := billing.Dependencies{
		Repositories: repository.GetGlobalRepositories(),
		Redis:        cache.ClientIfAvailable(),
	}
	if env.GetEnv("STRIPE_SECRET_KEY", "") != "" {
		stripeProvider := billing.NewStripeProviderFromEnv()
		deps.Provider = stripeProvider
		deps.SessionCreator = stripeProvider
	}
	engine := billing.NewEngine(billing.ConfigFromEnv(), deps)
	billing.SetupEngine(engine)
	controllers.InitializeControllers(engine)

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/subgate to project root
		"../../../", // Fallback
	}

	// Find the correct base path
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs/v1/openapi.yml"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName: "SubGate",
		// Stripe payloads stay well below this; the webhook handler enforces its own limit
		BodyLimit: 4 * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	metricsAuth := basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "test"),
		},
	})

	// prometheus metrics
	app.Get(constants.MetricsRoute, metricsAuth, adaptor.HTTPHandler(promhttp.Handler()))
	// fiber monitor
	app.Get("/monitor", metricsAuth, monitor.New())

	// SWAGGER / OPENAPI
	if basePath != "" {
		openAPICfg := swagger.Config{
			BasePath: constants.DocsRoute,
			FilePath: basePath + "public/docs/v1/openapi.yml",
			Path:     "v1",
		}
		app.Use(swagger.New(openAPICfg))
	} else {
		log.Println("openapi.yml not found, /docs/api disabled")
	}

	// ROUTER
	router.InstallRouter(app)

	return app
}
