// Package main provides the Dealdesk API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dealdesk/dealdesk/pkg/eventbus"
	"github.com/dealdesk/dealdesk/pkg/persistence"
	"github.com/dealdesk/dealdesk/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.persistence, a.validate, a.eventBus, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Dealdesk API")
	})

	ws := app.Group("/workspaces/:workspaceId")
	ws.Get("/automations", handlers.GetDefinitions)
	ws.Post("/automations", handlers.CreateDefinition)
	ws.Get("/automations/:id", handlers.GetDefinition)
	ws.Patch("/automations/:id", handlers.UpdateDefinition)
	ws.Delete("/automations/:id", handlers.DeleteDefinition)
	ws.Get("/runs", handlers.GetRuns)
	ws.Get("/runs/:id", handlers.GetRun)

	app.Post("/triggers/:name", handlers.FireTrigger)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
