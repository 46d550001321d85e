// Package main provides the flowcanvas API server implementation.
package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dukex/flowcanvas/pkg/agents"
	"github.com/dukex/flowcanvas/pkg/catalog"
	"github.com/dukex/flowcanvas/pkg/eventbus"
	"github.com/dukex/flowcanvas/pkg/otelhelper"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/preview"
	"github.com/dukex/flowcanvas/pkg/services"
	"github.com/dukex/flowcanvas/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	templates   *catalog.Catalog
	agents      agents.Directory
	eventBus    eventbus.EventPublisher
	tracer      trace.Tracer
	renderer    *preview.Renderer
	validate    *validator.Validate
}

type APIOption func(*API)

func WithEventBus(eventBus eventbus.EventPublisher) APIOption {
	return func(a *API) {
		a.eventBus = eventBus
	}
}

func WithTracer(tracer trace.Tracer) APIOption {
	return func(a *API) {
		a.tracer = tracer
	}
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	templates *catalog.Catalog,
	agents agents.Directory,
	opts ...APIOption,
) (*API, error) {
	renderer, err := preview.NewRenderer(templates)
	if err != nil {
		return nil, fmt.Errorf("failed to create preview renderer: %w", err)
	}

	a := &API{
		persistence: persistence,
		logger:      logger,
		templates:   templates,
		agents:      agents,
		tracer:      otelhelper.NoopTracer(),
		renderer:    renderer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

func (a *API) App() *fiber.App {
	serviceOpts := []services.Option{
		services.WithCatalog(a.templates),
		services.WithAgents(a.agents),
		services.WithTracer(a.tracer),
		services.WithLogger(a.logger.With("component", "workflow_service")),
	}

	if a.eventBus != nil {
		serviceOpts = append(serviceOpts, services.WithPublisher(a.eventBus))
	}

	workflowService := services.NewWorkflow(a.persistence, serviceOpts...)

	handlers := web.NewAPIHandlers(workflowService, a.validate, a.templates, a.agents, a.renderer)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowcanvas API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Put("/:id", handlers.SaveWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Get("/:id/preview.png", handlers.GetWorkflowPreview)

	app.Get("/catalog/templates", handlers.GetTemplates)
	app.Get("/agents", handlers.GetAgents)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
