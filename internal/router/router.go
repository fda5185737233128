package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/acadops/assignment-api/internal/config"
	"github.com/acadops/assignment-api/internal/handler"
	"github.com/acadops/assignment-api/internal/middleware"
	"github.com/acadops/assignment-api/internal/observability"
	"github.com/acadops/assignment-api/internal/validation"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler *handler.AssignmentHandler
	LedgerHandler     *handler.LedgerHandler
	ScalingHandler    *handler.ScalingHandler
	ExtensionHandler  *handler.ExtensionHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	protected := api.Group("", jwtMiddleware)
	protected.Use(middleware.RateLimit("assignments", cfg.RateLimitMax, cfg.RateLimitWindow))

	assignments := protected.Group("/assignments")

	// Route-edge gates for the privileged operations, consulted before the
	// handlers run. The services re-check the same capability table.
	assignments.Delete("/:id", middleware.RequireOperation(validation.OpDelete))
	assignments.Post("/:id/publish", middleware.RequireOperation(validation.OpPublish))
	assignments.Post("/:id/archive", middleware.RequireOperation(validation.OpArchive))
	assignments.Post("/:id/deactivate", middleware.RequireOperation(validation.OpDeactivate))
	assignments.Post("/:id/rollback", middleware.RequireOperation(validation.OpRollback))
	assignments.Post("/:id/extensions/:extensionID/decision", middleware.RequireOperation(validation.OpDecideExtension))

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(assignments)
	}
	if deps.LedgerHandler != nil {
		audit := protected.Group("/audit")
		deps.LedgerHandler.Register(audit, assignments)
	}
	if deps.ExtensionHandler != nil {
		deps.ExtensionHandler.Register(assignments)
	}
	if deps.ScalingHandler != nil {
		offerings := protected.Group("/offerings")
		deps.ScalingHandler.Register(offerings)
	}
}
