package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/hostel-allocation-api/internal/config"
	"github.com/noah-isme/hostel-allocation-api/internal/handler"
	"github.com/noah-isme/hostel-allocation-api/internal/middleware"
	"github.com/noah-isme/hostel-allocation-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	StudentDashboardHandler *handler.StudentDashboardHandler
	StudentRequestHandler   *handler.StudentRequestHandler
	HostelHandler           *handler.HostelHandler
	NotificationHandler     *handler.NotificationHandler
	AdminRequestHandler     *handler.AdminRequestHandler
	AdminActivityHandler    *handler.AdminActivityHandler
	SeedHandler             *handler.SeedHandler
	JWTMiddleware           fiber.Handler
	SubmitRateLimit         fiber.Handler
	HealthProbes            map[string]handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	student := api.Group("/student", jwtMiddleware, middleware.RequireStudent())
	if deps.StudentDashboardHandler != nil {
		deps.StudentDashboardHandler.Register(student)
	}
	if deps.HostelHandler != nil {
		deps.HostelHandler.RegisterStudent(student)
	}
	if deps.StudentRequestHandler != nil {
		if deps.SubmitRateLimit != nil {
			student.Use("/requests", deps.SubmitRateLimit)
		}
		deps.StudentRequestHandler.Register(student)
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(student.Group("/notifications"))
	}

	admin := api.Group("/admin", jwtMiddleware, middleware.RequireStaff())
	if deps.AdminRequestHandler != nil {
		deps.AdminRequestHandler.Register(admin)
	}
	if deps.HostelHandler != nil {
		deps.HostelHandler.RegisterAdmin(admin)
	}
	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin.Group("/activities"))
	}

	// Seeding is guarded by X-Seed-Token rather than a bearer token.
	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/seed"))
	}
}
