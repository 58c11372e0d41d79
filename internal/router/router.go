package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/assignment-portal-api/internal/config"
	"github.com/noah-isme/assignment-portal-api/internal/handler"
	"github.com/noah-isme/assignment-portal-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	AssignmentHandler *handler.AdminAssignmentHandler
	StudentHandler    *handler.StudentHandler
	RosterHandler     *handler.RosterHandler
	SystemHandler     *handler.SystemHandler

	AdminGate    fiber.Handler
	StudentGate  fiber.Handler
	PublicGate   fiber.Handler
	SessionGuard fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	passthrough := func(c *fiber.Ctx) error { return c.Next() }
	gate := func(h fiber.Handler) fiber.Handler {
		if h == nil {
			return passthrough
		}
		return h
	}

	app.Get("/metrics", observability.MetricsHandler())

	branded := func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	}

	// Public reads
	public := app.Group(observability.PublicPathPrefix, branded, gate(deps.PublicGate))
	if deps.SystemHandler != nil {
		deps.SystemHandler.RegisterPublic(public)
	}
	if deps.RosterHandler != nil {
		deps.RosterHandler.RegisterPublic(public)
	}

	// Student pipeline
	if deps.StudentHandler != nil {
		student := app.Group(observability.StudentPathPrefix, branded, gate(deps.StudentGate))
		deps.StudentHandler.Register(student)
	}

	// Administrator API. Auth routes are registered before the session guard
	// so they stay reachable without a session.
	admin := app.Group(observability.AdminPathPrefix, branded, gate(deps.AdminGate))
	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(admin)
	}
	admin.Use(gate(deps.SessionGuard))
	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(admin)
	}
	if deps.RosterHandler != nil {
		deps.RosterHandler.RegisterAdmin(admin)
	}
	if deps.SystemHandler != nil {
		deps.SystemHandler.RegisterAdmin(admin)
	}
}
