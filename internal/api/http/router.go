package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/suporte-central/pendentes/internal/api/http/handlers"
	"github.com/suporte-central/pendentes/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Events         *handlers.EventsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireUser(), cfg.Users.ChangePassword)

	// Registered ahead of the group so the header-only middleware never
	// runs for the stream.
	if cfg.Events != nil {
		app.Get("/tickets/events", cfg.AuthMiddleware.HandleStream, auth.RequireUser(), cfg.Events.Stream)
	}

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireUser())
	tickets.Get("/options", cfg.Tickets.Options)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/status/toggle", cfg.Tickets.ToggleStatus)
	tickets.Post("/:id/hidden/toggle", cfg.Tickets.ToggleHidden)
	tickets.Put("/:id/hidden", cfg.Tickets.SetHidden)
	tickets.Get("/:id/history", cfg.Tickets.History)
}

// NewApp builds the fiber application with middlewares and routes.
func NewApp(name string, middlewares func(*fiber.App), cfg RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
	})
	if middlewares != nil {
		middlewares(app)
	}
	RegisterRoutes(app, cfg)
	return app
}
