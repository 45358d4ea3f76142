package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/roomswap-service/internal/api/http/handlers"
	"github.com/spec-kit/roomswap-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Preferences    *handlers.PreferencesHandler
	Requests       *handlers.RequestsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)
	api.Get("/me", cfg.Users.Me)

	api.Get("/preferences", cfg.Preferences.Query)
	api.Get("/preferences/mine", cfg.Preferences.ListOwn)
	api.Post("/preferences", cfg.Preferences.Post)
	api.Put("/preferences/:id", cfg.Preferences.Update)
	api.Delete("/preferences/:id", cfg.Preferences.Delete)
	api.Post("/preferences/:id/requests", cfg.Preferences.Propose)

	api.Post("/users/:id/requests", cfg.Requests.ProposeDirect)
	api.Get("/requests/incoming", cfg.Requests.Incoming)
	api.Get("/requests/outgoing", cfg.Requests.Outgoing)
	api.Post("/requests/:id/reject", cfg.Requests.Reject)
	api.Post("/requests/:id/commit", cfg.Requests.Commit)
	api.Delete("/requests/:id", cfg.Requests.Cancel)
	api.Get("/history", cfg.Requests.History)
}
