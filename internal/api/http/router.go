package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/baraholka/marketbot/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Webhook *handlers.WebhookHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.Webhook != nil {
		app.Post("/telegram/webhook", cfg.Webhook.Receive)
	}
}
