package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/sms-ticket-bridge/internal/api/http/handlers"
	"github.com/spec-kit/sms-ticket-bridge/internal/auth"
	"github.com/spec-kit/sms-ticket-bridge/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	SMS            *handlers.SMSHandler
	Webhook        *handlers.WebhookHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	sms := app.Group("/sms")
	sms.Post("/incoming", cfg.SMS.Incoming)
	sms.Post("/outgoing", cfg.AuthMiddleware.Handle, cfg.Webhook.Outgoing)
}
