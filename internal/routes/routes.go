package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/clickwise/commission-svc/internal/handlers"
)

// SetupRoutes configures all application routes with dependencies
func SetupRoutes(app *fiber.App, healthHandler *handlers.HealthHandler, webhookHandler *handlers.WebhookHandler, commissionsHandler *handlers.CommissionsHandler) {
	// Health check endpoint
	app.Get("/health", healthHandler.HealthCheck)

	// Payment processor delivery endpoint
	app.Post("/webhooks/:endpointId", webhookHandler.HandleWebhook)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		api.Get("/commissions", commissionsHandler.GetCommissions)
	}
}
