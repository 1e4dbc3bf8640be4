package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/clickwise/commission-svc/internal/attribution"
	"github.com/clickwise/commission-svc/internal/database"
	"github.com/clickwise/commission-svc/internal/rabbitmq"
)

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// HealthHandler reports the health of the service's dependencies.
type HealthHandler struct {
	DB    *gorm.DB
	RMQ   *rabbitmq.Connection
	Cache *attribution.ClickCache
}

func NewHealthHandler(db *gorm.DB, rmq *rabbitmq.Connection, cache *attribution.ClickCache) *HealthHandler {
	return &HealthHandler{DB: db, RMQ: rmq, Cache: cache}
}

// HealthCheck handles the health check endpoint
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	services := make(map[string]string)
	status := "healthy"

	// Check database
	if err := database.HealthCheck(ctx, h.DB); err != nil {
		services["database"] = "unhealthy: " + err.Error()
		status = "unhealthy"
	} else {
		services["database"] = "healthy"
	}

	// Check RabbitMQ
	if h.RMQ == nil || !h.RMQ.IsHealthy() {
		services["rabbitmq"] = "unhealthy: connection closed"
		status = "unhealthy"
	} else {
		services["rabbitmq"] = "healthy"
	}

	// Redis is an optimization for click lookups, not a hard dependency.
	if h.Cache != nil {
		if err := h.Cache.Ping(ctx); err != nil {
			services["redis"] = "degraded: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
	}

	if status == "unhealthy" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response)
	}

	return c.JSON(response)
}
