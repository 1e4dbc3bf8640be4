package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/clickwise/commission-svc/internal/models"
	"github.com/clickwise/commission-svc/internal/processor"
)

// EndpointStore looks up webhook endpoint configuration. Implementations
// return (nil, nil) for unknown endpoint ids.
type EndpointStore interface {
	FindByID(ctx context.Context, id string) (*models.WebhookEndpoint, error)
}

// TaskPublisher publishes task messages to the broker. Satisfied by
// rabbitmq.Connection.
type TaskPublisher interface {
	PublishMessage(exchange, routingKey string, body []byte) error
}

// WebhookHandler receives payment-processor webhooks, verifies their
// signature, and enqueues them for asynchronous processing. The response
// never waits on attribution or revenue lookups.
type WebhookHandler struct {
	Endpoints  EndpointStore
	Publisher  TaskPublisher
	Exchange   string
	RoutingKey string
	Logger     *zap.Logger
}

func NewWebhookHandler(endpoints EndpointStore, publisher TaskPublisher, exchange, routingKey string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		Endpoints:  endpoints,
		Publisher:  publisher,
		Exchange:   exchange,
		RoutingKey: routingKey,
		Logger:     logger,
	}
}

// HandleWebhook handles POST /webhooks/:endpointId.
//
// Unknown endpoints are acknowledged with 200 so the processor stops
// retrying deliveries for endpoints that were deleted on our side. A
// configured endpoint with a missing secret, or a bad signature, gets 400
// so the processor keeps retrying until configuration is fixed.
func (h *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	endpointID := c.Params("endpointId")

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	endpoint, err := h.Endpoints.FindByID(ctx, endpointID)
	if err != nil {
		h.Logger.Error("Failed to look up webhook endpoint",
			zap.String("endpoint_id", endpointID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
		})
	}

	if endpoint == nil {
		h.Logger.Warn("Webhook received for unknown endpoint",
			zap.String("endpoint_id", endpointID),
		)
		return c.JSON(fiber.Map{"received": true})
	}

	if endpoint.Secret == "" {
		h.Logger.Error("Webhook endpoint has no signing secret",
			zap.String("endpoint_id", endpointID),
		)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "endpoint has no signing secret",
		})
	}

	task, err := processor.ParseEvent(
		c.Body(),
		c.Get("Stripe-Signature"),
		endpoint.Secret,
		endpointID,
		endpoint.WorkspaceID,
	)
	if err != nil {
		if errors.Is(err, processor.ErrInvalidSignature) {
			h.Logger.Warn("Webhook signature verification failed",
				zap.String("endpoint_id", endpointID),
			)
		} else {
			h.Logger.Warn("Failed to parse webhook payload",
				zap.String("endpoint_id", endpointID),
				zap.Error(err),
			)
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid payload",
		})
	}

	// Recognized event type with nothing to process.
	if task == nil {
		return c.JSON(fiber.Map{"received": true})
	}

	body, err := json.Marshal(task)
	if err != nil {
		h.Logger.Error("Failed to marshal task message",
			zap.String("event_id", task.EventID),
			zap.Error(err),
		)
		return c.JSON(fiber.Map{"received": true})
	}

	// Publish failures are absorbed; the response stays 200 either way.
	if err := h.Publisher.PublishMessage(h.Exchange, h.RoutingKey, body); err != nil {
		h.Logger.Error("Failed to publish task message",
			zap.String("event_id", task.EventID),
			zap.String("event_type", task.EventType),
			zap.Error(err),
		)
		return c.JSON(fiber.Map{"received": true})
	}

	h.Logger.Info("Webhook accepted and enqueued",
		zap.String("event_id", task.EventID),
		zap.String("event_type", task.EventType),
		zap.String("endpoint_id", endpointID),
	)
	return c.JSON(fiber.Map{"received": true})
}

// GormEndpointStore reads webhook endpoints from PostgreSQL.
type GormEndpointStore struct {
	db *gorm.DB
}

func NewGormEndpointStore(db *gorm.DB) *GormEndpointStore {
	return &GormEndpointStore{db: db}
}

func (s *GormEndpointStore) FindByID(ctx context.Context, id string) (*models.WebhookEndpoint, error) {
	var endpoint models.WebhookEndpoint
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &endpoint, nil
}
