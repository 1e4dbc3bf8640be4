package notify

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/clickwise/commission-svc/internal/models"
	"github.com/clickwise/commission-svc/internal/rabbitmq"
)

const (
	routingKeyEarned   = "commission.earned"
	routingKeyReversed = "commission.reversed"
)

// EarnedPayload is published when a commission is created.
type EarnedPayload struct {
	CommissionID   string    `json:"commission_id"`
	PartnerID      string    `json:"partner_id"`
	WorkspaceID    string    `json:"workspace_id"`
	SaleID         string    `json:"sale_id"`
	RewardAmount   int64     `json:"reward_amount"`
	Currency       string    `json:"currency"`
	RecurringMonth int       `json:"recurring_month,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// ReversedPayload is published when a sale's commissions are clawed back.
type ReversedPayload struct {
	SaleID     string    `json:"sale_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier publishes commission lifecycle events to a topic exchange.
// Publishing is fire and forget: failures are logged and never affect
// the commission state that triggered them.
type Notifier struct {
	conn     *rabbitmq.Connection
	exchange string
	logger   *zap.Logger
}

func NewNotifier(conn *rabbitmq.Connection, exchange string, logger *zap.Logger) *Notifier {
	return &Notifier{
		conn:     conn,
		exchange: exchange,
		logger:   logger,
	}
}

func (n *Notifier) CommissionEarned(c *models.Commission) {
	n.publish(routingKeyEarned, EarnedPayload{
		CommissionID:   c.ID,
		PartnerID:      c.PartnerID,
		WorkspaceID:    c.WorkspaceID,
		SaleID:         c.SaleID,
		RewardAmount:   c.RewardAmount,
		Currency:       c.Currency,
		RecurringMonth: c.RecurringMonth,
		OccurredAt:     time.Now().UTC(),
	})
}

func (n *Notifier) CommissionReversed(saleID, reason string) {
	n.publish(routingKeyReversed, ReversedPayload{
		SaleID:     saleID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
}

func (n *Notifier) publish(routingKey string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("Failed to marshal notification payload",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		return
	}

	if err := n.conn.PublishMessage(n.exchange, routingKey, body); err != nil {
		n.logger.Error("Failed to publish notification",
			zap.String("exchange", n.exchange),
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		return
	}

	n.logger.Debug("Notification published",
		zap.String("routing_key", routingKey),
	)
}
