package worker

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/clickwise/commission-svc/internal/models"
)

// GormLedger is the PostgreSQL-backed processed-event ledger. The unique
// index on event_id is the first idempotency barrier: a redelivered event
// fails the insert and is acked without side effects.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

// Reserve records the event id. It returns alreadyProcessed=true when the
// event was recorded by an earlier delivery.
func (l *GormLedger) Reserve(ctx context.Context, eventID, eventType, workspaceID string) (bool, error) {
	entry := &models.ProcessedEvent{
		EventID:     eventID,
		EventType:   eventType,
		WorkspaceID: workspaceID,
	}
	err := l.db.WithContext(ctx).Create(entry).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// Release removes a reservation whose event could not be fully processed.
// The next delivery of the event then reserves again and retries.
func (l *GormLedger) Release(ctx context.Context, eventID string) error {
	return l.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&models.ProcessedEvent{}).Error
}

// Finalize backfills the monetary breakdown onto the ledger entry once the
// event has been decomposed.
func (l *GormLedger) Finalize(ctx context.Context, eventID string, gross, net, fee int64) error {
	return l.db.WithContext(ctx).
		Model(&models.ProcessedEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"gross_amount":  gross,
			"net_amount":    net,
			"processor_fee": fee,
		}).Error
}
