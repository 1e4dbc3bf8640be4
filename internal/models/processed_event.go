package models

import (
	"time"
)

// ProcessedEvent is the idempotency ledger. One row is inserted per upstream
// event id before any financial side effect runs; the unique index on
// event_id is what collapses concurrent redeliveries, not application locks.
type ProcessedEvent struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID      string    `gorm:"not null;uniqueIndex" json:"event_id"`
	EventType    string    `gorm:"not null" json:"event_type"`
	WorkspaceID  string    `gorm:"not null;index" json:"workspace_id"`
	GrossAmount  int64     `gorm:"not null;default:0" json:"gross_amount"`
	NetAmount    int64     `gorm:"not null;default:0" json:"net_amount"`
	ProcessorFee int64     `gorm:"not null;default:0" json:"processor_fee"`
	CreatedAt    time.Time `gorm:"default:now()" json:"created_at"`
}

func (ProcessedEvent) TableName() string {
	return "processed_events"
}
