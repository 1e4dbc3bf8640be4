package models

import (
	"time"
)

// Customer recovers attribution for returning buyers. The click context in
// the cache expires long before a subscription stops renewing, so the click
// id observed on the first sale is persisted here and re-read on renewals.
type Customer struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	WorkspaceID string    `gorm:"not null;uniqueIndex:idx_customers_workspace_external" json:"workspace_id"`
	ExternalID  string    `gorm:"not null;uniqueIndex:idx_customers_workspace_external" json:"external_id"`
	Email       string    `gorm:"index" json:"email"`
	ClickID     *string   `json:"click_id"`
	CreatedAt   time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"default:now()" json:"updated_at"`
}

func (Customer) TableName() string {
	return "customers"
}
