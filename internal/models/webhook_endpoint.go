package models

import (
	"time"
)

// WebhookEndpoint is the per-workspace inbound endpoint configuration.
// Each tenant gets its own opaque endpoint id and its own signing secret;
// the workspace a payment belongs to is derived from the endpoint, never
// from the payload.
type WebhookEndpoint struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	WorkspaceID string    `gorm:"not null;index" json:"workspace_id"`
	Secret      string    `json:"-"` // processor signing secret, rotatable
	CreatedAt   time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"default:now()" json:"updated_at"`
}

func (WebhookEndpoint) TableName() string {
	return "webhook_endpoints"
}
