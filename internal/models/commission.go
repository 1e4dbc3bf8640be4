package models

import (
	"time"
)

// CommissionStatus is the lifecycle state of a commission.
// PENDING -> MATURED -> PAID, with REVERSED reachable from any state via
// clawback. Commissions are never deleted; REVERSED preserves the audit
// trail of refunded sales.
type CommissionStatus string

const (
	CommissionPending  CommissionStatus = "PENDING"
	CommissionMatured  CommissionStatus = "MATURED"
	CommissionPaid     CommissionStatus = "PAID"
	CommissionReversed CommissionStatus = "REVERSED"
)

// RewardType distinguishes fixed-amount from percentage rewards.
type RewardType string

const (
	RewardFixed      RewardType = "FIXED"
	RewardPercentage RewardType = "PERCENTAGE"
)

// Commission is the financial record produced for an attributed sale.
// At most one non-reversed commission may exist per (sale_id, partner_id);
// that invariant lives in a partial unique index, so a second insert fails
// at the storage layer no matter how many instances race.
type Commission struct {
	ID             string           `gorm:"primaryKey" json:"id"`
	PartnerID      string           `gorm:"not null;index" json:"partner_id"`
	WorkspaceID    string           `gorm:"not null;index" json:"workspace_id"`
	SaleID         string           `gorm:"not null;index" json:"sale_id"`
	LinkID         *string          `json:"link_id"`
	GrossAmount    int64            `gorm:"not null" json:"gross_amount"`
	NetAmount      int64            `gorm:"not null" json:"net_amount"`
	TaxAmount      int64            `gorm:"not null;default:0" json:"tax_amount"`
	ProcessorFee   int64            `gorm:"not null;default:0" json:"processor_fee"`
	PlatformFee    int64            `gorm:"not null;default:0" json:"platform_fee"`
	RewardAmount   int64            `gorm:"not null" json:"reward_amount"`
	RewardRate     string           `gorm:"not null" json:"reward_rate"`
	RewardType     RewardType       `gorm:"not null" json:"reward_type"`
	Currency       string           `gorm:"not null" json:"currency"`
	Status         CommissionStatus `gorm:"not null;default:'PENDING';index" json:"status"`
	HoldUntil      time.Time        `gorm:"not null" json:"hold_until"`
	SubscriptionID *string          `gorm:"index" json:"subscription_id"`
	RecurringMonth int              `gorm:"not null;default:0" json:"recurring_month"`
	ClawbackReason *string          `json:"clawback_reason"`
	ClawedBackAt   *time.Time       `json:"clawed_back_at"`
	MaturedAt      *time.Time       `json:"matured_at"`
	CreatedAt      time.Time        `gorm:"default:now()" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"default:now()" json:"updated_at"`
}

func (Commission) TableName() string {
	return "commissions"
}
