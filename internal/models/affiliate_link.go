package models

import (
	"time"
)

// AffiliateLink is the durable click-to-partner mapping. A link belongs
// either directly to an affiliate or to a mission enrollment whose owning
// user is the partner. Read-only from this service's perspective.
type AffiliateLink struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Slug         string    `gorm:"not null;index" json:"slug"`
	WorkspaceID  string    `gorm:"not null;index" json:"workspace_id"`
	AffiliateID  *string   `json:"affiliate_id"`
	EnrollmentID *string   `json:"enrollment_id"`
	CreatedAt    time.Time `gorm:"default:now()" json:"created_at"`
}

func (AffiliateLink) TableName() string {
	return "affiliate_links"
}

// Mission is the reward configuration a link earns against. Reward is a
// display-style spec ("50€", "10%") parsed by the commission engine.
// RecurringDuration caps how many renewal months earn commission; nil
// means lifetime.
type Mission struct {
	ID                string    `gorm:"primaryKey" json:"id"`
	WorkspaceID       string    `gorm:"not null;index" json:"workspace_id"`
	Reward            string    `gorm:"not null" json:"reward"`
	RecurringDuration *int      `json:"recurring_duration"`
	HoldDays          *int      `json:"hold_days"`
	CreatedAt         time.Time `gorm:"default:now()" json:"created_at"`
}

func (Mission) TableName() string {
	return "missions"
}

// MissionEnrollment joins a user to a mission; links created through an
// enrollment attribute their sales to the enrolled user.
type MissionEnrollment struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	MissionID string    `gorm:"not null;index" json:"mission_id"`
	UserID    string    `gorm:"not null;index" json:"user_id"`
	CreatedAt time.Time `gorm:"default:now()" json:"created_at"`
}

func (MissionEnrollment) TableName() string {
	return "mission_enrollments"
}
