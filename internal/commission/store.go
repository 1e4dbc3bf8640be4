package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/clickwise/commission-svc/internal/models"
)

// GormStore is the PostgreSQL-backed Store. Duplicate detection relies on
// the partial unique index on (sale_id, partner_id) WHERE status <> 'REVERSED'
// together with gorm's TranslateError option.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Insert(ctx context.Context, c *models.Commission) error {
	return s.db.WithContext(ctx).Create(c).Error
}

// Reverse flips every non-reversed commission for the sale to REVERSED and
// returns how many rows changed.
func (s *GormStore) Reverse(ctx context.Context, saleID, reason string, at time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("sale_id = ? AND status <> ?", saleID, models.CommissionReversed).
		Updates(map[string]interface{}{
			"status":          models.CommissionReversed,
			"clawback_reason": reason,
			"clawed_back_at":  at,
			"updated_at":      at,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (s *GormStore) CountForSubscription(ctx context.Context, subscriptionID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("subscription_id = ?", subscriptionID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// MatureDue promotes PENDING commissions whose hold period has elapsed.
func (s *GormStore) MatureDue(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("status = ? AND hold_until <= ?", models.CommissionPending, now).
		Updates(map[string]interface{}{
			"status":     models.CommissionMatured,
			"matured_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// List returns a workspace's commissions newest-first.
func (s *GormStore) List(ctx context.Context, workspaceID string, limit, offset int) ([]models.Commission, error) {
	var commissions []models.Commission
	err := s.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&commissions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}
	return commissions, nil
}

// GormRegistry reads link and mission configuration from PostgreSQL.
type GormRegistry struct {
	db *gorm.DB
}

func NewGormRegistry(db *gorm.DB) *GormRegistry {
	return &GormRegistry{db: db}
}

func (r *GormRegistry) LinkByID(ctx context.Context, linkID string) (*models.AffiliateLink, error) {
	var link models.AffiliateLink
	err := r.db.WithContext(ctx).Where("id = ?", linkID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *GormRegistry) EnrollmentByID(ctx context.Context, enrollmentID string) (*models.MissionEnrollment, error) {
	var enrollment models.MissionEnrollment
	err := r.db.WithContext(ctx).Where("id = ?", enrollmentID).First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *GormRegistry) MissionByID(ctx context.Context, missionID string) (*models.Mission, error) {
	var mission models.Mission
	err := r.db.WithContext(ctx).Where("id = ?", missionID).First(&mission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mission, nil
}
