package attribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/clickwise/commission-svc/internal/models"
)

// GormCustomerStore backs CustomerStore with the relational store.
type GormCustomerStore struct {
	db *gorm.DB
}

func NewGormCustomerStore(db *gorm.DB) *GormCustomerStore {
	return &GormCustomerStore{db: db}
}

// Find looks up a customer by external id first, then by email. A missing
// customer is a nil result, not an error.
func (s *GormCustomerStore) Find(ctx context.Context, workspaceID, externalID, email string) (*models.Customer, error) {
	var customer models.Customer

	if externalID != "" {
		err := s.db.WithContext(ctx).
			Where("workspace_id = ? AND external_id = ?", workspaceID, externalID).
			First(&customer).Error
		if err == nil {
			return &customer, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to query customer by external id: %w", err)
		}
	}

	if email != "" {
		err := s.db.WithContext(ctx).
			Where("workspace_id = ? AND email = ?", workspaceID, email).
			First(&customer).Error
		if err == nil {
			return &customer, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to query customer by email: %w", err)
		}
	}

	return nil, nil
}

// SaveClickID records the click id on a customer that did not have one.
func (s *GormCustomerStore) SaveClickID(ctx context.Context, customerID, clickID string) error {
	return s.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ? AND click_id IS NULL", customerID).
		Updates(map[string]interface{}{
			"click_id":   clickID,
			"updated_at": time.Now().UTC(),
		}).Error
}

// GormLinkRegistry backs LinkRegistry with the relational store.
type GormLinkRegistry struct {
	db *gorm.DB
}

func NewGormLinkRegistry(db *gorm.DB) *GormLinkRegistry {
	return &GormLinkRegistry{db: db}
}

// PartnerForLink prefers the enrollment's owning user over the link's
// direct affiliate. An unowned link resolves to the empty string.
func (s *GormLinkRegistry) PartnerForLink(ctx context.Context, linkID string) (string, error) {
	var link models.AffiliateLink
	err := s.db.WithContext(ctx).Where("id = ?", linkID).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load link %s: %w", linkID, err)
	}

	if link.EnrollmentID != nil {
		var enrollment models.MissionEnrollment
		err := s.db.WithContext(ctx).Where("id = ?", *link.EnrollmentID).First(&enrollment).Error
		if err == nil {
			return enrollment.UserID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("failed to load enrollment for link %s: %w", linkID, err)
		}
	}

	if link.AffiliateID != nil {
		return *link.AffiliateID, nil
	}
	return "", nil
}
