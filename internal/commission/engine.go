package commission

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/clickwise/commission-svc/internal/models"
	"github.com/clickwise/commission-svc/internal/revenue"
)

// Store persists commissions. Insert must surface a unique-constraint
// violation on (sale_id, partner_id) as gorm.ErrDuplicatedKey; that
// constraint, not application locking, is what makes creation idempotent
// across instances.
type Store interface {
	Insert(ctx context.Context, c *models.Commission) error
	Reverse(ctx context.Context, saleID, reason string, at time.Time) (int64, error)
	CountForSubscription(ctx context.Context, subscriptionID string) (int64, error)
	MatureDue(ctx context.Context, now time.Time) (int64, error)
}

// Registry reads the link/mission configuration that determines who earns
// what for a sale.
type Registry interface {
	LinkByID(ctx context.Context, linkID string) (*models.AffiliateLink, error)
	EnrollmentByID(ctx context.Context, enrollmentID string) (*models.MissionEnrollment, error)
	MissionByID(ctx context.Context, missionID string) (*models.Mission, error)
}

// Notifier emits fire-and-forget downstream triggers. Implementations must
// never return control-flow-affecting errors; a lost notification does not
// change commission state.
type Notifier interface {
	CommissionEarned(c *models.Commission)
	CommissionReversed(saleID, reason string)
}

// Config carries the workspace-independent defaults.
type Config struct {
	HoldDays           int
	PlatformFeePercent float64
	DefaultReward      string
}

// Engine creates and reverses commission records.
type Engine struct {
	store    Store
	registry Registry
	notifier Notifier
	cfg      Config
	logger   *zap.Logger
}

func NewEngine(store Store, registry Registry, notifier Notifier, cfg Config, logger *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		registry: registry,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateParams is the input for a single commission creation.
type CreateParams struct {
	PartnerID      string
	WorkspaceID    string
	SaleID         string
	LinkID         string
	Breakdown      revenue.Breakdown
	RewardSpec     string
	SubscriptionID string
	RecurringMonth int
	HoldDays       int
}

// Create computes the reward against the net amount and persists a PENDING
// commission. A duplicate (sale_id, partner_id) insert is a logged no-op:
// redelivered events reach this as their second idempotency barrier.
func (e *Engine) Create(ctx context.Context, p CreateParams) (*models.Commission, error) {
	spec := ParseReward(p.RewardSpec)
	rewardAmount := ComputeReward(p.Breakdown.Net, spec)
	platformFee := int64(math.Round(float64(p.Breakdown.Net) * e.cfg.PlatformFeePercent / 100))

	holdDays := p.HoldDays
	if holdDays <= 0 {
		holdDays = e.cfg.HoldDays
	}

	now := time.Now().UTC()
	c := &models.Commission{
		ID:             uuid.NewString(),
		PartnerID:      p.PartnerID,
		WorkspaceID:    p.WorkspaceID,
		SaleID:         p.SaleID,
		GrossAmount:    p.Breakdown.Gross,
		NetAmount:      p.Breakdown.Net,
		TaxAmount:      p.Breakdown.Tax,
		ProcessorFee:   p.Breakdown.Fee,
		PlatformFee:    platformFee,
		RewardAmount:   rewardAmount,
		RewardRate:     p.RewardSpec,
		RewardType:     spec.Type,
		Currency:       p.Breakdown.Currency,
		Status:         models.CommissionPending,
		HoldUntil:      now.AddDate(0, 0, holdDays),
		RecurringMonth: p.RecurringMonth,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if p.LinkID != "" {
		c.LinkID = &p.LinkID
	}
	if p.SubscriptionID != "" {
		c.SubscriptionID = &p.SubscriptionID
	}

	if err := e.store.Insert(ctx, c); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			e.logger.Info("Commission already exists for sale, skipping",
				zap.String("sale_id", p.SaleID),
				zap.String("partner_id", p.PartnerID),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to insert commission: %w", err)
	}

	e.logger.Info("Commission created",
		zap.String("commission_id", c.ID),
		zap.String("partner_id", c.PartnerID),
		zap.String("sale_id", c.SaleID),
		zap.Int64("reward_amount", c.RewardAmount),
		zap.String("currency", c.Currency),
		zap.Int("recurring_month", c.RecurringMonth),
	)

	if e.notifier != nil {
		e.notifier.CommissionEarned(c)
	}
	return c, nil
}

// FindPartnerForSale returns the partner a sale belongs to. An explicitly
// resolved partner id wins over link derivation. Empty means unattributed,
// which is expected for organic sales and produces no commission.
func (e *Engine) FindPartnerForSale(ctx context.Context, linkID, explicitPartnerID, workspaceID string) (string, error) {
	if explicitPartnerID != "" {
		return explicitPartnerID, nil
	}
	if linkID == "" {
		return "", nil
	}

	link, err := e.registry.LinkByID(ctx, linkID)
	if err != nil {
		return "", fmt.Errorf("failed to load link %s: %w", linkID, err)
	}
	if link == nil || link.WorkspaceID != workspaceID {
		return "", nil
	}

	if link.EnrollmentID != nil {
		enrollment, err := e.registry.EnrollmentByID(ctx, *link.EnrollmentID)
		if err != nil {
			return "", fmt.Errorf("failed to load enrollment %s: %w", *link.EnrollmentID, err)
		}
		if enrollment != nil {
			return enrollment.UserID, nil
		}
	}

	if link.AffiliateID != nil {
		return *link.AffiliateID, nil
	}
	return "", nil
}

// MissionReward returns the reward spec, hold days, and recurring-month cap
// for the mission behind a link, falling back to the platform defaults when
// the link has no mission configuration.
func (e *Engine) MissionReward(ctx context.Context, linkID string) (spec string, holdDays int, recurringLimit *int, err error) {
	spec = e.cfg.DefaultReward
	holdDays = e.cfg.HoldDays

	if linkID == "" {
		return spec, holdDays, nil, nil
	}

	link, err := e.registry.LinkByID(ctx, linkID)
	if err != nil {
		return "", 0, nil, fmt.Errorf("failed to load link %s: %w", linkID, err)
	}
	if link == nil || link.EnrollmentID == nil {
		return spec, holdDays, nil, nil
	}

	enrollment, err := e.registry.EnrollmentByID(ctx, *link.EnrollmentID)
	if err != nil {
		return "", 0, nil, fmt.Errorf("failed to load enrollment: %w", err)
	}
	if enrollment == nil {
		return spec, holdDays, nil, nil
	}

	mission, err := e.registry.MissionByID(ctx, enrollment.MissionID)
	if err != nil {
		return "", 0, nil, fmt.Errorf("failed to load mission %s: %w", enrollment.MissionID, err)
	}
	if mission == nil {
		return spec, holdDays, nil, nil
	}

	spec = mission.Reward
	if mission.HoldDays != nil {
		holdDays = *mission.HoldDays
	}
	return spec, holdDays, mission.RecurringDuration, nil
}

// RecurringMonth computes the 1-based renewal ordinal for a subscription by
// counting the commissions already recorded for it.
func (e *Engine) RecurringMonth(ctx context.Context, subscriptionID string) (int, error) {
	if subscriptionID == "" {
		return 0, nil
	}
	count, err := e.store.CountForSubscription(ctx, subscriptionID)
	if err != nil {
		return 0, fmt.Errorf("failed to count subscription commissions: %w", err)
	}
	return int(count) + 1, nil
}

// HandleClawback reverses every non-reversed commission for a sale.
// Idempotent: a redelivered refund, or a refund arriving before the sale's
// commission exists, finds nothing to reverse and that is a valid outcome.
func (e *Engine) HandleClawback(ctx context.Context, saleID, reason string) error {
	reversed, err := e.store.Reverse(ctx, saleID, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to reverse commissions for sale %s: %w", saleID, err)
	}

	if reversed == 0 {
		e.logger.Info("No commission to reverse for sale",
			zap.String("sale_id", saleID),
			zap.String("reason", reason),
		)
		return nil
	}

	e.logger.Info("Commission reversed",
		zap.String("sale_id", saleID),
		zap.String("reason", reason),
		zap.Int64("reversed_count", reversed),
	)

	if e.notifier != nil {
		e.notifier.CommissionReversed(saleID, reason)
	}
	return nil
}
