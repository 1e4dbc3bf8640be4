package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clickwise/commission-svc/internal/attribution"
	"github.com/clickwise/commission-svc/internal/commission"
	"github.com/clickwise/commission-svc/internal/models"
	"github.com/clickwise/commission-svc/internal/revenue"
)

// Ledger is the processed-event idempotency ledger. A reservation that
// cannot be carried through to a finished event must be released, otherwise
// the redelivery of a transiently failed event would be treated as a replay.
type Ledger interface {
	Reserve(ctx context.Context, eventID, eventType, workspaceID string) (alreadyProcessed bool, err error)
	Release(ctx context.Context, eventID string) error
	Finalize(ctx context.Context, eventID string, gross, net, fee int64) error
}

// AttributionResolver maps a sale to the link and partner that drove it.
type AttributionResolver interface {
	Resolve(ctx context.Context, q attribution.Query) (attribution.Result, error)
}

// RevenueDecomposer splits a gross amount into tax, fee, and net.
type RevenueDecomposer interface {
	Decompose(ctx context.Context, gross, reportedTax int64, currency, chargeRef string) revenue.Breakdown
}

// CommissionEngine creates and reverses commission records.
type CommissionEngine interface {
	FindPartnerForSale(ctx context.Context, linkID, explicitPartnerID, workspaceID string) (string, error)
	MissionReward(ctx context.Context, linkID string) (spec string, holdDays int, recurringLimit *int, err error)
	RecurringMonth(ctx context.Context, subscriptionID string) (int, error)
	Create(ctx context.Context, p commission.CreateParams) (*models.Commission, error)
	HandleClawback(ctx context.Context, saleID, reason string) error
}

// Pipeline runs a consumed payment event through attribution, revenue
// decomposition, and commission creation. An error return means the
// delivery should be redelivered; domain outcomes like an unattributed
// sale or a duplicate event complete normally.
type Pipeline struct {
	ledger     Ledger
	resolver   AttributionResolver
	decomposer RevenueDecomposer
	engine     CommissionEngine
	logger     *zap.Logger
}

func NewPipeline(ledger Ledger, resolver AttributionResolver, decomposer RevenueDecomposer, engine CommissionEngine, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		ledger:     ledger,
		resolver:   resolver,
		decomposer: decomposer,
		engine:     engine,
		logger:     logger,
	}
}

// Process handles one task message end to end.
func (p *Pipeline) Process(ctx context.Context, msg *models.TaskMessage) error {
	alreadyProcessed, err := p.ledger.Reserve(ctx, msg.EventID, msg.EventType, msg.WorkspaceID)
	if err != nil {
		return fmt.Errorf("failed to reserve event %s: %w", msg.EventID, err)
	}
	if alreadyProcessed {
		p.logger.Info("Event already processed, skipping",
			zap.String("event_id", msg.EventID),
			zap.String("event_type", msg.EventType),
		)
		return nil
	}

	switch {
	case msg.Sale != nil:
		err = p.processSale(ctx, msg)
	case msg.Refund != nil:
		err = p.processRefund(ctx, msg)
	default:
		p.logger.Warn("Task message carries no payload, acking",
			zap.String("event_id", msg.EventID),
			zap.String("event_type", msg.EventType),
		)
		return nil
	}

	// The worker nacks with requeue on error. Release the reservation so the
	// redelivery retries instead of hitting the replay guard.
	if err != nil {
		if releaseErr := p.ledger.Release(ctx, msg.EventID); releaseErr != nil {
			p.logger.Error("Failed to release event reservation",
				zap.String("event_id", msg.EventID),
				zap.Error(releaseErr),
			)
		}
		return err
	}
	return nil
}

func (p *Pipeline) processSale(ctx context.Context, msg *models.TaskMessage) error {
	sale := msg.Sale

	result, err := p.resolver.Resolve(ctx, attribution.Query{
		ClickID:            sale.ClickID,
		CustomerExternalID: sale.CustomerExternalID,
		CustomerEmail:      sale.CustomerEmail,
		WorkspaceID:        msg.WorkspaceID,
	})
	if err != nil {
		return fmt.Errorf("failed to resolve attribution for sale %s: %w", sale.SaleID, err)
	}

	partnerID, err := p.engine.FindPartnerForSale(ctx, result.LinkID, result.PartnerID, msg.WorkspaceID)
	if err != nil {
		return err
	}

	breakdown := p.decomposer.Decompose(ctx, sale.GrossAmount, sale.ReportedTax, sale.Currency, sale.ChargeRef)

	if partnerID == "" {
		p.logger.Info("Sale is unattributed, no commission created",
			zap.String("event_id", msg.EventID),
			zap.String("sale_id", sale.SaleID),
		)
		return p.finalize(ctx, msg.EventID, breakdown)
	}

	rewardSpec, holdDays, recurringLimit, err := p.engine.MissionReward(ctx, result.LinkID)
	if err != nil {
		return err
	}

	recurringMonth := 0
	if sale.Recurring {
		recurringMonth, err = p.engine.RecurringMonth(ctx, sale.SubscriptionID)
		if err != nil {
			return err
		}
		if recurringLimit != nil && recurringMonth > *recurringLimit {
			p.logger.Info("Recurring commission window exhausted",
				zap.String("sale_id", sale.SaleID),
				zap.String("subscription_id", sale.SubscriptionID),
				zap.Int("recurring_month", recurringMonth),
				zap.Int("recurring_limit", *recurringLimit),
			)
			return p.finalize(ctx, msg.EventID, breakdown)
		}
	}

	_, err = p.engine.Create(ctx, commission.CreateParams{
		PartnerID:      partnerID,
		WorkspaceID:    msg.WorkspaceID,
		SaleID:         sale.SaleID,
		LinkID:         result.LinkID,
		Breakdown:      breakdown,
		RewardSpec:     rewardSpec,
		SubscriptionID: sale.SubscriptionID,
		RecurringMonth: recurringMonth,
		HoldDays:       holdDays,
	})
	if err != nil {
		return err
	}

	return p.finalize(ctx, msg.EventID, breakdown)
}

func (p *Pipeline) processRefund(ctx context.Context, msg *models.TaskMessage) error {
	return p.engine.HandleClawback(ctx, msg.Refund.SaleID, msg.Refund.Reason)
}

func (p *Pipeline) finalize(ctx context.Context, eventID string, b revenue.Breakdown) error {
	if err := p.ledger.Finalize(ctx, eventID, b.Gross, b.Net, b.Fee); err != nil {
		return fmt.Errorf("failed to finalize event %s: %w", eventID, err)
	}
	return nil
}
