package revenue

import (
	"context"
	"math"

	"go.uber.org/zap"
)

// FeeSource fetches the authoritative processor fee for a charge reference.
type FeeSource interface {
	FeeForCharge(ctx context.Context, ref string) (int64, error)
}

// Breakdown is the monetary decomposition of one payment. All amounts are
// integer minor units in the event's currency. Invariants:
// HT + Tax == Gross and Net == HT - Fee.
type Breakdown struct {
	Gross        int64
	Tax          int64
	HT           int64
	Fee          int64
	Net          int64
	Currency     string
	FeeEstimated bool
}

// Decomposer splits a gross payment into tax, processor fee, and the net
// base commission rewards are computed against.
type Decomposer struct {
	Fees            FeeSource
	FallbackPercent float64
	FallbackFixed   int64
	Logger          *zap.Logger
}

// Decompose computes the breakdown for a payment. The fee lookup is
// best-effort: on failure or absence of a charge reference it falls back to
// the linear estimate and never blocks commission creation.
func (d *Decomposer) Decompose(ctx context.Context, gross, reportedTax int64, currency, chargeRef string) Breakdown {
	tax := reportedTax
	if tax <= 0 {
		tax = EstimateTax(gross, currency)
	}

	ht := gross - tax

	fee, estimated := d.processorFee(ctx, gross, chargeRef)

	return Breakdown{
		Gross:        gross,
		Tax:          tax,
		HT:           ht,
		Fee:          fee,
		Net:          ht - fee,
		Currency:     currency,
		FeeEstimated: estimated,
	}
}

func (d *Decomposer) processorFee(ctx context.Context, gross int64, chargeRef string) (int64, bool) {
	if chargeRef != "" && d.Fees != nil {
		fee, err := d.Fees.FeeForCharge(ctx, chargeRef)
		if err == nil {
			return fee, false
		}
		d.Logger.Warn("Processor fee lookup failed, using fallback estimate",
			zap.String("charge_ref", chargeRef),
			zap.Error(err),
		)
	}
	return d.estimateFee(gross), true
}

// estimateFee is the linear percentage-plus-fixed model used when the
// settlement record is unavailable: floor(gross * percent) + fixed.
func (d *Decomposer) estimateFee(gross int64) int64 {
	if gross <= 0 {
		return 0
	}
	return int64(math.Floor(float64(gross)*d.FallbackPercent/100)) + d.FallbackFixed
}
