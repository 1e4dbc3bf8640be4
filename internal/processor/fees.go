package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/balancetransaction"
	"github.com/stripe/stripe-go/v76/charge"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// feeLookupTimeout bounds the processor round trip; callers fall back to an
// estimate when it is exceeded.
const feeLookupTimeout = 3 * time.Second

// FeeClient retrieves the authoritative processor fee for a charge from the
// settlement (balance transaction) record. It accepts charge, payment intent,
// or balance transaction references since webhooks carry different ones
// depending on the payment flow.
type FeeClient struct{}

func NewFeeClient() *FeeClient {
	return &FeeClient{}
}

// FeeForCharge returns the fee in minor units for the given reference.
func (c *FeeClient) FeeForCharge(ctx context.Context, ref string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, feeLookupTimeout)
	defer cancel()

	switch {
	case strings.HasPrefix(ref, "txn_"):
		params := &stripe.BalanceTransactionParams{}
		params.Context = ctx
		txn, err := balancetransaction.Get(ref, params)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch balance transaction %s: %w", ref, err)
		}
		return txn.Fee, nil

	case strings.HasPrefix(ref, "ch_"), strings.HasPrefix(ref, "py_"):
		params := &stripe.ChargeParams{}
		params.Context = ctx
		params.AddExpand("balance_transaction")
		ch, err := charge.Get(ref, params)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch charge %s: %w", ref, err)
		}
		if ch.BalanceTransaction == nil {
			return 0, fmt.Errorf("charge %s has no balance transaction yet", ref)
		}
		return ch.BalanceTransaction.Fee, nil

	case strings.HasPrefix(ref, "pi_"):
		params := &stripe.PaymentIntentParams{}
		params.Context = ctx
		params.AddExpand("latest_charge.balance_transaction")
		pi, err := paymentintent.Get(ref, params)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch payment intent %s: %w", ref, err)
		}
		if pi.LatestCharge == nil || pi.LatestCharge.BalanceTransaction == nil {
			return 0, fmt.Errorf("payment intent %s has no settled charge yet", ref)
		}
		return pi.LatestCharge.BalanceTransaction.Fee, nil
	}

	return 0, fmt.Errorf("unrecognized charge reference %q", ref)
}
