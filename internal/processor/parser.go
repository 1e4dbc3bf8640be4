package processor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/clickwise/commission-svc/internal/models"
)

// ErrInvalidSignature is returned when the Stripe-Signature header is
// missing, malformed, or does not match the endpoint's secret.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ParseEvent verifies the raw webhook body against the endpoint secret and
// converts the Stripe event into a typed task message. A nil message with a
// nil error means the event type is recognized-but-unhandled and must be
// acknowledged without processing.
func ParseEvent(body []byte, sigHeader, secret, endpointID, workspaceID string) (*models.TaskMessage, error) {
	event, err := webhook.ConstructEvent(body, sigHeader, secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	msg := &models.TaskMessage{
		EventID:     event.ID,
		EventType:   string(event.Type),
		EndpointID:  endpointID,
		WorkspaceID: workspaceID,
	}

	switch string(event.Type) {
	case models.EventSaleCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
		}
		msg.Sale = saleFromSession(&session)
		return msg, nil

	case models.EventRenewalSucceeded:
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return nil, fmt.Errorf("failed to unmarshal invoice: %w", err)
		}
		// Only renewal cycles go through here; the initial invoice of a
		// subscription is already covered by checkout.session.completed.
		if invoice.BillingReason != stripe.InvoiceBillingReasonSubscriptionCycle {
			return nil, nil
		}
		msg.Sale = saleFromInvoice(&invoice)
		return msg, nil

	case models.EventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal charge: %w", err)
		}
		msg.Refund = refundFromCharge(&ch)
		return msg, nil
	}

	// Unhandled event type: ack without processing
	return nil, nil
}

func saleFromSession(session *stripe.CheckoutSession) *models.SaleEvent {
	sale := &models.SaleEvent{
		SaleID:      session.ID,
		GrossAmount: session.AmountTotal,
		Currency:    strings.ToLower(string(session.Currency)),
	}

	// Sale key must be derivable from the refund's charge too, so prefer
	// invoice id (subscriptions), then payment intent id, then session id.
	if session.Invoice != nil && session.Invoice.ID != "" {
		sale.SaleID = session.Invoice.ID
	} else if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		sale.SaleID = session.PaymentIntent.ID
	}

	// click_id rides in client_reference_id or metadata
	if strings.HasPrefix(session.ClientReferenceID, "clk_") {
		sale.ClickID = session.ClientReferenceID
	} else if session.Metadata != nil {
		sale.ClickID = session.Metadata["click_id"]
	}

	if session.Customer != nil {
		sale.CustomerExternalID = session.Customer.ID
	}
	if session.CustomerDetails != nil {
		sale.CustomerEmail = session.CustomerDetails.Email
	}
	if session.TotalDetails != nil {
		sale.ReportedTax = session.TotalDetails.AmountTax
	}
	if session.PaymentIntent != nil {
		sale.ChargeRef = session.PaymentIntent.ID
	}
	if session.Subscription != nil {
		sale.SubscriptionID = session.Subscription.ID
	}

	return sale
}

func saleFromInvoice(invoice *stripe.Invoice) *models.SaleEvent {
	sale := &models.SaleEvent{
		SaleID:        invoice.ID,
		GrossAmount:   invoice.AmountPaid,
		ReportedTax:   invoice.Tax,
		Currency:      strings.ToLower(string(invoice.Currency)),
		CustomerEmail: invoice.CustomerEmail,
		Recurring:     true,
	}

	if invoice.Customer != nil {
		sale.CustomerExternalID = invoice.Customer.ID
	}
	if invoice.Charge != nil {
		sale.ChargeRef = invoice.Charge.ID
	}
	if invoice.Subscription != nil {
		sale.SubscriptionID = invoice.Subscription.ID
	}

	return sale
}

func refundFromCharge(ch *stripe.Charge) *models.RefundEvent {
	refund := &models.RefundEvent{
		SaleID: ch.ID,
		Reason: "charge.refunded",
	}

	// Match the sale key derivation used on the sale path
	if ch.Invoice != nil && ch.Invoice.ID != "" {
		refund.SaleID = ch.Invoice.ID
	} else if ch.PaymentIntent != nil && ch.PaymentIntent.ID != "" {
		refund.SaleID = ch.PaymentIntent.ID
	}

	if ch.Refunds != nil && len(ch.Refunds.Data) > 0 && ch.Refunds.Data[0].Reason != "" {
		refund.Reason = string(ch.Refunds.Data[0].Reason)
	}

	return refund
}
