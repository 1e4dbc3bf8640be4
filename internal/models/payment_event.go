package models

// Event types this engine handles. Anything else is acknowledged to the
// processor and dropped without processing.
const (
	EventSaleCompleted    = "checkout.session.completed"
	EventRenewalSucceeded = "invoice.payment_succeeded"
	EventChargeRefunded   = "charge.refunded"
)

// SaleEvent is the typed payload for an initial sale or a renewal invoice.
// Amounts are integer minor units in the event's currency.
type SaleEvent struct {
	SaleID             string `json:"sale_id"`
	ClickID            string `json:"click_id,omitempty"`
	CustomerExternalID string `json:"customer_external_id,omitempty"`
	CustomerEmail      string `json:"customer_email,omitempty"`
	GrossAmount        int64  `json:"gross_amount"`
	ReportedTax        int64  `json:"reported_tax"`
	Currency           string `json:"currency"`
	ChargeRef          string `json:"charge_ref,omitempty"`
	SubscriptionID     string `json:"subscription_id,omitempty"`
	Recurring          bool   `json:"recurring"`
}

// RefundEvent is the typed payload for a refund notification.
type RefundEvent struct {
	SaleID string `json:"sale_id"`
	Reason string `json:"reason,omitempty"`
}

// TaskMessage is the deferred task published by the webhook handler and
// consumed by the pipeline worker. Exactly one of Sale or Refund is set,
// discriminated by EventType; unhandled event types are never enqueued.
type TaskMessage struct {
	EventID     string       `json:"event_id"`
	EventType   string       `json:"event_type"`
	EndpointID  string       `json:"endpoint_id"`
	WorkspaceID string       `json:"workspace_id"`
	Sale        *SaleEvent   `json:"sale,omitempty"`
	Refund      *RefundEvent `json:"refund,omitempty"`
}
