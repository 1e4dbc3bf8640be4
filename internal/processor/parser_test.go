package processor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76"
)

const testSecret = "whsec_test_secret"

func signPayload(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(eventType, object string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_test_1",
		"object": "event",
		"api_version": %q,
		"type": %q,
		"data": {"object": %s}
	}`, stripe.APIVersion, eventType, object))
}

func TestParseEventRejectsBadSignature(t *testing.T) {
	payload := eventPayload("checkout.session.completed", `{"id": "cs_1"}`)
	header := signPayload(t, payload, "whsec_wrong")

	_, err := ParseEvent(payload, header, testSecret, "ep_1", "ws_1")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestParseEventRejectsMissingSignature(t *testing.T) {
	payload := eventPayload("checkout.session.completed", `{"id": "cs_1"}`)

	_, err := ParseEvent(payload, "", testSecret, "ep_1", "ws_1")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestParseCheckoutSession(t *testing.T) {
	payload := eventPayload("checkout.session.completed", `{
		"id": "cs_1",
		"object": "checkout.session",
		"amount_total": 12000,
		"currency": "usd",
		"client_reference_id": "clk_abc",
		"customer": "cus_1",
		"customer_details": {"email": "buyer@example.com"},
		"payment_intent": "pi_1",
		"total_details": {"amount_tax": 2000}
	}`)
	header := signPayload(t, payload, testSecret)

	msg, err := ParseEvent(payload, header, testSecret, "ep_1", "ws_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg == nil || msg.Sale == nil {
		t.Fatal("expected a sale message")
	}

	if msg.EventID != "evt_test_1" || msg.WorkspaceID != "ws_1" || msg.EndpointID != "ep_1" {
		t.Errorf("envelope = %+v", msg)
	}

	sale := msg.Sale
	if sale.SaleID != "pi_1" {
		t.Errorf("sale id = %q, want payment intent pi_1", sale.SaleID)
	}
	if sale.ClickID != "clk_abc" {
		t.Errorf("click id = %q, want clk_abc", sale.ClickID)
	}
	if sale.GrossAmount != 12000 || sale.ReportedTax != 2000 {
		t.Errorf("amounts = %d/%d, want 12000/2000", sale.GrossAmount, sale.ReportedTax)
	}
	if sale.CustomerExternalID != "cus_1" || sale.CustomerEmail != "buyer@example.com" {
		t.Errorf("customer = %q/%q", sale.CustomerExternalID, sale.CustomerEmail)
	}
	if sale.ChargeRef != "pi_1" {
		t.Errorf("charge ref = %q, want pi_1", sale.ChargeRef)
	}
	if sale.Recurring {
		t.Error("checkout sale must not be marked recurring")
	}
}

func TestParseCheckoutSessionClickIDFromMetadata(t *testing.T) {
	payload := eventPayload("checkout.session.completed", `{
		"id": "cs_1",
		"object": "checkout.session",
		"amount_total": 5000,
		"currency": "eur",
		"client_reference_id": "order-42",
		"metadata": {"click_id": "clk_meta"}
	}`)
	header := signPayload(t, payload, testSecret)

	msg, err := ParseEvent(payload, header, testSecret, "ep_1", "ws_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Sale.ClickID != "clk_meta" {
		t.Errorf("click id = %q, want clk_meta from metadata", msg.Sale.ClickID)
	}
	if msg.Sale.SaleID != "cs_1" {
		t.Errorf("sale id = %q, want session id fallback", msg.Sale.SaleID)
	}
}

func TestParseInvoiceOnlySubscriptionCycle(t *testing.T) {
	creation := eventPayload("invoice.payment_succeeded", `{
		"id": "in_1",
		"object": "invoice",
		"billing_reason": "subscription_create",
		"amount_paid": 2900,
		"currency": "usd"
	}`)
	header := signPayload(t, creation, testSecret)

	msg, err := ParseEvent(creation, header, testSecret, "ep_1", "ws_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg != nil {
		t.Error("subscription_create invoice must be acked without processing")
	}

	renewal := eventPayload("invoice.payment_succeeded", `{
		"id": "in_2",
		"object": "invoice",
		"billing_reason": "subscription_cycle",
		"amount_paid": 2900,
		"tax": 483,
		"currency": "usd",
		"customer": "cus_1",
		"customer_email": "buyer@example.com",
		"charge": "ch_2",
		"subscription": "sub_1"
	}`)
	header = signPayload(t, renewal, testSecret)

	msg, err = ParseEvent(renewal, header, testSecret, "ep_1", "ws_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg == nil || msg.Sale == nil {
		t.Fatal("expected a sale message for a renewal")
	}
	if !msg.Sale.Recurring {
		t.Error("renewal sale must be marked recurring")
	}
	if msg.Sale.SaleID != "in_2" || msg.Sale.SubscriptionID != "sub_1" || msg.Sale.ChargeRef != "ch_2" {
		t.Errorf("sale = %+v", msg.Sale)
	}
}

func TestParseChargeRefunded(t *testing.T) {
	payload := eventPayload("charge.refunded", `{
		"id": "ch_1",
		"object": "charge",
		"payment_intent": "pi_1",
		"refunds": {"object": "list", "data": [{"id": "re_1", "object": "refund", "reason": "fraudulent"}]}
	}`)
	header := signPayload(t, payload, testSecret)

	msg, err := ParseEvent(payload, header, testSecret, "ep_1", "ws_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg == nil || msg.Refund == nil {
		t.Fatal("expected a refund message")
	}
	if msg.Refund.SaleID != "pi_1" {
		t.Errorf("sale id = %q, want pi_1 to match the sale path", msg.Refund.SaleID)
	}
	if msg.Refund.Reason != "fraudulent" {
		t.Errorf("reason = %q, want fraudulent", msg.Refund.Reason)
	}
}

func TestParseUnhandledEventType(t *testing.T) {
	payload := eventPayload("customer.created", `{"id": "cus_1", "object": "customer"}`)
	header := signPayload(t, payload, testSecret)

	msg, err := ParseEvent(payload, header, testSecret, "ep_1", "ws_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg != nil {
		t.Errorf("msg = %+v, want nil for unhandled type", msg)
	}
}
