package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"

	"github.com/clickwise/commission-svc/internal/models"
)

const testSecret = "whsec_handler_secret"

type fakeEndpoints struct {
	endpoints map[string]*models.WebhookEndpoint
	err       error
}

func (s *fakeEndpoints) FindByID(ctx context.Context, id string) (*models.WebhookEndpoint, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.endpoints[id], nil
}

type fakePublisher struct {
	published [][]byte
	err       error
}

func (p *fakePublisher) PublishMessage(exchange, routingKey string, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, body)
	return nil
}

func newTestApp(endpoints EndpointStore, publisher TaskPublisher) *fiber.App {
	app := fiber.New()
	h := NewWebhookHandler(endpoints, publisher, "payment-events", "payment.event", zap.NewNop())
	app.Post("/webhooks/:endpointId", h.HandleWebhook)
	return app
}

func signedPayload(t *testing.T, secret string) ([]byte, string) {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{
		"id": "evt_h1",
		"object": "event",
		"api_version": %q,
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"object": "checkout.session",
			"amount_total": 12000,
			"currency": "usd",
			"client_reference_id": "clk_1",
			"payment_intent": "pi_1"
		}}
	}`, stripe.APIVersion))

	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	header := fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
	return payload, header
}

func postWebhook(t *testing.T, app *fiber.App, endpointID string, payload []byte, sigHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/"+endpointID, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if sigHeader != "" {
		req.Header.Set("Stripe-Signature", sigHeader)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func TestWebhookUnknownEndpointAcks(t *testing.T) {
	publisher := &fakePublisher{}
	app := newTestApp(&fakeEndpoints{endpoints: map[string]*models.WebhookEndpoint{}}, publisher)

	payload, header := signedPayload(t, testSecret)
	resp := postWebhook(t, app, "ep_ghost", payload, header)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 for unknown endpoint", resp.StatusCode)
	}
	if len(publisher.published) != 0 {
		t.Error("unknown endpoint must not publish")
	}

	body, _ := io.ReadAll(resp.Body)
	var ack map[string]bool
	if err := json.Unmarshal(body, &ack); err != nil || !ack["received"] {
		t.Errorf("body = %s, want {\"received\":true}", body)
	}
}

func TestWebhookEndpointWithoutSecret(t *testing.T) {
	endpoints := &fakeEndpoints{endpoints: map[string]*models.WebhookEndpoint{
		"ep_1": {ID: "ep_1", WorkspaceID: "ws_1", Secret: ""},
	}}
	app := newTestApp(endpoints, &fakePublisher{})

	payload, header := signedPayload(t, testSecret)
	resp := postWebhook(t, app, "ep_1", payload, header)

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing secret", resp.StatusCode)
	}
}

func TestWebhookBadSignature(t *testing.T) {
	endpoints := &fakeEndpoints{endpoints: map[string]*models.WebhookEndpoint{
		"ep_1": {ID: "ep_1", WorkspaceID: "ws_1", Secret: testSecret},
	}}
	publisher := &fakePublisher{}
	app := newTestApp(endpoints, publisher)

	payload, header := signedPayload(t, "whsec_other")
	resp := postWebhook(t, app, "ep_1", payload, header)

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for bad signature", resp.StatusCode)
	}
	if len(publisher.published) != 0 {
		t.Error("bad signature must not publish")
	}
}

func TestWebhookValidEventIsEnqueued(t *testing.T) {
	endpoints := &fakeEndpoints{endpoints: map[string]*models.WebhookEndpoint{
		"ep_1": {ID: "ep_1", WorkspaceID: "ws_1", Secret: testSecret},
	}}
	publisher := &fakePublisher{}
	app := newTestApp(endpoints, publisher)

	payload, header := signedPayload(t, testSecret)
	resp := postWebhook(t, app, "ep_1", payload, header)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("published = %d messages, want 1", len(publisher.published))
	}

	var task models.TaskMessage
	if err := json.Unmarshal(publisher.published[0], &task); err != nil {
		t.Fatalf("unmarshal published task: %v", err)
	}
	if task.EventID != "evt_h1" || task.WorkspaceID != "ws_1" || task.Sale == nil {
		t.Errorf("task = %+v, want evt_h1/ws_1 with sale", task)
	}
	if task.Sale.SaleID != "pi_1" || task.Sale.ClickID != "clk_1" {
		t.Errorf("sale = %+v", task.Sale)
	}
}

func TestWebhookPublishFailureStillAcks(t *testing.T) {
	endpoints := &fakeEndpoints{endpoints: map[string]*models.WebhookEndpoint{
		"ep_1": {ID: "ep_1", WorkspaceID: "ws_1", Secret: testSecret},
	}}
	publisher := &fakePublisher{err: errors.New("broker down")}
	app := newTestApp(endpoints, publisher)

	payload, header := signedPayload(t, testSecret)
	resp := postWebhook(t, app, "ep_1", payload, header)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 even when publish fails", resp.StatusCode)
	}
}

func TestWebhookEndpointLookupFailure(t *testing.T) {
	app := newTestApp(&fakeEndpoints{err: errors.New("db down")}, &fakePublisher{})

	payload, header := signedPayload(t, testSecret)
	resp := postWebhook(t, app, "ep_1", payload, header)

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 on lookup failure", resp.StatusCode)
	}
}
