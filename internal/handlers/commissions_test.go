package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/clickwise/commission-svc/internal/models"
)

type fakeLister struct {
	commissions []models.Commission
}

func (l *fakeLister) List(ctx context.Context, workspaceID string, limit, offset int) ([]models.Commission, error) {
	end := offset + limit
	if offset > len(l.commissions) {
		return nil, nil
	}
	if end > len(l.commissions) {
		end = len(l.commissions)
	}
	return l.commissions[offset:end], nil
}

func newCommissionsApp(lister CommissionLister) *fiber.App {
	app := fiber.New()
	h := NewCommissionsHandler(lister, zap.NewNop())
	app.Get("/api/v1/commissions", h.GetCommissions)
	return app
}

func makeCommissions(n int) []models.Commission {
	out := make([]models.Commission, 0, n)
	now := time.Now().UTC()
	for i := 0; i < n; i++ {
		out = append(out, models.Commission{
			ID:           fmt.Sprintf("com_%d", i),
			PartnerID:    "usr_1",
			WorkspaceID:  "ws_1",
			SaleID:       fmt.Sprintf("pi_%d", i),
			RewardAmount: 500,
			Currency:     "usd",
			Status:       models.CommissionPending,
			HoldUntil:    now.AddDate(0, 0, 30),
			CreatedAt:    now,
		})
	}
	return out
}

func getCommissions(t *testing.T, app *fiber.App, query string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/commissions"+query, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	return resp, body
}

func TestGetCommissionsRequiresWorkspace(t *testing.T) {
	app := newCommissionsApp(&fakeLister{})

	resp, _ := getCommissions(t, app, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without workspace_id", resp.StatusCode)
	}
}

func TestGetCommissionsPagination(t *testing.T) {
	app := newCommissionsApp(&fakeLister{commissions: makeCommissions(30)})

	resp, body := getCommissions(t, app, "?workspace_id=ws_1&limit=25")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var page CommissionsResponse
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(page.Commissions) != 25 {
		t.Errorf("page size = %d, want 25", len(page.Commissions))
	}
	if !page.HasMore {
		t.Error("has_more = false with 30 rows and limit 25")
	}

	resp, body = getCommissions(t, app, "?workspace_id=ws_1&limit=25&offset=25")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(page.Commissions) != 5 || page.HasMore {
		t.Errorf("last page = %d rows, has_more = %v, want 5/false", len(page.Commissions), page.HasMore)
	}
}

func TestGetCommissionsRejectsBadPagination(t *testing.T) {
	app := newCommissionsApp(&fakeLister{})

	resp, _ := getCommissions(t, app, "?workspace_id=ws_1&limit=0")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for limit=0", resp.StatusCode)
	}

	resp, _ = getCommissions(t, app, "?workspace_id=ws_1&offset=-1")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for negative offset", resp.StatusCode)
	}
}
