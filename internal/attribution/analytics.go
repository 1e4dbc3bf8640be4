package attribution

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// analyticsTimeout is the hard ceiling on the event-store round trip; a slow
// analytics backend must not stall the pipeline.
const analyticsTimeout = 5 * time.Second

// AnalyticsClient queries the analytics event store for click records. The
// store is eventually consistent and best-effort: timeouts and errors are
// surfaced to the resolver, which skips the source rather than failing the
// event.
type AnalyticsClient struct {
	host   string
	token  string
	client *http.Client
}

func NewAnalyticsClient(host, token string) *AnalyticsClient {
	return &AnalyticsClient{
		host:  host,
		token: token,
		client: &http.Client{
			Timeout: analyticsTimeout,
		},
	}
}

type clickRow struct {
	LinkID    string `json:"link_id"`
	PartnerID string `json:"partner_id"`
}

type pipeResponse struct {
	Data []clickRow `json:"data"`
}

// LookupClick queries the click attribution pipe for a click id scoped to a
// workspace. Returns nil on a miss.
func (a *AnalyticsClient) LookupClick(ctx context.Context, clickID, workspaceID string) (*Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, analyticsTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v0/pipes/click_attribution.json?click_id=%s&workspace_id=%s",
		a.host, url.QueryEscape(clickID), url.QueryEscape(workspaceID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analytics request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("analytics query returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed pipeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode analytics response: %w", err)
	}

	if len(parsed.Data) == 0 {
		return nil, nil
	}

	row := parsed.Data[0]
	if row.LinkID == "" && row.PartnerID == "" {
		return nil, nil
	}
	return &Hit{LinkID: row.LinkID, PartnerID: row.PartnerID}, nil
}
