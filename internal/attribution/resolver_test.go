package attribution

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/clickwise/commission-svc/internal/models"
)

type fakeCache struct {
	hits    map[string]*Hit
	err     error
	lookups int
}

func (c *fakeCache) Lookup(ctx context.Context, clickID string) (*Hit, error) {
	c.lookups++
	if c.err != nil {
		return nil, c.err
	}
	return c.hits[clickID], nil
}

type fakeAnalytics struct {
	hits    map[string]*Hit
	err     error
	lookups int
}

func (a *fakeAnalytics) LookupClick(ctx context.Context, clickID, workspaceID string) (*Hit, error) {
	a.lookups++
	if a.err != nil {
		return nil, a.err
	}
	return a.hits[clickID], nil
}

type fakeCustomers struct {
	customers map[string]*models.Customer
	saved     map[string]string
}

func (s *fakeCustomers) Find(ctx context.Context, workspaceID, externalID, email string) (*models.Customer, error) {
	if c, ok := s.customers[externalID]; ok {
		return c, nil
	}
	if c, ok := s.customers[email]; ok {
		return c, nil
	}
	return nil, nil
}

func (s *fakeCustomers) SaveClickID(ctx context.Context, customerID, clickID string) error {
	if s.saved == nil {
		s.saved = make(map[string]string)
	}
	s.saved[customerID] = clickID
	return nil
}

type fakeRegistry struct {
	partners map[string]string
}

func (r *fakeRegistry) PartnerForLink(ctx context.Context, linkID string) (string, error) {
	return r.partners[linkID], nil
}

func newTestResolver(cache CacheSource, analytics AnalyticsSource, customers CustomerStore, links LinkRegistry) *Resolver {
	return &Resolver{
		Cache:     cache,
		Analytics: analytics,
		Customers: customers,
		Links:     links,
		Logger:    zap.NewNop(),
	}
}

func TestResolveCacheHitSkipsAnalytics(t *testing.T) {
	cache := &fakeCache{hits: map[string]*Hit{
		"clk_1": {LinkID: "lnk_1", PartnerID: "usr_1"},
	}}
	analytics := &fakeAnalytics{}
	r := newTestResolver(cache, analytics, nil, nil)

	result, err := r.Resolve(context.Background(), Query{ClickID: "clk_1", WorkspaceID: "ws_1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.LinkID != "lnk_1" || result.PartnerID != "usr_1" {
		t.Errorf("result = %+v, want lnk_1/usr_1", result)
	}
	if analytics.lookups != 0 {
		t.Errorf("analytics consulted %d times on a cache hit, want 0", analytics.lookups)
	}
}

func TestResolveFallsThroughToAnalytics(t *testing.T) {
	cache := &fakeCache{}
	analytics := &fakeAnalytics{hits: map[string]*Hit{
		"clk_1": {LinkID: "lnk_1"},
	}}
	links := &fakeRegistry{partners: map[string]string{"lnk_1": "usr_1"}}
	r := newTestResolver(cache, analytics, nil, links)

	result, err := r.Resolve(context.Background(), Query{ClickID: "clk_1", WorkspaceID: "ws_1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.lookups != 1 {
		t.Errorf("cache lookups = %d, want 1", cache.lookups)
	}
	if result.LinkID != "lnk_1" {
		t.Errorf("link = %q, want lnk_1", result.LinkID)
	}
	if result.PartnerID != "usr_1" {
		t.Errorf("partner = %q, want usr_1 via registry", result.PartnerID)
	}
}

func TestResolveCacheErrorFallsThrough(t *testing.T) {
	cache := &fakeCache{err: errors.New("connection refused")}
	analytics := &fakeAnalytics{hits: map[string]*Hit{
		"clk_1": {LinkID: "lnk_1", PartnerID: "usr_1"},
	}}
	r := newTestResolver(cache, analytics, nil, nil)

	result, err := r.Resolve(context.Background(), Query{ClickID: "clk_1", WorkspaceID: "ws_1"})
	if err != nil {
		t.Fatalf("source failure must not fail resolution: %v", err)
	}
	if result.PartnerID != "usr_1" {
		t.Errorf("partner = %q, want usr_1 from analytics", result.PartnerID)
	}
}

func TestResolveUnknownClickIsOrganic(t *testing.T) {
	r := newTestResolver(&fakeCache{}, &fakeAnalytics{}, nil, nil)

	result, err := r.Resolve(context.Background(), Query{ClickID: "clk_ghost", WorkspaceID: "ws_1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != (Result{}) {
		t.Errorf("result = %+v, want empty for an unknown click", result)
	}
}

func TestResolveNoClickNoCustomer(t *testing.T) {
	r := newTestResolver(&fakeCache{}, &fakeAnalytics{}, &fakeCustomers{}, nil)

	result, err := r.Resolve(context.Background(), Query{WorkspaceID: "ws_1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != (Result{}) {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestResolveRecoversClickFromCustomer(t *testing.T) {
	storedClick := "clk_stored"
	customers := &fakeCustomers{customers: map[string]*models.Customer{
		"cus_1": {ID: "c1", ClickID: &storedClick},
	}}
	cache := &fakeCache{hits: map[string]*Hit{
		"clk_stored": {LinkID: "lnk_1", PartnerID: "usr_1"},
	}}
	r := newTestResolver(cache, &fakeAnalytics{}, customers, nil)

	result, err := r.Resolve(context.Background(), Query{
		CustomerExternalID: "cus_1",
		WorkspaceID:        "ws_1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PartnerID != "usr_1" {
		t.Errorf("partner = %q, want usr_1 via stored click", result.PartnerID)
	}
}

func TestResolveAdoptsFreshClickForKnownCustomer(t *testing.T) {
	customers := &fakeCustomers{customers: map[string]*models.Customer{
		"cus_1": {ID: "c1"},
	}}
	cache := &fakeCache{hits: map[string]*Hit{
		"clk_new": {LinkID: "lnk_1", PartnerID: "usr_1"},
	}}
	r := newTestResolver(cache, &fakeAnalytics{}, customers, nil)

	_, err := r.Resolve(context.Background(), Query{
		ClickID:            "clk_new",
		CustomerExternalID: "cus_1",
		WorkspaceID:        "ws_1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if customers.saved["c1"] != "clk_new" {
		t.Errorf("saved click = %q, want clk_new persisted on customer", customers.saved["c1"])
	}
}

func TestResolveAdoptsClickEvenWhenSourcesMiss(t *testing.T) {
	customers := &fakeCustomers{customers: map[string]*models.Customer{
		"cus_1": {ID: "c1"},
	}}
	r := newTestResolver(&fakeCache{}, &fakeAnalytics{}, customers, nil)

	result, err := r.Resolve(context.Background(), Query{
		ClickID:            "clk_expired",
		CustomerExternalID: "cus_1",
		WorkspaceID:        "ws_1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != (Result{}) {
		t.Errorf("result = %+v, want empty when no source resolves", result)
	}
	if customers.saved["c1"] != "clk_expired" {
		t.Errorf("saved click = %q, want clk_expired persisted despite the miss", customers.saved["c1"])
	}
}
