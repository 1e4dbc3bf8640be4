package attribution

import (
	"context"

	"go.uber.org/zap"

	"github.com/clickwise/commission-svc/internal/models"
)

// Hit is a partial attribution result from one source. A source may know
// the link without knowing the partner; the registry fills the gap.
type Hit struct {
	LinkID    string
	PartnerID string
}

// Query carries everything a payment event knows about its origin.
type Query struct {
	ClickID            string
	CustomerExternalID string
	CustomerEmail      string
	WorkspaceID        string
}

// Result is the resolved attribution. Both fields empty means the sale is
// organic/direct, which is a valid outcome, not an error.
type Result struct {
	LinkID    string
	PartnerID string
}

// CacheSource is the fast key-value click cache (authoritative when present).
type CacheSource interface {
	Lookup(ctx context.Context, clickID string) (*Hit, error)
}

// AnalyticsSource is the slower, eventually-consistent event store.
type AnalyticsSource interface {
	LookupClick(ctx context.Context, clickID, workspaceID string) (*Hit, error)
}

// CustomerStore recovers click ids for returning customers and persists
// newly observed ones.
type CustomerStore interface {
	Find(ctx context.Context, workspaceID, externalID, email string) (*models.Customer, error)
	SaveClickID(ctx context.Context, customerID, clickID string) error
}

// LinkRegistry resolves a link to its owning partner.
type LinkRegistry interface {
	PartnerForLink(ctx context.Context, linkID string) (string, error)
}

// Resolver walks the attribution sources in priority order: customer-stored
// click id, cache, analytics store, link registry. Every source is
// best-effort; the resolver itself never fails on absence.
type Resolver struct {
	Cache     CacheSource
	Analytics AnalyticsSource
	Customers CustomerStore
	Links     LinkRegistry
	Logger    *zap.Logger
}

// Resolve maps a payment event to the referring link and partner.
func (r *Resolver) Resolve(ctx context.Context, q Query) (Result, error) {
	clickID := q.ClickID

	// A renewal or returning customer usually arrives without a click id;
	// recover the one stored at first sale.
	var customer *models.Customer
	if r.Customers != nil && (q.CustomerExternalID != "" || q.CustomerEmail != "") {
		found, err := r.Customers.Find(ctx, q.WorkspaceID, q.CustomerExternalID, q.CustomerEmail)
		if err != nil {
			r.Logger.Warn("Customer lookup failed, continuing without it",
				zap.String("workspace_id", q.WorkspaceID),
				zap.Error(err),
			)
		} else if found != nil {
			customer = found
			if clickID == "" && found.ClickID != nil {
				clickID = *found.ClickID
			}
		}
	}

	if clickID == "" {
		return Result{}, nil
	}

	// Opportunistically persist a freshly observed click id for a known
	// customer so future renewals resolve without the cache. This happens
	// before the source lookups: the click id is worth keeping even when no
	// source can resolve it yet.
	if customer != nil && customer.ClickID == nil && q.ClickID != "" {
		if err := r.Customers.SaveClickID(ctx, customer.ID, q.ClickID); err != nil {
			r.Logger.Warn("Failed to persist click id on customer",
				zap.String("customer_id", customer.ID),
				zap.Error(err),
			)
		}
	}

	hit := r.firstHit(ctx, clickID, q.WorkspaceID)
	if hit == nil {
		return Result{}, nil
	}

	result := Result{LinkID: hit.LinkID, PartnerID: hit.PartnerID}

	// A link without a partner still resolves through the registry:
	// enrollment's owning user first, else the link's direct affiliate.
	if result.PartnerID == "" && result.LinkID != "" && r.Links != nil {
		partnerID, err := r.Links.PartnerForLink(ctx, result.LinkID)
		if err != nil {
			r.Logger.Warn("Link registry lookup failed",
				zap.String("link_id", result.LinkID),
				zap.Error(err),
			)
		} else {
			result.PartnerID = partnerID
		}
	}

	return result, nil
}

// firstHit runs the click sources in order and returns the first answer.
// The cache wins outright when present because it is written synchronously
// at click time; the analytics store is consulted only on a miss.
func (r *Resolver) firstHit(ctx context.Context, clickID, workspaceID string) *Hit {
	attempts := []func() (*Hit, error){
		func() (*Hit, error) {
			if r.Cache == nil {
				return nil, nil
			}
			return r.Cache.Lookup(ctx, clickID)
		},
		func() (*Hit, error) {
			if r.Analytics == nil {
				return nil, nil
			}
			return r.Analytics.LookupClick(ctx, clickID, workspaceID)
		},
	}

	for _, attempt := range attempts {
		hit, err := attempt()
		if err != nil {
			r.Logger.Warn("Attribution source failed, falling through",
				zap.String("click_id", clickID),
				zap.Error(err),
			)
			continue
		}
		if hit != nil {
			return hit
		}
	}
	return nil
}
