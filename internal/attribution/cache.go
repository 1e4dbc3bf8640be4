package attribution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const clickKeyPrefix = "click:"

// Connect initializes a Redis client from a URL or host:port input.
func Connect(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// cachedClick is the JSON blob the click-recording path writes at click
// time. The cache is authoritative when a key is present; entries expire on
// a bounded TTL, so absence is normal.
type cachedClick struct {
	LinkID      string `json:"link_id"`
	PartnerID   string `json:"partner_id,omitempty"`
	WorkspaceID string `json:"workspace_id"`
}

// ClickCache reads click attributions out of Redis.
type ClickCache struct {
	client *redis.Client
}

func NewClickCache(client *redis.Client) *ClickCache {
	return &ClickCache{client: client}
}

// Lookup returns the cached attribution for a click id, or nil on a miss.
func (c *ClickCache) Lookup(ctx context.Context, clickID string) (*Hit, error) {
	raw, err := c.client.Get(ctx, clickKeyPrefix+clickID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read click %s from cache: %w", clickID, err)
	}

	var cached cachedClick
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, fmt.Errorf("failed to decode cached click %s: %w", clickID, err)
	}

	return &Hit{LinkID: cached.LinkID, PartnerID: cached.PartnerID}, nil
}

// Ping verifies cache connectivity for health checks.
func (c *ClickCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
