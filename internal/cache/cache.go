package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"liqwatch/internal/model"
)

const keyPrefix = "liqwatch:latest:"

// Latest is the hot-cache payload dashboards read instead of querying
// postgres for the most recent run.
type Latest struct {
	Snapshot *model.MarketSnapshot  `json:"snapshot"`
	Metrics  *model.MetricsSnapshot `json:"metrics,omitempty"`
	CachedAt time.Time              `json:"cached_at"`
}

// HotCache mirrors each venue's newest snapshot into redis with a TTL.
// Writes are best-effort: a down redis never fails a run.
type HotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a hot cache. A nil client disables it.
func New(client *redis.Client, ttl time.Duration) *HotCache {
	return &HotCache{client: client, ttl: ttl}
}

// Enabled reports whether a redis client is configured.
func (h *HotCache) Enabled() bool { return h != nil && h.client != nil }

// SetLatest stores the venue's newest state under liqwatch:latest:<venue>.
func (h *HotCache) SetLatest(ctx context.Context, venue model.Venue, snap *model.MarketSnapshot, metrics *model.MetricsSnapshot) error {
	if !h.Enabled() {
		return nil
	}

	payload := Latest{Snapshot: snap, Metrics: metrics, CachedAt: time.Now().UTC()}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal hot cache payload: %w", err)
	}

	if err := h.client.Set(ctx, keyPrefix+string(venue), string(data), h.ttl).Err(); err != nil {
		return fmt.Errorf("set hot cache key: %w", err)
	}

	return nil
}

// GetLatest reads a venue's cached state. Missing keys return (nil, nil).
func (h *HotCache) GetLatest(ctx context.Context, venue model.Venue) (*Latest, error) {
	if !h.Enabled() {
		return nil, nil
	}

	data, err := h.client.Get(ctx, keyPrefix+string(venue)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get hot cache key: %w", err)
	}

	var payload Latest
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode hot cache payload: %w", err)
	}

	return &payload, nil
}
