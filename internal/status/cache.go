package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"regscope/internal/platform/redis"
)

// CachedStore wraps a Store with a read-through redis cache for single-drug
// lookups. Cache failures degrade to the underlying store and are logged,
// never surfaced.
type CachedStore struct {
	Store

	cache *redis.Client
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedStore(inner Store, cache *redis.Client, ttl time.Duration, log *slog.Logger) *CachedStore {
	return &CachedStore{Store: inner, cache: cache, ttl: ttl, log: log}
}

func cacheKey(normalizedName string) string {
	return "regscope:status:" + normalizedName
}

func (c *CachedStore) Get(ctx context.Context, normalizedName string) (*GlobalStatus, error) {
	if c.cache == nil {
		return c.Store.Get(ctx, normalizedName)
	}

	key := cacheKey(normalizedName)
	if raw, err := c.cache.Get(ctx, key); err == nil && raw != "" {
		gs := &GlobalStatus{}
		if err := json.Unmarshal([]byte(raw), gs); err == nil {
			return gs, nil
		}
		c.log.Warn("corrupt status cache entry, falling through", "key", key)
	}

	gs, err := c.Store.Get(ctx, normalizedName)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(gs); err == nil {
		if err := c.cache.Set(ctx, key, string(b), c.ttl); err != nil {
			c.log.Warn("status cache write failed", "key", key, "error", err)
		}
	}
	return gs, nil
}

// Upsert writes through to the store and drops the cached entry so the next
// read sees the new record.
func (c *CachedStore) Upsert(ctx context.Context, gs *GlobalStatus) error {
	if err := c.Store.Upsert(ctx, gs); err != nil {
		return err
	}
	if c.cache != nil {
		if err := c.cache.Del(ctx, cacheKey(gs.NormalizedName)); err != nil {
			c.log.Warn("status cache invalidation failed, entry expires by TTL",
				"name", gs.NormalizedName, "error", err)
		}
	}
	return nil
}
