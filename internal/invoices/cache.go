package invoices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatsCache keeps the stats aggregate in Redis for a short TTL so list-heavy
// dashboards do not hammer the aggregate query. Writes invalidate eagerly.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache instantiates the cache helper.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

func (c *StatsCache) key(ownerID int64) string {
	return fmt.Sprintf("invoices:stats:%d", ownerID)
}

// Fetch loads the cached stats or populates them using the loader.
func (c *StatsCache) Fetch(ctx context.Context, ownerID int64, loader func(context.Context) (Stats, error)) (Stats, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	raw, err := c.client.Get(ctx, c.key(ownerID)).Bytes()
	if err == nil {
		var cached Stats
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return loader(ctx)
	}

	stats, err := loader(ctx)
	if err != nil {
		return Stats{}, err
	}
	if data, err := json.Marshal(stats); err == nil {
		_ = c.client.Set(ctx, c.key(ownerID), data, c.ttl).Err()
	}
	return stats, nil
}

// Invalidate drops the cached entry for an owner.
func (c *StatsCache) Invalidate(ctx context.Context, ownerID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, c.key(ownerID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
