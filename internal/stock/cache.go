package stock

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// TotalStockCache caches per-item stock totals in Redis. Concurrent misses
// for the same item collapse into one store read via singleflight. The cache
// is advisory: any Redis failure falls through to the store.
type TotalStockCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewTotalStockCache builds the cache. ttl <= 0 defaults to one minute.
func NewTotalStockCache(client *redis.Client, ttl time.Duration) *TotalStockCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &TotalStockCache{client: client, ttl: ttl}
}

func totalStockKey(itemID int64) string {
	return fmt.Sprintf("stock:total:%d", itemID)
}

// Get returns the cached total for the item, loading and caching it via load
// on a miss.
func (c *TotalStockCache) Get(ctx context.Context, itemID int64, load func(context.Context) (int64, error)) (int64, error) {
	key := totalStockKey(itemID)
	if raw, err := c.client.Get(ctx, key).Result(); err == nil {
		if total, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return total, nil
		}
	}
	value, err, _ := c.group.Do(key, func() (any, error) {
		total, err := load(ctx)
		if err != nil {
			return int64(0), err
		}
		_ = c.client.Set(ctx, key, strconv.FormatInt(total, 10), c.ttl).Err()
		return total, nil
	})
	if err != nil {
		return 0, err
	}
	return value.(int64), nil
}

// Invalidate drops the cached total after a movement commits.
func (c *TotalStockCache) Invalidate(ctx context.Context, itemID int64) {
	_ = c.client.Del(ctx, totalStockKey(itemID)).Err()
}
