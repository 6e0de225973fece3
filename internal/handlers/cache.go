package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PaymentCache caches rendered payment views by index. Mutating operations
// invalidate the touched index; misses fall through to the vault.
type PaymentCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPaymentCache connects to Redis at the given URL.
func NewPaymentCache(redisURL string, ttl time.Duration) (*PaymentCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &PaymentCache{rdb: redis.NewClient(opts), ttl: ttl}, nil
}

func cacheKey(idx int) string {
	return fmt.Sprintf("payment:%d", idx)
}

// Get returns the cached view for an index, if present.
func (c *PaymentCache) Get(ctx context.Context, idx int) (paymentView, bool) {
	var view paymentView
	data, err := c.rdb.Get(ctx, cacheKey(idx)).Result()
	if err != nil {
		return view, false
	}
	if err := json.Unmarshal([]byte(data), &view); err != nil {
		return view, false
	}
	return view, true
}

// Set stores a view. Best effort.
func (c *PaymentCache) Set(ctx context.Context, idx int, view paymentView) {
	data, err := json.Marshal(view)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, cacheKey(idx), data, c.ttl)
}

// Invalidate drops the cached view for an index.
func (c *PaymentCache) Invalidate(ctx context.Context, idx int) {
	c.rdb.Del(ctx, cacheKey(idx))
}

// Close releases the Redis client.
func (c *PaymentCache) Close() error {
	return c.rdb.Close()
}
