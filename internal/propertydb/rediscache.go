package propertydb

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// tableName keys the single blob held in the hot cache.
const tableName = "properties"

// HotCache fronts the sqlite store with a redis copy of the current blob so
// reads skip the database entirely once warmed.
type HotCache struct {
	client *redis.Client
}

func NewHotCache(addr, password string, db int) *HotCache {
	return &HotCache{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// NewHotCacheFromClient wraps an existing client (tests use miniredis).
func NewHotCacheFromClient(client *redis.Client) *HotCache {
	return &HotCache{client: client}
}

// Get returns the cached blob, or ok=false on a miss.
func (h *HotCache) Get(ctx context.Context) (string, bool, error) {
	blob, err := h.client.Get(ctx, tableName).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return blob, true, nil
}

// Set stores the blob.
func (h *HotCache) Set(ctx context.Context, blob string) error {
	return h.client.Set(ctx, tableName, blob, 0).Err()
}

// Flush drops everything in the cache database.
func (h *HotCache) Flush(ctx context.Context) (string, error) {
	return h.client.FlushDB(ctx).Result()
}

// Info reports cache server diagnostics, for the infocache endpoint.
func (h *HotCache) Info(ctx context.Context) (string, error) {
	return h.client.Info(ctx).Result()
}
