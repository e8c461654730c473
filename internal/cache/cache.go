// Package cache wraps go-shared's CacheLayer (L1 in-process + L2 Redis)
// for the Canonical Store Gateway's hot-path reads, following the
// reviews-service repository's cache wiring.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Tesseract-Nexus/go-shared/cache"
	"github.com/redis/go-redis/v9"
)

const (
	ConnectionCacheTTL = 5 * time.Minute
	VariantIndexTTL    = 2 * time.Minute
	KeyPrefix          = "sync-engine:"
)

// Layer is a thin, nil-safe facade over cache.CacheLayer: every method is
// a no-op when Redis was not configured, matching the repository pattern
// where caching is an optimization, never a correctness dependency.
type Layer struct {
	inner *cache.CacheLayer
}

// NewLayer builds a Layer from an existing Redis client, or a disabled
// Layer if redisClient is nil.
func NewLayer(redisClient *redis.Client) *Layer {
	if redisClient == nil {
		return &Layer{}
	}
	cfg := cache.CacheConfig{
		L1Enabled:  true,
		L1MaxItems: 2000,
		L1TTL:      30 * time.Second,
		DefaultTTL: ConnectionCacheTTL,
		KeyPrefix:  KeyPrefix,
	}
	return &Layer{inner: cache.NewCacheLayerFromClient(redisClient, cfg)}
}

// ConnectionKey is the cache key for a connection-by-id lookup.
func ConnectionKey(connectionID string) string {
	return fmt.Sprintf("connection:%s", connectionID)
}

// VariantIndexKey is the cache key for a user's lower(sku)/lower(barcode)
// index used by the mapping engine during a scan.
func VariantIndexKey(userID string) string {
	return fmt.Sprintf("variant-index:%s", userID)
}

// Get unmarshals a cached value into dst; returns false on a cache miss
// or when caching is disabled.
func (l *Layer) Get(ctx context.Context, key string, dst interface{}) bool {
	if l.inner == nil {
		return false
	}
	raw, err := l.inner.Get(ctx, key)
	if err != nil || raw == nil {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false
	}
	return true
}

// Set stores value under key with the given TTL; a no-op when caching is
// disabled or the value cannot be marshaled.
func (l *Layer) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if l.inner == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = l.inner.Set(ctx, key, raw, ttl)
}

// Invalidate deletes a single key.
func (l *Layer) Invalidate(ctx context.Context, key string) {
	if l.inner == nil {
		return
	}
	_ = l.inner.Delete(ctx, key)
}

// InvalidatePattern deletes all keys matching a glob pattern, used when a
// whole connection's variant index needs rebuilding.
func (l *Layer) InvalidatePattern(ctx context.Context, pattern string) {
	if l.inner == nil {
		return
	}
	_ = l.inner.DeletePattern(ctx, pattern)
}

// Enabled reports whether a real cache backend is wired in.
func (l *Layer) Enabled() bool {
	return l.inner != nil
}
