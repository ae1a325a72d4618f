package market

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	topCoinsTTL = 30 * time.Second
	klinesTTL   = 10 * time.Second

	keyPrefix = "market"
)

// Cache is an advisory redis cache for market data. Misses and redis
// failures fall through to the upstream; the cache is never authoritative.
// Chain state is never cached here or anywhere else.
type Cache struct {
	rdb *redis.Client
	log *slog.Logger
}

// NewCache connects a cache to a redis instance.
func NewCache(addr, password string, db int, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		log: log.With(slog.String("component", "market-cache")),
	}
}

// Ping verifies the redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// GetJSON loads a cached value into out. Returns false on miss or any
// redis/decode failure.
func (c *Cache) GetJSON(ctx context.Context, key string, out any) bool {
	if c == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	return true
}

// SetJSON stores a value with a TTL. Failures are logged and ignored.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.log.Warn("cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

// cacheKey builds a namespaced key; ok is false when caching is disabled.
func (c *Client) cacheKey(parts ...string) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	return keyPrefix + ":" + strings.Join(parts, ":"), true
}
