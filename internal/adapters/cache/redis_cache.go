package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/phish-guard/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "phish-guard:url:"

// RedisOptions holds the connection settings for the Redis cache
type RedisOptions struct {
	Address  string
	Password string
	DB       int
}

// redisEntry is the JSON form of a cache entry stored in Redis
type redisEntry struct {
	URL        string    `json:"url"`
	IsPhishing bool      `json:"is_phishing"`
	ModelUsed  string    `json:"model_used"`
	LastSeen   time.Time `json:"last_seen"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// RedisCache is a Redis implementation of core.VerdictCache. Expiry is
// delegated to Redis key TTLs.
type RedisCache struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisCache connects to Redis and creates a new cache
func NewRedisCache(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheWithClient(client, logger), nil
}

// NewRedisCacheWithClient creates a cache on an existing client
func NewRedisCacheWithClient(client redis.UniversalClient, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger,
	}
}

// Get retrieves a cached entry for a URL
func (c *RedisCache) Get(ctx context.Context, url string) (*core.CacheEntry, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+urlKey(url)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	var stored redisEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}

	return &core.CacheEntry{
		URL:        stored.URL,
		IsPhishing: stored.IsPhishing,
		ModelUsed:  stored.ModelUsed,
		LastSeen:   stored.LastSeen,
		ExpiresAt:  stored.ExpiresAt,
	}, nil
}

// Set stores a cache entry with a TTL derived from its expiry
func (c *RedisCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(redisEntry{
		URL:        entry.URL,
		IsPhishing: entry.IsPhishing,
		ModelUsed:  entry.ModelUsed,
		LastSeen:   entry.LastSeen,
		ExpiresAt:  entry.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := c.client.Set(ctx, redisKeyPrefix+urlKey(entry.URL), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *RedisCache) Delete(ctx context.Context, url string) error {
	if err := c.client.Del(ctx, redisKeyPrefix+urlKey(url)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup is a no-op; Redis expires keys on its own
func (c *RedisCache) Cleanup(ctx context.Context) error {
	return nil
}

// Stop closes the Redis connection
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", zap.Error(err))
	}
}
