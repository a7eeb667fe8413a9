package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/phish-guard/internal/adapters/cache"
	"github.com/mikey/phish-guard/internal/config"
	"go.uber.org/zap"
)

// CacheFactory creates URL verdict caches based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCache creates the configured cache. It returns nil when caching is disabled.
func (f *CacheFactory) CreateCache() (cache.StoppableCache, error) {
	cacheCfg := f.cfg.GetCache()
	if !cacheCfg.Enabled {
		return nil, nil
	}

	f.logger.Info("Creating verdict cache",
		zap.String("type", cacheCfg.Type),
		zap.Duration("ttl", cacheCfg.TTL))

	var (
		c   cache.StoppableCache
		err error
	)
	switch cacheCfg.Type {
	case "memory":
		c = cache.NewMemoryCache(f.logger, cacheCfg.CleanupFrequency)
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(cacheCfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		c, err = sqlCache(cache.NewSQLiteCache(cacheCfg.SQLitePath, f.logger, cacheCfg.CleanupFrequency))
	case "mysql":
		c, err = sqlCache(cache.NewMySQLCache(cacheCfg.MySQLDSN, f.logger, cacheCfg.CleanupFrequency))
	case "postgres":
		c, err = sqlCache(cache.NewPostgresCache(cacheCfg.PostgresDSN, f.logger, cacheCfg.CleanupFrequency))
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var rc *cache.RedisCache
		rc, err = cache.NewRedisCache(ctx, cache.RedisOptions{
			Address:  cacheCfg.RedisAddress,
			Password: cacheCfg.RedisPassword,
			DB:       cacheCfg.RedisDB,
		}, f.logger)
		if err == nil {
			c = rc
		}
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheCfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s cache: %w", cacheCfg.Type, err)
	}
	return c, nil
}

// sqlCache keeps a failed constructor from yielding a typed nil interface
func sqlCache(c *cache.SQLCache, err error) (cache.StoppableCache, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetCacheTTL returns the configured cache TTL
func (f *CacheFactory) GetCacheTTL() time.Duration {
	return f.cfg.GetCache().TTL
}

// IsCacheEnabled returns whether caching is enabled
func (f *CacheFactory) IsCacheEnabled() bool {
	return f.cfg.GetCache().Enabled
}
