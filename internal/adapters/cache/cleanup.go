package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/mikey/phish-guard/internal/core"
	"go.uber.org/zap"
)

// StoppableCache is a verdict cache that owns background resources
type StoppableCache interface {
	core.VerdictCache
	Stop()
}

// startCleanupTask periodically removes expired entries until stopCh is closed
func startCleanupTask(c core.VerdictCache, freq time.Duration, stopCh <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-stopCh:
			return
		}
	}
}

// urlKey hashes a URL into a fixed-width key usable as a primary key in any backend
func urlKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
