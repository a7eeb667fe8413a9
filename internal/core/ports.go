package core

import (
	"context"

	"github.com/mikey/phish-guard/internal/features"
)

// URLClassifier scores a URL feature vector laid out in the schema's column order.
// It returns the discrete class 1 for phishing and 0 for safe.
type URLClassifier interface {
	ClassifyURL(ctx context.Context, url string, vec features.OrderedVector) (int, error)

	// Name identifies the backend in results and logs
	Name() string
}

// EmailClassifier scores normalized email text
type EmailClassifier interface {
	ClassifyEmail(ctx context.Context, text string) (EmailProbabilities, error)

	// Name identifies the backend in results and logs
	Name() string
}

// VerdictCache defines the interface for caching URL verdicts
type VerdictCache interface {
	// Get retrieves a cached entry for a URL, or ErrCacheMiss
	Get(ctx context.Context, url string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, url string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}
