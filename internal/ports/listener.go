package ports

import (
	"context"

	"github.com/mikey/phish-guard/internal/core"
)

// Detector is the detection surface exposed to transports
type Detector interface {
	// CheckURL classifies a URL as phishing or safe
	CheckURL(ctx context.Context, url string) (*core.URLAnalysisResult, error)

	// CheckEmail classifies raw email text
	CheckEmail(ctx context.Context, text string) (*core.EmailAnalysisResult, error)

	// SchemaVersion reports the feature schema in use
	SchemaVersion() string
}

// Listener is a network front-end that feeds requests to a Detector
type Listener interface {
	// Start starts serving in the background
	Start() error

	// Stop stops serving
	Stop() error
}
