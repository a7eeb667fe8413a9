package factory

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/mikey/phish-guard/internal/adapters/bedrock"
	"github.com/mikey/phish-guard/internal/adapters/gemini"
	"github.com/mikey/phish-guard/internal/adapters/local"
	"github.com/mikey/phish-guard/internal/adapters/openai"
	"github.com/mikey/phish-guard/internal/adapters/remote"
	"github.com/mikey/phish-guard/internal/config"
	"github.com/mikey/phish-guard/internal/core"
	"github.com/mikey/phish-guard/internal/features"
	"go.uber.org/zap"
)

// Classifier providers
const (
	ProviderLocal   = "local"
	ProviderRemote  = "remote"
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
)

// classifier is implemented by every backend that serves both URL and email scoring
type classifier interface {
	core.URLClassifier
	core.EmailClassifier
}

// ClassifierFactory creates URL and email classifiers based on configuration.
// Shared backends are built once and reused for both roles.
type ClassifierFactory struct {
	cfg    *config.Config
	schema features.Schema
	logger *zap.Logger

	mu      sync.Mutex
	shared  map[string]classifier
	closers []io.Closer
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, schema features.Schema, logger *zap.Logger) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:    cfg,
		schema: schema,
		logger: logger,
		shared: make(map[string]classifier),
	}
}

// CreateURLClassifier creates the URL classifier named by classifier.url.provider
func (f *ClassifierFactory) CreateURLClassifier() (core.URLClassifier, error) {
	clfCfg := f.cfg.GetClassifier()

	if clfCfg.URLProvider == ProviderLocal {
		weights := local.DefaultURLWeights()
		for name, weight := range clfCfg.URLWeights {
			weights[name] = weight
		}
		return local.NewLinearURLClassifier(weights, clfCfg.URLBias, clfCfg.URLThreshold, f.logger)
	}

	c, err := f.sharedClassifier(clfCfg.URLProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create URL classifier: %w", err)
	}
	return c, nil
}

// CreateEmailClassifier creates the email classifier named by classifier.email.provider
func (f *ClassifierFactory) CreateEmailClassifier() (core.EmailClassifier, error) {
	clfCfg := f.cfg.GetClassifier()

	if clfCfg.EmailProvider == ProviderLocal {
		return local.NewLexiconEmailClassifier(local.DefaultKeywordGroups(), clfCfg.EmailBias, f.logger), nil
	}

	c, err := f.sharedClassifier(clfCfg.EmailProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create email classifier: %w", err)
	}
	return c, nil
}

// Close releases backends that hold connections
func (f *ClassifierFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for _, c := range f.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	f.closers = nil
	return errors.Join(errs...)
}

func (f *ClassifierFactory) sharedClassifier(provider string) (classifier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.shared[provider]; ok {
		return c, nil
	}

	var c classifier
	switch provider {
	case ProviderRemote:
		remoteCfg := f.cfg.GetRemote()
		if remoteCfg.BaseURL == "" {
			return nil, errors.New("remote.base_url is required")
		}
		c = remote.NewModelClient(remoteCfg.BaseURL, f.schema.Version, remoteCfg.Timeout, f.logger)
	case ProviderBedrock:
		client, err := bedrock.NewFactory(f.cfg, f.logger).CreateClient()
		if err != nil {
			return nil, err
		}
		c = client
	case ProviderGemini:
		client, err := gemini.NewFactory(f.cfg, f.logger).CreateClient()
		if err != nil {
			return nil, err
		}
		f.closers = append(f.closers, client)
		c = client
	case ProviderOpenAI:
		client, err := openai.NewFactory(f.cfg, f.logger).CreateClient()
		if err != nil {
			return nil, err
		}
		c = client
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", provider)
	}

	f.logger.Info("Created classifier backend", zap.String("provider", provider), zap.String("name", c.Name()))
	f.shared[provider] = c
	return c, nil
}
