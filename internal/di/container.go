package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phish-guard/internal/adapters/cache"
	"github.com/mikey/phish-guard/internal/config"
	"github.com/mikey/phish-guard/internal/core"
	"github.com/mikey/phish-guard/internal/factory"
	"github.com/mikey/phish-guard/internal/logging"
	"github.com/mikey/phish-guard/internal/metrics"
	"github.com/mikey/phish-guard/internal/ports"
)

// BuildContainer creates and configures the daemon's dependency injection
// container. An empty configPath searches the standard config locations.
func BuildContainer(configPath string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.Load(configPath)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register metrics
	if err := container.Provide(metrics.NewRecorder); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	// Register cache factory and cache
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory) (cache.StoppableCache, error) {
		return f.CreateCache()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(c cache.StoppableCache) core.VerdictCache {
		if c == nil {
			return nil
		}
		return c
	}); err != nil {
		return nil, err
	}

	if err := provideService(container); err != nil {
		return nil, err
	}

	// Register listeners
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FilterFactory) ([]ports.Listener, error) {
		return f.CreateListeners()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// providePipeline registers the schema, extractor, normalizer and classifiers
func providePipeline(container *dig.Container) error {
	if err := container.Provide(factory.NewPipelineFactory); err != nil {
		return err
	}
	if err := container.Provide((*factory.PipelineFactory).LoadSchema); err != nil {
		return err
	}
	if err := container.Provide((*factory.PipelineFactory).CreateExtractor); err != nil {
		return err
	}
	if err := container.Provide((*factory.PipelineFactory).CreateTextProcessor); err != nil {
		return err
	}
	if err := container.Provide((*factory.PipelineFactory).CreateAllowList); err != nil {
		return err
	}

	// Register classifiers
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return err
	}
	if err := container.Provide((*factory.ClassifierFactory).CreateURLClassifier); err != nil {
		return err
	}
	return container.Provide((*factory.ClassifierFactory).CreateEmailClassifier)
}

// provideService registers the detection service and exposes it as a Detector
func provideService(container *dig.Container) error {
	if err := container.Provide((*factory.PipelineFactory).ServiceOptions); err != nil {
		return err
	}
	if err := container.Provide(core.NewDetectionService); err != nil {
		return err
	}
	return container.Provide(func(s *core.DetectionService, logger *zap.Logger) ports.Detector {
		logger.Debug("Detector ready", zap.String("schema_version", s.SchemaVersion()))
		return s
	})
}
