package factory

import (
	"github.com/mikey/phish-guard/internal/config"
	"github.com/mikey/phish-guard/internal/core"
	"github.com/mikey/phish-guard/internal/features"
	"github.com/mikey/phish-guard/internal/utils"
	"github.com/mikey/phish-guard/internal/whitelist"
	"go.uber.org/zap"
)

// PipelineFactory creates the stateless pieces of the detection pipeline
type PipelineFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewPipelineFactory creates a new PipelineFactory
func NewPipelineFactory(cfg *config.Config, logger *zap.Logger) *PipelineFactory {
	return &PipelineFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextProcessor creates a new TextProcessor
func (f *PipelineFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger)
}

// CreateExtractor creates the URL feature extractor
func (f *PipelineFactory) CreateExtractor() *features.Extractor {
	return features.NewExtractor()
}

// LoadSchema loads the feature schema named by classifier.schema_path
func (f *PipelineFactory) LoadSchema() (features.Schema, error) {
	schema, err := features.LoadSchema(f.cfg.GetClassifier().SchemaPath)
	if err != nil {
		return features.Schema{}, err
	}
	f.logger.Info("Loaded feature schema",
		zap.String("version", schema.Version),
		zap.Int("features", len(schema.Names)))
	return schema, nil
}

// CreateAllowList creates the domain whitelist
func (f *PipelineFactory) CreateAllowList() core.AllowList {
	return whitelist.NewChecker(f.cfg.GetStringSlice("whitelist.domains"), f.logger)
}

// ServiceOptions returns the detection service tunables
func (f *PipelineFactory) ServiceOptions() core.ServiceOptions {
	cacheCfg := f.cfg.GetCache()
	return core.ServiceOptions{
		CacheEnabled: cacheCfg.Enabled,
		CacheTTL:     cacheCfg.TTL,
		MaxEmailSize: f.cfg.GetClassifier().MaxEmailSize,
	}
}
