package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mikey/phish-guard/internal/adapters/cache"
	"github.com/mikey/phish-guard/internal/adapters/filter"
	"github.com/mikey/phish-guard/internal/adapters/httpapi"
	"github.com/mikey/phish-guard/internal/adapters/remote"
	"github.com/mikey/phish-guard/internal/config"
	"github.com/mikey/phish-guard/internal/core"
	"github.com/mikey/phish-guard/internal/features"
	"github.com/mikey/phish-guard/internal/metrics"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newConfig(set func(v *viper.Viper)) *config.Config {
	v := config.NewEmptyViper()
	if set != nil {
		set(v)
	}
	return config.NewFromViper(v)
}

func TestClassifierFactory_Local(t *testing.T) {
	cfg := newConfig(func(v *viper.Viper) {
		v.Set("classifier.url.weights", map[string]any{"has_ip": 10.0})
	})
	f := NewClassifierFactory(cfg, features.DefaultSchema(), zap.NewNop())

	urlClf, err := f.CreateURLClassifier()
	require.NoError(t, err)
	assert.Equal(t, "local-linear", urlClf.Name())

	emailClf, err := f.CreateEmailClassifier()
	require.NoError(t, err)
	assert.Equal(t, "local-lexicon", emailClf.Name())

	assert.NoError(t, f.Close())
}

func TestClassifierFactory_UnknownWeight(t *testing.T) {
	cfg := newConfig(func(v *viper.Viper) {
		v.Set("classifier.url.weights", map[string]any{"page_rank": 1.0})
	})
	_, err := NewClassifierFactory(cfg, features.DefaultSchema(), zap.NewNop()).CreateURLClassifier()
	assert.Error(t, err)
}

func TestClassifierFactory_RemoteIsShared(t *testing.T) {
	cfg := newConfig(func(v *viper.Viper) {
		v.Set("classifier.url.provider", "remote")
		v.Set("classifier.email.provider", "remote")
		v.Set("remote.base_url", "http://models:9000/")
	})
	f := NewClassifierFactory(cfg, features.DefaultSchema(), zap.NewNop())

	urlClf, err := f.CreateURLClassifier()
	require.NoError(t, err)
	emailClf, err := f.CreateEmailClassifier()
	require.NoError(t, err)

	assert.IsType(t, &remote.ModelClient{}, urlClf)
	assert.Same(t, urlClf.(*remote.ModelClient), emailClf.(*remote.ModelClient))
	assert.Equal(t, "remote:http://models:9000", urlClf.Name())
}

func TestClassifierFactory_Errors(t *testing.T) {
	tests := []struct {
		name string
		set  func(v *viper.Viper)
	}{
		{"unknown provider", func(v *viper.Viper) { v.Set("classifier.email.provider", "crystal-ball") }},
		{"gemini without key", func(v *viper.Viper) { v.Set("classifier.email.provider", "gemini") }},
		{"openai without key", func(v *viper.Viper) { v.Set("classifier.email.provider", "openai") }},
		{"remote without url", func(v *viper.Viper) {
			v.Set("classifier.email.provider", "remote")
			v.Set("remote.base_url", "")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewClassifierFactory(newConfig(tt.set), features.DefaultSchema(), zap.NewNop())
			_, err := f.CreateEmailClassifier()
			assert.Error(t, err)
		})
	}
}

func TestCacheFactory(t *testing.T) {
	disabled, err := NewCacheFactory(newConfig(nil), zap.NewNop()).CreateCache()
	require.NoError(t, err)
	assert.Nil(t, disabled)

	memory, err := NewCacheFactory(newConfig(func(v *viper.Viper) {
		v.Set("cache.enabled", true)
		v.Set("cache.cleanup_frequency", "0s")
	}), zap.NewNop()).CreateCache()
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, memory)
	memory.Stop()

	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	sqlite, err := NewCacheFactory(newConfig(func(v *viper.Viper) {
		v.Set("cache.enabled", true)
		v.Set("cache.type", "sqlite")
		v.Set("cache.sqlite_path", path)
		v.Set("cache.cleanup_frequency", "0s")
	}), zap.NewNop()).CreateCache()
	require.NoError(t, err)
	_, err = sqlite.Get(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, core.ErrCacheMiss)
	sqlite.Stop()

	_, err = NewCacheFactory(newConfig(func(v *viper.Viper) {
		v.Set("cache.enabled", true)
		v.Set("cache.type", "floppy")
	}), zap.NewNop()).CreateCache()
	assert.ErrorContains(t, err, "unsupported cache type")
}

type nopDetector struct{}

func (nopDetector) CheckURL(context.Context, string) (*core.URLAnalysisResult, error) {
	return &core.URLAnalysisResult{}, nil
}

func (nopDetector) CheckEmail(context.Context, string) (*core.EmailAnalysisResult, error) {
	return core.ShortCircuitResult(), nil
}

func (nopDetector) SchemaVersion() string { return features.BuiltinSchemaVersion }

func TestFilterFactory(t *testing.T) {
	cfg := newConfig(func(v *viper.Viper) {
		v.Set("server.listeners", []string{"http", "SMTP", "http"})
	})
	f := NewFilterFactory(cfg, zap.NewNop(), nopDetector{}, metrics.NewRecorder())

	listeners, err := f.CreateListeners()
	require.NoError(t, err)
	require.Len(t, listeners, 2)
	assert.IsType(t, &httpapi.Server{}, listeners[0])
	assert.IsType(t, &filter.SMTPFilter{}, listeners[1])

	_, err = f.CreateListener("gopher")
	assert.Error(t, err)
}

func TestPipelineFactory(t *testing.T) {
	cfg := newConfig(func(v *viper.Viper) {
		v.Set("whitelist.domains", []string{"example.com"})
		v.Set("cache.enabled", true)
		v.Set("classifier.email.max_text_size", 100)
	})
	f := NewPipelineFactory(cfg, zap.NewNop())

	schema, err := f.LoadSchema()
	require.NoError(t, err)
	assert.NoError(t, schema.Check(f.CreateExtractor().Names()))

	assert.True(t, f.CreateAllowList().IsAllowed("mail.example.com"))
	assert.False(t, f.CreateAllowList().IsAllowed("example.org"))

	opts := f.ServiceOptions()
	assert.True(t, opts.CacheEnabled)
	assert.Equal(t, 100, opts.MaxEmailSize)
	assert.NotZero(t, opts.CacheTTL)
}
