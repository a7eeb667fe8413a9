package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/phish-guard/internal/adapters/filter"
	"github.com/mikey/phish-guard/internal/core"
	"github.com/mikey/phish-guard/internal/features"
	"github.com/mikey/phish-guard/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"
)

func TestBuildContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listeners: [http, smtp]
cache:
  enabled: true
  type: memory
  cleanup_frequency: 0s
whitelist:
  domains: [github.com]
logging:
  level: error
`), 0o600))

	container, err := BuildContainer(path)
	require.NoError(t, err)

	err = container.Invoke(func(detector ports.Detector, listeners []ports.Listener, cache core.VerdictCache) {
		assert.Len(t, listeners, 2)
		assert.NotNil(t, cache)
		assert.Equal(t, features.BuiltinSchemaVersion, detector.SchemaVersion())

		result, err := detector.CheckURL(context.Background(), "https://github.com/login/")
		require.NoError(t, err)
		assert.Equal(t, core.SourceWhitelist, result.Source)
		assert.Equal(t, "https://github.com/login", result.URL)
	})
	require.NoError(t, err)
}

func TestBuildContainer_SchemaMismatchFails(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte("version: v9\nfeatures: [url_length, page_rank]\n"), 0o600))

	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("classifier:\n  schema_path: "+schemaPath+"\nlogging:\n  level: error\n"), 0o600))

	container, err := BuildContainer(configPath)
	require.NoError(t, err)

	err = container.Invoke(func(ports.Detector) {})
	var mismatch *features.SchemaMismatchError
	assert.ErrorAs(t, dig.RootCause(err), &mismatch)
}

func TestParseFlags(t *testing.T) {
	flags, err := ParseFlags([]string{"-url", "https://a.example", "-url", "http://1.2.3.4/x", "-whitelist", "example.com", "-concurrency", "8"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "http://1.2.3.4/x"}, []string(flags.URLs))
	assert.Equal(t, []string{"example.com"}, []string(flags.Whitelist))
	assert.Equal(t, 8, flags.Concurrency)
	assert.Equal(t, "local", flags.URLProvider)

	_, err = ParseFlags(nil)
	assert.ErrorContains(t, err, "nothing to check")

	_, err = ParseFlags([]string{"-bogus"})
	assert.Error(t, err)
}

func TestBuildCLIContainer(t *testing.T) {
	flags, err := ParseFlags([]string{"-text", "Urgent: verify your password now", "-whitelist", "example.com"})
	require.NoError(t, err)

	container, err := BuildCLIContainer(flags)
	require.NoError(t, err)

	err = container.Invoke(func(cli *filter.CLIFilter) {
		results, err := cli.CheckURLs(context.Background(), []string{"https://example.com/"}, flags.Concurrency)
		require.NoError(t, err)
		assert.Equal(t, core.SourceWhitelist, results[0].Source)

		result, err := cli.CheckText(context.Background(), flags.Text)
		require.NoError(t, err)
		assert.NotEmpty(t, result.Label)
	})
	require.NoError(t, err)
}

func TestBuildCLIContainer_BadTimeout(t *testing.T) {
	flags, err := ParseFlags([]string{"-text", "x", "-timeout", "soon"})
	require.NoError(t, err)

	container, err := BuildCLIContainer(flags)
	require.NoError(t, err)
	assert.Error(t, container.Invoke(func(*filter.CLIFilter) {}))
}
