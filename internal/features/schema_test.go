package features

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchema(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSchema_DefaultWhenNoPath(t *testing.T) {
	schema, err := LoadSchema("")
	require.NoError(t, err)
	assert.Equal(t, BuiltinSchemaVersion, schema.Version)
	assert.Equal(t, Names, schema.Names)
	assert.NoError(t, schema.Check(NewExtractor().Names()))
}

func TestLoadSchema_YAMLReordersColumns(t *testing.T) {
	path := writeSchema(t, "schema.yaml", `
version: xgb-2024-06
features:
  - path_entropy
  - url_entropy
  - has_www
  - has_https
  - num_subdomains
  - has_ip
  - digit_ratio
  - num_digits
  - num_special_chars
  - num_hyphens
  - num_dots
  - path_length
  - domain_length
  - url_length
`)

	schema, err := LoadSchema(path)
	require.NoError(t, err)
	assert.Equal(t, "xgb-2024-06", schema.Version)

	vec := NewExtractor().Extract("https://www.example.com/login")
	ordered, err := vec.Ordered(schema)
	require.NoError(t, err)

	assert.Equal(t, schema.Names, ordered.Names)
	assert.Equal(t, 29.0, ordered.Values[13])
	assert.Equal(t, 1.0, ordered.Values[2])
}

func TestLoadSchema_JSON(t *testing.T) {
	path := writeSchema(t, "schema.json", `{"features": ["url_length", "domain_length"]}`)

	schema, err := LoadSchema(path)
	require.NoError(t, err)
	assert.Equal(t, "unversioned", schema.Version)
	assert.Len(t, schema.Names, 2)
}

func TestLoadSchema_Errors(t *testing.T) {
	_, err := LoadSchema(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeSchema(t, "empty.yaml", "version: v1\n")
	_, err = LoadSchema(path)
	assert.Error(t, err)
}

func TestSchema_CheckMismatch(t *testing.T) {
	schema := Schema{
		Version: "v2",
		Names:   []string{"url_length", "domain_length", "domain_length", "tld_rank"},
	}

	err := schema.Check(Names)
	require.Error(t, err)

	var mismatch *SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []string{"tld_rank"}, mismatch.Missing)
	assert.Equal(t, []string{"domain_length"}, mismatch.Duplicated)
	assert.Contains(t, mismatch.Unexpected, "has_ip")
	assert.Contains(t, err.Error(), "v2")
}

func TestVector_OrderedRejectsMismatch(t *testing.T) {
	vec := NewExtractor().Extract("http://example.com")
	_, err := vec.Ordered(Schema{Version: "short", Names: []string{"url_length"}})

	var mismatch *SchemaMismatchError
	assert.ErrorAs(t, err, &mismatch)
}
