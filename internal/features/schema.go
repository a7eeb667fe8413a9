package features

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// BuiltinSchemaVersion identifies the schema used when no schema file is configured
const BuiltinSchemaVersion = "builtin-v1"

// Feature is a single named feature value
type Feature struct {
	Name  string
	Value float64
}

// Vector is the ordered output of Extract
type Vector []Feature

// Get returns the value of a named feature
func (v Vector) Get(name string) (float64, bool) {
	for _, f := range v {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

// Names returns the feature names in vector order
func (v Vector) Names() []string {
	names := make([]string, len(v))
	for i, f := range v {
		names[i] = f.Name
	}
	return names
}

// Map returns the features keyed by name
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, len(v))
	for _, f := range v {
		m[f.Name] = f.Value
	}
	return m
}

// Ordered projects the vector onto the column order of the schema
func (v Vector) Ordered(schema Schema) (OrderedVector, error) {
	if err := schema.Check(v.Names()); err != nil {
		return OrderedVector{}, err
	}

	values := v.Map()
	ordered := OrderedVector{
		Names:  make([]string, len(schema.Names)),
		Values: make([]float64, len(schema.Names)),
	}
	for i, name := range schema.Names {
		value := values[name]
		if math.IsNaN(value) || math.IsInf(value, 0) {
			value = 0
		}
		ordered.Names[i] = name
		ordered.Values[i] = value
	}
	return ordered, nil
}

// OrderedVector is a feature vector laid out in a classifier's column order
type OrderedVector struct {
	Names  []string
	Values []float64
}

// Schema is the ordered list of feature columns a URL classifier was trained on
type Schema struct {
	Version string
	Names   []string
}

// DefaultSchema returns the schema matching the extractor's canonical order
func DefaultSchema() Schema {
	names := make([]string, len(Names))
	copy(names, Names)
	return Schema{Version: BuiltinSchemaVersion, Names: names}
}

// LoadSchema reads a schema file with "version" and "features" keys.
// An empty path yields the built-in schema.
func LoadSchema(path string) (Schema, error) {
	if path == "" {
		return DefaultSchema(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Schema{}, fmt.Errorf("failed to read feature schema %s: %w", path, err)
	}

	names := v.GetStringSlice("features")
	if len(names) == 0 {
		return Schema{}, fmt.Errorf("feature schema %s lists no features", path)
	}
	for i, name := range names {
		names[i] = strings.TrimSpace(name)
	}

	version := v.GetString("version")
	if version == "" {
		version = "unversioned"
	}
	return Schema{Version: version, Names: names}, nil
}

// Check verifies that names is exactly the schema's set of features
func (s Schema) Check(names []string) error {
	expected := make(map[string]int, len(s.Names))
	for _, name := range s.Names {
		expected[name]++
	}
	got := make(map[string]int, len(names))
	for _, name := range names {
		got[name]++
	}

	var mismatch SchemaMismatchError
	mismatch.Version = s.Version
	for name, n := range expected {
		if got[name] == 0 {
			mismatch.Missing = append(mismatch.Missing, name)
		} else if n > 1 {
			mismatch.Duplicated = append(mismatch.Duplicated, name)
		}
	}
	for name := range got {
		if expected[name] == 0 {
			mismatch.Unexpected = append(mismatch.Unexpected, name)
		}
	}

	if len(mismatch.Missing)+len(mismatch.Unexpected)+len(mismatch.Duplicated) == 0 {
		return nil
	}
	sort.Strings(mismatch.Missing)
	sort.Strings(mismatch.Unexpected)
	sort.Strings(mismatch.Duplicated)
	return &mismatch
}

// SchemaMismatchError reports a disagreement between extracted feature names and a schema.
// It is a configuration error.
type SchemaMismatchError struct {
	Version    string
	Missing    []string
	Unexpected []string
	Duplicated []string
}

func (e *SchemaMismatchError) Error() string {
	var details []string
	if len(e.Missing) > 0 {
		details = append(details, "not extracted: "+strings.Join(e.Missing, ","))
	}
	if len(e.Unexpected) > 0 {
		details = append(details, "not in schema: "+strings.Join(e.Unexpected, ","))
	}
	if len(e.Duplicated) > 0 {
		details = append(details, "duplicated in schema: "+strings.Join(e.Duplicated, ","))
	}
	return fmt.Sprintf("feature schema %s mismatch (%s)", e.Version, strings.Join(details, "; "))
}
