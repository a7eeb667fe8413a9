package core

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when a required input field is absent
	ErrValidation = errors.New("validation failed")

	// ErrCacheMiss is returned by caches when no live entry exists
	ErrCacheMiss = errors.New("cache entry not found")
)

// ClassifierError wraps a failure of an external classifier
type ClassifierError struct {
	Classifier string
	Err        error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("classifier %s failed: %v", e.Classifier, e.Err)
}

func (e *ClassifierError) Unwrap() error {
	return e.Err
}
