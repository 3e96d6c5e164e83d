package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration signals invalid construction or call parameters.
	ErrConfiguration = errors.New("configuration error")
	// ErrDimensionMismatch signals a vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrLengthMismatch signals vectors and metadata of different counts.
	ErrLengthMismatch = errors.New("vectors and metadata length mismatch")
	// ErrCapabilityFailure signals a failed embed or generate call.
	ErrCapabilityFailure = errors.New("capability failure")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = fmt.Errorf("embedding provider error: %w", ErrCapabilityFailure)
	// ErrGenerationProviderError signals an answer generation provider failure.
	ErrGenerationProviderError = fmt.Errorf("generation provider error: %w", ErrCapabilityFailure)
	// ErrUnsupportedFileType signals an upload with an extension we cannot read as text.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrInvalidRequest signals a malformed request.
	ErrInvalidRequest = errors.New("invalid request")
)

// ConfigError wraps ErrConfiguration with the offending parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration.Error(), e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// NewConfigError creates a configuration error for a single field.
func NewConfigError(field, reason string) error {
	return &ConfigError{Field: field, Reason: reason}
}
