package vecrag

import "github.com/kailas-cloud/vecrag/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrConfiguration           = domain.ErrConfiguration
	ErrDimensionMismatch       = domain.ErrDimensionMismatch
	ErrLengthMismatch          = domain.ErrLengthMismatch
	ErrCapabilityFailure       = domain.ErrCapabilityFailure
	ErrEmbeddingProviderError  = domain.ErrEmbeddingProviderError
	ErrGenerationProviderError = domain.ErrGenerationProviderError
	ErrInvalidRequest          = domain.ErrInvalidRequest
)
