// Package vectorindex stores embedding vectors with index-aligned chunk
// metadata and answers exact nearest-neighbor queries.
package vectorindex

import (
	"context"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

// Index is the pluggable vector index contract. Flat is the reference
// implementation; an approximate structure can replace it without touching callers.
type Index interface {
	// InsertBatch appends vectors and their metadata atomically and persists.
	InsertBatch(ctx context.Context, vectors [][]float32, metadata []domain.Metadata) error
	// Search returns up to k hits ordered by ascending distance.
	Search(ctx context.Context, query []float32, k int) ([]domain.Hit, error)
	// DeleteByDocID removes every vector of a document and returns how many were removed.
	DeleteByDocID(ctx context.Context, docID string) (int, error)
	// Total returns the number of stored vectors.
	Total() int
	// Documents lists the distinct documents in first-insertion order.
	Documents() []domain.DocumentInfo
	// Dimension returns the fixed vector length.
	Dimension() int
	// Save persists the full state.
	Save(ctx context.Context) error
	// Load replaces the in-memory state with the persisted one, if any.
	Load(ctx context.Context) error
}
