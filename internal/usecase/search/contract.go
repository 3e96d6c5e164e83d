package search

import (
	"context"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

// Index is the read side of the vector index used by retrieval.
type Index interface {
	Search(ctx context.Context, query []float32, k int) ([]domain.Hit, error)
}

// Embedder vectorizes the question.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Generator synthesizes an answer from the question and retrieved context.
type Generator interface {
	Generate(ctx context.Context, question, passages string) (string, error)
}
