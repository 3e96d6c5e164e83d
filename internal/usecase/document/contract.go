package document

import (
	"context"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/chunk"
)

// Index is the write side of the vector index used by ingestion.
type Index interface {
	InsertBatch(ctx context.Context, vectors [][]float32, metadata []domain.Metadata) error
	DeleteByDocID(ctx context.Context, docID string) (int, error)
	Total() int
	Documents() []domain.DocumentInfo
}

// Chunker splits raw text into token windows.
type Chunker interface {
	Split(text string) []chunk.Chunk
	CountTokens(text string) int
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
