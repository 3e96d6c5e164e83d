package vecrag

import "context"

// Embedder converts text to vector embeddings. Vectors must have the
// dimension configured with WithDimension.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Generator writes an answer to question from the retrieved passages.
type Generator interface {
	Generate(ctx context.Context, question, passages string) (string, error)
}
