// Package document ingests documents into the vector index and removes them.
package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/metrics"
)

// DefaultWorkers bounds concurrent embedding calls per document.
const DefaultWorkers = 4

// Stats summarizes one ingested document.
type Stats struct {
	ChunkCount  int
	TotalTokens int
}

// Service runs the ingestion pipeline: chunk, embed, insert.
type Service struct {
	index    Index
	chunker  Chunker
	embedder Embedder
	workers  int
	logger   *zap.Logger
}

// New creates a document service.
func New(index Index, chunker Chunker, embedder Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		index:    index,
		chunker:  chunker,
		embedder: embedder,
		workers:  DefaultWorkers,
		logger:   logger,
	}
}

// WithWorkers configures the embedding worker pool size.
func (s *Service) WithWorkers(n int) *Service {
	if n > 0 {
		s.workers = n
	}
	return s
}

// ProcessAndIndex chunks rawText, embeds every chunk and inserts the batch.
// Nothing is inserted unless every chunk embeds successfully. Text that
// yields no chunks is accepted and leaves the index untouched.
func (s *Service) ProcessAndIndex(ctx context.Context, rawText, docID, filename string) (Stats, error) {
	if strings.TrimSpace(docID) == "" {
		return Stats{}, fmt.Errorf("doc_id is required: %w", domain.ErrInvalidRequest)
	}

	start := time.Now()
	chunks := s.chunker.Split(rawText)
	stats := Stats{
		ChunkCount:  len(chunks),
		TotalTokens: s.chunker.CountTokens(rawText),
	}

	if len(chunks) == 0 {
		metrics.DocumentsIngestedTotal.WithLabelValues("empty").Inc()
		s.logger.Info("Document produced no chunks",
			zap.String("doc_id", docID),
			zap.String("filename", filename),
		)
		return stats, nil
	}

	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, c := range chunks {
		g.Go(func() error {
			res, err := s.embedder.Embed(gctx, c.Text())
			if err != nil {
				return fmt.Errorf("chunk %d: %w", c.Index(), err)
			}
			vectors[i] = res.Embedding
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.DocumentsIngestedTotal.WithLabelValues("error").Inc()
		return Stats{}, fmt.Errorf("embed chunks: %w", err)
	}

	metadata := make([]domain.Metadata, len(chunks))
	for i, c := range chunks {
		metadata[i] = domain.Metadata{
			DocID:      docID,
			Filename:   filename,
			ChunkIndex: c.Index(),
			Text:       c.Text(),
			TokenCount: c.TokenCount(),
		}
	}

	if err := s.index.InsertBatch(ctx, vectors, metadata); err != nil {
		metrics.DocumentsIngestedTotal.WithLabelValues("error").Inc()
		return Stats{}, fmt.Errorf("index chunks: %w", err)
	}

	metrics.DocumentsIngestedTotal.WithLabelValues("success").Inc()
	s.logger.Info("Document indexed",
		zap.String("doc_id", docID),
		zap.String("filename", filename),
		zap.Int("chunks", stats.ChunkCount),
		zap.Int("total_tokens", stats.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return stats, nil
}

// DeleteDocument removes every vector of docID and returns how many were removed.
func (s *Service) DeleteDocument(ctx context.Context, docID string) (int, error) {
	if strings.TrimSpace(docID) == "" {
		return 0, fmt.Errorf("doc_id is required: %w", domain.ErrInvalidRequest)
	}
	removed, err := s.index.DeleteByDocID(ctx, docID)
	if err != nil {
		return 0, fmt.Errorf("delete document: %w", err)
	}
	return removed, nil
}

// TotalVectors returns the number of vectors in the index.
func (s *Service) TotalVectors() int {
	return s.index.Total()
}

// ListDocuments returns the indexed documents in first-insertion order.
func (s *Service) ListDocuments() []domain.DocumentInfo {
	return s.index.Documents()
}
