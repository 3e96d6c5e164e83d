// Package search answers questions from the passages nearest to them.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/metrics"
)

const (
	// DefaultTopK is used when the caller passes a non-positive topK.
	DefaultTopK = 5
	// NoResultsAnswer is returned when the index yields no hits.
	NoResultsAnswer = "No relevant documents found."
	// ErrorAnswerPrefix precedes the error text when a query fails.
	ErrorAnswerPrefix = "Error processing query: "

	contextSeparator = "\n\n"
	unknownFilename  = "Unknown"
)

// Source identifies a document that contributed to an answer.
type Source struct {
	DocID      string `json:"doc_id"`
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunk_index"`
}

// Result is the outcome of one question.
type Result struct {
	QueryID string
	Answer  string
	Sources []Source
	// Failed is set when Answer carries an error message instead of an answer.
	Failed bool
}

// Service is the retrieval orchestrator.
type Service struct {
	index     Index
	embedder  Embedder
	generator Generator
	logger    *zap.Logger
}

// New creates a search service.
func New(index Index, embedder Embedder, generator Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{index: index, embedder: embedder, generator: generator, logger: logger}
}

// AnswerQuery embeds the question, retrieves the topK nearest chunks and asks
// the generator for an answer grounded in them. It never returns an error:
// failures are reported through Result.Answer.
func (s *Service) AnswerQuery(ctx context.Context, question string, topK int) Result {
	if topK <= 0 {
		topK = DefaultTopK
	}
	queryID := uuid.NewString()
	log := s.logger.With(zap.String("query_id", queryID))

	hits, err := s.retrieve(ctx, question, topK)
	if err != nil {
		return s.failed(log, queryID, err)
	}

	if len(hits) == 0 {
		metrics.QueriesTotal.WithLabelValues("no_hits").Inc()
		log.Info("Query matched no documents")
		return Result{QueryID: queryID, Answer: NoResultsAnswer, Sources: []Source{}}
	}

	answer, err := s.generator.Generate(ctx, question, BuildContext(hits))
	if err != nil {
		return s.failed(log, queryID, fmt.Errorf("generate answer: %w", err))
	}

	sources := DedupSources(hits)
	metrics.QueriesTotal.WithLabelValues("answered").Inc()
	log.Info("Query answered",
		zap.Int("hits", len(hits)),
		zap.Int("sources", len(sources)),
	)
	return Result{QueryID: queryID, Answer: answer, Sources: sources}
}

func (s *Service) retrieve(ctx context.Context, question string, topK int) ([]domain.Hit, error) {
	emb, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("vectorize question: %w", err)
	}
	hits, err := s.index.Search(ctx, emb.Embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return hits, nil
}

func (s *Service) failed(log *zap.Logger, queryID string, err error) Result {
	metrics.QueriesTotal.WithLabelValues("error").Inc()
	log.Error("Query failed", zap.Error(err))
	return Result{
		QueryID: queryID,
		Answer:  ErrorAnswerPrefix + err.Error(),
		Sources: []Source{},
		Failed:  true,
	}
}

// BuildContext joins hit texts in rank order separated by a blank line.
func BuildContext(hits []domain.Hit) string {
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}
	return strings.Join(texts, contextSeparator)
}

// DedupSources keeps the first hit of each document, in rank order. Hits
// without a doc id are not attributable and are skipped.
func DedupSources(hits []domain.Hit) []Source {
	seen := make(map[string]struct{}, len(hits))
	sources := make([]Source, 0, len(hits))
	for _, h := range hits {
		if h.DocID == "" {
			continue
		}
		if _, ok := seen[h.DocID]; ok {
			continue
		}
		seen[h.DocID] = struct{}{}
		filename := h.Filename
		if filename == "" {
			filename = unknownFilename
		}
		sources = append(sources, Source{DocID: h.DocID, Filename: filename, ChunkIndex: h.ChunkIndex})
	}
	return sources
}
