package vecrag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/db"
	dbFile "github.com/kailas-cloud/vecrag/internal/db/file"
	dbSQLite "github.com/kailas-cloud/vecrag/internal/db/sqlite"
	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/chunk"
	"github.com/kailas-cloud/vecrag/internal/repository/vectorindex"
	"github.com/kailas-cloud/vecrag/internal/tokenizer"
	openaiTransport "github.com/kailas-cloud/vecrag/internal/transport/openai"
	documentuc "github.com/kailas-cloud/vecrag/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/vecrag/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vecrag/internal/usecase/health"
	searchuc "github.com/kailas-cloud/vecrag/internal/usecase/search"
)

const sdkProvider = "sdk"

// Internal interfaces for substitution in tests.
type documentUseCase interface {
	ProcessAndIndex(ctx context.Context, rawText, docID, filename string) (documentuc.Stats, error)
	DeleteDocument(ctx context.Context, docID string) (int, error)
	ListDocuments() []domain.DocumentInfo
	TotalVectors() int
}

type searchUseCase interface {
	AnswerQuery(ctx context.Context, question string, topK int) searchuc.Result
}

// Client is the vecrag SDK entry point.
type Client struct {
	store     db.SnapshotStore
	docSvc    documentUseCase
	searchSvc searchUseCase
	healthSvc healthUseCase
	dimension int
	obs       *observer
}

// New builds the pipeline and loads a persisted index if one is configured.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		chunkSize:    chunk.DefaultSize,
		chunkOverlap: chunk.DefaultOverlap,
		workers:      documentuc.DefaultWorkers,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.dimension <= 0 {
		return nil, fmt.Errorf("vecrag: dimension required (use WithDimension): %w", ErrConfiguration)
	}
	embedder, generator := resolveCapabilities(cfg)
	if embedder == nil {
		return nil, fmt.Errorf("vecrag: embedder required (use WithEmbedder or WithOpenAI): %w", ErrConfiguration)
	}

	tok, err := tokenizer.New(cfg.tokenizer, "")
	if err != nil {
		return nil, fmt.Errorf("vecrag: %w", err)
	}
	chunker, err := chunk.New(tok, cfg.chunkSize, cfg.chunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("vecrag: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	idx, err := vectorindex.NewFlat(cfg.dimension, store, zap.NewNop())
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("vecrag: %w", err)
	}
	if err := idx.Load(ctx); err != nil {
		closeStore(store)
		return nil, fmt.Errorf("vecrag: %w", err)
	}

	instrumented := embeddinguc.NewInstrumentedEmbedder(embedder, sdkProvider, "", cfg.dimension, zap.NewNop())

	var indexPinger healthuc.Pinger
	if store != nil {
		indexPinger = store
	}

	return &Client{
		store:     store,
		docSvc:    documentuc.New(idx, chunker, instrumented, zap.NewNop()).WithWorkers(cfg.workers),
		searchSvc: searchuc.New(idx, instrumented, generator, zap.NewNop()),
		healthSvc: healthuc.New(indexPinger, instrumented, nil),
		dimension: cfg.dimension,
		obs:       obs,
	}, nil
}

// resolveCapabilities picks explicit implementations over the OpenAI ones.
func resolveCapabilities(cfg *clientConfig) (domain.Embedder, domain.Generator) {
	var (
		embedder  domain.Embedder
		generator domain.Generator = noopGenerator{}
	)
	if cfg.openai != nil {
		base := openaiTransport.Config{
			APIKey:   cfg.openai.apiKey,
			BaseURL:  cfg.openai.baseURL,
			Model:    cfg.openai.embeddingModel,
			Provider: sdkProvider,
		}
		embedder = openaiTransport.NewEmbedder(&base)
		if cfg.openai.chatModel != "" {
			chat := base
			chat.Model = cfg.openai.chatModel
			generator = openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{Config: chat})
		}
	}
	if cfg.embedder != nil {
		embedder = &embedderAdapter{inner: cfg.embedder}
	}
	if cfg.generator != nil {
		generator = cfg.generator
	}
	return embedder, generator
}

func createStore(cfg *clientConfig) (db.SnapshotStore, error) {
	switch {
	case cfg.sqlitePath != "":
		s, err := dbSQLite.NewStore(cfg.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("vecrag: open sqlite index: %w", err)
		}
		return s, nil
	case cfg.indexDir != "":
		s, err := dbFile.NewStore(cfg.indexDir)
		if err != nil {
			return nil, fmt.Errorf("vecrag: open file index: %w", err)
		}
		return s, nil
	default:
		return nil, nil
	}
}

func closeStore(s db.SnapshotStore) {
	if s != nil {
		_ = s.Close()
	}
}

// Close releases the index storage.
func (c *Client) Close() error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Close(); err != nil {
		return fmt.Errorf("vecrag: close index: %w", err)
	}
	return nil
}

// Ingest chunks, embeds and indexes text. An empty docID gets a random UUID.
// Either every chunk of the document is indexed or none is.
func (c *Client) Ingest(ctx context.Context, docID, filename, text string) (res IngestResult, err error) {
	start := time.Now()
	if docID == "" {
		docID = uuid.NewString()
	}
	defer func() { c.obs.observe("ingest", start, err, "doc_id", docID) }()

	stats, err := c.docSvc.ProcessAndIndex(ctx, text, docID, filename)
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest: %w", err)
	}
	return IngestResult{
		DocID:       docID,
		ChunkCount:  stats.ChunkCount,
		TotalTokens: stats.TotalTokens,
	}, nil
}

// Ask answers question from the topK nearest chunks. It never returns an
// error for provider failures; those come back as a Failed answer.
func (c *Client) Ask(ctx context.Context, question string, topK int) Answer {
	start := time.Now()
	res := c.searchSvc.AnswerQuery(ctx, question, topK)

	var err error
	if res.Failed {
		err = errors.New(res.Answer)
	}
	c.obs.observe("ask", start, err, "query_id", res.QueryID, "sources", len(res.Sources))

	sources := make([]Source, len(res.Sources))
	for i, s := range res.Sources {
		sources[i] = Source{DocID: s.DocID, Filename: s.Filename, ChunkIndex: s.ChunkIndex}
	}
	return Answer{
		QueryID: res.QueryID,
		Text:    res.Answer,
		Sources: sources,
		Failed:  res.Failed,
	}
}

// Delete removes every chunk of docID and returns how many were removed.
// Unknown IDs remove nothing and return 0.
func (c *Client) Delete(ctx context.Context, docID string) (removed int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete", start, err, "doc_id", docID, "removed", removed) }()

	removed, err = c.docSvc.DeleteDocument(ctx, docID)
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}
	return removed, nil
}

// Documents lists indexed documents in the order they were first ingested.
func (c *Client) Documents() []Document {
	infos := c.docSvc.ListDocuments()
	docs := make([]Document, len(infos))
	for i, d := range infos {
		docs[i] = Document{
			DocID:         d.DocID,
			Filename:      d.Filename,
			ChunkCount:    d.ChunkCount,
			IndexedTokens: d.IndexedTokens,
		}
	}
	return docs
}

// Stats reports the document and vector counts and the dimension.
func (c *Client) Stats() Stats {
	return Stats{
		TotalDocuments: len(c.docSvc.ListDocuments()),
		TotalVectors:   c.docSvc.TotalVectors(),
		Dimension:      c.dimension,
	}
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w: %w", ErrEmbeddingProviderError, err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// HealthCheck delegates when the wrapped embedder can check its provider.
func (a *embedderAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent adapter
	}
	return nil
}

// noopGenerator fails every Generate call (used when no generator is configured).
type noopGenerator struct{}

func (noopGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	return "", fmt.Errorf("vecrag: generator not configured (use WithGenerator or WithOpenAI): %w",
		ErrGenerationProviderError)
}
