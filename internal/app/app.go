// Package app is the composition root shared by the API server and the CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/config"
	"github.com/kailas-cloud/vecrag/internal/db"
	dbFile "github.com/kailas-cloud/vecrag/internal/db/file"
	dbRedis "github.com/kailas-cloud/vecrag/internal/db/redis"
	dbSQLite "github.com/kailas-cloud/vecrag/internal/db/sqlite"
	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/chunk"
	"github.com/kailas-cloud/vecrag/internal/metrics"
	"github.com/kailas-cloud/vecrag/internal/repository/embcache"
	"github.com/kailas-cloud/vecrag/internal/repository/vectorindex"
	"github.com/kailas-cloud/vecrag/internal/tokenizer"
	chiTransport "github.com/kailas-cloud/vecrag/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/vecrag/internal/transport/openai"
	documentuc "github.com/kailas-cloud/vecrag/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/vecrag/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vecrag/internal/usecase/health"
	searchuc "github.com/kailas-cloud/vecrag/internal/usecase/search"
)

// App holds the wired services.
type App struct {
	Index     *vectorindex.Flat
	Documents *documentuc.Service
	Search    *searchuc.Service
	Health    *healthuc.Service

	cfg      config.Config
	snapshot db.SnapshotStore
	cache    db.Cache
	logger   *zap.Logger
}

// Option overrides a capability, mainly for tests and offline tooling.
type Option func(*overrides)

type overrides struct {
	embedder  domain.Embedder
	generator domain.Generator
	cache     db.Cache
}

// WithEmbedder replaces the provider embedder at the bottom of the chain.
func WithEmbedder(e domain.Embedder) Option {
	return func(o *overrides) { o.embedder = e }
}

// WithGenerator replaces the chat completion generator.
func WithGenerator(g domain.Generator) Option {
	return func(o *overrides) { o.generator = g }
}

// WithCache uses c as the embedding cache instead of dialing cfg.Cache.Addrs.
func WithCache(c db.Cache) Option {
	return func(o *overrides) { o.cache = c }
}

// New builds the index, embedder chain and services from cfg and loads the
// persisted index. Close releases the storage handles.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o overrides
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, logger: logger}

	snapshot, err := newSnapshotStore(cfg.Index)
	if err != nil {
		return nil, err
	}
	a.snapshot = snapshot

	idx, err := vectorindex.NewFlat(cfg.Index.Dimension, snapshot, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}
	if err := idx.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load index: %w", err)
	}
	a.Index = idx

	tok, err := tokenizer.New(cfg.Chunking.Tokenizer, cfg.Chunking.Encoding)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create tokenizer: %w", err)
	}
	chunker, err := chunk.New(tok, cfg.Chunking.Size, cfg.Chunking.OverlapOrDefault())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create chunker: %w", err)
	}

	switch {
	case o.cache != nil:
		a.cache = o.cache
	case cfg.Cache.Enabled:
		cache, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		a.cache = cache
		timeout := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := cache.WaitForReady(ctx, timeout); err != nil {
			a.Close()
			return nil, fmt.Errorf("cache not ready: %w", err)
		}
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	base := o.embedder
	if base == nil {
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			User:       cfg.Embedding.User,
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		})
	}
	docEmbedder := a.buildEmbedder(base, cfg.Embedding.DocumentInstruction)
	queryEmbedder := a.buildEmbedder(base, cfg.Embedding.QueryInstruction)

	generator := o.generator
	if generator == nil {
		generator = openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
			Config: openaiTransport.Config{
				APIKey:   cfg.Generation.APIKey,
				BaseURL:  cfg.Generation.BaseURL,
				Model:    cfg.Generation.Model,
				Provider: cfg.Generation.Provider,
				Logger:   logger,
			},
			SystemPrompt: cfg.Generation.SystemPrompt,
			MaxTokens:    cfg.Generation.MaxTokens,
			Temperature:  cfg.Generation.Temperature,
		})
	}

	a.Documents = documentuc.New(idx, chunker, docEmbedder, logger).WithWorkers(cfg.Embedding.Workers)
	a.Search = searchuc.New(idx, queryEmbedder, generator, logger)

	// Pass nil interfaces (not typed nil pointers) for absent components.
	var indexPinger, cachePinger healthuc.Pinger
	if snapshot != nil {
		indexPinger = snapshot
	}
	if a.cache != nil {
		cachePinger = a.cache
	}
	a.Health = healthuc.New(indexPinger, newEmbeddingHealthChecker(docEmbedder), cachePinger)

	logger.Info("Pipeline ready",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("generation_provider", cfg.Generation.Provider),
		zap.String("generation_model", cfg.Generation.Model),
		zap.Int("dimension", cfg.Index.Dimension),
		zap.String("index_backend", cfg.Index.Backend),
		zap.Int("total_vectors", idx.Total()),
		zap.Bool("cache", a.cache != nil),
	)

	return a, nil
}

// ServerOptions derives HTTP limits from the configuration.
func (a *App) ServerOptions() chiTransport.Options {
	return chiTransport.Options{
		Dimension:      a.cfg.Index.Dimension,
		DefaultTopK:    a.cfg.Index.DefaultTopK,
		MaxTopK:        a.cfg.Index.MaxTopK,
		MaxUploadBytes: int64(a.cfg.HTTP.MaxUploadMB) << 20,
	}
}

// Close releases the snapshot store and the cache connection. Safe to call twice.
func (a *App) Close() {
	if a.cache != nil {
		a.cache.Close()
		a.cache = nil
	}
	if a.snapshot != nil {
		if err := a.snapshot.Close(); err != nil {
			a.logger.Warn("Failed to close snapshot store", zap.Error(err))
		}
		a.snapshot = nil
	}
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction.
func (a *App) buildEmbedder(base domain.Embedder, instruction string) domain.Embedder {
	embedder := base
	if a.cache != nil {
		embedder = embcache.New(embedder, a.cache, a.cfg.Embedding.Model, a.cfg.Cache.TTL(),
			metrics.EmbeddingCacheTotal, a.logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, a.cfg.Embedding.Provider, a.cfg.Embedding.Model, a.cfg.Index.Dimension, a.logger,
	)

	// Outermost, so the cache key includes the instruction.
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

func newSnapshotStore(cfg config.IndexConfig) (db.SnapshotStore, error) {
	switch cfg.Backend {
	case config.BackendFile:
		s, err := dbFile.NewStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open file index store: %w", err)
		}
		return s, nil
	case config.BackendSQLite:
		s, err := dbSQLite.NewStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite index store: %w", err)
		}
		return s, nil
	case config.BackendMemory:
		return nil, nil
	default:
		return nil, domain.NewConfigError("index backend", fmt.Sprintf("unknown backend %q", cfg.Backend))
	}
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
