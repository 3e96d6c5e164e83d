package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/db"
	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/vector"
	"github.com/kailas-cloud/vecrag/internal/metrics"
)

// Compile-time check: Flat implements Index.
var _ Index = (*Flat)(nil)

// Flat is an exhaustive-scan index over squared Euclidean distance.
// vectors[i] is always described by metadata[i]. One RWMutex guards both:
// searches share it, mutations and saves hold it exclusively.
type Flat struct {
	mu       sync.RWMutex
	dim      int
	vectors  [][]float32
	metadata []domain.Metadata
	store    db.SnapshotStore
	logger   *zap.Logger
}

// NewFlat creates an empty index. store may be nil for a purely in-memory index.
func NewFlat(dim int, store db.SnapshotStore, logger *zap.Logger) (*Flat, error) {
	if dim <= 0 {
		return nil, domain.NewConfigError("index dimension", "must be positive, got "+strconv.Itoa(dim))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flat{dim: dim, store: store, logger: logger}, nil
}

// Dimension returns the fixed vector length.
func (f *Flat) Dimension() int { return f.dim }

// Total returns the number of stored vectors.
func (f *Flat) Total() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Documents groups the stored metadata by DocID. Documents appear in the order
// their first chunk was inserted; the filename is the first chunk's.
func (f *Flat) Documents() []domain.DocumentInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()

	docs := make([]domain.DocumentInfo, 0)
	seen := make(map[string]int)
	for _, m := range f.metadata {
		i, ok := seen[m.DocID]
		if !ok {
			i = len(docs)
			seen[m.DocID] = i
			docs = append(docs, domain.DocumentInfo{DocID: m.DocID, Filename: m.Filename})
		}
		docs[i].ChunkCount++
		docs[i].IndexedTokens += m.TokenCount
	}
	return docs
}

// InsertBatch validates the whole batch before touching state. If persisting
// fails the batch is rolled back so memory never runs ahead of storage.
func (f *Flat) InsertBatch(ctx context.Context, vectors [][]float32, metadata []domain.Metadata) error {
	if len(vectors) != len(metadata) {
		return fmt.Errorf("%d vectors, %d metadata records: %w",
			len(vectors), len(metadata), domain.ErrLengthMismatch)
	}
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("vector %d has %d components, want %d: %w",
				i, len(v), f.dim, domain.ErrDimensionMismatch)
		}
	}
	if len(vectors) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	before := len(f.vectors)
	for i := range vectors {
		f.vectors = append(f.vectors, vector.Clone(vectors[i]))
	}
	// Stored text must read back identically after a save and load.
	for _, m := range metadata {
		f.metadata = append(f.metadata, m.Normalized())
	}

	if err := f.persistLocked(ctx); err != nil {
		clear(f.vectors[before:])
		clear(f.metadata[before:])
		f.vectors = f.vectors[:before]
		f.metadata = f.metadata[:before]
		return fmt.Errorf("persist after insert: %w", err)
	}

	metrics.IndexVectors.Set(float64(len(f.vectors)))
	f.logger.Debug("Inserted vectors",
		zap.Int("batch_size", len(vectors)),
		zap.Int("total_vectors", len(f.vectors)),
	)
	return nil
}

// Search scans every stored vector. Equal distances rank by insertion order.
func (f *Flat) Search(_ context.Context, query []float32, k int) ([]domain.Hit, error) {
	if k <= 0 {
		return nil, domain.NewConfigError("k", "must be positive, got "+strconv.Itoa(k))
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("query has %d components, want %d: %w",
			len(query), f.dim, domain.ErrDimensionMismatch)
	}

	start := time.Now()
	defer func() { metrics.IndexSearchDuration.Observe(time.Since(start).Seconds()) }()

	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.vectors) == 0 {
		return []domain.Hit{}, nil
	}

	sel := newTopK(min(k, len(f.vectors)))
	for i, v := range f.vectors {
		sel.offer(i, vector.SquaredL2(query, v))
	}

	ranked := sel.sorted()
	hits := make([]domain.Hit, len(ranked))
	for r, c := range ranked {
		hits[r] = domain.Hit{
			Metadata: f.metadata[c.pos],
			Distance: c.dist,
			Rank:     r + 1,
		}
	}
	return hits, nil
}

// DeleteByDocID rebuilds storage from the surviving entries, preserving their
// relative order. An unknown doc id leaves the index and storage untouched.
func (f *Flat) DeleteByDocID(ctx context.Context, docID string) (int, error) {
	docID = strings.ToValidUTF8(docID, "\uFFFD")

	f.mu.Lock()
	defer f.mu.Unlock()

	keep := 0
	for _, m := range f.metadata {
		if m.DocID != docID {
			keep++
		}
	}
	removed := len(f.metadata) - keep
	if removed == 0 {
		return 0, nil
	}

	vectors := make([][]float32, 0, keep)
	metadata := make([]domain.Metadata, 0, keep)
	for i, m := range f.metadata {
		if m.DocID == docID {
			continue
		}
		vectors = append(vectors, f.vectors[i])
		metadata = append(metadata, m)
	}

	oldVectors, oldMetadata := f.vectors, f.metadata
	f.vectors, f.metadata = vectors, metadata

	if err := f.persistLocked(ctx); err != nil {
		f.vectors, f.metadata = oldVectors, oldMetadata
		return 0, fmt.Errorf("persist after delete: %w", err)
	}

	metrics.IndexVectors.Set(float64(len(f.vectors)))
	f.logger.Info("Deleted document vectors",
		zap.String("doc_id", docID),
		zap.Int("removed", removed),
		zap.Int("total_vectors", len(f.vectors)),
	)
	return removed, nil
}

// Save persists the full state.
func (f *Flat) Save(ctx context.Context) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.persistLocked(ctx)
}

// Load replaces the in-memory state with the stored snapshot. A missing
// snapshot leaves the index empty. A snapshot of another dimension is rejected.
func (f *Flat) Load(ctx context.Context) error {
	if f.store == nil {
		return nil
	}

	snap, err := f.store.Load(ctx)
	if errors.Is(err, db.ErrSnapshotNotFound) {
		f.logger.Info("No index snapshot found, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load index snapshot: %w", err)
	}
	if snap.Dimension != f.dim {
		return domain.NewConfigError("index dimension", fmt.Sprintf(
			"snapshot has %d, configured %d", snap.Dimension, f.dim))
	}

	f.mu.Lock()
	f.vectors, f.metadata = snap.Vectors, snap.Metadata
	total := len(f.vectors)
	f.mu.Unlock()

	metrics.IndexVectors.Set(float64(total))
	f.logger.Info("Loaded index snapshot", zap.Int("total_vectors", total), zap.Int("dimension", f.dim))
	return nil
}

// persistLocked saves the current state. Callers hold mu (read or write).
func (f *Flat) persistLocked(ctx context.Context) error {
	if f.store == nil {
		return nil
	}
	err := f.store.Save(ctx, &db.Snapshot{
		Dimension: f.dim,
		Vectors:   f.vectors,
		Metadata:  f.metadata,
	})
	if err != nil {
		metrics.IndexPersistTotal.WithLabelValues("error").Inc()
		f.logger.Error("Failed to persist index", zap.Error(err))
		return fmt.Errorf("save snapshot: %w", err)
	}
	metrics.IndexPersistTotal.WithLabelValues("success").Inc()
	return nil
}
