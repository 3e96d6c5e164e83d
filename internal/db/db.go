package db

import (
	"context"
	"time"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

// Pinger checks backend availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache is the key-value facade used for the embedding cache.
type Cache interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Snapshot is the full persisted state of a vector index.
// Vectors and Metadata are index-aligned and always saved and loaded together.
type Snapshot struct {
	Dimension int
	Vectors   [][]float32
	Metadata  []domain.Metadata
}

// Validate checks the alignment and dimension invariants of a snapshot.
func (s *Snapshot) Validate() error {
	if len(s.Vectors) != len(s.Metadata) {
		return &Error{Op: OpValidate, Err: ErrCorruptSnapshot}
	}
	for _, v := range s.Vectors {
		if len(v) != s.Dimension {
			return &Error{Op: OpValidate, Err: ErrCorruptSnapshot}
		}
	}
	return nil
}

// SnapshotStore persists index snapshots as one atomic unit.
// Load returns ErrSnapshotNotFound when nothing was saved yet.
type SnapshotStore interface {
	Pinger
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
	Close() error
}
