// Package file persists index snapshots as a vector blob plus a metadata
// sequence in a directory. A CURRENT pointer names the generation that Load
// reads; it is replaced only after both artifacts of a generation are durable,
// so a crash mid-save leaves the previous generation visible.
package file

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/kailas-cloud/vecrag/internal/db"
	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/vector"
)

const (
	currentFile    = "CURRENT"
	vectorsPrefix  = "vectors-"
	vectorsExt     = ".bin"
	metadataPrefix = "metadata-"
	metadataExt    = ".json"
	filePerm       = 0o644
	dirPerm        = 0o755
)

// blobMagic identifies a vector blob; the version follows as a uint32.
var blobMagic = [4]byte{'V', 'R', 'A', 'G'}

const blobVersion = 1

// Compile-time check: Store implements db.SnapshotStore.
var _ db.SnapshotStore = (*Store)(nil)

// Store is a directory-backed snapshot store.
type Store struct {
	dir string
	mu  sync.Mutex
	gen uint64
}

// NewStore creates the directory if needed and picks up the current generation.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	s := &Store{dir: dir}
	gen, err := s.readCurrent()
	if err != nil && !errors.Is(err, db.ErrSnapshotNotFound) {
		return nil, err
	}
	s.gen = gen
	return s, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

// Ping verifies the directory is still present.
func (s *Store) Ping(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	if !info.IsDir() {
		return &db.Error{Op: db.OpPing, Err: fmt.Errorf("%s is not a directory", s.dir)}
	}
	return nil
}

// Close is a no-op; files are closed after every operation.
func (s *Store) Close() error { return nil }

// Save writes a new generation and switches CURRENT to it.
func (s *Store) Save(_ context.Context, snap *db.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	blob := encodeVectors(snap.Dimension, snap.Vectors)
	meta := snap.Metadata
	if meta == nil {
		meta = []domain.Metadata{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return &db.Error{Op: db.OpSave, Err: fmt.Errorf("marshal metadata: %w", err)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.gen + 1
	if err := renameio.WriteFile(s.vectorsPath(next), blob, filePerm); err != nil {
		return &db.Error{Op: db.OpSave, Err: fmt.Errorf("write vectors: %w", err)}
	}
	if err := renameio.WriteFile(s.metadataPath(next), metaJSON, filePerm); err != nil {
		return &db.Error{Op: db.OpSave, Err: fmt.Errorf("write metadata: %w", err)}
	}
	if err := renameio.WriteFile(filepath.Join(s.dir, currentFile), []byte(genName(next)+"\n"), filePerm); err != nil {
		return &db.Error{Op: db.OpSave, Err: fmt.Errorf("switch current: %w", err)}
	}

	s.gen = next
	s.removeStale(next)
	return nil
}

// Load reads the generation named by CURRENT.
func (s *Store) Load(_ context.Context) (*db.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen, err := s.readCurrent()
	if err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(s.vectorsPath(gen))
	if err != nil {
		return nil, &db.Error{Op: db.OpLoad, Err: fmt.Errorf("read vectors: %w", err)}
	}
	dim, vectors, err := decodeVectors(blob)
	if err != nil {
		return nil, &db.Error{Op: db.OpLoad, Err: err}
	}

	metaJSON, err := os.ReadFile(s.metadataPath(gen))
	if err != nil {
		return nil, &db.Error{Op: db.OpLoad, Err: fmt.Errorf("read metadata: %w", err)}
	}
	var meta []domain.Metadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, &db.Error{Op: db.OpLoad, Err: fmt.Errorf("%w: metadata: %w", db.ErrCorruptSnapshot, err)}
	}

	snap := &db.Snapshot{Dimension: dim, Vectors: vectors, Metadata: meta}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	s.gen = gen
	return snap, nil
}

func (s *Store) readCurrent() (uint64, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, currentFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, db.ErrSnapshotNotFound
		}
		return 0, &db.Error{Op: db.OpLoad, Err: err}
	}
	gen, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, &db.Error{Op: db.OpLoad, Err: fmt.Errorf("%w: current pointer: %w", db.ErrCorruptSnapshot, err)}
	}
	return gen, nil
}

// removeStale deletes artifacts of generations other than keep. Failures are
// ignored: stale files are never read because CURRENT does not name them.
func (s *Store) removeStale(keep uint64) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	keepVec := filepath.Base(s.vectorsPath(keep))
	keepMeta := filepath.Base(s.metadataPath(keep))
	for _, e := range entries {
		name := e.Name()
		if name == keepVec || name == keepMeta {
			continue
		}
		stale := (strings.HasPrefix(name, vectorsPrefix) && strings.HasSuffix(name, vectorsExt)) ||
			(strings.HasPrefix(name, metadataPrefix) && strings.HasSuffix(name, metadataExt))
		if stale {
			_ = os.Remove(filepath.Join(s.dir, name))
		}
	}
}

func (s *Store) vectorsPath(gen uint64) string {
	return filepath.Join(s.dir, vectorsPrefix+genName(gen)+vectorsExt)
}

func (s *Store) metadataPath(gen uint64) string {
	return filepath.Join(s.dir, metadataPrefix+genName(gen)+metadataExt)
}

func genName(gen uint64) string {
	return fmt.Sprintf("%06d", gen)
}

// encodeVectors lays out: magic, version(u32), dim(u32), n(u32), then n*dim float32.
func encodeVectors(dim int, vectors [][]float32) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 16+len(vectors)*dim*4))
	buf.Write(blobMagic[:])
	var hdr [12]byte
	binary.LittleEndian.PutUint32(hdr[0:4], blobVersion)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(dim))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(vectors)))
	buf.Write(hdr[:])
	for _, v := range vectors {
		buf.Write(vector.Encode(v))
	}
	return buf.Bytes()
}

func decodeVectors(data []byte) (int, [][]float32, error) {
	if len(data) < 16 || !bytes.Equal(data[:4], blobMagic[:]) {
		return 0, nil, fmt.Errorf("%w: bad vector blob header", db.ErrCorruptSnapshot)
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != blobVersion {
		return 0, nil, fmt.Errorf("%w: unsupported vector blob version %d", db.ErrCorruptSnapshot, v)
	}
	dim := int(binary.LittleEndian.Uint32(data[8:12]))
	n := int(binary.LittleEndian.Uint32(data[12:16]))
	body := data[16:]
	stride := dim * 4
	if len(body) != n*stride {
		return 0, nil, fmt.Errorf("%w: vector blob truncated: have %d bytes, want %d",
			db.ErrCorruptSnapshot, len(body), n*stride)
	}
	vectors := make([][]float32, n)
	for i := range vectors {
		vec, err := vector.Decode(body[i*stride : (i+1)*stride])
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %w", db.ErrCorruptSnapshot, err)
		}
		vectors[i] = vec
	}
	return dim, vectors, nil
}
