// Package sqlite persists index snapshots in a single SQLite database.
// A snapshot is replaced inside one transaction, so readers see either the
// previous or the new state, never a mix.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/vecrag/internal/db"
	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/vector"
)

const schema = `
CREATE TABLE IF NOT EXISTS index_info (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	dimension  INTEGER NOT NULL,
	total      INTEGER NOT NULL,
	saved_at   TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS vectors (
	position    INTEGER PRIMARY KEY,
	doc_id      TEXT    NOT NULL,
	filename    TEXT    NOT NULL,
	chunk_index INTEGER NOT NULL,
	text        TEXT    NOT NULL,
	token_count INTEGER NOT NULL,
	embedding   BLOB    NOT NULL
);
`

// Compile-time check: Store implements db.SnapshotStore.
var _ db.SnapshotStore = (*Store)(nil)

// Store is a SQLite-backed snapshot store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at path and ensures the schema.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	// One writer at a time; SQLite serializes anyway and this avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("init schema: %w", err)}
	}

	return &Store{db: conn, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close() //nolint:wrapcheck // shutdown path
}

// Save replaces the stored snapshot in one transaction.
func (s *Store) Save(ctx context.Context, snap *db.Snapshot) (err error) {
	if err := snap.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &db.Error{Op: db.OpSave, Err: fmt.Errorf("begin: %w", err)}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM vectors`); err != nil {
		return &db.Error{Op: db.OpSave, Err: fmt.Errorf("clear vectors: %w", err)}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (position, doc_id, filename, chunk_index, text, token_count, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &db.Error{Op: db.OpSave, Err: fmt.Errorf("prepare insert: %w", err)}
	}
	defer stmt.Close()

	for i, m := range snap.Metadata {
		if _, err = stmt.ExecContext(ctx,
			i, m.DocID, m.Filename, m.ChunkIndex, m.Text, m.TokenCount, vector.Encode(snap.Vectors[i]),
		); err != nil {
			return &db.Error{Op: db.OpSave, Err: fmt.Errorf("insert position %d: %w", i, err)}
		}
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO index_info (id, dimension, total, saved_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET dimension = excluded.dimension,
			total = excluded.total, saved_at = excluded.saved_at`,
		snap.Dimension, len(snap.Metadata), time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return &db.Error{Op: db.OpSave, Err: fmt.Errorf("write index info: %w", err)}
	}

	if err = tx.Commit(); err != nil {
		return &db.Error{Op: db.OpSave, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

// Load reads the stored snapshot in position order.
func (s *Store) Load(ctx context.Context) (*db.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &db.Error{Op: db.OpLoad, Err: fmt.Errorf("begin: %w", err)}
	}
	defer func() { _ = tx.Rollback() }()

	var dim, total int
	err = tx.QueryRowContext(ctx, `SELECT dimension, total FROM index_info WHERE id = 1`).Scan(&dim, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpLoad, Err: fmt.Errorf("read index info: %w", err)}
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT doc_id, filename, chunk_index, text, token_count, embedding
		FROM vectors ORDER BY position`)
	if err != nil {
		return nil, &db.Error{Op: db.OpLoad, Err: fmt.Errorf("query vectors: %w", err)}
	}
	defer rows.Close()

	snap := &db.Snapshot{
		Dimension: dim,
		Vectors:   make([][]float32, 0, total),
		Metadata:  make([]domain.Metadata, 0, total),
	}
	for rows.Next() {
		var m domain.Metadata
		var blob []byte
		if err := rows.Scan(&m.DocID, &m.Filename, &m.ChunkIndex, &m.Text, &m.TokenCount, &blob); err != nil {
			return nil, &db.Error{Op: db.OpLoad, Err: fmt.Errorf("scan vector: %w", err)}
		}
		vec, err := vector.Decode(blob)
		if err != nil {
			return nil, &db.Error{Op: db.OpLoad, Err: fmt.Errorf("%w: %w", db.ErrCorruptSnapshot, err)}
		}
		snap.Vectors = append(snap.Vectors, vec)
		snap.Metadata = append(snap.Metadata, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpLoad, Err: fmt.Errorf("iterate vectors: %w", err)}
	}

	if len(snap.Metadata) != total {
		return nil, &db.Error{Op: db.OpLoad, Err: fmt.Errorf("%w: expected %d rows, found %d",
			db.ErrCorruptSnapshot, total, len(snap.Metadata))}
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}
