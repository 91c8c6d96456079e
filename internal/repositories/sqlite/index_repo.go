// Package sqlite keeps the semantic index in a local directory, one SQLite
// file per index.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/pgvector/pgvector-go"

	"github.com/yoockh/studybuddy/internal/models"
	"github.com/yoockh/studybuddy/internal/utils"
)

type IndexRepo struct {
	db *sql.DB
}

// NewIndexRepo opens or creates <dir>/index.db.
func NewIndexRepo(dir string) (*IndexRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "index.db")+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}

	r := &IndexRepo{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *IndexRepo) migrate() error {
	_, err := r.db.Exec(`
	CREATE TABLE IF NOT EXISTS index_entries (
		id         TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		user_id    TEXT NOT NULL,
		content    TEXT NOT NULL,
		embedding  BLOB NOT NULL,
		dims       INTEGER NOT NULL,
		metadata   TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_index_entries_collection_user ON index_entries(collection, user_id);
	`)
	return err
}

// Upsert inserts the entry unless an entry with the same id already exists.
func (r *IndexRepo) Upsert(ctx context.Context, e *models.IndexEntry) error {
	vec := e.Embedding.Slice()
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO index_entries (id, collection, user_id, content, embedding, dims, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Collection, e.UserID, e.Content, encodeVector(vec), len(vec), string(e.Metadata),
	)
	return err
}

// Get returns the entry with the given id, or utils.ErrNotFound.
func (r *IndexRepo) Get(ctx context.Context, id string) (*models.IndexEntry, error) {
	var (
		e        models.IndexEntry
		blob     []byte
		metadata sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, collection, user_id, content, embedding, metadata FROM index_entries WHERE id = ?`, id,
	).Scan(&e.ID, &e.Collection, &e.UserID, &e.Content, &blob, &metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Embedding = pgvector.NewVector(decodeVector(blob))
	e.Metadata = []byte(metadata.String)
	return &e, nil
}

func (r *IndexRepo) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM index_entries WHERE collection = ?`, collection).Scan(&n)
	return n, err
}

func (r *IndexRepo) Close() error { return r.db.Close() }

func encodeVector(v []float32) []byte {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
