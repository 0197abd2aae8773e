package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultSQLitePath is the default location of the feedback database.
const DefaultSQLitePath = "data/feedback.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS feedback (
	message_id TEXT PRIMARY KEY,
	feedback   TEXT NOT NULL,
	draft      TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	model      TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS feedback_model_idx ON feedback(model);
`

// SQLiteStore persists records in a local SQLite database. Vectors are stored
// as little-endian float32 blobs and scanned in full on every query.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens (creating if needed) the database at path and
// ensures the schema exists.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, &StorageError{Backend: BackendSQLite, Op: "open", Err: fmt.Errorf("failed to create directory: %w", err)}
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, &StorageError{Backend: BackendSQLite, Op: "open", Err: err}
	}
	// A single connection serialises writers and keeps ":memory:" databases
	// shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, &StorageError{Backend: BackendSQLite, Op: "migrate", Err: err}
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Name implements VectorStore.
func (s *SQLiteStore) Name() string { return BackendSQLite }

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

// Upsert implements VectorStore.
func (s *SQLiteStore) Upsert(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (message_id, feedback, draft, embedding, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			feedback   = excluded.feedback,
			draft      = excluded.draft,
			embedding  = excluded.embedding,
			model      = excluded.model,
			created_at = excluded.created_at`,
		rec.MessageID, rec.Feedback, rec.Draft, encodeVector(rec.Embedding), rec.Model, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return &StorageError{Backend: BackendSQLite, Op: "upsert", Err: err}
	}
	return nil
}

// Nearest implements VectorStore.
func (s *SQLiteStore) Nearest(ctx context.Context, vec []float32, model string, n int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, feedback, draft, embedding, model, created_at FROM feedback WHERE model = ? OR ? = ''`,
		model, model,
	)
	if err != nil {
		return nil, &StorageError{Backend: BackendSQLite, Op: "query", Err: err}
	}
	defer rows.Close()

	r := newRanker(vec, model)
	for rows.Next() {
		var (
			rec  Record
			blob []byte
			ts   time.Time
		)
		if err := rows.Scan(&rec.MessageID, &rec.Feedback, &rec.Draft, &blob, &rec.Model, &ts); err != nil {
			return nil, &StorageError{Backend: BackendSQLite, Op: "scan", Err: err}
		}
		rec.CreatedAt = ts
		if rec.Embedding, err = decodeVector(blob); err != nil {
			return nil, &StorageError{Backend: BackendSQLite, Op: "decode", Err: fmt.Errorf("record %s: %w", rec.MessageID, err)}
		}
		r.add(rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Backend: BackendSQLite, Op: "query", Err: err}
	}

	return r.top(n), nil
}

// Count implements VectorStore.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&n); err != nil {
		return 0, &StorageError{Backend: BackendSQLite, Op: "count", Err: err}
	}
	return n, nil
}

// Close implements VectorStore.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
