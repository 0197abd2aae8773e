package memory

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS feedback (
	message_id TEXT PRIMARY KEY,
	feedback   TEXT NOT NULL,
	draft      TEXT NOT NULL,
	embedding  REAL[] NOT NULL,
	model      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_feedback_model ON feedback(model);
`

// PostgresStore persists records in PostgreSQL with the vector in a real[]
// column. Similarity is computed in process.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgresStore connects to dsn, checks the connection and ensures the
// schema exists.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, &StorageError{Backend: BackendPostgres, Op: "open", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &StorageError{Backend: BackendPostgres, Op: "ping", Err: err}
	}

	s := &PostgresStore{pool: pool}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, &StorageError{Backend: BackendPostgres, Op: "migrate", Err: err}
	}
	return s, nil
}

// Name implements VectorStore.
func (s *PostgresStore) Name() string { return BackendPostgres }

// Upsert implements VectorStore.
func (s *PostgresStore) Upsert(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feedback (message_id, feedback, draft, embedding, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (message_id) DO UPDATE SET
			feedback   = EXCLUDED.feedback,
			draft      = EXCLUDED.draft,
			embedding  = EXCLUDED.embedding,
			model      = EXCLUDED.model,
			created_at = EXCLUDED.created_at
	`, rec.MessageID, rec.Feedback, rec.Draft, rec.Embedding, rec.Model, rec.CreatedAt)
	if err != nil {
		return &StorageError{Backend: BackendPostgres, Op: "upsert", Err: err}
	}
	return nil
}

// Nearest implements VectorStore.
func (s *PostgresStore) Nearest(ctx context.Context, vec []float32, model string, n int) ([]Match, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT message_id, feedback, draft, embedding, model, created_at
		FROM feedback
		WHERE $1 = '' OR model = $1
	`, model)
	if err != nil {
		return nil, &StorageError{Backend: BackendPostgres, Op: "query", Err: err}
	}
	defer rows.Close()

	r := newRanker(vec, model)
	for rows.Next() {
		var (
			rec Record
			ts  time.Time
		)
		if err := rows.Scan(&rec.MessageID, &rec.Feedback, &rec.Draft, &rec.Embedding, &rec.Model, &ts); err != nil {
			return nil, &StorageError{Backend: BackendPostgres, Op: "scan", Err: err}
		}
		rec.CreatedAt = ts
		r.add(rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Backend: BackendPostgres, Op: "query", Err: err}
	}

	return r.top(n), nil
}

// Count implements VectorStore.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&n); err != nil {
		return 0, &StorageError{Backend: BackendPostgres, Op: "count", Err: err}
	}
	return n, nil
}

// Close implements VectorStore.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
