package memory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teemow/mailresponder/internal/instrumentation"
	"github.com/teemow/mailresponder/internal/llm"
	"github.com/teemow/mailresponder/internal/logging"
)

// DefaultRetrieveCount is the number of past entries returned when the
// caller does not ask for a specific count.
const DefaultRetrieveCount = 2

// Record is one stored feedback entry.
type Record struct {
	MessageID string
	Feedback  string
	Draft     string    // the draft the feedback was given on
	Embedding []float32 // embedding of Feedback
	Model     string    // embedding model that produced Embedding
	CreatedAt time.Time
}

// Match is a retrieved entry with its similarity to the query.
type Match struct {
	MessageID string  `json:"message_id"`
	Feedback  string  `json:"feedback"`
	Draft     string  `json:"draft"`
	Score     float64 `json:"score"`
}

// VectorStore persists records and answers nearest-neighbour queries.
// Implementations are safe for concurrent use; concurrent upserts of the same
// message id are last-writer-wins.
type VectorStore interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Upsert inserts rec or replaces the record with the same MessageID.
	Upsert(ctx context.Context, rec Record) error
	// Nearest returns at most n records most similar to vec, skipping
	// records of another embedding model.
	Nearest(ctx context.Context, vec []float32, model string, n int) ([]Match, error)
	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
	Close() error
}

// Config configures a Memory.
type Config struct {
	Embedder llm.Embedder
	Store    VectorStore
	Logger   *slog.Logger
	Metrics  *instrumentation.Metrics
}

// Memory is the feedback memory. It is safe for concurrent use.
type Memory struct {
	embedder llm.Embedder
	store    VectorStore
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
	now      func() time.Time
}

// New creates a Memory over the given embedder and store.
func New(cfg Config) (*Memory, error) {
	if cfg.Embedder == nil {
		return nil, errors.New("memory: embedder is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("memory: vector store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		embedder: cfg.Embedder,
		store:    cfg.Store,
		logger:   logger.With(logging.Backend(cfg.Store.Name())),
		metrics:  cfg.Metrics,
		now:      time.Now,
	}, nil
}

// AddFeedback embeds feedback and stores it together with the draft it was
// given on, keyed by messageID. Inputs are not validated. Any failure is
// returned as a *WriteError.
func (m *Memory) AddFeedback(ctx context.Context, messageID, feedback, draft string) error {
	ctx, span := instrumentation.StartMemorySpan(ctx, m.store.Name(), instrumentation.OperationAdd)
	defer span.End()
	start := time.Now()

	err := m.addFeedback(ctx, messageID, feedback, draft)
	m.record(ctx, instrumentation.OperationAdd, err, time.Since(start))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		m.logger.Error("failed to store feedback", logging.MessageID(messageID), logging.Err(err))
		return &WriteError{MessageID: messageID, Err: err}
	}

	instrumentation.SetSpanSuccess(span)
	m.logger.Info("feedback stored", logging.MessageID(messageID))
	return nil
}

func (m *Memory) addFeedback(ctx context.Context, messageID, feedback, draft string) error {
	vec, err := m.embedder.Embed(ctx, feedback)
	if err != nil {
		return err
	}
	return m.store.Upsert(ctx, Record{
		MessageID: messageID,
		Feedback:  feedback,
		Draft:     draft,
		Embedding: vec,
		Model:     m.embedder.Model(),
		CreatedAt: m.now().UTC(),
	})
}

// RetrieveSimilar returns at most n stored entries ordered by decreasing
// similarity of their feedback to query. n <= 0 means DefaultRetrieveCount.
//
// The result is never nil. On failure it is empty and the error is an
// *llm.ServiceError or a *StorageError; callers that prefer a degraded
// answer may log the error and continue with the empty result.
func (m *Memory) RetrieveSimilar(ctx context.Context, query string, n int) ([]Match, error) {
	if n <= 0 {
		n = DefaultRetrieveCount
	}

	ctx, span := instrumentation.StartMemorySpan(ctx, m.store.Name(), instrumentation.OperationSearch)
	defer span.End()
	start := time.Now()

	matches, err := m.retrieveSimilar(ctx, query, n)
	m.record(ctx, instrumentation.OperationSearch, err, time.Since(start))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		m.logger.Warn("similarity query failed", logging.Err(err))
		return []Match{}, err
	}

	instrumentation.SetSpanSuccess(span)
	m.metrics.RecordMemoryMatches(ctx, m.store.Name(), len(matches))
	return matches, nil
}

func (m *Memory) retrieveSimilar(ctx context.Context, query string, n int) ([]Match, error) {
	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := m.store.Nearest(ctx, vec, m.embedder.Model(), n)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []Match{}
	}
	if len(matches) > n {
		matches = matches[:n]
	}
	return matches, nil
}

// Count returns the number of stored entries.
func (m *Memory) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := m.store.Count(ctx)
	m.record(ctx, instrumentation.OperationCount, err, time.Since(start))
	return n, err
}

// Backend returns the name of the underlying store.
func (m *Memory) Backend() string { return m.store.Name() }

// Close closes the underlying store.
func (m *Memory) Close() error { return m.store.Close() }

func (m *Memory) record(ctx context.Context, op string, err error, d time.Duration) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	m.metrics.RecordMemoryOperation(ctx, m.store.Name(), op, status, d)
}
