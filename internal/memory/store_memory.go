package memory

import (
	"context"
	"slices"
	"sync"
)

// InMemoryStore keeps records in a map. Nothing survives the process; it is
// used for ephemeral runs and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

// Name implements VectorStore.
func (s *InMemoryStore) Name() string { return BackendMemory }

// Upsert implements VectorStore.
func (s *InMemoryStore) Upsert(_ context.Context, rec Record) error {
	rec.Embedding = slices.Clone(rec.Embedding)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.MessageID] = rec
	return nil
}

// Nearest implements VectorStore.
func (s *InMemoryStore) Nearest(_ context.Context, vec []float32, model string, n int) ([]Match, error) {
	r := newRanker(vec, model)

	s.mu.RLock()
	for _, rec := range s.records {
		r.add(rec)
	}
	s.mu.RUnlock()

	return r.top(n), nil
}

// Count implements VectorStore.
func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Get returns the record stored for id.
func (s *InMemoryStore) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Close implements VectorStore.
func (s *InMemoryStore) Close() error { return nil }
