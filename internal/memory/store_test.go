package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mailresponder/internal/llm/llmtest"
)

func rec(id, feedback, model string) Record {
	return Record{
		MessageID: id,
		Feedback:  feedback,
		Draft:     "draft for " + id,
		Embedding: llmtest.BagOfWords(feedback),
		Model:     model,
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// testVectorStore runs the behaviour every backend must share.
func testVectorStore(t *testing.T, open func(t *testing.T) VectorStore) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		s := open(t)
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		matches, err := s.Nearest(ctx, llmtest.BagOfWords("x"), "m", 2)
		require.NoError(t, err)
		assert.NotNil(t, matches)
		assert.Empty(t, matches)
	})

	t.Run("upsert and nearest", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, rec("1", "use a more formal tone", "m")))
		require.NoError(t, s.Upsert(ctx, rec("2", "make it shorter", "m")))
		require.NoError(t, s.Upsert(ctx, rec("3", "thank them for the invoice", "m")))

		matches, err := s.Nearest(ctx, llmtest.BagOfWords("make it shorter"), "m", 2)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "2", matches[0].MessageID)
		assert.Equal(t, "make it shorter", matches[0].Feedback)
		assert.Equal(t, "draft for 2", matches[0].Draft)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
		assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("upsert replaces", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, rec("42", "make it shorter", "m")))
		replaced := rec("42", "be more formal", "m")
		replaced.Draft = "second draft"
		require.NoError(t, s.Upsert(ctx, replaced))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		matches, err := s.Nearest(ctx, llmtest.BagOfWords("be more formal"), "m", 5)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "be more formal", matches[0].Feedback)
		assert.Equal(t, "second draft", matches[0].Draft)
	})

	t.Run("skips other models", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, rec("1", "make it shorter", "old")))
		require.NoError(t, s.Upsert(ctx, rec("2", "make it shorter", "new")))

		matches, err := s.Nearest(ctx, llmtest.BagOfWords("make it shorter"), "new", 5)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "2", matches[0].MessageID)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		s := open(t)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, s.Upsert(ctx, rec(fmt.Sprintf("id-%d", i), fmt.Sprintf("feedback %d", i), "m")))
			}(i)
		}
		wg.Wait()

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 8, n)
	})
}

func TestInMemoryStore(t *testing.T) {
	testVectorStore(t, func(t *testing.T) VectorStore {
		return NewInMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	testVectorStore(t, func(t *testing.T) VectorStore {
		s, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "feedback.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "feedback.db")

	s, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, rec("42", "make it shorter", "m")))
	require.NoError(t, s.Close())

	s, err = OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	matches, err := s.Nearest(ctx, llmtest.BagOfWords("make it shorter"), "m", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "42", matches[0].MessageID)
	assert.Equal(t, "draft for 42", matches[0].Draft)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("MAILRESPONDER_TEST_REDIS_URL")
	if url == "" {
		t.Skip("MAILRESPONDER_TEST_REDIS_URL not set")
	}

	testVectorStore(t, func(t *testing.T) VectorStore {
		// A unique prefix per subtest keeps runs isolated.
		s, err := OpenRedisStore(context.Background(), url, "mailresponder-test:"+uuid.NewString()+":")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("MAILRESPONDER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MAILRESPONDER_TEST_POSTGRES_DSN not set")
	}

	testVectorStore(t, func(t *testing.T) VectorStore {
		ctx := context.Background()
		s, err := OpenPostgresStore(ctx, dsn)
		require.NoError(t, err)
		_, err = s.pool.Exec(ctx, `TRUNCATE feedback`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := OpenStore(ctx, StoreConfig{Backend: BackendMemory})
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, s.Name())

	s, err = OpenStore(ctx, StoreConfig{SQLitePath: filepath.Join(t.TempDir(), "f.db")})
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, s.Name(), "sqlite is the default backend")
	require.NoError(t, s.Close())

	_, err = OpenStore(ctx, StoreConfig{Backend: BackendRedis})
	assert.Error(t, err)

	_, err = OpenStore(ctx, StoreConfig{Backend: BackendPostgres})
	assert.Error(t, err)

	_, err = OpenStore(ctx, StoreConfig{Backend: "chroma"})
	assert.Error(t, err)
}
