package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces feedback keys in Redis.
const DefaultRedisPrefix = "mailresponder:"

// RedisStore keeps one hash per record under <prefix>feedback:<id> and the
// set of ids under <prefix>feedback:ids.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// OpenRedisStore connects to Redis at the given URL (redis://...) and checks
// the connection.
func OpenRedisStore(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, &StorageError{Backend: BackendRedis, Op: "open", Err: fmt.Errorf("invalid redis url: %w", err)}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, &StorageError{Backend: BackendRedis, Op: "ping", Err: err}
	}
	return NewRedisStore(rdb, prefix), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// Name implements VectorStore.
func (s *RedisStore) Name() string { return BackendRedis }

func (s *RedisStore) idsKey() string { return s.prefix + "feedback:ids" }

func (s *RedisStore) recordKey(id string) string { return s.prefix + "feedback:" + id }

// Upsert implements VectorStore.
func (s *RedisStore) Upsert(ctx context.Context, rec Record) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.recordKey(rec.MessageID), map[string]any{
			"message_id": rec.MessageID,
			"feedback":   rec.Feedback,
			"draft":      rec.Draft,
			"embedding":  encodeVector(rec.Embedding),
			"model":      rec.Model,
			"created_at": rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		pipe.SAdd(ctx, s.idsKey(), rec.MessageID)
		return nil
	})
	if err != nil {
		return &StorageError{Backend: BackendRedis, Op: "upsert", Err: err}
	}
	return nil
}

// Nearest implements VectorStore.
func (s *RedisStore) Nearest(ctx context.Context, vec []float32, model string, n int) ([]Match, error) {
	ids, err := s.rdb.SMembers(ctx, s.idsKey()).Result()
	if err != nil {
		return nil, &StorageError{Backend: BackendRedis, Op: "query", Err: err}
	}

	r := newRanker(vec, model)
	if len(ids) == 0 {
		return r.top(n), nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.recordKey(id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, &StorageError{Backend: BackendRedis, Op: "query", Err: err}
	}

	for _, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		rec, err := decodeRedisRecord(fields)
		if err != nil {
			return nil, &StorageError{Backend: BackendRedis, Op: "decode", Err: err}
		}
		r.add(rec)
	}

	return r.top(n), nil
}

func decodeRedisRecord(fields map[string]string) (Record, error) {
	vec, err := decodeVector([]byte(fields["embedding"]))
	if err != nil {
		return Record{}, fmt.Errorf("record %s: %w", fields["message_id"], err)
	}
	rec := Record{
		MessageID: fields["message_id"],
		Feedback:  fields["feedback"],
		Draft:     fields["draft"],
		Embedding: vec,
		Model:     fields["model"],
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["created_at"]); err == nil {
		rec.CreatedAt = ts
	}
	return rec, nil
}

// Count implements VectorStore.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.rdb.SCard(ctx, s.idsKey()).Result()
	if err != nil {
		return 0, &StorageError{Backend: BackendRedis, Op: "count", Err: err}
	}
	return int(n), nil
}

// Close implements VectorStore.
func (s *RedisStore) Close() error { return s.rdb.Close() }
