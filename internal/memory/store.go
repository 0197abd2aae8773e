package memory

import (
	"context"
	"fmt"
)

// Backend names.
const (
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// StoreConfig selects and configures a VectorStore.
type StoreConfig struct {
	// Backend is one of sqlite (default), redis, postgres, memory.
	Backend string

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string

	// RedisURL and RedisPrefix configure the redis backend.
	RedisURL    string
	RedisPrefix string

	// PostgresDSN configures the postgres backend.
	PostgresDSN string
}

// OpenStore opens the configured backend.
func OpenStore(ctx context.Context, cfg StoreConfig) (VectorStore, error) {
	switch cfg.Backend {
	case "", BackendSQLite:
		return OpenSQLiteStore(ctx, cfg.SQLitePath)
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis url is required for the redis backend")
		}
		return OpenRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix)
	case BackendPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres dsn is required for the postgres backend")
		}
		return OpenPostgresStore(ctx, cfg.PostgresDSN)
	case BackendMemory:
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported memory backend %q", cfg.Backend)
	}
}
