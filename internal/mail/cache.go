package mail

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// DefaultCachePath is where the last successful live fetch is kept.
	DefaultCachePath = "data/live_emails.json"

	// DefaultCacheSize bounds the number of cached messages.
	DefaultCacheSize = 50
)

// Cache persists the most recent live fetch so the session can fall back to
// it when the mailbox is unreachable. It is bounded: only the newest
// maxMessages are written.
type Cache struct {
	path        string
	maxMessages int
}

// NewCache creates a Cache at path holding at most maxMessages.
func NewCache(path string, maxMessages int) *Cache {
	if path == "" {
		path = DefaultCachePath
	}
	if maxMessages <= 0 {
		maxMessages = DefaultCacheSize
	}
	return &Cache{path: path, maxMessages: maxMessages}
}

// Path returns the cache file location.
func (c *Cache) Path() string { return c.path }

// Save replaces the cache content with msgs. The file is written to a
// temporary sibling and renamed so a crash never leaves a truncated cache.
func (c *Cache) Save(msgs []Message) error {
	if len(msgs) > c.maxMessages {
		msgs = msgs[len(msgs)-c.maxMessages:]
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".live_emails-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close cache: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache: %w", err)
	}
	return nil
}

// Load returns the cached messages. A missing cache is not an error.
func (c *Cache) Load() ([]Message, error) {
	msgs, err := readMessagesFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return msgs, err
}
