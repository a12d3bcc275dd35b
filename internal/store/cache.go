package store

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Cache is a JSON file cache with per-read TTL, one file per key.
type Cache struct {
	dir    string
	logger *slog.Logger
}

type cacheEntry struct {
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewCache creates a cache at dir with 0700 permissions.
func NewCache(dir string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("cache: create directory %s: %w", dir, err)
	}
	return &Cache{dir: dir, logger: logger}, nil
}

func (c *Cache) keyPath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get returns the cached value for key and whether it is younger than ttl.
// A missing key returns nil, false, nil. Corrupted entries are removed and
// treated as a miss.
func (c *Cache) Get(key string, ttl time.Duration) (json.RawMessage, bool, error) {
	data, err := os.ReadFile(c.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: read %s: %w", key, err)
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Data == nil {
		c.logger.Warn("cache: removing corrupted entry", slog.String("key", key))
		_ = os.Remove(c.keyPath(key))
		return nil, false, nil
	}

	fresh := time.Since(entry.Timestamp) < ttl
	return entry.Data, fresh, nil
}

// Set stores data under key, stamped with the current time.
func (c *Cache) Set(key string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}
	encoded, err := json.MarshalIndent(cacheEntry{Timestamp: time.Now(), Data: raw}, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal entry %s: %w", key, err)
	}
	return writeAtomic(c.dir, key+".json", encoded)
}

// GetTyped reads and unmarshals a fresh cached value into T. Stale or missing
// entries return nil.
func GetTyped[T any](c *Cache, key string, ttl time.Duration) (*T, error) {
	raw, fresh, err := c.Get(key, ttl)
	if err != nil || raw == nil || !fresh {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("cache: removing entry with unmarshal error",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		_ = os.Remove(c.keyPath(key))
		return nil, nil
	}
	return &out, nil
}

// Clear removes every cached entry.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cache: clear read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return fmt.Errorf("cache: clear %s: %w", e.Name(), err)
		}
	}
	return nil
}
