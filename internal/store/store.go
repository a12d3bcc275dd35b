// Package store persists the client's small key-value state (session token,
// toggles, life-saved bonus) and a TTL cache for offline snapshots.
//
// Layout under the state directory:
//
//	~/.config/autosense/
//	  state.json        key-value pairs, 0600
//	  cache/
//	    system_info.json
package store

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Well-known keys.
const (
	KeyAuthToken       = "authToken"
	KeyAutoRefresh     = "autoRefresh"
	KeyNotifications   = "notifications"
	KeyLifeSavedMonths = "lifeSavedMonths"
)

const stateFile = "state.json"

// Store is a flat string key-value file. Every mutation rewrites the file
// atomically (temp file + rename). Values are plain scalars encoded as strings,
// with no schema versioning.
type Store struct {
	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	values map[string]string
}

// Open loads the store at dir, creating the directory with 0700 permissions.
// A corrupted state file is logged, removed and treated as empty.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("store: create directory %s: %w", dir, err)
	}
	s := &Store{dir: dir, logger: logger, values: map[string]string{}}

	data, err := os.ReadFile(s.path())
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("store: read %s: %w", s.path(), err)
	}

	if err := json.Unmarshal(data, &s.values); err != nil {
		logger.Warn("store: removing corrupted state file", slog.String("error", err.Error()))
		_ = os.Remove(s.path())
		s.values = map[string]string{}
	}
	return s, nil
}

func (s *Store) path() string {
	return filepath.Join(s.dir, stateFile)
}

// Dir returns the directory holding the state file.
func (s *Store) Dir() string {
	return s.dir
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and persists the store.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.values[key]
	s.values[key] = value
	if err := s.flushLocked(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

// Delete removes key and persists the store. Deleting a missing key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.values[key]
	if !had {
		return nil
	}
	delete(s.values, key)
	if err := s.flushLocked(); err != nil {
		s.values[key] = prev
		return err
	}
	return nil
}

// Bool reads key as a boolean. Anything other than the literal "false" is
// treated as true once set; a missing key yields def.
func (s *Store) Bool(key string, def bool) bool {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	return v != "false"
}

// SetBool stores a boolean as "true" or "false".
func (s *Store) SetBool(key string, v bool) error {
	return s.Set(key, strconv.FormatBool(v))
}

// Float reads key as a float64, yielding def when missing or unparsable.
func (s *Store) Float(key string, def float64) float64 {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// SetFloat stores a float64 in its shortest round-trip form.
func (s *Store) SetFloat(key string, v float64) error {
	return s.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
}

// flushLocked writes the map to disk. Callers hold s.mu.
func (s *Store) flushLocked() error {
	encoded, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}
	return writeAtomic(s.dir, stateFile, encoded)
}

// writeAtomic writes data to dir/name through a 0600 temp file and a rename,
// so readers never observe a partial file.
func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-"+name+"-*")
	if err != nil {
		return fmt.Errorf("store: create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if err := os.Chmod(tmpName, 0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: chmod temp for %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: write temp for %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp for %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("store: rename temp for %s: %w", name, err)
	}

	success = true
	return nil
}
