package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestStore_SetGetPersists(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(KeyAuthToken, "abc123"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reopened, err := Open(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	got, ok := reopened.Get(KeyAuthToken)
	if !ok || got != "abc123" {
		t.Errorf("Get = %q, %v; want abc123, true", got, ok)
	}

	info, err := os.Stat(filepath.Join(dir, stateFile))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("state file perm = %o, want 0600", perm)
	}
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	_ = s.Set(KeyAuthToken, "tok")

	for i := 0; i < 2; i++ {
		if err := s.Delete(KeyAuthToken); err != nil {
			t.Fatalf("Delete #%d: %v", i, err)
		}
	}
	if _, ok := s.Get(KeyAuthToken); ok {
		t.Error("token still present after Delete")
	}
}

func TestStore_Bool(t *testing.T) {
	s := newTestStore(t)

	if !s.Bool(KeyAutoRefresh, true) {
		t.Error("missing key should yield default true")
	}
	_ = s.SetBool(KeyAutoRefresh, false)
	if s.Bool(KeyAutoRefresh, true) {
		t.Error("stored false should read false")
	}
	_ = s.Set(KeyNotifications, "yes")
	if !s.Bool(KeyNotifications, false) {
		t.Error("any value other than \"false\" reads true")
	}
}

func TestStore_Float(t *testing.T) {
	s := newTestStore(t)

	if got := s.Float(KeyLifeSavedMonths, 0); got != 0 {
		t.Errorf("missing = %v, want 0", got)
	}
	_ = s.SetFloat(KeyLifeSavedMonths, 0.30000000000000004)
	if got := s.Float(KeyLifeSavedMonths, 0); got != 0.30000000000000004 {
		t.Errorf("round trip = %v", got)
	}
	_ = s.Set(KeyLifeSavedMonths, "NaNish")
	if got := s.Float(KeyLifeSavedMonths, 1.5); got != 1.5 {
		t.Errorf("unparsable = %v, want default", got)
	}
}

func TestStore_CorruptedFileIsReset(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, stateFile), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	s, err := Open(dir, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := s.Get(KeyAuthToken); ok {
		t.Error("expected empty store")
	}
	if _, err := os.Stat(filepath.Join(dir, stateFile)); !os.IsNotExist(err) {
		t.Error("corrupted file should be removed")
	}
}

func TestCache_FreshAndStale(t *testing.T) {
	c, err := NewCache(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	type payload struct {
		CPU float64 `json:"cpu_percent"`
	}
	if err := c.Set("system_info", payload{CPU: 12.5}); err != nil {
		t.Fatal(err)
	}

	got, err := GetTyped[payload](c, "system_info", time.Minute)
	if err != nil || got == nil {
		t.Fatalf("GetTyped = %v, %v", got, err)
	}
	if got.CPU != 12.5 {
		t.Errorf("CPU = %v", got.CPU)
	}

	stale, err := GetTyped[payload](c, "system_info", 0)
	if err != nil || stale != nil {
		t.Errorf("zero ttl should be stale, got %v, %v", stale, err)
	}

	missing, err := GetTyped[payload](c, "absent", time.Minute)
	if err != nil || missing != nil {
		t.Errorf("missing key = %v, %v", missing, err)
	}
}

func TestCache_CorruptedEntryRemoved(t *testing.T) {
	dir := t.TempDir()
	c, _ := NewCache(dir, testLogger())
	path := filepath.Join(dir, "system_info.json")
	if err := os.WriteFile(path, []byte("garbage"), 0600); err != nil {
		t.Fatal(err)
	}
	raw, fresh, err := c.Get("system_info", time.Minute)
	if raw != nil || fresh || err != nil {
		t.Errorf("Get = %s, %v, %v", raw, fresh, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupted entry should be removed")
	}
}

func TestCache_Clear(t *testing.T) {
	c, _ := NewCache(t.TempDir(), testLogger())
	_ = c.Set("a", 1)
	_ = c.Set("b", 2)
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if raw, _, _ := c.Get("a", time.Hour); raw != nil {
		t.Error("entry survived Clear")
	}
}
