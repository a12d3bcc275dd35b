package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"autosense/internal/api"
	"autosense/internal/collector"
	"autosense/internal/config"
	"autosense/internal/poller"
	"autosense/internal/projector"
	"autosense/internal/session"
	"autosense/internal/store"
)

type backend struct {
	mu     sync.Mutex
	seen   map[string][]string
	routes map[string]http.HandlerFunc
	srv    *httptest.Server
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{
		seen:   make(map[string][]string),
		routes: make(map[string]http.HandlerFunc),
	}
	b.srv = httptest.NewServer(b)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) handle(path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[path] = h
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.seen[r.URL.Path] = append(b.seen[r.URL.Path], r.Header.Get("Authorization"))
	h, ok := b.routes[r.URL.Path]
	b.mu.Unlock()

	switch {
	case ok:
		h(w, r)
	case r.URL.Path == "/health":
		w.WriteHeader(http.StatusOK)
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not Found"})
	}
}

// authHeaders returns the Authorization headers seen on path, in order.
func (b *backend) authHeaders(path string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.seen[path]...)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respond(status int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, body)
	}
}

var systemInfo = map[string]any{
	"success": true,
	"system": map[string]any{
		"cpu_count":       8,
		"cpu_percent":     42.0,
		"memory_total_gb": 16.0,
		"memory_used_gb":  8.0,
		"memory_percent":  50.0,
		"disk_total_gb":   500.0,
		"disk_used_gb":    250.0,
		"disk_percent":    50.0,
		"process_count":   210,
	},
}

type idleTicker struct{ c chan time.Time }

func (t idleTicker) C() <-chan time.Time { return t.c }
func (idleTicker) Stop()                 {}

func idleTickers(time.Duration) poller.Ticker {
	return idleTicker{c: make(chan time.Time)}
}

type fixture struct {
	c    *Controller
	sess *session.Manager
	st   *store.Store
	cfg  config.Config
}

func newFixture(t *testing.T, b *backend, tweak func(*Deps)) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultConfig().
		WithServerURL(b.srv.URL).
		WithStateDir(t.TempDir()).
		WithOfflineMode(false)

	st, err := store.Open(cfg.StateDir, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	sess := session.NewManager(st, nil, logger)
	gw := api.NewGateway(cfg.ServerURL, api.WithTokenSource(sess), api.WithLogger(logger))
	client := api.NewClient(gw, cfg.DiskMapTimeout)
	sess.SetAuthenticator(client)

	d := Deps{Config: cfg, Client: client, Session: sess, Store: st, Logger: logger}
	if tweak != nil {
		tweak(&d)
		if d.Config.DiskMapTimeout != cfg.DiskMapTimeout {
			d.Client = api.NewClient(gw, d.Config.DiskMapTimeout)
			sess.SetAuthenticator(d.Client)
		}
	}

	c, err := New(d, WithTickerFactory(idleTickers))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	t.Cleanup(func() { _ = c.Dispose() })
	return fixture{c: c, sess: sess, st: st, cfg: d.Config}
}

func TestController_LogoutDropsCredentials(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/system/info", respond(http.StatusOK, systemInfo))
	b.handle("/api/alerts", respond(http.StatusOK, map[string]any{"success": true}))
	b.handle("/api/boost-ram", respond(http.StatusOK, map[string]any{"success": true, "freed_percent": 5}))
	f := newFixture(t, b, nil)

	if err := f.st.Set(store.KeyAuthToken, "tok-1"); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := f.c.Init(ctx, ""); err != nil {
		t.Fatalf("init: %v", err)
	}

	f.c.Dispatch(ctx, EventBoostRAM, Args{})
	out := f.c.Dispatch(ctx, EventLogout, Args{})
	if out.Toast.Text != "Logged out successfully" {
		t.Errorf("logout toast = %q", out.Toast.Text)
	}
	if f.c.Polling() {
		t.Error("polling should stop on logout")
	}

	f.c.Dispatch(ctx, EventBoostRAM, Args{})
	headers := b.authHeaders("/api/boost-ram")
	if len(headers) != 2 {
		t.Fatalf("boost calls = %d, want 2", len(headers))
	}
	if headers[0] != "Bearer tok-1" {
		t.Errorf("first call header = %q", headers[0])
	}
	if headers[1] != "" {
		t.Errorf("call after logout carried credentials: %q", headers[1])
	}

	gated := f.c.Dispatch(ctx, EventApps, Args{})
	if gated.Toast.Text != "Please login to manage applications" {
		t.Errorf("gated toast = %q", gated.Toast.Text)
	}
	if n := len(b.authHeaders("/api/apps")); n != 0 {
		t.Errorf("gated event reached the server %d times", n)
	}
}

func TestController_InitAndRefresh(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/system/info", respond(http.StatusOK, systemInfo))
	b.handle("/api/drives", respond(http.StatusOK, map[string]any{"success": true, "drives": []string{"C:\\", "D:\\"}}))
	f := newFixture(t, b, nil)

	ctx := context.Background()
	if err := f.c.Init(ctx, ""); err != nil {
		t.Fatalf("init: %v", err)
	}
	s := f.c.Snapshot()
	if !s.Online || s.Offline {
		t.Errorf("online=%v offline=%v, want online", s.Online, s.Offline)
	}
	if !s.HasMetrics || s.Metrics.CPU.Percent != 42 {
		t.Errorf("cpu = %v", s.Metrics.CPU.Percent)
	}
	if len(s.Drives) != 2 {
		t.Errorf("drives = %v", s.Drives)
	}
	if s.Life == nil {
		t.Fatal("life saver panel not computed")
	}
	if !f.c.Polling() {
		t.Error("auto-refresh should start polling")
	}
	if n := len(b.authHeaders("/api/alerts")); n != 0 {
		t.Errorf("alerts fetched without a session %d times", n)
	}

	if err := f.c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := f.c.History(projector.CPU); len(got) != 2 {
		t.Errorf("history = %v, want 2 samples", got)
	}
}

func TestController_InitHonorsPersistedPreferences(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/system/info", respond(http.StatusOK, systemInfo))
	f := newFixture(t, b, nil)

	_ = f.st.SetBool(store.KeyAutoRefresh, false)
	_ = f.st.SetBool(store.KeyNotifications, false)
	_ = f.st.SetFloat(store.KeyLifeSavedMonths, 1.5)

	if err := f.c.Init(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	s := f.c.Snapshot()
	if s.AutoRefresh || s.Notifications {
		t.Errorf("prefs not restored: auto=%v notif=%v", s.AutoRefresh, s.Notifications)
	}
	if f.c.Polling() {
		t.Error("polling started with auto-refresh off")
	}
	if s.LifeSavedMonths != 1.5 {
		t.Errorf("life saved = %v", s.LifeSavedMonths)
	}
}

func TestController_InitCapturesLandingToken(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/system/info", respond(http.StatusOK, systemInfo))
	b.handle("/api/auth/me", respond(http.StatusOK, map[string]any{"username": "ada", "email": "ada@example.com"}))
	f := newFixture(t, b, nil)

	if err := f.c.Init(context.Background(), "http://localhost:3000/?token=abc123"); err != nil {
		t.Fatal(err)
	}
	s := f.c.Snapshot()
	if !s.Authenticated || s.User != "ada" {
		t.Errorf("authenticated=%v user=%q", s.Authenticated, s.User)
	}
	if got := b.authHeaders("/api/auth/me"); len(got) != 1 || got[0] != "Bearer abc123" {
		t.Errorf("me headers = %v", got)
	}
}

func TestController_RefreshAuthFailures(t *testing.T) {
	tests := []struct {
		name       string
		systemCode int
		alertsCode int
		wantToken  bool
		wantOnline bool
	}{
		{"silent 401 on system info keeps the session", http.StatusUnauthorized, http.StatusOK, true, true},
		{"401 on alerts ends the session", http.StatusOK, http.StatusUnauthorized, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t)
			b.handle("/api/system/info", func(w http.ResponseWriter, _ *http.Request) {
				if tt.systemCode != http.StatusOK {
					writeJSON(w, tt.systemCode, map[string]any{"detail": "Could not validate credentials"})
					return
				}
				writeJSON(w, http.StatusOK, systemInfo)
			})
			b.handle("/api/alerts", func(w http.ResponseWriter, _ *http.Request) {
				if tt.alertsCode != http.StatusOK {
					writeJSON(w, tt.alertsCode, map[string]any{"detail": "Could not validate credentials"})
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"success": true})
			})
			f := newFixture(t, b, nil)
			_ = f.st.Set(store.KeyAuthToken, "tok")
			f.sess.RestoreSession()

			_ = f.c.Refresh(context.Background())

			_, has := f.st.Get(store.KeyAuthToken)
			if has != tt.wantToken {
				t.Errorf("token persisted = %v, want %v", has, tt.wantToken)
			}
			if f.sess.Authenticated() != tt.wantToken {
				t.Errorf("authenticated = %v, want %v", f.sess.Authenticated(), tt.wantToken)
			}
			if got := f.c.Snapshot().Online; got != tt.wantOnline {
				t.Errorf("online = %v, want %v", got, tt.wantOnline)
			}
		})
	}
}

func TestController_RefreshWithoutSnapshotKeepsDisplay(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]any
	}{
		{"success false", http.StatusOK, map[string]any{"success": false, "error": "collector down"}},
		{"server error detail", http.StatusInternalServerError, map[string]any{"detail": "Internal Server Error"}},
		{"missing system object", http.StatusOK, map[string]any{"success": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t)
			b.handle("/api/system/info", respond(http.StatusOK, systemInfo))
			b.handle("/api/alerts", respond(http.StatusOK, map[string]any{"success": true}))
			f := newFixture(t, b, nil)
			_ = f.st.Set(store.KeyAuthToken, "tok")
			f.sess.RestoreSession()

			if err := f.c.Refresh(context.Background()); err != nil {
				t.Fatalf("first refresh: %v", err)
			}
			before := f.c.Snapshot()

			b.handle("/api/system/info", respond(tt.status, tt.body))
			_ = f.c.Refresh(context.Background())

			after := f.c.Snapshot()
			if after.Raw.CPUPercent != 42 || after.Metrics != before.Metrics {
				t.Errorf("display changed: cpu=%v", after.Raw.CPUPercent)
			}
			if got := f.c.History(projector.CPU); len(got) != 1 || got[0] != 42 {
				t.Errorf("cpu history = %v, want [42]", got)
			}
			if !after.Online {
				t.Error("server should still be online")
			}
			if got := b.authHeaders("/api/alerts"); len(got) != 2 {
				t.Errorf("alerts fetched %d times, want 2", len(got))
			}
		})
	}
}

func TestController_AlertsAndBadge(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/system/info", respond(http.StatusOK, systemInfo))
	b.handle("/api/alerts", respond(http.StatusOK, map[string]any{
		"success": true,
		"stored_alerts": []any{
			map[string]any{"id": 1, "type": "warning", "title": "High RAM", "message": "RAM at 91%", "timestamp": "2026-10-19T09:00:00"},
		},
		"current_alerts": []any{
			map[string]any{"type": "critical", "title": "Disk", "message": "Disk almost full"},
		},
	}))
	f := newFixture(t, b, nil)
	_ = f.st.Set(store.KeyAuthToken, "tok")
	f.sess.RestoreSession()

	if err := f.c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	s := f.c.Snapshot()
	if len(s.Alerts) != 2 || !s.BadgeOn || s.Badge != "2" {
		t.Fatalf("alerts=%d badge=%q on=%v", len(s.Alerts), s.Badge, s.BadgeOn)
	}

	f.c.Dispatch(context.Background(), EventClearNotifications, Args{})
	s = f.c.Snapshot()
	if len(s.Alerts) != 0 || s.BadgeOn {
		t.Errorf("clear left alerts=%d badge=%v", len(s.Alerts), s.BadgeOn)
	}
}

type MockSampler struct{}

func (MockSampler) CPU(context.Context) (float64, int, error) { return 12.5, 4, nil }

func (MockSampler) Memory(context.Context) (*mem.VirtualMemoryStat, error) {
	return &mem.VirtualMemoryStat{Total: 8 << 30, Used: 2 << 30, UsedPercent: 25}, nil
}

func (MockSampler) Disk(context.Context, string) (*disk.UsageStat, error) {
	return &disk.UsageStat{Total: 100 << 30, Used: 40 << 30, UsedPercent: 40}, nil
}

func (MockSampler) ProcessCount(context.Context) (int, error) { return 99, nil }

func TestController_OfflineFallback(t *testing.T) {
	b := newBackend(t)
	f := newFixture(t, b, func(d *Deps) {
		d.Config = d.Config.WithOfflineMode(true)
		cache, err := store.NewCache(t.TempDir(), nil)
		if err != nil {
			t.Fatal(err)
		}
		lc, err := collector.NewLocalCollector(collector.DefaultConfig(), MockSampler{}, cache, nil)
		if err != nil {
			t.Fatal(err)
		}
		d.Offline = lc
	})
	b.srv.Close()

	if err := f.c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh with fallback: %v", err)
	}
	s := f.c.Snapshot()
	if s.Online || !s.Offline {
		t.Errorf("online=%v offline=%v, want offline snapshot", s.Online, s.Offline)
	}
	if s.Raw.CPUPercent != 12.5 || s.Raw.ProcessCount != 99 {
		t.Errorf("offline metrics = %+v", s.Raw)
	}
}

func TestController_RefreshWithoutFallbackFails(t *testing.T) {
	b := newBackend(t)
	f := newFixture(t, b, nil)
	b.srv.Close()

	err := f.c.Refresh(context.Background())
	var te *api.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want transport error", err)
	}
	if f.c.Snapshot().Online {
		t.Error("server should be offline")
	}
}

func TestController_CleanJunkConfirms(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/system/info", respond(http.StatusOK, systemInfo))
	b.handle("/api/junk-files/scan", respond(http.StatusOK, map[string]any{
		"success": true, "total_count": 3, "total_size_mb": 12.5,
		"junk_files": []any{map[string]any{"path": "/tmp/a", "size": 100, "type": "temp"}},
	}))
	b.handle("/api/junk-files/clean", respond(http.StatusOK, map[string]any{
		"success": true, "cleaned_files": 3, "freed_size_mb": 12.5,
	}))
	f := newFixture(t, b, nil)
	ctx := context.Background()

	first := f.c.Dispatch(ctx, EventCleanJunk, Args{})
	if first.Confirm != "Found 12.5 MB of junk files. Clean them?" {
		t.Fatalf("confirm = %q", first.Confirm)
	}
	if n := len(b.authHeaders("/api/junk-files/clean")); n != 0 {
		t.Fatalf("clean ran before confirmation")
	}
	if s := f.c.Snapshot(); s.JunkScan == nil || len(s.JunkScan.Files) != 1 {
		t.Errorf("junk scan not recorded")
	}

	if got := f.c.ProgressToast(EventCleanJunk, Args{Confirmed: true}); got.Text != "Cleaning junk files..." {
		t.Errorf("progress = %q", got.Text)
	}

	second := f.c.Dispatch(ctx, EventCleanJunk, Args{Confirmed: true})
	if second.Err != nil {
		t.Fatalf("clean: %v", second.Err)
	}
	if second.Toast.Text != "Cleaned 3 files, freed 12.5 MB" {
		t.Errorf("toast = %q", second.Toast.Text)
	}
	if len(second.Follow) != 1 || !strings.Contains(second.Follow[0].Text, "+6 days") {
		t.Errorf("follow = %+v", second.Follow)
	}
	if got := f.st.Float(store.KeyLifeSavedMonths, 0); got != 0.2 {
		t.Errorf("life saved months = %v, want 0.2", got)
	}
	if n := len(b.authHeaders("/api/system/info")); n != 1 {
		t.Errorf("dashboard refreshes after clean = %d, want 1", n)
	}
}

func TestController_BoostsAccumulate(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/system/info", respond(http.StatusOK, systemInfo))
	b.handle("/api/boost-ram", respond(http.StatusOK, map[string]any{"success": true, "freed_percent": 7.5}))
	b.handle("/api/ai/auto-optimize", respond(http.StatusOK, map[string]any{"success": true, "result": map[string]any{}}))
	f := newFixture(t, b, nil)
	ctx := context.Background()

	out := f.c.Dispatch(ctx, EventBoostRAM, Args{})
	if out.Toast.Text != "RAM Boosted! Freed 7.5% memory" {
		t.Errorf("toast = %q", out.Toast.Text)
	}
	out = f.c.Dispatch(ctx, EventAutoOptimize, Args{})
	if out.Toast.Text != "Auto-optimization completed!" {
		t.Errorf("toast = %q", out.Toast.Text)
	}
	got := f.st.Float(store.KeyLifeSavedMonths, 0)
	if got < 0.499 || got > 0.501 {
		t.Errorf("life saved months = %v, want 0.5", got)
	}
	if s := f.c.Snapshot(); s.Life == nil || s.LifeSavedMonths != got {
		t.Errorf("life panel not updated: %+v", s.Life)
	}
}

func TestController_ActionErrors(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/boost-ram", respond(http.StatusOK, map[string]any{"success": false, "error": "Access denied"}))
	b.handle("/api/ai/predict", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html>oops</html>")
	})
	f := newFixture(t, b, nil)
	ctx := context.Background()

	tests := []struct {
		ev   Event
		want string
	}{
		{EventBoostRAM, "Error boosting RAM: Access denied"},
		{EventPredict, "Error getting prediction: Invalid response from server"},
	}
	for _, tt := range tests {
		t.Run(string(tt.ev), func(t *testing.T) {
			out := f.c.Dispatch(ctx, tt.ev, Args{})
			if out.Err == nil {
				t.Fatal("expected error")
			}
			if out.Toast.Text != tt.want || out.Toast.Level != LevelError {
				t.Errorf("toast = %+v, want %q", out.Toast, tt.want)
			}
		})
	}
	if got := f.st.Float(store.KeyLifeSavedMonths, 0); got != 0 {
		t.Errorf("failed boost credited %v months", got)
	}
}

func TestController_DiskMap(t *testing.T) {
	b := newBackend(t)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	b.handle("/api/disk-map", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("drive") == "slow" {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			return
		}
		if r.URL.Query().Get("drive") == "empty" {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "drive": "empty", "treemap": map[string]any{"name": "empty", "size": 0}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true, "drive": "C:\\", "total_size": 1000, "used_size": 600, "free_size": 400,
			"treemap": map[string]any{"name": "C:\\", "size": 600, "children": []any{
				map[string]any{"name": "Users", "size": 400},
				map[string]any{"name": "Windows", "size": 200},
			}},
		})
	})
	f := newFixture(t, b, func(d *Deps) {
		d.Config.DiskMapTimeout = 50 * time.Millisecond
	})
	_ = f.st.Set(store.KeyAuthToken, "tok")
	f.sess.RestoreSession()
	ctx := context.Background()

	tests := []struct {
		drive string
		want  string
		level Level
	}{
		{"C:\\", "Disk map loaded", LevelSuccess},
		{"empty", "No accessible folders found in empty", LevelWarning},
		{"slow", "Scan timed out. Try a lower depth.", LevelWarning},
	}
	for _, tt := range tests {
		t.Run(tt.drive, func(t *testing.T) {
			out := f.c.Dispatch(ctx, EventDiskMap, Args{Drive: tt.drive, Depth: 2})
			if out.Toast.Text != tt.want || out.Toast.Level != tt.level {
				t.Errorf("toast = %+v, want %q", out.Toast, tt.want)
			}
		})
	}
}

func TestController_Uninstall(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/apps/Foo Bar/remove", respond(http.StatusOK, map[string]any{"success": true, "message": "started"}))
	f := newFixture(t, b, nil)
	_ = f.st.Set(store.KeyAuthToken, "tok")
	f.sess.RestoreSession()
	ctx := context.Background()

	out := f.c.Dispatch(ctx, EventUninstall, Args{App: "Foo Bar"})
	if out.Confirm != "Are you sure you want to uninstall Foo Bar?" {
		t.Fatalf("confirm = %q", out.Confirm)
	}
	out = f.c.Dispatch(ctx, EventUninstall, Args{App: "Foo Bar", Confirmed: true})
	if out.Toast.Text != "Uninstall process started" {
		t.Errorf("toast = %+v err=%v", out.Toast, out.Err)
	}
	if out := f.c.Dispatch(ctx, EventUninstall, Args{}); out.Err == nil {
		t.Error("expected error without an app")
	}
}

func TestController_SecurityCenter(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/security/firewall", respond(http.StatusOK, map[string]any{
		"success": true, "firewall": map[string]any{"enabled": true, "profiles": map[string]any{"Domain": true}},
	}))
	b.handle("/api/security/ports", respond(http.StatusOK, map[string]any{
		"success": true, "count": 2, "open_ports": []any{
			map[string]any{"port": 22, "address": "0.0.0.0", "protocol": "TCP", "process": map[string]any{"pid": 1, "name": "sshd"}},
			map[string]any{"port": 53, "address": "127.0.0.1", "protocol": "UDP"},
		},
	}))
	b.handle("/api/security/scan", respond(http.StatusOK, map[string]any{
		"success": true, "risk_score": 0.15, "risk_level": "low", "total_threats": 1, "recommendation": "System appears clean",
	}))
	f := newFixture(t, b, nil)
	_ = f.st.Set(store.KeyAuthToken, "tok")
	f.sess.RestoreSession()
	ctx := context.Background()

	if out := f.c.Dispatch(ctx, EventFirewall, Args{}); out.Toast.Text != "Firewall check complete" {
		t.Errorf("firewall toast = %q", out.Toast.Text)
	}
	if out := f.c.Dispatch(ctx, EventPorts, Args{}); out.Toast.Text != "Found 2 open ports" {
		t.Errorf("ports toast = %q", out.Toast.Text)
	}
	if out := f.c.Dispatch(ctx, EventSecurityScan, Args{}); out.Toast.Text != "Malware scan complete" {
		t.Errorf("scan toast = %q", out.Toast.Text)
	}

	s := f.c.Snapshot()
	if s.Firewall == nil || !s.Firewall.Enabled {
		t.Error("firewall not recorded")
	}
	if len(s.Ports) != 2 || s.Ports[1].ProcessLabel() != "Unknown process" {
		t.Errorf("ports = %+v", s.Ports)
	}
	if s.Security == nil || s.Security.RiskPercent != 15 {
		t.Errorf("security = %+v", s.Security)
	}
}

func TestController_PredictAndAIOptimize(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/ai/predict", respond(http.StatusOK, map[string]any{
		"success": true,
		"prediction": map[string]any{
			"risk_score": 0.72, "risk_level": "high", "explanation": "Disk nearly full",
			"recommendations": []any{"Clean junk files"},
		},
	}))
	b.handle("/api/ai/auto-optimize", respond(http.StatusOK, map[string]any{"success": true}))
	f := newFixture(t, b, nil)

	out := f.c.Dispatch(context.Background(), EventAIOptimize, Args{})
	if out.Toast.Text != "AI optimization completed!" {
		t.Errorf("toast = %q", out.Toast.Text)
	}
	if len(out.Follow) != 1 || out.Follow[0].Text != "System health analysis complete" {
		t.Errorf("follow = %+v", out.Follow)
	}
	s := f.c.Snapshot()
	if s.Prediction == nil || s.Prediction.RiskPercent != 72 || s.Prediction.Level != "HIGH" {
		t.Fatalf("prediction = %+v", s.Prediction)
	}
	if s.Risk == nil || s.Risk.Status != "CRIT" {
		t.Errorf("risk = %+v", s.Risk)
	}
}

func TestController_Report(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/ai/report", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-1.4 report")
	})
	f := newFixture(t, b, nil)

	path := filepath.Join(t.TempDir(), "out.pdf")
	out := f.c.Dispatch(context.Background(), EventReport, Args{ReportPath: path})
	if out.Err != nil {
		t.Fatalf("report: %v", out.Err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "%PDF") {
		t.Errorf("report body = %q", data)
	}
	if f.c.Snapshot().ReportPath != path {
		t.Error("report path not recorded")
	}
}

func TestController_NotificationsOffSuppressesToasts(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/junk-files/scan", respond(http.StatusOK, map[string]any{"success": true, "total_size_mb": 1}))
	b.handle("/api/boost-ram", respond(http.StatusOK, map[string]any{"success": false, "error": "nope"}))
	f := newFixture(t, b, nil)
	ctx := context.Background()

	f.c.Dispatch(ctx, EventToggleNotifications, Args{})
	if f.st.Bool(store.KeyNotifications, true) {
		t.Fatal("notifications preference not persisted")
	}

	out := f.c.Dispatch(ctx, EventBoostRAM, Args{})
	if len(out.Toasts()) != 0 {
		t.Errorf("toasts shown while muted: %+v", out.Toasts())
	}
	if out.Err == nil {
		t.Error("error should survive muting")
	}
	if got := f.c.ProgressToast(EventBoostRAM, Args{}); !got.Empty() {
		t.Errorf("progress shown while muted: %q", got.Text)
	}
	if out := f.c.Dispatch(ctx, EventCleanJunk, Args{}); out.Confirm == "" {
		t.Error("confirm prompt should survive muting")
	}
}

func TestController_ToggleAutoRefresh(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/system/info", respond(http.StatusOK, systemInfo))
	f := newFixture(t, b, nil)
	ctx := context.Background()
	if err := f.c.Init(ctx, ""); err != nil {
		t.Fatal(err)
	}

	f.c.Dispatch(ctx, EventToggleAutoRefresh, Args{})
	if f.c.Polling() || f.st.Bool(store.KeyAutoRefresh, true) {
		t.Error("toggle off should stop polling and persist")
	}
	f.c.Dispatch(ctx, EventToggleAutoRefresh, Args{})
	if !f.c.Polling() || !f.st.Bool(store.KeyAutoRefresh, false) {
		t.Error("toggle on should restart polling and persist")
	}
	if n := f.c.Scheduler().ActiveTimers(); n != 1 {
		t.Errorf("active timers = %d", n)
	}
}

func TestController_Login(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/system/info", respond(http.StatusOK, systemInfo))
	b.handle("/api/auth/me", respond(http.StatusOK, map[string]any{"username": "ada"}))
	b.handle("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("password") != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Incorrect username or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "tok-9", "token_type": "bearer"})
	})
	f := newFixture(t, b, nil)
	ctx := context.Background()
	_ = f.st.SetBool(store.KeyAutoRefresh, true)
	if err := f.c.Init(ctx, ""); err != nil {
		t.Fatal(err)
	}
	f.c.Dispatch(ctx, EventLogout, Args{})

	tests := []struct {
		password string
		want     string
		authed   bool
	}{
		{"wrong", "Login failed: Incorrect username or password", false},
		{"secret", "Login successful!", true},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			out := f.c.Login(ctx, "ada", tt.password)
			if out.Toast.Text != tt.want {
				t.Errorf("toast = %q, want %q", out.Toast.Text, tt.want)
			}
			if f.sess.Authenticated() != tt.authed {
				t.Errorf("authenticated = %v", f.sess.Authenticated())
			}
			if f.c.Polling() != tt.authed {
				t.Errorf("polling = %v, want %v", f.c.Polling(), tt.authed)
			}
		})
	}
	if s := f.c.Snapshot(); s.User != "ada" {
		t.Errorf("user = %q", s.User)
	}
}

func TestController_Ask(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/system/info", respond(http.StatusOK, systemInfo))
	f := newFixture(t, b, nil)
	ctx := context.Background()
	_ = f.c.Refresh(ctx)

	out := f.c.Dispatch(ctx, EventAsk, Args{Query: "hey autosense, what's the system status?"})
	if out.Err != nil {
		t.Fatal(out.Err)
	}
	ans := f.c.Snapshot().LastAnswer
	if ans == nil || ans.Text == "" {
		t.Fatal("no answer recorded")
	}
	if out := f.c.Dispatch(ctx, EventAsk, Args{Query: "  "}); out.Err == nil {
		t.Error("empty question should fail")
	}
}

func TestController_UnknownEvent(t *testing.T) {
	f := newFixture(t, newBackend(t), nil)
	if out := f.c.Dispatch(context.Background(), Event("nope"), Args{}); out.Err == nil {
		t.Error("expected error for unknown event")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&api.AppError{StatusCode: 401, Message: "Could not validate credentials"}, "Session expired. Please login again."},
		{&api.AppError{StatusCode: 200, Message: "Access denied"}, "Access denied"},
		{&api.AppError{StatusCode: 500}, "Unknown error"},
		{api.ErrTimeout, "Request timed out"},
		{&api.TransportError{Op: "GET /x", Err: errors.New("refused")}, "Unable to connect to server"},
		{fmt.Errorf("wrap: %w", api.ErrInvalidResponse), "Invalid response from server"},
	}
	for _, tt := range tests {
		if got := Describe(tt.err); got != tt.want {
			t.Errorf("Describe(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
