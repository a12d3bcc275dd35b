// Package config holds the autosense client configuration: defaults, a YAML
// file overlay and environment overrides.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autosense/internal/lifesaver"
)

// Config contains every tunable of the dashboard client.
// Use DefaultConfig() to get sensible defaults, then override as needed.
type Config struct {
	// Backend
	ServerURL      string        `yaml:"server_url"`       // Base URL of the monitoring API (default: http://localhost:8000)
	RequestTimeout time.Duration `yaml:"request_timeout"`  // Deadline for ordinary API calls (default: 30s)
	DiskMapTimeout time.Duration `yaml:"disk_map_timeout"` // Deadline for disk map scans (default: 60s)

	// Polling
	PollInterval    time.Duration `yaml:"poll_interval"`    // Dashboard refresh cadence (default: 3s)
	HistoryCapacity int           `yaml:"history_capacity"` // Samples kept per metric chart (default: 25)

	ManualRefreshPerSecond float64 `yaml:"manual_refresh_per_second"` // Rate limit for user-triggered refreshes (default: 1)

	// Local state
	StateDir string `yaml:"state_dir"` // Persisted key-value store and cache (default: ~/.config/autosense)
	LogFile  string `yaml:"log_file"`  // TUI log destination (default: <state_dir>/autosense.log)
	LogLevel string `yaml:"log_level"` // debug, info, warn, error (default: info)

	// Offline fallback
	OfflineMode     bool          `yaml:"offline_mode"`      // Sample local metrics when the server is down (default: true)
	OfflineCacheTTL time.Duration `yaml:"offline_cache_ttl"` // Freshness of the local sample cache (default: 5m)

	// Journal
	JournalPath string `yaml:"journal_path"` // DuckDB file for snapshot history; empty disables it

	// Assistant
	GeminiAPIKey string `yaml:"-"`            // Only read from the environment
	GeminiModel  string `yaml:"gemini_model"` // Model preset: flash, pro, flash-2 (default: flash)

	// Disk map
	DefaultScanDepth int `yaml:"default_scan_depth"` // max_depth sent to /api/disk-map (default: 2)

	LifeSaver lifesaver.Coefficients `yaml:"life_saver"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	stateDir := defaultStateDir()
	return Config{
		ServerURL:      "http://localhost:8000",
		RequestTimeout: 30 * time.Second,
		DiskMapTimeout: 60 * time.Second,

		PollInterval:           3 * time.Second,
		HistoryCapacity:        25,
		ManualRefreshPerSecond: 1,

		StateDir: stateDir,
		LogFile:  filepath.Join(stateDir, "autosense.log"),
		LogLevel: "info",

		OfflineMode:     true,
		OfflineCacheTTL: 5 * time.Minute,

		GeminiModel: "flash",

		DefaultScanDepth: 2,

		LifeSaver: lifesaver.DefaultCoefficients(),
	}
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "autosense")
	}
	return filepath.Join(os.TempDir(), "autosense")
}

// WithServerURL returns a copy of the config pointing at another backend.
func (c Config) WithServerURL(u string) Config {
	c.ServerURL = strings.TrimRight(u, "/")
	return c
}

// WithPollInterval returns a copy of the config with a modified refresh cadence.
func (c Config) WithPollInterval(d time.Duration) Config {
	c.PollInterval = d
	return c
}

// WithStateDir returns a copy of the config rooted at another state directory.
// The log file follows the directory unless it was set explicitly elsewhere.
func (c Config) WithStateDir(dir string) Config {
	if c.LogFile == filepath.Join(c.StateDir, "autosense.log") {
		c.LogFile = filepath.Join(dir, "autosense.log")
	}
	c.StateDir = dir
	return c
}

// WithJournal returns a copy of the config with the snapshot journal at path.
func (c Config) WithJournal(path string) Config {
	c.JournalPath = path
	return c
}

// WithOfflineMode returns a copy of the config with the local fallback toggled.
func (c Config) WithOfflineMode(enabled bool) Config {
	c.OfflineMode = enabled
	return c
}

// WithHistoryCapacity returns a copy of the config with a different chart window.
func (c Config) WithHistoryCapacity(n int) Config {
	c.HistoryCapacity = n
	return c
}

// Validate checks if the configuration is valid and returns an error if not.
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return &ConfigError{Field: "ServerURL", Message: "must not be empty"}
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Field: "ServerURL", Message: "must be an absolute URL"}
	}
	if c.RequestTimeout <= 0 {
		return &ConfigError{Field: "RequestTimeout", Message: "must be positive"}
	}
	if c.DiskMapTimeout <= 0 {
		return &ConfigError{Field: "DiskMapTimeout", Message: "must be positive"}
	}
	if c.PollInterval <= 0 {
		return &ConfigError{Field: "PollInterval", Message: "must be positive"}
	}
	if c.HistoryCapacity <= 0 {
		return &ConfigError{Field: "HistoryCapacity", Message: "must be positive"}
	}
	if c.ManualRefreshPerSecond <= 0 {
		return &ConfigError{Field: "ManualRefreshPerSecond", Message: "must be positive"}
	}
	if c.StateDir == "" {
		return &ConfigError{Field: "StateDir", Message: "must not be empty"}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "LogLevel", Message: "must be one of debug, info, warn, error"}
	}
	if c.OfflineCacheTTL < 0 {
		return &ConfigError{Field: "OfflineCacheTTL", Message: "must not be negative"}
	}
	if c.DefaultScanDepth < 1 || c.DefaultScanDepth > 5 {
		return &ConfigError{Field: "DefaultScanDepth", Message: "must be between 1 and 5"}
	}
	if err := c.LifeSaver.Validate(); err != nil {
		return &ConfigError{Field: "LifeSaver", Message: err.Error()}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Message
}
