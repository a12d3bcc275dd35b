package collector

import (
	"runtime"
	"time"
)

// Config contains the local sampler's parameters.
// Use DefaultConfig() to get sensible defaults, then override as needed.
type Config struct {
	DiskPath        string        // Filesystem sampled for disk usage (default: "/" or "C:\\")
	CPUSampleWindow time.Duration // CPU percent is measured over this window (default: 1s)
	SampleTimeout   time.Duration // Upper bound for one full sample (default: 5s)
	CacheTTL        time.Duration // How long a cached snapshot stays fresh (default: 5m)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	diskPath := "/"
	if runtime.GOOS == "windows" {
		diskPath = "C:\\"
	}
	return Config{
		DiskPath:        diskPath,
		CPUSampleWindow: time.Second,
		SampleTimeout:   5 * time.Second,
		CacheTTL:        5 * time.Minute,
	}
}

// WithDiskPath returns a copy of the config sampling another filesystem.
func (c Config) WithDiskPath(path string) Config {
	c.DiskPath = path
	return c
}

// WithCacheTTL returns a copy of the config with a modified cache TTL.
func (c Config) WithCacheTTL(d time.Duration) Config {
	c.CacheTTL = d
	return c
}

// WithCPUSampleWindow returns a copy of the config with a modified CPU window.
func (c Config) WithCPUSampleWindow(d time.Duration) Config {
	c.CPUSampleWindow = d
	return c
}

// Validate checks if the configuration is valid and returns an error if not.
func (c Config) Validate() error {
	if c.DiskPath == "" {
		return &ConfigError{Field: "DiskPath", Message: "must not be empty"}
	}
	if c.CPUSampleWindow < 0 {
		return &ConfigError{Field: "CPUSampleWindow", Message: "must not be negative"}
	}
	if c.SampleTimeout <= 0 {
		return &ConfigError{Field: "SampleTimeout", Message: "must be positive"}
	}
	if c.CacheTTL < 0 {
		return &ConfigError{Field: "CacheTTL", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "collector config error: " + e.Field + " " + e.Message
}
