package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load builds a Config from defaults, then the YAML file at path (if it
// exists), then AUTOSENSE_* and GEMINI_* environment variables. An empty path
// skips the file. The result is validated.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg = applyEnv(cfg)
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(c Config) Config {
	c.ServerURL = env("AUTOSENSE_SERVER", c.ServerURL)
	c.PollInterval = envDuration("AUTOSENSE_POLL_INTERVAL", c.PollInterval)
	c.RequestTimeout = envDuration("AUTOSENSE_REQUEST_TIMEOUT", c.RequestTimeout)
	if dir := env("AUTOSENSE_STATE_DIR", ""); dir != "" {
		c = c.WithStateDir(dir)
	}
	c.LogFile = env("AUTOSENSE_LOG_FILE", c.LogFile)
	c.LogLevel = strings.ToLower(env("AUTOSENSE_LOG_LEVEL", c.LogLevel))
	c.JournalPath = env("AUTOSENSE_JOURNAL", c.JournalPath)
	c.OfflineMode = envBool("AUTOSENSE_OFFLINE", c.OfflineMode)
	c.HistoryCapacity = envInt("AUTOSENSE_HISTORY", c.HistoryCapacity)
	c.GeminiAPIKey = env("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = env("GEMINI_MODEL", c.GeminiModel)
	return c
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := env(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envBool(key string, fallback bool) bool {
	v := env(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := env(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
