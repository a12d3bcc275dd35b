package collector

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DiskPath == "" {
		t.Error("Expected a default DiskPath")
	}
	if cfg.CPUSampleWindow != time.Second {
		t.Errorf("Expected CPUSampleWindow 1s, got %v", cfg.CPUSampleWindow)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("Expected CacheTTL 5m, got %v", cfg.CacheTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantField string
	}{
		{"valid default config", DefaultConfig(), ""},
		{"empty disk path", DefaultConfig().WithDiskPath(""), "DiskPath"},
		{"negative cpu window", DefaultConfig().WithCPUSampleWindow(-time.Second), "CPUSampleWindow"},
		{"negative ttl", DefaultConfig().WithCacheTTL(-time.Minute), "CacheTTL"},
		{"zero cpu window is allowed", DefaultConfig().WithCPUSampleWindow(0), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() error = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %s, want %s", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestConfig_WithMethodsDoNotMutate(t *testing.T) {
	base := DefaultConfig()
	_ = base.WithDiskPath("/data").WithCacheTTL(time.Second)
	if base.DiskPath == "/data" || base.CacheTTL == time.Second {
		t.Error("With* methods must return a modified copy")
	}
}
