package config

import (
	"path/filepath"
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applySessionDefaults(&cfg.Session)
	applyAPIDefaults(&cfg.API)
	applyMetricsDefaults(&cfg.Metrics)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applySessionDefaults sets session manager defaults.
func applySessionDefaults(cfg *SessionConfig) {
	if cfg.Root == "" {
		cfg.Root = "/var/lib/sessionfsd"
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 512
	}
	if cfg.SnapshotDir == "" {
		cfg.SnapshotDir = "/var/tmp"
	}
}

// applyAPIDefaults sets API server defaults.
func applyAPIDefaults(cfg *APIConfig) {
	if cfg.Address == "" {
		cfg.Address = ":8080"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// Used when no configuration file is found, and as the base for
// 'sessionfsd init'.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Session: SessionConfig{
			Root: filepath.Clean("/var/lib/sessionfsd"),
		},
		API: APIConfig{
			Enabled: true,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
