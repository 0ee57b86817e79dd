package config

import (
	"strings"
	"time"

	"github.com/marmos91/rollcache/internal/bytesize"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", false, nil) are replaced with defaults; explicit values
// are preserved. There is no default for Tiers or ObjectStore credentials —
// the caller must configure at least one tier.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyObjectStoreDefaults(&cfg.ObjectStore)
	applyStreamDefaults(&cfg.Stream)
}

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

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyObjectStoreDefaults(cfg *ObjectStoreConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.BackoffMultiplier == 0 {
		cfg.BackoffMultiplier = 2.0
	}
}

func applyStreamDefaults(cfg *StreamConfig) {
	if cfg.BlockSize == 0 {
		cfg.BlockSize = 32 * bytesize.MiB
	}
	if cfg.EvictionTick == 0 {
		cfg.EvictionTick = 5 * time.Second
	}
	if cfg.PrefetchBackoff == 0 {
		cfg.PrefetchBackoff = 500 * time.Millisecond
	}
	// BlockWaitTimeout default 0 means "wait forever" — spec §9 decision,
	// so it is intentionally left untouched here.
}

// GetDefaultConfig returns a Config with every field set to its default,
// except Tiers which is seeded with a single, budget-unbounded "/tmp/rollcache"
// tier so a freshly installed binary has somewhere to stage blocks.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Tiers: []TierConfig{
			{Path: "/tmp/rollcache", Budget: 0},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
