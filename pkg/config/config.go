package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/rollcache/internal/bytesize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the rollcache configuration.
//
// It captures everything needed to open a rolling prefetch stream: logging,
// telemetry, the object-store connection, the default block geometry, the
// ordered tier list, and the tunables spec §9 leaves as configuration
// decisions (eviction cadence, block-wait stall timeout).
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (ROLLCACHE_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// ObjectStore configures the S3-compatible object-store connection
	ObjectStore ObjectStoreConfig `mapstructure:"object_store" yaml:"object_store"`

	// Stream configures the default block geometry and per-stream tunables
	Stream StreamConfig `mapstructure:"stream" yaml:"stream"`

	// Tiers is the ordered list of local storage tiers used for staged
	// blocks. The first tier with enough free budget to place a block wins.
	Tiers []TierConfig `mapstructure:"tiers" validate:"required,min=1,dive" yaml:"tiers"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// MetricsConfig configures the Prometheus metrics registry.
// When Enabled is false, metric recording is a no-op (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port serving /metrics, when the CLI runs a server
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// ObjectStoreConfig configures the S3-compatible object-store client
// consumed by pkg/objectstore/s3.
type ObjectStoreConfig struct {
	// Region is the AWS region, or an arbitrary value for S3-compatible
	// stores that ignore it.
	Region string `mapstructure:"region" yaml:"region"`

	// Endpoint overrides the default AWS endpoint resolution, for
	// S3-compatible stores (MinIO, Localstack, etc).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`

	// PathStyle forces path-style bucket addressing
	// (https://host/bucket/key instead of https://bucket.host/key),
	// required by most non-AWS S3-compatible stores.
	PathStyle bool `mapstructure:"path_style" yaml:"path_style"`

	// AccessKeyID and SecretAccessKey set static credentials. When both are
	// empty the default AWS credential chain is used.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`

	// MaxRetries, InitialBackoff, MaxBackoff and BackoffMultiplier shape the
	// retry policy for transient GetRange/HeadObject errors.
	MaxRetries        int           `mapstructure:"max_retries" validate:"gte=0" yaml:"max_retries"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff" validate:"required,gt=0" yaml:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff" validate:"required,gt=0" yaml:"max_backoff"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier" validate:"gte=1" yaml:"backoff_multiplier"`
}

// StreamConfig configures default block geometry and stream-wide tunables.
type StreamConfig struct {
	// BlockSize is the size of each prefetched block.
	BlockSize bytesize.ByteSize `mapstructure:"block_size" validate:"required,gt=0" yaml:"block_size"`

	// HeaderBytes is skipped at the start of every object after the first
	// when concatenating a multi-object logical stream (spec §3).
	HeaderBytes uint64 `mapstructure:"header_bytes" yaml:"header_bytes"`

	// EvictionTick is the evictor's sweep interval.
	EvictionTick time.Duration `mapstructure:"eviction_tick" validate:"required,gt=0" yaml:"eviction_tick"`

	// BlockWaitTimeout bounds the reader's locate_block retry loop.
	// Zero means wait forever (spec §9 Open Question, decision recorded
	// in DESIGN.md).
	BlockWaitTimeout time.Duration `mapstructure:"block_wait_timeout" yaml:"block_wait_timeout"`

	// PrefetchBackoff bounds the prefetcher's sleep when every tier is full.
	PrefetchBackoff time.Duration `mapstructure:"prefetch_backoff" validate:"required,gt=0" yaml:"prefetch_backoff"`
}

// TierConfig is one entry in the ordered tier list (spec §3 "storage tier").
type TierConfig struct {
	// Path is the local directory backing this tier.
	Path string `mapstructure:"path" validate:"required" yaml:"path"`

	// Budget is the byte budget for this tier. A budget of 0 means "use
	// live free disk space" (pkg/tierstore/diskfree).
	Budget bytesize.ByteSize `mapstructure:"budget" yaml:"budget"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (ROLLCACHE_*)
//  2. Configuration file
//  3. Default values
//
// When no configuration file is found, Load returns GetDefaultConfig() as
// is; environment variables are not consulted in that case.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("ROLLCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for ByteSize and
// time.Duration fields.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize,
// enabling config values like "512Mi" or "1Gi".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings to time.Duration, enabling config
// values like "30s" or "5m".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "rollcache")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "rollcache")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
