// Package config loads engine and server settings and saved filter presets.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/akins11/market-basket-analysis-web-app/internal/validation"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/taxonomy"
)

// EnvPrefix prefixes every environment override, e.g.
// BASKET_MINING_MIN_SUPPORT -> mining.min_support.
const EnvPrefix = "BASKET_"

// ConfigPathEnvVar names a config file to load when none is passed.
const ConfigPathEnvVar = "BASKET_CONFIG"

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Mining   MiningConfig   `koanf:"mining"`
	Taxonomy TaxonomyConfig `koanf:"taxonomy"`
	Storage  StorageConfig  `koanf:"storage"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	MaxConns        int           `koanf:"max_conns" validate:"gte=0"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes" validate:"gt=0"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	PresetsPath     string        `koanf:"presets_path"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"` // 0 disables the limiter
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// MiningConfig holds the defaults of a mining run.
type MiningConfig struct {
	MinSupport   float64       `koanf:"min_support" validate:"gte=0,lte=1"`
	MaxLength    int           `koanf:"max_length" validate:"gte=0"`
	Metric       string        `koanf:"metric" validate:"oneof=support confidence lift leverage conviction"`
	MinThreshold float64       `koanf:"min_threshold"`
	Timeout      time.Duration `koanf:"timeout" validate:"gte=0"` // 0 disables the limit
}

// TaxonomyConfig configures product collapsing.
type TaxonomyConfig struct {
	Threshold int `koanf:"threshold" validate:"gte=1"`
}

// StorageConfig selects the snapshot store.
type StorageConfig struct {
	Driver string `koanf:"driver" validate:"oneof=memory sqlite"`
	Path   string `koanf:"path" validate:"required_if=Driver sqlite"`

	// Snapshot retention; a zero interval disables the pruner.
	PruneInterval  time.Duration `koanf:"prune_interval" validate:"gte=0"`
	MaxAge         time.Duration `koanf:"max_age" validate:"gte=0"`
	KeepPerDataset int           `koanf:"keep_per_dataset" validate:"gte=0"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Default returns the built-in configuration.
func Default() *Config {
	lift := mining.RangeFor(mining.MetricLift)
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			MaxConns:        256,
			MaxUploadBytes:  32 << 20,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,

			CORSOrigins:       []string{},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Mining: MiningConfig{
			MinSupport:   mining.DefaultMinSupport,
			Metric:       string(mining.MetricLift),
			MinThreshold: lift.Default,
			Timeout:      2 * time.Minute,
		},
		Taxonomy: TaxonomyConfig{Threshold: taxonomy.DefaultThreshold},
		Storage: StorageConfig{
			Driver:         "memory",
			PruneInterval:  10 * time.Minute,
			MaxAge:         24 * time.Hour,
			KeepPerDataset: 50,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load layers defaults, an optional YAML file and BASKET_* environment
// variables, then validates the result. An empty path falls back to
// $BASKET_CONFIG; no file at all is fine.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform maps BASKET_SECTION_KEY_NAME to section.key_name.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == strings.ToLower(strings.TrimPrefix(ConfigPathEnvVar, EnvPrefix)) {
		return ""
	}
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	return section + "." + rest
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	return nil
}

// MiningOptions converts the mining section into engine options.
func (c *Config) MiningOptions() mining.Options {
	return mining.Options{MinSupport: c.Mining.MinSupport, MaxLength: c.Mining.MaxLength}
}

// Thresholds converts the mining section into rule thresholds.
func (c *Config) Thresholds() mining.Thresholds {
	return mining.Thresholds{Metric: c.Mining.Metric, MinThreshold: c.Mining.MinThreshold}
}
