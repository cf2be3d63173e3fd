// Package config loads process-level configuration for the migration core:
// logging, metrics, and checkpoint-store defaults. Per-run configuration
// (retry shape, rate limits, bulkhead caps, ...) is a separate, API-facing
// concern handled by internal/runconfig.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoggingConfig controls the process-wide logger.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"LOG_LEVEL"`
	Format string `json:"format" yaml:"format" env:"LOG_FORMAT"`
}

// MetricsConfig controls the Prometheus registry.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" env:"METRICS_ENABLED"`
	Addr    string `json:"addr" yaml:"addr" env:"METRICS_ADDR"`
}

// CheckpointConfig selects and configures the checkpoint store backend.
type CheckpointConfig struct {
	Driver string `json:"driver" yaml:"driver" env:"CHECKPOINT_DRIVER"` // "memory" or "file"
	Path   string `json:"path" yaml:"path" env:"CHECKPOINT_PATH"`
}

// Config is the top-level process configuration.
type Config struct {
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics"`
	Checkpoint CheckpointConfig `json:"checkpoint" yaml:"checkpoint"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
		Checkpoint: CheckpointConfig{
			Driver: "memory",
			Path:   "data/checkpoints",
		},
	}
}

// Load loads configuration from an optional YAML file (CONFIG_FILE env var,
// defaulting to configs/config.yaml) and then applies environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		path = "configs/config.yaml"
	}
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	if err := envdecode.Decode(cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
