// Package config loads and validates the adapter configuration: where to
// find glue, the default invocation deadline, and the telemetry setup.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/starglue/starglue/pkg/telemetry"
)

// Config is the adapter configuration.
type Config struct {
	// GluePaths are the locations scanned for glue sources and compiled
	// units. Plain filesystem paths or classpath:-scheme paths.
	GluePaths []string `yaml:"glue_paths" validate:"min=1,dive,required"`

	// DefaultTimeoutMillis applies to definitions registered without an
	// explicit timeout. Zero or less means unbounded.
	DefaultTimeoutMillis int64 `yaml:"default_timeout_millis"`

	Logging telemetry.LoggingConfig `yaml:"logging"`
	Metrics telemetry.MetricsConfig `yaml:"metrics"`
	Tracing telemetry.TracingConfig `yaml:"tracing"`
}

// Default returns the configuration used when no file is supplied: glue
// under ./features/steps, no deadline, info-level JSON logging.
func Default() *Config {
	return &Config{
		GluePaths: []string{"features/steps"},
		Logging:   telemetry.LoggingConfig{Level: "info", Format: "json", Output: "stderr"},
	}
}

// Load reads, parses and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
