// Package config loads tandem training configuration from YAML files.
//
// Configuration is layered: CLI flags win over the config file, and the
// config file wins over built-in defaults. Numeric and boolean fields are
// pointers so an absent key can be told apart from an explicit zero.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tandem-ml/tandem/internal/amp"
)

// Config represents the tandem configuration file
// (~/.config/tandem/config.yaml, or the path given with --config).
type Config struct {
	// Loss scaler
	InitScale      *float64 `yaml:"init_scale"`
	MinScale       *float64 `yaml:"min_scale"`
	MaxScale       *float64 `yaml:"max_scale"`
	GrowthFactor   *float64 `yaml:"growth_factor"`
	BackoffFactor  *float64 `yaml:"backoff_factor"`
	GrowthInterval *int64   `yaml:"growth_interval"`
	Hysteresis     *int64   `yaml:"hysteresis"`

	// Training
	ClipGradNorm *float64 `yaml:"clip_grad_norm"`
	LearningRate *float64 `yaml:"learning_rate"`
	Steps        *int64   `yaml:"steps"`
	Seed         *int64   `yaml:"seed"`
	Verbose      *bool    `yaml:"verbose"`

	// Cluster
	Coordinator   string `yaml:"coordinator"`
	Session       string `yaml:"session"`
	WorldSize     *int64 `yaml:"world_size"`
	Rank          *int64 `yaml:"rank"`
	DataParallel  *int64 `yaml:"data_parallel"`
	ModelParallel *int64 `yaml:"model_parallel"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DefaultPath returns the per-user config file location, or "" when the
// user config directory cannot be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tandem", "config.yaml")
}

// Load reads the config file at path. An empty path falls back to
// DefaultPath, where a missing file yields a zero Config; a missing file at
// an explicit path is an error.
func Load(path string) (Config, error) {
	fallback := path == ""
	if fallback {
		path = DefaultPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if fallback && errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ScalerConfig overlays the file's loss-scaler keys onto base. Callers pass
// amp.DefaultScalerConfig() and let amp.NewDynamicGradScaler validate the
// result, so a bad value fails exactly once, at construction.
func (c Config) ScalerConfig(base amp.ScalerConfig) amp.ScalerConfig {
	if c.InitScale != nil {
		base.InitialScale = *c.InitScale
	}
	if c.MinScale != nil {
		base.MinScale = *c.MinScale
	}
	if c.MaxScale != nil {
		base.MaxScale = *c.MaxScale
	}
	if c.GrowthFactor != nil {
		base.GrowthFactor = *c.GrowthFactor
	}
	if c.BackoffFactor != nil {
		base.BackoffFactor = *c.BackoffFactor
	}
	if c.GrowthInterval != nil {
		base.GrowthInterval = int(*c.GrowthInterval)
	}
	if c.Hysteresis != nil {
		base.Hysteresis = int(*c.Hysteresis)
	}
	if c.Verbose != nil {
		base.Verbose = *c.Verbose
	}
	return base
}

// Validate checks the non-scaler fields. Scaler hyperparameters are
// validated by the scaler constructor via ScalerConfig.
func (c Config) Validate() error {
	if c.ClipGradNorm != nil && *c.ClipGradNorm < 0 {
		return fmt.Errorf("config: clip_grad_norm must be non-negative, got %v", *c.ClipGradNorm)
	}
	if c.LearningRate != nil && *c.LearningRate <= 0 {
		return fmt.Errorf("config: learning_rate must be positive, got %v", *c.LearningRate)
	}
	if c.Steps != nil && *c.Steps < 0 {
		return fmt.Errorf("config: steps must be non-negative, got %d", *c.Steps)
	}

	world := int64(1)
	if c.WorldSize != nil {
		if *c.WorldSize < 1 {
			return fmt.Errorf("config: world_size must be at least 1, got %d", *c.WorldSize)
		}
		world = *c.WorldSize
	}
	if c.Rank != nil && (*c.Rank < 0 || *c.Rank >= world) {
		return fmt.Errorf("config: rank %d outside world of size %d", *c.Rank, world)
	}
	if c.DataParallel != nil && *c.DataParallel < 1 {
		return fmt.Errorf("config: data_parallel must be at least 1, got %d", *c.DataParallel)
	}
	if c.ModelParallel != nil && *c.ModelParallel < 1 {
		return fmt.Errorf("config: model_parallel must be at least 1, got %d", *c.ModelParallel)
	}
	if c.DataParallel != nil && c.ModelParallel != nil {
		if *c.DataParallel**c.ModelParallel != world {
			return fmt.Errorf("config: data_parallel %d x model_parallel %d does not cover world_size %d",
				*c.DataParallel, *c.ModelParallel, world)
		}
	}
	if c.Coordinator == "" && c.WorldSize != nil && world > 1 {
		return errors.New("config: world_size above 1 requires a coordinator address")
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "", "pretty", "json", "text":
	default:
		return fmt.Errorf("config: unknown log_format %q", c.LogFormat)
	}
	return nil
}
