// Package config loads the crucible service configuration from YAML,
// fills defaults, and validates the result against an embedded CUE
// schema.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server    Server    `yaml:"server" json:"server"`
	Store     Store     `yaml:"store" json:"store"`
	Kernel    Kernel    `yaml:"kernel" json:"kernel"`
	Tuner     Tuner     `yaml:"tuner" json:"tuner"`
	Watchman  Watchman  `yaml:"watchman" json:"watchman"`
	Telemetry Telemetry `yaml:"telemetry" json:"telemetry"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Store configures the SQLite telemetry store.
type Store struct {
	Path string `yaml:"path" json:"path"`

	// KeepRows bounds each table when pruning; 0 disables pruning.
	KeepRows int `yaml:"keep_rows" json:"keep_rows"`
}

// Kernel configures the synthesis engine and its background step driver.
type Kernel struct {
	Dimension int   `yaml:"dimension" json:"dimension"`
	Seed      int64 `yaml:"seed" json:"seed"`

	StepSize float64 `yaml:"step_size" json:"step_size"`

	// IntentStrength is the strength fed to the background driver.
	// Zero leaves the driver quiescent; API callers pass their own.
	IntentStrength      float64 `yaml:"intent_strength" json:"intent_strength"`
	StepIntervalSeconds int     `yaml:"step_interval_seconds" json:"step_interval_seconds"`
}

// StepInterval returns the driver cadence as a duration.
func (k Kernel) StepInterval() time.Duration {
	return time.Duration(k.StepIntervalSeconds) * time.Second
}

// Tuner configures the harmonic resonance tuner.
type Tuner struct {
	TargetHz        float64 `yaml:"target_hz" json:"target_hz"`
	IntervalSeconds int     `yaml:"interval_seconds" json:"interval_seconds"`
}

// Interval returns the scan cadence as a duration.
func (t Tuner) Interval() time.Duration {
	return time.Duration(t.IntervalSeconds) * time.Second
}

// Watchman configures the coherence monitor node.
type Watchman struct {
	NodeName        string `yaml:"node_name" json:"node_name"`
	IntervalSeconds int    `yaml:"interval_seconds" json:"interval_seconds"`
}

// Interval returns the monitor cadence as a duration.
func (w Watchman) Interval() time.Duration {
	return time.Duration(w.IntervalSeconds) * time.Second
}

// Telemetry configures the persistence sampler.
type Telemetry struct {
	IntervalSeconds int `yaml:"interval_seconds" json:"interval_seconds"`
}

// Interval returns the sampling cadence as a duration.
func (t Telemetry) Interval() time.Duration {
	return time.Duration(t.IntervalSeconds) * time.Second
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return applyDefaults(Config{})
}

// Load reads, defaults, and validates the configuration at path. An
// empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults, and validates raw YAML configuration.
// Unknown fields are rejected.
func Parse(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg = applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyDefaults fills in missing configuration values. Fields where
// zero is meaningful (seed, intent strength, keep_rows) pass through.
func applyDefaults(cfg Config) Config {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:5000"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "crucible.db"
	}
	if cfg.Kernel.Dimension == 0 {
		cfg.Kernel.Dimension = 4
	}
	if cfg.Kernel.StepSize == 0 {
		cfg.Kernel.StepSize = 0.05
	}
	if cfg.Kernel.StepIntervalSeconds == 0 {
		cfg.Kernel.StepIntervalSeconds = 5
	}
	if cfg.Tuner.TargetHz == 0 {
		cfg.Tuner.TargetHz = 712.8
	}
	if cfg.Tuner.IntervalSeconds == 0 {
		cfg.Tuner.IntervalSeconds = 60
	}
	if cfg.Watchman.NodeName == "" {
		cfg.Watchman.NodeName = "Node_Beta_04"
	}
	if cfg.Watchman.IntervalSeconds == 0 {
		cfg.Watchman.IntervalSeconds = 45
	}
	if cfg.Telemetry.IntervalSeconds == 0 {
		cfg.Telemetry.IntervalSeconds = 60
	}
	return cfg
}
