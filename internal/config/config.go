// Package config holds the knobs of a training run.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hfma6579/Data-Science-Project-1/internal/logging"
)

// Supported compute devices.
const (
	DeviceCPU    = "cpu"
	DeviceWebGPU = "webgpu"
)

// Config captures the runtime knobs for a run. The zero value is not usable;
// start from Default.
type Config struct {
	DataDir       string  `yaml:"data_dir"`
	TrainSteps    int     `yaml:"train_steps"`
	BatchSize     int     `yaml:"batch_size"`
	EvalBatchSize int     `yaml:"eval_batch_size"`
	LearningRate  float64 `yaml:"learning_rate"`
	EvalFraction  float64 `yaml:"eval_fraction"`
	Seed          int64   `yaml:"seed"`
	LogEvery      int     `yaml:"log_every"`
	LogLevel      string  `yaml:"log_level"`
	Device        string  `yaml:"device"`

	// InitCheckpoint, when set, is a .born file loaded before training.
	InitCheckpoint string `yaml:"init_checkpoint"`
	// Checkpoint, when set, receives the trained weights after training.
	Checkpoint string `yaml:"checkpoint"`
}

// Default returns the configuration of the reference pipeline.
func Default() *Config {
	return &Config{
		DataDir:       "data",
		TrainSteps:    100,
		BatchSize:     100,
		EvalBatchSize: 128,
		LearningRate:  0.001,
		EvalFraction:  0.25,
		Seed:          0,
		LogEvery:      50,
		LogLevel:      "info",
		Device:        DeviceCPU,
	}
}

// Overrides captures CLI supplied values. Zero values leave the config alone,
// except Seed, which applies whenever it is non-nil so that 0 can be chosen.
type Overrides struct {
	DataDir       string
	TrainSteps    int
	BatchSize     int
	EvalBatchSize int
	LearningRate  float64
	EvalFraction  float64
	Seed          *int64
	LogEvery      int
	LogLevel      string
	Device        string

	InitCheckpoint string
	Checkpoint     string
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.TrainSteps > 0 {
		c.TrainSteps = o.TrainSteps
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.EvalBatchSize > 0 {
		c.EvalBatchSize = o.EvalBatchSize
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.EvalFraction > 0 {
		c.EvalFraction = o.EvalFraction
	}
	if o.Seed != nil {
		c.Seed = *o.Seed
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.Device != "" {
		c.Device = o.Device
	}
	if o.InitCheckpoint != "" {
		c.InitCheckpoint = o.InitCheckpoint
	}
	if o.Checkpoint != "" {
		c.Checkpoint = o.Checkpoint
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.DataDir == "" {
		return errors.New("data_dir must be set")
	}
	if c.TrainSteps <= 0 {
		return fmt.Errorf("train_steps must be > 0 (got %d)", c.TrainSteps)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.EvalBatchSize <= 0 {
		return fmt.Errorf("eval_batch_size must be > 0 (got %d)", c.EvalBatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %v)", c.LearningRate)
	}
	if c.EvalFraction <= 0 || c.EvalFraction >= 1 {
		return fmt.Errorf("eval_fraction must be in (0, 1) (got %v)", c.EvalFraction)
	}
	if c.LogEvery <= 0 {
		return fmt.Errorf("log_every must be > 0 (got %d)", c.LogEvery)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Device {
	case DeviceCPU, DeviceWebGPU:
	default:
		return fmt.Errorf("device must be %q or %q (got %q)", DeviceCPU, DeviceWebGPU, c.Device)
	}
	return nil
}

// Logging returns the logging configuration selected by c.
func (c *Config) Logging() logging.Config {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.Config{Level: level}
}
