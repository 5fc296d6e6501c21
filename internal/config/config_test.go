package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hfma6579/Data-Science-Project-1/internal/logging"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 100, cfg.TrainSteps)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 0.001, cfg.LearningRate)
	assert.Equal(t, 0.25, cfg.EvalFraction)
	assert.Equal(t, int64(0), cfg.Seed)
	assert.Equal(t, 50, cfg.LogEvery)
	assert.Equal(t, logging.LevelInfo, cfg.Logging().Level)
}

func TestLoadMergesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	content := "data_dir: /tmp/digits\ntrain_steps: 20\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/digits", cfg.DataDir)
	assert.Equal(t, 20, cfg.TrainSteps)
	assert.Equal(t, 100, cfg.BatchSize, "unset keys keep defaults")
	assert.Equal(t, logging.LevelDebug, cfg.Logging().Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("train_steps: [1, 2"), 0o600))
	_, err = Load(path)
	require.Error(t, err)

	path = filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size: -3\n"), 0o600))
	_, err = Load(path)
	require.ErrorContains(t, err, "batch_size")
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	seed := int64(42)
	cfg.ApplyOverrides(Overrides{TrainSteps: 5, Seed: &seed, Device: DeviceWebGPU, Checkpoint: "out.born"})

	assert.Equal(t, 5, cfg.TrainSteps)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, DeviceWebGPU, cfg.Device)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "out.born", cfg.Checkpoint)
	assert.Empty(t, cfg.InitCheckpoint)

	zero := int64(0)
	cfg.ApplyOverrides(Overrides{Seed: &zero})
	assert.Equal(t, int64(0), cfg.Seed, "an explicit zero seed overrides")
	cfg.Seed = 9
	cfg.ApplyOverrides(Overrides{})
	assert.Equal(t, int64(9), cfg.Seed, "an unset seed leaves the value alone")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"zero steps", func(c *Config) { c.TrainSteps = 0 }},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }},
		{"zero eval batch", func(c *Config) { c.EvalBatchSize = 0 }},
		{"negative lr", func(c *Config) { c.LearningRate = -1 }},
		{"fraction one", func(c *Config) { c.EvalFraction = 1 }},
		{"zero log every", func(c *Config) { c.LogEvery = 0 }},
		{"bad level", func(c *Config) { c.LogLevel = "chatty" }},
		{"bad device", func(c *Config) { c.Device = "tpu" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}

	var nilCfg *Config
	require.Error(t, nilCfg.Validate())

	cfg := Default()
	cfg.LogEvery = -1
	require.ErrorContains(t, cfg.Validate(), "log_every")
	assert.Equal(t, -1, cfg.LogEvery, "Validate does not rewrite fields")
}
