//go:build windows

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/backend/webgpu"

	"github.com/hfma6579/Data-Science-Project-1/internal/config"
	"github.com/hfma6579/Data-Science-Project-1/internal/logging"
)

func runOnDevice(ctx context.Context, cfg *config.Config, logger *logging.Logger, out io.Writer) error {
	switch cfg.Device {
	case config.DeviceCPU:
		return run(ctx, cpu.New(), cfg, logger, out)
	case config.DeviceWebGPU:
		if !webgpu.IsAvailable() {
			logger.Warnf("WebGPU is not available, falling back to CPU")
			return run(ctx, cpu.New(), cfg, logger, out)
		}
		gpu, err := webgpu.New()
		if err != nil {
			return fmt.Errorf("failed to create WebGPU backend: %w", err)
		}
		defer gpu.Release()
		return run(ctx, gpu, cfg, logger, out)
	default:
		return fmt.Errorf("unknown device %q", cfg.Device)
	}
}
