//go:build !windows

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/born-ml/born/backend/cpu"

	"github.com/hfma6579/Data-Science-Project-1/internal/config"
	"github.com/hfma6579/Data-Science-Project-1/internal/logging"
)

func runOnDevice(ctx context.Context, cfg *config.Config, logger *logging.Logger, out io.Writer) error {
	switch cfg.Device {
	case config.DeviceCPU:
		return run(ctx, cpu.New(), cfg, logger, out)
	default:
		return fmt.Errorf("device %q is not available on this platform", cfg.Device)
	}
}
