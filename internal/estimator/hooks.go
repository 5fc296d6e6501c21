package estimator

import (
	"fmt"
	"strings"
	"time"

	"github.com/hfma6579/Data-Science-Project-1/internal/logging"
)

// StepInfo describes a finished training step.
type StepInfo struct {
	Step        int // global step after the update
	Loss        float32
	Predictions Predictions
}

// Hook observes a training run.
type Hook interface {
	Begin()
	AfterStep(info StepInfo)
	End()
}

// LoggingHook logs the predicted probabilities of the current batch on the
// first step and every N steps after it.
type LoggingHook struct {
	Every  int
	Logger *logging.Logger

	lastStep int
	lastTime time.Time
}

// NewLoggingHook returns a LoggingHook that fires every n steps.
func NewLoggingHook(n int, logger *logging.Logger) *LoggingHook {
	return &LoggingHook{Every: n, Logger: logger}
}

func (h *LoggingHook) Begin() {
	h.lastStep = 0
	h.lastTime = time.Now()
}

func (h *LoggingHook) AfterStep(info StepInfo) {
	if h.Every <= 0 || (h.lastStep != 0 && info.Step-h.lastStep < h.Every) {
		return
	}
	now := time.Now()
	if h.lastStep == 0 {
		h.Logger.Infof("probabilities = %s", FormatProbabilities(info.Predictions.Probabilities))
	} else {
		h.Logger.Infof("probabilities = %s (%.3f sec)",
			FormatProbabilities(info.Predictions.Probabilities), now.Sub(h.lastTime).Seconds())
	}
	h.lastStep = info.Step
	h.lastTime = now
}

func (h *LoggingHook) End() {}

// StepCounterHook logs the loss and the training speed every N steps.
type StepCounterHook struct {
	Every  int
	Logger *logging.Logger

	lastStep int
	lastTime time.Time
}

// NewStepCounterHook returns a StepCounterHook that fires every n steps.
func NewStepCounterHook(n int, logger *logging.Logger) *StepCounterHook {
	return &StepCounterHook{Every: n, Logger: logger}
}

func (h *StepCounterHook) Begin() {
	h.lastStep = 0
	h.lastTime = time.Now()
}

func (h *StepCounterHook) AfterStep(info StepInfo) {
	if h.Every <= 0 {
		return
	}
	if h.lastStep == 0 {
		h.Logger.Infof("loss = %.6g, step = %d", info.Loss, info.Step)
		h.lastStep = info.Step
		h.lastTime = time.Now()
		return
	}
	if info.Step-h.lastStep < h.Every {
		return
	}
	now := time.Now()
	elapsed := now.Sub(h.lastTime).Seconds()
	if elapsed > 0 {
		h.Logger.Infof("global_step/sec: %.4g", float64(info.Step-h.lastStep)/elapsed)
	}
	h.Logger.Infof("loss = %.6g, step = %d (%.3f sec)", info.Loss, info.Step, elapsed)
	h.lastStep = info.Step
	h.lastTime = now
}

func (h *StepCounterHook) End() {}

// FormatProbabilities renders a batch of probability vectors as nested
// bracketed lists.
func FormatProbabilities(probs [][]float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, row := range probs {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte('[')
		for j, p := range row {
			if j > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%.8g", p)
		}
		sb.WriteByte(']')
	}
	sb.WriteByte(']')
	return sb.String()
}
