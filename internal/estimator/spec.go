// Package estimator runs a model function through training, evaluation and
// inference passes.
//
// A model function receives one batch and a Mode and answers with the Spec
// variant for that mode:
//
//	ModePredict -> PredictSpec
//	ModeTrain   -> TrainSpec
//	ModeEval    -> EvalSpec
package estimator

import (
	"errors"
	"fmt"

	"github.com/hfma6579/Data-Science-Project-1/internal/dataset"
)

var (
	// ErrMissingLabels is returned when training or evaluation is asked for
	// on a batch without labels.
	ErrMissingLabels = errors.New("estimator: labels are required in this mode")
	// ErrNonFiniteLoss is returned when a training step produces NaN or Inf.
	ErrNonFiniteLoss = errors.New("estimator: loss is not finite")
)

// Mode selects what a model function computes.
type Mode int

const (
	ModePredict Mode = iota
	ModeTrain
	ModeEval
)

func (m Mode) String() string {
	switch m {
	case ModePredict:
		return "predict"
	case ModeTrain:
		return "train"
	case ModeEval:
		return "eval"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Prediction is the model output for a single sample.
type Prediction struct {
	Class         int32
	Probabilities []float32 // one entry per class, sums to 1
}

// Predictions holds the output for every sample of a batch.
type Predictions struct {
	Classes       []int32
	Probabilities [][]float32
}

// Len returns the number of samples.
func (p Predictions) Len() int {
	return len(p.Classes)
}

// At returns the prediction for sample i.
func (p Predictions) At(i int) Prediction {
	return Prediction{Class: p.Classes[i], Probabilities: p.Probabilities[i]}
}

// Spec is the result of one model function call. It is one of PredictSpec,
// TrainSpec or EvalSpec.
type Spec interface {
	Mode() Mode
	Outputs() Predictions
	sealed()
}

// PredictSpec carries predictions only.
type PredictSpec struct {
	Predictions Predictions
}

// TrainSpec carries the batch loss and the parameter update for it.
// TrainOp must be called at most once.
type TrainSpec struct {
	Predictions Predictions
	Loss        float32
	TrainOp     func() error
}

// EvalSpec carries the batch loss and the number of correct predictions.
type EvalSpec struct {
	Predictions Predictions
	Loss        float32 // mean over the batch
	Correct     int
	Count       int
}

func (PredictSpec) Mode() Mode { return ModePredict }
func (TrainSpec) Mode() Mode   { return ModeTrain }
func (EvalSpec) Mode() Mode    { return ModeEval }

func (PredictSpec) sealed() {}
func (TrainSpec) sealed()   {}
func (EvalSpec) sealed()    {}

func (s PredictSpec) Outputs() Predictions { return s.Predictions }
func (s TrainSpec) Outputs() Predictions   { return s.Predictions }
func (s EvalSpec) Outputs() Predictions    { return s.Predictions }

// ModelFn maps a batch to the Spec for mode.
type ModelFn interface {
	Fn(batch dataset.Batch, mode Mode) (Spec, error)
}

// ModelFunc adapts an ordinary function to ModelFn.
type ModelFunc func(batch dataset.Batch, mode Mode) (Spec, error)

// Fn calls f(batch, mode).
func (f ModelFunc) Fn(batch dataset.Batch, mode Mode) (Spec, error) {
	return f(batch, mode)
}
