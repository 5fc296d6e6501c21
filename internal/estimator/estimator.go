package estimator

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hfma6579/Data-Science-Project-1/internal/dataset"
	"github.com/hfma6579/Data-Science-Project-1/internal/logging"
)

// Metrics summarises an evaluation pass.
type Metrics struct {
	Accuracy   float64
	Loss       float64
	GlobalStep int
}

func (m Metrics) String() string {
	return fmt.Sprintf("{accuracy: %.7g, global_step: %d, loss: %.7g}", m.Accuracy, m.GlobalStep, m.Loss)
}

// Estimator drives a ModelFn. It is not safe for concurrent use.
type Estimator struct {
	model      ModelFn
	logger     *logging.Logger
	globalStep int
}

// New returns an Estimator for model. logger may be nil.
func New(model ModelFn, logger *logging.Logger) *Estimator {
	return &Estimator{model: model, logger: logger}
}

// GlobalStep returns the number of training steps run so far.
func (e *Estimator) GlobalStep() int {
	return e.globalStep
}

// Train runs steps training steps on batches drawn from it.
//
// Training stops early with an error if the iterator runs dry, the model
// fails, the loss is not finite or ctx is cancelled.
func (e *Estimator) Train(ctx context.Context, it dataset.Iterator, steps int, hooks ...Hook) error {
	if steps <= 0 {
		return fmt.Errorf("estimator: steps must be > 0 (got %d)", steps)
	}

	for _, h := range hooks {
		h.Begin()
	}
	defer func() {
		for _, h := range hooks {
			h.End()
		}
	}()

	e.logger.Infof("training for %d steps from global step %d", steps, e.globalStep)
	var lastLoss float32
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, ok := it.Next()
		if !ok {
			return fmt.Errorf("estimator: input exhausted after %d steps", i)
		}

		spec, err := e.call(batch, ModeTrain)
		if err != nil {
			return err
		}
		train, ok := spec.(TrainSpec)
		if !ok {
			return fmt.Errorf("estimator: model returned %T in train mode", spec)
		}
		if math.IsNaN(float64(train.Loss)) || math.IsInf(float64(train.Loss), 0) {
			return fmt.Errorf("%w: step %d", ErrNonFiniteLoss, e.globalStep+1)
		}
		if train.TrainOp == nil {
			return errors.New("estimator: train spec has no train op")
		}
		if err := train.TrainOp(); err != nil {
			return fmt.Errorf("estimator: train op at step %d: %w", e.globalStep+1, err)
		}
		e.globalStep++
		lastLoss = train.Loss

		info := StepInfo{Step: e.globalStep, Loss: train.Loss, Predictions: train.Predictions}
		for _, h := range hooks {
			h.AfterStep(info)
		}
	}
	e.logger.Infof("loss for final step: %.6g", lastLoss)
	return nil
}

// Evaluate makes one pass over it and reports accuracy and mean loss.
func (e *Estimator) Evaluate(ctx context.Context, it dataset.Iterator) (Metrics, error) {
	var (
		correct, total int
		lossSum        float64
	)
	for {
		if err := ctx.Err(); err != nil {
			return Metrics{}, err
		}
		batch, ok := it.Next()
		if !ok {
			break
		}

		spec, err := e.call(batch, ModeEval)
		if err != nil {
			return Metrics{}, err
		}
		eval, ok := spec.(EvalSpec)
		if !ok {
			return Metrics{}, fmt.Errorf("estimator: model returned %T in eval mode", spec)
		}
		correct += eval.Correct
		total += eval.Count
		lossSum += float64(eval.Loss) * float64(eval.Count)
	}
	if total == 0 {
		return Metrics{}, errors.New("estimator: nothing to evaluate")
	}

	m := Metrics{
		Accuracy:   float64(correct) / float64(total),
		Loss:       lossSum / float64(total),
		GlobalStep: e.globalStep,
	}
	e.logger.Infof("saving dict for global step %d: %s", e.globalStep, m)
	return m, nil
}

// Predict makes one pass over it and returns a prediction per sample, in
// input order.
func (e *Estimator) Predict(ctx context.Context, it dataset.Iterator) ([]Prediction, error) {
	var out []Prediction
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, ok := it.Next()
		if !ok {
			break
		}

		spec, err := e.call(batch, ModePredict)
		if err != nil {
			return nil, err
		}
		pred, ok := spec.(PredictSpec)
		if !ok {
			return nil, fmt.Errorf("estimator: model returned %T in predict mode", spec)
		}
		if pred.Predictions.Len() != batch.Size {
			return nil, fmt.Errorf("estimator: %d predictions for a batch of %d", pred.Predictions.Len(), batch.Size)
		}
		for i := 0; i < pred.Predictions.Len(); i++ {
			out = append(out, pred.Predictions.At(i))
		}
	}
	return out, nil
}

func (e *Estimator) call(batch dataset.Batch, mode Mode) (Spec, error) {
	if mode != ModePredict && batch.Labels == nil {
		return nil, ErrMissingLabels
	}
	spec, err := e.model.Fn(batch, mode)
	if err != nil {
		return nil, fmt.Errorf("model fn (%s): %w", mode, err)
	}
	return spec, nil
}
