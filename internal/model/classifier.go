package model

import (
	"fmt"

	"github.com/born-ml/born/autodiff"
	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/optim"
	"github.com/born-ml/born/tensor"

	"github.com/hfma6579/Data-Science-Project-1/internal/dataset"
	"github.com/hfma6579/Data-Science-Project-1/internal/estimator"
)

// DefaultLearningRate is the gradient descent step size.
const DefaultLearningRate = 0.001

// Config holds the classifier hyperparameters.
type Config struct {
	LearningRate float32
}

// Classifier implements estimator.ModelFn with a DigitNet trained by plain
// gradient descent on an autodiff-wrapped backend.
type Classifier[B tensor.Backend] struct {
	backend   *autodiff.Backend[B]
	net       *DigitNet[*autodiff.Backend[B]]
	loss      *nn.CrossEntropyLoss[*autodiff.Backend[B]]
	optimizer *optim.SGD[*autodiff.Backend[B]]
}

var _ estimator.ModelFn = (*Classifier[*cpu.Backend])(nil)

// NewClassifier builds a freshly initialised classifier computing on inner.
func NewClassifier[B tensor.Backend](inner B, cfg Config) *Classifier[B] {
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = DefaultLearningRate
	}

	backend := autodiff.New(inner)
	net := NewDigitNet(backend)
	return &Classifier[B]{
		backend: backend,
		net:     net,
		loss:    nn.NewCrossEntropyLoss(backend),
		optimizer: optim.NewSGD(
			net.Parameters(),
			optim.SGDConfig{LR: cfg.LearningRate},
			backend,
		),
	}
}

// Net returns the underlying network.
func (c *Classifier[B]) Net() *DigitNet[*autodiff.Backend[B]] {
	return c.net
}

// Fn runs the network on batch and returns the Spec for mode.
//
// Predictions are always filled in. Train and eval modes also compute the
// mean cross-entropy loss against the batch labels; train mode returns a
// TrainOp that back-propagates that loss and applies one SGD step.
func (c *Classifier[B]) Fn(batch dataset.Batch, mode estimator.Mode) (estimator.Spec, error) {
	if batch.Size <= 0 || len(batch.Images) != batch.Size*dataset.ImageSize {
		return nil, fmt.Errorf("%w: batch of %d holds %d pixels", dataset.ErrShape, batch.Size, len(batch.Images))
	}
	if mode != estimator.ModePredict && len(batch.Labels) != batch.Size {
		return nil, estimator.ErrMissingLabels
	}

	tape := c.backend.Tape()
	tape.Clear()
	if mode == estimator.ModeTrain {
		c.optimizer.ZeroGrad()
		tape.StartRecording()
	} else {
		tape.StopRecording()
	}

	images, err := tensor.FromSlice(batch.Images,
		tensor.Shape{batch.Size, dataset.ImageSide, dataset.ImageSide, 1}, c.backend)
	if err != nil {
		return nil, fmt.Errorf("failed to create images tensor: %w", err)
	}

	logits := c.net.Forward(images)
	preds := c.predictions(logits)

	if mode == estimator.ModePredict {
		return estimator.PredictSpec{Predictions: preds}, nil
	}

	labels, err := tensor.FromSlice(batch.Labels, tensor.Shape{batch.Size}, c.backend)
	if err != nil {
		return nil, fmt.Errorf("failed to create labels tensor: %w", err)
	}
	loss := c.loss.Forward(logits, labels)
	lossValue := loss.Raw().AsFloat32()[0]

	switch mode {
	case estimator.ModeTrain:
		return estimator.TrainSpec{
			Predictions: preds,
			Loss:        lossValue,
			TrainOp:     func() error { return c.step(loss) },
		}, nil
	case estimator.ModeEval:
		correct := 0
		for i, class := range preds.Classes {
			if class == batch.Labels[i] {
				correct++
			}
		}
		return estimator.EvalSpec{
			Predictions: preds,
			Loss:        lossValue,
			Correct:     correct,
			Count:       batch.Size,
		}, nil
	default:
		return nil, fmt.Errorf("unknown mode %s", mode)
	}
}

// step back-propagates loss through the recorded tape and updates the
// parameters.
func (c *Classifier[B]) step(loss *tensor.Tensor[float32, *autodiff.Backend[B]]) error {
	tape := c.backend.Tape()
	defer tape.Clear()

	outputGrad, err := tensor.NewRaw(loss.Shape(), loss.DType(), c.backend.Device())
	if err != nil {
		return fmt.Errorf("failed to create output gradient: %w", err)
	}
	outputGrad.AsFloat32()[0] = 1.0

	grads := tape.Backward(outputGrad, c.backend)
	tape.StopRecording()
	c.optimizer.Step(grads)
	return nil
}

// predictions turns logits into classes and softmax probabilities without
// recording on the tape.
func (c *Classifier[B]) predictions(logits *tensor.Tensor[float32, *autodiff.Backend[B]]) estimator.Predictions {
	tape := c.backend.Tape()
	if tape.IsRecording() {
		tape.StopRecording()
		defer tape.StartRecording()
	}

	batchSize := logits.Shape()[0]
	numClasses := logits.Shape()[1]

	probs := logits.Softmax(1).Data()
	classes := logits.Argmax(1).Data()

	out := estimator.Predictions{
		Classes:       make([]int32, batchSize),
		Probabilities: make([][]float32, batchSize),
	}
	copy(out.Classes, classes)
	for i := 0; i < batchSize; i++ {
		row := make([]float32, numClasses)
		copy(row, probs[i*numClasses:(i+1)*numClasses])
		out.Probabilities[i] = row
	}
	return out
}
