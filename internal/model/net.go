// Package model defines the digit classification network and the model
// function the estimator drives.
package model

import (
	"fmt"

	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"

	"github.com/hfma6579/Data-Science-Project-1/internal/dataset"
)

// flatFeatures is the size of the last convolution output, 64 maps of 7x7.
const flatFeatures = 64 * 7 * 7

// DigitNet is a four-layer convolutional network for 28x28 digit images.
//
// Architecture:
//
//	Input: [batch, 28, 28, 1], viewed as [batch, 1, 28, 28]
//	Conv1: 1 -> 32, 3x3, stride 1, pad 1 -> [batch, 32, 28, 28], ReLU
//	Conv2: 32 -> 32, 5x5, stride 2, pad 1 + 2 -> [batch, 32, 14, 14], ReLU
//	Conv3: 32 -> 64, 3x3, stride 1, pad 1 -> [batch, 64, 14, 14], ReLU
//	Conv4: 64 -> 64, 5x5, stride 2, pad 1 + 2 -> [batch, 64, 7, 7], ReLU
//	Flatten -> [batch, 3136]
//	Dense: 3136 -> 1024, ReLU
//	Logits: 1024 -> 10
//
// Every convolution uses "same" padding. For the stride 2 layers that is one
// row and column before and two after; Conv2D pads symmetrically, so those
// layers get one extra trailing zero row and column first (see padTrailing).
type DigitNet[B tensor.Backend] struct {
	conv1  *nn.Conv2D[B]
	conv2  *nn.Conv2D[B]
	conv3  *nn.Conv2D[B]
	conv4  *nn.Conv2D[B]
	relu   *nn.ReLU[B]
	dense  *nn.Linear[B]
	logits *nn.Linear[B]

	// Constant [n, n+1] embeddings used by padTrailing, keyed by n.
	pad28 *tensor.Tensor[float32, B]
	pad14 *tensor.Tensor[float32, B]
}

// NewDigitNet creates the network with Xavier-initialised weights and zero biases.
func NewDigitNet[B tensor.Backend](backend B) *DigitNet[B] {
	return &DigitNet[B]{
		conv1:  nn.NewConv2D(1, 32, 3, 3, 1, 1, true, backend),
		conv2:  nn.NewConv2D(32, 32, 5, 5, 2, 1, true, backend),
		conv3:  nn.NewConv2D(32, 64, 3, 3, 1, 1, true, backend),
		conv4:  nn.NewConv2D(64, 64, 5, 5, 2, 1, true, backend),
		relu:   nn.NewReLU[B](),
		dense:  nn.NewLinear(flatFeatures, 1024, backend),
		logits: nn.NewLinear(1024, dataset.NumClasses, backend),
		pad28:  trailingPadMatrix(dataset.ImageSide, backend),
		pad14:  trailingPadMatrix(dataset.ImageSide/2, backend),
	}
}

// trailingPadMatrix returns the [n, n+1] matrix that copies n values and
// appends a zero.
func trailingPadMatrix[B tensor.Backend](n int, backend B) *tensor.Tensor[float32, B] {
	e := tensor.Zeros[float32](tensor.Shape{n, n + 1}, backend)
	data := e.Data()
	for i := 0; i < n; i++ {
		data[i*(n+1)+i] = 1
	}
	return e
}

// padTrailing appends a zero row and a zero column to every [n, n] feature
// map of x ([batch, channels, n, n]). It is built from MatMul, Reshape and
// Transpose so the autodiff tape carries gradients through it.
func padTrailing[B tensor.Backend](x, e *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	n, c, h, w := shape[0], shape[1], shape[2], shape[3]

	y := x.Reshape(n*c*h, w).MatMul(e)                     // [n*c*h, w+1]
	y = y.Reshape(n, c, h, w+1).Transpose(0, 1, 3, 2)      // [n, c, w+1, h]
	y = y.Reshape(n*c*(w+1), h).MatMul(e)                  // [n*c*(w+1), h+1]
	return y.Reshape(n, c, w+1, h+1).Transpose(0, 1, 3, 2) // [n, c, h+1, w+1]
}

// Forward maps images [batch, 28, 28, 1] to logits [batch, 10].
//
// With a single channel the NHWC input has the same memory layout as NCHW,
// so a reshape is enough.
func (m *DigitNet[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 4 || shape[1] != dataset.ImageSide || shape[2] != dataset.ImageSide || shape[3] != 1 {
		panic(fmt.Sprintf("DigitNet: expected input [batch, 28, 28, 1], got %v", shape))
	}
	batchSize := shape[0]

	x := input.Reshape(batchSize, 1, dataset.ImageSide, dataset.ImageSide)
	x = m.relu.Forward(m.conv1.Forward(x))                       // [batch, 32, 28, 28]
	x = m.relu.Forward(m.conv2.Forward(padTrailing(x, m.pad28))) // [batch, 32, 14, 14]
	x = m.relu.Forward(m.conv3.Forward(x))                       // [batch, 64, 14, 14]
	x = m.relu.Forward(m.conv4.Forward(padTrailing(x, m.pad14))) // [batch, 64, 7, 7]

	x = x.Reshape(batchSize, flatFeatures)
	x = m.relu.Forward(m.dense.Forward(x))
	return m.logits.Forward(x)
}

// Parameters returns all trainable parameters.
func (m *DigitNet[B]) Parameters() []*nn.Parameter[B] {
	// 6 layers × (weight + bias).
	params := make([]*nn.Parameter[B], 0, 12)
	params = append(params, m.conv1.Parameters()...)
	params = append(params, m.conv2.Parameters()...)
	params = append(params, m.conv3.Parameters()...)
	params = append(params, m.conv4.Parameters()...)
	params = append(params, m.dense.Parameters()...)
	params = append(params, m.logits.Parameters()...)
	return params
}

// layers pairs each parametrised layer with its state dict prefix.
func (m *DigitNet[B]) layers() []namedLayer[B] {
	return []namedLayer[B]{
		{"conv1", m.conv1.Parameters()},
		{"conv2", m.conv2.Parameters()},
		{"conv3", m.conv3.Parameters()},
		{"conv4", m.conv4.Parameters()},
		{"dense", m.dense.Parameters()},
		{"logits", m.logits.Parameters()},
	}
}

type namedLayer[B tensor.Backend] struct {
	name   string
	params []*nn.Parameter[B]
}

// paramKey returns the state dict key of the i-th parameter of a layer,
// "<layer>.weight" or "<layer>.bias".
func paramKey(layer string, i int) string {
	if i == 0 {
		return layer + ".weight"
	}
	return layer + ".bias"
}

// StateDict returns the raw parameter tensors keyed by "<layer>.weight" and
// "<layer>.bias".
func (m *DigitNet[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor, 12)
	for _, l := range m.layers() {
		for i, p := range l.params {
			stateDict[paramKey(l.name, i)] = p.Tensor().Raw()
		}
	}
	return stateDict
}

// LoadStateDict copies parameters from stateDict into the network. Every
// parameter must be present with a matching shape; nothing is copied unless
// all of them are.
func (m *DigitNet[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for _, l := range m.layers() {
		for i, p := range l.params {
			key := paramKey(l.name, i)
			raw, ok := stateDict[key]
			if !ok {
				return fmt.Errorf("missing %s in state dict", key)
			}
			want := p.Tensor().Shape()
			if !raw.Shape().Equal(want) {
				return fmt.Errorf("%s shape mismatch: expected %v, got %v", key, want, raw.Shape())
			}
			if raw.DType() != tensor.Float32 {
				return fmt.Errorf("%s dtype mismatch: expected float32, got %v", key, raw.DType())
			}
		}
	}

	for _, l := range m.layers() {
		for i, p := range l.params {
			copy(p.Tensor().Data(), stateDict[paramKey(l.name, i)].AsFloat32())
		}
	}
	return nil
}

// NumParameters counts the scalar weights in the network.
func (m *DigitNet[B]) NumParameters() int {
	total := 0
	for _, p := range m.Parameters() {
		total += p.Tensor().NumElements()
	}
	return total
}

func (m *DigitNet[B]) String() string {
	return fmt.Sprintf(`DigitNet(
  %s
  ReLU()
  PadTrailing(1)
  %s
  ReLU()
  %s
  ReLU()
  PadTrailing(1)
  %s
  ReLU()
  Flatten()
  Linear(in=%d, out=%d)
  ReLU()
  Linear(in=%d, out=%d)
)`,
		m.conv1, m.conv2, m.conv3, m.conv4,
		m.dense.InFeatures(), m.dense.OutFeatures(),
		m.logits.InFeatures(), m.logits.OutFeatures(),
	)
}
