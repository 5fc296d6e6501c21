// Package dataset holds handwritten digit images in memory and feeds them to
// the estimator in batches.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/hfma6579/Data-Science-Project-1/internal/npy"
)

const (
	ImageSide  = 28
	ImageSize  = ImageSide * ImageSide
	NumClasses = 10
)

// File names expected inside the data directory.
const (
	TrainImagesFile = "train_X.npy"
	TrainLabelsFile = "train_y.npy"
	TestImagesFile  = "test_X.npy"
)

var (
	// ErrShape is returned when an array does not have a digit image or label layout.
	ErrShape = errors.New("dataset: unexpected array shape")
	// ErrLabelRange is returned for labels outside [0, NumClasses).
	ErrLabelRange = errors.New("dataset: label out of range")
)

// Dataset is a set of 28x28 single-channel images stored back to back,
// with optional labels.
type Dataset struct {
	Images []float32 // [num_samples * 784]
	Labels []int32   // [num_samples], nil when unlabeled
}

// New checks that images and labels agree and wraps them.
// labels may be nil.
func New(images []float32, labels []int32) (*Dataset, error) {
	if len(images)%ImageSize != 0 {
		return nil, fmt.Errorf("%w: %d values is not a whole number of %dx%d images",
			ErrShape, len(images), ImageSide, ImageSide)
	}
	n := len(images) / ImageSize
	if labels != nil && len(labels) != n {
		return nil, fmt.Errorf("image count (%d) != label count (%d)", n, len(labels))
	}
	for i, l := range labels {
		if l < 0 || l >= NumClasses {
			return nil, fmt.Errorf("%w: sample %d has label %d", ErrLabelRange, i, l)
		}
	}
	return &Dataset{Images: images, Labels: labels}, nil
}

// NumSamples returns the number of images in the dataset.
func (d *Dataset) NumSamples() int {
	return len(d.Images) / ImageSize
}

// Labeled reports whether the dataset carries labels.
func (d *Dataset) Labeled() bool {
	return d.Labels != nil
}

// Image returns the pixels of sample i.
func (d *Dataset) Image(i int) []float32 {
	return d.Images[i*ImageSize : (i+1)*ImageSize]
}

// Subset copies the samples at the given indices into a new dataset.
func (d *Dataset) Subset(indices []int) *Dataset {
	out := &Dataset{Images: make([]float32, 0, len(indices)*ImageSize)}
	if d.Labeled() {
		out.Labels = make([]int32, 0, len(indices))
	}
	for _, idx := range indices {
		out.Images = append(out.Images, d.Image(idx)...)
		if d.Labeled() {
			out.Labels = append(out.Labels, d.Labels[idx])
		}
	}
	return out
}

// LoadImages reads an image array and flattens it to [N*784].
//
// Accepted shapes: (N, 784), (N, 28, 28), (N, 28, 28, 1) and (N, 1, 28, 28).
func LoadImages(path string) ([]float32, error) {
	data, shape, err := npy.Load[float32](path)
	if err != nil {
		return nil, err
	}
	if !isImageShape(shape) {
		return nil, fmt.Errorf("%w: %s has shape %v, want (N, 28, 28) or (N, 784)", ErrShape, path, shape)
	}
	return data, nil
}

func isImageShape(shape []int) bool {
	if len(shape) < 2 {
		return false
	}
	switch tail := shape[1:]; len(tail) {
	case 1:
		return tail[0] == ImageSize
	case 2:
		return tail[0] == ImageSide && tail[1] == ImageSide
	case 3:
		return (tail[0] == ImageSide && tail[1] == ImageSide && tail[2] == 1) ||
			(tail[0] == 1 && tail[1] == ImageSide && tail[2] == ImageSide)
	default:
		return false
	}
}

// LoadLabels reads a label array shaped (N,) or (N, 1).
func LoadLabels(path string) ([]int32, error) {
	data, shape, err := npy.Load[int32](path)
	if err != nil {
		return nil, err
	}
	if len(shape) == 0 || len(shape) > 2 || (len(shape) == 2 && shape[1] != 1) {
		return nil, fmt.Errorf("%w: %s has shape %v, want (N,)", ErrShape, path, shape)
	}
	return data, nil
}

// LoadAll reads the training and test arrays from dir.
//
// The three files are read concurrently; the first failure is returned.
func LoadAll(ctx context.Context, dir string) (train, test *Dataset, err error) {
	var (
		trainImages, testImages []float32
		trainLabels             []int32
	)

	g, ctx := errgroup.WithContext(ctx)
	load := func(fn func() error) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn()
		})
	}
	load(func() (err error) {
		trainImages, err = LoadImages(filepath.Join(dir, TrainImagesFile))
		return err
	})
	load(func() (err error) {
		trainLabels, err = LoadLabels(filepath.Join(dir, TrainLabelsFile))
		return err
	})
	load(func() (err error) {
		testImages, err = LoadImages(filepath.Join(dir, TestImagesFile))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	train, err = New(trainImages, trainLabels)
	if err != nil {
		return nil, nil, fmt.Errorf("training set: %w", err)
	}
	test, err = New(testImages, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("test set: %w", err)
	}
	return train, test, nil
}

// Split partitions d into a training and an evaluation subset.
//
// The evaluation subset receives ceil(evalFraction*N) samples chosen by a
// permutation seeded with seed; the rest form the training subset. Every
// sample lands in exactly one subset.
func Split(d *Dataset, evalFraction float64, seed int64) (train, eval *Dataset, err error) {
	if evalFraction <= 0 || evalFraction >= 1 {
		return nil, nil, fmt.Errorf("eval fraction must be in (0, 1), got %v", evalFraction)
	}
	n := d.NumSamples()
	nEval := int(math.Ceil(evalFraction * float64(n)))
	nTrain := n - nEval
	if nEval == 0 || nTrain <= 0 {
		return nil, nil, fmt.Errorf("cannot split %d samples with eval fraction %v", n, evalFraction)
	}

	//nolint:gosec // shuffling, not security-critical
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return d.Subset(perm[nEval:]), d.Subset(perm[:nEval]), nil
}
