package dataset

import (
	"fmt"
	"math/rand"
)

// Batch is a mini-batch of images laid out as [Size, 28, 28, 1].
type Batch struct {
	Images []float32 // [Size * 784]
	Labels []int32   // [Size], nil for unlabeled data
	Size   int
}

// Iterator yields batches until it is exhausted.
type Iterator interface {
	// Next returns the next batch, or false when no batches remain.
	Next() (Batch, bool)
}

// gather copies the samples at indices into a batch.
func gather(d *Dataset, indices []int) Batch {
	b := Batch{
		Images: make([]float32, len(indices)*ImageSize),
		Size:   len(indices),
	}
	if d.Labeled() {
		b.Labels = make([]int32, len(indices))
	}
	for j, idx := range indices {
		copy(b.Images[j*ImageSize:(j+1)*ImageSize], d.Image(idx))
		if d.Labeled() {
			b.Labels[j] = d.Labels[idx]
		}
	}
	return b
}

// ShuffledIterator cycles through a dataset forever, reshuffling at the start
// of every epoch. A batch may span an epoch boundary.
type ShuffledIterator struct {
	data      *Dataset
	batchSize int
	rng       *rand.Rand
	perm      []int
	pos       int
	epoch     int
}

// Shuffled returns an endless iterator over d with batches of batchSize.
func Shuffled(d *Dataset, batchSize int, seed int64) (*ShuffledIterator, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be > 0 (got %d)", batchSize)
	}
	if d.NumSamples() == 0 {
		return nil, fmt.Errorf("cannot shuffle an empty dataset")
	}
	return &ShuffledIterator{
		data:      d,
		batchSize: batchSize,
		//nolint:gosec // shuffling, not security-critical
		rng: rand.New(rand.NewSource(seed)),
	}, nil
}

// Next always returns a full batch.
func (it *ShuffledIterator) Next() (Batch, bool) {
	indices := make([]int, 0, it.batchSize)
	for len(indices) < it.batchSize {
		if it.pos == len(it.perm) {
			it.perm = it.rng.Perm(it.data.NumSamples())
			it.pos = 0
			it.epoch++
		}
		take := min(it.batchSize-len(indices), len(it.perm)-it.pos)
		indices = append(indices, it.perm[it.pos:it.pos+take]...)
		it.pos += take
	}
	return gather(it.data, indices), true
}

// Epoch returns the number of epochs started so far.
func (it *ShuffledIterator) Epoch() int {
	return it.epoch
}

// SequentialIterator makes a single in-order pass over a dataset.
type SequentialIterator struct {
	data      *Dataset
	batchSize int
	pos       int
}

// Sequential returns a one-pass iterator over d. The last batch may be short.
func Sequential(d *Dataset, batchSize int) (*SequentialIterator, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be > 0 (got %d)", batchSize)
	}
	return &SequentialIterator{data: d, batchSize: batchSize}, nil
}

func (it *SequentialIterator) Next() (Batch, bool) {
	n := it.data.NumSamples()
	if it.pos >= n {
		return Batch{}, false
	}
	end := min(it.pos+it.batchSize, n)
	indices := make([]int, 0, end-it.pos)
	for i := it.pos; i < end; i++ {
		indices = append(indices, i)
	}
	it.pos = end
	return gather(it.data, indices), true
}
