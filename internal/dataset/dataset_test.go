package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// synthetic returns n images whose every pixel equals the sample index,
// labeled i%10.
func synthetic(n int) *Dataset {
	images := make([]float32, n*ImageSize)
	labels := make([]int32, n)
	for i := 0; i < n; i++ {
		for j := 0; j < ImageSize; j++ {
			images[i*ImageSize+j] = float32(i)
		}
		labels[i] = int32(i % NumClasses)
	}
	return &Dataset{Images: images, Labels: labels}
}

// sampleIDs recovers the sample index encoded in each image.
func sampleIDs(d *Dataset) []int {
	ids := make([]int, d.NumSamples())
	for i := range ids {
		ids[i] = int(d.Image(i)[0])
	}
	return ids
}

func writeMatrix(t *testing.T, path string, rows, cols int, fill func(r, c int) float64) {
	t.Helper()
	m := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m.Set(r, c, fill(r, c))
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, npyio.Write(f, m))
	require.NoError(t, f.Close())
}

func writeLabels(t *testing.T, path string, labels []int64) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, npyio.Write(f, labels))
	require.NoError(t, f.Close())
}

func TestNew(t *testing.T) {
	_, err := New(make([]float32, 2*ImageSize), []int32{1, 2})
	require.NoError(t, err)

	_, err = New(make([]float32, ImageSize+1), nil)
	require.ErrorIs(t, err, ErrShape)

	_, err = New(make([]float32, 2*ImageSize), []int32{1})
	require.Error(t, err)

	_, err = New(make([]float32, 2*ImageSize), []int32{1, 10})
	require.ErrorIs(t, err, ErrLabelRange)

	_, err = New(make([]float32, ImageSize), []int32{-1})
	require.ErrorIs(t, err, ErrLabelRange)
}

func TestSplitSizesAndCoverage(t *testing.T) {
	tests := []struct {
		n         int
		wantEval  int
		wantTrain int
	}{
		{n: 100, wantEval: 25, wantTrain: 75},
		{n: 10, wantEval: 3, wantTrain: 7},
		{n: 8, wantEval: 2, wantTrain: 6},
		{n: 2, wantEval: 1, wantTrain: 1},
	}

	for _, tt := range tests {
		d := synthetic(tt.n)
		train, eval, err := Split(d, 0.25, 0)
		require.NoError(t, err)
		assert.Equal(t, tt.wantEval, eval.NumSamples(), "n=%d", tt.n)
		assert.Equal(t, tt.wantTrain, train.NumSamples(), "n=%d", tt.n)

		seen := make(map[int]int)
		for _, id := range sampleIDs(train) {
			seen[id]++
		}
		for _, id := range sampleIDs(eval) {
			seen[id]++
		}
		require.Len(t, seen, tt.n, "every sample appears in a subset")
		for id, count := range seen {
			assert.Equal(t, 1, count, "sample %d appears %d times", id, count)
		}
	}
}

func TestSplitKeepsLabelsAligned(t *testing.T) {
	train, eval, err := Split(synthetic(40), 0.25, 0)
	require.NoError(t, err)
	for _, d := range []*Dataset{train, eval} {
		for i, id := range sampleIDs(d) {
			assert.Equal(t, int32(id%NumClasses), d.Labels[i])
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	d := synthetic(50)
	a, _, err := Split(d, 0.25, 0)
	require.NoError(t, err)
	b, _, err := Split(d, 0.25, 0)
	require.NoError(t, err)
	assert.Equal(t, sampleIDs(a), sampleIDs(b))

	c, _, err := Split(d, 0.25, 1)
	require.NoError(t, err)
	assert.NotEqual(t, sampleIDs(a), sampleIDs(c))
}

func TestSplitInvalid(t *testing.T) {
	_, _, err := Split(synthetic(1), 0.25, 0)
	require.Error(t, err)

	_, _, err = Split(synthetic(10), 0, 0)
	require.Error(t, err)

	_, _, err = Split(synthetic(10), 1, 0)
	require.Error(t, err)
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	writeMatrix(t, filepath.Join(dir, TrainImagesFile), 6, ImageSize, func(r, c int) float64 { return float64(r) + 0.5 })
	writeLabels(t, filepath.Join(dir, TrainLabelsFile), []int64{0, 1, 2, 3, 4, 5})
	writeMatrix(t, filepath.Join(dir, TestImagesFile), 3, ImageSize, func(r, c int) float64 { return float64(c % 256) })

	train, test, err := LoadAll(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 6, train.NumSamples())
	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5}, train.Labels)
	assert.Equal(t, float32(2.5), train.Image(2)[100])

	assert.Equal(t, 3, test.NumSamples())
	assert.False(t, test.Labeled())
	assert.Equal(t, float32(255), test.Image(1)[255])
}

func TestLoadAllMissingFile(t *testing.T) {
	dir := t.TempDir()
	writeMatrix(t, filepath.Join(dir, TrainImagesFile), 2, ImageSize, func(r, c int) float64 { return 0 })
	writeLabels(t, filepath.Join(dir, TrainLabelsFile), []int64{0, 1})

	_, _, err := LoadAll(context.Background(), dir)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadAllCountMismatch(t *testing.T) {
	dir := t.TempDir()
	writeMatrix(t, filepath.Join(dir, TrainImagesFile), 3, ImageSize, func(r, c int) float64 { return 0 })
	writeLabels(t, filepath.Join(dir, TrainLabelsFile), []int64{0, 1})
	writeMatrix(t, filepath.Join(dir, TestImagesFile), 1, ImageSize, func(r, c int) float64 { return 0 })

	_, _, err := LoadAll(context.Background(), dir)
	require.Error(t, err)
}

func TestLoadImagesRejectsShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.npy")
	writeMatrix(t, path, 2, 100, func(r, c int) float64 { return 0 })

	_, err := LoadImages(path)
	require.ErrorIs(t, err, ErrShape)
}

func TestIsImageShape(t *testing.T) {
	tests := []struct {
		shape []int
		want  bool
	}{
		{[]int{5, 784}, true},
		{[]int{5, 28, 28}, true},
		{[]int{5, 28, 28, 1}, true},
		{[]int{5, 1, 28, 28}, true},
		{[]int{784}, false},
		{[]int{5, 28, 28, 3}, false},
		{[]int{5, 27, 29}, false},
		{[]int{5, 1, 1, 28, 28}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isImageShape(tt.shape), "%v", tt.shape)
	}
}
