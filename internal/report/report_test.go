package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hfma6579/Data-Science-Project-1/internal/estimator"
)

func TestWrite(t *testing.T) {
	metrics := estimator.Metrics{Accuracy: 0.5, Loss: 0.25, GlobalStep: 100}
	preds := []estimator.Prediction{
		{Class: 3, Probabilities: []float32{0.25, 0.75}},
		{Class: 0, Probabilities: []float32{1, 0}},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, metrics, preds))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "{accuracy: 0.5, global_step: 100, loss: 0.25}", lines[0])
	assert.Equal(t, "[3, 0]", lines[1])
	assert.Equal(t, "[[0.25, 0.75], [1, 0]]", lines[2])
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, estimator.Metrics{}, nil))
	assert.Equal(t, "{accuracy: 0, global_step: 0, loss: 0}\n[]\n[]\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteError(t *testing.T) {
	err := Write(failingWriter{}, estimator.Metrics{}, nil)
	require.ErrorContains(t, err, "disk full")
}
