// Package report prints the results of a run: evaluation metrics, predicted
// classes and predicted probabilities, each on its own line.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/hfma6579/Data-Science-Project-1/internal/estimator"
)

// Write prints metrics, then the predicted class of every sample, then the
// probability vector of every sample, in sample order.
func Write(w io.Writer, metrics estimator.Metrics, preds []estimator.Prediction) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, metrics)

	predictedClasses := make([]int32, len(preds))
	for i, p := range preds {
		predictedClasses[i] = p.Class
	}
	writeClasses(bw, predictedClasses)

	bw.WriteByte('[')
	for i, p := range preds {
		if i > 0 {
			bw.WriteString(", ")
		}
		writeVector(bw, p.Probabilities)
	}
	bw.WriteString("]\n")

	return bw.Flush()
}

func writeClasses(bw *bufio.Writer, classes []int32) {
	bw.WriteByte('[')
	for i, c := range classes {
		if i > 0 {
			bw.WriteString(", ")
		}
		bw.WriteString(strconv.Itoa(int(c)))
	}
	bw.WriteString("]\n")
}

func writeVector(bw *bufio.Writer, v []float32) {
	bw.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			bw.WriteString(", ")
		}
		bw.WriteString(strconv.FormatFloat(float64(x), 'g', 8, 32))
	}
	bw.WriteByte(']')
}
