// Package npy reads NumPy .npy array files into Go slices.
//
// Arrays are converted element-wise to the requested Go type, the same way
// NumPy's astype does: floats are truncated toward zero when read as integers.
// Only C-ordered arrays are supported.
package npy

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sbinet/npyio"
)

// ErrUnsupportedDType is returned when the array's element type has no
// conversion to the requested Go type.
var ErrUnsupportedDType = errors.New("npy: unsupported dtype")

// Element is the set of Go types an array can be loaded as.
type Element interface {
	~float32 | ~int32
}

// Load opens path and reads the array stored in it.
func Load[T Element](path string) ([]T, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	data, shape, err := Read[T](f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, shape, nil
}

// Read decodes one .npy array from r.
//
// Returns the flat data in C order and the array shape.
func Read[T Element](r io.Reader) ([]T, []int, error) {
	rd, err := npyio.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	descr := rd.Header.Descr
	if descr.Fortran {
		return nil, nil, errors.New("npy: fortran-ordered arrays are not supported")
	}
	shape := append([]int(nil), descr.Shape...)

	var data []T
	switch kind := strings.TrimLeft(descr.Type, "<>|="); kind {
	case "f4":
		data, err = readAs[float32, T](rd)
	case "f8":
		data, err = readAs[float64, T](rd)
	case "i1":
		data, err = readAs[int8, T](rd)
	case "i2":
		data, err = readAs[int16, T](rd)
	case "i4":
		data, err = readAs[int32, T](rd)
	case "i8":
		data, err = readAs[int64, T](rd)
	case "u1":
		data, err = readAs[uint8, T](rd)
	case "u2":
		data, err = readAs[uint16, T](rd)
	case "u4":
		data, err = readAs[uint32, T](rd)
	case "u8":
		data, err = readAs[uint64, T](rd)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedDType, descr.Type)
	}
	if err != nil {
		return nil, nil, err
	}

	if want := NumElements(shape); len(data) != want {
		return nil, nil, fmt.Errorf("npy: read %d elements, shape %v holds %d", len(data), shape, want)
	}
	return data, shape, nil
}

// NumElements returns the number of elements an array of the given shape holds.
// A zero-dimensional shape holds one element.
func NumElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

type storage interface {
	~float32 | ~float64 | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func readAs[S storage, T Element](rd *npyio.Reader) ([]T, error) {
	var raw []S
	if err := rd.Read(&raw); err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	out := make([]T, len(raw))
	for i, v := range raw {
		out[i] = T(v)
	}
	return out, nil
}
