// Package matutil holds small dense-matrix helpers shared by statespace
// and kalman that don't belong to the narrow linalg adapter.
package matutil

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Format returns a matrix formatter suitable for error messages and
// diagnostic logging.
func Format(m mat.Matrix) fmt.Formatter {
	return mat.Formatted(m, mat.Prefix(""), mat.Squeeze())
}

// ToSymDense converts m to a SymDense if it is square and symmetric
// within a loose tolerance. It returns an error naming the first
// offending cell otherwise.
func ToSymDense(m *mat.Dense) (*mat.SymDense, error) {
	r, c := m.Dims()
	if r != c {
		return nil, errors.New("matutil: matrix must be square")
	}

	vals := make([]float64, r*c)
	idx := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if i != j && !floats.EqualWithinAbsOrRel(m.At(j, i), m.At(i, j), 1e-6, 1e-2) {
				return nil, fmt.Errorf("matutil: matrix not symmetric at (%d,%d): %v != %v\n%v",
					i, j, m.At(j, i), m.At(i, j), Format(m))
			}
			vals[idx] = m.At(i, j)
			idx++
		}
	}
	return mat.NewSymDense(r, vals), nil
}

// Symmetrize averages m with its transpose in place, clamping the
// asymmetry that accumulates from floating point round-off in the
// predicted covariance recursion.
func Symmetrize(m *mat.Dense) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			avg := (m.At(i, j) + m.At(j, i)) / 2
			m.Set(i, j, avg)
			m.Set(j, i, avg)
		}
	}
}
