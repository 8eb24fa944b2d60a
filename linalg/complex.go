package linalg

import (
	"math/cmplx"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cmplx128"
)

// LU factor/solve/invert for the complex128 field are reserved hooks:
// gonum ships no complex128 LAPACK binding, and no caller needs a
// non-Cholesky complex path, so only the Cholesky factor/solve below
// (PotrfC, PotrsC) is implemented for this field.

// ComplexGeneral mirrors General for the complex128 field.
type ComplexGeneral = cmplx128.General

// NewComplexGeneral builds a ComplexGeneral view over data, mirroring
// NewGeneral for the complex128 field.
func NewComplexGeneral(rows, cols, stride int, data []complex128) ComplexGeneral {
	return ComplexGeneral{Rows: rows, Cols: cols, Stride: stride, Data: data}
}

// ComplexVector mirrors Vector for the complex128 field.
type ComplexVector = cmplx128.Vector

// NewComplexVector builds a ComplexVector view with unit increment.
func NewComplexVector(data []complex128) ComplexVector {
	return ComplexVector{N: len(data), Inc: 1, Data: data}
}

// GemmC computes c := alpha*op(a)*op(b) + beta*c using unconjugated
// transposes (blas.Trans, never blas.ConjTrans) for both operands: the
// recursion assumes plain symmetry even for complex-parameterized runs,
// not Hermitian symmetry.
func GemmC(tA, tB blas.Transpose, alpha complex128, a, b ComplexGeneral, beta complex128, c ComplexGeneral) {
	if tA == blas.ConjTrans {
		tA = blas.Trans
	}
	if tB == blas.ConjTrans {
		tB = blas.Trans
	}
	cmplx128.Gemm(tA, tB, alpha, a, b, beta, c)
}

// DotU returns the unconjugated dot product of x and y (BLAS dotu, not
// dotc), matching the real-field Dot above.
func DotU(x, y ComplexVector) complex128 {
	return cmplx128.Dotu(x, y)
}

// PotrfC computes a Cholesky-style factorization of a *symmetric*
// (not Hermitian) complex n×n matrix a by plain Gaussian elimination,
// since gonum ships no complex128 LAPACK binding. It returns the upper
// triangular factor L such that a = Lᵀ·L (transpose, not conjugate
// transpose) and det(a) as the squared product of the diagonal.
func PotrfC(t int, n int, a []complex128) (chol []complex128, det complex128, err error) {
	chol = make([]complex128, n*n)
	copy(chol, a)
	at := func(i, j int) complex128 { return chol[i*n+j] }
	set := func(i, j int, v complex128) { chol[i*n+j] = v }

	for i := 0; i < n; i++ {
		sum := at(i, i)
		for k := 0; k < i; k++ {
			sum -= at(k, i) * at(k, i)
		}
		if sum == 0 {
			return nil, 0, &Error{Period: t, Kind: NonPosDef}
		}
		lii := cmplx.Sqrt(sum)
		set(i, i, lii)
		for j := i + 1; j < n; j++ {
			s := at(i, j)
			for k := 0; k < i; k++ {
				s -= at(k, i) * at(k, j)
			}
			set(i, j, s/lii)
		}
	}
	det = 1
	for i := 0; i < n; i++ {
		d := chol[i*n+i]
		det *= d * d
	}
	return chol, det, nil
}

// PotrsC solves a·x = b given a's upper-triangular factor chol (a =
// cholᵀ·chol, unconjugated) for each of the ncols columns stored
// column-major in b, in place, by forward- then back-substitution.
func PotrsC(n int, chol []complex128, ncols int, b []complex128) error {
	if n == 0 {
		return nil
	}
	at := func(i, j int) complex128 { return chol[i*n+j] }
	for c := 0; c < ncols; c++ {
		col := b[c*n : c*n+n]
		// forward solve cholᵀ·y = b
		y := make([]complex128, n)
		for i := 0; i < n; i++ {
			s := col[i]
			for k := 0; k < i; k++ {
				s -= at(k, i) * y[k]
			}
			y[i] = s / at(i, i)
		}
		// back solve chol·x = y
		for i := n - 1; i >= 0; i-- {
			s := y[i]
			for k := i + 1; k < n; k++ {
				s -= at(i, k) * col[k]
			}
			col[i] = s / at(i, i)
		}
	}
	return nil
}
