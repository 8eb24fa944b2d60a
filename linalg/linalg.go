// Package linalg is the thin, typed surface this engine needs from
// BLAS3/LAPACK: gemm, gemv, axpy, copy, scal, dot and the Cholesky/LU
// factor-solve-invert triples. It operates on gonum's blas64 raw
// storage: row-major, element (i, j) at Data[i*Stride+j], with an
// explicit stride; it does not use the column-major layout of the
// reference Fortran BLAS/LAPACK. A step kernel built against it never
// has to know whether gonum's pure-Go backend or a cgo LAPACK backend
// (e.g. gonum.org/v1/netlib) is behind blas64.Use.
package linalg

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack/lapack64"
)

// Kind identifies the failure mode of a LAPACK factorization so callers
// can distinguish a non-positive-definite covariance from a singular one.
type Kind int

const (
	// NonPosDef marks a potrf failure: the forecast-error covariance is
	// not positive definite.
	NonPosDef Kind = iota
	// Singular marks a getrf failure: the forecast-error covariance is
	// exactly singular.
	Singular
)

func (k Kind) String() string {
	if k == NonPosDef {
		return "not positive definite"
	}
	return "singular"
}

// Error reports a LAPACK factorization failure at period t. info<0 from
// the underlying routine is a programmer error and is never wrapped
// here: it panics, since it means a leading-dimension or size argument
// was computed wrong by this package itself.
type Error struct {
	Period int
	Kind    Kind
}

func (e *Error) Error() string {
	return fmt.Sprintf("linalg: period %d: %s", e.Period, e.Kind)
}

// General wraps a row-major p×q matrix view with its stride,
// mirroring blas64.General without importing callers into the blas64
// package directly.
type General = blas64.General

// NewGeneral builds a General view over data, which must hold at least
// rows*stride elements in row-major order with the given stride.
// stride must be >= cols.
func NewGeneral(rows, cols, stride int, data []float64) General {
	return General{Rows: rows, Cols: cols, Stride: stride, Data: data}
}

// Vector wraps a strided vector view.
type Vector = blas64.Vector

// NewVector builds a Vector view with unit increment.
func NewVector(data []float64) Vector {
	return Vector{N: len(data), Inc: 1, Data: data}
}

// Gemm computes c := alpha*op(a)*op(b) + beta*c.
func Gemm(tA, tB blas.Transpose, alpha float64, a, b General, beta float64, c General) {
	blas64.Gemm(tA, tB, alpha, a, b, beta, c)
}

// Gemv computes y := alpha*op(a)*x + beta*y.
func Gemv(t blas.Transpose, alpha float64, a General, x Vector, beta float64, y Vector) {
	blas64.Gemv(t, alpha, a, x, beta, y)
}

// Axpy computes y := alpha*x + y.
func Axpy(alpha float64, x, y Vector) {
	blas64.Axpy(alpha, x, y)
}

// Copy copies x into y.
func Copy(x, y Vector) {
	blas64.Copy(x, y)
}

// Scal computes x := alpha*x.
func Scal(alpha float64, x Vector) {
	blas64.Scal(alpha, x)
}

// Dot returns the unconjugated dot product of x and y.
func Dot(x, y Vector) float64 {
	return blas64.Dot(x, y)
}

// Potrf computes the Cholesky factorization of the symmetric positive
// definite n×n matrix a (upper triangle, row-major-compatible storage
// via blas64.Symmetric). It returns the triangular factor and det(a)
// computed as the squared product of the factor's diagonal. On
// failure it returns a linalg.Error{Kind: NonPosDef} carrying period t.
func Potrf(t int, a blas64.Symmetric) (chol blas64.Triangular, det float64, err error) {
	chol, ok := lapack64.Potrf(a)
	if !ok {
		return blas64.Triangular{}, 0, &Error{Period: t, Kind: NonPosDef}
	}
	det = 1
	for i := 0; i < a.N; i++ {
		d := chol.Data[i*chol.Stride+i]
		det *= d * d
	}
	return chol, det, nil
}

// Potrs solves a*x = b for x given a's Cholesky factor chol, overwriting
// b with the solution.
func Potrs(chol blas64.Triangular, b blas64.General) {
	lapack64.Potrs(chol, b)
}

// Potri inverts a symmetric positive definite matrix in place given its
// Cholesky factor, reflecting the upper result into the lower triangle
// so callers can treat the result as a full dense inverse.
func Potri(t int, chol blas64.Triangular) (inv blas64.General, err error) {
	ok := lapack64.Potri(chol)
	if !ok {
		return blas64.General{}, &Error{Period: t, Kind: NonPosDef}
	}
	n := chol.N
	inv = NewGeneral(n, n, n, make([]float64, n*n))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j >= i {
				inv.Data[i*n+j] = chol.Data[i*chol.Stride+j]
			} else {
				inv.Data[i*n+j] = chol.Data[j*chol.Stride+i]
			}
		}
	}
	return inv, nil
}

// Getrf computes the LU factorization (with partial pivoting) of the
// n×n matrix a in place, returning the pivot vector and det(a) computed
// from the product of the diagonal of U adjusted by the permutation
// sign. On a singular factor it returns a linalg.Error{Kind: Singular}.
func Getrf(t int, a blas64.General) (ipiv []int, det float64, err error) {
	n := a.Rows
	ipiv = make([]int, n)
	ok := lapack64.Getrf(a, ipiv)
	if !ok {
		return nil, 0, &Error{Period: t, Kind: Singular}
	}
	det = 1
	sign := 1.0
	for i := 0; i < n; i++ {
		det *= a.Data[i*a.Stride+i]
		if ipiv[i] != i {
			sign = -sign
		}
	}
	det *= sign
	return ipiv, det, nil
}

// Getrs solves a*x = b given a's LU factors and pivot vector, overwriting
// b with the solution.
func Getrs(a blas64.General, ipiv []int, b blas64.General) {
	lapack64.Getrs(blas.NoTrans, a, ipiv, b)
}

// Getri inverts a in place given its LU factors and pivot vector.
func Getri(t int, a blas64.General, ipiv []int) error {
	work := make([]float64, a.Rows*a.Rows)
	ok := lapack64.Getri(a, ipiv, work, len(work))
	if !ok {
		return &Error{Period: t, Kind: Singular}
	}
	return nil
}
