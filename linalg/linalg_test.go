package linalg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

func TestGemm(t *testing.T) {
	assert := assert.New(t)

	a := NewGeneral(2, 2, 2, []float64{1, 2, 3, 4})
	b := NewGeneral(2, 2, 2, []float64{1, 0, 0, 1})
	c := NewGeneral(2, 2, 2, make([]float64, 4))

	Gemm(blas.NoTrans, blas.NoTrans, 1, a, b, 0, c)
	assert.Equal([]float64{1, 2, 3, 4}, c.Data)
}

func TestPotrfIdentity(t *testing.T) {
	assert := assert.New(t)

	a := blas64.Symmetric{N: 2, Stride: 2, Data: []float64{1, 0, 0, 1}, Uplo: blas.Upper}
	chol, det, err := Potrf(0, a)
	assert.NoError(err)
	assert.InDelta(1.0, det, 1e-12)
	assert.InDelta(1.0, chol.Data[0], 1e-12)
	assert.InDelta(1.0, chol.Data[chol.Stride+1], 1e-12)
}

func TestPotrfNonPosDef(t *testing.T) {
	assert := assert.New(t)

	a := blas64.Symmetric{N: 2, Stride: 2, Data: []float64{1, 2, 2, 1}, Uplo: blas.Upper}
	_, _, err := Potrf(7, a)
	assert.Error(err)

	lerr, ok := err.(*Error)
	assert.True(ok)
	assert.Equal(7, lerr.Period)
	assert.Equal(NonPosDef, lerr.Kind)
}

func TestGetrfSingular(t *testing.T) {
	assert := assert.New(t)

	a := NewGeneral(2, 2, 2, []float64{1, 1, 1, 1})
	_, _, err := Getrf(3, a)
	assert.Error(err)

	lerr, ok := err.(*Error)
	assert.True(ok)
	assert.Equal(Singular, lerr.Kind)
}

func TestGemmC(t *testing.T) {
	assert := assert.New(t)

	a := NewComplexGeneral(2, 2, 2, []complex128{1 + 1i, 2, 3, 4 - 1i})
	id := NewComplexGeneral(2, 2, 2, []complex128{1, 0, 0, 1})
	c := NewComplexGeneral(2, 2, 2, make([]complex128, 4))

	GemmC(blas.NoTrans, blas.NoTrans, 1, a, id, 0, c)
	assert.Equal(a.Data, c.Data)
}

func TestDotU(t *testing.T) {
	assert := assert.New(t)

	x := NewComplexVector([]complex128{1 + 1i, 2})
	y := NewComplexVector([]complex128{1, 1 - 1i})

	got := DotU(x, y)
	assert.InDelta(real(3-1i), real(got), 1e-12)
	assert.InDelta(imag(3-1i), imag(got), 1e-12)
}

// TestPotrfCSolveRoundTrip factors a small complex symmetric (not
// Hermitian) matrix, solves a·x = b against the factor, and checks the
// residual a·x - b vanishes.
func TestPotrfCSolveRoundTrip(t *testing.T) {
	assert := assert.New(t)

	n := 2
	// symmetric: a[0][1] == a[1][0]
	a := []complex128{
		4 + 0i, 1 + 1i,
		1 + 1i, 3 + 0i,
	}
	chol, det, err := PotrfC(0, n, a)
	assert.NoError(err)
	assert.NotEqual(complex128(0), det)

	b := []complex128{1 + 0i, 2 - 1i}
	x := make([]complex128, n)
	copy(x, b)
	assert.NoError(PotrsC(n, chol, 1, x))

	// residual r = a*x - b must vanish.
	for i := 0; i < n; i++ {
		var s complex128
		for j := 0; j < n; j++ {
			s += a[i*n+j] * x[j]
		}
		r := s - b[i]
		assert.InDelta(0, real(r), 1e-9)
		assert.InDelta(0, imag(r), 1e-9)
	}
}

func TestPotrfCNonPosDef(t *testing.T) {
	assert := assert.New(t)

	n := 2
	a := []complex128{0, 1, 1, 0}
	_, _, err := PotrfC(5, n, a)
	assert.Error(err)

	lerr, ok := err.(*Error)
	assert.True(ok)
	assert.Equal(5, lerr.Period)
	assert.Equal(NonPosDef, lerr.Kind)
}
