package lyapunov

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestKroneckerSolverAR1(t *testing.T) {
	assert := assert.New(t)

	// local level: T = [1], Q* = [1] has no stationary solution (T has a
	// unit root), so use a stable AR(1) instead: T = 0.5, Q = 1 ->
	// P = Q/(1-T^2) = 1.333...
	tm := mat.NewDense(1, 1, []float64{0.5})
	q := mat.NewDense(1, 1, []float64{1.0})

	var solver KroneckerSolver
	p, err := solver.Solve(tm, q)
	assert.NoError(err)
	assert.InDelta(1.0/(1-0.25), p.At(0, 0), 1e-9)
}

func TestKroneckerSolverShapeMismatch(t *testing.T) {
	assert := assert.New(t)

	tm := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	q := mat.NewDense(1, 1, []float64{1})

	var solver KroneckerSolver
	_, err := solver.Solve(tm, q)
	assert.Error(err)
}
