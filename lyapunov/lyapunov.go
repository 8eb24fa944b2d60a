// Package lyapunov provides the pluggable discrete Lyapunov solver
// that statespace.Model.InitializeStationary delegates to, kept as its
// own interface so a caller can swap in a different solver without
// reaching into the engine.
package lyapunov

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/dcweber/gokalman/internal/shapeerr"
)

// Solver solves the discrete Lyapunov equation P - T*P*T' = Q for P,
// given the transition matrix t and the selected state covariance q.
type Solver interface {
	Solve(t, q mat.Matrix) (*mat.Dense, error)
}

// KroneckerSolver is the default Solver. It vectorizes the equation as
// (I - T⊗T)·vec(P) = vec(Q) and solves the resulting m²×m² linear
// system with mat.VecDense.SolveVec, using gonum's own Kronecker product
// support (gonum ships no packaged discrete Lyapunov routine).
type KroneckerSolver struct{}

// Solve implements Solver.
func (KroneckerSolver) Solve(t, q mat.Matrix) (*mat.Dense, error) {
	m, mc := t.Dims()
	if m != mc {
		return nil, &shapeerr.Error{
			Name:     "lyapunov: transition matrix",
			Expected: [2]int{m, m},
			Got:      [2]int{m, mc},
		}
	}
	qr, qc := q.Dims()
	if qr != m || qc != m {
		return nil, &shapeerr.Error{
			Name:     "lyapunov: selected state covariance",
			Expected: [2]int{m, m},
			Got:      [2]int{qr, qc},
		}
	}

	var kron mat.Dense
	kron.Kronecker(t, t)

	n := m * m
	lhs := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := -kron.At(i, j)
			if i == j {
				v += 1
			}
			lhs.Set(i, j, v)
		}
	}

	vecQ := mat.NewVecDense(n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			// column-major vec(Q): index = i + j*m
			vecQ.SetVec(i+j*m, q.At(i, j))
		}
	}

	var vecP mat.VecDense
	if err := vecP.SolveVec(lhs, vecQ); err != nil {
		return nil, fmt.Errorf("lyapunov: failed to solve vectorized system: %w", err)
	}

	p := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			p.Set(i, j, vecP.AtVec(i+j*m))
		}
	}
	return p, nil
}
