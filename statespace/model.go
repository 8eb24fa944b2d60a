// Package statespace implements the state-space container of the
// Kalman filter engine: it stores and validates the system matrices of
// a linear Gaussian state-space model, derives the missing-observation
// mask, and offers three initialization strategies: known initial
// conditions, approximate diffuse, and stationary.
package statespace

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/dcweber/gokalman/internal/matutil"
	"github.com/dcweber/gokalman/internal/shapeerr"
	"github.com/dcweber/gokalman/lyapunov"
)

// TimeVarying is a system matrix whose trailing time dimension is
// either 1 (time-invariant) or T (time-varying). slices holds one
// *mat.Dense per distinct time index; len(slices) is always 1 or T.
type TimeVarying struct {
	slices []*mat.Dense
}

// NewTimeVarying validates that either one matrix (time-invariant) or
// exactly nobs matrices (time-varying) were supplied, all of the given
// shape, and returns the wrapper.
func NewTimeVarying(name string, nobs, rows, cols int, ms ...*mat.Dense) (TimeVarying, error) {
	if len(ms) != 1 && len(ms) != nobs {
		return TimeVarying{}, fmt.Errorf("statespace: %s: trailing dim must be 1 or %d, got %d", name, nobs, len(ms))
	}
	for i, m := range ms {
		r, c := m.Dims()
		if r != rows || c != cols {
			return TimeVarying{}, &shapeerr.Error{
				Name:     fmt.Sprintf("statespace: %s[%d]", name, i),
				Expected: [2]int{rows, cols},
				Got:      [2]int{r, c},
			}
		}
	}
	return TimeVarying{slices: ms}, nil
}

// TimeInvariant reports whether this matrix carries a single slice.
func (tv TimeVarying) TimeInvariant() bool { return len(tv.slices) == 1 }

// At returns the effective slice for period t.
func (tv TimeVarying) At(t int) *mat.Dense {
	if tv.TimeInvariant() {
		return tv.slices[0]
	}
	return tv.slices[t]
}

// Model is the state-space container. All matrices are stored as
// caller-owned or caller-borrowed *mat.Dense views; Model never mutates
// them, and re-reads them at every step so a caller driving a parameter
// search can mutate the underlying data between filter runs. The one
// exception is the selected state covariance R Q R' when neither R nor
// Q is time-varying: it is computed once, in New.
type Model struct {
	p, m, r, nobs int

	obs *mat.Dense // p x nobs

	design        TimeVarying // Z: p x m
	obsIntercept  TimeVarying // d: p x 1
	obsCov        TimeVarying // H: p x p
	transition    TimeVarying // T: m x m
	stateIntercept TimeVarying // c: m x 1
	selection     TimeVarying // R: m x r
	stateCov      TimeVarying // Q: r x r

	selectedStateCov []*mat.Dense // Q* = R Q R': m x m, length 1 or nobs
	selectedTimeVarying bool

	missing  [][]bool // p x nobs
	nmissing []int    // nobs

	timeInvariant bool

	initialState    *mat.VecDense
	initialStateCov *mat.SymDense
	initialized     bool
}

// New validates shapes and constructs a Model. p, m, r and nobs are
// derived from obs and selection: p = obs.Rows, m = selection.Rows,
// r = selection.Cols, nobs = obs.Cols.
func New(obs *mat.Dense, design, obsIntercept, obsCov, transition, stateIntercept, selection, stateCov TimeVarying) (*Model, error) {
	p, nobs := obs.Dims()
	if p == 0 || nobs == 0 {
		return nil, fmt.Errorf("statespace: obs must be non-empty, got %dx%d", p, nobs)
	}

	selMat := selection.At(0)
	m, r := selMat.Dims()
	if m == 0 {
		return nil, fmt.Errorf("statespace: selection matrix must have at least one state, got %dx%d", m, r)
	}

	// shape-validate every system matrix against p, m, r, nobs.
	checks := []struct {
		name          string
		tv            TimeVarying
		rows, cols int
	}{
		{"design", design, p, m},
		{"obs_intercept", obsIntercept, p, 1},
		{"obs_cov", obsCov, p, p},
		{"transition", transition, m, m},
		{"state_intercept", stateIntercept, m, 1},
		{"selection", selection, m, r},
		{"state_cov", stateCov, r, r},
	}
	for _, c := range checks {
		for i, s := range c.tv.slices {
			rr, cc := s.Dims()
			if rr != c.rows || cc != c.cols {
				return nil, &shapeerr.Error{
					Name:     fmt.Sprintf("statespace: %s[%d]", c.name, i),
					Expected: [2]int{c.rows, c.cols},
					Got:      [2]int{rr, cc},
				}
			}
		}
		if len(c.tv.slices) != 1 && len(c.tv.slices) != nobs {
			return nil, fmt.Errorf("statespace: %s: trailing dim must be 1 or %d, got %d", c.name, nobs, len(c.tv.slices))
		}
	}

	timeInvariant := design.TimeInvariant() && obsIntercept.TimeInvariant() &&
		obsCov.TimeInvariant() && transition.TimeInvariant() &&
		stateIntercept.TimeInvariant() && selection.TimeInvariant() &&
		stateCov.TimeInvariant()

	mdl := &Model{
		p: p, m: m, r: r, nobs: nobs,
		obs:            obs,
		design:         design,
		obsIntercept:   obsIntercept,
		obsCov:         obsCov,
		transition:     transition,
		stateIntercept: stateIntercept,
		selection:      selection,
		stateCov:       stateCov,
		timeInvariant:  timeInvariant,
	}

	mdl.selectedTimeVarying = !selection.TimeInvariant() || !stateCov.TimeInvariant()
	n := 1
	if mdl.selectedTimeVarying {
		n = nobs
	}
	mdl.selectedStateCov = make([]*mat.Dense, n)
	for t := 0; t < n; t++ {
		mdl.selectedStateCov[t] = computeSelectedStateCov(selection.At(t), stateCov.At(t))
	}

	mdl.computeMissing()

	return mdl, nil
}

func computeSelectedStateCov(r, q *mat.Dense) *mat.Dense {
	m, _ := r.Dims()
	rq := new(mat.Dense)
	rq.Mul(r, q)
	qstar := mat.NewDense(m, m, nil)
	qstar.Mul(rq, r.T())
	return qstar
}

func (mdl *Model) computeMissing() {
	mdl.missing = make([][]bool, mdl.nobs)
	mdl.nmissing = make([]int, mdl.nobs)
	for t := 0; t < mdl.nobs; t++ {
		row := make([]bool, mdl.p)
		count := 0
		for i := 0; i < mdl.p; i++ {
			if math.IsNaN(mdl.obs.At(i, t)) {
				row[i] = true
				count++
			}
		}
		mdl.missing[t] = row
		mdl.nmissing[t] = count
	}
}

// Dims returns p (observation dim), m (state dim), r (shock dim) and
// nobs (series length).
func (mdl *Model) Dims() (p, m, r, nobs int) { return mdl.p, mdl.m, mdl.r, mdl.nobs }

// P returns the observation dimension.
func (mdl *Model) P() int { return mdl.p }

// M returns the state dimension.
func (mdl *Model) M() int { return mdl.m }

// NObs returns the series length.
func (mdl *Model) NObs() int { return mdl.nobs }

// TimeInvariant reports whether every optional trailing dimension is 1.
func (mdl *Model) TimeInvariant() bool { return mdl.timeInvariant }

// Initialized reports whether an initial state/covariance has been set.
func (mdl *Model) Initialized() bool { return mdl.initialized }

// NMissing returns the number of missing observations at period t.
func (mdl *Model) NMissing(t int) int { return mdl.nmissing[t] }

// MissingMask returns the per-observation missing flags at period t.
func (mdl *Model) MissingMask(t int) []bool { return mdl.missing[t] }

// Obs returns a copy of the observation column at period t.
func (mdl *Model) Obs(t int) *mat.VecDense {
	return mat.VecDenseCopyOf(mdl.obs.ColView(t))
}

// Design returns Z_t.
func (mdl *Model) Design(t int) *mat.Dense { return mdl.design.At(t) }

// ObsIntercept returns d_t.
func (mdl *Model) ObsIntercept(t int) *mat.Dense { return mdl.obsIntercept.At(t) }

// ObsCov returns H_t.
func (mdl *Model) ObsCov(t int) *mat.Dense { return mdl.obsCov.At(t) }

// Transition returns T_t.
func (mdl *Model) Transition(t int) *mat.Dense { return mdl.transition.At(t) }

// StateIntercept returns c_t.
func (mdl *Model) StateIntercept(t int) *mat.Dense { return mdl.stateIntercept.At(t) }

// Selection returns R_t.
func (mdl *Model) Selection(t int) *mat.Dense { return mdl.selection.At(t) }

// StateCov returns Q_t.
func (mdl *Model) StateCov(t int) *mat.Dense { return mdl.stateCov.At(t) }

// SelectedStateCovAt returns Q*_t = R_t Q_t R_t', recomputing it when
// the model is time-varying in R or Q and returning the cached value
// otherwise.
func (mdl *Model) SelectedStateCovAt(t int) *mat.Dense {
	if mdl.selectedTimeVarying {
		mdl.selectedStateCov[t] = computeSelectedStateCov(mdl.selection.At(t), mdl.stateCov.At(t))
		return mdl.selectedStateCov[t]
	}
	return mdl.selectedStateCov[0]
}

// InitialState returns a copy of a1.
func (mdl *Model) InitialState() *mat.VecDense {
	return mat.VecDenseCopyOf(mdl.initialState)
}

// InitialStateCov returns a copy of P1.
func (mdl *Model) InitialStateCov() *mat.SymDense {
	cov := mat.NewSymDense(mdl.initialStateCov.SymmetricDim(), nil)
	cov.CopySym(mdl.initialStateCov)
	return cov
}

// InitializeKnown sets a1, P1 to caller-supplied values after a shape
// check.
func (mdl *Model) InitializeKnown(a1 mat.Vector, p1 mat.Symmetric) error {
	if a1.Len() != mdl.m {
		return &shapeerr.Error{
			Name:     "statespace: initial state",
			Expected: [2]int{mdl.m, 1},
			Got:      [2]int{a1.Len(), 1},
		}
	}
	if p1.SymmetricDim() != mdl.m {
		return &shapeerr.Error{
			Name:     "statespace: initial state covariance",
			Expected: [2]int{mdl.m, mdl.m},
			Got:      [2]int{p1.SymmetricDim(), p1.SymmetricDim()},
		}
	}
	mdl.initialState = mat.VecDenseCopyOf(a1)
	mdl.initialStateCov = mat.NewSymDense(mdl.m, nil)
	mdl.initialStateCov.CopySym(p1)
	mdl.initialized = true
	return nil
}

// InitializeApproximateDiffuse sets a1 = 0, P1 = variance*I. This
// initialization carries a known loss of precision when combined with
// the conventional filter; it exists for exploratory use only, never
// for final parameter estimates.
func (mdl *Model) InitializeApproximateDiffuse(variance float64) error {
	if variance <= 0 {
		return fmt.Errorf("statespace: diffuse variance must be positive, got %v", variance)
	}
	a1 := mat.NewVecDense(mdl.m, nil)
	p1 := mat.NewSymDense(mdl.m, nil)
	for i := 0; i < mdl.m; i++ {
		p1.SetSym(i, i, variance)
	}
	mdl.initialState = a1
	mdl.initialStateCov = p1
	mdl.initialized = true
	return nil
}

// InitializeStationary sets a1 = 0 and solves the discrete Lyapunov
// equation P1 - T0*P1*T0' = Q*_0 for P1 via solver. Index 0 is used
// for the "t=0" slices in the solve even when the model is
// time-varying: there is no well-defined stationary distribution for a
// time-varying system, so the first period's matrices are the only
// reasonable choice.
func (mdl *Model) InitializeStationary(solver lyapunov.Solver) error {
	if solver == nil {
		solver = lyapunov.KroneckerSolver{}
	}
	t0 := mdl.Transition(0)
	qstar0 := mdl.SelectedStateCovAt(0)

	p, err := solver.Solve(t0, qstar0)
	if err != nil {
		return fmt.Errorf("statespace: stationary initialization: %w", err)
	}
	sym, err := matutil.ToSymDense(p)
	if err != nil {
		return fmt.Errorf("statespace: stationary initialization produced a non-symmetric covariance: %w", err)
	}

	mdl.initialState = mat.NewVecDense(mdl.m, nil)
	mdl.initialStateCov = sym
	mdl.initialized = true
	return nil
}
