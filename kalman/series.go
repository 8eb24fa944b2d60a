package kalman

import "gonum.org/v1/gonum/mat"

// vecSeries stores a per-period vector output. In full-storage mode it
// holds one column per period (plus one extra for predicted_state,
// which needs both a_t and a_{t+1}). In conserve mode it collapses to
// a small rotating window: writes always land in the last slot, the
// second-to-last slot (for every family) is the "prior" a caller or
// the next step reads, and rotate performs the
// explicit left-shift a rotating-window output buffer requires — never
// pointer arithmetic, always an owned-array copy.
type vecSeries struct {
	dim      int
	conserve bool
	extra    int // 1 for predicted_state, 0 otherwise
	cols     []*mat.VecDense
}

func newVecSeries(nobs, dim int, conserve bool, extra int) *vecSeries {
	n := nobs + extra
	if conserve {
		n = 2 + extra
	}
	cols := make([]*mat.VecDense, n)
	for i := range cols {
		cols[i] = mat.NewVecDense(dim, nil)
	}
	return &vecSeries{dim: dim, conserve: conserve, extra: extra, cols: cols}
}

// priorIndex returns the physical slot holding the step-t input
// (a_t/P_t for predicted families, or simply unused for non-predicted
// ones).
func (s *vecSeries) priorIndex(t int) int {
	if s.conserve {
		return len(s.cols) - 2
	}
	return t
}

// writeIndex returns the physical slot step t's kernel output goes
// into (a_{t+1} for predicted, or the t'th forecast/filtered value).
func (s *vecSeries) writeIndex(t int) int {
	if s.conserve {
		return len(s.cols) - 1
	}
	if s.extra == 1 {
		return t + 1
	}
	return t
}

func (s *vecSeries) prior(t int) *mat.VecDense { return s.cols[s.priorIndex(t)] }
func (s *vecSeries) out(t int) *mat.VecDense   { return s.cols[s.writeIndex(t)] }
func (s *vecSeries) write(t int, v mat.Vector) { s.cols[s.writeIndex(t)].CopyVec(v) }

// seedPrior writes directly into the slot step t will later read as
// its prior value, used once at construction to plant a1/P1 ahead of
// the first Step call.
func (s *vecSeries) seedPrior(t int, v mat.Vector) { s.cols[s.priorIndex(t)].CopyVec(v) }

// rotate shifts the rotating window left by one slot, discarding the
// oldest and freeing the last slot for the next step's write.
func (s *vecSeries) rotate() {
	if !s.conserve {
		return
	}
	for i := 0; i < len(s.cols)-1; i++ {
		s.cols[i].CopyVec(s.cols[i+1])
	}
}

// matSeries mirrors vecSeries for covariance outputs.
type matSeries struct {
	dim      int
	conserve bool
	extra    int
	cols     []*mat.Dense
}

func newMatSeries(nobs, dim int, conserve bool, extra int) *matSeries {
	n := nobs + extra
	if conserve {
		n = 2 + extra
	}
	cols := make([]*mat.Dense, n)
	for i := range cols {
		cols[i] = mat.NewDense(dim, dim, nil)
	}
	return &matSeries{dim: dim, conserve: conserve, extra: extra, cols: cols}
}

func (s *matSeries) priorIndex(t int) int {
	if s.conserve {
		return len(s.cols) - 2
	}
	return t
}

func (s *matSeries) writeIndex(t int) int {
	if s.conserve {
		return len(s.cols) - 1
	}
	if s.extra == 1 {
		return t + 1
	}
	return t
}

func (s *matSeries) prior(t int) *mat.Dense { return s.cols[s.priorIndex(t)] }
func (s *matSeries) out(t int) *mat.Dense   { return s.cols[s.writeIndex(t)] }

func (s *matSeries) write(t int, m mat.Matrix) {
	s.cols[s.writeIndex(t)].Copy(m)
}

// seedPrior writes directly into the slot step t will later read as
// its prior value, used once at construction to plant P1 ahead of the
// first Step call.
func (s *matSeries) seedPrior(t int, m mat.Matrix) { s.cols[s.priorIndex(t)].Copy(m) }

func (s *matSeries) rotate() {
	if !s.conserve {
		return
	}
	for i := 0; i < len(s.cols)-1; i++ {
		s.cols[i].Copy(s.cols[i+1])
	}
}

// scalarSeries stores per-period log-likelihood, either per-t or
// accumulated into a single running sum starting at burn.
type scalarSeries struct {
	conserve bool
	burn     int
	vals     []float64
	acc      float64
	n        int
}

func newScalarSeries(nobs int, conserve bool, burn int) *scalarSeries {
	n := nobs
	if conserve {
		n = 1
	}
	return &scalarSeries{conserve: conserve, burn: burn, vals: make([]float64, n)}
}

func (s *scalarSeries) write(t int, v float64) {
	if s.conserve {
		if t >= s.burn {
			s.acc += v
		}
		s.vals[0] = s.acc
		return
	}
	s.vals[t] = v
}

// Sum returns the accumulated log-likelihood over periods >= burn.
func (s *scalarSeries) Sum() float64 {
	if s.conserve {
		return s.acc
	}
	sum := 0.0
	for t := s.burn; t < len(s.vals); t++ {
		sum += s.vals[t]
	}
	return sum
}

// At returns the per-period value; only meaningful in full-storage mode.
func (s *scalarSeries) At(t int) float64 {
	if s.conserve {
		return s.vals[0]
	}
	return s.vals[t]
}
