// Package kalman implements the recursion kernel (C4/C5), the
// steady-state controller and the iteration driver of the
// filter engine: given an initialized statespace.Model, it runs the
// conventional Kalman filter recursion one period at a time or to
// completion, and exposes every per-period output the model retained.
package kalman

import (
	"fmt"

	"github.com/dcweber/gokalman/internal/logx"
	"github.com/dcweber/gokalman/statespace"
)

// state is the iteration driver's lifecycle: stateFresh describes an
// uninitialized model and is never observed on a constructed Filter,
// since New refuses to build one until the model is initialized. A
// Filter is born Ready, moves to Stepping as Step/Run advance it, and
// reaches Done once every period has been processed.
type state int

const (
	stateFresh state = iota
	stateReady
	stateStepping
	stateDone
)

// Filter is the iteration driver. It is not safe for concurrent
// use: callers driving a parameter search should construct one Filter
// per goroutine.
type Filter struct {
	mdl  *statespace.Model
	opts Options
	ws   *workspace
	log  logx.Logger

	st state
	t  int // next period to process
}

// New constructs a Filter over model using opts. model must already be
// initialized via one of its Initialize* methods, or New returns
// ErrNotInitialized. An invalid opts.Method returns ErrInvalidMethod.
func New(model *statespace.Model, opts Options) (*Filter, error) {
	return NewWithLogger(model, opts, logx.Nop())
}

// NewWithLogger is New, but logs construction and every convergence,
// seek and LinAlgError event to log instead of discarding them.
func NewWithLogger(model *statespace.Model, opts Options, log logx.Logger) (*Filter, error) {
	if !model.Initialized() {
		return nil, ErrNotInitialized
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logx.Nop()
	}

	p, m, _, nobs := model.Dims()
	ws := newWorkspace(p, m, nobs, opts.Conserve, opts.LoglikelihoodBurn, opts.tolerance())

	a1 := model.InitialState()
	p1 := model.InitialStateCov()
	ws.predictedState.seedPrior(0, a1)
	ws.predictedStateCov.seedPrior(0, p1)

	log.Info().Int("p", p).Int("m", m).Int("nobs", nobs).Msg("kalman: filter constructed")

	return &Filter{mdl: model, opts: opts, ws: ws, log: log, st: stateReady, t: 0}, nil
}

// NObs returns the length of the observation series.
func (f *Filter) NObs() int { return f.mdl.NObs() }

// Done reports whether every period has been processed.
func (f *Filter) Done() bool { return f.st == stateDone }

// ConvergedAt returns the period steady state was first detected and
// true, or (0, false) if the filter has not converged.
func (f *Filter) ConvergedAt() (int, bool) {
	if !f.ws.converged {
		return 0, false
	}
	return f.ws.convergedAt, true
}

// Seek rewinds or fast-forwards the driver to period t without running
// any recursion steps. With any Conserve bit set, only a seek to the
// current period is accepted, since conserve mode only ever has the
// latest window available. If resetConvergence is true, the converged
// flag is cleared so the following Steps recompute the covariances
// from scratch; the snapshot cells themselves are left in place and
// are overwritten when steady state is detected again.
func (f *Filter) Seek(t int, resetConvergence bool) error {
	if t < 0 || t > f.mdl.NObs() {
		return fmt.Errorf("kalman: seek target %d out of range [0,%d]", t, f.mdl.NObs())
	}
	if f.opts.Conserve != 0 && t != f.t {
		return fmt.Errorf("kalman: seek is unavailable under memory conservation")
	}
	f.t = t
	if t == 0 {
		f.st = stateReady
	} else if t == f.mdl.NObs() {
		f.st = stateDone
	} else {
		f.st = stateStepping
	}
	if resetConvergence {
		f.ws.resetConvergence()
	}
	f.log.Info().Int("t", t).Bool("reset_convergence", resetConvergence).Msg("kalman: seek")
	return nil
}

// Step runs one period of the recursion and returns its Result. It
// returns ErrEndOfSequence once every period has already been
// processed, and propagates any linalg.Error the step kernel raises.
func (f *Filter) Step() (Result, error) {
	if f.st == stateDone {
		return Result{}, ErrEndOfSequence
	}

	t := f.t
	if err := step(t, f.mdl, f.ws, f.opts); err != nil {
		f.log.Error().Err(err).Int("t", t).Msg("kalman: step failed")
		return Result{}, err
	}

	if f.ws.converged && f.ws.convergedAt == t {
		f.log.Info().Int("t", t).Msg("kalman: steady state detected")
	}

	// copy this period's outputs out now: under memory conservation,
	// the next Step writes over the slots they just landed in.
	result := newResult(f.ws, t)

	f.ws.rotate()
	f.t++
	if f.t >= f.mdl.NObs() {
		f.st = stateDone
	} else {
		f.st = stateStepping
	}

	return result, nil
}

// Run drives the filter from its current position to the end of the
// series, returning the accumulated log-likelihood over periods at or
// past LoglikelihoodBurn.
func (f *Filter) Run() (float64, error) {
	for f.st != stateDone {
		if _, err := f.Step(); err != nil {
			return 0, err
		}
	}
	return f.ws.loglikelihood.Sum(), nil
}

// Loglikelihood returns the accumulated log-likelihood over periods
// processed so far that are at or past LoglikelihoodBurn.
func (f *Filter) Loglikelihood() float64 { return f.ws.loglikelihood.Sum() }

// Result returns period t's outputs. It is only valid for periods
// already processed. For an output family under memory conservation,
// t is ignored and the most recently processed period's values are
// returned.
func (f *Filter) Result(t int) Result {
	return newResult(f.ws, t)
}
