// Package simdata generates synthetic observation series for the
// local-level and AR(1) linear Gaussian state-space models. The
// generator is seeded explicitly rather than from the wall clock, so
// the series a caller generates for a test or a CLI demo run are
// reproducible.
package simdata

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Generator draws successive scalar shocks from a zero-mean Gaussian
// with the given variance.
type Generator struct {
	dist *distmv.Normal
	src  *rand.Rand
}

// NewGenerator builds a Generator for a 1-dimensional noise source
// with the given variance, seeded deterministically from seed.
func NewGenerator(variance float64, seed uint64) (*Generator, error) {
	src := rand.New(rand.NewSource(seed))
	cov := mat.NewSymDense(1, []float64{variance})
	dist, ok := distmv.NewNormal([]float64{0}, cov, src)
	if !ok {
		return nil, fmt.Errorf("simdata: covariance %v is not positive definite", variance)
	}
	return &Generator{dist: dist, src: src}, nil
}

func (g *Generator) draw() float64 {
	return g.dist.Rand(nil)[0]
}

// LocalLevel simulates nobs observations of the local-level model
// y_t = alpha_t + eps_t, alpha_{t+1} = alpha_t + eta_t, starting from
// alpha_0 = initState, eps_t ~ N(0, obsVariance), eta_t ~ N(0,
// stateVariance). It returns the observation series and the latent
// state path (length nobs+1, state path [0] = initState).
func LocalLevel(nobs int, initState, obsVariance, stateVariance float64, seed uint64) (y, state []float64, err error) {
	obsNoise, err := NewGenerator(obsVariance, seed)
	if err != nil {
		return nil, nil, err
	}
	stateNoise, err := NewGenerator(stateVariance, seed+1)
	if err != nil {
		return nil, nil, err
	}

	state = make([]float64, nobs+1)
	y = make([]float64, nobs)
	state[0] = initState
	for t := 0; t < nobs; t++ {
		y[t] = state[t] + obsNoise.draw()
		state[t+1] = state[t] + stateNoise.draw()
	}
	return y, state, nil
}

// AR1 simulates nobs observations of the AR(1) model
// y_t = alpha_t, alpha_{t+1} = phi*alpha_t + eta_t, starting from
// alpha_0 = initState, eta_t ~ N(0, stateVariance). The observation
// equation carries no noise of its own, matching the known-parameter
// scenario this engine's end-to-end tests exercise.
func AR1(nobs int, initState, phi, stateVariance float64, seed uint64) (y, state []float64, err error) {
	stateNoise, err := NewGenerator(stateVariance, seed)
	if err != nil {
		return nil, nil, err
	}

	state = make([]float64, nobs+1)
	y = make([]float64, nobs)
	state[0] = initState
	for t := 0; t < nobs; t++ {
		y[t] = state[t]
		state[t+1] = phi*state[t] + stateNoise.draw()
	}
	return y, state, nil
}
