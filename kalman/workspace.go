package kalman

import "gonum.org/v1/gonum/mat"

// workspace is the filter workspace: it owns every output buffer
// and the scratch matrices the step kernel reuses each period.
type workspace struct {
	p, m, nobs int
	tolerance  float64

	forecast         *vecSeries // p
	forecastError    *vecSeries // p
	forecastErrorCov *matSeries // p x p
	filteredState    *vecSeries // m
	filteredStateCov *matSeries // m x m
	predictedState   *vecSeries // m, extra=1
	predictedStateCov *matSeries // m x m, extra=1
	loglikelihood    *scalarSeries

	// missing-data scratch, sized once for the full observation vector.
	selectedObs    *mat.VecDense // p
	selectedDesign *mat.Dense    // p x m

	// convergence snapshot cells, valid once converged is true.
	converged   bool
	convergedAt int
	snapF       *mat.Dense // p x p (convergence is only detected on fully observed steps)
	snapFInv      *mat.Dense // p x p, cached inverse of snapF for the post-convergence fast path
	snapPFiltered *mat.Dense // m x m
	snapPPrior    *mat.Dense // m x m
	snapDet       float64
}

func newWorkspace(p, m, nobs int, conserve Conserve, burn int, tolerance float64) *workspace {
	ws := &workspace{p: p, m: m, nobs: nobs, tolerance: tolerance}

	ws.forecast = newVecSeries(nobs, p, conserve&NoForecast != 0, 0)
	ws.forecastError = newVecSeries(nobs, p, conserve&NoForecast != 0, 0)
	ws.forecastErrorCov = newMatSeries(nobs, p, conserve&NoForecast != 0, 0)
	ws.filteredState = newVecSeries(nobs, m, conserve&NoFiltered != 0, 0)
	ws.filteredStateCov = newMatSeries(nobs, m, conserve&NoFiltered != 0, 0)
	ws.predictedState = newVecSeries(nobs, m, conserve&NoPredicted != 0, 1)
	ws.predictedStateCov = newMatSeries(nobs, m, conserve&NoPredicted != 0, 1)
	ws.loglikelihood = newScalarSeries(nobs, conserve&NoLikelihood != 0, burn)

	ws.selectedObs = mat.NewVecDense(p, nil)
	ws.selectedDesign = mat.NewDense(p, m, nil)

	ws.snapF = mat.NewDense(p, p, nil)
	ws.snapFInv = mat.NewDense(p, p, nil)
	ws.snapPFiltered = mat.NewDense(m, m, nil)
	ws.snapPPrior = mat.NewDense(m, m, nil)

	return ws
}

// rotate runs the end-of-step column migration for every conserve-mode
// family.
func (ws *workspace) rotate() {
	ws.forecast.rotate()
	ws.forecastError.rotate()
	ws.forecastErrorCov.rotate()
	ws.filteredState.rotate()
	ws.filteredStateCov.rotate()
	ws.predictedState.rotate()
	ws.predictedStateCov.rotate()
}

// resetConvergence clears the converged flag and period, used by Seek
// when the caller asks for a convergence reset. The snapshot cells are
// not cleared; they are overwritten at the next convergence.
func (ws *workspace) resetConvergence() {
	ws.converged = false
	ws.convergedAt = -1
}
