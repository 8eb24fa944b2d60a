package kalman

import "gonum.org/v1/gonum/mat"

// Result is a read-only snapshot of one period's recursion outputs. It
// copies its values out of the workspace at construction time, so it
// stays valid across later Step calls even under memory conservation,
// where the workspace's rotating buffers are reused for the next
// period as soon as Step returns.
type Result struct {
	t int

	forecast         *mat.VecDense
	forecastError    *mat.VecDense
	forecastErrorCov *mat.Dense
	filteredState    *mat.VecDense
	filteredStateCov *mat.Dense
	predictedState   *mat.VecDense
	predictedStateCov *mat.Dense
	loglikelihood    float64
}

func newResult(ws *workspace, t int) Result {
	return Result{
		t:                 t,
		forecast:          mat.VecDenseCopyOf(ws.forecast.out(t)),
		forecastError:     mat.VecDenseCopyOf(ws.forecastError.out(t)),
		forecastErrorCov:  mat.DenseCopyOf(ws.forecastErrorCov.out(t)),
		filteredState:     mat.VecDenseCopyOf(ws.filteredState.out(t)),
		filteredStateCov:  mat.DenseCopyOf(ws.filteredStateCov.out(t)),
		predictedState:    mat.VecDenseCopyOf(ws.predictedState.out(t)),
		predictedStateCov: mat.DenseCopyOf(ws.predictedStateCov.out(t)),
		loglikelihood:     ws.loglikelihood.At(t),
	}
}

// Period returns the period this Result describes.
func (r Result) Period() int { return r.t }

// Forecast returns y_hat_t, the one-step-ahead observation forecast.
func (r Result) Forecast() *mat.VecDense { return r.forecast }

// ForecastError returns v_t = y_t - y_hat_t.
func (r Result) ForecastError() *mat.VecDense { return r.forecastError }

// ForecastErrorCov returns F_t.
func (r Result) ForecastErrorCov() *mat.Dense { return r.forecastErrorCov }

// FilteredState returns a_{t|t}.
func (r Result) FilteredState() *mat.VecDense { return r.filteredState }

// FilteredStateCov returns P_{t|t}.
func (r Result) FilteredStateCov() *mat.Dense { return r.filteredStateCov }

// PredictedState returns a_{t+1}, the state predicted for the next
// period.
func (r Result) PredictedState() *mat.VecDense { return r.predictedState }

// PredictedStateCov returns P_{t+1}.
func (r Result) PredictedStateCov() *mat.Dense { return r.predictedStateCov }

// Loglikelihood returns ell_t, this period's contribution to the
// log-likelihood. In full-storage mode this is ell_t whatever the
// burn period; the burn period only affects the accumulated sum.
// Under memory conservation, workspace.loglikelihood has no per-period
// storage: it instead returns the running sum accumulated over every
// period up to and including t that is at or past the burn period, the
// same value Filter.Loglikelihood()/Run() report.
func (r Result) Loglikelihood() float64 { return r.loglikelihood }
