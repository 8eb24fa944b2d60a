package kalman

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"

	"github.com/dcweber/gokalman/internal/matutil"
	"github.com/dcweber/gokalman/linalg"
	"github.com/dcweber/gokalman/statespace"
)

// stepVariant is the closed set of step kernels, chosen fresh at the
// top of each step rather than stored as indirection on a stateful
// object.
type stepVariant int

const (
	variantUnivariate stepVariant = iota
	variantCholSolve
	variantCholInvert
	variantLUSolve
	variantLUInvert
)

const log2pi = 1.8378770664093453 // math.Log(2 * math.Pi)

// effective holds the current step's (possibly reselected) observation
// subsystem.
type effective struct {
	pEff       int
	allMissing bool
	mask       []bool // nil when pEff == mdl.P() (nothing was reselected)
	y          *mat.VecDense
	z          *mat.Dense
	h          *mat.Dense
	d          *mat.VecDense
}

// selectEffective implements the missing-observation dispatcher.
func selectEffective(t int, mdl *statespace.Model, ws *workspace) effective {
	p, m := mdl.P(), mdl.M()
	n := mdl.NMissing(t)

	switch {
	case n == 0:
		d := mat.VecDenseCopyOf(mdl.ObsIntercept(t).ColView(0))
		return effective{pEff: p, y: mdl.Obs(t), z: mdl.Design(t), h: mdl.ObsCov(t), d: d}

	case n == p:
		return effective{pEff: 0, allMissing: true}

	default:
		mask := mdl.MissingMask(t)
		pEff := p - n
		obs := mdl.Obs(t)
		design := mdl.Design(t)
		obsCov := mdl.ObsCov(t)
		dIntercept := mdl.ObsIntercept(t)

		rows := make([]int, 0, pEff)
		for i := 0; i < p; i++ {
			if !mask[i] {
				rows = append(rows, i)
			}
		}

		y := mat.NewVecDense(pEff, ws.selectedObs.RawVector().Data[:pEff])
		zData := ws.selectedDesign.RawMatrix().Data
		d := mat.NewVecDense(pEff, nil)
		for ri, i := range rows {
			y.SetVec(ri, obs.AtVec(i))
			d.SetVec(ri, dIntercept.At(i, 0))
			for c := 0; c < m; c++ {
				zData[ri*m+c] = design.At(i, c)
			}
		}
		z := mat.NewDense(pEff, m, zData[:pEff*m])

		// pEff < p changes the row stride, so the full p x p scratch
		// buffer can't be reused packed: allocate the compact pEff x pEff
		// matrix fresh.
		hData := make([]float64, pEff*pEff)
		for ri, i := range rows {
			for rj, j := range rows {
				hData[ri*pEff+rj] = obsCov.At(i, j)
			}
		}
		h := mat.NewDense(pEff, pEff, hData)

		return effective{pEff: pEff, mask: mask, y: y, z: z, h: h, d: d}
	}
}

// step runs the five-phase recursion kernel for period t: forecast,
// inversion, update, likelihood and predict, including the
// missing-observation dispatch and the steady-state convergence fast
// path. a_t/P_t are read from ws.predictedState/.predictedStateCov at
// their prior position for t.
func step(t int, mdl *statespace.Model, ws *workspace, opts Options) error {
	eff := selectEffective(t, mdl, ws)

	// a step with any missing data cannot trust the cached steady-state
	// snapshot: it is computed from the full-p subsystem. The next
	// clean step restores it.
	converged := ws.converged && !eff.allMissing && eff.pEff == mdl.P()

	aPrior := ws.predictedState.prior(t)
	pPrior := ws.predictedStateCov.prior(t)

	var err error
	if eff.allMissing {
		runMissingAll(t, mdl, ws, aPrior, pPrior)
	} else {
		err = runConventional(t, mdl, ws, opts, eff, aPrior, pPrior, converged)
	}
	if err != nil {
		return err
	}

	if opts.Stability&ForceSymmetry != 0 {
		matutil.Symmetrize(ws.predictedStateCov.out(t))
	}

	testConvergence(t, mdl, ws, eff)

	return nil
}

func runMissingAll(t int, mdl *statespace.Model, ws *workspace, aPrior *mat.VecDense, pPrior *mat.Dense) {
	ws.forecast.out(t).Zero()
	ws.forecastError.out(t).Zero()
	ws.forecastErrorCov.out(t).Zero()

	ws.filteredState.write(t, aPrior)
	ws.filteredStateCov.write(t, pPrior)
	ws.loglikelihood.write(t, 0)

	predict(t, mdl, ws, aPrior, ws.filteredStateCov.out(t), false)
}

func runConventional(t int, mdl *statespace.Model, ws *workspace, opts Options, eff effective, aPrior *mat.VecDense, pPrior *mat.Dense, converged bool) error {
	m := mdl.M()
	pEff := eff.pEff

	// Phase F: forecast.
	yhat := mat.NewVecDense(pEff, nil)
	yhat.MulVec(eff.z, aPrior)
	yhat.AddVec(yhat, eff.d)

	v := mat.NewVecDense(pEff, nil)
	v.SubVec(eff.y, yhat)
	writeForecast(ws, t, mdl.P(), eff, yhat, v)

	tmp1 := mat.NewDense(m, pEff, nil) // P_t Z_t'
	tmp1.Mul(pPrior, eff.z.T())

	fMat := mat.NewDense(pEff, pEff, nil)
	if converged {
		fMat.Copy(ws.snapF)
	} else {
		fMat.Mul(eff.z, tmp1)
		fMat.Add(fMat, eff.h)
	}
	// embeds top-left: the output buffer is always full p-sized, fMat is
	// the pEff-sized working matrix this step actually solves against.
	ws.forecastErrorCov.out(t).Copy(fMat)

	// Phase I: inversion/decomposition.
	tmp2 := mat.NewVecDense(pEff, nil) // F^{-1} v
	tmp3 := mat.NewDense(pEff, m, nil) // F^{-1} Z
	var det float64
	var err error
	variant := opts.Inversion.variant(pEff)
	switch {
	case converged:
		det = ws.snapDet
		tmp2.MulVec(ws.snapFInv, v)
		tmp3.Mul(ws.snapFInv, eff.z)
	case variant == variantUnivariate:
		det, err = invertUnivariate(t, fMat, v, eff.z, tmp2, tmp3)
	default:
		det, err = invertFactor(t, fMat, v, eff.z, tmp2, tmp3, variant)
	}
	if err != nil {
		return err
	}

	// Phase U: update.
	aFiltered := mat.NewVecDense(m, nil)
	corr := mat.NewVecDense(m, nil)
	corr.MulVec(tmp1, tmp2)
	aFiltered.AddVec(aPrior, corr)
	ws.filteredState.write(t, aFiltered)

	if !converged {
		tmp0 := mat.NewDense(m, m, nil)
		tmp0.Mul(tmp1, tmp3)
		pFiltered := mat.NewDense(m, m, nil)
		pFiltered.Mul(tmp0, pPrior)
		pFiltered.Sub(pPrior, pFiltered)
		ws.filteredStateCov.write(t, pFiltered)
	} else {
		ws.filteredStateCov.write(t, ws.snapPFiltered)
	}

	// Phase L: log-likelihood.
	quad := mat.Dot(v, tmp2)
	ell := -0.5 * (float64(pEff)*log2pi + math.Log(det) + quad)
	ws.loglikelihood.write(t, ell)

	// Phase P: predict.
	predict(t, mdl, ws, aFiltered, ws.filteredStateCov.out(t), converged)

	if !converged {
		ws.snapDet = det
	}

	return nil
}

// writeForecast scatters the pEff-sized forecast/forecast_error values
// back into their full-p positions, leaving missing rows at zero.
func writeForecast(ws *workspace, t, p int, eff effective, yhat, v *mat.VecDense) {
	full := mat.NewVecDense(p, nil)
	fullV := mat.NewVecDense(p, nil)
	if eff.mask == nil {
		full.CopyVec(yhat)
		fullV.CopyVec(v)
	} else {
		idx := 0
		for i := 0; i < p; i++ {
			if !eff.mask[i] {
				full.SetVec(i, yhat.AtVec(idx))
				fullV.SetVec(i, v.AtVec(idx))
				idx++
			}
		}
	}
	ws.forecast.write(t, full)
	ws.forecastError.write(t, fullV)
}

func predict(t int, mdl *statespace.Model, ws *workspace, aFiltered *mat.VecDense, pFiltered *mat.Dense, converged bool) {
	m := mdl.M()
	tr := mdl.Transition(t)
	c := mat.VecDenseCopyOf(mdl.StateIntercept(t).ColView(0))

	aNext := mat.NewVecDense(m, nil)
	aNext.MulVec(tr, aFiltered)
	aNext.AddVec(aNext, c)
	ws.predictedState.write(t, aNext)

	if !converged {
		qstar := mdl.SelectedStateCovAt(t)
		tmp0 := mat.NewDense(m, m, nil)
		tmp0.Mul(tr, pFiltered)
		pNext := mat.NewDense(m, m, nil)
		pNext.Mul(tmp0, tr.T())
		pNext.Add(pNext, qstar)
		ws.predictedStateCov.write(t, pNext)
	} else {
		ws.predictedStateCov.write(t, ws.snapPPrior)
	}
}

// invertUnivariate handles the p_eff==1 scalar-reciprocal path.
func invertUnivariate(t int, f *mat.Dense, v *mat.VecDense, z *mat.Dense, tmp2 *mat.VecDense, tmp3 *mat.Dense) (float64, error) {
	det := f.At(0, 0)
	if det == 0 {
		return 0, &linalg.Error{Period: t, Kind: linalg.Singular}
	}
	tmp2.SetVec(0, v.AtVec(0)/det)
	_, m := z.Dims()
	for j := 0; j < m; j++ {
		tmp3.Set(0, j, z.At(0, j)/det)
	}
	return det, nil
}

// invertFactor dispatches to the Cholesky/LU solve or invert kernels
// via the linalg adapter. variant is resolved once by the caller from
// the inversion bitmask and its fixed precedence.
func invertFactor(t int, f *mat.Dense, v *mat.VecDense, z *mat.Dense, tmp2 *mat.VecDense, tmp3 *mat.Dense, variant stepVariant) (float64, error) {
	n, _ := f.Dims()

	switch variant {
	case variantCholSolve, variantCholInvert:
		sym := blas64.Symmetric{N: n, Stride: n, Uplo: blas.Upper, Data: upperOf(f)}
		chol, det, err := linalg.Potrf(t, sym)
		if err != nil {
			return 0, err
		}
		if variant == variantCholSolve {
			r := stackRHS(v, z)
			b := blas64.General{Rows: n, Cols: r.cols, Stride: r.cols, Data: r.data}
			linalg.Potrs(chol, b)
			unstackRHS(r, tmp2, tmp3)
			return det, nil
		}
		invG, err := linalg.Potri(t, chol)
		if err != nil {
			return 0, err
		}
		applyInverse(invG, v, z, tmp2, tmp3)
		return det, nil

	default: // variantLUSolve, variantLUInvert
		a := blas64.General{Rows: n, Cols: n, Stride: n, Data: append([]float64(nil), f.RawMatrix().Data...)}
		ipiv, det, err := linalg.Getrf(t, a)
		if err != nil {
			return 0, err
		}
		if variant == variantLUSolve {
			r := stackRHS(v, z)
			b := blas64.General{Rows: n, Cols: r.cols, Stride: r.cols, Data: r.data}
			linalg.Getrs(a, ipiv, b)
			unstackRHS(r, tmp2, tmp3)
			return det, nil
		}
		if err := linalg.Getri(t, a, ipiv); err != nil {
			return 0, err
		}
		applyInverse(a, v, z, tmp2, tmp3)
		return det, nil
	}
}

type rhs struct {
	cols int
	data []float64
}

// stackRHS lays [v | Z] side by side, row-major, as the combined
// right-hand side solved in one Potrs/Getrs call (the inversion phase
// solves for tmp2 and tmp3 together).
func stackRHS(v *mat.VecDense, z *mat.Dense) rhs {
	n := v.Len()
	_, m := z.Dims()
	cols := 1 + m
	data := make([]float64, n*cols)
	for i := 0; i < n; i++ {
		data[i*cols] = v.AtVec(i)
		for j := 0; j < m; j++ {
			data[i*cols+1+j] = z.At(i, j)
		}
	}
	return rhs{cols: cols, data: data}
}

func unstackRHS(r rhs, tmp2 *mat.VecDense, tmp3 *mat.Dense) {
	n := tmp2.Len()
	_, m := tmp3.Dims()
	for i := 0; i < n; i++ {
		tmp2.SetVec(i, r.data[i*r.cols])
		for j := 0; j < m; j++ {
			tmp3.Set(i, j, r.data[i*r.cols+1+j])
		}
	}
}

func applyInverse(inv blas64.General, v *mat.VecDense, z *mat.Dense, tmp2 *mat.VecDense, tmp3 *mat.Dense) {
	invD := mat.NewDense(inv.Rows, inv.Rows, inv.Data)
	tmp2.MulVec(invD, v)
	tmp3.Mul(invD, z)
}

func upperOf(f *mat.Dense) []float64 {
	n, _ := f.Dims()
	out := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out[i*n+j] = f.At(i, j)
		}
	}
	return out
}

// testConvergence implements the steady-state controller.
func testConvergence(t int, mdl *statespace.Model, ws *workspace, eff effective) {
	if !mdl.TimeInvariant() || ws.converged || eff.allMissing || eff.pEff != mdl.P() {
		return
	}

	pPrior := ws.predictedStateCov.prior(t)
	pNext := ws.predictedStateCov.out(t)

	m := mdl.M()
	diff := mat.NewDense(m, m, nil)
	diff.Sub(pPrior, pNext)
	vec := blas64.Vector{N: m * m, Inc: 1, Data: diff.RawMatrix().Data}
	mag := linalg.Dot(vec, vec)

	if math.Abs(mag) >= ws.tolerance {
		return
	}

	ws.converged = true
	ws.convergedAt = t
	ws.snapF.Copy(ws.forecastErrorCov.out(t))
	ws.snapPFiltered.Copy(ws.filteredStateCov.out(t))
	ws.snapPPrior.Copy(pNext)
	ws.snapDet = cachedDet(ws.snapF)

	p := mdl.P()
	sym := blas64.Symmetric{N: p, Stride: p, Uplo: blas.Upper, Data: upperOf(ws.snapF)}
	chol, _, err := linalg.Potrf(t, sym)
	if err == nil {
		if invG, err2 := linalg.Potri(t, chol); err2 == nil {
			ws.snapFInv.Copy(mat.NewDense(p, p, invG.Data))
		}
	}
}

// cachedDet recomputes det(F) from scratch at the moment of
// convergence via a Cholesky factorization, independent of whichever
// inversion method produced the step's own det_t, so the cached
// snapshot is self-consistent regardless of configured Inversion.
func cachedDet(f *mat.Dense) float64 {
	n, _ := f.Dims()
	sym := blas64.Symmetric{N: n, Stride: n, Uplo: blas.Upper, Data: upperOf(f)}
	_, det, err := linalg.Potrf(0, sym)
	if err != nil {
		return 0
	}
	return det
}
