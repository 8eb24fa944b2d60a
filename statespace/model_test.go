package statespace

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func localLevelModel(y []float64) (*Model, error) {
	nobs := len(y)
	obs := mat.NewDense(1, nobs, y)

	design, _ := NewTimeVarying("design", nobs, 1, 1, mat.NewDense(1, 1, []float64{1}))
	d, _ := NewTimeVarying("obs_intercept", nobs, 1, 1, mat.NewDense(1, 1, []float64{0}))
	h, _ := NewTimeVarying("obs_cov", nobs, 1, 1, mat.NewDense(1, 1, []float64{1}))
	tr, _ := NewTimeVarying("transition", nobs, 1, 1, mat.NewDense(1, 1, []float64{1}))
	c, _ := NewTimeVarying("state_intercept", nobs, 1, 1, mat.NewDense(1, 1, []float64{0}))
	sel, _ := NewTimeVarying("selection", nobs, 1, 1, mat.NewDense(1, 1, []float64{1}))
	q, _ := NewTimeVarying("state_cov", nobs, 1, 1, mat.NewDense(1, 1, []float64{1}))

	return New(obs, design, d, h, tr, c, sel, q)
}

func TestNewDerivesDims(t *testing.T) {
	assert := assert.New(t)

	mdl, err := localLevelModel([]float64{1, 2, 3, 4, 5})
	assert.NoError(err)

	p, m, r, nobs := mdl.Dims()
	assert.Equal(1, p)
	assert.Equal(1, m)
	assert.Equal(1, r)
	assert.Equal(5, nobs)
	assert.True(mdl.TimeInvariant())
}

func TestNewRejectsBadTrailingDim(t *testing.T) {
	assert := assert.New(t)

	nobs := 5
	obs := mat.NewDense(1, nobs, []float64{1, 2, 3, 4, 5})
	design, _ := NewTimeVarying("design", nobs, 1, 1, mat.NewDense(1, 1, []float64{1}), mat.NewDense(1, 1, []float64{1}))
	d, _ := NewTimeVarying("obs_intercept", nobs, 1, 1, mat.NewDense(1, 1, []float64{0}))
	h, _ := NewTimeVarying("obs_cov", nobs, 1, 1, mat.NewDense(1, 1, []float64{1}))
	tr, _ := NewTimeVarying("transition", nobs, 1, 1, mat.NewDense(1, 1, []float64{1}))
	c, _ := NewTimeVarying("state_intercept", nobs, 1, 1, mat.NewDense(1, 1, []float64{0}))
	sel, _ := NewTimeVarying("selection", nobs, 1, 1, mat.NewDense(1, 1, []float64{1}))
	q, _ := NewTimeVarying("state_cov", nobs, 1, 1, mat.NewDense(1, 1, []float64{1}))

	// 2 design slices for nobs=5 is an invalid trailing dim: NewTimeVarying
	// rejects it and returns an empty design, whose 0 slices New rejects.
	_, err := New(obs, design, d, h, tr, c, sel, q)
	assert.Error(err)
}

func TestMissingMask(t *testing.T) {
	assert := assert.New(t)

	nan := math.NaN()
	mdl, err := localLevelModel([]float64{1, nan, 3})
	assert.NoError(err)

	assert.Equal(0, mdl.NMissing(0))
	assert.Equal(1, mdl.NMissing(1))
	assert.Equal(0, mdl.NMissing(2))
	assert.Equal([]bool{false}, mdl.MissingMask(0))
	assert.Equal([]bool{true}, mdl.MissingMask(1))
}

func TestSelectedStateCov(t *testing.T) {
	assert := assert.New(t)

	mdl, err := localLevelModel([]float64{1, 2, 3})
	assert.NoError(err)

	qstar := mdl.SelectedStateCovAt(0)
	assert.InDelta(1.0, qstar.At(0, 0), 1e-12)
}

func TestInitializeKnown(t *testing.T) {
	assert := assert.New(t)

	mdl, err := localLevelModel([]float64{1, 2, 3})
	assert.NoError(err)
	assert.False(mdl.Initialized())

	a1 := mat.NewVecDense(1, []float64{0})
	p1 := mat.NewSymDense(1, []float64{1e6})
	assert.NoError(mdl.InitializeKnown(a1, p1))
	assert.True(mdl.Initialized())
	assert.InDelta(1e6, mdl.InitialStateCov().At(0, 0), 1e-9)
}

func TestInitializeApproximateDiffuse(t *testing.T) {
	assert := assert.New(t)

	mdl, err := localLevelModel([]float64{1, 2, 3})
	assert.NoError(err)

	assert.NoError(mdl.InitializeApproximateDiffuse(1e2))
	assert.InDelta(1e2, mdl.InitialStateCov().At(0, 0), 1e-9)
	assert.InDelta(0, mdl.InitialState().AtVec(0), 1e-12)
}

func TestInitializeStationary(t *testing.T) {
	assert := assert.New(t)

	nobs := 5
	obs := mat.NewDense(1, nobs, []float64{0.5, 0.25, 1.125, 0.5625, -0.21875})
	design, _ := NewTimeVarying("design", nobs, 1, 1, mat.NewDense(1, 1, []float64{1}))
	d, _ := NewTimeVarying("obs_intercept", nobs, 1, 1, mat.NewDense(1, 1, []float64{0}))
	h, _ := NewTimeVarying("obs_cov", nobs, 1, 1, mat.NewDense(1, 1, []float64{0}))
	tr, _ := NewTimeVarying("transition", nobs, 1, 1, mat.NewDense(1, 1, []float64{0.5}))
	c, _ := NewTimeVarying("state_intercept", nobs, 1, 1, mat.NewDense(1, 1, []float64{0}))
	sel, _ := NewTimeVarying("selection", nobs, 1, 1, mat.NewDense(1, 1, []float64{1}))
	q, _ := NewTimeVarying("state_cov", nobs, 1, 1, mat.NewDense(1, 1, []float64{1}))

	mdl, err := New(obs, design, d, h, tr, c, sel, q)
	assert.NoError(err)

	assert.NoError(mdl.InitializeStationary(nil))
	assert.InDelta(1.0/(1-0.25), mdl.InitialStateCov().At(0, 0), 1e-9)
}
