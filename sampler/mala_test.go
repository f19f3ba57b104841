package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"

	"github.com/jmtrask/stoker/model"
)

func TestMALAStandardNormal(t *testing.T) {
	assert := assert.New(t)

	target, err := model.NewNormal(1)
	assert.NoError(err)

	alg, err := NewMALA(testGen(42), target)
	assert.NoError(err)
	assert.Equal("mala", alg.Name())
	assert.True(alg.UsesGradient())

	samples, rate := runAlg(t, alg, []float64{0.5}, 0.8, 2000)
	assert.Equal(2000, len(samples))
	assert.True(rate > 0.3, "MALA acceptance was only %f", rate)

	col := column(samples, 0)
	assert.InDelta(0.0, stat.Mean(col, nil), 0.25)
	assert.InDelta(1.0, stat.StdDev(col, nil), 0.3)
}

func TestMALARequiresGradientState(t *testing.T) {
	assert := assert.New(t)

	target, err := model.NewNormal(1)
	assert.NoError(err)

	alg, err := NewMALA(testGen(1), target)
	assert.NoError(err)

	ps, err := NewState([]float64{0.0}, false) // no gradient buffer
	assert.NoError(err)
	assert.Error(alg.Init(ps))
}

func TestMALAGradientCache(t *testing.T) {
	assert := assert.New(t)

	target, err := model.NewNormal(2)
	assert.NoError(err)

	alg, err := NewMALA(testGen(3), target)
	assert.NoError(err)

	ps, err := NewState([]float64{1.0, -1.0}, true)
	assert.NoError(err)
	assert.NoError(alg.Init(ps))
	assert.InDelta(-1.0, ps.Gradient[0], 1e-12)
	assert.InDelta(1.0, ps.Gradient[1], 1e-12)

	// After any number of steps the cached gradient matches the value
	ws := alg.NewWorking(ps)
	ts := frozenTuner(t, 0.5).NewState()
	for i := 0; i < 50; i++ {
		_, err := alg.Step(ps, ws, ts)
		assert.NoError(err)
	}

	grad := make([]float64, 2)
	target.LogProbGrad(ps.Value, grad)
	assert.InDeltaSlice(grad, ps.Gradient, 1e-12)
}

func TestManifoldMALA(t *testing.T) {
	assert := assert.New(t)

	// Badly scaled target: the metric variant should still mix in both
	// dimensions with a single step size
	target, err := model.NewDiagNormal([]float64{1.0, -2.0}, []float64{3.0, 0.2})
	assert.NoError(err)

	alg, err := NewManifoldMALA(testGen(42), target)
	assert.NoError(err)
	assert.Equal("smmala", alg.Name())

	samples, rate := runAlg(t, alg, []float64{1.0, -2.0}, 1.0, 3000)
	assert.True(rate > 0.3, "Manifold MALA acceptance was only %f", rate)

	c0 := column(samples, 0)
	c1 := column(samples, 1)
	assert.InDelta(1.0, stat.Mean(c0, nil), 0.8)
	assert.InDelta(-2.0, stat.Mean(c1, nil), 0.1)
	assert.True(stat.StdDev(c0, nil) > 1.0, "Wide dimension is not moving")
	assert.True(stat.StdDev(c1, nil) < 0.6, "Narrow dimension is overshooting")
}
