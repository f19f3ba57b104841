package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"

	"github.com/jmtrask/stoker/model"
)

func TestHMCValidation(t *testing.T) {
	assert := assert.New(t)

	target, err := model.NewNormal(1)
	assert.NoError(err)

	_, err = NewHMC(testGen(1), target, 0)
	assert.Error(err)
	_, err = NewHMC(nil, target, 5)
	assert.Error(err)
	_, err = NewHMC(testGen(1), nil, 5)
	assert.Error(err)
}

func TestHMCStandardNormal(t *testing.T) {
	assert := assert.New(t)

	target, err := model.NewNormal(3)
	assert.NoError(err)

	alg, err := NewHMC(testGen(42), target, 10)
	assert.NoError(err)
	assert.Equal("hmc", alg.Name())

	// Small step size: the leapfrog energy error is O(eps^2), so
	// acceptance should be very high
	samples, rate := runAlg(t, alg, []float64{1.0, 0.0, -1.0}, 0.15, 1500)
	assert.True(rate > 0.9, "HMC acceptance was only %f", rate)

	for d := 0; d < 3; d++ {
		col := column(samples, d)
		assert.InDelta(0.0, stat.Mean(col, nil), 0.3)
		assert.InDelta(1.0, stat.StdDev(col, nil), 0.35)
	}
}

func TestHMCEnergyDiagnostics(t *testing.T) {
	assert := assert.New(t)

	target, err := model.NewNormal(2)
	assert.NoError(err)

	alg, err := NewHMC(testGen(7), target, 5)
	assert.NoError(err)

	ps, err := NewState([]float64{0.0, 0.0}, true)
	assert.NoError(err)
	assert.NoError(alg.Init(ps))

	ws := alg.NewWorking(ps)
	ts := frozenTuner(t, 0.1).NewState()

	_, err = alg.Step(ps, ws, ts)
	assert.NoError(err)

	diag := alg.StepDiagnostics(ws)
	assert.Equal(5.0, diag["leapfrogs"])
	assert.True(diag["energyerr"] >= 0.0)
	assert.True(diag["energyerr"] < 0.1, "Energy error %f too large for eps=0.1", diag["energyerr"])
}

func TestHMCDivergentTrajectory(t *testing.T) {
	assert := assert.New(t)

	// The leapfrog integrator is unstable for large step sizes: the
	// energy error blows up and nearly everything is rejected, but no
	// error may escape the step
	normal, err := model.NewNormal(1)
	assert.NoError(err)

	alg, err := NewHMC(testGen(9), normal, 20)
	assert.NoError(err)

	samples, rate := runAlg(t, alg, []float64{0.0}, 10.0, 200)
	assert.Equal(200, len(samples))
	assert.True(rate < 0.7, "Absurd step size should not keep acceptance high, got %f", rate)
}
