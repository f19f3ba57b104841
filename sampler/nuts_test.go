package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"

	"github.com/jmtrask/stoker/model"
)

func TestNUTSValidation(t *testing.T) {
	assert := assert.New(t)

	target, err := model.NewNormal(1)
	assert.NoError(err)

	_, err = NewNUTS(testGen(1), target, 0)
	assert.Error(err)
	_, err = NewNUTS(testGen(1), target, 21)
	assert.Error(err)
	_, err = NewNUTS(nil, target, 10)
	assert.Error(err)
	_, err = NewNUTS(testGen(1), nil, 10)
	assert.Error(err)
}

func TestNUTSStandardNormal(t *testing.T) {
	assert := assert.New(t)

	target, err := model.NewNormal(3)
	assert.NoError(err)

	alg, err := NewNUTS(testGen(42), target, 8)
	assert.NoError(err)
	assert.Equal("nuts", alg.Name())

	samples, rate := runAlg(t, alg, []float64{1.0, -1.0, 0.5}, 0.3, 1000)
	assert.Equal(1000, len(samples))
	assert.True(rate > 0.5, "NUTS moved on only %f of transitions", rate)

	for d := 0; d < 3; d++ {
		col := column(samples, d)
		assert.InDelta(0.0, stat.Mean(col, nil), 0.3)
		assert.InDelta(1.0, stat.StdDev(col, nil), 0.35)
	}
}

func TestNUTSDiagnostics(t *testing.T) {
	assert := assert.New(t)

	target, err := model.NewNormal(2)
	assert.NoError(err)

	alg, err := NewNUTS(testGen(7), target, 6)
	assert.NoError(err)

	ps, err := NewState([]float64{0.5, -0.5}, true)
	assert.NoError(err)
	assert.NoError(alg.Init(ps))

	ws := alg.NewWorking(ps)
	ts := frozenTuner(t, 0.3).NewState()

	_, err = alg.Step(ps, ws, ts)
	assert.NoError(err)

	diag := alg.StepDiagnostics(ws)
	assert.Contains(diag, "depth")
	assert.Contains(diag, "leapfrogs")
	assert.Contains(diag, "divergent")
	assert.True(diag["depth"] >= 1.0)
	assert.True(diag["leapfrogs"] >= 1.0)

	// Depth is capped by the configured maximum
	for i := 0; i < 50; i++ {
		_, err := alg.Step(ps, ws, ts)
		assert.NoError(err)
		d := alg.StepDiagnostics(ws)["depth"]
		assert.True(d <= 6.0, "Depth %f exceeded max 6", d)
	}
}

func TestNUTSUTurn(t *testing.T) {
	assert := assert.New(t)

	dim := 2
	minus := newTrajPoint(dim)
	plus := newTrajPoint(dim)

	// Moving apart: no U-turn
	minus.pos = []float64{0.0, 0.0}
	minus.mom = []float64{1.0, 0.0}
	plus.pos = []float64{1.0, 0.0}
	plus.mom = []float64{1.0, 0.0}
	assert.True(noUTurn(minus, plus))

	// Forward endpoint moving back toward the other end: U-turn
	plus.mom = []float64{-1.0, 0.0}
	assert.False(noUTurn(minus, plus))
}
