package sampler

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmtrask/stoker/model"
)

// newTestJob wires a 1-D standard normal RWM job with an in-memory sink
func newTestJob(t *testing.T, seed int64, x0 []float64, sched *Range, mode Mode) *Job {
	assert := assert.New(t)

	target, err := model.NewNormal(len(x0))
	assert.NoError(err)

	alg, err := NewRWM(testGen(seed), target)
	assert.NoError(err)

	tun, err := NewTuner(0.3, 50, 1.0)
	assert.NoError(err)

	job, err := NewJob(alg, tun, sched, x0, OutputConfig{Destination: DestMemory}, mode)
	assert.NoError(err)

	return job
}

func TestJobConstructionErrors(t *testing.T) {
	assert := assert.New(t)

	target, err := model.NewNormal(1)
	assert.NoError(err)
	alg, err := NewRWM(testGen(1), target)
	assert.NoError(err)
	tun, err := NewTuner(0.3, 50, 1.0)
	assert.NoError(err)
	sched, err := NewRange(10, 0, 1)
	assert.NoError(err)

	var e error
	_, e = NewJob(nil, tun, sched, []float64{0}, OutputConfig{}, ModeDirect)
	assert.Error(e)
	_, e = NewJob(alg, nil, sched, []float64{0}, OutputConfig{}, ModeDirect)
	assert.Error(e)
	_, e = NewJob(alg, tun, nil, []float64{0}, OutputConfig{}, ModeDirect)
	assert.Error(e)
	_, e = NewJob(alg, tun, sched, []float64{0}, OutputConfig{}, Mode(99))
	assert.Error(e)
	_, e = NewJob(alg, tun, sched, []float64{0}, OutputConfig{Destination: Destination(42)}, ModeDirect)
	assert.Error(e)
	_, e = NewJob(alg, tun, sched, []float64{0}, OutputConfig{Destination: DestStream}, ModeDirect)
	assert.Error(e, "Stream destination without a writer must be fatal")

	// Initialization outside the support aborts construction entirely
	bounded, err := model.NewBounded(target, 1.0)
	assert.NoError(err)
	algB, err := NewRWM(testGen(1), bounded)
	assert.NoError(err)
	_, e = NewJob(algB, tun, sched, []float64{5.0}, OutputConfig{}, ModeDirect)
	assert.Error(e)
}

func TestJobSavedSampleCount(t *testing.T) {
	assert := assert.New(t)

	// The concrete scenario: RWM, 1-D standard normal, 1000 steps, no
	// burn-in, no thinning: exactly 1000 saved samples
	sched, err := NewRange(1000, 0, 1)
	assert.NoError(err)

	job := newTestJob(t, 42, []float64{0.0}, sched, ModeDirect)
	ch, err := job.Run()
	assert.NoError(err)

	assert.Equal(1000, len(ch.Samples))
	assert.Equal(1000, len(ch.LogTargets))
	assert.Equal("rwm", ch.Algorithm)
	assert.NotEmpty(ch.JobID)
	assert.NoError(ch.Check())

	var sum float64
	for _, row := range ch.Samples {
		sum += row[0]
	}
	assert.InDelta(0.0, sum/1000.0, 0.25)

	// Diagnostics are parallel to the samples
	assert.Equal(1000, len(ch.Diagnostics["accepted"]))
	assert.Equal(1000, len(ch.Diagnostics["scale"]))
}

func TestJobBurnInAndThinning(t *testing.T) {
	assert := assert.New(t)

	sched, err := NewRange(100, 20, 7)
	assert.NoError(err)

	job := newTestJob(t, 11, []float64{0.5}, sched, ModeDirect)
	ch, err := job.Run()
	assert.NoError(err)

	assert.Equal(sched.SavedCount(), len(ch.Samples))
	assert.Equal(len(sched.SavedIndices()), len(ch.Samples))
}

func TestJobSuspendableMatchesDirect(t *testing.T) {
	assert := assert.New(t)

	sched, err := NewRange(200, 50, 3)
	assert.NoError(err)

	direct := newTestJob(t, 99, []float64{1.0}, sched, ModeDirect)
	chD, err := direct.Run()
	assert.NoError(err)

	// Same seed, driven step by step with inspection between steps
	susp := newTestJob(t, 99, []float64{1.0}, sched, ModeSuspendable)
	for susp.Iteration() < sched.TotalSteps {
		_, err := susp.Consume()
		assert.NoError(err)
		assert.Equal(1, susp.State().Dim())
	}
	chS, err := susp.Close()
	assert.NoError(err)

	assert.Equal(chD.Samples, chS.Samples)
	assert.Equal(chD.LogTargets, chS.LogTargets)
}

func TestJobConsumePastSchedule(t *testing.T) {
	assert := assert.New(t)

	sched, err := NewRange(5, 0, 1)
	assert.NoError(err)

	job := newTestJob(t, 3, []float64{0.0}, sched, ModeSuspendable)
	for i := 0; i < 5; i++ {
		_, err := job.Consume()
		assert.NoError(err)
	}

	_, err = job.Consume()
	assert.Error(err, "Consuming past the schedule must fail")

	ch, err := job.Close()
	assert.NoError(err)
	assert.Equal(5, len(ch.Samples))

	_, err = job.Close()
	assert.Error(err, "Double close must fail")
	_, err = job.Consume()
	assert.Error(err, "Consume after close must fail")
}

func TestJobResetReproducibility(t *testing.T) {
	assert := assert.New(t)

	sched, err := NewRange(150, 0, 1)
	assert.NoError(err)

	// Job A starts at x0 directly
	jobA := newTestJob(t, 7, []float64{0.5}, sched, ModeSuspendable)
	chA, err := jobA.Run()
	assert.NoError(err)

	// Job B starts elsewhere, resets to x0 before consuming any
	// randomness: the continuation must be bit-identical
	jobB := newTestJob(t, 7, []float64{-3.0}, sched, ModeSuspendable)
	assert.NoError(jobB.Reset([]float64{0.5}))
	assert.Equal([]float64{0.5}, jobB.State().Value)

	chB, err := jobB.Run()
	assert.NoError(err)

	assert.Equal(chA.Samples, chB.Samples)
	assert.Equal(chA.LogTargets, chB.LogTargets)
}

func TestJobResetMidChain(t *testing.T) {
	assert := assert.New(t)

	sched, err := NewRange(50, 0, 1)
	assert.NoError(err)

	job := newTestJob(t, 13, []float64{0.0}, sched, ModeSuspendable)
	for i := 0; i < 20; i++ {
		_, err := job.Consume()
		assert.NoError(err)
	}

	// A mid-stream reset moves the chain and re-evaluates the target
	assert.NoError(job.Reset([]float64{2.0}))
	assert.Equal([]float64{2.0}, job.State().Value)
	assert.InDelta(-2.0, job.State().LogTarget, 1e-12)

	// The schedule keeps going from where it was
	assert.Equal(20, job.Iteration())
	_, err = job.Consume()
	assert.NoError(err)
	assert.Equal(21, job.Iteration())
}

func TestMemorySinkOverflow(t *testing.T) {
	assert := assert.New(t)

	// Ten saves into a ten-slot buffer succeed; the eleventh is fatal
	sink, err := NewSink(OutputConfig{Destination: DestMemory}, 10, 1)
	assert.NoError(err)

	ps, err := NewState([]float64{1.0}, false)
	assert.NoError(err)
	ps.LogTarget = -0.5

	for i := 0; i < 10; i++ {
		assert.NoError(sink.Save(ps, map[string]float64{"accepted": 1.0}))
	}
	assert.Error(sink.Save(ps, map[string]float64{"accepted": 1.0}))
}

func TestStreamSink(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer

	sched, err := NewRange(40, 10, 2)
	assert.NoError(err)

	target, err := model.NewNormal(2)
	assert.NoError(err)
	alg, err := NewRWM(testGen(21), target)
	assert.NoError(err)
	tun, err := NewTuner(0.3, 25, 1.0)
	assert.NoError(err)

	job, err := NewJob(alg, tun, sched, []float64{0, 0}, OutputConfig{
		Destination: DestStream,
		Writer:      &buf,
	}, ModeDirect)
	assert.NoError(err)

	ch, err := job.Run()
	assert.NoError(err)
	assert.Empty(ch.Samples, "Stream chains keep provenance only")
	assert.Equal("rwm", ch.Algorithm)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(sched.SavedCount(), len(lines))

	for i, line := range lines {
		var rec struct {
			Index     int                `json:"index"`
			Value     []float64          `json:"value"`
			LogTarget float64            `json:"logtarget"`
			Diag      map[string]float64 `json:"diagnostics"`
		}
		assert.NoError(json.Unmarshal([]byte(line), &rec))
		assert.Equal(i, rec.Index)
		assert.Equal(2, len(rec.Value))
		assert.Contains(rec.Diag, "accepted")
	}
}

func TestChainCheck(t *testing.T) {
	assert := assert.New(t)

	ch := &Chain{
		Samples:    [][]float64{{1.0}, {2.0}},
		LogTargets: []float64{-0.5},
	}
	assert.Error(ch.Check(), "Mismatched parallel sequences must fail")

	ch.LogTargets = []float64{-0.5, -2.0}
	assert.NoError(ch.Check())

	ch.Gradients = [][]float64{{-1.0}}
	assert.Error(ch.Check())

	ch.Gradients = [][]float64{{-1.0}, {-2.0, 3.0}}
	assert.Error(ch.Check(), "Gradient dim mismatch must fail")

	ch.Gradients = [][]float64{{-1.0}, {-2.0}}
	assert.NoError(ch.Check())

	ch.Diagnostics = map[string][]float64{"accepted": {1.0}}
	assert.Error(ch.Check())
}

func TestJobTunerFreeze(t *testing.T) {
	assert := assert.New(t)

	target, err := model.NewNormal(1)
	assert.NoError(err)

	// Short window, zero burn-in, freeze on: the scale must never move
	alg, err := NewRWM(testGen(5), target)
	assert.NoError(err)
	tun, err := NewTuner(0.3, 5, 1.5)
	assert.NoError(err)
	sched, err := NewRange(100, 0, 1)
	assert.NoError(err)

	job, err := NewJob(alg, tun, sched, []float64{0}, OutputConfig{Destination: DestMemory}, ModeDirect)
	assert.NoError(err)
	_, err = job.Run()
	assert.NoError(err)
	assert.Equal(1.5, job.Scale())

	// Same setup with burn-in: adaptation runs during burn-in and the
	// scale ends up somewhere else
	alg2, err := NewRWM(testGen(5), target)
	assert.NoError(err)
	sched2, err := NewRange(100, 50, 1)
	assert.NoError(err)
	job2, err := NewJob(alg2, tun, sched2, []float64{0}, OutputConfig{Destination: DestMemory}, ModeDirect)
	assert.NoError(err)
	_, err = job2.Run()
	assert.NoError(err)
	assert.NotEqual(1.5, job2.Scale())
}
