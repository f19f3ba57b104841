package sampler

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jmtrask/stoker/buffer"
)

// Mode selects how a Job is driven. Both modes produce identical chains;
// they differ only in who owns the loop.
type Mode int

// Supported execution modes
const (
	// ModeDirect: the Job owns the loop - call Run once.
	ModeDirect Mode = iota
	// ModeSuspendable: the caller owns the loop - call Consume per step,
	// inspect State or call Reset between steps, stop calling to cancel.
	// A step is atomic, so no rollback is ever needed.
	ModeSuspendable
)

// accWindowSize is the rolling window used for the live acceptance-rate
// diagnostic exposed while a job runs.
const accWindowSize = 100

// A Job orchestrates a single chain: one State, one Algorithm with its
// Working scratch, one TunerState, a Range, and an output Sink. It is an
// explicit state machine: suspension is simply not calling Consume, and
// resumption is calling it again.
type Job struct {
	ID    uuid.UUID
	alg   Algorithm
	tuner *Tuner
	sched *Range
	mode  Mode

	ps   *State
	ws   Working
	ts   *TunerState
	sink Sink

	iter      int
	accWindow *buffer.CircularFloat
	started   time.Time
	elapsed   time.Duration
	closed    bool
}

// GradientUser is implemented by algorithms whose chain states must carry
// a gradient buffer
type GradientUser interface {
	UsesGradient() bool
}

// NewJob builds a ready-to-run chain. All configuration and initialization
// errors are fatal here: no partial Job is ever returned.
func NewJob(alg Algorithm, tuner *Tuner, sched *Range, x0 []float64, out OutputConfig, mode Mode) (*Job, error) {
	if alg == nil {
		return nil, errors.New("No algorithm supplied")
	}
	if tuner == nil {
		return nil, errors.New("No tuner supplied")
	}
	if sched == nil {
		return nil, errors.New("No range supplied")
	}
	if mode != ModeDirect && mode != ModeSuspendable {
		return nil, errors.Errorf("Invalid execution mode %d", mode)
	}

	withGrad := out.WithGradients
	if gu, ok := alg.(GradientUser); ok && gu.UsesGradient() {
		withGrad = true
	}

	ps, err := NewState(x0, withGrad)
	if err != nil {
		return nil, errors.Wrap(err, "Could not create chain state")
	}

	if err := alg.Init(ps); err != nil {
		return nil, errors.Wrapf(err, "Could not initialize %s chain", alg.Name())
	}

	sink, err := NewSink(out, sched.SavedCount(), ps.Dim())
	if err != nil {
		return nil, errors.Wrap(err, "Could not create output sink")
	}

	j := &Job{
		ID:        uuid.New(),
		alg:       alg,
		tuner:     tuner,
		sched:     sched,
		mode:      mode,
		ps:        ps,
		ws:        alg.NewWorking(ps),
		ts:        tuner.NewState(),
		sink:      sink,
		accWindow: buffer.NewCircularFloat(accWindowSize),
	}

	return j, nil
}

// Consume advances the chain by exactly one Markov transition and persists
// the state when the schedule says so. Returns the acceptance indicator
// for the step.
func (j *Job) Consume() (bool, error) {
	if j.closed {
		return false, errors.New("Job is closed")
	}
	if j.iter >= j.sched.TotalSteps {
		return false, errors.Errorf("Schedule complete after %d steps", j.sched.TotalSteps)
	}

	if j.started.IsZero() {
		j.started = time.Now()
	}

	accepted, err := j.alg.Step(j.ps, j.ws, j.ts)
	if err != nil {
		return false, errors.Wrapf(err, "Step %d failed", j.iter+1)
	}
	j.iter++

	if !j.tuner.FreezeAfterBurnIn || j.iter <= j.sched.BurnIn {
		j.tuner.MaybeAdapt(j.ts)
	}

	acc := 0.0
	if accepted {
		acc = 1.0
	}
	j.accWindow.Add(acc)

	if j.sched.Saves(j.iter) {
		diag := map[string]float64{
			"accepted": acc,
			"scale":    j.ts.Scale,
		}
		if sd, ok := j.alg.(StepDiagnoser); ok {
			for name, val := range sd.StepDiagnostics(j.ws) {
				diag[name] = val
			}
		}
		if err := j.sink.Save(j.ps, diag); err != nil {
			return accepted, errors.Wrapf(err, "Could not save state at iteration %d", j.iter)
		}
	}

	j.elapsed = time.Since(j.started)
	return accepted, nil
}

// Run drives the remaining schedule to completion and closes the job.
// This is the whole of direct mode; for a suspendable job it means
// "resume and never pause again".
func (j *Job) Run() (*Chain, error) {
	for j.iter < j.sched.TotalSteps {
		if _, err := j.Consume(); err != nil {
			return nil, err
		}
	}
	return j.Close()
}

// Reset restarts the chain at x without tearing anything down: the target
// is re-evaluated there and the tuner window restarts. The iteration
// schedule is untouched, so composed procedures (tempering-style restarts)
// keep their output layout.
func (j *Job) Reset(x []float64) error {
	if j.closed {
		return errors.New("Job is closed")
	}
	if err := j.alg.Reset(j.ps, x); err != nil {
		return errors.Wrap(err, "Could not reset chain")
	}
	j.ts.ResetWindow()
	return nil
}

// State exposes the live chain state for inspection between steps. Valid
// only while no Consume is in flight; the Job is single-threaded so that
// just means "between your own calls".
func (j *Job) State() *State {
	return j.ps
}

// Iteration returns the number of completed steps
func (j *Job) Iteration() int {
	return j.iter
}

// AcceptRate returns the acceptance rate over the rolling window
func (j *Job) AcceptRate() float64 {
	return j.accWindow.Mean()
}

// Scale returns the tuner's current scale
func (j *Job) Scale() float64 {
	return j.ts.Scale
}

// Mode returns the configured execution mode
func (j *Job) Mode() Mode {
	return j.mode
}

// Close finalizes the sink and returns the immutable Chain. Closing early
// (cancellation) is fine: the chain holds whatever was saved so far.
func (j *Job) Close() (*Chain, error) {
	if j.closed {
		return nil, errors.New("Job is already closed")
	}

	ch, err := j.sink.Close()
	if err != nil {
		return nil, errors.Wrap(err, "Could not close output sink")
	}

	ch.JobID = j.ID.String()
	ch.Algorithm = j.alg.Name()
	ch.Range = j.sched
	ch.RunTime = j.elapsed.Seconds()

	if err := ch.Check(); err != nil {
		return nil, errors.Wrap(err, "Assembled chain is invalid")
	}

	j.closed = true
	return ch, nil
}
