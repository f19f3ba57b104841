package sampler

import (
	"math"

	"github.com/pkg/errors"

	"github.com/jmtrask/stoker/model"
	"github.com/jmtrask/stoker/rand"
)

// RWM is the random-walk Metropolis sampler: isotropic Gaussian proposals
// scaled by the tuned scale, accepted on the plain Metropolis ratio. It is
// the baseline every other variant is judged against.
type RWM struct {
	gen    *rand.Generator
	target model.Target
}

// NewRWM creates a random-walk Metropolis sampler for the given target
func NewRWM(gen *rand.Generator, target model.Target) (*RWM, error) {
	if target == nil {
		return nil, errors.New("No target supplied")
	}
	if gen == nil {
		return nil, errors.New("No generator supplied")
	}

	return &RWM{
		gen:    gen,
		target: target,
	}, nil
}

// Name identifies the algorithm family
func (r *RWM) Name() string {
	return "rwm"
}

// Init evaluates the log-target at the state's current value
func (r *RWM) Init(ps *State) error {
	if err := model.CheckDim(r.target, ps.Value); err != nil {
		return errors.Wrap(err, "RWM init failed")
	}

	ps.LogTarget = r.target.LogProb(ps.Value)
	return ps.Check()
}

// Reset re-evaluates the log-target at x
func (r *RWM) Reset(ps *State, x []float64) error {
	if err := model.CheckDim(r.target, x); err != nil {
		return errors.Wrap(err, "RWM reset failed")
	}

	copy(ps.Value, x)
	ps.LogTarget = r.target.LogProb(ps.Value)
	return ps.Check()
}

type rwmWorking struct {
	proposal []float64
}

func (w *rwmWorking) workingFor() string { return "rwm" }

// NewWorking allocates the proposal buffer
func (r *RWM) NewWorking(ps *State) Working {
	return &rwmWorking{
		proposal: make([]float64, ps.Dim()),
	}
}

// Step performs one Metropolis transition
func (r *RWM) Step(ps *State, ws Working, ts *TunerState) (bool, error) {
	w, ok := ws.(*rwmWorking)
	if !ok {
		return false, errors.Errorf("Working state %q handed to RWM step", ws.workingFor())
	}

	for i, v := range ps.Value {
		w.proposal[i] = v + ts.Scale*r.gen.NormFloat64()
	}

	lp := r.target.LogProb(w.proposal)

	// Non-finite proposals are automatic rejections: the chain stays put
	accepted := model.IsFinite(lp) && math.Log(r.gen.Float64()) < lp-ps.LogTarget
	if accepted {
		copy(ps.Value, w.proposal)
		ps.LogTarget = lp
	}

	ts.Observe(accepted)
	return accepted, nil
}
