package sampler

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/jmtrask/stoker/model"
	"github.com/jmtrask/stoker/rand"
)

// HMC is the Hamiltonian Monte Carlo sampler: simulate Hamiltonian
// dynamics with a fixed number of leapfrog steps using the tuned step
// size, then accept on the joint (position, momentum) energy.
type HMC struct {
	gen      *rand.Generator
	target   model.GradTarget
	numSteps int
}

// NewHMC creates an HMC sampler taking numSteps leapfrog steps per
// transition
func NewHMC(gen *rand.Generator, target model.GradTarget, numSteps int) (*HMC, error) {
	if target == nil {
		return nil, errors.New("No target supplied")
	}
	if gen == nil {
		return nil, errors.New("No generator supplied")
	}
	if numSteps < 1 {
		return nil, errors.Errorf("Invalid leapfrog step count %d - must be >= 1", numSteps)
	}

	return &HMC{
		gen:      gen,
		target:   target,
		numSteps: numSteps,
	}, nil
}

// Name identifies the algorithm family
func (h *HMC) Name() string {
	return "hmc"
}

// UsesGradient reports that HMC states carry a gradient
func (h *HMC) UsesGradient() bool {
	return true
}

// Init evaluates log-target and gradient at the state's current value
func (h *HMC) Init(ps *State) error {
	if err := model.CheckDim(h.target, ps.Value); err != nil {
		return errors.Wrap(err, "HMC init failed")
	}
	if ps.Gradient == nil {
		return errors.New("HMC requires a state allocated with a gradient")
	}

	ps.LogTarget = h.target.LogProbGrad(ps.Value, ps.Gradient)
	return ps.Check()
}

// Reset re-evaluates log-target and gradient at x
func (h *HMC) Reset(ps *State, x []float64) error {
	if err := model.CheckDim(h.target, x); err != nil {
		return errors.Wrap(err, "HMC reset failed")
	}

	copy(ps.Value, x)
	ps.LogTarget = h.target.LogProbGrad(ps.Value, ps.Gradient)
	return ps.Check()
}

type hmcWorking struct {
	pos       []float64 // trajectory position
	mom       []float64 // trajectory momentum
	grad      []float64 // gradient along the trajectory
	energyErr float64   // |H1 - H0| for the last trajectory (diagnostic)
}

func (w *hmcWorking) workingFor() string { return "hmc" }

// NewWorking allocates the trajectory buffers
func (h *HMC) NewWorking(ps *State) Working {
	d := ps.Dim()
	return &hmcWorking{
		pos:  make([]float64, d),
		mom:  make([]float64, d),
		grad: make([]float64, d),
	}
}

// leapfrog advances (pos, mom) by one step of size eps, returning the
// log-target at the new position. grad holds the gradient there on return.
func leapfrog(target model.GradTarget, pos, mom, grad []float64, eps float64) float64 {
	floats.AddScaled(mom, 0.5*eps, grad)
	floats.AddScaled(pos, eps, mom)
	lp := target.LogProbGrad(pos, grad)
	floats.AddScaled(mom, 0.5*eps, grad)
	return lp
}

// kinetic is the Gaussian kinetic energy 0.5*|p|^2
func kinetic(mom []float64) float64 {
	return 0.5 * floats.Dot(mom, mom)
}

// Step performs one HMC transition
func (h *HMC) Step(ps *State, ws Working, ts *TunerState) (bool, error) {
	w, ok := ws.(*hmcWorking)
	if !ok {
		return false, errors.Errorf("Working state %q handed to HMC step", ws.workingFor())
	}

	eps := ts.Scale

	copy(w.pos, ps.Value)
	copy(w.grad, ps.Gradient)
	h.gen.NormVector(w.mom)

	energy0 := -ps.LogTarget + kinetic(w.mom)

	lp := ps.LogTarget
	for i := 0; i < h.numSteps; i++ {
		lp = leapfrog(h.target, w.pos, w.mom, w.grad, eps)
		if !model.IsFinite(lp) {
			break
		}
	}

	if !model.IsFinite(lp) {
		// Diverged trajectory: automatic rejection
		w.energyErr = math.Inf(1)
		ts.Observe(false)
		return false, nil
	}

	energy1 := -lp + kinetic(w.mom)
	w.energyErr = math.Abs(energy1 - energy0)

	accepted := math.Log(h.gen.Float64()) < energy0-energy1
	if accepted {
		copy(ps.Value, w.pos)
		copy(ps.Gradient, w.grad)
		ps.LogTarget = lp
	}

	ts.Observe(accepted)
	return accepted, nil
}

// StepDiagnostics reports the leapfrog count and energy error for the
// last trajectory
func (h *HMC) StepDiagnostics(ws Working) map[string]float64 {
	w, ok := ws.(*hmcWorking)
	if !ok {
		return nil
	}
	return map[string]float64{
		"leapfrogs": float64(h.numSteps),
		"energyerr": w.energyErr,
	}
}
