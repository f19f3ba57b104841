package sampler

import (
	"github.com/pkg/errors"

	"github.com/jmtrask/stoker/model"
	"github.com/jmtrask/stoker/rand"
)

// divergenceMax bounds the numerical energy error tolerated while a
// trajectory doubles. Beyond it the doubling stops and the subtree is
// discarded, which preserves detailed balance (the stopping rule is
// symmetric in trajectory direction).
const divergenceMax = 1000.0

// NUTS is the trajectory-doubling Hamiltonian sampler: the trajectory is
// grown by recursive doubling in a random direction until it turns back on
// itself (U-turn) or diverges, and the next state is drawn uniformly from
// the valid points of the trajectory.
type NUTS struct {
	gen      *rand.Generator
	target   model.GradTarget
	maxDepth int
}

// NewNUTS creates a trajectory-doubling sampler with the given maximum
// doubling depth (so at most 2^maxDepth leapfrog steps per transition)
func NewNUTS(gen *rand.Generator, target model.GradTarget, maxDepth int) (*NUTS, error) {
	if target == nil {
		return nil, errors.New("No target supplied")
	}
	if gen == nil {
		return nil, errors.New("No generator supplied")
	}
	if maxDepth < 1 || maxDepth > 20 {
		return nil, errors.Errorf("Invalid max doubling depth %d", maxDepth)
	}

	return &NUTS{
		gen:      gen,
		target:   target,
		maxDepth: maxDepth,
	}, nil
}

// Name identifies the algorithm family
func (n *NUTS) Name() string {
	return "nuts"
}

// UsesGradient reports that NUTS states carry a gradient
func (n *NUTS) UsesGradient() bool {
	return true
}

// Init evaluates log-target and gradient at the state's current value
func (n *NUTS) Init(ps *State) error {
	if err := model.CheckDim(n.target, ps.Value); err != nil {
		return errors.Wrap(err, "NUTS init failed")
	}
	if ps.Gradient == nil {
		return errors.New("NUTS requires a state allocated with a gradient")
	}

	ps.LogTarget = n.target.LogProbGrad(ps.Value, ps.Gradient)
	return ps.Check()
}

// Reset re-evaluates log-target and gradient at x
func (n *NUTS) Reset(ps *State, x []float64) error {
	if err := model.CheckDim(n.target, x); err != nil {
		return errors.Wrap(err, "NUTS reset failed")
	}

	copy(ps.Value, x)
	ps.LogTarget = n.target.LogProbGrad(ps.Value, ps.Gradient)
	return ps.Check()
}

type nutsWorking struct {
	mom       []float64 // fresh momentum draw per transition
	depth     int       // doubling depth reached (diagnostic)
	leapfrogs int       // leapfrog steps taken (diagnostic)
	divergent bool      // true when doubling stopped on divergence
}

func (w *nutsWorking) workingFor() string { return "nuts" }

// NewWorking allocates the momentum buffer
func (n *NUTS) NewWorking(ps *State) Working {
	return &nutsWorking{
		mom: make([]float64, ps.Dim()),
	}
}

// trajPoint is one endpoint of a doubling trajectory
type trajPoint struct {
	pos  []float64
	mom  []float64
	grad []float64
	lp   float64
}

func newTrajPoint(dim int) *trajPoint {
	return &trajPoint{
		pos:  make([]float64, dim),
		mom:  make([]float64, dim),
		grad: make([]float64, dim),
	}
}

func (p *trajPoint) copyFrom(q *trajPoint) {
	copy(p.pos, q.pos)
	copy(p.mom, q.mom)
	copy(p.grad, q.grad)
	p.lp = q.lp
}

// joint is the log joint density -H at a trajectory point
func (p *trajPoint) joint() float64 {
	return p.lp - kinetic(p.mom)
}

// noUTurn checks that the trajectory spanned by the two endpoints is still
// moving apart at both ends
func noUTurn(minus *trajPoint, plus *trajPoint) bool {
	var dMinus, dPlus float64
	for i, pp := range plus.pos {
		span := pp - minus.pos[i]
		dMinus += span * minus.mom[i]
		dPlus += span * plus.mom[i]
	}
	return dMinus >= 0.0 && dPlus >= 0.0
}

// subTree is the result of building one side of a doubled trajectory
type subTree struct {
	minus     *trajPoint // backward endpoint
	plus      *trajPoint // forward endpoint
	candidate *trajPoint // proposed next state, uniform over valid points
	nValid    int        // number of valid (below slice height) points
	ok        bool       // false once a U-turn or divergence occurred
}

// buildTree grows 2^depth leapfrog steps from the given endpoint in
// direction dir, sampling a candidate uniformly from the valid points.
func (n *NUTS) buildTree(from *trajPoint, logu float64, dir float64, depth int, eps float64, w *nutsWorking) subTree {
	if depth == 0 {
		// Base case: a single leapfrog step
		p := newTrajPoint(len(from.pos))
		p.copyFrom(from)
		p.lp = leapfrog(n.target, p.pos, p.mom, p.grad, dir*eps)
		w.leapfrogs++

		st := subTree{minus: p, plus: p, candidate: p}
		if !model.IsFinite(p.lp) {
			w.divergent = true
			return st
		}

		j := p.joint()
		if logu <= j {
			st.nValid = 1
		}
		st.ok = logu < j+divergenceMax
		if !st.ok {
			w.divergent = true
		}
		return st
	}

	// Build the first half, then extend it in the same direction
	st := n.buildTree(from, logu, dir, depth-1, eps, w)
	if !st.ok {
		return st
	}

	var ext subTree
	if dir < 0 {
		ext = n.buildTree(st.minus, logu, dir, depth-1, eps, w)
		st.minus = ext.minus
	} else {
		ext = n.buildTree(st.plus, logu, dir, depth-1, eps, w)
		st.plus = ext.plus
	}

	if ext.nValid > 0 {
		total := st.nValid + ext.nValid
		if n.gen.Float64() < float64(ext.nValid)/float64(total) {
			st.candidate = ext.candidate
		}
	}
	st.nValid += ext.nValid
	st.ok = ext.ok && noUTurn(st.minus, st.plus)

	return st
}

// Step performs one trajectory-doubling transition
func (n *NUTS) Step(ps *State, ws Working, ts *TunerState) (bool, error) {
	w, ok := ws.(*nutsWorking)
	if !ok {
		return false, errors.Errorf("Working state %q handed to NUTS step", ws.workingFor())
	}

	eps := ts.Scale
	dim := ps.Dim()

	w.depth = 0
	w.leapfrogs = 0
	w.divergent = false

	n.gen.NormVector(w.mom)
	joint0 := ps.LogTarget - kinetic(w.mom)
	logu := joint0 - n.gen.ExpFloat64()

	minus := newTrajPoint(dim)
	copy(minus.pos, ps.Value)
	copy(minus.mom, w.mom)
	copy(minus.grad, ps.Gradient)
	minus.lp = ps.LogTarget

	plus := newTrajPoint(dim)
	plus.copyFrom(minus)

	candidate := minus
	nValid := 1
	accepted := false

	for depth := 0; depth < n.maxDepth; depth++ {
		dir := 1.0
		if n.gen.Float64() < 0.5 {
			dir = -1.0
		}

		var st subTree
		if dir < 0 {
			st = n.buildTree(minus, logu, dir, depth, eps, w)
			minus = st.minus
		} else {
			st = n.buildTree(plus, logu, dir, depth, eps, w)
			plus = st.plus
		}

		if st.ok && st.nValid > 0 {
			if n.gen.Float64() < float64(st.nValid)/float64(nValid) {
				candidate = st.candidate
				accepted = true
			}
		}
		nValid += st.nValid
		w.depth = depth + 1

		if !st.ok || !noUTurn(minus, plus) {
			break
		}
	}

	if accepted {
		copy(ps.Value, candidate.pos)
		copy(ps.Gradient, candidate.grad)
		ps.LogTarget = candidate.lp
	}

	ts.Observe(accepted)
	return accepted, nil
}

// StepDiagnostics reports doubling depth, leapfrog count, and divergence
// for the last transition
func (n *NUTS) StepDiagnostics(ws Working) map[string]float64 {
	w, ok := ws.(*nutsWorking)
	if !ok {
		return nil
	}

	div := 0.0
	if w.divergent {
		div = 1.0
	}
	return map[string]float64{
		"depth":     float64(w.depth),
		"leapfrogs": float64(w.leapfrogs),
		"divergent": div,
	}
}
