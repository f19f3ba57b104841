package sampler

import (
	"github.com/pkg/errors"

	"github.com/jmtrask/stoker/model"
	"github.com/jmtrask/stoker/rand"
)

// Slice is a coordinate-wise slice sampler. Each step sweeps every
// dimension once: draw a log-uniform height under the current density,
// bracket the slice around the current value (optionally stepping out in
// units of the per-dimension width), then sample uniformly inside the
// bracket, shrinking it toward the current value on every rejection. The
// bracket always contains the current value, so the shrink loop must
// terminate.
type Slice struct {
	gen        *rand.Generator
	target     model.Target
	widths     []float64
	maxStepOut int
}

// NewSlice creates a slice sampler. One strictly positive width per
// dimension is required; maxStepOut bounds the bracket expansion (0
// disables step-out entirely).
func NewSlice(gen *rand.Generator, target model.Target, widths []float64, maxStepOut int) (*Slice, error) {
	if target == nil {
		return nil, errors.New("No target supplied")
	}
	if gen == nil {
		return nil, errors.New("No generator supplied")
	}
	if len(widths) != target.Dim() {
		return nil, errors.Errorf("Got %d widths for a %d-dim target", len(widths), target.Dim())
	}
	for i, w := range widths {
		if w <= 0.0 {
			return nil, errors.Errorf("Slice width[%d] is %f - must be > 0", i, w)
		}
	}
	if maxStepOut < 0 {
		return nil, errors.Errorf("Invalid max step-out %d", maxStepOut)
	}

	ws := make([]float64, len(widths))
	copy(ws, widths)

	return &Slice{
		gen:        gen,
		target:     target,
		widths:     ws,
		maxStepOut: maxStepOut,
	}, nil
}

// Name identifies the algorithm family
func (s *Slice) Name() string {
	return "slice"
}

// Init evaluates the log-target at the state's current value
func (s *Slice) Init(ps *State) error {
	if err := model.CheckDim(s.target, ps.Value); err != nil {
		return errors.Wrap(err, "Slice init failed")
	}

	ps.LogTarget = s.target.LogProb(ps.Value)
	return ps.Check()
}

// Reset re-evaluates the log-target at x
func (s *Slice) Reset(ps *State, x []float64) error {
	if err := model.CheckDim(s.target, x); err != nil {
		return errors.Wrap(err, "Slice reset failed")
	}

	copy(ps.Value, x)
	ps.LogTarget = s.target.LogProb(ps.Value)
	return ps.Check()
}

// sliceWorking holds the bracket scratch: the proposal vector plus the
// scalar bracket endpoints and height for the dimension being updated.
type sliceWorking struct {
	proposal []float64 // current point with one coordinate replaced
	left     float64   // left bracket endpoint
	right    float64   // right bracket endpoint
	height   float64   // log of the slice height
	shrinks  int       // shrink count for the last full sweep (diagnostic)
}

func (w *sliceWorking) workingFor() string { return "slice" }

// NewWorking allocates the bracket scratch
func (s *Slice) NewWorking(ps *State) Working {
	return &sliceWorking{
		proposal: make([]float64, ps.Dim()),
	}
}

// Step performs one full coordinate sweep. Slice sampling always moves (or
// stays by sampling the current point's slice), so every sweep counts as
// an accepted proposal for tuning purposes.
func (s *Slice) Step(ps *State, ws Working, ts *TunerState) (bool, error) {
	w, ok := ws.(*sliceWorking)
	if !ok {
		return false, errors.Errorf("Working state %q handed to slice step", ws.workingFor())
	}

	w.shrinks = 0
	copy(w.proposal, ps.Value)

	for d := range ps.Value {
		s.updateDim(ps, w, d)
	}

	ts.Observe(true)
	return true, nil
}

// updateDim slice-samples a single coordinate, leaving ps.Value and
// ps.LogTarget updated.
func (s *Slice) updateDim(ps *State, w *sliceWorking, d int) {
	x0 := ps.Value[d]
	width := s.widths[d]

	// Log-uniform height under the current density
	w.height = ps.LogTarget - s.gen.ExpFloat64()

	// Initial bracket of one width, randomly positioned around x0
	u := s.gen.Float64()
	w.left = x0 - width*u
	w.right = w.left + width

	// Optional step-out: expand each side until it is off the slice
	for i := 0; i < s.maxStepOut; i++ {
		w.proposal[d] = w.left
		if s.target.LogProb(w.proposal) < w.height {
			break
		}
		w.left -= width
	}
	for i := 0; i < s.maxStepOut; i++ {
		w.proposal[d] = w.right
		if s.target.LogProb(w.proposal) < w.height {
			break
		}
		w.right += width
	}

	// Shrink toward x0 until a point on the slice is found. The bracket
	// always contains x0, so the interval collapses onto a point with
	// log-target >= height in finitely many draws.
	for {
		x1 := w.left + s.gen.Float64()*(w.right-w.left)
		w.proposal[d] = x1

		lp := s.target.LogProb(w.proposal)
		if model.IsFinite(lp) && lp >= w.height {
			ps.Value[d] = x1
			ps.LogTarget = lp
			break
		}

		w.shrinks++
		if x1 < x0 {
			w.left = x1
		} else {
			w.right = x1
		}
	}

	w.proposal[d] = ps.Value[d]
}

// StepDiagnostics reports the shrink count for the last sweep
func (s *Slice) StepDiagnostics(ws Working) map[string]float64 {
	w, ok := ws.(*sliceWorking)
	if !ok {
		return nil
	}
	return map[string]float64{"shrinks": float64(w.shrinks)}
}
