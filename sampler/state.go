package sampler

import (
	"github.com/pkg/errors"

	"github.com/jmtrask/stoker/model"
)

// State is the per-iteration snapshot of one chain: the current parameter
// value plus the cached log-target (and gradient when the algorithm needs
// it). It is created once per Job and mutated in place every step.
type State struct {
	Value         []float64 // Current parameter vector
	LogTarget     float64   // Cached log-target at Value
	Gradient      []float64 // Cached gradient at Value - nil for gradient-free samplers
	LogLikelihood float64   // Optional likelihood component tracked by some models
}

// NewState creates a state at the given initial value. The value is copied
// so the caller keeps ownership of x. The log-target is NOT evaluated here;
// that is the algorithm's Init job.
func NewState(x []float64, withGrad bool) (*State, error) {
	if len(x) < 1 {
		return nil, errors.Errorf("Initial value has dim %d - at least 1 required", len(x))
	}

	s := &State{
		Value: make([]float64, len(x)),
	}
	copy(s.Value, x)

	if withGrad {
		s.Gradient = make([]float64, len(x))
	}

	return s, nil
}

// Dim returns the parameter dimension
func (s *State) Dim() int {
	return len(s.Value)
}

// Clone returns a deep copy of the state (used when saving snapshots)
func (s *State) Clone() *State {
	cp := &State{
		Value:         make([]float64, len(s.Value)),
		LogTarget:     s.LogTarget,
		LogLikelihood: s.LogLikelihood,
	}
	copy(cp.Value, s.Value)

	if s.Gradient != nil {
		cp.Gradient = make([]float64, len(s.Gradient))
		copy(cp.Gradient, s.Gradient)
	}

	return cp
}

// Check returns an error if the state is not usable as a chain starting
// point. A non-finite log-target here means the initial point is outside
// the target's support, which is fatal.
func (s *State) Check() error {
	if !model.IsFinite(s.LogTarget) {
		return errors.Errorf("Initial log-target is %f at %v - initial point outside support", s.LogTarget, s.Value)
	}
	if s.Gradient != nil && len(s.Gradient) != len(s.Value) {
		return errors.Errorf("Gradient dim %d != value dim %d", len(s.Gradient), len(s.Value))
	}
	return nil
}
