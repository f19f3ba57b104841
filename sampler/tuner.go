package sampler

import (
	"math"

	"github.com/pkg/errors"
)

// DefaultAcceptRate is the target acceptance rate used when a config does
// not specify one. It is the classic random-walk optimum; gradient-based
// runs usually configure something higher.
const DefaultAcceptRate = 0.234

// A Tuner is the immutable adaptation policy for one chain: observe
// accept/reject outcomes in fixed-length windows and nudge the algorithm's
// scale toward a target acceptance rate at every window boundary.
type Tuner struct {
	TargetRate        float64 // Desired acceptance rate in (0, 1)
	Window            int     // Observation window length (>= 1)
	InitialScale      float64 // Starting scale (> 0)
	FreezeAfterBurnIn bool    // Stop adapting once burn-in ends (keeps the kept chain Markov)
}

// NewTuner creates a validated tuner policy. A targetRate of 0 selects
// DefaultAcceptRate.
func NewTuner(targetRate float64, window int, initialScale float64) (*Tuner, error) {
	if targetRate == 0.0 {
		targetRate = DefaultAcceptRate
	}
	if targetRate <= 0.0 || targetRate >= 1.0 {
		return nil, errors.Errorf("Invalid target acceptance rate %f", targetRate)
	}
	if window < 1 {
		return nil, errors.Errorf("Invalid tuner window %d - must be >= 1", window)
	}
	if initialScale <= 0.0 {
		return nil, errors.Errorf("Invalid initial scale %f - must be > 0", initialScale)
	}

	return &Tuner{
		TargetRate:        targetRate,
		Window:            window,
		InitialScale:      initialScale,
		FreezeAfterBurnIn: true,
	}, nil
}

// TunerState is the mutable side of adaptation: counters for the current
// window plus the scale the algorithm is currently using. Scale is always
// > 0 and Proposed never exceeds TotalProposed within a window.
type TunerState struct {
	Proposed      int     // Proposals observed since the last adaptation
	TotalProposed int     // Window length (trigger for adaptation)
	Accepted      int     // Accepted proposals in the current window
	Scale         float64 // The tuned step size / proposal scale
}

// NewState creates the initial tuner state for this policy
func (t *Tuner) NewState() *TunerState {
	return &TunerState{
		Proposed:      0,
		TotalProposed: t.Window,
		Accepted:      0,
		Scale:         t.InitialScale,
	}
}

// Observe records one step outcome
func (ts *TunerState) Observe(accepted bool) {
	ts.Proposed++
	if accepted {
		ts.Accepted++
	}
}

// ResetWindow zeroes the per-window counters (chain restart)
func (ts *TunerState) ResetWindow() {
	ts.Proposed = 0
	ts.Accepted = 0
}

// Rate returns the empirical acceptance rate for the current window
func (ts *TunerState) Rate() float64 {
	if ts.Proposed < 1 {
		return 0.0
	}
	return float64(ts.Accepted) / float64(ts.Proposed)
}

// MaybeAdapt nudges the scale once a full window has been observed and
// returns true if an adaptation happened. The nudge is multiplicative in
// the rate error, so Scale stays strictly positive.
func (t *Tuner) MaybeAdapt(ts *TunerState) bool {
	if ts.Proposed < ts.TotalProposed {
		return false
	}

	ts.Scale *= math.Exp(ts.Rate() - t.TargetRate)
	ts.Proposed = 0
	ts.Accepted = 0

	return true
}
