package sampler

// An Algorithm is one member of the closed set of supported MCMC transition
// rules. Every variant is a flat config+target pair behind this common
// capability set, so the Job can drive any of them identically.
type Algorithm interface {
	// Name identifies the algorithm family for provenance and diagnostics
	Name() string

	// Init evaluates the log-target (and gradient if the algorithm needs
	// it) at the state's current value. A non-finite result is fatal.
	Init(ps *State) error

	// NewWorking allocates the algorithm's scratch state, sized to match
	// ps. Working state belongs to exactly one Job and is mutated in place
	// every step.
	NewWorking(ps *State) Working

	// Step performs one Markov transition: mutates ps in place, updates the
	// tuner counters, and reports whether the proposal was accepted. A
	// proposal with a non-finite log-target is an automatic rejection, not
	// an error.
	Step(ps *State, ws Working, ts *TunerState) (bool, error)

	// Reset re-evaluates the target at x and makes ps a valid chain state
	// there, without reallocating anything. Used to restart a chain
	// mid-stream (tempering-style compositions).
	Reset(ps *State, x []float64) error
}

// Working is per-algorithm scratch state (proposal buffers, slice brackets,
// trajectory endpoints). The set of implementations is closed: each
// algorithm accepts only the working state it allocated itself.
type Working interface {
	workingFor() string
}

// A StepDiagnoser is an Algorithm that exposes per-step statistics beyond
// the acceptance indicator (leapfrog counts, slice shrink counts, ...).
// The Job folds these into the chain's diagnostics mapping.
type StepDiagnoser interface {
	StepDiagnostics(ws Working) map[string]float64
}
