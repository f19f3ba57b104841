package sampler

import (
	"github.com/pkg/errors"
)

// A Range is the iteration schedule for one chain: how many steps to take,
// how many initial steps to discard, and how aggressively to thin what is
// left. The saved subsequence is {BurnIn+1, BurnIn+1+Thinning, ...} up to
// TotalSteps, using 1-based iteration indices.
type Range struct {
	TotalSteps int // Total Markov transitions to perform (>= 1)
	BurnIn     int // Initial transitions discarded (>= 0, < TotalSteps)
	Thinning   int // Keep every Thinning'th post-burn-in iteration (>= 1)
}

// NewRange creates a validated schedule
func NewRange(totalSteps int, burnIn int, thinning int) (*Range, error) {
	if totalSteps < 1 {
		return nil, errors.Errorf("Invalid total steps %d - must be >= 1", totalSteps)
	}
	if burnIn < 0 || burnIn >= totalSteps {
		return nil, errors.Errorf("Invalid burn-in %d for %d total steps", burnIn, totalSteps)
	}
	if thinning < 1 {
		return nil, errors.Errorf("Invalid thinning %d - must be >= 1", thinning)
	}

	return &Range{
		TotalSteps: totalSteps,
		BurnIn:     burnIn,
		Thinning:   thinning,
	}, nil
}

// SavedCount returns the number of iterations that will be persisted:
// ceil((TotalSteps-BurnIn)/Thinning)
func (r *Range) SavedCount() int {
	span := r.TotalSteps - r.BurnIn
	return (span + r.Thinning - 1) / r.Thinning
}

// Saves returns true when the 1-based iteration i should be persisted
func (r *Range) Saves(i int) bool {
	if i <= r.BurnIn || i > r.TotalSteps {
		return false
	}
	return (i-r.BurnIn-1)%r.Thinning == 0
}

// SavedIndices returns the exact saved subsequence, mainly for provenance
// and testing
func (r *Range) SavedIndices() []int {
	out := make([]int, 0, r.SavedCount())
	for i := r.BurnIn + 1; i <= r.TotalSteps; i += r.Thinning {
		out = append(out, i)
	}
	return out
}
