package model

import (
	"math"

	"github.com/pkg/errors"
)

// Target is the model collaborator: a deterministic, side-effect-free
// log-density over a continuous parameter vector. LogProb may return -Inf
// for points outside the support; it must never depend on hidden state
// (that would break detailed balance for every sampler built on it).
type Target interface {
	Dim() int
	LogProb(x []float64) float64
}

// GradTarget is a Target that can also evaluate the gradient of its
// log-density. LogProbGrad writes the gradient into grad (len = Dim) and
// returns the log-density at x.
type GradTarget interface {
	Target
	LogProbGrad(x []float64, grad []float64) float64
}

// HessTarget is a GradTarget that can also report the diagonal of the
// log-density Hessian, used by metric-aware samplers. HessDiag writes
// into diag (len = Dim).
type HessTarget interface {
	GradTarget
	HessDiag(x []float64, diag []float64)
}

// CheckDim verifies that a point has the dimension a target expects
func CheckDim(t Target, x []float64) error {
	if len(x) != t.Dim() {
		return errors.Errorf("Point has dim %d but target expects %d", len(x), t.Dim())
	}
	return nil
}

// IsFinite reports whether a log-density value is usable (not NaN or Inf).
// A non-finite value during a transition means automatic rejection; a
// non-finite value at initialization is fatal.
func IsFinite(lp float64) bool {
	return !math.IsNaN(lp) && !math.IsInf(lp, 0)
}
