package model

import (
	"math"

	"github.com/pkg/errors"
)

// Normal is an isotropic standard normal in dim dimensions. It is the
// workhorse test target: log-density, gradient, and Hessian diagonal are
// all closed form.
type Normal struct {
	dim int
}

// NewNormal returns a standard normal target of the given dimension
func NewNormal(dim int) (*Normal, error) {
	if dim < 1 {
		return nil, errors.Errorf("Invalid dim %d for normal target", dim)
	}
	return &Normal{dim: dim}, nil
}

// Dim returns the parameter dimension
func (n *Normal) Dim() int {
	return n.dim
}

// LogProb returns the log-density at x (up to the normalizing constant)
func (n *Normal) LogProb(x []float64) float64 {
	var ss float64
	for _, v := range x {
		ss += v * v
	}
	return -0.5 * ss
}

// LogProbGrad returns the log-density and writes the gradient into grad
func (n *Normal) LogProbGrad(x []float64, grad []float64) float64 {
	var ss float64
	for i, v := range x {
		ss += v * v
		grad[i] = -v
	}
	return -0.5 * ss
}

// HessDiag writes the diagonal of the log-density Hessian into diag
func (n *Normal) HessDiag(x []float64, diag []float64) {
	for i := range diag {
		diag[i] = -1.0
	}
}

// DiagNormal is a normal target with independent components, each with its
// own mean and standard deviation.
type DiagNormal struct {
	Mean   []float64
	Stddev []float64
}

// NewDiagNormal returns a diagonal-covariance normal target. All standard
// deviations must be strictly positive.
func NewDiagNormal(mean []float64, stddev []float64) (*DiagNormal, error) {
	if len(mean) < 1 {
		return nil, errors.Errorf("At least one dimension required, found %d", len(mean))
	}
	if len(mean) != len(stddev) {
		return nil, errors.Errorf("Mean dim %d != stddev dim %d", len(mean), len(stddev))
	}
	for i, s := range stddev {
		if s <= 0.0 {
			return nil, errors.Errorf("Stddev[%d] is %f - must be > 0", i, s)
		}
	}

	t := &DiagNormal{
		Mean:   mean,
		Stddev: stddev,
	}
	return t, nil
}

// Dim returns the parameter dimension
func (d *DiagNormal) Dim() int {
	return len(d.Mean)
}

// LogProb returns the log-density at x (up to the normalizing constant)
func (d *DiagNormal) LogProb(x []float64) float64 {
	var ss float64
	for i, v := range x {
		z := (v - d.Mean[i]) / d.Stddev[i]
		ss += z * z
	}
	return -0.5 * ss
}

// LogProbGrad returns the log-density and writes the gradient into grad
func (d *DiagNormal) LogProbGrad(x []float64, grad []float64) float64 {
	var ss float64
	for i, v := range x {
		z := (v - d.Mean[i]) / d.Stddev[i]
		ss += z * z
		grad[i] = -z / d.Stddev[i]
	}
	return -0.5 * ss
}

// HessDiag writes the diagonal of the log-density Hessian into diag
func (d *DiagNormal) HessDiag(x []float64, diag []float64) {
	for i, s := range d.Stddev {
		diag[i] = -1.0 / (s * s)
	}
}

// Rosenbrock is the classic banana-shaped 2-D test density
// log p(x) = -(a-x0)^2 - b*(x1-x0^2)^2. Narrow and curved, so it separates
// gradient-based samplers from random-walk ones quickly.
type Rosenbrock struct {
	A float64
	B float64
}

// NewRosenbrock returns a Rosenbrock target with the usual a=1, b=5 shape
func NewRosenbrock() *Rosenbrock {
	return &Rosenbrock{A: 1.0, B: 5.0}
}

// Dim returns the parameter dimension (always 2)
func (r *Rosenbrock) Dim() int {
	return 2
}

// LogProb returns the log-density at x
func (r *Rosenbrock) LogProb(x []float64) float64 {
	d0 := r.A - x[0]
	d1 := x[1] - x[0]*x[0]
	return -(d0*d0 + r.B*d1*d1)
}

// LogProbGrad returns the log-density and writes the gradient into grad
func (r *Rosenbrock) LogProbGrad(x []float64, grad []float64) float64 {
	d0 := r.A - x[0]
	d1 := x[1] - x[0]*x[0]
	grad[0] = 2.0*d0 + 4.0*r.B*d1*x[0]
	grad[1] = -2.0 * r.B * d1
	return -(d0*d0 + r.B*d1*d1)
}

// Bounded wraps a target and clips its support to a box [-Lim, Lim] in
// every dimension. Outside the box the log-density is -Inf. Useful for
// exercising the automatic-rejection path.
type Bounded struct {
	Base Target
	Lim  float64
}

// NewBounded returns a box-truncated version of base
func NewBounded(base Target, lim float64) (*Bounded, error) {
	if lim <= 0.0 {
		return nil, errors.Errorf("Bound limit is %f - must be > 0", lim)
	}
	return &Bounded{Base: base, Lim: lim}, nil
}

// Dim returns the parameter dimension
func (b *Bounded) Dim() int {
	return b.Base.Dim()
}

// LogProb returns the log-density at x, or -Inf outside the box
func (b *Bounded) LogProb(x []float64) float64 {
	for _, v := range x {
		if v < -b.Lim || v > b.Lim {
			return math.Inf(-1)
		}
	}
	return b.Base.LogProb(x)
}
