package sampler

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/jmtrask/stoker/model"
	"github.com/jmtrask/stoker/rand"
)

// metricFloor keeps the position-dependent metric away from zero where the
// target's curvature vanishes or flips sign.
const metricFloor = 1e-6

// MALA is the Metropolis-adjusted Langevin sampler: a gradient-informed
// drift proposal with the full Metropolis-Hastings correction. With a
// curvature-capable target it becomes the simplified manifold variant,
// replacing the fixed scale with a diagonal metric built from the Hessian
// diagonal.
type MALA struct {
	gen    *rand.Generator
	target model.GradTarget
	metric model.HessTarget // nil for the plain (identity metric) variant
}

// NewMALA creates a plain Langevin sampler for the given target
func NewMALA(gen *rand.Generator, target model.GradTarget) (*MALA, error) {
	if target == nil {
		return nil, errors.New("No target supplied")
	}
	if gen == nil {
		return nil, errors.New("No generator supplied")
	}

	return &MALA{
		gen:    gen,
		target: target,
	}, nil
}

// NewManifoldMALA creates a simplified manifold Langevin sampler. The
// target must expose its Hessian diagonal; curvature evaluation stays with
// the model collaborator.
func NewManifoldMALA(gen *rand.Generator, target model.HessTarget) (*MALA, error) {
	m, err := NewMALA(gen, target)
	if err != nil {
		return nil, err
	}
	m.metric = target
	return m, nil
}

// Name identifies the algorithm family
func (m *MALA) Name() string {
	if m.metric != nil {
		return "smmala"
	}
	return "mala"
}

// UsesGradient reports that MALA states carry a gradient
func (m *MALA) UsesGradient() bool {
	return true
}

// Init evaluates log-target and gradient at the state's current value
func (m *MALA) Init(ps *State) error {
	if err := model.CheckDim(m.target, ps.Value); err != nil {
		return errors.Wrap(err, "MALA init failed")
	}
	if ps.Gradient == nil {
		return errors.New("MALA requires a state allocated with a gradient")
	}

	ps.LogTarget = m.target.LogProbGrad(ps.Value, ps.Gradient)
	return ps.Check()
}

// Reset re-evaluates log-target and gradient at x
func (m *MALA) Reset(ps *State, x []float64) error {
	if err := model.CheckDim(m.target, x); err != nil {
		return errors.Wrap(err, "MALA reset failed")
	}

	copy(ps.Value, x)
	ps.LogTarget = m.target.LogProbGrad(ps.Value, ps.Gradient)
	return ps.Check()
}

type malaWorking struct {
	proposal []float64 // candidate point
	gradProp []float64 // gradient at the candidate
	mean     []float64 // forward drift mean
	meanBack []float64 // backward drift mean
	ginv     []float64 // inverse metric at the current point (manifold only)
	ginvProp []float64 // inverse metric at the candidate (manifold only)
}

func (w *malaWorking) workingFor() string { return "mala" }

// NewWorking allocates the drift and metric buffers
func (m *MALA) NewWorking(ps *State) Working {
	d := ps.Dim()
	w := &malaWorking{
		proposal: make([]float64, d),
		gradProp: make([]float64, d),
		mean:     make([]float64, d),
		meanBack: make([]float64, d),
	}
	if m.metric != nil {
		w.ginv = make([]float64, d)
		w.ginvProp = make([]float64, d)
	}
	return w
}

// invMetric fills ginv with the inverse of the clipped negative Hessian
// diagonal at x.
func (m *MALA) invMetric(x []float64, ginv []float64) {
	m.metric.HessDiag(x, ginv)
	for i, h := range ginv {
		g := -h
		if g < metricFloor {
			g = metricFloor
		}
		ginv[i] = 1.0 / g
	}
}

// logqDiag is the log transition density (up to constants shared by both
// directions) of a Gaussian with mean mu and diagonal covariance
// eps^2*ginv, evaluated at y. A nil ginv means the identity metric.
func logqDiag(y []float64, mu []float64, eps float64, ginv []float64) float64 {
	e2 := eps * eps
	var lq float64
	for i, yi := range y {
		v := e2
		if ginv != nil {
			v = e2 * ginv[i]
		}
		d := yi - mu[i]
		lq -= 0.5 * (d*d/v + math.Log(v))
	}
	return lq
}

// Step performs one Langevin transition
func (m *MALA) Step(ps *State, ws Working, ts *TunerState) (bool, error) {
	w, ok := ws.(*malaWorking)
	if !ok {
		return false, errors.Errorf("Working state %q handed to MALA step", ws.workingFor())
	}

	eps := ts.Scale
	drift := 0.5 * eps * eps

	// Forward drift mean and proposal
	if m.metric != nil {
		m.invMetric(ps.Value, w.ginv)
		for i, v := range ps.Value {
			w.mean[i] = v + drift*w.ginv[i]*ps.Gradient[i]
			w.proposal[i] = w.mean[i] + eps*math.Sqrt(w.ginv[i])*m.gen.NormFloat64()
		}
	} else {
		floats.AddScaledTo(w.mean, ps.Value, drift, ps.Gradient)
		for i, mu := range w.mean {
			w.proposal[i] = mu + eps*m.gen.NormFloat64()
		}
	}

	lp := m.target.LogProbGrad(w.proposal, w.gradProp)
	if !model.IsFinite(lp) {
		ts.Observe(false)
		return false, nil
	}

	// Backward drift mean from the candidate
	if m.metric != nil {
		m.invMetric(w.proposal, w.ginvProp)
		for i, v := range w.proposal {
			w.meanBack[i] = v + drift*w.ginvProp[i]*w.gradProp[i]
		}
	} else {
		floats.AddScaledTo(w.meanBack, w.proposal, drift, w.gradProp)
	}

	logRatio := lp - ps.LogTarget +
		logqDiag(ps.Value, w.meanBack, eps, w.ginvProp) -
		logqDiag(w.proposal, w.mean, eps, w.ginv)

	accepted := model.IsFinite(logRatio) && math.Log(m.gen.Float64()) < logRatio
	if accepted {
		copy(ps.Value, w.proposal)
		copy(ps.Gradient, w.gradProp)
		ps.LogTarget = lp
	}

	ts.Observe(accepted)
	return accepted, nil
}
