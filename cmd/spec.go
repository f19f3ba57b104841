package cmd

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jmtrask/stoker/model"
	"github.com/jmtrask/stoker/rand"
	"github.com/jmtrask/stoker/sampler"
)

// RunSpec is the YAML configuration for one sampling run. Everything the
// engine needs is a value here; there is no flag soup beyond the spec file
// itself.
type RunSpec struct {
	Target struct {
		Name   string    `yaml:"name"` // normal | diagnormal | rosenbrock
		Dim    int       `yaml:"dim"`
		Mean   []float64 `yaml:"mean"`
		Stddev []float64 `yaml:"stddev"`
	} `yaml:"target"`

	Algorithm struct {
		Name      string    `yaml:"name"` // rwm | slice | mala | smmala | hmc | nuts
		Widths    []float64 `yaml:"widths"`
		StepOut   int       `yaml:"stepout"`
		Leapfrogs int       `yaml:"leapfrogs"`
		MaxDepth  int       `yaml:"maxdepth"`
	} `yaml:"algorithm"`

	Tuner struct {
		Rate   float64 `yaml:"rate"`
		Window int     `yaml:"window"`
		Scale  float64 `yaml:"scale"`
	} `yaml:"tuner"`

	Range struct {
		Steps    int `yaml:"steps"`
		BurnIn   int `yaml:"burnin"`
		Thinning int `yaml:"thinning"`
	} `yaml:"range"`

	Output struct {
		Destination string `yaml:"destination"` // memory | stream
		Path        string `yaml:"path"`
	} `yaml:"output"`

	Initial []float64 `yaml:"initial"`
	Chains  int       `yaml:"chains"`
	Seed    int64     `yaml:"seed"`
	Mode    string    `yaml:"mode"` // direct | suspendable
}

// ReadRunSpec parses and lightly normalizes a YAML run spec
func ReadRunSpec(data []byte) (*RunSpec, error) {
	rs := &RunSpec{}
	if err := yaml.Unmarshal(data, rs); err != nil {
		return nil, errors.Wrap(err, "Could not PARSE run spec")
	}

	if rs.Chains < 1 {
		rs.Chains = 1
	}
	if rs.Range.Thinning < 1 {
		rs.Range.Thinning = 1
	}
	if rs.Tuner.Window < 1 {
		rs.Tuner.Window = 100
	}
	if rs.Tuner.Scale == 0.0 {
		rs.Tuner.Scale = 1.0
	}
	if rs.Output.Destination == "" {
		rs.Output.Destination = "memory"
	}
	if rs.Mode == "" {
		rs.Mode = "direct"
	}

	return rs, nil
}

// ReadRunSpecFile reads and parses a YAML run spec from disk
func ReadRunSpecFile(filename string) (*RunSpec, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not READ run spec from %s", filename)
	}
	return ReadRunSpec(data)
}

// BuildTarget resolves the target section into a model instance
func (rs *RunSpec) BuildTarget() (model.Target, error) {
	switch rs.Target.Name {
	case "normal":
		return model.NewNormal(rs.Target.Dim)
	case "diagnormal":
		return model.NewDiagNormal(rs.Target.Mean, rs.Target.Stddev)
	case "rosenbrock":
		return model.NewRosenbrock(), nil
	default:
		return nil, errors.Errorf("Unknown target %q", rs.Target.Name)
	}
}

// BuildAlgorithm resolves the algorithm section against a target and a
// per-chain generator
func (rs *RunSpec) BuildAlgorithm(gen *rand.Generator, target model.Target) (sampler.Algorithm, error) {
	switch rs.Algorithm.Name {
	case "rwm":
		return sampler.NewRWM(gen, target)
	case "slice":
		return sampler.NewSlice(gen, target, rs.Algorithm.Widths, rs.Algorithm.StepOut)
	case "mala":
		gt, ok := target.(model.GradTarget)
		if !ok {
			return nil, errors.Errorf("Target %q has no gradient - required for mala", rs.Target.Name)
		}
		return sampler.NewMALA(gen, gt)
	case "smmala":
		ht, ok := target.(model.HessTarget)
		if !ok {
			return nil, errors.Errorf("Target %q has no Hessian - required for smmala", rs.Target.Name)
		}
		return sampler.NewManifoldMALA(gen, ht)
	case "hmc":
		gt, ok := target.(model.GradTarget)
		if !ok {
			return nil, errors.Errorf("Target %q has no gradient - required for hmc", rs.Target.Name)
		}
		return sampler.NewHMC(gen, gt, rs.Algorithm.Leapfrogs)
	case "nuts":
		gt, ok := target.(model.GradTarget)
		if !ok {
			return nil, errors.Errorf("Target %q has no gradient - required for nuts", rs.Target.Name)
		}
		return sampler.NewNUTS(gen, gt, rs.Algorithm.MaxDepth)
	default:
		return nil, errors.Errorf("Unknown algorithm %q", rs.Algorithm.Name)
	}
}

// BuildMode resolves the execution mode string
func (rs *RunSpec) BuildMode() (sampler.Mode, error) {
	switch rs.Mode {
	case "direct":
		return sampler.ModeDirect, nil
	case "suspendable":
		return sampler.ModeSuspendable, nil
	default:
		return 0, errors.Errorf("Unknown execution mode %q", rs.Mode)
	}
}

// BuildDestination resolves the output destination string once, up front
func (rs *RunSpec) BuildDestination() (sampler.Destination, error) {
	switch rs.Output.Destination {
	case "memory":
		return sampler.DestMemory, nil
	case "stream":
		return sampler.DestStream, nil
	default:
		return 0, errors.Errorf("Unknown output destination %q", rs.Output.Destination)
	}
}

// InitialValue returns the configured starting point, defaulting to the
// origin in the target's dimension
func (rs *RunSpec) InitialValue(target model.Target) []float64 {
	if len(rs.Initial) > 0 {
		x := make([]float64, len(rs.Initial))
		copy(x, rs.Initial)
		return x
	}
	return make([]float64, target.Dim())
}
