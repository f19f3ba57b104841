package rand

import (
	mrand "math/rand"

	"github.com/seehuhn/mt19937"
)

// A Generator is a seeded PRNG based on the Mersenne twister. Every chain
// owns exactly one Generator, so a run is reproducible from its seed alone
// and chains running in parallel never share random state.
type Generator struct {
	rnd *mrand.Rand
}

// NewGenerator returns a new PRNG seeded with the given seed
func NewGenerator(seed int64) (*Generator, error) {
	src := mt19937.New()
	src.Seed(seed)

	g := &Generator{
		rnd: mrand.New(src),
	}

	return g, nil
}

// Int63n returns a uniform int in [0, n) - same interface as Go's math/rand
func (g *Generator) Int63n(n int64) int64 {
	return g.rnd.Int63n(n)
}

// Float64 returns a uniform float in [0, 1)
func (g *Generator) Float64() float64 {
	return g.rnd.Float64()
}

// NormFloat64 returns a standard normal variate
func (g *Generator) NormFloat64() float64 {
	return g.rnd.NormFloat64()
}

// ExpFloat64 returns an Exp(1) variate (used for log-uniform slice heights)
func (g *Generator) ExpFloat64() float64 {
	return g.rnd.ExpFloat64()
}

// NormVector fills dst with independent standard normal variates
func (g *Generator) NormVector(dst []float64) {
	for i := range dst {
		dst[i] = g.rnd.NormFloat64()
	}
}
