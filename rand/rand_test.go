package rand

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneratorDeterminism(t *testing.T) {
	assert := assert.New(t)

	g1, err := NewGenerator(42)
	assert.NoError(err)
	g2, err := NewGenerator(42)
	assert.NoError(err)

	for i := 0; i < 100; i++ {
		assert.Equal(g1.Float64(), g2.Float64())
		assert.Equal(g1.NormFloat64(), g2.NormFloat64())
		assert.Equal(g1.ExpFloat64(), g2.ExpFloat64())
	}

	g3, err := NewGenerator(43)
	assert.NoError(err)

	same := 0
	for i := 0; i < 100; i++ {
		if g1.Float64() == g3.Float64() {
			same++
		}
	}
	assert.True(same < 100, "Different seeds produced identical streams")
}

func TestGeneratorRanges(t *testing.T) {
	assert := assert.New(t)

	g, err := NewGenerator(1)
	assert.NoError(err)

	for i := 0; i < 1000; i++ {
		f := g.Float64()
		assert.True(f >= 0.0 && f < 1.0)

		e := g.ExpFloat64()
		assert.True(e >= 0.0)

		n := g.Int63n(10)
		assert.True(n >= 0 && n < 10)
	}
}

func TestNormVector(t *testing.T) {
	assert := assert.New(t)

	g, err := NewGenerator(7)
	assert.NoError(err)

	v := make([]float64, 10000)
	g.NormVector(v)

	var sum float64
	for _, x := range v {
		sum += x
	}
	mean := sum / float64(len(v))
	assert.InDelta(0.0, mean, 0.05)
}
