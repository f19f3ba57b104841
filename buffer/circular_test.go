package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCircularFloat(t *testing.T) {
	assert := assert.New(t)

	c := NewCircularFloat(4)
	assert.Equal(4, c.BufSize)
	assert.Equal(0, c.Count)
	assert.Equal(0.0, c.Mean())

	c.Add(1.0)
	c.Add(1.0)
	assert.Equal(2, c.Count)
	assert.InDelta(1.0, c.Mean(), 1e-12)

	c.Add(0.0)
	c.Add(0.0)
	assert.Equal(4, c.Count)
	assert.InDelta(0.5, c.Mean(), 1e-12)

	// Window is full: old entries fall out
	c.Add(0.0)
	c.Add(0.0)
	assert.Equal(4, c.Count)
	assert.Equal(int64(6), c.TotalSeen)
	assert.InDelta(0.0, c.Mean(), 1e-12)
}
