package buffer

// CircularFloat is a circular buffer of floats used for rolling
// per-iteration diagnostics (e.g. the acceptance indicator over the last N
// steps). Old values are overwritten once the window is full.
type CircularFloat struct {
	buffer    []float64 // actual storage
	pos       int       // Current position in buffer
	BufSize   int       // BufSize is the fixed number of floats maintained in memory
	Count     int       // Count is the number of floats in memory. Will always be <= BufSize
	TotalSeen int64     // TotalSeen is the total number of times Add has been called
}

// NewCircularFloat creates a new circular buffer of totalSize
func NewCircularFloat(totalSize int) *CircularFloat {
	if totalSize < 1 {
		totalSize = 1
	}

	return &CircularFloat{
		buffer:  make([]float64, totalSize),
		pos:     0,
		BufSize: totalSize,
		Count:   0,
	}
}

// Add appends the given float to the buffer, overwriting the oldest entry
func (c *CircularFloat) Add(v float64) {
	c.TotalSeen++

	c.buffer[c.pos] = v
	c.pos = (c.pos + 1) % c.BufSize

	c.Count++
	if c.Count > c.BufSize {
		c.Count = c.BufSize // max out
	}
}

// Mean returns the mean over the values currently in the window. Returns 0
// before the first Add.
func (c *CircularFloat) Mean() float64 {
	if c.Count < 1 {
		return 0.0
	}

	var sum float64
	for i := 0; i < c.Count; i++ {
		sum += c.buffer[i]
	}
	return sum / float64(c.Count)
}
