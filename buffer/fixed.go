package buffer

import (
	"github.com/pkg/errors"
)

// Rows is a fixed-capacity buffer of float64 rows backed by one contiguous
// allocation. The in-memory output sink preallocates one of these per
// stored sequence; appending past capacity is a hard error, not a resize.
type Rows struct {
	backing  []float64 // actual storage - Capacity*RowLen floats
	RowLen   int       // RowLen is the fixed length of every row
	Capacity int       // Capacity is the fixed number of rows maintained in memory
	Count    int       // Count is the number of rows appended. Will always be <= Capacity
}

// NewRows creates a buffer of capacity rows, each of length rowLen
func NewRows(capacity int, rowLen int) (*Rows, error) {
	if capacity < 1 {
		return nil, errors.Errorf("Invalid row buffer capacity %d", capacity)
	}
	if rowLen < 1 {
		return nil, errors.Errorf("Invalid row length %d", rowLen)
	}

	return &Rows{
		backing:  make([]float64, capacity*rowLen),
		RowLen:   rowLen,
		Capacity: capacity,
		Count:    0,
	}, nil
}

// Add copies the given row into the next free slot
func (r *Rows) Add(row []float64) error {
	if len(row) != r.RowLen {
		return errors.Errorf("Row has len %d but buffer rows are %d", len(row), r.RowLen)
	}
	if r.Count >= r.Capacity {
		return errors.Errorf("Row buffer overflow: capacity is %d rows", r.Capacity)
	}

	copy(r.backing[r.Count*r.RowLen:], row[:r.RowLen])
	r.Count++

	return nil
}

// Row returns the i'th appended row. The slice aliases the buffer's
// storage: callers must not hold it across a later Add.
func (r *Rows) Row(i int) []float64 {
	return r.backing[i*r.RowLen : (i+1)*r.RowLen]
}

// RowCopies returns all appended rows as independent slices
func (r *Rows) RowCopies() [][]float64 {
	out := make([][]float64, r.Count)
	for i := 0; i < r.Count; i++ {
		row := make([]float64, r.RowLen)
		copy(row, r.Row(i))
		out[i] = row
	}
	return out
}

// Floats is a fixed-capacity buffer of scalars with the same
// overflow-is-fatal contract as Rows.
type Floats struct {
	backing  []float64
	Capacity int
	Count    int
}

// NewFloats creates a scalar buffer of the given capacity
func NewFloats(capacity int) (*Floats, error) {
	if capacity < 1 {
		return nil, errors.Errorf("Invalid float buffer capacity %d", capacity)
	}

	return &Floats{
		backing:  make([]float64, capacity),
		Capacity: capacity,
		Count:    0,
	}, nil
}

// Add appends the given value to the next free slot
func (f *Floats) Add(v float64) error {
	if f.Count >= f.Capacity {
		return errors.Errorf("Float buffer overflow: capacity is %d", f.Capacity)
	}

	f.backing[f.Count] = v
	f.Count++

	return nil
}

// Values returns a copy of the appended values
func (f *Floats) Values() []float64 {
	out := make([]float64, f.Count)
	copy(out, f.backing[:f.Count])
	return out
}
