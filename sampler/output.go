package sampler

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/jmtrask/stoker/buffer"
)

// Destination selects where saved states go. It is resolved once at Job
// construction; there is no runtime string dispatch on the hot path.
type Destination int

// Supported output destinations
const (
	DestMemory Destination = iota // preallocated in-memory buffers
	DestStream                    // JSON-lines records appended to a writer
)

// OutputConfig describes the output side of a Job
type OutputConfig struct {
	Destination   Destination
	Writer        io.Writer // required for DestStream
	WithGradients bool      // also persist per-sample gradients (memory only)
}

// Chain is the finished output artifact: the saved samples with their
// log-targets, per-iteration diagnostics, and enough provenance to know
// exactly how they were produced. It is immutable once returned by
// Job.Close.
type Chain struct {
	JobID       string               `json:"jobid"`
	Algorithm   string               `json:"algorithm"`
	Range       *Range               `json:"range"`
	Samples     [][]float64          `json:"samples,omitempty"`
	LogTargets  []float64            `json:"logtargets,omitempty"`
	Gradients   [][]float64          `json:"gradients,omitempty"`
	Diagnostics map[string][]float64 `json:"diagnostics,omitempty"`
	RunTime     float64              `json:"runtime"` // seconds
}

// Check validates the parallel-sequence invariants of an assembled chain
func (c *Chain) Check() error {
	if len(c.Samples) != len(c.LogTargets) {
		return errors.Errorf("Chain has %d samples but %d logtargets", len(c.Samples), len(c.LogTargets))
	}
	if c.Gradients != nil && len(c.Gradients) != len(c.Samples) {
		return errors.Errorf("Chain has %d samples but %d gradients", len(c.Samples), len(c.Gradients))
	}
	for i, g := range c.Gradients {
		if len(g) != len(c.Samples[i]) {
			return errors.Errorf("Gradient %d has dim %d but sample has dim %d", i, len(g), len(c.Samples[i]))
		}
	}
	for name, vals := range c.Diagnostics {
		if len(vals) != len(c.Samples) {
			return errors.Errorf("Diagnostic %q has %d values but chain has %d samples", name, len(vals), len(c.Samples))
		}
	}
	return nil
}

// A Sink accumulates saved states in iteration order. Exactly one concrete
// sink backs every Job; Close finalizes it and hands the Chain to the
// caller.
type Sink interface {
	Save(ps *State, diag map[string]float64) error
	Close() (*Chain, error)
}

// NewSink resolves an output config into a concrete sink sized for
// capacity saved samples of dimension dim. Any destination other than the
// two supported ones is a fatal configuration error.
func NewSink(cfg OutputConfig, capacity int, dim int) (Sink, error) {
	switch cfg.Destination {
	case DestMemory:
		return newMemorySink(capacity, dim, cfg.WithGradients)
	case DestStream:
		if cfg.Writer == nil {
			return nil, errors.New("Stream destination requires a writer")
		}
		return newStreamSink(cfg.Writer), nil
	default:
		return nil, errors.Errorf("Invalid output destination %d", cfg.Destination)
	}
}

// memorySink copies every saved state into preallocated fixed-size
// buffers. Overflow is fatal.
type memorySink struct {
	samples    *buffer.Rows
	logtargets *buffer.Floats
	gradients  *buffer.Rows
	diag       map[string]*buffer.Floats
	capacity   int
}

func newMemorySink(capacity int, dim int, withGrad bool) (*memorySink, error) {
	samples, err := buffer.NewRows(capacity, dim)
	if err != nil {
		return nil, errors.Wrap(err, "Could not allocate sample storage")
	}
	logtargets, err := buffer.NewFloats(capacity)
	if err != nil {
		return nil, errors.Wrap(err, "Could not allocate logtarget storage")
	}

	s := &memorySink{
		samples:    samples,
		logtargets: logtargets,
		diag:       make(map[string]*buffer.Floats),
		capacity:   capacity,
	}

	if withGrad {
		s.gradients, err = buffer.NewRows(capacity, dim)
		if err != nil {
			return nil, errors.Wrap(err, "Could not allocate gradient storage")
		}
	}

	return s, nil
}

func (s *memorySink) Save(ps *State, diag map[string]float64) error {
	if err := s.samples.Add(ps.Value); err != nil {
		return errors.Wrap(err, "In-memory sink is full")
	}
	if err := s.logtargets.Add(ps.LogTarget); err != nil {
		return errors.Wrap(err, "In-memory sink is full")
	}
	if s.gradients != nil {
		if ps.Gradient == nil {
			return errors.New("Sink expects gradients but state has none")
		}
		if err := s.gradients.Add(ps.Gradient); err != nil {
			return errors.Wrap(err, "In-memory sink is full")
		}
	}

	for name, val := range diag {
		b, ok := s.diag[name]
		if !ok {
			var err error
			b, err = buffer.NewFloats(s.capacity)
			if err != nil {
				return errors.Wrapf(err, "Could not allocate diagnostic %q", name)
			}
			s.diag[name] = b
		}
		if err := b.Add(val); err != nil {
			return errors.Wrapf(err, "Diagnostic %q overflow", name)
		}
	}

	return nil
}

func (s *memorySink) Close() (*Chain, error) {
	ch := &Chain{
		Samples:    s.samples.RowCopies(),
		LogTargets: s.logtargets.Values(),
	}
	if s.gradients != nil {
		ch.Gradients = s.gradients.RowCopies()
	}
	if len(s.diag) > 0 {
		ch.Diagnostics = make(map[string][]float64, len(s.diag))
		for name, b := range s.diag {
			ch.Diagnostics[name] = b.Values()
		}
	}
	return ch, nil
}

// streamRecord is one serialized saved state
type streamRecord struct {
	Index       int                `json:"index"`
	Value       []float64          `json:"value"`
	LogTarget   float64            `json:"logtarget"`
	Diagnostics map[string]float64 `json:"diagnostics,omitempty"`
}

// streamSink appends one JSON record per saved state and keeps nothing in
// memory. The resulting Chain carries provenance only.
type streamSink struct {
	w     *bufio.Writer
	enc   *json.Encoder
	count int
}

func newStreamSink(w io.Writer) *streamSink {
	bw := bufio.NewWriter(w)
	return &streamSink{
		w:   bw,
		enc: json.NewEncoder(bw),
	}
}

func (s *streamSink) Save(ps *State, diag map[string]float64) error {
	rec := streamRecord{
		Index:       s.count,
		Value:       ps.Value,
		LogTarget:   ps.LogTarget,
		Diagnostics: diag,
	}
	if err := s.enc.Encode(&rec); err != nil {
		return errors.Wrap(err, "Could not write stream record")
	}
	s.count++
	return nil
}

func (s *streamSink) Close() (*Chain, error) {
	if err := s.w.Flush(); err != nil {
		return nil, errors.Wrap(err, "Could not flush stream sink")
	}
	return &Chain{}, nil
}
