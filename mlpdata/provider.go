// Package mlpdata provides minibatch iteration over
// in-memory training examples.
package mlpdata

import (
	"fmt"

	"github.com/SamDavies/MLP"
	"github.com/SamDavies/MLP/mlprand"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/essentials"
)

// DefaultSeed seeds the shuffling of a randomized Provider
// when Config.Rand is nil.
var DefaultSeed = []uint32{2015, 10, 1}

// ErrLengthMismatch is returned when inputs and targets do
// not pair up.
var ErrLengthMismatch = fmt.Errorf("%w: inputs and targets differ", mlp.ErrShapeMismatch)

// An Example is a single input paired with its target.
type Example struct {
	Input  anyvec.Vector
	Target anyvec.Vector
}

// A Batch stores inputs and targets in a packed format.
// Row i of Inputs is paired with row i of Targets.
type Batch struct {
	Inputs  anyvec.Vector
	Targets anyvec.Vector
	Num     int
}

// An Iterator produces a finite, restartable sequence of
// minibatches.
type Iterator interface {
	// Reset restarts iteration from the first batch.
	Reset()

	// Next returns the next batch.
	// The second return value is false once the iterator is
	// exhausted, which is not an error.
	Next() (*Batch, bool)

	// BatchSize returns the number of examples per batch.
	BatchSize() int
}

// Config configures a Provider.
type Config struct {
	// BatchSize is the number of examples per batch.
	BatchSize int

	// MaxBatches, if non-zero, limits the number of batches
	// per epoch.
	MaxBatches int

	// Randomize indicates whether Reset shuffles the
	// examples.
	Randomize bool

	// Rand is used for shuffling.
	// If it is nil, a Source seeded with DefaultSeed is
	// used.
	Rand *mlprand.Source

	// Creator creates batch vectors.
	// If it is nil, float64 vectors are used.
	Creator anyvec.Creator
}

// A Provider is an Iterator over an owned, growable list of
// examples.
//
// Inputs and targets are stored as parallel lists which
// always have the same length.
// Shuffling permutes the examples in place, so the
// iteration order is the storage order.
type Provider struct {
	cfg      Config
	x        []anyvec.Vector
	t        []anyvec.Vector
	inCount  int
	outCount int

	batchIdx   int
	poolChosen bool
}

// NewProvider creates a Provider from raw inputs and
// targets.
func NewProvider(x, t [][]float64, cfg Config) (*Provider, error) {
	if len(x) != len(t) {
		return nil, essentials.AddCtx("new provider", ErrLengthMismatch)
	}
	c := cfg.Creator
	if c == nil {
		c = anyvec64.DefaultCreator{}
	}
	xs := make([]anyvec.Vector, len(x))
	ts := make([]anyvec.Vector, len(t))
	for i := range x {
		xs[i] = c.MakeVectorData(c.MakeNumericList(x[i]))
		ts[i] = c.MakeVectorData(c.MakeNumericList(t[i]))
	}
	return NewProviderVecs(xs, ts, cfg)
}

// NewProviderVecs creates a Provider which takes ownership
// of the given vectors.
// All inputs must have the same length, as must all
// targets.
func NewProviderVecs(x, t []anyvec.Vector, cfg Config) (*Provider, error) {
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("new provider: invalid batch size %d", cfg.BatchSize)
	}
	if cfg.MaxBatches < 0 {
		return nil, fmt.Errorf("new provider: invalid max batch count %d", cfg.MaxBatches)
	}
	if cfg.Creator == nil {
		cfg.Creator = anyvec64.DefaultCreator{}
	}
	if cfg.Rand == nil {
		cfg.Rand = mlprand.New(DefaultSeed...)
	}
	p := &Provider{cfg: cfg, inCount: -1, outCount: -1}
	if err := p.Append(x, t); err != nil {
		return nil, essentials.AddCtx("new provider", err)
	}
	return p, nil
}

// Len returns the number of examples.
func (p *Provider) Len() int {
	return len(p.x)
}

// X returns the inputs, in iteration order.
// The returned slice is a copy, but the vectors are shared.
func (p *Provider) X() []anyvec.Vector {
	return append([]anyvec.Vector{}, p.x...)
}

// T returns the targets, in iteration order.
// The returned slice is a copy, but the vectors are shared.
func (p *Provider) T() []anyvec.Vector {
	return append([]anyvec.Vector{}, p.t...)
}

// Example returns the example at the index.
func (p *Provider) Example(idx int) *Example {
	return &Example{Input: p.x[idx], Target: p.t[idx]}
}

// BatchSize returns the number of examples per batch.
func (p *Provider) BatchSize() int {
	return p.cfg.BatchSize
}

// NumBatches returns the number of batches in an epoch.
// Trailing examples which do not fill a batch are skipped.
func (p *Provider) NumBatches() int {
	n := len(p.x) / p.cfg.BatchSize
	if p.cfg.MaxBatches > 0 && p.cfg.MaxBatches < n {
		return p.cfg.MaxBatches
	}
	return n
}

// Swap swaps two examples.
func (p *Provider) Swap(i, j int) {
	p.x[i], p.x[j] = p.x[j], p.x[i]
	p.t[i], p.t[j] = p.t[j], p.t[i]
}

// Reset restarts iteration.
//
// If the Provider is randomized, the examples are shuffled.
// When the batch count is limited, the first Reset picks
// the pool of examples to present and later calls only
// shuffle within that pool.
func (p *Provider) Reset() {
	p.batchIdx = 0
	if !p.cfg.Randomize {
		return
	}
	n := len(p.x)
	if p.cfg.MaxBatches > 0 && p.poolChosen {
		n = essentials.MinInt(n, p.cfg.MaxBatches*p.cfg.BatchSize)
	}
	p.cfg.Rand.Shuffle(n, p.Swap)
	p.poolChosen = true
}

// Next returns the next batch, or false if the epoch is
// over.
func (p *Provider) Next() (*Batch, bool) {
	if p.batchIdx >= p.NumBatches() {
		return nil, false
	}
	size := p.cfg.BatchSize
	start := p.batchIdx * size
	p.batchIdx++
	c := p.cfg.Creator
	return &Batch{
		Inputs:  c.Concat(p.x[start : start+size]...),
		Targets: c.Concat(p.t[start : start+size]...),
		Num:     size,
	}, true
}

// Append adds examples after all existing examples,
// keeping each input paired with its target.
//
// The arguments are validated before anything is added, so
// a failed Append leaves the Provider unchanged.
func (p *Provider) Append(x, t []anyvec.Vector) error {
	if len(x) != len(t) {
		return essentials.AddCtx("append examples", ErrLengthMismatch)
	}
	inCount, outCount := p.inCount, p.outCount
	for i := range x {
		if inCount < 0 {
			inCount, outCount = x[i].Len(), t[i].Len()
		}
		if x[i].Len() != inCount || t[i].Len() != outCount {
			return essentials.AddCtx("append examples",
				fmt.Errorf("%w: example %d has shape %d->%d, expected %d->%d",
					mlp.ErrShapeMismatch, i, x[i].Len(), t[i].Len(), inCount, outCount))
		}
	}
	p.inCount, p.outCount = inCount, outCount
	p.x = append(p.x, x...)
	p.t = append(p.t, t...)
	return nil
}

// AddBatches appends examples, such as corrupted copies of
// existing examples, to a Provider.
func AddBatches(p *Provider, examples []*Example) error {
	x := make([]anyvec.Vector, len(examples))
	t := make([]anyvec.Vector, len(examples))
	for i, e := range examples {
		x[i] = e.Input
		t[i] = e.Target
	}
	return essentials.AddCtx("add batches", p.Append(x, t))
}

// OneHot creates a vector of the given size with a one at
// index label.
func OneHot(c anyvec.Creator, label, size int) anyvec.Vector {
	if label < 0 || label >= size {
		panic(fmt.Sprintf("label %d out of range [0, %d)", label, size))
	}
	data := make([]float64, size)
	data[label] = 1
	return c.MakeVectorData(c.MakeNumericList(data))
}
