// Package mlpnoise corrupts input batches to synthesize
// extra training examples.
package mlpnoise

import (
	"fmt"

	"github.com/SamDavies/MLP/mlprand"
	"github.com/unixpickle/anyvec"
)

// Noise is a stochastic corruption policy for input
// batches.
//
// Implementations must return a new vector of the same
// length and leave the batch untouched.
// All randomness is drawn from rng.
type Noise interface {
	Apply(batch anyvec.Vector, rng *mlprand.Source) anyvec.Vector
}

// DropoutNoise zeroes each input component independently.
type DropoutNoise struct {
	// The probability of zeroing any given component.
	DropoutProb float64
}

// NewDropoutNoise creates a DropoutNoise, checking that p
// is a probability.
func NewDropoutNoise(p float64) (*DropoutNoise, error) {
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("new dropout noise: probability %f not in [0, 1]", p)
	}
	return &DropoutNoise{DropoutProb: p}, nil
}

// Apply applies dropout to a copy of the batch.
//
// One uniform value is drawn per component, in order, and
// the component is kept if the value is below 1-p.
func (d *DropoutNoise) Apply(batch anyvec.Vector, rng *mlprand.Source) anyvec.Vector {
	c := batch.Creator()
	mask := c.MakeVector(batch.Len())
	anyvec.Rand(mask, anyvec.Uniform, rng.Rand())
	anyvec.LessThan(mask, c.MakeNumeric(1-d.DropoutProb))
	res := batch.Copy()
	res.Mul(mask)
	return res
}
