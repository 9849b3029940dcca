package mlpnoise

import (
	"errors"

	"github.com/SamDavies/MLP/mlpdata"
	"github.com/SamDavies/MLP/mlprand"
	"github.com/unixpickle/essentials"
)

// A NoiseMaker produces corrupted copies of the examples in
// a data set.
type NoiseMaker struct {
	// DataSet supplies the batches to corrupt.
	// Batches are read from its current position, so callers
	// normally reset it first.
	DataSet mlpdata.Iterator

	// NumBatches is the maximum number of batches to read.
	NumBatches int

	Noise Noise
}

// MakeExamples reads up to NumBatches batches and returns
// one example per row, in iteration order.
// Each example pairs a corrupted input with the original
// target.
func (n *NoiseMaker) MakeExamples(rng *mlprand.Source) ([]*mlpdata.Example, error) {
	if n.NumBatches < 0 {
		return nil, errors.New("make examples: negative batch count")
	}
	var res []*mlpdata.Example
	for i := 0; i < n.NumBatches; i++ {
		batch, ok := n.DataSet.Next()
		if !ok {
			break
		}
		if batch.Num <= 0 || batch.Inputs.Len()%batch.Num != 0 ||
			batch.Targets.Len()%batch.Num != 0 {
			return nil, essentials.AddCtx("make examples",
				errors.New("batch is not evenly divided into rows"))
		}
		noisy := n.Noise.Apply(batch.Inputs, rng)
		inCount := batch.Inputs.Len() / batch.Num
		outCount := batch.Targets.Len() / batch.Num
		for j := 0; j < batch.Num; j++ {
			res = append(res, &mlpdata.Example{
				Input:  noisy.Slice(j*inCount, (j+1)*inCount).Copy(),
				Target: batch.Targets.Slice(j*outCount, (j+1)*outCount).Copy(),
			})
		}
	}
	return res, nil
}

// AddBatches appends examples to a provider.
// It is equivalent to mlpdata.AddBatches.
func AddBatches(p *mlpdata.Provider, examples []*mlpdata.Example) error {
	return mlpdata.AddBatches(p, examples)
}
