// Package mlpmnist provides data providers for the MNIST
// database of handwritten digits.
//
// The standard training set is split into a training part
// and a validation part.
// Inputs are pixel intensities in [0, 1], and targets are
// one-hot vectors over the ten digits.
package mlpmnist

import (
	"github.com/SamDavies/MLP/mlpdata"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/mnist"
)

const (
	// NumClasses is the number of digit classes.
	NumClasses = 10

	// NumInputs is the number of pixels in an image.
	NumInputs = 28 * 28

	// TrainSize is the number of training images used for
	// training; the rest are used for validation.
	TrainSize = 50000
)

// Train creates a provider for the first TrainSize images
// of the training set.
func Train(cfg mlpdata.Config) (*mlpdata.Provider, error) {
	ds := mnist.LoadTrainingDataSet()
	ds.Samples = ds.Samples[:TrainSize]
	return newProvider("train", ds, cfg)
}

// Valid creates a provider for the training images which
// Train leaves out.
func Valid(cfg mlpdata.Config) (*mlpdata.Provider, error) {
	ds := mnist.LoadTrainingDataSet()
	ds.Samples = ds.Samples[TrainSize:]
	return newProvider("valid", ds, cfg)
}

// Test creates a provider for the testing set.
func Test(cfg mlpdata.Config) (*mlpdata.Provider, error) {
	return newProvider("test", mnist.LoadTestingDataSet(), cfg)
}

// TestSet returns the raw testing set, which is useful for
// per-digit statistics.
func TestSet() mnist.DataSet {
	return mnist.LoadTestingDataSet()
}

func newProvider(name string, ds mnist.DataSet, cfg mlpdata.Config) (*mlpdata.Provider, error) {
	p, err := mlpdata.NewProvider(ds.IntensityVectors(), ds.LabelVectors(), cfg)
	if err != nil {
		return nil, essentials.AddCtx("load MNIST "+name, err)
	}
	return p, nil
}
