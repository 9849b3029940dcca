// Command pretrain greedily pretrains an MLP on MNIST and
// then fine-tunes the whole network.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/SamDavies/MLP"
	"github.com/SamDavies/MLP/mlpdata"
	"github.com/SamDavies/MLP/mlpmnist"
	"github.com/SamDavies/MLP/mlpnoise"
	"github.com/SamDavies/MLP/mlprand"
	"github.com/SamDavies/MLP/mlpsgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/rip"
)

var Creator anyvec.Creator = anyvec64.DefaultCreator{}

type Flags struct {
	Rate           float64
	Epochs         int
	PretrainEpochs int
	BatchSize      int
	MaxBatches     int
	Hidden         int
	Dropout        float64
	NoiseBatches   int
	Seed           uint
	NoiseSeed      uint
}

func main() {
	var f Flags
	flag.Float64Var(&f.Rate, "rate", 0.5, "learning rate")
	flag.IntVar(&f.Epochs, "epochs", 10, "fine-tuning epochs")
	flag.IntVar(&f.PretrainEpochs, "pretrain-epochs", 5, "pretraining epochs per layer")
	flag.IntVar(&f.BatchSize, "batch", 100, "mini-batch size")
	flag.IntVar(&f.MaxBatches, "batches", 0, "max training batches per epoch (0 for all)")
	flag.IntVar(&f.Hidden, "hidden", 100, "hidden layer size")
	flag.Float64Var(&f.Dropout, "dropout", 0.5, "dropout probability for noisy examples")
	flag.IntVar(&f.NoiseBatches, "noise-batches", 0, "batches of noisy examples to add")
	flag.UintVar(&f.Seed, "seed", 0, "random seed (0 for [2015, 10, 10])")
	flag.UintVar(&f.NoiseSeed, "noise-seed", 1, "random seed for noisy examples")
	flag.Parse()

	rng, noiseRNG, err := newSources(f)
	must(err)

	log.Println("Loading data...")
	train, err := mlpmnist.Train(mlpdata.Config{
		BatchSize:  f.BatchSize,
		MaxBatches: f.MaxBatches,
		Randomize:  true,
		Creator:    Creator,
	})
	must(err)
	valid, err := mlpmnist.Valid(mlpdata.Config{BatchSize: f.BatchSize, Creator: Creator})
	must(err)
	test, err := mlpmnist.Test(mlpdata.Config{BatchSize: f.BatchSize, Creator: Creator})
	must(err)

	if f.NoiseBatches > 0 {
		log.Printf("Adding %d batches of noisy examples...", f.NoiseBatches)
		must(addNoise(train, f, noiseRNG))
	}

	model, err := newModel(f, rng)
	must(err)

	logger := log.New(os.Stderr, "", log.LstdFlags)

	log.Println("Pretraining...")
	ae := &mlpsgd.AutoEncoder{
		Optimiser: mlpsgd.Optimiser{
			LearningRate: f.Rate,
			MaxEpochs:    f.PretrainEpochs,
			Logger:       logger,
		},
		Rand: rng,
	}
	_, err = ae.Pretrain(model, train, valid)
	must(err)

	log.Println("Fine-tuning (press ctrl+c once to stop)...")
	r := rip.NewRIP()
	defer r.Close()
	opt := &mlpsgd.Optimiser{
		LearningRate: f.Rate,
		MaxEpochs:    f.Epochs,
		Patience:     3,
		Tolerance:    1e-4,
		Logger:       logger,
		Stop:         r.Chan(),
	}
	_, err = opt.Train(model, train, valid)
	must(err)

	log.Println("Computing statistics...")
	cost, acc, err := opt.Evaluate(model, test)
	must(err)
	log.Printf("Test: cost=%f accuracy=%f", cost, acc)
	printHistogram(model)
}

// newSources creates the source used for weights and
// pretraining heads, and a separate source for noise, so
// adding noisy examples does not change the initialization.
func newSources(f Flags) (model, noise *mlprand.Source, err error) {
	if f.Seed > math.MaxUint32 || f.NoiseSeed > math.MaxUint32 {
		return nil, nil, fmt.Errorf("seeds must fit in 32 bits")
	}
	model = mlprand.New(2015, 10, 10)
	if f.Seed != 0 {
		model = mlprand.New(uint32(f.Seed))
	}
	return model, mlprand.New(uint32(f.NoiseSeed)), nil
}

func newModel(f Flags, rng *mlprand.Source) (*mlp.MLP, error) {
	model := mlp.NewMLP(mlp.CECost{})
	for _, l := range []*mlp.Layer{
		mlp.NewLayer(Creator, mlp.Sigmoid, mlpmnist.NumInputs, f.Hidden, rng),
		mlp.NewLayer(Creator, mlp.Sigmoid, f.Hidden, f.Hidden, rng),
		mlp.NewLayer(Creator, mlp.Softmax, f.Hidden, mlpmnist.NumClasses, rng),
	} {
		if err := model.AddLayer(l); err != nil {
			return nil, err
		}
	}
	return model, nil
}

func addNoise(train *mlpdata.Provider, f Flags, rng *mlprand.Source) error {
	noise, err := mlpnoise.NewDropoutNoise(f.Dropout)
	if err != nil {
		return err
	}
	maker := &mlpnoise.NoiseMaker{
		DataSet:    train,
		NumBatches: f.NoiseBatches,
		Noise:      noise,
	}
	train.Reset()
	examples, err := maker.MakeExamples(rng)
	if err != nil {
		return err
	}
	return mlpnoise.AddBatches(train, examples)
}

func printHistogram(model *mlp.MLP) {
	ts := mlpmnist.TestSet()
	log.Println("Histogram:", ts.CorrectnessHistogram(func(in []float64) int {
		vec := Creator.MakeVectorData(Creator.MakeNumericList(in))
		return anyvec.MaxIndex(model.Forward(vec, 1).Output())
	}))
}

func must(err error) {
	if err != nil {
		essentials.Die(err)
	}
}
