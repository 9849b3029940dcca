package mlpnoise

import (
	"testing"

	"github.com/SamDavies/MLP/mlpdata"
	"github.com/SamDavies/MLP/mlpmnist"
	"github.com/SamDavies/MLP/mlprand"
)

func TestAddNoiseMNIST(t *testing.T) {
	if testing.Short() {
		t.Skip("loading MNIST is slow")
	}
	train, err := mlpmnist.Train(mlpdata.Config{
		BatchSize:  100,
		MaxBatches: 1,
		Randomize:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	train.Reset()

	rng := mlprand.New(2015, 10, 10)
	maker := &NoiseMaker{
		DataSet:    train,
		NumBatches: 1,
		Noise:      &DropoutNoise{DropoutProb: 0.5},
	}
	examples, err := maker.MakeExamples(rng)
	if err != nil {
		t.Fatal(err)
	}
	if err := AddBatches(train, examples); err != nil {
		t.Fatal(err)
	}

	if train.Len() != 50100 {
		t.Fatalf("expected 50100 examples but got %d", train.Len())
	}
	targets := train.T()
	t99 := targets[99].Data().([]float64)
	t50099 := targets[50099].Data().([]float64)
	for i, x := range t99 {
		if t50099[i] != x {
			t.Fatalf("targets differ: %v vs %v", t99, t50099)
		}
	}
}
