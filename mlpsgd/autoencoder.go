package mlpsgd

import (
	"fmt"

	"github.com/SamDavies/MLP"
	"github.com/SamDavies/MLP/mlpdata"
	"github.com/SamDavies/MLP/mlprand"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// An AutoEncoder greedily pretrains the layers of an MLP,
// one at a time, from the bottom up.
//
// Each layer except the last is trained to reconstruct its
// own input through a temporary head layer, while the
// layers below it stay frozen.
// The last layer is trained against the supervised targets
// on top of the frozen layers beneath it.
type AutoEncoder struct {
	Optimiser

	// ReconstructionCost is the objective of the
	// reconstruction stages.
	// If it is nil, mlp.MSECost is used.
	ReconstructionCost mlp.Cost

	// HeadKind is the activation of the temporary heads.
	// The zero value is mlp.Linear.
	HeadKind mlp.Kind

	// HeadRange bounds the initial head weights.
	// If it is 0, mlp.DefaultInitRange is used.
	HeadRange float64

	// Rand initializes the heads.
	Rand *mlprand.Source
}

// Pretrain runs every stage returned by Stages, in order.
//
// The model is checked before any training happens, so a
// broken layer chain fails with mlp.ErrShapeMismatch and
// leaves the model untouched.
// The result contains the epoch stats of each stage that
// was started.
func (a *AutoEncoder) Pretrain(model *mlp.MLP, train, valid mlpdata.Iterator) ([][]*EpochStats,
	error) {
	if err := a.validate(); err != nil {
		return nil, essentials.AddCtx("pretrain", err)
	}
	stages, err := a.Stages(model)
	if err != nil {
		return nil, essentials.AddCtx("pretrain", err)
	}
	var res [][]*EpochStats
	for _, stage := range stages {
		if a.stopped() {
			break
		}
		stats, err := a.TrainStage(stage, train, valid)
		res = append(res, stats)
		if err != nil {
			return res, essentials.AddCtx(fmt.Sprintf("pretrain stage %d", stage.Index), err)
		}
	}
	return res, nil
}

// Stages builds the pretraining schedule for a model
// without training anything.
//
// Stage i trains layer i.
// For every layer but the last, the stage network is the
// model's layers up to and including i, followed by a new
// head mapping back to the input width of layer i.
// Only layer i and the head are trainable, and the target
// is the activation entering layer i.
// The last stage is the whole model with only its last
// layer trainable.
//
// Stage networks share layers with the model, so training
// a stage updates the model in place.
// Heads are drawn from a.Rand.
func (a *AutoEncoder) Stages(model *mlp.MLP) ([]*Stage, error) {
	if err := model.Validate(); err != nil {
		return nil, essentials.AddCtx("build stages", err)
	}
	if a.Rand == nil && len(model.Layers) > 1 {
		return nil, essentials.AddCtx("build stages",
			fmt.Errorf("%w: no random source for heads", ErrBadHyperparams))
	}

	cost := a.ReconstructionCost
	if cost == nil {
		cost = mlp.MSECost{}
	}
	headRange := a.HeadRange
	if headRange == 0 {
		headRange = mlp.DefaultInitRange
	}

	numLayers := len(model.Layers)
	res := make([]*Stage, 0, numLayers)
	for i, layer := range model.Layers[:numLayers-1] {
		c := layer.Weights.Vector.Creator()
		head := mlp.NewLayerRange(c, a.HeadKind, layer.OutCount, layer.InCount, headRange,
			a.Rand)
		net := mlp.NewMLP(cost)
		net.Layers = append(append(net.Layers, model.Layers[:i+1]...), head)
		res = append(res, &Stage{
			Net:       net,
			Trainable: mlp.OnlyTrainable(i+2, i, i+2),
			Target:    reconstructionTarget(i),
			Index:     i,
		})
	}
	res = append(res, &Stage{
		Net:        model,
		Trainable:  mlp.OnlyTrainable(numLayers, numLayers-1, numLayers),
		Supervised: true,
		Index:      numLayers - 1,
	})
	return res, nil
}

func reconstructionTarget(layer int) func(*mlpdata.Batch, *mlp.Activations) anyvec.Vector {
	return func(b *mlpdata.Batch, acts *mlp.Activations) anyvec.Vector {
		return acts.Values[layer]
	}
}
