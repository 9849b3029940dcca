// Package mlpsgd trains MLPs with minibatch gradient
// descent.
//
// An Optimiser runs supervised training over all layers of
// a network, while an AutoEncoder pretrains a network one
// layer at a time.
package mlpsgd

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/SamDavies/MLP"
	"github.com/SamDavies/MLP/mlpdata"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// ErrBadHyperparams is returned when an optimiser is
// configured with an invalid learning rate or epoch count.
var ErrBadHyperparams = errors.New("bad hyperparameters")

// ErrNoBatches is returned when an iterator yields no
// batches for an epoch.
var ErrNoBatches = errors.New("iterator produced no batches")

// A Rater determines the learning rate given the epoch
// number.
type Rater interface {
	Rate(epoch int) float64
}

// A ConstRater is a Rater which always returns the same
// constant learning rate.
type ConstRater float64

// Rate returns float64(c).
func (c ConstRater) Rate(epoch int) float64 {
	return float64(c)
}

// EpochStats summarizes one epoch of training.
//
// Costs are averaged over examples.
// Accuracies are only computed for supervised stages and
// are NaN otherwise, as are the validation fields when no
// validation data is used.
type EpochStats struct {
	Stage         int
	Epoch         int
	TrainCost     float64
	TrainAccuracy float64
	ValidCost     float64
	ValidAccuracy float64
}

// A Stage describes what an optimiser trains.
type Stage struct {
	// Net is the network to run forward and backward.
	// Its Cost is the training objective.
	Net *mlp.MLP

	// Trainable selects the layers of Net to update.
	// At least one layer must be trainable.
	Trainable mlp.Mask

	// Target, if non-nil, computes the training target for
	// a batch from the batch and the forward activations.
	// If it is nil, the batch targets are used.
	Target func(b *mlpdata.Batch, acts *mlp.Activations) anyvec.Vector

	// Supervised indicates that outputs are class scores,
	// which enables accuracy measurements.
	Supervised bool

	// Index is the position of the stage in a schedule.
	// It is copied into EpochStats.
	Index int
}

func (s *Stage) target(b *mlpdata.Batch, acts *mlp.Activations) anyvec.Vector {
	if s.Target == nil {
		return b.Targets
	}
	return s.Target(b, acts)
}

// Optimiser performs minibatch gradient descent.
//
// The zero value is not usable: LearningRate (or Rater)
// and MaxEpochs must be set.
type Optimiser struct {
	// LearningRate is the step size.
	LearningRate float64

	// Rater, if non-nil, overrides LearningRate with a
	// per-epoch schedule.
	Rater Rater

	// MaxEpochs is the maximum number of epochs per stage.
	MaxEpochs int

	// Patience enables early stopping when positive.
	// Training stops once the monitored cost has failed to
	// improve by more than Tolerance for Patience epochs in
	// a row.
	// The validation cost is monitored when validation data
	// is given, otherwise the training cost.
	Patience  int
	Tolerance float64

	// StatusFunc, if non-nil, is called after every epoch.
	StatusFunc func(s *EpochStats)

	// Logger, if non-nil, receives one line per epoch.
	Logger *log.Logger

	// Stop, if non-nil, ends training before the next
	// epoch once it is closed or receives a value.
	Stop <-chan struct{}
}

// Train trains every layer of the model against its cost.
//
// The valid iterator may be nil.
func (o *Optimiser) Train(model *mlp.MLP, train, valid mlpdata.Iterator) ([]*EpochStats, error) {
	if err := model.Validate(); err != nil {
		return nil, essentials.AddCtx("train", err)
	}
	stage := &Stage{
		Net:        model,
		Trainable:  mlp.AllTrainable(len(model.Layers)),
		Supervised: true,
	}
	res, err := o.TrainStage(stage, train, valid)
	if err != nil {
		return res, essentials.AddCtx("train", err)
	}
	return res, nil
}

// TrainStage runs the training loop on a stage.
//
// Every epoch resets train, takes one step per batch, and
// then evaluates valid (if non-nil) after resetting it.
// An epoch whose learning rate is not positive fails with
// ErrBadHyperparams before touching the network.
// The stats of completed epochs are returned even when an
// error aborts training.
func (o *Optimiser) TrainStage(s *Stage, train, valid mlpdata.Iterator) ([]*EpochStats, error) {
	if err := o.validate(); err != nil {
		return nil, essentials.AddCtx("train stage", err)
	}
	if err := s.Net.Validate(); err != nil {
		return nil, essentials.AddCtx("train stage", err)
	}
	if len(s.Trainable) != len(s.Net.Layers) {
		return nil, essentials.AddCtx("train stage",
			fmt.Errorf("%w: mask has %d entries for %d layers",
				mlp.ErrShapeMismatch, len(s.Trainable), len(s.Net.Layers)))
	}
	if s.Trainable.Lowest() == len(s.Trainable) {
		return nil, essentials.AddCtx("train stage",
			fmt.Errorf("%w: no trainable layers", ErrBadHyperparams))
	}

	var res []*EpochStats
	best := math.Inf(1)
	var stale int
	for epoch := 0; epoch < o.MaxEpochs; epoch++ {
		if o.stopped() {
			break
		}
		stats := &EpochStats{
			Stage:         s.Index,
			Epoch:         epoch,
			ValidCost:     math.NaN(),
			ValidAccuracy: math.NaN(),
		}

		rate := o.rate(epoch)
		if !(rate > 0) {
			return res, essentials.AddCtx(fmt.Sprintf("epoch %d", epoch),
				fmt.Errorf("%w: learning rate %f", ErrBadHyperparams, rate))
		}

		train.Reset()
		var err error
		stats.TrainCost, stats.TrainAccuracy, err = o.runEpoch(s, train, true, rate)
		if err != nil {
			return res, essentials.AddCtx(fmt.Sprintf("epoch %d", epoch), err)
		}

		monitor := stats.TrainCost
		if valid != nil {
			valid.Reset()
			stats.ValidCost, stats.ValidAccuracy, err = o.runEpoch(s, valid, false, 0)
			if err != nil {
				return res, essentials.AddCtx(fmt.Sprintf("epoch %d validation", epoch), err)
			}
			monitor = stats.ValidCost
		}

		res = append(res, stats)
		o.report(stats)

		if o.Patience > 0 {
			if monitor < best-o.Tolerance {
				best = monitor
				stale = 0
			} else {
				stale++
				if stale >= o.Patience {
					break
				}
			}
		}
	}
	return res, nil
}

// Evaluate computes the mean cost and accuracy of a model
// on a data set without updating it.
// The iterator is reset first.
func (o *Optimiser) Evaluate(model *mlp.MLP, it mlpdata.Iterator) (cost, accuracy float64,
	err error) {
	if err := model.Validate(); err != nil {
		return 0, 0, essentials.AddCtx("evaluate", err)
	}
	stage := &Stage{
		Net:        model,
		Trainable:  mlp.AllTrainable(len(model.Layers)),
		Supervised: true,
	}
	it.Reset()
	cost, accuracy, err = o.runEpoch(stage, it, false, 0)
	if err != nil {
		return 0, 0, essentials.AddCtx("evaluate", err)
	}
	return
}

// runEpoch iterates through the remaining batches of it.
// If update is set, a gradient step of the given rate is
// taken after each batch.
func (o *Optimiser) runEpoch(s *Stage, it mlpdata.Iterator, update bool, rate float64) (cost,
	accuracy float64, err error) {
	var totalCost float64
	var numCorrect, numExamples int
	for {
		batch, ok := it.Next()
		if !ok {
			break
		}
		acts := s.Net.Forward(batch.Inputs, batch.Num)
		target := s.target(batch, acts)
		if target.Len() != acts.Output().Len() {
			return 0, 0, fmt.Errorf("%w: target has %d components for output of %d",
				mlp.ErrShapeMismatch, target.Len(), acts.Output().Len())
		}
		c, err := s.Net.Cost.Cost(acts.Output(), target, batch.Num)
		if err != nil {
			return 0, 0, err
		}
		totalCost += c * float64(batch.Num)
		numExamples += batch.Num
		if s.Supervised {
			numCorrect += countCorrect(acts.Output(), target, batch.Num)
		}
		if update {
			grads := s.Net.Backward(acts, target, s.Trainable.Lowest())
			s.Net.Update(grads, s.Trainable, rate, batch.Num)
		}
	}
	if numExamples == 0 {
		return 0, 0, ErrNoBatches
	}
	cost = totalCost / float64(numExamples)
	accuracy = math.NaN()
	if s.Supervised {
		accuracy = float64(numCorrect) / float64(numExamples)
	}
	return
}

func (o *Optimiser) validate() error {
	if o.MaxEpochs <= 0 {
		return fmt.Errorf("%w: max epochs %d", ErrBadHyperparams, o.MaxEpochs)
	}
	if o.Rater == nil && !(o.LearningRate > 0) {
		return fmt.Errorf("%w: learning rate %f", ErrBadHyperparams, o.LearningRate)
	}
	if o.Patience < 0 || o.Tolerance < 0 {
		return fmt.Errorf("%w: negative convergence settings", ErrBadHyperparams)
	}
	return nil
}

func (o *Optimiser) rate(epoch int) float64 {
	if o.Rater != nil {
		return o.Rater.Rate(epoch)
	}
	return o.LearningRate
}

func (o *Optimiser) stopped() bool {
	if o.Stop == nil {
		return false
	}
	select {
	case <-o.Stop:
		return true
	default:
		return false
	}
}

func (o *Optimiser) report(s *EpochStats) {
	if o.Logger != nil {
		o.Logger.Printf("stage %d epoch %d: train cost=%f acc=%f valid cost=%f acc=%f",
			s.Stage, s.Epoch, s.TrainCost, s.TrainAccuracy, s.ValidCost, s.ValidAccuracy)
	}
	if o.StatusFunc != nil {
		o.StatusFunc(s)
	}
}

func countCorrect(out, target anyvec.Vector, n int) int {
	cols := out.Len() / n
	var res int
	for i := 0; i < n; i++ {
		o := out.Slice(i*cols, (i+1)*cols)
		t := target.Slice(i*cols, (i+1)*cols)
		if anyvec.MaxIndex(o) == anyvec.MaxIndex(t) {
			res++
		}
	}
	return res
}
