package mlp

import (
	"fmt"
	"math"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Cost measures the error of a network's output.
//
// Just like Layers, a Cost is batched: actual and target
// are packed batches of n equally-long vectors.
type Cost interface {
	// Cost returns the mean cost over the batch.
	// It fails with ErrNumericInstability if the result is
	// not finite.
	Cost(actual, target anyvec.Vector, n int) (float64, error)

	// Grad returns the gradient of the summed (not
	// averaged) cost with respect to actual.
	Grad(actual, target anyvec.Vector, n int) anyvec.Vector

	// Name returns a short identifier for logging.
	Name() string
}

// A SoftmaxFuser is a Cost which can compute its gradient
// with respect to the pre-activations of a Softmax layer
// directly.
// This avoids dividing by probabilities that may have
// underflowed.
type SoftmaxFuser interface {
	SoftmaxDelta(actual, target anyvec.Vector, n int) anyvec.Vector
}

// CECost is the cross-entropy cost
//
//	-sum(t * log(y))
//
// averaged over the batch.
// It expects actual values in (0, 1), as produced by a
// Softmax or Sigmoid layer.
type CECost struct{}

// Cost computes the mean cross-entropy.
func (c CECost) Cost(actual, target anyvec.Vector, n int) (float64, error) {
	checkCostArgs(actual, target, n)
	logs := actual.Copy()
	anyvec.Log(logs)
	logs.Mul(target)
	res := -numericFloat(anyvec.Sum(logs)) / float64(n)
	return res, checkFinite("cross-entropy cost", res)
}

// Grad computes -t / y.
func (c CECost) Grad(actual, target anyvec.Vector, n int) anyvec.Vector {
	checkCostArgs(actual, target, n)
	res := target.Copy()
	res.Div(actual)
	res.Scale(res.Creator().MakeNumeric(-1))
	return res
}

// SoftmaxDelta computes y - t, the gradient of the
// cross-entropy with respect to the inputs of a softmax.
func (c CECost) SoftmaxDelta(actual, target anyvec.Vector, n int) anyvec.Vector {
	checkCostArgs(actual, target, n)
	res := actual.Copy()
	res.Sub(target)
	return res
}

// Name returns "ce".
func (c CECost) Name() string {
	return "ce"
}

// MSECost is the squared-error cost
//
//	0.5 * sum((y - t)^2)
//
// averaged over the batch.
type MSECost struct{}

// Cost computes the mean squared error.
func (m MSECost) Cost(actual, target anyvec.Vector, n int) (float64, error) {
	diff := m.Grad(actual, target, n)
	res := 0.5 * numericFloat(diff.Dot(diff)) / float64(n)
	return res, checkFinite("squared-error cost", res)
}

// Grad computes y - t.
func (m MSECost) Grad(actual, target anyvec.Vector, n int) anyvec.Vector {
	checkCostArgs(actual, target, n)
	res := actual.Copy()
	res.Sub(target)
	return res
}

// Name returns "mse".
func (m MSECost) Name() string {
	return "mse"
}

func checkCostArgs(actual, target anyvec.Vector, n int) {
	if actual.Len() != target.Len() {
		panic(fmt.Sprintf("actual length %d does not match target length %d",
			actual.Len(), target.Len()))
	}
	if n <= 0 || actual.Len()%n != 0 {
		panic("batch size must divide output length")
	}
}

func checkFinite(ctx string, x float64) error {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return essentials.AddCtx(ctx, fmt.Errorf("%w: got %v", ErrNumericInstability, x))
	}
	return nil
}
