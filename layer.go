package mlp

import (
	"fmt"

	"github.com/SamDavies/MLP/mlprand"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// DefaultInitRange bounds the uniform distribution used to
// initialize weights in NewLayer.
const DefaultInitRange = 0.1

// A Layer is a fully-connected layer followed by the
// activation selected by Kind.
//
// Weights is an InCount x OutCount row-major matrix, so the
// weight connecting input i to output j is at index
// i*OutCount+j.
// The shapes of Weights and Biases never change after
// construction.
type Layer struct {
	Kind     Kind
	InCount  int
	OutCount int
	Weights  *anydiff.Var
	Biases   *anydiff.Var
}

// LayerGrad stores the result of back-propagating through
// a Layer.
// Weights and Biases are summed over the batch.
type LayerGrad struct {
	Downstream anyvec.Vector
	Weights    anyvec.Vector
	Biases     anyvec.Vector
}

// NewLayer creates a layer with weights drawn uniformly
// from [-DefaultInitRange, DefaultInitRange).
func NewLayer(c anyvec.Creator, k Kind, in, out int, rng *mlprand.Source) *Layer {
	return NewLayerRange(c, k, in, out, DefaultInitRange, rng)
}

// NewLayerRange creates a layer with weights drawn
// uniformly from [-initRange, initRange) and zero biases.
//
// Weights are drawn in row-major order, one draw each, so
// the result depends only on the state of rng and the
// dimensions.
func NewLayerRange(c anyvec.Creator, k Kind, in, out int, initRange float64,
	rng *mlprand.Source) *Layer {
	res := NewLayerZero(c, k, in, out)
	data := make([]float64, in*out)
	for i := range data {
		data[i] = rng.Uniform(-initRange, initRange)
	}
	res.Weights.Vector.SetData(c.MakeNumericList(data))
	return res
}

// NewLayerZero creates a new, zero'd out layer.
func NewLayerZero(c anyvec.Creator, k Kind, in, out int) *Layer {
	if in <= 0 || out <= 0 {
		panic(fmt.Sprintf("invalid layer dimensions %dx%d", in, out))
	}
	return &Layer{
		Kind:     k,
		InCount:  in,
		OutCount: out,
		Weights:  anydiff.NewVar(c.MakeVector(in * out)),
		Biases:   anydiff.NewVar(c.MakeVector(out)),
	}
}

// Weight returns the weight connecting input i to output j.
func (l *Layer) Weight(i, j int) float64 {
	if i < 0 || i >= l.InCount || j < 0 || j >= l.OutCount {
		panic("weight index out of range")
	}
	idx := i*l.OutCount + j
	return numericFloat(anyvec.Sum(l.Weights.Vector.Slice(idx, idx+1)))
}

// Forward applies the layer to a batch of inputs.
// The result is a new vector of batch*OutCount values.
func (l *Layer) Forward(in anyvec.Vector, batch int) anyvec.Vector {
	out := l.affine(in, batch)
	l.Kind.Activate(out, batch)
	return out
}

// Apply applies the layer to a differentiable batch of
// inputs.
// It computes the same values as Forward.
func (l *Layer) Apply(in anydiff.Res, batch int) anydiff.Res {
	l.checkInput(in.Output().Len(), batch)
	inMat := &anydiff.Matrix{
		Data: in,
		Rows: batch,
		Cols: l.InCount,
	}
	weightMat := &anydiff.Matrix{
		Data: l.Weights,
		Rows: l.InCount,
		Cols: l.OutCount,
	}
	weighted := anydiff.MatMul(false, false, inMat, weightMat)
	return l.Kind.Apply(anydiff.AddRepeated(weighted.Data, l.Biases), batch)
}

// Backward back-propagates upstream, the gradient of some
// scalar with respect to the layer's output, through the
// layer.
//
// The in and out arguments are the input and output from
// the corresponding Forward call.
func (l *Layer) Backward(in, out, upstream anyvec.Vector, batch int) *LayerGrad {
	l.checkOutput(out.Len(), batch)
	return l.BackwardDelta(in, l.Kind.Delta(out, upstream, batch), batch)
}

// BackwardDelta is like Backward, but it takes the gradient
// with respect to the layer's pre-activations, skipping the
// activation function.
func (l *Layer) BackwardDelta(in, delta anyvec.Vector, batch int) *LayerGrad {
	return l.backwardDelta(in, delta, batch, true)
}

// Parameters returns a slice containing the weights and
// the biases, in that order.
func (l *Layer) Parameters() []*anydiff.Var {
	return []*anydiff.Var{l.Weights, l.Biases}
}

// Update performs a gradient descent step:
//
//	W -= rate * g.Weights / batch
//	b -= rate * g.Biases / batch
//
// The gradient vectors are scaled in place.
func (l *Layer) Update(g *LayerGrad, rate float64, batch int) {
	grad := anydiff.Grad{
		l.Weights: g.Weights,
		l.Biases:  g.Biases,
	}
	grad.ScaleFloat64(-rate / float64(batch))
	grad.AddToVars()
}

func (l *Layer) backwardDelta(in, delta anyvec.Vector, batch int,
	downstream bool) *LayerGrad {
	l.checkInput(in.Len(), batch)
	l.checkOutput(delta.Len(), batch)

	c := in.Creator()
	one, zero := c.MakeNumeric(1), c.MakeNumeric(0)

	inMat := &anyvec.Matrix{Data: in, Rows: batch, Cols: l.InCount}
	deltaMat := &anyvec.Matrix{Data: delta, Rows: batch, Cols: l.OutCount}
	weightMat := &anyvec.Matrix{Data: l.Weights.Vector, Rows: l.InCount, Cols: l.OutCount}

	res := &LayerGrad{
		Weights: c.MakeVector(l.InCount * l.OutCount),
		Biases:  anyvec.SumRows(delta, l.OutCount),
	}
	gradMat := &anyvec.Matrix{Data: res.Weights, Rows: l.InCount, Cols: l.OutCount}
	gradMat.Product(true, false, one, inMat, deltaMat, zero)

	if downstream {
		res.Downstream = c.MakeVector(batch * l.InCount)
		downMat := &anyvec.Matrix{Data: res.Downstream, Rows: batch, Cols: l.InCount}
		downMat.Product(false, true, one, deltaMat, weightMat, zero)
	}
	return res
}

func (l *Layer) affine(in anyvec.Vector, batch int) anyvec.Vector {
	l.checkInput(in.Len(), batch)
	c := in.Creator()
	out := c.MakeVector(batch * l.OutCount)
	outMat := &anyvec.Matrix{Data: out, Rows: batch, Cols: l.OutCount}
	inMat := &anyvec.Matrix{Data: in, Rows: batch, Cols: l.InCount}
	weightMat := &anyvec.Matrix{Data: l.Weights.Vector, Rows: l.InCount, Cols: l.OutCount}
	outMat.Product(false, false, c.MakeNumeric(1), inMat, weightMat, c.MakeNumeric(0))
	anyvec.AddRepeated(out, l.Biases.Vector)
	return out
}

func (l *Layer) checkInput(n, batch int) {
	if batch*l.InCount != n {
		panic(fmt.Sprintf("input length should be %d, but got %d",
			batch*l.InCount, n))
	}
}

func (l *Layer) checkOutput(n, batch int) {
	if batch*l.OutCount != n {
		panic(fmt.Sprintf("output length should be %d, but got %d",
			batch*l.OutCount, n))
	}
}

func numericFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", n))
	}
}
