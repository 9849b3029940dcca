// Package mlp provides multilayer perceptrons with explicit
// forward and backward passes.
//
// Sub-packages provide data providers, input noise, a
// numpy-compatible random source, and optimisers for
// supervised training and greedy layer-wise pretraining.
package mlp

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// An MLP evaluates a stack of layers, one after another.
//
// The MLP owns its layers.
// Adjacent layers must agree on dimensions, which AddLayer
// and Validate enforce.
type MLP struct {
	Cost   Cost
	Layers []*Layer
}

// NewMLP creates an empty MLP which is trained against the
// given cost.
func NewMLP(c Cost) *MLP {
	return &MLP{Cost: c}
}

// AddLayer appends a layer to the top of the stack.
//
// It fails with ErrShapeMismatch if the layer's input
// count does not match the previous layer's output count.
func (m *MLP) AddLayer(l *Layer) error {
	if len(m.Layers) > 0 {
		if err := checkLink(len(m.Layers), m.Layers[len(m.Layers)-1], l); err != nil {
			return essentials.AddCtx("add layer", err)
		}
	}
	m.Layers = append(m.Layers, l)
	return nil
}

// Validate checks every link in the layer chain.
func (m *MLP) Validate() error {
	if len(m.Layers) == 0 {
		return essentials.AddCtx("validate MLP",
			fmt.Errorf("%w: no layers", ErrShapeMismatch))
	}
	for i := 1; i < len(m.Layers); i++ {
		if err := checkLink(i, m.Layers[i-1], m.Layers[i]); err != nil {
			return essentials.AddCtx("validate MLP", err)
		}
	}
	return nil
}

// InCount returns the input width of the first layer.
func (m *MLP) InCount() int {
	return m.Layers[0].InCount
}

// OutCount returns the output width of the last layer.
func (m *MLP) OutCount() int {
	return m.Layers[len(m.Layers)-1].OutCount
}

// Activations stores the values flowing through an MLP
// during a forward pass.
//
// Values[0] is the input and Values[i+1] is the output of
// layer i.
type Activations struct {
	Values []anyvec.Vector
	Batch  int
}

// Output returns the output of the last layer.
func (a *Activations) Output() anyvec.Vector {
	return a.Values[len(a.Values)-1]
}

// Forward runs the batch through every layer.
// If the MLP contains no layers, the input is returned as
// the output.
func (m *MLP) Forward(in anyvec.Vector, batch int) *Activations {
	res := &Activations{
		Values: make([]anyvec.Vector, 1, len(m.Layers)+1),
		Batch:  batch,
	}
	res.Values[0] = in
	for _, l := range m.Layers {
		in = l.Forward(in, batch)
		res.Values = append(res.Values, in)
	}
	return res
}

// Apply applies the network to a differentiable batch.
func (m *MLP) Apply(in anydiff.Res, batch int) anydiff.Res {
	for _, l := range m.Layers {
		in = l.Apply(in, batch)
	}
	return in
}

// Backward computes the cost gradient at the output and
// propagates it down through the layers, stopping after
// layer lowest.
//
// The result has one entry per layer; entries below lowest
// are nil.
// The Downstream vector of layer lowest is only computed
// when lowest is 0, in which case it is the gradient with
// respect to the MLP's input.
func (m *MLP) Backward(acts *Activations, target anyvec.Vector, lowest int) []*LayerGrad {
	if len(acts.Values) != len(m.Layers)+1 {
		panic("activation count does not match layer count")
	}
	if lowest < 0 || lowest >= len(m.Layers) {
		panic(fmt.Sprintf("lowest layer %d out of range", lowest))
	}

	batch := acts.Batch
	res := make([]*LayerGrad, len(m.Layers))

	top := len(m.Layers) - 1
	var delta anyvec.Vector
	if f, ok := m.Cost.(SoftmaxFuser); ok && m.Layers[top].Kind == Softmax {
		delta = f.SoftmaxDelta(acts.Output(), target, batch)
	} else {
		upstream := m.Cost.Grad(acts.Output(), target, batch)
		delta = m.Layers[top].Kind.Delta(acts.Output(), upstream, batch)
	}

	for i := top; i >= lowest; i-- {
		l := m.Layers[i]
		wantDown := i > lowest || lowest == 0
		res[i] = l.backwardDelta(acts.Values[i], delta, batch, wantDown)
		if i > lowest {
			delta = m.Layers[i-1].Kind.Delta(acts.Values[i], res[i].Downstream, batch)
		}
	}
	return res
}

// Update applies a gradient descent step to every layer
// that is trainable according to the mask.
func (m *MLP) Update(grads []*LayerGrad, trainable Mask, rate float64, batch int) {
	if len(grads) != len(m.Layers) || len(trainable) != len(m.Layers) {
		panic("gradient, mask and layer counts differ")
	}
	for i, l := range m.Layers {
		if !trainable[i] {
			continue
		}
		if grads[i] == nil {
			panic(fmt.Sprintf("no gradient for trainable layer %d", i))
		}
		l.Update(grads[i], rate, batch)
	}
}

// Parameters returns the parameters of the network,
// ordered from the first layer onwards.
func (m *MLP) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, l := range m.Layers {
		res = append(res, l.Parameters()...)
	}
	return res
}

func checkLink(idx int, prev, next *Layer) error {
	if prev.OutCount != next.InCount {
		return fmt.Errorf("%w: layer %d expects %d inputs but layer %d outputs %d",
			ErrShapeMismatch, idx, next.InCount, idx-1, prev.OutCount)
	}
	return nil
}
