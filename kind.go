package mlp

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// A Kind identifies the activation a Layer applies after
// its affine transform.
//
// The set of kinds is closed; new layer variants are added
// by extending it.
type Kind int

// These are the supported layer kinds.
const (
	Linear Kind = iota
	Sigmoid
	Softmax
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case Linear:
		return "Linear"
	case Sigmoid:
		return "Sigmoid"
	case Softmax:
		return "Softmax"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Apply applies the activation to a differentiable batch
// of pre-activations with n rows.
func (k Kind) Apply(in anydiff.Res, n int) anydiff.Res {
	switch k {
	case Linear:
		return in
	case Sigmoid:
		return anydiff.Sigmoid(in)
	case Softmax:
		inLen := in.Output().Len()
		if inLen%n != 0 {
			panic("batch size must divide input length")
		}
		return anydiff.Exp(anydiff.LogSoftmax(in, inLen/n))
	default:
		panic(fmt.Sprintf("unknown layer kind: %d", k))
	}
}

// Activate applies the activation in place to a batch of
// pre-activations with n rows.
//
// Softmax is computed as exp(logsoftmax(x)), which
// subtracts each row's maximum before exponentiating.
func (k Kind) Activate(v anyvec.Vector, n int) {
	switch k {
	case Linear:
	case Sigmoid:
		anyvec.Sigmoid(v)
	case Softmax:
		if v.Len()%n != 0 {
			panic("batch size must divide input length")
		}
		anyvec.LogSoftmax(v, v.Len()/n)
		anyvec.Exp(v)
	default:
		panic(fmt.Sprintf("unknown layer kind: %d", k))
	}
}

// Delta maps the upstream gradient with respect to the
// activation's output to the gradient with respect to its
// input, given the activation's output for a batch of n
// rows.
// Neither argument is modified.
func (k Kind) Delta(out, upstream anyvec.Vector, n int) anyvec.Vector {
	if out.Len() != upstream.Len() {
		panic("output and upstream lengths differ")
	}
	switch k {
	case Linear:
		return upstream.Copy()
	case Sigmoid:
		// upstream * out * (1 - out)
		delta := out.Copy()
		anyvec.Complement(delta)
		delta.Mul(out)
		delta.Mul(upstream)
		return delta
	case Softmax:
		// out * (upstream - <upstream, out>), per row
		prod := upstream.Copy()
		prod.Mul(out)
		dots := anyvec.SumCols(prod, n)
		dots.Scale(dots.Creator().MakeNumeric(-1))
		delta := upstream.Copy()
		anyvec.AddChunks(delta, dots)
		delta.Mul(out)
		return delta
	default:
		panic(fmt.Sprintf("unknown layer kind: %d", k))
	}
}
