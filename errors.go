package mlp

import "errors"

// ErrShapeMismatch is returned when layer or dataset
// dimensions do not line up.
// It is fatal for the structure that produced it.
var ErrShapeMismatch = errors.New("shape mismatch")

// ErrNumericInstability is returned when a cost evaluates
// to NaN or infinity.
// It usually indicates a learning rate or configuration
// problem, so it is surfaced rather than clamped.
var ErrNumericInstability = errors.New("numeric instability")
