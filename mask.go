package mlp

// A Mask marks which layers of an MLP may be updated.
// Mask[i] corresponds to layer i.
type Mask []bool

// AllTrainable creates a mask where every one of n layers
// is trainable.
func AllTrainable(n int) Mask {
	return OnlyTrainable(n, 0, n)
}

// OnlyTrainable creates a mask for n layers where only the
// layers in [lo, hi) are trainable.
func OnlyTrainable(n, lo, hi int) Mask {
	if lo < 0 || hi > n || lo > hi {
		panic("trainable range out of bounds")
	}
	res := make(Mask, n)
	for i := lo; i < hi; i++ {
		res[i] = true
	}
	return res
}

// Lowest returns the index of the first trainable layer,
// or len(m) if no layer is trainable.
func (m Mask) Lowest() int {
	for i, t := range m {
		if t {
			return i
		}
	}
	return len(m)
}
