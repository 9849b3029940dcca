// Package mlprand provides an explicit, seedable source of
// randomness for training.
//
// The generator is a 32-bit Mersenne Twister which is seeded
// and sampled in the same way as numpy's legacy RandomState,
// so weight initializations, dropout masks and shuffles can
// be reproduced bit-for-bit across implementations.
package mlprand

import (
	"encoding/binary"
	"math/rand"

	"gonum.org/v1/gonum/mathext/prng"
)

const (
	stateWords = 624
	defaultKey = 5489
	doubleUnit = 1.0 / 9007199254740992.0
)

// State is a snapshot of a Source.
// It is a plain value, so copies are independent and
// snapshots can be compared with ==.
type State [(stateWords + 1) * 4]byte

// A Source is a stateful MT19937 generator.
//
// Every draw advances the state, so a Source must be
// passed explicitly to every consumer of entropy.
// A Source is not safe for concurrent use.
type Source struct {
	mt *prng.MT19937
}

// New creates a Source seeded like numpy.random.RandomState.
//
// With exactly one seed value, the generator is seeded with
// init_genrand.
// With several values, init_by_array is used, so
// New(2015, 10, 10) matches RandomState([2015, 10, 10]).
// With no values, the reference seed 5489 is used.
func New(seed ...uint32) *Source {
	s := &Source{mt: prng.NewMT19937()}
	switch len(seed) {
	case 0:
		s.mt.Seed(defaultKey)
	case 1:
		s.mt.Seed(uint64(seed[0]))
	default:
		s.mt.SeedFromKeys(seed)
	}
	return s
}

// State returns a snapshot of the generator state.
func (s *Source) State() State {
	var res State
	data, err := s.mt.MarshalBinary()
	if err != nil {
		panic(err)
	}
	copy(res[:], data)
	return res
}

// SetState restores a snapshot taken with State.
func (s *Source) SetState(st State) {
	if binary.BigEndian.Uint32(st[stateWords*4:]) > stateWords+1 {
		panic("mlprand: invalid state position")
	}
	if err := s.mt.UnmarshalBinary(st[:]); err != nil {
		panic(err)
	}
}

// Seed re-seeds the generator with init_genrand.
// It is part of the rand.Source interface.
func (s *Source) Seed(seed int64) {
	s.mt.Seed(uint64(uint32(seed)))
}

// Uint32 returns the next tempered 32-bit output.
func (s *Source) Uint32() uint32 {
	return s.mt.Uint32()
}

// Uint64 joins two consecutive 32-bit outputs.
func (s *Source) Uint64() uint64 {
	return s.mt.Uint64()
}

// Int63 returns a 53-bit draw shifted into the top of a
// 63-bit integer.
//
// This makes (*rand.Rand).Float64 on top of a Source return
// exactly the same values as Float64.
func (s *Source) Int63() int64 {
	return int64(s.draw53() << 10)
}

// Float64 returns a uniform value in [0, 1), equal to
// numpy's random_sample.
func (s *Source) Float64() float64 {
	return float64(s.draw53()) * doubleUnit
}

// Uniform returns a value in [low, high).
func (s *Source) Uniform(low, high float64) float64 {
	return low + (high-low)*s.Float64()
}

// Intn returns a value in [0, n).
// It uses numpy's masked rejection sampling.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		panic("mlprand: invalid argument to Intn")
	}
	return int(s.interval(uint64(n - 1)))
}

// Shuffle permutes n elements using swap, following the
// order of draws of numpy's legacy shuffle.
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := int(s.interval(uint64(i)))
		swap(i, j)
	}
}

// Perm returns a random permutation of [0, n), like
// numpy's permutation.
func (s *Source) Perm(n int) []int {
	res := make([]int, n)
	for i := range res {
		res[i] = i
	}
	s.Shuffle(n, func(i, j int) {
		res[i], res[j] = res[j], res[i]
	})
	return res
}

// Rand wraps the Source in a *rand.Rand.
//
// The wrapper holds no state of its own; all draws advance
// s.
func (s *Source) Rand() *rand.Rand {
	return rand.New(s)
}

func (s *Source) draw53() uint64 {
	a := uint64(s.Uint32() >> 5)
	b := uint64(s.Uint32() >> 6)
	return a<<26 | b
}

func (s *Source) interval(max uint64) uint64 {
	if max == 0 {
		return 0
	}
	mask := max
	for _, shift := range []uint{1, 2, 4, 8, 16, 32} {
		mask |= mask >> shift
	}
	for {
		var value uint64
		if max <= 0xffffffff {
			value = uint64(s.Uint32()) & mask
		} else {
			value = s.Uint64() & mask
		}
		if value <= max {
			return value
		}
	}
}
