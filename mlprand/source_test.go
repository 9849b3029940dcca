package mlprand

import (
	"math"
	"testing"
)

func TestSourceReference(t *testing.T) {
	t.Run("Scalar", func(t *testing.T) {
		s := New(5489)
		expected := []uint32{3499211612, 581869302, 3890346734}
		for i, x := range expected {
			if a := s.Uint32(); a != x {
				t.Errorf("output %d: expected %d but got %d", i, x, a)
			}
		}
	})
	t.Run("Array", func(t *testing.T) {
		s := New(0x123, 0x234, 0x345, 0x456)
		expected := []uint32{1067595299, 955945823, 477289528}
		for i, x := range expected {
			if a := s.Uint32(); a != x {
				t.Errorf("output %d: expected %d but got %d", i, x, a)
			}
		}
	})
}

func TestSourceFloat64(t *testing.T) {
	s := New(2015, 10, 10)
	expected := []float64{0.6553230884866846, 0.590292177587391}
	for i, x := range expected {
		if a := s.Float64(); a != x {
			t.Errorf("sample %d: expected %v but got %v", i, x, a)
		}
	}
}

func TestSourceRandWrapper(t *testing.T) {
	s1 := New(2015, 10, 10)
	s2 := New(2015, 10, 10)
	r := s2.Rand()
	for i := 0; i < 100; i++ {
		x := s1.Float64()
		a := r.Float64()
		if x != a {
			t.Fatalf("sample %d: expected %v but got %v", i, x, a)
		}
	}
}

func TestSourcePerm(t *testing.T) {
	s := New(2015, 10, 10)
	expected := []int{2, 7, 0, 1, 8, 5, 9, 6, 4, 3}
	actual := s.Perm(10)
	for i, x := range expected {
		if actual[i] != x {
			t.Fatalf("expected %v but got %v", expected, actual)
		}
	}
	if a := s.Float64(); a != 0.6754466207812223 {
		t.Errorf("unexpected draw after permutation: %v", a)
	}
}

func TestSourceState(t *testing.T) {
	s := New(2015, 10, 10)
	for i := 0; i < 1000; i++ {
		s.Uint32()
	}
	st := s.State()
	var first []float64
	for i := 0; i < 700; i++ {
		first = append(first, s.Float64())
	}
	s.SetState(st)
	for i, x := range first {
		if a := s.Float64(); a != x {
			t.Fatalf("sample %d: expected %v but got %v", i, x, a)
		}
	}
}

func TestSourceIntn(t *testing.T) {
	s := New(1337)
	counts := make([]int, 5)
	const n = 50000
	for i := 0; i < n; i++ {
		counts[s.Intn(5)]++
	}
	for i, c := range counts {
		frac := float64(c) / n
		if math.Abs(frac-0.2) > 0.01 {
			t.Errorf("bucket %d: fraction %f", i, frac)
		}
	}
}
