package main

import (
	"math"
	"strconv"
	"testing"

	"github.com/SamDavies/MLP/mlprand"
)

func TestNewSources(t *testing.T) {
	rng, noise, err := newSources(Flags{NoiseSeed: 1})
	if err != nil {
		t.Fatal(err)
	}
	if rng.State() != mlprand.New(2015, 10, 10).State() {
		t.Error("unexpected default seed")
	}
	if noise.State() != mlprand.New(1).State() {
		t.Error("unexpected noise seed")
	}

	if strconv.IntSize == 32 {
		t.Skip("seeds cannot exceed 32 bits")
	}
	big := uint(math.MaxUint32)
	big++
	if _, _, err := newSources(Flags{Seed: big}); err == nil {
		t.Error("expected error for oversized seed")
	}
	if _, _, err := newSources(Flags{NoiseSeed: big}); err == nil {
		t.Error("expected error for oversized noise seed")
	}
}

func TestNoiseKeepsInitialization(t *testing.T) {
	f := Flags{Hidden: 3, Seed: 7, NoiseSeed: 1}
	rng, _, err := newSources(f)
	if err != nil {
		t.Fatal(err)
	}
	expected, err := newModel(f, rng)
	if err != nil {
		t.Fatal(err)
	}

	rng, noise, err := newSources(f)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		noise.Float64()
	}
	actual, err := newModel(f, rng)
	if err != nil {
		t.Fatal(err)
	}

	for i, l := range expected.Layers {
		w1 := l.Weights.Vector.Data().([]float64)
		w2 := actual.Layers[i].Weights.Vector.Data().([]float64)
		for j, x := range w1 {
			if w2[j] != x {
				t.Fatalf("layer %d: weight %d changed", i, j)
			}
		}
	}
}
