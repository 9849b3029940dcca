package mlpdata

import (
	"errors"
	"testing"

	"github.com/SamDavies/MLP"
	"github.com/SamDavies/MLP/mlprand"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestProviderIteration(t *testing.T) {
	p := newIndexProvider(t, 7, Config{BatchSize: 3})
	p.Reset()
	var seen []float64
	var count int
	for {
		b, ok := p.Next()
		if !ok {
			break
		}
		count++
		if b.Num != 3 || b.Inputs.Len() != 3 || b.Targets.Len() != 3*2 {
			t.Fatalf("unexpected batch shape: %d %d %d", b.Num, b.Inputs.Len(), b.Targets.Len())
		}
		seen = append(seen, b.Inputs.Data().([]float64)...)
	}
	if count != 2 {
		t.Errorf("expected 2 batches but got %d", count)
	}
	for i, x := range seen {
		if x != float64(i) {
			t.Fatalf("unexpected order: %v", seen)
		}
	}
	if _, ok := p.Next(); ok {
		t.Error("exhausted provider should stay exhausted")
	}
	p.Reset()
	if _, ok := p.Next(); !ok {
		t.Error("reset should restart iteration")
	}
}

func TestProviderMaxBatches(t *testing.T) {
	p := newIndexProvider(t, 10, Config{BatchSize: 2, MaxBatches: 2})
	if p.NumBatches() != 2 {
		t.Errorf("expected 2 batches but got %d", p.NumBatches())
	}
	p.Reset()
	p.Next()
	p.Next()
	if _, ok := p.Next(); ok {
		t.Error("expected the batch limit to end the epoch")
	}
}

func TestProviderShuffle(t *testing.T) {
	p := newIndexProvider(t, 10, Config{
		BatchSize: 5,
		Randomize: true,
		Rand:      mlprand.New(2015, 10, 10),
	})
	p.Reset()
	expected := []int{2, 7, 0, 1, 8, 5, 9, 6, 4, 3}
	for i, x := range p.X() {
		if int(x.Data().([]float64)[0]) != expected[i] {
			t.Fatalf("example %d: expected %d", i, expected[i])
		}
	}
	checkPairs(t, p)
}

func TestProviderPool(t *testing.T) {
	p := newIndexProvider(t, 50, Config{
		BatchSize:  4,
		MaxBatches: 1,
		Randomize:  true,
		Rand:       mlprand.New(3),
	})
	p.Reset()
	pool := map[float64]bool{}
	for _, x := range p.X()[:4] {
		pool[x.Data().([]float64)[0]] = true
	}
	for i := 0; i < 5; i++ {
		p.Reset()
		b, ok := p.Next()
		if !ok {
			t.Fatal("expected a batch")
		}
		for _, x := range b.Inputs.Data().([]float64) {
			if !pool[x] {
				t.Fatalf("example %v is not from the pool %v", x, pool)
			}
		}
	}
	checkPairs(t, p)
}

func TestProviderLengthMismatch(t *testing.T) {
	_, err := NewProvider([][]float64{{1}, {2}}, [][]float64{{1}}, Config{BatchSize: 1})
	if !errors.Is(err, ErrLengthMismatch) || !errors.Is(err, mlp.ErrShapeMismatch) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProviderAppendAtomic(t *testing.T) {
	p := newIndexProvider(t, 4, Config{BatchSize: 2})
	c := anyvec64.DefaultCreator{}

	err := p.Append([]anyvec.Vector{vec(c, 1)}, nil)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("unexpected error: %v", err)
	}
	err = p.Append(
		[]anyvec.Vector{vec(c, 1), vec(c, 1, 2)},
		[]anyvec.Vector{vec(c, 0, 1), vec(c, 1, 0)},
	)
	if !errors.Is(err, mlp.ErrShapeMismatch) {
		t.Errorf("unexpected error: %v", err)
	}
	if p.Len() != 4 || len(p.X()) != 4 || len(p.T()) != 4 {
		t.Fatalf("failed append modified the provider: %d", p.Len())
	}
}

func TestAddBatches(t *testing.T) {
	p := newIndexProvider(t, 6, Config{BatchSize: 2})
	c := anyvec64.DefaultCreator{}
	var examples []*Example
	for i := 0; i < 3; i++ {
		examples = append(examples, &Example{
			Input:  vec(c, float64(100+i)),
			Target: OneHot(c, i%2, 2),
		})
	}
	if err := AddBatches(p, examples); err != nil {
		t.Fatal(err)
	}
	if p.Len() != 9 {
		t.Fatalf("expected 9 examples but got %d", p.Len())
	}
	for j, e := range examples {
		if p.T()[6+j] != e.Target || p.X()[6+j] != e.Input {
			t.Errorf("example %d was not appended in order", j)
		}
	}
	if p.NumBatches() != 4 {
		t.Errorf("expected 4 batches but got %d", p.NumBatches())
	}
}

// newIndexProvider creates n examples where example i has
// input [i] and a one-hot target for i%2.
func newIndexProvider(t *testing.T, n int, cfg Config) *Provider {
	var x, y [][]float64
	for i := 0; i < n; i++ {
		x = append(x, []float64{float64(i)})
		target := make([]float64, 2)
		target[i%2] = 1
		y = append(y, target)
	}
	p, err := NewProvider(x, y, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func checkPairs(t *testing.T, p *Provider) {
	for i := 0; i < p.Len(); i++ {
		e := p.Example(i)
		idx := int(e.Input.Data().([]float64)[0])
		if anyvec.MaxIndex(e.Target) != idx%2 {
			t.Fatalf("example %d lost its target", idx)
		}
	}
}

func vec(c anyvec.Creator, vals ...float64) anyvec.Vector {
	return c.MakeVectorData(c.MakeNumericList(vals))
}
