package params

import (
	"errors"
	"math/rand"
	"testing"
)

func newTestGenerator(t *testing.T, c Constraints, seed int64) *Generator {
	t.Helper()
	g, err := NewGenerator(c, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return g
}

func TestBatchReturnsDistinctSetsWithinBounds(t *testing.T) {
	c := DefaultConstraints()
	g := newTestGenerator(t, c, 7)

	sets, err := g.Batch(10)
	if err != nil {
		t.Fatalf("Batch returned error: %v", err)
	}
	if len(sets) != 10 {
		t.Fatalf("expected 10 sets, got %d", len(sets))
	}
	seen := make(map[Key]struct{})
	for i, s := range sets {
		if _, dup := seen[s.Key()]; dup {
			t.Fatalf("set %d duplicates an earlier set: %v", i, s)
		}
		seen[s.Key()] = struct{}{}
		for j, v := range s.Values() {
			if v < c.Draw.Min || v > c.Draw.Max {
				t.Fatalf("set %d value %d = %v outside draw range", i, j, v)
			}
			if v != round(v) {
				t.Fatalf("set %d value %d = %v not rounded to %d places", i, j, v, Precision)
			}
		}
	}
}

func TestBatchIsDeterministicForSeed(t *testing.T) {
	a, err := newTestGenerator(t, DefaultConstraints(), 99).Batch(3)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	b, err := newTestGenerator(t, DefaultConstraints(), 99).Batch(3)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected identical sets for same seed at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestBatchFailsWhenCombinationsRunOut(t *testing.T) {
	c := DefaultConstraints()
	c.Draw = Range{Min: 1.0, Max: 1.0}
	g := newTestGenerator(t, c, 1)

	if _, err := g.Batch(1); err != nil {
		t.Fatalf("single set should succeed: %v", err)
	}
	sets, err := g.Batch(2)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if sets != nil {
		t.Fatalf("expected no partial batch, got %d sets", len(sets))
	}
}

func TestGenerateHonoursExclusions(t *testing.T) {
	c := DefaultConstraints()
	c.Draw = Range{Min: 1.05, Max: 1.05}
	g := newTestGenerator(t, c, 1)

	s, err := g.Generate(nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := g.Generate(map[Key]struct{}{s.Key(): {}}); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted for excluded key, got %v", err)
	}
}

func TestBatchRejectsNonPositiveCount(t *testing.T) {
	g := newTestGenerator(t, DefaultConstraints(), 1)
	if _, err := g.Batch(0); err == nil {
		t.Fatal("expected error for zero count")
	}
}

func TestConstraintsValidate(t *testing.T) {
	tests := []struct {
		name string
		c    Constraints
		ok   bool
	}{
		{"default", DefaultConstraints(), true},
		{"inverted bound", Constraints{Draw: Range{1, 1}, Bound: Range{1.2, 0.8}, Attempts: 5}, false},
		{"inverted draw", Constraints{Draw: Range{1.1, 0.9}, Bound: Range{0.8, 1.2}, Attempts: 5}, false},
		{"draw outside bound", Constraints{Draw: Range{0.5, 1.1}, Bound: Range{0.8, 1.2}, Attempts: 5}, false},
		{"zero attempts", Constraints{Draw: Range{0.9, 1.1}, Bound: Range{0.8, 1.2}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestKeyTreatsNearDuplicatesAsEqual(t *testing.T) {
	a := Set{Brightness: 1.0001, Sharpen: 1, Temperature: 1, Contrast: 1, Gamma: 1}
	b := Set{Brightness: 1.0004, Sharpen: 1, Temperature: 1, Contrast: 1, Gamma: 1}
	if a.Key() != b.Key() {
		t.Fatalf("expected equal keys at %d decimals", Precision)
	}
	b.Gamma = 1.001
	if a.Key() == b.Key() {
		t.Fatal("expected keys to differ when a position differs")
	}
}

func TestLinearProgression(t *testing.T) {
	sets, err := DefaultLinear().Batch(3)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	want := []float64{1.03, 1.06, 1.09}
	for i, s := range sets {
		for _, v := range s.Values() {
			if v != want[i] {
				t.Fatalf("variant %d: expected %v, got %v", i+1, want[i], v)
			}
		}
	}
}

func TestLinearExhaustsOnceClamped(t *testing.T) {
	if _, err := DefaultLinear().Batch(7); err != nil {
		t.Fatalf("expected 7 steps to fit, got %v", err)
	}
	if _, err := DefaultLinear().Batch(8); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted once clamped, got %v", err)
	}
}
