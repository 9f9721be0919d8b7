package params

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Batcher produces n pairwise-distinct parameter sets or fails as a whole.
type Batcher interface {
	Batch(n int) ([]Set, error)
}

// Generator draws random sets within Constraints. It is safe for concurrent
// use; requests from different users share one instance.
type Generator struct {
	c   Constraints
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator returns a generator. A nil rnd seeds one from the clock.
func NewGenerator(c Constraints, rnd *rand.Rand) (*Generator, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("param constraints: %w", err)
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{c: c, rnd: rnd}, nil
}

// Generate draws a set whose key is not in exclude, retrying up to the
// attempt ceiling.
func (g *Generator) Generate(exclude map[Key]struct{}) (Set, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generate(exclude)
}

func (g *Generator) generate(exclude map[Key]struct{}) (Set, error) {
	for attempt := 0; attempt < g.c.Attempts; attempt++ {
		s := g.draw()
		if _, dup := exclude[s.Key()]; !dup {
			return s, nil
		}
	}
	return Set{}, fmt.Errorf("%w after %d attempts", ErrExhausted, g.c.Attempts)
}

// Batch returns n pairwise-distinct sets. Either all n are produced or
// ErrExhausted is returned.
func (g *Generator) Batch(n int) ([]Set, error) {
	if n < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", n)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	used := make(map[Key]struct{}, n)
	out := make([]Set, 0, n)
	for i := 1; i <= n; i++ {
		s, err := g.generate(used)
		if err != nil {
			return nil, fmt.Errorf("variant %d: %w", i, err)
		}
		used[s.Key()] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

func (g *Generator) draw() Set {
	var s Set
	for _, name := range names {
		v := g.c.Draw.Min + g.rnd.Float64()*(g.c.Draw.Max-g.c.Draw.Min)
		s.set(name, g.c.Bound.clamp(round(v)))
	}
	return s
}

// Linear is the legacy deterministic progression: variant i gets
// Base+Increment*i for every adjustment, clamped into Bound.
type Linear struct {
	Base      float64
	Increment float64
	Bound     Range
}

// DefaultLinear mirrors the historical progression settings.
func DefaultLinear() Linear {
	return Linear{Base: 1.0, Increment: 0.03, Bound: Range{Min: 0.8, Max: 1.2}}
}

// Batch returns the first n steps. Once clamping makes two steps equal the
// batch fails with ErrExhausted.
func (l Linear) Batch(n int) ([]Set, error) {
	if n < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", n)
	}
	used := make(map[Key]struct{}, n)
	out := make([]Set, 0, n)
	for i := 1; i <= n; i++ {
		v := l.Bound.clamp(round(l.Base + l.Increment*float64(i)))
		var s Set
		for _, name := range names {
			s.set(name, v)
		}
		if _, dup := used[s.Key()]; dup {
			return nil, fmt.Errorf("variant %d: %w: progression clamped at %s", i, ErrExhausted, Format(v))
		}
		used[s.Key()] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}
