package dispatch

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/giantswarm/load-testing/internal/testcase"
)

// Selector picks the index of the test case to run next.
// Implementations must be safe for concurrent use by all virtual users.
type Selector interface {
	// Name returns the selector identifier (e.g. "uniform").
	Name() string

	// Next returns an index in [0, reg.Len()).
	Next(reg *testcase.Registry) int
}

// GetSelector returns a Selector for the given name.
func GetSelector(name string) (Selector, error) {
	switch name {
	case "uniform", "":
		return NewUniformSelector(nil), nil
	case "round-robin":
		return &RoundRobinSelector{}, nil
	case "weighted":
		return NewWeightedSelector(nil), nil
	default:
		return nil, &UnsupportedSelectorError{Name: name}
	}
}

// UnsupportedSelectorError is returned when an unknown selector is requested.
type UnsupportedSelectorError struct {
	Name string
}

func (e *UnsupportedSelectorError) Error() string {
	return "unsupported selector: " + e.Name
}

// lockedRand serialises access to a caller-provided generator.
// A nil rng uses the global, already concurrency-safe, generator.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (l *lockedRand) IntN(n int) int {
	if l.rng == nil {
		return rand.IntN(n)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.IntN(n)
}

// UniformSelector picks every test case with equal probability.
type UniformSelector struct {
	rng lockedRand
}

// NewUniformSelector creates a uniform selector. Pass a seeded generator for
// reproducible runs, or nil for the global one.
func NewUniformSelector(rng *rand.Rand) *UniformSelector {
	return &UniformSelector{rng: lockedRand{rng: rng}}
}

func (s *UniformSelector) Name() string { return "uniform" }

func (s *UniformSelector) Next(reg *testcase.Registry) int {
	return s.rng.IntN(reg.Len())
}

// RoundRobinSelector cycles through the test cases in declaration order.
type RoundRobinSelector struct {
	next atomic.Uint64
}

func (s *RoundRobinSelector) Name() string { return "round-robin" }

func (s *RoundRobinSelector) Next(reg *testcase.Registry) int {
	n := s.next.Add(1) - 1
	return int(n % uint64(reg.Len()))
}

// WeightedSelector picks test cases proportionally to their Weight.
// Test cases with weight 0 are never picked unless every weight is 0,
// in which case selection falls back to uniform.
type WeightedSelector struct {
	rng lockedRand
}

// NewWeightedSelector creates a weighted selector.
func NewWeightedSelector(rng *rand.Rand) *WeightedSelector {
	return &WeightedSelector{rng: lockedRand{rng: rng}}
}

func (s *WeightedSelector) Name() string { return "weighted" }

func (s *WeightedSelector) Next(reg *testcase.Registry) int {
	total := 0
	for i := 0; i < reg.Len(); i++ {
		total += reg.At(i).Weight
	}
	if total <= 0 {
		return s.rng.IntN(reg.Len())
	}

	pick := s.rng.IntN(total)
	for i := 0; i < reg.Len(); i++ {
		pick -= reg.At(i).Weight
		if pick < 0 {
			return i
		}
	}
	return reg.Len() - 1
}
