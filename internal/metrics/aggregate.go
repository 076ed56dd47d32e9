package metrics

import (
	"fmt"
	"math"
	"sort"
)

// Aggregate is the combined view of every series matching a query.
type Aggregate struct {
	Kind    Kind
	Count   int
	NonZero int
	Sum     float64
	values  []float64 // sorted ascending, trends only
}

// Empty reports whether no samples matched.
func (a Aggregate) Empty() bool {
	return a.Count == 0
}

// Rate returns the share of non-zero samples.
func (a Aggregate) Rate() float64 {
	if a.Count == 0 {
		return 0
	}
	return float64(a.NonZero) / float64(a.Count)
}

// Avg returns the arithmetic mean.
func (a Aggregate) Avg() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.Sum / float64(a.Count)
}

// Min returns the smallest trend value, or 0 without samples.
func (a Aggregate) Min() float64 {
	if len(a.values) == 0 {
		return 0
	}
	return a.values[0]
}

// Max returns the largest trend value, or 0 without samples.
func (a Aggregate) Max() float64 {
	if len(a.values) == 0 {
		return 0
	}
	return a.values[len(a.values)-1]
}

// Percentile returns the p-th percentile (0-100) with linear interpolation
// between the closest ranks.
func (a Aggregate) Percentile(p float64) float64 {
	n := len(a.values)
	if n == 0 {
		return 0
	}
	p = math.Max(0, math.Min(100, p))

	index := (p / 100.0) * float64(n-1)
	lower := int(index)
	upper := lower + 1
	if upper >= n {
		return a.values[n-1]
	}
	weight := index - float64(lower)
	return a.values[lower]*(1-weight) + a.values[upper]*weight
}

// Value resolves a named aggregation as used in threshold expressions:
// count, rate, avg, min, max, med and p (with the percentile argument).
func (a Aggregate) Value(aggregation string, percentile float64) (float64, error) {
	switch aggregation {
	case "count":
		return float64(a.Count), nil
	case "rate":
		return a.Rate(), nil
	case "avg":
		return a.Avg(), nil
	case "min":
		return a.Min(), nil
	case "max":
		return a.Max(), nil
	case "med":
		return a.Percentile(50), nil
	case "p":
		return a.Percentile(percentile), nil
	default:
		return 0, fmt.Errorf("unknown aggregation %q", aggregation)
	}
}

func (a *Aggregate) merge(s *series) {
	a.Count += s.count
	a.NonZero += s.nonZero
	a.Sum += s.sum
	a.values = append(a.values, s.values...)
}

func (a *Aggregate) finish() {
	sort.Float64s(a.values)
}
