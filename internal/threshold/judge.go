package threshold

import "github.com/giantswarm/load-testing/internal/metrics"

// Source answers aggregate queries over collected samples.
type Source interface {
	Aggregate(metric string, filter metrics.Tags) metrics.Aggregate
}

// Verdict is the judged outcome of one compiled threshold.
type Verdict struct {
	Key        Key
	Expression Expression
	Observed   float64
	Samples    int
	Passed     bool
	NoData     bool
}

// Judge evaluates every entry of the map against the source, in map order.
// A key without samples passes and is flagged NoData.
func Judge(m *Map, src Source) []Verdict {
	verdicts := make([]Verdict, 0, m.Len())
	for _, e := range m.entries {
		verdicts = append(verdicts, judgeEntry(e, src))
	}
	return verdicts
}

func judgeEntry(e Entry, src Source) Verdict {
	agg := src.Aggregate(e.Key.Metric, e.Key.Filter())
	v := Verdict{Key: e.Key, Expression: e.Expression, Samples: agg.Count}
	if agg.Empty() {
		v.NoData = true
		v.Passed = true
		return v
	}

	observed, err := agg.Value(e.Expression.Aggregation, e.Expression.Percentile)
	if err != nil {
		return v
	}
	v.Observed = observed
	v.Passed = e.Expression.Holds(observed)
	return v
}
