package metrics

import (
	"sort"
	"sync"
)

type series struct {
	tags    Tags
	count   int
	nonZero int
	sum     float64
	values  []float64
}

// Store is an in-memory Sink that keeps every series for end-of-run queries.
type Store struct {
	mu     sync.Mutex
	series map[string]map[string]*series // metric -> canonical tags -> series
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{series: make(map[string]map[string]*series)}
}

// Observe implements Sink.
func (s *Store) Observe(o Observation) {
	key := o.Tags.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	bySeries, ok := s.series[o.Metric]
	if !ok {
		bySeries = make(map[string]*series)
		s.series[o.Metric] = bySeries
	}
	sr, ok := bySeries[key]
	if !ok {
		sr = &series{tags: o.Tags.Clone()}
		bySeries[key] = sr
	}

	sr.count++
	sr.sum += o.Value
	if o.Value != 0 {
		sr.nonZero++
	}
	if KindOf(o.Metric) == Trend {
		sr.values = append(sr.values, o.Value)
	}
}

// Aggregate combines every series of metric whose tags contain filter.
// An empty filter selects the whole metric.
func (s *Store) Aggregate(metric string, filter Tags) Aggregate {
	agg := Aggregate{Kind: KindOf(metric)}

	s.mu.Lock()
	for _, sr := range s.series[metric] {
		if sr.tags.Matches(filter) {
			agg.merge(sr)
		}
	}
	s.mu.Unlock()

	agg.finish()
	return agg
}

// TagValues lists the distinct values of tag seen on metric, sorted.
func (s *Store) TagValues(metric, tag string) []string {
	seen := make(map[string]bool)

	s.mu.Lock()
	for _, sr := range s.series[metric] {
		if v, ok := sr.tags[tag]; ok {
			seen[v] = true
		}
	}
	s.mu.Unlock()

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
