package metrics

import (
	"sort"
	"strings"
)

// Tags label an observation.
type Tags map[string]string

// Matches reports whether t carries every tag in filter with the same value.
func (t Tags) Matches(filter Tags) bool {
	for k, v := range filter {
		if got, ok := t[k]; !ok || got != v {
			return false
		}
	}
	return true
}

// Clone returns a copy of t.
func (t Tags) Clone() Tags {
	out := make(Tags, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// String renders the tags in a stable, sorted form.
func (t Tags) String() string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(t[k])
	}
	return b.String()
}

// Observation is a single sample.
type Observation struct {
	Metric string
	Tags   Tags
	Value  float64
}

// Sink receives observations. Implementations must be safe for concurrent use.
type Sink interface {
	Observe(o Observation)
}

// Bool converts a boolean outcome into a rate sample.
func Bool(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// MultiSink fans observations out to several sinks.
type MultiSink []Sink

// Observe implements Sink.
func (m MultiSink) Observe(o Observation) {
	for _, s := range m {
		s.Observe(o)
	}
}

// Discard drops every observation.
var Discard Sink = discard{}

type discard struct{}

func (discard) Observe(Observation) {}
