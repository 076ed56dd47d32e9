// Package threshold compiles per-case and per-check threshold rules into a
// flat, uniquely keyed map and judges it against collected metrics.
package threshold

import (
	"fmt"
	"strings"

	"github.com/giantswarm/load-testing/internal/metrics"
)

// Dimension is one name:value pair of a composite key.
type Dimension struct {
	Name  string
	Value string
}

// Key identifies a threshold: a metric base name plus an ordered list of
// dimensions, rendered as metric{name:value,name:value}.
type Key struct {
	Metric     string
	Dimensions []Dimension
}

// GlobalKey scopes a threshold to the whole run.
func GlobalKey(metric string) Key {
	return Key{Metric: metric}
}

// CommonCheckKey scopes a check threshold to every test case combined.
func CommonCheckKey(check string) Key {
	return Key{Metric: metrics.Checks, Dimensions: []Dimension{{metrics.TagCheck, check}}}
}

// BasicKey scopes a built-in metric threshold to one test case.
func BasicKey(metric, testCase string) Key {
	return Key{Metric: metric, Dimensions: []Dimension{{metrics.TagTestCase, testCase}}}
}

// CheckKey scopes a check threshold to one test case. The test case
// dimension always precedes the check dimension.
func CheckKey(testCase, check string) Key {
	return Key{Metric: metrics.Checks, Dimensions: []Dimension{
		{metrics.TagTestCase, testCase},
		{metrics.TagCheck, check},
	}}
}

func (k Key) String() string {
	if len(k.Dimensions) == 0 {
		return k.Metric
	}
	var b strings.Builder
	b.WriteString(k.Metric)
	b.WriteByte('{')
	for i, d := range k.Dimensions {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(d.Name)
		b.WriteByte(':')
		b.WriteString(d.Value)
	}
	b.WriteByte('}')
	return b.String()
}

// Filter returns the tag filter selecting the samples the key aggregates.
func (k Key) Filter() metrics.Tags {
	if len(k.Dimensions) == 0 {
		return nil
	}
	f := make(metrics.Tags, len(k.Dimensions))
	for _, d := range k.Dimensions {
		f[d.Name] = d.Value
	}
	return f
}

// Dimension returns the value of the named dimension.
func (k Key) Dimension(name string) (string, bool) {
	for _, d := range k.Dimensions {
		if d.Name == name {
			return d.Value, true
		}
	}
	return "", false
}

// ParseKey parses the metric{name:value,...} form.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '{')
	if open < 0 {
		if s == "" || strings.ContainsAny(s, "}:,") {
			return Key{}, fmt.Errorf("invalid threshold key %q", s)
		}
		return Key{Metric: s}, nil
	}
	if open == 0 || !strings.HasSuffix(s, "}") {
		return Key{}, fmt.Errorf("invalid threshold key %q", s)
	}

	key := Key{Metric: s[:open]}
	body := s[open+1 : len(s)-1]
	if body == "" {
		return Key{}, fmt.Errorf("invalid threshold key %q: empty dimension list", s)
	}
	for _, part := range strings.Split(body, ",") {
		name, value, ok := strings.Cut(part, ":")
		if !ok || name == "" || value == "" || strings.ContainsAny(value, "{}:") {
			return Key{}, fmt.Errorf("invalid threshold key %q: bad dimension %q", s, part)
		}
		key.Dimensions = append(key.Dimensions, Dimension{Name: name, Value: value})
	}
	return key, nil
}
