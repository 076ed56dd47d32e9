package threshold

import (
	"fmt"
	"sort"

	"github.com/segmentio/encoding/json"

	"github.com/giantswarm/load-testing/internal/metrics"
	"github.com/giantswarm/load-testing/internal/testcase"
)

// Global is a run-wide threshold seeded before any per-case rule.
type Global struct {
	Key        string
	Expression string
}

// DefaultGlobals are the run-wide thresholds applied when a suite does not
// declare its own.
func DefaultGlobals() []Global {
	return []Global{
		{Key: metrics.Checks, Expression: "rate>=0.9"},
		{Key: metrics.HTTPReqDuration, Expression: "p(95)<1000"},
	}
}

// GlobalsFromMap merges a key to expression map over the defaults. A key
// that matches a default replaces its expression, the remaining keys follow
// sorted by key.
func GlobalsFromMap(m map[string]string) []Global {
	globals := DefaultGlobals()
	if len(m) == 0 {
		return globals
	}

	seen := make(map[string]bool, len(globals))
	for i, g := range globals {
		seen[g.Key] = true
		if expr, ok := m[g.Key]; ok {
			globals[i].Expression = expr
		}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		globals = append(globals, Global{Key: k, Expression: m[k]})
	}
	return globals
}

// DuplicateKeyError is returned when two rules compile to the same key.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate threshold key %q", e.Key)
}

// InvalidThresholdError is returned for an expression that cannot be parsed
// or does not fit the metric it is attached to.
type InvalidThresholdError struct {
	Key        string
	Expression string
	Reason     string
}

func (e *InvalidThresholdError) Error() string {
	return fmt.Sprintf("invalid threshold %q for key %q: %s", e.Expression, e.Key, e.Reason)
}

// CheckNameConflictError is returned when a test-case check reuses the name
// of a common check. The common key filters by check name only, so it would
// silently aggregate the test-case check's samples as well.
type CheckNameConflictError struct {
	TestCase string
	Check    string
}

func (e *CheckNameConflictError) Error() string {
	return fmt.Sprintf("test case %q: check %q has the same name as a common check", e.TestCase, e.Check)
}

// Entry is a compiled threshold.
type Entry struct {
	Key        Key
	Expression Expression
}

// Map is the immutable, insertion-ordered result of compilation.
type Map struct {
	entries []Entry
	index   map[string]int
}

// Len returns the number of keys.
func (m *Map) Len() int {
	return len(m.entries)
}

// Entries returns the entries in compilation order.
func (m *Map) Entries() []Entry {
	return append([]Entry(nil), m.entries...)
}

// Keys returns the rendered keys in compilation order.
func (m *Map) Keys() []string {
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.Key.String()
	}
	return keys
}

// Get returns the entry for a rendered key.
func (m *Map) Get(key string) (Entry, bool) {
	i, ok := m.index[key]
	if !ok {
		return Entry{}, false
	}
	return m.entries[i], true
}

// Expressions returns the map in the shape load tools expect:
// every key maps to its list of expressions.
func (m *Map) Expressions() map[string][]string {
	out := make(map[string][]string, len(m.entries))
	for _, e := range m.entries {
		out[e.Key.String()] = []string{e.Expression.Raw}
	}
	return out
}

// MarshalJSON renders the map as key to expression list.
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Expressions())
}

func (m *Map) insert(key Key, raw string) error {
	rendered := key.String()
	if _, dup := m.index[rendered]; dup {
		return &DuplicateKeyError{Key: rendered}
	}

	expr, err := ParseExpression(raw)
	if err != nil {
		return &InvalidThresholdError{Key: rendered, Expression: raw, Reason: err.Error()}
	}
	if kind := metrics.KindOf(key.Metric); !expr.supports(kind) {
		return &InvalidThresholdError{
			Key:        rendered,
			Expression: raw,
			Reason:     fmt.Sprintf("aggregation %q does not apply to %s metric %q", expr.Aggregation, kind, key.Metric),
		}
	}

	m.index[rendered] = len(m.entries)
	m.entries = append(m.entries, Entry{Key: key, Expression: expr})
	return nil
}

// Compile builds the threshold map with the default globals.
func Compile(reg *testcase.Registry, common []testcase.CheckSpec) (*Map, error) {
	return CompileWithGlobals(reg, common, DefaultGlobals())
}

// CompileWithGlobals builds the threshold map. Keys are inserted in a fixed
// order: globals, common checks, basic thresholds per test case, then checks
// per test case. The first duplicate key aborts compilation.
func CompileWithGlobals(reg *testcase.Registry, common []testcase.CheckSpec, globals []Global) (*Map, error) {
	commonNames := make(map[string]bool, len(common))
	for _, c := range common {
		commonNames[c.Name] = true
	}

	m := &Map{index: make(map[string]int)}

	for _, g := range globals {
		key, err := ParseKey(g.Key)
		if err != nil {
			return nil, &InvalidThresholdError{Key: g.Key, Expression: g.Expression, Reason: err.Error()}
		}
		if err := validateGlobalKey(key, reg, commonNames); err != nil {
			return nil, &InvalidThresholdError{Key: g.Key, Expression: g.Expression, Reason: err.Error()}
		}
		if err := m.insert(key, g.Expression); err != nil {
			return nil, err
		}
	}

	for _, c := range common {
		if err := m.insert(CommonCheckKey(c.Name), c.Threshold); err != nil {
			return nil, err
		}
	}

	cases := reg.TestCases()
	for _, tc := range cases {
		for _, metric := range tc.SortedBasicMetrics() {
			if err := m.insert(BasicKey(string(metric), tc.Name), tc.BasicThresholds[metric]); err != nil {
				return nil, err
			}
		}
	}

	for _, tc := range cases {
		for _, c := range tc.Checks {
			if commonNames[c.Name] {
				return nil, &CheckNameConflictError{TestCase: tc.Name, Check: c.Name}
			}
			if err := m.insert(CheckKey(tc.Name, c.Name), c.Threshold); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

var builtinMetrics = map[string]bool{
	metrics.Checks:          true,
	metrics.HTTPReqs:        true,
	metrics.HTTPReqDuration: true,
	metrics.HTTPReqFailed:   true,
	metrics.Iterations:      true,
}

// validateGlobalKey rejects keys that can never match a sample: unknown
// metrics, unknown dimensions, and test cases or checks that do not exist.
func validateGlobalKey(key Key, reg *testcase.Registry, commonNames map[string]bool) error {
	if !builtinMetrics[key.Metric] {
		return fmt.Errorf("unknown metric %q", key.Metric)
	}

	var (
		tc       testcase.TestCase
		haveCase bool
	)
	for i, d := range key.Dimensions {
		switch d.Name {
		case metrics.TagTestCase:
			if i != 0 {
				return fmt.Errorf("dimension %q must come first", metrics.TagTestCase)
			}
			var ok bool
			if tc, ok = reg.Lookup(d.Value); !ok {
				return fmt.Errorf("unknown test case %q", d.Value)
			}
			haveCase = true
		case metrics.TagCheck:
			if key.Metric != metrics.Checks {
				return fmt.Errorf("dimension %q only applies to metric %q", metrics.TagCheck, metrics.Checks)
			}
			if i != len(key.Dimensions)-1 {
				return fmt.Errorf("dimension %q must come last", metrics.TagCheck)
			}
			if !checkExists(d.Value, tc, haveCase, reg, commonNames) {
				return fmt.Errorf("unknown check %q", d.Value)
			}
		default:
			return fmt.Errorf("unknown dimension %q (want %q or %q)", d.Name, metrics.TagTestCase, metrics.TagCheck)
		}
	}
	return nil
}

func checkExists(name string, tc testcase.TestCase, haveCase bool, reg *testcase.Registry, commonNames map[string]bool) bool {
	if commonNames[name] {
		return true
	}
	cases := []testcase.TestCase{tc}
	if !haveCase {
		cases = reg.TestCases()
	}
	for _, c := range cases {
		for _, spec := range c.Checks {
			if spec.Name == name {
				return true
			}
		}
	}
	return false
}
