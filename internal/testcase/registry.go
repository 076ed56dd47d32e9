package testcase

import (
	"fmt"
	"strings"
)

// reservedChars may not appear in names because they delimit threshold keys.
const reservedChars = "{}:,"

// ConfigError collects every problem found while validating configuration.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

func (e *ConfigError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ConfigError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// Registry is the validated, read-only table of test cases.
type Registry struct {
	cases  []TestCase
	byName map[string]int
}

// NewRegistry validates the test cases and returns the registry. All
// problems are reported together in a *ConfigError.
func NewRegistry(cases []TestCase) (*Registry, error) {
	cerr := &ConfigError{}
	if len(cases) == 0 {
		cerr.add("at least one test case is required")
	}

	byName := make(map[string]int, len(cases))
	for i, tc := range cases {
		label := fmt.Sprintf("test case %d", i)
		if tc.Name != "" {
			label = fmt.Sprintf("test case %q", tc.Name)
		}

		validateName(cerr, label, tc.Name)
		if _, dup := byName[tc.Name]; dup && tc.Name != "" {
			cerr.add("duplicate test case name %q", tc.Name)
		}
		byName[tc.Name] = i

		if tc.BaseURL == "" {
			cerr.add("%s: base URL is required", label)
		}
		if tc.Weight < 0 {
			cerr.add("%s: weight must not be negative", label)
		}
		for metric := range tc.BasicThresholds {
			if !recognizedBasicMetrics[metric] {
				cerr.add("%s: unrecognized basic threshold %q", label, metric)
			}
		}
		validateChecks(cerr, label, tc.Checks)
	}

	if err := cerr.orNil(); err != nil {
		return nil, err
	}

	r := &Registry{
		cases:  make([]TestCase, len(cases)),
		byName: byName,
	}
	for i, tc := range cases {
		r.cases[i] = cloneTestCase(tc)
	}
	return r, nil
}

// ValidateCommonChecks applies the per-check rules to the common check list.
func ValidateCommonChecks(checks []CheckSpec) error {
	cerr := &ConfigError{}
	validateChecks(cerr, "common checks", checks)
	return cerr.orNil()
}

func validateChecks(cerr *ConfigError, owner string, checks []CheckSpec) {
	seen := make(map[string]bool, len(checks))
	for i, c := range checks {
		label := fmt.Sprintf("%s: check %d", owner, i)
		if c.Name != "" {
			label = fmt.Sprintf("%s: check %q", owner, c.Name)
		}
		validateName(cerr, label, c.Name)
		if seen[c.Name] && c.Name != "" {
			cerr.add("%s: duplicate check name %q", owner, c.Name)
		}
		seen[c.Name] = true
		if c.Predicate == nil {
			cerr.add("%s: predicate is required", label)
		}
		if strings.TrimSpace(c.Threshold) == "" {
			cerr.add("%s: threshold is required", label)
		}
	}
}

func validateName(cerr *ConfigError, label, name string) {
	if strings.TrimSpace(name) == "" {
		cerr.add("%s: name is required", label)
		return
	}
	if strings.ContainsAny(name, reservedChars) {
		cerr.add("%s: name must not contain any of %q", label, reservedChars)
	}
}

// Len returns the number of test cases.
func (r *Registry) Len() int {
	return len(r.cases)
}

// TestCases returns the test cases in declaration order.
func (r *Registry) TestCases() []TestCase {
	out := make([]TestCase, len(r.cases))
	for i, tc := range r.cases {
		out[i] = cloneTestCase(tc)
	}
	return out
}

// At returns the test case at index i. The returned value shares its check
// slice with the registry and must be treated as read-only.
func (r *Registry) At(i int) TestCase {
	return r.cases[i]
}

// Lookup returns the test case with the given name.
func (r *Registry) Lookup(name string) (TestCase, bool) {
	i, ok := r.byName[name]
	if !ok {
		return TestCase{}, false
	}
	return cloneTestCase(r.cases[i]), true
}

// Names returns the test case names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.cases))
	for i, tc := range r.cases {
		names[i] = tc.Name
	}
	return names
}

func cloneTestCase(tc TestCase) TestCase {
	out := tc
	if tc.BasicThresholds != nil {
		out.BasicThresholds = make(map[BasicMetric]string, len(tc.BasicThresholds))
		for k, v := range tc.BasicThresholds {
			out.BasicThresholds[k] = v
		}
	}
	out.Checks = append([]CheckSpec(nil), tc.Checks...)
	return out
}
