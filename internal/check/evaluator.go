// Package check runs check lists against a response and records one tagged
// observation per check.
package check

import (
	"fmt"

	"github.com/giantswarm/load-testing/internal/metrics"
	"github.com/giantswarm/load-testing/internal/testcase"
	"github.com/giantswarm/load-testing/internal/transport"
)

// Kind distinguishes common checks from test-case specific ones.
type Kind string

const (
	Common   Kind = "common"
	Specific Kind = "specific"
)

// Scope labels the outcomes of one evaluation.
type Scope struct {
	Kind     Kind
	TestCase string
}

// Outcome is the result of a single check.
type Outcome struct {
	Check  string
	Passed bool
	// Panic holds the recovered panic message when the predicate panicked.
	Panic string
}

// Result is the outcome of a whole check list. Passed is informational:
// thresholds are judged from the recorded observations.
type Result struct {
	Outcomes []Outcome
	Passed   bool
}

// Failed returns the names of the checks that did not pass.
func (r Result) Failed() []string {
	var names []string
	for _, o := range r.Outcomes {
		if !o.Passed {
			names = append(names, o.Check)
		}
	}
	return names
}

// Evaluate runs every check against resp and records each outcome in sink.
// All checks run even after a failure. A panicking predicate counts as failed.
func Evaluate(resp *transport.Response, checks []testcase.CheckSpec, scope Scope, sink metrics.Sink) Result {
	res := Result{
		Outcomes: make([]Outcome, 0, len(checks)),
		Passed:   true,
	}

	for _, c := range checks {
		out := run(c, resp)
		res.Outcomes = append(res.Outcomes, out)
		if !out.Passed {
			res.Passed = false
		}

		tags := metrics.Tags{
			metrics.TagCheckKind: string(scope.Kind),
			metrics.TagCheck:     c.Name,
		}
		if scope.TestCase != "" {
			tags[metrics.TagTestCase] = scope.TestCase
		}
		sink.Observe(metrics.Observation{
			Metric: metrics.Checks,
			Tags:   tags,
			Value:  metrics.Bool(out.Passed),
		})
	}

	return res
}

func run(c testcase.CheckSpec, resp *transport.Response) (out Outcome) {
	out.Check = c.Name
	defer func() {
		if r := recover(); r != nil {
			out.Passed = false
			out.Panic = fmt.Sprint(r)
		}
	}()
	out.Passed = c.Predicate(resp)
	return out
}
