// Package testcase holds the validated, immutable table of load-test targets
// and the suite loader that builds it from YAML.
package testcase

import (
	"github.com/giantswarm/load-testing/internal/metrics"
	"github.com/giantswarm/load-testing/internal/transport"
)

// BasicMetric names a built-in metric that a test case can put a threshold on.
type BasicMetric string

const (
	// RequestDuration thresholds the request duration trend in milliseconds.
	RequestDuration BasicMetric = metrics.HTTPReqDuration
	// RequestFailureRate thresholds the share of failed requests.
	RequestFailureRate BasicMetric = metrics.HTTPReqFailed
	// CheckPassRate thresholds the pass rate of every check run for the test case.
	CheckPassRate BasicMetric = metrics.Checks
)

// recognizedBasicMetrics is the closed set of BasicThresholds keys.
var recognizedBasicMetrics = map[BasicMetric]bool{
	RequestDuration:    true,
	RequestFailureRate: true,
	CheckPassRate:      true,
}

// BasicMetrics returns the recognised basic threshold keys in a fixed order.
func BasicMetrics() []BasicMetric {
	return []BasicMetric{RequestDuration, RequestFailureRate, CheckPassRate}
}

// Predicate decides whether a response satisfies a check.
type Predicate func(resp *transport.Response) bool

// CheckSpec is a named pass/fail rule with its aggregate threshold.
// Name is the identity used in threshold keys and tags. Description is a
// human label only.
type CheckSpec struct {
	Name        string
	Description string
	Predicate   Predicate
	Threshold   string
}

// TestCase is one target endpoint with its checks and thresholds.
type TestCase struct {
	Name            string
	Method          string
	BaseURL         string
	Path            string
	Description     string
	Weight          int
	BasicThresholds map[BasicMetric]string
	Checks          []CheckSpec
}

// URL joins BaseURL and Path verbatim.
func (tc TestCase) URL() string {
	return tc.BaseURL + tc.Path
}

// SortedBasicMetrics returns the test case's basic threshold keys in the
// fixed order of BasicMetrics.
func (tc TestCase) SortedBasicMetrics() []BasicMetric {
	var out []BasicMetric
	for _, m := range BasicMetrics() {
		if _, ok := tc.BasicThresholds[m]; ok {
			out = append(out, m)
		}
	}
	return out
}
