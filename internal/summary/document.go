// Package summary assembles the end-of-run summary document from the
// compiled thresholds and the collected metrics.
package summary

import "time"

// Threshold scopes.
const (
	ScopeGlobal   = "global"
	ScopeCommon   = "common"
	ScopeTestCase = "test_case"
)

// Document is the renderer-agnostic result of a run.
type Document struct {
	RunID           string            `json:"run_id"`
	Suite           string            `json:"suite"`
	StartedAt       time.Time         `json:"started_at"`
	DurationSeconds float64           `json:"duration_seconds"`
	Iterations      int64             `json:"iterations"`
	Interrupted     bool              `json:"interrupted,omitempty"`
	Passed          bool              `json:"passed"`
	Thresholds      []ThresholdResult `json:"thresholds"`
	CommonChecks    []CheckSummary    `json:"common_checks"`
	TestCases       []TestCaseSummary `json:"test_cases"`
}

// ThresholdResult is the verdict of one compiled threshold key.
type ThresholdResult struct {
	Key        string  `json:"key"`
	Scope      string  `json:"scope"`
	Metric     string  `json:"metric"`
	TestCase   string  `json:"test_case,omitempty"`
	Check      string  `json:"check,omitempty"`
	Expression string  `json:"expression"`
	Observed   float64 `json:"observed"`
	Samples    int     `json:"samples"`
	NoData     bool    `json:"no_data,omitempty"`
	Passed     bool    `json:"passed"`
}

// CheckSummary aggregates one check's outcomes and its threshold verdict.
type CheckSummary struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Kind        string  `json:"kind"`
	Passes      int     `json:"passes"`
	Fails       int     `json:"fails"`
	PassRate    float64 `json:"pass_rate"`
	Threshold   string  `json:"threshold"`
	Passed      bool    `json:"passed"`
}

// RequestStats summarises the requests of one test case. Durations are in milliseconds.
type RequestStats struct {
	Count       int     `json:"count"`
	Failed      int     `json:"failed"`
	FailureRate float64 `json:"failure_rate"`
	AvgMs       float64 `json:"avg_ms"`
	MinMs       float64 `json:"min_ms"`
	MaxMs       float64 `json:"max_ms"`
	P50Ms       float64 `json:"p50_ms"`
	P95Ms       float64 `json:"p95_ms"`
	P99Ms       float64 `json:"p99_ms"`
}

// TestCaseSummary holds everything reported for one test case. Passed is
// the conjunction of every threshold carrying the test case dimension.
type TestCaseSummary struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	URL         string            `json:"url"`
	Passed      bool              `json:"passed"`
	Requests    RequestStats      `json:"requests"`
	Thresholds  []ThresholdResult `json:"thresholds"`
	Checks      []CheckSummary    `json:"checks"`
}

// Failures returns the thresholds that did not pass.
func (d *Document) Failures() []ThresholdResult {
	var out []ThresholdResult
	for _, t := range d.Thresholds {
		if !t.Passed {
			out = append(out, t)
		}
	}
	return out
}

// Counts returns the number of passed and failed thresholds.
func (d *Document) Counts() (passed, failed int) {
	for _, t := range d.Thresholds {
		if t.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}
