package summary

import (
	"time"

	"github.com/giantswarm/load-testing/internal/check"
	"github.com/giantswarm/load-testing/internal/metrics"
	"github.com/giantswarm/load-testing/internal/testcase"
	"github.com/giantswarm/load-testing/internal/threshold"
)

// Input is everything Render needs about a finished run.
type Input struct {
	RunID        string
	Suite        string
	StartedAt    time.Time
	Duration     time.Duration
	Iterations   int64
	Interrupted  bool
	Registry     *testcase.Registry
	CommonChecks []testcase.CheckSpec
	Thresholds   *threshold.Map
	Metrics      threshold.Source
}

// Render judges every compiled threshold and builds the summary document.
func Render(in Input) *Document {
	verdicts := threshold.Judge(in.Thresholds, in.Metrics)

	doc := &Document{
		RunID:           in.RunID,
		Suite:           in.Suite,
		StartedAt:       in.StartedAt,
		DurationSeconds: in.Duration.Seconds(),
		Iterations:      in.Iterations,
		Interrupted:     in.Interrupted,
		Passed:          true,
		Thresholds:      make([]ThresholdResult, 0, len(verdicts)),
	}

	byKey := make(map[string]ThresholdResult, len(verdicts))
	for _, v := range verdicts {
		r := toResult(v)
		doc.Thresholds = append(doc.Thresholds, r)
		byKey[r.Key] = r
		if !r.Passed {
			doc.Passed = false
		}
	}

	for _, c := range in.CommonChecks {
		key := threshold.CommonCheckKey(c.Name).String()
		agg := in.Metrics.Aggregate(metrics.Checks, metrics.Tags{
			metrics.TagCheckKind: string(check.Common),
			metrics.TagCheck:     c.Name,
		})
		doc.CommonChecks = append(doc.CommonChecks, checkSummary(c, check.Common, agg, byKey[key]))
	}

	for _, tc := range in.Registry.TestCases() {
		doc.TestCases = append(doc.TestCases, testCaseSummary(tc, in.Metrics, doc.Thresholds, byKey))
	}

	return doc
}

func toResult(v threshold.Verdict) ThresholdResult {
	r := ThresholdResult{
		Key:        v.Key.String(),
		Metric:     v.Key.Metric,
		Expression: v.Expression.Raw,
		Observed:   v.Observed,
		Samples:    v.Samples,
		NoData:     v.NoData,
		Passed:     v.Passed,
	}
	r.TestCase, _ = v.Key.Dimension(metrics.TagTestCase)
	r.Check, _ = v.Key.Dimension(metrics.TagCheck)

	switch {
	case r.TestCase != "":
		r.Scope = ScopeTestCase
	case r.Check != "":
		r.Scope = ScopeCommon
	default:
		r.Scope = ScopeGlobal
	}
	return r
}

func checkSummary(c testcase.CheckSpec, kind check.Kind, agg metrics.Aggregate, verdict ThresholdResult) CheckSummary {
	return CheckSummary{
		Name:        c.Name,
		Description: c.Description,
		Kind:        string(kind),
		Passes:      agg.NonZero,
		Fails:       agg.Count - agg.NonZero,
		PassRate:    agg.Rate(),
		Threshold:   c.Threshold,
		Passed:      verdict.Passed,
	}
}

func testCaseSummary(tc testcase.TestCase, src threshold.Source, all []ThresholdResult, byKey map[string]ThresholdResult) TestCaseSummary {
	s := TestCaseSummary{
		Name:        tc.Name,
		Description: tc.Description,
		URL:         tc.URL(),
		Passed:      true,
		Requests:    requestStats(tc.Name, src),
	}

	for _, r := range all {
		if r.TestCase != tc.Name {
			continue
		}
		if !r.Passed {
			s.Passed = false
		}
		if r.Check == "" {
			s.Thresholds = append(s.Thresholds, r)
		}
	}

	for _, c := range tc.Checks {
		key := threshold.CheckKey(tc.Name, c.Name).String()
		agg := src.Aggregate(metrics.Checks, metrics.Tags{
			metrics.TagCheckKind: string(check.Specific),
			metrics.TagTestCase:  tc.Name,
			metrics.TagCheck:     c.Name,
		})
		s.Checks = append(s.Checks, checkSummary(c, check.Specific, agg, byKey[key]))
	}
	return s
}

func requestStats(testCase string, src threshold.Source) RequestStats {
	filter := metrics.Tags{metrics.TagTestCase: testCase}
	durations := src.Aggregate(metrics.HTTPReqDuration, filter)
	failed := src.Aggregate(metrics.HTTPReqFailed, filter)

	return RequestStats{
		Count:       durations.Count,
		Failed:      failed.NonZero,
		FailureRate: failed.Rate(),
		AvgMs:       durations.Avg(),
		MinMs:       durations.Min(),
		MaxMs:       durations.Max(),
		P50Ms:       durations.Percentile(50),
		P95Ms:       durations.Percentile(95),
		P99Ms:       durations.Percentile(99),
	}
}
