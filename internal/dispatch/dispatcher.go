// Package dispatch runs single load-test iterations: pick a test case, issue
// its request, evaluate its checks and pace the virtual user.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/giantswarm/load-testing/internal/check"
	"github.com/giantswarm/load-testing/internal/metrics"
	"github.com/giantswarm/load-testing/internal/testcase"
	"github.com/giantswarm/load-testing/internal/transport"
)

// IterationResult describes one completed iteration. It is informational;
// aggregation happens through the metrics sink.
type IterationResult struct {
	TestCase string
	URL      string
	Response *transport.Response
	Common   check.Result
	Specific check.Result
	Passed   bool

	// Abandoned is set when ctx was cancelled during the request. Nothing
	// about such an iteration reaches the sink.
	Abandoned bool
}

// Dispatcher executes iterations against a registry. It holds no mutable
// state besides its selector and is shared by all virtual users.
type Dispatcher struct {
	registry *testcase.Registry
	common   []testcase.CheckSpec
	fetcher  transport.Fetcher
	sink     metrics.Sink
	selector Selector
	pacing   time.Duration
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSelector replaces the default uniform selector.
func WithSelector(s Selector) Option {
	return func(d *Dispatcher) {
		d.selector = s
	}
}

// WithPacing sets the delay a virtual user waits after each iteration.
func WithPacing(p time.Duration) Option {
	return func(d *Dispatcher) {
		d.pacing = p
	}
}

// WithLogger sets the logger used for per-iteration output.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// New creates a dispatcher. The pacing delay defaults to one second.
func New(reg *testcase.Registry, common []testcase.CheckSpec, fetcher transport.Fetcher, sink metrics.Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: reg,
		common:   common,
		fetcher:  fetcher,
		sink:     sink,
		selector: NewUniformSelector(nil),
		pacing:   time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Iterate runs one iteration. It returns after the pacing delay, or earlier
// when ctx is cancelled. An iteration whose request outlives ctx is
// abandoned and observes no metrics.
func (d *Dispatcher) Iterate(ctx context.Context) *IterationResult {
	tc := d.registry.At(d.selector.Next(d.registry))
	url := tc.URL()

	tags := transport.Tags{
		metrics.TagTestCase:    tc.Name,
		metrics.TagPath:        tc.Path,
		metrics.TagDescription: tc.Description,
	}

	d.logger.Debug("testing endpoint",
		"test_case", tc.Name,
		"description", tc.Description,
		"url", url,
	)

	resp := d.fetcher.Fetch(ctx, tc.Method, url, tags)
	if ctx.Err() != nil {
		d.logger.Debug("iteration abandoned", "test_case", tc.Name, "reason", ctx.Err())
		return &IterationResult{TestCase: tc.Name, URL: url, Response: resp, Abandoned: true}
	}
	d.observeRequest(tags, resp)

	res := &IterationResult{
		TestCase: tc.Name,
		URL:      url,
		Response: resp,
		Common:   check.Evaluate(resp, d.common, check.Scope{Kind: check.Common, TestCase: tc.Name}, d.sink),
		Specific: check.Evaluate(resp, tc.Checks, check.Scope{Kind: check.Specific, TestCase: tc.Name}, d.sink),
	}
	res.Passed = res.Common.Passed && res.Specific.Passed

	d.sink.Observe(metrics.Observation{
		Metric: metrics.Iterations,
		Tags:   metrics.Tags{metrics.TagTestCase: tc.Name},
		Value:  1,
	})
	d.logResult(res)

	d.pace(ctx)
	return res
}

func (d *Dispatcher) observeRequest(tags transport.Tags, resp *transport.Response) {
	mt := metrics.Tags(tags)
	d.sink.Observe(metrics.Observation{Metric: metrics.HTTPReqs, Tags: mt, Value: 1})
	d.sink.Observe(metrics.Observation{Metric: metrics.HTTPReqFailed, Tags: mt, Value: metrics.Bool(resp.Failed())})
	d.sink.Observe(metrics.Observation{Metric: metrics.HTTPReqDuration, Tags: mt, Value: resp.DurationMillis()})
}

func (d *Dispatcher) logResult(res *IterationResult) {
	if res.Passed {
		d.logger.Debug("all checks passed",
			"test_case", res.TestCase,
			"duration_ms", res.Response.DurationMillis(),
		)
		return
	}

	attrs := []any{
		"test_case", res.TestCase,
		"status", res.Response.Status,
		"duration_ms", res.Response.DurationMillis(),
		"common_passed", res.Common.Passed,
		"specific_passed", res.Specific.Passed,
		"failed_checks", append(res.Common.Failed(), res.Specific.Failed()...),
	}
	if res.Response.Err != nil {
		attrs = append(attrs, "error", res.Response.Err)
	}
	d.logger.Warn("checks failed", attrs...)
}

func (d *Dispatcher) pace(ctx context.Context) {
	if d.pacing <= 0 {
		return
	}
	timer := time.NewTimer(d.pacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
