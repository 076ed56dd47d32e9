package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusSink exposes live run metrics in the Prometheus format while the
// run is in progress. End-of-run verdicts always come from a Store.
type PrometheusSink struct {
	registry  *prometheus.Registry
	checks    *prometheus.CounterVec
	requests  *prometheus.CounterVec
	failed    *prometheus.CounterVec
	durations *prometheus.HistogramVec
	iteration prometheus.Counter
}

// NewPrometheusSink creates a sink with its own registry.
func NewPrometheusSink() *PrometheusSink {
	p := &PrometheusSink{
		registry: prometheus.NewRegistry(),
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadtest_checks_total",
				Help: "Check outcomes by kind, test case, check and result",
			},
			[]string{TagCheckKind, TagTestCase, TagCheck, "result"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadtest_http_reqs_total",
				Help: "Requests issued per test case",
			},
			[]string{TagTestCase},
		),
		failed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadtest_http_req_failed_total",
				Help: "Failed requests per test case",
			},
			[]string{TagTestCase},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loadtest_http_req_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{TagTestCase},
		),
		iteration: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loadtest_iterations_total",
			Help: "Completed dispatcher iterations",
		}),
	}
	p.registry.MustRegister(p.checks, p.requests, p.failed, p.durations, p.iteration)
	return p
}

// Observe implements Sink. Metrics without a Prometheus mapping are ignored.
func (p *PrometheusSink) Observe(o Observation) {
	tc := o.Tags[TagTestCase]
	switch o.Metric {
	case Checks:
		result := "fail"
		if o.Value != 0 {
			result = "pass"
		}
		p.checks.WithLabelValues(o.Tags[TagCheckKind], tc, o.Tags[TagCheck], result).Inc()
	case HTTPReqs:
		p.requests.WithLabelValues(tc).Add(o.Value)
	case HTTPReqFailed:
		if o.Value != 0 {
			p.failed.WithLabelValues(tc).Inc()
		}
	case HTTPReqDuration:
		p.durations.WithLabelValues(tc).Observe(o.Value / 1000)
	case Iterations:
		p.iteration.Add(o.Value)
	}
}

// Handler serves the sink's registry.
func (p *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *PrometheusSink) Registry() *prometheus.Registry {
	return p.registry
}
