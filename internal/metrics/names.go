// Package metrics collects the tagged observations produced during a run and
// answers aggregate queries over them.
package metrics

// Built-in metric names. They double as the base names of threshold keys.
const (
	Checks          = "checks"
	HTTPReqs        = "http_reqs"
	HTTPReqDuration = "http_req_duration"
	HTTPReqFailed   = "http_req_failed"
	Iterations      = "iterations"
)

// Tag names attached to observations. Threshold key dimensions use the same names.
const (
	TagTestCase    = "test_case"
	TagCheck       = "check"
	TagCheckKind   = "check_kind"
	TagPath        = "path"
	TagDescription = "description"
)

// Kind describes how samples of a metric are aggregated.
type Kind int

const (
	// Counter sums values.
	Counter Kind = iota
	// Rate tracks the share of non-zero values.
	Rate
	// Trend keeps every value for statistical aggregation.
	Trend
)

func (k Kind) String() string {
	switch k {
	case Counter:
		return "counter"
	case Rate:
		return "rate"
	case Trend:
		return "trend"
	default:
		return "unknown"
	}
}

// KindOf returns the kind of a built-in metric. Unknown metrics are trends.
func KindOf(metric string) Kind {
	switch metric {
	case HTTPReqs, Iterations:
		return Counter
	case Checks, HTTPReqFailed:
		return Rate
	default:
		return Trend
	}
}
