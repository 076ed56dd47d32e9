package report

import (
	"fmt"

	"github.com/giantswarm/load-testing/internal/metrics"
	"github.com/giantswarm/load-testing/internal/summary"
)

func formatObserved(t summary.ThresholdResult) string {
	if t.NoData {
		return "no data"
	}
	switch metrics.KindOf(t.Metric) {
	case metrics.Rate:
		return formatPercent(t.Observed)
	case metrics.Counter:
		return fmt.Sprintf("%.0f", t.Observed)
	default:
		return formatMillis(t.Observed)
	}
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func formatMillis(v float64) string {
	return fmt.Sprintf("%.2fms", v)
}

func verdict(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}
