package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/giantswarm/load-testing/internal/summary"
)

// WriteText renders the human readable end-of-run summary.
func WriteText(w io.Writer, doc *summary.Document) error {
	passed, failed := doc.Counts()

	fmt.Fprintf(w, "\nRun:        %s\n", doc.RunID)
	fmt.Fprintf(w, "Suite:      %s\n", doc.Suite)
	fmt.Fprintf(w, "Duration:   %.1fs\n", doc.DurationSeconds)
	fmt.Fprintf(w, "Iterations: %d\n", doc.Iterations)
	if doc.Interrupted {
		fmt.Fprintln(w, "Interrupted before the configured duration elapsed.")
	}
	fmt.Fprintf(w, "Thresholds: %d passed, %d failed\n\n", passed, failed)

	requests := tablewriter.NewWriter(w)
	requests.SetHeader([]string{"Test case", "Requests", "Failed", "Avg", "P50", "P95", "P99", "Result"})
	requests.SetAutoFormatHeaders(false)
	for _, tc := range doc.TestCases {
		requests.Append([]string{
			tc.Name,
			strconv.Itoa(tc.Requests.Count),
			formatPercent(tc.Requests.FailureRate),
			formatMillis(tc.Requests.AvgMs),
			formatMillis(tc.Requests.P50Ms),
			formatMillis(tc.Requests.P95Ms),
			formatMillis(tc.Requests.P99Ms),
			verdict(tc.Passed),
		})
	}
	requests.Render()
	fmt.Fprintln(w)

	checks := tablewriter.NewWriter(w)
	checks.SetHeader([]string{"Check", "Kind", "Test case", "Passes", "Fails", "Rate", "Threshold", "Result"})
	checks.SetAutoFormatHeaders(false)
	for _, c := range doc.CommonChecks {
		checks.Append(checkRow(c, "*"))
	}
	for _, tc := range doc.TestCases {
		for _, c := range tc.Checks {
			checks.Append(checkRow(c, tc.Name))
		}
	}
	checks.Render()
	fmt.Fprintln(w)

	thresholds := tablewriter.NewWriter(w)
	thresholds.SetHeader([]string{"Threshold", "Expression", "Observed", "Samples", "Result"})
	thresholds.SetAutoFormatHeaders(false)
	for _, t := range doc.Thresholds {
		thresholds.Append([]string{
			t.Key,
			t.Expression,
			formatObserved(t),
			strconv.Itoa(t.Samples),
			verdict(t.Passed),
		})
	}
	thresholds.Render()

	_, err := fmt.Fprintf(w, "\nOverall: %s\n", verdict(doc.Passed))
	return err
}

func checkRow(c summary.CheckSummary, testCase string) []string {
	return []string{
		c.Name,
		c.Kind,
		testCase,
		strconv.Itoa(c.Passes),
		strconv.Itoa(c.Fails),
		formatPercent(c.PassRate),
		c.Threshold,
		verdict(c.Passed),
	}
}
