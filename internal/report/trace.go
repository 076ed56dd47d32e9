package report

import (
	"fmt"
	"io"

	"github.com/giantswarm/load-testing/internal/testcase"
	"github.com/giantswarm/load-testing/internal/threshold"
)

// WriteConfiguration prints the suite configuration before a run: common
// checks, then every test case with its thresholds and specific checks, and
// finally the compiled threshold map when one is given.
func WriteConfiguration(w io.Writer, suite *testcase.Suite, compiled *threshold.Map) error {
	p := &errWriter{w: w}

	p.printf("=== Test Configuration: %s ===\n", suite.Name)
	if suite.Description != "" {
		p.printf("%s\n", suite.Description)
	}

	p.printf("\nCommon checks (applied to every test case):\n")
	if len(suite.CommonChecks) == 0 {
		p.printf("  (none)\n")
	}
	for _, c := range suite.CommonChecks {
		p.printf("  - %s%s [%s]\n", c.Name, describe(c.Description), c.Threshold)
	}

	p.printf("\nTest cases:\n")
	for _, tc := range suite.Registry.TestCases() {
		p.printf("\n%s%s\n", tc.Name, describe(tc.Description))
		p.printf("  URL: %s\n", tc.URL())
		p.printf("  Thresholds:\n")
		for _, m := range tc.SortedBasicMetrics() {
			p.printf("    %s: %s\n", m, tc.BasicThresholds[m])
		}
		p.printf("  Specific checks:\n")
		for _, c := range tc.Checks {
			p.printf("    - %s%s [%s]\n", c.Name, describe(c.Description), c.Threshold)
		}
	}

	if compiled != nil {
		p.printf("\nCompiled thresholds (%d):\n", compiled.Len())
		for _, e := range compiled.Entries() {
			p.printf("  %s: %s\n", e.Key, e.Expression)
		}
	}
	p.printf("========================\n")
	return p.err
}

func describe(s string) string {
	if s == "" {
		return ""
	}
	return " (" + s + ")"
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
