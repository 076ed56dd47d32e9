package report

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/giantswarm/load-testing/internal/summary"
)

// DefaultClassname is used for JUnit test cases when none is configured.
const DefaultClassname = "load-testing"

type junitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Name     string           `xml:"name,attr"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Time     float64          `xml:"time,attr"`
	Suites   []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	TestCases []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
}

// WriteJUnit renders every threshold as a JUnit test case, grouped into one
// test suite per scope: global, common checks, then one per test case.
func WriteJUnit(w io.Writer, doc *summary.Document, classname string) error {
	if classname == "" {
		classname = DefaultClassname
	}

	root := junitTestSuites{Name: doc.Suite, Time: doc.DurationSeconds}

	var global, common []summary.ThresholdResult
	perCase := make(map[string][]summary.ThresholdResult)
	for _, t := range doc.Thresholds {
		switch t.Scope {
		case summary.ScopeGlobal:
			global = append(global, t)
		case summary.ScopeCommon:
			common = append(common, t)
		default:
			perCase[t.TestCase] = append(perCase[t.TestCase], t)
		}
	}

	add := func(name string, results []summary.ThresholdResult) {
		if len(results) == 0 {
			return
		}
		s := junitTestSuite{Name: name}
		for _, t := range results {
			tc := junitTestCase{Name: fmt.Sprintf("%s %s", t.Key, t.Expression), Classname: classname}
			if !t.Passed {
				tc.Failure = &junitFailure{Message: failureMessage(t)}
				s.Failures++
			}
			s.Tests++
			s.TestCases = append(s.TestCases, tc)
		}
		root.Tests += s.Tests
		root.Failures += s.Failures
		root.Suites = append(root.Suites, s)
	}

	add("global", global)
	add("common checks", common)
	for _, tc := range doc.TestCases {
		add(tc.Name, perCase[tc.Name])
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("failed to encode JUnit report: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func failureMessage(t summary.ThresholdResult) string {
	return fmt.Sprintf("%s observed %s over %d samples", t.Expression, formatObserved(t), t.Samples)
}
