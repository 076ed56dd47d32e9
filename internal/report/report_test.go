package report

import (
	"bytes"
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/load-testing/internal/summary"
	"github.com/giantswarm/load-testing/internal/testcase"
	"github.com/giantswarm/load-testing/internal/threshold"
)

func sampleDocument() *summary.Document {
	return &summary.Document{
		RunID:           "website_20260101-120000",
		Suite:           "website",
		StartedAt:       time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		DurationSeconds: 30,
		Iterations:      280,
		Passed:          false,
		Thresholds: []summary.ThresholdResult{
			{Key: "checks", Scope: summary.ScopeGlobal, Metric: "checks", Expression: "rate>=0.9", Observed: 0.97, Samples: 1400, Passed: true},
			{Key: "checks{check:no_server_errors}", Scope: summary.ScopeCommon, Metric: "checks", Check: "no_server_errors", Expression: "rate>=0.99", Observed: 1, Samples: 280, Passed: true},
			{Key: "http_req_duration{test_case:home}", Scope: summary.ScopeTestCase, Metric: "http_req_duration", TestCase: "home", Expression: "p(95)<300", Observed: 120.5, Samples: 70, Passed: true},
			{Key: "http_req_duration{test_case:api}", Scope: summary.ScopeTestCase, Metric: "http_req_duration", TestCase: "api", Expression: "p(95)<200", Observed: 350.25, Samples: 70, Passed: false},
			{Key: "checks{test_case:api,check:valid_json}", Scope: summary.ScopeTestCase, Metric: "checks", TestCase: "api", Check: "valid_json", Expression: "rate>=0.99", NoData: true, Passed: true},
		},
		CommonChecks: []summary.CheckSummary{
			{Name: "no_server_errors", Kind: "common", Passes: 280, PassRate: 1, Threshold: "rate>=0.99", Passed: true},
		},
		TestCases: []summary.TestCaseSummary{
			{
				Name: "home", URL: "http://example.com/index.html", Passed: true,
				Requests: summary.RequestStats{Count: 70, AvgMs: 80, P50Ms: 75, P95Ms: 120.5, P99Ms: 130},
			},
			{
				Name: "api", URL: "http://example.com/api/status.json", Passed: false,
				Requests: summary.RequestStats{Count: 70, Failed: 1, FailureRate: 1.0 / 70, P95Ms: 350.25},
				Checks: []summary.CheckSummary{
					{Name: "valid_json", Kind: "specific", Threshold: "rate>=0.99", Passed: true},
				},
			},
		},
	}
}

func TestWriteJUnit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJUnit(&buf, sampleDocument(), "k6-loadtest"))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, xml.Header))

	var parsed junitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, 5, parsed.Tests)
	assert.Equal(t, 1, parsed.Failures)

	require.Len(t, parsed.Suites, 4)
	assert.Equal(t, "global", parsed.Suites[0].Name)
	assert.Equal(t, "common checks", parsed.Suites[1].Name)
	assert.Equal(t, "home", parsed.Suites[2].Name)
	assert.Equal(t, "api", parsed.Suites[3].Name)

	api := parsed.Suites[3]
	assert.Equal(t, 2, api.Tests)
	assert.Equal(t, 1, api.Failures)
	require.NotNil(t, api.TestCases[0].Failure)
	assert.Equal(t, "p(95)<200 observed 350.25ms over 70 samples", api.TestCases[0].Failure.Message)
	assert.Equal(t, "k6-loadtest", api.TestCases[0].Classname)
	assert.Nil(t, api.TestCases[1].Failure)
}

func TestWriteJUnit_DefaultClassname(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJUnit(&buf, sampleDocument(), ""))
	assert.Contains(t, buf.String(), `classname="load-testing"`)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleDocument()))

	out := buf.String()
	assert.Contains(t, out, "website_20260101-120000")
	assert.Contains(t, out, "Thresholds: 4 passed, 1 failed")
	assert.Contains(t, out, "http_req_duration{test_case:api}")
	assert.Contains(t, out, "350.25ms")
	assert.Contains(t, out, "97.00%")
	assert.Contains(t, out, "no data")
	assert.Contains(t, out, "no_server_errors")
	assert.Contains(t, out, "Overall: FAIL")
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, sampleDocument()))

	out := buf.String()
	assert.Contains(t, out, "## Load test: website FAIL")
	assert.Contains(t, out, "**Run at:** 2026-01-01T12:00:00Z")
	assert.Contains(t, out, "| `http_req_duration{test_case:api}` | `p(95)<200` | 350.25ms | FAIL |")
}

func TestWriteMarkdown_NoThresholds(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, &summary.Document{Suite: "empty", Passed: true}))
	assert.Contains(t, buf.String(), "_No thresholds evaluated._")
}

func TestJSONRoundTrip(t *testing.T) {
	doc := sampleDocument()
	data, err := MarshalJSON(doc)
	require.NoError(t, err)

	parsed, err := UnmarshalJSON(data)
	require.NoError(t, err)
	assert.Equal(t, doc.RunID, parsed.RunID)
	assert.Equal(t, doc.Thresholds, parsed.Thresholds)
	assert.True(t, doc.StartedAt.Equal(parsed.StartedAt))
}

func TestWriteArtifacts(t *testing.T) {
	suite, err := testcase.Load(context.Background(), "website", "")
	require.NoError(t, err)
	compiled, err := threshold.Compile(suite.Registry, suite.CommonChecks)
	require.NoError(t, err)

	dir := t.TempDir()
	doc := sampleDocument()
	a, err := WriteArtifacts(dir, doc, compiled, "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, doc.RunID), a.Dir)
	for _, f := range []string{a.Summary, a.JUnit, a.Markdown, a.Thresholds} {
		_, err := os.Stat(f)
		assert.NoError(t, err, f)
	}

	read, err := ReadSummary(a.Dir)
	require.NoError(t, err)
	assert.Equal(t, doc.Suite, read.Suite)

	thresholds, err := os.ReadFile(a.Thresholds)
	require.NoError(t, err)
	assert.Contains(t, string(thresholds), `"checks{test_case:api,check:has_status_field}"`)
}

func TestWriteConfiguration(t *testing.T) {
	suite, err := testcase.Load(context.Background(), "website", "")
	require.NoError(t, err)
	compiled, err := threshold.Compile(suite.Registry, suite.CommonChecks)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteConfiguration(&buf, suite, compiled))

	out := buf.String()
	commonIdx := strings.Index(out, "Common checks")
	casesIdx := strings.Index(out, "Test cases:")
	compiledIdx := strings.Index(out, "Compiled thresholds")
	assert.True(t, commonIdx >= 0 && commonIdx < casesIdx && casesIdx < compiledIdx)

	assert.Contains(t, out, "  - no_client_errors (no client errors (4xx), 404 tolerated) [rate>=0.95]")
	assert.Contains(t, out, "home (Homepage, the most important page)")
	assert.Contains(t, out, "    http_req_duration: p(95)<300")
	assert.Contains(t, out, "    - has_status_field (contains status field) [rate>=0.99]")
	assert.Contains(t, out, "  checks{test_case:api,check:valid_json}: rate>=0.99")
}

func TestWriteConfiguration_WithoutCompiledMap(t *testing.T) {
	suite, err := testcase.Load(context.Background(), "website", "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteConfiguration(&buf, suite, nil))
	assert.NotContains(t, buf.String(), "Compiled thresholds")
}

func TestWriteArtifacts_WithoutCompiledMap(t *testing.T) {
	dir := t.TempDir()
	a, err := WriteArtifacts(dir, sampleDocument(), nil, "")
	require.NoError(t, err)
	assert.Empty(t, a.Thresholds)
	assert.NoFileExists(t, filepath.Join(a.Dir, ThresholdsFile))
	assert.FileExists(t, a.Summary)
}
