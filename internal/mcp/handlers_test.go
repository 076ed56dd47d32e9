package mcp

import (
	"context"
	"database/sql"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/load-testing/internal/history"
	"github.com/giantswarm/load-testing/internal/report"
	"github.com/giantswarm/load-testing/internal/server"
	"github.com/giantswarm/load-testing/internal/summary"
	"github.com/giantswarm/load-testing/internal/testutil"
	"github.com/giantswarm/load-testing/internal/transport"
)

func callRequest(args map[string]any) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	return result.Content[0].(mcp.TextContent).Text
}

func healthyFetcher() *testutil.MockFetcher {
	return &testutil.MockFetcher{
		DefaultResponse: &transport.Response{
			Status:   200,
			Duration: 5 * time.Millisecond,
			Headers:  http.Header{"Content-Type": []string{"application/json"}},
			Body:     []byte(`{"status":"ok"}`),
		},
	}
}

func TestHandleListTestSuites(t *testing.T) {
	sc := &server.ServerContext{}

	result, err := handleListTestSuites(context.Background(), mcp.CallToolRequest{}, sc)
	require.NoError(t, err)
	text := resultText(t, result)

	var suites []map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &suites))
	require.GreaterOrEqual(t, len(suites), 2)

	byName := map[string]map[string]any{}
	for _, s := range suites {
		byName[s["name"].(string)] = s
	}

	website := byName["website"]
	require.NotNil(t, website)
	assert.Equal(t, float64(4), website["test_case_count"])
	assert.Equal(t, float64(3), website["common_check_count"])
	assert.Equal(t, "uniform", website["selector"])

	// Listed even though no resolver is configured.
	k8s := byName["k8s-service"]
	require.NotNil(t, k8s)
	assert.Contains(t, k8s["error"], "no service resolver")
}

func TestHandleDescribeTestSuite(t *testing.T) {
	sc := &server.ServerContext{}

	result, err := handleDescribeTestSuite(context.Background(), callRequest(map[string]any{}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "test_suite is required")

	result, err = handleDescribeTestSuite(context.Background(), callRequest(map[string]any{
		"test_suite": "website",
		"target_url": "http://staging.example.com",
	}), sc)
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "no_server_errors")
	assert.Contains(t, text, "http_req_duration{test_case:home}")
	assert.Contains(t, text, "http://staging.example.com/index.html")
}

func TestHandleRunLoadTestMissingRequired(t *testing.T) {
	result, err := handleRunLoadTest(context.Background(), callRequest(map[string]any{}), &server.ServerContext{})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "test_suite is required")
}

func TestHandleRunLoadTestInvalidSuite(t *testing.T) {
	result, err := handleRunLoadTest(context.Background(), callRequest(map[string]any{
		"test_suite": "nonexistent-suite",
	}), &server.ServerContext{})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "failed to load test suite")
}

func TestHandleRunLoadTestInvalidArguments(t *testing.T) {
	sc := &server.ServerContext{Fetcher: healthyFetcher(), MaxRunDuration: time.Minute, MaxConcurrency: 20}

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"bad duration", map[string]any{"duration": "soon"}, "invalid duration"},
		{"bad pacing", map[string]any{"pacing": "often"}, "invalid pacing"},
		{"zero concurrency", map[string]any{"concurrency": float64(0)}, "concurrency must be positive"},
		{"over server limit", map[string]any{"duration": "2h"}, "exceeds the server limit"},
		{"over concurrency limit", map[string]any{"concurrency": float64(100000)}, "concurrency 100000 exceeds the server limit of 20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["test_suite"] = "website"
			result, err := handleRunLoadTest(context.Background(), callRequest(tt.args), sc)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestHandleRunLoadTest(t *testing.T) {
	tmpDir := t.TempDir()
	fetcher := healthyFetcher()
	sc := &server.ServerContext{Fetcher: fetcher, OutputDir: tmpDir}

	result, err := handleRunLoadTest(context.Background(), callRequest(map[string]any{
		"test_suite":  "website",
		"target_url":  "http://staging.example.com",
		"duration":    "10s",
		"pacing":      "0s",
		"concurrency": float64(2),
		"iterations":  float64(12),
		"selector":    "round-robin",
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var summary runSummary
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &summary))
	assert.True(t, summary.Passed)
	assert.Equal(t, "website", summary.Suite)
	assert.Equal(t, int64(12), summary.Iterations)
	assert.Empty(t, summary.Failures)
	assert.Equal(t, filepath.Join(tmpDir, summary.RunID), summary.OutputDir)

	calls := fetcher.Calls()
	require.Len(t, calls, 12)
	urls := map[string]int{}
	for _, c := range calls {
		urls[c.URL]++
	}
	assert.Equal(t, 3, urls["http://staging.example.com/index.html"])
	assert.Equal(t, 3, urls["http://staging.example.com/api/status.json"])

	// The run is now visible through get_results.
	result, err = handleGetResults(context.Background(), callRequest(map[string]any{}), sc)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), summary.RunID)
}

func TestHandleGetResultsEmptyDir(t *testing.T) {
	sc := &server.ServerContext{OutputDir: t.TempDir()}

	result, err := handleGetResults(context.Background(), callRequest(map[string]any{}), sc)
	require.NoError(t, err)
	assert.Equal(t, "[]", resultText(t, result))
}

func TestHandleGetResultsNonexistentDir(t *testing.T) {
	sc := &server.ServerContext{OutputDir: "/nonexistent/directory"}

	result, err := handleGetResults(context.Background(), callRequest(map[string]any{}), sc)
	require.NoError(t, err)
	assert.Equal(t, "[]", resultText(t, result))
}

func TestHandleGetResultsSpecificRun(t *testing.T) {
	tmpDir := t.TempDir()
	doc := &summary.Document{
		RunID:  "website_20260101-120000",
		Suite:  "website",
		Passed: true,
		Thresholds: []summary.ThresholdResult{
			{Key: "checks", Expression: "rate>=0.9", Observed: 1, Samples: 4, Passed: true},
		},
	}
	_, err := report.WriteArtifacts(tmpDir, doc, nil, "")
	require.NoError(t, err)

	sc := &server.ServerContext{OutputDir: tmpDir}
	result, err := handleGetResults(context.Background(), callRequest(map[string]any{
		"run_id": "website_20260101-120000",
	}), sc)
	require.NoError(t, err)

	stored, err := report.UnmarshalJSON([]byte(resultText(t, result)))
	require.NoError(t, err)
	assert.Equal(t, doc.RunID, stored.RunID)
	assert.Len(t, stored.Thresholds, 1)

	result, err = handleGetResults(context.Background(), callRequest(map[string]any{"run_id": "missing"}), sc)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), `run "missing" not found`)
}

func TestHandleGetResultsRejectsTraversal(t *testing.T) {
	sc := &server.ServerContext{OutputDir: t.TempDir()}

	for _, id := range []string{"..", "../etc", "a/b"} {
		result, err := handleGetResults(context.Background(), callRequest(map[string]any{"run_id": id}), sc)
		require.NoError(t, err)
		assert.Contains(t, resultText(t, result), "invalid run_id", id)
	}
}

func TestHandleGetRunHistory(t *testing.T) {
	result, err := handleGetRunHistory(context.Background(), callRequest(map[string]any{}), &server.ServerContext{})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "run history is not configured")

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	store, err := history.NewStore(db)
	require.NoError(t, err)

	for i, p95 := range []float64{100, 300} {
		require.NoError(t, store.RecordRun(context.Background(), &summary.Document{
			RunID:     []string{"r1", "r2"}[i],
			Suite:     "website",
			StartedAt: time.Date(2026, 1, 1, i, 0, 0, 0, time.UTC),
			Passed:    true,
			Thresholds: []summary.ThresholdResult{
				{Key: "http_req_duration", Expression: "p(95)<1000", Observed: p95, Samples: 10, Passed: true},
			},
		}))
	}
	sc := &server.ServerContext{History: store}

	result, err = handleGetRunHistory(context.Background(), callRequest(map[string]any{"test_suite": "website"}), sc)
	require.NoError(t, err)
	var runs []history.Run
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)

	result, err = handleGetRunHistory(context.Background(), callRequest(map[string]any{"key": "http_req_duration"}), sc)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "test_suite is required")

	result, err = handleGetRunHistory(context.Background(), callRequest(map[string]any{
		"test_suite": "website",
		"key":        "http_req_duration",
	}), sc)
	require.NoError(t, err)
	var trend struct {
		Mean  float64         `json:"mean"`
		Count int             `json:"count"`
		Point []history.Point `json:"points"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &trend))
	assert.Equal(t, 2, trend.Count)
	assert.InDelta(t, 200.0, trend.Mean, 1e-9)
	assert.Len(t, trend.Point, 2)
}

func TestResolveRunPath(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name    string
		runID   string
		wantErr string
	}{
		{"valid", "website_20260101-120000", ""},
		{"empty", "  ", "run_id is required"},
		{"separator", "a/b", "path separators are not allowed"},
		{"dot", ".", "path traversal is not allowed"},
		{"dotdot", "..", "path traversal is not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveRunPath(base, tt.runID)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(base, tt.runID), got)
		})
	}
}
