package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/segmentio/encoding/json"

	"github.com/giantswarm/load-testing/internal/report"
	"github.com/giantswarm/load-testing/internal/server"
)

const defaultHistoryLimit = 20

func registerResultTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// get_results
	getResultsTool := mcp.NewTool("get_results",
		mcp.WithDescription("Retrieve the summary of past load-test runs"),
		mcp.WithString("run_id",
			mcp.Description("Specific run ID to retrieve (optional, lists all if omitted)"),
		),
	)
	s.AddTool(getResultsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetResults(ctx, request, sc)
	})

	// get_run_history
	historyTool := mcp.NewTool("get_run_history",
		mcp.WithDescription("Query recorded runs, or the trend of one threshold key across runs"),
		mcp.WithString("test_suite",
			mcp.Description("Restrict to one suite (required when key is set)"),
		),
		mcp.WithString("key",
			mcp.Description("Threshold key, e.g. 'http_req_duration{test_case:home}'"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entries (default: 20)"),
		),
	)
	s.AddTool(historyTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetRunHistory(ctx, request, sc)
	})

	return nil
}

func handleGetResults(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	runID, _ := args["run_id"].(string)

	if runID != "" {
		return getSpecificRun(sc.OutputDir, runID)
	}
	return listRuns(sc.OutputDir)
}

// runEntry is the short form of a run in listings.
type runEntry struct {
	RunID     string    `json:"run_id"`
	Suite     string    `json:"suite"`
	StartedAt time.Time `json:"started_at"`
	Passed    bool      `json:"passed"`
	Failures  int       `json:"failures"`
}

func listRuns(outputDir string) (*mcp.CallToolResult, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return mcp.NewToolResultText("[]"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to read results directory: %v", err)), nil
	}

	runs := []runEntry{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		doc, err := report.ReadSummary(filepath.Join(outputDir, e.Name()))
		if err != nil {
			continue
		}
		_, failed := doc.Counts()
		runs = append(runs, runEntry{
			RunID:     doc.RunID,
			Suite:     doc.Suite,
			StartedAt: doc.StartedAt,
			Passed:    doc.Passed,
			Failures:  failed,
		})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })

	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal runs: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func getSpecificRun(outputDir, runID string) (*mcp.CallToolResult, error) {
	runPath, err := resolveRunPath(outputDir, runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid run_id: %v", err)), nil
	}

	doc, err := report.ReadSummary(runPath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run %q not found: %v", runID, err)), nil
	}

	data, err := report.MarshalJSON(doc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func handleGetRunHistory(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.History == nil {
		return mcp.NewToolResultError("run history is not configured (start the server with --history-db)"), nil
	}

	args := request.GetArguments()
	suite, _ := args["test_suite"].(string)
	key, _ := args["key"].(string)
	limit := defaultHistoryLimit
	if n, ok := args["limit"].(float64); ok && n > 0 {
		limit = int(n)
	}

	var result any
	if key == "" {
		runs, err := sc.History.ListRuns(ctx, suite, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list runs: %v", err)), nil
		}
		result = runs
	} else {
		if suite == "" {
			return mcp.NewToolResultError("test_suite is required when key is set"), nil
		}
		points, err := sc.History.KeyHistory(ctx, suite, key, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to query key history: %v", err)), nil
		}
		mean, stddev, count, err := sc.History.Stats(ctx, suite, key)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to compute key stats: %v", err)), nil
		}
		result = map[string]any{
			"suite":  suite,
			"key":    key,
			"points": points,
			"mean":   mean,
			"stddev": stddev,
			"count":  count,
		}
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal history: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
