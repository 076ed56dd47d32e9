package mcp

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/segmentio/encoding/json"

	"github.com/giantswarm/load-testing/internal/report"
	"github.com/giantswarm/load-testing/internal/runner"
	"github.com/giantswarm/load-testing/internal/server"
	"github.com/giantswarm/load-testing/internal/testcase"
)

func registerSuiteTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// list_test_suites
	listTool := mcp.NewTool("list_test_suites",
		mcp.WithDescription("List available load-test suites with metadata"),
	)
	s.AddTool(listTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListTestSuites(ctx, request, sc)
	})

	// describe_test_suite
	describeTool := mcp.NewTool("describe_test_suite",
		mcp.WithDescription("Show a suite's common checks, test cases and the compiled threshold map"),
		mcp.WithString("test_suite",
			mcp.Required(),
			mcp.Description("Name of the test suite (e.g. 'website')"),
		),
		mcp.WithString("target_url",
			mcp.Description("Base URL replacing the suite's base URLs"),
		),
	)
	s.AddTool(describeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleDescribeTestSuite(ctx, request, sc)
	})

	// run_load_test
	runTool := mcp.NewTool("run_load_test",
		mcp.WithDescription("Run a load-test suite and return the threshold verdicts. Suite options apply unless overridden."),
		mcp.WithString("test_suite",
			mcp.Required(),
			mcp.Description("Name of the test suite to run"),
		),
		mcp.WithString("target_url",
			mcp.Description("Base URL replacing the suite's base URLs"),
		),
		mcp.WithString("duration",
			mcp.Description("Run duration, e.g. '30s' (default: from suite)"),
		),
		mcp.WithString("pacing",
			mcp.Description("Delay each virtual user waits after an iteration, e.g. '500ms' (default: from suite)"),
		),
		mcp.WithNumber("concurrency",
			mcp.Description("Number of virtual users (default: from suite)"),
		),
		mcp.WithNumber("iterations",
			mcp.Description("Stop after this many iterations (default: unlimited)"),
		),
		mcp.WithNumber("max_rps",
			mcp.Description("Cap on requests per second across all virtual users"),
		),
		mcp.WithString("selector",
			mcp.Description("Test case selection: uniform, round-robin or weighted"),
		),
	)
	s.AddTool(runTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleRunLoadTest(ctx, request, sc)
	})

	return nil
}

func handleListTestSuites(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	names, err := testcase.List(sc.SuitesDir)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list test suites: %v", err)), nil
	}

	type suiteInfo struct {
		Name         string `json:"name"`
		Description  string `json:"description,omitempty"`
		Version      string `json:"version,omitempty"`
		TestCases    int    `json:"test_case_count"`
		CommonChecks int    `json:"common_check_count"`
		Selector     string `json:"selector,omitempty"`
		Error        string `json:"error,omitempty"`
	}

	suites := make([]suiteInfo, 0, len(names))
	for _, name := range names {
		suite, err := testcase.Load(ctx, name, sc.SuitesDir, sc.LoadOptions("")...)
		if err != nil {
			// Still list it; the suite may need a service resolver or a fix.
			suites = append(suites, suiteInfo{Name: name, Error: err.Error()})
			continue
		}
		suites = append(suites, suiteInfo{
			Name:         suite.Name,
			Description:  suite.Description,
			Version:      suite.Version,
			TestCases:    suite.Registry.Len(),
			CommonChecks: len(suite.CommonChecks),
			Selector:     suite.Options.Selector,
		})
	}

	data, err := json.MarshalIndent(suites, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal test suites: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func handleDescribeTestSuite(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	suiteName, ok := args["test_suite"].(string)
	if !ok || suiteName == "" {
		return mcp.NewToolResultError("test_suite is required"), nil
	}
	targetURL, _ := args["target_url"].(string)

	suite, err := testcase.Load(ctx, suiteName, sc.SuitesDir, sc.LoadOptions(targetURL)...)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load test suite: %v", err)), nil
	}

	compiled, err := runner.CompileSuite(suite)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to compile thresholds: %v", err)), nil
	}

	var b bytes.Buffer
	if err := report.WriteConfiguration(&b, suite, compiled); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to describe test suite: %v", err)), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}
