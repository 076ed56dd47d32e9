package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/segmentio/encoding/json"

	"github.com/giantswarm/load-testing/internal/runner"
	"github.com/giantswarm/load-testing/internal/server"
	"github.com/giantswarm/load-testing/internal/testcase"
	"github.com/giantswarm/load-testing/internal/transport"
)

// runSummary is the tool result of run_load_test.
type runSummary struct {
	RunID      string          `json:"run_id"`
	Suite      string          `json:"suite"`
	Passed     bool            `json:"passed"`
	Iterations int64           `json:"iterations"`
	Duration   string          `json:"duration"`
	Thresholds int             `json:"thresholds"`
	Failures   []failedSummary `json:"failures,omitempty"`
	OutputDir  string          `json:"output_dir,omitempty"`
}

type failedSummary struct {
	Key        string  `json:"key"`
	Expression string  `json:"expression"`
	Observed   float64 `json:"observed"`
}

func handleRunLoadTest(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
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

	cfg, err := runConfig(suite.Options, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if sc.MaxRunDuration > 0 && cfg.Duration > sc.MaxRunDuration {
		return mcp.NewToolResultError(fmt.Sprintf("duration %s exceeds the server limit of %s", cfg.Duration, sc.MaxRunDuration)), nil
	}
	if sc.MaxConcurrency > 0 && cfg.Concurrency > sc.MaxConcurrency {
		return mcp.NewToolResultError(fmt.Sprintf("concurrency %d exceeds the server limit of %d", cfg.Concurrency, sc.MaxConcurrency)), nil
	}

	fetcher := sc.Fetcher
	if fetcher == nil {
		fetcher = transport.NewHTTPFetcher()
	}
	r := runner.NewRunner(fetcher, sc.OutputDir)
	if sc.Metrics != nil {
		r.AddSink(sc.Metrics)
	}
	if sc.History != nil {
		r.SetHistory(sc.History)
	}

	out, err := r.Run(ctx, suite, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load test failed: %v", err)), nil
	}

	doc := out.Document
	res := runSummary{
		RunID:      out.RunID,
		Suite:      doc.Suite,
		Passed:     doc.Passed,
		Iterations: doc.Iterations,
		Duration:   out.Stats.Duration.Round(time.Millisecond).String(),
		Thresholds: len(doc.Thresholds),
	}
	for _, f := range doc.Failures() {
		res.Failures = append(res.Failures, failedSummary{Key: f.Key, Expression: f.Expression, Observed: f.Observed})
	}
	if out.Artifacts != nil {
		res.OutputDir = out.Artifacts.Dir
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal summary: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// runConfig applies tool arguments on top of the suite's options.
func runConfig(opts testcase.Options, args map[string]any) (runner.Config, error) {
	cfg := runner.ConfigFromOptions(opts)

	if s, ok := args["duration"].(string); ok && s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return cfg, fmt.Errorf("invalid duration %q: %v", s, err)
		}
		cfg.Duration = d
	}
	if s, ok := args["pacing"].(string); ok && s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return cfg, fmt.Errorf("invalid pacing %q: %v", s, err)
		}
		cfg.Pacing = d
	}
	if n, ok := args["concurrency"].(float64); ok {
		cfg.Concurrency = int(n)
	}
	if n, ok := args["iterations"].(float64); ok {
		cfg.Iterations = int(n)
	}
	if n, ok := args["max_rps"].(float64); ok {
		cfg.MaxRPS = n
	}
	if s, ok := args["selector"].(string); ok && s != "" {
		cfg.Selector = s
	}
	return cfg, cfg.Validate()
}
