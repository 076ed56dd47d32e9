// Package runner executes a load-test suite: it compiles the thresholds,
// drives virtual users through the dispatcher and renders the summary.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/giantswarm/load-testing/internal/dispatch"
	"github.com/giantswarm/load-testing/internal/history"
	"github.com/giantswarm/load-testing/internal/metrics"
	"github.com/giantswarm/load-testing/internal/report"
	"github.com/giantswarm/load-testing/internal/summary"
	"github.com/giantswarm/load-testing/internal/testcase"
	"github.com/giantswarm/load-testing/internal/threshold"
	"github.com/giantswarm/load-testing/internal/transport"
)

// ProgressFunc is called periodically with the number of completed
// iterations and the elapsed time.
type ProgressFunc func(iterations int64, elapsed time.Duration)

// Outcome is the result of a run.
type Outcome struct {
	RunID      string
	Document   *summary.Document
	Thresholds *threshold.Map
	Artifacts  *report.Artifacts
	Stats      Stats
}

// Runner orchestrates the execution of test suites.
type Runner struct {
	fetcher   transport.Fetcher
	outputDir string // empty disables artifact files
	classname string
	sinks     []metrics.Sink
	history   *history.Store
	progress  ProgressFunc
	logger    *slog.Logger
}

// NewRunner creates a runner that issues requests through fetcher and writes
// reports below outputDir.
func NewRunner(fetcher transport.Fetcher, outputDir string) *Runner {
	return &Runner{
		fetcher:   fetcher,
		outputDir: outputDir,
		classname: report.DefaultClassname,
		logger:    slog.Default(),
	}
}

// SetProgressFunc sets the progress callback.
func (r *Runner) SetProgressFunc(fn ProgressFunc) {
	r.progress = fn
}

// AddSink registers an extra metrics sink, e.g. the Prometheus exporter.
func (r *Runner) AddSink(s metrics.Sink) {
	r.sinks = append(r.sinks, s)
}

// SetHistory records every finished run in the given store.
func (r *Runner) SetHistory(h *history.Store) {
	r.history = h
}

// SetLogger sets the logger handed to the dispatcher.
func (r *Runner) SetLogger(l *slog.Logger) {
	r.logger = l
}

// SetJUnitClassname sets the classname used in the JUnit report.
func (r *Runner) SetJUnitClassname(name string) {
	if name != "" {
		r.classname = name
	}
}

// CompileSuite compiles the threshold map of a suite, using the suite's
// global thresholds or the defaults.
func CompileSuite(suite *testcase.Suite) (*threshold.Map, error) {
	return threshold.CompileWithGlobals(suite.Registry, suite.CommonChecks, threshold.GlobalsFromMap(suite.Options.Thresholds))
}

// Run executes the suite with cfg and writes its reports. Threshold breaches
// are reported through Outcome.Document.Passed, not as an error.
func (r *Runner) Run(ctx context.Context, suite *testcase.Suite, cfg Config) (*Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	compiled, err := CompileSuite(suite)
	if err != nil {
		return nil, err
	}

	selector, err := dispatch.GetSelector(cfg.Selector)
	if err != nil {
		return nil, err
	}

	store := metrics.NewStore()
	sink := append(metrics.MultiSink{store}, r.sinks...)

	d := dispatch.New(suite.Registry, suite.CommonChecks, r.fetcher, sink,
		dispatch.WithSelector(selector),
		dispatch.WithPacing(cfg.Pacing),
		dispatch.WithLogger(r.logger),
	)

	startedAt := time.Now()
	runID := newRunID(suite.Name, startedAt)

	slog.Info("starting load test",
		"run_id", runID,
		"suite", suite.Name,
		"test_cases", suite.Registry.Len(),
		"thresholds", compiled.Len(),
		"concurrency", cfg.Concurrency,
		"duration", cfg.Duration,
		"selector", selector.Name(),
	)

	stats := schedule(ctx, d, cfg, r.progress)
	if stats.Interrupted {
		slog.Warn("load test interrupted", "run_id", runID, "iterations", stats.Iterations)
	}

	doc := summary.Render(summary.Input{
		RunID:        runID,
		Suite:        suite.Name,
		StartedAt:    startedAt,
		Duration:     stats.Duration,
		Iterations:   stats.Iterations,
		Interrupted:  stats.Interrupted,
		Registry:     suite.Registry,
		CommonChecks: suite.CommonChecks,
		Thresholds:   compiled,
		Metrics:      store,
	})

	out := &Outcome{
		RunID:      runID,
		Document:   doc,
		Thresholds: compiled,
		Stats:      stats,
	}

	if r.outputDir != "" {
		artifacts, err := report.WriteArtifacts(r.outputDir, doc, compiled, r.classname)
		if err != nil {
			return nil, fmt.Errorf("failed to write reports: %w", err)
		}
		out.Artifacts = artifacts
	}

	if r.history != nil {
		// A broken history database must not hide the run's verdict.
		if err := r.history.RecordRun(context.WithoutCancel(ctx), doc); err != nil {
			slog.Error("failed to record run history", "run_id", runID, "error", err)
		}
	}

	passed, failed := doc.Counts()
	slog.Info("load test complete",
		"run_id", runID,
		"iterations", stats.Iterations,
		"duration", stats.Duration,
		"thresholds_passed", passed,
		"thresholds_failed", failed,
	)

	return out, nil
}

// newRunID builds a run ID from the suite name, the start time and a short
// random suffix, so runs started within the same second do not collide.
func newRunID(suite string, startedAt time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s",
		sanitizeFilename(strings.ReplaceAll(suite, " ", "_")),
		startedAt.Format("20060102-150405"),
		suffix,
	)
}

// sanitizeFilename replaces characters unsafe for filenames with underscores.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
