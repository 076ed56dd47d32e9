package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/load-testing/internal/history"
	"github.com/giantswarm/load-testing/internal/metrics"
	"github.com/giantswarm/load-testing/internal/report"
	"github.com/giantswarm/load-testing/internal/runner"
	"github.com/giantswarm/load-testing/internal/transport"
)

// fetcherFlags configure the HTTP client used by virtual users.
type fetcherFlags struct {
	requestTimeout time.Duration
	insecure       bool
	userAgent      string
	headers        []string
}

func (f *fetcherFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.requestTimeout, "request-timeout", 60*time.Second, "Timeout of a single request")
	cmd.Flags().BoolVar(&f.insecure, "insecure", false, "Skip TLS certificate verification")
	cmd.Flags().StringVar(&f.userAgent, "user-agent", "", "User-Agent header sent with every request")
	cmd.Flags().StringArrayVar(&f.headers, "header", nil, "Extra request header as 'Name: value' (repeatable)")
}

func (f *fetcherFlags) fetcher(concurrency int) (*transport.HTTPFetcher, error) {
	opts := []transport.Option{
		transport.WithTimeout(f.requestTimeout),
		transport.WithMaxConns(concurrency),
		transport.WithInsecureSkipVerify(f.insecure),
	}
	if f.userAgent != "" {
		opts = append(opts, transport.WithUserAgent(f.userAgent))
	}
	for _, h := range f.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		opts = append(opts, transport.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	return transport.NewHTTPFetcher(opts...), nil
}

func newRunCmd() *cobra.Command {
	var (
		suite          suiteFlags
		client         fetcherFlags
		concurrency    int
		duration       time.Duration
		pacing         time.Duration
		iterations     int
		maxRPS         float64
		selector       string
		gracefulStop   time.Duration
		outputDir      string
		junitClassname string
		metricsAddr    string
		historyDB      string
		quiet          bool
	)

	cmd := &cobra.Command{
		Use:   "run <test-suite>",
		Short: "Run a load-test suite",
		Long: `Execute a load-test suite. Virtual users repeatedly pick a test case, request
it, evaluate the common and test-case checks and wait for the pacing delay.

When the run ends every compiled threshold is judged. The summary is printed
and written to the output directory as JSON, Markdown and JUnit XML. The
command exits with a non-zero status if any threshold failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := suite.load(ctx, cmd, args[0])
			if err != nil {
				return err
			}

			cfg := runner.ConfigFromOptions(s.Options)
			flags := cmd.Flags()
			if flags.Changed("concurrency") {
				cfg.Concurrency = concurrency
			}
			if flags.Changed("duration") {
				cfg.Duration = duration
			}
			if flags.Changed("pacing") {
				cfg.Pacing = pacing
			}
			if flags.Changed("iterations") {
				cfg.Iterations = iterations
			}
			if flags.Changed("max-rps") {
				cfg.MaxRPS = maxRPS
			}
			if flags.Changed("selector") {
				cfg.Selector = selector
			}
			cfg.GracefulStop = gracefulStop
			if err := cfg.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !quiet {
				compiled, err := runner.CompileSuite(s)
				if err != nil {
					return err
				}
				if err := report.WriteConfiguration(out, s, compiled); err != nil {
					return err
				}
			}

			fetcher, err := client.fetcher(cfg.Concurrency)
			if err != nil {
				return err
			}

			r := runner.NewRunner(fetcher, outputDir)
			r.SetJUnitClassname(junitClassname)
			r.SetProgressFunc(func(n int64, elapsed time.Duration) {
				fmt.Fprintf(cmd.ErrOrStderr(), "\r  %d iterations, %s elapsed", n, elapsed.Round(time.Second))
			})

			if metricsAddr != "" {
				sink := metrics.NewPrometheusSink()
				r.AddSink(sink)
				shutdown := serveMetrics(metricsAddr, sink)
				defer shutdown()
			}

			if historyDB != "" {
				store, err := history.Open(historyDB)
				if err != nil {
					return err
				}
				defer store.Close()
				r.SetHistory(store)
			}

			result, err := r.Run(ctx, s, cfg)
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if err := report.WriteText(out, result.Document); err != nil {
				return err
			}
			if result.Artifacts != nil {
				fmt.Fprintf(out, "Reports: %s\n", result.Artifacts.Dir)
			}

			if !result.Document.Passed {
				_, failed := result.Document.Counts()
				return fmt.Errorf("%d threshold(s) failed", failed)
			}
			return nil
		},
	}

	suite.register(cmd)
	client.register(cmd)
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Number of virtual users (default: from suite)")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Run duration, e.g. 30s (default: from suite)")
	cmd.Flags().DurationVar(&pacing, "pacing", 0, "Delay after each iteration (default: from suite)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "Stop after this many iterations in total (0 = unlimited)")
	cmd.Flags().Float64Var(&maxRPS, "max-rps", 0, "Cap on requests per second across all virtual users (0 = unlimited)")
	cmd.Flags().StringVar(&selector, "selector", "", "Test case selection: uniform, round-robin or weighted (default: from suite)")
	cmd.Flags().DurationVar(&gracefulStop, "graceful-stop", runner.DefaultGracefulStop, "Time in-flight iterations may take after the duration elapsed")
	cmd.Flags().StringVar(&outputDir, "output-dir", "results", "Directory for run reports (empty disables files)")
	cmd.Flags().StringVar(&junitClassname, "junit-classname", report.DefaultClassname, "Classname of the JUnit test cases")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve live Prometheus metrics on this address, e.g. :9090")
	cmd.Flags().StringVar(&historyDB, "history-db", "", "Record the run in this SQLite database")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the configuration before the run")

	return cmd
}

// serveMetrics exposes the sink on addr/metrics until the returned func is called.
func serveMetrics(addr string, sink *metrics.PrometheusSink) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", sink.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	slog.Info("serving live metrics", "addr", addr, "path", "/metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
