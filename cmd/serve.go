package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/giantswarm/load-testing/internal/history"
	mcptools "github.com/giantswarm/load-testing/internal/mcp"
	"github.com/giantswarm/load-testing/internal/metrics"
	"github.com/giantswarm/load-testing/internal/server"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"

	// defaultServeConns sizes the shared HTTP client when tool runs are uncapped.
	defaultServeConns = 100
)

func newServeCmd() *cobra.Command {
	var (
		transportType  string
		httpAddr       string
		httpEndpoint   string
		inCluster      bool
		outputDir      string
		suitesDir      string
		historyDB      string
		maxRunDuration time.Duration
		maxConcurrency int
		client         fetcherFlags

		enableOAuth bool
		oauthCfg    server.OAuthConfig
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server so agents can list, describe and run load-test suites
and read their results through the Model Context Protocol.

Transports:
  - stdio: standard input/output (default, for IDE integration)
  - streamable-http: HTTP with streaming support (for remote access)

Over streamable-http the MCP endpoint can be protected with OAuth 2.1 (Dex),
and live metrics of tool-triggered runs are served on /metrics. A tool call
answers only when its run is over, so --max-run-duration must stay below the
HTTP write timeout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conns := maxConcurrency
			if conns <= 0 {
				conns = defaultServeConns
			}
			fetcher, err := client.fetcher(conns)
			if err != nil {
				return err
			}

			sc := &server.ServerContext{
				Fetcher:        fetcher,
				Metrics:        metrics.NewPrometheusSink(),
				OutputDir:      outputDir,
				SuitesDir:      suitesDir,
				MaxRunDuration: maxRunDuration,
				MaxConcurrency: maxConcurrency,
			}

			resolver, err := newResolver(cmd, inCluster)
			if err != nil {
				slog.Warn("Kubernetes service discovery not available, service references will fail", "error", err)
			} else {
				sc.Resolver = resolver
			}

			if historyDB != "" {
				store, err := history.Open(historyDB)
				if err != nil {
					return err
				}
				defer store.Close()
				sc.History = store
			}

			mcpSrv := mcpserver.NewMCPServer("load-testing", rootCmd.Version,
				mcpserver.WithToolCapabilities(true),
			)
			if err := mcptools.RegisterTools(mcpSrv, sc); err != nil {
				return fmt.Errorf("failed to register MCP tools: %w", err)
			}

			switch transportType {
			case transportStdio:
				if enableOAuth {
					return fmt.Errorf("--enable-oauth requires --transport %s", transportStreamableHTTP)
				}
				if err := mcpserver.ServeStdio(mcpSrv); err != nil {
					return fmt.Errorf("server stopped with error: %w", err)
				}
				return nil

			case transportStreamableHTTP:
				if maxRunDuration <= 0 || maxRunDuration >= server.WriteTimeout {
					slog.Warn("tool runs may outlive the HTTP write timeout",
						"max_run_duration", maxRunDuration,
						"write_timeout", server.WriteTimeout,
					)
				}

				opts := server.HTTPOptions{
					Addr:     httpAddr,
					Endpoint: httpEndpoint,
					Metrics:  sc.Metrics.Handler(),
				}
				if enableOAuth {
					cfg := oauthCfg.WithEnvDefaults(os.Getenv)
					if err := cfg.Validate(); err != nil {
						return err
					}
					opts.OAuth = &cfg
				}

				ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer cancel()
				return server.ServeHTTP(ctx, mcpSrv, opts)

			default:
				return fmt.Errorf("unsupported transport: %s (supported: %s, %s)", transportType, transportStdio, transportStreamableHTTP)
			}
		},
	}

	client.register(cmd)
	cmd.Flags().StringVar(&transportType, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http)")
	cmd.Flags().StringVar(&httpEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http)")
	cmd.Flags().BoolVar(&inCluster, "in-cluster", false, "Resolve service references with in-cluster Kubernetes credentials")
	cmd.Flags().StringVar(&outputDir, "output-dir", "results", "Directory for run reports")
	cmd.Flags().StringVar(&suitesDir, "suites-dir", "", "External test suites directory (optional)")
	cmd.Flags().StringVar(&historyDB, "history-db", "", "Record tool-triggered runs in this SQLite database (optional)")
	cmd.Flags().DurationVar(&maxRunDuration, "max-run-duration", 90*time.Second, "Longest run a tool call may request (0 = no limit)")
	cmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 50, "Most virtual users a tool call may request (0 = no limit)")

	cmd.Flags().BoolVar(&enableOAuth, "enable-oauth", false, "Protect the MCP endpoint with OAuth 2.1 (streamable-http only)")
	cmd.Flags().StringVar(&oauthCfg.BaseURL, "oauth-base-url", "", "Public base URL of the server (e.g. https://load-testing.example.com)")
	cmd.Flags().StringVar(&oauthCfg.DexIssuerURL, "dex-issuer-url", "", "Dex OIDC issuer URL (or DEX_ISSUER_URL)")
	cmd.Flags().StringVar(&oauthCfg.DexClientID, "dex-client-id", "", "Dex OAuth client ID (or DEX_CLIENT_ID)")
	cmd.Flags().StringVar(&oauthCfg.DexClientSecret, "dex-client-secret", "", "Dex OAuth client secret (or DEX_CLIENT_SECRET)")

	return cmd
}
