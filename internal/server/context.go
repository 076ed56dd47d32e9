// Package server holds the shared state of the MCP server and its
// OAuth-protected HTTP transport.
package server

import (
	"time"

	"github.com/giantswarm/load-testing/internal/history"
	"github.com/giantswarm/load-testing/internal/metrics"
	"github.com/giantswarm/load-testing/internal/testcase"
	"github.com/giantswarm/load-testing/internal/transport"
)

// ServerContext holds shared dependencies for MCP tool handlers.
type ServerContext struct {
	Fetcher   transport.Fetcher
	Resolver  testcase.ServiceResolver // optional, resolves service: references
	History   *history.Store           // optional
	Metrics   *metrics.PrometheusSink  // optional, fed by every run
	OutputDir string
	SuitesDir string // external test suites directory (optional)

	// MaxRunDuration caps the duration a tool call may request. Zero means
	// no cap.
	MaxRunDuration time.Duration
	// MaxConcurrency caps the virtual users of a tool-triggered run. Zero
	// means no cap.
	MaxConcurrency int
}

// LoadOptions returns the suite loading options implied by the context.
func (sc *ServerContext) LoadOptions(targetURL string) []testcase.LoadOption {
	var opts []testcase.LoadOption
	if targetURL != "" {
		opts = append(opts, testcase.WithTargetURL(targetURL))
	}
	if sc.Resolver != nil {
		opts = append(opts, testcase.WithServiceResolver(sc.Resolver))
	}
	return opts
}
