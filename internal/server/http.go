package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 10 * time.Second

	// WriteTimeout bounds a whole HTTP exchange. run_load_test answers only
	// when the run is over, so runs triggered over HTTP must finish within it.
	WriteTimeout = 120 * time.Second
)

// HTTPOptions configures the streamable HTTP transport.
type HTTPOptions struct {
	Addr     string
	Endpoint string

	// Metrics is served unauthenticated on /metrics when set.
	Metrics http.Handler

	// OAuth protects the MCP endpoint. Nil leaves it open.
	OAuth *OAuthConfig
}

// ServeHTTP serves mcpSrv until ctx is cancelled and then shuts down
// gracefully.
func ServeHTTP(ctx context.Context, mcpSrv *mcpserver.MCPServer, opts HTTPOptions) error {
	handler, closeFn, err := newHandler(mcpSrv, opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       idleTimeout,
	}

	slog.Info("serving MCP over HTTP",
		"addr", opts.Addr,
		"endpoint", opts.Endpoint,
		"oauth", opts.OAuth != nil,
		"metrics", opts.Metrics != nil,
	)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received, stopping HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if closeFn != nil {
		if err := closeFn(shutdownCtx); err != nil {
			slog.Error("failed to shut down OAuth server", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down HTTP server: %w", err)
	}
	return nil
}

// newHandler assembles the routes. The returned close function releases the
// OAuth server, if any.
func newHandler(mcpSrv *mcpserver.MCPServer, opts HTTPOptions) (http.Handler, func(context.Context) error, error) {
	mux := http.NewServeMux()

	var mcpHandler http.Handler = mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(opts.Endpoint),
	)

	var closeFn func(context.Context) error
	if opts.OAuth != nil {
		guard, err := newOAuthGuard(*opts.OAuth)
		if err != nil {
			return nil, nil, err
		}
		guard.register(mux, opts.Endpoint)
		mcpHandler = guard.protect(mcpHandler)
		closeFn = guard.shutdown
	}

	mux.Handle(opts.Endpoint, mcpHandler)
	registerPublicRoutes(mux, opts.Metrics)
	return mux, closeFn, nil
}

func registerPublicRoutes(mux *http.ServeMux, metrics http.Handler) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
}
