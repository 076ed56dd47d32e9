package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	oauth "github.com/giantswarm/mcp-oauth"
	"github.com/giantswarm/mcp-oauth/providers/dex"
	oauthserver "github.com/giantswarm/mcp-oauth/server"
	"github.com/giantswarm/mcp-oauth/storage/memory"
)

const defaultMaxClientsPerIP = 10

// OAuthConfig configures OAuth 2.1 protection of the MCP endpoint with Dex
// as the identity provider.
type OAuthConfig struct {
	// BaseURL is the public URL of the server, e.g. https://load-testing.example.com.
	BaseURL string

	DexIssuerURL    string
	DexClientID     string
	DexClientSecret string
}

// WithEnvDefaults fills unset Dex settings from the DEX_* environment
// variables read through getenv.
func (c OAuthConfig) WithEnvDefaults(getenv func(string) string) OAuthConfig {
	if c.DexIssuerURL == "" {
		c.DexIssuerURL = getenv("DEX_ISSUER_URL")
	}
	if c.DexClientID == "" {
		c.DexClientID = getenv("DEX_CLIENT_ID")
	}
	if c.DexClientSecret == "" {
		c.DexClientSecret = getenv("DEX_CLIENT_SECRET")
	}
	return c
}

// Validate reports every missing or unsafe setting at once.
func (c OAuthConfig) Validate() error {
	var problems []string
	if err := requireSecureBaseURL(c.BaseURL); err != nil {
		problems = append(problems, err.Error())
	}
	if c.DexIssuerURL == "" {
		problems = append(problems, "dex issuer URL is required (--dex-issuer-url or DEX_ISSUER_URL)")
	}
	if c.DexClientID == "" {
		problems = append(problems, "dex client ID is required (--dex-client-id or DEX_CLIENT_ID)")
	}
	if c.DexClientSecret == "" {
		problems = append(problems, "dex client secret is required (--dex-client-secret or DEX_CLIENT_SECRET)")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid OAuth configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// oauthGuard owns the OAuth server and its HTTP handlers.
type oauthGuard struct {
	server  *oauth.Server
	handler *oauth.Handler
}

func newOAuthGuard(cfg OAuthConfig) (*oauthGuard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := dex.NewProvider(&dex.Config{
		IssuerURL:    cfg.DexIssuerURL,
		ClientID:     cfg.DexClientID,
		ClientSecret: cfg.DexClientSecret,
		RedirectURL:  cfg.BaseURL + "/oauth/callback",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Dex provider: %w", err)
	}

	// Tokens live in memory, so the server runs as a single instance.
	store := memory.New()
	logger := slog.Default()

	srv, err := oauth.NewServer(provider, store, store, store,
		&oauthserver.Config{
			Issuer:                    cfg.BaseURL,
			AllowRefreshTokenRotation: true,
			MaxClientsPerIP:           defaultMaxClientsPerIP,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth server: %w", err)
	}

	return &oauthGuard{server: srv, handler: oauth.NewHandler(srv, logger)}, nil
}

func (g *oauthGuard) register(mux *http.ServeMux, mcpEndpoint string) {
	g.handler.RegisterAuthorizationServerMetadataRoutes(mux)
	g.handler.RegisterProtectedResourceMetadataRoutes(mux, mcpEndpoint)
	mux.HandleFunc("/oauth/authorize", g.handler.ServeAuthorization)
	mux.HandleFunc("/oauth/token", g.handler.ServeToken)
	mux.HandleFunc("/oauth/callback", g.handler.ServeCallback)
	mux.HandleFunc("/oauth/register", g.handler.ServeClientRegistration)
	mux.HandleFunc("/oauth/revoke", g.handler.ServeTokenRevocation)
	mux.HandleFunc("/oauth/introspect", g.handler.ServeTokenIntrospection)
}

func (g *oauthGuard) protect(next http.Handler) http.Handler {
	return g.handler.ValidateToken(next)
}

func (g *oauthGuard) shutdown(ctx context.Context) error {
	return g.server.Shutdown(ctx)
}

// requireSecureBaseURL enforces HTTPS, allowing plain HTTP only on loopback
// hosts for local development.
func requireSecureBaseURL(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL is required (--oauth-base-url)")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return nil
		}
		return fmt.Errorf("OAuth 2.1 requires HTTPS outside localhost (got %s)", baseURL)
	default:
		return fmt.Errorf("invalid URL scheme %q (must be https, or http for localhost)", u.Scheme)
	}
}
