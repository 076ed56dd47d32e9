package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	tcpDialTimeout        = 5 * time.Second
	tcpKeepAliveInterval  = 30 * time.Second
	tlsHandshakeTimeout   = 5 * time.Second
	idleConnTimeout       = 90 * time.Second
	expectContinueTimeout = 1 * time.Second
)

// Fetcher performs a single request. Implementations never return an error:
// failures are folded into the Response so that checks can still run.
type Fetcher interface {
	Fetch(ctx context.Context, method, url string, tags Tags) *Response
}

// HTTPFetcher is a Fetcher backed by a pooled net/http client shared by all
// virtual users.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	headers   map[string]string
}

// NewHTTPFetcher creates a fetcher with a connection pool tuned for load generation.
func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	cfg := &fetcherConfig{
		timeout:   defaultRequestTimeout,
		maxConns:  defaultMaxConns,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	tr := &http.Transport{
		MaxIdleConns:        cfg.maxConns,
		MaxIdleConnsPerHost: cfg.maxConns,
		MaxConnsPerHost:     cfg.maxConns * 2,
		IdleConnTimeout:     idleConnTimeout,
		ForceAttemptHTTP2:   true,
		DialContext: (&net.Dialer{
			Timeout:   tcpDialTimeout,
			KeepAlive: tcpKeepAliveInterval,
		}).DialContext,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ResponseHeaderTimeout: cfg.timeout,
		ExpectContinueTimeout: expectContinueTimeout,
	}
	if cfg.insecureSkipVerify {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed targets
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   cfg.timeout,
			Transport: tr,
		},
		userAgent: cfg.userAgent,
		headers:   cfg.headers,
	}
}

// Fetch issues the request and reads the full body. The URL is used exactly
// as given. Tags are not sent on the wire.
func (f *HTTPFetcher) Fetch(ctx context.Context, method, url string, _ Tags) *Response {
	if method == "" {
		method = http.MethodGet
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return &Response{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return &Response{Duration: time.Since(start), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	if err != nil {
		return &Response{
			Status:   resp.StatusCode,
			Duration: duration,
			Headers:  resp.Header,
			Err:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return &Response{
		Status:   resp.StatusCode,
		Duration: duration,
		Headers:  resp.Header,
		Body:     body,
	}
}
