package transport

import "time"

const (
	defaultRequestTimeout = 10 * time.Second
	defaultMaxConns       = 100
	defaultUserAgent      = "load-testing"
)

// fetcherConfig holds configuration for an HTTP fetcher.
type fetcherConfig struct {
	timeout            time.Duration
	maxConns           int
	insecureSkipVerify bool
	userAgent          string
	headers            map[string]string
}

// Option is a functional option for configuring an HTTPFetcher.
type Option func(*fetcherConfig)

// WithTimeout sets the overall per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *fetcherConfig) {
		c.timeout = d
	}
}

// WithMaxConns sizes the connection pool. It should be at least the number
// of virtual users, otherwise requests queue on the pool.
func WithMaxConns(n int) Option {
	return func(c *fetcherConfig) {
		c.maxConns = n
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *fetcherConfig) {
		c.insecureSkipVerify = skip
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *fetcherConfig) {
		c.userAgent = ua
	}
}

// WithHeader adds a static header to every request.
func WithHeader(name, value string) Option {
	return func(c *fetcherConfig) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[name] = value
	}
}
