// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"sync"

	"github.com/giantswarm/load-testing/internal/metrics"
	"github.com/giantswarm/load-testing/internal/transport"
)

// FetchCall records one invocation of MockFetcher.Fetch.
type FetchCall struct {
	Method string
	URL    string
	Tags   transport.Tags
}

// MockFetcher is a configurable transport.Fetcher used across test packages.
// It is safe for concurrent use.
type MockFetcher struct {
	// Responses maps URLs to canned responses.
	Responses map[string]*transport.Response

	// DefaultResponse is returned when no matching URL is found in Responses.
	DefaultResponse *transport.Response

	// Func, when set, takes precedence over the canned responses.
	Func func(url string) *transport.Response

	mu    sync.Mutex
	calls []FetchCall
}

func (m *MockFetcher) Fetch(_ context.Context, method, url string, tags transport.Tags) *transport.Response {
	m.mu.Lock()
	m.calls = append(m.calls, FetchCall{Method: method, URL: url, Tags: tags})
	m.mu.Unlock()

	if m.Func != nil {
		return m.Func(url)
	}
	if resp, ok := m.Responses[url]; ok {
		return resp
	}
	if m.DefaultResponse != nil {
		return m.DefaultResponse
	}
	return &transport.Response{Status: 200, Body: []byte("mock response")}
}

// Calls returns a copy of the recorded calls.
func (m *MockFetcher) Calls() []FetchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FetchCall(nil), m.calls...)
}

// RecordingSink is a metrics.Sink that keeps every observation in order.
type RecordingSink struct {
	mu  sync.Mutex
	obs []metrics.Observation
}

func (s *RecordingSink) Observe(o metrics.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obs = append(s.obs, o)
}

// Observations returns a copy of the recorded observations.
func (s *RecordingSink) Observations() []metrics.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]metrics.Observation(nil), s.obs...)
}

// ByMetric returns the recorded observations of one metric.
func (s *RecordingSink) ByMetric(metric string) []metrics.Observation {
	var out []metrics.Observation
	for _, o := range s.Observations() {
		if o.Metric == metric {
			out = append(out, o)
		}
	}
	return out
}
