package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	var gotUA, gotHeader, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotHeader = r.Header.Get("X-Env")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(WithUserAgent("load-testing/1.0"), WithHeader("X-Env", "staging"))
	resp := f.Fetch(context.Background(), "", srv.URL+"/api/health", Tags{"test_case": "api"})

	require.NoError(t, resp.Err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, `{"status":"ok"}`, string(resp.Body))
	assert.Equal(t, "application/json", resp.Header("content-type"))
	assert.Equal(t, "load-testing/1.0", gotUA)
	assert.Equal(t, "staging", gotHeader)
	assert.Equal(t, "/api/health", gotPath)
	assert.Greater(t, resp.Duration, time.Duration(0))
	assert.False(t, resp.Failed())
}

func TestHTTPFetcher_EmptyBodyIsNotNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp := NewHTTPFetcher().Fetch(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, resp.Err)
	assert.NotNil(t, resp.Body)
	assert.Empty(t, resp.Body)
}

func TestHTTPFetcher_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	resp := NewHTTPFetcher(WithTimeout(time.Second)).Fetch(context.Background(), http.MethodGet, url, nil)
	assert.Error(t, resp.Err)
	assert.Equal(t, 0, resp.Status)
	assert.Nil(t, resp.Body)
	assert.True(t, resp.Failed())
}

func TestHTTPFetcher_InvalidURL(t *testing.T) {
	resp := NewHTTPFetcher().Fetch(context.Background(), http.MethodGet, "://bad", nil)
	assert.Error(t, resp.Err)
	assert.Equal(t, 0, resp.Status)
}

func TestResponse_Failed(t *testing.T) {
	tests := []struct {
		name   string
		resp   *Response
		failed bool
	}{
		{name: "ok", resp: &Response{Status: 200}, failed: false},
		{name: "redirect", resp: &Response{Status: 302}, failed: false},
		{name: "not found", resp: &Response{Status: 404}, failed: true},
		{name: "server error", resp: &Response{Status: 503}, failed: true},
		{name: "no status", resp: &Response{}, failed: true},
		{name: "nil", resp: nil, failed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.failed, tt.resp.Failed())
		})
	}
}

func TestResponse_DurationMillis(t *testing.T) {
	r := &Response{Duration: 1500 * time.Microsecond}
	assert.InDelta(t, 1.5, r.DurationMillis(), 1e-9)
}
