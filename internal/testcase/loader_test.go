package testcase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedWebsite(t *testing.T) {
	suite, err := Load(context.Background(), "website", "")
	require.NoError(t, err)

	assert.Equal(t, "website", suite.Name)
	assert.Equal(t, 10, suite.Options.Concurrency)
	assert.Equal(t, 30*time.Second, suite.Options.Duration)
	assert.Equal(t, time.Second, suite.Options.PacingOrDefault())
	assert.Equal(t, "uniform", suite.Options.Selector)
	assert.Equal(t, "rate>=0.9", suite.Options.Thresholds["checks"])

	assert.Equal(t, []string{"home", "about", "contact", "api"}, suite.Registry.Names())
	require.Len(t, suite.CommonChecks, 3)
	assert.Equal(t, "no_server_errors", suite.CommonChecks[0].Name)

	api, ok := suite.Registry.Lookup("api")
	require.True(t, ok)
	assert.Equal(t, "http://example.com/api/status.json", api.URL())
	assert.Len(t, api.Checks, 5)
	assert.Equal(t, "p(95)<200", api.BasicThresholds[RequestDuration])
	assert.Equal(t, 1, api.Weight)
}

func TestLoad_TargetURLOverride(t *testing.T) {
	suite, err := Load(context.Background(), "website", "", WithTargetURL("https://staging.example.org"))
	require.NoError(t, err)

	for _, tc := range suite.Registry.TestCases() {
		assert.Equal(t, "https://staging.example.org", tc.BaseURL, tc.Name)
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(context.Background(), "nonexistent", "")
	assert.Error(t, err)
}

type stubResolver struct {
	urls map[string]string
}

func (s stubResolver) ResolveBaseURL(_ context.Context, ref ServiceRef) (string, error) {
	u, ok := s.urls[ref.Name]
	if !ok {
		return "", fmt.Errorf("service %s not found", ref.Name)
	}
	return u, nil
}

func TestLoad_ServiceReferences(t *testing.T) {
	_, err := Load(context.Background(), "k8s-service", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no service resolver")

	suite, err := Load(context.Background(), "k8s-service", "",
		WithServiceResolver(stubResolver{urls: map[string]string{"app": "http://app.default.svc:8080"}}))
	require.NoError(t, err)

	healthz, ok := suite.Registry.Lookup("healthz")
	require.True(t, ok)
	assert.Equal(t, "http://app.default.svc:8080/healthz", healthz.URL())
	assert.Equal(t, 3, healthz.Weight)
	assert.Equal(t, "round-robin", suite.Options.Selector)
	assert.Equal(t, 500*time.Millisecond, suite.Options.PacingOrDefault())
}

func writeSuite(t *testing.T, dir, name, content string) {
	t.Helper()
	suiteDir := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(suiteDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(suiteDir, "config.yaml"), []byte(content), 0o644))
}

func TestLoad_ExternalDirectory(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "custom", `
description: external suite
options:
  pacing: 0s
test_cases:
  - name: root
    base_url: http://localhost:8080
    path: /
    checks:
      - name: ok
        threshold: rate>=0.5
        rule: {status: [200]}
`)

	suite, err := Load(context.Background(), "custom", dir)
	require.NoError(t, err)

	assert.Equal(t, "custom", suite.Name)
	assert.Equal(t, 10, suite.Options.Concurrency)
	assert.Equal(t, time.Duration(0), suite.Options.PacingOrDefault())
	assert.Empty(t, suite.CommonChecks)
}

func TestLoad_InvalidSuites(t *testing.T) {
	tests := []struct {
		name    string
		content string
		problem string
	}{
		{
			name:    "malformed yaml",
			content: "test_cases: [",
			problem: "failed to parse",
		},
		{
			name: "bad rule",
			content: `
test_cases:
  - name: root
    base_url: http://localhost
    checks:
      - name: empty
        threshold: rate>=1
`,
			problem: "no conditions",
		},
		{
			name: "duplicate test case",
			content: `
test_cases:
  - name: root
    base_url: http://localhost
  - name: root
    base_url: http://localhost
`,
			problem: "duplicate test case name",
		},
		{
			name: "invalid common check",
			content: `
common_checks:
  - name: "a,b"
    threshold: rate>=1
    rule: {body_present: true}
test_cases:
  - name: root
    base_url: http://localhost
`,
			problem: "must not contain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSuite(t, dir, "broken", tt.content)

			_, err := Load(context.Background(), "broken", dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}

func TestLoad_ConfigErrorIsTyped(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "broken", "test_cases: []\n")

	_, err := Load(context.Background(), "broken", dir)
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "custom", "test_cases: []\n")
	writeSuite(t, dir, "website", "test_cases: []\n")

	names, err := List(dir)
	require.NoError(t, err)
	assert.Contains(t, names, "website")
	assert.Contains(t, names, "k8s-service")
	assert.Contains(t, names, "custom")

	count := 0
	for _, n := range names {
		if n == "website" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
