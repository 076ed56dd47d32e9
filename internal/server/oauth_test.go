package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireSecureBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "https is valid", baseURL: "https://load-testing.example.com"},
		{name: "localhost http is valid", baseURL: "http://localhost:8080"},
		{name: "127.0.0.1 http is valid", baseURL: "http://127.0.0.1:8080"},
		{name: "ipv6 loopback http is valid", baseURL: "http://[::1]:8080"},
		{name: "non-localhost http is invalid", baseURL: "http://example.com", wantErr: true},
		{name: "empty URL is invalid", baseURL: "", wantErr: true},
		{name: "ftp scheme is invalid", baseURL: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := requireSecureBaseURL(tt.baseURL)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOAuthConfig_WithEnvDefaults(t *testing.T) {
	env := map[string]string{
		"DEX_ISSUER_URL":    "https://dex.example.com",
		"DEX_CLIENT_ID":     "from-env",
		"DEX_CLIENT_SECRET": "secret",
	}
	cfg := OAuthConfig{DexClientID: "from-flag"}.WithEnvDefaults(func(k string) string { return env[k] })

	assert.Equal(t, "https://dex.example.com", cfg.DexIssuerURL)
	assert.Equal(t, "from-flag", cfg.DexClientID, "flags win over the environment")
	assert.Equal(t, "secret", cfg.DexClientSecret)
}

func TestOAuthConfig_Validate(t *testing.T) {
	valid := OAuthConfig{
		BaseURL:         "https://load-testing.example.com",
		DexIssuerURL:    "https://dex.example.com",
		DexClientID:     "load-testing",
		DexClientSecret: "secret",
	}
	require.NoError(t, valid.Validate())

	err := OAuthConfig{BaseURL: "http://example.com"}.Validate()
	require.Error(t, err)
	for _, want := range []string{"requires HTTPS", "issuer URL", "client ID", "client secret"} {
		assert.Contains(t, err.Error(), want)
	}
}
