package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"INOREADER_CONFIG", "INOREADER_API_BASE_URL", "INOREADER_OAUTH_BASE_URL",
		"INOREADER_CLIENT_ID", "INOREADER_CLIENT_SECRET", "INOREADER_SCOPE",
		"INOREADER_TOKEN_DIR", "INOREADER_REDIRECT_PORT", "INOREADER_HTTP_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIBaseURL, cfg.APIBaseURL)
	assert.Equal(t, DefaultOAuthBaseURL, cfg.OAuthBaseURL)
	assert.Equal(t, DefaultRedirectPort, cfg.RedirectPort)
	assert.Equal(t, DefaultScope, cfg.Scope)
	assert.Empty(t, cfg.Path)
	assert.False(t, cfg.HasClientCredentials())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `api_base_url: https://api.example.com/reader/api/0/
oauth_base_url: https://auth.example.com/oauth2
client_id: file-id
client_secret: file-secret
redirect_port: 9000
http_timeout: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("INOREADER_CLIENT_ID", "env-id")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/reader/api/0", cfg.APIBaseURL)
	assert.Equal(t, "https://auth.example.com/oauth2", cfg.OAuthBaseURL)
	assert.Equal(t, "env-id", cfg.ClientID)
	assert.Equal(t, "file-secret", cfg.ClientSecret)
	assert.Equal(t, 9000, cfg.RedirectPort)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, path, cfg.Path)
	assert.True(t, cfg.HasClientCredentials())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redirect_port: [not a number"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty api url", func(c *Config) { c.APIBaseURL = " / " }, true},
		{"empty oauth url", func(c *Config) { c.OAuthBaseURL = "" }, true},
		{"port zero", func(c *Config) { c.RedirectPort = 0 }, true},
		{"port too large", func(c *Config) { c.RedirectPort = 70000 }, true},
		{"negative timeout", func(c *Config) { c.HTTPTimeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "https://x.test/api", NormalizeBaseURL(" https://x.test/api// "))
	assert.Equal(t, "", NormalizeBaseURL(""))
}
