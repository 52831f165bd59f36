// Package config provides layered configuration loading.
//
// Precedence, lowest to highest: built-in defaults, the YAML config file,
// environment variables, command-line flags (applied by the caller).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIBaseURL is the upstream REST API root.
	DefaultAPIBaseURL = "https://www.inoreader.com/reader/api/0"

	// DefaultOAuthBaseURL is the upstream OAuth root (auth + token endpoints).
	DefaultOAuthBaseURL = "https://www.inoreader.com/oauth2"

	// DefaultRedirectPort is the local port of the one-time OAuth callback.
	DefaultRedirectPort = 8765

	// DefaultScope requests read and write access.
	DefaultScope = "read write"
)

// Config holds the resolved configuration.
type Config struct {
	APIBaseURL   string        `yaml:"api_base_url"`
	OAuthBaseURL string        `yaml:"oauth_base_url"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Scope        string        `yaml:"scope"`
	RedirectPort int           `yaml:"redirect_port"`
	TokenDir     string        `yaml:"token_dir"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`

	// Path is the config file that was read, empty if none.
	Path string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIBaseURL:   DefaultAPIBaseURL,
		OAuthBaseURL: DefaultOAuthBaseURL,
		Scope:        DefaultScope,
		RedirectPort: DefaultRedirectPort,
		TokenDir:     GlobalConfigDir(),
	}
}

// Load resolves defaults, the config file and the environment.
// path overrides the file location; empty means INOREADER_CONFIG or the
// global default. A missing file is not an error, a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("INOREADER_CONFIG")
	}
	explicit := path != ""
	if path == "" {
		path = filepath.Join(GlobalConfigDir(), "config.yaml")
	}

	if err := loadFromFile(cfg, path); err != nil {
		if !os.IsNotExist(err) || explicit {
			return nil, err
		}
	} else {
		cfg.Path = path
	}

	LoadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is the user's own config
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("malformed config %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv applies INOREADER_* environment variables.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("INOREADER_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("INOREADER_OAUTH_BASE_URL"); v != "" {
		cfg.OAuthBaseURL = v
	}
	if v := os.Getenv("INOREADER_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv("INOREADER_CLIENT_SECRET"); v != "" {
		cfg.ClientSecret = v
	}
	if v := os.Getenv("INOREADER_SCOPE"); v != "" {
		cfg.Scope = v
	}
	if v := os.Getenv("INOREADER_TOKEN_DIR"); v != "" {
		cfg.TokenDir = v
	}
	if v := os.Getenv("INOREADER_REDIRECT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.RedirectPort = port
		}
	}
	if v := os.Getenv("INOREADER_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTPTimeout = d
		}
	}
}

// Validate checks the resolved values.
func (c *Config) Validate() error {
	c.APIBaseURL = NormalizeBaseURL(c.APIBaseURL)
	c.OAuthBaseURL = NormalizeBaseURL(c.OAuthBaseURL)

	if c.APIBaseURL == "" {
		return fmt.Errorf("api base URL cannot be empty")
	}
	if c.OAuthBaseURL == "" {
		return fmt.Errorf("oauth base URL cannot be empty")
	}
	if c.RedirectPort <= 0 || c.RedirectPort > 65535 {
		return fmt.Errorf("redirect port must be between 1 and 65535, got %d", c.RedirectPort)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout cannot be negative")
	}
	return nil
}

// HasClientCredentials reports whether OAuth client credentials are set.
func (c *Config) HasClientCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// GlobalConfigDir returns the per-user configuration directory.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "inoreader-mcp")
}

// NormalizeBaseURL trims surrounding whitespace and trailing slashes.
func NormalizeBaseURL(url string) string {
	return strings.TrimRight(strings.TrimSpace(url), "/")
}
