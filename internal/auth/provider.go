package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/inoreader-mcp/internal/config"
	"github.com/teemow/inoreader-mcp/internal/secrets"
)

const (
	// EnvAccessToken bypasses the stored token when set.
	EnvAccessToken = "INOREADER_ACCESS_TOKEN"

	// RefreshBuffer is how close to expiry a stored token is refreshed.
	RefreshBuffer = 5 * time.Minute
)

// Token sources reported by Status.
const (
	SourceEnv   = "env"
	SourceStore = "store"
)

// TokenProvider resolves the access token used at startup and owns the
// interactive login, logout and status operations.
type TokenProvider struct {
	conf         *oauth2.Config
	redirectPort int
	store        secrets.Store
	refresher    *Refresher
	opts         options
}

// NewTokenProvider creates a TokenProvider for cfg backed by store.
func NewTokenProvider(cfg *config.Config, store secrets.Store, opts ...Option) *TokenProvider {
	conf := OAuthConfig(cfg)
	return &TokenProvider{
		conf:         conf,
		redirectPort: cfg.RedirectPort,
		store:        store,
		refresher:    NewRefresher(conf, store, opts...),
		opts:         buildOptions(opts),
	}
}

// Refresher returns the refresher shared with API clients.
func (p *TokenProvider) Refresher() *Refresher {
	return p.refresher
}

// Store returns the backing secrets store.
func (p *TokenProvider) Store() secrets.Store {
	return p.store
}

// AccessToken returns a usable access token.
//
// INOREADER_ACCESS_TOKEN wins when set. Otherwise the stored pair is used,
// refreshed first when it expires within RefreshBuffer. Without either,
// ErrNotAuthenticated is returned.
func (p *TokenProvider) AccessToken(ctx context.Context) (string, error) {
	if token := os.Getenv(EnvAccessToken); token != "" {
		return token, nil
	}

	pair, err := p.store.Load()
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return "", ErrNotAuthenticated
		}
		return "", fmt.Errorf("failed to load stored token: %w", err)
	}
	if pair.AccessToken == "" {
		return "", ErrNotAuthenticated
	}

	if pair.ExpiresWithin(RefreshBuffer) {
		p.opts.logger.Debug("stored token near expiry, refreshing",
			"expires_at", pair.ExpiresAt.Format(time.RFC3339))
		token, err := p.refresher.Refresh(ctx)
		if err != nil {
			return "", fmt.Errorf("stored token expired, run 'inoreader-mcp auth login': %w", err)
		}
		return token, nil
	}

	return pair.AccessToken, nil
}

// Logout removes the stored token pair. A missing pair is not an error.
func (p *TokenProvider) Logout() error {
	if err := p.store.Delete(); err != nil {
		return fmt.Errorf("failed to delete stored token: %w", err)
	}
	return nil
}

// Status describes the current authentication state.
type Status struct {
	// Source is SourceEnv, SourceStore, or empty when unauthenticated.
	Source string
	// Backend names the secrets store in use.
	Backend         string
	HasRefreshToken bool
	// ExpiresAt is zero when unknown.
	ExpiresAt time.Time
}

// Authenticated reports whether any token is available.
func (s *Status) Authenticated() bool {
	return s.Source != ""
}

// Expired reports whether a stored token is known to be past its expiry.
func (s *Status) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Status reports where the access token comes from without refreshing it.
func (p *TokenProvider) Status() (*Status, error) {
	st := &Status{Backend: p.store.Name()}

	if os.Getenv(EnvAccessToken) != "" {
		st.Source = SourceEnv
		return st, nil
	}

	pair, err := p.store.Load()
	if errors.Is(err, secrets.ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stored token: %w", err)
	}

	if pair.AccessToken != "" {
		st.Source = SourceStore
	}
	st.HasRefreshToken = pair.RefreshToken != ""
	st.ExpiresAt = pair.ExpiresAt
	return st, nil
}
