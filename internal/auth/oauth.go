package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/teemow/inoreader-mcp/internal/config"
	"github.com/teemow/inoreader-mcp/internal/secrets"
)

// CallbackPath is the path of the local OAuth redirect target.
const CallbackPath = "/oauth/callback"

var (
	// ErrNotAuthenticated is returned when no usable token exists.
	ErrNotAuthenticated = errors.New("not authenticated: run 'inoreader-mcp auth login' or set INOREADER_ACCESS_TOKEN")

	// ErrRefreshFailed is returned when the access token could not be refreshed.
	ErrRefreshFailed = errors.New("could not refresh access token")

	// ErrMissingClientCredentials is returned when an OAuth flow needs the
	// client id and secret but they are not configured.
	ErrMissingClientCredentials = errors.New("OAuth client credentials missing: set INOREADER_CLIENT_ID and INOREADER_CLIENT_SECRET")
)

// Endpoint returns the authorization and token endpoints under oauthBaseURL.
func Endpoint(oauthBaseURL string) oauth2.Endpoint {
	base := config.NormalizeBaseURL(oauthBaseURL)
	return oauth2.Endpoint{
		AuthURL:   base + "/auth",
		TokenURL:  base + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// RedirectURL returns the callback URL registered for the given local port.
func RedirectURL(port int) string {
	return fmt.Sprintf("http://localhost:%d%s", port, CallbackPath)
}

// OAuthConfig builds the OAuth2 client configuration from cfg.
func OAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     Endpoint(cfg.OAuthBaseURL),
		RedirectURL:  RedirectURL(cfg.RedirectPort),
		Scopes:       strings.Fields(cfg.Scope),
	}
}

// withHTTPClient makes the oauth2 package use hc for token requests.
func withHTTPClient(ctx context.Context, hc *http.Client) context.Context {
	if hc == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, hc)
}

// pairFromToken converts a token endpoint response into a stored pair.
// previousRefresh is kept when the response carries no refresh token.
func pairFromToken(tok *oauth2.Token, previousRefresh string) (*secrets.TokenPair, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, errors.New("token response has no access_token")
	}

	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}

	return &secrets.TokenPair{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    tok.Expiry,
	}, nil
}
