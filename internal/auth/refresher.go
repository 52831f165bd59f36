package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/teemow/inoreader-mcp/internal/instrumentation"
	"github.com/teemow/inoreader-mcp/internal/logging"
	"github.com/teemow/inoreader-mcp/internal/secrets"
)

// refreshTimeout bounds a shared refresh, which outlives any single caller.
const refreshTimeout = 30 * time.Second

// Refresher exchanges the stored refresh token for a new access token.
//
// Concurrent calls share one upstream request. The new pair is persisted
// before the access token is returned, so a caller never adopts a token
// that is not also on disk.
type Refresher struct {
	conf  *oauth2.Config
	store secrets.Store
	opts  options
	group singleflight.Group
}

// NewRefresher creates a Refresher using conf for the token endpoint and
// store for the persisted pair.
func NewRefresher(conf *oauth2.Config, store secrets.Store, opts ...Option) *Refresher {
	return &Refresher{
		conf:  conf,
		store: store,
		opts:  buildOptions(opts),
	}
}

// Refresh performs the refresh_token grant and returns the new access token.
// Every failure wraps ErrRefreshFailed.
//
// The shared grant is detached from ctx: a caller that gives up stops
// waiting, but the grant completes for the callers still waiting on it.
func (r *Refresher) Refresh(ctx context.Context) (string, error) {
	ch := r.group.DoChan("refresh", func() (any, error) {
		grantCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return r.refresh(grantCtx)
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, ctx.Err())
	case res := <-ch:
		if res.Shared {
			r.opts.logger.Debug("token refresh shared with concurrent caller")
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (r *Refresher) refresh(ctx context.Context) (string, error) {
	logger := logging.WithOperation(r.opts.logger, "token_refresh")

	token, err := r.exchange(ctx)
	if err != nil {
		r.opts.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.RefreshResultFailure)
		logger.Warn("token refresh failed", logging.Err(err))
		return "", err
	}

	r.opts.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.RefreshResultSuccess)
	logger.Info("access token refreshed", "token", logging.SanitizeToken(token))
	return token, nil
}

func (r *Refresher) exchange(ctx context.Context) (string, error) {
	pair, err := r.store.Load()
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return "", fmt.Errorf("%w: no stored token", ErrRefreshFailed)
		}
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if pair.RefreshToken == "" {
		return "", fmt.Errorf("%w: stored token has no refresh token", ErrRefreshFailed)
	}
	if r.conf.ClientID == "" || r.conf.ClientSecret == "" {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, ErrMissingClientCredentials)
	}

	// A token without an access token is never valid, so the source
	// always performs the grant.
	src := r.conf.TokenSource(withHTTPClient(ctx, r.opts.httpClient), &oauth2.Token{
		RefreshToken: pair.RefreshToken,
	})
	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	next, err := pairFromToken(tok, pair.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	if err := r.store.Save(next); err != nil {
		return "", fmt.Errorf("%w: failed to persist refreshed token: %w", ErrRefreshFailed, err)
	}

	return next.AccessToken, nil
}
