package inoreader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/inoreader-mcp/internal/auth"
	"github.com/teemow/inoreader-mcp/internal/config"
	"github.com/teemow/inoreader-mcp/internal/instrumentation"
	"github.com/teemow/inoreader-mcp/internal/logging"
	"github.com/teemow/inoreader-mcp/internal/secrets"
)

// DefaultUserAgent is sent when no other user agent is configured.
const DefaultUserAgent = "inoreader-mcp"

// maxErrorDetail bounds how much of an error body is quoted in a ClientError.
const maxErrorDetail = 200

// TokenRefresher obtains a new access token after the current one was rejected.
type TokenRefresher interface {
	Refresh(ctx context.Context) (string, error)
}

// Client issues authenticated requests against the API.
//
// The access token is the only mutable state and is safe for concurrent use.
type Client struct {
	baseURL      string
	oauthBaseURL string
	httpClient   *http.Client
	refresher    TokenRefresher
	logger       *slog.Logger
	metrics      *instrumentation.Metrics
	userAgent    string

	credentials *clientCredentials

	mu    sync.RWMutex
	token string
}

type clientCredentials struct {
	id, secret string
	store      secrets.Store
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for API and token requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRefresher sets the refresher consulted after a 401.
func WithRefresher(r TokenRefresher) Option {
	return func(c *Client) { c.refresher = r }
}

// WithCredentials makes the client refresh tokens itself against its OAuth
// base URL, persisting refreshed pairs in store. Ignored when WithRefresher
// is also given.
func WithCredentials(clientID, clientSecret string, store secrets.Store) Option {
	return func(c *Client) {
		c.credentials = &clientCredentials{id: clientID, secret: clientSecret, store: store}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics records upstream request metrics on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for the API at baseURL holding accessToken.
// oauthBaseURL locates the token endpoint used by WithCredentials.
func NewClient(baseURL, oauthBaseURL, accessToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:      config.NormalizeBaseURL(baseURL),
		oauthBaseURL: config.NormalizeBaseURL(oauthBaseURL),
		token:        accessToken,
		httpClient:   http.DefaultClient,
		userAgent:    DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	if c.refresher == nil && c.credentials != nil {
		conf := &oauth2.Config{
			ClientID:     c.credentials.id,
			ClientSecret: c.credentials.secret,
			Endpoint:     auth.Endpoint(c.oauthBaseURL),
		}
		c.refresher = auth.NewRefresher(conf, c.credentials.store,
			auth.WithHTTPClient(c.httpClient),
			auth.WithLogger(c.logger),
			auth.WithMetrics(c.metrics),
		)
	}

	return c
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// OAuthBaseURL returns the OAuth base URL.
func (c *Client) OAuthBaseURL() string { return c.oauthBaseURL }

// AccessToken returns the token currently attached to requests.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// request describes one logical API call. It is rebuilt into a fresh
// *http.Request for every attempt.
type request struct {
	method string
	// path is relative to the base URL and already escaped.
	path  string
	query Params
	body  requestBody
}

func (c *Client) get(ctx context.Context, path string, query Params, out any) error {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: path, query: query}, false)
	if err != nil {
		return err
	}
	return resp.decode(out)
}

func (c *Client) post(ctx context.Context, path string, body requestBody) (responseBody, error) {
	return c.do(ctx, request{method: http.MethodPost, path: path, body: body}, false)
}

// do executes req. retried is true only on the single replay after a token
// refresh; a 401 on that attempt is final.
func (c *Client) do(ctx context.Context, req request, retried bool) (responseBody, error) {
	ctx, span := instrumentation.StartUpstreamSpan(ctx, req.method, req.path)
	defer span.End()

	attempt := 1
	if retried {
		attempt = 2
	}
	logger := c.logger.With(logging.Method(req.method), logging.Endpoint(instrumentation.NormalizeEndpoint(req.path)), logging.Attempt(attempt))

	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return responseBody{}, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.RecordUpstreamRequest(ctx, req.method, req.path, 0, time.Since(start))
		cerr := &ClientError{Message: fmt.Sprintf("request to %s failed", req.path), Err: err}
		instrumentation.SetSpanError(span, cerr)
		logger.Debug("upstream request failed", logging.Err(err))
		return responseBody{}, cerr
	}
	data, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	duration := time.Since(start)
	c.metrics.RecordUpstreamRequest(ctx, req.method, req.path, resp.StatusCode, duration)
	logger.Debug("upstream request", logging.StatusCode(resp.StatusCode), slog.Duration(logging.KeyDuration, duration))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if retried || c.refresher == nil {
			err := newExpiredError(resp.StatusCode, nil)
			instrumentation.SetSpanError(span, err)
			return responseBody{}, err
		}

		token, refreshErr := c.refresher.Refresh(ctx)
		if refreshErr != nil {
			err := newExpiredError(resp.StatusCode, refreshErr)
			instrumentation.SetSpanError(span, err)
			return responseBody{}, err
		}
		c.setAccessToken(token)

		instrumentation.AddSpanEvent(span, instrumentation.EventRequestReplay)
		c.metrics.RecordUpstreamReplay(ctx, req.path)
		logger.Info("access token refreshed, replaying request")
		return c.do(ctx, req, true)

	case resp.StatusCode == http.StatusForbidden:
		err := newForbiddenError()
		instrumentation.SetSpanError(span, err)
		return responseBody{}, err

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		err := newStatusError(resp.StatusCode, reasonPhrase(resp), errorDetail(data))
		instrumentation.SetSpanError(span, err)
		return responseBody{}, err
	}

	if readErr != nil {
		err := &ClientError{StatusCode: resp.StatusCode, Message: "failed to read response body", Err: readErr}
		instrumentation.SetSpanError(span, err)
		return responseBody{}, err
	}

	instrumentation.SetSpanSuccess(span)
	return classifyResponse(resp.StatusCode, resp.Header.Get("Content-Type"), data), nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req request) (*http.Request, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = strings.NewReader(req.body.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, &ClientError{Message: "failed to build request", Err: err}
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.AccessToken())
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return httpReq, nil
}

// reasonPhrase returns the status text without the numeric prefix.
func reasonPhrase(resp *http.Response) string {
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode))); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func errorDetail(data []byte) string {
	detail := []rune(strings.Join(strings.Fields(string(data)), " "))
	if len(detail) > maxErrorDetail {
		return string(detail[:maxErrorDetail]) + "..."
	}
	return string(detail)
}
