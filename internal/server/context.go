package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/teemow/inoreader-mcp/internal/auth"
	"github.com/teemow/inoreader-mcp/internal/config"
	"github.com/teemow/inoreader-mcp/internal/inoreader"
	"github.com/teemow/inoreader-mcp/internal/instrumentation"
	"github.com/teemow/inoreader-mcp/internal/secrets"
)

// ServerContext holds the process-wide state shared by all tool handlers.
// The API client is built once, on first use, from the token provider.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg         *config.Config
	provider    *auth.TokenProvider
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	httpClient  *http.Client
	userAgent   string

	mu       sync.RWMutex
	client   *inoreader.Client
	shutdown bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithLogger sets the logger handed to the API client.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) { sc.logger = logger }
}

// WithMetrics enables upstream and tool metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) { sc.metrics = m }
}

// WithAuditLogger enables tool audit logging.
func WithAuditLogger(a *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) { sc.auditLogger = a }
}

// WithHTTPClient sets the HTTP client for API and token requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(sc *ServerContext) { sc.httpClient = hc }
}

// WithUserAgent sets the User-Agent sent upstream.
func WithUserAgent(ua string) Option {
	return func(sc *ServerContext) { sc.userAgent = ua }
}

// WithClient installs a ready API client, skipping token resolution.
func WithClient(c *inoreader.Client) Option {
	return func(sc *ServerContext) { sc.client = c }
}

// NewServerContext creates a server context for cfg. Tokens are resolved
// through store.
func NewServerContext(ctx context.Context, cfg *config.Config, store secrets.Store, opts ...Option) (*ServerContext, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("secrets store is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:        shutdownCtx,
		cancel:     cancel,
		cfg:        cfg,
		httpClient: http.DefaultClient,
		userAgent:  inoreader.DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(sc)
	}
	if sc.logger == nil {
		sc.logger = slog.Default()
	}

	sc.provider = auth.NewTokenProvider(cfg, store,
		auth.WithHTTPClient(sc.httpClient),
		auth.WithLogger(sc.logger),
		auth.WithMetrics(sc.metrics),
	)
	return sc, nil
}

// Context returns the server context, cancelled on Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the resolved configuration.
func (sc *ServerContext) Config() *config.Config {
	return sc.cfg
}

// TokenProvider returns the token provider.
func (sc *ServerContext) TokenProvider() *auth.TokenProvider {
	return sc.provider
}

// Logger returns the logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics returns the metrics recorder, nil when disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, nil when disabled.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// Client returns the API client, building it on first use. A failure is
// not cached, so a later call retries after the user logged in.
func (sc *ServerContext) Client(ctx context.Context) (*inoreader.Client, error) {
	sc.mu.RLock()
	client := sc.client
	sc.mu.RUnlock()
	if client != nil {
		return client, nil
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.client != nil {
		return sc.client, nil
	}
	if sc.shutdown {
		return nil, fmt.Errorf("server is shutting down")
	}

	token, err := sc.provider.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	sc.client = inoreader.NewClient(sc.cfg.APIBaseURL, sc.cfg.OAuthBaseURL, token,
		inoreader.WithRefresher(sc.provider.Refresher()),
		inoreader.WithHTTPClient(sc.httpClient),
		inoreader.WithLogger(sc.logger),
		inoreader.WithMetrics(sc.metrics),
		inoreader.WithUserAgent(sc.userAgent),
	)
	sc.logger.Debug("api client ready", "base_url", sc.cfg.APIBaseURL)
	return sc.client, nil
}

// SetClient replaces the API client.
func (sc *ServerContext) SetClient(c *inoreader.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.client = c
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
