package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/inoreader-mcp/internal/auth"
	"github.com/teemow/inoreader-mcp/internal/instrumentation"
	"github.com/teemow/inoreader-mcp/internal/logging"
	"github.com/teemow/inoreader-mcp/internal/resources"
	"github.com/teemow/inoreader-mcp/internal/secrets"
	"github.com/teemow/inoreader-mcp/internal/server"
	"github.com/teemow/inoreader-mcp/internal/tools/reader_tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// serveOptions collects the serve flags.
type serveOptions struct {
	Transport        string
	HTTPAddr         string
	Debug            bool
	ReadOnly         bool
	DisableStreaming bool
	HTTPTimeout      time.Duration
	Metrics          MetricsConfig
}

func newServeCmd() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server exposing Inoreader tools
to AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport

Authentication:
  The server needs a token before it starts. Either run
  'inoreader-mcp auth login' once, or set INOREADER_ACCESS_TOKEN.
  With INOREADER_CLIENT_ID and INOREADER_CLIENT_SECRET configured, an expired
  token is refreshed automatically and the new pair is stored.

Read-only mode:
  --read-only registers only the tools that do not modify account state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyServeEnv(cmd, &opts)
			return runServe(commandContext(cmd), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.Transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.HTTPAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&opts.ReadOnly, "read-only", false, "Register only tools that do not modify subscriptions, tags or article state")
	cmd.Flags().BoolVar(&opts.DisableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().DurationVar(&opts.HTTPTimeout, "http-timeout", 0, "Timeout for upstream API requests (0 means none). Can also use INOREADER_HTTP_TIMEOUT env var.")

	// Metrics server flags
	cmd.Flags().BoolVar(&opts.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port (streamable-http only). Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.Metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// applyServeEnv fills flags that were not set explicitly from the environment.
func applyServeEnv(cmd *cobra.Command, opts *serveOptions) {
	if !cmd.Flags().Changed("metrics-enabled") {
		if v := os.Getenv("METRICS_ENABLED"); v != "" {
			opts.Metrics.Enabled = v == "true"
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if v := os.Getenv("METRICS_ADDR"); v != "" {
			opts.Metrics.Addr = v
		}
	}
}

func runServe(parent context.Context, opts serveOptions) error {
	if opts.Transport != transportStdio && opts.Transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.Transport)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout carries the protocol in stdio mode
	logger := logging.New(os.Stderr, logging.Options{Debug: opts.Debug, JSON: true})
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.HTTPTimeout > 0 {
		cfg.HTTPTimeout = opts.HTTPTimeout
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	store := secrets.NewStore(cfg.TokenDir, logger)

	scOpts := []server.Option{
		server.WithLogger(logger),
		server.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		server.WithUserAgent("inoreader-mcp/" + version),
	}
	if provider.Enabled() {
		scOpts = append(scOpts,
			server.WithMetrics(provider.Metrics()),
			server.WithAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)),
		)
	}

	serverContext, err := server.NewServerContext(shutdownCtx, cfg, store, scOpts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	if err := checkAuthenticated(serverContext, logger); err != nil {
		return err
	}

	mcpSrv := mcpserver.NewMCPServer("inoreader-mcp", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
		mcpserver.WithRecovery(),
	)

	if err := reader_tools.RegisterReaderTools(mcpSrv, serverContext, opts.ReadOnly); err != nil {
		return fmt.Errorf("failed to register reader tools: %w", err)
	}
	if err := resources.RegisterUserResources(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register resources: %w", err)
	}
	logger.Info("tools registered", "read_only", opts.ReadOnly, "tools", len(mcpSrv.ListTools()))

	switch opts.Transport {
	case transportStreamableHTTP:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, provider, opts)
	default:
		return runStdioServer(mcpSrv)
	}
}

// checkAuthenticated fails fast when neither a stored token nor
// INOREADER_ACCESS_TOKEN is available.
func checkAuthenticated(sc *server.ServerContext, logger *slog.Logger) error {
	status, err := sc.TokenProvider().Status()
	if err != nil {
		return err
	}
	if !status.Authenticated() {
		return auth.ErrNotAuthenticated
	}

	logger.Info("using access token",
		"source", status.Source,
		logging.Backend(status.Backend),
		"refreshable", status.HasRefreshToken)
	if status.Expired() && !status.HasRefreshToken {
		logger.Warn("stored token is expired and cannot be refreshed, run 'inoreader-mcp auth login'")
	}
	return nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, provider *instrumentation.Provider, opts serveOptions) error {
	logger := sc.Logger()

	metricsServer, err := startMetricsServer(provider, opts.Metrics, logger)
	if err != nil {
		return err
	}
	if metricsServer != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	mcpHandler := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(server.DefaultMCPPath),
		mcpserver.WithDisableStreaming(opts.DisableStreaming),
	)
	health := server.NewHealthChecker(sc)

	httpServer := &http.Server{
		Addr:              opts.HTTPAddr,
		Handler:           server.NewHTTPHandler(sc, server.DefaultMCPPath, mcpHandler, health),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ln, err := net.Listen("tcp", opts.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opts.HTTPAddr, err)
	}

	serverErr := make(chan error, 1)
	go func() {
		defer close(serverErr)
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	health.SetReady(true)
	logger.Info("serving MCP over streamable HTTP",
		"addr", ln.Addr().String(),
		"path", server.DefaultMCPPath)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	}

	health.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	return nil
}

// startMetricsServer binds the metrics listener synchronously so a busy port
// is reported before the MCP endpoint comes up. It returns nil when metrics
// are disabled or the provider has no Prometheus exporter.
func startMetricsServer(provider *instrumentation.Provider, cfg MetricsConfig, logger *slog.Logger) (*server.MetricsServer, error) {
	if !cfg.Enabled || !provider.Enabled() || provider.PrometheusHandler() == nil {
		return nil, nil
	}

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    cfg.Addr,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	ln, err := net.Listen("tcp", metricsServer.Addr())
	if err != nil {
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	}
	go func() {
		if err := metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", logging.Err(err))
		}
	}()
	return metricsServer, nil
}
