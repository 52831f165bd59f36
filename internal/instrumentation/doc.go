// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the inoreader MCP server.
//
// # Metrics
//
// HTTP transport metrics (streamable HTTP mode only):
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Upstream API metrics:
//   - upstream_api_requests_total: Counter of feed reader API requests by endpoint, method, status
//   - upstream_api_request_duration_seconds: Histogram of feed reader API request durations
//   - upstream_api_replays_total: Counter of requests replayed after a token refresh
//
// The endpoint label is bounded: stream ids are stripped from stream/contents
// paths and unknown paths collapse to "other". Set METRICS_DETAILED_LABELS=true
// to add a stream_kind label (feed, label, state, other).
//
// OAuth metrics:
//   - oauth_login_total: Counter of interactive login attempts by result
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// MCP tool metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>) and for each
// upstream request (upstream.<endpoint>). A replay after a token refresh is
// recorded as a span event.
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: inoreader-mcp)
//   - AUDIT_LOGGING_ENABLED: Per-tool audit records (default: true)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordToolInvocation(ctx, "inoreader_get_unread", "success", time.Since(start))
package instrumentation
