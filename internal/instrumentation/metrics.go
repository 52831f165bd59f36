package instrumentation

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/teemow/inoreader-mcp/internal/logging"
)

// Metric attribute keys
const (
	attrMethod     = "method"
	attrPath       = "path"
	attrStatus     = "status"
	attrEndpoint   = "endpoint"
	attrResult     = "result"
	attrTool       = "tool"
	attrStreamKind = "stream_kind"
)

// Metrics provides methods for recording observability metrics.
//
// All Record methods are safe to call on a nil *Metrics.
type Metrics struct {
	// HTTP transport metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Upstream API metrics
	upstreamRequestsTotal   metric.Int64Counter
	upstreamRequestDuration metric.Float64Histogram
	upstreamReplaysTotal    metric.Int64Counter

	// OAuth metrics
	oauthLoginTotal        metric.Int64Counter
	oauthTokenRefreshTotal metric.Int64Counter

	// MCP tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels adds the stream kind to upstream request metrics
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all instruments registered on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.upstreamRequestsTotal, err = meter.Int64Counter(
		"upstream_api_requests_total",
		metric.WithDescription("Total number of requests sent to the feed reader API"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream_api_requests_total counter: %w", err)
	}

	m.upstreamRequestDuration, err = meter.Float64Histogram(
		"upstream_api_request_duration_seconds",
		metric.WithDescription("Feed reader API request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream_api_request_duration_seconds histogram: %w", err)
	}

	m.upstreamReplaysTotal, err = meter.Int64Counter(
		"upstream_api_replays_total",
		metric.WithDescription("Requests replayed after a token refresh"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream_api_replays_total counter: %w", err)
	}

	m.oauthLoginTotal, err = meter.Int64Counter(
		"oauth_login_total",
		metric.WithDescription("Total number of interactive OAuth login attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_login_total counter: %w", err)
	}

	m.oauthTokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records a request served by the streamable HTTP transport.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordUpstreamRequest records one HTTP exchange with the feed reader API.
//
// Parameters:
//   - method: HTTP method
//   - path: request path relative to the API base; normalized before use
//   - statusCode: response status, 0 when the request never got a response
//   - duration: time taken for the exchange
func (m *Metrics) RecordUpstreamRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.upstreamRequestsTotal == nil || m.upstreamRequestDuration == nil {
		return
	}

	status := StatusError
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrEndpoint, NormalizeEndpoint(path)),
		attribute.String(attrMethod, method),
		attribute.String(attrStatus, status),
	}

	if m.detailedLabels {
		attrs = append(attrs, attribute.String(attrStreamKind, streamKindOf(path)))
	}

	m.upstreamRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.upstreamRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordUpstreamReplay records a request replayed after a token refresh.
func (m *Metrics) RecordUpstreamReplay(ctx context.Context, path string) {
	if m == nil || m.upstreamReplaysTotal == nil {
		return
	}

	m.upstreamReplaysTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrEndpoint, NormalizeEndpoint(path)),
	))
}

// RecordOAuthLogin records an interactive login attempt.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordOAuthLogin(ctx context.Context, result string) {
	if m == nil || m.oauthLoginTotal == nil {
		return
	}

	m.oauthLoginTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordOAuthTokenRefresh records an OAuth token refresh attempt.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthTokenRefreshTotal == nil {
		return
	}

	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
//
// Parameters:
//   - toolName: Name of the MCP tool (e.g., "inoreader_get_stream")
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// Endpoint names used as metric labels.
const (
	EndpointStreamContents = "stream/contents"
	EndpointOther          = "other"
)

// knownEndpoints bounds the endpoint label to the API surface the client uses.
var knownEndpoints = map[string]bool{
	"user-info":             true,
	"unread-count":          true,
	"subscription/list":     true,
	"subscription/quickadd": true,
	"subscription/edit":     true,
	"tag/list":              true,
	"edit-tag":              true,
	"mark-all-as-read":      true,
	"rename-tag":            true,
	"disable-tag":           true,
}

// NormalizeEndpoint maps an API request path to a bounded label value.
// Stream ids embedded in the path are dropped, unknown paths become "other".
func NormalizeEndpoint(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	if path == EndpointStreamContents || strings.HasPrefix(path, EndpointStreamContents+"/") {
		return EndpointStreamContents
	}
	if knownEndpoints[path] {
		return path
	}
	return EndpointOther
}

// streamKindOf classifies the stream embedded in a stream/contents path.
func streamKindOf(path string) string {
	path = strings.TrimPrefix(path, "/")
	if !strings.HasPrefix(path, EndpointStreamContents+"/") {
		return "none"
	}
	id := strings.TrimPrefix(path, EndpointStreamContents+"/")
	if i := strings.IndexByte(id, '?'); i >= 0 {
		id = id[:i]
	}
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}
	return logging.StreamKind(id)
}
