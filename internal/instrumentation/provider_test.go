package instrumentation

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, config Config) *Provider {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	provider, err := NewProvider(ctx, config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func TestNewProvider_Disabled(t *testing.T) {
	provider := newTestProvider(t, Config{ServiceName: "test-service", ServiceVersion: "1.0.0"})

	assert.False(t, provider.Enabled())
	assert.NotNil(t, provider.Metrics(), "metrics must be usable when disabled")
	assert.Nil(t, provider.PrometheusHandler())
	assert.NotNil(t, provider.Tracer("test"))
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_PrometheusExporter(t *testing.T) {
	provider := newTestProvider(t, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	})

	assert.True(t, provider.Enabled())
	require.NotNil(t, provider.Metrics())
	require.NotNil(t, provider.PrometheusHandler())
	assert.NotNil(t, provider.Tracer("test"))

	ctx := context.Background()
	provider.Metrics().RecordUpstreamRequest(ctx, http.MethodGet, "/unread-count", 200, 20*time.Millisecond)
	provider.Metrics().RecordToolInvocation(ctx, "inoreader_get_unread_counts", StatusSuccess, 30*time.Millisecond)

	rec := httptest.NewRecorder()
	provider.PrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream_api_requests")
	assert.Contains(t, rec.Body.String(), `endpoint="unread-count"`)
	assert.Contains(t, rec.Body.String(), "mcp_tool_invocations")
}

func TestNewProvider_TwoPrometheusProviders(t *testing.T) {
	config := Config{ServiceName: "test-service", Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone}

	first := newTestProvider(t, config)
	second := newTestProvider(t, config)
	assert.NotNil(t, first.PrometheusHandler())
	assert.NotNil(t, second.PrometheusHandler())
}

func TestNewProvider_StdoutExporterWritesToConsoleWriter(t *testing.T) {
	var console bytes.Buffer
	provider, err := NewProvider(context.Background(), Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterStdout,
		TracingExporter: ExporterStdout,
		ConsoleWriter:   &console,
	})
	require.NoError(t, err)

	assert.True(t, provider.Enabled())
	assert.Nil(t, provider.PrometheusHandler())

	provider.Metrics().RecordToolInvocation(context.Background(), "inoreader_list_tags", StatusSuccess, time.Millisecond)
	require.NoError(t, provider.Shutdown(context.Background()))

	assert.Contains(t, console.String(), "mcp_tool_invocations")
}

func TestNewProvider_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"invalid metrics exporter", Config{Enabled: true, MetricsExporter: "invalid", TracingExporter: ExporterNone}},
		{"invalid tracing exporter", Config{Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: "invalid"}},
		{"otlp tracing without endpoint", Config{Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: ExporterOTLP}},
		{"otlp metrics without endpoint", Config{Enabled: true, MetricsExporter: ExporterOTLP, TracingExporter: ExporterNone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.config)
			assert.Error(t, err)
		})
	}
}
