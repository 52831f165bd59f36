package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newManualMetrics(t *testing.T, detailed bool) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), detailed)
	require.NoError(t, err)
	return m, reader
}

// counterPoints returns the data points of the named Int64 sum.
func counterPoints(t *testing.T, reader *sdkmetric.ManualReader, name string) []metricdata.DataPoint[int64] {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			return sum.DataPoints
		}
	}
	return nil
}

func attrValue(set attribute.Set, key string) string {
	v, ok := set.Value(attribute.Key(key))
	if !ok {
		return ""
	}
	return v.AsString()
}

func TestMetrics_RecordUpstreamRequest(t *testing.T) {
	m, reader := newManualMetrics(t, false)
	ctx := context.Background()

	m.RecordUpstreamRequest(ctx, "GET", "/stream/contents/feed%2Fhttp%3A%2F%2Fexample.com?n=20", 200, 10*time.Millisecond)
	m.RecordUpstreamRequest(ctx, "GET", "/stream/contents/user%2F-%2Fstate%2Fcom.google%2Fstarred", 200, 10*time.Millisecond)
	m.RecordUpstreamRequest(ctx, "POST", "/edit-tag", 0, time.Millisecond)

	points := counterPoints(t, reader, "upstream_api_requests_total")
	require.Len(t, points, 2)

	byEndpoint := map[string]metricdata.DataPoint[int64]{}
	for _, p := range points {
		byEndpoint[attrValue(p.Attributes, attrEndpoint)] = p
	}

	stream := byEndpoint[EndpointStreamContents]
	assert.Equal(t, int64(2), stream.Value)
	assert.Equal(t, "200", attrValue(stream.Attributes, attrStatus))
	assert.Empty(t, attrValue(stream.Attributes, attrStreamKind))

	edit := byEndpoint["edit-tag"]
	assert.Equal(t, int64(1), edit.Value)
	assert.Equal(t, StatusError, attrValue(edit.Attributes, attrStatus))
}

func TestMetrics_RecordUpstreamRequest_DetailedLabels(t *testing.T) {
	m, reader := newManualMetrics(t, true)

	m.RecordUpstreamRequest(context.Background(), "GET", "/stream/contents/user/-/label/tech", 200, time.Millisecond)

	points := counterPoints(t, reader, "upstream_api_requests_total")
	require.Len(t, points, 1)
	assert.Equal(t, "label", attrValue(points[0].Attributes, attrStreamKind))
}

func TestMetrics_RecordOAuth(t *testing.T) {
	m, reader := newManualMetrics(t, false)
	ctx := context.Background()

	m.RecordOAuthTokenRefresh(ctx, RefreshResultSuccess)
	m.RecordOAuthTokenRefresh(ctx, RefreshResultFailure)
	m.RecordOAuthTokenRefresh(ctx, RefreshResultFailure)
	m.RecordOAuthLogin(ctx, LoginResultSuccess)

	results := map[string]int64{}
	for _, p := range counterPoints(t, reader, "oauth_token_refresh_total") {
		results[attrValue(p.Attributes, attrResult)] = p.Value
	}
	assert.Equal(t, map[string]int64{"success": 1, "failure": 2}, results)
	assert.Len(t, counterPoints(t, reader, "oauth_login_total"), 1)
}

func TestMetrics_RecordToolInvocationAndReplay(t *testing.T) {
	m, reader := newManualMetrics(t, false)
	ctx := context.Background()

	m.RecordToolInvocation(ctx, "inoreader_get_stream", StatusSuccess, 100*time.Millisecond)
	m.RecordToolInvocation(ctx, "inoreader_mark_read", StatusError, 500*time.Millisecond)
	m.RecordUpstreamReplay(ctx, "/user-info")
	m.RecordHTTPRequest(ctx, "POST", "/mcp", 200, time.Millisecond)

	assert.Len(t, counterPoints(t, reader, "mcp_tool_invocations_total"), 2)

	replays := counterPoints(t, reader, "upstream_api_replays_total")
	require.Len(t, replays, 1)
	assert.Equal(t, "user-info", attrValue(replays[0].Attributes, attrEndpoint))

	assert.Len(t, counterPoints(t, reader, "http_requests_total"), 1)
}

func TestMetrics_NilSafe(t *testing.T) {
	ctx := context.Background()

	for _, m := range []*Metrics{nil, {}} {
		m.RecordHTTPRequest(ctx, "GET", "/mcp", 200, time.Millisecond)
		m.RecordUpstreamRequest(ctx, "GET", "/user-info", 200, time.Millisecond)
		m.RecordUpstreamReplay(ctx, "/user-info")
		m.RecordOAuthLogin(ctx, LoginResultSuccess)
		m.RecordOAuthTokenRefresh(ctx, RefreshResultFailure)
		m.RecordToolInvocation(ctx, "tool", StatusSuccess, time.Millisecond)
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/user-info", "user-info"},
		{"unread-count", "unread-count"},
		{"/subscription/quickadd?quickadd=x", "subscription/quickadd"},
		{"/stream/contents/feed%2Fhttp%3A%2F%2Fx", EndpointStreamContents},
		{"/stream/contents", EndpointStreamContents},
		{"/something/else", EndpointOther},
		{"", EndpointOther},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEndpoint(tt.path))
		})
	}
}
