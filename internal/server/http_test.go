package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teemow/inoreader-mcp/internal/instrumentation"
	"github.com/teemow/inoreader-mcp/internal/secrets"
)

func TestNewHTTPHandler_Routes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	metrics, err := instrumentation.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"), false)
	require.NoError(t, err)

	sc := newTestContext(t, secrets.NewMemoryStore(), WithMetrics(metrics))

	var mcpHits int
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mcpHits++
		w.WriteHeader(http.StatusAccepted)
	})
	handler := NewHTTPHandler(sc, "", mcpHandler, NewHealthChecker(sc))

	for _, tc := range []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, DefaultMCPPath, http.StatusAccepted},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/nope", http.StatusNotFound},
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.want, rec.Code, tc.path)
	}
	assert.Equal(t, 1, mcpHits)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	paths := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_requests_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value("path"); ok {
					paths[v.AsString()] = true
				}
			}
		}
	}
	assert.True(t, paths[DefaultMCPPath])
	assert.True(t, paths["/healthz"])
	assert.True(t, paths["unmatched"])
}
