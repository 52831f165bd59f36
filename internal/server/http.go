package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultMCPPath is where the streamable HTTP transport is mounted.
const DefaultMCPPath = "/mcp"

// NewHTTPHandler routes the MCP endpoint at mcpPath next to the health
// probes. Every request is counted in the HTTP metrics.
func NewHTTPHandler(sc *ServerContext, mcpPath string, mcpHandler http.Handler, health *HealthChecker) http.Handler {
	if mcpPath == "" {
		mcpPath = DefaultMCPPath
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware(sc))

	if health != nil {
		health.RegisterHealthEndpoints(r)
	}
	r.Handle(mcpPath, mcpHandler)
	r.Handle(mcpPath+"/*", mcpHandler)
	return r
}

func metricsMiddleware(sc *ServerContext) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			metrics := sc.Metrics()
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.RecordHTTPRequest(r.Context(), r.Method, routePattern(r), status, time.Since(start))
		})
	}
}

// routePattern returns the matched chi pattern, keeping label cardinality
// bounded for unmatched paths.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
