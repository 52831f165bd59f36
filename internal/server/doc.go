// Package server holds the process-wide state of the MCP server and the
// HTTP endpoints that sit beside it.
//
// ServerContext builds the single API client lazily from the token
// provider and hands out the shared instrumentation. MetricsServer exposes
// Prometheus metrics on a dedicated port, and HealthChecker serves the
// liveness and readiness probes for the streamable HTTP transport.
package server
