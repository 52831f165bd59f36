// Package logging provides structured logging utilities for inoreader-mcp.
//
// All logging goes through log/slog. In stdio mode stdout carries the MCP
// protocol stream, so New always writes to the supplied writer (stderr in
// practice) and never to stdout.
//
// Usage:
//
//	logger := logging.WithOperation(slog.Default(), "stream.contents")
//	logger.Debug("upstream request",
//	    logging.Endpoint("/stream/contents"),
//	    logging.StatusCode(200))
//
// Tokens are never logged directly; use SanitizeToken.
package logging
