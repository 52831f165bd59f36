package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation  = "operation"
	KeyEndpoint   = "endpoint"
	KeyMethod     = "method"
	KeyStatusCode = "status_code"
	KeyAttempt    = "attempt"
	KeyDuration   = "duration"
	KeyStatus     = "status"
	KeyError      = "error"
	KeyTool       = "tool"
	KeyBackend    = "backend"
)

// Status values for consistent logging.
// Duplicated in the instrumentation package, which imports this one.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Options configures New.
type Options struct {
	// Debug enables debug level output.
	Debug bool
	// JSON selects the JSON handler instead of text.
	JSON bool
}

// New builds a logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if opts.JSON {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Endpoint returns a slog attribute for an upstream API path.
func Endpoint(path string) slog.Attr {
	return slog.String(KeyEndpoint, path)
}

// Method returns a slog attribute for an HTTP method.
func Method(method string) slog.Attr {
	return slog.String(KeyMethod, method)
}

// StatusCode returns a slog attribute for an HTTP status code.
func StatusCode(code int) slog.Attr {
	return slog.Int(KeyStatusCode, code)
}

// Attempt returns a slog attribute for the attempt number of a request.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Backend returns a slog attribute naming a secret store backend.
func Backend(name string) slog.Attr {
	return slog.String(KeyBackend, name)
}

// Err returns a slog attribute for an error.
// A nil error yields an empty group, which slog omits from output.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizeToken returns a length indicator without exposing any token content.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// StreamKind returns the coarse kind of a stream id ("feed", "label",
// "state", "other"). Stream ids embed user ids and feed URLs, so logs and
// metric labels use the kind instead.
func StreamKind(streamID string) string {
	switch {
	case strings.HasPrefix(streamID, "feed/"):
		return "feed"
	case strings.Contains(streamID, "/label/"):
		return "label"
	case strings.Contains(streamID, "/state/"):
		return "state"
	default:
		return "other"
	}
}
