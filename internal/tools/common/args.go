package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inoreader-mcp/internal/inoreader"
)

// StringArg returns args[name] when it is a string, trimmed of surrounding
// whitespace, and "" otherwise.
func StringArg(args map[string]any, name string) string {
	v, _ := args[name].(string)
	return strings.TrimSpace(v)
}

// RequiredStringArg is StringArg failing on a missing or blank value.
func RequiredStringArg(args map[string]any, name string) (string, error) {
	v := StringArg(args, name)
	if v == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return v, nil
}

// BoolArg returns args[name] when it is a boolean, false otherwise.
func BoolArg(args map[string]any, name string) bool {
	v, _ := args[name].(bool)
	return v
}

// IntArg returns the integer args[name], def when absent. Values outside
// [minValue, maxValue] and non-integers are rejected.
func IntArg(args map[string]any, name string, def, minValue, maxValue int) (int, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return def, nil
	}

	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%s must be a number", name)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%s must be a number", name)
	}

	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if f < float64(minValue) || f > float64(maxValue) {
		return 0, fmt.Errorf("%s must be between %d and %d, got %v", name, minValue, maxValue, f)
	}
	return int(f), nil
}

// TimeArg parses an RFC3339 timestamp. A missing value yields the zero time.
func TimeArg(args map[string]any, name string) (time.Time, error) {
	v := StringArg(args, name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be an RFC3339 timestamp, e.g. 2024-01-02T15:04:05Z", name)
	}
	return t, nil
}

// JSONResult renders v as an indented JSON text result.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ErrorResult converts a failed operation into an error result. Authentication
// errors are passed through verbatim since they tell the user what to do.
func ErrorResult(action string, err error) *mcp.CallToolResult {
	var authErr *inoreader.AuthenticationError
	if errors.As(err, &authErr) {
		return mcp.NewToolResultError(authErr.Error())
	}
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
}
