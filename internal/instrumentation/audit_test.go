package instrumentation

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTool = "inoreader_mark_read"

func newJSONLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestToolInvocation_NewAndFinish(t *testing.T) {
	ti := NewToolInvocation(testTool)

	assert.Equal(t, testTool, ti.Tool)
	assert.False(t, ti.StartTime.IsZero())
	assert.Equal(t, -1, ti.ItemCount)

	ti.Finish(nil)

	assert.True(t, ti.Success)
	assert.GreaterOrEqual(t, ti.Duration.Nanoseconds(), int64(0))
	assert.Empty(t, ti.Error)
	assert.Equal(t, StatusSuccess, ti.Status())
}

func TestToolInvocation_Finish(t *testing.T) {
	ti := NewToolInvocation(testTool).Finish(errors.New("Inoreader API error: 403 Forbidden"))

	assert.False(t, ti.Success)
	assert.Equal(t, "Inoreader API error: 403 Forbidden", ti.Error)
	assert.Equal(t, StatusError, ti.Status())
}

func TestToolInvocation_WithArgumentsSortsNames(t *testing.T) {
	ti := NewToolInvocation(testTool).WithArguments(map[string]any{
		"streamId":  "feed/http://example.com/rss",
		"itemIds":   []any{"1"},
		"olderThan": "2024-01-01T00:00:00Z",
	})

	assert.Equal(t, []string{"itemIds", "olderThan", "streamId"}, ti.ArgumentNames)
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(newJSONLogger(&buf))

	ti := NewToolInvocation(testTool).
		WithArguments(map[string]any{"itemIds": "secret-id"}).
		WithReadOnly(false).
		WithItemCount(3).
		Finish(nil)
	al.LogToolInvocation(ti)

	rec := decodeRecord(t, &buf)
	assert.Equal(t, "tool_executed", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, testTool, rec["tool"])
	assert.Equal(t, float64(3), rec["items"])
	assert.NotContains(t, rec, "arguments")
	assert.NotContains(t, buf.String(), "secret-id")
}

func TestAuditLogger_IncludeArguments(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLoggerWithConfig(newJSONLogger(&buf), AuditLoggingConfig{Enabled: true, IncludeArguments: true})

	al.LogToolInvocation(NewToolInvocation(testTool).
		WithArguments(map[string]any{"itemIds": "secret-id"}).
		Finish(errors.New("boom")))

	rec := decodeRecord(t, &buf)
	assert.Equal(t, "tool_failed", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, []any{"itemIds"}, rec["arguments"])
	assert.Equal(t, "boom", rec["error"])
	assert.NotContains(t, buf.String(), "secret-id")
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLoggerWithConfig(newJSONLogger(&buf), AuditLoggingConfig{Enabled: false})
	al.LogToolInvocation(NewToolInvocation(testTool).Finish(nil))
	assert.Zero(t, buf.Len())

	var nilLogger *AuditLogger
	nilLogger.LogToolInvocation(NewToolInvocation(testTool).Finish(nil))
}
