package reader_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inoreader-mcp/internal/auth"
	"github.com/teemow/inoreader-mcp/internal/inoreader"
	"github.com/teemow/inoreader-mcp/internal/server"
	"github.com/teemow/inoreader-mcp/internal/tools/common"
)

// Page size bounds accepted from tool callers.
const (
	defaultCount = inoreader.DefaultCount
	minCount     = 1
	maxCount     = 100
)

const notAuthenticatedMessage = `Inoreader is not authenticated. To authorize access:

1. Run 'inoreader-mcp auth login' in a terminal and approve access in the browser
2. Or set INOREADER_ACCESS_TOKEN in the server environment

The token is refreshed automatically afterwards.`

type handlerFunc func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error)

// RegisterReaderTools registers all Inoreader tools with the MCP server.
func RegisterReaderTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if s == nil || sc == nil {
		return fmt.Errorf("server and server context are required")
	}

	registerStreamTools(s, sc)

	if readOnly {
		return nil
	}

	registerSubscriptionTools(s, sc)
	registerItemTools(s, sc)
	registerTagTools(s, sc)
	return nil
}

// addTool registers tool with handler wrapped in instrumentation.
func addTool(s *mcpserver.MCPServer, sc *server.ServerContext, tool mcp.Tool, readOnly bool, handler handlerFunc) {
	s.AddTool(tool, common.InstrumentedToolHandler(tool.Name, readOnly, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handler(ctx, request, sc)
		}))
}

// getClient returns the shared API client or an error result explaining how
// to authenticate.
func getClient(ctx context.Context, sc *server.ServerContext) (*inoreader.Client, *mcp.CallToolResult) {
	client, err := sc.Client(ctx)
	if err == nil {
		return client, nil
	}
	if errors.Is(err, auth.ErrNotAuthenticated) {
		return nil, mcp.NewToolResultError(notAuthenticatedMessage)
	}
	return nil, mcp.NewToolResultError(fmt.Sprintf("Failed to initialize Inoreader client: %v", err))
}

func countArg(args map[string]any) (int, error) {
	return common.IntArg(args, "count", defaultCount, minCount, maxCount)
}

func countOption() mcp.ToolOption {
	return mcp.WithNumber("count",
		mcp.Description(fmt.Sprintf("Number of articles to return (%d-%d, default %d)", minCount, maxCount, defaultCount)),
		mcp.Min(minCount),
		mcp.Max(maxCount),
		mcp.DefaultNumber(defaultCount),
	)
}

func continuationOption() mcp.ToolOption {
	return mcp.WithString("continuation",
		mcp.Description("Continuation token from a previous page to fetch the next one"),
	)
}
