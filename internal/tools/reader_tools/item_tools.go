package reader_tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inoreader-mcp/internal/inoreader"
	"github.com/teemow/inoreader-mcp/internal/server"
	"github.com/teemow/inoreader-mcp/internal/tools/batch"
	"github.com/teemow/inoreader-mcp/internal/tools/common"
)

const itemIDsDescription = "Article ID (string) or array of article IDs"

func registerItemTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	addTool(s, sc, mcp.NewTool("inoreader_mark_read",
		mcp.WithDescription("Mark articles as read, either by ID or everything in a stream. Give itemIds or streamId, not both."),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("itemIds",
			mcp.Description(itemIDsDescription),
		),
		mcp.WithString("streamId",
			mcp.Description("Stream whose articles are all marked read, e.g. 'feed/https://example.com/rss'"),
		),
		mcp.WithString("olderThan",
			mcp.Description("With streamId: only mark articles published before this RFC3339 timestamp"),
		),
	), false, handleMarkRead)

	addTool(s, sc, mcp.NewTool("inoreader_mark_unread",
		mcp.WithDescription("Mark articles as unread"),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("itemIds",
			mcp.Required(),
			mcp.Description(itemIDsDescription),
		),
	), false, handleMarkUnread)

	addTool(s, sc, mcp.NewTool("inoreader_star",
		mcp.WithDescription("Star one or more articles"),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("itemIds",
			mcp.Required(),
			mcp.Description(itemIDsDescription),
		),
	), false, handleStar)

	addTool(s, sc, mcp.NewTool("inoreader_unstar",
		mcp.WithDescription("Remove the star from one or more articles"),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("itemIds",
			mcp.Required(),
			mcp.Description(itemIDsDescription),
		),
	), false, handleUnstar)
}

func handleMarkRead(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	streamID := common.StringArg(args, "streamId")
	hasItems := batch.Present(args["itemIds"])
	switch {
	case hasItems && streamID != "":
		return mcp.NewToolResultError("give either itemIds or streamId, not both"), nil
	case !hasItems && streamID == "":
		return mcp.NewToolResultError("itemIds or streamId is required"), nil
	}

	if streamID != "" {
		olderThan, err := common.TimeArg(args, "olderThan")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return markStreamRead(ctx, sc, streamID, olderThan)
	}
	if common.StringArg(args, "olderThan") != "" {
		return mcp.NewToolResultError("olderThan only applies together with streamId"), nil
	}

	ids, err := batch.ParseIDList(args["itemIds"], "itemIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(ids) == 0 {
		return common.JSONResult(map[string]int{"marked": 0})
	}

	client, errResult := getClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	n, err := client.MarkRead(ctx, ids)
	if err != nil {
		return common.ErrorResult("mark articles read", err), nil
	}
	common.RecordItemCount(ctx, n)
	return common.JSONResult(map[string]int{"marked": n})
}

func markStreamRead(ctx context.Context, sc *server.ServerContext, streamID string, olderThan time.Time) (*mcp.CallToolResult, error) {
	client, errResult := getClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	if err := client.MarkStreamRead(ctx, streamID, olderThan); err != nil {
		return common.ErrorResult("mark stream read", err), nil
	}

	result := map[string]string{"markedRead": streamID}
	if !olderThan.IsZero() {
		result["olderThan"] = olderThan.UTC().Format(time.RFC3339)
	}
	return common.JSONResult(result)
}

func handleMarkUnread(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	ids, err := batch.ParseIDList(request.GetArguments()["itemIds"], "itemIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(ids) == 0 {
		return common.JSONResult(map[string]int{"marked": 0})
	}

	client, errResult := getClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	n, err := client.MarkUnread(ctx, ids)
	if err != nil {
		return common.ErrorResult("mark articles unread", err), nil
	}
	common.RecordItemCount(ctx, n)
	return common.JSONResult(map[string]int{"marked": n})
}

func handleStar(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	return handleItemBatch(ctx, request, sc, (*inoreader.Client).Star)
}

func handleUnstar(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	return handleItemBatch(ctx, request, sc, (*inoreader.Client).Unstar)
}

// handleItemBatch applies op to every id, reporting per-item outcomes.
// The result is an error result only when no item succeeded.
func handleItemBatch(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, op func(*inoreader.Client, context.Context, string) error) (*mcp.CallToolResult, error) {
	ids, err := batch.ParseStringOrArray(request.GetArguments()["itemIds"], "itemIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := getClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	br := batch.ProcessBatch(ctx, ids, func(ctx context.Context, id string) error {
		return op(client, ctx, id)
	})
	common.RecordItemCount(ctx, br.Successful)

	result, err := common.JSONResult(br)
	if err != nil || !br.AllFailed() {
		return result, err
	}
	result.IsError = true
	return result, nil
}
