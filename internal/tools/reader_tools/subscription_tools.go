package reader_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inoreader-mcp/internal/inoreader"
	"github.com/teemow/inoreader-mcp/internal/server"
	"github.com/teemow/inoreader-mcp/internal/tools/common"
)

func registerSubscriptionTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	addTool(s, sc, mcp.NewTool("inoreader_add_subscription",
		mcp.WithDescription("Subscribe to a feed by its URL or the URL of a site that advertises one"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Feed or site URL"),
		),
		mcp.WithString("title",
			mcp.Description("Custom title for the new subscription"),
		),
	), false, handleAddSubscription)

	addTool(s, sc, mcp.NewTool("inoreader_remove_subscription",
		mcp.WithDescription("Unsubscribe from a feed"),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("streamId",
			mcp.Required(),
			mcp.Description("Feed stream ID, e.g. 'feed/https://example.com/rss'"),
		),
	), false, handleRemoveSubscription)

	addTool(s, sc, mcp.NewTool("inoreader_edit_subscription",
		mcp.WithDescription("Rename a subscription or move it between folders. At least one of title, addFolder or removeFolder is required."),
		mcp.WithString("streamId",
			mcp.Required(),
			mcp.Description("Feed stream ID, e.g. 'feed/https://example.com/rss'"),
		),
		mcp.WithString("title",
			mcp.Description("New title"),
		),
		mcp.WithString("addFolder",
			mcp.Description("Folder name or 'user/-/label/<name>' to add the feed to"),
		),
		mcp.WithString("removeFolder",
			mcp.Description("Folder name or 'user/-/label/<name>' to remove the feed from"),
		),
	), false, handleEditSubscription)
}

func handleAddSubscription(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	feedURL, err := common.RequiredStringArg(args, "url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := getClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	result, err := client.AddSubscription(ctx, feedURL, common.StringArg(args, "title"))
	if err != nil {
		return common.ErrorResult("add subscription", err), nil
	}
	if result.NumResults == 0 && result.StreamID == "" {
		return mcp.NewToolResultError(fmt.Sprintf("No feed found at %s", feedURL)), nil
	}
	common.RecordItemCount(ctx, 1)
	return common.JSONResult(result)
}

func handleRemoveSubscription(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	streamID, err := common.RequiredStringArg(request.GetArguments(), "streamId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := getClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	if err := client.RemoveSubscription(ctx, streamID); err != nil {
		return common.ErrorResult("remove subscription", err), nil
	}
	common.RecordItemCount(ctx, 1)
	return common.JSONResult(map[string]string{"removed": streamID})
}

func handleEditSubscription(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	streamID, err := common.RequiredStringArg(args, "streamId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	edit := inoreader.SubscriptionEdit{
		Title:        common.StringArg(args, "title"),
		AddFolder:    common.StringArg(args, "addFolder"),
		RemoveFolder: common.StringArg(args, "removeFolder"),
	}

	client, errResult := getClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	if err := client.EditSubscription(ctx, streamID, edit); err != nil {
		return common.ErrorResult("edit subscription", err), nil
	}
	common.RecordItemCount(ctx, 1)
	return common.JSONResult(map[string]string{"updated": streamID})
}
