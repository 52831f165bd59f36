package reader_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inoreader-mcp/internal/inoreader"
	"github.com/teemow/inoreader-mcp/internal/server"
	"github.com/teemow/inoreader-mcp/internal/tools/common"
)

func registerTagTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	addTool(s, sc, mcp.NewTool("inoreader_add_tag",
		mcp.WithDescription("Attach a label to an article"),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("itemId",
			mcp.Required(),
			mcp.Description("Article ID"),
		),
		mcp.WithString("tag",
			mcp.Required(),
			mcp.Description("Label name or 'user/-/label/<name>'"),
		),
	), false, handleAddTag)

	addTool(s, sc, mcp.NewTool("inoreader_remove_tag",
		mcp.WithDescription("Detach a label from an article"),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("itemId",
			mcp.Required(),
			mcp.Description("Article ID"),
		),
		mcp.WithString("tag",
			mcp.Required(),
			mcp.Description("Label name or 'user/-/label/<name>'"),
		),
	), false, handleRemoveTag)

	addTool(s, sc, mcp.NewTool("inoreader_rename_tag",
		mcp.WithDescription("Rename a label or folder"),
		mcp.WithString("tag",
			mcp.Required(),
			mcp.Description("Current label or folder name"),
		),
		mcp.WithString("newName",
			mcp.Required(),
			mcp.Description("New name"),
		),
	), false, handleRenameTag)

	addTool(s, sc, mcp.NewTool("inoreader_delete_tag",
		mcp.WithDescription("Delete a label or folder. Articles and feeds in it are kept."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("tag",
			mcp.Required(),
			mcp.Description("Label or folder name"),
		),
	), false, handleDeleteTag)
}

func handleAddTag(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	return handleItemTag(ctx, request, sc, "add tag", (*inoreader.Client).AddTag)
}

func handleRemoveTag(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	return handleItemTag(ctx, request, sc, "remove tag", (*inoreader.Client).RemoveTag)
}

func handleItemTag(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, action string, op func(*inoreader.Client, context.Context, string, string) error) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	itemID, err := common.RequiredStringArg(args, "itemId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tag, err := common.RequiredStringArg(args, "tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := getClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	if err := op(client, ctx, itemID, tag); err != nil {
		return common.ErrorResult(action, err), nil
	}
	common.RecordItemCount(ctx, 1)
	return common.JSONResult(map[string]string{"itemId": itemID, "tag": inoreader.LabelID(tag)})
}

func handleRenameTag(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	tag, err := common.RequiredStringArg(args, "tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newName, err := common.RequiredStringArg(args, "newName")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := getClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	if err := client.RenameTag(ctx, tag, newName); err != nil {
		return common.ErrorResult("rename tag", err), nil
	}
	return common.JSONResult(map[string]string{"renamed": inoreader.LabelID(tag), "to": newName})
}

func handleDeleteTag(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	tag, err := common.RequiredStringArg(request.GetArguments(), "tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := getClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	if err := client.DeleteTag(ctx, tag); err != nil {
		return common.ErrorResult("delete tag", err), nil
	}
	return common.JSONResult(map[string]string{"deleted": inoreader.LabelID(tag)})
}
