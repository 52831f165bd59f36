package reader_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inoreader-mcp/internal/inoreader"
	"github.com/teemow/inoreader-mcp/internal/server"
	"github.com/teemow/inoreader-mcp/internal/tools/common"
)

func registerStreamTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	addTool(s, sc, mcp.NewTool("inoreader_get_user_info",
		mcp.WithDescription("Get the authenticated Inoreader user's profile"),
		mcp.WithReadOnlyHintAnnotation(true),
	), true, handleGetUserInfo)

	addTool(s, sc, mcp.NewTool("inoreader_get_unread_counts",
		mcp.WithDescription("Get unread article counts per feed, folder and label"),
		mcp.WithReadOnlyHintAnnotation(true),
	), true, handleGetUnreadCounts)

	addTool(s, sc, mcp.NewTool("inoreader_list_subscriptions",
		mcp.WithDescription("List subscribed feeds with their folders"),
		mcp.WithReadOnlyHintAnnotation(true),
	), true, handleListSubscriptions)

	addTool(s, sc, mcp.NewTool("inoreader_list_tags",
		mcp.WithDescription("List folders, labels and system states"),
		mcp.WithReadOnlyHintAnnotation(true),
	), true, handleListTags)

	addTool(s, sc, mcp.NewTool("inoreader_get_stream",
		mcp.WithDescription("Get one page of articles from a feed, folder, label or state stream"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("streamId",
			mcp.Required(),
			mcp.Description("Stream ID, e.g. 'feed/https://example.com/rss', 'user/-/label/Tech' or 'user/-/state/com.google/reading-list'"),
		),
		countOption(),
		continuationOption(),
		mcp.WithBoolean("excludeRead",
			mcp.Description("Only return unread articles (default: false)"),
		),
		mcp.WithBoolean("includeAllStates",
			mcp.Description("Draw from the whole reading list regardless of state; overrides excludeRead (default: false)"),
		),
		mcp.WithBoolean("oldestFirst",
			mcp.Description("Return oldest articles first (default: newest first)"),
		),
	), true, handleGetStream)

	addTool(s, sc, mcp.NewTool("inoreader_get_unread",
		mcp.WithDescription("Get one page of unread articles across all subscriptions"),
		mcp.WithReadOnlyHintAnnotation(true),
		countOption(),
		continuationOption(),
	), true, handleGetUnread)

	addTool(s, sc, mcp.NewTool("inoreader_get_starred",
		mcp.WithDescription("Get one page of starred articles"),
		mcp.WithReadOnlyHintAnnotation(true),
		countOption(),
		continuationOption(),
	), true, handleGetStarred)
}

func handleGetUserInfo(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	client, errResult := getClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	info, err := client.UserInfo(ctx)
	if err != nil {
		return common.ErrorResult("get user info", err), nil
	}
	return common.JSONResult(info)
}

func handleGetUnreadCounts(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	client, errResult := getClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	counts, err := client.UnreadCounts(ctx)
	if err != nil {
		return common.ErrorResult("get unread counts", err), nil
	}
	common.RecordItemCount(ctx, len(counts.UnreadCounts))
	return common.JSONResult(counts)
}

func handleListSubscriptions(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	client, errResult := getClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	subs, err := client.Subscriptions(ctx)
	if err != nil {
		return common.ErrorResult("list subscriptions", err), nil
	}
	common.RecordItemCount(ctx, len(subs))
	return common.JSONResult(inoreader.FormatSubscriptions(subs))
}

func handleListTags(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	client, errResult := getClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	tags, err := client.Tags(ctx)
	if err != nil {
		return common.ErrorResult("list tags", err), nil
	}
	common.RecordItemCount(ctx, len(tags))
	return common.JSONResult(tags)
}

func handleGetStream(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	streamID, err := common.RequiredStringArg(args, "streamId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	count, err := countArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := inoreader.StreamOptions{
		Count:            count,
		Continuation:     common.StringArg(args, "continuation"),
		IncludeAllStates: common.BoolArg(args, "includeAllStates"),
		OldestFirst:      common.BoolArg(args, "oldestFirst"),
	}
	if common.BoolArg(args, "excludeRead") {
		opts.Exclude = inoreader.StateRead
	}

	client, errResult := getClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	page, err := client.StreamContents(ctx, streamID, opts)
	if err != nil {
		return common.ErrorResult("get stream", err), nil
	}
	return streamResult(ctx, page)
}

func handleGetUnread(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	return handlePagedStream(ctx, request, sc, "get unread articles", (*inoreader.Client).UnreadItems)
}

func handleGetStarred(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	return handlePagedStream(ctx, request, sc, "get starred articles", (*inoreader.Client).StarredItems)
}

type pageFunc func(c *inoreader.Client, ctx context.Context, count int, continuation string) (*inoreader.StreamPage, error)

func handlePagedStream(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, action string, fetch pageFunc) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	count, err := countArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := getClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	page, err := fetch(client, ctx, count, common.StringArg(args, "continuation"))
	if err != nil {
		return common.ErrorResult(action, err), nil
	}
	return streamResult(ctx, page)
}

func streamResult(ctx context.Context, page *inoreader.StreamPage) (*mcp.CallToolResult, error) {
	formatted := inoreader.FormatStream(page)
	common.RecordItemCount(ctx, formatted.Count)
	return common.JSONResult(formatted)
}
