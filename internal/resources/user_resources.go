package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inoreader-mcp/internal/inoreader"
	"github.com/teemow/inoreader-mcp/internal/server"
)

// Resource URIs.
const (
	ProfileURI       = "inoreader://user/profile"
	SubscriptionsURI = "inoreader://user/subscriptions"
	TagsURI          = "inoreader://user/tags"
)

const mimeJSON = "application/json"

type resourceHandler func(ctx context.Context, c *inoreader.Client) (any, error)

// RegisterUserResources registers the account resources on s.
func RegisterUserResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return fmt.Errorf("server and server context are required")
	}

	s.AddResource(mcp.NewResource(ProfileURI,
		"Inoreader Profile",
		mcp.WithResourceDescription("Profile of the authenticated Inoreader user"),
		mcp.WithMIMEType(mimeJSON),
	), readHandler(sc, "user profile", profile))

	s.AddResource(mcp.NewResource(SubscriptionsURI,
		"Inoreader Subscriptions",
		mcp.WithResourceDescription("Subscribed feeds with their folders"),
		mcp.WithMIMEType(mimeJSON),
	), readHandler(sc, "subscriptions", subscriptions))

	s.AddResource(mcp.NewResource(TagsURI,
		"Inoreader Tags",
		mcp.WithResourceDescription("Folders, labels and system states"),
		mcp.WithMIMEType(mimeJSON),
	), readHandler(sc, "tags", tags))

	return nil
}

// readHandler resolves the client, runs fetch and renders its result as a
// single JSON text content.
func readHandler(sc *server.ServerContext, what string, fetch resourceHandler) mcpserver.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		client, err := sc.Client(ctx)
		if err != nil {
			return nil, err
		}

		data, err := fetch(ctx, client)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", what, err)
		}

		jsonData, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", what, err)
		}

		return []mcp.ResourceContents{
			&mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: mimeJSON,
				Text:     string(jsonData),
			},
		}, nil
	}
}

func profile(ctx context.Context, c *inoreader.Client) (any, error) {
	info, err := c.UserInfo(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"userId":   info.UserID,
		"userName": info.UserName,
		"email":    info.UserEmail,
		"signedUp": info.SignupTimeSec,
	}, nil
}

func subscriptions(ctx context.Context, c *inoreader.Client) (any, error) {
	subs, err := c.Subscriptions(ctx)
	if err != nil {
		return nil, err
	}
	formatted := inoreader.FormatSubscriptions(subs)
	return map[string]any{
		"count":         len(formatted),
		"subscriptions": formatted,
	}, nil
}

func tags(ctx context.Context, c *inoreader.Client) (any, error) {
	list, err := c.Tags(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"count": len(list),
		"tags":  list,
	}, nil
}
