package inoreader

import (
	"context"
	"net/url"
	"strconv"
)

// Page size bounds for stream requests.
const (
	DefaultCount = 20
	MaxCount     = 1000
)

var jsonOutput = Params{"output": "json"}

// UserInfo returns the authenticated user's profile.
func (c *Client) UserInfo(ctx context.Context) (*UserInfo, error) {
	var info UserInfo
	if err := c.get(ctx, "/user-info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// UnreadCounts returns unread totals per feed, folder and state.
func (c *Client) UnreadCounts(ctx context.Context) (*UnreadCounts, error) {
	var counts UnreadCounts
	if err := c.get(ctx, "/unread-count", jsonOutput, &counts); err != nil {
		return nil, err
	}
	return &counts, nil
}

// Subscriptions lists the subscribed feeds.
func (c *Client) Subscriptions(ctx context.Context) ([]Subscription, error) {
	var list subscriptionList
	if err := c.get(ctx, "/subscription/list", jsonOutput, &list); err != nil {
		return nil, err
	}
	return list.Subscriptions, nil
}

// Tags lists folders, labels and system states.
func (c *Client) Tags(ctx context.Context) ([]Tag, error) {
	var list tagList
	if err := c.get(ctx, "/tag/list", jsonOutput, &list); err != nil {
		return nil, err
	}
	return list.Tags, nil
}

// StreamOptions controls a stream page request.
type StreamOptions struct {
	// Count is the page size. Zero means DefaultCount; other values are
	// clamped to [1, MaxCount].
	Count int

	// Continuation is the token from the previous page.
	Continuation string

	// Exclude drops items in this state stream, e.g. StateRead.
	Exclude string

	// IncludeAllStates restricts nothing by state: the page draws from the
	// whole reading list and Exclude is ignored.
	IncludeAllStates bool

	// OldestFirst reverses the default newest-first order.
	OldestFirst bool
}

// ClampCount applies the page size rules of StreamOptions.Count.
func ClampCount(n int) int {
	switch {
	case n == 0:
		return DefaultCount
	case n < 1:
		return 1
	case n > MaxCount:
		return MaxCount
	default:
		return n
	}
}

func (o StreamOptions) query() Params {
	q := Params{"n": strconv.Itoa(ClampCount(o.Count))}
	if o.Continuation != "" {
		q["c"] = o.Continuation
	}
	if o.IncludeAllStates {
		q["it"] = StreamReadingList
	} else if o.Exclude != "" {
		q["xt"] = o.Exclude
	}
	if o.OldestFirst {
		q["r"] = "o"
	}
	return q
}

// StreamContents returns one page of the stream streamID.
func (c *Client) StreamContents(ctx context.Context, streamID string, opts StreamOptions) (*StreamPage, error) {
	if streamID == "" {
		return nil, invalidArgument("stream id is required")
	}

	var page StreamPage
	if err := c.get(ctx, "/stream/contents/"+url.PathEscape(streamID), opts.query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// StarredItems returns a page of starred articles, read or not.
func (c *Client) StarredItems(ctx context.Context, count int, continuation string) (*StreamPage, error) {
	return c.StreamContents(ctx, StateStarred, StreamOptions{
		Count:            count,
		Continuation:     continuation,
		IncludeAllStates: true,
	})
}

// UnreadItems returns a page of unread articles across all subscriptions.
func (c *Client) UnreadItems(ctx context.Context, count int, continuation string) (*StreamPage, error) {
	return c.StreamContents(ctx, StreamReadingList, StreamOptions{
		Count:        count,
		Continuation: continuation,
		Exclude:      StateRead,
	})
}
