package inoreader

import (
	"bytes"
	"strconv"
)

// Well-known stream ids. "-" stands for the authenticated user.
const (
	StreamReadingList = "user/-/state/com.google/reading-list"
	StateRead         = "user/-/state/com.google/read"
	StateStarred      = "user/-/state/com.google/starred"

	labelPrefix = "user/-/label/"
)

// FlexInt decodes integers the API sends either as JSON numbers or as
// quoted strings.
type FlexInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

// UserInfo is returned by /user-info.
type UserInfo struct {
	UserID              string  `json:"userId"`
	UserName            string  `json:"userName"`
	UserProfileID       string  `json:"userProfileId"`
	UserEmail           string  `json:"userEmail"`
	IsBloggerUser       bool    `json:"isBloggerUser"`
	SignupTimeSec       FlexInt `json:"signupTimeSec"`
	IsMultiLoginEnabled bool    `json:"isMultiLoginEnabled"`
}

// UnreadCount is the unread total of one stream.
type UnreadCount struct {
	ID                      string  `json:"id"`
	Count                   FlexInt `json:"count"`
	NewestItemTimestampUsec FlexInt `json:"newestItemTimestampUsec"`
}

// UnreadCounts is returned by /unread-count.
type UnreadCounts struct {
	Max          FlexInt       `json:"max"`
	UnreadCounts []UnreadCount `json:"unreadcounts"`
}

// Category is a folder a subscription belongs to.
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Subscription is one subscribed feed.
type Subscription struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Categories    []Category `json:"categories"`
	SortID        string     `json:"sortid"`
	FirstItemMsec FlexInt    `json:"firstitemmsec"`
	URL           string     `json:"url"`
	HTMLURL       string     `json:"htmlUrl"`
	IconURL       string     `json:"iconUrl"`
}

type subscriptionList struct {
	Subscriptions []Subscription `json:"subscriptions"`
}

// Tag is a folder, label or system state.
type Tag struct {
	ID          string  `json:"id"`
	SortID      string  `json:"sortid,omitempty"`
	Type        string  `json:"type,omitempty"`
	UnreadCount FlexInt `json:"unread_count,omitempty"`
}

type tagList struct {
	Tags []Tag `json:"tags"`
}

// Link is an article link.
type Link struct {
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

// Origin identifies the feed an article came from.
type Origin struct {
	StreamID string `json:"streamId"`
	Title    string `json:"title"`
	HTMLURL  string `json:"htmlUrl"`
}

// Content is an HTML body.
type Content struct {
	Direction string `json:"direction,omitempty"`
	Content   string `json:"content"`
}

// Article is one stream item as the API returns it.
//
// Read and starred flags are encoded as state stream ids in Categories.
type Article struct {
	ID            string   `json:"id"`
	CrawlTimeMsec FlexInt  `json:"crawlTimeMsec"`
	TimestampUsec FlexInt  `json:"timestampUsec"`
	Published     FlexInt  `json:"published"`
	Updated       FlexInt  `json:"updated"`
	Title         string   `json:"title"`
	Author        string   `json:"author,omitempty"`
	Canonical     []Link   `json:"canonical"`
	Alternate     []Link   `json:"alternate"`
	Categories    []string `json:"categories"`
	Origin        Origin   `json:"origin"`
	Summary       Content  `json:"summary"`
}

// StreamPage is one page of a stream. Continuation is empty on the last page.
type StreamPage struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Direction    string    `json:"direction"`
	Updated      FlexInt   `json:"updated"`
	Continuation string    `json:"continuation,omitempty"`
	Items        []Article `json:"items"`
}

// QuickAddResult is returned by /subscription/quickadd.
type QuickAddResult struct {
	Query      string  `json:"query"`
	NumResults FlexInt `json:"numResults"`
	StreamID   string  `json:"streamId"`
	StreamName string  `json:"streamName"`
}
