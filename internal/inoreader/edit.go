package inoreader

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// LabelID returns the stream id of a user label. Values that already are
// stream ids are returned unchanged.
func LabelID(name string) string {
	if strings.HasPrefix(name, "user/") {
		return name
	}
	return labelPrefix + name
}

// AddSubscription subscribes to feedURL. A non-empty title renames the new
// subscription once the API reports its stream id.
func (c *Client) AddSubscription(ctx context.Context, feedURL, title string) (*QuickAddResult, error) {
	if strings.TrimSpace(feedURL) == "" {
		return nil, invalidArgument("feed URL is required")
	}

	resp, err := c.post(ctx, "/subscription/quickadd", Params{"quickadd": feedURL})
	if err != nil {
		return nil, err
	}

	result := &QuickAddResult{Query: feedURL}
	if resp.kind == bodyJSON {
		if err := resp.decode(result); err != nil {
			return nil, err
		}
	}

	if title != "" && result.StreamID != "" {
		if err := c.EditSubscription(ctx, result.StreamID, SubscriptionEdit{Title: title}); err != nil {
			return result, err
		}
		result.StreamName = title
	}
	return result, nil
}

// RemoveSubscription unsubscribes from streamID.
func (c *Client) RemoveSubscription(ctx context.Context, streamID string) error {
	if streamID == "" {
		return invalidArgument("stream id is required")
	}
	_, err := c.post(ctx, "/subscription/edit", Params{"ac": "unsubscribe", "s": streamID})
	return err
}

// SubscriptionEdit describes changes to one subscription. Empty fields are
// left untouched. Folders are label names or label stream ids.
type SubscriptionEdit struct {
	Title        string
	AddFolder    string
	RemoveFolder string
}

// EditSubscription renames a subscription and/or moves it between folders.
// It fails without a request when nothing would change or when the same
// folder is both added and removed.
func (c *Client) EditSubscription(ctx context.Context, streamID string, edit SubscriptionEdit) error {
	if streamID == "" {
		return invalidArgument("stream id is required")
	}
	if edit.Title == "" && edit.AddFolder == "" && edit.RemoveFolder == "" {
		return invalidArgument("edit subscription needs at least one of title, add folder or remove folder")
	}

	body := Params{"ac": "edit", "s": streamID}
	if edit.Title != "" {
		body["t"] = edit.Title
	}
	if edit.AddFolder != "" {
		body["a"] = LabelID(edit.AddFolder)
	}
	if edit.RemoveFolder != "" {
		body["r"] = LabelID(edit.RemoveFolder)
	}
	if body["a"] != "" && body["a"] == body["r"] {
		return invalidArgument("cannot add and remove the same folder %q", edit.AddFolder)
	}

	_, err := c.post(ctx, "/subscription/edit", body)
	return err
}

// editTag adds and/or removes one tag on items in a single request.
func (c *Client) editTag(ctx context.Context, ids []string, add, remove string) error {
	form := &Form{}
	if add != "" {
		form.Add("a", add)
	}
	if remove != "" {
		form.Add("r", remove)
	}
	for _, id := range ids {
		form.Add("i", id)
	}
	_, err := c.post(ctx, "/edit-tag", form)
	return err
}

// MarkRead marks items as read and returns how many were sent.
// An empty list sends nothing.
func (c *Client) MarkRead(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if err := c.editTag(ctx, ids, StateRead, ""); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// MarkUnread marks items as unread and returns how many were sent.
// An empty list sends nothing.
func (c *Client) MarkUnread(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if err := c.editTag(ctx, ids, "", StateRead); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// MarkStreamRead marks every item of streamID as read. A non-zero olderThan
// limits the change to items published before it.
func (c *Client) MarkStreamRead(ctx context.Context, streamID string, olderThan time.Time) error {
	if streamID == "" {
		return invalidArgument("stream id is required")
	}

	body := Params{"s": streamID}
	if !olderThan.IsZero() {
		body["ts"] = strconv.FormatInt(olderThan.UnixMicro(), 10)
	}
	_, err := c.post(ctx, "/mark-all-as-read", body)
	return err
}

// Star stars one item.
func (c *Client) Star(ctx context.Context, id string) error {
	if id == "" {
		return invalidArgument("item id is required")
	}
	return c.editTag(ctx, []string{id}, StateStarred, "")
}

// Unstar removes the star from one item.
func (c *Client) Unstar(ctx context.Context, id string) error {
	if id == "" {
		return invalidArgument("item id is required")
	}
	return c.editTag(ctx, []string{id}, "", StateStarred)
}

// AddTag attaches a user label to one item.
func (c *Client) AddTag(ctx context.Context, id, label string) error {
	if id == "" || label == "" {
		return invalidArgument("item id and tag are required")
	}
	return c.editTag(ctx, []string{id}, LabelID(label), "")
}

// RemoveTag detaches a user label from one item.
func (c *Client) RemoveTag(ctx context.Context, id, label string) error {
	if id == "" || label == "" {
		return invalidArgument("item id and tag are required")
	}
	return c.editTag(ctx, []string{id}, "", LabelID(label))
}

// RenameTag renames a label or folder to dest.
func (c *Client) RenameTag(ctx context.Context, source, dest string) error {
	if source == "" || dest == "" {
		return invalidArgument("source and destination tag are required")
	}
	if LabelID(source) == LabelID(dest) {
		return invalidArgument("tag %q already has that name", source)
	}
	_, err := c.post(ctx, "/rename-tag", Params{"s": LabelID(source), "dest": dest})
	return err
}

// DeleteTag deletes a label or folder. Items and feeds are kept.
func (c *Client) DeleteTag(ctx context.Context, tag string) error {
	if tag == "" {
		return invalidArgument("tag is required")
	}
	_, err := c.post(ctx, "/disable-tag", Params{"s": LabelID(tag)})
	return err
}
