package inoreader

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// MaxSummaryRunes is the length summaries are truncated to.
const MaxSummaryRunes = 500

const (
	stateReadSuffix    = "/state/com.google/read"
	stateStarredSuffix = "/state/com.google/starred"
)

// FormattedArticle is the compact article shape returned to tool callers.
type FormattedArticle struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Published string   `json:"published,omitempty"`
	FeedID    string   `json:"feedId"`
	FeedTitle string   `json:"feedTitle"`
	URL       string   `json:"url,omitempty"`
	IsRead    bool     `json:"isRead"`
	IsStarred bool     `json:"isStarred"`
	Tags      []string `json:"tags"`
	Summary   string   `json:"summary,omitempty"`
}

// FormattedStream is a compact stream page.
type FormattedStream struct {
	Title        string             `json:"title,omitempty"`
	Continuation string             `json:"continuation,omitempty"`
	Count        int                `json:"count"`
	Articles     []FormattedArticle `json:"articles"`
}

// FormattedSubscription is a compact subscription.
type FormattedSubscription struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	HTMLURL string   `json:"htmlUrl,omitempty"`
	Folders []string `json:"folders"`
}

// FormatArticle flattens an article. Read and starred flags come from the
// state categories, tags from the label categories.
func FormatArticle(a Article) FormattedArticle {
	out := FormattedArticle{
		ID:        a.ID,
		Title:     a.Title,
		FeedID:    a.Origin.StreamID,
		FeedTitle: a.Origin.Title,
		URL:       articleURL(a),
		Tags:      []string{},
		Summary:   summarize(a.Summary.Content),
	}
	if a.Published > 0 {
		out.Published = time.Unix(int64(a.Published), 0).UTC().Format(time.RFC3339)
	}

	for _, cat := range a.Categories {
		switch {
		case strings.HasSuffix(cat, stateReadSuffix):
			out.IsRead = true
		case strings.HasSuffix(cat, stateStarredSuffix):
			out.IsStarred = true
		default:
			if label, ok := labelName(cat); ok {
				out.Tags = append(out.Tags, label)
			}
		}
	}
	return out
}

// FormatStream flattens a stream page.
func FormatStream(page *StreamPage) FormattedStream {
	out := FormattedStream{
		Title:        page.Title,
		Continuation: page.Continuation,
		Count:        len(page.Items),
		Articles:     make([]FormattedArticle, 0, len(page.Items)),
	}
	for _, item := range page.Items {
		out.Articles = append(out.Articles, FormatArticle(item))
	}
	return out
}

// FormatSubscriptions flattens subscriptions, keeping folder labels only.
func FormatSubscriptions(subs []Subscription) []FormattedSubscription {
	out := make([]FormattedSubscription, 0, len(subs))
	for _, s := range subs {
		folders := make([]string, 0, len(s.Categories))
		for _, cat := range s.Categories {
			folders = append(folders, cat.Label)
		}
		out = append(out, FormattedSubscription{
			ID:      s.ID,
			Title:   s.Title,
			URL:     s.URL,
			HTMLURL: s.HTMLURL,
			Folders: folders,
		})
	}
	return out
}

// labelName extracts <name> from user/<id>/label/<name>.
func labelName(category string) (string, bool) {
	if !strings.HasPrefix(category, "user/") {
		return "", false
	}
	_, name, ok := strings.Cut(category, "/label/")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

func articleURL(a Article) string {
	for _, l := range a.Canonical {
		if l.Href != "" {
			return l.Href
		}
	}
	for _, l := range a.Alternate {
		if l.Href != "" {
			return l.Href
		}
	}
	return ""
}

// summarize converts HTML to collapsed plain text truncated to
// MaxSummaryRunes runes, marking truncation with "...".
func summarize(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	text := html
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		doc.Find("script, style").Remove()
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) > MaxSummaryRunes {
		return string(runes[:MaxSummaryRunes]) + "..."
	}
	return text
}
