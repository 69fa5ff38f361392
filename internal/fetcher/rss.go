package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"news2kindle/internal/config"
)

// RSSFetcher pulls articles from an RSS or Atom feed over HTTP.
type RSSFetcher struct {
	client *http.Client
	now    func() time.Time
}

func NewRSSFetcher() *RSSFetcher {
	return &RSSFetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}
}

func (f *RSSFetcher) Fetch(ctx context.Context, src config.Source) ([]RawEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("rss: failed to create request for %s: %w", src.ID, err)
	}
	req.Header.Set("User-Agent", "news2kindle/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rss: request failed for %s: %w", src.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss: unexpected status %d from %s", resp.StatusCode, src.ID)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rss: failed to parse feed for %s: %w", src.ID, err)
	}

	var cutoff time.Time
	if src.MaxAge > 0 {
		cutoff = f.now().Add(-src.MaxAge.Std())
	}

	entries := make([]RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		published := publishedTime(item)
		if !cutoff.IsZero() && published != nil && published.Before(cutoff) {
			continue
		}

		content := item.Content
		if content == "" {
			content = item.Description
		}

		entries = append(entries, RawEntry{
			Title:     strings.TrimSpace(item.Title),
			Author:    authorName(item),
			Link:      strings.TrimSpace(item.Link),
			Published: published,
			Content:   content,
		})

		if src.MaxArticles > 0 && len(entries) >= src.MaxArticles {
			break
		}
	}

	return entries, nil
}

func publishedTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed
	}
	return nil
}

func authorName(item *gofeed.Item) string {
	for _, a := range item.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			return strings.TrimSpace(a.Name)
		}
	}
	if item.Author != nil {
		return strings.TrimSpace(item.Author.Name)
	}
	return ""
}
