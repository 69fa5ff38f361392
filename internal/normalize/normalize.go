package normalize

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"news2kindle/internal/fetcher"
)

// Article is the canonical unit of content. Created here, never mutated
// afterwards. Body is a sanitized HTML fragment and is always non-empty;
// PublishedAt is always set, falling back to the fetch time when the
// source omits it.
type Article struct {
	Title       string
	Author      string
	PublishedAt time.Time
	Body        string
	SourceID    string
	Key         string
}

// Stats counts what happened to one source's batch during normalization.
// Dropped entries are counted, never error-raising.
type Stats struct {
	SourceID         string
	Normalized       int
	DroppedEmpty     int
	DroppedDuplicate int
}

// Tags that never belong in an e-reader document. Matches what the
// sanitizer strips from every entry body.
const strippedTags = "script, style, iframe, svg, object, embed, noscript, video, audio, img"

// Normalize converts one source's raw batch into canonical Articles.
// Entries whose body is empty after stripping are dropped and counted;
// duplicate dedup keys within the batch keep the first occurrence.
func Normalize(res fetcher.RawFetchResult) ([]Article, Stats) {
	stats := Stats{SourceID: res.SourceID}

	articles := make([]Article, 0, len(res.Entries))
	seen := make(map[string]bool, len(res.Entries))

	for _, entry := range res.Entries {
		key := dedupKey(res.SourceID, entry)
		if seen[key] {
			stats.DroppedDuplicate++
			continue
		}

		body, err := sanitizeFragment(entry.Content, entry.Link)
		if err != nil || body == "" {
			stats.DroppedEmpty++
			continue
		}

		title := entry.Title
		if title == "" {
			title = "Untitled"
		}

		published := res.FetchedAt.UTC()
		if entry.Published != nil {
			published = entry.Published.UTC()
		}

		seen[key] = true
		articles = append(articles, Article{
			Title:       title,
			Author:      entry.Author,
			PublishedAt: published,
			Body:        body,
			SourceID:    res.SourceID,
			Key:         key,
		})
		stats.Normalized++
	}

	return articles, stats
}

// dedupKey derives the stable, source-scoped identity of an entry. Keys
// from different sources can never collide because the source ID is a
// prefix of every key.
func dedupKey(sourceID string, entry fetcher.RawEntry) string {
	ref := entry.Link
	if ref == "" {
		ref = entry.Title
	}
	return fmt.Sprintf("%s|%s", sourceID, ref)
}

// sanitizeFragment strips non-content markup from a feed body fragment
// and resolves relative hrefs against the entry link. Returns "" when
// nothing readable remains.
func sanitizeFragment(rawHTML, baseURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("normalize: failed to parse fragment: %w", err)
	}

	doc.Find(strippedTags).Remove()

	if base, err := url.Parse(baseURL); err == nil && base.IsAbs() {
		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			ref, err := url.Parse(href)
			if err != nil {
				return
			}
			sel.SetAttr("href", base.ResolveReference(ref).String())
		})
	}

	if strings.TrimSpace(doc.Text()) == "" {
		return "", nil
	}

	body, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("normalize: failed to render fragment: %w", err)
	}
	return strings.TrimSpace(body), nil
}
