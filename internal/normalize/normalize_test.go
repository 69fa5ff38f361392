package normalize

import (
	"strings"
	"testing"
	"time"

	"news2kindle/internal/fetcher"
)

var fetchedAt = time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)

func rawResult(entries ...fetcher.RawEntry) fetcher.RawFetchResult {
	return fetcher.RawFetchResult{
		SourceID:  "bbc",
		Entries:   entries,
		FetchedAt: fetchedAt,
	}
}

func TestNormalizeBasicEntry(t *testing.T) {
	published := time.Date(2026, 8, 24, 6, 0, 0, 0, time.FixedZone("BST", 3600))
	articles, stats := Normalize(rawResult(fetcher.RawEntry{
		Title:     "Hello World",
		Author:    "Alice",
		Link:      "http://example.com/1",
		Published: &published,
		Content:   "<p>Some news.</p>",
	}))

	if stats.Normalized != 1 {
		t.Fatalf("Expected 1 normalized article, got %d", stats.Normalized)
	}
	a := articles[0]
	if a.Title != "Hello World" {
		t.Errorf("Unexpected title %q", a.Title)
	}
	if a.SourceID != "bbc" {
		t.Errorf("Unexpected source id %q", a.SourceID)
	}
	if a.Key != "bbc|http://example.com/1" {
		t.Errorf("Unexpected dedup key %q", a.Key)
	}
	if a.PublishedAt.Location() != time.UTC {
		t.Errorf("Expected UTC timestamp, got %v", a.PublishedAt.Location())
	}
	if a.PublishedAt.Hour() != 5 {
		t.Errorf("Expected 05:00 UTC for 06:00 BST, got %v", a.PublishedAt)
	}
	if !strings.Contains(a.Body, "Some news.") {
		t.Errorf("Expected body to survive sanitization, got %q", a.Body)
	}
}

func TestNormalizeStripsMarkup(t *testing.T) {
	articles, _ := Normalize(rawResult(fetcher.RawEntry{
		Title:   "Scripted",
		Link:    "http://example.com/1",
		Content: `<p>Readable text.</p><script>alert("x")</script><img src="/pix.png"/><iframe src="http://ads"></iframe>`,
	}))

	if len(articles) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(articles))
	}
	body := articles[0].Body
	for _, bad := range []string{"<script", "<img", "<iframe", "alert"} {
		if strings.Contains(body, bad) {
			t.Errorf("Expected %q to be stripped, body: %q", bad, body)
		}
	}
	if !strings.Contains(body, "Readable text.") {
		t.Errorf("Expected readable text to remain, body: %q", body)
	}
}

func TestNormalizeResolvesRelativeLinks(t *testing.T) {
	articles, _ := Normalize(rawResult(fetcher.RawEntry{
		Title:   "Linked",
		Link:    "http://example.com/stories/1",
		Content: `<p>See <a href="/about">about</a> and <a href="http://other.com/x">other</a>.</p>`,
	}))

	if len(articles) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(articles))
	}
	body := articles[0].Body
	if !strings.Contains(body, `href="http://example.com/about"`) {
		t.Errorf("Expected relative href resolved against entry link, body: %q", body)
	}
	if !strings.Contains(body, `href="http://other.com/x"`) {
		t.Errorf("Expected absolute href untouched, body: %q", body)
	}
}

func TestNormalizeDropsEmptyBodies(t *testing.T) {
	articles, stats := Normalize(rawResult(
		fetcher.RawEntry{Title: "Only Script", Link: "http://example.com/1", Content: `<script>x()</script>`},
		fetcher.RawEntry{Title: "Blank", Link: "http://example.com/2", Content: "   "},
		fetcher.RawEntry{Title: "Real", Link: "http://example.com/3", Content: "<p>Content.</p>"},
	))

	if len(articles) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(articles))
	}
	if stats.DroppedEmpty != 2 {
		t.Errorf("Expected 2 dropped-empty, got %d", stats.DroppedEmpty)
	}
	if stats.Normalized != 1 {
		t.Errorf("Expected 1 normalized, got %d", stats.Normalized)
	}
}

func TestNormalizeDeduplicatesWithinBatch(t *testing.T) {
	articles, stats := Normalize(rawResult(
		fetcher.RawEntry{Title: "First", Link: "http://example.com/same", Content: "<p>First copy.</p>"},
		fetcher.RawEntry{Title: "Second", Link: "http://example.com/same", Content: "<p>Second copy.</p>"},
	))

	if len(articles) != 1 {
		t.Fatalf("Expected 1 article after dedup, got %d", len(articles))
	}
	if articles[0].Title != "First" {
		t.Errorf("Expected first occurrence kept, got %q", articles[0].Title)
	}
	if stats.DroppedDuplicate != 1 {
		t.Errorf("Expected 1 dropped duplicate, got %d", stats.DroppedDuplicate)
	}
}

func TestNormalizeFallsBackToFetchTime(t *testing.T) {
	articles, _ := Normalize(rawResult(fetcher.RawEntry{
		Title:   "Undated",
		Link:    "http://example.com/1",
		Content: "<p>No date given.</p>",
	}))

	if len(articles) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(articles))
	}
	if !articles[0].PublishedAt.Equal(fetchedAt) {
		t.Errorf("Expected published time to fall back to fetch time, got %v", articles[0].PublishedAt)
	}
}

func TestNormalizeUntitledAndKeyFallback(t *testing.T) {
	articles, _ := Normalize(rawResult(fetcher.RawEntry{
		Content: "<p>Anonymous content.</p>",
		Title:   "No Link",
	}))

	if len(articles) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(articles))
	}
	if articles[0].Key != "bbc|No Link" {
		t.Errorf("Expected key to fall back to title, got %q", articles[0].Key)
	}
}

func TestNormalizeEmptyBatch(t *testing.T) {
	articles, stats := Normalize(rawResult())
	if len(articles) != 0 {
		t.Errorf("Expected no articles, got %d", len(articles))
	}
	if stats.Normalized != 0 {
		t.Errorf("Expected zero normalized count, got %d", stats.Normalized)
	}
}
