package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"news2kindle/internal/config"
)

const sampleRSSFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example News</title>
    <link>http://example.com</link>
    <item>
      <title>  First Story  </title>
      <link>http://example.com/stories/1</link>
      <author>alice@example.com (Alice)</author>
      <pubDate>Mon, 24 Aug 2026 06:00:00 GMT</pubDate>
      <description>&lt;p&gt;Body of the first story.&lt;/p&gt;</description>
    </item>
    <item>
      <title>Second Story</title>
      <link>http://example.com/stories/2</link>
      <pubDate>Mon, 24 Aug 2026 05:00:00 GMT</pubDate>
      <description>Body of the second story.</description>
    </item>
    <item>
      <title>Ancient Story</title>
      <link>http://example.com/stories/0</link>
      <pubDate>Tue, 01 Jan 2019 00:00:00 GMT</pubDate>
      <description>Very old.</description>
    </item>
  </channel>
</rss>`

func rssServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(payload))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func testSource(url string) config.Source {
	return config.Source{ID: "example", URL: url}
}

func TestFetchParsesRSSFeed(t *testing.T) {
	ts := rssServer(t, sampleRSSFeed)

	f := &RSSFetcher{
		client: ts.Client(),
		now:    func() time.Time { return time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC) },
	}

	entries, err := f.Fetch(context.Background(), testSource(ts.URL))
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}

	e := entries[0]
	if e.Title != "First Story" {
		t.Errorf("Expected trimmed title 'First Story', got %q", e.Title)
	}
	if e.Link != "http://example.com/stories/1" {
		t.Errorf("Unexpected link %q", e.Link)
	}
	if e.Published == nil {
		t.Fatal("Expected published time to be set")
	}
	if e.Published.UTC().Hour() != 6 {
		t.Errorf("Unexpected published time: %v", e.Published)
	}
	if e.Content == "" {
		t.Error("Expected description to be used as content")
	}
}

func TestFetchMaxAgeFiltersOldEntries(t *testing.T) {
	ts := rssServer(t, sampleRSSFeed)

	f := &RSSFetcher{
		client: ts.Client(),
		now:    func() time.Time { return time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC) },
	}

	src := testSource(ts.URL)
	src.MaxAge = config.Duration(24 * time.Hour)

	entries, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries inside the window, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Title == "Ancient Story" {
			t.Error("Expected entry outside the window to be skipped")
		}
	}
}

func TestFetchMaxArticlesCapsEntries(t *testing.T) {
	ts := rssServer(t, sampleRSSFeed)

	f := &RSSFetcher{
		client: ts.Client(),
		now:    time.Now,
	}

	src := testSource(ts.URL)
	src.MaxArticles = 1

	entries, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Title != "First Story" {
		t.Errorf("Expected first entry kept, got %q", entries[0].Title)
	}
}

func TestFetchErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer ts.Close()

	f := NewRSSFetcher()
	_, err := f.Fetch(context.Background(), testSource(ts.URL))
	if err == nil {
		t.Fatal("Expected error for non-200 status")
	}
}

func TestFetchMalformedPayload(t *testing.T) {
	ts := rssServer(t, "this is not a feed")

	f := NewRSSFetcher()
	_, err := f.Fetch(context.Background(), testSource(ts.URL))
	if err == nil {
		t.Fatal("Expected parse error for malformed payload")
	}
}

// Fetching twice against an unchanged upstream yields equivalent raw
// entries, so a re-fetch is always safe.
func TestFetchIdempotent(t *testing.T) {
	ts := rssServer(t, sampleRSSFeed)

	f := &RSSFetcher{
		client: ts.Client(),
		now:    func() time.Time { return time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC) },
	}

	first, err := f.Fetch(context.Background(), testSource(ts.URL))
	if err != nil {
		t.Fatalf("First fetch returned error: %v", err)
	}
	second, err := f.Fetch(context.Background(), testSource(ts.URL))
	if err != nil {
		t.Fatalf("Second fetch returned error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("Expected identical entry counts, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Title != second[i].Title || first[i].Link != second[i].Link {
			t.Errorf("Entry %d differs between fetches", i)
		}
	}
}
