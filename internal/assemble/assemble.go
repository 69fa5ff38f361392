package assemble

import (
	"sort"
	"time"

	"news2kindle/internal/config"
	"news2kindle/internal/normalize"
)

// Section groups one source's articles inside the assembled document.
type Section struct {
	SourceID string
	Title    string
	Articles []normalize.Article
}

// Document is the full assembled collection for one run. Section order
// matches the configured source order; articles within a section are
// reverse-chronological. Created once per run, consumed exactly once by
// the conversion stage.
type Document struct {
	Title       string
	Author      string
	GeneratedAt time.Time
	Sections    []Section
}

// Summary reports what assembly kept and what it cut. Truncation is
// counted, never silently discarded.
type Summary struct {
	TotalArticles int
	Truncated     int
}

// Limits bounds the assembled document. Zero means unlimited.
type Limits struct {
	MaxTotalArticles int
	MaxPerSource     int
}

// Assemble builds exactly one Document from all normalized batches of a
// run. Dedup keys are source-scoped by construction (the source ID
// prefixes every key), so cross-source collisions are impossible and no
// global dedup pass is needed. When limits are exceeded the oldest
// articles go first.
func Assemble(title, author string, generatedAt time.Time, sources []config.Source, bySource map[string][]normalize.Article, limits Limits) (*Document, Summary) {
	doc := &Document{
		Title:       title,
		Author:      author,
		GeneratedAt: generatedAt,
	}
	var summary Summary

	for _, src := range sources {
		articles := append([]normalize.Article(nil), bySource[src.ID]...)
		if len(articles) == 0 {
			continue
		}

		sort.SliceStable(articles, func(i, j int) bool {
			return articles[i].PublishedAt.After(articles[j].PublishedAt)
		})

		if limits.MaxPerSource > 0 && len(articles) > limits.MaxPerSource {
			summary.Truncated += len(articles) - limits.MaxPerSource
			articles = articles[:limits.MaxPerSource]
		}

		doc.Sections = append(doc.Sections, Section{
			SourceID: src.ID,
			Title:    src.DisplayName(),
			Articles: articles,
		})
		summary.TotalArticles += len(articles)
	}

	if limits.MaxTotalArticles > 0 && summary.TotalArticles > limits.MaxTotalArticles {
		cut := truncateOldest(doc, summary.TotalArticles-limits.MaxTotalArticles)
		summary.Truncated += cut
		summary.TotalArticles -= cut
	}

	return doc, summary
}

// truncateOldest removes the n oldest articles across the whole document,
// dropping sections that end up empty. Returns how many were removed.
func truncateOldest(doc *Document, n int) int {
	type ref struct {
		section int
		at      time.Time
	}

	var refs []ref
	for i, sec := range doc.Sections {
		for _, art := range sec.Articles {
			refs = append(refs, ref{section: i, at: art.PublishedAt})
		}
	}
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].at.Before(refs[j].at)
	})

	// Per-section count of how many trailing (oldest) articles to drop.
	// Sections are already reverse-chronological, so the oldest live at
	// the tail of each section slice.
	drop := make(map[int]int)
	removed := 0
	for _, r := range refs {
		if removed >= n {
			break
		}
		drop[r.section]++
		removed++
	}

	kept := doc.Sections[:0]
	for i, sec := range doc.Sections {
		keep := len(sec.Articles) - drop[i]
		if keep <= 0 {
			continue
		}
		sec.Articles = sec.Articles[:keep]
		kept = append(kept, sec)
	}
	doc.Sections = kept

	return removed
}
