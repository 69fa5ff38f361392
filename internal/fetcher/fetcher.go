package fetcher

import (
	"context"
	"sync"
	"time"

	"news2kindle/internal/config"
	"news2kindle/internal/retry"
)

// RawEntry is one unprocessed item pulled from a source's feed.
type RawEntry struct {
	Title     string
	Author    string
	Link      string
	Published *time.Time
	Content   string
}

// RawFetchResult is everything one source produced in one run. A failed
// fetch is recorded in Err; it is never propagated as an error past the
// fetch boundary, so one source cannot abort the others.
type RawFetchResult struct {
	SourceID  string
	Entries   []RawEntry
	FetchedAt time.Time
	Err       error
}

// Fetcher is an interface for pulling raw entries from a news source.
type Fetcher interface {
	Fetch(ctx context.Context, src config.Source) ([]RawEntry, error)
}

// FetchAll fetches every source concurrently and joins the results into
// a map keyed by source ID. Each source gets its own timeout and retry
// budget; failures land on the per-source result.
func FetchAll(ctx context.Context, f Fetcher, sources []config.Source, timeout time.Duration, retryCfg retry.Config) map[string]RawFetchResult {
	results := make([]RawFetchResult, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src config.Source) {
			defer wg.Done()
			results[i] = fetchOne(ctx, f, src, timeout, retryCfg)
		}(i, src)
	}
	wg.Wait()

	joined := make(map[string]RawFetchResult, len(results))
	for _, res := range results {
		joined[res.SourceID] = res
	}
	return joined
}

func fetchOne(ctx context.Context, f Fetcher, src config.Source, timeout time.Duration, retryCfg retry.Config) RawFetchResult {
	res := RawFetchResult{
		SourceID:  src.ID,
		FetchedAt: time.Now().UTC(),
	}

	fetchCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res.Err = retry.WithBackoff(fetchCtx, retryCfg, func(ctx context.Context) error {
		entries, err := f.Fetch(ctx, src)
		if err != nil {
			return err
		}
		res.Entries = entries
		return nil
	})
	if res.Err != nil {
		res.Entries = nil
	}
	return res
}
