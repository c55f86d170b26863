package ingest

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"newsdeck/internal/feed"
	"newsdeck/internal/models"
	"newsdeck/internal/store"
)

const defaultFetchTimeout = 15 * time.Second

// SourceResult reports one source's share of an ingestion pass.
type SourceResult struct {
	Feed      string `json:"feed"`
	Processed int    `json:"processed"`
	NewItems  int    `json:"newItems"`
	Error     string `json:"error,omitempty"`
}

// Result is the aggregate outcome of a full ingestion pass. Success is
// false only when the pass itself could not run; individual source
// failures are carried in Results.
type Result struct {
	Success       bool           `json:"success"`
	TotalNewItems int            `json:"totalNewItems"`
	Results       []SourceResult `json:"results"`
}

// Options tunes a Runner.
type Options struct {
	// WorkerCount bounds concurrent fetches. <= 0 means sequential.
	WorkerCount int

	// FetchTimeout bounds each source's HTTP fetch.
	FetchTimeout time.Duration
}

// Runner executes ingestion passes: fetch, parse, and upsert every
// configured source.
type Runner struct {
	store        *store.Store
	fetcher      *feed.Fetcher
	workerCount  int
	fetchTimeout time.Duration

	processed  atomic.Int64
	duplicates atomic.Int64
}

// NewRunner creates a runner over the given store.
func NewRunner(st *store.Store, opts Options) *Runner {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	return &Runner{
		store:        st,
		fetcher:      feed.NewFetcher(opts.FetchTimeout),
		workerCount:  opts.WorkerCount,
		fetchTimeout: opts.FetchTimeout,
	}
}

// Run executes one full ingestion pass across all configured sources.
// Sources are processed with bounded parallelism; each source's result
// lands in its own slot so one failure never bleeds into another.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	feeds, err := r.store.ListFeeds(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Could not load feed configuration")
		return Result{Success: false, Results: []SourceResult{}}, err
	}
	log.Info().Int("feeds", len(feeds)).Msg("Starting ingestion pass")

	results := make([]SourceResult, len(feeds))

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.workerCount)
	for i := range feeds {
		wg.Add(1)
		go func(i int, f models.Feed) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = r.processSource(ctx, f)
		}(i, feeds[i])
	}
	wg.Wait()

	total := 0
	for _, sr := range results {
		total += sr.NewItems
	}
	log.Info().
		Int("total_new_items", total).
		Int64("processed", r.processed.Load()).
		Int64("duplicates", r.duplicates.Load()).
		Msg("Ingestion pass finished")

	return Result{Success: true, TotalNewItems: total, Results: results}, nil
}

// processSource runs fetch -> parse -> upsert for a single source.
func (r *Runner) processSource(ctx context.Context, f models.Feed) SourceResult {
	res := SourceResult{Feed: f.Name}

	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	log.Info().Str("feed", f.Name).Str("url", f.FeedURL).Msg("Processing feed")

	raw, err := r.fetcher.Fetch(fetchCtx, f.FeedURL)
	if err != nil {
		log.Error().Err(err).Str("feed", f.Name).Msg("Feed fetch failed")
		res.Error = err.Error()
		return res
	}

	drafts, err := feed.Parse(raw, f.Type, f.Name, feed.Options{
		UseFeedTime: f.PubDateMode == models.PubDateModeFeed,
	})
	if err != nil {
		log.Error().Err(err).Str("feed", f.Name).Msg("Feed parse failed")
		res.Error = err.Error()
		return res
	}

	for _, d := range drafts {
		if d.Link == "" {
			log.Warn().Str("feed", f.Name).Str("title", d.Title).Msg("Draft without link, skipping")
			continue
		}
		res.Processed++

		item := &models.FeedItem{
			Title:   d.Title,
			Link:    d.Link,
			PubDate: d.PubDate,
			Type:    d.Type,
			Source:  d.Source,
		}
		if d.ImageURL != "" {
			item.ImageURL = sql.NullString{String: d.ImageURL, Valid: true}
		}

		outcome, err := r.store.UpsertItem(ctx, item)
		if err != nil {
			log.Error().Err(err).Str("feed", f.Name).Str("link", d.Link).Msg("Upsert failed, aborting source")
			res.Error = err.Error()
			return res
		}
		if outcome.Inserted {
			res.NewItems++
			r.processed.Add(1)
		} else {
			r.duplicates.Add(1)
		}
	}

	log.Info().
		Str("feed", f.Name).
		Int("processed", res.Processed).
		Int("new_items", res.NewItems).
		Msg("Feed processed")
	return res
}

// Stats returns cumulative insert/duplicate counters across passes.
func (r *Runner) Stats() (processed, duplicates int64) {
	return r.processed.Load(), r.duplicates.Load()
}
