// Package collector runs one ingestion pass over every configured provider,
// query and region, serving repeat lookups from the response cache.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobfeed/internal/cache"
	"github.com/amishk599/jobfeed/internal/ingest"
	"github.com/amishk599/jobfeed/internal/model"
)

const (
	DefaultMaxPages    = 2
	DefaultMaxRequests = 40
)

// Source is one provider and the searches to run against it.
type Source struct {
	Connector model.Connector
	Queries   []string
	Regions   []string // empty means one pass with no region
	MaxPages  int      // zero means the collector default
}

// Saver persists the deduplicated listings of a run.
type Saver interface {
	Save(ctx context.Context, listings []model.Listing) (ingest.Report, error)
}

// Options tunes a Collector. Zero values select the defaults.
type Options struct {
	MaxPages    int
	MaxRequests int // external requests allowed per run
	Recorder    Recorder
}

// RunReport describes one completed run.
type RunReport struct {
	RunID           string
	Requests        int // external requests made
	CacheHits       int
	FetchFailures   int
	Normalized      int
	Dropped         int
	Unique          int
	BudgetExhausted bool
	Ingest          ingest.Report
}

// Collector owns the full ingestion pipeline:
// cache check → fetch → cache store → normalize → dedup → save.
type Collector struct {
	sources     []Source
	cache       model.ResponseCache
	saver       Saver
	maxPages    int
	maxRequests int
	recorder    Recorder
	logger      *slog.Logger
}

// New creates a collector wired with all its dependencies.
func New(sources []Source, rc model.ResponseCache, saver Saver, opts Options, logger *slog.Logger) *Collector {
	c := &Collector{
		sources:     sources,
		cache:       rc,
		saver:       saver,
		maxPages:    opts.MaxPages,
		maxRequests: opts.MaxRequests,
		recorder:    opts.Recorder,
		logger:      logger,
	}
	if c.maxPages <= 0 {
		c.maxPages = DefaultMaxPages
	}
	if c.maxRequests <= 0 {
		c.maxRequests = DefaultMaxRequests
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}
	return c
}

// budget caps external requests within one run.
type budget struct {
	limit int
	used  int
}

func (b *budget) take() bool {
	if b.used >= b.limit {
		return false
	}
	b.used++
	return true
}

// Run performs one collection pass and stores what it found. Provider and
// per-page failures are logged and counted; only cancellation and storage
// being unreachable end the run with an error.
func (c *Collector) Run(ctx context.Context) (RunReport, error) {
	start := time.Now()
	report := RunReport{RunID: uuid.NewString()}
	logger := c.logger.With("run_id", report.RunID)
	b := &budget{limit: c.maxRequests}

	logger.Info("collection run started", "providers", len(c.sources), "max_requests", c.maxRequests)

	var collected []model.Listing
	for _, src := range c.sources {
		name := src.Connector.Name()
		maxPages := src.MaxPages
		if maxPages <= 0 {
			maxPages = c.maxPages
		}

		for _, region := range regionsOf(src) {
			for _, query := range src.Queries {
				for page := 1; page <= maxPages; page++ {
					if err := ctx.Err(); err != nil {
						return report, fmt.Errorf("collection run %s: %w", report.RunID, err)
					}

					p := model.FetchParams{Query: query, Region: region, Page: page}
					raw, ok := c.loadPage(ctx, logger, b, &report, src.Connector, p)
					if !ok || len(raw) == 0 {
						break
					}

					listings, errs := src.Connector.Normalize(raw)
					for _, err := range errs {
						logger.Debug("dropped raw item", "provider", name, "query", query, "region", region, "page", page, "error", err)
					}
					report.Normalized += len(listings)
					report.Dropped += len(errs)
					c.recorder.Normalized(name, len(listings), len(errs))
					collected = append(collected, listings...)
				}
			}
		}
	}

	unique := dedup(collected)
	report.Unique = len(unique)

	saved, err := c.saver.Save(ctx, unique)
	report.Ingest = saved
	if err != nil {
		return report, fmt.Errorf("collection run %s: %w", report.RunID, err)
	}

	elapsed := time.Since(start)
	c.recorder.RunFinished(report, elapsed)
	logger.Info("collection run finished",
		"requests", report.Requests,
		"cache_hits", report.CacheHits,
		"fetch_failures", report.FetchFailures,
		"normalized", report.Normalized,
		"dropped", report.Dropped,
		"unique", report.Unique,
		"inserted", saved.Inserted,
		"skipped", saved.Skipped,
		"failed", len(saved.Failed),
		"budget_exhausted", report.BudgetExhausted,
		"duration", elapsed.Round(time.Millisecond),
	)
	return report, nil
}

// loadPage returns the raw items of one page, from the cache when fresh and
// from the provider otherwise. ok is false when the page could not be had,
// which ends pagination for the current search.
func (c *Collector) loadPage(ctx context.Context, logger *slog.Logger, b *budget, report *RunReport, conn model.Connector, p model.FetchParams) ([]json.RawMessage, bool) {
	name := conn.Name()
	key := cache.Key(name, p.Query, p.Page)
	attrs := []any{"provider", name, "query", p.Query, "region", p.Region, "page", p.Page}

	entry, err := c.cache.Get(ctx, key, p.Region)
	if err != nil {
		logger.Warn("cache lookup failed, fetching instead", append(attrs, "error", err)...)
	}
	if entry != nil {
		var raw []json.RawMessage
		decodeErr := json.Unmarshal(entry.Response, &raw)
		if decodeErr == nil {
			report.CacheHits++
			c.recorder.CacheHit(name)
			logger.Debug("cache hit", attrs...)
			return raw, true
		}
		logger.Warn("cached response unreadable, fetching instead", append(attrs, "error", decodeErr)...)
	}

	if !b.take() {
		if !report.BudgetExhausted {
			logger.Warn("request budget exhausted, skipping remaining fetches", "max_requests", b.limit)
		}
		report.BudgetExhausted = true
		return nil, false
	}

	report.Requests++
	raw, err := conn.Fetch(ctx, p)
	c.recorder.ExternalRequest(name, err == nil)
	if err != nil {
		report.FetchFailures++
		logger.Error("fetch failed", append(attrs, "error", err)...)
		return nil, false
	}
	logger.Debug("fetched page", append(attrs, "items", len(raw))...)

	if raw == nil {
		raw = []json.RawMessage{}
	}
	encoded, err := json.Marshal(raw)
	if err == nil {
		err = c.cache.Put(ctx, key, p.Region, encoded)
	}
	if err != nil {
		logger.Warn("caching response failed", append(attrs, "error", err)...)
	}
	return raw, true
}

func regionsOf(src Source) []string {
	if len(src.Regions) == 0 {
		return []string{""}
	}
	return src.Regions
}

// dedup keeps one listing per id. The last occurrence wins, placed where the
// id was first seen.
func dedup(listings []model.Listing) []model.Listing {
	index := make(map[int64]int, len(listings))
	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if i, ok := index[l.ID]; ok {
			out[i] = l
			continue
		}
		index[l.ID] = len(out)
		out = append(out, l)
	}
	return out
}
