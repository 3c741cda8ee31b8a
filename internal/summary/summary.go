// Package summary aggregates stored listings over a recent time window for
// digests and reports.
package summary

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/amishk599/jobfeed/internal/filter"
	"github.com/amishk599/jobfeed/internal/model"
	"github.com/amishk599/jobfeed/internal/tags"
)

const (
	DefaultPeriodDays = 1
	DefaultLimit      = 50
	// FallbackDays is the window used when the requested one finds nothing.
	FallbackDays = 7

	maxCompanies = 10
	maxTags      = 10
)

// Query selects what to summarize. Zero values select the defaults.
type Query struct {
	Region     string   // substring of the work modality
	Tags       []string // any tag containing any of these
	PeriodDays int
	Limit      int
}

func (q Query) withDefaults() Query {
	if q.PeriodDays <= 0 {
		q.PeriodDays = DefaultPeriodDays
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	return q
}

// Aggregator builds summaries from stored listings.
type Aggregator struct {
	reader model.ListingReader
	logger *slog.Logger
	now    func() time.Time
}

func New(reader model.ListingReader, logger *slog.Logger) *Aggregator {
	return &Aggregator{reader: reader, logger: logger, now: time.Now}
}

// Summarize never fails: a storage error yields a zero-valued summary with
// Error set.
func (a *Aggregator) Summarize(ctx context.Context, q Query) model.Summary {
	q = q.withDefaults()
	f := filter.NewModalityAndTagFilter(q.Region, q.Tags)
	filters := model.SummaryFilters{Region: q.Region, Tags: f.Tags(), Limit: q.Limit}

	a.logger.Debug("summarizing", "region", q.Region, "tags", filters.Tags, "period_days", q.PeriodDays, "limit", q.Limit)

	listings, err := a.selectWindow(ctx, f, q.PeriodDays, q.Limit)
	if err != nil {
		return a.failed(q, filters, err)
	}

	window, fallback := q.PeriodDays, false
	if len(listings) == 0 && q.PeriodDays < FallbackDays {
		a.logger.Info("no listings in window, widening", "period_days", q.PeriodDays, "fallback_days", FallbackDays)
		listings, err = a.selectWindow(ctx, f, FallbackDays, q.Limit)
		if err != nil {
			return a.failed(q, filters, err)
		}
		window, fallback = FallbackDays, true
	}

	return model.Summary{
		Total:           len(listings),
		PeriodDays:      q.PeriodDays,
		WindowDays:      window,
		FallbackApplied: fallback,
		Filters:         filters,
		TopCompanies:    topCompanies(listings),
		TopTags:         topTags(listings),
		WorkModalities:  modalities(listings),
		Listings:        listings,
	}
}

func (a *Aggregator) selectWindow(ctx context.Context, f *filter.ModalityAndTagFilter, days, limit int) ([]model.Listing, error) {
	since := a.now().Add(-time.Duration(days) * 24 * time.Hour)
	all, err := a.reader.ListSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("listing since %d days: %w", days, err)
	}

	out := f.Apply(all)
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Tags = tags.Parse(tags.List(out[i].Tags))
	}
	return out, nil
}

func (a *Aggregator) failed(q Query, filters model.SummaryFilters, err error) model.Summary {
	a.logger.Error("summary generation failed", "error", err)
	return model.Summary{
		PeriodDays:     q.PeriodDays,
		WindowDays:     q.PeriodDays,
		Filters:        filters,
		TopCompanies:   []string{},
		TopTags:        []model.TagCount{},
		WorkModalities: []string{},
		Listings:       []model.Listing{},
		Error:          fmt.Sprintf("summary generation failed: %v", err),
	}
}

// topCompanies ranks companies by listing count, then by name.
func topCompanies(listings []model.Listing) []string {
	counts := map[string]int{}
	for _, l := range listings {
		if l.Company != "" {
			counts[l.Company]++
		}
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	slices.SortFunc(names, func(x, y string) int {
		if c := cmp.Compare(counts[y], counts[x]); c != 0 {
			return c
		}
		return cmp.Compare(x, y)
	})
	if len(names) > maxCompanies {
		names = names[:maxCompanies]
	}
	return names
}

// topTags ranks tags by occurrence. Ties keep the order in which the tags
// were first seen.
func topTags(listings []model.Listing) []model.TagCount {
	var ranked []model.TagCount
	index := map[string]int{}
	for _, l := range listings {
		for _, tag := range l.Tags {
			if i, ok := index[tag]; ok {
				ranked[i].Count++
				continue
			}
			index[tag] = len(ranked)
			ranked = append(ranked, model.TagCount{Tag: tag, Count: 1})
		}
	}
	slices.SortStableFunc(ranked, func(x, y model.TagCount) int {
		return cmp.Compare(y.Count, x.Count)
	})
	if len(ranked) > maxTags {
		ranked = ranked[:maxTags]
	}
	if ranked == nil {
		ranked = []model.TagCount{}
	}
	return ranked
}

func modalities(listings []model.Listing) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, l := range listings {
		if l.WorkModality != "" && !seen[l.WorkModality] {
			seen[l.WorkModality] = true
			out = append(out, l.WorkModality)
		}
	}
	slices.Sort(out)
	return out
}
