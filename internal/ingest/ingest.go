// Package ingest writes normalized listings to storage, one record per unit
// of work, so one bad record never costs the rest of the batch.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amishk599/jobfeed/internal/model"
)

// RecordError is a listing that could not be stored.
type RecordError struct {
	ID  int64
	Err error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("listing %d: %v", e.ID, e.Err)
}

func (e RecordError) Unwrap() error { return e.Err }

// Report summarizes one Save call.
type Report struct {
	Inserted int
	Skipped  int // already stored
	Failed   []RecordError
}

// Saver stores listings insert-only: existing ids are never updated.
type Saver struct {
	store  model.ListingStore
	logger *slog.Logger
	now    func() time.Time
}

func NewSaver(store model.ListingStore, logger *slog.Logger) *Saver {
	return &Saver{store: store, logger: logger, now: time.Now}
}

// Save stores each listing that is not stored yet. Per-record failures are
// logged and reported; the only returned error is failing to open a unit of
// work at all, which means storage is unreachable.
func (s *Saver) Save(ctx context.Context, listings []model.Listing) (Report, error) {
	var report Report

	for _, l := range listings {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("saving listings: %w", err)
		}

		tx, err := s.store.Begin(ctx)
		if err != nil {
			return report, fmt.Errorf("saving listing %d: %w", l.ID, err)
		}

		inserted, err := saveOne(ctx, tx, prepare(l, s.now))
		if err != nil {
			s.logger.Error("failed to store listing", "id", l.ID, "source", l.Source, "error", err)
			report.Failed = append(report.Failed, RecordError{ID: l.ID, Err: err})
			continue
		}
		if inserted {
			report.Inserted++
		} else {
			report.Skipped++
		}
	}

	s.logger.Info("listings saved",
		"inserted", report.Inserted,
		"skipped", report.Skipped,
		"failed", len(report.Failed),
	)
	return report, nil
}

func saveOne(ctx context.Context, tx model.ListingTx, l model.Listing) (bool, error) {
	defer tx.Rollback(ctx)

	exists, err := tx.Exists(ctx, l.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := tx.Insert(ctx, l); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// prepare fills the storage defaults a listing must carry at rest.
func prepare(l model.Listing, now func() time.Time) model.Listing {
	if l.Tags == nil {
		l.Tags = []string{}
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now().UTC()
	}
	if i := strings.IndexByte(l.URL, '?'); i >= 0 {
		l.URL = l.URL[:i]
	}
	return l
}
