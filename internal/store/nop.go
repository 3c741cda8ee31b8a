package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/amishk599/jobfeed/internal/model"
)

// NopStore is a no-op store used in dry-run mode. Nothing is ever persisted,
// so every listing appears new on each run.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) Begin(context.Context) (model.ListingTx, error) { return nopTx{}, nil }
func (s *NopStore) ListSince(context.Context, time.Time) ([]model.Listing, error) {
	return nil, nil
}
func (s *NopStore) RepairTags(context.Context, *slog.Logger) (RepairReport, error) {
	return RepairReport{}, nil
}
func (s *NopStore) Close() error { return nil }

type nopTx struct{}

func (nopTx) Exists(context.Context, int64) (bool, error) { return false, nil }
func (nopTx) Insert(context.Context, model.Listing) error  { return nil }
func (nopTx) Commit(context.Context) error                 { return nil }
func (nopTx) Rollback(context.Context) error               { return nil }
