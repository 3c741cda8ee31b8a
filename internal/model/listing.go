package model

import (
	"context"
	"encoding/json"
	"time"
)

// Work modality values. Every Listing carries exactly one of these.
const (
	ModalityRemote = "Remote"
	ModalityHybrid = "Hybrid"
	ModalityOnSite = "On-site"
)

// Listing is the canonical job record, independent of the provider it came from.
type Listing struct {
	ID           int64     `json:"id"`            // stable across providers and runs
	Title        string    `json:"title"`         // never null, may be ""
	Company      string    `json:"company"`       // never null, may be ""
	WorkModality string    `json:"work_modality"` // Remote, Hybrid or On-site
	Location     string    `json:"location"`      // free-text place, "" when unknown
	Source       string    `json:"source"`        // provider name
	Tags         []string  `json:"tags"`          // normalized, never nil at rest
	URL          string    `json:"url"`           // tracking query stripped
	CreatedAt    time.Time `json:"created_at"`
}

// CacheEntry is one cached raw provider response for a (query, country) pair.
type CacheEntry struct {
	Query     string
	Country   string
	Response  json.RawMessage // verbatim provider items, JSON array
	CreatedAt time.Time       // last refresh
}

// FetchParams selects one page of results from a provider.
type FetchParams struct {
	Query  string
	Region string
	Page   int // 1-based
}

// Connector fetches raw listings from one provider and maps them into Listings.
type Connector interface {
	Name() string
	// Fetch returns the raw items of one page. On failure it returns an empty
	// slice and the error; callers log it and move on.
	Fetch(ctx context.Context, p FetchParams) ([]json.RawMessage, error)
	// Normalize maps raw items to Listings. Items that cannot be mapped are
	// reported as *DropError and left out.
	Normalize(raw []json.RawMessage) ([]Listing, []error)
}

// ResponseCache stores raw provider responses keyed by (query, country).
type ResponseCache interface {
	// Get returns the entry if it is still fresh, or nil on a miss.
	Get(ctx context.Context, query, country string) (*CacheEntry, error)
	// Put inserts or refreshes the entry for (query, country) in place.
	Put(ctx context.Context, query, country string, response json.RawMessage) error
}

// ListingStore opens short-lived units of work against listing storage.
type ListingStore interface {
	Begin(ctx context.Context) (ListingTx, error)
}

// ListingTx is one unit of work. Rollback after Commit is a no-op.
type ListingTx interface {
	Exists(ctx context.Context, id int64) (bool, error)
	Insert(ctx context.Context, l Listing) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ListingReader reads stored listings for reporting.
type ListingReader interface {
	// ListSince returns listings created at or after since, newest first.
	ListSince(ctx context.Context, since time.Time) ([]Listing, error)
}

// Notifier delivers a summary digest.
type Notifier interface {
	Notify(s Summary) error
}
