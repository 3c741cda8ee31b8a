// Package cache keeps raw provider responses so repeated queries within the
// TTL do not hit the provider again.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/amishk599/jobfeed/internal/model"
)

// DefaultTTL is how long a cached response counts as fresh.
const DefaultTTL = 24 * time.Hour

// EntryStore persists cache entries. It has no notion of freshness: entries
// never expire on their own and are only replaced by SaveEntry.
type EntryStore interface {
	// LoadEntry returns the entry for (query, country), or nil if none exists.
	LoadEntry(ctx context.Context, query, country string) (*model.CacheEntry, error)
	// SaveEntry inserts the entry or overwrites the existing one in place.
	SaveEntry(ctx context.Context, e model.CacheEntry) error
}

// Cache applies the TTL on top of an EntryStore.
type Cache struct {
	store EntryStore
	ttl   time.Duration
	now   func() time.Time
}

// New returns a Cache over store. A non-positive ttl falls back to DefaultTTL.
func New(store EntryStore, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, now: time.Now}
}

// Get returns the entry when it was refreshed less than the TTL ago. Stale
// entries are reported as a miss and left in place.
func (c *Cache) Get(ctx context.Context, query, country string) (*model.CacheEntry, error) {
	e, err := c.store.LoadEntry(ctx, query, country)
	if err != nil {
		return nil, fmt.Errorf("loading cache entry %q/%q: %w", query, country, err)
	}
	if e == nil {
		return nil, nil
	}
	if c.now().Sub(e.CreatedAt) >= c.ttl {
		return nil, nil
	}
	return e, nil
}

// Put stores response under (query, country) and stamps it with the current time.
func (c *Cache) Put(ctx context.Context, query, country string, response json.RawMessage) error {
	e := model.CacheEntry{
		Query:     query,
		Country:   country,
		Response:  response,
		CreatedAt: c.now().UTC(),
	}
	if err := c.store.SaveEntry(ctx, e); err != nil {
		return fmt.Errorf("saving cache entry %q/%q: %w", query, country, err)
	}
	return nil
}

// Key composes the cache query for one provider page, so providers and pages
// sharing a search term do not overwrite each other.
func Key(provider, query string, page int) string {
	return provider + "|" + query + "|" + strconv.Itoa(page)
}
