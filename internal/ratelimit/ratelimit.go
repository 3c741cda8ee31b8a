// Package ratelimit spaces out requests to the same provider.
package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/amishk599/jobfeed/internal/model"
)

// DefaultDelay is the minimum gap between two requests to one provider.
const DefaultDelay = 1500 * time.Millisecond

// Limiter enforces a minimum delay between requests to the same provider.
type Limiter struct {
	mu        sync.Mutex
	lastCall  map[string]time.Time     // key: provider name
	minDelay  time.Duration            // default gap
	overrides map[string]time.Duration // per-provider gap
}

// NewLimiter creates a limiter that enforces minDelay between consecutive
// requests to the same provider, or the provider's entry in overrides.
func NewLimiter(minDelay time.Duration, overrides map[string]time.Duration) *Limiter {
	return &Limiter{
		lastCall:  make(map[string]time.Time),
		minDelay:  minDelay,
		overrides: overrides,
	}
}

// DelayFor returns the gap enforced for provider.
func (r *Limiter) DelayFor(provider string) time.Duration {
	if d, ok := r.overrides[provider]; ok {
		return d
	}
	return r.minDelay
}

// Wait blocks until enough time has passed since the last request to the given provider.
// Returns an error if the context is cancelled while waiting.
func (r *Limiter) Wait(ctx context.Context, provider string) error {
	delay := r.DelayFor(provider)

	r.mu.Lock()
	last, ok := r.lastCall[provider]
	now := time.Now()

	if !ok {
		// First request for this provider, no wait needed.
		r.lastCall[provider] = now
		r.mu.Unlock()
		return nil
	}

	elapsed := now.Sub(last)
	if elapsed >= delay {
		r.lastCall[provider] = now
		r.mu.Unlock()
		return nil
	}

	remaining := delay - elapsed
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", provider, ctx.Err())
	case <-time.After(remaining):
	}

	// Record the actual time after waiting.
	r.mu.Lock()
	r.lastCall[provider] = time.Now()
	r.mu.Unlock()

	return nil
}

// Connector is a decorator that waits on the limiter before every Fetch of
// the wrapped connector.
type Connector struct {
	model.Connector
	limiter *Limiter
}

// Wrap decorates inner with provider-level rate limiting. All connectors of
// one provider should share the same limiter instance.
func Wrap(inner model.Connector, limiter *Limiter) *Connector {
	return &Connector{Connector: inner, limiter: limiter}
}

// Fetch waits for the limiter to allow a request, then delegates.
func (c *Connector) Fetch(ctx context.Context, p model.FetchParams) ([]json.RawMessage, error) {
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return []json.RawMessage{}, err
	}
	return c.Connector.Fetch(ctx, p)
}
