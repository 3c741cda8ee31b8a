package ratelimit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/amishk599/jobfeed/internal/model"
)

func TestWait_SameProvider_EnforcesMinDelay(t *testing.T) {
	limiter := NewLimiter(100*time.Millisecond, nil)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx, "adzuna"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "adzuna"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Should have waited at least ~100ms (allow 80ms for timer jitter).
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentProviders_NoCrossBlocking(t *testing.T) {
	limiter := NewLimiter(200*time.Millisecond, nil)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "adzuna"); err != nil {
		t.Fatalf("adzuna wait: %v", err)
	}

	// Immediately call for jsearch, which should not block.
	start := time.Now()
	if err := limiter.Wait(ctx, "jsearch"); err != nil {
		t.Fatalf("jsearch wait: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed > 50*time.Millisecond {
		t.Errorf("expected jsearch wait to be near-instant, got %v", elapsed)
	}
}

func TestWait_Override(t *testing.T) {
	limiter := NewLimiter(5*time.Second, map[string]time.Duration{"remoteok": 0})
	ctx := context.Background()

	if got := limiter.DelayFor("remoteok"); got != 0 {
		t.Fatalf("expected override 0, got %v", got)
	}
	if got := limiter.DelayFor("adzuna"); got != 5*time.Second {
		t.Fatalf("expected default 5s, got %v", got)
	}

	start := time.Now()
	for range 3 {
		if err := limiter.Wait(ctx, "remoteok"); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected no wait with zero override, got %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewLimiter(5*time.Second, nil) // long delay
	ctx := context.Background()

	// First call to seed the last-call time.
	if err := limiter.Wait(ctx, "adzuna"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := limiter.Wait(ctx, "adzuna")
	if err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

// --- Mock for Connector decorator test ---

type recordingConnector struct {
	called bool
}

func (c *recordingConnector) Name() string { return "adzuna" }

func (c *recordingConnector) Fetch(context.Context, model.FetchParams) ([]json.RawMessage, error) {
	c.called = true
	return []json.RawMessage{}, nil
}

func (c *recordingConnector) Normalize([]json.RawMessage) ([]model.Listing, []error) {
	return nil, nil
}

func TestConnector_WaitsBeforeDelegating(t *testing.T) {
	limiter := NewLimiter(100*time.Millisecond, nil)
	inner := &recordingConnector{}
	conn := Wrap(inner, limiter)
	ctx := context.Background()

	if conn.Name() != "adzuna" {
		t.Fatalf("expected name to pass through, got %q", conn.Name())
	}

	// First call seeds the limiter, then delegates.
	if _, err := conn.Fetch(ctx, model.FetchParams{Page: 1}); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if !inner.called {
		t.Fatal("inner connector was not called on first fetch")
	}

	inner.called = false

	// Second call should wait for the rate limiter.
	start := time.Now()
	if _, err := conn.Fetch(ctx, model.FetchParams{Page: 2}); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	elapsed := time.Since(start)

	if !inner.called {
		t.Fatal("inner connector was not called on second fetch")
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait on second fetch, got %v", elapsed)
	}
}
