// Package retry wraps connectors with bounded retries of transient failures.
// Connectors do not retry on their own; the collector only wraps them when a
// retry budget is configured.
package retry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/jobfeed/internal/model"
)

// Connector is a decorator that retries transient Fetch failures with
// exponential backoff and jitter before giving up.
type Connector struct {
	model.Connector
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// Wrap decorates inner with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func Wrap(inner model.Connector, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Connector {
	return &Connector{
		Connector:  inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Fetch attempts to fetch a page, retrying on transient errors.
func (c *Connector) Fetch(ctx context.Context, p model.FetchParams) ([]json.RawMessage, error) {
	raw, err := c.Connector.Fetch(ctx, p)
	if err == nil {
		return raw, nil
	}

	if !isRetryable(err) {
		return raw, err
	}

	lastErr := err
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		delay := c.backoffDelay(attempt, lastErr)

		c.logger.Warn("retrying after transient error",
			"provider", c.Name(),
			"query", p.Query,
			"page", p.Page,
			"attempt", attempt,
			"max_retries", c.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return []json.RawMessage{}, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		raw, err = c.Connector.Fetch(ctx, p)
		if err == nil {
			return raw, nil
		}

		if !isRetryable(err) {
			return raw, err
		}
		lastErr = err
	}

	return []json.RawMessage{}, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (c *Connector) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)

	return delay
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation, never retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		// 429 Too Many Requests and 5xx are transient.
		if httpErr.StatusCode == 429 || httpErr.StatusCode >= 500 {
			return true
		}
		return false
	}

	// Decode failures will not fix themselves.
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false
	}

	// Non-HTTP errors (network, DNS, etc.) are retryable.
	return true
}
