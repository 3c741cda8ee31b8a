package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingField marks a raw provider item that cannot become a Listing
// because a required field is absent.
var ErrMissingField = errors.New("missing required field")

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// DropError describes a raw item that Normalize discarded.
type DropError struct {
	Source string
	Index  int    // position in the raw page
	Field  string // first missing field
}

func (e *DropError) Error() string {
	return fmt.Sprintf("%s item %d: %s: %v", e.Source, e.Index, e.Field, ErrMissingField)
}

func (e *DropError) Unwrap() error {
	return ErrMissingField
}
