package notifier

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobfeed/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleSummary(n int) model.Summary {
	s := model.Summary{
		Total:          n,
		PeriodDays:     1,
		WindowDays:     1,
		TopCompanies:   []string{"Acme Corp"},
		TopTags:        []model.TagCount{{Tag: "python", Count: 2}, {Tag: "go", Count: 1}},
		WorkModalities: []string{"Hybrid", "Remote"},
	}
	for i := range n {
		s.Listings = append(s.Listings, model.Listing{
			ID:           int64(i + 1),
			Company:      "Acme Corp",
			Title:        "Backend Engineer",
			WorkModality: "Remote",
			URL:          "https://example.com/apply",
			CreatedAt:    time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		})
	}
	return s
}

func TestSlackNotifier_SingleDigest(t *testing.T) {
	var body []byte
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(sampleSummary(3)); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}
	if c := calls.Load(); c != 1 {
		t.Errorf("expected one message per digest, got %d", c)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	header := payload.Blocks[0]
	if header.Text.Text != "📊 Job digest: 3 listings" {
		t.Errorf("header text = %q", header.Text.Text)
	}
	tagsField := payload.Blocks[2].Fields[1].Text
	if tagsField != "*Top tags:*\npython (2), go (1)" {
		t.Errorf("tags field = %q", tagsField)
	}
}

func TestSlackNotifier_PayloadFormat(t *testing.T) {
	payload := buildPayload(sampleSummary(2))

	// header, window/modalities, companies/tags, 2 listings, actions, divider
	if len(payload.Blocks) != 7 {
		t.Fatalf("expected 7 blocks, got %d", len(payload.Blocks))
	}
	if payload.Blocks[0].Type != "header" {
		t.Errorf("block[0] type = %q, want header", payload.Blocks[0].Type)
	}
	if payload.Blocks[1].Type != "section" || len(payload.Blocks[1].Fields) != 2 {
		t.Errorf("block[1] not a 2-field section")
	}
	if got := payload.Blocks[1].Fields[0].Text; got != "*Window:*\nlast 1 day" {
		t.Errorf("window field = %q", got)
	}
	if got := payload.Blocks[3].Text.Text; !strings.HasPrefix(got, "*<https://example.com/apply|Backend Engineer>*") {
		t.Errorf("listing block = %q", got)
	}
	if payload.Blocks[5].Type != "actions" || payload.Blocks[5].Elements[0].Style != "primary" {
		t.Errorf("block[5] not a primary actions block")
	}
	if payload.Blocks[6].Type != "divider" {
		t.Errorf("block[6] type = %q, want divider", payload.Blocks[6].Type)
	}
}

func TestSlackNotifier_EmptyDigestFormat(t *testing.T) {
	s := model.Summary{WindowDays: 7, FallbackApplied: true}
	payload := buildPayload(s)

	// header, two field sections, divider; no listings and no button
	if len(payload.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(payload.Blocks))
	}
	if got := payload.Blocks[1].Fields[0].Text; got != "*Window:*\nlast 7 days (widened)" {
		t.Errorf("window field = %q", got)
	}
	if got := payload.Blocks[2].Fields[0].Text; got != "*Top companies:*\nnone" {
		t.Errorf("companies field = %q", got)
	}
}

func TestSlackNotifier_HighlightsAreCapped(t *testing.T) {
	payload := buildPayload(sampleSummary(maxHighlights + 5))
	sections := 0
	for _, b := range payload.Blocks[3:] {
		if b.Type == "section" {
			sections++
		}
	}
	if sections != maxHighlights {
		t.Errorf("expected %d listing sections, got %d", maxHighlights, sections)
	}
}

func TestSlackNotifier_SlackReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(sampleSummary(1)); err == nil {
		t.Error("expected error on HTTP 500, got nil")
	}
}

func TestSlackNotifier_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := calls.Add(1)
		if c == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(sampleSummary(1)); err != nil {
		t.Fatalf("expected nil after retry, got %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 HTTP calls (initial + retry), got %d", c)
	}
}

func TestSendTestMessage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := SendTestMessage(NewSlackNotifier(srv.URL, srv.Client(), discardLogger())); err != nil {
		t.Fatalf("SendTestMessage() = %v", err)
	}
	if c := calls.Load(); c != 1 {
		t.Errorf("expected 1 HTTP call, got %d", c)
	}
}
