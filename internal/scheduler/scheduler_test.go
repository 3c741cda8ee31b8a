package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobfeed/internal/collector"
	"github.com/amishk599/jobfeed/internal/model"
	"github.com/amishk599/jobfeed/internal/summary"
)

// --- Mock implementations ---

type countingRunner struct {
	calls atomic.Int32
	err   error
	block time.Duration
}

func (r *countingRunner) Run(_ context.Context) (collector.RunReport, error) {
	r.calls.Add(1)
	time.Sleep(r.block)
	return collector.RunReport{}, r.err
}

type fixedSummarizer struct {
	sum   model.Summary
	query summary.Query
}

func (f *fixedSummarizer) Summarize(_ context.Context, q summary.Query) model.Summary {
	f.query = q
	return f.sum
}

type recordingNotifier struct {
	got []model.Summary
	err error
}

func (n *recordingNotifier) Notify(s model.Summary) error {
	n.got = append(n.got, s)
	return n.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runFor(t *testing.T, s *Scheduler, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	time.Sleep(d)
	cancel()

	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not return within 2s after cancel")
		return nil
	}
}

// --- Tests ---

func TestRun_CancelReturnsPromptly(t *testing.T) {
	r := &countingRunner{}
	s := NewScheduler([]Job{CollectJob("@every 1h", r)}, discardLogger())

	if err := runFor(t, s, 100*time.Millisecond); err != nil {
		t.Fatalf("expected nil error on cancel, got: %v", err)
	}
}

func TestRun_CollectRunsImmediately(t *testing.T) {
	r := &countingRunner{}
	s := NewScheduler([]Job{CollectJob("@every 1h", r)}, discardLogger())

	_ = runFor(t, s, 150*time.Millisecond)

	if got := r.calls.Load(); got != 1 {
		t.Errorf("runner calls = %d, want 1 (immediate run only)", got)
	}
}

func TestRun_DigestWaitsForSchedule(t *testing.T) {
	n := &recordingNotifier{}
	job := DigestJob("@every 1h", &fixedSummarizer{}, summary.Query{}, n)
	s := NewScheduler([]Job{job}, discardLogger())

	_ = runFor(t, s, 100*time.Millisecond)

	if len(n.got) != 0 {
		t.Errorf("digest sent %d times before its first tick, want 0", len(n.got))
	}
}

func TestRun_TicksOnSchedule(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for real cron ticks")
	}
	r := &countingRunner{}
	s := NewScheduler([]Job{CollectJob("@every 1s", r)}, discardLogger())

	_ = runFor(t, s, 2300*time.Millisecond)

	// immediate run + at least one tick
	if got := r.calls.Load(); got < 2 {
		t.Errorf("runner calls = %d, want >= 2", got)
	}
}

func TestRun_OverlappingRunSkipped(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for real cron ticks")
	}
	// The immediate run outlasts the next tick, so that tick is skipped.
	r := &countingRunner{block: 1500 * time.Millisecond}
	s := NewScheduler([]Job{CollectJob("@every 1s", r)}, discardLogger())

	_ = runFor(t, s, 1200*time.Millisecond)

	if got := r.calls.Load(); got != 1 {
		t.Errorf("runner calls = %d, want 1 (overlap must be skipped)", got)
	}
}

func TestRun_InvalidSpec(t *testing.T) {
	s := NewScheduler([]Job{CollectJob("every now and then", &countingRunner{})}, discardLogger())
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestRun_JobErrorDoesNotStopScheduler(t *testing.T) {
	failing := &countingRunner{err: errors.New("storage unreachable")}
	healthy := &countingRunner{}
	jobs := []Job{CollectJob("@every 1h", failing), CollectJob("@every 1h", healthy)}
	jobs[1].Name = "collect-2"

	if err := runFor(t, NewScheduler(jobs, discardLogger()), 150*time.Millisecond); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if failing.calls.Load() != 1 || healthy.calls.Load() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", failing.calls.Load(), healthy.calls.Load())
	}
}

func TestDigestJob_SendsSummary(t *testing.T) {
	sum := &fixedSummarizer{sum: model.Summary{Total: 3, WindowDays: 1}}
	n := &recordingNotifier{}
	q := summary.Query{Region: "remote", PeriodDays: 1}

	if err := DigestJob("@daily", sum, q, n).Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(n.got) != 1 || n.got[0].Total != 3 {
		t.Errorf("notified = %+v, want one summary with total 3", n.got)
	}
	if sum.query.Region != "remote" {
		t.Errorf("summarizer query region = %q, want remote", sum.query.Region)
	}
}

func TestDigestJob_FailedSummaryNotSent(t *testing.T) {
	n := &recordingNotifier{}
	sum := &fixedSummarizer{sum: model.Summary{Error: "summary generation failed: boom"}}

	if err := DigestJob("@daily", sum, summary.Query{}, n).Run(context.Background()); err == nil {
		t.Fatal("expected error for failed summary")
	}
	if len(n.got) != 0 {
		t.Errorf("notifier called %d times, want 0", len(n.got))
	}
}

func TestDigestJob_NotifyError(t *testing.T) {
	n := &recordingNotifier{err: errors.New("slack down")}
	err := DigestJob("@daily", &fixedSummarizer{}, summary.Query{}, n).Run(context.Background())
	if err == nil {
		t.Fatal("expected notify error to surface")
	}
}
