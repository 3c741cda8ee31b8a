// Package scheduler runs collection and digest jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/amishk599/jobfeed/internal/collector"
	"github.com/amishk599/jobfeed/internal/model"
	"github.com/amishk599/jobfeed/internal/summary"
)

// Job is one scheduled unit of work.
type Job struct {
	Name       string
	Spec       string // cron spec, e.g. "@every 24h" or "0 9 * * *"
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// Scheduler owns the cron loop. Overlapping runs of the same job are skipped.
type Scheduler struct {
	jobs   []Job
	logger *slog.Logger
}

// NewScheduler creates a scheduler for the given jobs.
func NewScheduler(jobs []Job, logger *slog.Logger) *Scheduler {
	return &Scheduler{jobs: jobs, logger: logger}
}

// Run registers every job, fires the RunOnStart ones immediately, and blocks
// until ctx is cancelled. It returns nil on graceful shutdown, once running
// jobs have finished.
func (s *Scheduler) Run(ctx context.Context) error {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn))
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	var immediate []cron.EntryID
	for _, j := range s.jobs {
		id, err := c.AddJob(j.Spec, s.wrap(ctx, j))
		if err != nil {
			return fmt.Errorf("schedule %s (%q): %w", j.Name, j.Spec, err)
		}
		if j.RunOnStart {
			immediate = append(immediate, id)
		}
		s.logger.Info("job scheduled", "job", j.Name, "spec", j.Spec)
	}

	c.Start()
	s.logger.Info("starting scheduler", "jobs", len(s.jobs))

	// Run through the wrapped job so the skip-if-running chain applies.
	var wg sync.WaitGroup
	for _, id := range immediate {
		job := c.Entry(id).WrappedJob
		wg.Add(1)
		go func() {
			defer wg.Done()
			job.Run()
		}()
	}

	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	wg.Wait()
	return nil
}

func (s *Scheduler) wrap(ctx context.Context, j Job) cron.Job {
	return cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		if err := j.Run(ctx); err != nil {
			s.logger.Error("job failed", "job", j.Name, "error", err)
			return
		}
		s.logger.Debug("job finished", "job", j.Name, "duration", time.Since(start).String())
	})
}

// Runner is the collection side of a scheduled run.
type Runner interface {
	Run(ctx context.Context) (collector.RunReport, error)
}

// Summarizer produces the digest content.
type Summarizer interface {
	Summarize(ctx context.Context, q summary.Query) model.Summary
}

// CollectJob wraps one collection run as a Job.
func CollectJob(spec string, r Runner) Job {
	return Job{
		Name:       "collect",
		Spec:       spec,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			_, err := r.Run(ctx)
			return err
		},
	}
}

// DigestJob summarizes stored listings and hands the result to n. A failed
// summary is reported as an error and nothing is sent.
func DigestJob(spec string, s Summarizer, q summary.Query, n model.Notifier) Job {
	return Job{
		Name: "digest",
		Spec: spec,
		Run: func(ctx context.Context) error {
			sum := s.Summarize(ctx, q)
			if sum.Error != "" {
				return fmt.Errorf("digest: %s", sum.Error)
			}
			if err := n.Notify(sum); err != nil {
				return fmt.Errorf("digest notify: %w", err)
			}
			return nil
		},
	}
}
