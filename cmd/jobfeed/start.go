package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfeed/internal/config"
	"github.com/amishk599/jobfeed/internal/ingest"
	"github.com/amishk599/jobfeed/internal/metrics"
	"github.com/amishk599/jobfeed/internal/scheduler"
	"github.com/amishk599/jobfeed/internal/summary"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the collection daemon",
	Long:  "Start the scheduler daemon: collects immediately and then on the collect schedule, sends digests on the digest schedule; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"database", cfg.Database.Driver(),
		"providers", len(cfg.Providers),
		"cache_ttl", cfg.Cache.TTL.String(),
		"max_pages", cfg.Collect.MaxPages,
		"max_requests", cfg.Collect.MaxRequests,
		"collect_schedule", cfg.Schedule.Collect,
		"digest_schedule", cfg.Schedule.Digest,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rc, closeCache, err := openCache(ctx, cfg, db, logger)
	if err != nil {
		logger.Error("failed to open cache", "error", err)
		os.Exit(1)
	}
	defer closeCache()

	httpClient := &http.Client{Timeout: cfg.Collect.RequestTimeout}
	sources := buildSources(cfg, httpClient, logger)
	if len(sources) == 0 {
		logger.Error("no providers to collect from")
		os.Exit(1)
	}

	m := metrics.New()
	c := newCollector(cfg, sources, rc, ingest.NewSaver(db, logger), m, logger)

	jobs := []scheduler.Job{scheduler.CollectJob(cfg.Schedule.Collect, c)}
	if cfg.Schedule.Digest != "" {
		n := setupNotifier(cfg, httpClient, logger)
		jobs = append(jobs, scheduler.DigestJob(cfg.Schedule.Digest, summary.New(db, logger), summaryQuery(cfg.Summary), n))
	}

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, m.Handler(), logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	sched := scheduler.NewScheduler(jobs, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}

func serveMetrics(addr string, h http.Handler, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

func summaryQuery(s config.SummaryConfig) summary.Query {
	return summary.Query{
		Region:     s.Region,
		Tags:       s.Tags,
		PeriodDays: s.PeriodDays,
		Limit:      s.Limit,
	}
}
