package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfeed/internal/cache"
	"github.com/amishk599/jobfeed/internal/collector"
	"github.com/amishk599/jobfeed/internal/config"
	"github.com/amishk599/jobfeed/internal/ingest"
	"github.com/amishk599/jobfeed/internal/model"
	"github.com/amishk599/jobfeed/internal/store"
)

var collectDryRun bool

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one collection pass and exit",
	Long:  "One-shot ingestion: queries every enabled provider, stores new listings, exits. With --dry-run nothing is written and the cache lives in memory.",
	RunE:  runCollect,
}

func init() {
	collectCmd.Flags().BoolVar(&collectDryRun, "dry-run", false, "fetch and normalize but do not write listings or cache entries")
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: cfg.Collect.RequestTimeout}
	sources := buildSources(cfg, httpClient, logger)
	if len(sources) == 0 {
		logger.Error("no providers to collect from")
		os.Exit(1)
	}

	var c *collector.Collector
	var dryCache *cache.MemoryStore
	if collectDryRun {
		logger.Info("dry-run mode enabled, nothing will be stored")
		dryCache = cache.NewMemoryStore()
		rc := cache.New(dryCache, cfg.Cache.TTL)
		saver := ingest.NewSaver(store.NewNopStore(), logger)
		c = newCollector(cfg, sources, rc, saver, nil, logger)
	} else {
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

		c = newCollector(cfg, sources, rc, ingest.NewSaver(db, logger), nil, logger)
	}

	report, err := c.Run(ctx)
	if err != nil {
		logger.Error("collection failed", "error", err)
		os.Exit(1)
	}

	logger.Info("collect complete",
		"inserted", report.Ingest.Inserted,
		"skipped", report.Ingest.Skipped,
		"failed", len(report.Ingest.Failed),
	)
	if dryCache != nil {
		logger.Info("dry-run cache discarded", "responses", dryCache.Len())
	}
	return nil
}

func newCollector(cfg *config.Config, sources []collector.Source, rc model.ResponseCache, saver collector.Saver, rec collector.Recorder, logger *slog.Logger) *collector.Collector {
	return collector.New(sources, rc, saver, collector.Options{
		MaxPages:    cfg.Collect.MaxPages,
		MaxRequests: cfg.Collect.MaxRequests,
		Recorder:    rec,
	}, logger)
}
