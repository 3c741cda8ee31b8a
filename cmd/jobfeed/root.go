package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobfeed/internal/adapter"
	"github.com/amishk599/jobfeed/internal/cache"
	"github.com/amishk599/jobfeed/internal/collector"
	"github.com/amishk599/jobfeed/internal/config"
	"github.com/amishk599/jobfeed/internal/model"
	"github.com/amishk599/jobfeed/internal/notifier"
	"github.com/amishk599/jobfeed/internal/ratelimit"
	"github.com/amishk599/jobfeed/internal/retry"
	"github.com/amishk599/jobfeed/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobfeed",
	Short: "Job listing aggregator",
	Long:  "jobfeed collects postings from job-board APIs into one deduplicated feed and summarizes it.",
	// Default to `start` so that `jobfeed` with no args runs the daemon.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBFEED_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig reads .env, resolves the config path and parses it, then
// applies environment overrides.
// Priority: explicit path arg > JOBFEED_CONFIG env var > "./config.yaml" > built-in defaults
func loadConfig(path string) (*config.Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg, err := config.Load(config.DefaultPath(path, os.Getenv))
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// appStore is what the commands need from listing storage.
type appStore interface {
	model.ListingStore
	model.ListingReader
	RepairTags(ctx context.Context, logger *slog.Logger) (store.RepairReport, error)
	Close() error
}

// databaseStore is a store that can also hold the response cache.
type databaseStore interface {
	appStore
	cache.EntryStore
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (databaseStore, error) {
	if cfg.Database.Driver() == "postgres" {
		logger.Debug("opening postgres store")
		pg, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	logger.Debug("opening sqlite store", "path", cfg.Database.Path)
	lite, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	return lite, nil
}

// openCache picks the cache backend: Redis when configured, else the
// database the listings live in. The returned func releases it.
func openCache(ctx context.Context, cfg *config.Config, db cache.EntryStore, logger *slog.Logger) (*cache.Cache, func(), error) {
	if cfg.Cache.RedisURL == "" {
		return cache.New(db, cfg.Cache.TTL), func() {}, nil
	}
	rs, err := cache.NewRedisEntryStore(ctx, cfg.Cache.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using redis response cache")
	return cache.New(rs, cfg.Cache.TTL), func() { rs.Close() }, nil
}

func createConnector(p config.ProviderConfig, httpClient *http.Client, logger *slog.Logger) (model.Connector, bool) {
	if missing := p.MissingCredentials(); len(missing) > 0 {
		logger.Warn("provider credentials missing, skipping", "provider", p.Name, "missing", missing)
		return nil, false
	}
	switch p.Name {
	case "adzuna":
		return adapter.NewAdzunaAdapter(adapter.AdzunaConfig{
			AppID:          p.AppID,
			AppKey:         p.AppKey,
			ResultsPerPage: p.ResultsPerPage,
			SalaryMin:      p.SalaryMin,
			Where:          p.Where,
		}, httpClient), true
	case "remoteok":
		return adapter.NewRemoteOKAdapter(httpClient), true
	case "jsearch":
		return adapter.NewJSearchAdapter(adapter.JSearchConfig{
			APIKey:     p.APIKey,
			DatePosted: p.DatePosted,
			Location:   p.Location,
		}, httpClient), true
	default:
		logger.Warn("unsupported provider, skipping", "provider", p.Name)
		return nil, false
	}
}

// pageCapper is implemented by connectors whose feed has a fixed page count.
type pageCapper interface {
	MaxPages() int
}

func buildSources(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) []collector.Source {
	limiter := ratelimit.NewLimiter(cfg.Collect.Sleep, cfg.Collect.SleepOverrides)

	var sources []collector.Source
	for _, p := range cfg.Providers {
		if !p.Enabled {
			continue
		}
		conn, ok := createConnector(p, httpClient, logger)
		if !ok {
			continue
		}

		maxPages := p.MaxPages
		if pc, ok := conn.(pageCapper); ok && (maxPages == 0 || pc.MaxPages() < maxPages) {
			maxPages = pc.MaxPages()
		}

		// Rate limit innermost so every retry attempt waits too.
		conn = ratelimit.Wrap(conn, limiter)
		if cfg.Collect.MaxRetries > 0 {
			conn = retry.Wrap(conn, cfg.Collect.MaxRetries, cfg.Collect.RetryBaseDelay, logger)
		}

		queries := p.Queries
		if len(queries) == 0 {
			queries = []string{""}
		}
		sources = append(sources, collector.Source{
			Connector: conn,
			Queries:   queries,
			Regions:   p.Regions,
			MaxPages:  maxPages,
		})
		logger.Info("registered provider",
			"provider", p.Name,
			"queries", len(queries),
			"regions", len(p.Regions),
			"delay", limiter.DelayFor(p.Name).String(),
		)
	}
	return sources
}
