package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfeed/internal/browse"
	"github.com/amishk599/jobfeed/internal/summary"
)

var (
	summaryRegion string
	summaryTags   []string
	summaryDays   int
	summaryLimit  int
	summaryJSON   bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize recently stored listings",
	Long:  "Aggregates listings from the last --days days (widening to 7 when empty): top companies, top tags and work modalities.",
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&summaryRegion, "region", "", "work modality substring, e.g. remote (default from config)")
	summaryCmd.Flags().StringSliceVar(&summaryTags, "tag", nil, "tag filter, repeatable; a listing matches if any of its tags contains any filter")
	summaryCmd.Flags().IntVar(&summaryDays, "days", 0, "window in days (default from config)")
	summaryCmd.Flags().IntVar(&summaryLimit, "limit", 0, "maximum listings (default from config)")
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "print the summary as JSON")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Keep stdout clean for --json.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if debug {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	ctx := context.Background()
	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	q := summaryQuery(cfg.Summary)
	if cmd.Flags().Changed("region") {
		q.Region = summaryRegion
	}
	if cmd.Flags().Changed("tag") {
		q.Tags = summaryTags
	}
	if summaryDays > 0 {
		q.PeriodDays = summaryDays
	}
	if summaryLimit > 0 {
		q.Limit = summaryLimit
	}

	s := summary.New(db, logger).Summarize(ctx, q)

	if summaryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
	} else {
		fmt.Print(browse.RenderSummary(s))
		for _, l := range s.Listings {
			fmt.Printf("  %s  %-40.40s %-25.25s %s\n", l.CreatedAt.Format("2006-01-02"), l.Title, l.Company, l.URL)
		}
	}

	if s.Error != "" {
		os.Exit(1)
	}
	return nil
}
