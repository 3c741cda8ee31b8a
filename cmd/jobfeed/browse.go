package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfeed/internal/browse"
	"github.com/amishk599/jobfeed/internal/model"
	"github.com/amishk599/jobfeed/internal/summary"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse stored listings interactively (TUI)",
	Long:  "Shows the work modality picker, then launches the split-pane view of the matching summary.",
	RunE:  runBrowseCmd,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowseCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Any log output before the alt-screen starts corrupts the display.
	silentLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := openStore(context.Background(), cfg, silentLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	agg := summary.New(db, silentLogger)
	base := summaryQuery(cfg.Summary)

	for {
		choice, err := browse.RunModalityPicker(browse.Modalities)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return nil
		}
		if choice < 0 {
			return nil
		}
		option := browse.Modalities[choice]

		q := base
		q.Region = browse.RegionFor(option)
		s, err := browse.RunLoader(option+" listings", func(ctx context.Context) model.Summary {
			return agg.Summarize(ctx, q)
		})
		if errors.Is(err, browse.ErrCancelled) {
			return nil
		}
		if err != nil {
			fmt.Printf("Error loading listings: %v\n", err)
			continue
		}

		wantQuit, err := browse.RunBrowseTUI(s)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return nil
		}
		// else: loop → back to picker
	}
}
