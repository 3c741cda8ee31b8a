package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Rewrite stored tags that were saved corrupted",
	Long:  "Re-parses the tags of every stored listing and rewrites rows whose tags are not a clean list, e.g. a tag string split into single characters.",
	RunE:  runRepair,
}

func init() {
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	report, err := db.RepairTags(ctx, logger)
	if err != nil {
		logger.Error("tag repair failed", "error", err)
		os.Exit(1)
	}
	logger.Info("tag repair complete", "scanned", report.Scanned, "repaired", report.Repaired)
	return nil
}
