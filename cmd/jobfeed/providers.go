package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List all configured providers",
	Long:  "Reads the config and prints a table of all configured providers and whether they can run.",
	RunE:  runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-10s %-8s %-8s %-8s %s\n", "Provider", "Queries", "Regions", "Delay", "Status")
	fmt.Println(strings.Repeat("─", 60))

	ready := 0
	for _, p := range cfg.Providers {
		status := "ready"
		switch missing := p.MissingCredentials(); {
		case !p.Enabled:
			status = "disabled"
		case len(missing) > 0:
			status = "missing " + strings.Join(missing, ", ")
		default:
			ready++
		}
		fmt.Printf("%-10s %-8d %-8d %-8s %s\n", p.Name, len(p.Queries), len(p.Regions), cfg.Collect.SleepFor(p.Name), status)
	}

	fmt.Printf("\nTotal: %d providers (%d ready)\n", len(cfg.Providers), ready)
	return nil
}
