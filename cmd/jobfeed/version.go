package main

import (
	"fmt"
	rtdebug "runtime/debug"

	"github.com/spf13/cobra"
)

// version is overridden at link time with -ldflags "-X main.version=...".
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build info",
	Run: func(cmd *cobra.Command, args []string) {
		info, _ := rtdebug.ReadBuildInfo()
		fmt.Fprintln(cmd.OutOrStdout(), versionString(version, info))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// versionString renders the release, the module it was built from and the
// VCS revision when the toolchain recorded one.
func versionString(v string, info *rtdebug.BuildInfo) string {
	if info == nil {
		return "jobfeed " + v
	}
	if v == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		v = info.Main.Version
	}
	out := fmt.Sprintf("jobfeed %s (%s, %s)", v, info.Main.Path, info.GoVersion)

	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev != "" {
		if len(rev) > 12 {
			rev = rev[:12]
		}
		if dirty {
			rev += "-dirty"
		}
		out += " rev " + rev
	}
	return out
}
