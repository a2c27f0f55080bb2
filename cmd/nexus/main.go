package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nexus",
	Short: "Nexus - DC1 site orchestration agent",
	Long: `Nexus is the DC1 site agent. It checkpoints tenant GPU jobs to two
independent media, watches every GPU the site rents out, and moves jobs
to backup hardware when a primary dies. Interruptions that survive
reconnection and failover are escalated to a human.

It also aggregates fleet heartbeats, watches the ISP path from the
provider host, and serves the site's control API for Mission Control.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Nexus version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(drillCmd)
}

// defaultConfigPath prefers the NEXUS_CONFIG environment variable so
// systemd units can relocate the config without editing flags
func defaultConfigPath() string {
	if p := os.Getenv("NEXUS_CONFIG"); p != "" {
		return p
	}
	return "/etc/nexus/config.yaml"
}
