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

var (
	flagAPIAddr string
	flagOfficer string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "deaddrop",
	Short: "Dead Drop - campus rumor triage engine",
	Long: `Dead Drop ingests anonymous campus tips, clusters them into cases on
a live evidence graph, runs forensic and fact-checking analysis through
a blackboard of knowledge sources, and hands officers a verified story
they can turn into a public safety alert.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Dead Drop version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVar(&flagAPIAddr, "api-addr", "localhost:8000", "Address of the Dead Drop API")
	rootCmd.PersistentFlags().StringVar(&flagOfficer, "officer", "", "Officer ID for audit attribution")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(casesCmd)
	rootCmd.AddCommand(alertCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Dead Drop version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
	},
}
