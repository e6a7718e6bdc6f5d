// Package cmd wires the harvesting engine into a cobra CLI.
package cmd

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var rootFlags struct {
	out       string
	seenFile  string
	workers   int
	top       int
	timeout   int
	details   bool
	skipKnown bool
	verbose   bool
}

var rootCmd = &cobra.Command{
	Use:   "hubcrawl",
	Short: "Harvest structured records from model hub and papers listings",
	Long: `hubcrawl fetches listing pages from a model hub or a papers index,
extracts structured records from their markup, optionally enriches each
record from its detail page, and writes the batch as a timestamped JSON
file.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if rootFlags.verbose {
			log.SetLevel(log.DebugLevel)
		}
		log.SetReportTimestamp(true)
		log.SetTimeFormat(time.Kitchen)
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.out, "out", "o", "outputs", "root directory for saved batches")
	pf.StringVar(&rootFlags.seenFile, "seen-file", "", "path to the seen-identifier tracker (empty disables skip tracking)")
	pf.IntVarP(&rootFlags.workers, "workers", "w", 4, "maximum concurrent detail fetches")
	pf.IntVarP(&rootFlags.top, "top", "n", 10, "maximum records to harvest from the listing")
	pf.IntVar(&rootFlags.timeout, "timeout", 60, "per-request timeout in seconds")
	pf.BoolVarP(&rootFlags.details, "details", "d", false, "fetch each record's detail page")
	pf.BoolVar(&rootFlags.skipKnown, "skip-known", false, "skip detail fetches for identifiers seen in earlier runs")
	pf.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(modelsCmd, papersCmd, tasksCmd, batchesCmd)
}
