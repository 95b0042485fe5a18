package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "medscrub",
	Short: "Medscrub - clinical imaging PHI anonymization pipeline",
	Long: `Medscrub anonymizes directories of clinical imaging records and produces
a verifiable, encrypted audit trail of what was removed.

Every record is rewritten under a fixed field policy, committed with a
crash-safe write protocol verified by two independent decoders, and
re-validated after the fact. Records that cannot be processed are copied
unmodified to quarantine; the batch always seals an audit record, even
when it fails.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
