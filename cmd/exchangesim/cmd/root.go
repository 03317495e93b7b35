// Package cmd implements the exchangesim command-line tool, a host
// application that drives an exchange.Exchange from a recorded tick
// feed and journals the resulting trades and account snapshots.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "exchangesim",
	Short: "A simulated A-share exchange core for backtesting",
	Long: `exchangesim replays a recorded tick feed through a single-account
exchange core: order matching, T+1 settlement, daily price limits and
the A-share fee schedule, with results journaled to CSV or SQLite.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {}
