package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the exchangesim CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("exchangesim version %s\n", version)
		fmt.Println("A simulated A-share exchange core for quantitative backtesting")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
