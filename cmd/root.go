package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "crosswap",
	Short: "A CLI for cross-chain swaps across bridge, AMM and intent routes",
	Long: `crosswap routes token swaps through the best available provider: a
cross-chain token bridge, an on-chain AMM, a bridge+AMM combination, or the
NEAR Intents engine. Orders are persisted locally and driven to completion
by a resumable scheduler.

Examples:
  crosswap quote 1 ETH AETH
  crosswap swap 0.5 ETH ARBDAI --provider boost --follow
  crosswap status <order-id>
  crosswap pairs
  crosswap resume`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}
