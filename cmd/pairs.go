package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"crosswap/pkg/market"
)

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "Aggregate and list the pairs every provider can serve",
	Long: `Query all registered providers for their supported pairs, persist the
merged market data and print it. Providers that fail are skipped.`,
	Args: cobra.NoArgs,
	Run:  runPairs,
}

func init() {
	rootCmd.AddCommand(pairsCmd)
}

func runPairs(cmd *cobra.Command, args []string) {
	a, err := newApp()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Aggregating market data..."
	s.Start()
	pairs, err := market.NewAggregator(a.registry, a.store, a.log).Update(context.Background(), a.network)
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if len(pairs) == 0 {
		color.Yellow("\nNo pairs available\n\n")
		return
	}

	fmt.Printf("\n%-10s %-10s %-10s %s\n", "FROM", "TO", "PROVIDER", "RATE")
	for _, p := range pairs {
		rate := ""
		if p.Rate.IsPositive() {
			rate = p.Rate.String()
		}
		fmt.Printf("%-10s %-10s %-10s %s\n", p.From, p.To, color.CyanString("%-10s", p.Provider), rate)
	}
	fmt.Println()
}
