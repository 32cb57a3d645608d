package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"crosswap/pkg/swap"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <from-asset> <to-asset>",
	Short: "Fetch quotes from every provider, best route first",
	Long: `Fetch quotes for a swap from all registered providers and list them
by output amount, best route first.

Examples:
  crosswap quote 1 ETH AETH
  crosswap quote 250 USDC USDC.e`,
	Args: cobra.ExactArgs(3),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) {
	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		printError(fmt.Errorf("invalid amount %q: %w", args[0], err))
		os.Exit(1)
	}

	a, err := newApp()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Fetching quotes..."
	s.Start()

	quotes := a.registry.GetQuotes(context.Background(), swap.QuoteRequest{
		Network: a.network,
		From:    args[1],
		To:      args[2],
		Amount:  amount,
	})
	s.Stop()

	if len(quotes) == 0 {
		color.Yellow("\nNo provider can route %s %s to %s\n\n", amount, args[1], args[2])
		return
	}

	fmt.Printf("\nQuotes for %s %s -> %s:\n\n", amount, args[1], args[2])
	for i, q := range quotes {
		marker := "  "
		if i == 0 {
			marker = color.GreenString("* ")
		}
		fmt.Printf("%s%-10s %s %s\n", marker, q.Provider, prettyUnits(a, q.To, q.ToAmount), q.To)
	}
	fmt.Println()
}
