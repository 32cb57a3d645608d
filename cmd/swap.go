package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"crosswap/pkg/swap"
)

var (
	swapProvider  string
	feeGwei       float64
	claimFeeGwei  float64
	fromAccountID string
	toAccountID   string
	noConfirm     bool
	follow        bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <from-asset> <to-asset>",
	Short: "Create a swap order and optionally follow it to completion",
	Long: `Quote a swap, confirm it, and commit it to the best provider (or the
one named with --provider). The resulting order is persisted; with --follow
the scheduler drives it to a terminal status before exiting, otherwise run
'crosswap resume' later.

Examples:
  crosswap swap 1 ETH AETH --fee-gwei 20
  crosswap swap 0.5 ETH ARBDAI --provider boost --fee-gwei 20 --claim-fee-gwei 1 --follow
  crosswap swap 100 USDC USDC.e --yes`,
	Args: cobra.ExactArgs(3),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&swapProvider, "provider", "", "Force a specific provider (default: best quote)")
	swapCmd.Flags().Float64Var(&feeGwei, "fee-gwei", 0, "Gas price tier for the source-chain leg (gwei)")
	swapCmd.Flags().Float64Var(&claimFeeGwei, "claim-fee-gwei", 0, "Gas price tier for the destination-chain leg (gwei)")
	swapCmd.Flags().StringVar(&fromAccountID, "from-account", "primary", "Source account id")
	swapCmd.Flags().StringVar(&toAccountID, "to-account", "primary", "Destination account id")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
	swapCmd.Flags().BoolVar(&follow, "follow", false, "Keep running until the order is terminal")
}

func runSwap(cmd *cobra.Command, args []string) {
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

	ctx := context.Background()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Fetching quotes..."
	s.Start()
	quotes := a.registry.GetQuotes(ctx, swap.QuoteRequest{
		Network: a.network,
		From:    args[1],
		To:      args[2],
		Amount:  amount,
	})
	s.Stop()

	quote, err := selectQuote(quotes, swapProvider)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	quote.FromAccountID = fromAccountID
	quote.ToAccountID = toAccountID
	quote.Fee = decimal.NewFromFloat(feeGwei)
	quote.ClaimFee = decimal.NewFromFloat(claimFeeGwei)

	fmt.Printf("\nSwap details:\n")
	fmt.Printf("  Provider:  %s\n", color.CyanString(quote.Provider))
	fmt.Printf("  From:      %s %s\n", prettyUnits(a, quote.From, quote.FromAmount), color.YellowString(quote.From))
	fmt.Printf("  To:        ~%s %s\n", prettyUnits(a, quote.To, quote.ToAmount), color.YellowString(quote.To))
	if quote.BridgeAsset != "" {
		fmt.Printf("  Via:       %s %s\n", prettyUnits(a, quote.BridgeAsset, quote.BridgeAssetAmount), quote.BridgeAsset)
	}

	if !noConfirm && !confirm("Proceed with this swap?") {
		color.Yellow("\nSwap cancelled\n\n")
		return
	}

	provider, err := a.registry.Provider(a.network, quote.Provider)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s.Suffix = " Creating swap..."
	s.Start()
	order, err := provider.NewSwap(ctx, a.store, swap.SwapRequest{
		Network:  a.network,
		WalletID: a.cfg.WalletID,
		Quote:    *quote,
	})
	if err == nil {
		err = a.store.CreateOrder(order)
	}
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	color.Green("\nOrder created: %s (status %s)\n", order.ID, order.Status)

	if !follow {
		color.Cyan("\nTrack it with:\n  crosswap status %s\n  crosswap resume\n\n", order.ID)
		return
	}

	s.Suffix = " Waiting for swap to complete..."
	s.Start()
	a.engine.Track(ctx, *order)
	a.engine.Wait()
	s.Stop()

	final, err := a.store.Order(order.ID)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	printTimeline(a, final)
}

// selectQuote picks the forced provider's quote or the best one.
func selectQuote(quotes []swap.Quote, forced string) (*swap.Quote, error) {
	if len(quotes) == 0 {
		return nil, fmt.Errorf("no provider can route this swap")
	}
	if forced == "" {
		return &quotes[0], nil
	}
	for i := range quotes {
		if quotes[i].Provider == forced {
			return &quotes[i], nil
		}
	}
	return nil, fmt.Errorf("provider %q returned no quote for this swap", forced)
}

func confirm(prompt string) bool {
	fmt.Printf("\n%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
