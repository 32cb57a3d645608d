package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"crosswap/pkg/swap"
)

var statusCmd = &cobra.Command{
	Use:   "status <order-id>",
	Short: "Show an order's progress through its provider's timeline",
	Long: `Render the order's current position in its provider's status table,
with the transaction hashes recorded so far.

Examples:
  crosswap status 7a1f3c8e-...
`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	a, err := newApp()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.close()

	order, err := a.store.Order(args[0])
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	printTimeline(a, order)
}

func printTimeline(a *app, order *swap.Order) {
	provider, err := a.registry.Provider(order.Network, order.Provider)
	if err != nil {
		printError(err)
		return
	}
	info := provider.Info()
	current, ok := info.Statuses[order.Status]
	if !ok {
		printError(fmt.Errorf("order %s has unknown status %q", order.ID, order.Status))
		return
	}

	fmt.Printf("\nOrder %s\n", color.CyanString(order.ID))
	fmt.Printf("  Provider:  %s\n", order.Provider)
	fmt.Printf("  Swap:      %s %s -> %s %s\n",
		prettyUnits(a, order.From, order.FromAmount), order.From,
		prettyUnits(a, order.To, order.ToAmount), order.To)
	fmt.Printf("  Status:    %s (step %d of %d)\n",
		coloredStatus(order.Status, current.Category), current.Step+1, info.TotalSteps)
	fmt.Printf("  Started:   %s\n", order.StartTime.Format("2006-01-02 15:04:05"))
	if !order.EndTime.IsZero() {
		fmt.Printf("  Ended:     %s\n", order.EndTime.Format("2006-01-02 15:04:05"))
	}

	fmt.Printf("\n  Timeline:\n")
	for _, line := range timelineLines(info, order.Status) {
		fmt.Printf("    %s\n", line)
	}

	if order.ApproveTxHash != "" {
		fmt.Printf("\n  Approve tx:  %s\n", order.ApproveTxHash)
	}
	if order.FromFundHash != "" {
		fmt.Printf("  Send tx:     %s\n", order.FromFundHash)
	}
	if order.ReceiveTxHash != "" {
		fmt.Printf("  Receive tx:  %s\n", order.ReceiveTxHash)
	}
	if order.ToFundHash != "" {
		fmt.Printf("  Swap tx:     %s\n", order.ToFundHash)
	}
	if order.DepositAddress != "" {
		fmt.Printf("  Deposit to:  %s\n", order.DepositAddress)
	}
	fmt.Println()
}

// timelineLines renders the status table sorted by step, marking the
// current status.
func timelineLines(info swap.Info, currentStatus string) []string {
	names := make([]string, 0, len(info.Statuses))
	for name := range info.Statuses {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := info.Statuses[names[i]], info.Statuses[names[j]]
		if a.Step != b.Step {
			return a.Step < b.Step
		}
		return names[i] < names[j]
	})

	currentStep := info.Statuses[currentStatus].Step
	lines := make([]string, 0, len(names))
	for _, name := range names {
		st := info.Statuses[name]
		switch {
		case name == currentStatus:
			lines = append(lines, color.CyanString("> %s", name))
		case st.Step < currentStep:
			lines = append(lines, color.GreenString("  %s", name))
		default:
			lines = append(lines, fmt.Sprintf("  %s", name))
		}
	}
	return lines
}

func coloredStatus(status string, category swap.StatusCategory) string {
	switch category {
	case swap.CategoryCompleted:
		return color.GreenString(status)
	case swap.CategoryRefunded:
		return color.RedString(status)
	default:
		return color.YellowString(status)
	}
}
