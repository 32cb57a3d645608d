package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Drive all pending orders until they reach a terminal status",
	Long: `Pick up every persisted non-terminal order and run the scheduler until
all of them complete, fail, or the process is interrupted. Interrupting is
safe: orders resume from their persisted status on the next run.`,
	Args: cobra.NoArgs,
	Run:  runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) {
	a, err := newApp()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	count := a.engine.Resume(ctx, a.network)
	if count == 0 {
		color.Yellow("\nNo pending orders\n\n")
		return
	}

	fmt.Printf("\nResuming %d pending order(s), Ctrl-C to stop...\n\n", count)
	a.engine.Wait()

	for _, order := range a.store.Orders() {
		if order.Network != a.network {
			continue
		}
		printTimeline(a, order)
	}
}
