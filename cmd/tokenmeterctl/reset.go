package main

import (
	"fmt"

	"github.com/spf13/cobra"

	resetuc "github.com/kailas-cloud/tokenmeter/internal/usecase/reset"
)

var resetCmd = &cobra.Command{
	Use:   "reset <daily|monthly>",
	Short: "Run a usage reset now",
	Long: `Run one of the calendar resets immediately.

  daily    zeroes the daily counter of every caller, keeping monthly totals
  monthly  removes every caller's usage record

Both are idempotent. The server's scheduler runs the same jobs.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(resetuc.JobDaily), string(resetuc.JobMonthly)},
	RunE:      runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := resetuc.New(s.usage, s.logger).Run(ctx, resetuc.Job(args[0]))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s reset done: %d callers (run %s, %s)\n",
		run.Job, run.Callers, run.ID, run.Duration)
	return nil
}
