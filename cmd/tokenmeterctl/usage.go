package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	usageuc "github.com/kailas-cloud/tokenmeter/internal/usecase/usage"
)

var usageFlags struct {
	format string
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Inspect per-caller usage",
}

var usageGetCmd = &cobra.Command{
	Use:   "get <caller-id>",
	Short: "Show a caller's counters, reset countdowns and limits",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsageGet,
}

var usageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the counters of every caller with a record",
	Args:  cobra.NoArgs,
	RunE:  runUsageList,
}

func init() {
	rootCmd.AddCommand(usageCmd)
	usageCmd.AddCommand(usageGetCmd, usageListCmd)
	usageCmd.PersistentFlags().StringVar(&usageFlags.format, "format", "text", "output format: text, json")
}

type usageOutput struct {
	Caller         string `json:"caller"`
	Daily          int64  `json:"daily"`
	Monthly        int64  `json:"monthly"`
	ResetDailyMs   int64  `json:"resetDaily,omitempty"`
	ResetMonthlyMs int64  `json:"resetMonthly,omitempty"`
	LimitDaily     *int64 `json:"limitDaily,omitempty"`
	LimitMonthly   *int64 `json:"limitMonthly,omitempty"`
}

func runUsageGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	rep, err := usageuc.New(s.settings, s.usage).Report(ctx, args[0])
	if err != nil {
		return err
	}
	rec := rep.Snapshot.Record()
	out := usageOutput{
		Caller:         args[0],
		Daily:          rec.Daily(),
		Monthly:        rec.Monthly(),
		ResetDailyMs:   rep.Snapshot.ResetDaily().Milliseconds(),
		ResetMonthlyMs: rep.Snapshot.ResetMonthly().Milliseconds(),
		LimitDaily:     rep.Limits.Daily,
		LimitMonthly:   rep.Limits.Monthly,
	}

	if usageFlags.format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "caller:   %s\n", out.Caller)
	fmt.Fprintf(w, "daily:    %d%s (resets in %s)\n", out.Daily, limitSuffix(out.LimitDaily), rep.Snapshot.ResetDaily())
	fmt.Fprintf(w, "monthly:  %d%s (resets in %s)\n", out.Monthly, limitSuffix(out.LimitMonthly), rep.Snapshot.ResetMonthly())
	return nil
}

func runUsageList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	all, err := usageuc.New(s.settings, s.usage).List(ctx)
	if err != nil {
		return err
	}

	callers := make([]string, 0, len(all))
	for id := range all {
		callers = append(callers, id)
	}
	sort.Strings(callers)

	if usageFlags.format == "json" {
		out := make([]usageOutput, 0, len(callers))
		for _, id := range callers {
			out = append(out, usageOutput{Caller: id, Daily: all[id].Daily(), Monthly: all[id].Monthly()})
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CALLER\tDAILY\tMONTHLY")
	for _, id := range callers {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", id, all[id].Daily(), all[id].Monthly())
	}
	return tw.Flush()
}

func limitSuffix(limit *int64) string {
	if limit == nil || *limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" / %d", *limit)
}
