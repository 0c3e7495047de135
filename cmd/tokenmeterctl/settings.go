package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	settingsuc "github.com/kailas-cloud/tokenmeter/internal/usecase/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage limits, API key and provider overlay",
}

var settingsApplyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Write a settings document to the store",
	Long: `Write the sections present in a YAML settings document to the store.
Absent sections are left untouched. ${VAR} references are expanded.

Example document:

  limits:
    daily: 50000
    monthly: 1000000
  api_key: ${OPENAI_API_KEY}
  config:
    model: gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsApply,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsApplyCmd)
}

func runSettingsApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	applied, err := settingsuc.New(s.settings, s.logger).ApplyFile(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied: %s\n", strings.Join(applied, ", "))
	return nil
}
