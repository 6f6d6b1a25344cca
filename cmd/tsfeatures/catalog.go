package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/tsfeatures"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the detectable features and the TypeScript release that introduced each",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		names := tsfeatures.NewAnalyzer().Catalog()
		return outputResult(cmd.OutOrStdout(), CLIResult{Command: "catalog", Results: catalogEntries(names)})
	},
}
