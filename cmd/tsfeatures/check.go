package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/tsfeatures"
	"github.com/jward/tsfeatures/internal/bridge"
)

var flagRemote string

var checkCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Report the features used by individual files",
	Long:  "Analyses each file locally, or through a running tsfeatures service when --remote is given.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var b *bridge.Bridge
		if flagRemote != "" {
			b = bridge.New(flagRemote,
				bridge.WithAttempts(cfg.Bridge.Attempts),
				bridge.WithBackoff(cfg.Bridge.Backoff),
				bridge.WithLogger(slog.Default()),
			)
		}
		reports, err := checkFiles(cmd.Context(), args, b)
		if err != nil {
			return err
		}
		return outputResult(cmd.OutOrStdout(), CLIResult{Command: "check", Results: reports})
	},
}

func init() {
	checkCmd.Flags().StringVar(&flagRemote, "remote", "", "address of a tsfeatures service (host:port or URL)")
}

// checkFiles analyses paths with the local analyzer, or through b when it
// is non-nil.
func checkFiles(ctx context.Context, paths []string, b *bridge.Bridge) ([]CLIFileReport, error) {
	analyzer := tsfeatures.NewAnalyzer()

	out := make([]CLIFileReport, 0, len(paths))
	for _, p := range paths {
		src, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		req := tsfeatures.Request{Filename: p, FileContents: string(src)}

		var rep tsfeatures.Report
		if b != nil {
			rep, err = b.Call(ctx, req)
		} else {
			rep, err = analyzer.Analyze(ctx, req)
		}
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", p, err)
		}
		out = append(out, CLIFileReport{
			Path:        p,
			Version:     rep.Version,
			ProcessTime: rep.ProcessTime,
			HasErrors:   rep.HasErrors,
			Features:    rep.Features.Names(),
		})
	}
	return out, nil
}
