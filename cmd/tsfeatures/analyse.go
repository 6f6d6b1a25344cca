package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jward/tsfeatures"
	"github.com/jward/tsfeatures/internal/script"
	"github.com/jward/tsfeatures/scripts"
)

var (
	flagScript     string
	flagScriptsDir string
)

var analyseCmd = &cobra.Command{
	Use:     "analyse",
	Aliases: []string{"analyze"},
	Short:   "Run a Risor analysis script over the collected reports",
	Long:    "Runs the bundled adoption summary, or a script given with --script. Scripts see files, catalog and version globals and publish results with emit(key, value).",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()
		return runAnalyse(cmd.Context(), cmd.OutOrStdout(), e, flagScript, flagScriptsDir)
	},
}

func init() {
	analyseCmd.Flags().StringVar(&flagScript, "script", "", "script to run (default: the bundled "+scripts.Summary+")")
	analyseCmd.Flags().StringVar(&flagScriptsDir, "scripts-dir", "", "directory for --script and its imports (default: working directory)")
}

func runAnalyse(ctx context.Context, w io.Writer, e *tsfeatures.Engine, scriptPath, scriptsDir string) error {
	opts := []script.RuntimeOption{
		script.WithCatalog(e.Analyzer().Catalog()),
		script.WithVersion(tsfeatures.SchemaVersion),
		script.WithLogger(slog.Default()),
	}
	name := scriptPath
	if name == "" {
		name = scripts.Summary
		opts = append(opts, script.WithRuntimeFS(scripts.FS))
	}

	rt := script.NewRuntime(e.Store(), scriptsDir, opts...)
	res, err := rt.RunScript(ctx, name, nil)
	if err != nil {
		return fmt.Errorf("running %s: %w", name, err)
	}
	return outputResult(w, CLIResult{Command: "analyse", Results: CLIScriptResult{
		Script: name,
		Keys:   res.Keys,
		Values: res.Values,
	}})
}
