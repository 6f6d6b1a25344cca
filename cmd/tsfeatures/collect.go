package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/tsfeatures"
)

var (
	flagCSV    string
	flagSerial bool
	flagForce  bool
)

var collectCmd = &cobra.Command{
	Use:   "collect [dir]",
	Short: "Collect feature reports for every TypeScript file under a directory",
	Long:  "Walks the directory (respecting .gitignore inside git repositories), analyses changed files and caches their reports in the SQLite database. Unchanged files are skipped on later runs.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetDir, err := resolveTargetDir(args)
		if err != nil {
			return err
		}
		return runCollect(cmd.Context(), cmd.OutOrStdout(), targetDir)
	},
}

func init() {
	collectCmd.Flags().StringVar(&flagCSV, "csv", "", "also write a per-file 0/1 feature matrix to this path (- for stdout)")
	collectCmd.Flags().BoolVar(&flagSerial, "serial", false, "analyse files one at a time")
	collectCmd.Flags().BoolVar(&flagForce, "force", false, "delete the database and collect from scratch")
}

func runCollect(ctx context.Context, w io.Writer, targetDir string) error {
	repoRoot := findRepoRoot(targetDir)

	if flagForce {
		dbPath := resolveDBPath(repoRoot)
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
	}

	e, dbPath, err := newEngine(repoRoot, tsfeatures.WithParallel(!flagSerial))
	if err != nil {
		return err
	}
	defer e.Close()

	stats, err := e.CollectDirectory(ctx, targetDir)
	if stats == nil {
		return fmt.Errorf("collecting: %w", err)
	}
	// Per-file failures are reported in the stats; keep going.
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s\n", err)
	}

	if flagCSV != "" {
		if err := writeCSV(e, flagCSV, w); err != nil {
			return err
		}
		if flagCSV == "-" {
			return nil
		}
	}

	return outputResult(w, CLIResult{Command: "collect", Results: CLICollectStats{
		Root:       targetDir,
		Database:   dbPath,
		Discovered: stats.Discovered,
		Unchanged:  stats.Unchanged,
		Cached:     stats.Cached,
		Analyzed:   stats.Analyzed,
		Removed:    stats.Removed,
		Failed:     stats.Failed,
		ElapsedMS:  stats.Elapsed.Milliseconds(),
	}})
}

func writeCSV(e *tsfeatures.Engine, path string, stdout io.Writer) error {
	if path == "-" {
		return e.Query().ExportCSV(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := e.Query().ExportCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
