package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/tsfeatures"
	"github.com/jward/tsfeatures/internal/features"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query collected reports",
	Long:  "Run queries against a collected database. Paths are relative to the collected directory.",
}

func init() {
	queryCmd.AddCommand(queryFileCmd)
	queryCmd.AddCommand(queryFeatureCmd)
	queryCmd.AddCommand(queryDirCmd)
	queryCmd.AddCommand(querySummaryCmd)
}

var queryFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Show the cached report for one file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		rel := cleanRel(args[0])
		r, err := e.Query().FileReport(rel)
		if err != nil {
			return err
		}
		result := CLIResult{Command: "file"}
		if r != nil {
			result.Results = CLIFileReport{
				Path:        rel,
				Version:     r.Version,
				ProcessTime: r.ProcessTime,
				HasErrors:   r.HasErrors,
				Features:    r.Features.Names(),
			}
		}
		return outputResult(cmd.OutOrStdout(), result)
	},
}

var queryFeatureCmd = &cobra.Command{
	Use:   "feature <name>...",
	Short: "List the files using every named feature",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		paths, err := e.Query().FilesWithFeatures(args...)
		if err != nil {
			return err
		}
		if paths == nil {
			paths = []string{}
		}
		return outputResult(cmd.OutOrStdout(), CLIResult{Command: "feature", Results: paths})
	},
}

var queryDirCmd = &cobra.Command{
	Use:   "dir [dir]",
	Short: "Show the union of the features used under a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		dir := "."
		if len(args) > 0 {
			dir = cleanRel(args[0])
		}
		set, err := e.Query().DirectoryFeatures(dir)
		if err != nil {
			return err
		}
		return outputResult(cmd.OutOrStdout(), CLIResult{Command: "dir", Results: CLIDirectory{
			Dir:      dir,
			Features: set.Names(),
		}})
	},
}

var querySummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show per-feature adoption across the collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		s, err := e.Query().Summary()
		if err != nil {
			return err
		}
		return outputResult(cmd.OutOrStdout(), CLIResult{Command: "summary", Results: toCLISummary(s)})
	},
}

// --- Helpers ---

// openEngine opens the existing database for the repository containing the
// working directory.
func openEngine() (*tsfeatures.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	repoRoot := findRepoRoot(cwd)
	dbPath := resolveDBPath(repoRoot)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'tsfeatures collect' first)", dbPath)
	}
	e, _, err := newEngine(repoRoot)
	return e, err
}

// cleanRel normalises a user-supplied relative path to the stored form.
func cleanRel(p string) string {
	return strings.TrimPrefix(path.Clean(filepath.ToSlash(p)), "./")
}

func toCLISummary(s *tsfeatures.Summary) CLISummary {
	out := CLISummary{
		Files:       s.Files,
		WithErrors:  s.WithErrors,
		WithFeature: s.WithFeature,
		Adoption:    make([]CLIAdoption, 0, len(s.Adoption)),
	}
	for _, a := range s.Adoption {
		out.Adoption = append(out.Adoption, CLIAdoption{
			Feature: a.Feature,
			Files:   a.Files,
			Ratio:   a.Ratio,
			Version: a.Release.Version,
		})
	}
	return out
}

// catalogEntries lists the catalog with each feature's release.
func catalogEntries(names []string) []CLIFeature {
	out := make([]CLIFeature, 0, len(names))
	for _, n := range names {
		f := CLIFeature{Name: n}
		if rel, ok := features.IntroducedIn(n); ok {
			f.Version = rel.Version
			f.Released = rel.Date.Format("2006-01-02")
		}
		out = append(out, f)
	}
	return out
}
