package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/tsfeatures"
	"github.com/jward/tsfeatures/internal/config"
	"github.com/jward/tsfeatures/internal/observability"
)

var (
	flagConfig   string
	flagDB       string
	flagFormat   string
	flagLogLevel string
)

// Loaded by the root command before any subcommand runs.
var (
	cfg       *config.Config
	providers observability.Providers
)

func main() {
	err := rootCmd.Execute()
	if providers.Shutdown != nil {
		if serr := providers.Shutdown(context.Background()); serr != nil {
			slog.Warn("telemetry shutdown failed", "error", serr)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "tsfeatures",
	Short:         "Detect TypeScript language feature usage",
	Long:          "tsfeatures parses TypeScript sources with tree-sitter and reports which newer syntax features they use, as a service, for single files, or across whole repositories.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return setup()
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .tsfeatures.yaml in the working or home directory)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path, relative to the repository root (default: collect.db from config)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text|yaml")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override log.level: debug|info|warn|error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(analyseCmd)
	rootCmd.AddCommand(catalogCmd)
}

// setup loads configuration and installs the process logger and tracer
// provider.
func setup() error {
	c, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagLogLevel != "" {
		c.Log.Level = flagLogLevel
	}

	p, err := observability.Init(observability.Config{
		ServiceName:  c.Telemetry.ServiceName,
		OTLPEndpoint: c.Telemetry.OTLPEndpoint,
		OTLPInsecure: c.Telemetry.OTLPInsecure,
		LogLevel:     observability.ParseLevel(c.Log.Level),
		LogJSON:      c.Log.JSON,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	slog.SetDefault(p.Logger)

	cfg = c
	providers = p
	return nil
}

// newEngine opens the collection database for repoRoot with the configured
// collection options.
func newEngine(repoRoot string, extra ...tsfeatures.Option) (*tsfeatures.Engine, string, error) {
	dbPath := resolveDBPath(repoRoot)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, "", fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	opts := []tsfeatures.Option{
		tsfeatures.WithInclude(cfg.Collect.Include...),
		tsfeatures.WithExclude(cfg.Collect.Exclude...),
		tsfeatures.WithWorkers(cfg.Collect.Workers),
		tsfeatures.WithEngineLogger(slog.Default()),
	}
	e, err := tsfeatures.New(dbPath, append(opts, extra...)...)
	if err != nil {
		return nil, "", fmt.Errorf("creating engine: %w", err)
	}
	return e, dbPath, nil
}

// resolveTargetDir returns the absolute path of the directory to collect.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from --db, else collect.db,
// joined to repoRoot when relative.
func resolveDBPath(repoRoot string) string {
	p := flagDB
	if p == "" && cfg != nil {
		p = cfg.Collect.DB
	}
	if p == "" {
		p = config.DefaultCollectDB
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(repoRoot, p)
}
