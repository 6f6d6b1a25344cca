package tsfeatures

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jward/tsfeatures/internal/parser"
	"github.com/jward/tsfeatures/internal/store"
)

// Engine collects feature reports for the TypeScript files of a directory
// tree into a SQLite cache and answers queries over them.
type Engine struct {
	store    *store.Store
	analyzer *Analyzer
	logger   *slog.Logger

	include []string // doublestar patterns; empty means every TypeScript file
	exclude []string

	workers     int // 0 means runtime.NumCPU()
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithInclude restricts collection to paths matching at least one pattern.
// Patterns use doublestar syntax and are matched against slash-separated
// paths relative to the collection root.
func WithInclude(patterns ...string) Option {
	return func(e *Engine) {
		e.include = append(e.include, patterns...)
	}
}

// WithExclude drops paths matching any pattern.
func WithExclude(patterns ...string) Option {
	return func(e *Engine) {
		e.exclude = append(e.exclude, patterns...)
	}
}

// WithParallel controls parallel collection. When true (default), files
// are analysed by a worker pool, with a single writer committing batches
// to SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers sets the worker pool size. Values below 1 mean one worker
// per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithAnalyzer replaces the default analyzer.
func WithAnalyzer(a *Analyzer) Option {
	return func(e *Engine) {
		e.analyzer = a
	}
}

// WithEngineLogger sets the logger. Defaults to slog.Default().
func WithEngineLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("tsfeatures: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("tsfeatures: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.analyzer == nil {
		e.analyzer = NewAnalyzer(WithLogger(e.logger))
	}
	if err := e.analyzer.Err(); err != nil {
		s.Close()
		return nil, err
	}
	for _, p := range slices.Concat(e.include, e.exclude) {
		if !doublestar.ValidatePattern(p) {
			s.Close()
			return nil, fmt.Errorf("tsfeatures: invalid pattern %q", p)
		}
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Analyzer returns the analyzer used for collection.
func (e *Engine) Analyzer() *Analyzer {
	return e.analyzer
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store, catalog: e.analyzer.Catalog()}
}

// CollectStats summarises one collection run.
type CollectStats struct {
	Discovered int // TypeScript files that passed the include/exclude filters
	Unchanged  int // same content as the last run; not read past hashing
	Cached     int // new content with a report already cached for it
	Analyzed   int // parsed and walked
	Removed    int // records dropped because the file no longer exists
	Failed     int
	Elapsed    time.Duration
}

// catalogHash identifies the schema version, grammar and rule catalog that
// produced the cached reports.
func (e *Engine) catalogHash() string {
	h := sha256.New()
	fmt.Fprintf(h, "version:%d\n", SchemaVersion)
	fmt.Fprintf(h, "dialect:%s\n", e.analyzer.Dialect())
	for _, name := range e.analyzer.Catalog() {
		fmt.Fprintf(h, "feature:%s\n", name)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// CatalogChanged reports whether the cached reports were produced by a
// different schema version, dialect or rule catalog. Returns true if the database
// has no stored hash (first run).
func (e *Engine) CatalogChanged() bool {
	stored, err := e.store.Metadata("catalog_hash")
	if err != nil || stored == "" {
		return true
	}
	return stored != e.catalogHash()
}

// prepare drops every cached report when the catalog changed or the
// database was last used for a different root.
func (e *Engine) prepare(root string) error {
	stored, err := e.store.Metadata("root")
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if e.CatalogChanged() || (stored != "" && stored != root) {
		if err := e.store.Reset(); err != nil {
			return err
		}
	}
	if err := e.store.SetMetadata("root", root); err != nil {
		return err
	}
	return e.store.SetMetadata("catalog_hash", e.catalogHash())
}

// CollectDirectory discovers the TypeScript files under root and collects
// reports for them. If root is inside a git repository, uses git ls-files
// to respect .gitignore. Falls back to a filesystem walk (skipping hidden
// dirs, node_modules and vendor) if git is unavailable.
//
// Files recorded by an earlier run that are no longer present are removed.
func (e *Engine) CollectDirectory(ctx context.Context, root string) (*CollectStats, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("tsfeatures: collect: %w", err)
	}
	paths, err := e.gitListFiles(abs)
	if err != nil {
		// Not a git repo or git not available.
		paths, err = e.walkListFiles(abs)
		if err != nil {
			return nil, err
		}
	}
	paths = e.filter(paths)

	stats, err := e.CollectFiles(ctx, abs, paths)
	if stats == nil {
		return nil, err
	}

	removed, rerr := e.removeMissing(paths)
	stats.Removed = removed
	if rerr != nil && err == nil {
		err = rerr
	}
	return stats, err
}

// CollectFiles collects reports for the given slash-separated paths,
// relative to root. When WithParallel is enabled, uses a worker pool with
// batched SQLite writes. Otherwise falls back to the serial path.
//
// For each file:
//  1. Skip unchanged files (same content hash as the last run)
//  2. Reuse a cached report for identical contents
//  3. Otherwise analyse the contents and cache the report
//  4. Record the file with its hash
//
// Errors on individual files are counted and processing continues; the
// returned error wraps the first one.
func (e *Engine) CollectFiles(ctx context.Context, root string, paths []string) (*CollectStats, error) {
	start := time.Now()
	if err := e.prepare(root); err != nil {
		return nil, fmt.Errorf("tsfeatures: collect: %w", err)
	}

	var (
		stats *CollectStats
		err   error
	)
	if e.useParallel {
		stats, err = e.collectParallel(ctx, root, paths)
	} else {
		stats, err = e.collectSerial(ctx, root, paths)
	}
	stats.Discovered = len(paths)
	stats.Elapsed = time.Since(start)

	e.logger.InfoContext(ctx, "collection finished",
		"root", root,
		"files", stats.Discovered,
		"analyzed", stats.Analyzed,
		"cached", stats.Cached,
		"unchanged", stats.Unchanged,
		"failed", stats.Failed,
		"elapsed", stats.Elapsed,
	)
	return stats, err
}

func (e *Engine) collectSerial(ctx context.Context, root string, paths []string) (*CollectStats, error) {
	stats := &CollectStats{}
	var errs []error
	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		item, skip, err := e.prepareFile(root, rel)
		if err != nil {
			stats.Failed++
			errs = append(errs, fmt.Errorf("prepare %s: %w", rel, err))
			continue
		}
		if skip {
			stats.Unchanged++
			continue
		}
		cached, err := e.collectFile(ctx, e.store, item)
		if err != nil {
			stats.Failed++
			errs = append(errs, fmt.Errorf("collect %s: %w", rel, err))
			continue
		}
		if cached {
			stats.Cached++
		} else {
			stats.Analyzed++
		}
	}
	if len(errs) > 0 {
		return stats, fmt.Errorf("collection had %d error(s): %w", len(errs), errs[0])
	}
	return stats, nil
}

// workItem is one file whose contents changed since the last run.
type workItem struct {
	path    string // relative, slash-separated
	dialect parser.Dialect
	hash    string
	content []byte
}

// prepareFile reads and hashes a file. skip=true means the file is
// unchanged since the last run.
func (e *Engine) prepareFile(root, rel string) (workItem, bool, error) {
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	hash := store.ContentHash(content)

	existing, err := e.store.FileByPath(rel)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		return workItem{}, true, nil
	}

	return workItem{path: rel, dialect: e.analyzer.Dialect(), hash: hash, content: content}, false, nil
}

// collectFile produces the report for item, reusing one cached for the
// same hash, and records the file through ds. cached reports whether an
// existing report was reused.
func (e *Engine) collectFile(ctx context.Context, ds store.DataStore, item workItem) (cached bool, err error) {
	existing, err := ds.ReportByHash(item.hash)
	if err != nil {
		return false, err
	}
	if existing == nil {
		rep, err := e.analyzer.AnalyzeBytes(ctx, item.path, item.content)
		if err != nil {
			return false, err
		}
		if err := ds.PutReport(toStoreReport(item.hash, rep)); err != nil {
			return false, err
		}
	}
	_, err = ds.UpsertFile(&store.File{
		Path:      item.path,
		Dialect:   string(item.dialect),
		Hash:      item.hash,
		Size:      int64(len(item.content)),
		ScannedAt: time.Now(),
	})
	return existing != nil, err
}

func toStoreReport(hash string, rep Report) *store.Report {
	return &store.Report{
		Hash:        hash,
		Version:     rep.Version,
		ProcessTime: rep.ProcessTime,
		HasErrors:   rep.HasErrors,
		Features:    rep.Features.Names(),
		CreatedAt:   time.Now(),
	}
}

// removeMissing deletes file records whose path is not in present, then
// prunes reports no file uses.
func (e *Engine) removeMissing(present []string) (int, error) {
	keep := make(map[string]bool, len(present))
	for _, p := range present {
		keep[p] = true
	}
	files, err := e.store.Files()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		if keep[f.Path] {
			continue
		}
		if err := e.store.DeleteFile(f.Path); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		if _, err := e.store.PruneReports(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// skipDirs are excluded from the filesystem walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) TypeScript files under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, ok := parser.DialectForFile(line); ok {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a
// fallback when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := parser.DialectForFile(path); ok {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			paths = append(paths, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// filter applies the include and exclude patterns.
func (e *Engine) filter(paths []string) []string {
	if len(e.include) == 0 && len(e.exclude) == 0 {
		return paths
	}
	out := paths[:0]
	for _, p := range paths {
		if len(e.include) > 0 && !matchAny(e.include, p) {
			continue
		}
		if matchAny(e.exclude, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchAny(patterns []string, path string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, path); ok {
			return true
		}
	}
	return false
}
