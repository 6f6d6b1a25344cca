// Package script runs Risor analysis scripts over collected feature
// reports.
//
// Scripts see the collection as globals: files (a list of maps with path,
// features and has_errors keys), catalog (the feature names in catalog
// order) and version (the report schema version). They publish results
// with emit(key, value); the values come back to Go in a Result.
package script

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/tsfeatures/internal/features"
	"github.com/jward/tsfeatures/internal/store"
)

// Runtime embeds a Risor VM and provides host functions and Store access
// to analysis scripts.
type Runtime struct {
	store      *store.Store
	scriptsDir string
	fsys       fs.FS
	catalog    []string
	version    int
	logger     *slog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithCatalog sets the catalog exposed to scripts. Defaults to the default
// rule set's catalog.
func WithCatalog(names []string) RuntimeOption {
	return func(r *Runtime) {
		r.catalog = names
	}
}

// WithVersion sets the schema version exposed to scripts.
func WithVersion(v int) RuntimeOption {
	return func(r *Runtime) {
		r.version = v
	}
}

// WithLogger sets the logger behind the scripts' log object.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime creates a Runtime wired to the given Store and scripts
// directory. s may be nil, in which case files is empty and db_query is
// unavailable.
func NewRuntime(s *store.Store, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		store:      s,
		scriptsDir: scriptsDir,
		catalog:    features.Default.Catalog(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result holds the values a script emitted, in emission order. Emitting a
// key twice keeps the position of the first emission and the last value.
type Result struct {
	Keys   []string
	Values map[string]any
}

// Get returns the value emitted under key.
func (res *Result) Get(key string) (any, bool) {
	v, ok := res.Values[key]
	return v, ok
}

type collector struct {
	mu  sync.Mutex
	res Result
}

func (c *collector) emit(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.res.Values[key]; !ok {
		c.res.Keys = append(c.res.Keys, key)
	}
	c.res.Values[key] = v
}

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) (*Result, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals. Useful for testing without script files.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) (*Result, error) {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) (*Result, error) {
	col := &collector{res: Result{Values: make(map[string]any)}}
	globals, err := r.buildGlobals(col, label, extraGlobals)
	if err != nil {
		return nil, fmt.Errorf("script: %s: %w", label, err)
	}

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return nil, fmt.Errorf("script: %s: %w", label, err)
	}
	return &col.res, nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		// Paths within an fs.FS are relative ("/summary.risor" -> "summary.risor").
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("script: loading %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("script: loading %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(col *collector, label string, extra map[string]any) (map[string]any, error) {
	files, err := r.filesObject()
	if err != nil {
		return nil, err
	}
	catalog := make([]object.Object, len(r.catalog))
	for i, name := range r.catalog {
		catalog[i] = object.NewString(name)
	}

	globals := map[string]any{
		"files":         files,
		"catalog":       object.NewList(catalog),
		"version":       object.NewInt(int64(r.version)),
		"emit":          makeEmitFn(col),
		"has_feature":   makeHasFeatureFn(),
		"introduced_in": makeIntroducedInFn(),
		"log":           mustProxy(&logObject{logger: r.logger.With("script", label)}),
	}
	if r.store != nil {
		globals["db_query"] = makeDBQueryFn(r.store)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals, nil
}

// filesObject converts the store's file reports to a Risor list. Files
// without a report are omitted.
func (r *Runtime) filesObject() (object.Object, error) {
	if r.store == nil {
		return object.NewList(nil), nil
	}
	frs, err := r.store.FileReports()
	if err != nil {
		return nil, err
	}
	items := make([]object.Object, 0, len(frs))
	for _, fr := range frs {
		if fr.Report == nil {
			continue
		}
		items = append(items, fileObject(fr.File.Path, fr.Report.Features, fr.Report.HasErrors))
	}
	return object.NewList(items), nil
}

func fileObject(path string, names []string, hasErrors bool) object.Object {
	feats := make([]object.Object, len(names))
	for i, n := range names {
		feats[i] = object.NewString(n)
	}
	return object.NewMap(map[string]object.Object{
		"path":       object.NewString(path),
		"features":   object.NewList(feats),
		"has_errors": object.NewBool(hasErrors),
	})
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("script: proxy error: %v", err))
	}
	return p
}
