package tsfeatures

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jward/tsfeatures/internal/parser"
)

const defaultDebounce = 100 * time.Millisecond

// WatchOptions configures Engine.Watch.
type WatchOptions struct {
	// Debounce is how long changes accumulate before they are collected.
	// Defaults to 100ms.
	Debounce time.Duration
	// OnBatch, if set, is called after each batch of changes is collected.
	OnBatch func(*CollectStats, error)
}

// Watch keeps the cache for root current until ctx is done: created and
// modified TypeScript files are re-collected, removed files are dropped.
// Directories created while watching are watched too. Watch does not do
// an initial collection; call CollectDirectory first.
func (e *Engine) Watch(ctx context.Context, root string, opts WatchOptions) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("tsfeatures: watch: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tsfeatures: watch: %w", err)
	}
	defer fsw.Close()

	if err := e.addWatches(fsw, abs); err != nil {
		return fmt.Errorf("tsfeatures: watch: %w", err)
	}
	e.logger.InfoContext(ctx, "watching", "root", abs, "debounce", opts.Debounce)

	ticker := time.NewTicker(opts.Debounce)
	defer ticker.Stop()

	pending := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if rel, ok := e.watchEvent(fsw, abs, ev); ok {
				pending[rel] = struct{}{}
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			e.logger.WarnContext(ctx, "watcher error", "error", err)

		case <-ticker.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			slices.Sort(paths)

			stats, err := e.collectChanged(ctx, abs, paths)
			if err != nil {
				e.logger.WarnContext(ctx, "watch batch failed", "error", err)
			}
			if opts.OnBatch != nil {
				opts.OnBatch(stats, err)
			}
		}
	}
}

// watchEvent records new directories and returns the relative path of a
// TypeScript file the event touched.
func (e *Engine) watchEvent(fsw *fsnotify.Watcher, root string, ev fsnotify.Event) (string, bool) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := e.addWatches(fsw, ev.Name); err != nil {
				e.logger.Warn("failed to watch directory", "path", ev.Name, "error", err)
			}
			return "", false
		}
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return "", false
	}
	if _, ok := parser.DialectForFile(ev.Name); !ok {
		return "", false
	}
	rel, err := filepath.Rel(root, ev.Name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if len(e.filter([]string{rel})) == 0 {
		return "", false
	}
	return rel, true
}

// addWatches watches dir and every directory below it that a collection
// walk would enter.
func (e *Engine) addWatches(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != dir && (strings.HasPrefix(name, ".") || skipDirs[name]) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

// collectChanged collects the paths that still exist and drops the rest.
func (e *Engine) collectChanged(ctx context.Context, root string, paths []string) (*CollectStats, error) {
	var present, gone []string
	for _, p := range paths {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(p))); errors.Is(err, fs.ErrNotExist) {
			gone = append(gone, p)
		} else {
			present = append(present, p)
		}
	}

	stats := &CollectStats{}
	var err error
	if len(present) > 0 {
		stats, err = e.CollectFiles(ctx, root, present)
		if stats == nil {
			return nil, err
		}
	}
	for _, p := range gone {
		if derr := e.store.DeleteFile(p); derr != nil {
			return stats, errors.Join(err, derr)
		}
		stats.Removed++
	}
	if len(gone) > 0 {
		if _, perr := e.store.PruneReports(); perr != nil {
			return stats, errors.Join(err, perr)
		}
	}
	return stats, err
}
