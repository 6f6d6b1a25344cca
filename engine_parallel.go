package tsfeatures

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/jward/tsfeatures/internal/store"
)

// hashGroup is the unit of parallel work: every changed file sharing one
// content hash. Only the first member is analysed.
type hashGroup struct {
	items []workItem
	batch *store.BatchedStore
}

// collectParallel collects files using a three-phase parallel pipeline:
//
//	Phase A (serial):   Read, hash, skip unchanged files, group by hash.
//	Phase B (parallel): Analyse one member per group via worker pool.
//	Phase C (serial):   Commit each group's batch to SQLite.
func (e *Engine) collectParallel(ctx context.Context, root string, paths []string) (*CollectStats, error) {
	stats := &CollectStats{}
	var errs []error

	// ---- Phase A: Serial preparation ----
	var groups []*hashGroup
	byHash := make(map[string]*hashGroup)
	for _, rel := range paths {
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
		g, ok := byHash[item.hash]
		if !ok {
			g = &hashGroup{batch: store.NewBatchedStore(e.store)}
			byHash[item.hash] = g
			groups = append(groups, g)
		}
		g.items = append(g.items, item)
	}

	if len(groups) == 0 {
		return stats, joinErrs(errs)
	}

	// ---- Phase B: Parallel analysis ----
	numWorkers := e.workers
	if numWorkers < 1 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = max(1, min(numWorkers, len(groups)))

	workCh := make(chan *hashGroup, len(groups))
	for _, g := range groups {
		workCh <- g
	}
	close(workCh)

	type result struct {
		group  *hashGroup
		cached bool
		err    error
	}
	resultCh := make(chan result, len(groups))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for g := range workCh {
				if err := ctx.Err(); err != nil {
					resultCh <- result{group: g, err: err}
					continue
				}
				cached, err := e.collectGroup(ctx, g)
				resultCh <- result{group: g, cached: cached, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	for res := range resultCh {
		n := len(res.group.items)
		first := res.group.items[0].path
		if res.err != nil {
			stats.Failed += n
			errs = append(errs, fmt.Errorf("collect %s: %w", first, res.err))
			continue
		}
		if err := e.store.CommitBatch(res.group.batch); err != nil {
			stats.Failed += n
			errs = append(errs, fmt.Errorf("commit %s: %w", first, err))
			continue
		}
		if res.cached {
			stats.Cached += n
		} else {
			stats.Analyzed++
			stats.Cached += n - 1
		}
	}

	return stats, joinErrs(errs)
}

// collectGroup analyses the group's first file (unless a report for its
// hash is already cached) and records every member into the group batch.
func (e *Engine) collectGroup(ctx context.Context, g *hashGroup) (cached bool, err error) {
	cached, err = e.collectFile(ctx, g.batch, g.items[0])
	if err != nil {
		return false, err
	}
	for _, item := range g.items[1:] {
		if _, err := e.collectFile(ctx, g.batch, item); err != nil {
			return false, err
		}
	}
	return cached, nil
}

func joinErrs(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("collection had %d error(s): %w", len(errs), errs[0])
}
