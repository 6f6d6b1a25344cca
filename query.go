package tsfeatures

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/jward/tsfeatures/internal/features"
	"github.com/jward/tsfeatures/internal/store"
)

// ErrUnknownFeature is returned when a query names a feature that is not
// in the catalog.
var ErrUnknownFeature = errors.New("tsfeatures: unknown feature")

// QueryBuilder provides read access to collected reports.
type QueryBuilder struct {
	store   *store.Store
	catalog []string
}

// FileReport returns the cached report for a collected file, or nil if the
// file was never collected. path is relative to the collection root.
func (q *QueryBuilder) FileReport(path string) (*Report, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("file report: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	r, err := q.store.ReportByHash(f.Hash)
	if err != nil {
		return nil, fmt.Errorf("file report: %w", err)
	}
	if r == nil {
		return nil, nil
	}
	return fromStoreReport(r), nil
}

func fromStoreReport(r *store.Report) *Report {
	set := make(features.Set, len(r.Features))
	for _, f := range r.Features {
		set.Add(f)
	}
	return &Report{
		Version:     r.Version,
		ProcessTime: r.ProcessTime,
		Features:    set,
		HasErrors:   r.HasErrors,
	}
}

// FilesWithFeatures returns the paths of collected files using every one of
// the named features.
func (q *QueryBuilder) FilesWithFeatures(names ...string) ([]string, error) {
	for _, n := range names {
		if !slices.Contains(q.catalog, n) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, n)
		}
	}
	paths, err := q.store.FilesWithFeatures(names...)
	if err != nil {
		return nil, fmt.Errorf("files with features: %w", err)
	}
	return paths, nil
}

// DirectoryFeatures returns the union of the features of every collected
// file under dir. An empty dir or "." means the whole collection.
func (q *QueryBuilder) DirectoryFeatures(dir string) (features.Set, error) {
	frs, err := q.store.FileReports()
	if err != nil {
		return nil, fmt.Errorf("directory features: %w", err)
	}
	prefix := strings.Trim(path.Clean("/"+dir), "/")
	out := make(features.Set)
	for _, fr := range frs {
		if fr.Report == nil || !underDir(fr.File.Path, prefix) {
			continue
		}
		out.Merge(fromStoreReport(fr.Report).Features)
	}
	return out, nil
}

func underDir(p, dir string) bool {
	return dir == "" || p == dir || strings.HasPrefix(p, dir+"/")
}

// Adoption is the usage of one feature across a collection.
type Adoption struct {
	Feature string
	Files   int
	Ratio   float64 // Files / Summary.Files; 0 for an empty collection
	Release features.Release
}

// Summary describes a whole collection.
type Summary struct {
	Files       int
	WithErrors  int // files whose parse needed error recovery
	WithFeature int // files using at least one feature
	Adoption    []Adoption
}

// Summary returns per-feature adoption for every catalog feature, in
// catalog order, including features no file uses.
func (q *QueryBuilder) Summary() (*Summary, error) {
	frs, err := q.store.FileReports()
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	counts, err := q.store.FeatureCounts()
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	byName := make(map[string]int, len(counts))
	for _, c := range counts {
		byName[c.Feature] = c.Files
	}

	s := &Summary{Files: len(frs)}
	for _, fr := range frs {
		if fr.Report == nil {
			continue
		}
		if fr.Report.HasErrors {
			s.WithErrors++
		}
		if len(fr.Report.Features) > 0 {
			s.WithFeature++
		}
	}
	for _, name := range q.catalog {
		a := Adoption{Feature: name, Files: byName[name]}
		if s.Files > 0 {
			a.Ratio = float64(a.Files) / float64(s.Files)
		}
		a.Release, _ = features.IntroducedIn(name)
		s.Adoption = append(s.Adoption, a)
	}
	return s, nil
}

// ExportCSV writes one row per collected file: the path, then a 0/1 column
// per catalog feature in catalog order. Files without a report are
// skipped.
func (q *QueryBuilder) ExportCSV(w io.Writer) error {
	frs, err := q.store.FileReports()
	if err != nil {
		return fmt.Errorf("export csv: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"path"}, q.catalog...)); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	row := make([]string, len(q.catalog)+1)
	for _, fr := range frs {
		if fr.Report == nil {
			continue
		}
		row[0] = fr.File.Path
		for i, name := range q.catalog {
			row[i+1] = "0"
			if fr.Report.Has(name) {
				row[i+1] = "1"
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	return nil
}
