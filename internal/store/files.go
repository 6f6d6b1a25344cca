package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// UpsertFile records a scan of f.Path, replacing the previous scan.
// Returns the file's ID.
func (s *Store) UpsertFile(f *File) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("upsert file: begin: %w", err)
	}
	defer tx.Rollback()

	id, err := upsertFileTx(tx, f)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	f.ID = id
	return id, nil
}

func upsertFileTx(tx *sql.Tx, f *File) (int64, error) {
	_, err := tx.Exec(
		`INSERT INTO files (path, dialect, hash, size, scanned_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET dialect = excluded.dialect, hash = excluded.hash,
		   size = excluded.size, scanned_at = excluded.scanned_at`,
		f.Path, f.Dialect, f.Hash, f.Size, f.ScannedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert file %s: %w", f.Path, err)
	}
	var id int64
	if err := tx.QueryRow("SELECT id FROM files WHERE path = ?", f.Path).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert file %s: id: %w", f.Path, err)
	}
	return id, nil
}

// FileByPath returns the file record for path, or nil if it was never
// scanned.
func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	err := s.db.QueryRow(
		"SELECT id, path, dialect, hash, size, scanned_at FROM files WHERE path = ?", path,
	).Scan(&f.ID, &f.Path, &f.Dialect, &f.Hash, &f.Size, &f.ScannedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Files returns every scanned file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT id, path, dialect, hash, size, scanned_at FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()

	var out []*File
	for rows.Next() {
		f := &File{}
		if err := rows.Scan(&f.ID, &f.Path, &f.Dialect, &f.Hash, &f.Size, &f.ScannedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteFile removes the file record for path. Its report stays cached
// until PruneReports.
func (s *Store) DeleteFile(path string) error {
	if _, err := s.db.Exec("DELETE FROM files WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete file %s: %w", path, err)
	}
	return nil
}

// FileReports returns every scanned file with its cached report, ordered
// by path.
func (s *Store) FileReports() ([]FileReport, error) {
	rows, err := s.db.Query(`
		SELECT f.id, f.path, f.dialect, f.hash, f.size, f.scanned_at,
		       r.version, r.process_time, r.has_errors, r.created_at
		FROM files f LEFT JOIN reports r ON r.hash = f.hash
		ORDER BY f.path`)
	if err != nil {
		return nil, fmt.Errorf("file reports: %w", err)
	}
	defer rows.Close()

	var out []FileReport
	for rows.Next() {
		var (
			fr        FileReport
			version   sql.NullInt64
			procTime  sql.NullInt64
			hasErrors sql.NullBool
			createdAt sql.NullTime
		)
		f := &fr.File
		if err := rows.Scan(&f.ID, &f.Path, &f.Dialect, &f.Hash, &f.Size, &f.ScannedAt,
			&version, &procTime, &hasErrors, &createdAt); err != nil {
			return nil, err
		}
		if version.Valid {
			fr.Report = &Report{
				Hash:        f.Hash,
				Version:     int(version.Int64),
				ProcessTime: procTime.Int64,
				HasErrors:   hasErrors.Bool,
				CreatedAt:   createdAt.Time,
			}
		}
		out = append(out, fr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	features, err := s.allReportFeatures()
	if err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Report != nil {
			out[i].Report.Features = features[out[i].Report.Hash]
		}
	}
	return out, nil
}

// FeatureCounts returns, for every feature detected at least once, the
// number of scanned files it was detected in. Ordered by feature name.
func (s *Store) FeatureCounts() ([]FeatureCount, error) {
	rows, err := s.db.Query(`
		SELECT rf.feature, COUNT(f.id)
		FROM files f JOIN report_features rf ON rf.hash = f.hash
		GROUP BY rf.feature
		ORDER BY rf.feature`)
	if err != nil {
		return nil, fmt.Errorf("feature counts: %w", err)
	}
	defer rows.Close()

	var out []FeatureCount
	for rows.Next() {
		var fc FeatureCount
		if err := rows.Scan(&fc.Feature, &fc.Files); err != nil {
			return nil, err
		}
		out = append(out, fc)
	}
	return out, rows.Err()
}

// FilesWithFeatures returns the paths of scanned files in which every one
// of the given features was detected, ordered by path.
func (s *Store) FilesWithFeatures(features ...string) ([]string, error) {
	if len(features) == 0 {
		return nil, nil
	}
	unique := dedupe(features)
	args := stringsToArgs(unique)
	args = append(args, len(unique))

	rows, err := s.db.Query(`
		SELECT f.path
		FROM files f JOIN report_features rf ON rf.hash = f.hash
		WHERE rf.feature IN (`+placeholderList(len(unique))+`)
		GROUP BY f.id
		HAVING COUNT(DISTINCT rf.feature) = ?
		ORDER BY f.path`, args...)
	if err != nil {
		return nil, fmt.Errorf("files with features: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FileCount returns the number of scanned files.
func (s *Store) FileCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&n); err != nil {
		return 0, fmt.Errorf("file count: %w", err)
	}
	return n, nil
}
