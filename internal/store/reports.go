package store

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
)

// PutReport stores r, replacing any report with the same hash.
func (s *Store) PutReport(r *Report) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("put report: begin: %w", err)
	}
	defer tx.Rollback()

	if err := putReportTx(tx, r); err != nil {
		return err
	}
	return tx.Commit()
}

func putReportTx(tx *sql.Tx, r *Report) error {
	_, err := tx.Exec(
		`INSERT INTO reports (hash, version, process_time, has_errors, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET version = excluded.version, process_time = excluded.process_time,
		   has_errors = excluded.has_errors, created_at = excluded.created_at`,
		r.Hash, r.Version, r.ProcessTime, r.HasErrors, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("put report %s: %w", r.Hash, err)
	}
	if _, err := tx.Exec("DELETE FROM report_features WHERE hash = ?", r.Hash); err != nil {
		return fmt.Errorf("put report %s: clear features: %w", r.Hash, err)
	}
	for _, f := range r.Features {
		if _, err := tx.Exec("INSERT OR IGNORE INTO report_features (hash, feature) VALUES (?, ?)", r.Hash, f); err != nil {
			return fmt.Errorf("put report %s: feature %s: %w", r.Hash, f, err)
		}
	}
	return nil
}

// ReportByHash returns the cached report for a content hash, or nil if
// there is none.
func (s *Store) ReportByHash(hash string) (*Report, error) {
	r := &Report{}
	err := s.db.QueryRow(
		"SELECT hash, version, process_time, has_errors, created_at FROM reports WHERE hash = ?", hash,
	).Scan(&r.Hash, &r.Version, &r.ProcessTime, &r.HasErrors, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("report by hash: %w", err)
	}
	r.Features, err = s.featuresByHash(hash)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) featuresByHash(hash string) ([]string, error) {
	rows, err := s.db.Query("SELECT feature FROM report_features WHERE hash = ? ORDER BY feature", hash)
	if err != nil {
		return nil, fmt.Errorf("features by hash: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// allReportFeatures loads the feature lists of every report in one query.
func (s *Store) allReportFeatures() (map[string][]string, error) {
	rows, err := s.db.Query("SELECT hash, feature FROM report_features")
	if err != nil {
		return nil, fmt.Errorf("report features: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var hash, f string
		if err := rows.Scan(&hash, &f); err != nil {
			return nil, err
		}
		out[hash] = append(out[hash], f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, fs := range out {
		slices.Sort(fs)
	}
	return out, nil
}
