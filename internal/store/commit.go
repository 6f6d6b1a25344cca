package store

import "fmt"

// CommitBatch writes all buffered data from a BatchedStore into SQLite
// within a single transaction. Reports are written before files so every
// committed file hash already has its report.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	batch.mu.Lock()
	defer batch.mu.Unlock()

	for i := range batch.Reports {
		if err := putReportTx(tx, &batch.Reports[i]); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}
	for i := range batch.Files {
		if _, err := upsertFileTx(tx, &batch.Files[i]); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: commit: %w", err)
	}
	return nil
}
