package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by lookups that require a row to exist.
var ErrNotFound = errors.New("store: not found")

// Store is the SQLite report cache used by directory collection.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS reports (
  hash            TEXT PRIMARY KEY,
  version         INTEGER NOT NULL,
  process_time    INTEGER NOT NULL,
  has_errors      BOOLEAN DEFAULT FALSE,
  created_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS report_features (
  hash            TEXT NOT NULL REFERENCES reports(hash) ON DELETE CASCADE,
  feature         TEXT NOT NULL,
  PRIMARY KEY (hash, feature)
);

CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  dialect         TEXT NOT NULL,
  hash            TEXT NOT NULL,
  size            INTEGER,
  scanned_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_hash ON files(hash);
CREATE INDEX IF NOT EXISTS idx_report_features_feature ON report_features(feature);
`

// Metadata returns the value stored under key, or ErrNotFound.
func (s *Store) Metadata(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("metadata %q: %w", key, err)
	}
	return v, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}

// PruneReports deletes reports no file refers to any more. Returns the
// number of reports removed.
func (s *Store) PruneReports() (int64, error) {
	res, err := s.db.Exec("DELETE FROM reports WHERE hash NOT IN (SELECT DISTINCT hash FROM files)")
	if err != nil {
		return 0, fmt.Errorf("prune reports: %w", err)
	}
	return res.RowsAffected()
}

// Reset deletes every file and report, keeping metadata.
func (s *Store) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("reset: begin: %w", err)
	}
	defer tx.Rollback()
	for _, stmt := range []string{"DELETE FROM files", "DELETE FROM report_features", "DELETE FROM reports"} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	return tx.Commit()
}
