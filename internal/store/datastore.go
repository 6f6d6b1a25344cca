package store

// DataStore is the interface the collector writes through. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// collection) implement it.
type DataStore interface {
	PutReport(r *Report) error
	UpsertFile(f *File) (int64, error)

	// ReportByHash lets a worker reuse a report computed for identical
	// contents elsewhere in the tree.
	ReportByHash(hash string) (*Report, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
