package store

import "sync"

// BatchedStore buffers collection writes in memory using fake (negative)
// file IDs. It implements DataStore so workers can write to it without
// knowing whether they're hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
// ReportByHash checks the buffer first and then falls through to the
// underlying Store, which is safe for concurrent reads.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	Reports []Report
	Files   []File

	byHash     map[string]int // index into Reports
	nextFakeID int64          // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		byHash:     make(map[string]int),
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

// PutReport buffers r. A later report for the same hash replaces the
// earlier one.
func (b *BatchedStore) PutReport(r *Report) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i, ok := b.byHash[r.Hash]; ok {
		b.Reports[i] = *r
		return nil
	}
	b.byHash[r.Hash] = len(b.Reports)
	b.Reports = append(b.Reports, *r)
	return nil
}

func (b *BatchedStore) UpsertFile(f *File) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	f.ID = fakeID
	b.Files = append(b.Files, *f)
	return fakeID, nil
}

// ReportByHash returns a buffered report if one exists, otherwise the
// committed one.
func (b *BatchedStore) ReportByHash(hash string) (*Report, error) {
	b.mu.Lock()
	if i, ok := b.byHash[hash]; ok {
		r := b.Reports[i]
		b.mu.Unlock()
		return &r, nil
	}
	b.mu.Unlock()
	if b.store == nil {
		return nil, nil
	}
	return b.store.ReportByHash(hash)
}

// Len returns the number of buffered file records.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Files)
}
