package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func testReport(hash string, features ...string) *Report {
	return &Report{
		Hash:        hash,
		Version:     2,
		ProcessTime: 1234,
		Features:    features,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

// scanFile records path as scanned with the given hash.
func scanFile(t *testing.T, s *Store, path, hash string) *File {
	t.Helper()
	f := &File{Path: path, Dialect: "typescript", Hash: hash, Size: 42, ScannedAt: time.Now().UTC().Truncate(time.Second)}
	id, err := s.UpsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)
	return f
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"reports", "report_features", "files", "metadata"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

// =============================================================================
// Reports
// =============================================================================

func TestReport_PutAndRetrieve(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	want := testReport("h1", "NamedTupleMember", "AccessorKeyword")
	want.HasErrors = true
	require.NoError(t, s.PutReport(want))

	got, err := s.ReportByHash("h1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, int64(1234), got.ProcessTime)
	assert.True(t, got.HasErrors)
	assert.Equal(t, []string{"AccessorKeyword", "NamedTupleMember"}, got.Features)
	assert.WithinDuration(t, want.CreatedAt, got.CreatedAt, time.Second)
	assert.True(t, got.Has("AccessorKeyword"))
	assert.False(t, got.Has("SatisfiesExpression"))
}

func TestReport_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	got, err := s.ReportByHash("missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReport_ReplaceSameHash(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.PutReport(testReport("h1", "StaticBlockInClass", "OverrideOnClassMethod")))
	require.NoError(t, s.PutReport(testReport("h1", "TemplateLiteralType")))

	got, err := s.ReportByHash("h1")
	require.NoError(t, err)
	assert.Equal(t, []string{"TemplateLiteralType"}, got.Features)
}

func TestReport_NoFeatures(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.PutReport(testReport("empty")))

	got, err := s.ReportByHash("empty")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Features)
}

func TestReport_Prune(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.PutReport(testReport("kept", "NamedTupleMember")))
	require.NoError(t, s.PutReport(testReport("orphan", "AccessorKeyword")))
	scanFile(t, s, "a.ts", "kept")

	n, err := s.PruneReports()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.ReportByHash("orphan")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Feature rows cascade with their report.
	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM report_features WHERE hash = 'orphan'").Scan(&count))
	assert.Zero(t, count)
}

// =============================================================================
// Files
// =============================================================================

func TestFile_UpsertAndRetrieve(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := scanFile(t, s, "src/a.ts", "h1")

	got, err := s.FileByPath("src/a.ts")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, "typescript", got.Dialect)
	assert.Equal(t, "h1", got.Hash)
	assert.Equal(t, int64(42), got.Size)
}

func TestFile_ByPathNotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	got, err := s.FileByPath("nope.ts")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFile_UpsertKeepsID(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	first := scanFile(t, s, "a.ts", "h1")
	second := scanFile(t, s, "a.ts", "h2")
	assert.Equal(t, first.ID, second.ID)

	got, err := s.FileByPath("a.ts")
	require.NoError(t, err)
	assert.Equal(t, "h2", got.Hash)

	n, err := s.FileCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFile_ListAndDelete(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	scanFile(t, s, "b.ts", "h")
	scanFile(t, s, "a.ts", "h")

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.ts", files[0].Path)
	assert.Equal(t, "b.ts", files[1].Path)

	require.NoError(t, s.DeleteFile("a.ts"))
	files, err = s.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "b.ts", files[0].Path)
}

// =============================================================================
// Aggregates
// =============================================================================

func TestFileReports_JoinsReports(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.PutReport(testReport("h1", "SatisfiesExpression")))
	scanFile(t, s, "a.ts", "h1")
	scanFile(t, s, "b.ts", "unreported")

	frs, err := s.FileReports()
	require.NoError(t, err)
	require.Len(t, frs, 2)

	require.NotNil(t, frs[0].Report)
	assert.Equal(t, []string{"SatisfiesExpression"}, frs[0].Report.Features)
	assert.Equal(t, 2, frs[0].Report.Version)
	assert.Nil(t, frs[1].Report)
}

func TestFeatureCounts_CountsFilesNotReports(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.PutReport(testReport("h1", "AccessorKeyword", "NamedTupleMember")))
	require.NoError(t, s.PutReport(testReport("h2", "AccessorKeyword")))
	// Two files share h1.
	scanFile(t, s, "a.ts", "h1")
	scanFile(t, s, "copy.ts", "h1")
	scanFile(t, s, "b.ts", "h2")

	counts, err := s.FeatureCounts()
	require.NoError(t, err)
	assert.Equal(t, []FeatureCount{
		{Feature: "AccessorKeyword", Files: 3},
		{Feature: "NamedTupleMember", Files: 2},
	}, counts)
}

func TestFilesWithFeatures(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.PutReport(testReport("h1", "AccessorKeyword", "NamedTupleMember")))
	require.NoError(t, s.PutReport(testReport("h2", "AccessorKeyword")))
	scanFile(t, s, "b.ts", "h1")
	scanFile(t, s, "a.ts", "h2")

	paths, err := s.FilesWithFeatures("AccessorKeyword")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ts", "b.ts"}, paths)

	paths, err = s.FilesWithFeatures("AccessorKeyword", "NamedTupleMember", "AccessorKeyword")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.ts"}, paths)

	paths, err = s.FilesWithFeatures()
	require.NoError(t, err)
	assert.Empty(t, paths)
}

// =============================================================================
// Metadata
// =============================================================================

func TestMetadata_RoundTripAndMissing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.Metadata("root")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetMetadata("root", "/repo"))
	require.NoError(t, s.SetMetadata("root", "/other"))
	v, err := s.Metadata("root")
	require.NoError(t, err)
	assert.Equal(t, "/other", v)
}

func TestContentHash(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ContentHash(nil))
	assert.NotEqual(t, ContentHash([]byte("a")), ContentHash([]byte("b")))
}

func TestReset_KeepsMetadata(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.PutReport(testReport("h1", "AccessorKeyword")))
	scanFile(t, s, "a.ts", "h1")
	require.NoError(t, s.SetMetadata("catalog_hash", "x"))

	require.NoError(t, s.Reset())

	n, err := s.FileCount()
	require.NoError(t, err)
	assert.Zero(t, n)
	got, err := s.ReportByHash("h1")
	require.NoError(t, err)
	assert.Nil(t, got)
	v, err := s.Metadata("catalog_hash")
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}
