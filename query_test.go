package tsfeatures

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tsfeatures/internal/features"
)

func collectedEngine(t *testing.T) *Engine {
	t.Helper()
	root := writeTree(t, sampleTree)
	e := newTestEngine(t)
	_, err := e.CollectDirectory(context.Background(), root)
	require.NoError(t, err)
	return e
}

func TestQuery_FileReportUnknownPath(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	rep, err := e.Query().FileReport("never/collected.ts")
	require.NoError(t, err)
	assert.Nil(t, rep)
}

func TestQuery_FilesWithFeatures(t *testing.T) {
	t.Parallel()
	q := collectedEngine(t).Query()

	paths, err := q.FilesWithFeatures(features.AccessorKeyword)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/app.ts", "src/copy/app.ts"}, paths)

	paths, err = q.FilesWithFeatures(features.AccessorKeyword, features.SatisfiesExpression)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestQuery_FilesWithUnknownFeature(t *testing.T) {
	t.Parallel()
	q := newTestEngine(t).Query()
	_, err := q.FilesWithFeatures("Decorators")
	require.ErrorIs(t, err, ErrUnknownFeature)
}

func TestQuery_DirectoryFeatures(t *testing.T) {
	t.Parallel()
	q := collectedEngine(t).Query()

	all, err := q.DirectoryFeatures("")
	require.NoError(t, err)
	assert.Equal(t, features.Set{
		features.AccessorKeyword:        true,
		features.SatisfiesExpression:    true,
		features.ShortCircuitAssignment: true,
	}, all)

	view, err := q.DirectoryFeatures("src/view/")
	require.NoError(t, err)
	assert.Equal(t, features.Set{features.ShortCircuitAssignment: true}, view)

	// "src/vie" is a prefix of a directory name, not a directory.
	none, err := q.DirectoryFeatures("src/vie")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQuery_Summary(t *testing.T) {
	t.Parallel()
	q := collectedEngine(t).Query()

	s, err := q.Summary()
	require.NoError(t, err)
	assert.Equal(t, 5, s.Files)
	assert.Equal(t, 4, s.WithFeature)
	require.Len(t, s.Adoption, len(features.Default.Catalog()))

	byName := make(map[string]Adoption)
	for _, a := range s.Adoption {
		byName[a.Feature] = a
	}
	assert.Equal(t, 2, byName[features.AccessorKeyword].Files)
	assert.InDelta(t, 0.4, byName[features.AccessorKeyword].Ratio, 1e-9)
	assert.Equal(t, "4.9", byName[features.AccessorKeyword].Release.Version)
	assert.Zero(t, byName[features.NamedTupleMember].Files)
	assert.Equal(t, features.Default.Catalog()[0], s.Adoption[0].Feature)
}

func TestQuery_SummaryEmpty(t *testing.T) {
	t.Parallel()
	s, err := newTestEngine(t).Query().Summary()
	require.NoError(t, err)
	assert.Zero(t, s.Files)
	for _, a := range s.Adoption {
		assert.Zero(t, a.Ratio)
	}
}

func TestQuery_ExportCSV(t *testing.T) {
	t.Parallel()
	q := collectedEngine(t).Query()

	var buf bytes.Buffer
	require.NoError(t, q.ExportCSV(&buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 6)

	catalog := features.Default.Catalog()
	assert.Equal(t, append([]string{"path"}, catalog...), rows[0])

	col := -1
	for i, name := range rows[0] {
		if name == features.AccessorKeyword {
			col = i
		}
	}
	require.Positive(t, col)
	for _, row := range rows[1:] {
		want := "0"
		if row[0] == "src/app.ts" || row[0] == "src/copy/app.ts" {
			want = "1"
		}
		assert.Equal(t, want, row[col], row[0])
	}
}
