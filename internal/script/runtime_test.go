package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tsfeatures/internal/store"
	"github.com/jward/tsfeatures/scripts"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

// seed records files with the given features, one report per file.
func seed(t *testing.T, s *store.Store, files map[string][]string) {
	t.Helper()
	now := time.Now()
	for path, feats := range files {
		hash := store.ContentHash([]byte(path))
		require.NoError(t, s.PutReport(&store.Report{Hash: hash, Version: 2, Features: feats, CreatedAt: now}))
		_, err := s.UpsertFile(&store.File{Path: path, Dialect: "typescript", Hash: hash, ScannedAt: now})
		require.NoError(t, err)
	}
}

func TestRunSource_Globals(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, "", WithCatalog([]string{"A", "B"}), WithVersion(2))

	res, err := rt.RunSource(context.Background(), `
emit("files", len(files))
emit("catalog", catalog)
emit("version", version)
`, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"files", "catalog", "version"}, res.Keys)

	v, ok := res.Get("files")
	require.True(t, ok)
	assert.EqualValues(t, 0, v)
	v, _ = res.Get("catalog")
	assert.Equal(t, []any{"A", "B"}, v)
	v, _ = res.Get("version")
	assert.EqualValues(t, 2, v)
}

func TestRunSource_EmitTwiceKeepsFirstPosition(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, "")
	res, err := rt.RunSource(context.Background(), `
emit("a", 1)
emit("b", 2)
emit("a", 3)
`, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.Keys)
	v, _ := res.Get("a")
	assert.EqualValues(t, 3, v)
}

func TestRunSource_ExtraGlobals(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, "")
	res, err := rt.RunSource(context.Background(), `emit("out", threshold + 1)`, map[string]any{
		"threshold": 41,
	})
	require.NoError(t, err)
	v, _ := res.Get("out")
	assert.EqualValues(t, 42, v)
}

func TestRunSource_SyntaxError(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, "")
	_, err := rt.RunSource(context.Background(), `emit("x", `, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "<inline>")
}

func TestRunSource_EmitArgsError(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, "")
	_, err := rt.RunSource(context.Background(), `emit("only-key")`, nil)
	require.Error(t, err)
}

func TestRunSource_FilesFromStore(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	seed(t, s, map[string][]string{
		"a.ts": {"AccessorKeyword"},
		"b.ts": {},
	})
	rt := NewRuntime(s, "")

	res, err := rt.RunSource(context.Background(), `
hits := []
for i := 0; i < len(files); i++ {
    if has_feature(files[i], "AccessorKeyword") {
        hits.append(files[i]["path"])
    }
}
emit("hits", hits)
`, nil)
	require.NoError(t, err)
	v, _ := res.Get("hits")
	assert.Equal(t, []any{"a.ts"}, v)
}

func TestRunSource_DBQuery(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	seed(t, s, map[string][]string{"a.ts": {"NamedTupleMember", "AccessorKeyword"}})
	rt := NewRuntime(s, "")

	res, err := rt.RunSource(context.Background(), `
rows := db_query("SELECT COUNT(*) AS n FROM report_features WHERE feature = ?", "NamedTupleMember")
emit("n", rows[0]["n"])
`, nil)
	require.NoError(t, err)
	v, _ := res.Get("n")
	assert.EqualValues(t, 1, v)

	_, err = rt.RunSource(context.Background(), `db_query("DELETE FROM files")`, nil)
	require.Error(t, err)
}

func TestRunSource_IntroducedIn(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, "")
	res, err := rt.RunSource(context.Background(), `
emit("sat", introduced_in("SatisfiesExpression")["version"])
emit("missing", introduced_in("Decorators"))
`, nil)
	require.NoError(t, err)
	v, _ := res.Get("sat")
	assert.Equal(t, "4.9", v)
	v, _ = res.Get("missing")
	assert.Nil(t, v)
}

func TestRunScript_FromDisk(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "count.risor"), []byte(`emit("n", len(catalog))`), 0o644))

	rt := NewRuntime(nil, dir, WithCatalog([]string{"X"}))
	res, err := rt.RunScript(context.Background(), "count.risor", nil)
	require.NoError(t, err)
	v, _ := res.Get("n")
	assert.EqualValues(t, 1, v)

	_, err = rt.RunScript(context.Background(), "missing.risor", nil)
	require.Error(t, err)
}

func TestRunScript_FromFS(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{"hello.risor": {Data: []byte(`emit("hello", "world")`)}}
	rt := NewRuntime(nil, "", WithRuntimeFS(fsys))

	res, err := rt.RunScript(context.Background(), "/hello.risor", nil)
	require.NoError(t, err)
	v, _ := res.Get("hello")
	assert.Equal(t, "world", v)
}

func TestRunScript_BundledSummary(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	seed(t, s, map[string][]string{
		"a.ts": {"AccessorKeyword", "SatisfiesExpression"},
		"b.ts": {"AccessorKeyword"},
		"c.ts": {},
	})
	rt := NewRuntime(s, "", WithRuntimeFS(scripts.FS), WithVersion(2))

	res, err := rt.RunScript(context.Background(), scripts.Summary, nil)
	require.NoError(t, err)

	v, _ := res.Get("files")
	assert.EqualValues(t, 3, v)
	v, _ = res.Get("with_errors")
	assert.EqualValues(t, 0, v)

	v, ok := res.Get("AccessorKeyword")
	require.True(t, ok)
	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, m["files"])
	assert.Equal(t, "4.9", m["release"])

	v, _ = res.Get("NamedTupleMember")
	m = v.(map[string]any)
	assert.EqualValues(t, 0, m["files"])

	// One key per catalog feature plus the two totals.
	assert.Len(t, res.Keys, 15)
}
