// Package tsfeatures reports which advanced TypeScript syntax constructs a
// source file uses.
//
// # Pipeline
//
// A request carries a filename and the file's contents. The [Analyzer]
// parses the contents with tree-sitter, walks every node of the resulting
// tree once in pre-order and tests it against the feature rule set. The
// answer is a [Report]: a schema version, the parse-and-walk time in
// nanoseconds, and the set of features that were seen.
//
//	a := tsfeatures.NewAnalyzer()
//	rep, err := a.Analyze(ctx, tsfeatures.Request{
//		Filename:     "app.ts",
//		FileContents: "const cfg = {} satisfies Config;",
//	})
//	// rep.Features == {"SatisfiesExpression": true}
//
// Only detected features appear in Report.Features; an absent name means
// the feature was not found.
//
// # Collection
//
// An [Engine] applies the analyzer to every TypeScript file under a
// directory and caches the reports in SQLite, keyed by content hash, so
// unchanged files are not parsed again:
//
//	e, err := tsfeatures.New("tsfeatures.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	stats, err := e.CollectDirectory(ctx, "path/to/project")
//	sum, err := e.Query().Summary()
//
// The [QueryBuilder] returned by [Engine.Query] looks up single files,
// lists files using a set of features, merges features per directory and
// exports the results as CSV. [Engine.Watch] keeps the cache current while
// files are edited.
package tsfeatures
