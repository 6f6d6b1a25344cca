package tsfeatures

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tsfeatures/internal/features"
)

func analyze(t *testing.T, filename, src string) Report {
	t.Helper()
	rep, err := NewAnalyzer().Analyze(context.Background(), Request{Filename: filename, FileContents: src})
	require.NoError(t, err)
	require.NotNil(t, rep.Features)
	assert.Equal(t, SchemaVersion, rep.Version)
	assert.GreaterOrEqual(t, rep.ProcessTime, int64(0))
	return rep
}

func TestAnalyze_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want features.Set
	}{
		{"plain declaration", "const x: number = 1;", features.Set{}},
		{"accessor keyword", "class C { accessor x = 1; }", features.Set{features.AccessorKeyword: true}},
		{"short-circuit assignment", "x ??= y;", features.Set{features.ShortCircuitAssignment: true}},
		{
			"override and type-only import",
			"import { type Base } from './base';\nclass C extends Base { override run(): void {} }",
			features.Set{features.OverrideOnClassMethod: true, features.TypeModifierOnImportName: true},
		},
		{"empty source", "", features.Set{}},
		{"satisfies", "export default { port: 1 } satisfies Options;", features.Set{features.SatisfiesExpression: true}},
		{"static block", "class Registry { static { Registry.init(); } }", features.Set{features.StaticBlockInClass: true}},
		{"template literal type", "type EventName<T extends string> = `${T}Changed`;", features.Set{features.TemplateLiteralType: true}},
		{"named tuple", "type Range = [start: number, end: number];", features.Set{features.NamedTupleMember: true}},
		{"abstract construct signature", "type Ctor = abstract new () => object;", features.Set{features.AbstractConstructSignature: true}},
		{
			"extends constraint on infer",
			"type First<T> = T extends [infer U extends string, ...unknown[]] ? U : never;",
			features.Set{features.ExtendsConstraintOnInfer: true},
		},
		{
			"remapped mapped type",
			"type Getters<T> = { [K in keyof T as `get${string & K}`]: () => T[K] };",
			features.Set{features.RemappedNameInMappedType: true, features.TemplateLiteralType: true},
		},
		{"import assert", "import cfg from './cfg.json' assert { type: 'json' };", features.Set{features.ImportAssertion: true}},
		{"import with", "import cfg from './cfg.json' with { type: 'json' };", features.Set{features.ImportAssertion: true}},
		{"variance in", "interface Sink<in T> { put(v: T): void }", features.Set{features.VarianceAnnotationsOnTypeParameter: true}},
		{"variance out", "interface Source<out T> { get(): T }", features.Set{features.VarianceAnnotationsOnTypeParameter: true}},
		{"variance in out", "type Fn<in out T> = (t: T) => T;", features.Set{features.VarianceAnnotationsOnTypeParameter: true}},

		{"property named accessor", "class C { accessor = 1; }", features.Set{}},
		{"mapped type without as", "type Copy<T> = { [K in keyof T]: T[K] };", features.Set{}},
		{"infer without constraint", "type Elem<T> = T extends (infer E)[] ? E : never;", features.Set{}},
		{"construct signature without abstract", "type Ctor = new () => object;", features.Set{}},
		{"plain import", "import cfg from './cfg';", features.Set{}},
		{"plain assignment", "x = y || z;", features.Set{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rep := analyze(t, "input.ts", tt.src)
			assert.Equal(t, tt.want, rep.Features)
		})
	}
}

func TestAnalyze_BenchSourceUsesWholeCatalog(t *testing.T) {
	t.Parallel()
	rep := analyze(t, "bench.ts", benchSource)
	for _, name := range NewAnalyzer().Catalog() {
		assert.True(t, rep.Features.Has(name), name)
	}
}

func TestAnalyze_MalformedSourceStillReports(t *testing.T) {
	t.Parallel()
	rep := analyze(t, "broken.ts", "class { ??? ) => => let let let")
	assert.True(t, rep.HasErrors)
}

func TestAnalyze_MalformedSourceKeepsWellFormedParts(t *testing.T) {
	t.Parallel()
	rep := analyze(t, "partial.ts", "a ||= b;\nfunction (((( {")
	assert.True(t, rep.Features.Has(features.ShortCircuitAssignment))
}

func TestAnalyze_FileNameDoesNotSelectGrammar(t *testing.T) {
	t.Parallel()
	// A type assertion in TypeScript, a JSX element in TSX.
	src := "const v = <number>x; x ??= 1;"
	ts := analyze(t, "a.ts", src)
	tsx := analyze(t, "b.tsx", src)
	assert.False(t, tsx.HasErrors)
	assert.Equal(t, ts.Features, tsx.Features)
	assert.Equal(t, features.Set{features.ShortCircuitAssignment: true}, tsx.Features)
}

func TestAnalyze_WithDialectTSX(t *testing.T) {
	t.Parallel()
	a := NewAnalyzer(WithDialect(TSX))
	require.NoError(t, a.Err())
	assert.Equal(t, TSX, a.Dialect())

	rep, err := a.Analyze(context.Background(), Request{Filename: "view.ts", FileContents: "const v = <div>{a &&= b}</div>;"})
	require.NoError(t, err)
	assert.False(t, rep.HasErrors)
	assert.True(t, rep.Features.Has(features.ShortCircuitAssignment))
}

func TestAnalyze_UnsupportedDialect(t *testing.T) {
	t.Parallel()
	a := NewAnalyzer(WithDialect("coffeescript"))
	require.Error(t, a.Err())
	assert.Contains(t, a.Err().Error(), "coffeescript")

	_, err := a.Analyze(context.Background(), Request{Filename: "a.ts", FileContents: "x ??= y;"})
	require.Error(t, err)
}

func TestAnalyze_CustomRuleSet(t *testing.T) {
	t.Parallel()
	only := features.NewRuleSet([]features.Rule{features.DefaultRules[0]})
	a := NewAnalyzer(WithRuleSet(only))
	assert.Equal(t, []string{features.DefaultRules[0].Feature}, a.Catalog())

	rep, err := a.Analyze(context.Background(), Request{Filename: "a.ts", FileContents: "x ??= y;"})
	require.NoError(t, err)
	assert.Empty(t, rep.Features)
}

func TestAnalyze_Idempotent(t *testing.T) {
	t.Parallel()
	src := "class A { accessor v = 1; static { } }\ntype T = [a: string];"
	first := analyze(t, "a.ts", src)
	second := analyze(t, "a.ts", src)
	assert.Equal(t, first.Features, second.Features)
}

func TestAnalyze_Concurrent(t *testing.T) {
	t.Parallel()
	a := NewAnalyzer()
	srcs := []string{"x ??= y;", "class C { accessor x = 1; }", "const x = 1;"}
	want := []features.Set{
		{features.ShortCircuitAssignment: true},
		{features.AccessorKeyword: true},
		{},
	}

	var wg sync.WaitGroup
	got := make([]features.Set, 30)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rep, err := a.Analyze(context.Background(), Request{Filename: "c.ts", FileContents: srcs[i%3]})
			if assert.NoError(t, err) {
				got[i] = rep.Features
			}
		}()
	}
	wg.Wait()
	for i := range got {
		assert.Equal(t, want[i%3], got[i])
	}
}

func TestReport_WireFormat(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Report{
		Version:     SchemaVersion,
		ProcessTime: 1500,
		Features:    features.Set{features.AccessorKeyword: true},
		HasErrors:   true,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":2,"processTime":1500,"features":{"AccessorKeyword":true}}`, string(data))

	empty := analyze(t, "e.ts", "")
	data, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"features":{}`)
}

func TestRequest_WireFormat(t *testing.T) {
	t.Parallel()
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"filename":"a.ts","fileContents":"let a;"}`), &req))
	assert.Equal(t, Request{Filename: "a.ts", FileContents: "let a;"}, req)
}
