package tsfeatures

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jward/tsfeatures/internal/features"
	"github.com/jward/tsfeatures/internal/parser"
)

// SchemaVersion is the version of the report format.
const SchemaVersion = 2

const tracerName = "github.com/jward/tsfeatures"

// Request is one unit of work: a file name and the text to analyse.
type Request struct {
	Filename     string `json:"filename"`
	FileContents string `json:"fileContents"`
}

// Report is the result of analysing one request.
type Report struct {
	Version int `json:"version"`
	// ProcessTime is the parse and walk duration in nanoseconds.
	ProcessTime int64        `json:"processTime"`
	Features    features.Set `json:"features"`

	// HasErrors reports whether the parser recovered from syntax errors.
	// It is not part of the wire format.
	HasErrors bool `json:"-"`
}

// Analyzer turns requests into reports. It is safe for concurrent use.
type Analyzer struct {
	rules   *features.RuleSet
	dialect parser.Dialect
	parser  *parser.Parser
	err     error // unsupported dialect, reported by every analysis
	tracer  trace.Tracer
	logger  *slog.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithRuleSet replaces the default feature rule set.
func WithRuleSet(rs *features.RuleSet) AnalyzerOption {
	return func(a *Analyzer) {
		a.rules = rs
	}
}

// WithDialect selects the grammar every request is parsed with. The
// default is TypeScript; the request's file name never selects one.
func WithDialect(d parser.Dialect) AnalyzerOption {
	return func(a *Analyzer) {
		a.dialect = d
	}
}

// WithTracer sets the tracer used for analyze spans. When unset the global
// provider is used.
func WithTracer(t trace.Tracer) AnalyzerOption {
	return func(a *Analyzer) {
		a.tracer = t
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = l
	}
}

// NewAnalyzer returns an Analyzer using the default rule set.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{rules: features.Default, dialect: parser.TypeScript}
	for _, opt := range opts {
		opt(a)
	}
	a.parser, a.err = parser.New(a.dialect)
	if a.tracer == nil {
		a.tracer = otel.Tracer(tracerName)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Dialect returns the grammar the analyzer parses with.
func (a *Analyzer) Dialect() parser.Dialect {
	return a.dialect
}

// Err reports a configuration error, such as an unsupported dialect. An
// Analyzer with a non-nil Err fails every analysis.
func (a *Analyzer) Err() error {
	if a.err != nil {
		return fmt.Errorf("tsfeatures: analyzer: %w", a.err)
	}
	return nil
}

// Catalog returns the feature names the analyzer can report, in rule order.
func (a *Analyzer) Catalog() []string {
	return a.rules.Catalog()
}

// Analyze parses req.FileContents and reports the features it uses.
// Syntax errors in the contents do not fail the analysis; an error is
// returned only when parsing could not run at all.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (Report, error) {
	return a.AnalyzeBytes(ctx, req.Filename, []byte(req.FileContents))
}

// AnalyzeBytes is Analyze for contents already held as bytes.
func (a *Analyzer) AnalyzeBytes(ctx context.Context, filename string, src []byte) (Report, error) {
	ctx, span := a.tracer.Start(ctx, "analyze",
		trace.WithAttributes(
			attribute.String("tsfeatures.filename", filename),
			attribute.Int("tsfeatures.bytes", len(src)),
		),
	)
	defer span.End()

	if err := a.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Report{}, err
	}

	start := time.Now()
	file, err := a.parser.Parse(ctx, filename, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Report{}, fmt.Errorf("tsfeatures: analyze: %w", err)
	}
	found := features.Detect(file.Root, a.rules)
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.Int("tsfeatures.features", len(found)),
		attribute.Bool("tsfeatures.syntax_errors", file.HasErrors),
	)
	a.logger.DebugContext(ctx, "analyzed",
		"filename", filename,
		"dialect", string(a.dialect),
		"features", len(found),
		"syntax_errors", file.HasErrors,
		"duration", elapsed,
	)

	return Report{
		Version:     SchemaVersion,
		ProcessTime: elapsed.Nanoseconds(),
		Features:    found,
		HasErrors:   file.HasErrors,
	}, nil
}
