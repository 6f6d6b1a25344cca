// Package parser turns TypeScript source text into syntax trees using the
// tree-sitter TypeScript and TSX grammars.
//
// Parsing is error tolerant: malformed input still yields a tree, with the
// unrecognised regions represented as syntax.KindError nodes.
package parser

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/tsfeatures/internal/syntax"
)

// File is a parsed source file.
type File struct {
	// Name is the caller-supplied label; it is not interpreted.
	Name string
	Root *syntax.Node
	// HasErrors reports whether the grammar had to recover from errors.
	HasErrors bool
}

// Parser parses source text of one dialect. The zero value parses
// TypeScript. A Parser is safe for concurrent use; each call allocates its
// own tree-sitter parser.
type Parser struct {
	dialect Dialect
}

// New returns a Parser for the given dialect.
func New(d Dialect) (*Parser, error) {
	if _, ok := GrammarFor(d); !ok {
		return nil, fmt.Errorf("parser: unsupported dialect %q", d)
	}
	return &Parser{dialect: d}, nil
}

// Dialect returns the parser's dialect.
func (p *Parser) Dialect() Dialect {
	if p.dialect == "" {
		return TypeScript
	}
	return p.dialect
}

// Parse parses src. The returned error is non-nil only when tree-sitter
// could not run at all (cancelled context, missing grammar); syntax errors
// in src never fail the parse.
func (p *Parser) Parse(ctx context.Context, name string, src []byte) (*File, error) {
	lang, ok := GrammarFor(p.Dialect())
	if !ok {
		return nil, fmt.Errorf("parser: unsupported dialect %q", p.Dialect())
	}

	sp := sitter.NewParser()
	defer sp.Close()
	sp.SetLanguage(lang)

	tree, err := sp.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parser: %s: %w", name, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	return &File{
		Name:      name,
		Root:      (&converter{src: src}).convert(root, ""),
		HasErrors: root.HasError(),
	}, nil
}
