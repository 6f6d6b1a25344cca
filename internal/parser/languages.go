package parser

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Dialect selects the grammar used to parse a file.
type Dialect string

const (
	TypeScript Dialect = "typescript"
	TSX        Dialect = "tsx"
)

// extToDialect maps file extensions to dialects.
var extToDialect = map[string]Dialect{
	".ts":  TypeScript,
	".mts": TypeScript,
	".cts": TypeScript,
	".tsx": TSX,
}

// Lazily initialized on first call via sync.Once.
var (
	dialectToGrammar map[Dialect]*sitter.Language
	grammarsOnce     sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		dialectToGrammar = map[Dialect]*sitter.Language{
			TypeScript: ts.GetLanguage(),
			TSX:        tsx.GetLanguage(),
		}
	})
}

// DialectForFile returns the dialect conventionally used for a file path's
// extension. Returns ("", false) if the extension is not recognized. It
// selects which files are TypeScript sources; the analyzer does not use it
// to pick a grammar.
func DialectForFile(path string) (Dialect, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	d, ok := extToDialect[ext]
	return d, ok
}

// GrammarFor returns the tree-sitter Language for a dialect.
func GrammarFor(d Dialect) (*sitter.Language, bool) {
	initGrammars()
	l, ok := dialectToGrammar[d]
	return l, ok
}
