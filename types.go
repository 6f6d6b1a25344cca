package tsfeatures

import (
	"github.com/jward/tsfeatures/internal/features"
	"github.com/jward/tsfeatures/internal/parser"
	"github.com/jward/tsfeatures/internal/store"
)

// Public type aliases for internal types used in the Analyzer and
// QueryBuilder APIs.

type FeatureSet = features.Set
type RuleSet = features.RuleSet
type Dialect = parser.Dialect
type Store = store.Store
type File = store.File
type FeatureCount = store.FeatureCount

const (
	TypeScript = parser.TypeScript
	TSX        = parser.TSX
)
