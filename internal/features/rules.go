// Package features detects which catalogued TypeScript syntax features a
// syntax tree uses.
//
// The catalog is a static table of rules. Each rule names a feature, the
// node kind it applies to, and an optional predicate over that single node.
// Walk visits every node once and consults only the rules registered for
// the node's kind, so adding a feature is adding one Rule to the table.
package features

import "github.com/jward/tsfeatures/internal/syntax"

// Feature names. These are wire-level identifiers; never rename one.
const (
	SatisfiesExpression                = "SatisfiesExpression"
	AccessorKeyword                    = "AccessorKeyword"
	ExtendsConstraintOnInfer           = "ExtendsConstraintOnInfer"
	VarianceAnnotationsOnTypeParameter = "VarianceAnnotationsOnTypeParameter"
	TypeModifierOnImportName           = "TypeModifierOnImportName"
	ImportAssertion                    = "ImportAssertion"
	StaticBlockInClass                 = "StaticBlockInClass"
	OverrideOnClassMethod              = "OverrideOnClassMethod"
	AbstractConstructSignature         = "AbstractConstructSignature"
	TemplateLiteralType                = "TemplateLiteralType"
	RemappedNameInMappedType           = "RemappedNameInMappedType"
	NamedTupleMember                   = "NamedTupleMember"
	ShortCircuitAssignment             = "ShortCircuitAssignment"
)

// Rule pairs a node shape with the feature it indicates. A nil Match means
// every node of Kind is an occurrence.
type Rule struct {
	Feature string
	Kind    syntax.Kind
	Match   func(*syntax.Node) bool
}

// Matches reports whether n is an occurrence of the rule's feature.
func (r Rule) Matches(n *syntax.Node) bool {
	if n.Kind() != r.Kind {
		return false
	}
	return r.Match == nil || r.Match(n)
}

// DefaultRules is the feature catalog, in the order features were added to
// the language.
var DefaultRules = []Rule{
	{Feature: NamedTupleMember, Kind: syntax.KindNamedTupleMember},
	{Feature: ShortCircuitAssignment, Kind: syntax.KindBinaryExpression, Match: isShortCircuitAssignment},
	{Feature: TemplateLiteralType, Kind: syntax.KindTemplateLiteralType},
	{Feature: RemappedNameInMappedType, Kind: syntax.KindMappedType, Match: hasNameType},
	{Feature: AbstractConstructSignature, Kind: syntax.KindConstructorType, Match: modifier(syntax.TokenAbstract)},
	{Feature: OverrideOnClassMethod, Kind: syntax.KindMethodDeclaration, Match: modifier(syntax.TokenOverride)},
	{Feature: StaticBlockInClass, Kind: syntax.KindClassStaticBlock},
	{Feature: TypeModifierOnImportName, Kind: syntax.KindImportSpecifier, Match: (*syntax.Node).TypeOnly},
	{Feature: ImportAssertion, Kind: syntax.KindImportDeclaration, Match: hasAttributes},
	{Feature: ExtendsConstraintOnInfer, Kind: syntax.KindInferType, Match: inferHasConstraint},
	{Feature: VarianceAnnotationsOnTypeParameter, Kind: syntax.KindTypeParameter, Match: modifier(syntax.TokenIn, syntax.TokenOut)},
	{Feature: SatisfiesExpression, Kind: syntax.KindSatisfiesExpression},
	{Feature: AccessorKeyword, Kind: syntax.KindPropertyDeclaration, Match: modifier(syntax.TokenAccessor)},
}

func modifier(toks ...syntax.Token) func(*syntax.Node) bool {
	return func(n *syntax.Node) bool {
		return n.HasModifier(toks...)
	}
}

func isShortCircuitAssignment(n *syntax.Node) bool {
	switch n.Operator() {
	case syntax.TokenQuestionQuestionEquals, syntax.TokenBarBarEquals, syntax.TokenAmpersandAmpersandEquals:
		return true
	}
	return false
}

func hasNameType(n *syntax.Node) bool {
	_, ok := n.NameType()
	return ok
}

func hasAttributes(n *syntax.Node) bool {
	_, ok := n.Attributes()
	return ok
}

func inferHasConstraint(n *syntax.Node) bool {
	tp, ok := n.TypeParameter()
	if !ok {
		return false
	}
	_, ok = tp.Constraint()
	return ok
}

// Catalog returns the distinct feature names of rules, in table order.
func Catalog(rules []Rule) []string {
	seen := make(map[string]bool, len(rules))
	var names []string
	for _, r := range rules {
		if !seen[r.Feature] {
			seen[r.Feature] = true
			names = append(names, r.Feature)
		}
	}
	return names
}

// RuleSet is a rule table indexed by node kind. It is immutable and safe to
// share across goroutines.
type RuleSet struct {
	byKind  [][]Rule
	catalog []string
}

// NewRuleSet indexes rules by kind. Rules with a kind outside the
// syntax enumeration are ignored.
func NewRuleSet(rules []Rule) *RuleSet {
	kinds := syntax.Kinds()
	rs := &RuleSet{
		byKind:  make([][]Rule, len(kinds)),
		catalog: Catalog(rules),
	}
	for _, r := range rules {
		if !r.Kind.Valid() {
			continue
		}
		rs.byKind[r.Kind] = append(rs.byKind[r.Kind], r)
	}
	return rs
}

// Default is the RuleSet built from DefaultRules.
var Default = NewRuleSet(DefaultRules)

// For returns the rules applicable to nodes of kind k.
func (rs *RuleSet) For(k syntax.Kind) []Rule {
	if !k.Valid() {
		return nil
	}
	return rs.byKind[k]
}

// Catalog returns the feature names the set can report.
func (rs *RuleSet) Catalog() []string {
	out := make([]string, len(rs.catalog))
	copy(out, rs.catalog)
	return out
}
