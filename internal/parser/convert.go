package parser

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/tsfeatures/internal/syntax"
)

// grammarKinds maps tree-sitter node types onto syntax kinds. Types not
// listed become syntax.KindOther; context-dependent types are handled in
// kindOf.
var grammarKinds = map[string]syntax.Kind{
	"program": syntax.KindSourceFile,
	"ERROR":   syntax.KindError,

	"identifier":          syntax.KindIdentifier,
	"type_identifier":     syntax.KindIdentifier,
	"property_identifier": syntax.KindIdentifier,

	"binary_expression":               syntax.KindBinaryExpression,
	"assignment_expression":           syntax.KindBinaryExpression,
	"augmented_assignment_expression": syntax.KindBinaryExpression,
	"satisfies_expression":            syntax.KindSatisfiesExpression,

	"class_declaration":          syntax.KindClassDeclaration,
	"abstract_class_declaration": syntax.KindClassDeclaration,
	"class":                      syntax.KindClassDeclaration,
	"class_body":                 syntax.KindClassBody,
	"class_static_block":         syntax.KindClassStaticBlock,
	"public_field_definition":    syntax.KindPropertyDeclaration,
	"field_definition":           syntax.KindPropertyDeclaration,
	"method_definition":          syntax.KindMethodDeclaration,
	"abstract_method_signature":  syntax.KindMethodDeclaration,

	"import_statement":  syntax.KindImportDeclaration,
	"import_specifier":  syntax.KindImportSpecifier,
	"import_attribute":  syntax.KindImportAttributes,
	"import_attributes": syntax.KindImportAttributes,
	"import_assertion":  syntax.KindImportAttributes,

	"type_parameter":           syntax.KindTypeParameter,
	"infer_type":               syntax.KindInferType,
	"constructor_type":         syntax.KindConstructorType,
	"template_literal_type":    syntax.KindTemplateLiteralType,
	"mapped_type_clause":       syntax.KindMappedType,
	"tuple_type":               syntax.KindTupleType,
	"tuple_parameter":          syntax.KindNamedTupleMember,
	"optional_tuple_parameter": syntax.KindNamedTupleMember,
}

func kindOf(typ, parent string) syntax.Kind {
	switch typ {
	case "method_signature":
		// Overload signatures inside a class body are method declarations;
		// interface members are not.
		if parent == "class_body" {
			return syntax.KindMethodDeclaration
		}
	case "required_parameter", "optional_parameter":
		// The grammar aliases labelled tuple elements to parameter nodes.
		if parent == "tuple_type" {
			return syntax.KindNamedTupleMember
		}
	}
	if k, ok := grammarKinds[typ]; ok {
		return k
	}
	return syntax.KindOther
}

// hasModifierList reports whether anonymous keyword children of a node of
// kind k are collected as modifiers.
func hasModifierList(k syntax.Kind) bool {
	switch k {
	case syntax.KindPropertyDeclaration, syntax.KindMethodDeclaration,
		syntax.KindTypeParameter, syntax.KindConstructorType:
		return true
	}
	return false
}

// converter builds syntax trees from tree-sitter nodes over one source
// buffer.
type converter struct {
	src []byte
}

func (c *converter) text(n *sitter.Node) string {
	return n.Content(c.src)
}

// nextNamed returns the first named child of n after index i and its
// index, or (nil, -1).
func nextNamed(n *sitter.Node, i int) (*sitter.Node, int) {
	count := int(n.ChildCount())
	for j := i + 1; j < count; j++ {
		if child := n.Child(j); child != nil && child.IsNamed() && !child.IsMissing() {
			return child, j
		}
	}
	return nil, -1
}

// modifierApplies reports whether the modifier at child i of n modifies
// the declaration. Error recovery can keep a keyword that was written as a
// member name (`accessor = 1;`); such keywords are not modifiers.
func modifierApplies(n *sitter.Node, i int, kind syntax.Kind) bool {
	if next, _ := nextNamed(n, i); next != nil && next.Type() == "ERROR" {
		return false
	}
	switch kind {
	case syntax.KindPropertyDeclaration, syntax.KindMethodDeclaration:
		name := n.ChildByFieldName("name")
		if name == nil || name.IsMissing() || name.Type() == "ERROR" || name.StartByte() == name.EndByte() {
			return false
		}
		return name.StartByte() >= n.Child(i).EndByte()
	}
	return true
}

// isAssertClause reports whether n is the error region tree-sitter leaves
// for an `assert { ... }` import clause, which the grammar does not know.
func (c *converter) isAssertClause(n *sitter.Node) bool {
	if n == nil || n.Type() != "ERROR" || n.ChildCount() == 0 {
		return false
	}
	first := n.Child(0)
	return first != nil && c.text(first) == "assert"
}

func (c *converter) assertClause(n *sitter.Node) *syntax.Node {
	return syntax.New(syntax.KindImportAttributes,
		syntax.WithType("import_assertion"),
		syntax.WithChildren(c.namedChildren(n, "import_assertion")...),
	)
}

func (c *converter) namedChildren(n *sitter.Node, parent string) []*syntax.Node {
	var out []*syntax.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child != nil && !child.IsMissing() {
			out = append(out, c.convert(child, parent))
		}
	}
	return out
}

// convert builds the syntax subtree for n. Missing (zero-width, inserted by
// error recovery) nodes are dropped. extra options are applied last.
func (c *converter) convert(n *sitter.Node, parent string, extra ...syntax.Option) *syntax.Node {
	typ := n.Type()
	kind := kindOf(typ, parent)

	if typ == "type_parameters" {
		return syntax.New(kind,
			syntax.WithType(typ),
			syntax.WithChildren(c.typeParameterList(n)...),
		)
	}

	var (
		children   []*syntax.Node
		mods       []syntax.Token
		operator   syntax.Token
		typeOnly   bool
		constraint *syntax.Node
		nameType   *syntax.Node
		attributes *syntax.Node

		sawAs      bool
		sawExtends bool
	)

	skip := -1
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(i)
		if child == nil || child.IsMissing() || i == skip {
			continue
		}
		ctyp := child.Type()

		if !child.IsNamed() {
			switch {
			case ctyp == "as":
				sawAs = true
			case ctyp == "extends":
				sawExtends = true
			case kind == syntax.KindImportSpecifier && ctyp == "type":
				typeOnly = true
			case kind == syntax.KindBinaryExpression && operator == syntax.TokenUnknown:
				if tok, ok := syntax.LookupOperator(ctyp); ok {
					operator = tok
				}
			case hasModifierList(kind):
				if tok, ok := syntax.LookupModifier(ctyp); ok && modifierApplies(n, i, kind) {
					mods = append(mods, tok)
				}
			}
			continue
		}

		var conv *syntax.Node
		switch {
		case kind == syntax.KindImportDeclaration && c.isAssertClause(child):
			conv = c.assertClause(child)
		case ctyp == "import_statement":
			// The assert clause can also be left as a sibling of the
			// statement it belongs to.
			if next, j := nextNamed(n, i); c.isAssertClause(next) {
				clause := c.assertClause(next)
				conv = c.convert(child, typ, syntax.WithChildren(clause), syntax.WithAttributes(clause))
				skip = j
			} else {
				conv = c.convert(child, typ)
			}
		default:
			conv = c.convert(child, typ)
		}
		children = append(children, conv)

		switch {
		case hasModifierList(kind) && ctyp == "override_modifier":
			if modifierApplies(n, i, kind) {
				mods = append(mods, syntax.TokenOverride)
			}
		case hasModifierList(kind) && ctyp == "accessibility_modifier":
			if kw := child.Child(0); kw != nil && modifierApplies(n, i, kind) {
				if tok, ok := syntax.LookupModifier(kw.Type()); ok {
					mods = append(mods, tok)
				}
			}
		case kind == syntax.KindTypeParameter && ctyp == "constraint":
			constraint = conv
		case kind == syntax.KindInferType && sawExtends && constraint == nil:
			constraint = conv
		case kind == syntax.KindMappedType && sawAs && nameType == nil:
			nameType = conv
		case kind == syntax.KindImportDeclaration && conv.Kind() == syntax.KindImportAttributes:
			attributes = conv
		}
	}

	if kind == syntax.KindInferType {
		return inferType(typ, children, constraint)
	}

	opts := []syntax.Option{
		syntax.WithType(typ),
		syntax.WithChildren(children...),
	}
	if len(mods) > 0 {
		opts = append(opts, syntax.WithModifiers(mods...))
	}
	if operator != syntax.TokenUnknown {
		opts = append(opts, syntax.WithOperator(operator))
	}
	if typeOnly {
		opts = append(opts, syntax.WithTypeOnly(true))
	}
	if constraint != nil {
		opts = append(opts, syntax.WithConstraint(constraint))
	}
	if nameType != nil {
		opts = append(opts, syntax.WithNameType(nameType))
	}
	if attributes != nil {
		opts = append(opts, syntax.WithAttributes(attributes))
	}
	opts = append(opts, extra...)
	return syntax.New(kind, opts...)
}

// typeParameterList converts the entries of a type parameter list. The
// grammar has no variance annotations: `<in T>` arrives as a parameter
// named `in` followed by an ERROR holding T, and `in out` may be split
// across both. The keywords are reattached to the parameter they precede.
func (c *converter) typeParameterList(n *sitter.Node) []*syntax.Node {
	var (
		out     []*syntax.Node
		pending []syntax.Token
	)
	named := int(n.NamedChildCount())
	for i := 0; i < named; i++ {
		child := n.NamedChild(i)
		if child == nil || child.IsMissing() {
			continue
		}
		switch child.Type() {
		case "type_parameter":
			if tok, ok := c.varianceName(child); ok && i+1 < named && n.NamedChild(i+1).Type() == "ERROR" {
				pending = append(pending, tok)
				continue
			}
			if len(pending) > 0 {
				out = append(out, c.convert(child, "type_parameters", syntax.WithModifiers(pending...)))
				pending = nil
				continue
			}
			out = append(out, c.convert(child, "type_parameters"))
		case "ERROR":
			toks, rest := c.splitVariance(child)
			pending = append(pending, toks...)
			switch {
			case len(pending) > 0 && len(rest) > 0:
				out = append(out, syntax.New(syntax.KindTypeParameter,
					syntax.WithType("type_parameter"),
					syntax.WithModifiers(pending...),
					syntax.WithChildren(rest...),
				))
				pending = nil
			case len(toks) == 0:
				out = append(out, c.convert(child, "type_parameters"))
			}
		default:
			out = append(out, c.convert(child, "type_parameters"))
		}
	}
	return out
}

func varianceToken(s string) (syntax.Token, bool) {
	switch s {
	case "in":
		return syntax.TokenIn, true
	case "out":
		return syntax.TokenOut, true
	}
	return syntax.TokenUnknown, false
}

// varianceName reports whether tp is a bare type parameter named `in` or
// `out`.
func (c *converter) varianceName(tp *sitter.Node) (syntax.Token, bool) {
	if tp.NamedChildCount() != 1 {
		return syntax.TokenUnknown, false
	}
	return varianceToken(c.text(tp.NamedChild(0)))
}

// splitVariance separates the leading `in`/`out` identifiers of an error
// region from the nodes after them.
func (c *converter) splitVariance(n *sitter.Node) ([]syntax.Token, []*syntax.Node) {
	var (
		toks []syntax.Token
		rest []*syntax.Node
	)
	leading := true
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.IsMissing() {
			continue
		}
		if leading {
			if tok, ok := varianceToken(c.text(child)); ok && isIdentifier(child.Type()) {
				toks = append(toks, tok)
				continue
			}
			leading = false
		}
		rest = append(rest, c.convert(child, "type_parameter"))
	}
	return toks, rest
}

func isIdentifier(typ string) bool {
	return typ == "identifier" || typ == "type_identifier"
}

// inferType wraps the identifier and optional bound of `infer X extends Y`
// in a type parameter node, the shape the rule set expects.
func inferType(typ string, children []*syntax.Node, constraint *syntax.Node) *syntax.Node {
	tpOpts := []syntax.Option{
		syntax.WithType("type_parameter"),
		syntax.WithChildren(children...),
	}
	if constraint != nil {
		tpOpts = append(tpOpts, syntax.WithConstraint(constraint))
	}
	tp := syntax.New(syntax.KindTypeParameter, tpOpts...)
	return syntax.New(syntax.KindInferType,
		syntax.WithType(typ),
		syntax.WithTypeParameter(tp),
		syntax.WithChildren(tp),
	)
}
