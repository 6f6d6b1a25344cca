// Package syntax defines the immutable syntax tree the feature engine walks.
//
// A Node carries a closed Kind, its children in source order, and the few
// kind-specific fields feature predicates need. Optional sub-nodes are
// reached through comma-ok accessors so a predicate tests presence and
// shape in one expression:
//
//	if c, ok := n.Constraint(); ok { ... }
//
// Trees are produced by a parser adapter (see internal/parser) or built by
// hand with New; nothing in this package mutates a Node after New returns.
package syntax

import "slices"

// Node is one syntactic construct. The parent exclusively owns its
// children; there are no back-references.
type Node struct {
	kind     Kind
	typ      string
	children []*Node

	modifiers []Token
	operator  Token
	typeOnly  bool

	constraint    *Node
	nameType      *Node
	attributes    *Node
	typeParameter *Node
}

// Option sets a kind-specific field on a Node under construction.
type Option func(*Node)

// WithChildren appends children in source order. Nil entries are dropped.
func WithChildren(children ...*Node) Option {
	return func(n *Node) {
		for _, c := range children {
			if c != nil {
				n.children = append(n.children, c)
			}
		}
	}
}

// WithType records the grammar's own name for the node (provenance only).
func WithType(typ string) Option {
	return func(n *Node) {
		n.typ = typ
	}
}

// WithModifiers records the modifier keywords written on a declaration.
func WithModifiers(mods ...Token) Option {
	return func(n *Node) {
		n.modifiers = append(n.modifiers, mods...)
	}
}

// WithOperator records a binary expression's operator token.
func WithOperator(op Token) Option {
	return func(n *Node) {
		n.operator = op
	}
}

// WithTypeOnly marks an import specifier written with a `type` modifier.
func WithTypeOnly(typeOnly bool) Option {
	return func(n *Node) {
		n.typeOnly = typeOnly
	}
}

// WithConstraint sets the `extends` bound of a type parameter.
func WithConstraint(c *Node) Option {
	return func(n *Node) {
		n.constraint = c
	}
}

// WithNameType sets the `as` clause of a mapped type.
func WithNameType(t *Node) Option {
	return func(n *Node) {
		n.nameType = t
	}
}

// WithAttributes sets the assertion/attributes clause of an import.
func WithAttributes(a *Node) Option {
	return func(n *Node) {
		n.attributes = a
	}
}

// WithTypeParameter sets the type parameter introduced by an `infer` type.
func WithTypeParameter(tp *Node) Option {
	return func(n *Node) {
		n.typeParameter = tp
	}
}

// New builds an immutable Node.
func New(kind Kind, opts ...Option) *Node {
	n := &Node{kind: kind}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Kind returns the node's syntactic form.
func (n *Node) Kind() Kind { return n.kind }

// Type returns the grammar node name the node was built from, if any.
func (n *Node) Type() string { return n.typ }

// NumChildren returns the number of direct children.
func (n *Node) NumChildren() int { return len(n.children) }

// Child returns the i-th child in source order.
func (n *Node) Child(i int) *Node { return n.children[i] }

// Children returns a copy of the direct children in source order.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// Operator returns the operator token; TokenUnknown for non-binary nodes.
func (n *Node) Operator() Token { return n.operator }

// TypeOnly reports whether an import specifier carries `type`.
func (n *Node) TypeOnly() bool { return n.typeOnly }

// HasModifier reports whether any of toks appears in the modifier list.
func (n *Node) HasModifier(toks ...Token) bool {
	for _, m := range n.modifiers {
		if slices.Contains(toks, m) {
			return true
		}
	}
	return false
}

// Constraint returns the `extends` bound of a type parameter.
func (n *Node) Constraint() (*Node, bool) { return n.constraint, n.constraint != nil }

// NameType returns the remapped key type of a mapped type.
func (n *Node) NameType() (*Node, bool) { return n.nameType, n.nameType != nil }

// Attributes returns an import's assertion/attributes clause.
func (n *Node) Attributes() (*Node, bool) { return n.attributes, n.attributes != nil }

// TypeParameter returns the type parameter of an `infer` type.
func (n *Node) TypeParameter() (*Node, bool) { return n.typeParameter, n.typeParameter != nil }

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	total := 0
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		total++
		stack = append(stack, cur.children...)
	}
	return total
}
