package features

import "github.com/jward/tsfeatures/internal/syntax"

// Walk visits root and every descendant exactly once in pre-order, testing
// each node against the rules registered for its kind and recording hits
// in out. It holds no state between calls; concurrent walks may share rs.
func Walk(root *syntax.Node, rs *RuleSet, out Set) {
	if root == nil {
		return
	}
	stack := []*syntax.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, r := range rs.For(n.Kind()) {
			if r.Matches(n) {
				out.Add(r.Feature)
			}
		}

		// Push in reverse so the first child is visited next.
		for i := n.NumChildren() - 1; i >= 0; i-- {
			stack = append(stack, n.Child(i))
		}
	}
}

// Detect walks root with rs and returns a fresh Set.
func Detect(root *syntax.Node, rs *RuleSet) Set {
	out := make(Set)
	Walk(root, rs, out)
	return out
}
