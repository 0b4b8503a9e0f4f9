package lang

import (
	"iter"
	"slices"
)

// Walk returns an iterator over every node of t in source order, descending
// into directive bodies.
func (t *Template) Walk() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		walkNodes(t.Nodes, yield)
	}
}

func walkNodes(nodes []Node, yield func(Node) bool) bool {
	for _, n := range nodes {
		if !yield(n) {
			return false
		}

		switch n := n.(type) {
		case *IfNode:
			for _, br := range n.Branches {
				if !walkNodes(br.Body, yield) {
					return false
				}
			}

			if !walkNodes(n.Else, yield) {
				return false
			}

		case *ForNode:
			if !walkNodes(n.Body, yield) {
				return false
			}

		case *SwitchNode:
			for _, c := range n.Cases {
				if !walkNodes(c.Body, yield) {
					return false
				}
			}

			if !walkNodes(n.Default, yield) {
				return false
			}
		}
	}

	return true
}

// Includes returns the sorted, distinct template names included by t whose
// name is a string literal. Names computed at render time are not reported.
func (t *Template) Includes() []string {
	var names []string

	for n := range t.Walk() {
		inc, ok := n.(*IncludeNode)
		if !ok {
			continue
		}

		if lit, ok := inc.Name.(*LiteralExpr); ok {
			if name, ok := lit.Value.(string); ok {
				names = append(names, name)
			}
		}
	}

	slices.Sort(names)

	return slices.Compact(names)
}
