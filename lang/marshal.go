package lang

import "encoding/json"

// MarshalJSON implements json.Marshaler for Template.
func (t *Template) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.ToMap())
}

// ToMap converts the AST to a tree of native Go maps and slices for
// diagnostic output. Every node and expression becomes a map with a "type"
// key and a "span" key holding "start..end".
func (t *Template) ToMap() map[string]any {
	return map[string]any{
		"name":  t.Name,
		"nodes": nodesToNative(t.Nodes),
	}
}

func nodesToNative(nodes []Node) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = nodeToNative(n)
	}

	return out
}

func nodeToNative(n Node) map[string]any {
	m := map[string]any{"span": n.Span().String()}

	switch n := n.(type) {
	case *TextNode:
		m["type"] = "Text"
		m["text"] = n.Text

	case *InterpNode:
		m["type"] = "Interpolation"
		m["expr"] = exprToNative(n.Expr)

	case *IfNode:
		m["type"] = "If"

		branches := make([]any, len(n.Branches))
		for i, br := range n.Branches {
			branches[i] = map[string]any{
				"cond": exprToNative(br.Cond),
				"body": nodesToNative(br.Body),
			}
		}

		m["branches"] = branches

		if n.HasElse {
			m["else"] = nodesToNative(n.Else)
		}

	case *ForNode:
		m["type"] = "For"
		m["binding"] = n.Binding
		m["iterable"] = exprToNative(n.Iterable)
		m["body"] = nodesToNative(n.Body)

		if n.Track != nil {
			m["track"] = exprToNative(n.Track)
		}

	case *SwitchNode:
		m["type"] = "Switch"
		m["subject"] = exprToNative(n.Subject)

		cases := make([]any, len(n.Cases))
		for i, c := range n.Cases {
			cases[i] = map[string]any{
				"value": exprToNative(c.Value),
				"body":  nodesToNative(c.Body),
			}
		}

		m["cases"] = cases

		if n.HasDefault {
			m["default"] = nodesToNative(n.Default)
		}

	case *IncludeNode:
		m["type"] = "Include"
		m["name"] = exprToNative(n.Name)
	}

	return m
}

func exprsToNative(exprs []Expr) []any {
	out := make([]any, len(exprs))
	for i, e := range exprs {
		out[i] = exprToNative(e)
	}

	return out
}

func exprToNative(e Expr) map[string]any {
	m := map[string]any{"span": e.Span().String()}

	switch e := e.(type) {
	case *LiteralExpr:
		m["type"] = "Literal"
		m["kind"] = KindOf(e.Value).String()
		m["value"] = e.Value

	case *IdentExpr:
		m["type"] = "Ident"
		m["name"] = e.Name

	case *MemberExpr:
		m["type"] = "Member"
		m["base"] = exprToNative(e.Base)
		m["field"] = e.Field

	case *IndexExpr:
		m["type"] = "Index"
		m["base"] = exprToNative(e.Base)
		m["index"] = exprToNative(e.Index)

	case *CallExpr:
		m["type"] = "Call"
		m["name"] = e.Name
		m["args"] = exprsToNative(e.Args)

	case *MethodCallExpr:
		m["type"] = "MethodCall"
		m["receiver"] = exprToNative(e.Receiver)
		m["name"] = e.Name
		m["args"] = exprsToNative(e.Args)

	case *PipeExpr:
		m["type"] = "Pipe"
		m["input"] = exprToNative(e.Input)
		m["name"] = e.Name
		m["args"] = exprsToNative(e.Args)

	case *BinaryExpr:
		m["type"] = "Binary"
		m["op"] = e.Op.String()
		m["left"] = exprToNative(e.Left)
		m["right"] = exprToNative(e.Right)

	case *UnaryExpr:
		m["type"] = "Unary"
		m["op"] = e.Op.String()
		m["operand"] = exprToNative(e.Operand)

	case *ArrayExpr:
		m["type"] = "Array"
		m["elems"] = exprsToNative(e.Elems)

	case *ObjectExpr:
		m["type"] = "Object"

		entries := make([]any, len(e.Entries))
		for i, ent := range e.Entries {
			entries[i] = map[string]any{
				"key":   ent.Key,
				"value": exprToNative(ent.Value),
			}
		}

		m["entries"] = entries

	case *GroupExpr:
		m["type"] = "Group"
		m["inner"] = exprToNative(e.Inner)
	}

	return m
}
