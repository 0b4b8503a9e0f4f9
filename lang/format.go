package lang

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// String returns the canonical source of t. Parsing it yields a template
// equal to t apart from spans.
func (t *Template) String() string {
	var p printer

	p.nodes(t.Nodes)

	return p.String()
}

// Format writes the canonical source of t to w.
func (t *Template) Format(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, t.String())

	return err
}

// FormatJSON writes the AST of t as JSON to w.
// A positive indent selects multi-line output.
func (t *Template) FormatJSON(_ context.Context, w io.Writer, indent int) error {
	var (
		data []byte
		err  error
	)

	if indent > 0 {
		data, err = json.MarshalIndent(t.ToMap(), "", strings.Repeat(" ", indent))
	} else {
		data, err = json.Marshal(t.ToMap())
	}

	if err != nil {
		return ErrMarshal.Wrap(err)
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

// FormatYAML writes the AST of t as YAML to w.
// A non-positive indent selects flow style.
func (t *Template) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	data, err := yaml.MarshalContext(ctx, t.ToMap(), opts...)
	if err != nil {
		return ErrMarshal.Wrap(err)
	}

	_, err = w.Write(data)

	return err
}

// ExprString returns the canonical source of e.
func ExprString(e Expr) string {
	var p printer

	p.expr(e)

	return p.String()
}

type printer struct {
	strings.Builder
}

func (p *printer) nodes(nodes []Node) {
	for _, n := range nodes {
		p.node(n)
	}
}

func (p *printer) node(n Node) {
	switch n := n.(type) {
	case *TextNode:
		p.WriteString(n.Text)

	case *InterpNode:
		p.WriteString("{{ ")
		p.expr(n.Expr)
		p.WriteString(" }}")

	case *IfNode:
		for i, br := range n.Branches {
			if i > 0 {
				p.WriteString(" @else ")
			}

			p.WriteString("@if (")
			p.expr(br.Cond)
			p.WriteString(") ")
			p.body(br.Body)
		}

		if n.HasElse {
			p.WriteString(" @else ")
			p.body(n.Else)
		}

	case *ForNode:
		p.WriteString("@for (")
		p.WriteString(n.Binding)
		p.WriteString(" of ")
		p.expr(n.Iterable)

		if n.Track != nil {
			p.WriteString("; track ")
			p.expr(n.Track)
		}

		p.WriteString(") ")
		p.body(n.Body)

	case *SwitchNode:
		p.WriteString("@switch (")
		p.expr(n.Subject)
		p.WriteString(") {\n")

		for _, c := range n.Cases {
			p.WriteString("@case (")
			p.expr(c.Value)
			p.WriteString(") ")
			p.body(c.Body)
			p.WriteByte('\n')
		}

		if n.HasDefault {
			p.WriteString("@default ")
			p.body(n.Default)
			p.WriteByte('\n')
		}

		p.WriteByte('}')

	case *IncludeNode:
		p.WriteString("@include (")
		p.expr(n.Name)
		p.WriteByte(')')
	}
}

func (p *printer) body(nodes []Node) {
	p.WriteByte('{')
	p.nodes(nodes)
	p.WriteByte('}')
}

func (p *printer) expr(e Expr) {
	switch e := e.(type) {
	case *LiteralExpr:
		p.literal(e.Value)

	case *IdentExpr:
		p.WriteString(e.Name)

	case *GroupExpr:
		p.WriteByte('(')
		p.expr(e.Inner)
		p.WriteByte(')')

	case *MemberExpr:
		p.operand(e.Base, precPostfix)
		p.WriteByte('.')
		p.WriteString(e.Field)

	case *IndexExpr:
		p.operand(e.Base, precPostfix)
		p.WriteByte('[')
		p.expr(e.Index)
		p.WriteByte(']')

	case *CallExpr:
		p.WriteString(e.Name)
		p.args(e.Args)

	case *MethodCallExpr:
		p.operand(e.Receiver, precPostfix)
		p.WriteByte('.')
		p.WriteString(e.Name)
		p.args(e.Args)

	case *PipeExpr:
		p.operand(e.Input, precPostfix)
		p.WriteString(" | ")
		p.WriteString(e.Name)
		p.pipeArgs(e.Args)

	case *UnaryExpr:
		p.WriteString(e.Op.String())

		// A negative literal after a prefix operator keeps its own sign.
		if _, ok := e.Operand.(*LiteralExpr); ok {
			p.operand(e.Operand, precPostfix)
		} else {
			p.operand(e.Operand, precUnary)
		}

	case *BinaryExpr:
		prec := e.Op.Precedence()
		p.operand(e.Left, prec)
		p.WriteByte(' ')
		p.WriteString(e.Op.String())
		p.WriteByte(' ')
		p.operand(e.Right, prec+1)

	case *ArrayExpr:
		p.WriteByte('[')

		for i, el := range e.Elems {
			if i > 0 {
				p.WriteString(", ")
			}

			p.expr(el)
		}

		p.WriteByte(']')

	case *ObjectExpr:
		p.WriteByte('{')

		for i, ent := range e.Entries {
			if i > 0 {
				p.WriteString(", ")
			}

			if IsIdent(ent.Key) {
				p.WriteString(ent.Key)
			} else {
				p.WriteString(quote(ent.Key))
			}

			p.WriteString(": ")
			p.expr(ent.Value)
		}

		p.WriteByte('}')
	}
}

// operand prints e, parenthesized when it binds more loosely than prec.
func (p *printer) operand(e Expr, prec int) {
	if exprPrec(e) < prec {
		p.WriteByte('(')
		p.expr(e)
		p.WriteByte(')')

		return
	}

	p.expr(e)
}

func (p *printer) args(args []Expr) {
	p.WriteByte('(')

	for i, a := range args {
		if i > 0 {
			p.WriteString(", ")
		}

		p.expr(a)
	}

	p.WriteByte(')')
}

// pipeArgs prints colon arguments, or a parenthesized list when an argument
// would otherwise capture what follows it.
func (p *printer) pipeArgs(args []Expr) {
	for _, a := range args {
		if _, pipe := a.(*PipeExpr); pipe || exprPrec(a) < precUnary {
			p.args(args)

			return
		}
	}

	for _, a := range args {
		p.WriteByte(':')
		p.expr(a)
	}
}

// exprPrec returns the binding power of the outermost operator of e.
func exprPrec(e Expr) int {
	switch e := e.(type) {
	case *BinaryExpr:
		return e.Op.Precedence()
	case *UnaryExpr:
		return precUnary
	case *LiteralExpr:
		if n, ok := e.Value.(int64); ok && n < 0 {
			return precUnary
		}

		if f, ok := e.Value.(float64); ok && f < 0 {
			return precUnary
		}

		return precPostfix
	default:
		return precPostfix
	}
}

func (p *printer) literal(v any) {
	switch x := v.(type) {
	case nil:
		p.WriteString("null")
	case bool:
		p.WriteString(strconv.FormatBool(x))
	case int64:
		p.WriteString(strconv.FormatInt(x, 10))
	case float64:
		s := formatFloat(x)
		if !strings.ContainsAny(s, ".nN") {
			s += ".0"
		}

		p.WriteString(s)
	case string:
		p.WriteString(quote(x))
	default:
		p.WriteString(quote(Stringify(x)))
	}
}

// quote returns s as a double-quoted literal using the escapes the lexer
// decodes.
func quote(s string) string {
	var b strings.Builder

	b.Grow(len(s) + 2)
	b.WriteByte('"')

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteByte(c)
		}
	}

	b.WriteByte('"')

	return b.String()
}

// IsIdent reports whether s can be written as a bare identifier in an
// expression: it matches [A-Za-z_$][A-Za-z0-9_]* and is not a keyword.
func IsIdent(s string) bool {
	if _, ok := exprKeywords[s]; ok {
		return false
	}

	return isIdent(s)
}

func isIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}

	for i := 1; i < len(s); i++ {
		if !isIdentContinue(s[i]) {
			return false
		}
	}

	return true
}
