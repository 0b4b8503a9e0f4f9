package lang

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/ardnew/xtera/log"
)

// renderState is the per-call state of a render. It is never stored on a
// template, so a template may be rendered concurrently.
type renderState struct {
	logger   log.Logger
	chain    []string // names of the templates being expanded, outermost first
	maxDepth int
}

func newRenderState(opts ...Option) *renderState {
	cfg := makeConfig(opts...)

	return &renderState{logger: cfg.logger, maxDepth: cfg.maxDepth}
}

// Render renders tpl against scope and returns the output.
func Render(ctx context.Context, tpl *Template, scope *Scope, opts ...Option) (string, error) {
	var b strings.Builder

	if err := newRenderState(opts...).template(ctx, &b, tpl, scope); err != nil {
		return "", err
	}

	return b.String(), nil
}

// RenderTo renders tpl against scope and writes the output to w.
// Output written before an evaluation error is flushed to w.
func RenderTo(ctx context.Context, w io.Writer, tpl *Template, scope *Scope, opts ...Option) error {
	bw := bufio.NewWriter(w)

	err := newRenderState(opts...).template(ctx, bw, tpl, scope)

	if ferr := bw.Flush(); err == nil && ferr != nil {
		return ErrWriteOutput.Wrap(ferr)
	}

	return err
}

// RenderNamed renders the template registered in scope under name.
// It fails with an [UndefinedTemplate] error if no such template exists.
func RenderNamed(ctx context.Context, scope *Scope, name string, opts ...Option) (string, error) {
	tpl, ok := scope.Template(name)
	if !ok {
		return "", undefinedError(UndefinedTemplate, name, Span{})
	}

	st := newRenderState(opts...)
	st.chain = append(st.chain, name)

	var b strings.Builder

	if err := st.template(ctx, &b, tpl, scope); err != nil {
		return "", err
	}

	return b.String(), nil
}

// Eval evaluates a single expression against scope.
func Eval(ctx context.Context, expr Expr, scope *Scope, opts ...Option) (any, error) {
	return newRenderState(opts...).eval(ctx, expr, scope)
}

func (st *renderState) template(ctx context.Context, w io.StringWriter, tpl *Template, scope *Scope) error {
	st.logger.TraceContext(ctx, "render start",
		slog.String("name", tpl.Name),
		slog.Int("depth", len(st.chain)),
	)

	if err := st.nodes(ctx, w, tpl.Nodes, scope); err != nil {
		st.logger.TraceContext(ctx, "render failed",
			slog.String("name", tpl.Name),
			slog.Any("error", err),
		)

		return err
	}

	st.logger.TraceContext(ctx, "render complete", slog.String("name", tpl.Name))

	return nil
}

func (st *renderState) nodes(ctx context.Context, w io.StringWriter, nodes []Node, scope *Scope) error {
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := st.node(ctx, w, n, scope); err != nil {
			return err
		}
	}

	return nil
}

func (st *renderState) node(ctx context.Context, w io.StringWriter, n Node, scope *Scope) error {
	switch n := n.(type) {
	case *TextNode:
		return write(w, n.Text)

	case *InterpNode:
		v, err := st.eval(ctx, n.Expr, scope)
		if err != nil {
			return err
		}

		return write(w, Stringify(v))

	case *IfNode:
		return st.ifNode(ctx, w, n, scope)

	case *ForNode:
		return st.forNode(ctx, w, n, scope)

	case *SwitchNode:
		return st.switchNode(ctx, w, n, scope)

	case *IncludeNode:
		return st.include(ctx, w, n, scope)

	default:
		return nil
	}
}

func write(w io.StringWriter, s string) error {
	if s == "" {
		return nil
	}

	if _, err := w.WriteString(s); err != nil {
		return ErrWriteOutput.Wrap(err)
	}

	return nil
}

func (st *renderState) ifNode(ctx context.Context, w io.StringWriter, n *IfNode, scope *Scope) error {
	for _, br := range n.Branches {
		cond, err := st.eval(ctx, br.Cond, scope)
		if err != nil {
			return err
		}

		if Truthy(cond) {
			return st.nodes(ctx, w, br.Body, scope.Child())
		}
	}

	if n.HasElse {
		return st.nodes(ctx, w, n.Else, scope.Child())
	}

	return nil
}

func (st *renderState) forNode(ctx context.Context, w io.StringWriter, n *ForNode, scope *Scope) error {
	iterable, err := st.eval(ctx, n.Iterable, scope)
	if err != nil {
		return err
	}

	var items []any

	switch x := iterable.(type) {
	case []any:
		items = x

	case map[string]any:
		items = make([]any, 0, len(x))
		for _, k := range sortedKeys(x) {
			items = append(items, map[string]any{"key": k, "value": x[k]})
		}

	default:
		return &EvalError{
			Kind: NotIterable,
			Got:  KindOf(iterable).String(),
			Span: n.Iterable.Span(),
		}
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame := scope.Child()
		frame.bind(n.Binding, item)
		frame.bind("$index", int64(i))

		if n.Track != nil {
			// Evaluated for its errors only; iterations are not keyed.
			if _, err := st.eval(ctx, n.Track, frame); err != nil {
				return err
			}
		}

		if err := st.nodes(ctx, w, n.Body, frame); err != nil {
			return err
		}
	}

	return nil
}

func (st *renderState) switchNode(ctx context.Context, w io.StringWriter, n *SwitchNode, scope *Scope) error {
	subject, err := st.eval(ctx, n.Subject, scope)
	if err != nil {
		return err
	}

	for _, c := range n.Cases {
		v, err := st.eval(ctx, c.Value, scope)
		if err != nil {
			return err
		}

		if Equal(subject, v) {
			return st.nodes(ctx, w, c.Body, scope.Child())
		}
	}

	if n.HasDefault {
		return st.nodes(ctx, w, n.Default, scope.Child())
	}

	return nil
}

func (st *renderState) include(ctx context.Context, w io.StringWriter, n *IncludeNode, scope *Scope) error {
	v, err := st.eval(ctx, n.Name, scope)
	if err != nil {
		return err
	}

	name, ok := v.(string)
	if !ok {
		return typeError("string", v, n.Name.Span())
	}

	tpl, ok := scope.Template(name)
	if !ok {
		return undefinedError(UndefinedTemplate, name, n.span)
	}

	if len(st.chain) >= st.maxDepth {
		return &EvalError{
			Kind:  RecursionLimitExceeded,
			Depth: st.maxDepth,
			Chain: append(slices.Clone(st.chain), name),
			Name:  name,
			Span:  n.span,
		}
	}

	st.chain = append(st.chain, name)
	defer func() { st.chain = st.chain[:len(st.chain)-1] }()

	return st.template(ctx, w, tpl, scope.Child())
}
