package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/klauspost/readahead"

	"github.com/ardnew/xtera/lang"
)

// result is the outcome of one evaluated line.
type result struct {
	text string
	kind string // empty for rendered templates
}

func (r result) render() string {
	if r.kind == "" {
		return resultStyle.Render(r.text)
	}

	return resultStyle.Render(r.text) + " " + hintStyle.Render(r.kind)
}

// isTemplate reports whether input should be rendered as template text
// rather than evaluated as a single expression.
func isTemplate(input string) bool {
	return strings.Contains(input, "{{") || strings.HasPrefix(input, "@")
}

// evaluate renders input as a template or evaluates it as an expression in
// scope. Parsed templates are cached, so repeated lines skip the parser.
func evaluate(
	ctx context.Context,
	scope *lang.Scope,
	input string,
	opts ...lang.Option,
) (result, error) {
	opts = append([]lang.Option{lang.WithName(editName)}, opts...)

	if isTemplate(input) {
		tpl, err := lang.ParseCached(ctx, input, opts...)
		if err != nil {
			return result{}, err
		}

		out, err := lang.Render(ctx, tpl, scope, opts...)
		if err != nil {
			return result{}, err
		}

		return result{text: out}, nil
	}

	v, err := eval(ctx, scope, input, opts...)
	if err != nil {
		return result{}, err
	}

	return result{text: formatResult(v), kind: lang.KindOf(v).String()}, nil
}

func eval(
	ctx context.Context,
	scope *lang.Scope,
	source string,
	opts ...lang.Option,
) (any, error) {
	expr, err := lang.ParseExpr(ctx, source, opts...)
	if err != nil {
		return nil, err
	}

	return lang.Eval(ctx, expr, scope, opts...)
}

// formatResult renders a value the way it would be written as a literal:
// strings are quoted and null is spelled out.
func formatResult(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	default:
		return lang.Stringify(x)
	}
}

// describe renders err for display with its source excerpt and any
// suggested names from scope.
func describe(err error, scope *lang.Scope) string {
	var b strings.Builder

	b.WriteString("error: ")
	b.WriteString(err.Error())
	b.WriteString("\n")

	var (
		pe *lang.ParseError
		ee *lang.EvalError
	)

	switch {
	case errors.As(err, &pe):
		b.WriteString(pe.Snippet())
	case errors.As(err, &ee):
		b.WriteString(ee.Snippet())
	}

	if hints := lang.Hint(err, scope); len(hints) > 0 {
		b.WriteString("did you mean " + strings.Join(hints, ", ") + "?\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// command runs a control-mode command that only produces text.
func command(
	ctx context.Context,
	scope *lang.Scope,
	name, args string,
	opts ...lang.Option,
) (string, error) {
	switch name {
	case "h", "help":
		return helpMessage(), nil

	case "vars":
		var b strings.Builder

		for _, n := range scope.VarNames() {
			v, _ := scope.Var(n)
			fmt.Fprintf(&b, "  %s %s\n", n, hintStyle.Render(formatPreview(v)))
		}

		return strings.TrimRight(b.String(), "\n"), nil

	case "pipes":
		return "  " + strings.Join(scope.PipeNames(), " "), nil

	case "funcs":
		return "  " + strings.Join(scope.FuncNames(), " "), nil

	case "templates":
		var b strings.Builder

		for _, n := range scope.TemplateNames() {
			tpl, _ := scope.Template(n)
			b.WriteString("  " + n)

			if inc := tpl.Includes(); len(inc) > 0 {
				b.WriteString(" " + hintStyle.Render("includes "+strings.Join(inc, ", ")))
			}

			b.WriteString("\n")
		}

		return strings.TrimRight(b.String(), "\n"), nil

	case "set":
		return set(ctx, scope, args, opts...)

	case "load":
		return load(ctx, scope, args)

	case "render":
		if args == "" {
			return "", fmt.Errorf("%w: render NAME", ErrUsage)
		}

		return lang.RenderNamed(ctx, scope, args, opts...)
	}

	return "", fmt.Errorf("unknown command: %s (try 'help')", name)
}

// set evaluates "NAME = EXPR" in scope and binds the result to NAME.
func set(
	ctx context.Context,
	scope *lang.Scope,
	args string,
	opts ...lang.Option,
) (string, error) {
	name, source, ok := strings.Cut(args, "=")
	name = strings.TrimSpace(name)

	if !ok || !lang.IsIdent(name) {
		return "", fmt.Errorf("%w: set NAME = EXPR", ErrUsage)
	}

	v, err := eval(ctx, scope, strings.TrimSpace(source), opts...)
	if err != nil {
		return "", err
	}

	scope.SetVar(name, v)

	return name + " = " + formatResult(v), nil
}

// load decodes a YAML or JSON object from path and binds each of its keys.
func load(ctx context.Context, scope *lang.Scope, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: load FILE", ErrUsage)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	ra := readahead.NewReader(f)
	defer ra.Close()

	var vars map[string]any
	if err := yaml.NewDecoder(ra).DecodeContext(ctx, &vars); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	for k, v := range vars {
		scope.SetVar(k, v)
	}

	return fmt.Sprintf("loaded %d variables from %s", len(vars), path), nil
}
