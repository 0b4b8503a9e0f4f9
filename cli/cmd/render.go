package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/ardnew/xtera/lang"
	"github.com/ardnew/xtera/log"
)

// Render renders a template against variables loaded from data files.
type Render struct {
	Template string            `arg:"" default:"-" help:"Template file or '-' for stdin." name:"template"`
	Data     []string          `                   help:"YAML or JSON data file(s) providing variables."  placeholder:"FILE"      short:"d" type:"existingfile"`
	Set      []string          `                   help:"Bind NAME to the value of an expr-lang expression." placeholder:"NAME=EXPR" short:"s"`
	Include  map[string]string `                   help:"Register FILE as the template NAME for @include."  placeholder:"NAME=FILE" short:"i"`
	Output   string            `                   help:"Write output to FILE instead of stdout."        placeholder:"FILE"      short:"o" type:"path"`
	MaxDepth int               `default:"${maxDepth}" help:"Maximum nesting of @include expansions."`

	output `kong:"-"`
}

// Run executes the render command.
func (r *Render) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	opts := []lang.Option{
		lang.WithMaxDepth(r.MaxDepth),
		lang.WithLogger(log.Default()),
	}

	scope, err := newScope(ctx, r.Data, r.Set)
	if err != nil {
		return err
	}

	if err := registerTemplates(ctx, scope, r.Include, opts...); err != nil {
		return r.report(err, scope)
	}

	tpl, err := parseFile(ctx, r.Template, opts...)
	if err != nil {
		return r.report(err, scope)
	}

	// The template may include itself by name when no other template claims it.
	if _, ok := scope.Template(tpl.Name); !ok {
		scope.SetTemplate(tpl.Name, tpl)
	}

	var buf bytes.Buffer

	w := r.writer()
	if r.Output != "" {
		w = &buf
	}

	if err := lang.RenderTo(ctx, w, tpl, scope, opts...); err != nil {
		return r.report(err, scope)
	}

	if r.Output != "" {
		if err := os.WriteFile(r.Output, buf.Bytes(), 0o644); err != nil { //nolint:gosec
			return lang.ErrWriteOutput.
				With(slog.String("file", r.Output)).
				Wrap(err)
		}
	}

	log.DebugContext(ctx, "rendered template",
		slog.String("template", tpl.Name),
		slog.Int("variables", len(scope.Vars())),
		slog.Int("templates", len(scope.TemplateNames())),
	)

	return nil
}

// report prints the source snippet and name suggestions for err and returns
// it wrapped in [ErrRender].
func (r *Render) report(err error, scope *lang.Scope) error {
	describe(r.errWriter(), err, scope)

	return ErrRender.
		With(slog.String("template", sourceName(r.Template))).
		Wrap(err)
}

// newScope returns a root scope holding the builtins, the merged data files
// and the evaluated assignments.
func newScope(ctx context.Context, data, sets []string) (*lang.Scope, error) {
	vars, err := loadData(ctx, data)
	if err != nil {
		return nil, err
	}

	if err := applySets(vars, sets); err != nil {
		return nil, err
	}

	return lang.NewScope(lang.WithBuiltins(), lang.WithVars(vars)), nil
}

// registerTemplates parses each named template file into scope.
func registerTemplates(
	ctx context.Context,
	scope *lang.Scope,
	files map[string]string,
	opts ...lang.Option,
) error {
	for _, name := range slices.Sorted(maps.Keys(files)) {
		tpl, err := parseFile(ctx, files[name], append(opts, lang.WithName(name))...)
		if err != nil {
			return err
		}

		scope.SetTemplate(name, tpl)
	}

	return nil
}

// parseFile parses the template at path, or stdin for "-". The template is
// named after the file unless opts name it.
func parseFile(
	ctx context.Context,
	path string,
	opts ...lang.Option,
) (*lang.Template, error) {
	var r io.Reader = os.Stdin

	if path != stdinSource {
		f, err := os.Open(path)
		if err != nil {
			return nil, ErrReadSource.
				With(slog.String("file", path)).
				Wrap(err)
		}
		defer f.Close()

		r = f
	}

	return lang.ParseReader(ctx, r,
		append([]lang.Option{lang.WithName(sourceName(path))}, opts...)...)
}

// describe writes the offending source line of a parse or evaluation error
// and any similarly named definitions in scope.
func describe(w io.Writer, err error, scope *lang.Scope) {
	var (
		pe  *lang.ParseError
		ee  *lang.EvalError
		bad interface {
			error
			Snippet() string
		}
	)

	switch {
	case errors.As(err, &pe):
		bad = pe
	case errors.As(err, &ee):
		bad = ee
	default:
		return
	}

	fmt.Fprintln(w, bad.Error())
	fmt.Fprint(w, bad.Snippet())

	if hints := lang.Hint(err, scope); len(hints) > 0 {
		fmt.Fprintf(w, "did you mean %s?\n", strings.Join(hints, ", "))
	}
}
