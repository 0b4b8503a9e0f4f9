package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/ardnew/xtera/lang"
	"github.com/ardnew/xtera/log"
	"github.com/ardnew/xtera/pkg"
)

// Fmt parses a template and prints it in canonical form, or prints its
// syntax tree.
type Fmt struct {
	AST    string `default:""  enum:",json,yaml" help:"Print the syntax tree as json or yaml instead of source." placeholder:"FORMAT"`
	Indent int    `default:"2"                   help:"Indent width for syntax tree output."                     short:"n"`
	Write  bool   `                              help:"Write canonical source back to the template file."        short:"w"`

	Source string `arg:"" default:"-" help:"Template file or '-' for stdin." name:"source"`

	output `kong:"-"`
}

// Run executes the fmt command.
func (f *Fmt) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	tpl, err := parseFile(ctx, f.Source, lang.WithLogger(log.Default()))
	if err != nil {
		describe(f.errWriter(), err, nil)

		return lang.WrapError(err).
			With(slog.String("format", f.format()))
	}

	if f.Write && f.AST == "" && f.Source != stdinSource {
		var buf bytes.Buffer

		if err := tpl.Format(ctx, &buf); err != nil {
			return err
		}

		info, err := os.Stat(f.Source)
		if err != nil {
			return ErrReadSource.With(slog.String("file", f.Source)).Wrap(err)
		}

		return os.WriteFile(f.Source, buf.Bytes(), info.Mode().Perm())
	}

	return f.print(ctx, f.writer(), tpl)
}

func (f *Fmt) format() string {
	if f.AST == "" {
		return "source"
	}

	return f.AST
}

func (f *Fmt) print(ctx context.Context, w io.Writer, tpl *lang.Template) error {
	switch f.AST {
	case "":
		return tpl.Format(ctx, w)
	case "json":
		return tpl.FormatJSON(ctx, w, f.Indent)
	case "yaml":
		return tpl.FormatYAML(ctx, w, f.Indent)
	default:
		return pkg.ErrInvalidFormat.Wrapf("%q (want json or yaml)", f.AST)
	}
}
