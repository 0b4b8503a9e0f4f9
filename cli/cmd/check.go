package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ardnew/xtera/lang"
	"github.com/ardnew/xtera/log"
	"github.com/ardnew/xtera/pkg"
)

// Check parses templates without rendering them and reports every file that
// fails with the offending line.
type Check struct {
	Files []string `arg:"" default:"-" help:"Template file(s) or '-' for stdin." name:"file" type:"existingfile"`

	output `kong:"-"`
}

// Run executes the check command.
func (c *Check) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	srcs, err := openSources(c.Files)
	if err != nil {
		return err
	}
	defer closeSources(srcs)

	var failed []error

	for _, src := range srcs {
		tpl, err := lang.ParseReader(ctx, src,
			lang.WithName(src.name),
			lang.WithLogger(log.Default()),
		)
		if err != nil {
			describe(c.errWriter(), err, nil)

			failed = append(failed, err)

			continue
		}

		includes := tpl.Includes()

		log.DebugContext(ctx, "template ok",
			slog.String("file", src.name),
			slog.Any("includes", includes),
		)

		fmt.Fprintf(c.writer(), "%s: ok", src.name)

		if len(includes) > 0 {
			fmt.Fprintf(c.writer(), " (includes %v)", includes)
		}

		fmt.Fprintln(c.writer())
	}

	if len(failed) > 0 {
		return pkg.ErrCheckFailed.Wrap(failed...)
	}

	return nil
}
