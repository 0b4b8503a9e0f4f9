package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/xtera/cli/cmd/repl"
	"github.com/ardnew/xtera/lang"
	"github.com/ardnew/xtera/log"
)

// Repl starts an interactive session for evaluating expressions and
// templates against loaded data.
type Repl struct {
	Data     []string          `help:"YAML or JSON data file(s) providing variables."  placeholder:"FILE"      short:"d" type:"existingfile"`
	Set      []string          `help:"Bind NAME to the value of an expr-lang expression." placeholder:"NAME=EXPR" short:"s"`
	Include  map[string]string `help:"Register FILE as the template NAME for @include."  placeholder:"NAME=FILE" short:"i"`
	MaxDepth int               `help:"Maximum nesting of @include expansions."          default:"${maxDepth}"`

	output `kong:"-"`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) error {
	logger := log.Default()
	opts := []lang.Option{lang.WithMaxDepth(r.MaxDepth)}

	scope, err := newScope(ctx, r.Data, r.Set)
	if err != nil {
		return err
	}

	err = registerTemplates(ctx, scope, r.Include, append(opts, lang.WithLogger(logger))...)
	if err != nil {
		describe(r.errWriter(), err, scope)

		return err
	}

	var cacheDir string
	if ktx := kongContextFrom(ctx); ktx != nil {
		cacheDir = ktx.Model.Vars()[CacheIdentifier]
	}

	logger.DebugContext(ctx, "starting repl",
		slog.Int("variables", len(scope.Vars())),
		slog.Any("templates", scope.TemplateNames()),
		slog.String("cache", cacheDir),
	)

	return repl.Run(ctx, scope, cacheDir, logger, opts...)
}
