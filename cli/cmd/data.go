package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/klauspost/readahead"

	"github.com/ardnew/xtera/lang"
	"github.com/ardnew/xtera/log"
)

// loadData decodes each YAML or JSON data file into a mapping and merges
// them in order. Top-level keys of later files replace earlier ones.
func loadData(ctx context.Context, paths []string) (map[string]any, error) {
	srcs, err := openSources(paths)
	if err != nil {
		return nil, err
	}
	defer closeSources(srcs)

	vars := make(map[string]any)

	for _, src := range srcs {
		doc, err := decodeData(ctx, src)
		if err != nil {
			return nil, ErrDecodeData.
				With(slog.String("file", src.name)).
				Wrap(err)
		}

		log.DebugContext(ctx, "loaded data",
			slog.String("file", src.name),
			slog.Int("keys", len(doc)))

		maps.Copy(vars, doc)
	}

	return vars, nil
}

// decodeData decodes the first document of src. An empty document yields
// an empty mapping.
func decodeData(ctx context.Context, src source) (map[string]any, error) {
	ra := readahead.NewReader(src)
	defer ra.Close()

	var doc map[string]any

	err := yaml.NewDecoder(ra).DecodeContext(ctx, &doc)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if doc == nil {
		doc = map[string]any{}
	}

	return doc, nil
}

// applySets evaluates each NAME=EXPR assignment with expr-lang against vars
// and binds the result. Assignments see the results of earlier ones.
func applySets(vars map[string]any, sets []string) error {
	for _, set := range sets {
		name, source, ok := strings.Cut(set, "=")
		name = strings.TrimSpace(name)

		if !ok || !lang.IsIdent(name) {
			return ErrInvalidSet.With(slog.String("set", set))
		}

		value, err := lang.EvalExpr(source, vars)
		if err != nil {
			return ErrInvalidSet.
				With(slog.String("name", name)).
				Wrap(err)
		}

		vars[name] = value
	}

	return nil
}
