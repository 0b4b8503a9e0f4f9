package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
	"github.com/klauspost/readahead"

	"github.com/ardnew/xtera/log"
)

// resolve returns a [kong.ConfigurationLoader] that reads a YAML config file.
//
// It can be used with [kong.Configuration] like this:
//
//	kong.Configuration(resolve(ctx), "/path/to/config.yaml")
//
// Top-level keys are flag names. A mapping keyed by a command name holds the
// flags of that command and takes precedence over top-level keys:
//
//	log-level: debug
//	log_pretty: false
//	render:
//	  max-depth: 16
//	  data: [site.yaml, page.yaml]
//
// Flag names with hyphens may be written with underscores instead. A file
// that cannot be decoded is logged and ignored so a broken config never
// blocks the command line. Command-line flags override config file values.
func resolve(ctx context.Context) func(r io.Reader) (kong.Resolver, error) {
	return func(r io.Reader) (kong.Resolver, error) {
		ra := readahead.NewReader(r)
		defer ra.Close()

		var doc map[string]any

		err := yaml.NewDecoder(ra).DecodeContext(ctx, &doc)
		if err != nil && !errors.Is(err, io.EOF) {
			log.WarnContext(ctx, "ignoring configuration file",
				slog.String("error", err.Error()))

			return config{}, nil
		}

		return config(doc), nil
	}
}

// config implements [kong.Resolver] for YAML configs.
type config map[string]any

// Validate implements [kong.Resolver].
func (config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver].
func (r config) Resolve(
	_ *kong.Context,
	parent *kong.Path,
	flag *kong.Flag,
) (any, error) {
	if parent != nil {
		if node := parent.Node(); node != nil && node.Type == kong.CommandNode {
			if section, ok := r[node.Name].(map[string]any); ok {
				if value, ok := config(section).lookup(flag.Name); ok {
					return value, nil
				}
			}
		}
	}

	if value, ok := r.lookup(flag.Name); ok {
		return value, nil
	}

	// Not found; kong uses the default.
	return nil, nil
}

// lookup finds name in its hyphenated or underscored spelling.
func (r config) lookup(name string) (any, bool) {
	for _, key := range []string{name, strings.ReplaceAll(name, "-", "_")} {
		if value, ok := r[key]; ok && value != nil {
			return flagValue(value), true
		}
	}

	return nil, false
}

// flagValue converts a decoded YAML value into a form kong's mappers accept.
// Kong parses numbers from strings.
func flagValue(v any) any {
	switch v := v.(type) {
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = flagValue(e)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = flagValue(e)
		}

		return out
	default:
		return v
	}
}
