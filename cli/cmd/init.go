package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/xtera/log"
	"github.com/ardnew/xtera/profile"
)

// defaultConfigIndent is the number of spaces to use for indentation
// when generating the default configuration file.
const defaultConfigIndent = 2

// Init generates a default configuration file with current flag values.
type Init struct {
	Force bool `help:"Overwrite existing configuration file" short:"f"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	ktx := kongContextFrom(ctx)

	confPath, ok := ktx.Model.Vars()[ConfigIdentifier]
	if !ok {
		panic("internal error: config path undefined")
	}

	// Check if file exists and force not set
	_, err = os.Stat(confPath)
	if err == nil && !i.Force {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			With(slog.Bool("exists", true)).
			Wrap(ErrFileExists)
	}

	data, err := yaml.MarshalContext(ctx, buildConfig(ktx),
		yaml.Indent(defaultConfigIndent))
	if err != nil {
		return ErrYAMLMarshal.Wrap(err)
	}

	if err := os.WriteFile(confPath, data, 0o600); err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}

	log.DebugContext(
		ctx,
		"initialized configuration file",
		slog.String("path", confPath),
	)

	return nil
}

// configIgnore lists flag name prefixes never written to the config file.
var configIgnore = []string{"help", "version", profile.Tag, "force", "write", "output"}

// buildConfig collects the current value of every application flag at the
// top level, followed by one section per command holding its flags.
func buildConfig(ktx *kong.Context) yaml.MapSlice {
	doc := flagItems(ktx, ktx.Model.Flags)

	for _, child := range ktx.Model.Children {
		if child.Type != kong.CommandNode || child.Hidden {
			continue
		}

		if items := flagItems(ktx, child.Flags); len(items) > 0 {
			doc = append(doc, yaml.MapItem{Key: child.Name, Value: items})
		}
	}

	return doc
}

func flagItems(ktx *kong.Context, flags []*kong.Flag) yaml.MapSlice {
	var items yaml.MapSlice

	for _, flag := range flags {
		if flag.Hidden || slices.ContainsFunc(configIgnore, func(s string) bool {
			return strings.HasPrefix(flag.Name, s)
		}) {
			continue
		}

		if val := configValue(ktx.FlagValue(flag)); val != nil {
			items = append(items, yaml.MapItem{Key: flag.Name, Value: val})
		}
	}

	return items
}

// configValue returns the YAML value for a flag, or nil if unset.
func configValue(val any) any {
	if val == nil {
		return nil
	}

	switch v := val.(type) {
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return v

	case string:
		if v == "" {
			return nil
		}

		return v
	}

	rv := reflect.ValueOf(val)

	switch rv.Kind() {
	case reflect.String:
		return configValue(rv.String())

	case reflect.Slice:
		if rv.Len() == 0 {
			return nil
		}

		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = rv.Index(i).Interface()
		}

		return out

	case reflect.Map:
		if rv.Len() == 0 {
			return nil
		}

		m := make(map[string]any, rv.Len())
		for iter := rv.MapRange(); iter.Next(); {
			m[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
		}

		var out yaml.MapSlice
		for _, k := range slices.Sorted(maps.Keys(m)) {
			out = append(out, yaml.MapItem{Key: k, Value: m[k]})
		}

		return out

	default:
		return fmt.Sprint(val)
	}
}
