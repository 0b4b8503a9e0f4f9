// Package cli contains the command line interface for xtera.
//
// # Usage
//
// Render is the default command, so a template path alone renders it:
//
//	xtera page.xt -d site.yaml -s 'year=2026'
//	xtera check templates/*.xt
//	xtera fmt -w page.xt
//	xtera repl -d site.yaml
//
// # Configuration
//
// Flag defaults are read from a YAML file in the user configuration
// directory (see [pkg.ConfigDir]). Top-level keys name flags, and a mapping
// keyed by a command name holds flags for that command only:
//
//	log-level: info
//	render:
//	  max-depth: 16
//
// The directory can be moved with XTERA_CONFIG_DIR, and the cache directory
// holding REPL history and profiles with XTERA_CACHE_DIR.
//
// The init command writes the current flag values to that file. Flags given
// on the command line always take precedence.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (text, json)
//   - --log-time-layout: Set timestamp layout (RFC3339, Kitchen, none, ...)
//   - --[no-]log-caller: Include caller information in log output
//   - --[no-]log-pretty: Colorize log output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof .
//
// With that tag the following flags are added:
//
//   - --pprof-mode: Enable profiling (see [profile.Modes])
//   - --pprof-dir: Set profile output directory (default: the pprof
//     directory under the user cache directory)
package cli
