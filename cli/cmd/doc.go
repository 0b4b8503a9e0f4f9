// Package cmd implements the xtera subcommands: render, check, fmt, init and
// repl.
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the configuration file.
	ConfigIdentifier = "config"

	// MaxDepthIdentifier is the kong variable identifier containing the
	// default bound on nested @include expansions.
	MaxDepthIdentifier = "maxDepth"
)
