package pkg

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Environment variables that override the default directories.
const (
	EnvConfigDir = "XTERA_CONFIG_DIR"
	EnvCacheDir  = "XTERA_CACHE_DIR"
)

//nolint:gochecknoglobals
var prefixRules = []struct {
	re  *regexp.Regexp
	sub string
}{
	{regexp.MustCompile(`^__debug_bin\d*$`), Name}, // dlv output
	{regexp.MustCompile(`^\.+`), ""},
}

// Prefix returns the directory name used under the user configuration and
// cache directories.
//
// It is the base name of the executable without extension. A dlv debug
// binary maps to [Name] and leading dots are removed. An empty result falls
// back to [Name].
//
//nolint:gochecknoglobals
var Prefix = sync.OnceValue(
	func() string {
		exe, err := os.Executable()
		if err != nil {
			exe = os.Args[0]
		}

		id := filepath.Base(exe)
		id = strings.TrimSuffix(id, filepath.Ext(id))

		for _, r := range prefixRules {
			id = r.re.ReplaceAllString(id, r.sub)
		}

		if id == "" {
			return Name
		}

		return id
	},
)

// ConfigDir returns the configuration directory: $XTERA_CONFIG_DIR if set,
// otherwise [Prefix] under the user configuration directory.
//
//nolint:gochecknoglobals
var ConfigDir = sync.OnceValue(
	func() string {
		return userDir(EnvConfigDir, os.UserConfigDir, ".config")
	},
)

// CacheDir returns the cache directory for history and profiles:
// $XTERA_CACHE_DIR if set, otherwise [Prefix] under the user cache directory.
//
//nolint:gochecknoglobals
var CacheDir = sync.OnceValue(
	func() string {
		return userDir(EnvCacheDir, os.UserCacheDir, ".cache")
	},
)

// userDir resolves a per-user directory. When base fails it tries hidden
// under the home directory, then the working directory.
func userDir(env string, base func() (string, error), hidden string) string {
	if dir := strings.TrimSpace(os.Getenv(env)); dir != "" {
		return filepath.Clean(dir)
	}

	dir, err := base()
	if err != nil {
		if home, herr := os.UserHomeDir(); herr == nil {
			dir = filepath.Join(home, hidden)
		} else if dir, err = os.Getwd(); err != nil {
			dir = "."
		}
	}

	return filepath.Join(dir, Prefix())
}
