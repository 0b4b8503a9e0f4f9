package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
)

// contextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// stdinName names templates and data read from stdin.
const stdinName = "stdin"

// source is a named input stream.
type source struct {
	name string
	io.ReadCloser
}

// sourceName returns the template name used for the file at path.
func sourceName(path string) string {
	if path == stdinSource {
		return stdinName
	}

	return filepath.Base(path)
}

// openSources opens every path in order.
//
// Paths are deduplicated by resolving symlinks and comparing device/inode
// pairs, so a file named twice through different paths is read once. All
// occurrences of "-" are replaced with a single stdin reader placed last so
// it reads after all regular files.
func openSources(paths []string) ([]source, error) {
	srcs := make([]source, 0, len(paths))
	seen := make(map[fileKey]struct{})

	stdinInfo, _ := os.Stdin.Stat()
	stdinKey, _ := makeFileKey(stdinInfo)

	hasStdin := false

	for _, path := range paths {
		if path == stdinSource {
			hasStdin = true

			continue
		}

		src, ok, err := openUniqueFile(path, seen)
		if err != nil {
			closeSources(srcs)

			return nil, ErrReadSource.
				With(slog.String("file", path)).
				Wrap(err)
		}

		if ok {
			srcs = append(srcs, src)
		}
	}

	// Stdin already opened through a device path is not read twice.
	if _, ok := seen[stdinKey]; ok && stdinInfo != nil {
		hasStdin = false
	}

	if hasStdin {
		srcs = append(srcs, source{name: stdinName, ReadCloser: io.NopCloser(os.Stdin)})
	}

	return srcs, nil
}

// closeSources closes every source, ignoring errors.
func closeSources(srcs []source) {
	for _, src := range srcs {
		_ = src.Close()
	}
}

// fileKey uniquely identifies a file by its device and inode numbers.
// This handles deduplication across symlinks, absolute/relative paths, and
// special device files.
type fileKey struct {
	dev uint64
	ino uint64
}

// openUniqueFile opens the file at path if it hasn't been seen before.
// It resolves symlinks and uses device/inode to detect duplicates.
// It reports false without error for a duplicate.
func openUniqueFile(
	path string,
	seen map[fileKey]struct{},
) (source, bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return source{}, false, err
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return source{}, false, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return source{}, false, err
	}

	if key, ok := makeFileKey(info); ok {
		if _, exists := seen[key]; exists {
			return source{}, false, nil
		}

		seen[key] = struct{}{}
	}

	file, err := os.Open(resolved)
	if err != nil {
		return source{}, false, err
	}

	return source{name: sourceName(path), ReadCloser: file}, true, nil
}

// makeFileKey creates a fileKey from os.FileInfo.
// Returns false if the underlying Sys() data is not of type *syscall.Stat_t.
func makeFileKey(info os.FileInfo) (key fileKey, ok bool) {
	if info == nil {
		return key, false
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: stat.Ino}, true //nolint:unconvert
}

// output holds the writers a command prints to. The zero value writes to
// the process's standard streams.
type output struct {
	stdout io.Writer
	stderr io.Writer
}

func (o output) writer() io.Writer {
	if o.stdout == nil {
		return os.Stdout
	}

	return o.stdout
}

func (o output) errWriter() io.Writer {
	if o.stderr == nil {
		return os.Stderr
	}

	return o.stderr
}
