// Package profile provides optional runtime profiling for the xtera command.
//
// Profiling integrates [github.com/pkg/profile] and is compiled in only with
// the "pprof" build tag. Without the tag, [Profiler.Start] returns a no-op and
// [Modes] reports no modes.
//
// # Available Profiling Modes
//
//   - allocs:    Memory allocation profiling (all allocations)
//   - block:     Block (synchronization) profiling
//   - clock:     Wall-clock profiling
//   - cpu:       CPU profiling
//   - goroutine: Goroutine profiling
//   - heap:      Heap memory profiling (live allocations)
//   - mem:       General memory profiling
//   - mutex:     Mutex contention profiling
//   - thread:    Thread creation profiling
//   - trace:     Execution trace profiling
//
// # Usage
//
// A [Profiler] is built from options and started once:
//
//	p := profile.New(
//		profile.WithMode("cpu"),
//		profile.WithDir("/tmp/profiles"),
//	).Start()
//	defer p.Stop()
//
// Profile files are written to the configured directory with names matching
// the mode (e.g., cpu.pprof, mem.pprof).
//
// # Command-Line Usage
//
//	go build -tags pprof -o xtera .
//	./xtera --pprof-mode=cpu render page.xt -d data.yaml
//	./xtera --pprof-mode=heap --pprof-dir=./profiles check templates/*.xt
//
// The default output directory is the "pprof" directory under the user cache
// directory, for example $XDG_CACHE_HOME/xtera/pprof.
//
// # Analyzing Profile Data
//
//	go tool pprof ./xtera /tmp/profiles/cpu.pprof
//	go tool pprof -http=: /tmp/profiles/cpu.pprof
//	go tool pprof -base=old.pprof new.pprof
//
// When built with the pprof tag, the package also imports [net/http/pprof],
// which registers handlers at /debug/pprof/ on [net/http.DefaultServeMux].
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
