package profile

// Option configures a [Profiler].
type Option func(*Profiler)

// WithMode selects the profiling mode, one of [Modes].
func WithMode(mode string) Option {
	return func(p *Profiler) { p.Mode = mode }
}

// WithDir sets the directory profiles are written to.
func WithDir(dir string) Option {
	return func(p *Profiler) { p.Dir = dir }
}

// WithQuiet suppresses the profiler's own log output.
func WithQuiet(quiet bool) Option {
	return func(p *Profiler) { p.Quiet = quiet }
}
