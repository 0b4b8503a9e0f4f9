package profile

// Stopper ends a profiling session.
type Stopper interface{ Stop() }

// Profiler selects what is profiled and where profiles are written.
// The zero value profiles nothing.
type Profiler struct {
	Mode  string
	Dir   string
	Quiet bool
}

// New returns a Profiler configured by opts.
func New(opts ...Option) Profiler {
	var p Profiler

	for _, opt := range opts {
		if opt != nil {
			opt(&p)
		}
	}

	return p
}

// Start begins profiling and returns the session to stop.
//
// Without the pprof build tag, or with an empty or unknown mode, Start
// returns a no-op. Stop is always safe to call.
func (p Profiler) Start() Stopper {
	if p.Mode == "" {
		return ignore{}
	}

	return start(p)
}

type ignore struct{}

func (ignore) Stop() {}
