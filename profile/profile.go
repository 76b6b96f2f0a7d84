package profile

// Profiler configures a profiling session.
type Profiler struct {
	Mode  string // one of [Modes]
	Path  string // output directory
	Quiet bool   // suppress the profiler's own log lines
}

// Stopper ends a profiling session.
type Stopper interface{ Stop() }

// Start begins profiling in p.Mode. It returns a no-op [Stopper] when the
// mode is empty or unknown, or when built without the pprof tag.
func (p Profiler) Start() Stopper {
	if p.Mode == "" {
		return ignore{}
	}

	return start(p)
}

type ignore struct{}

func (ignore) Stop() {}
