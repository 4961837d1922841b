package profiler

import "time"

// ProfilerOption is a functional option used to configure a Profiler during construction.
type ProfilerOption func(*Profiler)

// WithUpdateInterval sets how often the profiler closes a window and logs it.
//
// Parameters:
//   - d: the interval
//
// Returns:
//   - ProfilerOption: a function that sets the interval
func WithUpdateInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}

// WithClock replaces the time source.
//
// Parameters:
//   - now: the clock
//
// Returns:
//   - ProfilerOption: a function that sets the clock
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		p.now = now
	}
}
