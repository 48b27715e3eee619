package profiler

import (
	"time"

	"go.uber.org/zap"
)

type ProfilerOption func(*Profiler)

// WithInterval sets how often stats are reported.
//
// Parameters:
//   - d: the reporting interval
//
// Returns:
//   - ProfilerOption: a function that sets the interval
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger stats are written to.
func WithLogger(log *zap.Logger) ProfilerOption {
	return func(p *Profiler) {
		if log != nil {
			p.log = log.Named("profiler")
		}
	}
}
