package scripting

import (
	"time"

	"go.uber.org/zap"
)

type RuntimeOption func(*Runtime)

// WithLogger sets the logger. self:log writes through it at info level.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - RuntimeOption: a function that sets the logger
func WithLogger(log *zap.Logger) RuntimeOption {
	return func(r *Runtime) {
		if log != nil {
			r.log = log.Named("scripting")
		}
	}
}

// WithCallTimeout aborts any single chunk or hook that runs longer than d.
// Zero disables the limit.
func WithCallTimeout(d time.Duration) RuntimeOption {
	return func(r *Runtime) {
		r.timeout = d
	}
}
