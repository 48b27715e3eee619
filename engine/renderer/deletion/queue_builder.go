package deletion

import "go.uber.org/zap"

type QueueOption func(*Queue)

// WithLogger sets the logger used to report flushes.
//
// Parameters:
//   - log: the logger; nil keeps the no-op default
//
// Returns:
//   - QueueOption: a function that sets the logger
func WithLogger(log *zap.Logger) QueueOption {
	return func(q *Queue) {
		if log != nil {
			q.log = log.Named("deletion")
		}
	}
}
