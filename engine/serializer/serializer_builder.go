package serializer

import "go.uber.org/zap"

type loadConfig struct {
	log *zap.Logger
}

// Option configures Load and Apply.
type Option func(*loadConfig)

// WithLogger sets the logger that reports skipped components.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - Option: a function that sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(c *loadConfig) {
		if log != nil {
			c.log = log.Named("serializer")
		}
	}
}
