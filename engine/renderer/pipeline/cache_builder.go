package pipeline

import "go.uber.org/zap"

type CacheOption func(*Cache)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) CacheOption {
	return func(c *Cache) {
		if log != nil {
			c.log = log.Named("pipeline")
		}
	}
}
