package batch

import "go.uber.org/zap"

type BatcherOption func(*Batcher)

// WithParallelThreshold sets the instanced count above which serialization fans out.
//
// Parameters:
//   - n: the threshold
//
// Returns:
//   - BatcherOption: a function that sets the threshold
func WithParallelThreshold(n int) BatcherOption {
	return func(b *Batcher) {
		b.threshold = max(n, 0)
	}
}

// WithWorkers sets the number of serialization workers. One disables fan-out.
func WithWorkers(n int) BatcherOption {
	return func(b *Batcher) {
		b.workers = max(n, 1)
	}
}

// WithMaxInstances sets the per-frame instance cap.
func WithMaxInstances(n int) BatcherOption {
	return func(b *Batcher) {
		if n > 0 {
			b.maxInstances = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) BatcherOption {
	return func(b *Batcher) {
		if log != nil {
			b.log = log.Named("batch")
		}
	}
}
