package renderer

import "go.uber.org/zap"

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithFramesInFlight sets how many frames the CPU may record ahead of the GPU.
//
// Parameters:
//   - n: the number of frame slots, 1 to 8
//
// Returns:
//   - RendererBuilderOption: a function that applies the frames in flight option to a renderer
func WithFramesInFlight(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.framesInFlight = n
	}
}

// WithMaxInstances sets the hard cap on instances per frame.
//
// Parameters:
//   - n: the cap; frames above it fail with a capacity error
//
// Returns:
//   - RendererBuilderOption: a function that applies the instance cap to a renderer
func WithMaxInstances(n int) RendererBuilderOption {
	return func(r *renderer) {
		if n > 0 {
			r.maxInstances = n
		}
	}
}

// WithInitialInstances sets how many instance records each frame slot allocates up front.
//
// Parameters:
//   - n: the initial capacity
//
// Returns:
//   - RendererBuilderOption: a function that applies the initial capacity to a renderer
func WithInitialInstances(n int) RendererBuilderOption {
	return func(r *renderer) {
		if n > 0 {
			r.initialInstances = n
		}
	}
}

// WithParallelThreshold sets the instance count above which batching fans out to workers.
func WithParallelThreshold(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.parallelThreshold = n
	}
}

// WithBatchWorkers sets the number of batching workers. Zero keeps the CPU-based default.
func WithBatchWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.batchWorkers = n
	}
}

// WithMaxTextureSlots sets the capacity of the texture slot registry.
func WithMaxTextureSlots(n int) RendererBuilderOption {
	return func(r *renderer) {
		if n > 0 {
			r.maxTextureSlots = n
		}
	}
}

// WithMaxViewports sets how many viewports can be rendered per frame.
func WithMaxViewports(n int) RendererBuilderOption {
	return func(r *renderer) {
		if n > 0 {
			r.maxViewports = n
		}
	}
}

// WithLogger sets the logger shared by the renderer's subsystems.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger to a renderer
func WithLogger(log *zap.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if log != nil {
			r.log = log.Named("renderer")
		}
	}
}
