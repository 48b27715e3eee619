package frame

import (
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"
	"go.uber.org/zap"
)

type MultiplexerOption func(*Multiplexer)

// WithFramesInFlight sets N, the number of slots in the ring.
//
// Parameters:
//   - n: the slot count, between 1 and MaxFramesInFlight
//
// Returns:
//   - MultiplexerOption: a function that sets the slot count
func WithFramesInFlight(n int) MultiplexerOption {
	return func(m *Multiplexer) {
		m.framesInFlight = n
	}
}

// WithInstanceCapacity sets the initial and maximum number of instance records per slot.
//
// Parameters:
//   - initial: records allocated up front
//   - maximum: the hard cap; writes beyond it fail with ErrInstanceCapacityExceeded
//
// Returns:
//   - MultiplexerOption: a function that sets the capacities
func WithInstanceCapacity(initial, maximum int) MultiplexerOption {
	return func(m *Multiplexer) {
		m.initialInstances = initial
		if maximum > 0 {
			m.maxInstances = maximum
		}
	}
}

// WithInstanceStride sets the size in bytes of one instance record.
func WithInstanceStride(stride uint64) MultiplexerOption {
	return func(m *Multiplexer) {
		if stride > 0 {
			m.instanceStride = stride
		}
	}
}

// WithCameraUniform sets the camera uniform size and the number of viewports
// that can be recorded per frame.
func WithCameraUniform(size uint64, viewports int) MultiplexerOption {
	return func(m *Multiplexer) {
		if size > 0 {
			m.cameraSize = size
		}
		if viewports > 0 {
			m.maxViewports = viewports
		}
	}
}

// WithBindGroupLayout sets the pipeline whose group 0 layout the camera bind groups target.
// Without it, WriteCamera uploads data but returns no bind group.
func WithBindGroupLayout(p gpu.Pipeline) MultiplexerOption {
	return func(m *Multiplexer) {
		m.layout = p
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) MultiplexerOption {
	return func(m *Multiplexer) {
		if log != nil {
			m.log = log.Named("frame")
		}
	}
}
