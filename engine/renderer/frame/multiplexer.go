// Package frame multiplexes per-frame GPU resources across a fixed number of
// frames in flight. Slot i is reused every N ticks and is only touched again after
// its fence reports that the GPU has finished the previous use.
package frame

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"
	"go.uber.org/zap"
)

const (
	DefaultFramesInFlight = 2
	MaxFramesInFlight     = 8

	// cameraStride is the minimum uniform buffer offset alignment guaranteed by every backend.
	cameraStride = 256
)

// Multiplexer owns the ring of frame slots and drives the begin/end cycle.
// BeginFrame, EndFrame and SubmitAndWait must be called from the render goroutine;
// CurrentFrameIndex is safe from any goroutine.
type Multiplexer struct {
	device gpu.Device
	log    *zap.Logger

	slots []*Slot
	tick  atomic.Uint64

	recording   bool
	swapImage   gpu.Image
	submitFence gpu.Fence

	acquireHooks []func(slot int)

	framesInFlight   int
	initialInstances int
	maxInstances     int
	instanceStride   uint64
	cameraSize       uint64
	maxViewports     int
	layout           gpu.Pipeline
}

// NewMultiplexer creates every slot's command buffer, fence (created signaled so the
// first wait returns at once), camera uniform ring and instance buffer.
//
// Parameters:
//   - device: the device that owns the resources
//   - options: functional options to configure the multiplexer
//
// Returns:
//   - *Multiplexer: the multiplexer positioned at tick 0
//   - error: an error if any resource could not be created
func NewMultiplexer(device gpu.Device, options ...MultiplexerOption) (*Multiplexer, error) {
	m := &Multiplexer{
		device:           device,
		log:              zap.NewNop(),
		framesInFlight:   DefaultFramesInFlight,
		initialInstances: 1024,
		maxInstances:     1 << 16,
		instanceStride:   96,
		cameraSize:       80,
		maxViewports:     4,
	}
	for _, option := range options {
		option(m)
	}
	if m.framesInFlight < 1 || m.framesInFlight > MaxFramesInFlight {
		return nil, fmt.Errorf("frames in flight %d outside [1, %d]: %w", m.framesInFlight, MaxFramesInFlight, gpu.ErrInvalidDescriptor)
	}
	if m.cameraSize > cameraStride {
		return nil, fmt.Errorf("camera uniform size %d exceeds %d: %w", m.cameraSize, cameraStride, gpu.ErrInvalidDescriptor)
	}
	m.initialInstances = min(max(m.initialInstances, 1), m.maxInstances)

	fence, err := device.CreateFence("frame_submit", false)
	if err != nil {
		return nil, fmt.Errorf("create submit fence: %w", err)
	}
	m.submitFence = fence

	for i := range m.framesInFlight {
		s, err := m.newSlot(i)
		if err != nil {
			m.destroyAll()
			return nil, err
		}
		m.slots = append(m.slots, s)
	}
	m.log.Info("frame multiplexer ready",
		zap.Int("frames_in_flight", m.framesInFlight),
		zap.Int("initial_instances", m.initialInstances),
		zap.Int("max_instances", m.maxInstances),
	)
	return m, nil
}

func (m *Multiplexer) newSlot(i int) (*Slot, error) {
	s := &Slot{index: i, mux: m}
	var err error
	if s.cmd, err = m.device.CreateCommandBuffer(fmt.Sprintf("frame_%d_commands", i)); err != nil {
		return nil, fmt.Errorf("slot %d command buffer: %w", i, err)
	}
	if s.fence, err = m.device.CreateFence(fmt.Sprintf("frame_%d_fence", i), true); err != nil {
		s.destroy()
		return nil, fmt.Errorf("slot %d fence: %w", i, err)
	}
	s.cameraBuffer, err = m.device.CreateBuffer(gpu.BufferDescriptor{
		Label: fmt.Sprintf("frame_%d_camera", i),
		Size:  uint64(m.maxViewports) * cameraStride,
		Usage: gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		s.destroy()
		return nil, fmt.Errorf("slot %d camera buffer: %w", i, err)
	}
	if m.layout != nil {
		for v := range m.maxViewports {
			bg, err := m.device.CreateBindGroup(gpu.BindGroupDescriptor{
				Label:    fmt.Sprintf("frame_%d_camera_%d", i, v),
				Pipeline: m.layout,
				Group:    0,
				Buffers: []gpu.BufferBinding{{
					Binding: 0,
					Buffer:  s.cameraBuffer,
					Offset:  uint64(v) * cameraStride,
					Size:    m.cameraSize,
				}},
			})
			if err != nil {
				s.destroy()
				return nil, fmt.Errorf("slot %d camera bind group %d: %w", i, v, err)
			}
			s.cameraBindGroups = append(s.cameraBindGroups, bg)
		}
	}
	if err := s.growInstances(m.initialInstances); err != nil {
		s.destroy()
		return nil, fmt.Errorf("slot %d: %w", i, err)
	}
	return s, nil
}

func (m *Multiplexer) current() int {
	return int(m.tick.Load() % uint64(len(m.slots)))
}

// CurrentFrameIndex returns tick mod N, the slot being recorded or about to be.
func (m *Multiplexer) CurrentFrameIndex() int { return m.current() }

// Tick returns the number of frames ended so far.
func (m *Multiplexer) Tick() uint64 { return m.tick.Load() }

// FramesInFlight returns N.
func (m *Multiplexer) FramesInFlight() int { return len(m.slots) }

// Recording reports whether a frame is between BeginFrame and EndFrame.
func (m *Multiplexer) Recording() bool { return m.recording }

// OnSlotAcquired registers fn to run inside BeginFrame right after the slot's fence
// wait, with the slot index. Hooks run in registration order.
func (m *Multiplexer) OnSlotAcquired(fn func(slot int)) {
	if fn != nil {
		m.acquireHooks = append(m.acquireHooks, fn)
	}
}

// BeginFrame blocks until the current slot's previous submission has finished,
// releases what was retired against it, runs the acquire hooks, acquires the swapchain
// image and begins recording the slot's command buffer.
//
// Parameters:
//   - ctx: bounds the fence wait
//
// Returns:
//   - *Slot: the slot to record into, valid until EndFrame
//   - error: ErrFrameInProgress, a cancelled wait, or a device error
func (m *Multiplexer) BeginFrame(ctx context.Context) (*Slot, error) {
	if m.recording {
		return nil, ErrFrameInProgress
	}
	tick := m.tick.Load()
	s := m.slots[m.current()]
	if err := m.device.WaitFence(ctx, s.fence); err != nil {
		return nil, fmt.Errorf("wait frame %d fence: %w", s.index, err)
	}
	s.reset(tick)
	for _, hook := range m.acquireHooks {
		hook(s.index)
	}

	img, err := m.device.AcquireSwapchainImage()
	if err != nil {
		return nil, fmt.Errorf("acquire swapchain image: %w", err)
	}
	if err := s.cmd.Begin(); err != nil {
		_ = m.device.Present()
		return nil, fmt.Errorf("begin frame %d: %w", s.index, err)
	}
	m.swapImage = img
	m.recording = true
	return s, nil
}

// EndFrame finishes recording, submits the command buffer signaling the slot's fence,
// presents and advances the tick. The tick advances even when submission fails so
// the ring never stalls on a broken frame.
//
// Returns:
//   - error: ErrNoFrame, or the first recording, submit or present failure
func (m *Multiplexer) EndFrame() error {
	if !m.recording {
		return ErrNoFrame
	}
	s := m.slots[m.current()]
	m.recording = false
	m.swapImage = nil
	defer m.tick.Add(1)

	var firstErr error
	if err := s.cmd.End(); err != nil {
		firstErr = fmt.Errorf("end frame %d: %w", s.index, err)
	} else {
		m.device.ResetFence(s.fence)
		if err := m.device.Submit(s.cmd, s.fence); err != nil {
			firstErr = fmt.Errorf("submit frame %d: %w", s.index, err)
		}
	}
	if err := m.device.Present(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("present frame %d: %w", s.index, err)
	}
	return firstErr
}

// SubmitAndWait submits what the current frame recorded so far, blocks until the GPU
// has finished it and reopens the command buffer so the frame can continue.
//
// Parameters:
//   - ctx: bounds the wait
//
// Returns:
//   - error: ErrNoFrame, or a recording, submit or wait failure
func (m *Multiplexer) SubmitAndWait(ctx context.Context) error {
	if !m.recording {
		return ErrNoFrame
	}
	s := m.slots[m.current()]
	if err := s.cmd.End(); err != nil {
		return fmt.Errorf("end frame %d for immediate submit: %w", s.index, err)
	}
	m.device.ResetFence(m.submitFence)
	if err := m.device.Submit(s.cmd, m.submitFence); err != nil {
		return fmt.Errorf("immediate submit frame %d: %w", s.index, err)
	}
	if err := m.device.WaitFence(ctx, m.submitFence); err != nil {
		return fmt.Errorf("wait immediate submit: %w", err)
	}
	if err := s.cmd.Begin(); err != nil {
		return fmt.Errorf("resume frame %d: %w", s.index, err)
	}
	return nil
}

// Shutdown waits for the device to go idle and destroys every slot resource.
// A frame still being recorded is abandoned.
//
// Parameters:
//   - ctx: bounds the idle wait
//
// Returns:
//   - error: an error if the device did not go idle
func (m *Multiplexer) Shutdown(ctx context.Context) error {
	if m.recording {
		m.recording = false
		m.swapImage = nil
		_ = m.device.Present()
	}
	if err := m.device.WaitIdle(ctx); err != nil {
		return fmt.Errorf("shutdown frames: %w", err)
	}
	m.destroyAll()
	m.log.Info("frame multiplexer shut down", zap.Uint64("ticks", m.tick.Load()))
	return nil
}

func (m *Multiplexer) destroyAll() {
	for _, s := range m.slots {
		s.destroy()
	}
	m.slots = nil
	if m.submitFence != nil {
		m.device.DestroyFence(m.submitFence)
		m.submitFence = nil
	}
}

func zapSlot(i int) zap.Field     { return zap.Int("slot", i) }
func zapCapacity(n int) zap.Field { return zap.Int("capacity", n) }
