package frame

import (
	"fmt"

	"github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"
)

// Slot owns the per-frame resources of one frame in flight: the command buffer,
// its fence, the camera uniform ring and the instance buffer. A Slot handed out
// by BeginFrame is only usable until the matching EndFrame; afterwards every
// accessor fails with ErrStaleSlot.
type Slot struct {
	index int
	mux   *Multiplexer

	cmd   gpu.CommandBuffer
	fence gpu.Fence

	cameraBuffer     gpu.Buffer
	cameraBindGroups []gpu.BindGroup
	cameraCursor     int

	instanceBuffer   gpu.Buffer
	instanceCapacity int
	instanceCursor   int
	retired          []gpu.Buffer

	tick uint64
}

// Index returns the slot's position in the ring.
func (s *Slot) Index() int { return s.index }

func (s *Slot) check() error {
	if !s.mux.recording || s.mux.tick.Load() != s.tick || s.mux.current() != s.index {
		return fmt.Errorf("slot %d acquired at tick %d: %w", s.index, s.tick, ErrStaleSlot)
	}
	return nil
}

// CommandBuffer returns the command buffer being recorded this frame.
func (s *Slot) CommandBuffer() (gpu.CommandBuffer, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.cmd, nil
}

// SwapchainImage returns the swapchain image acquired for this frame.
func (s *Slot) SwapchainImage() (gpu.Image, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.mux.swapImage, nil
}

// WriteCamera uploads one camera uniform and returns the bind group that exposes it.
// Each call in a frame uses a fresh entry of the ring, so several viewports can be
// recorded into the same command buffer.
//
// Parameters:
//   - data: the uniform bytes, at most the configured uniform size
//
// Returns:
//   - gpu.BindGroup: the bind group for this entry, nil when no layout pipeline was configured
//   - error: ErrStaleSlot, ErrViewportsExhausted or a device error
func (s *Slot) WriteCamera(data []byte) (gpu.BindGroup, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if s.cameraCursor >= s.mux.maxViewports {
		return nil, fmt.Errorf("write camera: %d viewports this frame: %w", s.cameraCursor, ErrViewportsExhausted)
	}
	if uint64(len(data)) > s.mux.cameraSize {
		return nil, fmt.Errorf("write camera: %d bytes exceeds uniform size %d: %w", len(data), s.mux.cameraSize, gpu.ErrOutOfBounds)
	}
	entry := s.cameraCursor
	if err := s.mux.device.WriteBuffer(s.cameraBuffer, uint64(entry)*cameraStride, data); err != nil {
		return nil, fmt.Errorf("write camera: %w", err)
	}
	s.cameraCursor++
	if len(s.cameraBindGroups) == 0 {
		return nil, nil
	}
	return s.cameraBindGroups[entry], nil
}

// WriteInstances appends count instance records to this frame's instance buffer,
// growing it when needed.
//
// Parameters:
//   - data: the packed instance records
//   - count: the number of records in data
//
// Returns:
//   - gpu.Buffer: the buffer holding the records (it changes when the buffer grows)
//   - uint64: the byte offset of the first record
//   - error: ErrInstanceCapacityExceeded when count alone is above the hard cap
func (s *Slot) WriteInstances(data []byte, count int) (gpu.Buffer, uint64, error) {
	if err := s.check(); err != nil {
		return nil, 0, err
	}
	if count == 0 {
		return s.instanceBuffer, 0, nil
	}
	if count > s.mux.maxInstances {
		return nil, 0, fmt.Errorf("write %d instances, limit %d: %w", count, s.mux.maxInstances, ErrInstanceCapacityExceeded)
	}
	if s.instanceCursor+count > s.instanceCapacity {
		if err := s.growInstances(s.instanceCursor + count); err != nil {
			return nil, 0, err
		}
	}
	offset := uint64(s.instanceCursor) * s.mux.instanceStride
	if err := s.mux.device.WriteBuffer(s.instanceBuffer, offset, data); err != nil {
		return nil, 0, fmt.Errorf("write instances: %w", err)
	}
	s.instanceCursor += count
	return s.instanceBuffer, offset, nil
}

// InstanceCapacity returns the number of records the current instance buffer holds.
func (s *Slot) InstanceCapacity() int { return s.instanceCapacity }

// growInstances replaces the instance buffer with one that holds at least need records.
// If need does not fit under the cap even after a reset, the new buffer starts empty.
// The old buffer may already be bound by this frame, so it is retired until
// the slot's fence next signals.
func (s *Slot) growInstances(need int) error {
	capacity := max(s.instanceCapacity, s.mux.initialInstances, 1)
	for capacity < need {
		capacity *= 2
	}
	if capacity > s.mux.maxInstances {
		capacity = s.mux.maxInstances
		if need > capacity {
			// earlier passes keep the old buffer; the new one starts from zero
			s.instanceCursor = 0
		}
	}
	buf, err := s.mux.device.CreateBuffer(gpu.BufferDescriptor{
		Label: fmt.Sprintf("frame_%d_instances", s.index),
		Size:  uint64(capacity) * s.mux.instanceStride,
		Usage: gpu.BufferUsageVertex | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("grow instance buffer to %d: %w", capacity, err)
	}
	if s.instanceBuffer != nil {
		s.retired = append(s.retired, s.instanceBuffer)
	}
	s.instanceBuffer = buf
	s.instanceCapacity = capacity
	s.mux.log.Debug("instance buffer grown", zapSlot(s.index), zapCapacity(capacity))
	return nil
}

// reset runs after the slot's fence wait: nothing from its previous use is in flight.
func (s *Slot) reset(tick uint64) {
	for _, b := range s.retired {
		s.mux.device.DestroyBuffer(b)
	}
	s.retired = s.retired[:0]
	s.cameraCursor = 0
	s.instanceCursor = 0
	s.tick = tick
}

func (s *Slot) destroy() {
	d := s.mux.device
	for _, b := range s.retired {
		d.DestroyBuffer(b)
	}
	s.retired = nil
	for _, bg := range s.cameraBindGroups {
		d.DestroyBindGroup(bg)
	}
	s.cameraBindGroups = nil
	if s.cameraBuffer != nil {
		d.DestroyBuffer(s.cameraBuffer)
		s.cameraBuffer = nil
	}
	if s.instanceBuffer != nil {
		d.DestroyBuffer(s.instanceBuffer)
		s.instanceBuffer = nil
	}
	if s.cmd != nil {
		d.DestroyCommandBuffer(s.cmd)
		s.cmd = nil
	}
	if s.fence != nil {
		d.DestroyFence(s.fence)
		s.fence = nil
	}
}
