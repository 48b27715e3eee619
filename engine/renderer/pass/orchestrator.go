// Package pass opens and closes rendering scopes on the current frame's command buffer,
// recording the image layout transitions each scope needs.
package pass

import (
	"fmt"

	"github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"
	"go.uber.org/zap"
)

// Recorder is the frame the orchestrator records into. *frame.Slot satisfies it.
type Recorder interface {
	CommandBuffer() (gpu.CommandBuffer, error)
	SwapchainImage() (gpu.Image, error)
}

type activePass struct {
	cmd         gpu.CommandBuffer
	color       gpu.Image
	finalLayout gpu.ImageLayout
	width       uint32
	height      uint32
	swapchain   bool
}

// Orchestrator tracks at most one active rendering scope and the last known layout of
// every image it has transitioned.
type Orchestrator struct {
	rec     Recorder
	active  *activePass
	layouts map[uint64]gpu.ImageLayout
	log     *zap.Logger
}

// NewOrchestrator creates an orchestrator with no frame attached.
func NewOrchestrator(options ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		layouts: make(map[uint64]gpu.ImageLayout),
		log:     zap.NewNop(),
	}
	for _, option := range options {
		option(o)
	}
	return o
}

// Attach points the orchestrator at the frame being recorded. The swapchain image is
// freshly acquired, so its layout is reset to Undefined.
func (o *Orchestrator) Attach(rec Recorder) {
	o.rec = rec
	o.active = nil
	if img, err := rec.SwapchainImage(); err == nil && img != nil {
		delete(o.layouts, img.ID())
	}
}

// Detach forgets the frame. It fails with ErrPassActive while a scope is open.
func (o *Orchestrator) Detach() error {
	if o.active != nil {
		return ErrPassActive
	}
	o.rec = nil
	return nil
}

// Active reports whether a rendering scope is open.
func (o *Orchestrator) Active() bool { return o.active != nil }

// Extent returns the size of the active scope.
func (o *Orchestrator) Extent() (uint32, uint32) {
	if o.active == nil {
		return 0, 0
	}
	return o.active.width, o.active.height
}

// Layout returns the last layout img was left in.
func (o *Orchestrator) Layout(img gpu.Image) gpu.ImageLayout {
	return o.layouts[img.ID()]
}

// Forget drops the tracked layout of an image that is about to be destroyed.
func (o *Orchestrator) Forget(img gpu.Image) {
	delete(o.layouts, img.ID())
}

// BeginRendering transitions the targets into attachment layouts and opens a rendering scope.
//
// Parameters:
//   - spec: the targets, load/store ops and clear values
//
// Returns:
//   - error: ErrPassActive if a scope is already open, ErrNoRecorder without a frame,
//     or ErrNoTarget when there is neither a color target nor a swapchain image
func (o *Orchestrator) BeginRendering(spec RenderingSpec) error {
	if o.active != nil {
		return ErrPassActive
	}
	if o.rec == nil {
		return ErrNoRecorder
	}
	cmd, err := o.rec.CommandBuffer()
	if err != nil {
		return fmt.Errorf("begin rendering: %w", err)
	}

	p := &activePass{cmd: cmd, color: spec.ColorTarget, finalLayout: spec.ColorFinalLayout}
	if p.color == nil {
		if p.color, err = o.rec.SwapchainImage(); err != nil {
			return fmt.Errorf("begin rendering: %w", err)
		}
		p.swapchain = true
	}
	if p.color == nil {
		return ErrNoTarget
	}
	if p.finalLayout == gpu.ImageLayoutUndefined {
		p.finalLayout = gpu.ImageLayoutShaderReadOnly
		if p.swapchain {
			p.finalLayout = gpu.ImageLayoutPresentSrc
		}
	}
	p.width, p.height = spec.Width, spec.Height
	if p.width == 0 || p.height == 0 {
		p.width, p.height = p.color.Width(), p.color.Height()
	}

	o.transition(cmd, p.color, spec.ColorLayout, gpu.ImageLayoutColorAttachment)
	info := gpu.RenderingInfo{
		Color: gpu.ColorAttachment{
			Image:      p.color,
			LoadOp:     spec.ColorLoadOp,
			StoreOp:    spec.ColorStoreOp,
			ClearValue: spec.ClearColor,
		},
		Width:  p.width,
		Height: p.height,
	}
	if spec.DepthTarget != nil {
		o.transition(cmd, spec.DepthTarget, spec.DepthLayout, gpu.ImageLayoutDepthAttachment)
		info.Depth = &gpu.DepthAttachment{
			Image:      spec.DepthTarget,
			LoadOp:     spec.DepthLoadOp,
			StoreOp:    spec.DepthStoreOp,
			ClearValue: spec.ClearDepth,
		}
	}
	cmd.BeginRendering(info)
	o.active = p
	return nil
}

// EndRendering closes the active scope and moves the color target to its final layout.
//
// Returns:
//   - error: ErrNoActivePass if no scope is open
func (o *Orchestrator) EndRendering() error {
	p := o.active
	if p == nil {
		return ErrNoActivePass
	}
	p.cmd.EndRendering()
	o.transition(p.cmd, p.color, gpu.ImageLayoutUndefined, p.finalLayout)
	o.active = nil
	return nil
}

// transition records from -> to for img. An Undefined from uses the tracked layout.
// Nothing is recorded when the image is already in the target layout.
func (o *Orchestrator) transition(cmd gpu.CommandBuffer, img gpu.Image, from, to gpu.ImageLayout) {
	if from == gpu.ImageLayoutUndefined {
		from = o.layouts[img.ID()]
	}
	if from == to {
		return
	}
	cmd.TransitionImage(img, from, to)
	o.layouts[img.ID()] = to
	o.log.Debug("image transition",
		zap.String("image", img.Label()),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
}
