package gpu

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// CommandOp identifies a recorded command.
type CommandOp int

const (
	OpTransition CommandOp = iota
	OpBeginRendering
	OpEndRendering
	OpBindPipeline
	OpBindBindGroup
	OpBindVertexBuffer
	OpBindIndexBuffer
	OpDrawIndexed
)

// DrawArgs are the arguments of a recorded DrawIndexed.
type DrawArgs struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// Command is one recorded command. Only the fields relevant to Op are set.
type Command struct {
	Op        CommandOp
	Image     uint64
	From, To  ImageLayout
	Rendering RenderingInfo
	Object    uint64 // pipeline, bind group or buffer ID
	Slot      uint32 // bind group index or vertex buffer slot
	Offset    uint64
	Draw      DrawArgs
}

// Submission is a command stream handed to the headless queue.
type Submission struct {
	CommandBuffer uint64
	Fence         uint64
	Commands      []Command
	completed     bool
	refs          map[uint64]struct{}
}

// Draws returns the draw calls in s, in record order.
func (s Submission) Draws() []DrawArgs {
	var out []DrawArgs
	for _, c := range s.Commands {
		if c.Op == OpDrawIndexed {
			out = append(out, c.Draw)
		}
	}
	return out
}

type headlessObject struct {
	id    uint64
	label string
}

func (o *headlessObject) ID() uint64    { return o.id }
func (o *headlessObject) Label() string { return o.label }

type headlessBuffer struct {
	headlessObject
	usage BufferUsage
	data  []byte
}

func (b *headlessBuffer) Size() uint64       { return uint64(len(b.data)) }
func (b *headlessBuffer) Usage() BufferUsage { return b.usage }

type headlessImage struct {
	headlessObject
	desc   ImageDescriptor
	pixels []byte
}

func (i *headlessImage) Width() uint32       { return i.desc.Width }
func (i *headlessImage) Height() uint32      { return i.desc.Height }
func (i *headlessImage) Format() ImageFormat { return i.desc.Format }

type headlessPipeline struct {
	headlessObject
	desc PipelineDescriptor
}

type headlessBindGroup struct {
	headlessObject
	desc BindGroupDescriptor
}

type headlessFence struct {
	headlessObject
	signaled bool
}

type headlessCommandBuffer struct {
	headlessObject
	device    *HeadlessDevice
	recording bool
	ended     bool
	rendering bool
	commands  []Command
	err       error
}

// HeadlessDevice is a Device that runs without a GPU. Buffer writes land in host
// memory, command buffers are recorded and kept after submission, and the
// device checks that nothing referenced by an unfinished submission is destroyed.
//
// A submission counts as finished once a fence it signals (or a later one) has
// been waited on, or after WaitIdle.
type HeadlessDevice struct {
	mu *sync.Mutex

	nextID atomic.Uint64

	objects     map[uint64]any
	submissions []*Submission
	violations  []string

	swapchain     []*headlessImage
	swapIndex     int
	acquired      *headlessImage
	format        ImageFormat
	presented     int
	fenceWaits    int
	maxBufferSize uint64
	released      bool
}

var _ Device = &HeadlessDevice{}

// HeadlessOption configures a HeadlessDevice.
type HeadlessOption func(*HeadlessDevice)

// WithSwapchain sets the extent and image count of the simulated swapchain.
func WithSwapchain(width, height uint32, images int) HeadlessOption {
	return func(d *HeadlessDevice) {
		d.swapchain = d.swapchain[:0]
		for i := range max(images, 1) {
			d.swapchain = append(d.swapchain, d.newSwapImage(i, width, height))
		}
	}
}

// WithMaxBufferSize makes CreateBuffer fail for buffers larger than n bytes.
func WithMaxBufferSize(n uint64) HeadlessOption {
	return func(d *HeadlessDevice) {
		d.maxBufferSize = n
	}
}

// NewHeadlessDevice creates a headless device with a 3-image 1280x720 swapchain.
func NewHeadlessDevice(options ...HeadlessOption) *HeadlessDevice {
	d := &HeadlessDevice{
		mu:      &sync.Mutex{},
		objects: make(map[uint64]any),
		format:  ImageFormatBGRA8UnormSrgb,
	}
	WithSwapchain(1280, 720, 3)(d)
	for _, option := range options {
		option(d)
	}
	return d
}

func (d *HeadlessDevice) newSwapImage(i int, width, height uint32) *headlessImage {
	return &headlessImage{
		headlessObject: headlessObject{id: d.nextID.Add(1), label: fmt.Sprintf("swapchain_%d", i)},
		desc: ImageDescriptor{
			Width:  width,
			Height: height,
			Format: d.format,
			Usage:  ImageUsageRenderAttachment,
		},
	}
}

func (d *HeadlessDevice) register(obj any, id uint64) {
	d.objects[id] = obj
}

// destroy removes id and records a violation when an unfinished submission still references it.
// Caller must hold the mutex.
func (d *HeadlessDevice) destroy(id uint64, kind string) {
	if _, ok := d.objects[id]; !ok {
		d.violations = append(d.violations, fmt.Sprintf("%s %d destroyed twice or never created", kind, id))
		return
	}
	for _, s := range d.submissions {
		if s.completed {
			continue
		}
		if _, ok := s.refs[id]; ok {
			d.violations = append(d.violations, fmt.Sprintf("%s %d destroyed while in use by command buffer %d", kind, id, s.CommandBuffer))
			break
		}
	}
	delete(d.objects, id)
}

func (d *HeadlessDevice) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("create buffer %q: zero size: %w", desc.Label, ErrInvalidDescriptor)
	}
	if d.maxBufferSize > 0 && desc.Size > d.maxBufferSize {
		return nil, fmt.Errorf("create buffer %q: %d bytes exceeds device limit %d: %w", desc.Label, desc.Size, d.maxBufferSize, ErrInvalidDescriptor)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	b := &headlessBuffer{
		headlessObject: headlessObject{id: d.nextID.Add(1), label: desc.Label},
		usage:          desc.Usage,
		data:           make([]byte, desc.Size),
	}
	d.register(b, b.id)
	return b, nil
}

func (d *HeadlessDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*headlessBuffer)
	if !ok {
		return ErrForeignHandle
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, live := d.objects[b.id]; !live {
		return fmt.Errorf("write buffer %q: %w", b.label, ErrDestroyed)
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("write buffer %q: %d bytes at offset %d into %d: %w", b.label, len(data), offset, len(b.data), ErrOutOfBounds)
	}
	copy(b.data[offset:], data)
	return nil
}

func (d *HeadlessDevice) DestroyBuffer(buf Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(buf.ID(), "buffer")
}

func (d *HeadlessDevice) CreateImage(desc ImageDescriptor) (Image, error) {
	if desc.Width == 0 || desc.Height == 0 || desc.Format == ImageFormatUndefined {
		return nil, fmt.Errorf("create image %q: %w", desc.Label, ErrInvalidDescriptor)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	img := &headlessImage{
		headlessObject: headlessObject{id: d.nextID.Add(1), label: desc.Label},
		desc:           desc,
	}
	d.register(img, img.id)
	return img, nil
}

func (d *HeadlessDevice) WriteImage(img Image, pixels []byte) error {
	i, ok := img.(*headlessImage)
	if !ok {
		return ErrForeignHandle
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, live := d.objects[i.id]; !live {
		return fmt.Errorf("write image %q: %w", i.label, ErrDestroyed)
	}
	i.pixels = append(i.pixels[:0], pixels...)
	return nil
}

func (d *HeadlessDevice) DestroyImage(img Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(img.ID(), "image")
}

func (d *HeadlessDevice) CreatePipeline(desc PipelineDescriptor) (Pipeline, error) {
	if desc.VertexSource == "" || desc.FragmentSource == "" {
		return nil, fmt.Errorf("create pipeline %q: missing shader source: %w", desc.Label, ErrInvalidDescriptor)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	p := &headlessPipeline{
		headlessObject: headlessObject{id: d.nextID.Add(1), label: desc.Label},
		desc:           desc,
	}
	d.register(p, p.id)
	return p, nil
}

func (d *HeadlessDevice) DestroyPipeline(p Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(p.ID(), "pipeline")
}

func (d *HeadlessDevice) CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error) {
	if desc.Pipeline == nil {
		return nil, fmt.Errorf("create bind group %q: nil pipeline: %w", desc.Label, ErrInvalidDescriptor)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	bg := &headlessBindGroup{
		headlessObject: headlessObject{id: d.nextID.Add(1), label: desc.Label},
		desc:           desc,
	}
	d.register(bg, bg.id)
	return bg, nil
}

func (d *HeadlessDevice) DestroyBindGroup(bg BindGroup) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(bg.ID(), "bind group")
}

func (d *HeadlessDevice) CreateCommandBuffer(label string) (CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &headlessCommandBuffer{
		headlessObject: headlessObject{id: d.nextID.Add(1), label: label},
		device:         d,
	}
	d.register(c, c.id)
	return c, nil
}

func (d *HeadlessDevice) DestroyCommandBuffer(cmd CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(cmd.ID(), "command buffer")
}

func (d *HeadlessDevice) CreateFence(label string, signaled bool) (Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := &headlessFence{
		headlessObject: headlessObject{id: d.nextID.Add(1), label: label},
		signaled:       signaled,
	}
	d.register(f, f.id)
	return f, nil
}

func (d *HeadlessDevice) WaitFence(ctx context.Context, f Fence) error {
	hf, ok := f.(*headlessFence)
	if !ok {
		return ErrForeignHandle
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fenceWaits++
	if hf.signaled {
		return nil
	}
	// the queue executes in order, so everything up to the last submission signaling hf is done
	last := -1
	for i, s := range d.submissions {
		if s.Fence == hf.id {
			last = i
		}
	}
	for i := 0; i <= last; i++ {
		d.submissions[i].completed = true
	}
	hf.signaled = true
	return nil
}

func (d *HeadlessDevice) ResetFence(f Fence) {
	if hf, ok := f.(*headlessFence); ok {
		d.mu.Lock()
		hf.signaled = false
		d.mu.Unlock()
	}
}

func (d *HeadlessDevice) DestroyFence(f Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(f.ID(), "fence")
}

func (d *HeadlessDevice) Submit(cmd CommandBuffer, f Fence) error {
	c, ok := cmd.(*headlessCommandBuffer)
	if !ok {
		return ErrForeignHandle
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if c.recording || !c.ended {
		return fmt.Errorf("submit command buffer %q: %w", c.label, ErrNotRecording)
	}
	s := &Submission{
		CommandBuffer: c.id,
		Commands:      append([]Command(nil), c.commands...),
		refs:          make(map[uint64]struct{}),
	}
	for _, cm := range s.Commands {
		switch cm.Op {
		case OpTransition:
			s.refs[cm.Image] = struct{}{}
		case OpBindPipeline, OpBindBindGroup, OpBindVertexBuffer, OpBindIndexBuffer:
			s.refs[cm.Object] = struct{}{}
		case OpBeginRendering:
			if cm.Rendering.Color.Image != nil {
				s.refs[cm.Rendering.Color.Image.ID()] = struct{}{}
			}
			if cm.Rendering.Depth != nil && cm.Rendering.Depth.Image != nil {
				s.refs[cm.Rendering.Depth.Image.ID()] = struct{}{}
			}
		}
	}
	if f != nil {
		s.Fence = f.ID()
		if hf, ok := f.(*headlessFence); ok {
			hf.signaled = false
		}
	}
	c.ended = false
	d.submissions = append(d.submissions, s)
	return nil
}

func (d *HeadlessDevice) AcquireSwapchainImage() (Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.acquired != nil {
		return nil, ErrSwapchainAcquired
	}
	img := d.swapchain[d.swapIndex]
	d.swapIndex = (d.swapIndex + 1) % len(d.swapchain)
	d.acquired = img
	return img, nil
}

func (d *HeadlessDevice) Present() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.acquired == nil {
		return ErrNoSwapchainImage
	}
	d.acquired = nil
	d.presented++
	return nil
}

func (d *HeadlessDevice) SwapchainFormat() ImageFormat { return d.format }

func (d *HeadlessDevice) SwapchainExtent() (uint32, uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.swapchain[0].desc.Width, d.swapchain[0].desc.Height
}

func (d *HeadlessDevice) Resize(width, height uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, img := range d.swapchain {
		img.desc.Width, img.desc.Height = width, height
	}
}

func (d *HeadlessDevice) WaitIdle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.submissions {
		s.completed = true
	}
	for _, obj := range d.objects {
		if f, ok := obj.(*headlessFence); ok {
			f.signaled = true
		}
	}
	return nil
}

func (d *HeadlessDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = true
}

// Submissions returns every submission made so far, oldest first.
func (d *HeadlessDevice) Submissions() []Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Submission, len(d.submissions))
	for i, s := range d.submissions {
		out[i] = *s
	}
	return out
}

// BufferData returns a copy of buf's host-side contents.
func (d *HeadlessDevice) BufferData(buf Buffer) []byte {
	b, ok := buf.(*headlessBuffer)
	if !ok {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), b.data...)
}

// BufferDataByID returns a copy of the contents of the live buffer with the given ID, or nil.
func (d *HeadlessDevice) BufferDataByID(id uint64) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.objects[id].(*headlessBuffer)
	if !ok {
		return nil
	}
	return append([]byte(nil), b.data...)
}

// Live reports whether the object with the given ID has been created and not destroyed.
func (d *HeadlessDevice) Live(id uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.objects[id]
	return ok
}

// LiveObjects returns the number of created objects that have not been destroyed.
func (d *HeadlessDevice) LiveObjects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.objects)
}

// Violations lists every destroy that raced an unfinished submission or repeated a destroy.
func (d *HeadlessDevice) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.violations...)
}

// Presented returns the number of successful Present calls.
func (d *HeadlessDevice) Presented() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presented
}

// FenceWaits returns the number of WaitFence calls.
func (d *HeadlessDevice) FenceWaits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fenceWaits
}

// Released reports whether Release has been called.
func (d *HeadlessDevice) Released() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

func (c *headlessCommandBuffer) Begin() error {
	if c.recording {
		return ErrAlreadyRecording
	}
	c.recording = true
	c.ended = false
	c.rendering = false
	c.commands = c.commands[:0]
	c.err = nil
	return nil
}

func (c *headlessCommandBuffer) End() error {
	if !c.recording {
		return ErrNotRecording
	}
	c.recording = false
	if c.err == nil && c.rendering {
		c.err = fmt.Errorf("end command buffer %q: %w", c.label, ErrNestedRendering)
	}
	if c.err != nil {
		return c.err
	}
	c.ended = true
	return nil
}

func (c *headlessCommandBuffer) Recording() bool { return c.recording }

// record appends cmd, remembering the first misuse so End can report it.
func (c *headlessCommandBuffer) record(cmd Command, needsRendering bool) {
	if c.err != nil {
		return
	}
	if !c.recording {
		c.err = ErrNotRecording
		return
	}
	if needsRendering && !c.rendering {
		c.err = ErrNoRendering
		return
	}
	c.commands = append(c.commands, cmd)
}

func (c *headlessCommandBuffer) TransitionImage(img Image, from, to ImageLayout) {
	c.record(Command{Op: OpTransition, Image: img.ID(), From: from, To: to}, false)
}

func (c *headlessCommandBuffer) BeginRendering(info RenderingInfo) {
	if c.rendering && c.err == nil {
		c.err = ErrNestedRendering
		return
	}
	c.record(Command{Op: OpBeginRendering, Rendering: info}, false)
	c.rendering = true
}

func (c *headlessCommandBuffer) EndRendering() {
	c.record(Command{Op: OpEndRendering}, true)
	c.rendering = false
}

func (c *headlessCommandBuffer) BindPipeline(p Pipeline) {
	c.record(Command{Op: OpBindPipeline, Object: p.ID()}, true)
}

func (c *headlessCommandBuffer) BindBindGroup(index uint32, bg BindGroup) {
	c.record(Command{Op: OpBindBindGroup, Object: bg.ID(), Slot: index}, true)
}

func (c *headlessCommandBuffer) BindVertexBuffer(slot uint32, buf Buffer, offset uint64) {
	c.record(Command{Op: OpBindVertexBuffer, Object: buf.ID(), Slot: slot, Offset: offset}, true)
}

func (c *headlessCommandBuffer) BindIndexBuffer(buf Buffer, offset uint64) {
	c.record(Command{Op: OpBindIndexBuffer, Object: buf.ID(), Offset: offset}, true)
}

func (c *headlessCommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	c.record(Command{Op: OpDrawIndexed, Draw: DrawArgs{
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		FirstIndex:    firstIndex,
		BaseVertex:    baseVertex,
		FirstInstance: firstInstance,
	}}, true)
}
