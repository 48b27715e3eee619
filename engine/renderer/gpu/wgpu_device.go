package gpu

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuBuffer struct {
	id    uint64
	label string
	size  uint64
	usage BufferUsage
	buf   *wgpu.Buffer
}

func (b *wgpuBuffer) ID() uint64         { return b.id }
func (b *wgpuBuffer) Label() string      { return b.label }
func (b *wgpuBuffer) Size() uint64       { return b.size }
func (b *wgpuBuffer) Usage() BufferUsage { return b.usage }

type wgpuImage struct {
	id    uint64
	label string
	desc  ImageDescriptor
	tex   *wgpu.Texture
	view  *wgpu.TextureView
}

func (i *wgpuImage) ID() uint64          { return i.id }
func (i *wgpuImage) Label() string       { return i.label }
func (i *wgpuImage) Width() uint32       { return i.desc.Width }
func (i *wgpuImage) Height() uint32      { return i.desc.Height }
func (i *wgpuImage) Format() ImageFormat { return i.desc.Format }

type wgpuPipeline struct {
	id       uint64
	label    string
	pipeline *wgpu.RenderPipeline
	layout   *wgpu.PipelineLayout
	groups   []*wgpu.BindGroupLayout
}

func (p *wgpuPipeline) ID() uint64    { return p.id }
func (p *wgpuPipeline) Label() string { return p.label }

type wgpuBindGroup struct {
	id uint64
	bg *wgpu.BindGroup
}

func (g *wgpuBindGroup) ID() uint64 { return g.id }

// wgpuFence tracks the queue submission that signals it.
// WebGPU has no fence object; completion is observed by polling the device up to that
// submission, so later submissions stay in flight.
type wgpuFence struct {
	id         uint64
	pending    bool
	submission wgpu.SubmissionIndex
}

func (f *wgpuFence) ID() uint64 { return f.id }

func (f *wgpuFence) signalOn(index wgpu.SubmissionIndex) {
	f.pending = true
	f.submission = index
}

// waitTarget is the submission a poll for f has to wait for.
func (d *WGPUDevice) waitTarget(f *wgpuFence) *wgpu.WrappedSubmissionIndex {
	return &wgpu.WrappedSubmissionIndex{Queue: d.queue, SubmissionIndex: f.submission}
}

type wgpuCommandBuffer struct {
	id        uint64
	label     string
	device    *WGPUDevice
	encoder   *wgpu.CommandEncoder
	pass      *wgpu.RenderPassEncoder
	finished  *wgpu.CommandBuffer
	recording bool
	err       error
}

func (c *wgpuCommandBuffer) ID() uint64 { return c.id }

// WGPUDevice implements Device on top of WebGPU and presents to a window surface.
type WGPUDevice struct {
	mu *sync.Mutex

	nextID atomic.Uint64

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	presentMode   PresentMode
	forceFallback bool
	width, height uint32

	acquired *wgpuImage
}

var _ Device = &WGPUDevice{}

// NewWGPUDevice creates a WebGPU instance, adapter and device for the given surface
// and configures the swapchain. It must be called from the thread that owns the window.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor, usually from window.Window
//   - width, height: the initial swapchain extent in pixels
//   - options: functional options to configure the device
//
// Returns:
//   - *WGPUDevice: the ready device
//   - error: an error if no adapter or device could be obtained
func NewWGPUDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height uint32, options ...WGPUDeviceOption) (*WGPUDevice, error) {
	runtime.LockOSThread()
	d := &WGPUDevice{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: PresentModeVSync,
		width:       width,
		height:      height,
	}
	for _, option := range options {
		option(d)
	}
	d.surface = d.instance.CreateSurface(surfaceDescriptor)

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallback,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	capabilities := d.surface.GetCapabilities(d.adapter)
	if len(capabilities.Formats) == 0 {
		return nil, errors.New("surface reports no formats")
	}
	d.surfaceFormat = capabilities.Formats[0]
	d.configureSurface()
	return d, nil
}

// configureSurface (re)configures the swapchain. Caller must hold the mutex or be the constructor.
func (d *WGPUDevice) configureSurface() {
	capabilities := d.surface.GetCapabilities(d.adapter)
	mode := wgpu.PresentModeFifo
	if d.presentMode == PresentModeUncapped {
		mode = wgpu.PresentModeImmediate
	}
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       d.width,
		Height:      d.height,
		PresentMode: mode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (d *WGPUDevice) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("create buffer %q: zero size: %w", desc.Label, ErrInvalidDescriptor)
	}
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: toWGPUBufferUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", desc.Label, err)
	}
	return &wgpuBuffer{id: d.nextID.Add(1), label: desc.Label, size: desc.Size, usage: desc.Usage, buf: buf}, nil
}

func (d *WGPUDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*wgpuBuffer)
	if !ok {
		return ErrForeignHandle
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("write buffer %q: %d bytes at offset %d into %d: %w", b.label, len(data), offset, b.size, ErrOutOfBounds)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue.WriteBuffer(b.buf, offset, data)
	return nil
}

func (d *WGPUDevice) DestroyBuffer(buf Buffer) {
	if b, ok := buf.(*wgpuBuffer); ok && b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

func (d *WGPUDevice) CreateImage(desc ImageDescriptor) (Image, error) {
	if desc.Width == 0 || desc.Height == 0 || desc.Format == ImageFormatUndefined {
		return nil, fmt.Errorf("create image %q: %w", desc.Label, ErrInvalidDescriptor)
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        toWGPUFormat(desc.Format),
		Usage:         toWGPUTextureUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("create image %q: %w", desc.Label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("create image view %q: %w", desc.Label, err)
	}
	return &wgpuImage{id: d.nextID.Add(1), label: desc.Label, desc: desc, tex: tex, view: view}, nil
}

func (d *WGPUDevice) WriteImage(img Image, pixels []byte) error {
	i, ok := img.(*wgpuImage)
	if !ok {
		return ErrForeignHandle
	}
	if uint64(len(pixels)) != uint64(i.desc.Width)*uint64(i.desc.Height)*4 {
		return fmt.Errorf("write image %q: expected %dx%d RGBA pixels: %w", i.label, i.desc.Width, i.desc.Height, ErrOutOfBounds)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  i.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  i.desc.Width * 4,
			RowsPerImage: i.desc.Height,
		},
		&wgpu.Extent3D{
			Width:              i.desc.Width,
			Height:             i.desc.Height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (d *WGPUDevice) DestroyImage(img Image) {
	i, ok := img.(*wgpuImage)
	if !ok {
		return
	}
	if i.view != nil {
		i.view.Release()
		i.view = nil
	}
	if i.tex != nil {
		i.tex.Release()
		i.tex = nil
	}
}

func (d *WGPUDevice) CreatePipeline(desc PipelineDescriptor) (Pipeline, error) {
	if desc.VertexSource == "" || desc.FragmentSource == "" {
		return nil, fmt.Errorf("create pipeline %q: missing shader source: %w", desc.Label, ErrInvalidDescriptor)
	}

	vs, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label + " VS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.VertexSource},
	})
	if err != nil {
		return nil, fmt.Errorf("create vertex shader %q: %w", desc.Label, err)
	}
	defer vs.Release()

	fs, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label + " FS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.FragmentSource},
	})
	if err != nil {
		return nil, fmt.Errorf("create fragment shader %q: %w", desc.Label, err)
	}
	defer fs.Release()

	entries := make([]wgpu.BindGroupLayoutEntry, desc.UniformBindings)
	for i := range entries {
		entries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
		}
		entries[i].Buffer.Type = wgpu.BufferBindingTypeUniform
	}
	groupLayout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label + " Group 0",
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group layout %q: %w", desc.Label, err)
	}

	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: []*wgpu.BindGroupLayout{groupLayout},
	})
	if err != nil {
		groupLayout.Release()
		return nil, fmt.Errorf("create pipeline layout %q: %w", desc.Label, err)
	}

	vertexLayouts := make([]wgpu.VertexBufferLayout, 0, len(desc.VertexBuffers))
	for _, vb := range desc.VertexBuffers {
		attrs := make([]wgpu.VertexAttribute, 0, len(vb.Attributes))
		for _, a := range vb.Attributes {
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         toWGPUVertexFormat(a.Format),
				Offset:         a.Offset,
				ShaderLocation: a.Location,
			})
		}
		stepMode := wgpu.VertexStepModeVertex
		if vb.PerInstance {
			stepMode = wgpu.VertexStepModeInstance
		}
		vertexLayouts = append(vertexLayouts, wgpu.VertexBufferLayout{
			ArrayStride: vb.Stride,
			StepMode:    stepMode,
			Attributes:  attrs,
		})
	}

	colorFormat := d.surfaceFormat
	if desc.ColorFormat != ImageFormatUndefined {
		colorFormat = toWGPUFormat(desc.ColorFormat)
	}
	target := wgpu.ColorTargetState{
		Format:    colorFormat,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
	if desc.Blend {
		target.Blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	}

	var depthStencil *wgpu.DepthStencilState
	if desc.DepthFormat != ImageFormatUndefined {
		depthCompare := wgpu.CompareFunctionLess
		if !desc.DepthTest {
			depthCompare = wgpu.CompareFunctionAlways
		}
		depthStencil = &wgpu.DepthStencilState{
			Format:            toWGPUFormat(desc.DepthFormat),
			DepthWriteEnabled: desc.DepthWrite,
			DepthCompare:      depthCompare,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}

	vertexEntry := desc.VertexEntry
	if vertexEntry == "" {
		vertexEntry = "vs_main"
	}
	fragmentEntry := desc.FragmentEntry
	if fragmentEntry == "" {
		fragmentEntry = "fs_main"
	}

	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexEntry,
			Buffers:    vertexLayouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentEntry,
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  toWGPUCullMode(desc.CullMode),
		},
		Multisample: wgpu.MultisampleState{
			Count: max(desc.SampleCount, 1),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		layout.Release()
		groupLayout.Release()
		return nil, fmt.Errorf("create render pipeline %q: %w", desc.Label, err)
	}

	return &wgpuPipeline{
		id:       d.nextID.Add(1),
		label:    desc.Label,
		pipeline: created,
		layout:   layout,
		groups:   []*wgpu.BindGroupLayout{groupLayout},
	}, nil
}

func (d *WGPUDevice) DestroyPipeline(p Pipeline) {
	wp, ok := p.(*wgpuPipeline)
	if !ok || wp.pipeline == nil {
		return
	}
	wp.pipeline.Release()
	wp.layout.Release()
	for _, g := range wp.groups {
		g.Release()
	}
	wp.pipeline = nil
}

func (d *WGPUDevice) CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error) {
	wp, ok := desc.Pipeline.(*wgpuPipeline)
	if !ok {
		return nil, fmt.Errorf("create bind group %q: %w", desc.Label, ErrForeignHandle)
	}
	if int(desc.Group) >= len(wp.groups) {
		return nil, fmt.Errorf("create bind group %q: pipeline %q has no group %d: %w", desc.Label, wp.label, desc.Group, ErrInvalidDescriptor)
	}
	entries := make([]wgpu.BindGroupEntry, 0, len(desc.Buffers))
	for _, b := range desc.Buffers {
		wb, ok := b.Buffer.(*wgpuBuffer)
		if !ok {
			return nil, fmt.Errorf("create bind group %q: binding %d: %w", desc.Label, b.Binding, ErrForeignHandle)
		}
		size := b.Size
		if size == 0 {
			size = wgpu.WholeSize
		}
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: b.Binding,
			Buffer:  wb.buf,
			Offset:  b.Offset,
			Size:    size,
		})
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  wp.groups[desc.Group],
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group %q: %w", desc.Label, err)
	}
	return &wgpuBindGroup{id: d.nextID.Add(1), bg: bg}, nil
}

func (d *WGPUDevice) DestroyBindGroup(bg BindGroup) {
	if g, ok := bg.(*wgpuBindGroup); ok && g.bg != nil {
		g.bg.Release()
		g.bg = nil
	}
}

func (d *WGPUDevice) CreateCommandBuffer(label string) (CommandBuffer, error) {
	return &wgpuCommandBuffer{id: d.nextID.Add(1), label: label, device: d}, nil
}

func (d *WGPUDevice) DestroyCommandBuffer(cmd CommandBuffer) {
	c, ok := cmd.(*wgpuCommandBuffer)
	if !ok {
		return
	}
	c.releaseEncoder()
	if c.finished != nil {
		c.finished.Release()
		c.finished = nil
	}
}

func (d *WGPUDevice) CreateFence(_ string, signaled bool) (Fence, error) {
	return &wgpuFence{id: d.nextID.Add(1), pending: !signaled}, nil
}

func (d *WGPUDevice) WaitFence(ctx context.Context, f Fence) error {
	wf, ok := f.(*wgpuFence)
	if !ok {
		return ErrForeignHandle
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if wf.pending {
		d.device.Poll(true, d.waitTarget(wf))
		wf.pending = false
	}
	return nil
}

func (d *WGPUDevice) ResetFence(f Fence) {
	if wf, ok := f.(*wgpuFence); ok {
		d.mu.Lock()
		wf.pending = false
		d.mu.Unlock()
	}
}

func (d *WGPUDevice) DestroyFence(Fence) {}

func (d *WGPUDevice) Submit(cmd CommandBuffer, f Fence) error {
	c, ok := cmd.(*wgpuCommandBuffer)
	if !ok {
		return ErrForeignHandle
	}
	if c.recording || c.finished == nil {
		return fmt.Errorf("submit command buffer %q: %w", c.label, ErrNotRecording)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	index := d.queue.Submit(c.finished)
	c.finished.Release()
	c.finished = nil
	if wf, ok := f.(*wgpuFence); ok {
		wf.signalOn(index)
	}
	return nil
}

func (d *WGPUDevice) AcquireSwapchainImage() (Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.acquired != nil {
		return nil, ErrSwapchainAcquired
	}
	tex, err := d.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("acquire swapchain texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("acquire swapchain view: %w", err)
	}
	d.acquired = &wgpuImage{
		id:    d.nextID.Add(1),
		label: "swapchain",
		desc: ImageDescriptor{
			Width:  d.width,
			Height: d.height,
			Format: fromWGPUFormat(d.surfaceFormat),
			Usage:  ImageUsageRenderAttachment,
		},
		tex:  tex,
		view: view,
	}
	return d.acquired, nil
}

func (d *WGPUDevice) Present() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.acquired == nil {
		return ErrNoSwapchainImage
	}
	d.surface.Present()
	d.acquired.view.Release()
	d.acquired.tex.Release()
	d.acquired = nil
	return nil
}

func (d *WGPUDevice) SwapchainFormat() ImageFormat { return fromWGPUFormat(d.surfaceFormat) }

func (d *WGPUDevice) SwapchainExtent() (uint32, uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

func (d *WGPUDevice) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.width, d.height = width, height
	d.configureSurface()
}

func (d *WGPUDevice) WaitIdle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.device.Poll(true, nil)
	return nil
}

func (d *WGPUDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return
	}
	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.surface.Release()
	d.instance.Release()
	d.device = nil
}

func (c *wgpuCommandBuffer) releaseEncoder() {
	if c.pass != nil {
		c.pass.Release()
		c.pass = nil
	}
	if c.encoder != nil {
		c.encoder.Release()
		c.encoder = nil
	}
}

func (c *wgpuCommandBuffer) Begin() error {
	if c.recording {
		return ErrAlreadyRecording
	}
	if c.finished != nil {
		c.finished.Release()
		c.finished = nil
	}
	encoder, err := c.device.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("begin command buffer %q: %w", c.label, err)
	}
	c.encoder = encoder
	c.recording = true
	c.err = nil
	return nil
}

func (c *wgpuCommandBuffer) End() error {
	if !c.recording {
		return ErrNotRecording
	}
	c.recording = false
	if c.err == nil && c.pass != nil {
		c.err = fmt.Errorf("end command buffer %q: %w", c.label, ErrNestedRendering)
	}
	if c.err != nil {
		c.releaseEncoder()
		return c.err
	}
	cb, err := c.encoder.Finish(nil)
	c.releaseEncoder()
	if err != nil {
		return fmt.Errorf("finish command buffer %q: %w", c.label, err)
	}
	c.finished = cb
	return nil
}

func (c *wgpuCommandBuffer) Recording() bool { return c.recording }

func (c *wgpuCommandBuffer) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// TransitionImage is a no-op: WebGPU derives image usage transitions from the pass descriptors.
func (c *wgpuCommandBuffer) TransitionImage(Image, ImageLayout, ImageLayout) {
	if !c.recording {
		c.fail(ErrNotRecording)
	}
}

func (c *wgpuCommandBuffer) BeginRendering(info RenderingInfo) {
	if !c.recording {
		c.fail(ErrNotRecording)
		return
	}
	if c.pass != nil {
		c.fail(ErrNestedRendering)
		return
	}
	color, ok := info.Color.Image.(*wgpuImage)
	if !ok {
		c.fail(fmt.Errorf("begin rendering: color target: %w", ErrForeignHandle))
		return
	}
	desc := &wgpu.RenderPassDescriptor{
		Label: c.label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    color.view,
			LoadOp:  toWGPULoadOp(info.Color.LoadOp),
			StoreOp: toWGPUStoreOp(info.Color.StoreOp),
			ClearValue: wgpu.Color{
				R: float64(info.Color.ClearValue[0]),
				G: float64(info.Color.ClearValue[1]),
				B: float64(info.Color.ClearValue[2]),
				A: float64(info.Color.ClearValue[3]),
			},
		}},
	}
	if info.Depth != nil {
		depth, ok := info.Depth.Image.(*wgpuImage)
		if !ok {
			c.fail(fmt.Errorf("begin rendering: depth target: %w", ErrForeignHandle))
			return
		}
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            depth.view,
			DepthLoadOp:     toWGPULoadOp(info.Depth.LoadOp),
			DepthStoreOp:    toWGPUStoreOp(info.Depth.StoreOp),
			DepthClearValue: info.Depth.ClearValue,
		}
	}
	c.pass = c.encoder.BeginRenderPass(desc)
}

func (c *wgpuCommandBuffer) EndRendering() {
	if c.pass == nil {
		c.fail(ErrNoRendering)
		return
	}
	c.pass.End()
	c.pass.Release()
	c.pass = nil
}

func (c *wgpuCommandBuffer) BindPipeline(p Pipeline) {
	wp, ok := p.(*wgpuPipeline)
	if c.pass == nil || !ok {
		c.fail(ErrNoRendering)
		return
	}
	c.pass.SetPipeline(wp.pipeline)
}

func (c *wgpuCommandBuffer) BindBindGroup(index uint32, bg BindGroup) {
	g, ok := bg.(*wgpuBindGroup)
	if c.pass == nil || !ok {
		c.fail(ErrNoRendering)
		return
	}
	c.pass.SetBindGroup(index, g.bg, nil)
}

func (c *wgpuCommandBuffer) BindVertexBuffer(slot uint32, buf Buffer, offset uint64) {
	b, ok := buf.(*wgpuBuffer)
	if c.pass == nil || !ok {
		c.fail(ErrNoRendering)
		return
	}
	c.pass.SetVertexBuffer(slot, b.buf, offset, wgpu.WholeSize)
}

func (c *wgpuCommandBuffer) BindIndexBuffer(buf Buffer, offset uint64) {
	b, ok := buf.(*wgpuBuffer)
	if c.pass == nil || !ok {
		c.fail(ErrNoRendering)
		return
	}
	c.pass.SetIndexBuffer(b.buf, wgpu.IndexFormatUint32, offset, wgpu.WholeSize)
}

func (c *wgpuCommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	if c.pass == nil {
		c.fail(ErrNoRendering)
		return
	}
	c.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func toWGPUBufferUsage(u BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&BufferUsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if u&BufferUsageIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if u&BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&BufferUsageStorage != 0 {
		out |= wgpu.BufferUsageStorage
	}
	if u&BufferUsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	return out
}

func toWGPUTextureUsage(u ImageUsage) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	if u&ImageUsageRenderAttachment != 0 {
		out |= wgpu.TextureUsageRenderAttachment
	}
	if u&ImageUsageSampled != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	if u&ImageUsageCopyDst != 0 {
		out |= wgpu.TextureUsageCopyDst
	}
	return out
}

func toWGPUFormat(f ImageFormat) wgpu.TextureFormat {
	switch f {
	case ImageFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case ImageFormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case ImageFormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	case ImageFormatBGRA8UnormSrgb:
		return wgpu.TextureFormatBGRA8UnormSrgb
	case ImageFormatDepth24Plus:
		return wgpu.TextureFormatDepth24Plus
	case ImageFormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	default:
		return wgpu.TextureFormatUndefined
	}
}

func fromWGPUFormat(f wgpu.TextureFormat) ImageFormat {
	switch f {
	case wgpu.TextureFormatRGBA8Unorm:
		return ImageFormatRGBA8Unorm
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return ImageFormatRGBA8UnormSrgb
	case wgpu.TextureFormatBGRA8Unorm:
		return ImageFormatBGRA8Unorm
	case wgpu.TextureFormatBGRA8UnormSrgb:
		return ImageFormatBGRA8UnormSrgb
	case wgpu.TextureFormatDepth24Plus:
		return ImageFormatDepth24Plus
	case wgpu.TextureFormatDepth32Float:
		return ImageFormatDepth32Float
	default:
		return ImageFormatUndefined
	}
}

func toWGPUVertexFormat(f VertexFormat) wgpu.VertexFormat {
	switch f {
	case VertexFormatFloat32x2:
		return wgpu.VertexFormatFloat32x2
	case VertexFormatFloat32x3:
		return wgpu.VertexFormatFloat32x3
	case VertexFormatFloat32x4:
		return wgpu.VertexFormatFloat32x4
	case VertexFormatSint32x3:
		return wgpu.VertexFormatSint32x3
	default:
		return wgpu.VertexFormatFloat32
	}
}

func toWGPUCullMode(m CullMode) wgpu.CullMode {
	switch m {
	case CullModeFront:
		return wgpu.CullModeFront
	case CullModeNone:
		return wgpu.CullModeNone
	default:
		return wgpu.CullModeBack
	}
}

func toWGPULoadOp(op LoadOp) wgpu.LoadOp {
	if op == LoadOpLoad {
		return wgpu.LoadOpLoad
	}
	return wgpu.LoadOpClear
}

func toWGPUStoreOp(op StoreOp) wgpu.StoreOp {
	if op == StoreOpDontCare {
		return wgpu.StoreOpDiscard
	}
	return wgpu.StoreOpStore
}
