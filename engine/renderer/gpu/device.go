// Package gpu defines the explicit graphics device the renderer is written against.
// Two backends implement it: a WebGPU backend for real output and a headless
// recording backend that keeps buffer contents in host memory and records every
// command stream for inspection.
package gpu

import "context"

// BufferUsage is a bit set describing how a buffer is bound.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageCopyDst
)

// ImageUsage is a bit set describing how an image is used.
type ImageUsage uint32

const (
	ImageUsageRenderAttachment ImageUsage = 1 << iota
	ImageUsageSampled
	ImageUsageCopyDst
)

// ImageFormat enumerates the pixel formats the engine uses.
type ImageFormat int

const (
	ImageFormatUndefined ImageFormat = iota
	ImageFormatRGBA8Unorm
	ImageFormatRGBA8UnormSrgb
	ImageFormatBGRA8Unorm
	ImageFormatBGRA8UnormSrgb
	ImageFormatDepth24Plus
	ImageFormatDepth32Float
)

// IsDepth reports whether f is a depth format.
func (f ImageFormat) IsDepth() bool {
	return f == ImageFormatDepth24Plus || f == ImageFormatDepth32Float
}

// ImageLayout is the access state an image is in. Backends that track layouts
// implicitly (WebGPU) record transitions without acting on them.
type ImageLayout int

const (
	ImageLayoutUndefined ImageLayout = iota
	ImageLayoutColorAttachment
	ImageLayoutDepthAttachment
	ImageLayoutShaderReadOnly
	ImageLayoutTransferDst
	ImageLayoutPresentSrc
)

func (l ImageLayout) String() string {
	switch l {
	case ImageLayoutColorAttachment:
		return "color_attachment"
	case ImageLayoutDepthAttachment:
		return "depth_attachment"
	case ImageLayoutShaderReadOnly:
		return "shader_read_only"
	case ImageLayoutTransferDst:
		return "transfer_dst"
	case ImageLayoutPresentSrc:
		return "present_src"
	default:
		return "undefined"
	}
}

// LoadOp selects what happens to an attachment's contents at the start of a pass.
type LoadOp int

const (
	LoadOpClear LoadOp = iota
	LoadOpLoad
	LoadOpDontCare
)

// StoreOp selects what happens to an attachment's contents at the end of a pass.
type StoreOp int

const (
	StoreOpStore StoreOp = iota
	StoreOpDontCare
)

// CullMode selects which triangle faces are discarded.
type CullMode int

const (
	CullModeBack CullMode = iota
	CullModeFront
	CullModeNone
)

// VertexFormat enumerates vertex attribute formats.
type VertexFormat int

const (
	VertexFormatFloat32 VertexFormat = iota
	VertexFormatFloat32x2
	VertexFormatFloat32x3
	VertexFormatFloat32x4
	VertexFormatSint32x3
)

// Buffer is a device buffer handle.
type Buffer interface {
	ID() uint64
	Label() string
	Size() uint64
	Usage() BufferUsage
}

// Image is a device image handle. Swapchain images are Images too.
type Image interface {
	ID() uint64
	Label() string
	Width() uint32
	Height() uint32
	Format() ImageFormat
}

// Pipeline is a compiled graphics pipeline handle.
type Pipeline interface {
	ID() uint64
	Label() string
}

// BindGroup is a set of resources bound together at one group index.
type BindGroup interface {
	ID() uint64
}

// Fence is signaled by the device when a submission completes.
type Fence interface {
	ID() uint64
}

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// ImageDescriptor describes an image to create.
type ImageDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format ImageFormat
	Usage  ImageUsage
}

// VertexAttribute describes one attribute inside a vertex buffer layout.
type VertexAttribute struct {
	Format   VertexFormat
	Offset   uint64
	Location uint32
}

// VertexBufferLayout describes the stride and attributes of one vertex buffer slot.
type VertexBufferLayout struct {
	Stride      uint64
	PerInstance bool
	Attributes  []VertexAttribute
}

// PipelineDescriptor carries everything a backend needs to compile a graphics pipeline.
type PipelineDescriptor struct {
	Label          string
	VertexSource   string
	VertexEntry    string
	FragmentSource string
	FragmentEntry  string
	VertexBuffers  []VertexBufferLayout
	// UniformBindings is the number of uniform buffers declared at bind group 0.
	UniformBindings uint32
	ColorFormat     ImageFormat
	DepthFormat     ImageFormat
	DepthTest       bool
	DepthWrite      bool
	Blend           bool
	CullMode        CullMode
	SampleCount     uint32
}

// BufferBinding binds a range of a buffer at a binding index.
type BufferBinding struct {
	Binding uint32
	Buffer  Buffer
	Offset  uint64
	Size    uint64 // 0 binds the whole buffer
}

// BindGroupDescriptor describes a bind group compatible with group Group of Pipeline.
type BindGroupDescriptor struct {
	Label    string
	Pipeline Pipeline
	Group    uint32
	Buffers  []BufferBinding
}

// ColorAttachment is the color target of a rendering scope.
type ColorAttachment struct {
	Image      Image
	LoadOp     LoadOp
	StoreOp    StoreOp
	ClearValue [4]float32
}

// DepthAttachment is the depth target of a rendering scope.
type DepthAttachment struct {
	Image      Image
	LoadOp     LoadOp
	StoreOp    StoreOp
	ClearValue float32
}

// RenderingInfo opens a rendering scope on a command buffer.
type RenderingInfo struct {
	Color  ColorAttachment
	Depth  *DepthAttachment
	Width  uint32
	Height uint32
}

// CommandBuffer records GPU work. Recording calls outside Begin/End are backend errors
// surfaced by End or Submit.
type CommandBuffer interface {
	ID() uint64

	// Begin resets the buffer and starts a new recording.
	Begin() error

	// End finishes recording. The buffer can then be submitted once.
	End() error

	// Recording reports whether the buffer is between Begin and End.
	Recording() bool

	TransitionImage(img Image, from, to ImageLayout)
	BeginRendering(info RenderingInfo)
	EndRendering()
	BindPipeline(p Pipeline)
	BindBindGroup(index uint32, bg BindGroup)
	BindVertexBuffer(slot uint32, buf Buffer, offset uint64)
	BindIndexBuffer(buf Buffer, offset uint64)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
}

// Device is the explicit graphics device. Create* calls fail fast: a returned
// error means no handle was created. Destroy* calls release immediately and must
// only be used once the GPU can no longer reference the object.
type Device interface {
	CreateBuffer(desc BufferDescriptor) (Buffer, error)
	WriteBuffer(buf Buffer, offset uint64, data []byte) error
	DestroyBuffer(buf Buffer)

	CreateImage(desc ImageDescriptor) (Image, error)
	WriteImage(img Image, pixels []byte) error
	DestroyImage(img Image)

	CreatePipeline(desc PipelineDescriptor) (Pipeline, error)
	DestroyPipeline(p Pipeline)

	CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error)
	DestroyBindGroup(bg BindGroup)

	CreateCommandBuffer(label string) (CommandBuffer, error)
	DestroyCommandBuffer(cmd CommandBuffer)

	CreateFence(label string, signaled bool) (Fence, error)
	// WaitFence blocks until f is signaled or ctx is done.
	WaitFence(ctx context.Context, f Fence) error
	ResetFence(f Fence)
	DestroyFence(f Fence)

	// Submit queues an ended command buffer and signals f when the GPU finishes it. f may be nil.
	Submit(cmd CommandBuffer, f Fence) error

	// AcquireSwapchainImage returns the image to render into this frame.
	AcquireSwapchainImage() (Image, error)
	// Present shows the last acquired swapchain image.
	Present() error
	SwapchainFormat() ImageFormat
	SwapchainExtent() (width, height uint32)
	Resize(width, height uint32)

	// WaitIdle blocks until every submission has completed.
	WaitIdle(ctx context.Context) error

	// Release tears the device down. Every object created from it must be destroyed first.
	Release()
}
