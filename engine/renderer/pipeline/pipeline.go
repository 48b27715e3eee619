package pipeline

import "github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"

// pipeline is the implementation of the Pipeline interface.
// It holds the backend-neutral description of a render pipeline and, once compiled, its device handle.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string

	vertexSource, vertexEntry     string
	fragmentSource, fragmentEntry string
	vertexBuffers                 []gpu.VertexBufferLayout
	uniformBindings               uint32

	colorFormat       gpu.ImageFormat
	depthFormat       gpu.ImageFormat
	depthTestEnabled  bool
	depthWriteEnabled bool
	blendEnabled      bool
	cullMode          gpu.CullMode
	sampleCount       uint32

	// handle is nil until the pipeline has been compiled by a Cache
	handle gpu.Pipeline
}

// Pipeline describes a render pipeline: its shader stages, vertex layouts and fixed-function
// state. A Pipeline is compiled once by a Cache, which owns the device handle.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Descriptor returns the device-level description used to compile this pipeline.
	//
	// Returns:
	//   - gpu.PipelineDescriptor: the descriptor built from the configured state
	Descriptor() gpu.PipelineDescriptor

	// Handle returns the compiled device pipeline, or nil before compilation.
	//
	// Returns:
	//   - gpu.Pipeline: the device handle
	Handle() gpu.Pipeline

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth testing is enabled, false otherwise
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth writing is enabled, false otherwise
	DepthWriteEnabled() bool

	// BlendEnabled returns whether blending is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if blending is enabled, false otherwise
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - gpu.CullMode: the cull mode for this pipeline
	CullMode() gpu.CullMode
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline description.
// Defaults: depth test and write on, blending off, back-face culling, single sample,
// entry points vs_main and fs_main.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new uncompiled Pipeline
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		vertexEntry:       "vs_main",
		fragmentEntry:     "fs_main",
		colorFormat:       gpu.ImageFormatBGRA8UnormSrgb,
		depthFormat:       gpu.ImageFormatDepth32Float,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		cullMode:          gpu.CullModeBack,
		sampleCount:       1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Descriptor() gpu.PipelineDescriptor {
	return gpu.PipelineDescriptor{
		Label:           p.pipelineKey,
		VertexSource:    p.vertexSource,
		VertexEntry:     p.vertexEntry,
		FragmentSource:  p.fragmentSource,
		FragmentEntry:   p.fragmentEntry,
		VertexBuffers:   p.vertexBuffers,
		UniformBindings: p.uniformBindings,
		ColorFormat:     p.colorFormat,
		DepthFormat:     p.depthFormat,
		DepthTest:       p.depthTestEnabled,
		DepthWrite:      p.depthWriteEnabled,
		Blend:           p.blendEnabled,
		CullMode:        p.cullMode,
		SampleCount:     p.sampleCount,
	}
}

func (p *pipeline) Handle() gpu.Pipeline {
	return p.handle
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() gpu.CullMode {
	return p.cullMode
}
