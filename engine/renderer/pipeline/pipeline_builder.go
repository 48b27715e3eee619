package pipeline

import "github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex stage WGSL source and entry point.
//
// Parameters:
//   - source: the WGSL module source
//   - entry: the entry point name; empty keeps vs_main
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex stage for this pipeline
func WithVertexShader(source, entry string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexSource = source
		if entry != "" {
			p.vertexEntry = entry
		}
	}
}

// WithFragmentShader sets the fragment stage WGSL source and entry point.
//
// Parameters:
//   - source: the WGSL module source
//   - entry: the entry point name; empty keeps fs_main
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment stage for this pipeline
func WithFragmentShader(source, entry string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentSource = source
		if entry != "" {
			p.fragmentEntry = entry
		}
	}
}

// WithVertexBuffers sets the vertex buffer layouts, one per slot in order.
//
// Parameters:
//   - layouts: the layout of each vertex buffer slot
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex buffer layouts for this pipeline
func WithVertexBuffers(layouts ...gpu.VertexBufferLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexBuffers = layouts
	}
}

// WithUniformBindings sets how many uniform buffers the shaders declare at group 0.
func WithUniformBindings(n uint32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.uniformBindings = n
	}
}

// WithTargetFormats sets the color and depth attachment formats.
//
// Parameters:
//   - color: the color attachment format
//   - depth: the depth attachment format, ImageFormatUndefined for none
//
// Returns:
//   - PipelineBuilderOption: a function that sets the attachment formats for this pipeline
func WithTargetFormats(color, depth gpu.ImageFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colorFormat = color
		p.depthFormat = depth
	}
}

// WithDepthTestEnabled sets whether depth testing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth test enabled state for this pipeline
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth write enabled state for this pipeline
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithBlendEnabled sets whether alpha blending is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether blending should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend enabled state for this pipeline
func WithBlendEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendEnabled = enabled
	}
}

// WithCullMode sets the cull mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode to use for this pipeline (gpu.CullModeBack, gpu.CullModeFront or gpu.CullModeNone)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode gpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithSampleCount sets the MSAA sample count.
func WithSampleCount(n uint32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.sampleCount = max(n, 1)
	}
}
