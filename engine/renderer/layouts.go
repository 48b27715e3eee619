package renderer

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxyframe/engine/asset"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"
)

// DefaultShader is the WGSL module of the built-in lit pipeline. Custom materials that only
// override one stage reuse the other stage from it.
//
//go:embed shaders/default.wgsl
var DefaultShader string

// DefaultPipelineKey is the cache key of the built-in lit pipeline.
const DefaultPipelineKey = "default/lit"

// CameraUniformSize is the size of the camera uniform: the view-projection matrix and the eye position.
const CameraUniformSize = 80

// MeshVertexLayout is vertex buffer slot 0: one asset.Vertex per vertex.
var MeshVertexLayout = gpu.VertexBufferLayout{
	Stride: asset.VertexStride,
	Attributes: []gpu.VertexAttribute{
		{Format: gpu.VertexFormatFloat32x3, Offset: 0, Location: 0},
		{Format: gpu.VertexFormatFloat32x3, Offset: 12, Location: 1},
		{Format: gpu.VertexFormatFloat32x2, Offset: 24, Location: 2},
	},
}

// InstanceLayout is vertex buffer slot 1: one batch.InstanceData per instance.
var InstanceLayout = gpu.VertexBufferLayout{
	Stride:      batch.InstanceStride,
	PerInstance: true,
	Attributes: []gpu.VertexAttribute{
		{Format: gpu.VertexFormatFloat32x4, Offset: 0, Location: 3},
		{Format: gpu.VertexFormatFloat32x4, Offset: 16, Location: 4},
		{Format: gpu.VertexFormatFloat32x4, Offset: 32, Location: 5},
		{Format: gpu.VertexFormatFloat32x4, Offset: 48, Location: 6},
		{Format: gpu.VertexFormatFloat32x4, Offset: 64, Location: 7},
		{Format: gpu.VertexFormatSint32x3, Offset: 80, Location: 8},
		{Format: gpu.VertexFormatFloat32, Offset: 92, Location: 9},
	},
}

// vertexLocations returns every shader location supplied by MeshVertexLayout and InstanceLayout.
func vertexLocations() []uint32 {
	var locs []uint32
	for _, layout := range []gpu.VertexBufferLayout{MeshVertexLayout, InstanceLayout} {
		for _, attr := range layout.Attributes {
			locs = append(locs, attr.Location)
		}
	}
	return locs
}

// materialUniformBindings is the number of uniform buffers the pipeline layout provides at
// group 0: the camera.
const materialUniformBindings = 1
