package asset

import "github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"

// Vertex is the per-vertex layout every mesh uses: position, normal, uv. 32 bytes.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
}

// VertexStride is the size of Vertex in bytes.
const VertexStride = 32

// Mesh is an indexed triangle list resident in device buffers.
// Its identity (pointer and ID) is what instanced draws are grouped by.
type Mesh struct {
	refCounted

	id           uint64
	name         string
	vertexBuffer gpu.Buffer
	indexBuffer  gpu.Buffer
	vertexCount  uint32
	indexCount   uint32
}

func (m *Mesh) ID() uint64               { return m.id }
func (m *Mesh) Name() string             { return m.name }
func (m *Mesh) VertexBuffer() gpu.Buffer { return m.vertexBuffer }
func (m *Mesh) IndexBuffer() gpu.Buffer  { return m.indexBuffer }
func (m *Mesh) VertexCount() uint32      { return m.vertexCount }
func (m *Mesh) IndexCount() uint32       { return m.indexCount }

// Acquire adds a reference and returns m for chaining.
func (m *Mesh) Acquire() *Mesh {
	m.acquire()
	return m
}

// Release drops a reference. The last release schedules the buffers for destruction.
func (m *Mesh) Release() { m.release() }
