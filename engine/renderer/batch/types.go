package batch

import (
	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/Carmen-Shannon/oxyframe/engine/asset"
	"github.com/Carmen-Shannon/oxyframe/engine/ecs"
)

// InstanceStride is the size in bytes of one InstanceData record.
const InstanceStride = 96

// Renderable is one draw request gathered from the scene.
type Renderable struct {
	Entity   ecs.Entity
	World    common.Mat4
	Mesh     *asset.Mesh
	Material *asset.Material
	Tint     [4]float32
}

// InstanceData is the per-instance record read by the vertex stage at vertex buffer slot 1.
// The layout is fixed: the model matrix, the tint, three texture slot indices and shininess.
type InstanceData struct {
	Model        [16]float32
	Tint         [4]float32
	TextureSlots [3]int32
	Shininess    float32
}

// InstanceBatch is a run of instances sharing one mesh, drawn with a single instanced call.
type InstanceBatch struct {
	Mesh          *asset.Mesh
	FirstInstance uint32
	Count         uint32
}

// CustomDraw is a renderable whose material brings its own shaders. It is drawn alone with
// the material's pipeline, reading the record at Instance.
type CustomDraw struct {
	Entity   ecs.Entity
	Mesh     *asset.Mesh
	Material *asset.Material
	Instance uint32
}

// Frame is the batching result for one tick. Instances holds every record contiguously:
// batches first, in order of first appearance, then one record per custom draw.
// A Frame returned by Build is reused by the next Build.
type Frame struct {
	Instances []InstanceData
	Batches   []InstanceBatch
	Custom    []CustomDraw
}

// Bytes returns Instances viewed as raw bytes, without copying.
func (f *Frame) Bytes() []byte { return common.SliceToBytes(f.Instances) }

// InstanceCount returns the total number of records.
func (f *Frame) InstanceCount() int { return len(f.Instances) }

// fill writes the record for r into dst.
func fill(dst *InstanceData, r *Renderable) {
	dst.Model = r.World
	dst.Tint = r.Tint
	if r.Material == nil {
		dst.TextureSlots = [3]int32{-1, -1, -1}
		dst.Shininess = 0
		return
	}
	base := r.Material.BaseColor()
	for i := range dst.Tint {
		dst.Tint[i] *= base[i]
	}
	dst.TextureSlots = r.Material.TextureSlots()
	dst.Shininess = r.Material.Shininess()
}
