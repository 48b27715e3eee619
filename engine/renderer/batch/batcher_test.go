package batch

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/Carmen-Shannon/oxyframe/engine/asset"
	"github.com/Carmen-Shannon/oxyframe/engine/ecs"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type immediate struct{}

func (immediate) Enqueue(fn func()) { fn() }

func newAssets(t *testing.T) *asset.Manager {
	t.Helper()
	return asset.NewManager(gpu.NewHeadlessDevice(), immediate{}, texture.NewRegistry())
}

func newMesh(t *testing.T, m *asset.Manager, name string) *asset.Mesh {
	t.Helper()
	v, i := asset.Cube(1)
	mesh, err := m.CreateMesh(name, v, i)
	require.NoError(t, err)
	return mesh
}

func translated(x float32) common.Mat4 {
	return common.TRS(common.Vec3{x, 0, 0}, common.QuatIdentity(), common.Vec3{1, 1, 1})
}

func TestInstanceDataLayout(t *testing.T) {
	assert.Equal(t, uintptr(InstanceStride), unsafe.Sizeof(InstanceData{}))
	assert.Equal(t, uintptr(64), unsafe.Offsetof(InstanceData{}.Tint))
	assert.Equal(t, uintptr(80), unsafe.Offsetof(InstanceData{}.TextureSlots))
	assert.Equal(t, uintptr(92), unsafe.Offsetof(InstanceData{}.Shininess))
}

func TestBuildGroupsByMesh(t *testing.T) {
	assets := newAssets(t)
	meshA := newMesh(t, assets, "a")
	meshB := newMesh(t, assets, "b")
	mat, err := assets.CreateMaterial("plain", asset.MaterialDescriptor{Shininess: 8})
	require.NoError(t, err)

	// every third renderable uses B
	var in []Renderable
	var wantA, wantB []common.Mat4
	for i := range 15 {
		r := Renderable{
			Entity:   ecs.NewEntity(uint32(i), 1),
			World:    translated(float32(i)),
			Material: mat,
			Tint:     [4]float32{1, 1, 1, 1},
		}
		if i%3 == 2 {
			r.Mesh = meshB
			wantB = append(wantB, r.World)
		} else {
			r.Mesh = meshA
			wantA = append(wantA, r.World)
		}
		in = append(in, r)
	}
	require.Len(t, wantA, 10)
	require.Len(t, wantB, 5)

	b := NewBatcher(WithWorkers(1))
	f, err := b.Build(in)
	require.NoError(t, err)

	require.Len(t, f.Batches, 2)
	assert.Same(t, meshA, f.Batches[0].Mesh)
	assert.Equal(t, uint32(0), f.Batches[0].FirstInstance)
	assert.Equal(t, uint32(10), f.Batches[0].Count)
	assert.Same(t, meshB, f.Batches[1].Mesh)
	assert.Equal(t, uint32(10), f.Batches[1].FirstInstance)
	assert.Equal(t, uint32(5), f.Batches[1].Count)

	require.Equal(t, 15, f.InstanceCount())
	for i, m := range wantA {
		assert.Equal(t, [16]float32(m), f.Instances[i].Model, "A instance %d", i)
	}
	for i, m := range wantB {
		assert.Equal(t, [16]float32(m), f.Instances[10+i].Model, "B instance %d", i)
	}
	assert.Equal(t, float32(8), f.Instances[0].Shininess)
	assert.Equal(t, [3]int32{-1, -1, -1}, f.Instances[0].TextureSlots)
	assert.Len(t, f.Bytes(), 15*InstanceStride)
	assert.Empty(t, f.Custom)
}

func TestBuildSkipsMissingMesh(t *testing.T) {
	assets := newAssets(t)
	mesh := newMesh(t, assets, "a")

	b := NewBatcher()
	f, err := b.Build([]Renderable{
		{World: translated(1)},
		{Mesh: mesh, World: translated(2)},
		{World: translated(3)},
	})
	require.NoError(t, err)
	require.Len(t, f.Batches, 1)
	assert.Equal(t, uint32(1), f.Batches[0].Count)
	require.Equal(t, 1, f.InstanceCount())
	assert.Equal(t, [16]float32(translated(2)), f.Instances[0].Model)
	assert.Equal(t, [3]int32{-1, -1, -1}, f.Instances[0].TextureSlots)
}

func TestBuildCustomShaderIsSingleton(t *testing.T) {
	assets := newAssets(t)
	mesh := newMesh(t, assets, "a")
	plain, err := assets.CreateMaterial("plain", asset.MaterialDescriptor{})
	require.NoError(t, err)
	custom, err := assets.CreateMaterial("glow", asset.MaterialDescriptor{
		FragmentShader: "@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }",
		BaseColor:      [4]float32{0.5, 0.5, 0.5, 1},
	})
	require.NoError(t, err)

	in := []Renderable{
		{Mesh: mesh, Material: custom, World: translated(0), Tint: [4]float32{1, 1, 1, 1}},
		{Mesh: mesh, Material: plain, World: translated(1), Tint: [4]float32{1, 1, 1, 1}},
		{Mesh: mesh, Material: custom, World: translated(2), Tint: [4]float32{1, 1, 1, 1}},
		{Mesh: mesh, Material: plain, World: translated(3), Tint: [4]float32{1, 1, 1, 1}},
	}
	f, err := NewBatcher().Build(in)
	require.NoError(t, err)

	require.Len(t, f.Batches, 1)
	assert.Equal(t, uint32(2), f.Batches[0].Count)
	require.Len(t, f.Custom, 2)
	assert.Equal(t, uint32(2), f.Custom[0].Instance)
	assert.Equal(t, uint32(3), f.Custom[1].Instance)
	assert.Same(t, custom, f.Custom[0].Material)
	assert.Equal(t, [16]float32(translated(0)), f.Instances[2].Model)
	assert.Equal(t, [16]float32(translated(2)), f.Instances[3].Model)
	assert.Equal(t, [4]float32{0.5, 0.5, 0.5, 1}, f.Instances[2].Tint)
}

func TestBuildParallelMatchesSerial(t *testing.T) {
	assets := newAssets(t)
	meshes := []*asset.Mesh{newMesh(t, assets, "a"), newMesh(t, assets, "b"), newMesh(t, assets, "c")}

	in := make([]Renderable, 5000)
	for i := range in {
		in[i] = Renderable{
			Entity: ecs.NewEntity(uint32(i), 1),
			Mesh:   meshes[(i*7)%len(meshes)],
			World:  translated(float32(i)),
			Tint:   [4]float32{float32(i), 0, 0, 1},
		}
	}

	serial := NewBatcher(WithWorkers(1))
	want, err := serial.Build(in)
	require.NoError(t, err)
	wantInstances := append([]InstanceData(nil), want.Instances...)
	wantBatches := append([]InstanceBatch(nil), want.Batches...)

	parallel := NewBatcher(WithWorkers(4), WithParallelThreshold(100))
	for range 3 {
		got, err := parallel.Build(in)
		require.NoError(t, err)
		assert.Equal(t, wantBatches, got.Batches)
		assert.Equal(t, wantInstances, got.Instances)
	}
}

func TestBuildCapacityExceeded(t *testing.T) {
	assets := newAssets(t)
	mesh := newMesh(t, assets, "a")

	b := NewBatcher(WithMaxInstances(3))
	in := make([]Renderable, 4)
	for i := range in {
		in[i] = Renderable{Mesh: mesh}
	}
	_, err := b.Build(in)
	assert.ErrorIs(t, err, ErrInstanceCapacityExceeded)

	f, err := b.Build(in[:3])
	require.NoError(t, err)
	assert.Equal(t, 3, f.InstanceCount())
}

func TestTuningSetters(t *testing.T) {
	b := NewBatcher(WithWorkers(2), WithParallelThreshold(10))
	assert.Equal(t, 2, b.Workers())
	assert.Equal(t, 10, b.ParallelThreshold())

	b.SetWorkers(0)
	assert.Equal(t, 1, b.Workers())
	b.SetParallelThreshold(-5)
	assert.Equal(t, 0, b.ParallelThreshold())
	assert.Equal(t, DefaultMaxInstances, b.MaxInstances())
}

func TestWorkerTuningDoesNotLeakGoroutines(t *testing.T) {
	assets := newAssets(t)
	mesh := newMesh(t, assets, "a")
	in := make([]Renderable, 400)
	for i := range in {
		in[i] = Renderable{Mesh: mesh, World: translated(float32(i))}
	}

	warm := NewBatcher(WithWorkers(8), WithParallelThreshold(10))
	_, err := warm.Build(in)
	require.NoError(t, err)
	before := runtime.NumGoroutine()

	for round := range 50 {
		b := NewBatcher(WithWorkers(8), WithParallelThreshold(10))
		_, err := b.Build(in)
		require.NoError(t, err)
		b.SetWorkers(2 + round%7)
		f, err := b.Build(in)
		require.NoError(t, err)
		assert.Equal(t, [16]float32(translated(399)), f.Instances[399].Model)
	}

	assert.LessOrEqual(t, runtime.NumGoroutine(), before+2)
	assert.GreaterOrEqual(t, poolWorkers(), 8)
}
