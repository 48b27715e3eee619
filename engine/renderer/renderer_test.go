package renderer

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/Carmen-Shannon/oxyframe/engine/asset"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/pass"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type staticSource []batch.Renderable

func (s staticSource) Renderables(dst []batch.Renderable) []batch.Renderable {
	return append(dst, s...)
}

type fixture struct {
	dev    *gpu.HeadlessDevice
	r      Renderer
	assets *asset.Manager
}

func newFixture(t *testing.T, options ...RendererBuilderOption) *fixture {
	t.Helper()
	dev := gpu.NewHeadlessDevice()
	r, err := NewRenderer(dev, options...)
	require.NoError(t, err)
	return &fixture{
		dev:    dev,
		r:      r,
		assets: asset.NewManager(dev, r.Deleter(), r.Textures(), asset.WithMaterialDropHook(r.EvictMaterial)),
	}
}

func (f *fixture) mesh(t *testing.T, name string) *asset.Mesh {
	t.Helper()
	v, i := asset.Cube(1)
	m, err := f.assets.CreateMesh(name, v, i)
	require.NoError(t, err)
	return m
}

func (f *fixture) frame(t *testing.T, src RenderSource) Stats {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.r.BeginFrame(ctx))
	stats, err := f.r.RenderScene(src, View{ViewProj: common.Mat4Identity()}, pass.SceneViewportInfo{})
	require.NoError(t, err)
	require.NoError(t, f.r.EndFrame())
	return stats
}

func at(x float32) common.Mat4 {
	return common.TRS(common.Vec3{x, 0, 0}, common.QuatIdentity(), common.Vec3{1, 1, 1})
}

func instanceBufferOf(s gpu.Submission) (uint64, uint64) {
	for _, c := range s.Commands {
		if c.Op == gpu.OpBindVertexBuffer && c.Slot == 1 {
			return c.Object, c.Offset
		}
	}
	return 0, 0
}

// modelX reads the x translation of the model matrix in record i.
func modelX(data []byte, base uint64, i int) float32 {
	off := base + uint64(i)*batch.InstanceStride + 12*4
	return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
}

func TestBatchedDrawCalls(t *testing.T) {
	f := newFixture(t)
	a, b := f.mesh(t, "a"), f.mesh(t, "b")

	var src staticSource
	for i := range 10 {
		src = append(src, batch.Renderable{Mesh: a, World: at(float32(i)), Tint: [4]float32{1, 1, 1, 1}})
	}
	for i := range 5 {
		src = append(src, batch.Renderable{Mesh: b, World: at(float32(100 + i)), Tint: [4]float32{1, 1, 1, 1}})
	}

	stats := f.frame(t, src)
	assert.Equal(t, Stats{Batches: 2, Instances: 15, DrawCalls: 2}, stats)

	subs := f.dev.Submissions()
	require.Len(t, subs, 1)
	draws := subs[0].Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, gpu.DrawArgs{IndexCount: a.IndexCount(), InstanceCount: 10, FirstInstance: 0}, draws[0])
	assert.Equal(t, gpu.DrawArgs{IndexCount: b.IndexCount(), InstanceCount: 5, FirstInstance: 10}, draws[1])

	id, base := instanceBufferOf(subs[0])
	data := f.dev.BufferDataByID(id)
	require.NotNil(t, data)
	for i := range 10 {
		assert.Equal(t, float32(i), modelX(data, base, i))
	}
	for i := range 5 {
		assert.Equal(t, float32(100+i), modelX(data, base, 10+i))
	}
}

func TestFrameSlotIsolation(t *testing.T) {
	f := newFixture(t, WithFramesInFlight(2))
	m := f.mesh(t, "a")

	f.frame(t, staticSource{{Mesh: m, World: at(1)}})
	f.frame(t, staticSource{{Mesh: m, World: at(2)}})

	subs := f.dev.Submissions()
	require.Len(t, subs, 2)
	id0, base0 := instanceBufferOf(subs[0])
	id1, base1 := instanceBufferOf(subs[1])
	assert.NotEqual(t, id0, id1, "consecutive frames use different slots")

	// writing frame 1 left frame 0's data alone
	assert.Equal(t, float32(1), modelX(f.dev.BufferDataByID(id0), base0, 0))
	assert.Equal(t, float32(2), modelX(f.dev.BufferDataByID(id1), base1, 0))

	f.frame(t, staticSource{{Mesh: m, World: at(3)}})
	id2, _ := instanceBufferOf(f.dev.Submissions()[2])
	assert.Equal(t, id0, id2, "slot 0 is reused after a full rotation")
	assert.Equal(t, 3, f.dev.FenceWaits())
	assert.Empty(t, f.dev.Violations())
}

func TestDeferredDestructionWaitsForRotation(t *testing.T) {
	f := newFixture(t, WithFramesInFlight(2))
	m := f.mesh(t, "a")
	vb := m.VertexBuffer().ID()

	f.frame(t, staticSource{{Mesh: m, World: at(0)}})
	f.assets.Unload("a")
	assert.True(t, f.dev.Live(vb))

	f.frame(t, staticSource{})
	assert.True(t, f.dev.Live(vb))
	f.frame(t, staticSource{})
	assert.True(t, f.dev.Live(vb))

	require.NoError(t, f.r.BeginFrame(context.Background()))
	assert.False(t, f.dev.Live(vb))
	require.NoError(t, f.r.EndFrame())
	assert.Empty(t, f.dev.Violations())
}

func TestCustomMaterialPipelineIsCached(t *testing.T) {
	f := newFixture(t)
	m := f.mesh(t, "a")
	glow, err := f.assets.CreateMaterial("glow", asset.MaterialDescriptor{
		FragmentShader: "@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }",
	})
	require.NoError(t, err)

	src := staticSource{
		{Mesh: m, World: at(0)},
		{Mesh: m, Material: glow, World: at(1)},
		{Mesh: m, Material: glow, World: at(2)},
	}
	for range 3 {
		stats := f.frame(t, src)
		assert.Equal(t, Stats{Batches: 1, CustomDraws: 2, Instances: 3, DrawCalls: 3}, stats)
	}
	// default pipeline plus one per custom material
	assert.Equal(t, 2, f.r.Pipelines().Created())

	draws := f.dev.Submissions()[2].Draws()
	require.Len(t, draws, 3)
	assert.Equal(t, uint32(1), draws[1].InstanceCount)
	assert.Equal(t, uint32(1), draws[1].FirstInstance)
	assert.Equal(t, uint32(2), draws[2].FirstInstance)
}

func TestRejectedCustomShaderSkipsDraw(t *testing.T) {
	f := newFixture(t)
	m := f.mesh(t, "a")
	broken, err := f.assets.CreateMaterial("broken", asset.MaterialDescriptor{
		VertexShader: `
struct In {
    @location(12) extra: vec4<f32>,
};
@vertex fn vs(i: In) -> @builtin(position) vec4<f32> { return i.extra; }
`,
	})
	require.NoError(t, err)

	src := staticSource{
		{Mesh: m, World: at(0)},
		{Mesh: m, Material: broken, World: at(1)},
	}
	stats := f.frame(t, src)
	assert.Equal(t, Stats{Batches: 1, Instances: 2, DrawCalls: 1}, stats)
	assert.Equal(t, 1, f.r.Pipelines().Created())
	assert.Len(t, f.dev.Submissions()[0].Draws(), 1)
}

func TestCustomShaderWithUnboundResourceIsRejected(t *testing.T) {
	f := newFixture(t)
	m := f.mesh(t, "a")
	textured, err := f.assets.CreateMaterial("textured", asset.MaterialDescriptor{
		FragmentShader: `
@group(1) @binding(0) var albedo: texture_2d<f32>;
@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`,
	})
	require.NoError(t, err)

	stats := f.frame(t, staticSource{
		{Mesh: m, World: at(0)},
		{Mesh: m, Material: textured, World: at(1)},
	})
	assert.Equal(t, Stats{Batches: 1, Instances: 2, DrawCalls: 1}, stats)
	assert.Equal(t, 1, f.r.Pipelines().Created())
}

func TestRejectedMaterialWarnsOnce(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := newFixture(t, WithLogger(zap.New(core)))
	m := f.mesh(t, "a")
	broken, err := f.assets.CreateMaterial("broken", asset.MaterialDescriptor{
		FragmentShader: "fn no_stage_attribute() {}",
	})
	require.NoError(t, err)

	src := staticSource{{Mesh: m, Material: broken, World: at(0)}}
	for range 3 {
		stats := f.frame(t, src)
		assert.Equal(t, Stats{Batches: 0, Instances: 1, DrawCalls: 0}, stats)
	}
	rejected := logs.FilterMessage("custom material rejected, its draws are skipped")
	require.Equal(t, 1, rejected.Len())
	assert.Equal(t, "renderer", rejected.All()[0].LoggerName)
	assert.Equal(t, 1, f.r.Pipelines().Created())
}

func TestReleasedMaterialPipelineIsDestroyed(t *testing.T) {
	f := newFixture(t, WithFramesInFlight(2))
	m := f.mesh(t, "a")
	glow, err := f.assets.CreateMaterial("glow", asset.MaterialDescriptor{
		FragmentShader: "@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }",
	})
	require.NoError(t, err)

	f.frame(t, staticSource{{Mesh: m, Material: glow, World: at(0)}})
	require.Equal(t, 2, f.r.Pipelines().Len())
	cached := f.r.Pipelines().Get(pipeline.MaterialKey(glow.ID()))
	require.NotNil(t, cached)
	handle := cached.Handle().ID()

	f.assets.Unload("glow")
	assert.Equal(t, 1, f.r.Pipelines().Len())
	assert.True(t, f.dev.Live(handle))

	plain := staticSource{{Mesh: m, World: at(0)}}
	f.frame(t, plain)
	f.frame(t, plain)
	assert.True(t, f.dev.Live(handle))

	require.NoError(t, f.r.BeginFrame(context.Background()))
	assert.False(t, f.dev.Live(handle))
	require.NoError(t, f.r.EndFrame())
	assert.Empty(t, f.dev.Violations())
}

func TestCustomShaderEntryPointsAreDiscovered(t *testing.T) {
	f := newFixture(t)
	m := f.mesh(t, "a")
	mat, err := f.assets.CreateMaterial("flat", asset.MaterialDescriptor{
		FragmentShader: "@fragment fn flat_color() -> @location(0) vec4<f32> { return vec4<f32>(0.5); }",
	})
	require.NoError(t, err)

	stats := f.frame(t, staticSource{{Mesh: m, Material: mat, World: at(0)}})
	assert.Equal(t, 1, stats.CustomDraws)
	assert.Equal(t, 2, f.r.Pipelines().Created())
}

func TestFrameMisuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.r.RenderScene(staticSource{}, View{}, pass.SceneViewportInfo{})
	assert.ErrorIs(t, err, ErrNoFrame)
	assert.ErrorIs(t, f.r.EndFrame(), ErrNoFrame)
	assert.ErrorIs(t, f.r.SubmitCommandBuffer(ctx), ErrNoFrame)

	require.NoError(t, f.r.BeginFrame(ctx))
	assert.ErrorIs(t, f.r.BeginFrame(ctx), ErrFrameActive)

	require.NoError(t, f.r.BeginRendering(pass.RenderingSpec{}))
	assert.ErrorIs(t, f.r.SubmitCommandBuffer(ctx), pass.ErrPassActive)
	assert.ErrorIs(t, f.r.EndFrame(), pass.ErrPassActive)
	require.NoError(t, f.r.EndRendering())

	require.NoError(t, f.r.SubmitCommandBuffer(ctx))
	require.NoError(t, f.r.EndFrame())
	assert.Len(t, f.dev.Submissions(), 2)
}

func TestInstanceCapacityIsFatal(t *testing.T) {
	f := newFixture(t, WithMaxInstances(4), WithInitialInstances(2))
	m := f.mesh(t, "a")
	src := make(staticSource, 5)
	for i := range src {
		src[i] = batch.Renderable{Mesh: m, World: at(float32(i))}
	}

	require.NoError(t, f.r.BeginFrame(context.Background()))
	_, err := f.r.RenderScene(src, View{}, pass.SceneViewportInfo{})
	assert.ErrorIs(t, err, batch.ErrInstanceCapacityExceeded)
	require.NoError(t, f.r.EndFrame())
}

func TestShutdownReleasesEverything(t *testing.T) {
	f := newFixture(t, WithFramesInFlight(3))
	m := f.mesh(t, "a")
	tex, err := f.assets.CreateTexture("white", 1, 1, []byte{255, 255, 255, 255})
	require.NoError(t, err)
	_, err = f.assets.CreateMaterial("mat", asset.MaterialDescriptor{Diffuse: tex})
	require.NoError(t, err)

	for range 4 {
		f.frame(t, staticSource{{Mesh: m, Material: f.assets.Material("mat"), World: at(0)}})
	}
	f.r.Resize(800, 600)
	f.frame(t, staticSource{{Mesh: m, World: at(0)}})

	f.assets.ReleaseAll()
	require.NoError(t, f.r.Shutdown(context.Background()))
	assert.Equal(t, 0, f.dev.LiveObjects())
	assert.Equal(t, 0, f.r.Textures().Len())
	assert.Empty(t, f.dev.Violations())
}

func TestParseBackendType(t *testing.T) {
	b, err := ParseBackendType("Headless")
	require.NoError(t, err)
	assert.Equal(t, BackendTypeHeadless, b)
	b, err = ParseBackendType("")
	require.NoError(t, err)
	assert.Equal(t, BackendTypeWGPU, b)
	_, err = ParseBackendType("vulkan")
	assert.Error(t, err)
}
