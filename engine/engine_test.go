package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/Carmen-Shannon/oxyframe/engine/asset"
	"github.com/Carmen-Shannon/oxyframe/engine/camera"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxyframe/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dev    *gpu.HeadlessDevice
	r      renderer.Renderer
	assets *asset.Manager
	scene  scene.Scene
}

func newFixture(t *testing.T, cubes int, options ...renderer.RendererBuilderOption) *fixture {
	t.Helper()
	dev := gpu.NewHeadlessDevice()
	r, err := renderer.NewRenderer(dev, options...)
	require.NoError(t, err)
	assets := asset.NewManager(dev, r.Deleter(), r.Textures(), asset.WithMaterialDropHook(r.EvictMaterial))
	v, i := asset.Cube(1)
	mesh, err := assets.CreateMesh("cube", v, i)
	require.NoError(t, err)

	s := scene.NewScene("test")
	for n := range cubes {
		e := s.CreateEntity("cube")
		s.Transform(e).SetWorld(common.Transform{
			Position: common.Vec3{float32(n), 0, 0},
			Rotation: common.QuatIdentity(),
			Scale:    common.Vec3{1, 1, 1},
		})
		s.AddMeshRenderer(e, scene.MeshRendererComponent{Mesh: mesh})
	}
	return &fixture{dev: dev, r: r, assets: assets, scene: s}
}

// teardown mirrors what the CLI does once Run has returned.
func (f *fixture) teardown(t *testing.T) {
	t.Helper()
	f.scene.Release()
	f.assets.ReleaseAll()
	assert.Equal(t, 0, f.dev.LiveObjects())
	assert.Empty(t, f.dev.Violations())
}

// stepClock advances by step on every read.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

type fakeWindow struct {
	polls      int
	closeAt    int
	resizeAt   int
	w, h       int
	newW, newH int
}

func (w *fakeWindow) Poll() bool {
	w.polls++
	if w.polls == w.resizeAt {
		w.w, w.h = w.newW, w.newH
	}
	return w.closeAt == 0 || w.polls < w.closeAt
}

func (w *fakeWindow) Width() int  { return w.w }
func (w *fakeWindow) Height() int { return w.h }

func TestRunStopsAfterMaxFrames(t *testing.T) {
	f := newFixture(t, 3)
	cam := camera.NewCamera(camera.WithController(camera.NewCameraController()))
	e := NewEngine(f.scene, f.r, WithMaxFrames(4), WithCamera(cam))

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(4), e.Frames())
	assert.Equal(t, 4, f.dev.Presented())
	assert.Equal(t, renderer.Stats{Batches: 1, Instances: 3, DrawCalls: 1}, e.LastStats())
	assert.False(t, f.scene.Running())
	f.teardown(t)
}

func TestFixedUpdatesFollowAccumulator(t *testing.T) {
	f := newFixture(t, 1)
	clock := &stepClock{t: time.Unix(0, 0), step: 25 * time.Millisecond}
	e := NewEngine(f.scene, f.r, WithTickRate(100), WithMaxFrames(3), WithClock(clock.now))

	require.NoError(t, e.Run(context.Background()))
	// 25ms per frame at 10ms per tick: 2, 3 and 2 ticks
	assert.Equal(t, uint64(7), e.FixedUpdates())
	f.teardown(t)
}

func TestFixedUpdateBacklogIsDropped(t *testing.T) {
	f := newFixture(t, 1)
	clock := &stepClock{t: time.Unix(0, 0), step: time.Second}
	e := NewEngine(f.scene, f.r, WithTickRate(100), WithMaxFrames(2), WithClock(clock.now))

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(2*maxFixedUpdates), e.FixedUpdates())
	f.teardown(t)
}

func TestQuitStopsLoop(t *testing.T) {
	f := newFixture(t, 1)
	e := NewEngine(f.scene, f.r)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	require.Eventually(t, func() bool { return e.Frames() > 2 }, 5*time.Second, time.Millisecond)

	assert.ErrorIs(t, e.Run(context.Background()), ErrRunning)

	e.Quit()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}
	f.teardown(t)
}

func TestCancelledContextStopsBeforeFirstFrame(t *testing.T) {
	f := newFixture(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewEngine(f.scene, f.r)

	require.NoError(t, e.Run(ctx))
	assert.Equal(t, uint64(0), e.Frames())
	assert.Equal(t, 0, f.dev.Presented())
	f.teardown(t)
}

func TestWindowResizeAndClose(t *testing.T) {
	f := newFixture(t, 1)
	cam := camera.NewCamera(camera.WithController(camera.NewCameraController()))
	win := &fakeWindow{w: 1280, h: 720, resizeAt: 3, newW: 800, newH: 400, closeAt: 5}
	e := NewEngine(f.scene, f.r, WithWindow(win), WithCamera(cam))

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(4), e.Frames())
	w, h := f.dev.SwapchainExtent()
	assert.Equal(t, uint32(800), w)
	assert.Equal(t, uint32(400), h)
	assert.InDelta(t, 2.0, cam.Aspect(), 1e-6)
	f.teardown(t)
}

func TestMinimizedWindowSkipsRendering(t *testing.T) {
	f := newFixture(t, 1)
	win := &fakeWindow{w: 1280, h: 720, resizeAt: 2, newW: 0, newH: 0}
	e := NewEngine(f.scene, f.r, WithWindow(win), WithMaxFrames(3))

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(3), e.Frames())
	assert.Equal(t, 1, f.dev.Presented())
	f.teardown(t)
}

func TestViewportsRenderInOrder(t *testing.T) {
	f := newFixture(t, 2)
	near := camera.NewCamera(camera.WithController(camera.NewCameraController(camera.WithRadius(30))))
	far := camera.NewCamera(camera.WithController(camera.NewCameraController(camera.WithRadius(300))))
	e := NewEngine(f.scene, f.r, WithMaxFrames(1), WithViewports(
		Viewport{Camera: near},
		Viewport{Camera: far},
	))

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, renderer.Stats{Batches: 2, Instances: 4, DrawCalls: 2}, e.LastStats())
	f.teardown(t)
}

func TestCapacityErrorEndsRun(t *testing.T) {
	f := newFixture(t, 5, renderer.WithMaxInstances(4), renderer.WithInitialInstances(2))
	e := NewEngine(f.scene, f.r, WithMaxFrames(10))

	err := e.Run(context.Background())
	assert.ErrorIs(t, err, batch.ErrInstanceCapacityExceeded)
	assert.Equal(t, uint64(0), e.Frames())
	f.teardown(t)
}

func TestSetTickRateDefaults(t *testing.T) {
	f := newFixture(t, 0)
	e := NewEngine(f.scene, f.r).(*engine)
	e.SetTickRate(0)
	assert.Equal(t, int64(time.Second/60), e.tickRate.Load())
	e.SetTickRate(120)
	assert.Equal(t, int64(time.Second/120), e.tickRate.Load())
	e.SetRenderFrameLimit(-1)
	assert.Equal(t, int64(0), e.renderFrameLimit.Load())

	require.NoError(t, f.r.Shutdown(context.Background()))
	f.teardown(t)
}
