// Package engine drives the main loop: poll the window, run fixed updates, update the
// scene, then record and present one frame per iteration.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/Carmen-Shannon/oxyframe/engine/camera"
	"github.com/Carmen-Shannon/oxyframe/engine/profiler"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/pass"
	"github.com/Carmen-Shannon/oxyframe/engine/scene"
	"go.uber.org/zap"
)

const (
	// maxFixedUpdates bounds the fixed updates run in one iteration; older backlog is dropped.
	maxFixedUpdates = 8
	shutdownTimeout = 5 * time.Second
)

// Window is the part of a platform window the loop drives. window.Window satisfies it.
type Window interface {
	// Poll dispatches pending events and reports whether the window is still open.
	Poll() bool
	Width() int
	Height() int
}

// Viewport pairs a render target with the camera that views it. A nil Camera uses the
// engine camera.
type Viewport struct {
	Target pass.SceneViewportInfo
	Camera camera.Camera
}

// engine implements the Engine interface.
type engine struct {
	scene    scene.Scene
	renderer renderer.Renderer
	window   Window
	camera   camera.Camera

	viewports []Viewport

	profiler         *profiler.Profiler
	profileInterval  time.Duration
	profilingEnabled atomic.Bool

	tickRate         atomic.Int64 // time.Duration
	renderFrameLimit atomic.Int64 // time.Duration, 0 = uncapped
	maxFrames        uint64

	running      atomic.Bool
	quit         atomic.Bool
	frames       atomic.Uint64
	fixedUpdates atomic.Uint64

	accumulator   time.Duration
	width, height int
	lastStats     renderer.Stats

	now func() time.Time
	log *zap.Logger
}

// Engine is the main entry point for the engine.
// It owns no global state: the scene, the renderer and every optional collaborator are
// handed to NewEngine.
type Engine interface {
	// Run starts the scene and drives the loop on the calling goroutine until the window
	// closes, Quit is called, ctx is done or the frame budget is spent. The scene is
	// stopped and the renderer shut down before Run returns, so an engine runs once.
	//
	// Parameters:
	//   - ctx: cancelling it stops the loop cleanly
	//
	// Returns:
	//   - error: a fatal frame error, a scene start error, or ErrRunning if the loop is already running
	Run(ctx context.Context) error

	// Quit asks a running loop to stop after the current iteration.
	// Safe to call from any goroutine and more than once.
	Quit()

	// Scene returns the scene driven by the loop.
	Scene() scene.Scene

	// Renderer returns the renderer the loop records with.
	Renderer() renderer.Renderer

	// Camera returns the engine camera, or nil.
	Camera() camera.Camera

	// Frames returns the number of completed iterations of the current or last run.
	Frames() uint64

	// FixedUpdates returns the number of fixed updates of the current or last run.
	FixedUpdates() uint64

	// LastStats returns the recording counts of the last frame, summed over its viewports.
	// Only meaningful once Run has returned or from the loop goroutine.
	LastStats() renderer.Stats

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the fixed update rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)
}

var _ Engine = &engine{}

// NewEngine creates a new Engine around a scene and a renderer.
//
// Parameters:
//   - s: the scene to update and draw
//   - r: the renderer to record frames with
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(s scene.Scene, r renderer.Renderer, options ...EngineBuilderOption) Engine {
	e := &engine{
		scene:           s,
		renderer:        r,
		profileInterval: time.Second,
		now:             time.Now,
		log:             zap.NewNop(),
	}
	e.tickRate.Store(int64(time.Second / 60))
	for _, opt := range options {
		opt(e)
	}
	if len(e.viewports) == 0 {
		e.viewports = []Viewport{{Target: pass.SceneViewportInfo{ColorClearValue: [4]float32{0.08, 0.08, 0.1, 1}}}}
	}
	e.profiler = profiler.NewProfiler(
		profiler.WithInterval(e.profileInterval),
		profiler.WithLogger(e.log.Named("profiler")),
	)
	return e
}

func (e *engine) Scene() scene.Scene          { return e.scene }
func (e *engine) Renderer() renderer.Renderer { return e.renderer }
func (e *engine) Camera() camera.Camera       { return e.camera }
func (e *engine) Frames() uint64              { return e.frames.Load() }
func (e *engine) FixedUpdates() uint64        { return e.fixedUpdates.Load() }
func (e *engine) LastStats() renderer.Stats   { return e.lastStats }
func (e *engine) Quit()                       { e.quit.Store(true) }
func (e *engine) EnableProfiler()             { e.profilingEnabled.Store(true) }
func (e *engine) DisableProfiler()            { e.profilingEnabled.Store(false) }

func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	e.tickRate.Store(int64(time.Duration(float64(time.Second) / fps)))
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit.Store(0)
		return
	}
	e.renderFrameLimit.Store(int64(time.Duration(float64(time.Second) / fps)))
}

func (e *engine) Run(ctx context.Context) (err error) {
	if !e.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer e.running.Store(false)
	e.quit.Store(false)
	e.frames.Store(0)
	e.fixedUpdates.Store(0)
	e.accumulator = 0

	defer func() {
		err = errors.Join(err, e.shutdown())
	}()
	if err := e.scene.OnStart(); err != nil {
		return fmt.Errorf("start scene %q: %w", e.scene.Name(), err)
	}
	e.log.Info("engine started",
		zap.String("scene", e.scene.Name()),
		zap.Int("entities", e.scene.Len()),
		zap.Duration("tick", time.Duration(e.tickRate.Load())),
	)

	last := e.now()
	for {
		if e.quit.Load() {
			e.log.Info("quit requested")
			return nil
		}
		if ctx.Err() != nil {
			e.log.Info("context done", zap.Error(ctx.Err()))
			return nil
		}

		frameStart := e.now()
		dt := frameStart.Sub(last)
		last = frameStart

		if e.window != nil {
			if !e.window.Poll() {
				e.log.Info("window closed")
				return nil
			}
			e.syncSize()
		}

		e.fixedUpdate(dt)
		e.scene.OnUpdate(float32(dt.Seconds()))

		if e.visible() {
			if err := e.render(ctx); err != nil {
				return err
			}
		}

		frames := e.frames.Add(1)
		if e.profilingEnabled.Load() {
			e.profiler.Tick()
		}
		if e.maxFrames > 0 && frames >= e.maxFrames {
			e.log.Info("frame budget spent", zap.Uint64("frames", frames))
			return nil
		}

		if limit := time.Duration(e.renderFrameLimit.Load()); limit > 0 {
			if remaining := limit - e.now().Sub(frameStart); remaining > 0 {
				sleep(ctx, remaining)
			}
		}
	}
}

// fixedUpdate runs one scene fixed update per whole tick in the accumulator.
func (e *engine) fixedUpdate(dt time.Duration) {
	step := time.Duration(e.tickRate.Load())
	e.accumulator += dt
	n := 0
	for e.accumulator >= step && n < maxFixedUpdates {
		e.scene.OnFixedUpdate()
		e.accumulator -= step
		n++
	}
	e.fixedUpdates.Add(uint64(n))
	if e.accumulator >= step {
		e.log.Debug("fixed update backlog dropped", zap.Duration("backlog", e.accumulator))
		e.accumulator %= step
	}
}

// render records one frame: every viewport in order, then submit and present.
func (e *engine) render(ctx context.Context) error {
	if err := e.renderer.BeginFrame(ctx); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	var total renderer.Stats
	for i, vp := range e.viewports {
		stats, err := e.renderer.RenderScene(e.scene, e.view(vp), vp.Target)
		if err != nil {
			return fmt.Errorf("render viewport %d: %w", i, err)
		}
		total.Batches += stats.Batches
		total.CustomDraws += stats.CustomDraws
		total.Instances += stats.Instances
		total.DrawCalls += stats.DrawCalls
	}
	if err := e.renderer.EndFrame(); err != nil {
		return fmt.Errorf("end frame: %w", err)
	}
	e.lastStats = total
	return nil
}

func (e *engine) view(vp Viewport) renderer.View {
	cam := vp.Camera
	if cam == nil {
		cam = e.camera
	}
	if cam == nil {
		return renderer.View{ViewProj: common.Mat4Identity()}
	}
	cam.Update()
	return renderer.View{ViewProj: cam.ViewProjectionMatrix(), Eye: cam.Eye()}
}

// syncSize resizes the swapchain and the swapchain cameras when the window size changed.
func (e *engine) syncSize() {
	w, h := e.window.Width(), e.window.Height()
	if w == e.width && h == e.height {
		return
	}
	e.width, e.height = w, h
	if w <= 0 || h <= 0 {
		return
	}
	e.renderer.Resize(uint32(w), uint32(h))
	aspect := float32(w) / float32(h)
	if e.camera != nil {
		e.camera.SetAspect(aspect)
	}
	for _, vp := range e.viewports {
		if vp.Camera != nil && vp.Target.ColorImage == nil {
			vp.Camera.SetAspect(aspect)
		}
	}
}

// visible reports false while the window is minimized.
func (e *engine) visible() bool {
	return e.window == nil || (e.width > 0 && e.height > 0)
}

func (e *engine) shutdown() error {
	e.scene.OnStop()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.renderer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown renderer: %w", err)
	}
	e.log.Info("engine stopped",
		zap.Uint64("frames", e.frames.Load()),
		zap.Uint64("fixed_updates", e.fixedUpdates.Load()),
	)
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
