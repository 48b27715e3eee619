package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/Carmen-Shannon/oxyframe/engine/asset"
	"github.com/Carmen-Shannon/oxyframe/engine/config"
	"github.com/Carmen-Shannon/oxyframe/engine/physics"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxyframe/engine/scene"
	"github.com/Carmen-Shannon/oxyframe/engine/scripting"
	"github.com/Carmen-Shannon/oxyframe/engine/window"
	"go.uber.org/zap"
)

//go:embed scripts/*.lua
var builtinScripts embed.FS

// stack holds everything a command builds around one scene, in teardown order.
type stack struct {
	win      window.Window
	device   gpu.Device
	renderer renderer.Renderer
	assets   *asset.Manager
	scene    scene.Scene
	scripts  *scripting.Runtime
	log      *zap.Logger
}

// newStack opens the window (wgpu backend only), the device and the renderer, then an
// empty scene with physics and scripting attached.
func newStack(cfg *config.Config, log *zap.Logger, sceneName string) (*stack, error) {
	backend, err := renderer.ParseBackendType(cfg.Renderer.Backend)
	if err != nil {
		return nil, err
	}

	st := &stack{log: log}
	switch backend {
	case renderer.BackendTypeHeadless:
		st.device = gpu.NewHeadlessDevice(gpu.WithSwapchain(uint32(cfg.Window.Width), uint32(cfg.Window.Height), 3))
	default:
		st.win, err = window.NewWindow(
			window.WithTitle(cfg.Window.Title),
			window.WithSize(cfg.Window.Width, cfg.Window.Height),
			window.WithSizeLimits(320, 200, max(cfg.Window.Width, 3840), max(cfg.Window.Height, 2160)),
			window.WithResizable(cfg.Window.Resizable),
		)
		if err != nil {
			return nil, err
		}
		st.device, err = gpu.NewWGPUDevice(
			st.win.SurfaceDescriptor(),
			uint32(st.win.Width()),
			uint32(st.win.Height()),
			gpu.WithPresentMode(gpu.ParsePresentMode(cfg.Renderer.PresentMode)),
		)
		if err != nil {
			_ = st.win.Close()
			return nil, fmt.Errorf("create wgpu device: %w", err)
		}
	}

	st.renderer, err = renderer.NewRenderer(st.device,
		renderer.WithFramesInFlight(cfg.Renderer.FramesInFlight),
		renderer.WithMaxInstances(cfg.Renderer.MaxInstances),
		renderer.WithInitialInstances(cfg.Renderer.InitialInstances),
		renderer.WithMaxTextureSlots(cfg.Renderer.MaxTextureSlots),
		renderer.WithMaxViewports(cfg.Renderer.MaxViewports),
		renderer.WithParallelThreshold(cfg.Batching.ParallelThreshold),
		renderer.WithBatchWorkers(cfg.Batching.Workers),
		renderer.WithLogger(log),
	)
	if err != nil {
		st.closeDevice()
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	st.assets = asset.NewManager(st.device, st.renderer.Deleter(), st.renderer.Textures(),
		asset.WithLogger(log.Named("asset")),
		asset.WithMaterialDropHook(st.renderer.EvictMaterial),
	)

	worldOpts := []physics.WorldOption{
		physics.WithGravity(common.Vec3(cfg.Physics.Gravity)),
		physics.WithFixedStep(cfg.Physics.FixedStep),
		physics.WithMaxSubSteps(cfg.Physics.MaxSubSteps),
		physics.WithLogger(log.Named("physics")),
	}
	if cfg.Physics.Ground {
		worldOpts = append(worldOpts, physics.WithGround(cfg.Physics.GroundHeight))
	} else {
		worldOpts = append(worldOpts, physics.WithoutGround())
	}
	st.scene = scene.NewScene(sceneName,
		scene.WithPhysics(physics.NewKinematicWorld(worldOpts...)),
		scene.WithLogger(log.Named("scene")),
	)
	st.scripts = scripting.NewRuntime(st.scene,
		scripting.WithLogger(log.Named("lua")),
		scripting.WithCallTimeout(cfg.Scripting.CallTimeout),
	)
	st.scene.SetScripting(st.scripts)
	return st, nil
}

// loadScripts loads the built-in scripts, then dir. Scripts in dir replace built-ins of
// the same name.
func (st *stack) loadScripts(dir string) error {
	builtin, err := fs.Glob(builtinScripts, "scripts/*.lua")
	if err != nil {
		return err
	}
	for _, path := range builtin {
		src, err := builtinScripts.ReadFile(path)
		if err != nil {
			return err
		}
		name := path[len("scripts/") : len(path)-len(".lua")]
		if err := st.scripts.Load(name, string(src)); err != nil {
			return err
		}
	}
	n, err := st.scripts.LoadDir(dir)
	if err != nil {
		return err
	}
	st.log.Info("scripts loaded", zap.Int("builtin", len(builtin)), zap.Int("from_dir", n), zap.String("dir", dir), zap.Strings("names", st.scripts.Names()))
	return nil
}

// close tears the stack down. Asset and scene references are dropped first so their
// deferred destructions run on the drained queue.
func (st *stack) close() error {
	st.scene.Release()
	st.assets.ReleaseAll()
	st.scripts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := st.renderer.Shutdown(ctx)
	st.closeDevice()
	return err
}

func (st *stack) closeDevice() {
	st.device.Release()
	if st.win != nil {
		if err := st.win.Close(); err != nil {
			st.log.Warn("close window", zap.Error(err))
		}
	}
}

// joinClose runs close and joins its error onto err.
func (st *stack) joinClose(err *error) {
	*err = errors.Join(*err, st.close())
}
