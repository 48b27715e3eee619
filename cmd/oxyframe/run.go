package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/Carmen-Shannon/oxyframe/engine"
	"github.com/Carmen-Shannon/oxyframe/engine/camera"
	"github.com/Carmen-Shannon/oxyframe/engine/config"
	"github.com/Carmen-Shannon/oxyframe/engine/logging"
	"github.com/Carmen-Shannon/oxyframe/engine/scene"
	"github.com/Carmen-Shannon/oxyframe/engine/serializer"
	"github.com/chewxy/math32"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// defaultHeadlessFrames bounds a headless run when neither --frames nor max_frames is set.
const defaultHeadlessFrames = 300

var profileModes = map[string]func(*profile.Profile){
	"cpu":    profile.CPUProfile,
	"mem":    profile.MemProfile,
	"allocs": profile.MemProfileAllocs,
	"block":  profile.BlockProfile,
	"mutex":  profile.MutexProfile,
	"trace":  profile.TraceProfile,
}

type runOptions struct {
	headless bool
	frames   uint64
	save     string
	profile  string
}

func newRunCommand() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo scene",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDemo(ctx, cfgPath, opts)
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&opts.headless, "headless", false, "render on the headless device without a window")
	flags.Uint64Var(&opts.frames, "frames", 0, "stop after this many frames (overrides engine.max_frames)")
	flags.StringVar(&opts.save, "save", "", "write the scene to this YAML file when the run ends")
	flags.StringVar(&opts.profile, "profile", "", "write a pprof profile: "+strings.Join(profileModeNames(), ", "))
	return cmd
}

func profileModeNames() []string {
	names := make([]string, 0, len(profileModes))
	for name := range profileModes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// runDemo builds the demo scene on the configured backend and drives it until the window
// closes, ctx is cancelled or the frame budget is spent.
func runDemo(ctx context.Context, cfgPath string, opts runOptions) (err error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if opts.headless {
		cfg.Renderer.Backend = "headless"
	}
	if opts.frames > 0 {
		cfg.Engine.MaxFrames = opts.frames
	} else if opts.headless && cfg.Engine.MaxFrames == 0 {
		cfg.Engine.MaxFrames = defaultHeadlessFrames
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if opts.profile != "" {
		mode, ok := profileModes[opts.profile]
		if !ok {
			return fmt.Errorf("unknown profile mode %q, want one of %s", opts.profile, strings.Join(profileModeNames(), ", "))
		}
		defer profile.Start(mode, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}

	st, err := newStack(cfg, log, "demo")
	if err != nil {
		return err
	}
	defer st.joinClose(&err)

	if err := st.loadScripts(cfg.Scripting.Dir); err != nil {
		return err
	}
	if err := createDemoAssets(st.assets); err != nil {
		return fmt.Errorf("create demo assets: %w", err)
	}
	if err := populateDemo(st.scene, st.assets, cfg.Physics.GroundHeight); err != nil {
		return fmt.Errorf("populate demo: %w", err)
	}

	cam := camera.NewCamera(
		camera.WithFov(45*math32.Pi/180),
		camera.WithAspect(float32(cfg.Window.Width)/float32(cfg.Window.Height)),
		camera.WithClipPlanes(0.1, 500),
		camera.WithController(camera.NewCameraController(
			camera.WithRadius(22),
			camera.WithRadiusBounds(4, 120),
			camera.WithAzimuth(0.6),
			camera.WithElevation(0.45),
			camera.WithTarget(common.Vec3{0, cfg.Physics.GroundHeight + 1.5, 0}),
			camera.WithZoomSpeed(1.5),
			camera.WithMouseSensitivity(0.004),
		)),
	)

	engineOpts := []engine.EngineBuilderOption{
		engine.WithTickRate(float64(cfg.Engine.TickRate)),
		engine.WithRenderFrameLimit(float64(cfg.Engine.FrameLimit)),
		engine.WithProfiling(cfg.Engine.Profiling),
		engine.WithProfileInterval(cfg.Engine.ProfileInterval),
		engine.WithMaxFrames(cfg.Engine.MaxFrames),
		engine.WithCamera(cam),
		engine.WithLogger(log.Named("engine")),
	}
	if st.win != nil {
		engineOpts = append(engineOpts, engine.WithWindow(st.win))
	}
	eng := engine.NewEngine(st.scene, st.renderer, engineOpts...)
	if st.win != nil {
		bindInput(st.win, cam.Controller(), eng.Quit)
	}

	runErr := eng.Run(ctx)
	log.Info("run finished",
		zap.Uint64("frames", eng.Frames()),
		zap.Uint64("fixed_updates", eng.FixedUpdates()),
		zap.Int("draw_calls", eng.LastStats().DrawCalls),
		zap.Error(runErr),
	)
	if opts.save != "" {
		if err := saveScene(st.scene, opts.save); err != nil {
			return errors.Join(runErr, err)
		}
		log.Info("scene saved", zap.String("path", opts.save))
	}
	return runErr
}

func saveScene(s scene.Scene, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save scene: %w", err)
	}
	if err := serializer.Save(s, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
