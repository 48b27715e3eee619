// Package config loads engine settings from TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Engine    EngineConfig    `toml:"engine"`
	Renderer  RendererConfig  `toml:"renderer"`
	Batching  BatchingConfig  `toml:"batching"`
	Window    WindowConfig    `toml:"window"`
	Physics   PhysicsConfig   `toml:"physics"`
	Scripting ScriptingConfig `toml:"scripting"`
	Logging   LoggingConfig   `toml:"logging"`
}

type EngineConfig struct {
	TickRate        int           `toml:"tick_rate"`   // fixed updates per second
	FrameLimit      int           `toml:"frame_limit"` // rendered frames per second, 0 = unlimited
	Profiling       bool          `toml:"profiling"`
	ProfileInterval time.Duration `toml:"profile_interval"`
	MaxFrames       uint64        `toml:"max_frames"` // 0 = run until quit
}

type RendererConfig struct {
	Backend          string `toml:"backend"` // "wgpu" or "headless"
	FramesInFlight   int    `toml:"frames_in_flight"`
	MaxInstances     int    `toml:"max_instances"`
	InitialInstances int    `toml:"initial_instances"`
	MaxTextureSlots  int    `toml:"max_texture_slots"`
	MaxViewports     int    `toml:"max_viewports"`
	PresentMode      string `toml:"present_mode"` // "fifo", "mailbox" or "immediate"
}

type BatchingConfig struct {
	ParallelThreshold int `toml:"parallel_threshold"`
	Workers           int `toml:"workers"` // 0 = one per CPU
}

type WindowConfig struct {
	Title     string `toml:"title"`
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Resizable bool   `toml:"resizable"`
}

type PhysicsConfig struct {
	Gravity      [3]float32 `toml:"gravity"`
	FixedStep    float32    `toml:"fixed_step"`
	MaxSubSteps  int        `toml:"max_sub_steps"`
	Ground       bool       `toml:"ground"`
	GroundHeight float32    `toml:"ground_height"`
}

type ScriptingConfig struct {
	Dir         string        `toml:"dir"`
	CallTimeout time.Duration `toml:"call_timeout"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads the TOML file at path over the defaults and validates the result.
// An empty path returns the defaults.
//
// Parameters:
//   - path: the config file
//
// Returns:
//   - *Config: the loaded configuration
//   - error: a read, parse or validation error
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			TickRate:        60,
			ProfileInterval: time.Second,
		},
		Renderer: RendererConfig{
			Backend:          "wgpu",
			FramesInFlight:   2,
			MaxInstances:     1 << 16,
			InitialInstances: 1024,
			MaxTextureSlots:  4096,
			MaxViewports:     4,
			PresentMode:      "fifo",
		},
		Batching: BatchingConfig{
			ParallelThreshold: 4096,
		},
		Window: WindowConfig{
			Title:     "oxyframe",
			Width:     1280,
			Height:    720,
			Resizable: true,
		},
		Physics: PhysicsConfig{
			Gravity:     [3]float32{0, -9.81, 0},
			FixedStep:   1.0 / 60,
			MaxSubSteps: 8,
			Ground:      true,
		},
		Scripting: ScriptingConfig{
			Dir:         "scripts",
			CallTimeout: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate reports every out-of-range setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Engine.TickRate > 0, "engine.tick_rate %d must be positive", c.Engine.TickRate)
	check(c.Engine.FrameLimit >= 0, "engine.frame_limit %d must not be negative", c.Engine.FrameLimit)
	check(!c.Engine.Profiling || c.Engine.ProfileInterval > 0, "engine.profile_interval must be positive when profiling")

	check(slices.Contains([]string{"wgpu", "webgpu", "headless"}, c.Renderer.Backend), "renderer.backend %q is not wgpu or headless", c.Renderer.Backend)
	check(c.Renderer.FramesInFlight >= 1 && c.Renderer.FramesInFlight <= 8, "renderer.frames_in_flight %d is outside 1..8", c.Renderer.FramesInFlight)
	check(c.Renderer.InitialInstances > 0, "renderer.initial_instances %d must be positive", c.Renderer.InitialInstances)
	check(c.Renderer.MaxInstances >= c.Renderer.InitialInstances, "renderer.max_instances %d is below initial_instances %d", c.Renderer.MaxInstances, c.Renderer.InitialInstances)
	check(c.Renderer.MaxTextureSlots > 0, "renderer.max_texture_slots %d must be positive", c.Renderer.MaxTextureSlots)
	check(c.Renderer.MaxViewports > 0, "renderer.max_viewports %d must be positive", c.Renderer.MaxViewports)
	check(slices.Contains([]string{"fifo", "mailbox", "immediate"}, c.Renderer.PresentMode), "renderer.present_mode %q is not fifo, mailbox or immediate", c.Renderer.PresentMode)

	check(c.Batching.ParallelThreshold >= 0, "batching.parallel_threshold %d must not be negative", c.Batching.ParallelThreshold)
	check(c.Batching.Workers >= 0, "batching.workers %d must not be negative", c.Batching.Workers)

	check(c.Window.Width > 0 && c.Window.Height > 0, "window size %dx%d must be positive", c.Window.Width, c.Window.Height)

	check(c.Physics.FixedStep > 0, "physics.fixed_step %v must be positive", c.Physics.FixedStep)
	check(c.Physics.MaxSubSteps > 0, "physics.max_sub_steps %d must be positive", c.Physics.MaxSubSteps)

	check(c.Scripting.CallTimeout >= 0, "scripting.call_timeout %v must not be negative", c.Scripting.CallTimeout)

	check(slices.Contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level), "logging.level %q is not debug, info, warn or error", c.Logging.Level)
	check(c.Logging.Format == "json" || c.Logging.Format == "console", "logging.format %q is not json or console", c.Logging.Format)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
