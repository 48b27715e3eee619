// Package scripting embeds a Lua VM that drives entity behaviour through on_start,
// on_update and on_fixed_update hooks.
package scripting

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/Carmen-Shannon/oxyframe/engine/ecs"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

const (
	hookStart       = "on_start"
	hookUpdate      = "on_update"
	hookFixedUpdate = "on_fixed_update"
)

// Host is the scene-side surface scripts act on. Writes are world-space and the host is
// responsible for resyncing the entity's local transform.
type Host interface {
	// Position returns the entity's world position and false if it has no transform.
	Position(e ecs.Entity) (common.Vec3, bool)

	// SetPosition writes the entity's world position.
	SetPosition(e ecs.Entity, pos common.Vec3)

	// Scale returns the entity's world scale and false if it has no transform.
	Scale(e ecs.Entity) (common.Vec3, bool)

	// SetScale writes the entity's world scale.
	SetScale(e ecs.Entity, scale common.Vec3)

	// Rotate applies a world-space rotation of angle radians about axis.
	Rotate(e ecs.Entity, axis common.Vec3, angle float32)
}

// Runtime wraps a single Lua state. Single-goroutine access only.
type Runtime struct {
	vm      *lua.LState
	host    Host
	log     *zap.Logger
	timeout time.Duration

	scripts map[string]*lua.LTable
	selves  map[ecs.Entity]*lua.LTable
}

// NewRuntime creates a runtime bound to host.
//
// Parameters:
//   - host: receives transform reads and writes made by scripts
//   - options: functional options to configure the runtime
//
// Returns:
//   - *Runtime: the new runtime
func NewRuntime(host Host, options ...RuntimeOption) *Runtime {
	r := &Runtime{
		vm:      lua.NewState(lua.Options{}),
		host:    host,
		log:     zap.NewNop(),
		scripts: make(map[string]*lua.LTable),
		selves:  make(map[ecs.Entity]*lua.LTable),
	}
	for _, option := range options {
		option(r)
	}
	r.vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return r
}

// Load runs source as a chunk named name. The chunk must return a table; its on_start,
// on_update and on_fixed_update fields are looked up on every call. Loading an existing
// name replaces the script.
//
// Parameters:
//   - name: the script name entities refer to
//   - source: Lua source
//
// Returns:
//   - error: ErrScript if the chunk fails or does not return a table
func (r *Runtime) Load(name, source string) error {
	return r.load(name, strings.NewReader(source))
}

// LoadFile loads a script from disk. The file stem becomes the script name.
func (r *Runtime) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load script %s: %w", path, err)
	}
	defer f.Close()
	return r.load(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), f)
}

// LoadDir loads every .lua file in dir. A missing directory is not an error.
//
// Returns:
//   - int: the number of scripts loaded
//   - error: the first load failure
func (r *Runtime) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("load scripts from %s: %w", dir, err)
	}
	n := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		if err := r.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (r *Runtime) load(name string, src io.Reader) error {
	fn, err := r.vm.Load(src, name)
	if err != nil {
		r.log.Error("lua compile error", zap.String("script", name), zap.Error(err))
		return fmt.Errorf("compile %q: %v: %w", name, err, ErrScript)
	}
	if err := r.protect(func() error {
		return r.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true})
	}); err != nil {
		r.log.Error("lua chunk error", zap.String("script", name), zap.Error(err))
		return fmt.Errorf("run %q: %v: %w", name, err, ErrScript)
	}
	ret := r.vm.Get(-1)
	r.vm.Pop(1)
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return fmt.Errorf("load %q: chunk returned %s, want table: %w", name, ret.Type(), ErrScript)
	}
	r.scripts[name] = tbl
	r.log.Debug("loaded lua script", zap.String("script", name))
	return nil
}

// Has reports whether a script named name is loaded.
func (r *Runtime) Has(name string) bool {
	_, ok := r.scripts[name]
	return ok
}

// Names returns the loaded script names in sorted order.
func (r *Runtime) Names() []string {
	names := make([]string, 0, len(r.scripts))
	for name := range r.scripts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// OnStart calls the script's on_start(self) for e.
func (r *Runtime) OnStart(e ecs.Entity, name string) error {
	return r.call(e, name, hookStart)
}

// OnUpdate calls the script's on_update(self, dt) for e.
func (r *Runtime) OnUpdate(e ecs.Entity, name string, dt float32) error {
	return r.call(e, name, hookUpdate, lua.LNumber(dt))
}

// OnFixedUpdate calls the script's on_fixed_update(self) for e.
func (r *Runtime) OnFixedUpdate(e ecs.Entity, name string) error {
	return r.call(e, name, hookFixedUpdate)
}

// Forget drops the cached self table of e. The scene calls it when e is destroyed.
func (r *Runtime) Forget(e ecs.Entity) {
	delete(r.selves, e)
}

// Close releases the Lua state.
func (r *Runtime) Close() {
	r.vm.Close()
	clear(r.scripts)
	clear(r.selves)
}

func (r *Runtime) call(e ecs.Entity, name, hook string, args ...lua.LValue) error {
	script, ok := r.scripts[name]
	if !ok {
		return fmt.Errorf("%s %q on entity %s: %w", hook, name, e, ErrUnknownScript)
	}
	fn, ok := script.RawGetString(hook).(*lua.LFunction)
	if !ok {
		return nil
	}
	params := append([]lua.LValue{r.self(e, name)}, args...)
	if err := r.protect(func() error {
		return r.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, params...)
	}); err != nil {
		r.log.Error("lua "+hook+" error", zap.String("script", name), zap.Stringer("entity", e), zap.Error(err))
		return fmt.Errorf("%s %q on entity %s: %v: %w", hook, name, e, err, ErrScript)
	}
	return nil
}

// protect bounds fn by the configured call timeout.
func (r *Runtime) protect(fn func() error) error {
	if r.timeout <= 0 {
		return fn()
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	r.vm.SetContext(ctx)
	defer r.vm.RemoveContext()
	return fn()
}

// self returns the table passed as the first argument of every hook.
func (r *Runtime) self(e ecs.Entity, script string) *lua.LTable {
	if t, ok := r.selves[e]; ok {
		return t
	}
	vm := r.vm
	t := vm.NewTable()
	t.RawSetString("entity", lua.LString(e.String()))

	t.RawSetString("get_position", vm.NewFunction(func(L *lua.LState) int {
		pos, ok := r.host.Position(e)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		return pushVec3(L, pos)
	}))
	t.RawSetString("set_position", vm.NewFunction(func(L *lua.LState) int {
		r.host.SetPosition(e, checkVec3(L, 2))
		return 0
	}))
	t.RawSetString("get_scale", vm.NewFunction(func(L *lua.LState) int {
		scale, ok := r.host.Scale(e)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		return pushVec3(L, scale)
	}))
	t.RawSetString("set_scale", vm.NewFunction(func(L *lua.LState) int {
		r.host.SetScale(e, checkVec3(L, 2))
		return 0
	}))
	t.RawSetString("rotate", vm.NewFunction(func(L *lua.LState) int {
		axis := checkVec3(L, 2)
		r.host.Rotate(e, axis, float32(L.CheckNumber(5)))
		return 0
	}))
	t.RawSetString("log", vm.NewFunction(func(L *lua.LState) int {
		r.log.Info(L.CheckString(2), zap.String("script", script), zap.Stringer("entity", e))
		return 0
	}))

	r.selves[e] = t
	return t
}

func pushVec3(L *lua.LState, v common.Vec3) int {
	L.Push(lua.LNumber(v[0]))
	L.Push(lua.LNumber(v[1]))
	L.Push(lua.LNumber(v[2]))
	return 3
}

// checkVec3 reads three numbers starting at stack index from. Index 1 is self.
func checkVec3(L *lua.LState, from int) common.Vec3 {
	return common.Vec3{
		float32(L.CheckNumber(from)),
		float32(L.CheckNumber(from + 1)),
		float32(L.CheckNumber(from + 2)),
	}
}
