package scripting

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/Carmen-Shannon/oxyframe/engine/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	positions map[ecs.Entity]common.Vec3
	scales    map[ecs.Entity]common.Vec3
	rotations []float32
	writes    int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		positions: make(map[ecs.Entity]common.Vec3),
		scales:    make(map[ecs.Entity]common.Vec3),
	}
}

func (h *fakeHost) Position(e ecs.Entity) (common.Vec3, bool) {
	p, ok := h.positions[e]
	return p, ok
}

func (h *fakeHost) SetPosition(e ecs.Entity, pos common.Vec3) {
	h.positions[e] = pos
	h.writes++
}

func (h *fakeHost) Scale(e ecs.Entity) (common.Vec3, bool) {
	s, ok := h.scales[e]
	return s, ok
}

func (h *fakeHost) SetScale(e ecs.Entity, scale common.Vec3) {
	h.scales[e] = scale
	h.writes++
}

func (h *fakeHost) Rotate(_ ecs.Entity, _ common.Vec3, angle float32) {
	h.rotations = append(h.rotations, angle)
}

const mover = `
local M = {}

function M.on_start(self)
	local x, y, z = self:get_position()
	self:set_position(x, y + 1, z)
end

function M.on_update(self, dt)
	local x, y, z = self:get_position()
	self:set_position(x + dt, y, z)
	self:rotate(0, 1, 0, dt)
end

function M.on_fixed_update(self)
	self:set_scale(2, 2, 2)
	self:log("fixed " .. self.entity)
end

return M
`

func TestHooksDriveHost(t *testing.T) {
	host := newFakeHost()
	rt := NewRuntime(host)
	defer rt.Close()
	require.NoError(t, rt.Load("mover", mover))
	assert.True(t, rt.Has("mover"))

	e := ecs.NewEntity(3, 1)
	host.positions[e] = common.Vec3{1, 0, 0}

	require.NoError(t, rt.OnStart(e, "mover"))
	assert.Equal(t, common.Vec3{1, 1, 0}, host.positions[e])

	require.NoError(t, rt.OnUpdate(e, "mover", 0.5))
	assert.Equal(t, common.Vec3{1.5, 1, 0}, host.positions[e])
	assert.Equal(t, []float32{0.5}, host.rotations)

	require.NoError(t, rt.OnFixedUpdate(e, "mover"))
	assert.Equal(t, common.Vec3{2, 2, 2}, host.scales[e])
	assert.Equal(t, 3, host.writes)
}

func TestMissingHooksAreNoOps(t *testing.T) {
	rt := NewRuntime(newFakeHost())
	defer rt.Close()
	require.NoError(t, rt.Load("empty", "return {}"))
	e := ecs.NewEntity(0, 1)
	assert.NoError(t, rt.OnStart(e, "empty"))
	assert.NoError(t, rt.OnUpdate(e, "empty", 1))
	assert.NoError(t, rt.OnFixedUpdate(e, "empty"))
	assert.ErrorIs(t, rt.OnStart(e, "nope"), ErrUnknownScript)
}

func TestScriptErrors(t *testing.T) {
	rt := NewRuntime(newFakeHost())
	defer rt.Close()

	assert.ErrorIs(t, rt.Load("syntax", "return {"), ErrScript)
	assert.ErrorIs(t, rt.Load("number", "return 42"), ErrScript)
	assert.ErrorIs(t, rt.Load("boom", `error("boom")`), ErrScript)
	assert.False(t, rt.Has("boom"))

	require.NoError(t, rt.Load("bad", `return { on_update = function(self, dt) error("bad update") end }`))
	err := rt.OnUpdate(ecs.NewEntity(1, 1), "bad", 0.1)
	assert.ErrorIs(t, err, ErrScript)
	assert.Contains(t, err.Error(), "bad update")

	// a failed hook leaves the state usable
	require.NoError(t, rt.Load("fine", "return {}"))
}

func TestCallTimeout(t *testing.T) {
	rt := NewRuntime(newFakeHost(), WithCallTimeout(50*time.Millisecond))
	defer rt.Close()
	require.NoError(t, rt.Load("spin", `return { on_start = function(self) while true do end end }`))
	assert.ErrorIs(t, rt.OnStart(ecs.NewEntity(0, 1), "spin"), ErrScript)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spin.lua"), []byte("return {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bob.lua"), []byte("return {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	rt := NewRuntime(newFakeHost())
	defer rt.Close()
	n, err := rt.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"bob", "spin"}, rt.Names())

	n, err = rt.LoadDir(filepath.Join(dir, "missing"))
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetPositionWithoutTransformIsNil(t *testing.T) {
	host := newFakeHost()
	rt := NewRuntime(host)
	defer rt.Close()
	require.NoError(t, rt.Load("check_position", `
return {
	on_start = function(self)
		if self:get_position() == nil then
			self:set_scale(9, 9, 9)
		end
	end,
}`))
	e := ecs.NewEntity(5, 1)
	require.NoError(t, rt.OnStart(e, "check_position"))
	assert.Equal(t, common.Vec3{9, 9, 9}, host.scales[e])
}
