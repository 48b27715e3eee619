package physics

import (
	"testing"

	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBodyValidation(t *testing.T) {
	w := NewKinematicWorld()
	require.NoError(t, w.CreateBody(1, BodyDesc{Mass: 1, HalfExtents: common.Vec3{0.5, 0.5, 0.5}}))
	assert.ErrorIs(t, w.CreateBody(1, BodyDesc{Mass: 1}), ErrDuplicateBody)
	assert.ErrorIs(t, w.CreateBody(2, BodyDesc{}), ErrInvalidBody)
	assert.ErrorIs(t, w.CreateBody(3, BodyDesc{Mass: 1, Radius: -1}), ErrInvalidBody)
	require.NoError(t, w.CreateBody(4, BodyDesc{Static: true}))
	assert.Equal(t, 2, w.Len())

	_, rot, ok := w.Transform(1)
	require.True(t, ok)
	assert.Equal(t, common.QuatIdentity(), rot)

	w.DestroyBody(1)
	w.DestroyBody(99)
	_, _, ok = w.Transform(1)
	assert.False(t, ok)
	assert.Equal(t, 1, w.Len())
}

func TestStepAccumulatesFixedSteps(t *testing.T) {
	w := NewKinematicWorld(WithFixedStep(0.1), WithoutGround())
	require.NoError(t, w.CreateBody(1, BodyDesc{Mass: 1, Position: common.Vec3{0, 10, 0}}))

	assert.False(t, w.Step(0.05))
	pos, _, _ := w.Transform(1)
	assert.Equal(t, float32(10), pos[1])

	assert.True(t, w.Step(0.06))
	pos, _, _ = w.Transform(1)
	assert.Less(t, pos[1], float32(10))
	assert.False(t, w.Step(0))
}

func TestFallingBodyRestsOnGround(t *testing.T) {
	w := NewKinematicWorld(WithGround(1))
	require.NoError(t, w.CreateBody(1, BodyDesc{
		Shape:       ShapeSphere,
		Radius:      0.5,
		Mass:        1,
		Restitution: 0.5,
		Position:    common.Vec3{0, 5, 0},
	}))

	bounced := false
	for range 600 {
		w.Step(DefaultFixedStep)
		pos, _, _ := w.Transform(1)
		require.GreaterOrEqual(t, pos[1], float32(1.5)-common.Epsilon)
		if v, _ := w.Velocity(1); v[1] > 0 {
			bounced = true
		}
	}
	assert.True(t, bounced)
	pos, _, _ := w.Transform(1)
	assert.InDelta(t, 1.5, pos[1], 0.01)
}

func TestStaticBodiesNeverMove(t *testing.T) {
	w := NewKinematicWorld()
	start := common.Vec3{1, 2, 3}
	require.NoError(t, w.CreateBody(7, BodyDesc{Static: true, Position: start}))
	w.SetVelocity(7, common.Vec3{5, 5, 5})
	for range 10 {
		w.Step(DefaultFixedStep)
	}
	pos, _, _ := w.Transform(7)
	assert.Equal(t, start, pos)
	assert.True(t, w.IsStatic(7))
}

func TestBacklogIsDropped(t *testing.T) {
	w := NewKinematicWorld(WithFixedStep(0.1), WithMaxSubSteps(2), WithoutGround())
	require.NoError(t, w.CreateBody(1, BodyDesc{Mass: 1}))
	assert.True(t, w.Step(10))
	// the backlog beyond two steps is gone
	assert.False(t, w.Step(0.01))
}

func TestParseShape(t *testing.T) {
	assert.Equal(t, ShapeSphere, ParseShape(ShapeSphere.String()))
	assert.Equal(t, ShapeBox, ParseShape("capsule"))
}
