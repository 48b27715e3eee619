package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuatRotate(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{0, 1, 0}, math32.Pi/2)
	got := q.Rotate(Vec3{1, 0, 0})
	assert.True(t, got.ApproxEqual(Vec3{0, 0, -1}, 1e-5), "got %v", got)
}

func TestQuatMulOrder(t *testing.T) {
	yaw := QuatFromAxisAngle(Vec3{0, 1, 0}, math32.Pi/2)
	pitch := QuatFromAxisAngle(Vec3{1, 0, 0}, math32.Pi/2)

	v := Vec3{0, 0, 1}
	combined := yaw.Mul(pitch).Rotate(v)
	stepwise := yaw.Rotate(pitch.Rotate(v))
	assert.True(t, combined.ApproxEqual(stepwise, 1e-5))
}

func TestQuatApproxEqualTreatsNegationAsSame(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{1, 2, 3}, 0.7)
	neg := Quat{-q[0], -q[1], -q[2], -q[3]}
	assert.True(t, q.ApproxEqual(neg, Epsilon))
}

func TestTransformComposeRelativeRoundTrip(t *testing.T) {
	parents := []Transform{
		IdentityTransform(),
		{Position: Vec3{5, 5, 5}, Rotation: QuatIdentity(), Scale: Vec3{1, 1, 1}},
		{Position: Vec3{-3, 2, 8}, Rotation: QuatFromAxisAngle(Vec3{0, 1, 0}, 1.1), Scale: Vec3{2, 2, 2}},
		{Position: Vec3{1, -4, 0.5}, Rotation: QuatFromAxisAngle(Vec3{1, 1, 0}, -0.4), Scale: Vec3{0.5, 3, 1.5}},
	}
	locals := []Transform{
		{Position: Vec3{1, 0, 0}, Rotation: QuatIdentity(), Scale: Vec3{1, 1, 1}},
		{Position: Vec3{0.2, 7, -1}, Rotation: QuatFromAxisAngle(Vec3{0, 0, 1}, 2.3), Scale: Vec3{1, 2, 3}},
	}

	for _, p := range parents {
		for _, l := range locals {
			world := p.Compose(l)
			back := p.Relative(world)
			assert.True(t, back.ApproxEqual(l, 1e-4), "parent %v local %v back %v", p, l, back)
		}
	}
}

func TestTransformComposeMatchesMatrix(t *testing.T) {
	parent := Transform{Position: Vec3{1, 2, 3}, Rotation: QuatFromAxisAngle(Vec3{0, 1, 0}, 0.9), Scale: Vec3{2, 2, 2}}
	local := Transform{Position: Vec3{0.5, -1, 4}, Rotation: QuatFromAxisAngle(Vec3{1, 0, 0}, 0.3), Scale: Vec3{1, 1, 1}}

	viaMatrix := parent.Matrix().Mul(local.Matrix()).Translation()
	viaCompose := parent.Compose(local).Position
	assert.True(t, viaMatrix.ApproxEqual(viaCompose, 1e-4), "matrix %v compose %v", viaMatrix, viaCompose)
}

func TestRelativeZeroScaleYieldsZero(t *testing.T) {
	parent := Transform{Rotation: QuatIdentity(), Scale: Vec3{0, 1, 1}}
	local := parent.Relative(Transform{Position: Vec3{3, 3, 3}, Rotation: QuatIdentity(), Scale: Vec3{1, 1, 1}})
	assert.Equal(t, float32(0), local.Position[0])
	assert.Equal(t, float32(0), local.Scale[0])
	assert.Equal(t, float32(3), local.Position[1])
}

func TestMat4Inverse(t *testing.T) {
	m := TRS(Vec3{4, 5, 6}, QuatFromAxisAngle(Vec3{0, 0, 1}, 0.5), Vec3{2, 3, 4})
	inv, ok := m.Inverse()
	require.True(t, ok)

	id := m.Mul(inv)
	want := Mat4Identity()
	for i := range id {
		assert.InDelta(t, want[i], id[i], 1e-4, "element %d", i)
	}

	_, ok = Mat4{}.Inverse()
	assert.False(t, ok)
}
