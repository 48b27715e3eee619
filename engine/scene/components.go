package scene

import (
	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/Carmen-Shannon/oxyframe/engine/asset"
	"github.com/Carmen-Shannon/oxyframe/engine/ecs"
	"github.com/Carmen-Shannon/oxyframe/engine/physics"
)

// TagComponent names an entity.
type TagComponent struct {
	Name string
}

// TransformComponent holds the world transform and the transform relative to the parent.
// For an entity without a parent the two are equal.
type TransformComponent struct {
	Position common.Vec3
	Rotation common.Quat
	Scale    common.Vec3

	LocalPosition common.Vec3
	LocalRotation common.Quat
	LocalScale    common.Vec3
}

// NewTransform returns an unparented transform with world and local set to the given values.
func NewTransform(pos common.Vec3, rot common.Quat, scale common.Vec3) TransformComponent {
	return TransformComponent{
		Position:      pos,
		Rotation:      rot,
		Scale:         scale,
		LocalPosition: pos,
		LocalRotation: rot,
		LocalScale:    scale,
	}
}

// IdentityTransformComponent is the transform at the origin with unit scale.
func IdentityTransformComponent() TransformComponent {
	return NewTransform(common.Vec3{}, common.QuatIdentity(), common.Vec3{1, 1, 1})
}

func (t *TransformComponent) World() common.Transform {
	return common.Transform{Position: t.Position, Rotation: t.Rotation, Scale: t.Scale}
}

func (t *TransformComponent) Local() common.Transform {
	return common.Transform{Position: t.LocalPosition, Rotation: t.LocalRotation, Scale: t.LocalScale}
}

func (t *TransformComponent) SetWorld(w common.Transform) {
	t.Position, t.Rotation, t.Scale = w.Position, w.Rotation, w.Scale
}

func (t *TransformComponent) SetLocal(l common.Transform) {
	t.LocalPosition, t.LocalRotation, t.LocalScale = l.Position, l.Rotation, l.Scale
}

// Matrix returns the world model matrix.
func (t *TransformComponent) Matrix() common.Mat4 {
	return common.TRS(t.Position, t.Rotation, t.Scale)
}

// ParentComponent links an entity to its parent.
type ParentComponent struct {
	Parent ecs.Entity
}

// MeshRendererComponent draws a mesh with a material. The store holds a reference to both
// assets while the component is attached.
type MeshRendererComponent struct {
	Mesh     *asset.Mesh
	Material *asset.Material
	Tint     [4]float32
}

// RigidBodyComponent holds the parameters a physics body is created from.
type RigidBodyComponent struct {
	Shape       physics.Shape
	HalfExtents common.Vec3
	Radius      float32
	Mass        float32
	Static      bool
	Restitution float32
	Velocity    common.Vec3
}

// ScriptComponent names the Lua script that drives an entity.
type ScriptComponent struct {
	Script string
}
