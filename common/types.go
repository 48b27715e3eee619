// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// Transform is a decomposed affine transform: translation, unit quaternion rotation and per-axis scale.
// Composition follows the usual scene-graph convention: a child expressed in its parent's space
// is scaled, rotated and translated by the parent.
type Transform struct {
	Position Vec3
	Rotation Quat
	Scale    Vec3
}

// IdentityTransform returns the transform at the origin with no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: QuatIdentity(),
		Scale:    Vec3{1, 1, 1},
	}
}

// Compose returns the world transform of local when t is its parent's world transform.
//
// Parameters:
//   - local: the child transform expressed in t's space
//
// Returns:
//   - Transform: the child transform in world space
func (t Transform) Compose(local Transform) Transform {
	return Transform{
		Position: t.Position.Add(t.Rotation.Rotate(t.Scale.Mul(local.Position))),
		Rotation: t.Rotation.Mul(local.Rotation).Normalize(),
		Scale:    t.Scale.Mul(local.Scale),
	}
}

// Relative returns world expressed in t's space. It is the inverse of Compose:
// t.Compose(t.Relative(w)) reproduces w for any non-degenerate t.
// Zero scale components on t produce zero in the matching local components.
//
// Parameters:
//   - world: the transform in world space
//
// Returns:
//   - Transform: the transform in t's local space
func (t Transform) Relative(world Transform) Transform {
	inv := t.Rotation.Inverse()
	return Transform{
		Position: inv.Rotate(world.Position.Sub(t.Position)).Div(t.Scale),
		Rotation: inv.Mul(world.Rotation).Normalize(),
		Scale:    world.Scale.Div(t.Scale),
	}
}

// Matrix returns the column-major model matrix of t.
func (t Transform) Matrix() Mat4 {
	return TRS(t.Position, t.Rotation, t.Scale)
}

// ApproxEqual reports whether both transforms match component-wise within eps.
func (t Transform) ApproxEqual(o Transform, eps float32) bool {
	return t.Position.ApproxEqual(o.Position, eps) &&
		t.Rotation.ApproxEqual(o.Rotation, eps) &&
		t.Scale.ApproxEqual(o.Scale, eps)
}
