// Package physics defines the contract the scene uses to drive rigid bodies, plus a small
// fixed-step world with gravity and a ground plane.
package physics

import (
	"errors"

	"github.com/Carmen-Shannon/oxyframe/common"
)

var (
	ErrDuplicateBody = errors.New("physics: body already exists")
	ErrInvalidBody   = errors.New("physics: invalid body description")
)

// Shape selects the collision volume of a body.
type Shape int

const (
	ShapeBox Shape = iota
	ShapeSphere
)

func (s Shape) String() string {
	if s == ShapeSphere {
		return "sphere"
	}
	return "box"
}

// ParseShape maps a persisted name back to a Shape. Unknown names are boxes.
func ParseShape(s string) Shape {
	if s == "sphere" {
		return ShapeSphere
	}
	return ShapeBox
}

// BodyDesc describes a body at creation time.
type BodyDesc struct {
	Shape       Shape
	HalfExtents common.Vec3
	Radius      float32
	Mass        float32
	Static      bool
	Restitution float32
	Position    common.Vec3
	Rotation    common.Quat
	Velocity    common.Vec3
}

// World is the physics collaborator. Bodies are keyed by a caller-chosen ID.
type World interface {
	// CreateBody adds a body.
	//
	// Parameters:
	//   - id: the caller's key for the body
	//   - desc: shape, mass and initial pose
	//
	// Returns:
	//   - error: ErrDuplicateBody or ErrInvalidBody
	CreateBody(id uint64, desc BodyDesc) error

	// DestroyBody removes the body. Unknown IDs are ignored.
	DestroyBody(id uint64)

	// Transform returns the body's pose and false if there is no such body.
	Transform(id uint64) (common.Vec3, common.Quat, bool)

	// SetTransform teleports the body.
	SetTransform(id uint64, pos common.Vec3, rot common.Quat)

	// Velocity returns the body's linear velocity and false if there is no such body.
	Velocity(id uint64) (common.Vec3, bool)

	// SetVelocity sets the body's linear velocity.
	SetVelocity(id uint64, v common.Vec3)

	// IsStatic reports whether the body never moves.
	IsStatic(id uint64) bool

	// Step advances the simulation by dt seconds of wall time.
	//
	// Returns:
	//   - bool: true when at least one fixed step ran
	Step(dt float32) bool

	// Len returns the number of bodies.
	Len() int
}
