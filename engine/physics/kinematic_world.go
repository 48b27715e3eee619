package physics

import (
	"fmt"

	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/chewxy/math32"
	"go.uber.org/zap"
)

const (
	DefaultFixedStep   = float32(1) / 60
	DefaultMaxSubSteps = 8

	// restingSpeed is the bounce speed below which a body settles on the ground.
	restingSpeed = 0.05
)

type body struct {
	desc     BodyDesc
	position common.Vec3
	rotation common.Quat
	velocity common.Vec3
}

// halfHeight is the distance from the body's center to its lowest point.
func (b *body) halfHeight() float32 {
	if b.desc.Shape == ShapeSphere {
		return b.desc.Radius
	}
	return b.desc.HalfExtents[1]
}

// KinematicWorld integrates dynamic bodies under gravity at a fixed rate and bounces them
// off a horizontal ground plane. It is not safe for concurrent use.
type KinematicWorld struct {
	bodies map[uint64]*body
	order  []uint64

	gravity     common.Vec3
	fixedStep   float32
	maxSubSteps int
	ground      bool
	groundY     float32
	accumulator float32

	log *zap.Logger
}

var _ World = &KinematicWorld{}

// NewKinematicWorld creates an empty world with gravity (0, -9.81, 0), a ground plane at
// y = 0 and a 60 Hz fixed step.
//
// Parameters:
//   - options: functional options to configure the world
//
// Returns:
//   - *KinematicWorld: the new world
func NewKinematicWorld(options ...WorldOption) *KinematicWorld {
	w := &KinematicWorld{
		bodies:      make(map[uint64]*body),
		gravity:     common.Vec3{0, -9.81, 0},
		fixedStep:   DefaultFixedStep,
		maxSubSteps: DefaultMaxSubSteps,
		ground:      true,
		log:         zap.NewNop(),
	}
	for _, option := range options {
		option(w)
	}
	return w
}

func (w *KinematicWorld) CreateBody(id uint64, desc BodyDesc) error {
	if _, ok := w.bodies[id]; ok {
		return fmt.Errorf("create body %d: %w", id, ErrDuplicateBody)
	}
	if !desc.Static && desc.Mass <= 0 {
		return fmt.Errorf("create body %d: dynamic body needs positive mass: %w", id, ErrInvalidBody)
	}
	if desc.Radius < 0 || desc.HalfExtents[0] < 0 || desc.HalfExtents[1] < 0 || desc.HalfExtents[2] < 0 {
		return fmt.Errorf("create body %d: negative size: %w", id, ErrInvalidBody)
	}
	rot := desc.Rotation
	if rot == (common.Quat{}) {
		rot = common.QuatIdentity()
	}
	w.bodies[id] = &body{
		desc:     desc,
		position: desc.Position,
		rotation: rot,
		velocity: desc.Velocity,
	}
	w.order = append(w.order, id)
	w.log.Debug("body created", zap.Uint64("id", id), zap.Stringer("shape", desc.Shape), zap.Bool("static", desc.Static))
	return nil
}

func (w *KinematicWorld) DestroyBody(id uint64) {
	if _, ok := w.bodies[id]; !ok {
		return
	}
	delete(w.bodies, id)
	for i, o := range w.order {
		if o == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

func (w *KinematicWorld) Transform(id uint64) (common.Vec3, common.Quat, bool) {
	b, ok := w.bodies[id]
	if !ok {
		return common.Vec3{}, common.Quat{}, false
	}
	return b.position, b.rotation, true
}

func (w *KinematicWorld) SetTransform(id uint64, pos common.Vec3, rot common.Quat) {
	if b, ok := w.bodies[id]; ok {
		b.position = pos
		b.rotation = rot
	}
}

func (w *KinematicWorld) Velocity(id uint64) (common.Vec3, bool) {
	b, ok := w.bodies[id]
	if !ok {
		return common.Vec3{}, false
	}
	return b.velocity, true
}

func (w *KinematicWorld) SetVelocity(id uint64, v common.Vec3) {
	if b, ok := w.bodies[id]; ok && !b.desc.Static {
		b.velocity = v
	}
}

func (w *KinematicWorld) IsStatic(id uint64) bool {
	b, ok := w.bodies[id]
	return ok && b.desc.Static
}

func (w *KinematicWorld) Len() int { return len(w.bodies) }

// Step runs as many fixed steps as the accumulated time allows, at most maxSubSteps.
// Time beyond that budget is dropped so a long stall does not snowball.
func (w *KinematicWorld) Step(dt float32) bool {
	if dt <= 0 {
		return false
	}
	w.accumulator += dt
	steps := 0
	for w.accumulator >= w.fixedStep && steps < w.maxSubSteps {
		w.integrate(w.fixedStep)
		w.accumulator -= w.fixedStep
		steps++
	}
	if steps == w.maxSubSteps && w.accumulator >= w.fixedStep {
		w.log.Debug("physics backlog dropped", zap.Float32("seconds", w.accumulator))
		w.accumulator = 0
	}
	return steps > 0
}

func (w *KinematicWorld) integrate(h float32) {
	for _, id := range w.order {
		b := w.bodies[id]
		if b.desc.Static {
			continue
		}
		b.velocity = b.velocity.Add(w.gravity.Scale(h))
		b.position = b.position.Add(b.velocity.Scale(h))

		if !w.ground {
			continue
		}
		floor := w.groundY + b.halfHeight()
		if b.position[1] >= floor {
			continue
		}
		b.position[1] = floor
		if b.velocity[1] < 0 {
			b.velocity[1] = -b.velocity[1] * b.desc.Restitution
			if math32.Abs(b.velocity[1]) < restingSpeed {
				b.velocity[1] = 0
			}
		}
	}
}
