package physics

import (
	"github.com/Carmen-Shannon/oxyframe/common"
	"go.uber.org/zap"
)

type WorldOption func(*KinematicWorld)

// WithGravity sets the gravity acceleration.
//
// Parameters:
//   - g: the acceleration in units per second squared
//
// Returns:
//   - WorldOption: a function that sets the gravity
func WithGravity(g common.Vec3) WorldOption {
	return func(w *KinematicWorld) {
		w.gravity = g
	}
}

// WithFixedStep sets the simulation step in seconds.
func WithFixedStep(step float32) WorldOption {
	return func(w *KinematicWorld) {
		if step > 0 {
			w.fixedStep = step
		}
	}
}

// WithMaxSubSteps caps the fixed steps run by a single Step call.
func WithMaxSubSteps(n int) WorldOption {
	return func(w *KinematicWorld) {
		if n > 0 {
			w.maxSubSteps = n
		}
	}
}

// WithGround places the ground plane at height y. Disable it with WithoutGround.
func WithGround(y float32) WorldOption {
	return func(w *KinematicWorld) {
		w.ground = true
		w.groundY = y
	}
}

// WithoutGround removes the ground plane.
func WithoutGround() WorldOption {
	return func(w *KinematicWorld) {
		w.ground = false
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) WorldOption {
	return func(w *KinematicWorld) {
		if log != nil {
			w.log = log.Named("physics")
		}
	}
}
