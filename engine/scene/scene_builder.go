package scene

import (
	"github.com/Carmen-Shannon/oxyframe/engine/physics"
	"go.uber.org/zap"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithPhysics sets the physics world that simulates rigid bodies.
//
// Parameters:
//   - w: the physics world
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPhysics(w physics.World) SceneBuilderOption {
	return func(s *scene) {
		s.physics = w
	}
}

// WithLogger sets the logger.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLogger(log *zap.Logger) SceneBuilderOption {
	return func(s *scene) {
		if log != nil {
			s.log = log.Named("scene")
		}
	}
}
