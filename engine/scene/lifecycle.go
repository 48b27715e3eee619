package scene

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxyframe/engine/ecs"
	"github.com/Carmen-Shannon/oxyframe/engine/physics"
	"github.com/Carmen-Shannon/oxyframe/engine/scripting"
	"go.uber.org/zap"
)

func (s *scene) Physics() physics.World             { return s.physics }
func (s *scene) Scripting() *scripting.Runtime      { return s.runtime }
func (s *scene) SetScripting(rt *scripting.Runtime) { s.runtime = rt }
func (s *scene) Running() bool                      { return s.running }

func (s *scene) AddRigidBody(e ecs.Entity, rb RigidBodyComponent) (*RigidBodyComponent, error) {
	if !s.registry.Valid(e) {
		return nil, fmt.Errorf("add rigid body to %s: %w", e, ErrInvalidEntity)
	}
	stored := s.bodies.Add(e, rb)
	if s.running {
		if err := s.createBody(e, stored); err != nil {
			return stored, err
		}
	}
	return stored, nil
}

func (s *scene) createBody(e ecs.Entity, rb *RigidBodyComponent) error {
	if s.physics == nil {
		return nil
	}
	desc := physics.BodyDesc{
		Shape:       rb.Shape,
		HalfExtents: rb.HalfExtents,
		Radius:      rb.Radius,
		Mass:        rb.Mass,
		Static:      rb.Static,
		Restitution: rb.Restitution,
		Velocity:    rb.Velocity,
	}
	if t := s.transforms.Get(e); t != nil {
		desc.Position, desc.Rotation = t.Position, t.Rotation
	}
	if err := s.physics.CreateBody(uint64(e), desc); err != nil {
		return fmt.Errorf("create body for %s: %w", e, err)
	}
	return nil
}

// pushBody teleports e's physics body to its current world pose.
func (s *scene) pushBody(e ecs.Entity, t *TransformComponent) {
	if s.running && s.physics != nil && s.bodies.Has(e) {
		s.physics.SetTransform(uint64(e), t.Position, t.Rotation)
	}
}

func (s *scene) OnStart() error {
	if s.running {
		return nil
	}
	s.running = true

	var errs []error
	s.bodies.Each(func(e ecs.Entity, rb *RigidBodyComponent) {
		if err := s.createBody(e, rb); err != nil {
			s.log.Error("rigid body not created", zap.Stringer("entity", e), zap.Error(err))
			errs = append(errs, err)
		}
	})
	s.eachScript(func(e ecs.Entity, name string) error {
		return s.runtime.OnStart(e, name)
	})
	s.log.Info("scene started",
		zap.String("scene", s.name),
		zap.Int("entities", s.Len()),
		zap.Int("bodies", s.bodies.Len()),
		zap.Int("scripts", s.scripts.Len()),
	)
	return errors.Join(errs...)
}

func (s *scene) OnUpdate(dt float32) {
	if s.running {
		s.eachScript(func(e ecs.Entity, name string) error {
			return s.runtime.OnUpdate(e, name, dt)
		})
		if s.physics != nil && s.physics.Step(dt) {
			s.syncBodies()
		}
	}
	s.UpdateChildren()
}

func (s *scene) OnFixedUpdate() {
	if !s.running {
		return
	}
	s.eachScript(func(e ecs.Entity, name string) error {
		return s.runtime.OnFixedUpdate(e, name)
	})
}

func (s *scene) OnStop() {
	if !s.running {
		return
	}
	if s.physics != nil {
		s.bodies.Each(func(e ecs.Entity, _ *RigidBodyComponent) {
			s.physics.DestroyBody(uint64(e))
		})
	}
	s.running = false
	s.log.Info("scene stopped", zap.String("scene", s.name))
}

// syncBodies copies each dynamic body's pose into its entity's world transform.
func (s *scene) syncBodies() {
	s.bodies.Each(func(e ecs.Entity, rb *RigidBodyComponent) {
		if rb.Static {
			return
		}
		pos, rot, ok := s.physics.Transform(uint64(e))
		if !ok {
			return
		}
		if v, ok := s.physics.Velocity(uint64(e)); ok {
			rb.Velocity = v
		}
		t := s.transforms.Get(e)
		if t == nil {
			return
		}
		t.Position, t.Rotation = pos, rot
		s.OnTransformUpdated(e)
	})
}

// eachScript calls fn for every scripted entity. Script errors are logged and do not
// stop the tick.
func (s *scene) eachScript(fn func(e ecs.Entity, name string) error) {
	if s.runtime == nil {
		return
	}
	for _, e := range s.scripts.Entities() {
		sc := s.scripts.Get(e)
		if sc == nil {
			continue
		}
		if err := fn(e, sc.Script); err != nil {
			s.log.Warn("script failed", zap.Stringer("entity", e), zap.String("script", sc.Script), zap.Error(err))
		}
	}
}
