// Package scene holds entities and their components, keeps the parent/child transform
// hierarchy consistent and drives the physics and scripting collaborators each tick.
package scene

import (
	"slices"

	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/Carmen-Shannon/oxyframe/engine/ecs"
	"github.com/Carmen-Shannon/oxyframe/engine/physics"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxyframe/engine/scripting"
	"go.uber.org/zap"
)

// Scene is a set of entities with components. A scene is driven from a single goroutine.
// Component pointers returned by accessors are valid until the next structural change
// to the same component type.
type Scene interface {
	scripting.Host

	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// CreateEntity creates an entity with a tag and an identity transform.
	//
	// Parameters:
	//   - name: the tag name
	//
	// Returns:
	//   - ecs.Entity: the new entity
	CreateEntity(name string) ecs.Entity

	// DestroyEntity removes e and all of its components. Children of e are detached and
	// keep their world transform.
	//
	// Returns:
	//   - bool: false if e was not alive
	DestroyEntity(e ecs.Entity) bool

	// Valid reports whether e is alive in this scene.
	Valid(e ecs.Entity) bool

	// Entities returns the live entities in creation order.
	Entities() []ecs.Entity

	// Len returns the number of live entities.
	Len() int

	// FindByName returns the first entity tagged name, or ecs.Null.
	FindByName(name string) ecs.Entity

	Tag(e ecs.Entity) *TagComponent
	Transform(e ecs.Entity) *TransformComponent
	Parent(e ecs.Entity) *ParentComponent
	MeshRenderer(e ecs.Entity) *MeshRendererComponent
	RigidBody(e ecs.Entity) *RigidBodyComponent
	Script(e ecs.Entity) *ScriptComponent

	// AddTransform sets e's transform as given, replacing any existing one.
	// The caller keeps world and local consistent.
	AddTransform(e ecs.Entity, t TransformComponent) *TransformComponent

	// RemoveTransform detaches e's transform. Children of e keep their last world transform.
	RemoveTransform(e ecs.Entity) bool

	// AddMeshRenderer attaches a mesh renderer. A zero tint becomes opaque white.
	// The component holds a reference to its mesh and material until it is removed.
	AddMeshRenderer(e ecs.Entity, mr MeshRendererComponent) *MeshRendererComponent

	// RemoveMeshRenderer detaches e's mesh renderer.
	RemoveMeshRenderer(e ecs.Entity) bool

	// AddRigidBody attaches a rigid body. While the scene is running the physics body is
	// created immediately from e's world transform.
	//
	// Returns:
	//   - *RigidBodyComponent: the stored component, nil for an invalid entity
	//   - error: ErrInvalidEntity or a physics creation error
	AddRigidBody(e ecs.Entity, rb RigidBodyComponent) (*RigidBodyComponent, error)

	// AddScript attaches the named script to e.
	AddScript(e ecs.Entity, name string) *ScriptComponent

	// SetParent makes parent the parent of child. Local fields are not recomputed;
	// follow up with OnTransformUpdated.
	//
	// Parameters:
	//   - child: the entity to reparent
	//   - parent: the new parent
	//
	// Returns:
	//   - error: ErrInvalidEntity for dead handles, ErrHierarchyCycle for self or ancestor loops
	SetParent(child, parent ecs.Entity) error

	// ClearParent removes child's parent link. Local fields are not recomputed.
	ClearParent(child ecs.Entity) bool

	// Children returns a copy of parent's direct children in link order.
	Children(parent ecs.Entity) []ecs.Entity

	// UpdateChildren recomputes world transforms of parented entities from their local
	// transforms, parents before children, and sets local to world for unparented ones.
	UpdateChildren()

	// OnTransformUpdated recomputes e's local fields from its world fields and its parent.
	OnTransformUpdated(e ecs.Entity)

	// OnPositionUpdated recomputes only e's local position.
	OnPositionUpdated(e ecs.Entity)

	// OnRotationUpdated recomputes only e's local rotation.
	OnRotationUpdated(e ecs.Entity)

	// OnScaleUpdated recomputes only e's local scale.
	OnScaleUpdated(e ecs.Entity)

	// Physics returns the physics world, or nil.
	Physics() physics.World

	// Scripting returns the script runtime, or nil.
	Scripting() *scripting.Runtime

	// SetScripting attaches a runtime. The runtime should be built with this scene as its host.
	SetScripting(rt *scripting.Runtime)

	// OnStart creates physics bodies and runs every script's on_start.
	//
	// Returns:
	//   - error: the joined body creation errors
	OnStart() error

	// OnUpdate runs scripts, steps physics, syncs body poses and updates the hierarchy.
	OnUpdate(dt float32)

	// OnFixedUpdate runs every script's on_fixed_update.
	OnFixedUpdate()

	// OnStop destroys physics bodies. The scene can be started again.
	OnStop()

	// Running reports whether OnStart ran without a matching OnStop.
	Running() bool

	// Renderables appends one draw request per entity with a transform and a mesh renderer.
	Renderables(dst []batch.Renderable) []batch.Renderable

	// Release stops the scene and destroys every entity, dropping asset references.
	Release()
}

type scene struct {
	name string

	registry   *ecs.Registry
	entities   []ecs.Entity
	tags       *ecs.Store[TagComponent]
	transforms *ecs.Store[TransformComponent]
	parents    *ecs.Store[ParentComponent]
	meshes     *ecs.Store[MeshRendererComponent]
	bodies     *ecs.Store[RigidBodyComponent]
	scripts    *ecs.Store[ScriptComponent]

	children map[ecs.Entity][]ecs.Entity

	physics physics.World
	runtime *scripting.Runtime
	running bool
	log     *zap.Logger

	// scratch reused by UpdateChildren
	pending []ecs.Entity
	depths  map[ecs.Entity]int
}

var _ Scene = &scene{}

// NewScene creates an empty scene.
//
// Parameters:
//   - name: the scene's identifier
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the new scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		name:     name,
		registry: ecs.NewRegistry(),
		children: make(map[ecs.Entity][]ecs.Entity),
		depths:   make(map[ecs.Entity]int),
		log:      zap.NewNop(),
	}
	for _, option := range options {
		option(s)
	}

	s.tags = ecs.Attach[TagComponent](s.registry)
	s.transforms = ecs.Attach[TransformComponent](s.registry)
	s.parents = ecs.Attach[ParentComponent](s.registry, ecs.ObserverFuncs[ParentComponent]{
		Construct: s.linkChild,
		Destroy:   s.unlinkChild,
	})
	s.meshes = ecs.Attach[MeshRendererComponent](s.registry, ecs.ObserverFuncs[MeshRendererComponent]{
		Construct: func(_ ecs.Entity, mr *MeshRendererComponent) {
			if mr.Mesh != nil {
				mr.Mesh.Acquire()
			}
			if mr.Material != nil {
				mr.Material.Acquire()
			}
		},
		Destroy: func(_ ecs.Entity, mr *MeshRendererComponent) {
			if mr.Material != nil {
				mr.Material.Release()
			}
			if mr.Mesh != nil {
				mr.Mesh.Release()
			}
		},
	})
	s.bodies = ecs.Attach[RigidBodyComponent](s.registry, ecs.ObserverFuncs[RigidBodyComponent]{
		Destroy: func(e ecs.Entity, _ *RigidBodyComponent) {
			if s.running && s.physics != nil {
				s.physics.DestroyBody(uint64(e))
			}
		},
	})
	s.scripts = ecs.Attach[ScriptComponent](s.registry, ecs.ObserverFuncs[ScriptComponent]{
		Destroy: func(e ecs.Entity, _ *ScriptComponent) {
			if s.runtime != nil {
				s.runtime.Forget(e)
			}
		},
	})
	return s
}

func (s *scene) Name() string        { return s.name }
func (s *scene) SetName(name string) { s.name = name }

func (s *scene) CreateEntity(name string) ecs.Entity {
	e := s.registry.Create()
	s.entities = append(s.entities, e)
	s.tags.Add(e, TagComponent{Name: name})
	s.transforms.Add(e, IdentityTransformComponent())
	return e
}

func (s *scene) DestroyEntity(e ecs.Entity) bool {
	if !s.registry.Valid(e) {
		return false
	}
	for _, child := range slices.Clone(s.children[e]) {
		s.parents.Remove(child)
		if t := s.transforms.Get(child); t != nil {
			t.SetLocal(t.World())
		}
	}
	s.registry.Destroy(e)
	if i := slices.Index(s.entities, e); i >= 0 {
		s.entities = slices.Delete(s.entities, i, i+1)
	}
	s.log.Debug("entity destroyed", zap.Stringer("entity", e))
	return true
}

func (s *scene) Valid(e ecs.Entity) bool { return s.registry.Valid(e) }
func (s *scene) Entities() []ecs.Entity  { return slices.Clone(s.entities) }
func (s *scene) Len() int                { return s.registry.Len() }

func (s *scene) FindByName(name string) ecs.Entity {
	for _, e := range s.entities {
		if t := s.tags.Get(e); t != nil && t.Name == name {
			return e
		}
	}
	return ecs.Null
}

func (s *scene) Tag(e ecs.Entity) *TagComponent                   { return s.tags.Get(e) }
func (s *scene) Transform(e ecs.Entity) *TransformComponent       { return s.transforms.Get(e) }
func (s *scene) Parent(e ecs.Entity) *ParentComponent             { return s.parents.Get(e) }
func (s *scene) MeshRenderer(e ecs.Entity) *MeshRendererComponent { return s.meshes.Get(e) }
func (s *scene) RigidBody(e ecs.Entity) *RigidBodyComponent       { return s.bodies.Get(e) }
func (s *scene) Script(e ecs.Entity) *ScriptComponent             { return s.scripts.Get(e) }

func (s *scene) AddTransform(e ecs.Entity, t TransformComponent) *TransformComponent {
	if !s.registry.Valid(e) {
		return nil
	}
	return s.transforms.Add(e, t)
}

func (s *scene) RemoveTransform(e ecs.Entity) bool { return s.transforms.Remove(e) }

func (s *scene) AddMeshRenderer(e ecs.Entity, mr MeshRendererComponent) *MeshRendererComponent {
	if !s.registry.Valid(e) {
		return nil
	}
	if mr.Tint == ([4]float32{}) {
		mr.Tint = [4]float32{1, 1, 1, 1}
	}
	return s.meshes.Add(e, mr)
}

func (s *scene) RemoveMeshRenderer(e ecs.Entity) bool { return s.meshes.Remove(e) }

func (s *scene) AddScript(e ecs.Entity, name string) *ScriptComponent {
	if !s.registry.Valid(e) {
		return nil
	}
	return s.scripts.Add(e, ScriptComponent{Script: name})
}

func (s *scene) Renderables(dst []batch.Renderable) []batch.Renderable {
	s.meshes.Each(func(e ecs.Entity, mr *MeshRendererComponent) {
		t := s.transforms.Get(e)
		if t == nil {
			return
		}
		dst = append(dst, batch.Renderable{
			Entity:   e,
			World:    t.Matrix(),
			Mesh:     mr.Mesh,
			Material: mr.Material,
			Tint:     mr.Tint,
		})
	})
	return dst
}

func (s *scene) Release() {
	s.OnStop()
	for _, e := range slices.Clone(s.entities) {
		s.DestroyEntity(e)
	}
}

// Position, SetPosition, Scale, SetScale and Rotate make the scene the host of its
// script runtime. Writes resync local fields and the physics body.

func (s *scene) Position(e ecs.Entity) (common.Vec3, bool) {
	if t := s.transforms.Get(e); t != nil {
		return t.Position, true
	}
	return common.Vec3{}, false
}

func (s *scene) SetPosition(e ecs.Entity, pos common.Vec3) {
	t := s.transforms.Get(e)
	if t == nil {
		return
	}
	t.Position = pos
	s.OnPositionUpdated(e)
	s.pushBody(e, t)
}

func (s *scene) Scale(e ecs.Entity) (common.Vec3, bool) {
	if t := s.transforms.Get(e); t != nil {
		return t.Scale, true
	}
	return common.Vec3{}, false
}

func (s *scene) SetScale(e ecs.Entity, scale common.Vec3) {
	t := s.transforms.Get(e)
	if t == nil {
		return
	}
	t.Scale = scale
	s.OnScaleUpdated(e)
}

func (s *scene) Rotate(e ecs.Entity, axis common.Vec3, angle float32) {
	t := s.transforms.Get(e)
	if t == nil || axis.Length() == 0 {
		return
	}
	t.Rotation = common.QuatFromAxisAngle(axis.Normalize(), angle).Mul(t.Rotation).Normalize()
	s.OnRotationUpdated(e)
	s.pushBody(e, t)
}
