package scene

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/Carmen-Shannon/oxyframe/engine/ecs"
)

type transformField uint8

const (
	fieldPosition transformField = 1 << iota
	fieldRotation
	fieldScale

	fieldAll = fieldPosition | fieldRotation | fieldScale
)

func (s *scene) linkChild(child ecs.Entity, p *ParentComponent) {
	s.children[p.Parent] = append(s.children[p.Parent], child)
}

func (s *scene) unlinkChild(child ecs.Entity, p *ParentComponent) {
	list := s.children[p.Parent]
	if i := slices.Index(list, child); i >= 0 {
		list = slices.Delete(list, i, i+1)
	}
	if len(list) == 0 {
		delete(s.children, p.Parent)
		return
	}
	s.children[p.Parent] = list
}

func (s *scene) SetParent(child, parent ecs.Entity) error {
	if !s.registry.Valid(child) || !s.registry.Valid(parent) {
		return fmt.Errorf("set parent of %s to %s: %w", child, parent, ErrInvalidEntity)
	}
	for cur, steps := parent, 0; steps <= s.registry.Len(); steps++ {
		if cur == child {
			return fmt.Errorf("set parent of %s to %s: %w", child, parent, ErrHierarchyCycle)
		}
		p := s.parents.Get(cur)
		if p == nil {
			break
		}
		cur = p.Parent
	}
	if p := s.parents.Get(child); p != nil && p.Parent == parent {
		return nil
	}
	s.parents.Add(child, ParentComponent{Parent: parent})
	return nil
}

func (s *scene) ClearParent(child ecs.Entity) bool { return s.parents.Remove(child) }

func (s *scene) Children(parent ecs.Entity) []ecs.Entity {
	return slices.Clone(s.children[parent])
}

func (s *scene) UpdateChildren() {
	clear(s.depths)
	s.pending = s.pending[:0]
	s.transforms.Each(func(e ecs.Entity, t *TransformComponent) {
		if s.parents.Has(e) {
			s.pending = append(s.pending, e)
			return
		}
		t.SetLocal(t.World())
	})
	for _, e := range s.pending {
		s.depth(e)
	}
	slices.SortStableFunc(s.pending, func(a, b ecs.Entity) int {
		return cmp.Compare(s.depths[a], s.depths[b])
	})

	for _, e := range s.pending {
		parentWorld, ok := s.parentWorld(e)
		if !ok {
			continue
		}
		t := s.transforms.Get(e)
		t.SetWorld(parentWorld.Compose(t.Local()))
	}
}

// depth returns the length of e's parent chain.
func (s *scene) depth(e ecs.Entity) int {
	if d, ok := s.depths[e]; ok {
		return d
	}
	p := s.parents.Get(e)
	if p == nil {
		return 0
	}
	d := s.depth(p.Parent) + 1
	s.depths[e] = d
	return d
}

// parentWorld returns the world transform of e's parent when both the link and the
// parent's transform exist.
func (s *scene) parentWorld(e ecs.Entity) (common.Transform, bool) {
	p := s.parents.Get(e)
	if p == nil {
		return common.Transform{}, false
	}
	pt := s.transforms.Get(p.Parent)
	if pt == nil {
		return common.Transform{}, false
	}
	return pt.World(), true
}

func (s *scene) OnTransformUpdated(e ecs.Entity) { s.resyncLocal(e, fieldAll) }
func (s *scene) OnPositionUpdated(e ecs.Entity)  { s.resyncLocal(e, fieldPosition) }
func (s *scene) OnRotationUpdated(e ecs.Entity)  { s.resyncLocal(e, fieldRotation) }
func (s *scene) OnScaleUpdated(e ecs.Entity)     { s.resyncLocal(e, fieldScale) }

func (s *scene) resyncLocal(e ecs.Entity, fields transformField) {
	t := s.transforms.Get(e)
	if t == nil {
		return
	}
	local := t.World()
	if parentWorld, ok := s.parentWorld(e); ok {
		local = parentWorld.Relative(local)
	}
	if fields&fieldPosition != 0 {
		t.LocalPosition = local.Position
	}
	if fields&fieldRotation != 0 {
		t.LocalRotation = local.Rotation
	}
	if fields&fieldScale != 0 {
		t.LocalScale = local.Scale
	}
}
