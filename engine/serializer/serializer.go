// Package serializer saves scenes to YAML and loads them back.
package serializer

import (
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/Carmen-Shannon/oxyframe/engine/asset"
	"github.com/Carmen-Shannon/oxyframe/engine/ecs"
	"github.com/Carmen-Shannon/oxyframe/engine/physics"
	"github.com/Carmen-Shannon/oxyframe/engine/scene"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// AssetResolver looks assets up by name. *asset.Manager satisfies it.
type AssetResolver interface {
	Mesh(name string) *asset.Mesh
	Material(name string) *asset.Material
}

// Encode builds the document for s. Entities get IDs 1..n in creation order.
//
// Parameters:
//   - s: the scene to externalize
//
// Returns:
//   - Document: the scene document
func Encode(s scene.Scene) Document {
	entities := s.Entities()
	ids := make(map[ecs.Entity]uint64, len(entities))
	for i, e := range entities {
		ids[e] = uint64(i + 1)
	}

	doc := Document{Scene: s.Name(), Entities: make([]EntityDoc, 0, len(entities))}
	for _, e := range entities {
		ed := EntityDoc{ID: ids[e]}
		if tag := s.Tag(e); tag != nil {
			ed.Tag = tag.Name
		}
		if t := s.Transform(e); t != nil {
			ed.Transform = &TransformDoc{
				Position:      t.Position,
				Rotation:      t.Rotation,
				Scale:         t.Scale,
				LocalPosition: t.LocalPosition,
				LocalRotation: t.LocalRotation,
				LocalScale:    t.LocalScale,
			}
		}
		if p := s.Parent(e); p != nil {
			ed.Parent = ids[p.Parent]
		}
		if mr := s.MeshRenderer(e); mr != nil && mr.Mesh != nil {
			ed.MeshRenderer = &MeshRendererDoc{Mesh: mr.Mesh.Name(), Tint: mr.Tint}
			if mr.Material != nil {
				ed.MeshRenderer.Material = mr.Material.Name()
			}
		}
		if rb := s.RigidBody(e); rb != nil {
			ed.RigidBody = &RigidBodyDoc{
				Shape:       rb.Shape.String(),
				HalfExtents: rb.HalfExtents,
				Radius:      rb.Radius,
				Mass:        rb.Mass,
				Static:      rb.Static,
				Restitution: rb.Restitution,
				Velocity:    rb.Velocity,
			}
		}
		if sc := s.Script(e); sc != nil {
			ed.Script = sc.Script
		}
		doc.Entities = append(doc.Entities, ed)
	}
	return doc
}

// Save writes s to w as YAML.
func Save(s scene.Scene, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Encode(s)); err != nil {
		return fmt.Errorf("save scene %q: %w", s.Name(), err)
	}
	return enc.Close()
}

// Load decodes a YAML document from r and adds its entities to s.
//
// Parameters:
//   - r: the YAML source
//   - s: the scene that receives the entities
//   - resolver: looks up mesh and material names
//   - options: functional options
//
// Returns:
//   - map[uint64]ecs.Entity: document ID to created entity
//   - error: a decode error or ErrInvalidDocument
func Load(r io.Reader, s scene.Scene, resolver AssetResolver, options ...Option) (map[uint64]ecs.Entity, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	return Apply(doc, s, resolver, options...)
}

// Apply adds the entities of doc to s. Parents are linked after every entity exists, and
// world and local transforms are restored verbatim. A mesh renderer naming an unknown
// asset is logged and skipped. On error s is left as it was.
func Apply(doc Document, s scene.Scene, resolver AssetResolver, options ...Option) (map[uint64]ecs.Entity, error) {
	cfg := loadConfig{log: zap.NewNop()}
	for _, option := range options {
		option(&cfg)
	}

	seen := make(map[uint64]bool, len(doc.Entities))
	for _, ed := range doc.Entities {
		if ed.ID == 0 || seen[ed.ID] {
			return nil, fmt.Errorf("entity id %d: %w", ed.ID, ErrInvalidDocument)
		}
		seen[ed.ID] = true
	}
	for _, ed := range doc.Entities {
		if ed.Parent != 0 && !seen[ed.Parent] {
			return nil, fmt.Errorf("entity %d: unknown parent %d: %w", ed.ID, ed.Parent, ErrInvalidDocument)
		}
	}
	if err := checkAcyclic(doc.Entities); err != nil {
		return nil, err
	}

	name := s.Name()
	if doc.Scene != "" {
		s.SetName(doc.Scene)
	}
	ids := make(map[uint64]ecs.Entity, len(doc.Entities))
	rollback := func(err error) (map[uint64]ecs.Entity, error) {
		for _, e := range ids {
			s.DestroyEntity(e)
		}
		s.SetName(name)
		return nil, err
	}
	for _, ed := range doc.Entities {
		e := s.CreateEntity(ed.Tag)
		ids[ed.ID] = e

		if ed.Transform != nil {
			s.AddTransform(e, scene.TransformComponent{
				Position:      ed.Transform.Position,
				Rotation:      orIdentity(ed.Transform.Rotation),
				Scale:         ed.Transform.Scale,
				LocalPosition: ed.Transform.LocalPosition,
				LocalRotation: orIdentity(ed.Transform.LocalRotation),
				LocalScale:    ed.Transform.LocalScale,
			})
		} else {
			s.RemoveTransform(e)
		}

		if mr := ed.MeshRenderer; mr != nil {
			mesh := resolver.Mesh(mr.Mesh)
			var mat *asset.Material
			if mr.Material != "" {
				mat = resolver.Material(mr.Material)
			}
			switch {
			case mesh == nil:
				cfg.log.Warn("unknown mesh, mesh renderer skipped", zap.Uint64("id", ed.ID), zap.String("mesh", mr.Mesh))
			case mr.Material != "" && mat == nil:
				cfg.log.Warn("unknown material, mesh renderer skipped", zap.Uint64("id", ed.ID), zap.String("material", mr.Material))
			default:
				s.AddMeshRenderer(e, scene.MeshRendererComponent{Mesh: mesh, Material: mat, Tint: mr.Tint})
			}
		}

		if rb := ed.RigidBody; rb != nil {
			if _, err := s.AddRigidBody(e, scene.RigidBodyComponent{
				Shape:       physics.ParseShape(rb.Shape),
				HalfExtents: rb.HalfExtents,
				Radius:      rb.Radius,
				Mass:        rb.Mass,
				Static:      rb.Static,
				Restitution: rb.Restitution,
				Velocity:    rb.Velocity,
			}); err != nil {
				return rollback(fmt.Errorf("entity %d: %w", ed.ID, err))
			}
		}

		if ed.Script != "" {
			s.AddScript(e, ed.Script)
		}
	}

	for _, ed := range doc.Entities {
		if ed.Parent == 0 {
			continue
		}
		if err := s.SetParent(ids[ed.ID], ids[ed.Parent]); err != nil {
			return rollback(fmt.Errorf("entity %d: %w", ed.ID, err))
		}
	}
	cfg.log.Debug("scene loaded", zap.String("scene", s.Name()), zap.Int("entities", len(ids)))
	return ids, nil
}

// checkAcyclic rejects parent links that loop back to an entity. Every parent is known
// to exist in entities.
func checkAcyclic(entities []EntityDoc) error {
	parents := make(map[uint64]uint64, len(entities))
	for _, ed := range entities {
		parents[ed.ID] = ed.Parent
	}
	for _, ed := range entities {
		steps := 0
		for p := ed.Parent; p != 0; p = parents[p] {
			if p == ed.ID || steps == len(entities) {
				return fmt.Errorf("entity %d: %w: %w", ed.ID, ErrInvalidDocument, scene.ErrHierarchyCycle)
			}
			steps++
		}
	}
	return nil
}

func orIdentity(q common.Quat) common.Quat {
	if q == (common.Quat{}) {
		return common.QuatIdentity()
	}
	return q
}
