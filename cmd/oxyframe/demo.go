package main

import (
	"fmt"

	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/Carmen-Shannon/oxyframe/engine/asset"
	"github.com/Carmen-Shannon/oxyframe/engine/physics"
	"github.com/Carmen-Shannon/oxyframe/engine/scene"
	"github.com/chewxy/math32"
)

// createDemoAssets creates the meshes, texture and materials the demo scene and saved
// demo scenes refer to by name.
func createDemoAssets(assets *asset.Manager) error {
	meshes := []struct {
		name string
		gen  func() ([]asset.Vertex, []uint32)
	}{
		{"cube", func() ([]asset.Vertex, []uint32) { return asset.Cube(1) }},
		{"plane", func() ([]asset.Vertex, []uint32) { return asset.Plane(40) }},
		{"octahedron", func() ([]asset.Vertex, []uint32) { return asset.Octahedron(0.75) }},
	}
	for _, m := range meshes {
		v, i := m.gen()
		if _, err := assets.CreateMesh(m.name, v, i); err != nil {
			return err
		}
	}

	checker, err := assets.CreateTexture("checker", 8, 8, checkerPixels(8, 2))
	if err != nil {
		return err
	}
	materials := []struct {
		name string
		desc asset.MaterialDescriptor
	}{
		{"ground", asset.MaterialDescriptor{Diffuse: checker, BaseColor: [4]float32{0.55, 0.6, 0.55, 1}}},
		{"crate", asset.MaterialDescriptor{Shininess: 8, BaseColor: [4]float32{0.85, 0.55, 0.25, 1}}},
		{"gem", asset.MaterialDescriptor{Shininess: 64}},
	}
	for _, m := range materials {
		if _, err := assets.CreateMaterial(m.name, m.desc); err != nil {
			return err
		}
	}
	return nil
}

// checkerPixels returns size x size RGBA pixels in cell-wide light and dark squares.
func checkerPixels(size, cell int) []byte {
	pixels := make([]byte, 0, size*size*4)
	for y := range size {
		for x := range size {
			v := byte(200)
			if (x/cell+y/cell)%2 == 1 {
				v = 90
			}
			pixels = append(pixels, v, v, v, 255)
		}
	}
	return pixels
}

// populateDemo fills s with a ground plane, a spinning pivot carrying four gems, a grid
// of falling crates, a bouncing ball and a bobbing beacon.
func populateDemo(s scene.Scene, assets *asset.Manager, groundHeight float32) error {
	one := common.Vec3{1, 1, 1}

	ground := s.CreateEntity("ground")
	s.Transform(ground).SetWorld(common.Transform{
		Position: common.Vec3{0, groundHeight, 0},
		Rotation: common.QuatIdentity(),
		Scale:    one,
	})
	s.AddMeshRenderer(ground, scene.MeshRendererComponent{Mesh: assets.Mesh("plane"), Material: assets.Material("ground")})

	pivot := s.CreateEntity("pivot")
	s.Transform(pivot).SetWorld(common.Transform{Position: common.Vec3{0, 3, 0}, Rotation: common.QuatIdentity(), Scale: one})
	s.AddScript(pivot, "spin")
	tints := [][4]float32{{0.9, 0.2, 0.2, 1}, {0.2, 0.9, 0.3, 1}, {0.2, 0.4, 0.95, 1}, {0.95, 0.85, 0.2, 1}}
	for i, tint := range tints {
		angle := float32(i) * math32.Pi / 2
		gem := s.CreateEntity(fmt.Sprintf("gem.%d", i))
		s.Transform(gem).SetWorld(common.Transform{
			Position: common.Vec3{4 * math32.Cos(angle), 3, 4 * math32.Sin(angle)},
			Rotation: common.QuatIdentity(),
			Scale:    one,
		})
		s.AddMeshRenderer(gem, scene.MeshRendererComponent{Mesh: assets.Mesh("octahedron"), Material: assets.Material("gem"), Tint: tint})
		if err := s.SetParent(gem, pivot); err != nil {
			return err
		}
		s.OnTransformUpdated(gem)
	}

	for i := range 16 {
		x, z := float32(i%4)*1.5-2.25, float32(i/4)*1.5-2.25
		crate := s.CreateEntity(fmt.Sprintf("crate.%d", i))
		s.Transform(crate).SetWorld(common.Transform{
			Position: common.Vec3{x, groundHeight + 6 + float32(i)*0.4, z},
			Rotation: common.QuatIdentity(),
			Scale:    one,
		})
		s.AddMeshRenderer(crate, scene.MeshRendererComponent{Mesh: assets.Mesh("cube"), Material: assets.Material("crate")})
		if _, err := s.AddRigidBody(crate, scene.RigidBodyComponent{
			Shape:       physics.ShapeBox,
			HalfExtents: common.Vec3{0.5, 0.5, 0.5},
			Mass:        1,
			Restitution: 0.2,
		}); err != nil {
			return err
		}
	}

	ball := s.CreateEntity("ball")
	s.Transform(ball).SetWorld(common.Transform{Position: common.Vec3{0, groundHeight + 12, 6}, Rotation: common.QuatIdentity(), Scale: one})
	s.AddMeshRenderer(ball, scene.MeshRendererComponent{Mesh: assets.Mesh("octahedron"), Material: assets.Material("gem"), Tint: [4]float32{0.8, 0.3, 0.9, 1}})
	if _, err := s.AddRigidBody(ball, scene.RigidBodyComponent{
		Shape:       physics.ShapeSphere,
		Radius:      0.75,
		Mass:        2,
		Restitution: 0.7,
		Velocity:    common.Vec3{0, 0, -1},
	}); err != nil {
		return err
	}

	beacon := s.CreateEntity("beacon")
	s.Transform(beacon).SetWorld(common.Transform{Position: common.Vec3{-6, groundHeight + 2, -6}, Rotation: common.QuatIdentity(), Scale: common.Vec3{0.5, 2, 0.5}})
	s.AddMeshRenderer(beacon, scene.MeshRendererComponent{Mesh: assets.Mesh("cube"), Material: assets.Material("crate"), Tint: [4]float32{0.3, 0.8, 1, 1}})
	s.AddScript(beacon, "bob")

	s.UpdateChildren()
	return nil
}
