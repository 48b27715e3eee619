package serializer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/Carmen-Shannon/oxyframe/engine/asset"
	"github.com/Carmen-Shannon/oxyframe/engine/ecs"
	"github.com/Carmen-Shannon/oxyframe/engine/physics"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxyframe/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type immediate struct{}

func (immediate) Enqueue(fn func()) { fn() }

func newAssets(t *testing.T) *asset.Manager {
	t.Helper()
	m := asset.NewManager(gpu.NewHeadlessDevice(), immediate{}, texture.NewRegistry())
	verts, idx := asset.Cube(1)
	_, err := m.CreateMesh("cube", verts, idx)
	require.NoError(t, err)
	_, err = m.CreateMaterial("red", asset.MaterialDescriptor{BaseColor: [4]float32{1, 0, 0, 1}})
	require.NoError(t, err)
	return m
}

func buildScene(t *testing.T, assets *asset.Manager) scene.Scene {
	t.Helper()
	s := scene.NewScene("demo")
	root := s.CreateEntity("root")
	s.AddTransform(root, scene.NewTransform(common.Vec3{5, 0, 0}, common.QuatFromAxisAngle(common.Vec3{0, 0, 1}, 0.3), common.Vec3{2, 2, 2}))
	child := s.CreateEntity("child")
	require.NoError(t, s.SetParent(child, root))
	s.Transform(child).LocalPosition = common.Vec3{1, 0, 0}
	s.UpdateChildren()
	s.AddMeshRenderer(child, scene.MeshRendererComponent{
		Mesh:     assets.Mesh("cube"),
		Material: assets.Material("red"),
		Tint:     [4]float32{0.5, 0.5, 0.5, 1},
	})
	_, err := s.AddRigidBody(root, scene.RigidBodyComponent{Shape: physics.ShapeSphere, Radius: 1, Mass: 3, Restitution: 0.4})
	require.NoError(t, err)
	s.AddScript(child, "spin")
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	assets := newAssets(t)
	src := buildScene(t, assets)

	var buf bytes.Buffer
	require.NoError(t, Save(src, &buf))
	assert.Contains(t, buf.String(), "scene: demo")
	assert.Contains(t, buf.String(), "mesh: cube")

	dst := scene.NewScene("")
	ids, err := Load(&buf, dst, assets)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "demo", dst.Name())

	root, child := ids[1], ids[2]
	assert.Equal(t, "root", dst.Tag(root).Name)
	assert.Equal(t, *src.Transform(src.FindByName("root")), *dst.Transform(root))
	assert.Equal(t, *src.Transform(src.FindByName("child")), *dst.Transform(child))
	assert.Equal(t, root, dst.Parent(child).Parent)
	assert.Len(t, dst.Children(root), 1)

	mr := dst.MeshRenderer(child)
	require.NotNil(t, mr)
	assert.Same(t, assets.Mesh("cube"), mr.Mesh)
	assert.Same(t, assets.Material("red"), mr.Material)
	assert.Equal(t, [4]float32{0.5, 0.5, 0.5, 1}, mr.Tint)

	rb := dst.RigidBody(root)
	require.NotNil(t, rb)
	assert.Equal(t, physics.ShapeSphere, rb.Shape)
	assert.Equal(t, float32(3), rb.Mass)
	assert.Equal(t, "spin", dst.Script(child).Script)

	// loading does not disturb the restored hierarchy
	before := dst.Transform(child).World()
	dst.UpdateChildren()
	assert.True(t, dst.Transform(child).World().ApproxEqual(before, 1e-4))

	src.Release()
	dst.Release()
	assets.ReleaseAll()
}

func TestLoadSkipsUnknownAssets(t *testing.T) {
	assets := newAssets(t)
	doc := `
scene: missing
entities:
  - id: 1
    tag: ghost
    mesh_renderer:
      mesh: teapot
      tint: [1, 1, 1, 1]
  - id: 2
    tag: box
    mesh_renderer:
      mesh: cube
      material: chrome
      tint: [1, 1, 1, 1]
  - id: 3
    tag: bare
`
	s := scene.NewScene("")
	ids, err := Load(strings.NewReader(doc), s, assets)
	require.NoError(t, err)
	assert.Nil(t, s.MeshRenderer(ids[1]))
	assert.Nil(t, s.MeshRenderer(ids[2]))
	assert.Nil(t, s.Transform(ids[3]), "no transform in the document means none in the scene")
	assert.Equal(t, 3, s.Len())
}

func TestLoadRejectsBadDocuments(t *testing.T) {
	assets := newAssets(t)
	cases := map[string]string{
		"zero id":        "entities:\n  - id: 0\n",
		"duplicate id":   "entities:\n  - id: 1\n  - id: 1\n",
		"unknown parent": "entities:\n  - id: 1\n    parent: 9\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			s := scene.NewScene("")
			_, err := Load(strings.NewReader(doc), s, assets)
			assert.ErrorIs(t, err, ErrInvalidDocument)
			assert.Zero(t, s.Len())
		})
	}

	_, err := Load(strings.NewReader("entities: [oops"), scene.NewScene(""), assets)
	assert.Error(t, err)
}

func TestLoadCyclicParentsLeavesSceneUntouched(t *testing.T) {
	assets := newAssets(t)
	docs := map[string]string{
		"two":  "scene: other\nentities:\n  - id: 1\n    parent: 2\n  - id: 2\n    parent: 1\n",
		"self": "scene: other\nentities:\n  - id: 1\n    parent: 1\n",
		"tail": "scene: other\nentities:\n  - id: 5\n    parent: 1\n  - id: 4\n  - id: 1\n    parent: 3\n  - id: 2\n    parent: 1\n  - id: 3\n    parent: 2\n",
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			s := scene.NewScene("keep")
			existing := s.CreateEntity("existing")

			ids, err := Load(strings.NewReader(doc), s, assets)
			assert.ErrorIs(t, err, ErrInvalidDocument)
			assert.ErrorIs(t, err, scene.ErrHierarchyCycle)
			assert.Nil(t, ids)
			assert.Equal(t, 1, s.Len())
			assert.True(t, s.Valid(existing))
			assert.Equal(t, "keep", s.Name())
		})
	}
}

func TestLoadDeepChainIsNotACycle(t *testing.T) {
	s := scene.NewScene("")
	ids, err := Load(strings.NewReader("entities:\n  - id: 3\n    parent: 2\n  - id: 2\n    parent: 1\n  - id: 1\n"), s, newAssets(t))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []ecs.Entity{ids[3]}, s.Children(ids[2]))
}

func TestEmptyDocument(t *testing.T) {
	s := scene.NewScene("keep")
	ids, err := Load(strings.NewReader(""), s, newAssets(t))
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, "keep", s.Name())
}
