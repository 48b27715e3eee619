package asset

import (
	"testing"

	"github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualQueue collects enqueued actions so tests can decide when they run.
type manualQueue struct{ actions []func() }

func (q *manualQueue) Enqueue(action func()) { q.actions = append(q.actions, action) }

func (q *manualQueue) run() {
	pending := q.actions
	q.actions = nil
	for _, a := range pending {
		a()
	}
}

func newManager(t *testing.T) (*Manager, *gpu.HeadlessDevice, *manualQueue, *texture.Registry) {
	t.Helper()
	d := gpu.NewHeadlessDevice()
	q := &manualQueue{}
	r := texture.NewRegistry()
	return NewManager(d, q, r), d, q, r
}

func rgba(w, h int) []byte { return make([]byte, w*h*4) }

func TestCreateMeshUploadsData(t *testing.T) {
	m, d, _, _ := newManager(t)
	verts, idx := Cube(1)
	mesh, err := m.CreateMesh("cube", verts, idx)
	require.NoError(t, err)

	assert.Equal(t, uint32(36), mesh.IndexCount())
	assert.Equal(t, uint32(24), mesh.VertexCount())
	assert.Len(t, d.BufferData(mesh.VertexBuffer()), 24*VertexStride)
	assert.Same(t, mesh, m.Mesh("cube"))

	_, err = m.CreateMesh("cube", verts, idx)
	assert.ErrorIs(t, err, ErrDuplicateName)
	_, err = m.CreateMesh("bad", verts, []uint32{0, 1, 99})
	assert.ErrorIs(t, err, ErrInvalidMesh)
}

func TestMeshReleaseDefersDestruction(t *testing.T) {
	m, d, q, _ := newManager(t)
	verts, idx := Octahedron(1)
	mesh, err := m.CreateMesh("oct", verts, idx)
	require.NoError(t, err)
	vb := mesh.VertexBuffer()

	held := mesh.Acquire()
	m.Unload("oct")
	assert.Empty(t, q.actions, "a component still holds the mesh")
	assert.Nil(t, m.Mesh("oct"))

	held.Release()
	require.Len(t, q.actions, 1)
	assert.True(t, d.Live(vb.ID()), "destruction waits for the queue")

	q.run()
	assert.False(t, d.Live(vb.ID()))
	assert.Empty(t, d.Violations())
}

func TestReleaseTooManyTimesPanics(t *testing.T) {
	m, _, _, _ := newManager(t)
	verts, idx := Plane(1)
	mesh, err := m.CreateMesh("plane", verts, idx)
	require.NoError(t, err)
	mesh.Release()
	assert.Panics(t, func() { mesh.Release() })
}

func TestTextureSlotHeldUntilDestroyed(t *testing.T) {
	m, _, q, r := newManager(t)
	a, err := m.CreateTexture("a", 2, 2, rgba(2, 2))
	require.NoError(t, err)
	b, err := m.CreateTexture("b", 2, 2, rgba(2, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, a.Slot())
	assert.Equal(t, 1, b.Slot())

	m.Unload("a")
	c, err := m.CreateTexture("c", 2, 2, rgba(2, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Slot(), "slot 0 is still reserved until the deferred destroy runs")

	q.run()
	d, err := m.CreateTexture("d", 1, 1, rgba(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, d.Slot())
	assert.Equal(t, 3, r.Len())

	_, err = m.CreateTexture("e", 2, 2, rgba(1, 1))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestMaterialHoldsTextureReferences(t *testing.T) {
	m, _, q, _ := newManager(t)
	diffuse, err := m.CreateTexture("diffuse", 1, 1, rgba(1, 1))
	require.NoError(t, err)
	mat, err := m.CreateMaterial("brick", MaterialDescriptor{Diffuse: diffuse, Shininess: 32})
	require.NoError(t, err)

	assert.Equal(t, int32(2), diffuse.RefCount())
	assert.Equal(t, [3]int32{0, -1, -1}, mat.TextureSlots())
	assert.Equal(t, [4]float32{1, 1, 1, 1}, mat.BaseColor())
	assert.False(t, mat.HasCustomShader())

	m.ReleaseAll()
	assert.Equal(t, int32(0), diffuse.RefCount())
	assert.Len(t, q.actions, 1)
}

func TestMaterialCustomShader(t *testing.T) {
	m, _, _, _ := newManager(t)
	mat, err := m.CreateMaterial("glow", MaterialDescriptor{FragmentShader: "fn fs_main() {}"})
	require.NoError(t, err)
	assert.True(t, mat.HasCustomShader())
	assert.NotEqual(t, uint64(0), mat.ID())
}

func TestMaterialDropHookRunsOnLastRelease(t *testing.T) {
	var dropped []uint64
	m := NewManager(gpu.NewHeadlessDevice(), &manualQueue{}, texture.NewRegistry(),
		WithMaterialDropHook(func(id uint64) { dropped = append(dropped, id) }),
		WithMaterialDropHook(nil),
	)
	mat, err := m.CreateMaterial("glow", MaterialDescriptor{FragmentShader: "fn fs_main() {}"})
	require.NoError(t, err)

	held := mat.Acquire()
	m.Unload("glow")
	assert.Empty(t, dropped)

	held.Release()
	assert.Equal(t, []uint64{mat.ID()}, dropped)
}
