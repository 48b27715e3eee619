package asset

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/texture"
	"go.uber.org/zap"
)

// Manager creates assets on a device and keeps them addressable by name.
// The manager holds one reference to every asset it creates; Unload and
// ReleaseAll drop it.
type Manager struct {
	mu *sync.Mutex

	device   gpu.Device
	deleter  Enqueuer
	registry *texture.Registry
	log      *zap.Logger

	materialDropped []func(materialID uint64)

	meshes    map[string]*Mesh
	textures  map[string]*Texture
	materials map[string]*Material
}

// NewManager creates an asset manager.
//
// Parameters:
//   - device: the device that owns every created object
//   - deleter: receives destruction actions when an asset's last reference drops
//   - registry: assigns texture slots
//   - options: functional options to configure the manager
//
// Returns:
//   - *Manager: the new manager
func NewManager(device gpu.Device, deleter Enqueuer, registry *texture.Registry, options ...ManagerOption) *Manager {
	m := &Manager{
		mu:        &sync.Mutex{},
		device:    device,
		deleter:   deleter,
		registry:  registry,
		log:       zap.NewNop(),
		meshes:    make(map[string]*Mesh),
		textures:  make(map[string]*Texture),
		materials: make(map[string]*Material),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// CreateMesh uploads vertices and indices into new device buffers.
//
// Parameters:
//   - name: unique mesh name
//   - vertices: vertex data
//   - indices: triangle list indices into vertices
//
// Returns:
//   - *Mesh: the mesh, holding the manager's reference
//   - error: an error if the data is invalid or a buffer could not be created
func (m *Manager) CreateMesh(name string, vertices []Vertex, indices []uint32) (*Mesh, error) {
	if len(vertices) == 0 || len(indices) == 0 || len(indices)%3 != 0 {
		return nil, fmt.Errorf("create mesh %q: %d vertices, %d indices: %w", name, len(vertices), len(indices), ErrInvalidMesh)
	}
	for _, idx := range indices {
		if int(idx) >= len(vertices) {
			return nil, fmt.Errorf("create mesh %q: index %d out of range: %w", name, idx, ErrInvalidMesh)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.meshes[name]; ok {
		return nil, fmt.Errorf("create mesh %q: %w", name, ErrDuplicateName)
	}

	vertexData := common.SliceToBytes(vertices)
	vb, err := m.device.CreateBuffer(gpu.BufferDescriptor{
		Label: name + " Vertex Buffer",
		Size:  uint64(len(vertexData)),
		Usage: gpu.BufferUsageVertex | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create mesh %q: %w", name, err)
	}
	indexData := common.SliceToBytes(indices)
	ib, err := m.device.CreateBuffer(gpu.BufferDescriptor{
		Label: name + " Index Buffer",
		Size:  uint64(len(indexData)),
		Usage: gpu.BufferUsageIndex | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		// never submitted, safe to destroy now
		m.device.DestroyBuffer(vb)
		return nil, fmt.Errorf("create mesh %q: %w", name, err)
	}
	if err := m.device.WriteBuffer(vb, 0, vertexData); err != nil {
		m.device.DestroyBuffer(vb)
		m.device.DestroyBuffer(ib)
		return nil, fmt.Errorf("upload mesh %q: %w", name, err)
	}
	if err := m.device.WriteBuffer(ib, 0, indexData); err != nil {
		m.device.DestroyBuffer(vb)
		m.device.DestroyBuffer(ib)
		return nil, fmt.Errorf("upload mesh %q: %w", name, err)
	}

	mesh := &Mesh{
		id:           newID(),
		name:         name,
		vertexBuffer: vb,
		indexBuffer:  ib,
		vertexCount:  uint32(len(vertices)),
		indexCount:   uint32(len(indices)),
	}
	device, deleter := m.device, m.deleter
	mesh.init("mesh", func() {
		deleter.Enqueue(func() {
			device.DestroyBuffer(vb)
			device.DestroyBuffer(ib)
		})
	})
	m.meshes[name] = mesh
	m.log.Debug("mesh created", zap.String("name", name), zap.Int("vertices", len(vertices)), zap.Int("indices", len(indices)))
	return mesh, nil
}

// CreateTexture uploads RGBA8 pixels into a new sampled image and registers it for a slot.
//
// Parameters:
//   - name: unique texture name
//   - width, height: image extent in pixels
//   - pixels: width*height*4 bytes of RGBA data
//
// Returns:
//   - *Texture: the texture, holding the manager's reference
//   - error: an error if the data is invalid, the image could not be created or no slot is free
func (m *Manager) CreateTexture(name string, width, height uint32, pixels []byte) (*Texture, error) {
	if width == 0 || height == 0 || uint64(len(pixels)) != uint64(width)*uint64(height)*4 {
		return nil, fmt.Errorf("create texture %q: %dx%d with %d bytes: %w", name, width, height, len(pixels), ErrInvalidImage)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.textures[name]; ok {
		return nil, fmt.Errorf("create texture %q: %w", name, ErrDuplicateName)
	}

	img, err := m.device.CreateImage(gpu.ImageDescriptor{
		Label:  name,
		Width:  width,
		Height: height,
		Format: gpu.ImageFormatRGBA8UnormSrgb,
		Usage:  gpu.ImageUsageSampled | gpu.ImageUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", name, err)
	}
	if err := m.device.WriteImage(img, pixels); err != nil {
		m.device.DestroyImage(img)
		return nil, fmt.Errorf("upload texture %q: %w", name, err)
	}
	slot, err := m.registry.Register(img)
	if err != nil {
		m.device.DestroyImage(img)
		return nil, fmt.Errorf("create texture %q: %w", name, err)
	}

	tex := &Texture{id: newID(), name: name, image: img, slot: slot}
	device, deleter, registry := m.device, m.deleter, m.registry
	tex.init("texture", func() {
		deleter.Enqueue(func() {
			registry.Deregister(slot)
			device.DestroyImage(img)
		})
	})
	m.textures[name] = tex
	return tex, nil
}

// CreateMaterial creates a material. The material acquires a reference to each
// texture in desc and drops them when it is itself dropped.
//
// Parameters:
//   - name: unique material name
//   - desc: textures, shading parameters and optional custom shaders
//
// Returns:
//   - *Material: the material, holding the manager's reference
//   - error: ErrDuplicateName if the name is taken
func (m *Manager) CreateMaterial(name string, desc MaterialDescriptor) (*Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.materials[name]; ok {
		return nil, fmt.Errorf("create material %q: %w", name, ErrDuplicateName)
	}
	for _, t := range []*Texture{desc.Diffuse, desc.Specular, desc.Normal} {
		if t != nil {
			t.Acquire()
		}
	}
	if desc.BaseColor == ([4]float32{}) {
		desc.BaseColor = [4]float32{1, 1, 1, 1}
	}
	mat := &Material{id: newID(), name: name, desc: desc}
	hooks := m.materialDropped
	mat.init("material", func() {
		mat.releaseTextures()
		for _, hook := range hooks {
			hook(mat.id)
		}
	})
	m.materials[name] = mat
	return mat, nil
}

// Mesh returns the mesh named name, or nil.
func (m *Manager) Mesh(name string) *Mesh {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meshes[name]
}

// Texture returns the texture named name, or nil.
func (m *Manager) Texture(name string) *Texture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.textures[name]
}

// Material returns the material named name, or nil.
func (m *Manager) Material(name string) *Material {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.materials[name]
}

// Unload forgets every asset named name and drops the manager's reference to it.
// Components that still hold the asset keep it alive.
func (m *Manager) Unload(name string) {
	m.mu.Lock()
	mesh, tex, mat := m.meshes[name], m.textures[name], m.materials[name]
	delete(m.meshes, name)
	delete(m.textures, name)
	delete(m.materials, name)
	m.mu.Unlock()

	if mat != nil {
		mat.Release()
	}
	if mesh != nil {
		mesh.Release()
	}
	if tex != nil {
		tex.Release()
	}
}

// ReleaseAll drops the manager's reference to every asset. Materials go first
// so their texture references are gone before the textures themselves.
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	materials, meshes, textures := m.materials, m.meshes, m.textures
	m.materials = make(map[string]*Material)
	m.meshes = make(map[string]*Mesh)
	m.textures = make(map[string]*Texture)
	m.mu.Unlock()

	for _, mat := range materials {
		mat.Release()
	}
	for _, mesh := range meshes {
		mesh.Release()
	}
	for _, tex := range textures {
		tex.Release()
	}
}
