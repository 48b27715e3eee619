package asset

// MaterialDescriptor describes a material to create.
type MaterialDescriptor struct {
	Diffuse   *Texture
	Specular  *Texture
	Normal    *Texture
	Shininess float32
	BaseColor [4]float32

	// VertexShader and FragmentShader hold WGSL sources. Setting either one
	// opts the material out of instanced batching.
	VertexShader   string
	FragmentShader string
}

// Material groups textures and shading parameters. Materials hold a reference
// to each of their textures until the material itself is dropped.
type Material struct {
	refCounted

	id   uint64
	name string
	desc MaterialDescriptor
}

func (m *Material) ID() uint64             { return m.id }
func (m *Material) Name() string           { return m.name }
func (m *Material) Shininess() float32     { return m.desc.Shininess }
func (m *Material) BaseColor() [4]float32  { return m.desc.BaseColor }
func (m *Material) VertexShader() string   { return m.desc.VertexShader }
func (m *Material) FragmentShader() string { return m.desc.FragmentShader }

// HasCustomShader reports whether the material brings its own shader sources.
func (m *Material) HasCustomShader() bool {
	return m.desc.VertexShader != "" || m.desc.FragmentShader != ""
}

// TextureSlots returns the registry slots of the diffuse, specular and normal
// textures. Missing textures are -1.
func (m *Material) TextureSlots() [3]int32 {
	slots := [3]int32{-1, -1, -1}
	for i, t := range []*Texture{m.desc.Diffuse, m.desc.Specular, m.desc.Normal} {
		if t != nil {
			slots[i] = int32(t.Slot())
		}
	}
	return slots
}

func (m *Material) Acquire() *Material {
	m.acquire()
	return m
}

// Release drops a reference. The last release drops the material's texture references.
func (m *Material) Release() { m.release() }

func (m *Material) releaseTextures() {
	for _, t := range []*Texture{m.desc.Diffuse, m.desc.Specular, m.desc.Normal} {
		if t != nil {
			t.Release()
		}
	}
}
