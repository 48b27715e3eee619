package serializer

// Document is the YAML form of a scene.
type Document struct {
	Scene    string      `yaml:"scene"`
	Entities []EntityDoc `yaml:"entities"`
}

// EntityDoc is one entity. ID is unique within the document and only used to resolve
// parent links; it has no meaning after loading.
type EntityDoc struct {
	ID           uint64           `yaml:"id"`
	Tag          string           `yaml:"tag,omitempty"`
	Transform    *TransformDoc    `yaml:"transform,omitempty"`
	Parent       uint64           `yaml:"parent,omitempty"`
	MeshRenderer *MeshRendererDoc `yaml:"mesh_renderer,omitempty"`
	RigidBody    *RigidBodyDoc    `yaml:"rigid_body,omitempty"`
	Script       string           `yaml:"script,omitempty"`
}

type TransformDoc struct {
	Position      [3]float32 `yaml:"position,flow"`
	Rotation      [4]float32 `yaml:"rotation,flow"`
	Scale         [3]float32 `yaml:"scale,flow"`
	LocalPosition [3]float32 `yaml:"local_position,flow"`
	LocalRotation [4]float32 `yaml:"local_rotation,flow"`
	LocalScale    [3]float32 `yaml:"local_scale,flow"`
}

// MeshRendererDoc refers to assets by name.
type MeshRendererDoc struct {
	Mesh     string     `yaml:"mesh"`
	Material string     `yaml:"material,omitempty"`
	Tint     [4]float32 `yaml:"tint,flow"`
}

type RigidBodyDoc struct {
	Shape       string     `yaml:"shape"`
	HalfExtents [3]float32 `yaml:"half_extents,flow"`
	Radius      float32    `yaml:"radius,omitempty"`
	Mass        float32    `yaml:"mass"`
	Static      bool       `yaml:"static,omitempty"`
	Restitution float32    `yaml:"restitution,omitempty"`
	Velocity    [3]float32 `yaml:"velocity,flow"`
}
