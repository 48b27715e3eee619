package asset

import "github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"

// Texture is a sampled image with a slot in the texture registry.
type Texture struct {
	refCounted

	id    uint64
	name  string
	image gpu.Image
	slot  int
}

func (t *Texture) ID() uint64       { return t.id }
func (t *Texture) Name() string     { return t.name }
func (t *Texture) Image() gpu.Image { return t.image }

// Slot returns the registry index shaders use to find this texture.
func (t *Texture) Slot() int { return t.slot }

func (t *Texture) Acquire() *Texture {
	t.acquire()
	return t
}

// Release drops a reference. The last release schedules both the image
// destruction and the slot release, so the index stays reserved until the
// GPU can no longer sample it.
func (t *Texture) Release() { t.release() }
