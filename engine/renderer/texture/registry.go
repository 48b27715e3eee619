// Package texture assigns shader-visible slot indices to live textures.
package texture

import (
	"container/heap"
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"
)

// ErrSlotsExhausted is returned by Register when every slot up to the capacity is live.
var ErrSlotsExhausted = errors.New("texture: slots exhausted")

// freeList is a min-heap of released slot indices.
type freeList []int

func (f freeList) Len() int           { return len(f) }
func (f freeList) Less(i, j int) bool { return f[i] < f[j] }
func (f freeList) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }
func (f *freeList) Push(x any)        { *f = append(*f, x.(int)) }
func (f *freeList) Pop() any {
	old := *f
	n := len(old)
	x := old[n-1]
	*f = old[:n-1]
	return x
}

// DefaultMaxSlots is the registry capacity when WithMaxSlots is not given.
const DefaultMaxSlots = 4096

// Registry maps slot indices to textures. Register always hands out the lowest
// free index, so released indices are reused before the table grows.
type Registry struct {
	mu *sync.Mutex

	slots    []gpu.Image
	free     freeList
	maxSlots int
	live     int
}

// NewRegistry creates an empty registry.
//
// Parameters:
//   - options: functional options to configure the registry
//
// Returns:
//   - *Registry: the new registry
func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{
		mu:       &sync.Mutex{},
		maxSlots: DefaultMaxSlots,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Register stores tex in the lowest free slot.
//
// Parameters:
//   - tex: the texture image to register
//
// Returns:
//   - int: the assigned slot index
//   - error: ErrSlotsExhausted when the registry is full
func (r *Registry) Register(tex gpu.Image) (int, error) {
	if tex == nil {
		return 0, errors.New("texture: register nil image")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.free.Len() > 0 {
		idx := heap.Pop(&r.free).(int)
		r.slots[idx] = tex
		r.live++
		return idx, nil
	}
	if len(r.slots) >= r.maxSlots {
		return 0, fmt.Errorf("register %q: %d slots in use: %w", tex.Label(), r.live, ErrSlotsExhausted)
	}
	r.slots = append(r.slots, tex)
	r.live++
	return len(r.slots) - 1, nil
}

// Deregister frees index. Unknown or already free indices are ignored.
func (r *Registry) Deregister(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.slots) || r.slots[index] == nil {
		return
	}
	r.slots[index] = nil
	heap.Push(&r.free, index)
	r.live--
}

// Lookup returns the texture at index, or nil when the slot is free.
func (r *Registry) Lookup(index int) gpu.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.slots) {
		return nil
	}
	return r.slots[index]
}

// Len returns the number of live slots.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}
