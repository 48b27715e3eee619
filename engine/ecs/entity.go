// Package ecs provides generational entity handles and dense component stores with
// construct/destroy observers. Stores iterate in dense order, which is stable between
// structural changes.
package ecs

import "strconv"

// Entity encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale handles.
// Generations start at 1, so the zero value never names a live entity.
type Entity uint64

// Null is the handle that never refers to a live entity.
const Null Entity = 0

// NewEntity packs an index and generation into a handle.
func NewEntity(index uint32, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(index))
}

func (e Entity) Index() uint32      { return uint32(e) }
func (e Entity) Generation() uint32 { return uint32(e >> 32) }
func (e Entity) IsNull() bool       { return e == Null }

func (e Entity) String() string {
	return strconv.FormatUint(uint64(e.Index()), 10) + "v" + strconv.FormatUint(uint64(e.Generation()), 10)
}

// EntityPool manages entity allocation with generational indices and a free list.
type EntityPool struct {
	generations []uint32
	freeList    []uint32
	alive       int
}

// NewEntityPool creates an empty pool.
func NewEntityPool() *EntityPool {
	return &EntityPool{
		generations: make([]uint32, 0, 1024),
		freeList:    make([]uint32, 0, 256),
	}
}

// Create returns a fresh handle, reusing a freed index when one is available.
func (p *EntityPool) Create() Entity {
	p.alive++
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return NewEntity(idx, p.generations[idx])
	}
	idx := uint32(len(p.generations))
	p.generations = append(p.generations, 1)
	return NewEntity(idx, 1)
}

// Alive reports whether e refers to an entity that has not been destroyed.
func (p *EntityPool) Alive(e Entity) bool {
	idx := e.Index()
	if int(idx) >= len(p.generations) {
		return false
	}
	return e.Generation() != 0 && p.generations[idx] == e.Generation()
}

// Destroy invalidates e. Stale or unknown handles are ignored.
//
// Returns:
//   - bool: true if e was alive and is now destroyed
func (p *EntityPool) Destroy(e Entity) bool {
	if !p.Alive(e) {
		return false
	}
	idx := e.Index()
	p.generations[idx]++
	if p.generations[idx] == 0 {
		p.generations[idx] = 1
	}
	p.freeList = append(p.freeList, idx)
	p.alive--
	return true
}

// Len returns the number of live entities.
func (p *EntityPool) Len() int { return p.alive }
