// Package batch groups per-entity draw requests into instanced draw calls and packs
// their per-instance data into one contiguous array.
package batch

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxyframe/engine/asset"
	"go.uber.org/zap"
)

const (
	DefaultParallelThreshold = 4096
	DefaultMaxInstances      = 1 << 16
)

// placement maps a renderable to its destination record.
type placement struct {
	src int
	dst int
}

type group struct {
	mesh  *asset.Mesh
	count int
}

// Batcher builds a Frame from renderables. Build is called from the render goroutine;
// the tuning setters may be called from any goroutine.
type Batcher struct {
	mu *sync.Mutex

	threshold    int
	workers      int
	maxInstances int
	log          *zap.Logger

	// scratch reused across builds
	frame     Frame
	groups    []group
	groupOf   map[uint64]int
	memberOf  []int
	cursor    []int
	placement []placement
	custom    []int
}

// NewBatcher creates a batcher. Parallel serialization uses max(NumCPU-1, 1) workers
// unless WithWorkers says otherwise.
//
// Parameters:
//   - options: functional options to configure the batcher
//
// Returns:
//   - *Batcher: the new batcher
func NewBatcher(options ...BatcherOption) *Batcher {
	b := &Batcher{
		mu:           &sync.Mutex{},
		threshold:    DefaultParallelThreshold,
		workers:      max(runtime.NumCPU()-1, 1),
		maxInstances: DefaultMaxInstances,
		log:          zap.NewNop(),
		groupOf:      make(map[uint64]int),
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// ParallelThreshold returns the instanced count above which serialization fans out.
func (b *Batcher) ParallelThreshold() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.threshold
}

// SetParallelThreshold changes the fan-out threshold. Values below zero are clamped to zero.
func (b *Batcher) SetParallelThreshold(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.threshold = max(n, 0)
}

// Workers returns the number of serialization workers.
func (b *Batcher) Workers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.workers
}

// SetWorkers changes how many chunks a parallel build is split into. The shared pool
// grows on the next parallel build if n exceeds its size; it never shrinks.
func (b *Batcher) SetWorkers(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.workers = max(n, 1)
	b.log.Debug("serialization workers tuned", zap.Int("workers", b.workers))
}

// MaxInstances returns the per-frame instance cap.
func (b *Batcher) MaxInstances() int { return b.maxInstances }

// Build groups renderables by mesh and serializes their instance records.
// Renderables without a mesh are skipped. Renderables whose material has a custom shader
// become custom draws placed after every batch.
//
// Parameters:
//   - renderables: the draw requests in scene iteration order
//
// Returns:
//   - *Frame: the batches and records, valid until the next Build
//   - error: ErrInstanceCapacityExceeded when the total exceeds MaxInstances
func (b *Batcher) Build(renderables []Renderable) (*Frame, error) {
	b.reset()

	for i := range renderables {
		r := &renderables[i]
		if r.Mesh == nil {
			b.memberOf = append(b.memberOf, -1)
			continue
		}
		if r.Material != nil && r.Material.HasCustomShader() {
			b.memberOf = append(b.memberOf, -1)
			b.custom = append(b.custom, i)
			continue
		}
		g, ok := b.groupOf[r.Mesh.ID()]
		if !ok {
			g = len(b.groups)
			b.groupOf[r.Mesh.ID()] = g
			b.groups = append(b.groups, group{mesh: r.Mesh})
		}
		b.groups[g].count++
		b.memberOf = append(b.memberOf, g)
	}

	instanced := 0
	for _, g := range b.groups {
		b.cursor = append(b.cursor, instanced)
		b.frame.Batches = append(b.frame.Batches, InstanceBatch{
			Mesh:          g.mesh,
			FirstInstance: uint32(instanced),
			Count:         uint32(g.count),
		})
		instanced += g.count
	}
	total := instanced + len(b.custom)
	if total > b.maxInstances {
		return nil, fmt.Errorf("build batches: %d instances, limit %d: %w", total, b.maxInstances, ErrInstanceCapacityExceeded)
	}

	for i, g := range b.memberOf {
		if g < 0 {
			continue
		}
		b.placement = append(b.placement, placement{src: i, dst: b.cursor[g]})
		b.cursor[g]++
	}

	b.frame.Instances = grow(b.frame.Instances, total)
	b.serialize(renderables, instanced)

	for k, i := range b.custom {
		r := &renderables[i]
		dst := instanced + k
		fill(&b.frame.Instances[dst], r)
		b.frame.Custom = append(b.frame.Custom, CustomDraw{
			Entity:   r.Entity,
			Mesh:     r.Mesh,
			Material: r.Material,
			Instance: uint32(dst),
		})
	}
	return &b.frame, nil
}

// serialize fills the instanced section, fanning out over the shared worker pool when
// the section is larger than the threshold. Workers write disjoint chunks of placement.
func (b *Batcher) serialize(renderables []Renderable, instanced int) {
	b.mu.Lock()
	threshold, workers := b.threshold, b.workers
	b.mu.Unlock()

	out := b.frame.Instances
	if instanced <= threshold || workers <= 1 {
		for _, p := range b.placement {
			fill(&out[p.dst], &renderables[p.src])
		}
		return
	}

	chunk := (len(b.placement) + workers - 1) / workers
	tasks := make([]func(), 0, workers)
	for start := 0; start < len(b.placement); start += chunk {
		part := b.placement[start:min(start+chunk, len(b.placement))]
		tasks = append(tasks, func() {
			for _, p := range part {
				fill(&out[p.dst], &renderables[p.src])
			}
		})
	}
	fanOut(workers, tasks)
}

func (b *Batcher) reset() {
	b.frame.Instances = b.frame.Instances[:0]
	b.frame.Batches = b.frame.Batches[:0]
	b.frame.Custom = b.frame.Custom[:0]
	b.groups = b.groups[:0]
	clear(b.groupOf)
	b.memberOf = b.memberOf[:0]
	b.cursor = b.cursor[:0]
	b.placement = b.placement[:0]
	b.custom = b.custom[:0]
}

func grow(s []InstanceData, n int) []InstanceData {
	if cap(s) < n {
		return make([]InstanceData, n)
	}
	return s[:n]
}
