package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"
	"go.uber.org/zap"
)

var ErrNilPipeline = errors.New("pipeline: build returned nil")

// Enqueuer defers work until the GPU can no longer use the objects it touches.
type Enqueuer interface {
	Enqueue(action func())
}

// Cache compiles pipelines lazily and keeps one per key.
type Cache struct {
	mu *sync.Mutex

	device  gpu.Device
	deleter Enqueuer
	entries map[string]*pipeline
	created int
	log     *zap.Logger
}

// NewCache creates an empty cache.
//
// Parameters:
//   - device: compiles the pipelines
//   - deleter: defers the destruction of evicted pipelines
//   - options: functional options to configure the cache
//
// Returns:
//   - *Cache: the new cache
func NewCache(device gpu.Device, deleter Enqueuer, options ...CacheOption) *Cache {
	c := &Cache{
		mu:      &sync.Mutex{},
		device:  device,
		deleter: deleter,
		entries: make(map[string]*pipeline),
		log:     zap.NewNop(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// MaterialKey returns the cache key of the pipeline for the material with the given ID.
func MaterialKey(materialID uint64) string {
	return fmt.Sprintf("material/%d", materialID)
}

// Get returns the compiled pipeline for key, or nil.
func (c *Cache) Get(key string) Pipeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.entries[key]; ok {
		return p
	}
	return nil
}

// GetOrCreate returns the pipeline for key, calling build and compiling its result only
// the first time the key is seen. A failed compile leaves no entry, so the next call retries.
//
// Parameters:
//   - key: the cache key
//   - build: produces the pipeline description
//
// Returns:
//   - Pipeline: the compiled pipeline
//   - error: an error if build returned nil or the device rejected the descriptor
func (c *Cache) GetOrCreate(key string, build func() Pipeline) (Pipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.entries[key]; ok {
		return p, nil
	}
	p, _ := build().(*pipeline)
	if p == nil {
		return nil, fmt.Errorf("pipeline %q: %w", key, ErrNilPipeline)
	}
	handle, err := c.device.CreatePipeline(p.Descriptor())
	if err != nil {
		return nil, fmt.Errorf("compile pipeline %q: %w", key, err)
	}
	p.handle = handle
	c.entries[key] = p
	c.created++
	c.log.Debug("pipeline compiled", zap.String("key", key))
	return p, nil
}

// Evict removes key and defers destruction of its device pipeline.
func (c *Cache) Evict(key string) {
	c.mu.Lock()
	p, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()
	if !ok {
		return
	}
	handle := p.handle
	c.deleter.Enqueue(func() { c.device.DestroyPipeline(handle) })
}

// Len returns the number of cached pipelines.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Created returns how many pipelines have been compiled over the cache's lifetime.
func (c *Cache) Created() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

// Release destroys every cached pipeline immediately. The device must be idle.
func (c *Cache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, p := range c.entries {
		c.device.DestroyPipeline(p.handle)
		delete(c.entries, key)
	}
}
