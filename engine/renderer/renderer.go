package renderer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxyframe/common"
	"github.com/Carmen-Shannon/oxyframe/engine/asset"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/deletion"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/frame"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/pass"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxyframe/engine/renderer/texture"
	"go.uber.org/zap"
)

// RenderSource produces the draw requests of one tick. Implementations append to dst and
// return it so the renderer can reuse the backing array across frames.
type RenderSource interface {
	Renderables(dst []batch.Renderable) []batch.Renderable
}

// View is the camera state uploaded for one viewport.
type View struct {
	ViewProj common.Mat4
	Eye      common.Vec3
}

// Stats describes what one RenderScene call recorded.
type Stats struct {
	Batches     int
	CustomDraws int
	Instances   int
	DrawCalls   int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	device gpu.Device
	log    *zap.Logger

	mux       *frame.Multiplexer
	deleter   *deletion.Queue
	textures  *texture.Registry
	batcher   *batch.Batcher
	passes    *pass.Orchestrator
	pipelines *pipeline.Cache
	lit       pipeline.Pipeline

	// materials whose shaders failed inspection or compilation; their draws are skipped
	mu       *sync.Mutex
	rejected map[uint64]struct{}

	depth   map[[2]uint32]gpu.Image
	slot    *frame.Slot
	scratch []batch.Renderable
	closed  bool

	// Pre-creation config collected from builder options
	framesInFlight    int
	initialInstances  int
	maxInstances      int
	parallelThreshold int
	batchWorkers      int
	maxTextureSlots   int
	maxViewports      int
}

// Renderer defines the interface for the rendering system.
//
// A Renderer drives the per-frame cycle on an explicit device: it multiplexes frame resources
// across frames in flight, defers the destruction of GPU objects until no frame can use them,
// batches renderables into instanced draws and records rendering scopes. All frame methods
// must be called from one goroutine; EnqueueForDestruction may be called from any goroutine.
type Renderer interface {
	// BeginFrame waits until the next frame slot is free, drains the destructions deferred
	// against it and starts recording.
	//
	// Parameters:
	//   - ctx: bounds the wait on the slot's fence
	//
	// Returns:
	//   - error: ErrFrameActive if a frame is already being recorded, or a device error
	BeginFrame(ctx context.Context) error

	// RenderScene batches the source's renderables and records one rendering scope into
	// the given viewport.
	//
	// Parameters:
	//   - src: provides the renderables, in scene iteration order
	//   - view: the camera of this viewport
	//   - viewport: the target; a nil ColorImage renders to the swapchain
	//
	// Returns:
	//   - Stats: counts of what was recorded
	//   - error: ErrNoFrame outside a frame, or a capacity, pass or device error
	RenderScene(src RenderSource, view View, viewport pass.SceneViewportInfo) (Stats, error)

	// EndFrame submits the frame, presents it and advances to the next slot.
	//
	// Returns:
	//   - error: ErrNoFrame outside a frame, pass.ErrPassActive with a scope still open, or a device error
	EndFrame() error

	// SubmitCommandBuffer submits what has been recorded so far and blocks until the GPU
	// has finished it. Recording then continues in the same frame.
	//
	// Parameters:
	//   - ctx: bounds the wait
	//
	// Returns:
	//   - error: pass.ErrPassActive inside a rendering scope, ErrNoFrame outside a frame
	SubmitCommandBuffer(ctx context.Context) error

	// BeginRendering opens a rendering scope on the current frame.
	//
	// Parameters:
	//   - spec: the targets and load/store behavior
	//
	// Returns:
	//   - error: ErrNoFrame outside a frame, pass.ErrPassActive if a scope is open
	BeginRendering(spec pass.RenderingSpec) error

	// EndRendering closes the open rendering scope.
	//
	// Returns:
	//   - error: pass.ErrNoActivePass if no scope is open
	EndRendering() error

	// EnqueueForDestruction defers fn until every frame that may reference the objects it
	// destroys has retired.
	//
	// Parameters:
	//   - fn: the destruction action
	EnqueueForDestruction(fn func())

	// Resize reconfigures the swapchain and drops depth targets of the old size.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height uint32)

	// EvictMaterial drops the cached pipeline of a material and defers the destruction of
	// its device pipeline. Pass it to asset.WithMaterialDropHook. Safe to call from any
	// goroutine; unknown IDs are ignored.
	//
	// Parameters:
	//   - materialID: the ID of the released material
	EvictMaterial(materialID uint64)

	// CurrentFrameIndex returns the slot currently recorded, tick mod frames in flight.
	CurrentFrameIndex() int

	Device() gpu.Device
	Textures() *texture.Registry
	Batcher() *batch.Batcher
	Pipelines() *pipeline.Cache
	Deleter() *deletion.Queue

	// Shutdown waits for the device to go idle, runs every deferred destruction and
	// destroys the renderer's own resources. The device itself is left to the caller.
	// Later calls do nothing.
	//
	// Parameters:
	//   - ctx: bounds the idle wait
	//
	// Returns:
	//   - error: an error if the device did not go idle
	Shutdown(ctx context.Context) error
}

var _ Renderer = &renderer{}

// NewRenderer wires the frame multiplexer, the deferred destruction queue, the texture
// registry, the batcher, the pass orchestrator and the pipeline cache on top of device,
// then compiles the default lit pipeline.
//
// Parameters:
//   - device: the device to render with; the renderer does not release it
//   - options: functional options to configure the renderer
//
// Returns:
//   - Renderer: the ready renderer
//   - error: an error if the default pipeline or any frame resource could not be created
func NewRenderer(device gpu.Device, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		device:            device,
		log:               zap.NewNop(),
		mu:                &sync.Mutex{},
		rejected:          make(map[uint64]struct{}),
		depth:             make(map[[2]uint32]gpu.Image),
		framesInFlight:    frame.DefaultFramesInFlight,
		initialInstances:  1024,
		maxInstances:      batch.DefaultMaxInstances,
		parallelThreshold: batch.DefaultParallelThreshold,
		maxTextureSlots:   texture.DefaultMaxSlots,
		maxViewports:      4,
	}
	for _, option := range options {
		option(r)
	}

	// EnqueueForDestruction runs actions at once until the deletion queue exists
	r.pipelines = pipeline.NewCache(device, enqueueFunc(r.EnqueueForDestruction), pipeline.WithLogger(r.log))
	lit, err := r.pipelines.GetOrCreate(DefaultPipelineKey, func() pipeline.Pipeline {
		return r.buildPipeline(DefaultPipelineKey, "", "")
	})
	if err != nil {
		return nil, fmt.Errorf("create default pipeline: %w", err)
	}
	r.lit = lit

	r.mux, err = frame.NewMultiplexer(device,
		frame.WithFramesInFlight(r.framesInFlight),
		frame.WithInstanceCapacity(r.initialInstances, r.maxInstances),
		frame.WithInstanceStride(batch.InstanceStride),
		frame.WithCameraUniform(CameraUniformSize, r.maxViewports),
		frame.WithBindGroupLayout(lit.Handle()),
		frame.WithLogger(r.log),
	)
	if err != nil {
		r.pipelines.Release()
		return nil, fmt.Errorf("create frame resources: %w", err)
	}
	r.deleter = deletion.NewQueue(r.mux, r.mux.FramesInFlight(), deletion.WithLogger(r.log))
	r.mux.OnSlotAcquired(func(slot int) { r.deleter.Flush(slot) })

	r.textures = texture.NewRegistry(texture.WithMaxSlots(r.maxTextureSlots))
	batchOptions := []batch.BatcherOption{
		batch.WithMaxInstances(r.maxInstances),
		batch.WithParallelThreshold(r.parallelThreshold),
		batch.WithLogger(r.log),
	}
	if r.batchWorkers > 0 {
		batchOptions = append(batchOptions, batch.WithWorkers(r.batchWorkers))
	}
	r.batcher = batch.NewBatcher(batchOptions...)
	r.passes = pass.NewOrchestrator(pass.WithLogger(r.log))

	r.log.Info("renderer ready",
		zap.Int("frames_in_flight", r.mux.FramesInFlight()),
		zap.Int("max_instances", r.maxInstances),
		zap.Int("max_texture_slots", r.maxTextureSlots),
	)
	return r, nil
}

// enqueueFunc adapts a function to the Enqueuer interfaces of the subsystems.
type enqueueFunc func(func())

func (f enqueueFunc) Enqueue(action func()) { f(action) }

var _ asset.Enqueuer = enqueueFunc(nil)

// buildPipeline describes a lit pipeline, substituting the default stage for any empty source.
func (r *renderer) buildPipeline(key, vertex, fragment string) pipeline.Pipeline {
	return r.buildPipelineWithEntries(key, vertex, "", fragment, "")
}

func (r *renderer) buildPipelineWithEntries(key, vertex, vertexEntry, fragment, fragmentEntry string) pipeline.Pipeline {
	return pipeline.NewPipeline(key,
		pipeline.WithVertexShader(common.Coalesce(vertex, DefaultShader), vertexEntry),
		pipeline.WithFragmentShader(common.Coalesce(fragment, DefaultShader), fragmentEntry),
		pipeline.WithVertexBuffers(MeshVertexLayout, InstanceLayout),
		pipeline.WithUniformBindings(materialUniformBindings),
		pipeline.WithTargetFormats(r.device.SwapchainFormat(), gpu.ImageFormatDepth32Float),
	)
}

// materialPipeline returns the compiled pipeline of a custom-shader material, compiling it
// on first use. Before compiling, the sources are inspected: entry points are read from
// their stage attributes, every vertex input must be supplied by MeshVertexLayout or
// InstanceLayout, and the only resource either stage may declare is the camera uniform
// at @group(0) @binding(0).
func (r *renderer) materialPipeline(mat *asset.Material) (pipeline.Pipeline, error) {
	key := pipeline.MaterialKey(mat.ID())
	if p := r.pipelines.Get(key); p != nil {
		return p, nil
	}
	vertex := shader.Inspect(common.Coalesce(mat.VertexShader(), DefaultShader))
	fragment := shader.Inspect(common.Coalesce(mat.FragmentShader(), DefaultShader))
	vertexEntry, err := vertex.Entry(shader.StageVertex)
	if err != nil {
		return nil, err
	}
	fragmentEntry, err := fragment.Entry(shader.StageFragment)
	if err != nil {
		return nil, err
	}
	if err := vertex.CheckVertexInputs(vertexLocations()); err != nil {
		return nil, fmt.Errorf("vertex stage: %w", err)
	}
	if err := vertex.CheckBindings(0, materialUniformBindings); err != nil {
		return nil, fmt.Errorf("vertex stage: %w", err)
	}
	if err := fragment.CheckBindings(0, materialUniformBindings); err != nil {
		return nil, fmt.Errorf("fragment stage: %w", err)
	}
	return r.pipelines.GetOrCreate(key, func() pipeline.Pipeline {
		return r.buildPipelineWithEntries(key,
			mat.VertexShader(), vertexEntry,
			mat.FragmentShader(), fragmentEntry,
		)
	})
}

// rejectOnce records a material whose pipeline could not be made and reports whether
// this is the first failure for it.
func (r *renderer) rejectOnce(materialID uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rejected[materialID]; ok {
		return false
	}
	r.rejected[materialID] = struct{}{}
	return true
}

func (r *renderer) isRejected(materialID uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rejected[materialID]
	return ok
}

func (r *renderer) EvictMaterial(materialID uint64) {
	r.mu.Lock()
	delete(r.rejected, materialID)
	r.mu.Unlock()
	r.pipelines.Evict(pipeline.MaterialKey(materialID))
}

func (r *renderer) BeginFrame(ctx context.Context) error {
	if r.slot != nil {
		return ErrFrameActive
	}
	slot, err := r.mux.BeginFrame(ctx)
	if err != nil {
		return err
	}
	r.slot = slot
	r.passes.Attach(slot)
	return nil
}

func (r *renderer) EndFrame() error {
	if r.slot == nil {
		return ErrNoFrame
	}
	if err := r.passes.Detach(); err != nil {
		return fmt.Errorf("end frame: %w", err)
	}
	r.slot = nil
	return r.mux.EndFrame()
}

func (r *renderer) SubmitCommandBuffer(ctx context.Context) error {
	if r.slot == nil {
		return ErrNoFrame
	}
	if r.passes.Active() {
		return fmt.Errorf("submit command buffer: %w", pass.ErrPassActive)
	}
	return r.mux.SubmitAndWait(ctx)
}

func (r *renderer) BeginRendering(spec pass.RenderingSpec) error {
	if r.slot == nil {
		return ErrNoFrame
	}
	return r.passes.BeginRendering(spec)
}

func (r *renderer) EndRendering() error {
	return r.passes.EndRendering()
}

func (r *renderer) RenderScene(src RenderSource, view View, viewport pass.SceneViewportInfo) (Stats, error) {
	var stats Stats
	if r.slot == nil {
		return stats, ErrNoFrame
	}

	var uniform [CameraUniformSize / 4]float32
	copy(uniform[:16], view.ViewProj[:])
	copy(uniform[16:19], view.Eye[:])
	cameraGroup, err := r.slot.WriteCamera(common.SliceToBytes(uniform[:]))
	if err != nil {
		return stats, fmt.Errorf("render scene: %w", err)
	}

	r.scratch = src.Renderables(r.scratch[:0])
	f, err := r.batcher.Build(r.scratch)
	if err != nil {
		return stats, fmt.Errorf("render scene: %w", err)
	}

	var instances gpu.Buffer
	var offset uint64
	if f.InstanceCount() > 0 {
		instances, offset, err = r.slot.WriteInstances(f.Bytes(), f.InstanceCount())
		if err != nil {
			return stats, fmt.Errorf("render scene: %w", err)
		}
	}

	spec := viewport.RenderingSpec()
	if spec.DepthTarget == nil {
		if spec.DepthTarget, err = r.depthTarget(viewport); err != nil {
			return stats, fmt.Errorf("render scene: %w", err)
		}
	}
	if err := r.passes.BeginRendering(spec); err != nil {
		return stats, fmt.Errorf("render scene: %w", err)
	}
	cmd, err := r.slot.CommandBuffer()
	if err != nil {
		return stats, errors.Join(err, r.passes.EndRendering())
	}

	if len(f.Batches) > 0 {
		cmd.BindPipeline(r.lit.Handle())
		if cameraGroup != nil {
			cmd.BindBindGroup(0, cameraGroup)
		}
		cmd.BindVertexBuffer(1, instances, offset)
		for _, b := range f.Batches {
			cmd.BindVertexBuffer(0, b.Mesh.VertexBuffer(), 0)
			cmd.BindIndexBuffer(b.Mesh.IndexBuffer(), 0)
			cmd.DrawIndexed(b.Mesh.IndexCount(), b.Count, 0, 0, b.FirstInstance)
			stats.DrawCalls++
		}
	}
	for _, c := range f.Custom {
		if r.isRejected(c.Material.ID()) {
			continue
		}
		p, err := r.materialPipeline(c.Material)
		if err != nil {
			if r.rejectOnce(c.Material.ID()) {
				r.log.Warn("custom material rejected, its draws are skipped",
					zap.String("material", c.Material.Name()),
					zap.Error(err),
				)
			}
			continue
		}
		cmd.BindPipeline(p.Handle())
		if cameraGroup != nil {
			cmd.BindBindGroup(0, cameraGroup)
		}
		cmd.BindVertexBuffer(1, instances, offset)
		cmd.BindVertexBuffer(0, c.Mesh.VertexBuffer(), 0)
		cmd.BindIndexBuffer(c.Mesh.IndexBuffer(), 0)
		cmd.DrawIndexed(c.Mesh.IndexCount(), 1, 0, 0, c.Instance)
		stats.DrawCalls++
		stats.CustomDraws++
	}

	if err := r.passes.EndRendering(); err != nil {
		return stats, fmt.Errorf("render scene: %w", err)
	}
	stats.Batches = len(f.Batches)
	stats.Instances = f.InstanceCount()
	return stats, nil
}

// depthTarget returns the depth image matching the viewport's extent, creating it on first use.
func (r *renderer) depthTarget(viewport pass.SceneViewportInfo) (gpu.Image, error) {
	w, h := viewport.Width, viewport.Height
	if w == 0 || h == 0 {
		if viewport.ColorImage != nil {
			w, h = viewport.ColorImage.Width(), viewport.ColorImage.Height()
		} else {
			w, h = r.device.SwapchainExtent()
		}
	}
	key := [2]uint32{w, h}
	if img, ok := r.depth[key]; ok {
		return img, nil
	}
	img, err := r.device.CreateImage(gpu.ImageDescriptor{
		Label:  fmt.Sprintf("depth_%dx%d", w, h),
		Width:  w,
		Height: h,
		Format: gpu.ImageFormatDepth32Float,
		Usage:  gpu.ImageUsageRenderAttachment,
	})
	if err != nil {
		return nil, fmt.Errorf("create depth target: %w", err)
	}
	r.depth[key] = img
	return img, nil
}

func (r *renderer) EnqueueForDestruction(fn func()) {
	if r.deleter == nil {
		fn()
		return
	}
	r.deleter.Enqueue(fn)
}

func (r *renderer) Resize(width, height uint32) {
	r.device.Resize(width, height)
	for key, img := range r.depth {
		delete(r.depth, key)
		r.passes.Forget(img)
		r.deleter.Enqueue(func() { r.device.DestroyImage(img) })
	}
	r.log.Debug("resized", zap.Uint32("width", width), zap.Uint32("height", height))
}

func (r *renderer) CurrentFrameIndex() int { return r.mux.CurrentFrameIndex() }

func (r *renderer) Device() gpu.Device          { return r.device }
func (r *renderer) Textures() *texture.Registry { return r.textures }
func (r *renderer) Batcher() *batch.Batcher     { return r.batcher }
func (r *renderer) Pipelines() *pipeline.Cache  { return r.pipelines }
func (r *renderer) Deleter() *deletion.Queue    { return r.deleter }

func (r *renderer) Shutdown(ctx context.Context) error {
	if r.closed {
		return nil
	}
	r.slot = nil
	if err := r.mux.Shutdown(ctx); err != nil {
		return err
	}
	drained := r.deleter.Close()
	for key, img := range r.depth {
		r.device.DestroyImage(img)
		delete(r.depth, key)
	}
	r.pipelines.Release()
	r.closed = true
	r.log.Info("renderer shut down", zap.Int("deferred_destructions", drained))
	return nil
}
