package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
	"github.com/spaghettifunk/tessera/engine/systems"
)

// State is the phase of the frame currently being produced.
type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateRecording
	StateSubmitted
	StatePresenting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateRecording:
		return "recording"
	case StateSubmitted:
		return "submitted"
	case StatePresenting:
		return "presenting"
	}
	return "unknown"
}

const DefaultMaxInstances = 1024

type Config struct {
	PresentPolicy PresentPolicy
	// Depth adds a depth attachment and enables depth test and write.
	Depth bool
	// Indexed draws meshes through the aggregate index buffer. Meshes
	// without indices are always drawn from their vertex range.
	Indexed      bool
	MaxInstances int
	ClearColor   [4]float32
}

// Context is what the renderer needs from the outside world.
type Context struct {
	Device  gpu.Device
	Window  Window
	Shaders ShaderSource
	Config  Config
	// Jobs decodes textures in parallel at load time. Optional.
	Jobs *systems.JobSystem
}

// Renderer drives the acquire, record, submit and present cycle and owns
// every GPU object it needs for that.
type Renderer struct {
	device gpu.Device
	alloc  *Allocator
	cfg    Config

	commandPool gpu.Handle
	layouts     *PipelineLayouts
	pipeline    *Pipeline
	swapchain   *Swapchain
	meshes      *MeshAggregator
	textures    *TextureLoader
	shaders     ShaderSource

	Camera Camera

	frameCounter  uint64
	state         State
	resizePending bool
	lastDropped   int
	missing       [meshKindCount]bool

	scope Scope
}

func New(ctx Context) (*Renderer, error) {
	if ctx.Device == nil || ctx.Window == nil || ctx.Shaders == nil {
		return nil, errors.New("renderer needs a device, a window and a shader source")
	}
	cfg := ctx.Config
	if cfg.MaxInstances <= 0 {
		cfg.MaxInstances = DefaultMaxInstances
	}
	if cfg.PresentPolicy == "" {
		cfg.PresentPolicy = PresentMailbox
	}

	r := &Renderer{
		device:  ctx.Device,
		alloc:   NewAllocator(ctx.Device),
		cfg:     cfg,
		shaders: ctx.Shaders,
		Camera:  DefaultCamera(),
	}
	ok := false
	defer func() {
		if !ok {
			r.scope.Release()
		}
	}()

	var err error
	if r.commandPool, err = r.device.CreateCommandPool(); err != nil {
		return nil, errors.Wrap(err, "failed to create command pool")
	}
	pool := r.commandPool
	r.scope.Defer(func() { r.device.DestroyCommandPool(pool) })

	if r.layouts, err = NewPipelineLayouts(r.device); err != nil {
		return nil, err
	}
	r.scope.Own(r.layouts)

	// the pipeline is built on demand by the first swapchain creation
	r.scope.Defer(func() {
		if r.pipeline != nil {
			r.pipeline.Release()
			r.pipeline = nil
		}
	})

	r.swapchain = NewSwapchain(r.alloc, ctx.Window, r.layouts, r.commandPool, r.ensurePipeline, SwapchainConfig{
		Policy:       cfg.PresentPolicy,
		Depth:        cfg.Depth,
		MaxInstances: cfg.MaxInstances,
	})
	r.scope.Own(r.swapchain)
	width, height := ctx.Window.FramebufferSize()
	if err := r.swapchain.Create(gpu.Extent2D{Width: uint32(width), Height: uint32(height)}); err != nil {
		return nil, err
	}

	r.meshes = NewMeshAggregator()
	r.scope.Own(r.meshes)

	if r.textures, err = NewTextureLoader(r.alloc, r.commandPool, r.layouts, ctx.Jobs); err != nil {
		return nil, err
	}
	r.scope.Own(r.textures)

	ok = true
	core.LogInfo("renderer initialized (depth=%t indexed=%t max instances=%d)", cfg.Depth, cfg.Indexed, cfg.MaxInstances)
	return r, nil
}

// ensurePipeline hands the swapchain a render pass for its formats, building
// or rebuilding the pipeline when they changed.
func (r *Renderer) ensurePipeline(colorFormat, depthFormat gpu.Format) (gpu.Handle, error) {
	if r.pipeline == nil {
		p, err := NewPipeline(r.device, r.layouts, r.shaders, colorFormat, depthFormat)
		if err != nil {
			return gpu.NullHandle, err
		}
		r.pipeline = p
		return p.RenderPass, nil
	}
	if !r.pipeline.Matches(colorFormat, depthFormat) {
		core.LogInfo("surface format changed, rebuilding the pipeline")
		if err := r.pipeline.Rebuild(colorFormat, depthFormat); err != nil {
			return gpu.NullHandle, err
		}
	}
	return r.pipeline.RenderPass, nil
}

func (r *Renderer) Allocator() *Allocator     { return r.alloc }
func (r *Renderer) CommandPool() gpu.Handle   { return r.commandPool }
func (r *Renderer) Meshes() *MeshAggregator   { return r.meshes }
func (r *Renderer) Textures() *TextureLoader  { return r.textures }
func (r *Renderer) Swapchain() *Swapchain     { return r.swapchain }
func (r *Renderer) Pipeline() *Pipeline       { return r.pipeline }
func (r *Renderer) Layouts() *PipelineLayouts { return r.layouts }
func (r *Renderer) State() State              { return r.state }
func (r *Renderer) FrameCounter() uint64      { return r.frameCounter }
func (r *Renderer) Config() Config            { return r.cfg }

// FinalizeMeshes uploads every consumed mesh. Call once after loading.
func (r *Renderer) FinalizeMeshes() error {
	return r.meshes.Finalize(r.alloc, r.commandPool)
}

// Resized records that the window changed size. The next Render recreates
// the swapchain instead of drawing.
func (r *Renderer) Resized(width, height uint32) {
	core.LogDebug("framebuffer resized to %dx%d", width, height)
	r.resizePending = true
}

// Render produces one frame of scene. Out-of-date or suboptimal swapchains are
// recreated and the frame is skipped; any other failure is returned.
func (r *Renderer) Render(scene *Scene) error {
	if !r.meshes.Finalized() {
		return errors.New("render called before the mesh aggregate was finalized")
	}
	device := r.device
	sc := r.swapchain
	if len(sc.Frames) == 0 {
		return errors.New("render called without a swapchain")
	}
	slot := r.frameCounter % uint64(len(sc.Frames))
	frame := sc.Frames[slot]

	r.state = StateIdle
	if err := device.WaitForFence(frame.InFlight, gpu.WaitForever); err != nil {
		return errors.Wrapf(err, "failed to wait for frame slot %d", slot)
	}

	if r.resizePending {
		r.resizePending = false
		return r.recreate()
	}

	r.state = StateAcquiring
	imageIndex, err := device.AcquireNextImage(sc.Handle, frame.ImageAcquired, gpu.WaitForever)
	if errors.Is(err, gpu.ErrOutOfDate) {
		// the fence is still signaled, nothing was submitted
		return r.recreate()
	}
	if err != nil {
		r.state = StateIdle
		return errors.Wrap(err, "failed to acquire swapchain image")
	}
	if int(imageIndex) >= len(sc.Frames) {
		r.state = StateIdle
		return errors.Newf("acquired image index %d out of range", imageIndex)
	}

	// only reset once work is guaranteed to be submitted with this fence
	if err := device.ResetFence(frame.InFlight); err != nil {
		r.state = StateIdle
		return errors.Wrap(err, "failed to reset in-flight fence")
	}

	r.state = StateRecording
	if err := r.record(frame, sc.Frames[imageIndex], scene); err != nil {
		r.state = StateIdle
		return err
	}

	err = device.QueueSubmit(gpu.SubmitInfo{
		CommandBuffers:   []gpu.Handle{frame.CommandBuffer},
		WaitSemaphores:   []gpu.Handle{frame.ImageAcquired},
		SignalSemaphores: []gpu.Handle{frame.RenderFinished},
		Fence:            frame.InFlight,
	})
	if err != nil {
		r.state = StateIdle
		return errors.Wrap(err, "failed to submit frame")
	}
	r.state = StateSubmitted

	r.state = StatePresenting
	err = device.QueuePresent(sc.Handle, imageIndex, frame.RenderFinished)
	if gpu.IsTransient(err) {
		return r.recreate()
	}
	if err != nil {
		r.state = StateIdle
		return errors.Wrap(err, "failed to present swapchain image")
	}

	r.frameCounter++
	r.state = StateIdle
	return nil
}

func (r *Renderer) record(frame, target *FrameResource, scene *Scene) error {
	device := r.device
	cb := frame.CommandBuffer
	extent := r.swapchain.Extent

	if err := device.ResetCommandBuffer(cb); err != nil {
		return errors.Wrap(err, "failed to reset command buffer")
	}

	if err := frame.Camera.Write(0, r.Camera.Uniform(extent).Bytes()); err != nil {
		return errors.Wrap(err, "failed to write camera uniform")
	}

	groups, dropped := PlanInstances(scene, r.cfg.MaxInstances)
	if dropped != r.lastDropped {
		if dropped > 0 {
			core.LogWarn("scene has %d instances more than the %d supported, dropping them", dropped, r.cfg.MaxInstances)
		}
		r.lastDropped = dropped
	}
	instances, err := frame.Instances.Map()
	if err != nil {
		return err
	}
	for _, g := range groups {
		positions := scene.Positions(g.Kind)[:g.InstanceCount]
		for i, pos := range positions {
			m := ModelMatrix(pos)
			off := (uint64(g.FirstInstance) + uint64(i)) * InstanceStride
			copy(instances[off:off+InstanceStride], matrixBytes(&m))
		}
	}
	frame.writeSet(device)

	if err := device.BeginCommandBuffer(cb, false); err != nil {
		return errors.Wrap(err, "failed to begin command buffer")
	}
	device.CmdBeginRenderPass(cb, gpu.RenderPassBegin{
		RenderPass:  r.pipeline.RenderPass,
		Framebuffer: target.Framebuffer,
		Extent:      extent,
		ClearColor:  r.cfg.ClearColor,
		ClearDepth:  1.0,
	})
	device.CmdSetViewport(cb, extent)
	device.CmdSetScissor(cb, extent)
	device.CmdBindPipeline(cb, r.pipeline.Handle)
	device.CmdBindDescriptorSet(cb, r.layouts.Pipeline, FrameSetIndex, frame.Set)
	device.CmdBindVertexBuffer(cb, r.meshes.VertexBuffer.Handle, 0)
	indexed := r.cfg.Indexed && r.meshes.IndexBuffer != nil
	if indexed {
		device.CmdBindIndexBuffer(cb, r.meshes.IndexBuffer.Handle, 0)
	}

	for _, g := range groups {
		rng, ok := r.meshes.Range(g.Kind)
		material := r.textures.Material(g.Kind)
		if !ok || material == nil {
			if !r.missing[g.Kind] {
				core.LogWarn("mesh %s has instances but no geometry or material, skipping it", g.Kind)
				r.missing[g.Kind] = true
			}
			continue
		}
		material.Use(cb)
		if indexed && rng.IndexCount > 0 {
			device.CmdDrawIndexed(cb, rng.IndexCount, g.InstanceCount, rng.FirstIndex, 0, g.FirstInstance)
		} else {
			device.CmdDraw(cb, rng.VertexCount, g.InstanceCount, rng.FirstVertex, g.FirstInstance)
		}
	}

	device.CmdEndRenderPass(cb)
	if err := device.EndCommandBuffer(cb); err != nil {
		return errors.Wrap(err, "failed to end command buffer")
	}
	return nil
}

func (r *Renderer) recreate() error {
	r.state = StateIdle
	if err := r.swapchain.Recreate(); err != nil {
		return errors.Wrap(err, "failed to recreate swapchain")
	}
	r.frameCounter = 0
	return nil
}

// ReloadPipeline rebuilds the pipeline from freshly loaded shaders and
// recreates the swapchain so framebuffers match the new render pass. If the
// new shaders fail to build, the old pipeline keeps running.
func (r *Renderer) ReloadPipeline() error {
	if err := r.device.WaitIdle(); err != nil {
		return errors.Wrap(err, "failed to wait for device idle")
	}
	if err := r.pipeline.Rebuild(r.pipeline.ColorFormat, r.pipeline.DepthFormat); err != nil {
		return errors.Wrap(err, "failed to reload pipeline")
	}
	return r.recreate()
}

// Shutdown waits for the GPU and releases everything in reverse creation
// order.
func (r *Renderer) Shutdown() error {
	err := r.device.WaitIdle()
	r.scope.Release()
	if err != nil {
		return errors.Wrap(err, "failed to wait for device idle on shutdown")
	}
	core.LogInfo("renderer shut down")
	return nil
}
