package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

// FrameResource is everything one swapchain image needs to be recorded,
// submitted and presented. Slot i of the render loop uses the command buffer,
// sync objects, buffers and set of frame i; the acquired image index picks the
// framebuffer.
type FrameResource struct {
	Image       gpu.Handle // owned by the swapchain
	View        gpu.Handle
	Depth       *Image
	DepthView   gpu.Handle
	Framebuffer gpu.Handle

	CommandBuffer gpu.Handle

	// InFlight is signaled when the slot's last submission finished. Created
	// signaled so the first wait returns immediately.
	InFlight       gpu.Handle
	ImageAcquired  gpu.Handle
	RenderFinished gpu.Handle

	Camera    *Buffer
	Instances *Buffer
	Set       gpu.Handle

	scope Scope
}

type frameParams struct {
	alloc          *Allocator
	commandPool    gpu.Handle
	descriptorPool gpu.Handle
	frameLayout    gpu.Handle
	renderPass     gpu.Handle
	colorFormat    gpu.Format
	depthFormat    gpu.Format
	extent         gpu.Extent2D
	maxInstances   int
}

func newFrameResource(p frameParams, image gpu.Handle) (*FrameResource, error) {
	device := p.alloc.Device()
	f := &FrameResource{Image: image}
	ok := false
	defer func() {
		if !ok {
			f.Release()
		}
	}()

	var err error
	if f.View, err = device.CreateImageView(image, p.colorFormat, gpu.ImageAspectColor); err != nil {
		return nil, errors.Wrap(err, "failed to create swapchain image view")
	}
	view := f.View
	f.scope.Defer(func() { device.DestroyImageView(view) })

	attachments := []gpu.Handle{f.View}
	if p.depthFormat != gpu.FormatUndefined {
		f.Depth, err = p.alloc.CreateImage(gpu.ImageDesc{
			Extent: p.extent,
			Format: p.depthFormat,
			Usage:  gpu.ImageUsageDepthStencilAttachment,
		}, DeviceLocal)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create depth image")
		}
		f.scope.Own(f.Depth)

		aspect := gpu.ImageAspectDepth
		if p.depthFormat.HasStencil() {
			aspect |= gpu.ImageAspectStencil
		}
		if f.DepthView, err = device.CreateImageView(f.Depth.Handle, p.depthFormat, aspect); err != nil {
			return nil, errors.Wrap(err, "failed to create depth image view")
		}
		depthView := f.DepthView
		f.scope.Defer(func() { device.DestroyImageView(depthView) })
		attachments = append(attachments, f.DepthView)
	}

	if f.Framebuffer, err = device.CreateFramebuffer(p.renderPass, attachments, p.extent); err != nil {
		return nil, errors.Wrap(err, "failed to create framebuffer")
	}
	fb := f.Framebuffer
	f.scope.Defer(func() { device.DestroyFramebuffer(fb) })

	buffers, err := device.AllocateCommandBuffers(p.commandPool, 1)
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate frame command buffer")
	}
	f.CommandBuffer = buffers[0]
	f.scope.Defer(func() { device.FreeCommandBuffers(p.commandPool, buffers) })

	if f.InFlight, err = device.CreateFence(true); err != nil {
		return nil, errors.Wrap(err, "failed to create in-flight fence")
	}
	fence := f.InFlight
	f.scope.Defer(func() { device.DestroyFence(fence) })

	if f.ImageAcquired, err = device.CreateSemaphore(); err != nil {
		return nil, errors.Wrap(err, "failed to create image acquired semaphore")
	}
	acquired := f.ImageAcquired
	f.scope.Defer(func() { device.DestroySemaphore(acquired) })

	if f.RenderFinished, err = device.CreateSemaphore(); err != nil {
		return nil, errors.Wrap(err, "failed to create render finished semaphore")
	}
	finished := f.RenderFinished
	f.scope.Defer(func() { device.DestroySemaphore(finished) })

	if f.Camera, err = p.alloc.CreateBuffer(CameraUniformSize, gpu.BufferUsageUniform, HostVisible); err != nil {
		return nil, errors.Wrap(err, "failed to create camera uniform buffer")
	}
	f.scope.Own(f.Camera)
	if _, err = f.Camera.Map(); err != nil {
		return nil, err
	}

	instanceSize := uint64(p.maxInstances) * InstanceStride
	if f.Instances, err = p.alloc.CreateBuffer(instanceSize, gpu.BufferUsageStorage, HostVisible); err != nil {
		return nil, errors.Wrap(err, "failed to create instance storage buffer")
	}
	f.scope.Own(f.Instances)
	if _, err = f.Instances.Map(); err != nil {
		return nil, err
	}

	// freed together with the descriptor pool
	if f.Set, err = device.AllocateDescriptorSet(p.descriptorPool, p.frameLayout); err != nil {
		return nil, errors.Wrap(err, "failed to allocate per-frame descriptor set")
	}
	f.writeSet(device)

	ok = true
	return f, nil
}

// writeSet points set 0 at the frame's own buffers. Writing the same values
// again is harmless.
func (f *FrameResource) writeSet(device gpu.Device) {
	device.UpdateDescriptorSets([]gpu.DescriptorWrite{
		{
			Set:     f.Set,
			Binding: CameraBinding,
			Type:    gpu.DescriptorTypeUniformBuffer,
			Buffer:  f.Camera.Handle,
			Range:   f.Camera.Size,
		},
		{
			Set:     f.Set,
			Binding: InstanceBinding,
			Type:    gpu.DescriptorTypeStorageBuffer,
			Buffer:  f.Instances.Handle,
			Range:   f.Instances.Size,
		},
	})
}

func (f *FrameResource) Release() {
	f.scope.Release()
}
