package gputest

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

func (d *Device) MemoryTypes() []gpu.MemoryType {
	return d.Types
}

func (d *Device) AllocateMemory(size uint64, typeIndex uint32) (gpu.Handle, error) {
	if int(typeIndex) >= len(d.Types) {
		return gpu.NullHandle, errors.Newf("memory type %d out of range", typeIndex)
	}
	h, o, err := d.create(KindMemory, gpu.NullHandle)
	if err != nil {
		return h, err
	}
	o.data = make([]byte, size)
	o.memType = typeIndex
	return h, nil
}

func (d *Device) FreeMemory(memory gpu.Handle) {
	d.destroy(memory, KindMemory)
}

func (d *Device) MapMemory(memory gpu.Handle, offset, size uint64) ([]byte, error) {
	o := d.lookup(memory, KindMemory)
	if o == nil {
		return nil, errors.Newf("map of unknown memory %d", memory)
	}
	if d.Types[o.memType].Properties&gpu.MemoryPropertyHostVisible == 0 {
		d.violate("map of memory %d which is not host visible", memory)
		return nil, errors.Newf("memory %d is not host visible", memory)
	}
	if o.mapped {
		d.violate("memory %d mapped twice", memory)
	}
	if offset+size > uint64(len(o.data)) {
		return nil, errors.Newf("map range [%d, %d) exceeds memory size %d", offset, offset+size, len(o.data))
	}
	o.mapped = true
	return o.data[offset : offset+size], nil
}

func (d *Device) UnmapMemory(memory gpu.Handle) {
	if o := d.lookup(memory, KindMemory); o != nil {
		if !o.mapped {
			d.violate("unmap of memory %d which is not mapped", memory)
		}
		o.mapped = false
	}
}

func (d *Device) CreateBuffer(size uint64, usage gpu.BufferUsage) (gpu.Handle, error) {
	if size == 0 {
		d.violate("buffer created with size 0")
		return gpu.NullHandle, errors.New("buffer size must be greater than 0")
	}
	h, o, err := d.create(KindBuffer, gpu.NullHandle)
	if err != nil {
		return h, err
	}
	o.data = make([]byte, 0, size)
	return h, nil
}

func (d *Device) DestroyBuffer(buffer gpu.Handle) {
	d.destroy(buffer, KindBuffer)
}

func (d *Device) BufferMemoryRequirements(buffer gpu.Handle) gpu.MemoryRequirements {
	o := d.lookup(buffer, KindBuffer)
	if o == nil {
		return gpu.MemoryRequirements{}
	}
	return d.requirements(uint64(cap(o.data)))
}

func (d *Device) bind(resource gpu.Handle, kind string, memory gpu.Handle) error {
	o := d.lookup(resource, kind)
	m := d.lookup(memory, KindMemory)
	if o == nil || m == nil {
		return errors.Newf("bind of unknown %s %d or memory %d", kind, resource, memory)
	}
	if o.boundMem != gpu.NullHandle {
		d.violate("%s %d bound to memory twice", kind, resource)
	}
	o.boundMem = memory
	return nil
}

func (d *Device) BindBufferMemory(buffer, memory gpu.Handle) error {
	return d.bind(buffer, KindBuffer, memory)
}

func (d *Device) CreateImage(desc gpu.ImageDesc) (gpu.Handle, error) {
	if desc.Extent.IsZero() {
		return gpu.NullHandle, errors.New("image extent must not be zero")
	}
	h, o, err := d.create(KindImage, gpu.NullHandle)
	if err != nil {
		return h, err
	}
	o.extent = desc.Extent
	o.layout = gpu.ImageLayoutUndefined
	return h, nil
}

func (d *Device) DestroyImage(image gpu.Handle) {
	d.destroy(image, KindImage)
}

func (d *Device) ImageMemoryRequirements(image gpu.Handle) gpu.MemoryRequirements {
	o := d.lookup(image, KindImage)
	if o == nil {
		return gpu.MemoryRequirements{}
	}
	return d.requirements(uint64(o.extent.Width) * uint64(o.extent.Height) * 4)
}

func (d *Device) BindImageMemory(image, memory gpu.Handle) error {
	return d.bind(image, KindImage, memory)
}

func (d *Device) CreateImageView(image gpu.Handle, format gpu.Format, aspect gpu.ImageAspect) (gpu.Handle, error) {
	o, ok := d.objects[image]
	if !ok || (o.kind != KindImage && o.kind != KindSwapchainImage) {
		d.violate("image view created for unknown image %d", image)
		return gpu.NullHandle, errors.Newf("unknown image %d", image)
	}
	h, _, err := d.create(KindImageView, gpu.NullHandle)
	return h, err
}

func (d *Device) DestroyImageView(view gpu.Handle) {
	d.destroy(view, KindImageView)
}

func (d *Device) CreateSampler(desc gpu.SamplerDesc) (gpu.Handle, error) {
	h, _, err := d.create(KindSampler, gpu.NullHandle)
	return h, err
}

func (d *Device) DestroySampler(sampler gpu.Handle) {
	d.destroy(sampler, KindSampler)
}

func (d *Device) SupportsDepthFormat(format gpu.Format) bool {
	for _, f := range d.DepthFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (d *Device) SurfaceSupport() (gpu.SurfaceSupport, error) {
	return d.Support, nil
}

func (d *Device) CreateSwapchain(desc gpu.SwapchainDesc) (gpu.Handle, error) {
	if desc.Extent.IsZero() {
		d.violate("swapchain created with zero extent")
		return gpu.NullHandle, errors.New("swapchain extent must not be zero")
	}
	h, o, err := d.create(KindSwapchain, gpu.NullHandle)
	if err != nil {
		return h, err
	}
	o.desc = desc
	for i := uint32(0); i < desc.MinImageCount; i++ {
		img, io, _ := d.create(KindSwapchainImage, h)
		io.extent = desc.Extent
		o.images = append(o.images, img)
	}
	return h, nil
}

func (d *Device) DestroySwapchain(swapchain gpu.Handle) {
	d.destroy(swapchain, KindSwapchain)
}

func (d *Device) SwapchainImages(swapchain gpu.Handle) ([]gpu.Handle, error) {
	o := d.lookup(swapchain, KindSwapchain)
	if o == nil {
		return nil, errors.Newf("unknown swapchain %d", swapchain)
	}
	return append([]gpu.Handle(nil), o.images...), nil
}

func (d *Device) CreateRenderPass(desc gpu.RenderPassDesc) (gpu.Handle, error) {
	h, _, err := d.create(KindRenderPass, gpu.NullHandle)
	return h, err
}

func (d *Device) DestroyRenderPass(renderPass gpu.Handle) {
	d.destroy(renderPass, KindRenderPass)
}

func (d *Device) CreateFramebuffer(renderPass gpu.Handle, attachments []gpu.Handle, extent gpu.Extent2D) (gpu.Handle, error) {
	if d.lookup(renderPass, KindRenderPass) == nil {
		return gpu.NullHandle, errors.Newf("unknown render pass %d", renderPass)
	}
	for _, a := range attachments {
		if d.lookup(a, KindImageView) == nil {
			return gpu.NullHandle, errors.Newf("unknown attachment %d", a)
		}
	}
	h, _, err := d.create(KindFramebuffer, gpu.NullHandle)
	return h, err
}

func (d *Device) DestroyFramebuffer(framebuffer gpu.Handle) {
	d.destroy(framebuffer, KindFramebuffer)
}

func (d *Device) CreateShaderModule(code []byte) (gpu.Handle, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return gpu.NullHandle, errors.Newf("shader code size %d is not a multiple of 4", len(code))
	}
	h, _, err := d.create(KindShaderModule, gpu.NullHandle)
	return h, err
}

func (d *Device) DestroyShaderModule(module gpu.Handle) {
	d.destroy(module, KindShaderModule)
}

func (d *Device) CreateDescriptorSetLayout(bindings []gpu.DescriptorBinding) (gpu.Handle, error) {
	h, _, err := d.create(KindDescriptorSetLayout, gpu.NullHandle)
	return h, err
}

func (d *Device) DestroyDescriptorSetLayout(layout gpu.Handle) {
	d.destroy(layout, KindDescriptorSetLayout)
}

func (d *Device) CreatePipelineLayout(setLayouts []gpu.Handle) (gpu.Handle, error) {
	for _, l := range setLayouts {
		if d.lookup(l, KindDescriptorSetLayout) == nil {
			return gpu.NullHandle, errors.Newf("unknown set layout %d", l)
		}
	}
	h, _, err := d.create(KindPipelineLayout, gpu.NullHandle)
	return h, err
}

func (d *Device) DestroyPipelineLayout(layout gpu.Handle) {
	d.destroy(layout, KindPipelineLayout)
}

func (d *Device) CreateGraphicsPipeline(desc gpu.PipelineDesc) (gpu.Handle, error) {
	if d.lookup(desc.VertexShader, KindShaderModule) == nil || d.lookup(desc.FragmentShader, KindShaderModule) == nil {
		return gpu.NullHandle, errors.New("pipeline created without live shader modules")
	}
	if d.lookup(desc.RenderPass, KindRenderPass) == nil || d.lookup(desc.Layout, KindPipelineLayout) == nil {
		return gpu.NullHandle, errors.New("pipeline created without a live render pass and layout")
	}
	h, o, err := d.create(KindPipeline, gpu.NullHandle)
	if err != nil {
		return h, err
	}
	o.pipeline = desc
	return h, nil
}

func (d *Device) DestroyPipeline(pipeline gpu.Handle) {
	d.destroy(pipeline, KindPipeline)
}

func (d *Device) CreateDescriptorPool(maxSets uint32, sizes []gpu.DescriptorPoolSize) (gpu.Handle, error) {
	h, _, err := d.create(KindDescriptorPool, gpu.NullHandle)
	return h, err
}

func (d *Device) DestroyDescriptorPool(pool gpu.Handle) {
	d.destroy(pool, KindDescriptorPool)
}

func (d *Device) AllocateDescriptorSet(pool, layout gpu.Handle) (gpu.Handle, error) {
	if d.lookup(pool, KindDescriptorPool) == nil || d.lookup(layout, KindDescriptorSetLayout) == nil {
		return gpu.NullHandle, errors.New("descriptor set allocated from unknown pool or layout")
	}
	h, o, err := d.create(KindDescriptorSet, pool)
	if err != nil {
		return h, err
	}
	o.writes = make(map[uint32]gpu.DescriptorWrite)
	return h, nil
}

func (d *Device) UpdateDescriptorSets(writes []gpu.DescriptorWrite) {
	for _, w := range writes {
		if o := d.lookup(w.Set, KindDescriptorSet); o != nil {
			o.writes[w.Binding] = w
		}
	}
}
