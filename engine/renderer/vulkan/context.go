package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

// registry maps the opaque handles given to the renderer onto the Vulkan
// objects behind them. The zero value is ready to use.
type registry struct {
	mu      sync.Mutex
	next    gpu.Handle
	objects map[gpu.Handle]interface{}
}

func (r *registry) add(obj interface{}) gpu.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.objects == nil {
		r.objects = make(map[gpu.Handle]interface{})
	}
	r.next++
	r.objects[r.next] = obj
	return r.next
}

func (r *registry) get(h gpu.Handle) interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.objects[h]
}

func (r *registry) remove(h gpu.Handle) interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objects[h]
	if !ok {
		return nil
	}
	delete(r.objects, h)
	return obj
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objects)
}

type memoryObj struct {
	handle vk.DeviceMemory
	size   uint64
}

type imageObj struct {
	handle vk.Image
	// swapchain images belong to the swapchain and are never destroyed here
	swapchain bool
}

type swapchainObj struct {
	handle vk.Swapchain
	images []gpu.Handle
}

type descriptorPoolObj struct {
	handle vk.DescriptorPool
	sets   []gpu.Handle
}

type commandPoolObj struct {
	handle vk.CommandPool
}

// typed lookups; a missing or mistyped handle yields the Vulkan null value

func (d *Device) memory(h gpu.Handle) *memoryObj {
	m, _ := d.objects.get(h).(*memoryObj)
	return m
}

func (d *Device) buffer(h gpu.Handle) vk.Buffer {
	b, _ := d.objects.get(h).(vk.Buffer)
	return b
}

func (d *Device) image(h gpu.Handle) vk.Image {
	if img, ok := d.objects.get(h).(*imageObj); ok {
		return img.handle
	}
	return vk.NullImage
}

func (d *Device) imageView(h gpu.Handle) vk.ImageView {
	v, _ := d.objects.get(h).(vk.ImageView)
	return v
}

func (d *Device) sampler(h gpu.Handle) vk.Sampler {
	s, _ := d.objects.get(h).(vk.Sampler)
	return s
}

func (d *Device) swapchain(h gpu.Handle) *swapchainObj {
	s, _ := d.objects.get(h).(*swapchainObj)
	return s
}

func (d *Device) renderPass(h gpu.Handle) vk.RenderPass {
	rp, _ := d.objects.get(h).(vk.RenderPass)
	return rp
}

func (d *Device) framebuffer(h gpu.Handle) vk.Framebuffer {
	fb, _ := d.objects.get(h).(vk.Framebuffer)
	return fb
}

func (d *Device) shaderModule(h gpu.Handle) vk.ShaderModule {
	m, _ := d.objects.get(h).(vk.ShaderModule)
	return m
}

func (d *Device) setLayout(h gpu.Handle) vk.DescriptorSetLayout {
	l, _ := d.objects.get(h).(vk.DescriptorSetLayout)
	return l
}

func (d *Device) pipelineLayout(h gpu.Handle) vk.PipelineLayout {
	l, _ := d.objects.get(h).(vk.PipelineLayout)
	return l
}

func (d *Device) pipeline(h gpu.Handle) vk.Pipeline {
	p, _ := d.objects.get(h).(vk.Pipeline)
	return p
}

func (d *Device) descriptorPool(h gpu.Handle) *descriptorPoolObj {
	p, _ := d.objects.get(h).(*descriptorPoolObj)
	return p
}

func (d *Device) descriptorSet(h gpu.Handle) vk.DescriptorSet {
	s, _ := d.objects.get(h).(vk.DescriptorSet)
	return s
}

func (d *Device) commandPool(h gpu.Handle) *commandPoolObj {
	p, _ := d.objects.get(h).(*commandPoolObj)
	return p
}

func (d *Device) commandBuffer(h gpu.Handle) vk.CommandBuffer {
	cb, _ := d.objects.get(h).(vk.CommandBuffer)
	return cb
}

func (d *Device) fence(h gpu.Handle) vk.Fence {
	f, _ := d.objects.get(h).(vk.Fence)
	return f
}

func (d *Device) semaphore(h gpu.Handle) vk.Semaphore {
	s, _ := d.objects.get(h).(vk.Semaphore)
	return s
}

func (d *Device) semaphores(hs []gpu.Handle) []vk.Semaphore {
	out := make([]vk.Semaphore, len(hs))
	for i, h := range hs {
		out[i] = d.semaphore(h)
	}
	return out
}
