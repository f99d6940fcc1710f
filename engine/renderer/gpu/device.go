package gpu

// Device is the slice of the graphics API the renderer needs. The Vulkan
// backend implements it over a real logical device; gputest implements it
// with resource accounting so the frame logic can run without a GPU.
//
// Every Create*/Allocate* call is paired with exactly one Destroy*/Free*
// call. Commands are recorded into command buffers and take effect when the
// buffer is submitted.
type Device interface {
	// memory
	MemoryTypes() []MemoryType
	AllocateMemory(size uint64, typeIndex uint32) (Handle, error)
	FreeMemory(memory Handle)
	MapMemory(memory Handle, offset, size uint64) ([]byte, error)
	UnmapMemory(memory Handle)

	// buffers and images
	CreateBuffer(size uint64, usage BufferUsage) (Handle, error)
	DestroyBuffer(buffer Handle)
	BufferMemoryRequirements(buffer Handle) MemoryRequirements
	BindBufferMemory(buffer, memory Handle) error
	CreateImage(desc ImageDesc) (Handle, error)
	DestroyImage(image Handle)
	ImageMemoryRequirements(image Handle) MemoryRequirements
	BindImageMemory(image, memory Handle) error
	CreateImageView(image Handle, format Format, aspect ImageAspect) (Handle, error)
	DestroyImageView(view Handle)
	CreateSampler(desc SamplerDesc) (Handle, error)
	DestroySampler(sampler Handle)
	SupportsDepthFormat(format Format) bool

	// presentation
	SurfaceSupport() (SurfaceSupport, error)
	CreateSwapchain(desc SwapchainDesc) (Handle, error)
	DestroySwapchain(swapchain Handle)
	SwapchainImages(swapchain Handle) ([]Handle, error)
	// AcquireNextImage returns ErrOutOfDate when the swapchain must be
	// recreated. A suboptimal acquire still yields a usable image.
	AcquireNextImage(swapchain, signal Handle, timeout uint64) (uint32, error)
	// QueuePresent returns ErrOutOfDate or ErrSuboptimal when the swapchain
	// should be recreated.
	QueuePresent(swapchain Handle, imageIndex uint32, wait Handle) error

	// pipeline objects
	CreateRenderPass(desc RenderPassDesc) (Handle, error)
	DestroyRenderPass(renderPass Handle)
	CreateFramebuffer(renderPass Handle, attachments []Handle, extent Extent2D) (Handle, error)
	DestroyFramebuffer(framebuffer Handle)
	CreateShaderModule(code []byte) (Handle, error)
	DestroyShaderModule(module Handle)
	CreateDescriptorSetLayout(bindings []DescriptorBinding) (Handle, error)
	DestroyDescriptorSetLayout(layout Handle)
	CreatePipelineLayout(setLayouts []Handle) (Handle, error)
	DestroyPipelineLayout(layout Handle)
	CreateGraphicsPipeline(desc PipelineDesc) (Handle, error)
	DestroyPipeline(pipeline Handle)
	CreateDescriptorPool(maxSets uint32, sizes []DescriptorPoolSize) (Handle, error)
	// DestroyDescriptorPool also frees every set allocated from the pool.
	DestroyDescriptorPool(pool Handle)
	AllocateDescriptorSet(pool, layout Handle) (Handle, error)
	UpdateDescriptorSets(writes []DescriptorWrite)

	// commands
	CreateCommandPool() (Handle, error)
	DestroyCommandPool(pool Handle)
	AllocateCommandBuffers(pool Handle, count uint32) ([]Handle, error)
	FreeCommandBuffers(pool Handle, buffers []Handle)
	ResetCommandBuffer(cb Handle) error
	BeginCommandBuffer(cb Handle, oneTimeSubmit bool) error
	EndCommandBuffer(cb Handle) error

	CmdBeginRenderPass(cb Handle, begin RenderPassBegin)
	CmdEndRenderPass(cb Handle)
	CmdSetViewport(cb Handle, extent Extent2D)
	CmdSetScissor(cb Handle, extent Extent2D)
	CmdBindPipeline(cb, pipeline Handle)
	CmdBindDescriptorSet(cb, layout Handle, index uint32, set Handle)
	CmdBindVertexBuffer(cb, buffer Handle, offset uint64)
	CmdBindIndexBuffer(cb, buffer Handle, offset uint64)
	CmdDraw(cb Handle, vertexCount, instanceCount, firstVertex, firstInstance uint32)
	CmdDrawIndexed(cb Handle, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	CmdCopyBuffer(cb, src, dst Handle, srcOffset, dstOffset, size uint64)
	CmdCopyBufferToImage(cb Handle, copy BufferImageCopy)
	CmdImageBarrier(cb Handle, barrier ImageBarrier)

	// synchronization
	CreateFence(signaled bool) (Handle, error)
	DestroyFence(fence Handle)
	WaitForFence(fence Handle, timeout uint64) error
	ResetFence(fence Handle) error
	CreateSemaphore() (Handle, error)
	DestroySemaphore(semaphore Handle)

	QueueSubmit(submit SubmitInfo) error
	QueueWaitIdle() error
	WaitIdle() error
}

// WaitForever is the timeout used for fence and acquire waits that must not
// give up.
const WaitForever uint64 = ^uint64(0)
