package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

// CreateCommandPool creates a pool on the graphics family whose buffers can
// be reset one at a time.
func (d *Device) CreateCommandPool() (gpu.Handle, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.graphicsFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if err := check("vkCreateCommandPool", vk.CreateCommandPool(d.logicalDevice, &poolCreateInfo, nil, &pool)); err != nil {
		return gpu.NullHandle, err
	}
	return d.objects.add(&commandPoolObj{handle: pool}), nil
}

func (d *Device) DestroyCommandPool(pool gpu.Handle) {
	if p, ok := d.objects.remove(pool).(*commandPoolObj); ok {
		vk.DestroyCommandPool(d.logicalDevice, p.handle, nil)
	}
}

func (d *Device) AllocateCommandBuffers(pool gpu.Handle, count uint32) ([]gpu.Handle, error) {
	p := d.commandPool(pool)
	if p == nil {
		return nil, errors.Newf("unknown command pool handle %d", pool)
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.handle,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	}
	buffers := make([]vk.CommandBuffer, count)
	err := d.locks.SafeCall(PoolManagement, func() error {
		return check("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(d.logicalDevice, &allocateInfo, buffers))
	})
	if err != nil {
		return nil, err
	}
	handles := make([]gpu.Handle, count)
	for i, cb := range buffers {
		handles[i] = d.objects.add(cb)
	}
	return handles, nil
}

func (d *Device) FreeCommandBuffers(pool gpu.Handle, buffers []gpu.Handle) {
	p := d.commandPool(pool)
	if p == nil {
		return
	}
	cbs := make([]vk.CommandBuffer, 0, len(buffers))
	for _, h := range buffers {
		if cb, ok := d.objects.remove(h).(vk.CommandBuffer); ok {
			cbs = append(cbs, cb)
		}
	}
	if len(cbs) == 0 {
		return
	}
	d.locks.SafeCall(PoolManagement, func() error {
		vk.FreeCommandBuffers(d.logicalDevice, p.handle, uint32(len(cbs)), cbs)
		return nil
	})
}

func (d *Device) ResetCommandBuffer(cb gpu.Handle) error {
	return check("vkResetCommandBuffer", vk.ResetCommandBuffer(d.commandBuffer(cb), 0))
}

func (d *Device) BeginCommandBuffer(cb gpu.Handle, oneTimeSubmit bool) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if oneTimeSubmit {
		beginInfo.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	return check("vkBeginCommandBuffer", vk.BeginCommandBuffer(d.commandBuffer(cb), &beginInfo))
}

func (d *Device) EndCommandBuffer(cb gpu.Handle) error {
	return check("vkEndCommandBuffer", vk.EndCommandBuffer(d.commandBuffer(cb)))
}

func (d *Device) CmdBindVertexBuffer(cb, buffer gpu.Handle, offset uint64) {
	vk.CmdBindVertexBuffers(d.commandBuffer(cb), 0, 1, []vk.Buffer{d.buffer(buffer)}, []vk.DeviceSize{vk.DeviceSize(offset)})
}

// CmdBindIndexBuffer binds 32-bit indices.
func (d *Device) CmdBindIndexBuffer(cb, buffer gpu.Handle, offset uint64) {
	vk.CmdBindIndexBuffer(d.commandBuffer(cb), d.buffer(buffer), vk.DeviceSize(offset), vk.IndexTypeUint32)
}

func (d *Device) CmdDraw(cb gpu.Handle, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(d.commandBuffer(cb), vertexCount, instanceCount, firstVertex, firstInstance)
}

func (d *Device) CmdDrawIndexed(cb gpu.Handle, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(d.commandBuffer(cb), indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (d *Device) CmdCopyBuffer(cb, src, dst gpu.Handle, srcOffset, dstOffset, size uint64) {
	region := vk.BufferCopy{
		SrcOffset: vk.DeviceSize(srcOffset),
		DstOffset: vk.DeviceSize(dstOffset),
		Size:      vk.DeviceSize(size),
	}
	vk.CmdCopyBuffer(d.commandBuffer(cb), d.buffer(src), d.buffer(dst), 1, []vk.BufferCopy{region})
}

// CmdCopyBufferToImage copies tightly packed pixels into the color aspect
// of an image in the transfer destination layout.
func (d *Device) CmdCopyBufferToImage(cb gpu.Handle, copy gpu.BufferImageCopy) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{
			Width:  copy.Extent.Width,
			Height: copy.Extent.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(d.commandBuffer(cb), d.buffer(copy.Buffer), d.image(copy.Image),
		vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

// transitionMasks returns the access masks and stages for a layout change.
// Transitions it does not know fall back to a full pipeline barrier.
func transitionMasks(oldLayout, newLayout gpu.ImageLayout) (srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags) {
	switch {
	case oldLayout == gpu.ImageLayoutUndefined && newLayout == gpu.ImageLayoutTransferDstOptimal:
		return 0, vk.AccessFlags(vk.AccessTransferWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case oldLayout == gpu.ImageLayoutTransferDstOptimal && newLayout == gpu.ImageLayoutShaderReadOnlyOptimal:
		return vk.AccessFlags(vk.AccessTransferWriteBit), vk.AccessFlags(vk.AccessShaderReadBit),
			vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	case oldLayout == gpu.ImageLayoutUndefined && newLayout == gpu.ImageLayoutDepthStencilAttachmentOptimal:
		return 0, vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
	}
	all := vk.AccessFlags(vk.AccessMemoryReadBit | vk.AccessMemoryWriteBit)
	return all, all, vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit), vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
}

func (d *Device) CmdImageBarrier(cb gpu.Handle, barrier gpu.ImageBarrier) {
	srcAccess, dstAccess, srcStage, dstStage := transitionMasks(barrier.OldLayout, barrier.NewLayout)
	imageBarrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           vk.ImageLayout(barrier.OldLayout),
		NewLayout:           vk.ImageLayout(barrier.NewLayout),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               d.image(barrier.Image),
		SubresourceRange:    subresourceRange(barrier.Aspect),
	}
	vk.CmdPipelineBarrier(d.commandBuffer(cb), srcStage, dstStage, 0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{imageBarrier})
}
