package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

func (d *Device) CreateFence(signaled bool) (gpu.Handle, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if err := check("vkCreateFence", vk.CreateFence(d.logicalDevice, &fenceCreateInfo, nil, &fence)); err != nil {
		return gpu.NullHandle, err
	}
	return d.objects.add(fence), nil
}

func (d *Device) DestroyFence(fence gpu.Handle) {
	if f, ok := d.objects.remove(fence).(vk.Fence); ok {
		vk.DestroyFence(d.logicalDevice, f, nil)
	}
}

func (d *Device) WaitForFence(fence gpu.Handle, timeout uint64) error {
	err := check("vkWaitForFences", vk.WaitForFences(d.logicalDevice, 1, []vk.Fence{d.fence(fence)}, vk.True, timeout))
	if err != nil && !errors.Is(err, gpu.ErrTimeout) {
		core.LogError("vk_fence_wait - %s", err)
	}
	return err
}

func (d *Device) ResetFence(fence gpu.Handle) error {
	return check("vkResetFences", vk.ResetFences(d.logicalDevice, 1, []vk.Fence{d.fence(fence)}))
}

func (d *Device) CreateSemaphore() (gpu.Handle, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if err := check("vkCreateSemaphore", vk.CreateSemaphore(d.logicalDevice, &semaphoreCreateInfo, nil, &semaphore)); err != nil {
		return gpu.NullHandle, err
	}
	return d.objects.add(semaphore), nil
}

func (d *Device) DestroySemaphore(semaphore gpu.Handle) {
	if s, ok := d.objects.remove(semaphore).(vk.Semaphore); ok {
		vk.DestroySemaphore(d.logicalDevice, s, nil)
	}
}

// QueueSubmit submits to the graphics queue. Wait semaphores are waited on
// at the color attachment output stage.
func (d *Device) QueueSubmit(submit gpu.SubmitInfo) error {
	cbs := make([]vk.CommandBuffer, len(submit.CommandBuffers))
	for i, h := range submit.CommandBuffers {
		cbs[i] = d.commandBuffer(h)
	}
	waits := d.semaphores(submit.WaitSemaphores)
	stages := make([]vk.PipelineStageFlags, len(waits))
	for i := range stages {
		stages[i] = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	}
	signals := d.semaphores(submit.SignalSemaphores)

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      waits,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   uint32(len(cbs)),
		PCommandBuffers:      cbs,
		SignalSemaphoreCount: uint32(len(signals)),
		PSignalSemaphores:    signals,
	}
	fence := vk.NullFence
	if submit.Fence != gpu.NullHandle {
		fence = d.fence(submit.Fence)
	}
	return d.locks.SafeQueueCall(d.graphicsFamily, func() error {
		return check("vkQueueSubmit", vk.QueueSubmit(d.graphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence))
	})
}

func (d *Device) QueueWaitIdle() error {
	return d.locks.SafeQueueCall(d.graphicsFamily, func() error {
		return check("vkQueueWaitIdle", vk.QueueWaitIdle(d.graphicsQueue))
	})
}
