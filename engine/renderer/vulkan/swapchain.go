package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

// CreateSwapchain creates a swapchain for the device surface. The caller
// picks format, extent, image count and present mode; the old swapchain,
// if any, must already be destroyed.
func (d *Device) CreateSwapchain(desc gpu.SwapchainDesc) (gpu.Handle, error) {
	var caps vk.SurfaceCapabilities
	if err := check("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", vk.GetPhysicalDeviceSurfaceCapabilities(d.physicalDevice, d.surface, &caps)); err != nil {
		return gpu.NullHandle, err
	}
	caps.Deref()

	createInfo := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         d.surface,
		MinImageCount:   desc.MinImageCount,
		ImageFormat:     vk.Format(desc.Format.Format),
		ImageColorSpace: vk.ColorSpace(desc.Format.ColorSpace),
		ImageExtent: vk.Extent2D{
			Width:  desc.Extent.Width,
			Height: desc.Extent.Height,
		},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentMode(desc.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}
	if d.graphicsFamily != d.presentFamily {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{d.graphicsFamily, d.presentFamily}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchain vk.Swapchain
	if err := check("vkCreateSwapchainKHR", vk.CreateSwapchain(d.logicalDevice, &createInfo, nil, &swapchain)); err != nil {
		return gpu.NullHandle, err
	}
	core.LogDebug("Swapchain created: %dx%d, %s", desc.Extent.Width, desc.Extent.Height, desc.PresentMode)
	return d.objects.add(&swapchainObj{handle: swapchain}), nil
}

// DestroySwapchain also forgets the swapchain's images.
func (d *Device) DestroySwapchain(swapchain gpu.Handle) {
	sc, ok := d.objects.remove(swapchain).(*swapchainObj)
	if !ok {
		return
	}
	for _, img := range sc.images {
		d.objects.remove(img)
	}
	vk.DestroySwapchain(d.logicalDevice, sc.handle, nil)
}

func (d *Device) SwapchainImages(swapchain gpu.Handle) ([]gpu.Handle, error) {
	sc := d.swapchain(swapchain)
	if sc == nil {
		return nil, errors.Newf("unknown swapchain handle %d", swapchain)
	}
	if sc.images != nil {
		return sc.images, nil
	}
	var count uint32
	if err := check("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(d.logicalDevice, sc.handle, &count, nil)); err != nil {
		return nil, err
	}
	images := make([]vk.Image, count)
	if err := check("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(d.logicalDevice, sc.handle, &count, images)); err != nil {
		return nil, err
	}
	sc.images = make([]gpu.Handle, count)
	for i, img := range images {
		sc.images[i] = d.objects.add(&imageObj{handle: img, swapchain: true})
	}
	return sc.images, nil
}

// AcquireNextImage treats a suboptimal acquire as success; the present that
// follows reports it.
func (d *Device) AcquireNextImage(swapchain, signal gpu.Handle, timeout uint64) (uint32, error) {
	sc := d.swapchain(swapchain)
	if sc == nil {
		return 0, errors.Newf("unknown swapchain handle %d", swapchain)
	}
	var index uint32
	res := vk.AcquireNextImage(d.logicalDevice, sc.handle, timeout, d.semaphore(signal), vk.NullFence, &index)
	if res == vk.Suboptimal {
		return index, nil
	}
	if err := check("vkAcquireNextImageKHR", res); err != nil {
		return 0, err
	}
	return index, nil
}

func (d *Device) QueuePresent(swapchain gpu.Handle, imageIndex uint32, wait gpu.Handle) error {
	sc := d.swapchain(swapchain)
	if sc == nil {
		return errors.Newf("unknown swapchain handle %d", swapchain)
	}
	presentInfo := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{sc.handle},
		PImageIndices:  []uint32{imageIndex},
	}
	if wait != gpu.NullHandle {
		presentInfo.WaitSemaphoreCount = 1
		presentInfo.PWaitSemaphores = []vk.Semaphore{d.semaphore(wait)}
	}
	return d.locks.SafeQueueCall(d.presentFamily, func() error {
		return check("vkQueuePresentKHR", vk.QueuePresent(d.presentQueue, &presentInfo))
	})
}
