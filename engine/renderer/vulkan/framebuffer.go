package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

func (d *Device) CreateFramebuffer(renderPass gpu.Handle, attachments []gpu.Handle, extent gpu.Extent2D) (gpu.Handle, error) {
	views := make([]vk.ImageView, len(attachments))
	for i, a := range attachments {
		views[i] = d.imageView(a)
	}
	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      d.renderPass(renderPass),
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}
	var framebuffer vk.Framebuffer
	if err := check("vkCreateFramebuffer", vk.CreateFramebuffer(d.logicalDevice, &framebufferCreateInfo, nil, &framebuffer)); err != nil {
		return gpu.NullHandle, err
	}
	return d.objects.add(framebuffer), nil
}

func (d *Device) DestroyFramebuffer(framebuffer gpu.Handle) {
	if fb, ok := d.objects.remove(framebuffer).(vk.Framebuffer); ok {
		vk.DestroyFramebuffer(d.logicalDevice, fb, nil)
	}
}
