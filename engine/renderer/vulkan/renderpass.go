package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

// CreateRenderPass builds a single subpass pass with one color attachment
// and an optional depth attachment.
func (d *Device) CreateRenderPass(desc gpu.RenderPassDesc) (gpu.Handle, error) {
	attachments := []vk.AttachmentDescription{attachmentDescription(desc.Color)}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
	}

	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	access := vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	if desc.Depth != nil {
		attachments = append(attachments, attachmentDescription(*desc.Depth))
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: 1,
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		stages |= vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
		access |= vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
	}

	// the color and depth writes of this frame wait for the previous frame
	// to finish using the attachments
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  stages,
		SrcAccessMask: 0,
		DstStageMask:  stages,
		DstAccessMask: access,
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
	var renderPass vk.RenderPass
	if err := check("vkCreateRenderPass", vk.CreateRenderPass(d.logicalDevice, &renderpassCreateInfo, nil, &renderPass)); err != nil {
		return gpu.NullHandle, err
	}
	return d.objects.add(renderPass), nil
}

func attachmentDescription(a gpu.AttachmentDesc) vk.AttachmentDescription {
	return vk.AttachmentDescription{
		Format:         vk.Format(a.Format),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOp(a.LoadOp),
		StoreOp:        vk.AttachmentStoreOp(a.StoreOp),
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayout(a.InitialLayout),
		FinalLayout:    vk.ImageLayout(a.FinalLayout),
	}
}

func (d *Device) DestroyRenderPass(renderPass gpu.Handle) {
	if rp, ok := d.objects.remove(renderPass).(vk.RenderPass); ok {
		vk.DestroyRenderPass(d.logicalDevice, rp, nil)
	}
}

// CmdBeginRenderPass clears color and, when the pass has one, depth.
func (d *Device) CmdBeginRenderPass(cb gpu.Handle, begin gpu.RenderPassBegin) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  d.renderPass(begin.RenderPass),
		Framebuffer: d.framebuffer(begin.Framebuffer),
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{
				Width:  begin.Extent.Width,
				Height: begin.Extent.Height,
			},
		},
	}

	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor(begin.ClearColor[:])
	clearValues[1].SetDepthStencil(begin.ClearDepth, 0)

	beginInfo.ClearValueCount = uint32(len(clearValues))
	beginInfo.PClearValues = clearValues

	vk.CmdBeginRenderPass(d.commandBuffer(cb), &beginInfo, vk.SubpassContentsInline)
}

func (d *Device) CmdEndRenderPass(cb gpu.Handle) {
	vk.CmdEndRenderPass(d.commandBuffer(cb))
}
