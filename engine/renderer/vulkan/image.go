package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

// CreateImage creates a single mip, optimally tiled 2D image.
func (d *Device) CreateImage(desc gpu.ImageDesc) (gpu.Handle, error) {
	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    vk.Format(desc.Format),
		Extent: vk.Extent3D{
			Width:  desc.Extent.Width,
			Height: desc.Extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var image vk.Image
	if err := check("vkCreateImage", vk.CreateImage(d.logicalDevice, &imageInfo, nil, &image)); err != nil {
		return gpu.NullHandle, err
	}
	return d.objects.add(&imageObj{handle: image}), nil
}

func (d *Device) DestroyImage(image gpu.Handle) {
	img, ok := d.objects.get(image).(*imageObj)
	if !ok || img.swapchain {
		return
	}
	d.objects.remove(image)
	vk.DestroyImage(d.logicalDevice, img.handle, nil)
}

func (d *Device) ImageMemoryRequirements(image gpu.Handle) gpu.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.logicalDevice, d.image(image), &req)
	req.Deref()
	return gpu.MemoryRequirements{
		Size:      uint64(req.Size),
		Alignment: uint64(req.Alignment),
		TypeBits:  req.MemoryTypeBits,
	}
}

func (d *Device) BindImageMemory(image, memory gpu.Handle) error {
	m := d.memory(memory)
	if m == nil {
		return &gpu.ResultError{Op: "vkBindImageMemory", Code: int32(vk.ErrorOutOfDeviceMemory), Name: "unknown memory handle"}
	}
	return check("vkBindImageMemory", vk.BindImageMemory(d.logicalDevice, d.image(image), m.handle, 0))
}

func (d *Device) CreateImageView(image gpu.Handle, format gpu.Format, aspect gpu.ImageAspect) (gpu.Handle, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    d.image(image),
		ViewType: vk.ImageViewType2d,
		Format:   vk.Format(format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: subresourceRange(aspect),
	}
	var view vk.ImageView
	if err := check("vkCreateImageView", vk.CreateImageView(d.logicalDevice, &viewInfo, nil, &view)); err != nil {
		return gpu.NullHandle, err
	}
	return d.objects.add(view), nil
}

func (d *Device) DestroyImageView(view gpu.Handle) {
	if v, ok := d.objects.remove(view).(vk.ImageView); ok {
		vk.DestroyImageView(d.logicalDevice, v, nil)
	}
}

// CreateSampler clamps the requested anisotropy to the device limit.
func (d *Device) CreateSampler(desc gpu.SamplerDesc) (gpu.Handle, error) {
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.Filter(desc.MagFilter),
		MinFilter:               vk.Filter(desc.MinFilter),
		MipmapMode:              vk.SamplerMipmapModeLinear,
		AddressModeU:            vk.SamplerAddressMode(desc.AddressMode),
		AddressModeV:            vk.SamplerAddressMode(desc.AddressMode),
		AddressModeW:            vk.SamplerAddressMode(desc.AddressMode),
		AnisotropyEnable:        vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	if desc.MaxAnisotropy > 0 {
		samplerInfo.AnisotropyEnable = vk.True
		samplerInfo.MaxAnisotropy = desc.MaxAnisotropy
		if limit := d.MaxSamplerAnisotropy(); samplerInfo.MaxAnisotropy > limit {
			samplerInfo.MaxAnisotropy = limit
		}
	}
	var sampler vk.Sampler
	if err := check("vkCreateSampler", vk.CreateSampler(d.logicalDevice, &samplerInfo, nil, &sampler)); err != nil {
		return gpu.NullHandle, err
	}
	return d.objects.add(sampler), nil
}

func (d *Device) DestroySampler(sampler gpu.Handle) {
	if s, ok := d.objects.remove(sampler).(vk.Sampler); ok {
		vk.DestroySampler(d.logicalDevice, s, nil)
	}
}

func subresourceRange(aspect gpu.ImageAspect) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(aspect),
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}
