package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

type PhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	DeviceExtensionNames []string
	SamplerAnisotropy    bool
}

type QueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

func (q QueueFamilyInfo) complete() bool {
	return q.GraphicsFamilyIndex >= 0 && q.PresentFamilyIndex >= 0
}

// selectPhysicalDevice picks the first device meeting the requirements,
// preferring discrete GPUs over everything else.
func (d *Device) selectPhysicalDevice() error {
	var count uint32
	if err := check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(d.instance, &count, nil)); err != nil {
		return err
	}
	if count == 0 {
		return errors.Wrap(core.ErrNoSuitableDevice, "no devices which support Vulkan were found")
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(d.instance, &count, devices)); err != nil {
		return err
	}

	requirements := PhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		SamplerAnisotropy:    true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}

	bestScore := -1
	for _, pd := range devices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &properties)
		properties.Deref()
		var features vk.PhysicalDeviceFeatures
		vk.GetPhysicalDeviceFeatures(pd, &features)
		features.Deref()

		queues, ok := PhysicalDeviceMeetsRequirements(pd, d.surface, &properties, &features, &requirements)
		if !ok {
			continue
		}
		score := 0
		if properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			score = 2
		} else if properties.DeviceType == vk.PhysicalDeviceTypeIntegratedGpu {
			score = 1
		}
		if score <= bestScore {
			continue
		}
		bestScore = score
		d.physicalDevice = pd
		d.properties = properties
		d.features = features
		d.graphicsFamily = uint32(queues.GraphicsFamilyIndex)
		d.presentFamily = uint32(queues.PresentFamilyIndex)
	}
	if d.physicalDevice == nil {
		return errors.Wrap(core.ErrNoSuitableDevice, "no physical device meets the requirements")
	}

	vk.GetPhysicalDeviceMemoryProperties(d.physicalDevice, &d.memory)
	d.memory.Deref()
	for i := uint32(0); i < d.memory.MemoryTypeCount; i++ {
		d.memory.MemoryTypes[i].Deref()
	}
	logDeviceInfo(&d.properties, &d.memory)
	return nil
}

func logDeviceInfo(properties *vk.PhysicalDeviceProperties, memory *vk.PhysicalDeviceMemoryProperties) {
	core.LogInfo("Selected device: '%s'.", cString(properties.DeviceName[:]))
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(properties.DriverVersion).Major(),
		vk.Version(properties.DriverVersion).Minor(),
		vk.Version(properties.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(properties.ApiVersion).Major(),
		vk.Version(properties.ApiVersion).Minor(),
		vk.Version(properties.ApiVersion).Patch(),
	)
	for j := uint32(0); j < memory.MemoryHeapCount; j++ {
		memory.MemoryHeaps[j].Deref()
		memorySizeGib := float64(memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(memory.MemoryHeaps[j].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
		}
	}
}

// PhysicalDeviceMeetsRequirements checks queue families, swapchain support,
// device extensions and features. Graphics and present prefer the same
// family.
func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, properties *vk.PhysicalDeviceProperties, features *vk.PhysicalDeviceFeatures, requirements *PhysicalDeviceRequirements) (QueueFamilyInfo, bool) {
	queues := QueueFamilyInfo{GraphicsFamilyIndex: -1, PresentFamilyIndex: -1}
	name := cString(properties.DeviceName[:])

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, families)

	for i := range families {
		families[i].Deref()
		graphics := vk.QueueFlagBits(families[i].QueueFlags)&vk.QueueGraphicsBit != 0

		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return queues, false
		}
		present := supportsPresent == vk.True

		if graphics && present {
			queues.GraphicsFamilyIndex = int32(i)
			queues.PresentFamilyIndex = int32(i)
			break
		}
		if graphics && queues.GraphicsFamilyIndex < 0 {
			queues.GraphicsFamilyIndex = int32(i)
		}
		if present && queues.PresentFamilyIndex < 0 {
			queues.PresentFamilyIndex = int32(i)
		}
	}
	core.LogDebug("%s: graphics family %d, present family %d", name, queues.GraphicsFamilyIndex, queues.PresentFamilyIndex)

	if (requirements.Graphics && queues.GraphicsFamilyIndex < 0) || (requirements.Present && queues.PresentFamilyIndex < 0) {
		core.LogInfo("Device '%s' lacks the required queues, skipping.", name)
		return queues, false
	}

	support, err := querySurfaceSupport(device, surface)
	if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		core.LogInfo("Required swapchain support not present on '%s', skipping.", name)
		return queues, false
	}

	available, err := deviceExtensions(device)
	if err != nil {
		return queues, false
	}
	for _, ext := range requirements.DeviceExtensionNames {
		if _, ok := available[ext]; !ok {
			core.LogInfo("Required extension not found: '%s', skipping device.", ext)
			return queues, false
		}
	}
	if requirements.SamplerAnisotropy && features.SamplerAnisotropy == vk.False {
		core.LogInfo("Device does not support samplerAnisotropy, skipping.")
		return queues, false
	}
	return queues, queues.complete()
}

func deviceExtensions(device vk.PhysicalDevice) (map[string]struct{}, error) {
	var count uint32
	if err := check("vkEnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(device, "", &count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if err := check("vkEnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(device, "", &count, props)); err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, count)
	for i := range props {
		props[i].Deref()
		out[cString(props[i].ExtensionName[:])] = struct{}{}
	}
	return out, nil
}

func (d *Device) createLogicalDevice() error {
	core.LogInfo("Creating logical device...")

	families := []uint32{d.graphicsFamily}
	if d.presentFamily != d.graphicsFamily {
		families = append(families, d.presentFamily)
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: vk.True,
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	available, err := deviceExtensions(d.physicalDevice)
	if err != nil {
		return err
	}
	if _, ok := available["VK_KHR_portability_subset"]; ok {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}
	if err := check("vkCreateDevice", vk.CreateDevice(d.physicalDevice, &deviceCreateInfo, nil, &d.logicalDevice)); err != nil {
		return err
	}
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(d.logicalDevice, d.graphicsFamily, 0, &d.graphicsQueue)
	vk.GetDeviceQueue(d.logicalDevice, d.presentFamily, 0, &d.presentQueue)
	core.LogInfo("Queues obtained.")
	return nil
}

func (d *Device) MemoryTypes() []gpu.MemoryType {
	types := make([]gpu.MemoryType, d.memory.MemoryTypeCount)
	for i := range types {
		t := d.memory.MemoryTypes[i]
		types[i] = gpu.MemoryType{
			Properties: gpu.MemoryProperty(t.PropertyFlags),
			HeapIndex:  t.HeapIndex,
		}
	}
	return types
}

// SupportsDepthFormat reports whether format can back an optimally tiled
// depth attachment.
func (d *Device) SupportsDepthFormat(format gpu.Format) bool {
	var properties vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(d.physicalDevice, vk.Format(format), &properties)
	properties.Deref()
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	return properties.OptimalTilingFeatures&flags == flags
}

func (d *Device) MaxSamplerAnisotropy() float32 {
	d.properties.Limits.Deref()
	return d.properties.Limits.MaxSamplerAnisotropy
}

func querySurfaceSupport(device vk.PhysicalDevice, surface vk.Surface) (gpu.SurfaceSupport, error) {
	var support gpu.SurfaceSupport

	var caps vk.SurfaceCapabilities
	if err := check("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", vk.GetPhysicalDeviceSurfaceCapabilities(device, surface, &caps)); err != nil {
		return support, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	support.Capabilities = gpu.SurfaceCapabilities{
		MinImageCount:  caps.MinImageCount,
		MaxImageCount:  caps.MaxImageCount,
		CurrentExtent:  gpu.Extent2D{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height},
		MinImageExtent: gpu.Extent2D{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
		MaxImageExtent: gpu.Extent2D{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
	}

	var formatCount uint32
	if err := check("vkGetPhysicalDeviceSurfaceFormatsKHR", vk.GetPhysicalDeviceSurfaceFormats(device, surface, &formatCount, nil)); err != nil {
		return support, err
	}
	if formatCount != 0 {
		formats := make([]vk.SurfaceFormat, formatCount)
		if err := check("vkGetPhysicalDeviceSurfaceFormatsKHR", vk.GetPhysicalDeviceSurfaceFormats(device, surface, &formatCount, formats)); err != nil {
			return support, err
		}
		for i := range formats {
			formats[i].Deref()
			support.Formats = append(support.Formats, gpu.SurfaceFormat{
				Format:     gpu.Format(formats[i].Format),
				ColorSpace: gpu.ColorSpace(formats[i].ColorSpace),
			})
		}
	}

	var modeCount uint32
	if err := check("vkGetPhysicalDeviceSurfacePresentModesKHR", vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &modeCount, nil)); err != nil {
		return support, err
	}
	if modeCount != 0 {
		modes := make([]vk.PresentMode, modeCount)
		if err := check("vkGetPhysicalDeviceSurfacePresentModesKHR", vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &modeCount, modes)); err != nil {
			return support, err
		}
		for _, m := range modes {
			support.PresentModes = append(support.PresentModes, gpu.PresentMode(m))
		}
	}
	return support, nil
}

func (d *Device) SurfaceSupport() (gpu.SurfaceSupport, error) {
	var support gpu.SurfaceSupport
	err := d.locks.SafeCall(SurfaceManagement, func() error {
		var err error
		support, err = querySurfaceSupport(d.physicalDevice, d.surface)
		return err
	})
	return support, err
}

func (d *Device) WaitIdle() error {
	return check("vkDeviceWaitIdle", vk.DeviceWaitIdle(d.logicalDevice))
}
