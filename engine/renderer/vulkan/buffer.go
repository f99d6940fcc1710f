package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

func (d *Device) AllocateMemory(size uint64, typeIndex uint32) (gpu.Handle, error) {
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: typeIndex,
	}
	var memory vk.DeviceMemory
	if err := check("vkAllocateMemory", vk.AllocateMemory(d.logicalDevice, &allocInfo, nil, &memory)); err != nil {
		return gpu.NullHandle, err
	}
	return d.objects.add(&memoryObj{handle: memory, size: size}), nil
}

func (d *Device) FreeMemory(memory gpu.Handle) {
	if m, ok := d.objects.remove(memory).(*memoryObj); ok {
		vk.FreeMemory(d.logicalDevice, m.handle, nil)
	}
}

// MapMemory returns a slice over the mapped range. The slice is only valid
// until UnmapMemory.
func (d *Device) MapMemory(memory gpu.Handle, offset, size uint64) ([]byte, error) {
	m := d.memory(memory)
	if m == nil {
		return nil, &gpu.ResultError{Op: "vkMapMemory", Code: int32(vk.ErrorMemoryMapFailed), Name: "unknown memory handle"}
	}
	var data unsafe.Pointer
	if err := check("vkMapMemory", vk.MapMemory(d.logicalDevice, m.handle, vk.DeviceSize(offset), vk.DeviceSize(size), 0, &data)); err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(data), size), nil
}

func (d *Device) UnmapMemory(memory gpu.Handle) {
	if m := d.memory(memory); m != nil {
		vk.UnmapMemory(d.logicalDevice, m.handle)
	}
}

func (d *Device) CreateBuffer(size uint64, usage gpu.BufferUsage) (gpu.Handle, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := check("vkCreateBuffer", vk.CreateBuffer(d.logicalDevice, &bufferInfo, nil, &buffer)); err != nil {
		return gpu.NullHandle, err
	}
	return d.objects.add(buffer), nil
}

func (d *Device) DestroyBuffer(buffer gpu.Handle) {
	if b, ok := d.objects.remove(buffer).(vk.Buffer); ok {
		vk.DestroyBuffer(d.logicalDevice, b, nil)
	}
}

func (d *Device) BufferMemoryRequirements(buffer gpu.Handle) gpu.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.logicalDevice, d.buffer(buffer), &req)
	req.Deref()
	return gpu.MemoryRequirements{
		Size:      uint64(req.Size),
		Alignment: uint64(req.Alignment),
		TypeBits:  req.MemoryTypeBits,
	}
}

func (d *Device) BindBufferMemory(buffer, memory gpu.Handle) error {
	m := d.memory(memory)
	if m == nil {
		return &gpu.ResultError{Op: "vkBindBufferMemory", Code: int32(vk.ErrorOutOfDeviceMemory), Name: "unknown memory handle"}
	}
	return check("vkBindBufferMemory", vk.BindBufferMemory(d.logicalDevice, d.buffer(buffer), m.handle, 0))
}
