package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

// Memory visibility used throughout the renderer.
const (
	DeviceLocal = gpu.MemoryPropertyDeviceLocal
	HostVisible = gpu.MemoryPropertyHostVisible | gpu.MemoryPropertyHostCoherent
)

// FindMemoryType returns the first memory type allowed by typeBits whose
// properties include all of props.
func FindMemoryType(types []gpu.MemoryType, typeBits uint32, props gpu.MemoryProperty) (uint32, error) {
	for i := range types {
		// Check each memory type to see if its bit is set to 1.
		if typeBits&(1<<uint(i)) != 0 && types[i].Properties&props == props {
			return uint32(i), nil
		}
	}
	return 0, errors.Newf("no memory type matches bits %#b with properties %#x", typeBits, props)
}

// Allocator creates buffers and images with dedicated memory allocations.
type Allocator struct {
	device gpu.Device
	types  []gpu.MemoryType
}

func NewAllocator(device gpu.Device) *Allocator {
	return &Allocator{
		device: device,
		types:  device.MemoryTypes(),
	}
}

func (a *Allocator) Device() gpu.Device {
	return a.device
}

// Buffer is a device buffer with its own memory allocation.
type Buffer struct {
	device gpu.Device

	Handle gpu.Handle
	Memory gpu.Handle
	Size   uint64
	Usage  gpu.BufferUsage
	Props  gpu.MemoryProperty

	mapped []byte
}

// CreateBuffer creates the buffer, allocates memory of a matching type and
// binds it.
func (a *Allocator) CreateBuffer(size uint64, usage gpu.BufferUsage, props gpu.MemoryProperty) (*Buffer, error) {
	handle, err := a.device.CreateBuffer(size, usage)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create buffer of %d bytes", size)
	}
	req := a.device.BufferMemoryRequirements(handle)
	memory, err := a.allocate(req, props)
	if err != nil {
		a.device.DestroyBuffer(handle)
		return nil, errors.Wrap(err, "failed to allocate buffer memory")
	}
	if err := a.device.BindBufferMemory(handle, memory); err != nil {
		a.device.FreeMemory(memory)
		a.device.DestroyBuffer(handle)
		return nil, errors.Wrap(err, "failed to bind buffer memory")
	}
	return &Buffer{
		device: a.device,
		Handle: handle,
		Memory: memory,
		Size:   size,
		Usage:  usage,
		Props:  props,
	}, nil
}

func (a *Allocator) allocate(req gpu.MemoryRequirements, props gpu.MemoryProperty) (gpu.Handle, error) {
	index, err := FindMemoryType(a.types, req.TypeBits, props)
	if err != nil {
		core.LogWarn("Unable to find suitable memory type!")
		return gpu.NullHandle, err
	}
	return a.device.AllocateMemory(req.Size, index)
}

// Map maps the whole buffer. The mapping stays valid until Release.
func (b *Buffer) Map() ([]byte, error) {
	if b.mapped != nil {
		return b.mapped, nil
	}
	if b.Props&gpu.MemoryPropertyHostVisible == 0 {
		return nil, errors.Newf("buffer %d is not host visible", b.Handle)
	}
	data, err := b.device.MapMemory(b.Memory, 0, b.Size)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to map buffer %d", b.Handle)
	}
	b.mapped = data
	return data, nil
}

// Write copies data into the mapped buffer at offset.
func (b *Buffer) Write(offset uint64, data []byte) error {
	if offset+uint64(len(data)) > b.Size {
		return errors.Newf("write of %d bytes at offset %d overflows buffer of %d bytes", len(data), offset, b.Size)
	}
	mapped, err := b.Map()
	if err != nil {
		return err
	}
	copy(mapped[offset:], data)
	return nil
}

func (b *Buffer) Release() {
	if b == nil || b.Handle == gpu.NullHandle {
		return
	}
	if b.mapped != nil {
		b.device.UnmapMemory(b.Memory)
		b.mapped = nil
	}
	b.device.DestroyBuffer(b.Handle)
	b.device.FreeMemory(b.Memory)
	b.Handle = gpu.NullHandle
	b.Memory = gpu.NullHandle
}

// Image is a device image with its own memory allocation.
type Image struct {
	device gpu.Device

	Handle gpu.Handle
	Memory gpu.Handle
	Extent gpu.Extent2D
	Format gpu.Format
}

func (a *Allocator) CreateImage(desc gpu.ImageDesc, props gpu.MemoryProperty) (*Image, error) {
	handle, err := a.device.CreateImage(desc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %dx%d image", desc.Extent.Width, desc.Extent.Height)
	}
	req := a.device.ImageMemoryRequirements(handle)
	memory, err := a.allocate(req, props)
	if err != nil {
		a.device.DestroyImage(handle)
		return nil, errors.Wrap(err, "failed to allocate image memory")
	}
	if err := a.device.BindImageMemory(handle, memory); err != nil {
		a.device.FreeMemory(memory)
		a.device.DestroyImage(handle)
		return nil, errors.Wrap(err, "failed to bind image memory")
	}
	return &Image{
		device: a.device,
		Handle: handle,
		Memory: memory,
		Extent: desc.Extent,
		Format: desc.Format,
	}, nil
}

func (i *Image) Release() {
	if i == nil || i.Handle == gpu.NullHandle {
		return
	}
	i.device.DestroyImage(i.Handle)
	i.device.FreeMemory(i.Memory)
	i.Handle = gpu.NullHandle
	i.Memory = gpu.NullHandle
}
