package gpu

// Handle is an opaque reference to a device object. The backend decides what
// it maps to; NullHandle never refers to a live object.
type Handle uint64

const NullHandle Handle = 0

// Format values mirror VkFormat so the backend can cast them directly.
type Format uint32

const (
	FormatUndefined       Format = 0
	FormatR8G8B8A8Unorm   Format = 37
	FormatR8G8B8A8Srgb    Format = 43
	FormatB8G8R8A8Unorm   Format = 44
	FormatB8G8R8A8Srgb    Format = 50
	FormatR32G32Sfloat    Format = 103
	FormatR32G32B32Sfloat Format = 106
	FormatD32Sfloat       Format = 126
	FormatD24UnormS8Uint  Format = 129
	FormatD32SfloatS8Uint Format = 130
)

// HasStencil reports whether a depth format also carries a stencil component.
func (f Format) HasStencil() bool {
	return f == FormatD32SfloatS8Uint || f == FormatD24UnormS8Uint
}

type ColorSpace uint32

const ColorSpaceSrgbNonlinear ColorSpace = 0

type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

type PresentMode uint32

const (
	PresentModeImmediate   PresentMode = 0
	PresentModeMailbox     PresentMode = 1
	PresentModeFifo        PresentMode = 2
	PresentModeFifoRelaxed PresentMode = 3
)

func (p PresentMode) String() string {
	switch p {
	case PresentModeImmediate:
		return "immediate"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeFifo:
		return "fifo"
	case PresentModeFifoRelaxed:
		return "fifo_relaxed"
	}
	return "unknown"
}

type Extent2D struct {
	Width  uint32
	Height uint32
}

func (e Extent2D) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// UndefinedExtent is reported as the current surface extent when the window
// system lets the swapchain decide its own size.
const UndefinedExtent uint32 = 0xFFFFFFFF

type SurfaceCapabilities struct {
	MinImageCount  uint32
	MaxImageCount  uint32 // 0 means unbounded
	CurrentExtent  Extent2D
	MinImageExtent Extent2D
	MaxImageExtent Extent2D
}

type SurfaceSupport struct {
	Capabilities SurfaceCapabilities
	Formats      []SurfaceFormat
	PresentModes []PresentMode
}

type BufferUsage uint32

const (
	BufferUsageTransferSrc BufferUsage = 0x01
	BufferUsageTransferDst BufferUsage = 0x02
	BufferUsageUniform     BufferUsage = 0x10
	BufferUsageStorage     BufferUsage = 0x20
	BufferUsageIndex       BufferUsage = 0x40
	BufferUsageVertex      BufferUsage = 0x80
)

type ImageUsage uint32

const (
	ImageUsageTransferSrc            ImageUsage = 0x01
	ImageUsageTransferDst            ImageUsage = 0x02
	ImageUsageSampled                ImageUsage = 0x04
	ImageUsageColorAttachment        ImageUsage = 0x10
	ImageUsageDepthStencilAttachment ImageUsage = 0x20
)

type MemoryProperty uint32

const (
	MemoryPropertyDeviceLocal  MemoryProperty = 0x01
	MemoryPropertyHostVisible  MemoryProperty = 0x02
	MemoryPropertyHostCoherent MemoryProperty = 0x04
)

type MemoryType struct {
	Properties MemoryProperty
	HeapIndex  uint32
}

type MemoryRequirements struct {
	Size      uint64
	Alignment uint64
	TypeBits  uint32
}

type ImageAspect uint32

const (
	ImageAspectColor   ImageAspect = 0x01
	ImageAspectDepth   ImageAspect = 0x02
	ImageAspectStencil ImageAspect = 0x04
)

// ImageLayout values mirror VkImageLayout.
type ImageLayout uint32

const (
	ImageLayoutUndefined                     ImageLayout = 0
	ImageLayoutColorAttachmentOptimal        ImageLayout = 2
	ImageLayoutDepthStencilAttachmentOptimal ImageLayout = 3
	ImageLayoutShaderReadOnlyOptimal         ImageLayout = 5
	ImageLayoutTransferDstOptimal            ImageLayout = 7
	ImageLayoutPresentSrc                    ImageLayout = 1000001002
)

type ShaderStage uint32

const (
	ShaderStageVertex   ShaderStage = 0x01
	ShaderStageFragment ShaderStage = 0x10
)

type ImageDesc struct {
	Extent Extent2D
	Format Format
	Usage  ImageUsage
}

type Filter uint32

const (
	FilterNearest Filter = 0
	FilterLinear  Filter = 1
)

type AddressMode uint32

const (
	AddressModeRepeat      AddressMode = 0
	AddressModeClampToEdge AddressMode = 2
)

type SamplerDesc struct {
	MinFilter     Filter
	MagFilter     Filter
	AddressMode   AddressMode
	MaxAnisotropy float32 // 0 disables anisotropic filtering
}

type DescriptorType uint32

const (
	DescriptorTypeCombinedImageSampler DescriptorType = 1
	DescriptorTypeUniformBuffer        DescriptorType = 6
	DescriptorTypeStorageBuffer        DescriptorType = 7
)

type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	Stages  ShaderStage
}

type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

// DescriptorWrite points one binding of a set at either a buffer range or an
// image view + sampler pair, depending on Type.
type DescriptorWrite struct {
	Set     Handle
	Binding uint32
	Type    DescriptorType

	Buffer Handle
	Offset uint64
	Range  uint64

	ImageView Handle
	Sampler   Handle
}

type VertexAttribute struct {
	Location uint32
	Format   Format
	Offset   uint32
}

type VertexLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

type CompareOp uint32

const (
	CompareOpLess CompareOp = 1
)

type PipelineDesc struct {
	RenderPass     Handle
	Layout         Handle
	VertexShader   Handle
	FragmentShader Handle
	VertexLayout   VertexLayout

	CullBackFaces   bool
	FrontFaceCCW    bool
	DepthTest       bool
	DepthWrite      bool
	DepthCompare    CompareOp
	BlendEnabled    bool
	DynamicViewport bool
}

type LoadOp uint32

const (
	LoadOpLoad     LoadOp = 0
	LoadOpClear    LoadOp = 1
	LoadOpDontCare LoadOp = 2
)

type StoreOp uint32

const (
	StoreOpStore    StoreOp = 0
	StoreOpDontCare StoreOp = 1
)

type AttachmentDesc struct {
	Format        Format
	LoadOp        LoadOp
	StoreOp       StoreOp
	InitialLayout ImageLayout
	FinalLayout   ImageLayout
}

// RenderPassDesc describes a single subpass pass with one color attachment and
// an optional depth attachment.
type RenderPassDesc struct {
	Color AttachmentDesc
	Depth *AttachmentDesc
}

type RenderPassBegin struct {
	RenderPass  Handle
	Framebuffer Handle
	Extent      Extent2D
	ClearColor  [4]float32
	ClearDepth  float32
}

type ImageBarrier struct {
	Image     Handle
	Aspect    ImageAspect
	OldLayout ImageLayout
	NewLayout ImageLayout
}

type BufferImageCopy struct {
	Buffer Handle
	Image  Handle
	Extent Extent2D
}

type SubmitInfo struct {
	CommandBuffers   []Handle
	WaitSemaphores   []Handle // waited at the color attachment output stage
	SignalSemaphores []Handle
	Fence            Handle
}

type SwapchainDesc struct {
	MinImageCount uint32
	Format        SurfaceFormat
	Extent        Extent2D
	PresentMode   PresentMode
}
