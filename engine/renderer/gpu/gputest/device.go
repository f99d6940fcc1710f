// Package gputest provides an in-memory gpu.Device that tracks every object it
// hands out. GPU work completes the moment it is submitted, which makes frame
// logic deterministic in tests.
package gputest

import (
	"fmt"

	"github.com/spaghettifunk/tessera/engine/math"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

// Object kinds used for accounting.
const (
	KindMemory              = "memory"
	KindBuffer              = "buffer"
	KindImage               = "image"
	KindImageView           = "image-view"
	KindSampler             = "sampler"
	KindSwapchain           = "swapchain"
	KindSwapchainImage      = "swapchain-image"
	KindRenderPass          = "render-pass"
	KindFramebuffer         = "framebuffer"
	KindShaderModule        = "shader-module"
	KindDescriptorSetLayout = "descriptor-set-layout"
	KindPipelineLayout      = "pipeline-layout"
	KindPipeline            = "pipeline"
	KindDescriptorPool      = "descriptor-pool"
	KindDescriptorSet       = "descriptor-set"
	KindCommandPool         = "command-pool"
	KindCommandBuffer       = "command-buffer"
	KindFence               = "fence"
	KindSemaphore           = "semaphore"
)

// Fence log events.
const (
	FenceWait   = "wait"
	FenceReset  = "reset"
	FenceSignal = "signal"
)

type cbState int

const (
	cbInitial cbState = iota
	cbRecording
	cbExecutable
)

type object struct {
	kind   string
	parent gpu.Handle

	// memory
	data     []byte
	memType  uint32
	mapped   bool
	boundMem gpu.Handle

	// image
	extent gpu.Extent2D
	layout gpu.ImageLayout

	// swapchain
	images    []gpu.Handle
	nextImage uint32
	desc      gpu.SwapchainDesc

	// fence / semaphore
	signaled bool

	// command buffer
	state    cbState
	commands []command
	draws    []DrawCall
	refs     map[gpu.Handle]struct{}
	bound    map[uint32]gpu.Handle

	// descriptor set
	writes map[uint32]gpu.DescriptorWrite

	pipeline gpu.PipelineDesc
}

type command func(d *Device)

// DrawCall is one recorded draw with the material set bound at index 1 when
// the draw was recorded.
type DrawCall struct {
	Indexed       bool
	Count         uint32
	InstanceCount uint32
	First         uint32
	VertexOffset  int32
	FirstInstance uint32
	Material      gpu.Handle
	Pipeline      gpu.Handle
}

// Submission is a snapshot of one QueueSubmit call.
type Submission struct {
	CommandBuffers []gpu.Handle
	Fence          gpu.Handle
	Draws          []DrawCall
}

type pending struct {
	fence gpu.Handle
	refs  map[gpu.Handle]struct{}
}

// Device is a fake gpu.Device. It is not safe for concurrent use.
type Device struct {
	// Support is returned by SurfaceSupport. Tests may change it between calls.
	Support gpu.SurfaceSupport
	// Types is returned by MemoryTypes.
	Types []gpu.MemoryType
	// DepthFormats lists the formats SupportsDepthFormat accepts.
	DepthFormats []gpu.Format
	// Alignment is reported in every memory requirement.
	Alignment uint64

	WaitIdleCalls  int
	QueueIdleCalls int

	next       gpu.Handle
	objects    map[gpu.Handle]*object
	created    map[string]int
	destroyed  map[string]int
	fenceLog   map[gpu.Handle][]string
	fences     []gpu.Handle
	violations []string

	acquireScript []error
	presentScript []error
	failNext      map[string]error

	submissions []Submission
	presents    []uint32
	inFlight    []pending
}

var _ gpu.Device = (*Device)(nil)

// New returns a device with a 800x600 surface, two to three swapchain images,
// fifo and mailbox present modes and the usual three memory types.
func New() *Device {
	return &Device{
		Support: gpu.SurfaceSupport{
			Capabilities: gpu.SurfaceCapabilities{
				MinImageCount:  2,
				MaxImageCount:  3,
				CurrentExtent:  gpu.Extent2D{Width: 800, Height: 600},
				MinImageExtent: gpu.Extent2D{Width: 1, Height: 1},
				MaxImageExtent: gpu.Extent2D{Width: 4096, Height: 4096},
			},
			Formats: []gpu.SurfaceFormat{
				{Format: gpu.FormatB8G8R8A8Srgb, ColorSpace: gpu.ColorSpaceSrgbNonlinear},
				{Format: gpu.FormatB8G8R8A8Unorm, ColorSpace: gpu.ColorSpaceSrgbNonlinear},
			},
			PresentModes: []gpu.PresentMode{gpu.PresentModeFifo, gpu.PresentModeMailbox},
		},
		Types: []gpu.MemoryType{
			{Properties: gpu.MemoryPropertyDeviceLocal},
			{Properties: gpu.MemoryPropertyHostVisible | gpu.MemoryPropertyHostCoherent},
			{Properties: gpu.MemoryPropertyDeviceLocal | gpu.MemoryPropertyHostVisible | gpu.MemoryPropertyHostCoherent},
		},
		DepthFormats: []gpu.Format{gpu.FormatD32Sfloat},
		Alignment:    16,
		objects:      make(map[gpu.Handle]*object),
		created:      make(map[string]int),
		destroyed:    make(map[string]int),
		fenceLog:     make(map[gpu.Handle][]string),
		failNext:     make(map[string]error),
	}
}

// ScriptAcquire queues results for the next AcquireNextImage calls. A nil
// entry means success.
func (d *Device) ScriptAcquire(results ...error) {
	d.acquireScript = append(d.acquireScript, results...)
}

// ScriptPresent queues results for the next QueuePresent calls.
func (d *Device) ScriptPresent(results ...error) {
	d.presentScript = append(d.presentScript, results...)
}

// FailNext makes the next creation of the given kind return err.
func (d *Device) FailNext(kind string, err error) {
	d.failNext[kind] = err
}

// Live returns the number of live objects of a kind.
func (d *Device) Live(kind string) int {
	n := 0
	for _, o := range d.objects {
		if o.kind == kind {
			n++
		}
	}
	return n
}

// LiveObjects returns the live object count per kind, leaving out swapchain
// images which belong to their swapchain.
func (d *Device) LiveObjects() map[string]int {
	out := make(map[string]int)
	for _, o := range d.objects {
		if o.kind == KindSwapchainImage {
			continue
		}
		out[o.kind]++
	}
	return out
}

func (d *Device) Created(kind string) int   { return d.created[kind] }
func (d *Device) Destroyed(kind string) int { return d.destroyed[kind] }

// Violations lists every misuse detected so far: double frees, unknown
// handles, use of unended command buffers, destruction of in-flight objects.
func (d *Device) Violations() []string {
	return d.violations
}

// Fences returns every fence ever created, in creation order.
func (d *Device) Fences() []gpu.Handle {
	return d.fences
}

// FenceLog returns the wait/reset/signal events of one fence.
func (d *Device) FenceLog(fence gpu.Handle) []string {
	return d.fenceLog[fence]
}

func (d *Device) Submissions() []Submission {
	return d.submissions
}

// Presents returns the image index of every successful present.
func (d *Device) Presents() []uint32 {
	return d.presents
}

// Recorded returns the draws currently recorded in a command buffer.
func (d *Device) Recorded(cb gpu.Handle) []DrawCall {
	if o, ok := d.objects[cb]; ok {
		return o.draws
	}
	return nil
}

// Memory returns the backing bytes of a memory object.
func (d *Device) Memory(memory gpu.Handle) []byte {
	if o, ok := d.objects[memory]; ok {
		return o.data
	}
	return nil
}

// BufferContents returns the bytes of the memory bound to a buffer or image.
func (d *Device) BufferContents(resource gpu.Handle) []byte {
	o, ok := d.objects[resource]
	if !ok {
		return nil
	}
	return d.Memory(o.boundMem)
}

func (d *Device) ImageLayout(image gpu.Handle) gpu.ImageLayout {
	if o, ok := d.objects[image]; ok {
		return o.layout
	}
	return gpu.ImageLayoutUndefined
}

// DescriptorWrites returns the latest write per binding of a descriptor set.
func (d *Device) DescriptorWrites(set gpu.Handle) map[uint32]gpu.DescriptorWrite {
	if o, ok := d.objects[set]; ok {
		return o.writes
	}
	return nil
}

// SwapchainDesc returns the description a swapchain was created with.
func (d *Device) SwapchainDesc(swapchain gpu.Handle) gpu.SwapchainDesc {
	if o, ok := d.objects[swapchain]; ok {
		return o.desc
	}
	return gpu.SwapchainDesc{}
}

// PipelineDesc returns the description a pipeline was created with.
func (d *Device) PipelineDesc(pipeline gpu.Handle) gpu.PipelineDesc {
	if o, ok := d.objects[pipeline]; ok {
		return o.pipeline
	}
	return gpu.PipelineDesc{}
}

func (d *Device) violate(format string, args ...interface{}) {
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}

func (d *Device) create(kind string, parent gpu.Handle) (gpu.Handle, *object, error) {
	if err, ok := d.failNext[kind]; ok {
		delete(d.failNext, kind)
		return gpu.NullHandle, nil, err
	}
	d.next++
	o := &object{kind: kind, parent: parent}
	d.objects[d.next] = o
	d.created[kind]++
	return d.next, o, nil
}

func (d *Device) lookup(h gpu.Handle, kind string) *object {
	o, ok := d.objects[h]
	if !ok {
		d.violate("use of unknown %s %d", kind, h)
		return nil
	}
	if o.kind != kind {
		d.violate("handle %d is a %s, not a %s", h, o.kind, kind)
		return nil
	}
	return o
}

func (d *Device) destroy(h gpu.Handle, kind string) {
	if h == gpu.NullHandle {
		return
	}
	o, ok := d.objects[h]
	if !ok {
		d.violate("destroy of unknown or already destroyed %s %d", kind, h)
		return
	}
	if o.kind != kind {
		d.violate("destroy %s called with a %s handle %d", kind, o.kind, h)
		return
	}
	for _, p := range d.inFlight {
		if _, used := p.refs[h]; used {
			d.violate("%s %d destroyed while referenced by an in-flight submission", kind, h)
			break
		}
	}
	delete(d.objects, h)
	d.destroyed[kind]++

	// children die with their parent
	for ch, co := range d.objects {
		if co.parent == h {
			delete(d.objects, ch)
			d.destroyed[co.kind]++
		}
	}
}

func (d *Device) requirements(size uint64) gpu.MemoryRequirements {
	align := d.Alignment
	if align == 0 {
		align = 1
	}
	return gpu.MemoryRequirements{
		Size:      math.AlignUp(size, align),
		Alignment: align,
		TypeBits:  uint32(1)<<uint(len(d.Types)) - 1,
	}
}
