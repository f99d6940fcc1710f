package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

// Descriptor set indices.
const (
	FrameSetIndex    uint32 = 0
	MaterialSetIndex uint32 = 1
)

// Bindings of the per-frame set.
const (
	CameraBinding   uint32 = 0
	InstanceBinding uint32 = 1
)

// PipelineLayouts holds the two descriptor set layouts and the pipeline
// layout. They do not depend on the swapchain and live until shutdown.
type PipelineLayouts struct {
	device gpu.Device

	Frame    gpu.Handle
	Material gpu.Handle
	Pipeline gpu.Handle
}

func NewPipelineLayouts(device gpu.Device) (*PipelineLayouts, error) {
	l := &PipelineLayouts{device: device}
	var err error

	// set 0: camera uniform and instance matrices
	l.Frame, err = device.CreateDescriptorSetLayout([]gpu.DescriptorBinding{
		{Binding: CameraBinding, Type: gpu.DescriptorTypeUniformBuffer, Stages: gpu.ShaderStageVertex},
		{Binding: InstanceBinding, Type: gpu.DescriptorTypeStorageBuffer, Stages: gpu.ShaderStageVertex},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create per-frame set layout")
	}
	// set 1: material texture
	l.Material, err = device.CreateDescriptorSetLayout([]gpu.DescriptorBinding{
		{Binding: 0, Type: gpu.DescriptorTypeCombinedImageSampler, Stages: gpu.ShaderStageFragment},
	})
	if err != nil {
		l.Release()
		return nil, errors.Wrap(err, "failed to create material set layout")
	}
	l.Pipeline, err = device.CreatePipelineLayout([]gpu.Handle{l.Frame, l.Material})
	if err != nil {
		l.Release()
		return nil, errors.Wrap(err, "failed to create pipeline layout")
	}
	return l, nil
}

func (l *PipelineLayouts) Release() {
	l.device.DestroyPipelineLayout(l.Pipeline)
	l.device.DestroyDescriptorSetLayout(l.Material)
	l.device.DestroyDescriptorSetLayout(l.Frame)
	l.Pipeline, l.Material, l.Frame = gpu.NullHandle, gpu.NullHandle, gpu.NullHandle
}

// ShaderSource returns the vertex and fragment bytecode. It is called on every
// build so a rebuild picks up new shaders from disk.
type ShaderSource func() (vertex, fragment []byte, err error)

// Pipeline is the render pass and graphics pipeline for one pair of color and
// depth formats. Viewport and scissor are dynamic, so extent changes alone
// never require a rebuild.
type Pipeline struct {
	device  gpu.Device
	layouts *PipelineLayouts
	shaders ShaderSource

	RenderPass  gpu.Handle
	Handle      gpu.Handle
	ColorFormat gpu.Format
	// DepthFormat is FormatUndefined when the pipeline has no depth attachment.
	DepthFormat gpu.Format

	// Builds counts successful builds, the first one included.
	Builds int
}

func NewPipeline(device gpu.Device, layouts *PipelineLayouts, shaders ShaderSource, colorFormat, depthFormat gpu.Format) (*Pipeline, error) {
	p := &Pipeline{
		device:  device,
		layouts: layouts,
		shaders: shaders,
	}
	if err := p.Rebuild(colorFormat, depthFormat); err != nil {
		return nil, err
	}
	return p, nil
}

// Matches reports whether the pipeline was built for these formats.
func (p *Pipeline) Matches(colorFormat, depthFormat gpu.Format) bool {
	return p.ColorFormat == colorFormat && p.DepthFormat == depthFormat
}

// Rebuild builds a new render pass and pipeline and, only once both exist,
// destroys the old ones. On failure the previous pipeline stays usable. The
// caller must make sure no frame using the old objects is in flight.
func (p *Pipeline) Rebuild(colorFormat, depthFormat gpu.Format) error {
	renderPass, err := p.device.CreateRenderPass(renderPassDesc(colorFormat, depthFormat))
	if err != nil {
		return errors.Wrap(err, "failed to create render pass")
	}
	handle, err := p.build(renderPass, depthFormat != gpu.FormatUndefined)
	if err != nil {
		p.device.DestroyRenderPass(renderPass)
		return err
	}

	p.destroy()
	p.RenderPass = renderPass
	p.Handle = handle
	p.ColorFormat = colorFormat
	p.DepthFormat = depthFormat
	p.Builds++
	core.LogDebug("graphics pipeline built (color %d, depth %d)", colorFormat, depthFormat)
	return nil
}

func renderPassDesc(colorFormat, depthFormat gpu.Format) gpu.RenderPassDesc {
	desc := gpu.RenderPassDesc{
		Color: gpu.AttachmentDesc{
			Format:        colorFormat,
			LoadOp:        gpu.LoadOpClear,
			StoreOp:       gpu.StoreOpStore,
			InitialLayout: gpu.ImageLayoutUndefined,
			FinalLayout:   gpu.ImageLayoutPresentSrc,
		},
	}
	if depthFormat != gpu.FormatUndefined {
		desc.Depth = &gpu.AttachmentDesc{
			Format:        depthFormat,
			LoadOp:        gpu.LoadOpClear,
			StoreOp:       gpu.StoreOpStore,
			InitialLayout: gpu.ImageLayoutUndefined,
			FinalLayout:   gpu.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}
	return desc
}

func (p *Pipeline) build(renderPass gpu.Handle, depth bool) (gpu.Handle, error) {
	vertCode, fragCode, err := p.shaders()
	if err != nil {
		return gpu.NullHandle, errors.Wrap(err, "failed to load shaders")
	}

	// shader modules are only needed while the pipeline is created
	var modules Scope
	defer modules.Release()

	vert, err := p.device.CreateShaderModule(vertCode)
	if err != nil {
		return gpu.NullHandle, errors.Wrap(err, "failed to create vertex shader module")
	}
	modules.Defer(func() { p.device.DestroyShaderModule(vert) })

	frag, err := p.device.CreateShaderModule(fragCode)
	if err != nil {
		return gpu.NullHandle, errors.Wrap(err, "failed to create fragment shader module")
	}
	modules.Defer(func() { p.device.DestroyShaderModule(frag) })

	handle, err := p.device.CreateGraphicsPipeline(gpu.PipelineDesc{
		RenderPass:      renderPass,
		Layout:          p.layouts.Pipeline,
		VertexShader:    vert,
		FragmentShader:  frag,
		VertexLayout:    VertexLayout(),
		CullBackFaces:   true,
		FrontFaceCCW:    true,
		DepthTest:       depth,
		DepthWrite:      depth,
		DepthCompare:    gpu.CompareOpLess,
		BlendEnabled:    false,
		DynamicViewport: true,
	})
	if err != nil {
		return gpu.NullHandle, errors.Wrap(err, "failed to create graphics pipeline")
	}
	return handle, nil
}

func (p *Pipeline) destroy() {
	p.device.DestroyPipeline(p.Handle)
	p.device.DestroyRenderPass(p.RenderPass)
	p.Handle = gpu.NullHandle
	p.RenderPass = gpu.NullHandle
}

func (p *Pipeline) Release() {
	p.destroy()
}
