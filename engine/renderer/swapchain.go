package renderer

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/math"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

// PresentPolicy picks the present mode from what the surface supports.
type PresentPolicy string

const (
	// immediate, then mailbox, then fifo
	PresentUncapped PresentPolicy = "uncapped"
	// mailbox, then fifo
	PresentMailbox PresentPolicy = "mailbox"
	// fifo only
	PresentFifo PresentPolicy = "fifo"
)

func ParsePresentPolicy(s string) (PresentPolicy, error) {
	switch p := PresentPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PresentUncapped, PresentMailbox, PresentFifo:
		return p, nil
	case "":
		return PresentMailbox, nil
	}
	return "", errors.Wrapf(core.ErrInvalidConfig, "unknown present mode %q", s)
}

// Window is the part of the windowing system the renderer depends on.
type Window interface {
	// FramebufferSize returns the drawable size in pixels.
	FramebufferSize() (width, height int)
	// WaitEvents blocks until the window system has events to process.
	WaitEvents()
}

// ChooseSurfaceFormat prefers B8G8R8A8_UNORM with the sRGB non-linear color
// space and falls back to the first format offered.
func ChooseSurfaceFormat(formats []gpu.SurfaceFormat) (gpu.SurfaceFormat, error) {
	if len(formats) == 0 {
		return gpu.SurfaceFormat{}, errors.New("surface reports no formats")
	}
	for _, f := range formats {
		// Preferred formats
		if f.Format == gpu.FormatB8G8R8A8Unorm && f.ColorSpace == gpu.ColorSpaceSrgbNonlinear {
			return f, nil
		}
	}
	return formats[0], nil
}

// ChoosePresentMode returns the first mode of the policy's preference list
// that the surface supports. Fifo is always available.
func ChoosePresentMode(modes []gpu.PresentMode, policy PresentPolicy) gpu.PresentMode {
	var order []gpu.PresentMode
	switch policy {
	case PresentUncapped:
		order = []gpu.PresentMode{gpu.PresentModeImmediate, gpu.PresentModeMailbox}
	case PresentFifo:
	default:
		order = []gpu.PresentMode{gpu.PresentModeMailbox}
	}
	for _, want := range order {
		for _, m := range modes {
			if m == want {
				return m
			}
		}
	}
	return gpu.PresentModeFifo
}

// ChooseExtent uses the surface's current extent unless it is the undefined
// sentinel, in which case the requested size is clamped to the allowed range.
func ChooseExtent(caps gpu.SurfaceCapabilities, requested gpu.Extent2D) gpu.Extent2D {
	if caps.CurrentExtent.Width != gpu.UndefinedExtent {
		return caps.CurrentExtent
	}
	// Clamp to the value allowed by the GPU.
	return gpu.Extent2D{
		Width:  math.Clamp(requested.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: math.Clamp(requested.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image more than the minimum, capped by the
// maximum when the surface has one.
func ChooseImageCount(caps gpu.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

var depthCandidates = []gpu.Format{
	gpu.FormatD32Sfloat,
	gpu.FormatD32SfloatS8Uint,
	gpu.FormatD24UnormS8Uint,
}

// ChooseDepthFormat returns the first supported depth format.
func ChooseDepthFormat(device gpu.Device) (gpu.Format, error) {
	for _, f := range depthCandidates {
		if device.SupportsDepthFormat(f) {
			return f, nil
		}
	}
	return gpu.FormatUndefined, errors.Wrap(core.ErrNoSuitableDevice, "no supported depth format")
}

// RenderPassProvider returns a render pass compatible with the given formats,
// rebuilding whatever depends on them if necessary.
type RenderPassProvider func(colorFormat, depthFormat gpu.Format) (gpu.Handle, error)

type SwapchainConfig struct {
	Policy       PresentPolicy
	Depth        bool
	MaxInstances int
}

// Swapchain owns the presentation engine images and one FrameResource per
// image. It is replaced as a whole: Recreate releases everything before
// building the next generation.
type Swapchain struct {
	alloc       *Allocator
	window      Window
	layouts     *PipelineLayouts
	commandPool gpu.Handle
	renderPass  RenderPassProvider
	cfg         SwapchainConfig

	Handle      gpu.Handle
	Format      gpu.SurfaceFormat
	DepthFormat gpu.Format
	Extent      gpu.Extent2D
	PresentMode gpu.PresentMode
	Frames      []*FrameResource
	// Generation increments on every creation.
	Generation uint64

	descriptorPool gpu.Handle
}

func NewSwapchain(alloc *Allocator, window Window, layouts *PipelineLayouts, commandPool gpu.Handle, renderPass RenderPassProvider, cfg SwapchainConfig) *Swapchain {
	return &Swapchain{
		alloc:       alloc,
		window:      window,
		layouts:     layouts,
		commandPool: commandPool,
		renderPass:  renderPass,
		cfg:         cfg,
	}
}

// Create builds the swapchain and its frames for the requested extent.
func (s *Swapchain) Create(requested gpu.Extent2D) error {
	device := s.alloc.Device()
	support, err := device.SurfaceSupport()
	if err != nil {
		return errors.Wrap(err, "failed to query surface support")
	}

	format, err := ChooseSurfaceFormat(support.Formats)
	if err != nil {
		return err
	}
	depthFormat := gpu.FormatUndefined
	if s.cfg.Depth {
		if depthFormat, err = ChooseDepthFormat(device); err != nil {
			return err
		}
	}
	extent := ChooseExtent(support.Capabilities, requested)
	if extent.IsZero() {
		return errors.Newf("cannot create a %dx%d swapchain", extent.Width, extent.Height)
	}
	presentMode := ChoosePresentMode(support.PresentModes, s.cfg.Policy)
	imageCount := ChooseImageCount(support.Capabilities)

	renderPass, err := s.renderPass(format.Format, depthFormat)
	if err != nil {
		return err
	}

	handle, err := device.CreateSwapchain(gpu.SwapchainDesc{
		MinImageCount: imageCount,
		Format:        format,
		Extent:        extent,
		PresentMode:   presentMode,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create swapchain")
	}
	s.Handle = handle
	s.Format = format
	s.DepthFormat = depthFormat
	s.Extent = extent
	s.PresentMode = presentMode

	images, err := device.SwapchainImages(handle)
	if err != nil {
		s.Release()
		return errors.Wrap(err, "failed to get swapchain images")
	}

	s.descriptorPool, err = device.CreateDescriptorPool(uint32(len(images)), []gpu.DescriptorPoolSize{
		{Type: gpu.DescriptorTypeUniformBuffer, Count: uint32(len(images))},
		{Type: gpu.DescriptorTypeStorageBuffer, Count: uint32(len(images))},
	})
	if err != nil {
		s.Release()
		return errors.Wrap(err, "failed to create per-frame descriptor pool")
	}

	params := frameParams{
		alloc:          s.alloc,
		commandPool:    s.commandPool,
		descriptorPool: s.descriptorPool,
		frameLayout:    s.layouts.Frame,
		renderPass:     renderPass,
		colorFormat:    format.Format,
		depthFormat:    depthFormat,
		extent:         extent,
		maxInstances:   s.cfg.MaxInstances,
	}
	for _, img := range images {
		frame, err := newFrameResource(params, img)
		if err != nil {
			s.Release()
			return err
		}
		s.Frames = append(s.Frames, frame)
	}

	s.Generation++
	core.LogInfo("swapchain #%d created: %dx%d, %d images, %s", s.Generation, extent.Width, extent.Height, len(images), presentMode)
	return nil
}

// Recreate waits until the window has a drawable area, drains the device,
// releases the current generation and creates the next one.
func (s *Swapchain) Recreate() error {
	width, height := s.window.FramebufferSize()
	for width == 0 || height == 0 {
		// minimized
		s.window.WaitEvents()
		width, height = s.window.FramebufferSize()
	}

	if err := s.alloc.Device().WaitIdle(); err != nil {
		return errors.Wrap(err, "failed to wait for device idle")
	}
	s.Release()
	return s.Create(gpu.Extent2D{Width: uint32(width), Height: uint32(height)})
}

// Release destroys the frames, the per-frame descriptor pool and the swapchain.
// The caller must make sure the device is idle.
func (s *Swapchain) Release() {
	device := s.alloc.Device()
	for i := len(s.Frames) - 1; i >= 0; i-- {
		s.Frames[i].Release()
	}
	s.Frames = nil
	if s.descriptorPool != gpu.NullHandle {
		device.DestroyDescriptorPool(s.descriptorPool)
		s.descriptorPool = gpu.NullHandle
	}
	if s.Handle != gpu.NullHandle {
		device.DestroySwapchain(s.Handle)
		s.Handle = gpu.NullHandle
	}
}
