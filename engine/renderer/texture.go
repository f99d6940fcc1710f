package renderer

import (
	"image"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spaghettifunk/tessera/engine/assets/loaders"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
	"github.com/spaghettifunk/tessera/engine/systems"
)

// Texture is the material of one mesh kind: a sampled image bound at set 1.
type Texture struct {
	Name   string
	Kind   MeshKind
	Width  uint32
	Height uint32

	Image   *Image
	View    gpu.Handle
	Sampler gpu.Handle
	Set     gpu.Handle

	device         gpu.Device
	pipelineLayout gpu.Handle
	scope          Scope
}

// Use binds the texture's descriptor set at index 1 for the following draws.
func (t *Texture) Use(cb gpu.Handle) {
	t.device.CmdBindDescriptorSet(cb, t.pipelineLayout, MaterialSetIndex, t.Set)
}

func (t *Texture) Release() {
	t.scope.Release()
}

// TextureLoader turns image files into textures. Descriptor sets come from a
// pool sized for two materials per mesh kind, so each kind can be replaced
// once without exhausting it.
type TextureLoader struct {
	alloc          *Allocator
	commandPool    gpu.Handle
	layouts        *PipelineLayouts
	descriptorPool gpu.Handle
	jobs           *systems.JobSystem

	textures [meshKindCount]*Texture
}

// NewTextureLoader creates the material descriptor pool. jobs may be nil, in
// which case LoadAll decodes serially.
func NewTextureLoader(alloc *Allocator, commandPool gpu.Handle, layouts *PipelineLayouts, jobs *systems.JobSystem) (*TextureLoader, error) {
	pool, err := alloc.Device().CreateDescriptorPool(2*uint32(meshKindCount), []gpu.DescriptorPoolSize{
		{Type: gpu.DescriptorTypeCombinedImageSampler, Count: 2 * uint32(meshKindCount)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create material descriptor pool")
	}
	return &TextureLoader{
		alloc:          alloc,
		commandPool:    commandPool,
		layouts:        layouts,
		descriptorPool: pool,
		jobs:           jobs,
	}, nil
}

// Material returns the texture bound to kind, or nil.
func (l *TextureLoader) Material(kind MeshKind) *Texture {
	if !kind.Valid() {
		return nil
	}
	return l.textures[kind]
}

// Load decodes path and uploads it as the material of kind.
func (l *TextureLoader) Load(kind MeshKind, path string) (*Texture, error) {
	img, err := decodeTexture(path)
	if err != nil {
		return nil, err
	}
	return l.Upload(kind, path, img)
}

// LoadAll decodes every file on the job system and uploads the results on the
// calling goroutine, in mesh kind order.
func (l *TextureLoader) LoadAll(paths map[MeshKind]string) error {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		decoded = make(map[MeshKind]*image.RGBA, len(paths))
		errs    error
	)

	for kind, path := range paths {
		if l.jobs == nil {
			img, err := decodeTexture(path)
			if err != nil {
				return err
			}
			decoded[kind] = img
			continue
		}

		wg.Add(1)
		k := kind
		l.jobs.Submit(systems.JobTask{
			Name:        "decode " + path,
			InputParams: path,
			OnStart: func(p interface{}) (interface{}, error) {
				return decodeTexture(p.(string))
			},
			OnComplete: func(result interface{}) {
				mu.Lock()
				decoded[k] = result.(*image.RGBA)
				mu.Unlock()
			},
			OnFailure: func(err error) {
				mu.Lock()
				errs = errors.CombineErrors(errs, err)
				mu.Unlock()
			},
			OnCompletionCallback: wg.Done,
		})
	}
	wg.Wait()
	if errs != nil {
		return errs
	}

	for _, kind := range MeshKinds() {
		img, ok := decoded[kind]
		if !ok {
			continue
		}
		if _, err := l.Upload(kind, paths[kind], img); err != nil {
			return err
		}
	}
	return nil
}

func decodeTexture(path string) (*image.RGBA, error) {
	res, err := (&loaders.ImageLoader{}).Load(path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load texture")
	}
	data := res.Data.(*loaders.ImageResourceData)
	return &image.RGBA{
		Pix:    data.Pixels,
		Stride: int(data.Width) * 4,
		Rect:   image.Rect(0, 0, int(data.Width), int(data.Height)),
	}, nil
}

// Upload creates the GPU side of a texture from decoded pixels. The previous
// material of kind, if any, is released.
func (l *TextureLoader) Upload(kind MeshKind, name string, img *image.RGBA) (*Texture, error) {
	if !kind.Valid() {
		return nil, errors.Wrapf(core.ErrUnknownMeshKind, "mesh kind %d", kind)
	}
	if name == "" {
		name = uuid.NewString()
	}
	device := l.alloc.Device()
	b := img.Bounds()
	extent := gpu.Extent2D{Width: uint32(b.Dx()), Height: uint32(b.Dy())}

	t := &Texture{
		Name:           name,
		Kind:           kind,
		Width:          extent.Width,
		Height:         extent.Height,
		device:         device,
		pipelineLayout: l.layouts.Pipeline,
	}
	ok := false
	defer func() {
		if !ok {
			t.Release()
		}
	}()

	pixels := img.Pix
	if img.Stride != b.Dx()*4 {
		pixels = make([]byte, 0, b.Dx()*b.Dy()*4)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := img.PixOffset(b.Min.X, y)
			pixels = append(pixels, img.Pix[off:off+b.Dx()*4]...)
		}
	}

	staging, err := createStaging(l.alloc, pixels)
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	t.Image, err = l.alloc.CreateImage(gpu.ImageDesc{
		Extent: extent,
		Format: gpu.FormatR8G8B8A8Srgb,
		Usage:  gpu.ImageUsageTransferDst | gpu.ImageUsageSampled,
	}, DeviceLocal)
	if err != nil {
		return nil, errors.Wrapf(err, "texture %s", name)
	}
	t.scope.Own(t.Image)

	// Each step is its own blocking submission.
	steps := []func(cb gpu.Handle){
		func(cb gpu.Handle) {
			device.CmdImageBarrier(cb, gpu.ImageBarrier{
				Image:     t.Image.Handle,
				Aspect:    gpu.ImageAspectColor,
				OldLayout: gpu.ImageLayoutUndefined,
				NewLayout: gpu.ImageLayoutTransferDstOptimal,
			})
		},
		func(cb gpu.Handle) {
			device.CmdCopyBufferToImage(cb, gpu.BufferImageCopy{
				Buffer: staging.Handle,
				Image:  t.Image.Handle,
				Extent: extent,
			})
		},
		func(cb gpu.Handle) {
			device.CmdImageBarrier(cb, gpu.ImageBarrier{
				Image:     t.Image.Handle,
				Aspect:    gpu.ImageAspectColor,
				OldLayout: gpu.ImageLayoutTransferDstOptimal,
				NewLayout: gpu.ImageLayoutShaderReadOnlyOptimal,
			})
		},
	}
	for _, step := range steps {
		if err := RunOneTime(device, l.commandPool, step); err != nil {
			return nil, errors.Wrapf(err, "failed to upload texture %s", name)
		}
	}

	if t.View, err = device.CreateImageView(t.Image.Handle, gpu.FormatR8G8B8A8Srgb, gpu.ImageAspectColor); err != nil {
		return nil, errors.Wrapf(err, "failed to create view for texture %s", name)
	}
	view := t.View
	t.scope.Defer(func() { device.DestroyImageView(view) })

	if t.Sampler, err = device.CreateSampler(gpu.SamplerDesc{
		MinFilter:   gpu.FilterNearest,
		MagFilter:   gpu.FilterLinear,
		AddressMode: gpu.AddressModeRepeat,
	}); err != nil {
		return nil, errors.Wrapf(err, "failed to create sampler for texture %s", name)
	}
	sampler := t.Sampler
	t.scope.Defer(func() { device.DestroySampler(sampler) })

	// the set itself goes away with the pool
	if t.Set, err = device.AllocateDescriptorSet(l.descriptorPool, l.layouts.Material); err != nil {
		return nil, errors.Wrapf(err, "failed to allocate descriptor set for texture %s", name)
	}
	device.UpdateDescriptorSets([]gpu.DescriptorWrite{{
		Set:       t.Set,
		Binding:   0,
		Type:      gpu.DescriptorTypeCombinedImageSampler,
		ImageView: t.View,
		Sampler:   t.Sampler,
	}})

	if prev := l.textures[kind]; prev != nil {
		prev.Release()
	}
	l.textures[kind] = t
	ok = true
	core.LogDebug("texture %s (%dx%d) bound to %s", name, extent.Width, extent.Height, kind)
	return t, nil
}

func (l *TextureLoader) Release() {
	for i, t := range l.textures {
		if t != nil {
			t.Release()
			l.textures[i] = nil
		}
	}
	l.alloc.Device().DestroyDescriptorPool(l.descriptorPool)
	l.descriptorPool = gpu.NullHandle
}
