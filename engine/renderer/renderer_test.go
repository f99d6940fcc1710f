package renderer

import (
	"bytes"
	"image/color"
	"reflect"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu/gputest"
)

type fakeWindow struct {
	width, height int
	// sizes the window takes on each WaitEvents call
	next  [][2]int
	waits int
}

func (w *fakeWindow) FramebufferSize() (int, int) {
	return w.width, w.height
}

func (w *fakeWindow) WaitEvents() {
	w.waits++
	if len(w.next) > 0 {
		w.width, w.height = w.next[0][0], w.next[0][1]
		w.next = w.next[1:]
	}
}

type fakeShaders struct {
	fail  bool
	loads int
}

func (s *fakeShaders) source() (vertex, fragment []byte, err error) {
	s.loads++
	if s.fail {
		return nil, nil, errors.New("shader compilation failed")
	}
	return make([]byte, 16), make([]byte, 8), nil
}

type harness struct {
	r       *Renderer
	dev     *gputest.Device
	window  *fakeWindow
	shaders *fakeShaders
}

// newHarness builds a renderer with an indexed cube (4 vertices, 6 indices)
// and a non-indexed ground triangle, both textured.
func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		dev:     gputest.New(),
		window:  &fakeWindow{width: 800, height: 600},
		shaders: &fakeShaders{},
	}
	r, err := New(Context{
		Device:  h.dev,
		Window:  h.window,
		Shaders: h.shaders.source,
		Config:  cfg,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.r = r

	if err := r.Meshes().Consume(MeshCube, makeVertices(4, 0), []uint32{0, 1, 2, 2, 3, 0}); err != nil {
		t.Fatal(err)
	}
	if err := r.Meshes().Consume(MeshGround, makeVertices(3, 10), nil); err != nil {
		t.Fatal(err)
	}
	if err := r.FinalizeMeshes(); err != nil {
		t.Fatal(err)
	}
	for _, kind := range []MeshKind{MeshCube, MeshGround} {
		img := checker(2, 2, color.RGBA{R: 255, A: 255}, color.RGBA{A: 255})
		if _, err := r.Textures().Upload(kind, kind.String(), img); err != nil {
			t.Fatal(err)
		}
	}
	return h
}

func (h *harness) render(t *testing.T, scene *Scene, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := h.r.Render(scene); err != nil {
			t.Fatalf("Render #%d: %v", i, err)
		}
	}
}

func (h *harness) shutdown(t *testing.T) {
	t.Helper()
	if err := h.r.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if live := h.dev.LiveObjects(); len(live) != 0 {
		t.Errorf("objects alive after shutdown: %v", live)
	}
	if v := h.dev.Violations(); len(v) != 0 {
		t.Errorf("violations: %v", v)
	}
}

func (h *harness) lastDraws(t *testing.T) []gputest.DrawCall {
	t.Helper()
	subs := h.dev.Submissions()
	if len(subs) == 0 {
		t.Fatal("nothing was submitted")
	}
	return subs[len(subs)-1].Draws
}

func demoScene() *Scene {
	s := NewScene()
	for i := 0; i < 3; i++ {
		s.Add(MeshCube, mgl32.Vec3{float32(i), 0, 0})
	}
	s.Add(MeshGround, mgl32.Vec3{0, -1, 0})
	s.Add(MeshGround, mgl32.Vec3{5, -1, 0})
	// no geometry for sprites, they are skipped
	s.Add(MeshSprite, mgl32.Vec3{0, 3, 0})
	return s
}

func TestNewRequiresContext(t *testing.T) {
	if _, err := New(Context{}); err == nil {
		t.Fatal("expected an error for an empty context")
	}
}

func TestRenderBeforeFinalize(t *testing.T) {
	dev := gputest.New()
	shaders := &fakeShaders{}
	r, err := New(Context{Device: dev, Window: &fakeWindow{width: 800, height: 600}, Shaders: shaders.source})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Render(NewScene()); err == nil {
		t.Fatal("expected an error before the meshes are finalized")
	}
	if err := r.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if live := dev.LiveObjects(); len(live) != 0 {
		t.Errorf("objects alive after shutdown: %v", live)
	}
}

func TestRenderDrawsInstanceGroups(t *testing.T) {
	h := newHarness(t, Config{Indexed: true, Depth: true})
	scene := demoScene()
	h.render(t, scene, 1)

	cube := h.r.Textures().Material(MeshCube)
	ground := h.r.Textures().Material(MeshGround)
	want := []gputest.DrawCall{
		{Indexed: true, Count: 6, InstanceCount: 3, First: 0, FirstInstance: 0, Material: cube.Set, Pipeline: h.r.Pipeline().Handle},
		{Indexed: false, Count: 3, InstanceCount: 2, First: 4, FirstInstance: 3, Material: ground.Set, Pipeline: h.r.Pipeline().Handle},
	}
	if got := h.lastDraws(t); !reflect.DeepEqual(got, want) {
		t.Fatalf("draws = %+v\nwant %+v", got, want)
	}

	frame := h.r.Swapchain().Frames[0]
	camera := h.dev.Memory(frame.Camera.Memory)[:CameraUniformSize]
	if !bytes.Equal(camera, h.r.Camera.Uniform(h.r.Swapchain().Extent).Bytes()) {
		t.Error("camera uniform does not match the camera")
	}

	instances := h.dev.Memory(frame.Instances.Memory)
	var positions []mgl32.Vec3
	positions = append(positions, scene.Positions(MeshCube)...)
	positions = append(positions, scene.Positions(MeshGround)...)
	for i, pos := range positions {
		m := ModelMatrix(pos)
		off := uint64(i) * InstanceStride
		if !bytes.Equal(instances[off:off+InstanceStride], matrixBytes(&m)) {
			t.Errorf("instance %d does not hold the model matrix of %v", i, pos)
		}
	}
	if h.r.State() != StateIdle {
		t.Errorf("state = %s after a frame, want idle", h.r.State())
	}
	h.shutdown(t)
}

func TestRenderFenceProtocol(t *testing.T) {
	h := newHarness(t, Config{Indexed: true})
	frames := len(h.r.Swapchain().Frames)
	if frames != 3 {
		t.Fatalf("frames = %d, want one per swapchain image", frames)
	}
	h.render(t, demoScene(), 2*frames)

	for i, fence := range h.dev.Fences() {
		want := []string{
			gputest.FenceWait, gputest.FenceReset, gputest.FenceSignal,
			gputest.FenceWait, gputest.FenceReset, gputest.FenceSignal,
		}
		if got := h.dev.FenceLog(fence); !reflect.DeepEqual(got, want) {
			t.Errorf("fence %d log = %v, want %v", i, got, want)
		}
	}
	if got, want := h.dev.Presents(), []uint32{0, 1, 2, 0, 1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("presents = %v, want %v", got, want)
	}
	if h.r.FrameCounter() != uint64(2*frames) {
		t.Errorf("frame counter = %d", h.r.FrameCounter())
	}
	h.shutdown(t)
}

func TestRenderRecreatesOnOutOfDateAcquire(t *testing.T) {
	h := newHarness(t, Config{Indexed: true, Depth: true})
	h.dev.ScriptAcquire(nil, gpu.ErrOutOfDate)
	h.render(t, demoScene(), 1)
	submitted := len(h.dev.Submissions())

	if err := h.r.Render(demoScene()); err != nil {
		t.Fatalf("out of date acquire should recreate, got %v", err)
	}
	sc := h.r.Swapchain()
	if sc.Generation != 2 {
		t.Errorf("generation = %d, want 2", sc.Generation)
	}
	if h.r.FrameCounter() != 0 {
		t.Errorf("frame counter = %d after recreate, want 0", h.r.FrameCounter())
	}
	if len(h.dev.Submissions()) != submitted {
		t.Error("the skipped frame must not submit")
	}
	if len(sc.Frames) != int(h.dev.SwapchainDesc(sc.Handle).MinImageCount) {
		t.Errorf("%d frames for %d images", len(sc.Frames), h.dev.SwapchainDesc(sc.Handle).MinImageCount)
	}
	if n := h.dev.Live(gputest.KindFence); n != len(sc.Frames) {
		t.Errorf("%d fences live, want %d", n, len(sc.Frames))
	}
	if n := h.dev.Live(gputest.KindSwapchain); n != 1 {
		t.Errorf("%d swapchains live, want 1", n)
	}

	h.render(t, demoScene(), 4)
	h.shutdown(t)
}

func TestRenderRecreatesOnTransientPresent(t *testing.T) {
	for _, presentErr := range []error{gpu.ErrSuboptimal, gpu.ErrOutOfDate} {
		t.Run(presentErr.Error(), func(t *testing.T) {
			h := newHarness(t, Config{Indexed: true})
			h.render(t, demoScene(), 2)
			h.dev.ScriptPresent(presentErr)

			if err := h.r.Render(demoScene()); err != nil {
				t.Fatalf("transient present error should recreate, got %v", err)
			}
			if h.r.Swapchain().Generation != 2 {
				t.Errorf("generation = %d, want 2", h.r.Swapchain().Generation)
			}
			if h.r.FrameCounter() != 0 {
				t.Errorf("frame counter = %d, want 0", h.r.FrameCounter())
			}
			if len(h.dev.Presents()) != 2 {
				t.Errorf("presents = %v", h.dev.Presents())
			}
			h.render(t, demoScene(), 3)
			h.shutdown(t)
		})
	}
}

func TestRenderPropagatesOtherErrors(t *testing.T) {
	h := newHarness(t, Config{Indexed: true})
	lost := &gpu.ResultError{Op: "vkQueuePresentKHR", Code: -4, Name: "VK_ERROR_DEVICE_LOST"}
	h.dev.ScriptPresent(lost)
	err := h.r.Render(demoScene())
	if !errors.Is(err, lost) {
		t.Fatalf("err = %v, want the device lost error", err)
	}
	if h.r.Swapchain().Generation != 1 {
		t.Error("a hard failure must not recreate the swapchain")
	}
	h.shutdown(t)
}

func TestRenderHandlesResize(t *testing.T) {
	h := newHarness(t, Config{Indexed: true, Depth: true})
	h.render(t, demoScene(), 1)
	submitted := len(h.dev.Submissions())

	h.window.width, h.window.height = 1024, 768
	h.dev.Support.Capabilities.CurrentExtent = gpu.Extent2D{Width: 1024, Height: 768}
	h.r.Resized(1024, 768)
	h.render(t, demoScene(), 1)

	sc := h.r.Swapchain()
	if sc.Extent != (gpu.Extent2D{Width: 1024, Height: 768}) {
		t.Errorf("extent = %+v after resize", sc.Extent)
	}
	if len(h.dev.Submissions()) != submitted {
		t.Error("the resize frame must be skipped")
	}
	if h.r.Pipeline().Builds != 1 {
		t.Errorf("pipeline built %d times, a resize alone must not rebuild it", h.r.Pipeline().Builds)
	}
	h.render(t, demoScene(), 3)
	h.shutdown(t)
}

func TestRenderWaitsWhileMinimized(t *testing.T) {
	h := newHarness(t, Config{Indexed: true})
	h.window.width, h.window.height = 0, 0
	h.window.next = [][2]int{{0, 0}, {640, 480}}
	h.dev.Support.Capabilities.CurrentExtent = gpu.Extent2D{Width: gpu.UndefinedExtent, Height: gpu.UndefinedExtent}

	h.r.Resized(0, 0)
	h.render(t, demoScene(), 1)

	if h.window.waits != 2 {
		t.Errorf("waited %d times, want 2", h.window.waits)
	}
	if got := h.r.Swapchain().Extent; got != (gpu.Extent2D{Width: 640, Height: 480}) {
		t.Errorf("extent = %+v, want 640x480", got)
	}
	h.render(t, demoScene(), 1)
	h.shutdown(t)
}

func TestRenderRebuildsPipelineOnFormatChange(t *testing.T) {
	h := newHarness(t, Config{Indexed: true})
	first := h.r.Pipeline().Handle
	if h.r.Pipeline().ColorFormat != gpu.FormatB8G8R8A8Unorm {
		t.Fatalf("color format = %d, want B8G8R8A8 unorm", h.r.Pipeline().ColorFormat)
	}

	h.dev.Support.Formats = []gpu.SurfaceFormat{{Format: gpu.FormatR8G8B8A8Srgb, ColorSpace: gpu.ColorSpaceSrgbNonlinear}}
	h.r.Resized(800, 600)
	h.render(t, demoScene(), 2)

	p := h.r.Pipeline()
	if p.Builds != 2 || p.ColorFormat != gpu.FormatR8G8B8A8Srgb {
		t.Errorf("pipeline builds = %d, color = %d", p.Builds, p.ColorFormat)
	}
	if p.Handle == first {
		t.Error("pipeline handle did not change")
	}
	if n := h.dev.Live(gputest.KindPipeline); n != 1 {
		t.Errorf("%d pipelines live, want 1", n)
	}
	if n := h.dev.Live(gputest.KindRenderPass); n != 1 {
		t.Errorf("%d render passes live, want 1", n)
	}
	h.shutdown(t)
}

func TestRenderDepthConfig(t *testing.T) {
	for _, depth := range []bool{true, false} {
		h := newHarness(t, Config{Indexed: true, Depth: depth})
		desc := h.dev.PipelineDesc(h.r.Pipeline().Handle)
		if desc.DepthTest != depth || desc.DepthWrite != depth {
			t.Errorf("depth %t: pipeline depth test %t write %t", depth, desc.DepthTest, desc.DepthWrite)
		}
		frames := len(h.r.Swapchain().Frames)
		// two textures plus one depth image per frame
		want := 2
		if depth {
			want += frames
			if h.r.Swapchain().DepthFormat != gpu.FormatD32Sfloat {
				t.Errorf("depth format = %d", h.r.Swapchain().DepthFormat)
			}
		}
		if n := h.dev.Live(gputest.KindImage); n != want {
			t.Errorf("depth %t: %d images live, want %d", depth, n, want)
		}
		h.render(t, demoScene(), 2)
		h.shutdown(t)
	}
}

func TestRenderNonIndexed(t *testing.T) {
	h := newHarness(t, Config{Indexed: false})
	h.render(t, demoScene(), 1)

	draws := h.lastDraws(t)
	if len(draws) != 2 {
		t.Fatalf("draws = %+v", draws)
	}
	for _, d := range draws {
		if d.Indexed {
			t.Errorf("indexed draw %+v with indexing disabled", d)
		}
	}
	if draws[0].Count != 4 || draws[0].First != 0 || draws[0].InstanceCount != 3 {
		t.Errorf("cube draw = %+v, want its 4 vertices", draws[0])
	}
	h.shutdown(t)
}

func TestRenderInstanceOverflow(t *testing.T) {
	h := newHarness(t, Config{Indexed: true, MaxInstances: 4})
	h.render(t, demoScene(), 2)

	draws := h.lastDraws(t)
	if len(draws) != 2 || draws[0].InstanceCount != 3 || draws[1].InstanceCount != 1 || draws[1].FirstInstance != 3 {
		t.Fatalf("draws = %+v, want 3 cubes and 1 ground", draws)
	}
	if h.r.Swapchain().Frames[0].Instances.Size < 4*InstanceStride {
		t.Error("instance buffer smaller than the configured capacity")
	}
	h.shutdown(t)
}

func TestReloadPipeline(t *testing.T) {
	h := newHarness(t, Config{Indexed: true, Depth: true})
	h.render(t, demoScene(), 2)
	old := h.r.Pipeline().Handle
	idle := h.dev.WaitIdleCalls

	if err := h.r.ReloadPipeline(); err != nil {
		t.Fatalf("ReloadPipeline: %v", err)
	}
	if h.r.Pipeline().Handle == old || h.r.Pipeline().Builds != 2 {
		t.Error("pipeline was not rebuilt")
	}
	if h.dev.WaitIdleCalls <= idle {
		t.Error("reload must wait for the device to be idle")
	}
	if h.r.Swapchain().Generation != 2 {
		t.Errorf("generation = %d, want the swapchain recreated", h.r.Swapchain().Generation)
	}
	h.render(t, demoScene(), 3)

	// broken shaders keep the running pipeline
	h.shaders.fail = true
	current := h.r.Pipeline().Handle
	if err := h.r.ReloadPipeline(); err == nil {
		t.Fatal("expected the shader failure")
	}
	if h.r.Pipeline().Handle != current {
		t.Error("failed reload replaced the pipeline")
	}
	h.render(t, demoScene(), 3)
	if draws := h.lastDraws(t); draws[0].Pipeline != current {
		t.Error("frames after a failed reload must use the old pipeline")
	}
	h.shutdown(t)
}
