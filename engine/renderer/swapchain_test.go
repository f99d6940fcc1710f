package renderer

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu/gputest"
)

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := gpu.SurfaceFormat{Format: gpu.FormatB8G8R8A8Unorm, ColorSpace: gpu.ColorSpaceSrgbNonlinear}
	other := gpu.SurfaceFormat{Format: gpu.FormatR8G8B8A8Srgb, ColorSpace: gpu.ColorSpaceSrgbNonlinear}

	got, err := ChooseSurfaceFormat([]gpu.SurfaceFormat{other, preferred})
	if err != nil || got != preferred {
		t.Fatalf("got %+v, %v; want the preferred format", got, err)
	}
	got, err = ChooseSurfaceFormat([]gpu.SurfaceFormat{other})
	if err != nil || got != other {
		t.Fatalf("got %+v, %v; want the first format", got, err)
	}
	if _, err := ChooseSurfaceFormat(nil); err == nil {
		t.Fatal("expected an error without formats")
	}
}

func TestChoosePresentMode(t *testing.T) {
	all := []gpu.PresentMode{gpu.PresentModeFifo, gpu.PresentModeMailbox, gpu.PresentModeImmediate}
	fifoOnly := []gpu.PresentMode{gpu.PresentModeFifo}
	noMailbox := []gpu.PresentMode{gpu.PresentModeFifo, gpu.PresentModeImmediate}

	tests := []struct {
		policy PresentPolicy
		modes  []gpu.PresentMode
		want   gpu.PresentMode
	}{
		{PresentUncapped, all, gpu.PresentModeImmediate},
		{PresentUncapped, []gpu.PresentMode{gpu.PresentModeFifo, gpu.PresentModeMailbox}, gpu.PresentModeMailbox},
		{PresentUncapped, fifoOnly, gpu.PresentModeFifo},
		{PresentMailbox, all, gpu.PresentModeMailbox},
		{PresentMailbox, noMailbox, gpu.PresentModeFifo},
		{PresentFifo, all, gpu.PresentModeFifo},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			if got := ChoosePresentMode(tt.modes, tt.policy); got != tt.want {
				t.Fatalf("ChoosePresentMode(%v, %s) = %s, want %s", tt.modes, tt.policy, got, tt.want)
			}
		})
	}
}

func TestParsePresentPolicy(t *testing.T) {
	if p, err := ParsePresentPolicy(" FIFO "); err != nil || p != PresentFifo {
		t.Fatalf("got %q, %v", p, err)
	}
	if p, err := ParsePresentPolicy(""); err != nil || p != PresentMailbox {
		t.Fatalf("empty policy = %q, %v; want mailbox", p, err)
	}
	if _, err := ParsePresentPolicy("vsync-ish"); !errors.Is(err, core.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestChooseExtent(t *testing.T) {
	caps := gpu.SurfaceCapabilities{
		CurrentExtent:  gpu.Extent2D{Width: 1024, Height: 768},
		MinImageExtent: gpu.Extent2D{Width: 16, Height: 16},
		MaxImageExtent: gpu.Extent2D{Width: 2048, Height: 2048},
	}
	if got := ChooseExtent(caps, gpu.Extent2D{Width: 10, Height: 10}); got != caps.CurrentExtent {
		t.Fatalf("got %+v, want the current extent", got)
	}

	caps.CurrentExtent = gpu.Extent2D{Width: gpu.UndefinedExtent, Height: gpu.UndefinedExtent}
	if got := ChooseExtent(caps, gpu.Extent2D{Width: 4000, Height: 8}); got != (gpu.Extent2D{Width: 2048, Height: 16}) {
		t.Fatalf("got %+v, want the request clamped", got)
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		min, max, want uint32
	}{
		{2, 3, 3},
		{2, 0, 3},
		{3, 3, 3},
		{1, 8, 2},
	}
	for _, tt := range tests {
		caps := gpu.SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max}
		if got := ChooseImageCount(caps); got != tt.want {
			t.Errorf("min %d max %d: got %d, want %d", tt.min, tt.max, got, tt.want)
		}
	}
}

func TestChooseDepthFormat(t *testing.T) {
	dev := gputest.New()
	dev.DepthFormats = []gpu.Format{gpu.FormatD24UnormS8Uint}
	f, err := ChooseDepthFormat(dev)
	if err != nil || f != gpu.FormatD24UnormS8Uint {
		t.Fatalf("got %d, %v", f, err)
	}

	dev.DepthFormats = nil
	if _, err := ChooseDepthFormat(dev); !errors.Is(err, core.ErrNoSuitableDevice) {
		t.Fatalf("err = %v, want ErrNoSuitableDevice", err)
	}
}
