package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		result    vk.Result
		wantNil   bool
		transient bool
		is        error
	}{
		{"success", vk.Success, true, false, nil},
		{"out of date", vk.ErrorOutOfDate, false, true, gpu.ErrOutOfDate},
		{"suboptimal", vk.Suboptimal, false, true, gpu.ErrSuboptimal},
		{"timeout", vk.Timeout, false, false, gpu.ErrTimeout},
		{"device lost", vk.ErrorDeviceLost, false, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := check("vkTest", tt.result)
			if (err == nil) != tt.wantNil {
				t.Fatalf("check(%d) = %v", tt.result, err)
			}
			if gpu.IsTransient(err) != tt.transient {
				t.Errorf("IsTransient = %t, want %t", gpu.IsTransient(err), tt.transient)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("err = %v, want %v", err, tt.is)
			}
		})
	}

	var re *gpu.ResultError
	if err := check("vkQueueSubmit", vk.ErrorDeviceLost); !errors.As(err, &re) {
		t.Fatalf("device lost should be a ResultError, got %T", err)
	}
	if re.Name != "VK_ERROR_DEVICE_LOST" || re.Code != int32(vk.ErrorDeviceLost) || re.Op != "vkQueueSubmit" {
		t.Errorf("unexpected result error %+v", re)
	}
}

func TestVulkanResultString(t *testing.T) {
	if got := VulkanResultString(vk.ErrorOutOfDate, false); got != "VK_ERROR_OUT_OF_DATE_KHR" {
		t.Errorf("got %q", got)
	}
	if got := VulkanResultString(vk.Success, true); got != "VK_SUCCESS Command successfully completed" {
		t.Errorf("got %q", got)
	}
	if got := VulkanResultString(vk.Result(-12345), false); got != "VK_ERROR_UNKNOWN" {
		t.Errorf("got %q", got)
	}
	if !VulkanResultIsSuccess(vk.Suboptimal) || VulkanResultIsSuccess(vk.ErrorDeviceLost) {
		t.Error("VulkanResultIsSuccess misclassifies results")
	}
}

func TestSafeStrings(t *testing.T) {
	if got := VulkanSafeString("main"); got != "main\x00" {
		t.Errorf("got %q", got)
	}
	if got := VulkanSafeString("main\x00"); got != "main\x00" {
		t.Errorf("got %q", got)
	}
	if got := VulkanSafeString(""); got != "\x00" {
		t.Errorf("got %q", got)
	}
	in := []string{"a", "b\x00"}
	out := VulkanSafeStrings(in)
	if out[0] != "a\x00" || out[1] != "b\x00" || in[0] != "a" {
		t.Errorf("VulkanSafeStrings(%q) = %q", in, out)
	}
}

func TestCString(t *testing.T) {
	var name [16]byte
	copy(name[:], "VK_LAYER")
	if got := cString(name[:]); got != "VK_LAYER" {
		t.Errorf("got %q", got)
	}
	full := []byte("abcd")
	if got := cString(full); got != "abcd" {
		t.Errorf("got %q", got)
	}
}

func TestRegistry(t *testing.T) {
	var r registry
	a := r.add("first")
	b := r.add(42)
	if a == gpu.NullHandle || a == b {
		t.Fatalf("handles %d and %d", a, b)
	}
	if v, ok := r.get(b).(int); !ok || v != 42 {
		t.Fatalf("get(%d) = %v", b, r.get(b))
	}
	if r.remove(a) != "first" || r.get(a) != nil {
		t.Fatal("remove did not drop the object")
	}
	if r.remove(a) != nil {
		t.Fatal("second remove should return nil")
	}
	if r.len() != 1 {
		t.Fatalf("len = %d", r.len())
	}
}

func TestTransitionMasks(t *testing.T) {
	tests := []struct {
		name      string
		old, new  gpu.ImageLayout
		dstAccess vk.AccessFlags
		dstStage  vk.PipelineStageFlags
	}{
		{"upload", gpu.ImageLayoutUndefined, gpu.ImageLayoutTransferDstOptimal,
			vk.AccessFlags(vk.AccessTransferWriteBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)},
		{"sample", gpu.ImageLayoutTransferDstOptimal, gpu.ImageLayoutShaderReadOnlyOptimal,
			vk.AccessFlags(vk.AccessShaderReadBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)},
		{"depth", gpu.ImageLayoutUndefined, gpu.ImageLayoutDepthStencilAttachmentOptimal,
			vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)},
		{"fallback", gpu.ImageLayoutPresentSrc, gpu.ImageLayoutTransferDstOptimal,
			vk.AccessFlags(vk.AccessMemoryReadBit | vk.AccessMemoryWriteBit), vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, dstAccess, _, dstStage := transitionMasks(tt.old, tt.new)
			if dstAccess != tt.dstAccess || dstStage != tt.dstStage {
				t.Errorf("got access %#x stage %#x, want %#x %#x", dstAccess, dstStage, tt.dstAccess, tt.dstStage)
			}
		})
	}
}

// the gpu enums are cast straight to their Vulkan counterparts
func TestEnumsMatchVulkan(t *testing.T) {
	pairs := []struct {
		name string
		got  int64
		want int64
	}{
		{"FormatB8G8R8A8Srgb", int64(gpu.FormatB8G8R8A8Srgb), int64(vk.FormatB8g8r8a8Srgb)},
		{"FormatR8G8B8A8Srgb", int64(gpu.FormatR8G8B8A8Srgb), int64(vk.FormatR8g8b8a8Srgb)},
		{"FormatD32Sfloat", int64(gpu.FormatD32Sfloat), int64(vk.FormatD32Sfloat)},
		{"FormatD24UnormS8Uint", int64(gpu.FormatD24UnormS8Uint), int64(vk.FormatD24UnormS8Uint)},
		{"FormatR32G32B32Sfloat", int64(gpu.FormatR32G32B32Sfloat), int64(vk.FormatR32g32b32Sfloat)},
		{"PresentModeMailbox", int64(gpu.PresentModeMailbox), int64(vk.PresentModeMailbox)},
		{"PresentModeFifo", int64(gpu.PresentModeFifo), int64(vk.PresentModeFifo)},
		{"ImageLayoutPresentSrc", int64(gpu.ImageLayoutPresentSrc), int64(vk.ImageLayoutPresentSrc)},
		{"ImageLayoutShaderReadOnlyOptimal", int64(gpu.ImageLayoutShaderReadOnlyOptimal), int64(vk.ImageLayoutShaderReadOnlyOptimal)},
		{"BufferUsageVertex", int64(gpu.BufferUsageVertex), int64(vk.BufferUsageVertexBufferBit)},
		{"BufferUsageUniform", int64(gpu.BufferUsageUniform), int64(vk.BufferUsageUniformBufferBit)},
		{"ImageUsageDepthStencilAttachment", int64(gpu.ImageUsageDepthStencilAttachment), int64(vk.ImageUsageDepthStencilAttachmentBit)},
		{"MemoryPropertyHostCoherent", int64(gpu.MemoryPropertyHostCoherent), int64(vk.MemoryPropertyHostCoherentBit)},
		{"DescriptorTypeStorageBuffer", int64(gpu.DescriptorTypeStorageBuffer), int64(vk.DescriptorTypeStorageBuffer)},
		{"DescriptorTypeCombinedImageSampler", int64(gpu.DescriptorTypeCombinedImageSampler), int64(vk.DescriptorTypeCombinedImageSampler)},
		{"ShaderStageFragment", int64(gpu.ShaderStageFragment), int64(vk.ShaderStageFragmentBit)},
		{"AddressModeClampToEdge", int64(gpu.AddressModeClampToEdge), int64(vk.SamplerAddressModeClampToEdge)},
		{"CompareOpLess", int64(gpu.CompareOpLess), int64(vk.CompareOpLess)},
		{"LoadOpClear", int64(gpu.LoadOpClear), int64(vk.AttachmentLoadOpClear)},
		{"StoreOpDontCare", int64(gpu.StoreOpDontCare), int64(vk.AttachmentStoreOpDontCare)},
	}
	for _, p := range pairs {
		if p.got != p.want {
			t.Errorf("%s = %d, Vulkan uses %d", p.name, p.got, p.want)
		}
	}
}
