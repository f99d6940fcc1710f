package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tessera/engine/assets/loaders"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

const shaderEntryPoint = "main"

// CreateShaderModule wraps SPIR-V bytecode. The length must be a non-zero
// multiple of four.
func (d *Device) CreateShaderModule(code []byte) (gpu.Handle, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return gpu.NullHandle, errors.Wrapf(core.ErrInvalidBytecode, "length %d", len(code))
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    loaders.BytesToBytecode(code),
	}
	var module vk.ShaderModule
	if err := check("vkCreateShaderModule", vk.CreateShaderModule(d.logicalDevice, &createInfo, nil, &module)); err != nil {
		return gpu.NullHandle, err
	}
	return d.objects.add(module), nil
}

func (d *Device) DestroyShaderModule(module gpu.Handle) {
	if m, ok := d.objects.remove(module).(vk.ShaderModule); ok {
		vk.DestroyShaderModule(d.logicalDevice, m, nil)
	}
}

func shaderStage(module vk.ShaderModule, stage vk.ShaderStageFlagBits) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: module,
		PName:  VulkanSafeString(shaderEntryPoint),
	}
}
