package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tessera/engine/renderer/gpu"
)

func (d *Device) CreateDescriptorSetLayout(bindings []gpu.DescriptorBinding) (gpu.Handle, error) {
	layoutBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		layoutBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  vk.DescriptorType(b.Type),
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(b.Stages),
		}
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}
	var layout vk.DescriptorSetLayout
	if err := check("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(d.logicalDevice, &layoutInfo, nil, &layout)); err != nil {
		return gpu.NullHandle, err
	}
	return d.objects.add(layout), nil
}

func (d *Device) DestroyDescriptorSetLayout(layout gpu.Handle) {
	if l, ok := d.objects.remove(layout).(vk.DescriptorSetLayout); ok {
		vk.DestroyDescriptorSetLayout(d.logicalDevice, l, nil)
	}
}

func (d *Device) CreateDescriptorPool(maxSets uint32, sizes []gpu.DescriptorPoolSize) (gpu.Handle, error) {
	poolSizes := make([]vk.DescriptorPoolSize, len(sizes))
	for i, s := range sizes {
		poolSizes[i] = vk.DescriptorPoolSize{
			Type:            vk.DescriptorType(s.Type),
			DescriptorCount: s.Count,
		}
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if err := check("vkCreateDescriptorPool", vk.CreateDescriptorPool(d.logicalDevice, &poolInfo, nil, &pool)); err != nil {
		return gpu.NullHandle, err
	}
	return d.objects.add(&descriptorPoolObj{handle: pool}), nil
}

func (d *Device) DestroyDescriptorPool(pool gpu.Handle) {
	p, ok := d.objects.remove(pool).(*descriptorPoolObj)
	if !ok {
		return
	}
	for _, set := range p.sets {
		d.objects.remove(set)
	}
	vk.DestroyDescriptorPool(d.logicalDevice, p.handle, nil)
}

// AllocateDescriptorSet serializes on the pool lock; descriptor pools are
// externally synchronized and textures may be loaded from job workers.
func (d *Device) AllocateDescriptorSet(pool, layout gpu.Handle) (gpu.Handle, error) {
	p := d.descriptorPool(pool)
	if p == nil {
		return gpu.NullHandle, &gpu.ResultError{Op: "vkAllocateDescriptorSets", Code: int32(vk.ErrorOutOfPoolMemory), Name: "unknown descriptor pool"}
	}
	var handle gpu.Handle
	err := d.locks.SafeCall(PoolManagement, func() error {
		allocInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     p.handle,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{d.setLayout(layout)},
		}
		var set vk.DescriptorSet
		if err := check("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(d.logicalDevice, &allocInfo, &set)); err != nil {
			return err
		}
		handle = d.objects.add(set)
		p.sets = append(p.sets, handle)
		return nil
	})
	return handle, err
}

func (d *Device) UpdateDescriptorSets(writes []gpu.DescriptorWrite) {
	vkWrites := make([]vk.WriteDescriptorSet, len(writes))
	for i, w := range writes {
		vkWrites[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          d.descriptorSet(w.Set),
			DstBinding:      w.Binding,
			DstArrayElement: 0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorType(w.Type),
		}
		if w.Type == gpu.DescriptorTypeCombinedImageSampler {
			vkWrites[i].PImageInfo = []vk.DescriptorImageInfo{{
				Sampler:     d.sampler(w.Sampler),
				ImageView:   d.imageView(w.ImageView),
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}}
		} else {
			vkWrites[i].PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: d.buffer(w.Buffer),
				Offset: vk.DeviceSize(w.Offset),
				Range:  vk.DeviceSize(w.Range),
			}}
		}
	}
	d.locks.SafeCall(PoolManagement, func() error {
		vk.UpdateDescriptorSets(d.logicalDevice, uint32(len(vkWrites)), vkWrites, 0, nil)
		return nil
	})
}
