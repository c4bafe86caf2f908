// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/starlight/gfx"
	"github.com/devblok/starlight/gfx/poolchain"
	vk "github.com/devblok/vulkan"
)

const (
	defaultSetsPerPool = 64

	// descriptorsPerSet sizes every descriptor type of a pool.
	descriptorsPerSet = 4
)

var poolDescriptorTypes = []vk.DescriptorType{
	vk.DescriptorTypeUniformBuffer,
	vk.DescriptorTypeUniformBufferDynamic,
	vk.DescriptorTypeStorageBuffer,
	vk.DescriptorTypeSampledImage,
	vk.DescriptorTypeSampler,
	vk.DescriptorTypeCombinedImageSampler,
	vk.DescriptorTypeStorageImage,
}

// descriptorAllocator creates the VkDescriptorPools of a chain. layout is
// the set layout of the allocation in progress.
type descriptorAllocator struct {
	device      vk.Device
	setsPerPool uint32
	layout      vk.DescriptorSetLayout
}

func (a *descriptorAllocator) NewPool() (vk.DescriptorPool, error) {
	sizes := make([]vk.DescriptorPoolSize, len(poolDescriptorTypes))
	for i, t := range poolDescriptorTypes {
		sizes[i] = vk.DescriptorPoolSize{
			Type:            t,
			DescriptorCount: a.setsPerPool * descriptorsPerSet,
		}
	}
	dpci := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       a.setsPerPool,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}

	var pool vk.DescriptorPool
	if err := check("vkCreateDescriptorPool", vk.CreateDescriptorPool(a.device, &dpci, nil, &pool)); err != nil {
		return nil, err
	}
	return pool, nil
}

func (a *descriptorAllocator) Allocate(pool vk.DescriptorPool, n int) ([]vk.DescriptorSet, error) {
	layouts := make([]vk.DescriptorSetLayout, n)
	for i := range layouts {
		layouts[i] = a.layout
	}
	dsai := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(n),
		PSetLayouts:        layouts,
	}

	sets := make([]vk.DescriptorSet, n)
	res := vk.AllocateDescriptorSets(a.device, &dsai, &sets[0])
	if poolExhausted(res) {
		return nil, poolchain.ErrExhausted
	}
	if err := check("vkAllocateDescriptorSets", res); err != nil {
		return nil, err
	}
	return sets, nil
}

func (a *descriptorAllocator) Free(pool vk.DescriptorPool, sets []vk.DescriptorSet) error {
	if len(sets) == 0 {
		return nil
	}
	return check("vkFreeDescriptorSets", vk.FreeDescriptorSets(a.device, pool, uint32(len(sets)), &sets[0]))
}

func (a *descriptorAllocator) Reset(pool vk.DescriptorPool) error {
	return check("vkResetDescriptorPool", vk.ResetDescriptorPool(a.device, pool, 0))
}

func (a *descriptorAllocator) DestroyPool(pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(a.device, pool, nil)
}

// DescriptorPool allocates descriptor sets from a growing chain of
// VkDescriptorPools. Each set remembers the pool it came from.
type DescriptorPool struct {
	r     *Renderer
	alloc *descriptorAllocator
	chain *poolchain.Chain[vk.DescriptorPool, vk.DescriptorSet]
}

// CreateDescriptorPool creates a pool whose chain adds a VkDescriptorPool of
// setsPerPool sets whenever the current ones are full.
func (r *Renderer) CreateDescriptorPool(setsPerPool uint32) *DescriptorPool {
	if setsPerPool == 0 {
		setsPerPool = defaultSetsPerPool
	}
	alloc := &descriptorAllocator{device: r.device, setsPerPool: setsPerPool}
	p := &DescriptorPool{
		r:     r,
		alloc: alloc,
		chain: poolchain.New[vk.DescriptorPool, vk.DescriptorSet](alloc, r.log.WithField("pool", "descriptor")),
	}
	r.descriptorPools[p] = struct{}{}
	return p
}

// Pools returns the number of VkDescriptorPools in the chain.
func (p *DescriptorPool) Pools() int {
	return p.chain.Pools()
}

// AllocateDescriptorSet implements gfx.DescriptorPool.
func (p *DescriptorPool) AllocateDescriptorSet(layout gfx.DescriptorSetLayoutDesc) (gfx.DescriptorSet, error) {
	sets, err := p.AllocateDescriptorSets(layout, 1)
	if err != nil {
		return 0, err
	}
	return sets[0], nil
}

// AllocateDescriptorSets implements gfx.DescriptorPool. The sets of one
// call come from the same VkDescriptorPool.
func (p *DescriptorPool) AllocateDescriptorSets(layout gfx.DescriptorSetLayoutDesc, count int) ([]gfx.DescriptorSet, error) {
	if count <= 0 {
		gfx.Violationf("allocating %d descriptor sets", count)
	}

	key := layout.CacheKey()
	var vkLayout vk.DescriptorSetLayout
	for i := 0; i < count; i++ {
		l, err := p.r.acquireSetLayout(layout)
		if err != nil {
			for ; i > 0; i-- {
				p.r.setLayouts.Release(key)
			}
			return nil, err
		}
		vkLayout = l
	}

	p.alloc.layout = vkLayout
	pool, sets, err := p.chain.Allocate(count)
	p.alloc.layout = nil
	if err != nil {
		for i := 0; i < count; i++ {
			p.r.setLayouts.Release(key)
		}
		return nil, err
	}

	out := make([]gfx.DescriptorSet, count)
	for i, s := range sets {
		out[i] = gfx.DescriptorSet(p.r.objects.sets.Insert(descriptorSet{
			set:       s,
			pool:      pool,
			owner:     p,
			layoutKey: key,
		}))
	}
	return out, nil
}

// FreeDescriptorSet implements gfx.DescriptorPool.
func (p *DescriptorPool) FreeDescriptorSet(s gfx.DescriptorSet) {
	p.FreeDescriptorSets([]gfx.DescriptorSet{s})
}

// FreeDescriptorSets implements gfx.DescriptorPool. Sets are returned to
// the VkDescriptorPool that allocated them.
func (p *DescriptorPool) FreeDescriptorSets(sets []gfx.DescriptorSet) {
	for _, h := range sets {
		if set := p.r.objects.sets.Get(gfx.Handle(h)); set.owner != p {
			gfx.Violationf("descriptor set %s freed to a pool that did not allocate it", gfx.Handle(h))
		}
	}

	byPool := make(map[vk.DescriptorPool][]vk.DescriptorSet)
	var order []vk.DescriptorPool
	for _, h := range sets {
		set := p.r.objects.sets.Remove(gfx.Handle(h))
		if _, ok := byPool[set.pool]; !ok {
			order = append(order, set.pool)
		}
		byPool[set.pool] = append(byPool[set.pool], set.set)
		p.r.setLayouts.Release(set.layoutKey)
	}
	for _, pool := range order {
		if err := p.chain.Free(pool, byPool[pool]); err != nil {
			p.r.log.WithError(err).Error("freeing descriptor sets")
		}
	}
}

// Reset implements gfx.DescriptorPool. Every set of the pool is invalid
// afterwards.
func (p *DescriptorPool) Reset() error {
	p.forget()
	return p.chain.Reset()
}

// Destroy implements gfx.DescriptorPool.
func (p *DescriptorPool) Destroy() {
	p.forget()
	p.chain.Destroy()
	delete(p.r.descriptorPools, p)
	if p.r.descriptors == p {
		p.r.descriptors = nil
	}
}

// forget drops the handles of every set allocated by p.
func (p *DescriptorPool) forget() {
	var owned []gfx.Handle
	p.r.objects.sets.Each(func(h gfx.Handle, s *descriptorSet) {
		if s.owner == p {
			owned = append(owned, h)
		}
	})
	for _, h := range owned {
		set := p.r.objects.sets.Remove(h)
		p.r.setLayouts.Release(set.layoutKey)
	}
}

// CreateDescriptorSet implements gfx.Renderer. Sets come from the renderer's
// own descriptor pool.
func (r *Renderer) CreateDescriptorSet(desc gfx.DescriptorSetDesc) (gfx.DescriptorSet, error) {
	if r.descriptors == nil {
		return 0, gfx.ErrNotInitialised
	}
	s, err := r.descriptors.AllocateDescriptorSet(desc.Layout)
	if err != nil {
		return 0, err
	}
	if len(desc.Writes) > 0 {
		r.UpdateDescriptorSet(s, desc.Writes)
	}
	return s, nil
}

// DestroyDescriptorSet implements gfx.Renderer.
func (r *Renderer) DestroyDescriptorSet(s gfx.DescriptorSet) {
	set := r.objects.sets.Get(gfx.Handle(s))
	set.owner.FreeDescriptorSet(s)
}

// UpdateDescriptorSet implements gfx.Renderer. A zero buffer range covers
// the rest of the buffer.
func (r *Renderer) UpdateDescriptorSet(s gfx.DescriptorSet, writes []gfx.DescriptorWrite) {
	set := r.objects.sets.Get(gfx.Handle(s))
	wds := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		wd := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set.set,
			DstBinding:      w.Binding,
			DstArrayElement: w.ArrayElement,
			DescriptorType:  vkDescriptorType(w.Type),
			DescriptorCount: 1,
		}
		switch w.Type {
		case gfx.DescriptorUniformBuffer, gfx.DescriptorUniformBufferDynamic, gfx.DescriptorStorageBuffer:
			b := r.objects.buffers.Get(gfx.Handle(w.Buffer))
			if w.Offset > b.desc.Size {
				gfx.Violationf("descriptor offset %d past buffer of %d bytes", w.Offset, b.desc.Size)
			}
			rng := w.Range
			if rng == 0 {
				rng = b.desc.Size - w.Offset
			}
			wd.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: b.buffer,
				Offset: vk.DeviceSize(w.Offset),
				Range:  vk.DeviceSize(rng),
			}}
		default:
			wd.PImageInfo = []vk.DescriptorImageInfo{r.imageInfo(w)}
		}
		wds = append(wds, wd)
	}
	vk.UpdateDescriptorSets(r.device, uint32(len(wds)), wds, 0, nil)
}

func (r *Renderer) imageInfo(w gfx.DescriptorWrite) vk.DescriptorImageInfo {
	var info vk.DescriptorImageInfo
	if w.Type != gfx.DescriptorSampler {
		info.ImageView = r.objects.views.Get(gfx.Handle(w.View)).view
		layout := w.Layout
		if layout == gfx.LayoutUndefined {
			layout = gfx.LayoutShaderReadOnly
			if w.Type == gfx.DescriptorStorageTexture {
				layout = gfx.LayoutGeneral
			}
		}
		info.ImageLayout = vkImageLayout(layout)
	}
	if w.Type == gfx.DescriptorSampler || w.Type == gfx.DescriptorCombinedTextureSampler {
		info.Sampler = r.objects.samplers.Get(gfx.Handle(w.Sampler)).sampler
	}
	return info
}
