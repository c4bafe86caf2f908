// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package glr

import (
	"github.com/devblok/starlight/gfx"
	"github.com/go-gl/gl/v4.3-core/gl"
)

// DescriptorPool hands out descriptor sets kept as plain binding tables.
// GL has no pool to exhaust.
type DescriptorPool struct {
	r *Renderer
}

// CreateDescriptorPool creates an empty pool.
func (r *Renderer) CreateDescriptorPool() *DescriptorPool {
	p := &DescriptorPool{r: r}
	r.descPools[p] = struct{}{}
	return p
}

// AllocateDescriptorSet implements gfx.DescriptorPool.
func (p *DescriptorPool) AllocateDescriptorSet(layout gfx.DescriptorSetLayoutDesc) (gfx.DescriptorSet, error) {
	sets, err := p.AllocateDescriptorSets(layout, 1)
	if err != nil {
		return 0, err
	}
	return sets[0], nil
}

// AllocateDescriptorSets implements gfx.DescriptorPool.
func (p *DescriptorPool) AllocateDescriptorSets(layout gfx.DescriptorSetLayoutDesc, count int) ([]gfx.DescriptorSet, error) {
	if count <= 0 {
		gfx.Violationf("allocating %d descriptor sets", count)
	}
	out := make([]gfx.DescriptorSet, count)
	for i := range out {
		out[i] = gfx.DescriptorSet(p.r.objects.sets.Insert(descriptorSet{
			layout: layout,
			writes: make(map[[2]uint32]gfx.DescriptorWrite),
			owner:  p,
		}))
	}
	return out, nil
}

// FreeDescriptorSet implements gfx.DescriptorPool.
func (p *DescriptorPool) FreeDescriptorSet(s gfx.DescriptorSet) {
	p.FreeDescriptorSets([]gfx.DescriptorSet{s})
}

// FreeDescriptorSets implements gfx.DescriptorPool.
func (p *DescriptorPool) FreeDescriptorSets(sets []gfx.DescriptorSet) {
	for _, h := range sets {
		if set := p.r.objects.sets.Get(gfx.Handle(h)); set.owner != p {
			gfx.Violationf("descriptor set %s freed to a pool that did not allocate it", gfx.Handle(h))
		}
	}
	for _, h := range sets {
		p.r.objects.sets.Remove(gfx.Handle(h))
	}
}

// Reset implements gfx.DescriptorPool.
func (p *DescriptorPool) Reset() error {
	p.forget()
	return nil
}

// Destroy implements gfx.DescriptorPool.
func (p *DescriptorPool) Destroy() {
	p.forget()
	delete(p.r.descPools, p)
	if p.r.descriptors == p {
		p.r.descriptors = nil
	}
}

func (p *DescriptorPool) forget() {
	var owned []gfx.Handle
	p.r.objects.sets.Each(func(h gfx.Handle, s *descriptorSet) {
		if s.owner == p {
			owned = append(owned, h)
		}
	})
	for _, h := range owned {
		p.r.objects.sets.Remove(h)
	}
}

// CreateDescriptorSet implements gfx.Renderer.
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
	r.objects.sets.Get(gfx.Handle(s)).owner.FreeDescriptorSet(s)
}

// UpdateDescriptorSet implements gfx.Renderer. Writes take effect for
// draws submitted afterwards.
func (r *Renderer) UpdateDescriptorSet(s gfx.DescriptorSet, writes []gfx.DescriptorWrite) {
	set := r.objects.sets.Get(gfx.Handle(s))
	for _, w := range writes {
		switch w.Type {
		case gfx.DescriptorUniformBuffer, gfx.DescriptorUniformBufferDynamic, gfx.DescriptorStorageBuffer:
			b := r.objects.buffers.Get(gfx.Handle(w.Buffer))
			if w.Offset > b.desc.Size {
				gfx.Violationf("descriptor offset %d past buffer of %d bytes", w.Offset, b.desc.Size)
			}
		case gfx.DescriptorSampler:
			r.objects.samplers.Get(gfx.Handle(w.Sampler))
		case gfx.DescriptorCombinedTextureSampler:
			r.objects.samplers.Get(gfx.Handle(w.Sampler))
			r.objects.views.Get(gfx.Handle(w.View))
		default:
			r.objects.views.Get(gfx.Handle(w.View))
		}
		set.writes[[2]uint32{w.Binding, w.ArrayElement}] = w
	}
}

// bindSet makes the resources of set visible at the binding points of set
// index si.
func (r *Renderer) bindSet(si uint32, set *descriptorSet) {
	for key, w := range set.writes {
		point := bindingPoint(si, key[0], key[1])
		switch w.Type {
		case gfx.DescriptorUniformBuffer, gfx.DescriptorUniformBufferDynamic, gfx.DescriptorStorageBuffer:
			b, ok := r.objects.buffers.Lookup(gfx.Handle(w.Buffer))
			if !ok {
				continue
			}
			rng := w.Range
			if rng == 0 {
				rng = b.desc.Size - w.Offset
			}
			target := uint32(gl.UNIFORM_BUFFER)
			if w.Type == gfx.DescriptorStorageBuffer {
				target = gl.SHADER_STORAGE_BUFFER
			}
			gl.BindBufferRange(target, point, b.id, int(w.Offset), int(rng))
		case gfx.DescriptorSampler:
			if s, ok := r.objects.samplers.Lookup(gfx.Handle(w.Sampler)); ok {
				gl.BindSampler(point, s.id)
			}
		case gfx.DescriptorSampledTexture, gfx.DescriptorCombinedTextureSampler:
			if v, ok := r.objects.views.Lookup(gfx.Handle(w.View)); ok {
				gl.ActiveTexture(gl.TEXTURE0 + point)
				gl.BindTexture(v.target, v.id)
			}
			if w.Type == gfx.DescriptorCombinedTextureSampler {
				if s, ok := r.objects.samplers.Lookup(gfx.Handle(w.Sampler)); ok {
					gl.BindSampler(point, s.id)
				}
			}
		case gfx.DescriptorStorageTexture:
			if v, ok := r.objects.views.Lookup(gfx.Handle(w.View)); ok {
				gl.BindImageTexture(point, v.id, 0, true, 0, gl.READ_WRITE, lookupFormat(v.format).internal)
			}
		}
	}
}
