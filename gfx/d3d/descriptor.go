// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package d3d

import (
	"github.com/devblok/starlight/gfx"
)

// DescriptorPool constructs descriptor sets directly in the object tables,
// Sets11 or Sets12 depending on the backend. There is no capacity limit.
// Several pools may share one Objects; each only frees and resets the sets
// it allocated.
type DescriptorPool struct {
	objects *Objects
	owned   map[gfx.Handle]struct{}
	next    uint32
}

// NewDescriptorPool creates a pool storing its sets in objects.
func NewDescriptorPool(objects *Objects) *DescriptorPool {
	return &DescriptorPool{
		objects: objects,
		owned:   make(map[gfx.Handle]struct{}),
	}
}

// AllocateDescriptorSet implements gfx.DescriptorPool.
func (p *DescriptorPool) AllocateDescriptorSet(layout gfx.DescriptorSetLayoutDesc) (gfx.DescriptorSet, error) {
	var h gfx.Handle
	if p.objects.Backend == gfx.D3D11 {
		h = p.objects.Sets11.Insert(DescriptorSet11{Layout: layout})
	} else {
		var size uint32
		for _, b := range layout.Bindings {
			size += b.Count
		}
		h = p.objects.Sets12.Insert(DescriptorSet12{
			Offset: p.next,
			Layout: layout,
		})
		p.next += size
	}
	p.owned[h] = struct{}{}
	return gfx.DescriptorSet(h), nil
}

// AllocateDescriptorSets implements gfx.DescriptorPool.
func (p *DescriptorPool) AllocateDescriptorSets(layout gfx.DescriptorSetLayoutDesc, count int) ([]gfx.DescriptorSet, error) {
	if count <= 0 {
		gfx.Violationf("allocating %d descriptor sets", count)
	}
	out := make([]gfx.DescriptorSet, count)
	for i := range out {
		out[i], _ = p.AllocateDescriptorSet(layout)
	}
	return out, nil
}

// Update replaces the writes of s.
func (p *DescriptorPool) Update(s gfx.DescriptorSet, writes []gfx.DescriptorWrite) {
	h := p.mustOwn(s, "updated through")
	if p.objects.Backend == gfx.D3D11 {
		set := p.objects.Sets11.Get(h)
		set.Writes = append(set.Writes[:0], writes...)
		return
	}
	set := p.objects.Sets12.Get(h)
	set.Writes = append(set.Writes[:0], writes...)
}

// FreeDescriptorSet implements gfx.DescriptorPool.
func (p *DescriptorPool) FreeDescriptorSet(s gfx.DescriptorSet) {
	p.FreeDescriptorSets([]gfx.DescriptorSet{s})
}

// FreeDescriptorSets implements gfx.DescriptorPool.
func (p *DescriptorPool) FreeDescriptorSets(sets []gfx.DescriptorSet) {
	for _, s := range sets {
		p.remove(p.mustOwn(s, "freed to"))
	}
}

// Reset implements gfx.DescriptorPool.
func (p *DescriptorPool) Reset() error {
	for h := range p.owned {
		p.remove(h)
	}
	p.next = 0
	return nil
}

// Destroy implements gfx.DescriptorPool.
func (p *DescriptorPool) Destroy() {
	p.Reset()
}

// mustOwn validates s against its table and checks that p allocated it.
func (p *DescriptorPool) mustOwn(s gfx.DescriptorSet, verb string) gfx.Handle {
	h := gfx.Handle(s)
	if p.objects.Backend == gfx.D3D11 {
		p.objects.Sets11.Get(h)
	} else {
		p.objects.Sets12.Get(h)
	}
	if _, ok := p.owned[h]; !ok {
		gfx.Violationf("descriptor set %s %s a pool that did not allocate it", h, verb)
	}
	return h
}

func (p *DescriptorPool) remove(h gfx.Handle) {
	delete(p.owned, h)
	if p.objects.Backend == gfx.D3D11 {
		p.objects.Sets11.Remove(h)
		return
	}
	p.objects.Sets12.Remove(h)
}
