package vkr

import (
	"testing"

	qt "github.com/frankban/quicktest"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/starlight/gfx"
	"github.com/devblok/starlight/gfx/layoutcache"
	vk "github.com/devblok/vulkan"
)

func TestPipelineOutlivesInputLayout(t *testing.T) {
	c := qt.New(t)
	var destroyedSets, destroyedLayouts int
	r := &Renderer{
		objects: newObjects(),
		setLayouts: layoutcache.New("descriptor set layouts", func(vk.DescriptorSetLayout) {
			destroyedSets++
		}, log.New()),
		pipelineLayouts: layoutcache.New("pipeline layouts", func(vk.PipelineLayout) {
			destroyedLayouts++
		}, log.New()),
	}

	set := gfx.DescriptorSetLayoutDesc{Bindings: []gfx.DescriptorBinding{
		{Binding: 0, Type: gfx.DescriptorUniformBuffer, Count: 1, Stages: gfx.StageVertex},
	}}
	desc := gfx.PipelineInputLayoutDesc{Sets: []gfx.DescriptorSetLayoutDesc{set}}
	refs := layoutRefs{key: desc.CacheKey(), setKeys: []string{set.CacheKey()}}

	r.setLayouts.Acquire(set.CacheKey(), func() (vk.DescriptorSetLayout, error) {
		return vk.NullDescriptorSetLayout, nil
	})
	r.pipelineLayouts.Acquire(desc.CacheKey(), func() (vk.PipelineLayout, error) {
		return vk.NullPipelineLayout, nil
	})
	h := gfx.PipelineInputLayout(r.objects.pipelineLayouts.Insert(pipelineLayout{refs: refs}))

	// What CreateGraphicsPipeline records for the pipeline.
	held := r.retainLayout(refs)
	c.Assert(r.pipelineLayouts.Refs(desc.CacheKey()), qt.Equals, 2)

	r.DestroyPipelineInputLayout(h)
	c.Assert(r.pipelineLayouts.Refs(desc.CacheKey()), qt.Equals, 1)
	c.Assert(r.setLayouts.Refs(set.CacheKey()), qt.Equals, 1)
	c.Assert(destroyedLayouts, qt.Equals, 0)
	c.Assert(destroyedSets, qt.Equals, 0)

	// What DestroyPipeline and teardown release.
	r.releaseLayout(held)
	c.Assert(r.pipelineLayouts.Len(), qt.Equals, 0)
	c.Assert(r.setLayouts.Len(), qt.Equals, 0)
	c.Assert(destroyedLayouts, qt.Equals, 1)
	c.Assert(destroyedSets, qt.Equals, 1)
}
