// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/starlight/gfx"
	vk "github.com/devblok/vulkan"
)

type buffer struct {
	buffer vk.Buffer
	memory Memory
	desc   gfx.BufferDesc
}

type texture struct {
	image  vk.Image
	memory Memory
	desc   gfx.TextureDesc

	// swapchain images are owned by the swapchain.
	swapchain bool
}

type textureView struct {
	view      vk.ImageView
	texture   gfx.Texture
	format    gfx.Format
	swapchain bool
}

type sampler struct {
	sampler vk.Sampler
	filter  gfx.Filter
}

type shaderModule struct {
	module vk.ShaderModule
	stage  gfx.ShaderStage
	name   string
}

type renderPass struct {
	pass vk.RenderPass
	desc gfx.RenderPassDesc
}

type framebuffer struct {
	framebuffer vk.Framebuffer
	width       uint32
	height      uint32
}

// layoutRefs are the layout cache keys an object holds references on.
type layoutRefs struct {
	key     string
	setKeys []string
}

type pipelineLayout struct {
	layout   vk.PipelineLayout
	refs     layoutRefs
	pushSize uint32
}

type pipeline struct {
	pipeline vk.Pipeline
	layout   vk.PipelineLayout
	refs     layoutRefs
	pushSize uint32
}

type descriptorSet struct {
	set       vk.DescriptorSet
	pool      vk.DescriptorPool
	owner     *DescriptorPool
	layoutKey string
}

// objects are the side tables translating handles to Vulkan objects.
type objects struct {
	buffers         *gfx.Table[buffer]
	textures        *gfx.Table[texture]
	views           *gfx.Table[textureView]
	samplers        *gfx.Table[sampler]
	shaders         *gfx.Table[shaderModule]
	passes          *gfx.Table[renderPass]
	framebuffers    *gfx.Table[framebuffer]
	pipelineLayouts *gfx.Table[pipelineLayout]
	pipelines       *gfx.Table[pipeline]
	sets            *gfx.Table[descriptorSet]
	fences          *gfx.Table[vk.Fence]
	semaphores      *gfx.Table[vk.Semaphore]
}

func newObjects() objects {
	return objects{
		buffers:         gfx.NewTable[buffer](gfx.Vulkan),
		textures:        gfx.NewTable[texture](gfx.Vulkan),
		views:           gfx.NewTable[textureView](gfx.Vulkan),
		samplers:        gfx.NewTable[sampler](gfx.Vulkan),
		shaders:         gfx.NewTable[shaderModule](gfx.Vulkan),
		passes:          gfx.NewTable[renderPass](gfx.Vulkan),
		framebuffers:    gfx.NewTable[framebuffer](gfx.Vulkan),
		pipelineLayouts: gfx.NewTable[pipelineLayout](gfx.Vulkan),
		pipelines:       gfx.NewTable[pipeline](gfx.Vulkan),
		sets:            gfx.NewTable[descriptorSet](gfx.Vulkan),
		fences:          gfx.NewTable[vk.Fence](gfx.Vulkan),
		semaphores:      gfx.NewTable[vk.Semaphore](gfx.Vulkan),
	}
}

// live counts the objects the application created and has not destroyed.
func (o *objects) live() int {
	return o.buffers.Len() + o.textures.Len() + o.views.Len() + o.samplers.Len() +
		o.shaders.Len() + o.passes.Len() + o.framebuffers.Len() + o.pipelineLayouts.Len() +
		o.pipelines.Len() + o.sets.Len() + o.fences.Len() + o.semaphores.Len()
}

// destroyAll releases every remaining native object. Pipelines drop their
// layout references; layouts and sets are otherwise owned by the layout
// caches and descriptor pools, which are torn down separately.
func (o *objects) destroyAll(r *Renderer) {
	dev := r.device
	o.pipelines.Each(func(_ gfx.Handle, p *pipeline) {
		vk.DestroyPipeline(dev, p.pipeline, nil)
		r.releaseLayout(p.refs)
	})
	o.framebuffers.Each(func(_ gfx.Handle, f *framebuffer) {
		vk.DestroyFramebuffer(dev, f.framebuffer, nil)
	})
	o.passes.Each(func(_ gfx.Handle, p *renderPass) {
		vk.DestroyRenderPass(dev, p.pass, nil)
	})
	o.shaders.Each(func(_ gfx.Handle, s *shaderModule) {
		vk.DestroyShaderModule(dev, s.module, nil)
	})
	o.samplers.Each(func(_ gfx.Handle, s *sampler) {
		vk.DestroySampler(dev, s.sampler, nil)
	})
	o.views.Each(func(_ gfx.Handle, v *textureView) {
		vk.DestroyImageView(dev, v.view, nil)
	})
	o.textures.Each(func(_ gfx.Handle, t *texture) {
		if !t.swapchain {
			vk.DestroyImage(dev, t.image, nil)
			t.memory.Release()
		}
	})
	o.buffers.Each(func(_ gfx.Handle, b *buffer) {
		vk.DestroyBuffer(dev, b.buffer, nil)
		b.memory.Release()
	})
	o.fences.Each(func(_ gfx.Handle, f *vk.Fence) {
		vk.DestroyFence(dev, *f, nil)
	})
	o.semaphores.Each(func(_ gfx.Handle, s *vk.Semaphore) {
		vk.DestroySemaphore(dev, *s, nil)
	})
	*o = newObjects()
}
