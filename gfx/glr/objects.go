// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package glr

import (
	"github.com/devblok/starlight/gfx"
	"github.com/go-gl/gl/v4.3-core/gl"
)

type buffer struct {
	id   uint32
	desc gfx.BufferDesc
}

type texture struct {
	id     uint32
	target uint32
	desc   gfx.TextureDesc

	// swapchain textures stand for the default framebuffer.
	swapchain bool
}

type textureView struct {
	id        uint32
	target    uint32
	texture   gfx.Texture
	format    gfx.Format
	swapchain bool
}

type sampler struct {
	id     uint32
	filter gfx.Filter
}

type shaderModule struct {
	id    uint32
	stage gfx.ShaderStage
	name  string
}

type renderPass struct {
	desc gfx.RenderPassDesc
}

type framebuffer struct {
	id            uint32
	pass          gfx.RenderPass
	width, height uint32
}

// inputLayout is the binding plan shared by equal pipeline input layouts.
type inputLayout struct {
	desc     gfx.PipelineInputLayoutDesc
	pushSize uint32
}

type pipelineLayout struct {
	key    string
	layout *inputLayout
}

type pipeline struct {
	program uint32
	vao     uint32
	mode    uint32
	layout  *inputLayout
	desc    gfx.GraphicsPipelineDesc
	strides map[uint32]int32
}

type descriptorSet struct {
	layout gfx.DescriptorSetLayoutDesc
	writes map[[2]uint32]gfx.DescriptorWrite
	owner  *DescriptorPool
}

type fence struct {
	sync     uintptr
	serial   uint64
	signaled bool
}

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
	fences          *gfx.Table[fence]
	semaphores      *gfx.Table[struct{}]
}

func newObjects() objects {
	return objects{
		buffers:         gfx.NewTable[buffer](gfx.OpenGL),
		textures:        gfx.NewTable[texture](gfx.OpenGL),
		views:           gfx.NewTable[textureView](gfx.OpenGL),
		samplers:        gfx.NewTable[sampler](gfx.OpenGL),
		shaders:         gfx.NewTable[shaderModule](gfx.OpenGL),
		passes:          gfx.NewTable[renderPass](gfx.OpenGL),
		framebuffers:    gfx.NewTable[framebuffer](gfx.OpenGL),
		pipelineLayouts: gfx.NewTable[pipelineLayout](gfx.OpenGL),
		pipelines:       gfx.NewTable[pipeline](gfx.OpenGL),
		sets:            gfx.NewTable[descriptorSet](gfx.OpenGL),
		fences:          gfx.NewTable[fence](gfx.OpenGL),
		semaphores:      gfx.NewTable[struct{}](gfx.OpenGL),
	}
}

// live counts the objects the application still owns. Swapchain textures
// and views are not counted.
func (o *objects) live() int {
	n := o.buffers.Len() + o.samplers.Len() + o.shaders.Len() + o.passes.Len() +
		o.framebuffers.Len() + o.pipelineLayouts.Len() + o.pipelines.Len() +
		o.sets.Len() + o.fences.Len() + o.semaphores.Len()
	o.textures.Each(func(_ gfx.Handle, t *texture) {
		if !t.swapchain {
			n++
		}
	})
	o.views.Each(func(_ gfx.Handle, v *textureView) {
		if !v.swapchain {
			n++
		}
	})
	return n
}

// destroyAll deletes every GL object still referenced by the tables.
func (o *objects) destroyAll() {
	o.pipelines.Each(func(_ gfx.Handle, p *pipeline) {
		gl.DeleteProgram(p.program)
		gl.DeleteVertexArrays(1, &p.vao)
	})
	o.framebuffers.Each(func(_ gfx.Handle, f *framebuffer) {
		if f.id != 0 {
			gl.DeleteFramebuffers(1, &f.id)
		}
	})
	o.shaders.Each(func(_ gfx.Handle, s *shaderModule) {
		gl.DeleteShader(s.id)
	})
	o.samplers.Each(func(_ gfx.Handle, s *sampler) {
		gl.DeleteSamplers(1, &s.id)
	})
	o.views.Each(func(_ gfx.Handle, v *textureView) {
		if !v.swapchain {
			gl.DeleteTextures(1, &v.id)
		}
	})
	o.textures.Each(func(_ gfx.Handle, t *texture) {
		if !t.swapchain {
			gl.DeleteTextures(1, &t.id)
		}
	})
	o.buffers.Each(func(_ gfx.Handle, b *buffer) {
		gl.DeleteBuffers(1, &b.id)
	})
	o.fences.Each(func(_ gfx.Handle, f *fence) {
		if f.sync != 0 {
			gl.DeleteSync(f.sync)
		}
	})
	*o = newObjects()
}
