// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/devblok/starlight/gfx"
	vk "github.com/devblok/vulkan"
)

// SetObjectDebugName implements gfx.Renderer.
func (r *Renderer) SetObjectDebugName(obj interface{}, name string) {
	if !r.debug.enabled {
		return
	}
	o := &r.objects
	var (
		objectType vk.DebugReportObjectType
		object     unsafe.Pointer
	)
	switch h := obj.(type) {
	case gfx.Buffer:
		objectType, object = vk.DebugReportObjectTypeBuffer, unsafe.Pointer(o.buffers.Get(gfx.Handle(h)).buffer)
	case gfx.Texture:
		objectType, object = vk.DebugReportObjectTypeImage, unsafe.Pointer(o.textures.Get(gfx.Handle(h)).image)
	case gfx.TextureView:
		objectType, object = vk.DebugReportObjectTypeImageView, unsafe.Pointer(o.views.Get(gfx.Handle(h)).view)
	case gfx.Sampler:
		objectType, object = vk.DebugReportObjectTypeSampler, unsafe.Pointer(o.samplers.Get(gfx.Handle(h)).sampler)
	case gfx.ShaderModule:
		objectType, object = vk.DebugReportObjectTypeShaderModule, unsafe.Pointer(o.shaders.Get(gfx.Handle(h)).module)
	case gfx.RenderPass:
		objectType, object = vk.DebugReportObjectTypeRenderPass, unsafe.Pointer(o.passes.Get(gfx.Handle(h)).pass)
	case gfx.Framebuffer:
		objectType, object = vk.DebugReportObjectTypeFramebuffer, unsafe.Pointer(o.framebuffers.Get(gfx.Handle(h)).framebuffer)
	case gfx.PipelineInputLayout:
		objectType, object = vk.DebugReportObjectTypePipelineLayout, unsafe.Pointer(o.pipelineLayouts.Get(gfx.Handle(h)).layout)
	case gfx.Pipeline:
		objectType, object = vk.DebugReportObjectTypePipeline, unsafe.Pointer(o.pipelines.Get(gfx.Handle(h)).pipeline)
	case gfx.DescriptorSet:
		objectType, object = vk.DebugReportObjectTypeDescriptorSet, unsafe.Pointer(o.sets.Get(gfx.Handle(h)).set)
	case gfx.Fence:
		objectType, object = vk.DebugReportObjectTypeFence, unsafe.Pointer(*o.fences.Get(gfx.Handle(h)))
	case gfx.Semaphore:
		objectType, object = vk.DebugReportObjectTypeSemaphore, unsafe.Pointer(*o.semaphores.Get(gfx.Handle(h)))
	default:
		gfx.Violationf("cannot name object of type %T", obj)
	}
	r.debug.name(objectType, object, name)
}
