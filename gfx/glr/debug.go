// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package glr

import (
	"unsafe"

	"github.com/devblok/starlight/gfx"
	"github.com/go-gl/gl/v4.3-core/gl"
	log "github.com/sirupsen/logrus"
)

// enableDebugOutput routes KHR_debug messages to the renderer log.
func (r *Renderer) enableDebugOutput() {
	r.debug = true
	logger := r.log.WithField("source", "KHR_debug")
	gl.Enable(gl.DEBUG_OUTPUT)
	gl.Enable(gl.DEBUG_OUTPUT_SYNCHRONOUS)
	gl.DebugMessageCallback(func(source, gltype, id, severity uint32, length int32, message string, _ unsafe.Pointer) {
		entry := logger.WithFields(log.Fields{"id": id, "type": gltype})
		switch severity {
		case gl.DEBUG_SEVERITY_HIGH:
			entry.Error(message)
		case gl.DEBUG_SEVERITY_MEDIUM:
			entry.Warn(message)
		case gl.DEBUG_SEVERITY_LOW:
			entry.Info(message)
		default:
			entry.Debug(message)
		}
	}, nil)
	r.log.Info("opengl debug output enabled")
}

func (r *Renderer) label(identifier, name uint32, label string) {
	if r.debug {
		gl.ObjectLabel(identifier, name, -1, cstr(label))
	}
}

// SetObjectDebugName implements gfx.Renderer. Objects without a GL name
// are ignored.
func (r *Renderer) SetObjectDebugName(obj interface{}, name string) {
	if !r.debug {
		return
	}
	o := &r.objects
	switch h := obj.(type) {
	case gfx.Buffer:
		r.label(gl.BUFFER, o.buffers.Get(gfx.Handle(h)).id, name)
	case gfx.Texture:
		if t := o.textures.Get(gfx.Handle(h)); !t.swapchain {
			r.label(gl.TEXTURE, t.id, name)
		}
	case gfx.TextureView:
		if v := o.views.Get(gfx.Handle(h)); v.id != 0 {
			r.label(gl.TEXTURE, v.id, name)
		}
	case gfx.Sampler:
		r.label(gl.SAMPLER, o.samplers.Get(gfx.Handle(h)).id, name)
	case gfx.ShaderModule:
		r.label(gl.SHADER, o.shaders.Get(gfx.Handle(h)).id, name)
	case gfx.Framebuffer:
		if fb := o.framebuffers.Get(gfx.Handle(h)); fb.id != 0 {
			r.label(gl.FRAMEBUFFER, fb.id, name)
		}
	case gfx.Pipeline:
		p := o.pipelines.Get(gfx.Handle(h))
		r.label(gl.PROGRAM, p.program, name)
		r.label(gl.VERTEX_ARRAY, p.vao, name)
	case gfx.RenderPass, gfx.PipelineInputLayout, gfx.DescriptorSet, gfx.Fence, gfx.Semaphore:
	default:
		gfx.Violationf("cannot name object of type %T", obj)
	}
}
