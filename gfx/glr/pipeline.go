// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package glr

import (
	"strings"

	"github.com/devblok/starlight/gfx"
	"github.com/go-gl/gl/v4.3-core/gl"
)

// CreateRenderPass implements gfx.Renderer. GL has no render pass object;
// the description drives clears and draw buffers when the pass begins.
func (r *Renderer) CreateRenderPass(desc gfx.RenderPassDesc) (gfx.RenderPass, error) {
	if len(desc.Subpasses) == 0 {
		gfx.Violationf("render pass without subpasses")
	}
	for _, sp := range desc.Subpasses {
		refs := append(append([]uint32{}, sp.Color...), sp.Input...)
		if sp.DepthStencil != nil {
			refs = append(refs, *sp.DepthStencil)
		}
		for _, idx := range refs {
			if int(idx) >= len(desc.Attachments) {
				gfx.Violationf("subpass references attachment %d of %d", idx, len(desc.Attachments))
			}
		}
	}
	return gfx.RenderPass(r.objects.passes.Insert(renderPass{desc: desc})), nil
}

// DestroyRenderPass implements gfx.Renderer.
func (r *Renderer) DestroyRenderPass(h gfx.RenderPass) {
	r.objects.passes.Remove(gfx.Handle(h))
}

// CreateFramebuffer implements gfx.Renderer. A framebuffer over the
// swapchain view is the default framebuffer.
func (r *Renderer) CreateFramebuffer(desc gfx.FramebufferDesc) (gfx.Framebuffer, error) {
	pass := r.objects.passes.Get(gfx.Handle(desc.RenderPass))
	if len(desc.Attachments) != len(pass.desc.Attachments) {
		gfx.Violationf("framebuffer with %d attachments for a render pass with %d",
			len(desc.Attachments), len(pass.desc.Attachments))
	}

	views := make([]*textureView, len(desc.Attachments))
	swapchain := 0
	for i, h := range desc.Attachments {
		views[i] = r.objects.views.Get(gfx.Handle(h))
		if views[i].swapchain {
			swapchain++
		}
	}
	fb := framebuffer{pass: desc.RenderPass, width: desc.Width, height: desc.Height}
	if swapchain > 0 {
		if swapchain != len(views) {
			gfx.Violationf("framebuffer mixes the default framebuffer with textures")
		}
		return gfx.Framebuffer(r.objects.framebuffers.Insert(fb)), nil
	}

	gl.GenFramebuffers(1, &fb.id)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.id)
	color := uint32(0)
	for i, v := range views {
		switch f := pass.desc.Attachments[i].Format; {
		case f.HasStencil():
			gl.FramebufferTexture(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, v.id, 0)
		case f.IsDepth():
			gl.FramebufferTexture(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, v.id, 0)
		default:
			gl.FramebufferTexture(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0+uint32(i), v.id, 0)
			color++
		}
	}
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &fb.id)
		return 0, gfx.NewFatal(gfx.OpenGL, "glCheckFramebufferStatus", int64(status), "framebuffer incomplete")
	}
	if err := check("glFramebufferTexture"); err != nil {
		gl.DeleteFramebuffers(1, &fb.id)
		return 0, err
	}
	return gfx.Framebuffer(r.objects.framebuffers.Insert(fb)), nil
}

// DestroyFramebuffer implements gfx.Renderer.
func (r *Renderer) DestroyFramebuffer(h gfx.Framebuffer) {
	fb := r.objects.framebuffers.Remove(gfx.Handle(h))
	if fb.id != 0 {
		gl.DeleteFramebuffers(1, &fb.id)
	}
}

func validateInputLayout(desc gfx.PipelineInputLayoutDesc) {
	if len(desc.Sets) > maxDescriptorSets {
		gfx.Violationf("%d descriptor sets exceed %d", len(desc.Sets), maxDescriptorSets)
	}
	for s, set := range desc.Sets {
		for _, b := range set.Bindings {
			count := b.Count
			if count == 0 {
				count = 1
			}
			if b.Binding+count > bindingsPerSet {
				gfx.Violationf("set %d binding %d with %d descriptors exceeds %d bindings per set",
					s, b.Binding, count, bindingsPerSet)
			}
		}
	}
	if size := desc.PushConstantSize(); size > gfx.MaxPushConstantsSize {
		gfx.Violationf("push constants of %d bytes exceed %d", size, gfx.MaxPushConstantsSize)
	}
}

// CreatePipelineInputLayout implements gfx.Renderer. Equal layouts share
// one binding plan.
func (r *Renderer) CreatePipelineInputLayout(desc gfx.PipelineInputLayoutDesc) (gfx.PipelineInputLayout, error) {
	if err := r.requireInit(); err != nil {
		return 0, err
	}
	validateInputLayout(desc)
	key := desc.CacheKey()
	l, err := r.layouts.Acquire(key, func() (*inputLayout, error) {
		return &inputLayout{desc: desc, pushSize: desc.PushConstantSize()}, nil
	})
	if err != nil {
		return 0, err
	}
	return gfx.PipelineInputLayout(r.objects.pipelineLayouts.Insert(pipelineLayout{key: key, layout: l})), nil
}

// DestroyPipelineInputLayout implements gfx.Renderer.
func (r *Renderer) DestroyPipelineInputLayout(h gfx.PipelineInputLayout) {
	l := r.objects.pipelineLayouts.Remove(gfx.Handle(h))
	r.layouts.Release(l.key)
}

// CreateGraphicsPipeline implements gfx.Renderer by linking a program and
// a vertex array describing the vertex input.
func (r *Renderer) CreateGraphicsPipeline(desc gfx.GraphicsPipelineDesc) (gfx.Pipeline, error) {
	if len(desc.Shaders) == 0 {
		gfx.Violationf("pipeline %q without shaders", desc.Name)
	}
	pass := r.objects.passes.Get(gfx.Handle(desc.RenderPass))
	if int(desc.Subpass) >= len(pass.desc.Subpasses) {
		gfx.Violationf("pipeline %q for subpass %d of %d", desc.Name, desc.Subpass, len(pass.desc.Subpasses))
	}
	layout := r.objects.pipelineLayouts.Get(gfx.Handle(desc.Layout)).layout

	program := gl.CreateProgram()
	for _, h := range desc.Shaders {
		gl.AttachShader(program, r.objects.shaders.Get(gfx.Handle(h)).id)
	}
	gl.LinkProgram(program)
	for _, h := range desc.Shaders {
		gl.DetachShader(program, r.objects.shaders.Get(gfx.Handle(h)).id)
	}

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &n)
		info := strings.Repeat("\x00", int(n+1))
		gl.GetProgramInfoLog(program, n, nil, gl.Str(info))
		gl.DeleteProgram(program)
		return 0, infoLogError("glLinkProgram", desc.Name, info)
	}

	p := pipeline{
		program: program,
		mode:    primitiveMode(desc.Topology),
		layout:  layout,
		desc:    desc,
		strides: make(map[uint32]int32, len(desc.Bindings)),
	}
	gl.GenVertexArrays(1, &p.vao)
	gl.BindVertexArray(p.vao)
	for _, a := range desc.Attributes {
		f := lookupFormat(a.Format)
		gl.EnableVertexAttribArray(a.Location)
		if f.integer {
			gl.VertexAttribIFormat(a.Location, f.components, f.xtype, a.Offset)
		} else {
			gl.VertexAttribFormat(a.Location, f.components, f.xtype, f.normalized, a.Offset)
		}
		gl.VertexAttribBinding(a.Location, a.Binding)
	}
	for _, b := range desc.Bindings {
		divisor := uint32(0)
		if b.Rate == gfx.InputRateInstance {
			divisor = 1
		}
		gl.VertexBindingDivisor(b.Binding, divisor)
		p.strides[b.Binding] = int32(b.Stride)
	}
	gl.BindVertexArray(0)
	if err := check("glVertexAttribFormat"); err != nil {
		gl.DeleteVertexArrays(1, &p.vao)
		gl.DeleteProgram(program)
		return 0, err
	}

	h := gfx.Pipeline(r.objects.pipelines.Insert(p))
	if desc.Name != "" {
		r.label(gl.PROGRAM, program, desc.Name)
	}
	return h, nil
}

// DestroyPipeline implements gfx.Renderer.
func (r *Renderer) DestroyPipeline(h gfx.Pipeline) {
	p := r.objects.pipelines.Remove(gfx.Handle(h))
	gl.DeleteVertexArrays(1, &p.vao)
	gl.DeleteProgram(p.program)
}

// apply binds the program and fixed function state of p.
func (p *pipeline) apply() {
	gl.UseProgram(p.program)
	gl.BindVertexArray(p.vao)

	switch p.desc.Cull {
	case gfx.CullNone:
		gl.Disable(gl.CULL_FACE)
	case gfx.CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	case gfx.CullBack:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}
	if p.desc.FrontFace == gfx.FrontFaceClockwise {
		gl.FrontFace(gl.CW)
	} else {
		gl.FrontFace(gl.CCW)
	}
	if p.desc.Wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
	if p.desc.LineWidth > 0 {
		gl.LineWidth(p.desc.LineWidth)
	}

	if p.desc.DepthTest {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(compareFunc(p.desc.DepthOp))
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.DepthMask(p.desc.DepthWrite)

	for i, b := range p.desc.Blend {
		buf := uint32(i)
		if !b.Enable {
			gl.Disablei(gl.BLEND, buf)
			continue
		}
		gl.Enablei(gl.BLEND, buf)
		gl.BlendFuncSeparatei(buf, blendFactor(b.SrcColor), blendFactor(b.DstColor), blendFactor(b.SrcAlpha), blendFactor(b.DstAlpha))
		gl.BlendEquationSeparatei(buf, blendEquation(b.ColorOp), blendEquation(b.AlphaOp))
	}
}
