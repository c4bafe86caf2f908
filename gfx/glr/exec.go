// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package glr

import (
	"github.com/devblok/starlight/gfx"
	"github.com/go-gl/gl/v4.3-core/gl"
)

type vertexBinding struct {
	id     uint32
	offset uint64
}

type indexBinding struct {
	id     uint32
	offset uint64
	xtype  uint32
	size   uint64
}

// execState is the binding state a command list is replayed against.
// Bindings are applied lazily when a draw executes.
type execState struct {
	r        *Renderer
	pipeline *pipeline
	pass     *renderPass
	fb       *framebuffer
	subpass  int

	vertex map[uint32]vertexBinding
	index  indexBinding
	sets   map[uint32]gfx.DescriptorSet
	push   [gfx.MaxPushConstantsSize]byte
}

func newExecState(r *Renderer) *execState {
	return &execState{
		r:      r,
		vertex: make(map[uint32]vertexBinding),
		sets:   make(map[uint32]gfx.DescriptorSet),
	}
}

// execute replays the commands of cb.
func (s *execState) execute(cb *CommandBuffer) {
	for _, o := range cb.ops {
		o(s)
	}
}

func (s *execState) beginPass(p *renderPass, fb *framebuffer, area gfx.Rect, clear []gfx.ClearValue) {
	s.pass, s.fb, s.subpass = p, fb, 0
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, fb.id)

	// Clears ignore the scissor and write masks of the previous pipeline.
	gl.Disable(gl.SCISSOR_TEST)
	gl.ColorMask(true, true, true, true)
	gl.DepthMask(true)
	gl.StencilMask(0xff)

	var colors []uint32
	for i, a := range p.desc.Attachments {
		if !a.Format.IsDepth() {
			colors = append(colors, uint32(i))
		}
	}
	if fb.id != 0 {
		setDrawBuffers(colors)
	}
	drawBuffer := int32(0)
	for i, a := range p.desc.Attachments {
		var cv gfx.ClearValue
		if i < len(clear) {
			cv = clear[i]
		}
		isColor := !a.Format.IsDepth()
		if a.Load == gfx.LoadOpClear {
			switch {
			case a.Format.HasStencil():
				gl.ClearBufferfi(gl.DEPTH_STENCIL, 0, cv.Depth, int32(cv.Stencil))
			case a.Format.IsDepth():
				gl.ClearBufferfv(gl.DEPTH, 0, &cv.Depth)
			default:
				gl.ClearBufferfv(gl.COLOR, drawBuffer, &cv.Color[0])
			}
		}
		if isColor {
			drawBuffer++
		}
	}

	s.drawBuffers()
	gl.Viewport(area.X, area.Y, int32(area.Width), int32(area.Height))
}

// drawBuffers routes fragment outputs to the colour attachments of the
// current subpass.
func (s *execState) drawBuffers() {
	if s.fb == nil || s.fb.id == 0 {
		return
	}
	setDrawBuffers(s.pass.desc.Subpasses[s.subpass].Color)
}

func setDrawBuffers(attachments []uint32) {
	if len(attachments) == 0 {
		gl.DrawBuffer(gl.NONE)
		return
	}
	bufs := make([]uint32, len(attachments))
	for i, a := range attachments {
		bufs[i] = gl.COLOR_ATTACHMENT0 + a
	}
	gl.DrawBuffers(int32(len(bufs)), &bufs[0])
}

// flush applies the pending bindings before a draw. It reports false when
// the bound pipeline was destroyed after recording.
func (s *execState) flush() bool {
	p := s.pipeline
	if p == nil {
		return false
	}
	for binding, vb := range s.vertex {
		gl.BindVertexBuffer(binding, vb.id, int(vb.offset), p.strides[binding])
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, s.index.id)
	for si, h := range s.sets {
		if set, ok := s.r.objects.sets.Lookup(gfx.Handle(h)); ok {
			s.r.bindSet(si, set)
		}
	}
	if size := int(p.layout.pushSize); size > 0 {
		gl.BindBuffer(gl.UNIFORM_BUFFER, s.r.pushBuffer)
		gl.BufferSubData(gl.UNIFORM_BUFFER, 0, size, gl.Ptr(&s.push[0]))
		gl.BindBufferRange(gl.UNIFORM_BUFFER, pushConstantBinding, s.r.pushBuffer, 0, size)
	}
	return true
}
