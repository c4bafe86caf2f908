// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package glr

import (
	"github.com/devblok/starlight/gfx"
	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// CommandPool owns deferred command lists. GL has no allocator object.
type CommandPool struct {
	r       *Renderer
	queue   gfx.QueueType
	buffers map[*CommandBuffer]struct{}
}

// CreateCommandPool implements gfx.Renderer.
func (r *Renderer) CreateCommandPool(queue gfx.QueueType) (gfx.CommandPool, error) {
	if err := r.requireInit(); err != nil {
		return nil, err
	}
	if queue < gfx.QueueGraphics || queue > gfx.QueueTransfer {
		gfx.Violationf("unknown queue %d", queue)
	}
	p := &CommandPool{
		r:       r,
		queue:   queue,
		buffers: make(map[*CommandBuffer]struct{}),
	}
	r.pools[p] = struct{}{}
	return p, nil
}

// DestroyCommandPool implements gfx.Renderer.
func (r *Renderer) DestroyCommandPool(p gfx.CommandPool) {
	pool, ok := p.(*CommandPool)
	if !ok || pool.r != r {
		gfx.Violationf("command pool was not created by this renderer")
	}
	if _, live := r.pools[pool]; !live {
		gfx.Violationf("command pool destroyed twice")
	}
	pool.destroy()
}

func (p *CommandPool) destroy() {
	for cb := range p.buffers {
		cb.Invalidate()
		cb.ops = nil
		cb.pool = nil
	}
	p.buffers = nil
	delete(p.r.pools, p)
}

// Queue implements gfx.CommandPool.
func (p *CommandPool) Queue() gfx.QueueType {
	return p.queue
}

// AllocateCommandBuffer implements gfx.CommandPool.
func (p *CommandPool) AllocateCommandBuffer(level gfx.CommandBufferLevel) (gfx.CommandBuffer, error) {
	bufs, err := p.AllocateCommandBuffers(level, 1)
	if err != nil {
		return nil, err
	}
	return bufs[0], nil
}

// AllocateCommandBuffers implements gfx.CommandPool.
func (p *CommandPool) AllocateCommandBuffers(level gfx.CommandBufferLevel, count int) ([]gfx.CommandBuffer, error) {
	if count <= 0 {
		gfx.Violationf("allocating %d command buffers", count)
	}
	out := make([]gfx.CommandBuffer, count)
	for i := range out {
		cb := &CommandBuffer{
			Recorder: gfx.NewRecorder(level),
			pool:     p,
		}
		p.buffers[cb] = struct{}{}
		out[i] = cb
	}
	return out, nil
}

// FreeCommandBuffer implements gfx.CommandPool.
func (p *CommandPool) FreeCommandBuffer(b gfx.CommandBuffer) {
	p.FreeCommandBuffers([]gfx.CommandBuffer{b})
}

// FreeCommandBuffers implements gfx.CommandPool.
func (p *CommandPool) FreeCommandBuffers(bufs []gfx.CommandBuffer) {
	for _, b := range bufs {
		cb, ok := b.(*CommandBuffer)
		if !ok || cb.pool != p {
			gfx.Violationf("command buffer freed to a pool that did not allocate it")
		}
		if _, live := p.buffers[cb]; !live {
			gfx.Violationf("command buffer freed twice")
		}
		delete(p.buffers, cb)
		cb.Invalidate()
		cb.ops = nil
		cb.pool = nil
	}
}

// Reset implements gfx.CommandPool.
func (p *CommandPool) Reset(releaseResources bool) error {
	for cb := range p.buffers {
		cb.ResetRecording()
		cb.clear(releaseResources)
	}
	return nil
}

// Len returns the number of live command buffers.
func (p *CommandPool) Len() int {
	return len(p.buffers)
}

// op is one deferred GL command.
type op func(*execState)

// CommandBuffer records GL commands as closures replayed on submit.
type CommandBuffer struct {
	gfx.Recorder

	pool *CommandPool
	ops  []op
}

// Len returns the number of recorded commands.
func (cb *CommandBuffer) Len() int {
	return len(cb.ops)
}

func (cb *CommandBuffer) objects() *objects {
	return &cb.pool.r.objects
}

func (cb *CommandBuffer) record(o op) {
	cb.ops = append(cb.ops, o)
}

func (cb *CommandBuffer) clear(release bool) {
	if release {
		cb.ops = nil
		return
	}
	for i := range cb.ops {
		cb.ops[i] = nil
	}
	cb.ops = cb.ops[:0]
}

// Begin implements gfx.CommandBuffer.
func (cb *CommandBuffer) Begin(gfx.CommandBufferUsage) error {
	cb.StartRecording()
	cb.clear(false)
	return nil
}

// End implements gfx.CommandBuffer.
func (cb *CommandBuffer) End() error {
	cb.FinishRecording()
	return nil
}

// Reset implements gfx.CommandBuffer.
func (cb *CommandBuffer) Reset(releaseResources bool) error {
	if cb.State() == gfx.StateInvalid {
		gfx.Violationf("Reset on a freed command buffer")
	}
	cb.ResetRecording()
	cb.clear(releaseResources)
	return nil
}

// BeginRenderPass implements gfx.CommandBuffer. Attachments with a clear
// load op are cleared when the pass begins.
func (cb *CommandBuffer) BeginRenderPass(pass gfx.RenderPass, fb gfx.Framebuffer, area gfx.Rect, clear []gfx.ClearValue) {
	cb.BeginPass()
	p := *cb.objects().passes.Get(gfx.Handle(pass))
	f := *cb.objects().framebuffers.Get(gfx.Handle(fb))
	if area.Width == 0 || area.Height == 0 {
		area = gfx.Rect{Width: f.width, Height: f.height}
	}
	clear = append([]gfx.ClearValue(nil), clear...)
	cb.record(func(s *execState) {
		s.beginPass(&p, &f, area, clear)
	})
}

// NextSubpass implements gfx.CommandBuffer.
func (cb *CommandBuffer) NextSubpass() {
	cb.NextPass()
	cb.record(func(s *execState) {
		s.subpass++
		s.drawBuffers()
	})
}

// EndRenderPass implements gfx.CommandBuffer.
func (cb *CommandBuffer) EndRenderPass() {
	cb.EndPass()
	cb.record(func(s *execState) {
		s.pass, s.fb = nil, nil
		gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	})
}

// BindPipeline implements gfx.CommandBuffer.
func (cb *CommandBuffer) BindPipeline(h gfx.Pipeline) {
	p := cb.objects().pipelines.Get(gfx.Handle(h))
	cb.SetPipeline(h, p.layout.pushSize)
	cb.record(func(s *execState) {
		if p, ok := s.r.objects.pipelines.Lookup(gfx.Handle(h)); ok {
			s.pipeline = p
			p.apply()
		}
	})
}

// BindIndexBuffer implements gfx.CommandBuffer.
func (cb *CommandBuffer) BindIndexBuffer(h gfx.Buffer, offset uint64, t gfx.IndexType) {
	id := cb.objects().buffers.Get(gfx.Handle(h)).id
	cb.SetIndexBuffer(h, offset, t)
	xtype, size := indexType(t)
	cb.record(func(s *execState) {
		s.index = indexBinding{id: id, offset: offset, xtype: xtype, size: size}
	})
}

// BindVertexBuffers implements gfx.CommandBuffer. Missing offsets are zero.
func (cb *CommandBuffer) BindVertexBuffers(first uint32, buffers []gfx.Buffer, offsets []uint64) {
	if len(offsets) > len(buffers) {
		gfx.Violationf("%d offsets for %d vertex buffers", len(offsets), len(buffers))
	}
	cb.SetVertexBuffers(first, buffers)
	bindings := make([]vertexBinding, len(buffers))
	for i, h := range buffers {
		bindings[i].id = cb.objects().buffers.Get(gfx.Handle(h)).id
		if i < len(offsets) {
			bindings[i].offset = offsets[i]
		}
	}
	cb.record(func(s *execState) {
		for i, b := range bindings {
			s.vertex[first+uint32(i)] = b
		}
	})
}

// BindDescriptorSets implements gfx.CommandBuffer. Set contents are read
// when the draw executes.
func (cb *CommandBuffer) BindDescriptorSets(first uint32, sets []gfx.DescriptorSet) {
	for _, h := range sets {
		cb.objects().sets.Get(gfx.Handle(h))
	}
	cb.SetDescriptorSets(first, sets)
	sets = append([]gfx.DescriptorSet(nil), sets...)
	cb.record(func(s *execState) {
		for i, h := range sets {
			s.sets[first+uint32(i)] = h
		}
	})
}

// PushConstants implements gfx.CommandBuffer.
func (cb *CommandBuffer) PushConstants(stages gfx.ShaderStage, offset uint32, data []byte) {
	cb.WritePushConstants(offset, data)
	data = append([]byte(nil), data...)
	cb.record(func(s *execState) {
		copy(s.push[offset:], data)
	})
}

// SetViewport implements gfx.CommandBuffer.
func (cb *CommandBuffer) SetViewport(v gfx.Viewport) {
	cb.RequireRecording("SetViewport")
	cb.record(func(*execState) {
		gl.Viewport(int32(v.X), int32(v.Y), int32(v.Width), int32(v.Height))
		gl.DepthRangef(v.MinDepth, v.MaxDepth)
	})
}

// SetScissor implements gfx.CommandBuffer.
func (cb *CommandBuffer) SetScissor(r gfx.Rect) {
	cb.RequireRecording("SetScissor")
	cb.record(func(*execState) {
		gl.Enable(gl.SCISSOR_TEST)
		gl.Scissor(r.X, r.Y, int32(r.Width), int32(r.Height))
	})
}

// Draw implements gfx.CommandBuffer.
func (cb *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	cb.RequireDraw("Draw")
	cb.record(func(s *execState) {
		if !s.flush() {
			return
		}
		gl.DrawArraysInstancedBaseInstance(s.pipeline.mode, int32(firstVertex), int32(vertexCount),
			int32(instanceCount), firstInstance)
	})
}

// DrawIndexed implements gfx.CommandBuffer.
func (cb *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	cb.RequireDraw("DrawIndexed")
	if b, _, _ := cb.IndexBuffer(); b == 0 {
		gfx.Violationf("DrawIndexed without an index buffer")
	}
	cb.record(func(s *execState) {
		if !s.flush() {
			return
		}
		offset := s.index.offset + uint64(firstIndex)*s.index.size
		gl.DrawElementsInstancedBaseVertexBaseInstance(s.pipeline.mode, int32(indexCount), s.index.xtype,
			gl.PtrOffset(int(offset)), int32(instanceCount), vertexOffset, firstInstance)
	})
}

// CopyBuffer implements gfx.CommandBuffer.
func (cb *CommandBuffer) CopyBuffer(src, dst gfx.Buffer, regions []gfx.BufferCopy) {
	cb.RequireNoRenderPass("CopyBuffer")
	s := cb.objects().buffers.Get(gfx.Handle(src))
	d := cb.objects().buffers.Get(gfx.Handle(dst))
	for i, rg := range regions {
		if rg.SrcOffset+rg.Size > s.desc.Size || rg.DstOffset+rg.Size > d.desc.Size {
			gfx.Violationf("buffer copy region %d out of range", i)
		}
	}
	if len(regions) == 0 {
		return
	}
	srcID, dstID := s.id, d.id
	regions = append([]gfx.BufferCopy(nil), regions...)
	cb.record(func(*execState) {
		gl.BindBuffer(gl.COPY_READ_BUFFER, srcID)
		gl.BindBuffer(gl.COPY_WRITE_BUFFER, dstID)
		for _, rg := range regions {
			gl.CopyBufferSubData(gl.COPY_READ_BUFFER, gl.COPY_WRITE_BUFFER, int(rg.SrcOffset), int(rg.DstOffset), int(rg.Size))
		}
		gl.BindBuffer(gl.COPY_READ_BUFFER, 0)
		gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
	})
}

func mipExtent(e gfx.Extent3D, mip uint32) gfx.Extent3D {
	shrink := func(v uint32) uint32 {
		if v >>= mip; v == 0 {
			return 1
		}
		return v
	}
	return gfx.Extent3D{Width: shrink(e.Width), Height: shrink(e.Height), Depth: shrink(e.Depth)}
}

// CopyBufferToTexture implements gfx.CommandBuffer through a pixel unpack
// buffer. A zero region extent copies the whole mip level.
func (cb *CommandBuffer) CopyBufferToTexture(src gfx.Buffer, dst gfx.Texture, layout gfx.ImageLayout, regions []gfx.BufferTextureCopy) {
	cb.RequireNoRenderPass("CopyBufferToTexture")
	if layout != gfx.LayoutTransferDst && layout != gfx.LayoutGeneral {
		gfx.Violationf("copying to a texture in layout %d", layout)
	}
	srcID := cb.objects().buffers.Get(gfx.Handle(src)).id
	t := *cb.objects().textures.Get(gfx.Handle(dst))
	if t.swapchain {
		gfx.Violationf("copying into the default framebuffer")
	}
	f := lookupFormat(t.desc.Format)

	copies := make([]gfx.BufferTextureCopy, len(regions))
	for i, rg := range regions {
		if rg.Extent.Width == 0 || rg.Extent.Height == 0 {
			rg.Extent = mipExtent(t.desc.Extent, rg.MipLevel)
		}
		if rg.Extent.Depth == 0 {
			rg.Extent.Depth = 1
		}
		if rg.Layers == 0 {
			rg.Layers = 1
		}
		copies[i] = rg
	}
	if len(copies) == 0 {
		return
	}
	cb.record(func(*execState) {
		gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, srcID)
		gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
		gl.BindTexture(t.target, t.id)
		for _, rg := range copies {
			gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(rg.RowLength))
			uploadRegion(t, f, rg)
		}
		gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
		gl.BindTexture(t.target, 0)
		gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, 0)
	})
}

func uploadRegion(t texture, f glFormat, rg gfx.BufferTextureCopy) {
	mip := int32(rg.MipLevel)
	x, y, z := rg.Offset[0], rg.Offset[1], rg.Offset[2]
	w, h, d := int32(rg.Extent.Width), int32(rg.Extent.Height), int32(rg.Extent.Depth)
	pixels := gl.PtrOffset(int(rg.BufferOffset))
	switch t.target {
	case gl.TEXTURE_2D_ARRAY:
		gl.TexSubImage3D(t.target, mip, x, y, int32(rg.BaseLayer), w, h, int32(rg.Layers), f.format, f.xtype, pixels)
	case gl.TEXTURE_3D:
		gl.TexSubImage3D(t.target, mip, x, y, z, w, h, d, f.format, f.xtype, pixels)
	case gl.TEXTURE_CUBE_MAP:
		faceSize := uint64(w) * uint64(h) * uint64(t.desc.Format.Size())
		if rg.RowLength > 0 {
			faceSize = uint64(rg.RowLength) * uint64(h) * uint64(t.desc.Format.Size())
		}
		for l := uint32(0); l < rg.Layers; l++ {
			face := uint32(gl.TEXTURE_CUBE_MAP_POSITIVE_X) + rg.BaseLayer + l
			gl.TexSubImage2D(face, mip, x, y, w, h, f.format, f.xtype,
				gl.PtrOffset(int(rg.BufferOffset+uint64(l)*faceSize)))
		}
	default:
		gl.TexSubImage2D(t.target, mip, x, y, w, h, f.format, f.xtype, pixels)
	}
}

// TransitionTextureLayout implements gfx.CommandBuffer. GL tracks layouts
// itself; only shader writes through image units need a barrier.
func (cb *CommandBuffer) TransitionTextureLayout(tex gfx.Texture, old, new gfx.ImageLayout) {
	cb.RequireNoRenderPass("TransitionTextureLayout")
	cb.objects().textures.Get(gfx.Handle(tex))
	if old != gfx.LayoutGeneral && new != gfx.LayoutGeneral {
		return
	}
	cb.record(func(*execState) {
		gl.MemoryBarrier(gl.ALL_BARRIER_BITS)
	})
}

// BeginDebugRegion implements gfx.CommandBuffer. Colours are not supported
// by KHR_debug.
func (cb *CommandBuffer) BeginDebugRegion(name string, _ mgl32.Vec4) {
	cb.PushDebugRegion()
	if !cb.pool.r.debug {
		return
	}
	cb.record(func(*execState) {
		gl.PushDebugGroup(gl.DEBUG_SOURCE_APPLICATION, 0, -1, cstr(name))
	})
}

// EndDebugRegion implements gfx.CommandBuffer.
func (cb *CommandBuffer) EndDebugRegion() {
	cb.PopDebugRegion()
	if !cb.pool.r.debug {
		return
	}
	cb.record(func(*execState) {
		gl.PopDebugGroup()
	})
}

// InsertDebugMarker implements gfx.CommandBuffer.
func (cb *CommandBuffer) InsertDebugMarker(name string, _ mgl32.Vec4) {
	cb.RequireRecording("InsertDebugMarker")
	if !cb.pool.r.debug {
		return
	}
	cb.record(func(*execState) {
		gl.DebugMessageInsert(gl.DEBUG_SOURCE_APPLICATION, gl.DEBUG_TYPE_MARKER, 0,
			gl.DEBUG_SEVERITY_NOTIFICATION, -1, cstr(name))
	})
}
