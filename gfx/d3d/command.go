// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package d3d

import (
	"github.com/devblok/starlight/gfx"
	"github.com/go-gl/mathgl/mgl32"
)

// Barrier is a recorded D3D12 transition barrier.
type Barrier struct {
	Texture gfx.Texture
	Before  ResourceState
	After   ResourceState
}

// CommandPool is a command allocator. Command lists are plain objects
// owned by the pool.
type CommandPool struct {
	backend gfx.Backend
	queue   gfx.QueueType
	buffers map[*CommandBuffer]struct{}

	// Allocator stands for the ID3D12CommandAllocator.
	Allocator uintptr
}

// NewCommandPool creates a pool for backend submitting to queue.
func NewCommandPool(backend gfx.Backend, queue gfx.QueueType) *CommandPool {
	return &CommandPool{
		backend: backend,
		queue:   queue,
		buffers: make(map[*CommandBuffer]struct{}),
	}
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
		cb.pool = nil
	}
}

// Reset implements gfx.CommandPool.
func (p *CommandPool) Reset(releaseResources bool) error {
	for cb := range p.buffers {
		cb.ResetRecording()
		cb.Ops = cb.Ops[:0]
		cb.Barriers = cb.Barriers[:0]
		if releaseResources {
			cb.Ops = nil
			cb.Barriers = nil
		}
	}
	return nil
}

// Len returns the number of live command buffers.
func (p *CommandPool) Len() int {
	return len(p.buffers)
}

// Destroy invalidates every buffer of the pool.
func (p *CommandPool) Destroy() {
	for cb := range p.buffers {
		cb.Invalidate()
		cb.pool = nil
	}
	p.buffers = nil
}

// CommandBuffer is a command list recorded as a list of operation names.
type CommandBuffer struct {
	gfx.Recorder

	pool *CommandPool

	// Ops lists the recorded commands in order.
	Ops []string

	// Barriers lists the D3D12 transitions in order.
	Barriers []Barrier
}

func (cb *CommandBuffer) record(op string) {
	cb.Ops = append(cb.Ops, op)
}

// Begin implements gfx.CommandBuffer.
func (cb *CommandBuffer) Begin(gfx.CommandBufferUsage) error {
	cb.StartRecording()
	cb.Ops = cb.Ops[:0]
	cb.Barriers = cb.Barriers[:0]
	return nil
}

// End implements gfx.CommandBuffer.
func (cb *CommandBuffer) End() error {
	cb.FinishRecording()
	return nil
}

// Reset implements gfx.CommandBuffer.
func (cb *CommandBuffer) Reset(bool) error {
	cb.ResetRecording()
	cb.Ops = cb.Ops[:0]
	cb.Barriers = cb.Barriers[:0]
	return nil
}

func (cb *CommandBuffer) BeginRenderPass(gfx.RenderPass, gfx.Framebuffer, gfx.Rect, []gfx.ClearValue) {
	cb.BeginPass()
	cb.record("OMSetRenderTargets")
}

func (cb *CommandBuffer) NextSubpass() {
	cb.NextPass()
	cb.record("OMSetRenderTargets")
}

func (cb *CommandBuffer) EndRenderPass() {
	cb.EndPass()
}

func (cb *CommandBuffer) BindPipeline(p gfx.Pipeline) {
	cb.SetPipeline(p, gfx.MaxPushConstantsSize)
	cb.record("SetPipelineState")
}

func (cb *CommandBuffer) BindIndexBuffer(b gfx.Buffer, offset uint64, t gfx.IndexType) {
	cb.SetIndexBuffer(b, offset, t)
	cb.record("IASetIndexBuffer")
}

func (cb *CommandBuffer) BindVertexBuffers(first uint32, buffers []gfx.Buffer, offsets []uint64) {
	cb.SetVertexBuffers(first, buffers)
	cb.record("IASetVertexBuffers")
}

func (cb *CommandBuffer) BindDescriptorSets(first uint32, sets []gfx.DescriptorSet) {
	cb.SetDescriptorSets(first, sets)
	cb.record("SetGraphicsRootDescriptorTable")
}

func (cb *CommandBuffer) PushConstants(stages gfx.ShaderStage, offset uint32, data []byte) {
	cb.WritePushConstants(offset, data)
	cb.record("SetGraphicsRoot32BitConstants")
}

func (cb *CommandBuffer) SetViewport(gfx.Viewport) {
	cb.RequireRecording("SetViewport")
	cb.record("RSSetViewports")
}

func (cb *CommandBuffer) SetScissor(gfx.Rect) {
	cb.RequireRecording("SetScissor")
	cb.record("RSSetScissorRects")
}

func (cb *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	cb.RequireDraw("Draw")
	cb.record("DrawInstanced")
}

func (cb *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	cb.RequireDraw("DrawIndexed")
	cb.record("DrawIndexedInstanced")
}

func (cb *CommandBuffer) CopyBuffer(src, dst gfx.Buffer, regions []gfx.BufferCopy) {
	cb.RequireNoRenderPass("CopyBuffer")
	cb.record("CopyBufferRegion")
}

func (cb *CommandBuffer) CopyBufferToTexture(src gfx.Buffer, dst gfx.Texture, layout gfx.ImageLayout, regions []gfx.BufferTextureCopy) {
	cb.RequireNoRenderPass("CopyBufferToTexture")
	cb.record("CopyTextureRegion")
}

// TransitionTextureLayout records a resource barrier on D3D12 and is
// ignored by D3D11, which tracks hazards itself.
func (cb *CommandBuffer) TransitionTextureLayout(tex gfx.Texture, old, new gfx.ImageLayout) {
	cb.RequireNoRenderPass("TransitionTextureLayout")
	if cb.pool == nil || cb.pool.backend != gfx.D3D12 {
		return
	}
	before, after := StateForLayout(old), StateForLayout(new)
	if before == after {
		return
	}
	cb.Barriers = append(cb.Barriers, Barrier{Texture: tex, Before: before, After: after})
	cb.record("ResourceBarrier")
}

func (cb *CommandBuffer) BeginDebugRegion(string, mgl32.Vec4) {
	cb.PushDebugRegion()
}

func (cb *CommandBuffer) EndDebugRegion() {
	cb.PopDebugRegion()
}

func (cb *CommandBuffer) InsertDebugMarker(string, mgl32.Vec4) {
	cb.RequireRecording("InsertDebugMarker")
}
