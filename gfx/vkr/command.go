// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/devblok/starlight/gfx"
	vk "github.com/devblok/vulkan"
	"github.com/go-gl/mathgl/mgl32"
)

// CommandPool wraps a VkCommandPool of one queue family.
type CommandPool struct {
	r       *Renderer
	queue   gfx.QueueType
	pool    vk.CommandPool
	buffers map[*CommandBuffer]struct{}

	// internal pools belong to the renderer and cannot be destroyed by
	// the application.
	internal bool
}

func (r *Renderer) newCommandPool(queue gfx.QueueType, internal bool) (*CommandPool, error) {
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: uint32(r.queues.Family(queue)),
	}

	var commandPool vk.CommandPool
	if err := check("vkCreateCommandPool", vk.CreateCommandPool(r.device, &cpci, nil, &commandPool)); err != nil {
		return nil, err
	}
	p := &CommandPool{
		r:        r,
		queue:    queue,
		pool:     commandPool,
		buffers:  make(map[*CommandBuffer]struct{}),
		internal: internal,
	}
	r.commandPools[p] = struct{}{}
	return p, nil
}

// CreateCommandPool implements gfx.Renderer.
func (r *Renderer) CreateCommandPool(queue gfx.QueueType) (gfx.CommandPool, error) {
	if r.device == nil {
		return nil, gfx.ErrNotInitialised
	}
	r.queue(queue)
	return r.newCommandPool(queue, false)
}

// DestroyCommandPool implements gfx.Renderer. Buffers of the pool are
// freed with it.
func (r *Renderer) DestroyCommandPool(p gfx.CommandPool) {
	pool, ok := p.(*CommandPool)
	if !ok || pool.r != r {
		gfx.Violationf("command pool was not created by this renderer")
	}
	if pool.internal {
		gfx.Violationf("destroying an internal command pool")
	}
	if _, live := r.commandPools[pool]; !live {
		gfx.Violationf("command pool destroyed twice")
	}
	pool.destroy()
}

func (p *CommandPool) destroy() {
	for cb := range p.buffers {
		cb.Invalidate()
		cb.pool = nil
	}
	p.buffers = nil
	vk.DestroyCommandPool(p.r.device, p.pool, nil)
	p.pool = vk.NullCommandPool
	delete(p.r.commandPools, p)
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
	vkLevel := vk.CommandBufferLevelPrimary
	if level == gfx.LevelSecondary {
		vkLevel = vk.CommandBufferLevelSecondary
	}
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.pool,
		Level:              vkLevel,
		CommandBufferCount: uint32(count),
	}

	commandBuffers := make([]vk.CommandBuffer, count)
	if err := check("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(p.r.device, &cbai, commandBuffers)); err != nil {
		return nil, err
	}

	out := make([]gfx.CommandBuffer, count)
	for i, cmd := range commandBuffers {
		cb := &CommandBuffer{
			Recorder: gfx.NewRecorder(level),
			pool:     p,
			cmd:      cmd,
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
	cmds := make([]vk.CommandBuffer, 0, len(bufs))
	for _, b := range bufs {
		cb, ok := b.(*CommandBuffer)
		if !ok || cb.pool != p {
			gfx.Violationf("command buffer freed to a pool that did not allocate it")
		}
		if _, live := p.buffers[cb]; !live {
			gfx.Violationf("command buffer freed twice")
		}
		delete(p.buffers, cb)
		cmds = append(cmds, cb.cmd)
		cb.Invalidate()
		cb.pool = nil
	}
	if len(cmds) > 0 {
		vk.FreeCommandBuffers(p.r.device, p.pool, uint32(len(cmds)), cmds)
	}
}

// Reset implements gfx.CommandPool.
func (p *CommandPool) Reset(releaseResources bool) error {
	var flags vk.CommandPoolResetFlagBits
	if releaseResources {
		flags = vk.CommandPoolResetReleaseResourcesBit
	}
	if err := check("vkResetCommandPool", vk.ResetCommandPool(p.r.device, p.pool, vk.CommandPoolResetFlags(flags))); err != nil {
		return err
	}
	for cb := range p.buffers {
		cb.ResetRecording()
	}
	return nil
}

// Len returns the number of live command buffers.
func (p *CommandPool) Len() int {
	return len(p.buffers)
}

// CommandBuffer records into a VkCommandBuffer.
type CommandBuffer struct {
	gfx.Recorder

	pool   *CommandPool
	cmd    vk.CommandBuffer
	layout vk.PipelineLayout
}

// Get returns the vulkan command buffer.
func (cb *CommandBuffer) Get() vk.CommandBuffer {
	return cb.cmd
}

func (cb *CommandBuffer) objects() *objects {
	return &cb.pool.r.objects
}

// Begin implements gfx.CommandBuffer.
func (cb *CommandBuffer) Begin(usage gfx.CommandBufferUsage) error {
	cb.StartRecording()
	var flags vk.CommandBufferUsageFlagBits
	if usage&gfx.UsageOneTimeSubmit != 0 {
		flags |= vk.CommandBufferUsageOneTimeSubmitBit
	}
	if usage&gfx.UsageSimultaneous != 0 {
		flags |= vk.CommandBufferUsageSimultaneousUseBit
	}
	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(flags),
	}
	if err := check("vkBeginCommandBuffer", vk.BeginCommandBuffer(cb.cmd, &cbbi)); err != nil {
		cb.ResetRecording()
		return err
	}
	cb.layout = vk.NullPipelineLayout
	return nil
}

// End implements gfx.CommandBuffer.
func (cb *CommandBuffer) End() error {
	cb.FinishRecording()
	return check("vkEndCommandBuffer", vk.EndCommandBuffer(cb.cmd))
}

// Reset implements gfx.CommandBuffer.
func (cb *CommandBuffer) Reset(releaseResources bool) error {
	if cb.State() == gfx.StateInvalid {
		gfx.Violationf("Reset on a freed command buffer")
	}
	var flags vk.CommandBufferResetFlagBits
	if releaseResources {
		flags = vk.CommandBufferResetReleaseResourcesBit
	}
	if err := check("vkResetCommandBuffer", vk.ResetCommandBuffer(cb.cmd, vk.CommandBufferResetFlags(flags))); err != nil {
		return err
	}
	cb.ResetRecording()
	cb.layout = vk.NullPipelineLayout
	return nil
}

// BeginRenderPass implements gfx.CommandBuffer. An empty area covers the
// whole framebuffer.
func (cb *CommandBuffer) BeginRenderPass(pass gfx.RenderPass, fb gfx.Framebuffer, area gfx.Rect, clear []gfx.ClearValue) {
	cb.BeginPass()
	p := cb.objects().passes.Get(gfx.Handle(pass))
	f := cb.objects().framebuffers.Get(gfx.Handle(fb))
	if area.Width == 0 || area.Height == 0 {
		area = gfx.Rect{Width: f.width, Height: f.height}
	}

	clearValues := vkClearValues(clear, p.desc.Attachments)
	rpbi := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  p.pass,
		Framebuffer: f.framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: area.X, Y: area.Y},
			Extent: vk.Extent2D{Width: area.Width, Height: area.Height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cb.cmd, &rpbi, vk.SubpassContentsInline)
}

// NextSubpass implements gfx.CommandBuffer.
func (cb *CommandBuffer) NextSubpass() {
	cb.NextPass()
	vk.CmdNextSubpass(cb.cmd, vk.SubpassContentsInline)
}

// EndRenderPass implements gfx.CommandBuffer.
func (cb *CommandBuffer) EndRenderPass() {
	cb.EndPass()
	vk.CmdEndRenderPass(cb.cmd)
}

// BindPipeline implements gfx.CommandBuffer.
func (cb *CommandBuffer) BindPipeline(h gfx.Pipeline) {
	p := cb.objects().pipelines.Get(gfx.Handle(h))
	cb.SetPipeline(h, p.pushSize)
	cb.layout = p.layout
	vk.CmdBindPipeline(cb.cmd, vk.PipelineBindPointGraphics, p.pipeline)
}

// BindIndexBuffer implements gfx.CommandBuffer.
func (cb *CommandBuffer) BindIndexBuffer(h gfx.Buffer, offset uint64, t gfx.IndexType) {
	b := cb.objects().buffers.Get(gfx.Handle(h))
	cb.SetIndexBuffer(h, offset, t)
	vk.CmdBindIndexBuffer(cb.cmd, b.buffer, vk.DeviceSize(offset), vkIndexType(t))
}

// BindVertexBuffers implements gfx.CommandBuffer. Missing offsets are zero.
func (cb *CommandBuffer) BindVertexBuffers(first uint32, buffers []gfx.Buffer, offsets []uint64) {
	if len(offsets) > len(buffers) {
		gfx.Violationf("%d offsets for %d vertex buffers", len(offsets), len(buffers))
	}
	cb.SetVertexBuffers(first, buffers)
	if len(buffers) == 0 {
		return
	}
	vkBuffers := make([]vk.Buffer, len(buffers))
	vkOffsets := make([]vk.DeviceSize, len(buffers))
	for i, h := range buffers {
		vkBuffers[i] = cb.objects().buffers.Get(gfx.Handle(h)).buffer
		if i < len(offsets) {
			vkOffsets[i] = vk.DeviceSize(offsets[i])
		}
	}
	vk.CmdBindVertexBuffers(cb.cmd, first, uint32(len(vkBuffers)), vkBuffers, vkOffsets)
}

// BindDescriptorSets implements gfx.CommandBuffer.
func (cb *CommandBuffer) BindDescriptorSets(first uint32, sets []gfx.DescriptorSet) {
	cb.SetDescriptorSets(first, sets)
	if len(sets) == 0 {
		return
	}
	vkSets := make([]vk.DescriptorSet, len(sets))
	for i, h := range sets {
		vkSets[i] = cb.objects().sets.Get(gfx.Handle(h)).set
	}
	vk.CmdBindDescriptorSets(cb.cmd, vk.PipelineBindPointGraphics, cb.layout, first, uint32(len(vkSets)), vkSets, 0, nil)
}

// PushConstants implements gfx.CommandBuffer.
func (cb *CommandBuffer) PushConstants(stages gfx.ShaderStage, offset uint32, data []byte) {
	cb.WritePushConstants(offset, data)
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(cb.cmd, cb.layout, vkShaderStages(stages), offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

// SetViewport implements gfx.CommandBuffer.
func (cb *CommandBuffer) SetViewport(v gfx.Viewport) {
	cb.RequireRecording("SetViewport")
	vk.CmdSetViewport(cb.cmd, 0, 1, []vk.Viewport{{
		X:        v.X,
		Y:        v.Y,
		Width:    v.Width,
		Height:   v.Height,
		MinDepth: v.MinDepth,
		MaxDepth: v.MaxDepth,
	}})
}

// SetScissor implements gfx.CommandBuffer.
func (cb *CommandBuffer) SetScissor(r gfx.Rect) {
	cb.RequireRecording("SetScissor")
	vk.CmdSetScissor(cb.cmd, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: r.X, Y: r.Y},
		Extent: vk.Extent2D{Width: r.Width, Height: r.Height},
	}})
}

// Draw implements gfx.CommandBuffer.
func (cb *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	cb.RequireDraw("Draw")
	vk.CmdDraw(cb.cmd, vertexCount, instanceCount, firstVertex, firstInstance)
}

// DrawIndexed implements gfx.CommandBuffer.
func (cb *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	cb.RequireDraw("DrawIndexed")
	if b, _, _ := cb.IndexBuffer(); b == 0 {
		gfx.Violationf("DrawIndexed without an index buffer")
	}
	vk.CmdDrawIndexed(cb.cmd, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

// CopyBuffer implements gfx.CommandBuffer.
func (cb *CommandBuffer) CopyBuffer(src, dst gfx.Buffer, regions []gfx.BufferCopy) {
	cb.RequireNoRenderPass("CopyBuffer")
	s := cb.objects().buffers.Get(gfx.Handle(src))
	d := cb.objects().buffers.Get(gfx.Handle(dst))
	copies := make([]vk.BufferCopy, len(regions))
	for i, rg := range regions {
		if rg.SrcOffset+rg.Size > s.desc.Size || rg.DstOffset+rg.Size > d.desc.Size {
			gfx.Violationf("buffer copy region %d out of range", i)
		}
		copies[i] = vk.BufferCopy{
			SrcOffset: vk.DeviceSize(rg.SrcOffset),
			DstOffset: vk.DeviceSize(rg.DstOffset),
			Size:      vk.DeviceSize(rg.Size),
		}
	}
	if len(copies) == 0 {
		return
	}
	vk.CmdCopyBuffer(cb.cmd, s.buffer, d.buffer, uint32(len(copies)), copies)
}

// CopyBufferToTexture implements gfx.CommandBuffer. layout is the layout
// of dst during the copy; a zero region extent copies the whole mip level.
func (cb *CommandBuffer) CopyBufferToTexture(src gfx.Buffer, dst gfx.Texture, layout gfx.ImageLayout, regions []gfx.BufferTextureCopy) {
	cb.RequireNoRenderPass("CopyBufferToTexture")
	if layout != gfx.LayoutTransferDst && layout != gfx.LayoutGeneral {
		gfx.Violationf("copying to a texture in layout %d", layout)
	}
	s := cb.objects().buffers.Get(gfx.Handle(src))
	t := cb.objects().textures.Get(gfx.Handle(dst))

	copies := make([]vk.BufferImageCopy, len(regions))
	for i, rg := range regions {
		extent := rg.Extent
		if extent.Width == 0 || extent.Height == 0 {
			extent = mipExtent(t.desc.Extent, rg.MipLevel)
		}
		if extent.Depth == 0 {
			extent.Depth = 1
		}
		layers := rg.Layers
		if layers == 0 {
			layers = 1
		}
		copies[i] = vk.BufferImageCopy{
			BufferOffset:    vk.DeviceSize(rg.BufferOffset),
			BufferRowLength: rg.RowLength,
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vkAspect(t.desc.Format),
				MipLevel:       rg.MipLevel,
				BaseArrayLayer: rg.BaseLayer,
				LayerCount:     layers,
			},
			ImageOffset: vk.Offset3D{X: rg.Offset[0], Y: rg.Offset[1], Z: rg.Offset[2]},
			ImageExtent: vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: extent.Depth},
		}
	}
	if len(copies) == 0 {
		return
	}
	vk.CmdCopyBufferToImage(cb.cmd, s.buffer, t.image, vkImageLayout(layout), uint32(len(copies)), copies)
}

func mipExtent(e gfx.Extent3D, mip uint32) gfx.Extent3D {
	shrink := func(v uint32) uint32 {
		v >>= mip
		if v == 0 {
			return 1
		}
		return v
	}
	return gfx.Extent3D{Width: shrink(e.Width), Height: shrink(e.Height), Depth: shrink(e.Depth)}
}

// TransitionTextureLayout implements gfx.CommandBuffer with an image memory
// barrier over every mip level and layer of tex.
func (cb *CommandBuffer) TransitionTextureLayout(tex gfx.Texture, old, new gfx.ImageLayout) {
	cb.RequireNoRenderPass("TransitionTextureLayout")
	t := cb.objects().textures.Get(gfx.Handle(tex))
	cmdImageBarrier(cb.cmd, t.image, t.desc, old, new)
}

func cmdImageBarrier(cmd vk.CommandBuffer, image vk.Image, desc gfx.TextureDesc, old, new gfx.ImageLayout) {
	srcAccess, srcStage := layoutAccess(old)
	dstAccess, dstStage := layoutAccess(new)
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(srcAccess),
		DstAccessMask:       vk.AccessFlags(dstAccess),
		OldLayout:           vkImageLayout(old),
		NewLayout:           vkImageLayout(new),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vkAspect(desc.Format),
			BaseMipLevel:   0,
			LevelCount:     desc.MipLevels,
			BaseArrayLayer: 0,
			LayerCount:     desc.Layers,
		},
	}
	vk.CmdPipelineBarrier(cmd, vk.PipelineStageFlags(srcStage), vk.PipelineStageFlags(dstStage), 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

// BeginDebugRegion implements gfx.CommandBuffer.
func (cb *CommandBuffer) BeginDebugRegion(name string, color mgl32.Vec4) {
	cb.PushDebugRegion()
	cb.pool.r.debug.begin(cb.cmd, name, color)
}

// EndDebugRegion implements gfx.CommandBuffer.
func (cb *CommandBuffer) EndDebugRegion() {
	cb.PopDebugRegion()
	cb.pool.r.debug.end(cb.cmd)
}

// InsertDebugMarker implements gfx.CommandBuffer.
func (cb *CommandBuffer) InsertDebugMarker(name string, color mgl32.Vec4) {
	cb.RequireRecording("InsertDebugMarker")
	cb.pool.r.debug.insert(cb.cmd, name, color)
}
