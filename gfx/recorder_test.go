package gfx_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/starlight/gfx"
)

func TestRecorderLifecycle(t *testing.T) {
	c := qt.New(t)
	r := gfx.NewRecorder(gfx.LevelPrimary)
	c.Assert(r.State(), qt.Equals, gfx.StateInitial)

	r.StartRecording()
	r.BeginPass()
	r.SetPipeline(gfx.Pipeline(7), 64)
	r.RequireDraw("Draw")
	r.NextPass()
	c.Assert(r.Subpass(), qt.Equals, 1)
	r.EndPass()
	r.FinishRecording()
	c.Assert(r.State(), qt.Equals, gfx.StateExecutable)
	r.RequireSubmittable()

	// Recording again resets the bindings.
	r.StartRecording()
	c.Assert(r.Pipeline(), qt.Equals, gfx.Pipeline(0))
	r.FinishRecording()

	r.Invalidate()
	c.Assert(func() { r.StartRecording() }, qt.PanicMatches, "gfx: Begin on a command buffer whose pool .*")
	r.ResetRecording()
	c.Assert(r.State(), qt.Equals, gfx.StateInitial)
}

func TestRecorderContract(t *testing.T) {
	c := qt.New(t)

	r := gfx.NewRecorder(gfx.LevelPrimary)
	c.Assert(func() { r.SetPipeline(1, 0) }, qt.PanicMatches, "gfx: BindPipeline outside Begin/End .*")
	c.Assert(func() { r.FinishRecording() }, qt.PanicMatches, "gfx: End outside Begin/End .*")
	c.Assert(func() { r.RequireSubmittable() }, qt.PanicMatches, "gfx: submitting .*")

	r.StartRecording()
	c.Assert(func() { r.StartRecording() }, qt.PanicMatches, "gfx: Begin on a command buffer that is already recording")
	c.Assert(func() { r.RequireDraw("Draw") }, qt.PanicMatches, "gfx: Draw outside a render pass")
	c.Assert(func() { r.EndPass() }, qt.PanicMatches, "gfx: EndRenderPass outside a render pass")

	r.BeginPass()
	c.Assert(func() { r.RequireDraw("DrawIndexed") }, qt.PanicMatches, "gfx: DrawIndexed without a bound pipeline")
	c.Assert(func() { r.RequireNoRenderPass("CopyBuffer") }, qt.PanicMatches, "gfx: CopyBuffer inside a render pass")
	c.Assert(func() { r.FinishRecording() }, qt.PanicMatches, "gfx: End inside a render pass")
}

func TestRecorderBindings(t *testing.T) {
	c := qt.New(t)
	r := gfx.NewRecorder(gfx.LevelSecondary)
	c.Assert(r.Level(), qt.Equals, gfx.LevelSecondary)

	r.StartRecording()
	c.Assert(func() { r.SetDescriptorSets(0, []gfx.DescriptorSet{1}) }, qt.PanicMatches, "gfx: BindDescriptorSets before BindPipeline")

	r.SetPipeline(3, 16)
	r.SetVertexBuffers(1, []gfx.Buffer{10, 11})
	c.Assert(r.VertexBuffers(), qt.DeepEquals, []gfx.Buffer{0, 10, 11})
	r.SetVertexBuffers(0, []gfx.Buffer{9})
	c.Assert(r.VertexBuffers(), qt.DeepEquals, []gfx.Buffer{9, 10, 11})

	r.SetDescriptorSets(0, []gfx.DescriptorSet{5, 6})
	r.SetDescriptorSets(1, []gfx.DescriptorSet{8})
	c.Assert(r.DescriptorSets(), qt.DeepEquals, []gfx.DescriptorSet{5, 8})

	r.SetIndexBuffer(4, 32, gfx.IndexUint32)
	b, off, it := r.IndexBuffer()
	c.Assert(b, qt.Equals, gfx.Buffer(4))
	c.Assert(off, qt.Equals, uint64(32))
	c.Assert(it, qt.Equals, gfx.IndexUint32)

	r.WritePushConstants(4, []byte{1, 2, 3, 4})
	c.Assert(r.PushConstantBlock(), qt.DeepEquals, []byte{0, 0, 0, 0, 1, 2, 3, 4, 0, 0, 0, 0, 0, 0, 0, 0})
	c.Assert(func() { r.WritePushConstants(12, make([]byte, 8)) }, qt.PanicMatches, "gfx: push constant range .*")
	c.Assert(func() { r.WritePushConstants(0xFFFFFFFF, []byte{1}) }, qt.PanicMatches, `gfx: push constant range \[4294967295, 4294967296\) exceeds block of 16 bytes`)

	// Rebinding a pipeline keeps the other bindings.
	r.SetPipeline(4, 16)
	c.Assert(r.VertexBuffers(), qt.HasLen, 3)
}

func TestRecorderDebugRegions(t *testing.T) {
	c := qt.New(t)
	r := gfx.NewRecorder(gfx.LevelPrimary)
	r.StartRecording()
	r.PushDebugRegion()
	c.Assert(func() { r.FinishRecording() }, qt.PanicMatches, "gfx: End with 1 open debug regions")
	r.PopDebugRegion()
	c.Assert(func() { r.PopDebugRegion() }, qt.PanicMatches, "gfx: EndDebugRegion without BeginDebugRegion")
	r.FinishRecording()
}
