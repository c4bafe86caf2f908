package vkr

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/starlight/gfx"
	vk "github.com/devblok/vulkan"
)

func TestMipExtent(t *testing.T) {
	c := qt.New(t)
	e := gfx.Extent3D{Width: 256, Height: 64, Depth: 1}
	c.Assert(mipExtent(e, 0), qt.Equals, e)
	c.Assert(mipExtent(e, 2), qt.Equals, gfx.Extent3D{Width: 64, Height: 16, Depth: 1})
	c.Assert(mipExtent(e, 8), qt.Equals, gfx.Extent3D{Width: 1, Height: 1, Depth: 1})
}

func TestClamp(t *testing.T) {
	c := qt.New(t)
	c.Assert(clamp(0, 1, 8), qt.Equals, uint32(1))
	c.Assert(clamp(5, 1, 8), qt.Equals, uint32(5))
	c.Assert(clamp(12, 1, 8), qt.Equals, uint32(8))
}

func TestFormats(t *testing.T) {
	for f := range formats {
		if got := gfxFormat(vkFormat(f)); got != f {
			t.Errorf("gfxFormat(vkFormat(%d)) = %d", f, got)
		}
	}
	if gfxFormat(vk.FormatR64Sfloat) != gfx.FormatUndefined {
		t.Error("unknown vulkan format did not map to FormatUndefined")
	}
}

func TestUsageFlags(t *testing.T) {
	c := qt.New(t)
	got := vkBufferUsage(gfx.BufferUsageVertex | gfx.BufferUsageTransferDst)
	c.Assert(got, qt.Equals, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit|vk.BufferUsageTransferDstBit))

	img := vkImageUsage(gfx.TextureUsageSampled | gfx.TextureUsageColorAttachment)
	c.Assert(img, qt.Equals, vk.ImageUsageFlags(vk.ImageUsageSampledBit|vk.ImageUsageColorAttachmentBit))
}

func TestLayoutAccess(t *testing.T) {
	c := qt.New(t)
	access, stage := layoutAccess(gfx.LayoutUndefined)
	c.Assert(access, qt.Equals, vk.AccessFlagBits(0))
	c.Assert(stage, qt.Equals, vk.PipelineStageTopOfPipeBit)

	access, stage = layoutAccess(gfx.LayoutTransferDst)
	c.Assert(access, qt.Equals, vk.AccessTransferWriteBit)
	c.Assert(stage, qt.Equals, vk.PipelineStageTransferBit)
}

func TestAspect(t *testing.T) {
	c := qt.New(t)
	c.Assert(vkAspect(gfx.FormatRGBA8Unorm), qt.Equals, vk.ImageAspectFlags(vk.ImageAspectColorBit))
	c.Assert(vkAspect(gfx.FormatD24UnormS8Uint), qt.Equals, vk.ImageAspectFlags(vk.ImageAspectDepthBit|vk.ImageAspectStencilBit))
}

func TestQueueCaps(t *testing.T) {
	c := qt.New(t)
	c.Assert(queueCaps(vk.QueueFlags(vk.QueueGraphicsBit)), qt.Equals, gfx.CapGraphics|gfx.CapTransfer)
	c.Assert(queueCaps(vk.QueueFlags(vk.QueueComputeBit)), qt.Equals, gfx.CapCompute|gfx.CapTransfer)
	c.Assert(queueCaps(vk.QueueFlags(vk.QueueTransferBit)), qt.Equals, gfx.CapTransfer)
	c.Assert(queueCaps(vk.QueueFlags(vk.QueueSparseBindingBit)), qt.Equals, gfx.QueueCaps(0))

	// A graphics family without the transfer bit still completes the roles.
	dq := gfx.FindQueueFamilies([]gfx.QueueFamily{
		{Caps: queueCaps(vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit)), QueueCount: 1, Present: true},
	}, false)
	c.Assert(dq.IsComplete(), qt.IsTrue)
}

func TestDebugReportCallbackSignature(t *testing.T) {
	var fn vk.DebugReportCallbackFunc = debugReport
	if fn(vk.DebugReportFlags(vk.DebugReportInformationBit), vk.DebugReportObjectTypeUnknown, 0, 0, 0, "test", "message", nil).B() {
		t.Error("debug report asked to abort the call")
	}
}
