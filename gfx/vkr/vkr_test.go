package vkr_test

import (
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/starlight/gfx"
	"github.com/devblok/starlight/gfx/vkr"
)

var (
	_ gfx.Renderer       = (*vkr.Renderer)(nil)
	_ gfx.CommandPool    = (*vkr.CommandPool)(nil)
	_ gfx.CommandBuffer  = (*vkr.CommandBuffer)(nil)
	_ gfx.DescriptorPool = (*vkr.DescriptorPool)(nil)
)

// newRenderer returns an initialised headless renderer, skipping the test
// on hosts without a Vulkan loader or device.
func newRenderer(t *testing.T) *vkr.Renderer {
	t.Helper()
	logger := log.New()
	logger.SetLevel(log.WarnLevel)
	r, err := vkr.New(gfx.AllocInfo{AppName: "vkr_test", Logger: logger})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Init(); err != nil {
		if errors.Is(err, gfx.ErrBackendUnavailable) {
			t.Skipf("vulkan unavailable: %v", err)
		}
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(r.Destroy)
	return r
}

func TestNotInitialised(t *testing.T) {
	r, err := vkr.New(gfx.AllocInfo{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.CreateCommandPool(gfx.QueueGraphics); err != gfx.ErrNotInitialised {
		t.Errorf("CreateCommandPool before Init = %v, want ErrNotInitialised", err)
	}
	if err := r.InitSwapchain(gfx.SwapchainDesc{Width: 1, Height: 1}); err != gfx.ErrNotInitialised {
		t.Errorf("InitSwapchain before Init = %v, want ErrNotInitialised", err)
	}
	if r.Backend() != gfx.Vulkan {
		t.Errorf("Backend() = %s", r.Backend())
	}
}

func TestHeadlessDevice(t *testing.T) {
	c := qt.New(t)
	r := newRenderer(t)

	dq := r.DeviceQueues()
	c.Assert(dq.IsComplete(), qt.IsTrue)

	// Without a surface there is nothing to present to.
	err := r.InitSwapchain(gfx.SwapchainDesc{Width: 64, Height: 64})
	c.Assert(errors.Is(err, gfx.ErrBackendUnavailable), qt.IsTrue)

	c.Assert(r.WaitForDeviceIdle(), qt.IsNil)
}

func TestBuffers(t *testing.T) {
	c := qt.New(t)
	r := newRenderer(t)

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	host, err := r.CreateBuffer(gfx.BufferDesc{
		Size:   uint64(len(data)),
		Usage:  gfx.BufferUsageUniform,
		Memory: gfx.MemoryCPUToGPU,
		Data:   data,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(r.UpdateBuffer(host, 4, []byte{9, 9}), qt.IsNil)

	device, err := r.CreateBuffer(gfx.BufferDesc{
		Size:   1024,
		Usage:  gfx.BufferUsageVertex,
		Memory: gfx.MemoryGPUOnly,
		Data:   make([]byte, 1024),
	})
	c.Assert(err, qt.IsNil)

	staging, err := r.CreateStagingBuffer(data)
	c.Assert(err, qt.IsNil)
	c.Assert(staging.Size, qt.Equals, uint64(len(data)))

	r.DestroyStagingBuffer(staging)
	r.DestroyBuffer(device)
	r.DestroyBuffer(host)

	c.Assert(func() { r.DestroyBuffer(host) }, qt.PanicMatches, "gfx: handle .* is destroyed")
	c.Assert(func() { r.UpdateBuffer(0, 0, data) }, qt.PanicMatches, "gfx: nil handle")
}

func TestTexturesAndSamplers(t *testing.T) {
	c := qt.New(t)
	r := newRenderer(t)

	tex, err := r.CreateTexture(gfx.TextureDesc{
		Format: gfx.FormatRGBA8Unorm,
		Extent: gfx.Extent3D{Width: 64, Height: 64, Depth: 1},
		Usage:  gfx.TextureUsageSampled | gfx.TextureUsageTransferDst,
	})
	c.Assert(err, qt.IsNil)
	view, err := r.CreateTextureView(gfx.TextureViewDesc{Texture: tex})
	c.Assert(err, qt.IsNil)

	sampler, err := r.CreateSampler(gfx.SamplerDesc{
		MinFilter:     gfx.FilterLinear,
		MagFilter:     gfx.FilterNearest,
		MaxAnisotropy: 1024,
		MaxLod:        1,
	})
	c.Assert(err, qt.IsNil)

	r.SetObjectDebugName(tex, "checker")
	c.Assert(func() { r.SetObjectDebugName(42, "answer") }, qt.PanicMatches, "gfx: cannot name object of type int")

	r.DestroySampler(sampler)
	r.DestroyTextureView(view)
	r.DestroyTexture(tex)
}

func TestShaderModuleSize(t *testing.T) {
	r := newRenderer(t)
	qt.Assert(t, func() {
		r.CreateShaderModule(gfx.ShaderModuleDesc{Name: "odd", Stage: gfx.StageVertex, Code: []byte{1, 2, 3}})
	}, qt.PanicMatches, `gfx: shader "odd": SPIR-V of 3 bytes .*`)
}

var uniformLayout = gfx.DescriptorSetLayoutDesc{
	Bindings: []gfx.DescriptorBinding{
		{Binding: 0, Type: gfx.DescriptorUniformBuffer, Count: 1, Stages: gfx.StageVertex},
	},
}

func TestPipelineInputLayouts(t *testing.T) {
	c := qt.New(t)
	r := newRenderer(t)

	desc := gfx.PipelineInputLayoutDesc{
		Sets:          []gfx.DescriptorSetLayoutDesc{uniformLayout},
		PushConstants: []gfx.PushConstantRange{{Stages: gfx.StageVertex, Size: 64}},
	}
	a, err := r.CreatePipelineInputLayout(desc)
	c.Assert(err, qt.IsNil)
	b, err := r.CreatePipelineInputLayout(desc)
	c.Assert(err, qt.IsNil)
	c.Assert(a, qt.Not(qt.Equals), b)

	r.DestroyPipelineInputLayout(a)
	r.DestroyPipelineInputLayout(b)

	tooLarge := gfx.PipelineInputLayoutDesc{
		PushConstants: []gfx.PushConstantRange{{Stages: gfx.StageVertex, Size: gfx.MaxPushConstantsSize + 4}},
	}
	c.Assert(func() { r.CreatePipelineInputLayout(tooLarge) }, qt.PanicMatches, "gfx: push constant.*")
}

func TestDescriptorPoolGrowth(t *testing.T) {
	c := qt.New(t)
	r := newRenderer(t)

	buf, err := r.CreateBuffer(gfx.BufferDesc{Size: 256, Usage: gfx.BufferUsageUniform, Memory: gfx.MemoryCPUToGPU})
	c.Assert(err, qt.IsNil)
	defer r.DestroyBuffer(buf)

	pool := r.CreateDescriptorPool(2)
	defer pool.Destroy()

	var sets []gfx.DescriptorSet
	for i := 0; i < 5; i++ {
		s, err := pool.AllocateDescriptorSet(uniformLayout)
		c.Assert(err, qt.IsNil)
		r.UpdateDescriptorSet(s, []gfx.DescriptorWrite{{Binding: 0, Type: gfx.DescriptorUniformBuffer, Buffer: buf}})
		sets = append(sets, s)
	}
	c.Assert(pool.Pools(), qt.Equals, 3)

	// Sets go back to the VkDescriptorPool that allocated them.
	pool.FreeDescriptorSets(sets[:3])
	more, err := pool.AllocateDescriptorSets(uniformLayout, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(pool.Pools(), qt.Equals, 3)

	other := r.CreateDescriptorPool(0)
	defer other.Destroy()
	c.Assert(func() { other.FreeDescriptorSet(more[0]) }, qt.PanicMatches, "gfx: descriptor set .* freed to a pool that did not allocate it")

	c.Assert(pool.Reset(), qt.IsNil)
	c.Assert(func() { r.UpdateDescriptorSet(sets[4], nil) }, qt.PanicMatches, "gfx: handle .* is destroyed")
}

func TestRendererDescriptorSets(t *testing.T) {
	c := qt.New(t)
	r := newRenderer(t)

	buf, err := r.CreateBuffer(gfx.BufferDesc{Size: 64, Usage: gfx.BufferUsageUniform, Memory: gfx.MemoryCPUToGPU})
	c.Assert(err, qt.IsNil)
	s, err := r.CreateDescriptorSet(gfx.DescriptorSetDesc{
		Layout: uniformLayout,
		Writes: []gfx.DescriptorWrite{{Binding: 0, Type: gfx.DescriptorUniformBuffer, Buffer: buf, Range: 64}},
	})
	c.Assert(err, qt.IsNil)
	r.DestroyDescriptorSet(s)
	r.DestroyBuffer(buf)
}

func TestCommandRecording(t *testing.T) {
	c := qt.New(t)
	r := newRenderer(t)

	pool, err := r.CreateCommandPool(gfx.QueueGraphics)
	c.Assert(err, qt.IsNil)
	defer r.DestroyCommandPool(pool)

	c.Assert(func() { pool.AllocateCommandBuffers(gfx.LevelPrimary, 0) }, qt.PanicMatches, "gfx: allocating 0 command buffers")

	bufs, err := pool.AllocateCommandBuffers(gfx.LevelPrimary, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(pool.(*vkr.CommandPool).Len(), qt.Equals, 2)

	src, err := r.CreateStagingBuffer(make([]byte, 16*16*4))
	c.Assert(err, qt.IsNil)
	defer r.DestroyStagingBuffer(src)
	dst, err := r.CreateBuffer(gfx.BufferDesc{Size: 64, Usage: gfx.BufferUsageStorage})
	c.Assert(err, qt.IsNil)
	defer r.DestroyBuffer(dst)
	tex, err := r.CreateTexture(gfx.TextureDesc{
		Format: gfx.FormatRGBA8Unorm,
		Extent: gfx.Extent3D{Width: 16, Height: 16, Depth: 1},
		Usage:  gfx.TextureUsageSampled | gfx.TextureUsageTransferDst,
	})
	c.Assert(err, qt.IsNil)
	defer r.DestroyTexture(tex)

	cb := bufs[0]
	c.Assert(cb.Begin(gfx.UsageOneTimeSubmit), qt.IsNil)
	cb.BeginDebugRegion("upload", gfx.ClearColor(1, 0, 0, 1).Color)
	cb.CopyBuffer(src.Buffer, dst, []gfx.BufferCopy{{Size: 64}})
	cb.TransitionTextureLayout(tex, gfx.LayoutUndefined, gfx.LayoutTransferDst)
	cb.CopyBufferToTexture(src.Buffer, tex, gfx.LayoutTransferDst, []gfx.BufferTextureCopy{{}})
	cb.TransitionTextureLayout(tex, gfx.LayoutTransferDst, gfx.LayoutShaderReadOnly)
	cb.EndDebugRegion()
	c.Assert(cb.End(), qt.IsNil)
	c.Assert(cb.State(), qt.Equals, gfx.StateExecutable)

	fence, err := r.CreateFence(false)
	c.Assert(err, qt.IsNil)
	defer r.DestroyFence(fence)
	c.Assert(r.SubmitToQueue(gfx.QueueGraphics, []gfx.SubmitInfo{{CommandBuffers: []gfx.CommandBuffer{cb}}}, fence), qt.IsNil)
	ok, err := r.WaitForFences([]gfx.Fence{fence}, true, time.Second)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	// The second buffer was never recorded.
	c.Assert(func() {
		r.SubmitToQueue(gfx.QueueGraphics, []gfx.SubmitInfo{{CommandBuffers: []gfx.CommandBuffer{bufs[1]}}}, 0)
	}, qt.PanicMatches, "gfx: submitting .*")

	c.Assert(pool.Reset(false), qt.IsNil)
	c.Assert(cb.State(), qt.Equals, gfx.StateInitial)

	pool.FreeCommandBuffers(bufs)
	c.Assert(cb.State(), qt.Equals, gfx.StateInvalid)
	c.Assert(func() { pool.FreeCommandBuffer(cb) }, qt.PanicMatches, "gfx: .*")
}

func TestDestroyReleasesPools(t *testing.T) {
	r := newRenderer(t)
	pool, err := r.CreateCommandPool(gfx.QueueTransfer)
	if err != nil {
		t.Fatal(err)
	}
	cb, err := pool.AllocateCommandBuffer(gfx.LevelSecondary)
	if err != nil {
		t.Fatal(err)
	}
	r.DestroyCommandPool(pool)
	if cb.State() != gfx.StateInvalid {
		t.Errorf("buffer state after pool destroy = %s, want invalid", cb.State())
	}
}

func TestListDevices(t *testing.T) {
	logger := log.New()
	logger.SetLevel(log.WarnLevel)
	devices, err := vkr.ListDevices(gfx.AllocInfo{AppName: "vkr_test", Logger: logger})
	if errors.Is(err, gfx.ErrBackendUnavailable) {
		t.Skipf("vulkan unavailable: %v", err)
	}
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range devices {
		if d.Name == "" {
			t.Errorf("device %d has no name", d.ID)
		}
		if !d.Suitable && d.Reason == "" {
			t.Errorf("device %q is unsuitable without a reason", d.Name)
		}
	}
}
