package glr_test

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/starlight/gfx"
	"github.com/devblok/starlight/gfx/glr"
)

var (
	_ gfx.Renderer       = (*glr.Renderer)(nil)
	_ gfx.CommandPool    = (*glr.CommandPool)(nil)
	_ gfx.CommandBuffer  = (*glr.CommandBuffer)(nil)
	_ gfx.DescriptorPool = (*glr.DescriptorPool)(nil)
)

type window struct{}

func (window) DrawableSize() (int, int) { return 640, 480 }

func TestInitWithoutContext(t *testing.T) {
	c := qt.New(t)
	r, err := glr.New(gfx.AllocInfo{Window: window{}})
	c.Assert(err, qt.IsNil)
	c.Assert(r.Backend(), qt.Equals, gfx.OpenGL)

	err = r.Init()
	c.Assert(errors.Is(err, gfx.ErrBackendUnavailable), qt.IsTrue)
	r.Destroy()
}

func TestNotInitialised(t *testing.T) {
	c := qt.New(t)
	r, err := glr.New(gfx.AllocInfo{})
	c.Assert(err, qt.IsNil)

	_, err = r.CreateCommandPool(gfx.QueueGraphics)
	c.Assert(err, qt.Equals, gfx.ErrNotInitialised)
	_, err = r.CreateBuffer(gfx.BufferDesc{Size: 4})
	c.Assert(err, qt.Equals, gfx.ErrNotInitialised)
	_, err = r.CreateDescriptorSet(gfx.DescriptorSetDesc{})
	c.Assert(err, qt.Equals, gfx.ErrNotInitialised)
	c.Assert(r.InitSwapchain(gfx.SwapchainDesc{Width: 1, Height: 1}), qt.Equals, gfx.ErrNotInitialised)
	c.Assert(r.SwapchainTextures(), qt.HasLen, 0)
	c.Assert(r.SwapchainFormat(), qt.Equals, gfx.FormatUndefined)
}

func TestSingleQueue(t *testing.T) {
	r, err := glr.New(gfx.AllocInfo{})
	if err != nil {
		t.Fatal(err)
	}
	dq := r.DeviceQueues()
	if !dq.IsComplete() {
		t.Fatalf("queues %s are incomplete", dq)
	}
	if dq.HasUniquePresentFamily() || dq.HasUniqueComputeFamily() || dq.HasUniqueTransferFamily() {
		t.Errorf("queues %s use more than one family", dq)
	}
	if fams := dq.UniqueFamilies(); len(fams) != 1 {
		t.Errorf("UniqueFamilies() = %v, want one family", fams)
	}
}

func TestFencesAndSemaphores(t *testing.T) {
	c := qt.New(t)
	r, err := glr.New(gfx.AllocInfo{})
	c.Assert(err, qt.IsNil)

	signaled, err := r.CreateFence(true)
	c.Assert(err, qt.IsNil)
	ok, err := r.WaitForFences([]gfx.Fence{signaled}, true, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	// A fence never submitted cannot signal.
	pending, err := r.CreateFence(false)
	c.Assert(err, qt.IsNil)
	ok, err = r.WaitForFences([]gfx.Fence{pending}, false, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)
	ok, err = r.WaitForFences([]gfx.Fence{pending, signaled}, false, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	c.Assert(r.ResetFences([]gfx.Fence{signaled}), qt.IsNil)
	ok, err = r.WaitForFences([]gfx.Fence{signaled}, true, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	s, err := r.CreateSemaphore()
	c.Assert(err, qt.IsNil)
	r.DestroySemaphore(s)
	c.Assert(func() { r.DestroySemaphore(s) }, qt.PanicMatches, "gfx: handle .* is destroyed")

	r.DestroyFence(pending)
	r.DestroyFence(signaled)
}

func TestRenderPassValidation(t *testing.T) {
	c := qt.New(t)
	r, err := glr.New(gfx.AllocInfo{})
	c.Assert(err, qt.IsNil)

	c.Assert(func() { r.CreateRenderPass(gfx.RenderPassDesc{}) }, qt.PanicMatches, "gfx: render pass without subpasses")
	c.Assert(func() {
		r.CreateRenderPass(gfx.RenderPassDesc{
			Attachments: []gfx.Attachment{{Format: gfx.FormatRGBA8Unorm}},
			Subpasses:   []gfx.Subpass{{Color: []uint32{1}}},
		})
	}, qt.PanicMatches, "gfx: subpass references attachment 1 of 1")

	pass, err := r.CreateRenderPass(gfx.RenderPassDesc{
		Attachments: []gfx.Attachment{{Format: gfx.FormatRGBA8Unorm, Load: gfx.LoadOpClear}},
		Subpasses:   []gfx.Subpass{{Color: []uint32{0}}},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(gfx.Handle(pass).Backend(), qt.Equals, gfx.OpenGL)
	r.DestroyRenderPass(pass)
}
