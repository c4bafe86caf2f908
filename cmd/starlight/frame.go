// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/devblok/starlight/event"
	"github.com/devblok/starlight/gfx"
	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
)

const framesInFlight = 2

type frame struct {
	pool     gfx.CommandPool
	cmd      gfx.CommandBuffer
	fence    gfx.Fence
	acquired gfx.Semaphore
	rendered gfx.Semaphore
}

// frameLoop clears the swapchain every frame with a slowly changing colour.
type frameLoop struct {
	r   gfx.Renderer
	log log.FieldLogger

	pass          gfx.RenderPass
	framebuffers  []gfx.Framebuffer
	width, height uint32

	frames  [framesInFlight]frame
	current int
	elapsed time.Duration

	subscription event.ID
	rebuildErr   error
}

func newFrameLoop(r gfx.Renderer, width, height uint32, logger log.FieldLogger) (*frameLoop, error) {
	l := &frameLoop{r: r, log: logger, width: width, height: height}

	pass, err := r.CreateRenderPass(gfx.RenderPassDesc{
		Attachments: []gfx.Attachment{{
			Format:        r.SwapchainFormat(),
			Samples:       1,
			Load:          gfx.LoadOpClear,
			Store:         gfx.StoreOpStore,
			InitialLayout: gfx.LayoutUndefined,
			FinalLayout:   gfx.LayoutPresent,
		}},
		Subpasses: []gfx.Subpass{{Color: []uint32{0}}},
	})
	if err != nil {
		return nil, err
	}
	l.pass = pass
	r.SetObjectDebugName(pass, "clear pass")

	if len(r.SwapchainTextureViews()) == 0 {
		l.destroy()
		return nil, errors.New("swapchain has no images")
	}
	if err := l.rebuild(r.SwapchainTextureViews()); err != nil {
		l.destroy()
		return nil, err
	}

	for i := range l.frames {
		f := &l.frames[i]
		if f.pool, err = r.CreateCommandPool(gfx.QueueGraphics); err != nil {
			l.destroy()
			return nil, err
		}
		if f.cmd, err = f.pool.AllocateCommandBuffer(gfx.LevelPrimary); err != nil {
			l.destroy()
			return nil, err
		}
		if f.fence, err = r.CreateFence(true); err != nil {
			l.destroy()
			return nil, err
		}
		if f.acquired, err = r.CreateSemaphore(); err != nil {
			l.destroy()
			return nil, err
		}
		if f.rendered, err = r.CreateSemaphore(); err != nil {
			l.destroy()
			return nil, err
		}
		r.SetObjectDebugName(f.fence, fmt.Sprintf("frame %d fence", i))
		r.SetObjectDebugName(f.acquired, fmt.Sprintf("frame %d acquired", i))
		r.SetObjectDebugName(f.rendered, fmt.Sprintf("frame %d rendered", i))
	}

	l.subscription = r.Events().Subscribe(gfx.EventSwapchainRecreated, func(payload, _ interface{}) {
		desc := payload.(gfx.SwapchainDesc)
		l.width, l.height = desc.Width, desc.Height
		l.log.WithFields(log.Fields{"width": desc.Width, "height": desc.Height}).Debug("rebuilding framebuffers")
		l.rebuildErr = l.rebuild(l.r.SwapchainTextureViews())
	}, nil)
	return l, nil
}

// rebuild creates one framebuffer per swapchain image.
func (l *frameLoop) rebuild(views []gfx.TextureView) error {
	for _, fb := range l.framebuffers {
		l.r.DestroyFramebuffer(fb)
	}
	l.framebuffers = l.framebuffers[:0]

	for i, view := range views {
		fb, err := l.r.CreateFramebuffer(gfx.FramebufferDesc{
			RenderPass:  l.pass,
			Attachments: []gfx.TextureView{view},
			Width:       l.width,
			Height:      l.height,
			Layers:      1,
		})
		if err != nil {
			return err
		}
		l.r.SetObjectDebugName(fb, fmt.Sprintf("swapchain framebuffer %d", i))
		l.framebuffers = append(l.framebuffers, fb)
	}
	return nil
}

// recreate resizes the swapchain to the drawable size of w. A minimised
// window keeps the old swapchain.
func (l *frameLoop) recreate(w gfx.Window) error {
	width, height := w.DrawableSize()
	if width == 0 || height == 0 {
		return nil
	}
	l.width, l.height = uint32(width), uint32(height)
	return l.recreateCurrent()
}

func clearColor(t time.Duration) gfx.ClearValue {
	s := t.Seconds()
	return gfx.ClearValue{Color: mgl32.Vec4{
		float32(0.5 + 0.5*math.Sin(s)),
		float32(0.5 + 0.5*math.Sin(s+2*math.Pi/3)),
		float32(0.5 + 0.5*math.Sin(s+4*math.Pi/3)),
		1,
	}}
}

// render records and submits one frame and presents it.
func (l *frameLoop) render(delta time.Duration) error {
	l.elapsed += delta
	f := &l.frames[l.current]

	if _, err := l.r.WaitForFences([]gfx.Fence{f.fence}, true, -1); err != nil {
		return err
	}
	image, err := l.r.AcquireSwapchainImage(f.acquired)
	if errors.Is(err, gfx.ErrSwapchainOutOfDate) {
		l.log.Debug("swapchain out of date on acquire")
		return l.recreateCurrent()
	}
	if err != nil {
		return err
	}
	if err := l.r.ResetFences([]gfx.Fence{f.fence}); err != nil {
		return err
	}
	if err := f.pool.Reset(false); err != nil {
		return err
	}

	clear := clearColor(l.elapsed)
	cmd := f.cmd
	if err := cmd.Begin(gfx.UsageOneTimeSubmit); err != nil {
		return err
	}
	cmd.BeginDebugRegion("clear", clear.Color)
	cmd.BeginRenderPass(l.pass, l.framebuffers[image], gfx.Rect{Width: l.width, Height: l.height}, []gfx.ClearValue{clear})
	cmd.EndRenderPass()
	cmd.EndDebugRegion()
	if err := cmd.End(); err != nil {
		return err
	}

	if err := l.r.SubmitToQueue(gfx.QueueGraphics, []gfx.SubmitInfo{{
		CommandBuffers: []gfx.CommandBuffer{cmd},
		Wait:           []gfx.Semaphore{f.acquired},
		Signal:         []gfx.Semaphore{f.rendered},
	}}, f.fence); err != nil {
		return err
	}
	l.current = (l.current + 1) % framesInFlight

	err = l.r.PresentToSwapchain(image, []gfx.Semaphore{f.rendered})
	if errors.Is(err, gfx.ErrSwapchainOutOfDate) {
		l.log.Debug("swapchain out of date on present")
		return l.recreateCurrent()
	}
	return err
}

// recreateCurrent rebuilds the swapchain at its current size.
func (l *frameLoop) recreateCurrent() error {
	if err := l.r.WaitForDeviceIdle(); err != nil {
		return err
	}
	if err := l.r.RecreateSwapchain(l.width, l.height); err != nil {
		return err
	}
	err := l.rebuildErr
	l.rebuildErr = nil
	return err
}

func (l *frameLoop) destroy() {
	if err := l.r.WaitForDeviceIdle(); err != nil {
		l.log.WithError(err).Warn("device did not idle before frame teardown")
	}
	if l.subscription != 0 {
		l.r.Events().Unsubscribe(l.subscription)
	}
	for i := range l.frames {
		f := &l.frames[i]
		if f.pool != nil {
			l.r.DestroyCommandPool(f.pool)
		}
		if !gfx.Handle(f.fence).IsNil() {
			l.r.DestroyFence(f.fence)
		}
		if !gfx.Handle(f.acquired).IsNil() {
			l.r.DestroySemaphore(f.acquired)
		}
		if !gfx.Handle(f.rendered).IsNil() {
			l.r.DestroySemaphore(f.rendered)
		}
	}
	for _, fb := range l.framebuffers {
		l.r.DestroyFramebuffer(fb)
	}
	if !gfx.Handle(l.pass).IsNil() {
		l.r.DestroyRenderPass(l.pass)
	}
}
