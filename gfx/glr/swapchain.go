// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package glr

import (
	"github.com/devblok/starlight/gfx"
	"github.com/go-gl/gl/v4.3-core/gl"
	log "github.com/sirupsen/logrus"
)

// swapchain is the default framebuffer exposed as one texture.
type swapchain struct {
	desc    gfx.SwapchainDesc
	texture gfx.Texture
	view    gfx.TextureView

	source       gfx.TextureView
	sourceFilter gfx.Filter
}

// InitSwapchain implements gfx.Renderer.
func (r *Renderer) InitSwapchain(desc gfx.SwapchainDesc) error {
	if err := r.requireInit(); err != nil {
		return err
	}
	if r.swapchain != nil {
		gfx.Violationf("InitSwapchain called twice")
	}
	if err := r.ctx.SetSwapInterval(desc.VSync); err != nil {
		r.log.WithError(err).Warn("swap interval not supported")
	}
	desc.ImageCount = 1
	tex := gfx.Texture(r.objects.textures.Insert(texture{
		target:    gl.TEXTURE_2D,
		desc:      swapchainTextureDesc(desc),
		swapchain: true,
	}))
	view := gfx.TextureView(r.objects.views.Insert(textureView{
		target:    gl.TEXTURE_2D,
		texture:   tex,
		format:    gfx.FormatRGBA8Unorm,
		swapchain: true,
	}))
	r.swapchain = &swapchain{desc: desc, texture: tex, view: view, sourceFilter: gfx.FilterLinear}
	r.log.WithFields(log.Fields{
		"width":  desc.Width,
		"height": desc.Height,
		"vsync":  desc.VSync,
	}).Info("swapchain created")
	return nil
}

func swapchainTextureDesc(desc gfx.SwapchainDesc) gfx.TextureDesc {
	return gfx.TextureDesc{
		Format:    gfx.FormatRGBA8Unorm,
		Extent:    gfx.Extent3D{Width: desc.Width, Height: desc.Height, Depth: 1},
		MipLevels: 1,
		Layers:    1,
		Samples:   1,
		Usage:     gfx.TextureUsageColorAttachment | gfx.TextureUsageTransferDst,
	}
}

func (r *Renderer) requireSwapchain(op string) *swapchain {
	if r.swapchain == nil {
		gfx.Violationf("%s before InitSwapchain", op)
	}
	return r.swapchain
}

func (r *Renderer) isSwapchainView(h gfx.TextureView) bool {
	return r.swapchain != nil && r.swapchain.view == h
}

// AcquireSwapchainImage implements gfx.Renderer. The default framebuffer is
// always image 0; a window whose size no longer matches is out of date.
func (r *Renderer) AcquireSwapchainImage(signal gfx.Semaphore) (uint32, error) {
	sc := r.requireSwapchain("AcquireSwapchainImage")
	if signal != 0 {
		r.objects.semaphores.Get(gfx.Handle(signal))
	}
	w, h := r.ctx.DrawableSize()
	if w <= 0 || h <= 0 || uint32(w) != sc.desc.Width || uint32(h) != sc.desc.Height {
		return 0, gfx.ErrSwapchainOutOfDate
	}
	return 0, nil
}

// PresentToSwapchain implements gfx.Renderer. The texture set with
// SetSwapchainTexture is blitted over the default framebuffer first.
func (r *Renderer) PresentToSwapchain(image uint32, wait []gfx.Semaphore) error {
	sc := r.requireSwapchain("PresentToSwapchain")
	if image != 0 {
		gfx.Violationf("presenting image %d of 1", image)
	}
	for _, h := range wait {
		r.objects.semaphores.Get(gfx.Handle(h))
	}

	if v, ok := r.objects.views.Lookup(gfx.Handle(sc.source)); ok {
		t := r.objects.textures.Get(gfx.Handle(v.texture))
		ext := t.desc.Extent
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, r.blitFBO)
		gl.FramebufferTexture(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, v.id, 0)
		gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
		gl.Disable(gl.SCISSOR_TEST)
		gl.BlitFramebuffer(0, 0, int32(ext.Width), int32(ext.Height),
			0, 0, int32(sc.desc.Width), int32(sc.desc.Height),
			gl.COLOR_BUFFER_BIT, blitFilter(sc.sourceFilter))
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
		if err := check("glBlitFramebuffer"); err != nil {
			return err
		}
	}

	r.ctx.SwapBuffers()
	return nil
}

// RecreateSwapchain implements gfx.Renderer.
func (r *Renderer) RecreateSwapchain(width, height uint32) error {
	sc := r.requireSwapchain("RecreateSwapchain")
	if width == 0 || height == 0 {
		return gfx.ErrSwapchainOutOfDate
	}
	gl.Finish()
	sc.desc.Width, sc.desc.Height = width, height
	r.objects.textures.Get(gfx.Handle(sc.texture)).desc = swapchainTextureDesc(sc.desc)
	r.objects.framebuffers.Each(func(_ gfx.Handle, fb *framebuffer) {
		if fb.id == 0 {
			fb.width, fb.height = width, height
		}
	})
	r.log.WithFields(log.Fields{"width": width, "height": height}).Info("swapchain recreated")
	r.events.Trigger(gfx.EventSwapchainRecreated, sc.desc)
	return nil
}

// SetSwapchainTexture implements gfx.Renderer. A zero view unbinds.
func (r *Renderer) SetSwapchainTexture(view gfx.TextureView, sampler gfx.Sampler, layout gfx.ImageLayout) {
	sc := r.requireSwapchain("SetSwapchainTexture")
	if view == 0 {
		sc.source = 0
		return
	}
	if v := r.objects.views.Get(gfx.Handle(view)); v.swapchain {
		gfx.Violationf("swapchain texture view %s cannot be presented to the swapchain", gfx.Handle(view))
	}
	sc.source = view
	sc.sourceFilter = gfx.FilterLinear
	if s, ok := r.objects.samplers.Lookup(gfx.Handle(sampler)); ok {
		sc.sourceFilter = s.filter
	}
}

// SwapchainTextures implements gfx.Renderer.
func (r *Renderer) SwapchainTextures() []gfx.Texture {
	if r.swapchain == nil {
		return nil
	}
	return []gfx.Texture{r.swapchain.texture}
}

// SwapchainTextureViews implements gfx.Renderer.
func (r *Renderer) SwapchainTextureViews() []gfx.TextureView {
	if r.swapchain == nil {
		return nil
	}
	return []gfx.TextureView{r.swapchain.view}
}

// SwapchainFormat implements gfx.Renderer.
func (r *Renderer) SwapchainFormat() gfx.Format {
	if r.swapchain == nil {
		return gfx.FormatUndefined
	}
	return gfx.FormatRGBA8Unorm
}
