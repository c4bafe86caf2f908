// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"math"

	"github.com/devblok/starlight/gfx"
	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"
)

// Surface formats in order of preference.
var preferredFormats = []vk.Format{
	vk.FormatB8g8r8a8Unorm,
	vk.FormatB8g8r8a8Srgb,
	vk.FormatR8g8b8a8Unorm,
	vk.FormatR8g8b8a8Srgb,
}

type presentSource struct {
	view    gfx.TextureView
	sampler gfx.Sampler
	layout  gfx.ImageLayout
}

type swapchain struct {
	handle     vk.Swapchain
	desc       gfx.SwapchainDesc
	format     vk.Format
	colorSpace vk.ColorSpace
	extent     vk.Extent2D

	textures []gfx.Texture
	views    []gfx.TextureView

	// Per image resources of the presentation blit.
	pool    *CommandPool
	blits   []*CommandBuffer
	fences  []vk.Fence
	blitted []vk.Semaphore

	source *presentSource
}

// InitSwapchain implements gfx.Renderer.
func (r *Renderer) InitSwapchain(desc gfx.SwapchainDesc) error {
	if r.device == nil {
		return gfx.ErrNotInitialised
	}
	if r.surface == vk.NullSurface {
		return gfx.Unavailable(gfx.Vulkan, "renderer has no presentation surface")
	}
	if r.swapchain != nil {
		gfx.Violationf("InitSwapchain called twice")
	}

	pool, err := r.newCommandPool(gfx.QueueGraphics, true)
	if err != nil {
		return err
	}
	r.swapchain = &swapchain{desc: desc, pool: pool}
	if err := r.createSwapchain(nil); err != nil {
		r.destroySwapchain()
		return err
	}
	return nil
}

func (r *Renderer) createSwapchain(old vk.Swapchain) error {
	sc := r.swapchain

	var caps vk.SurfaceCapabilities
	if err := check("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", vk.GetPhysicalDeviceSurfaceCapabilities(r.physicalDevice, r.surface, &caps)); err != nil {
		return err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	if err := r.pickSurfaceFormat(); err != nil {
		return err
	}
	presentMode := r.pickPresentMode(sc.desc.VSync)

	extent := caps.CurrentExtent
	if extent.Width == math.MaxUint32 {
		extent.Width = clamp(sc.desc.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
		extent.Height = clamp(sc.desc.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height)
	}
	if extent.Width == 0 || extent.Height == 0 {
		return gfx.ErrSwapchainOutOfDate
	}

	imageCount := sc.desc.ImageCount
	if imageCount == 0 {
		imageCount = caps.MinImageCount + 1
	}
	if imageCount < caps.MinImageCount {
		imageCount = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	compositeAlphaFlags := []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	}
	for _, flag := range compositeAlphaFlags {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(flag) != 0 {
			compositeAlpha = flag
			break
		}
	}

	scci := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          r.surface,
		MinImageCount:    imageCount,
		ImageFormat:      sc.format,
		ImageColorSpace:  sc.colorSpace,
		ImageExtent:      extent,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     old,
	}
	if graphics, present := r.queues.Family(gfx.QueueGraphics), r.queues.Family(gfx.QueuePresent); graphics != present {
		scci.ImageSharingMode = vk.SharingModeConcurrent
		scci.QueueFamilyIndexCount = 2
		scci.PQueueFamilyIndices = []uint32{uint32(graphics), uint32(present)}
	}

	var handle vk.Swapchain
	if err := check("vkCreateSwapchainKHR", vk.CreateSwapchain(r.device, &scci, nil, &handle)); err != nil {
		return err
	}
	sc.handle = handle
	sc.extent = extent

	var numImages uint32
	if err := check("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(r.device, handle, &numImages, nil)); err != nil {
		return err
	}
	images := make([]vk.Image, numImages)
	if err := check("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(r.device, handle, &numImages, images)); err != nil {
		return err
	}
	if err := r.registerSwapchainImages(images); err != nil {
		return err
	}

	r.log.WithFields(log.Fields{
		"width":  extent.Width,
		"height": extent.Height,
		"images": numImages,
		"mode":   presentMode,
	}).Info("swapchain created")
	return nil
}

func clamp(v, min, max uint32) uint32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func (r *Renderer) pickSurfaceFormat() error {
	var count uint32
	if err := check("vkGetPhysicalDeviceSurfaceFormatsKHR", vk.GetPhysicalDeviceSurfaceFormats(r.physicalDevice, r.surface, &count, nil)); err != nil {
		return err
	}
	if count == 0 {
		return fatal("vkGetPhysicalDeviceSurfaceFormatsKHR", "surface reports no formats")
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := check("vkGetPhysicalDeviceSurfaceFormatsKHR", vk.GetPhysicalDeviceSurfaceFormats(r.physicalDevice, r.surface, &count, formats)); err != nil {
		return err
	}
	for i := range formats {
		formats[i].Deref()
	}

	sc := r.swapchain
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		sc.format, sc.colorSpace = vk.FormatB8g8r8a8Unorm, formats[0].ColorSpace
		return nil
	}
	for _, want := range preferredFormats {
		for _, f := range formats {
			if f.Format == want {
				sc.format, sc.colorSpace = f.Format, f.ColorSpace
				return nil
			}
		}
	}
	sc.format, sc.colorSpace = formats[0].Format, formats[0].ColorSpace
	return nil
}

// pickPresentMode returns FIFO for vsync. Otherwise mailbox is preferred
// over immediate, with FIFO as the mode every device supports.
func (r *Renderer) pickPresentMode(vsync bool) vk.PresentMode {
	if vsync {
		return vk.PresentModeFifo
	}
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(r.physicalDevice, r.surface, &count, nil)); err != nil {
		return vk.PresentModeFifo
	}
	modes := make([]vk.PresentMode, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(r.physicalDevice, r.surface, &count, modes)); err != nil {
		return vk.PresentModeFifo
	}
	for _, want := range []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeImmediate} {
		for _, m := range modes {
			if m == want {
				return m
			}
		}
	}
	return vk.PresentModeFifo
}

// registerSwapchainImages issues texture and view handles for the images
// and creates the per image blit resources.
func (r *Renderer) registerSwapchainImages(images []vk.Image) error {
	sc := r.swapchain
	format := gfxFormat(sc.format)
	desc := gfx.TextureDesc{
		Type:      gfx.Texture2D,
		Format:    format,
		Extent:    gfx.Extent3D{Width: sc.extent.Width, Height: sc.extent.Height, Depth: 1},
		MipLevels: 1,
		Layers:    1,
		Samples:   1,
		Usage:     gfx.TextureUsageColorAttachment | gfx.TextureUsageTransferDst,
	}

	for _, image := range images {
		tex := gfx.Texture(r.objects.textures.Insert(texture{
			image:     image,
			desc:      desc,
			swapchain: true,
		}))
		sc.textures = append(sc.textures, tex)

		view, err := r.newImageView(image, gfx.TextureViewDesc{
			Texture:   tex,
			Type:      gfx.Texture2D,
			Format:    format,
			MipLevels: 1,
			Layers:    1,
		})
		if err != nil {
			return err
		}
		sc.views = append(sc.views, gfx.TextureView(r.objects.views.Insert(textureView{
			view:      view,
			texture:   tex,
			format:    format,
			swapchain: true,
		})))
	}

	bufs, err := sc.pool.AllocateCommandBuffers(gfx.LevelPrimary, len(images))
	if err != nil {
		return err
	}
	for _, b := range bufs {
		sc.blits = append(sc.blits, b.(*CommandBuffer))
	}
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for range images {
		var fence vk.Fence
		if err := check("vkCreateFence", vk.CreateFence(r.device, &fci, nil, &fence)); err != nil {
			return err
		}
		sc.fences = append(sc.fences, fence)
		var semaphore vk.Semaphore
		if err := check("vkCreateSemaphore", vk.CreateSemaphore(r.device, &sci, nil, &semaphore)); err != nil {
			return err
		}
		sc.blitted = append(sc.blitted, semaphore)
	}
	return nil
}

// releaseSwapchainImages drops the image handles and blit resources. The
// swapchain itself is left alone.
func (r *Renderer) releaseSwapchainImages() {
	sc := r.swapchain
	for _, h := range sc.views {
		v := r.objects.views.Remove(gfx.Handle(h))
		vk.DestroyImageView(r.device, v.view, nil)
	}
	for _, h := range sc.textures {
		r.objects.textures.Remove(gfx.Handle(h))
	}
	sc.views, sc.textures = nil, nil

	if len(sc.blits) > 0 {
		bufs := make([]gfx.CommandBuffer, len(sc.blits))
		for i, b := range sc.blits {
			bufs[i] = b
		}
		sc.pool.FreeCommandBuffers(bufs)
	}
	for _, f := range sc.fences {
		vk.DestroyFence(r.device, f, nil)
	}
	for _, s := range sc.blitted {
		vk.DestroySemaphore(r.device, s, nil)
	}
	sc.blits, sc.fences, sc.blitted = nil, nil, nil
}

func (r *Renderer) destroySwapchain() {
	sc := r.swapchain
	if sc == nil {
		return
	}
	r.releaseSwapchainImages()
	if sc.pool != nil {
		sc.pool.destroy()
	}
	if sc.handle != nil {
		vk.DestroySwapchain(r.device, sc.handle, nil)
	}
	r.swapchain = nil
}

func (r *Renderer) requireSwapchain(op string) *swapchain {
	if r.swapchain == nil {
		gfx.Violationf("%s before InitSwapchain", op)
	}
	return r.swapchain
}

// AcquireSwapchainImage implements gfx.Renderer. A suboptimal swapchain
// still returns an image.
func (r *Renderer) AcquireSwapchainImage(signal gfx.Semaphore) (uint32, error) {
	sc := r.requireSwapchain("AcquireSwapchainImage")
	semaphore := vk.NullSemaphore
	if signal != 0 {
		semaphore = *r.objects.semaphores.Get(gfx.Handle(signal))
	}

	var idx uint32
	res := vk.AcquireNextImage(r.device, sc.handle, math.MaxUint64, semaphore, vk.NullFence, &idx)
	switch res {
	case vk.ErrorOutOfDate:
		return 0, gfx.ErrSwapchainOutOfDate
	case vk.Suboptimal:
		return idx, nil
	}
	if err := check("vkAcquireNextImageKHR", res); err != nil {
		return 0, err
	}
	return idx, nil
}

// PresentToSwapchain implements gfx.Renderer.
func (r *Renderer) PresentToSwapchain(image uint32, wait []gfx.Semaphore) error {
	sc := r.requireSwapchain("PresentToSwapchain")
	if int(image) >= len(sc.textures) {
		gfx.Violationf("presenting image %d of %d", image, len(sc.textures))
	}

	waitSemaphores := r.vkSemaphores(wait)
	if sc.source != nil {
		if err := r.blitToSwapchain(image, waitSemaphores); err != nil {
			return err
		}
		waitSemaphores = []vk.Semaphore{sc.blitted[image]}
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waitSemaphores)),
		PWaitSemaphores:    waitSemaphores,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.handle},
		PImageIndices:      []uint32{image},
	}
	res := vk.QueuePresent(r.queue(gfx.QueuePresent), &presentInfo)
	if res == vk.ErrorOutOfDate || res == vk.Suboptimal {
		return gfx.ErrSwapchainOutOfDate
	}
	return check("vkQueuePresentKHR", res)
}

// blitToSwapchain copies the bound texture into image and leaves the image
// ready for presentation.
func (r *Renderer) blitToSwapchain(image uint32, wait []vk.Semaphore) error {
	sc := r.swapchain
	view := r.objects.views.Get(gfx.Handle(sc.source.view))
	src := r.objects.textures.Get(gfx.Handle(view.texture))
	dst := r.objects.textures.Get(gfx.Handle(sc.textures[image]))

	fences := []vk.Fence{sc.fences[image]}
	if err := check("vkWaitForFences", vk.WaitForFences(r.device, 1, fences, vk.True, math.MaxUint64)); err != nil {
		return err
	}
	if err := check("vkResetFences", vk.ResetFences(r.device, 1, fences)); err != nil {
		return err
	}

	cb := sc.blits[image]
	if err := cb.Reset(false); err != nil {
		return err
	}
	if err := cb.Begin(gfx.UsageOneTimeSubmit); err != nil {
		return err
	}
	cmdImageBarrier(cb.cmd, dst.image, dst.desc, gfx.LayoutUndefined, gfx.LayoutTransferDst)
	if sc.source.layout != gfx.LayoutTransferSrc {
		cmdImageBarrier(cb.cmd, src.image, src.desc, sc.source.layout, gfx.LayoutTransferSrc)
	}

	region := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask: vkAspect(src.desc.Format),
			LayerCount: 1,
		},
		SrcOffsets: [2]vk.Offset3D{{}, {
			X: int32(src.desc.Extent.Width),
			Y: int32(src.desc.Extent.Height),
			Z: 1,
		}},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		DstOffsets: [2]vk.Offset3D{{}, {
			X: int32(sc.extent.Width),
			Y: int32(sc.extent.Height),
			Z: 1,
		}},
	}
	vk.CmdBlitImage(cb.cmd, src.image, vk.ImageLayoutTransferSrcOptimal, dst.image, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{region}, r.presentFilter())

	if sc.source.layout != gfx.LayoutTransferSrc && sc.source.layout != gfx.LayoutUndefined {
		cmdImageBarrier(cb.cmd, src.image, src.desc, gfx.LayoutTransferSrc, sc.source.layout)
	}
	cmdImageBarrier(cb.cmd, dst.image, dst.desc, gfx.LayoutTransferDst, gfx.LayoutPresent)
	if err := cb.End(); err != nil {
		return err
	}

	stages := make([]vk.PipelineStageFlags, len(wait))
	for i := range stages {
		stages[i] = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	}
	submit := []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(wait)),
		PWaitSemaphores:      wait,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{sc.blitted[image]},
	}}
	return check("vkQueueSubmit", vk.QueueSubmit(r.queue(gfx.QueueGraphics), 1, submit, sc.fences[image]))
}

func (r *Renderer) presentFilter() vk.Filter {
	if s := r.swapchain.source; s != nil && s.sampler != 0 {
		if smp, ok := r.objects.samplers.Lookup(gfx.Handle(s.sampler)); ok {
			return vkFilter(smp.filter)
		}
	}
	return vk.FilterLinear
}

// RecreateSwapchain implements gfx.Renderer.
func (r *Renderer) RecreateSwapchain(width, height uint32) error {
	sc := r.requireSwapchain("RecreateSwapchain")
	if err := check("vkDeviceWaitIdle", vk.DeviceWaitIdle(r.device)); err != nil {
		return err
	}

	old := sc.handle
	r.releaseSwapchainImages()
	sc.desc.Width, sc.desc.Height = width, height
	sc.handle = nil
	err := r.createSwapchain(old)
	vk.DestroySwapchain(r.device, old, nil)
	if err != nil {
		return err
	}

	r.events.Trigger(gfx.EventSwapchainRecreated, gfx.SwapchainDesc{
		Width:      sc.extent.Width,
		Height:     sc.extent.Height,
		ImageCount: uint32(len(sc.textures)),
		VSync:      sc.desc.VSync,
	})
	return nil
}

// SetSwapchainTexture implements gfx.Renderer. A zero view unbinds the
// texture. layout is the layout the texture is in when presenting starts.
func (r *Renderer) SetSwapchainTexture(view gfx.TextureView, sampler gfx.Sampler, layout gfx.ImageLayout) {
	sc := r.requireSwapchain("SetSwapchainTexture")
	if view == 0 {
		sc.source = nil
		return
	}
	v := r.objects.views.Get(gfx.Handle(view))
	if v.swapchain {
		gfx.Violationf("swapchain texture view %s cannot be presented to the swapchain", gfx.Handle(view))
	}
	if sampler != 0 {
		r.objects.samplers.Get(gfx.Handle(sampler))
	}
	sc.source = &presentSource{view: view, sampler: sampler, layout: layout}
}

// SwapchainTextures implements gfx.Renderer.
func (r *Renderer) SwapchainTextures() []gfx.Texture {
	if r.swapchain == nil {
		return nil
	}
	return append([]gfx.Texture(nil), r.swapchain.textures...)
}

// SwapchainTextureViews implements gfx.Renderer.
func (r *Renderer) SwapchainTextureViews() []gfx.TextureView {
	if r.swapchain == nil {
		return nil
	}
	return append([]gfx.TextureView(nil), r.swapchain.views...)
}

// SwapchainFormat implements gfx.Renderer.
func (r *Renderer) SwapchainFormat() gfx.Format {
	if r.swapchain == nil {
		return gfx.FormatUndefined
	}
	return gfxFormat(r.swapchain.format)
}
