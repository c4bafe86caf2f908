// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"

	"github.com/devblok/starlight/gfx"
	vk "github.com/devblok/vulkan"
)

// CreateBuffer implements gfx.Renderer. Device local buffers receiving
// initial data are filled through a staging copy.
func (r *Renderer) CreateBuffer(desc gfx.BufferDesc) (gfx.Buffer, error) {
	if desc.Size == 0 {
		gfx.Violationf("buffer of size 0")
	}
	if uint64(len(desc.Data)) > desc.Size {
		gfx.Violationf("buffer data of %d bytes exceeds size %d", len(desc.Data), desc.Size)
	}
	usage := desc.Usage
	if !desc.Memory.HostVisible() {
		usage |= gfx.BufferUsageTransferDst
	}

	b, err := r.newBuffer(desc.Size, usage, desc.Memory)
	if err != nil {
		return 0, err
	}
	b.desc = desc
	b.desc.Data = nil
	h := gfx.Buffer(r.objects.buffers.Insert(b))

	if len(desc.Data) > 0 {
		if err := r.UpdateBuffer(h, 0, desc.Data); err != nil {
			r.DestroyBuffer(h)
			return 0, err
		}
	}
	return h, nil
}

func (r *Renderer) newBuffer(size uint64, usage gfx.BufferUsage, memUsage gfx.MemoryUsage) (buffer, error) {
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vkBufferUsage(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var vkBuffer vk.Buffer
	if err := check("vkCreateBuffer", vk.CreateBuffer(r.device, &createInfo, nil, &vkBuffer)); err != nil {
		return buffer{}, err
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(r.device, vkBuffer, &req)
	req.Deref()

	memory, err := r.memory.Malloc(req, memUsage)
	if err != nil {
		vk.DestroyBuffer(r.device, vkBuffer, nil)
		return buffer{}, err
	}
	if err := check("vkBindBufferMemory", vk.BindBufferMemory(r.device, vkBuffer, memory.Get(), 0)); err != nil {
		vk.DestroyBuffer(r.device, vkBuffer, nil)
		memory.Release()
		return buffer{}, err
	}
	return buffer{buffer: vkBuffer, memory: memory}, nil
}

// UpdateBuffer implements gfx.Renderer.
func (r *Renderer) UpdateBuffer(h gfx.Buffer, offset uint64, data []byte) error {
	b := r.objects.buffers.Get(gfx.Handle(h))
	if offset+uint64(len(data)) > b.desc.Size {
		gfx.Violationf("update of %d bytes at %d exceeds buffer of %d bytes", len(data), offset, b.desc.Size)
	}
	if len(data) == 0 {
		return nil
	}
	if b.memory.HostVisible() {
		return b.memory.Write(offset, data)
	}

	staging, err := r.newBuffer(uint64(len(data)), gfx.BufferUsageTransferSrc, gfx.MemoryCPUToGPU)
	if err != nil {
		return err
	}
	defer func() {
		vk.DestroyBuffer(r.device, staging.buffer, nil)
		staging.memory.Release()
	}()
	if err := staging.memory.Write(0, data); err != nil {
		return err
	}

	dst := b.buffer
	return r.immediate(func(cmd vk.CommandBuffer) {
		vk.CmdCopyBuffer(cmd, staging.buffer, dst, 1, []vk.BufferCopy{{
			SrcOffset: 0,
			DstOffset: vk.DeviceSize(offset),
			Size:      vk.DeviceSize(len(data)),
		}})
	})
}

// DestroyBuffer implements gfx.Renderer.
func (r *Renderer) DestroyBuffer(h gfx.Buffer) {
	b := r.objects.buffers.Remove(gfx.Handle(h))
	vk.DestroyBuffer(r.device, b.buffer, nil)
	b.memory.Release()
}

// CreateStagingBuffer implements gfx.Renderer.
func (r *Renderer) CreateStagingBuffer(data []byte) (gfx.StagingBuffer, error) {
	h, err := r.CreateBuffer(gfx.BufferDesc{
		Size:   uint64(len(data)),
		Usage:  gfx.BufferUsageTransferSrc,
		Memory: gfx.MemoryCPUToGPU,
		Data:   data,
	})
	if err != nil {
		return gfx.StagingBuffer{}, err
	}
	return gfx.StagingBuffer{Buffer: h, Size: uint64(len(data))}, nil
}

// DestroyStagingBuffer implements gfx.Renderer.
func (r *Renderer) DestroyStagingBuffer(s gfx.StagingBuffer) {
	r.DestroyBuffer(s.Buffer)
}

func textureDefaults(desc gfx.TextureDesc) gfx.TextureDesc {
	if desc.MipLevels == 0 {
		desc.MipLevels = 1
	}
	if desc.Layers == 0 {
		desc.Layers = 1
		if desc.Type == gfx.TextureCube {
			desc.Layers = 6
		}
	}
	if desc.Samples == 0 {
		desc.Samples = 1
	}
	if desc.Extent.Depth == 0 {
		desc.Extent.Depth = 1
	}
	return desc
}

// CreateTexture implements gfx.Renderer.
func (r *Renderer) CreateTexture(desc gfx.TextureDesc) (gfx.Texture, error) {
	desc = textureDefaults(desc)
	if desc.Extent.Width == 0 || desc.Extent.Height == 0 {
		gfx.Violationf("texture of extent %dx%d", desc.Extent.Width, desc.Extent.Height)
	}
	if desc.Type == gfx.TextureCube && desc.Layers%6 != 0 {
		gfx.Violationf("cube texture with %d layers", desc.Layers)
	}

	imageType := vk.ImageType2d
	var flags vk.ImageCreateFlagBits
	switch desc.Type {
	case gfx.Texture3D:
		imageType = vk.ImageType3d
	case gfx.TextureCube:
		flags = vk.ImageCreateCubeCompatibleBit
	}

	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		Flags:     vk.ImageCreateFlags(flags),
		ImageType: imageType,
		Format:    vkFormat(desc.Format),
		Extent: vk.Extent3D{
			Width:  desc.Extent.Width,
			Height: desc.Extent.Height,
			Depth:  desc.Extent.Depth,
		},
		MipLevels:     desc.MipLevels,
		ArrayLayers:   desc.Layers,
		Samples:       vkSamples(desc.Samples),
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vkImageUsage(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var image vk.Image
	if err := check("vkCreateImage", vk.CreateImage(r.device, &createInfo, nil, &image)); err != nil {
		return 0, err
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(r.device, image, &req)
	req.Deref()

	memory, err := r.memory.Malloc(req, desc.Memory)
	if err != nil {
		vk.DestroyImage(r.device, image, nil)
		return 0, err
	}
	if err := check("vkBindImageMemory", vk.BindImageMemory(r.device, image, memory.Get(), 0)); err != nil {
		vk.DestroyImage(r.device, image, nil)
		memory.Release()
		return 0, err
	}

	return gfx.Texture(r.objects.textures.Insert(texture{
		image:  image,
		memory: memory,
		desc:   desc,
	})), nil
}

// DestroyTexture implements gfx.Renderer.
func (r *Renderer) DestroyTexture(h gfx.Texture) {
	if t := r.objects.textures.Get(gfx.Handle(h)); t.swapchain {
		gfx.Violationf("texture %s belongs to the swapchain", gfx.Handle(h))
	}
	t := r.objects.textures.Remove(gfx.Handle(h))
	vk.DestroyImage(r.device, t.image, nil)
	t.memory.Release()
}

// CreateTextureView implements gfx.Renderer. Zero mip and layer counts
// select the rest of the texture.
func (r *Renderer) CreateTextureView(desc gfx.TextureViewDesc) (gfx.TextureView, error) {
	t := r.objects.textures.Get(gfx.Handle(desc.Texture))
	if desc.Format == gfx.FormatUndefined {
		desc.Format = t.desc.Format
	}
	if desc.BaseMip >= t.desc.MipLevels || desc.BaseLayer >= t.desc.Layers {
		gfx.Violationf("view at mip %d layer %d outside texture with %d mips and %d layers",
			desc.BaseMip, desc.BaseLayer, t.desc.MipLevels, t.desc.Layers)
	}
	if desc.MipLevels == 0 {
		desc.MipLevels = t.desc.MipLevels - desc.BaseMip
	}
	if desc.Layers == 0 {
		desc.Layers = t.desc.Layers - desc.BaseLayer
	}

	view, err := r.newImageView(t.image, desc)
	if err != nil {
		return 0, err
	}
	return gfx.TextureView(r.objects.views.Insert(textureView{
		view:      view,
		texture:   desc.Texture,
		format:    desc.Format,
		swapchain: t.swapchain,
	})), nil
}

func (r *Renderer) newImageView(image vk.Image, desc gfx.TextureViewDesc) (vk.ImageView, error) {
	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vkImageViewType(desc.Type),
		Format:   vkFormat(desc.Format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vkAspect(desc.Format),
			BaseMipLevel:   desc.BaseMip,
			LevelCount:     desc.MipLevels,
			BaseArrayLayer: desc.BaseLayer,
			LayerCount:     desc.Layers,
		},
	}

	var view vk.ImageView
	if err := check("vkCreateImageView", vk.CreateImageView(r.device, &ivci, nil, &view)); err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}

// DestroyTextureView implements gfx.Renderer.
func (r *Renderer) DestroyTextureView(h gfx.TextureView) {
	if v := r.objects.views.Get(gfx.Handle(h)); v.swapchain {
		gfx.Violationf("texture view %s belongs to the swapchain", gfx.Handle(h))
	}
	v := r.objects.views.Remove(gfx.Handle(h))
	vk.DestroyImageView(r.device, v.view, nil)
}

// CreateSampler implements gfx.Renderer. Anisotropy is clamped to what the
// device supports and dropped when the feature is missing.
func (r *Renderer) CreateSampler(desc gfx.SamplerDesc) (gfx.Sampler, error) {
	anisotropy := desc.MaxAnisotropy
	if !r.limits.samplerAnisotropy {
		anisotropy = 0
	} else if anisotropy > r.limits.maxAnisotropy {
		anisotropy = r.limits.maxAnisotropy
	}

	sci := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vkFilter(desc.MagFilter),
		MinFilter:               vkFilter(desc.MinFilter),
		MipmapMode:              vkMipmapMode(desc.MipFilter),
		AddressModeU:            vkAddressMode(desc.AddressU),
		AddressModeV:            vkAddressMode(desc.AddressV),
		AddressModeW:            vkAddressMode(desc.AddressW),
		AnisotropyEnable:        vkBool(anisotropy > 1),
		MaxAnisotropy:           anisotropy,
		CompareEnable:           vkBool(desc.Compare),
		CompareOp:               vkCompareOp(desc.CompareOp),
		MinLod:                  desc.MinLod,
		MaxLod:                  desc.MaxLod,
		BorderColor:             vk.BorderColorFloatOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}

	var vkSampler vk.Sampler
	if err := check("vkCreateSampler", vk.CreateSampler(r.device, &sci, nil, &vkSampler)); err != nil {
		return 0, err
	}
	return gfx.Sampler(r.objects.samplers.Insert(sampler{
		sampler: vkSampler,
		filter:  desc.MagFilter,
	})), nil
}

// DestroySampler implements gfx.Renderer.
func (r *Renderer) DestroySampler(h gfx.Sampler) {
	s := r.objects.samplers.Remove(gfx.Handle(h))
	vk.DestroySampler(r.device, s.sampler, nil)
}

// CreateShaderModule implements gfx.Renderer. Code must be SPIR-V.
func (r *Renderer) CreateShaderModule(desc gfx.ShaderModuleDesc) (gfx.ShaderModule, error) {
	if len(desc.Code) == 0 || len(desc.Code)%4 != 0 {
		gfx.Violationf("shader %q: SPIR-V of %d bytes is not a whole number of words", desc.Name, len(desc.Code))
	}
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(desc.Code)),
		PCode:    gfx.SliceUint32(desc.Code),
	}

	var module vk.ShaderModule
	if err := check("vkCreateShaderModule", vk.CreateShaderModule(r.device, &smci, nil, &module)); err != nil {
		return 0, fmt.Errorf("shader %q: %w", desc.Name, err)
	}
	return gfx.ShaderModule(r.objects.shaders.Insert(shaderModule{
		module: module,
		stage:  desc.Stage,
		name:   desc.Name,
	})), nil
}

// DestroyShaderModule implements gfx.Renderer.
func (r *Renderer) DestroyShaderModule(h gfx.ShaderModule) {
	s := r.objects.shaders.Remove(gfx.Handle(h))
	vk.DestroyShaderModule(r.device, s.module, nil)
}
