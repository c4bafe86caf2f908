// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/starlight/gfx"
	vk "github.com/devblok/vulkan"
)

var formats = map[gfx.Format]vk.Format{
	gfx.FormatUndefined:      vk.FormatUndefined,
	gfx.FormatR8Unorm:        vk.FormatR8Unorm,
	gfx.FormatRG8Unorm:       vk.FormatR8g8Unorm,
	gfx.FormatRGBA8Unorm:     vk.FormatR8g8b8a8Unorm,
	gfx.FormatRGBA8Srgb:      vk.FormatR8g8b8a8Srgb,
	gfx.FormatBGRA8Unorm:     vk.FormatB8g8r8a8Unorm,
	gfx.FormatBGRA8Srgb:      vk.FormatB8g8r8a8Srgb,
	gfx.FormatR16Float:       vk.FormatR16Sfloat,
	gfx.FormatRGBA16Float:    vk.FormatR16g16b16a16Sfloat,
	gfx.FormatR32Float:       vk.FormatR32Sfloat,
	gfx.FormatRG32Float:      vk.FormatR32g32Sfloat,
	gfx.FormatRGB32Float:     vk.FormatR32g32b32Sfloat,
	gfx.FormatRGBA32Float:    vk.FormatR32g32b32a32Sfloat,
	gfx.FormatR32Uint:        vk.FormatR32Uint,
	gfx.FormatD16Unorm:       vk.FormatD16Unorm,
	gfx.FormatD32Float:       vk.FormatD32Sfloat,
	gfx.FormatD24UnormS8Uint: vk.FormatD24UnormS8Uint,
}

func vkFormat(f gfx.Format) vk.Format {
	return formats[f]
}

func gfxFormat(f vk.Format) gfx.Format {
	for k, v := range formats {
		if v == f {
			return k
		}
	}
	return gfx.FormatUndefined
}

func vkBufferUsage(u gfx.BufferUsage) vk.BufferUsageFlags {
	var out vk.BufferUsageFlagBits
	bits := []struct {
		from gfx.BufferUsage
		to   vk.BufferUsageFlagBits
	}{
		{gfx.BufferUsageVertex, vk.BufferUsageVertexBufferBit},
		{gfx.BufferUsageIndex, vk.BufferUsageIndexBufferBit},
		{gfx.BufferUsageUniform, vk.BufferUsageUniformBufferBit},
		{gfx.BufferUsageStorage, vk.BufferUsageStorageBufferBit},
		{gfx.BufferUsageTransferSrc, vk.BufferUsageTransferSrcBit},
		{gfx.BufferUsageTransferDst, vk.BufferUsageTransferDstBit},
		{gfx.BufferUsageIndirect, vk.BufferUsageIndirectBufferBit},
	}
	for _, b := range bits {
		if u&b.from != 0 {
			out |= b.to
		}
	}
	return vk.BufferUsageFlags(out)
}

func vkImageUsage(u gfx.TextureUsage) vk.ImageUsageFlags {
	var out vk.ImageUsageFlagBits
	bits := []struct {
		from gfx.TextureUsage
		to   vk.ImageUsageFlagBits
	}{
		{gfx.TextureUsageSampled, vk.ImageUsageSampledBit},
		{gfx.TextureUsageStorage, vk.ImageUsageStorageBit},
		{gfx.TextureUsageColorAttachment, vk.ImageUsageColorAttachmentBit},
		{gfx.TextureUsageDepthStencilAttachment, vk.ImageUsageDepthStencilAttachmentBit},
		{gfx.TextureUsageTransferSrc, vk.ImageUsageTransferSrcBit},
		{gfx.TextureUsageTransferDst, vk.ImageUsageTransferDstBit},
	}
	for _, b := range bits {
		if u&b.from != 0 {
			out |= b.to
		}
	}
	return vk.ImageUsageFlags(out)
}

func vkMemoryProperties(m gfx.MemoryUsage) vk.MemoryPropertyFlagBits {
	switch m {
	case gfx.MemoryCPUToGPU:
		return vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	case gfx.MemoryGPUToCPU:
		return vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit | vk.MemoryPropertyHostCachedBit
	default:
		return vk.MemoryPropertyDeviceLocalBit
	}
}

func vkImageLayout(l gfx.ImageLayout) vk.ImageLayout {
	switch l {
	case gfx.LayoutGeneral:
		return vk.ImageLayoutGeneral
	case gfx.LayoutColorAttachment:
		return vk.ImageLayoutColorAttachmentOptimal
	case gfx.LayoutDepthStencilAttachment:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case gfx.LayoutDepthStencilReadOnly:
		return vk.ImageLayoutDepthStencilReadOnlyOptimal
	case gfx.LayoutShaderReadOnly:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case gfx.LayoutTransferSrc:
		return vk.ImageLayoutTransferSrcOptimal
	case gfx.LayoutTransferDst:
		return vk.ImageLayoutTransferDstOptimal
	case gfx.LayoutPresent:
		return vk.ImageLayoutPresentSrc
	default:
		return vk.ImageLayoutUndefined
	}
}

// layoutAccess returns the access mask and pipeline stage that touch an
// image in layout l.
func layoutAccess(l gfx.ImageLayout) (vk.AccessFlagBits, vk.PipelineStageFlagBits) {
	switch l {
	case gfx.LayoutUndefined:
		return 0, vk.PipelineStageTopOfPipeBit
	case gfx.LayoutGeneral:
		return vk.AccessShaderReadBit | vk.AccessShaderWriteBit, vk.PipelineStageAllCommandsBit
	case gfx.LayoutColorAttachment:
		return vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit, vk.PipelineStageColorAttachmentOutputBit
	case gfx.LayoutDepthStencilAttachment:
		return vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit, vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit
	case gfx.LayoutDepthStencilReadOnly:
		return vk.AccessDepthStencilAttachmentReadBit | vk.AccessShaderReadBit, vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageFragmentShaderBit
	case gfx.LayoutShaderReadOnly:
		return vk.AccessShaderReadBit, vk.PipelineStageFragmentShaderBit | vk.PipelineStageVertexShaderBit | vk.PipelineStageComputeShaderBit
	case gfx.LayoutTransferSrc:
		return vk.AccessTransferReadBit, vk.PipelineStageTransferBit
	case gfx.LayoutTransferDst:
		return vk.AccessTransferWriteBit, vk.PipelineStageTransferBit
	case gfx.LayoutPresent:
		return vk.AccessMemoryReadBit, vk.PipelineStageBottomOfPipeBit
	default:
		return vk.AccessMemoryReadBit | vk.AccessMemoryWriteBit, vk.PipelineStageAllCommandsBit
	}
}

func vkAspect(f gfx.Format) vk.ImageAspectFlags {
	switch {
	case f.HasStencil():
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
	case f.IsDepth():
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	default:
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
}

func vkFilter(f gfx.Filter) vk.Filter {
	if f == gfx.FilterNearest {
		return vk.FilterNearest
	}
	return vk.FilterLinear
}

func vkMipmapMode(f gfx.Filter) vk.SamplerMipmapMode {
	if f == gfx.FilterNearest {
		return vk.SamplerMipmapModeNearest
	}
	return vk.SamplerMipmapModeLinear
}

func vkAddressMode(a gfx.AddressMode) vk.SamplerAddressMode {
	switch a {
	case gfx.AddressMirroredRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	case gfx.AddressClampToEdge:
		return vk.SamplerAddressModeClampToEdge
	case gfx.AddressClampToBorder:
		return vk.SamplerAddressModeClampToBorder
	default:
		return vk.SamplerAddressModeRepeat
	}
}

func vkCompareOp(c gfx.CompareOp) vk.CompareOp {
	return [...]vk.CompareOp{
		gfx.CompareNever:          vk.CompareOpNever,
		gfx.CompareLess:           vk.CompareOpLess,
		gfx.CompareEqual:          vk.CompareOpEqual,
		gfx.CompareLessOrEqual:    vk.CompareOpLessOrEqual,
		gfx.CompareGreater:        vk.CompareOpGreater,
		gfx.CompareNotEqual:       vk.CompareOpNotEqual,
		gfx.CompareGreaterOrEqual: vk.CompareOpGreaterOrEqual,
		gfx.CompareAlways:         vk.CompareOpAlways,
	}[c]
}

func vkShaderStages(s gfx.ShaderStage) vk.ShaderStageFlags {
	var out vk.ShaderStageFlagBits
	bits := []struct {
		from gfx.ShaderStage
		to   vk.ShaderStageFlagBits
	}{
		{gfx.StageVertex, vk.ShaderStageVertexBit},
		{gfx.StageFragment, vk.ShaderStageFragmentBit},
		{gfx.StageCompute, vk.ShaderStageComputeBit},
		{gfx.StageGeometry, vk.ShaderStageGeometryBit},
		{gfx.StageTessControl, vk.ShaderStageTessellationControlBit},
		{gfx.StageTessEvaluation, vk.ShaderStageTessellationEvaluationBit},
	}
	for _, b := range bits {
		if s&b.from != 0 {
			out |= b.to
		}
	}
	return vk.ShaderStageFlags(out)
}

func vkShaderStage(s gfx.ShaderStage) vk.ShaderStageFlagBits {
	return vk.ShaderStageFlagBits(vkShaderStages(s))
}

func vkDescriptorType(t gfx.DescriptorType) vk.DescriptorType {
	switch t {
	case gfx.DescriptorStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	case gfx.DescriptorSampledTexture:
		return vk.DescriptorTypeSampledImage
	case gfx.DescriptorSampler:
		return vk.DescriptorTypeSampler
	case gfx.DescriptorCombinedTextureSampler:
		return vk.DescriptorTypeCombinedImageSampler
	case gfx.DescriptorStorageTexture:
		return vk.DescriptorTypeStorageImage
	case gfx.DescriptorUniformBufferDynamic:
		return vk.DescriptorTypeUniformBufferDynamic
	default:
		return vk.DescriptorTypeUniformBuffer
	}
}

func vkIndexType(t gfx.IndexType) vk.IndexType {
	if t == gfx.IndexUint32 {
		return vk.IndexTypeUint32
	}
	return vk.IndexTypeUint16
}

func vkLoadOp(o gfx.LoadOp) vk.AttachmentLoadOp {
	switch o {
	case gfx.LoadOpClear:
		return vk.AttachmentLoadOpClear
	case gfx.LoadOpDontCare:
		return vk.AttachmentLoadOpDontCare
	default:
		return vk.AttachmentLoadOpLoad
	}
}

func vkStoreOp(o gfx.StoreOp) vk.AttachmentStoreOp {
	if o == gfx.StoreOpDontCare {
		return vk.AttachmentStoreOpDontCare
	}
	return vk.AttachmentStoreOpStore
}

func vkTopology(t gfx.Topology) vk.PrimitiveTopology {
	switch t {
	case gfx.TopologyTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case gfx.TopologyLineList:
		return vk.PrimitiveTopologyLineList
	case gfx.TopologyLineStrip:
		return vk.PrimitiveTopologyLineStrip
	case gfx.TopologyPointList:
		return vk.PrimitiveTopologyPointList
	default:
		return vk.PrimitiveTopologyTriangleList
	}
}

func vkCullMode(c gfx.CullMode) vk.CullModeFlags {
	switch c {
	case gfx.CullFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case gfx.CullBack:
		return vk.CullModeFlags(vk.CullModeBackBit)
	default:
		return vk.CullModeFlags(vk.CullModeNone)
	}
}

func vkFrontFace(f gfx.FrontFace) vk.FrontFace {
	if f == gfx.FrontFaceClockwise {
		return vk.FrontFaceClockwise
	}
	return vk.FrontFaceCounterClockwise
}

func vkBlendFactor(f gfx.BlendFactor) vk.BlendFactor {
	return [...]vk.BlendFactor{
		gfx.BlendZero:             vk.BlendFactorZero,
		gfx.BlendOne:              vk.BlendFactorOne,
		gfx.BlendSrcAlpha:         vk.BlendFactorSrcAlpha,
		gfx.BlendOneMinusSrcAlpha: vk.BlendFactorOneMinusSrcAlpha,
		gfx.BlendDstAlpha:         vk.BlendFactorDstAlpha,
		gfx.BlendOneMinusDstAlpha: vk.BlendFactorOneMinusDstAlpha,
	}[f]
}

func vkBlendOp(o gfx.BlendOp) vk.BlendOp {
	return [...]vk.BlendOp{
		gfx.BlendOpAdd:             vk.BlendOpAdd,
		gfx.BlendOpSubtract:        vk.BlendOpSubtract,
		gfx.BlendOpReverseSubtract: vk.BlendOpReverseSubtract,
		gfx.BlendOpMin:             vk.BlendOpMin,
		gfx.BlendOpMax:             vk.BlendOpMax,
	}[o]
}

func vkInputRate(r gfx.VertexInputRate) vk.VertexInputRate {
	if r == gfx.InputRateInstance {
		return vk.VertexInputRateInstance
	}
	return vk.VertexInputRateVertex
}

func vkSamples(n uint32) vk.SampleCountFlagBits {
	switch n {
	case 2, 4, 8, 16, 32, 64:
		return vk.SampleCountFlagBits(n)
	default:
		return vk.SampleCount1Bit
	}
}

func vkImageViewType(t gfx.TextureType) vk.ImageViewType {
	switch t {
	case gfx.Texture2DArray:
		return vk.ImageViewType2dArray
	case gfx.TextureCube:
		return vk.ImageViewTypeCube
	case gfx.Texture3D:
		return vk.ImageViewType3d
	default:
		return vk.ImageViewType2d
	}
}

func vkClearValues(values []gfx.ClearValue, attachments []gfx.Attachment) []vk.ClearValue {
	out := make([]vk.ClearValue, len(values))
	for i, v := range values {
		if i < len(attachments) && attachments[i].Format.IsDepth() {
			out[i].SetDepthStencil(v.Depth, v.Stencil)
			continue
		}
		out[i].SetColor(v.Color[:])
	}
	return out
}

// queueCaps translates queue family flags. Graphics and compute families
// accept transfer commands whether or not they report the transfer bit.
func queueCaps(flags vk.QueueFlags) gfx.QueueCaps {
	var caps gfx.QueueCaps
	if flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
		caps |= gfx.CapGraphics
	}
	if flags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
		caps |= gfx.CapCompute
	}
	if flags&vk.QueueFlags(vk.QueueTransferBit) != 0 || caps != 0 {
		caps |= gfx.CapTransfer
	}
	return caps
}
