// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"fmt"
	"strings"
)

// Format is a texel or vertex attribute format.
type Format int

const (
	FormatUndefined Format = iota
	FormatR8Unorm
	FormatRG8Unorm
	FormatRGBA8Unorm
	FormatRGBA8Srgb
	FormatBGRA8Unorm
	FormatBGRA8Srgb
	FormatR16Float
	FormatRGBA16Float
	FormatR32Float
	FormatRG32Float
	FormatRGB32Float
	FormatRGBA32Float
	FormatR32Uint
	FormatD16Unorm
	FormatD32Float
	FormatD24UnormS8Uint
)

// IsDepth reports whether f is a depth or depth/stencil format.
func (f Format) IsDepth() bool {
	return f == FormatD16Unorm || f == FormatD32Float || f == FormatD24UnormS8Uint
}

// HasStencil reports whether f carries a stencil aspect.
func (f Format) HasStencil() bool {
	return f == FormatD24UnormS8Uint
}

// Size returns the size in bytes of one texel or attribute.
func (f Format) Size() int {
	switch f {
	case FormatR8Unorm:
		return 1
	case FormatRG8Unorm, FormatR16Float, FormatD16Unorm:
		return 2
	case FormatRGBA8Unorm, FormatRGBA8Srgb, FormatBGRA8Unorm, FormatBGRA8Srgb,
		FormatR32Float, FormatR32Uint, FormatD32Float, FormatD24UnormS8Uint:
		return 4
	case FormatRGBA16Float, FormatRG32Float:
		return 8
	case FormatRGB32Float:
		return 12
	case FormatRGBA32Float:
		return 16
	default:
		return 0
	}
}

// BufferUsage is a set of buffer usage flags.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageTransferSrc
	BufferUsageTransferDst
	BufferUsageIndirect
)

// TextureUsage is a set of texture usage flags.
type TextureUsage uint32

const (
	TextureUsageSampled TextureUsage = 1 << iota
	TextureUsageStorage
	TextureUsageColorAttachment
	TextureUsageDepthStencilAttachment
	TextureUsageTransferSrc
	TextureUsageTransferDst
)

// MemoryUsage hints where an allocation should live.
type MemoryUsage int

const (
	// MemoryGPUOnly is device local and not host visible.
	MemoryGPUOnly MemoryUsage = iota

	// MemoryCPUToGPU is host visible and written by the CPU.
	MemoryCPUToGPU

	// MemoryGPUToCPU is host visible and read back by the CPU.
	MemoryGPUToCPU
)

// HostVisible reports whether memory of this usage can be mapped.
func (m MemoryUsage) HostVisible() bool {
	return m != MemoryGPUOnly
}

// ImageLayout is the declared access state of a texture.
type ImageLayout int

const (
	LayoutUndefined ImageLayout = iota
	LayoutGeneral
	LayoutColorAttachment
	LayoutDepthStencilAttachment
	LayoutDepthStencilReadOnly
	LayoutShaderReadOnly
	LayoutTransferSrc
	LayoutTransferDst
	LayoutPresent
)

// TextureType is the dimensionality of a texture.
type TextureType int

const (
	Texture2D TextureType = iota
	Texture2DArray
	TextureCube
	Texture3D
)

// Filter selects texel filtering.
type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

// AddressMode selects texture coordinate wrapping.
type AddressMode int

const (
	AddressRepeat AddressMode = iota
	AddressMirroredRepeat
	AddressClampToEdge
	AddressClampToBorder
)

// CompareOp is a depth or sampler comparison.
type CompareOp int

const (
	CompareNever CompareOp = iota
	CompareLess
	CompareEqual
	CompareLessOrEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterOrEqual
	CompareAlways
)

// QueueType is a queue role.
type QueueType int

const (
	QueueGraphics QueueType = iota
	QueuePresent
	QueueCompute
	QueueTransfer
	queueTypeCount
)

func (q QueueType) String() string {
	switch q {
	case QueueGraphics:
		return "graphics"
	case QueuePresent:
		return "present"
	case QueueCompute:
		return "compute"
	case QueueTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// CommandBufferLevel is fixed when a command buffer is allocated.
type CommandBufferLevel int

const (
	LevelPrimary CommandBufferLevel = iota
	LevelSecondary
)

func (l CommandBufferLevel) String() string {
	if l == LevelSecondary {
		return "secondary"
	}
	return "primary"
}

// CommandBufferUsage are hints given when recording begins.
type CommandBufferUsage uint32

const (
	UsageOneTimeSubmit CommandBufferUsage = 1 << iota
	UsageSimultaneous
)

// ShaderStage is a set of programmable stages.
type ShaderStage uint32

const (
	StageVertex ShaderStage = 1 << iota
	StageFragment
	StageCompute
	StageGeometry
	StageTessControl
	StageTessEvaluation

	StageAllGraphics = StageVertex | StageFragment | StageGeometry | StageTessControl | StageTessEvaluation
)

var stageNames = []string{"vertex", "fragment", "compute", "geometry", "tess_control", "tess_evaluation"}

func (s ShaderStage) String() string {
	if s == 0 {
		return "none"
	}
	var names []string
	for i, name := range stageNames {
		if s&(1<<uint(i)) != 0 {
			names = append(names, name)
		}
	}
	if rest := s &^ (1<<uint(len(stageNames)) - 1); rest != 0 {
		names = append(names, fmt.Sprintf("%#x", uint32(rest)))
	}
	return strings.Join(names, "|")
}

// DescriptorType is the kind of resource a binding refers to.
type DescriptorType int

const (
	DescriptorUniformBuffer DescriptorType = iota
	DescriptorStorageBuffer
	DescriptorSampledTexture
	DescriptorSampler
	DescriptorCombinedTextureSampler
	DescriptorStorageTexture
	DescriptorUniformBufferDynamic
)

// IndexType is the width of index buffer elements.
type IndexType int

const (
	IndexUint16 IndexType = iota
	IndexUint32
)

// LoadOp is what happens to an attachment when a render pass begins.
type LoadOp int

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

// StoreOp is what happens to an attachment when a render pass ends.
type StoreOp int

const (
	StoreOpStore StoreOp = iota
	StoreOpDontCare
)

// Topology is the primitive assembly mode.
type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
	TopologyLineList
	TopologyLineStrip
	TopologyPointList
)

// CullMode selects the faces discarded by rasterization.
type CullMode int

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// FrontFace is the winding of front facing triangles.
type FrontFace int

const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

// BlendFactor and BlendOp configure colour blending.
type (
	BlendFactor int
	BlendOp     int
)

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstAlpha
	BlendOneMinusDstAlpha
)

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpMin
	BlendOpMax
)

// VertexInputRate selects per vertex or per instance stepping.
type VertexInputRate int

const (
	InputRateVertex VertexInputRate = iota
	InputRateInstance
)

// MaxPushConstantsSize is the size of the push constant block every backend
// guarantees.
const MaxPushConstantsSize = 128
