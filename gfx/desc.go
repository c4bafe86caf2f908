// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Extent3D is a size in texels.
type Extent3D struct {
	Width, Height, Depth uint32
}

// Rect is an integer rectangle in framebuffer coordinates.
type Rect struct {
	X, Y          int32
	Width, Height uint32
}

// Viewport maps normalized device coordinates to the framebuffer.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// ClearValue is the clear colour or depth/stencil of one attachment.
type ClearValue struct {
	Color   mgl32.Vec4
	Depth   float32
	Stencil uint32
}

// ClearColor returns a colour clear value.
func ClearColor(r, g, b, a float32) ClearValue {
	return ClearValue{Color: mgl32.Vec4{r, g, b, a}}
}

// ClearDepth returns a depth/stencil clear value.
func ClearDepth(depth float32, stencil uint32) ClearValue {
	return ClearValue{Depth: depth, Stencil: stencil}
}

// BufferDesc describes a buffer to create.
type BufferDesc struct {
	Size   uint64
	Usage  BufferUsage
	Memory MemoryUsage

	// Data, when set, is copied into host visible buffers on creation.
	Data []byte
}

// TextureDesc describes a texture to create.
type TextureDesc struct {
	Type      TextureType
	Format    Format
	Extent    Extent3D
	MipLevels uint32
	Layers    uint32
	Samples   uint32
	Usage     TextureUsage
	Memory    MemoryUsage
}

// TextureViewDesc describes a view into a texture.
type TextureViewDesc struct {
	Texture   Texture
	Type      TextureType
	Format    Format
	BaseMip   uint32
	MipLevels uint32
	BaseLayer uint32
	Layers    uint32
}

// SamplerDesc describes a sampler.
type SamplerDesc struct {
	MinFilter, MagFilter, MipFilter Filter
	AddressU, AddressV, AddressW    AddressMode
	MaxAnisotropy                   float32
	Compare                         bool
	CompareOp                       CompareOp
	MinLod, MaxLod                  float32
}

// DefaultSampler is a linear, repeating sampler.
var DefaultSampler = SamplerDesc{
	MinFilter: FilterLinear,
	MagFilter: FilterLinear,
	MipFilter: FilterLinear,
	MaxLod:    1000,
}

// ShaderModuleDesc carries compiled shader code. Vulkan expects SPIR-V,
// OpenGL expects GLSL source.
type ShaderModuleDesc struct {
	Name  string
	Stage ShaderStage
	Code  []byte
}

// Attachment describes one render pass attachment.
type Attachment struct {
	Format        Format
	Samples       uint32
	Load          LoadOp
	Store         StoreOp
	InitialLayout ImageLayout
	FinalLayout   ImageLayout
}

// Subpass lists the attachments used by a subpass by index.
type Subpass struct {
	Color        []uint32
	Input        []uint32
	DepthStencil *uint32
}

// RenderPassDesc describes a render pass.
type RenderPassDesc struct {
	Attachments []Attachment
	Subpasses   []Subpass
}

// FramebufferDesc binds texture views to a render pass.
type FramebufferDesc struct {
	RenderPass  RenderPass
	Attachments []TextureView
	Width       uint32
	Height      uint32
	Layers      uint32
}

// DescriptorBinding is one entry of a descriptor set layout.
type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
	Stages  ShaderStage
}

// DescriptorSetLayoutDesc is the shape of a descriptor set. Two descriptions
// with the same flags and the same bindings in the same order share one
// driver object.
type DescriptorSetLayoutDesc struct {
	Flags    uint32
	Bindings []DescriptorBinding
}

// CacheKey returns the canonical structural key of d.
func (d DescriptorSetLayoutDesc) CacheKey() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dsl:%x", d.Flags)
	for _, bd := range d.Bindings {
		fmt.Fprintf(&b, "|%d:%d:%d:%x", bd.Binding, bd.Type, bd.Count, uint32(bd.Stages))
	}
	return b.String()
}

// PushConstantRange is a window of the push constant block visible to stages.
type PushConstantRange struct {
	Stages ShaderStage
	Offset uint32
	Size   uint32
}

// PipelineInputLayoutDesc describes the descriptor sets and push constants a
// pipeline consumes.
type PipelineInputLayoutDesc struct {
	Flags         uint32
	Sets          []DescriptorSetLayoutDesc
	PushConstants []PushConstantRange
}

// CacheKey returns the canonical structural key of d.
func (d PipelineInputLayoutDesc) CacheKey() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pl:%x", d.Flags)
	for _, s := range d.Sets {
		b.WriteString("[")
		b.WriteString(s.CacheKey())
		b.WriteString("]")
	}
	for _, r := range d.PushConstants {
		fmt.Fprintf(&b, "|pc:%x:%d:%d", uint32(r.Stages), r.Offset, r.Size)
	}
	return b.String()
}

// PushConstantSize returns the end of the highest push constant range.
func (d PipelineInputLayoutDesc) PushConstantSize() uint32 {
	var size uint32
	for _, r := range d.PushConstants {
		if end := r.Offset + r.Size; end > size {
			size = end
		}
	}
	return size
}

// VertexBinding describes one vertex buffer binding.
type VertexBinding struct {
	Binding uint32
	Stride  uint32
	Rate    VertexInputRate
}

// VertexAttribute describes one vertex shader input.
type VertexAttribute struct {
	Location uint32
	Binding  uint32
	Format   Format
	Offset   uint32
}

// BlendState configures blending of one colour attachment.
type BlendState struct {
	Enable   bool
	SrcColor BlendFactor
	DstColor BlendFactor
	ColorOp  BlendOp
	SrcAlpha BlendFactor
	DstAlpha BlendFactor
	AlphaOp  BlendOp
}

// GraphicsPipelineDesc describes a graphics pipeline.
type GraphicsPipelineDesc struct {
	Name       string
	Shaders    []ShaderModule
	Layout     PipelineInputLayout
	RenderPass RenderPass
	Subpass    uint32
	Bindings   []VertexBinding
	Attributes []VertexAttribute
	Topology   Topology
	Cull       CullMode
	FrontFace  FrontFace
	DepthTest  bool
	DepthWrite bool
	DepthOp    CompareOp
	Blend      []BlendState
	Samples    uint32
	LineWidth  float32
	Wireframe  bool
}

// DescriptorWrite points one binding of a descriptor set at resources.
// Buffer writes use Buffer, Offset and Range; texture writes use View,
// Sampler and Layout.
type DescriptorWrite struct {
	Binding      uint32
	ArrayElement uint32
	Type         DescriptorType

	Buffer Buffer
	Offset uint64
	Range  uint64

	View    TextureView
	Sampler Sampler
	Layout  ImageLayout
}

// DescriptorSetDesc describes a descriptor set and its initial contents.
type DescriptorSetDesc struct {
	Layout DescriptorSetLayoutDesc
	Writes []DescriptorWrite
}

// BufferCopy is one region of a buffer to buffer copy.
type BufferCopy struct {
	SrcOffset, DstOffset, Size uint64
}

// BufferTextureCopy is one region of a buffer to texture copy.
type BufferTextureCopy struct {
	BufferOffset uint64
	RowLength    uint32
	MipLevel     uint32
	BaseLayer    uint32
	Layers       uint32
	Offset       [3]int32
	Extent       Extent3D
}

// SwapchainDesc configures the presentation chain.
type SwapchainDesc struct {
	Width      uint32
	Height     uint32
	ImageCount uint32
	VSync      bool
}

// SubmitInfo describes one queue submission.
type SubmitInfo struct {
	CommandBuffers []CommandBuffer
	Wait           []Semaphore
	Signal         []Semaphore
}
