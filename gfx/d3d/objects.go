// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package d3d holds the Direct3D 11 and 12 object model. Neither backend can
// be instantiated in this build: New reports them unavailable, while the
// object tables and pools are complete so the dispatch contract is shared
// with the other backends.
package d3d

import (
	"github.com/devblok/starlight/gfx"
)

// ResourceState is a D3D12 resource state.
type ResourceState uint32

// D3D12_RESOURCE_STATES values used for layout translation.
const (
	StateCommon            ResourceState = 0
	StateVertexAndConstant ResourceState = 0x1
	StateIndexBuffer       ResourceState = 0x2
	StateRenderTarget      ResourceState = 0x4
	StateUnorderedAccess   ResourceState = 0x8
	StateDepthWrite        ResourceState = 0x10
	StateDepthRead         ResourceState = 0x20
	StateNonPixelShader    ResourceState = 0x40
	StatePixelShader       ResourceState = 0x80
	StateCopyDest          ResourceState = 0x400
	StateCopySource        ResourceState = 0x800
	StatePresent           ResourceState = 0
	StateAllShaderResource ResourceState = StateNonPixelShader | StatePixelShader
	stateUnknown           ResourceState = 0xFFFFFFFF
)

// StateForLayout maps a declared layout to the D3D12 resource state.
func StateForLayout(l gfx.ImageLayout) ResourceState {
	switch l {
	case gfx.LayoutUndefined, gfx.LayoutGeneral:
		return StateCommon
	case gfx.LayoutColorAttachment:
		return StateRenderTarget
	case gfx.LayoutDepthStencilAttachment:
		return StateDepthWrite
	case gfx.LayoutDepthStencilReadOnly:
		return StateDepthRead
	case gfx.LayoutShaderReadOnly:
		return StateAllShaderResource
	case gfx.LayoutTransferSrc:
		return StateCopySource
	case gfx.LayoutTransferDst:
		return StateCopyDest
	case gfx.LayoutPresent:
		return StatePresent
	}
	return stateUnknown
}

// Native pointers are kept as uintptr; no COM binding is linked in.

// Buffer11 is a D3D11 buffer.
type Buffer11 struct {
	Buffer uintptr
	SRV    uintptr
	UAV    uintptr
	Desc   gfx.BufferDesc
}

// Texture11 is a D3D11 texture.
type Texture11 struct {
	Texture uintptr
	Desc    gfx.TextureDesc
}

// TextureView11 is a D3D11 shader resource or render target view.
type TextureView11 struct {
	SRV     uintptr
	RTV     uintptr
	DSV     uintptr
	Texture gfx.Texture
}

// Buffer12 is a D3D12 committed buffer resource with its mapped range.
type Buffer12 struct {
	Resource uintptr
	Mapped   uintptr
	GPUVA    uint64
	State    ResourceState
	Desc     gfx.BufferDesc
}

// Texture12 is a D3D12 texture resource.
type Texture12 struct {
	Resource uintptr
	State    ResourceState
	Desc     gfx.TextureDesc
}

// TextureView12 is a descriptor heap slot for a texture.
type TextureView12 struct {
	CPUHandle uintptr
	GPUHandle uint64
	Texture   gfx.Texture
}

// DescriptorSet11 is the binding table applied to D3D11 shader slots.
type DescriptorSet11 struct {
	Layout gfx.DescriptorSetLayoutDesc
	Writes []gfx.DescriptorWrite
}

// DescriptorSet12 is a range of shader visible descriptors.
type DescriptorSet12 struct {
	Heap   uintptr
	Offset uint32
	Layout gfx.DescriptorSetLayoutDesc
	Writes []gfx.DescriptorWrite
}

// Objects are the side tables of one D3D device.
type Objects struct {
	Backend gfx.Backend

	Buffers11      *gfx.Table[Buffer11]
	Textures11     *gfx.Table[Texture11]
	TextureViews11 *gfx.Table[TextureView11]
	Sets11         *gfx.Table[DescriptorSet11]

	Buffers12      *gfx.Table[Buffer12]
	Textures12     *gfx.Table[Texture12]
	TextureViews12 *gfx.Table[TextureView12]
	Sets12         *gfx.Table[DescriptorSet12]
}

// NewObjects creates empty tables for backend, D3D11 or D3D12.
func NewObjects(backend gfx.Backend) *Objects {
	return &Objects{
		Backend:        backend,
		Buffers11:      gfx.NewTable[Buffer11](backend),
		Textures11:     gfx.NewTable[Texture11](backend),
		TextureViews11: gfx.NewTable[TextureView11](backend),
		Sets11:         gfx.NewTable[DescriptorSet11](backend),
		Buffers12:      gfx.NewTable[Buffer12](backend),
		Textures12:     gfx.NewTable[Texture12](backend),
		TextureViews12: gfx.NewTable[TextureView12](backend),
		Sets12:         gfx.NewTable[DescriptorSet12](backend),
	}
}

// TextureState returns the tracked state of a D3D12 texture.
func (o *Objects) TextureState(t gfx.Texture) ResourceState {
	if o.Backend != gfx.D3D12 {
		return StateCommon
	}
	return o.Textures12.Get(gfx.Handle(t)).State
}
