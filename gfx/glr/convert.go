// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package glr

import (
	"github.com/devblok/starlight/gfx"
	"github.com/go-gl/gl/v4.3-core/gl"
)

// EXT_texture_filter_anisotropic enums, absent from the core profile
// bindings.
const (
	textureMaxAnisotropy    = 0x84FE
	maxTextureMaxAnisotropy = 0x84FF
)

// glFormat is the upload and attribute description of a gfx.Format.
type glFormat struct {
	internal   uint32
	format     uint32
	xtype      uint32
	components int32
	normalized bool
	integer    bool
}

var formats = map[gfx.Format]glFormat{
	gfx.FormatR8Unorm:        {gl.R8, gl.RED, gl.UNSIGNED_BYTE, 1, true, false},
	gfx.FormatRG8Unorm:       {gl.RG8, gl.RG, gl.UNSIGNED_BYTE, 2, true, false},
	gfx.FormatRGBA8Unorm:     {gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE, 4, true, false},
	gfx.FormatRGBA8Srgb:      {gl.SRGB8_ALPHA8, gl.RGBA, gl.UNSIGNED_BYTE, 4, true, false},
	gfx.FormatBGRA8Unorm:     {gl.RGBA8, gl.BGRA, gl.UNSIGNED_BYTE, 4, true, false},
	gfx.FormatBGRA8Srgb:      {gl.SRGB8_ALPHA8, gl.BGRA, gl.UNSIGNED_BYTE, 4, true, false},
	gfx.FormatR16Float:       {gl.R16F, gl.RED, gl.HALF_FLOAT, 1, false, false},
	gfx.FormatRGBA16Float:    {gl.RGBA16F, gl.RGBA, gl.HALF_FLOAT, 4, false, false},
	gfx.FormatR32Float:       {gl.R32F, gl.RED, gl.FLOAT, 1, false, false},
	gfx.FormatRG32Float:      {gl.RG32F, gl.RG, gl.FLOAT, 2, false, false},
	gfx.FormatRGB32Float:     {gl.RGB32F, gl.RGB, gl.FLOAT, 3, false, false},
	gfx.FormatRGBA32Float:    {gl.RGBA32F, gl.RGBA, gl.FLOAT, 4, false, false},
	gfx.FormatR32Uint:        {gl.R32UI, gl.RED_INTEGER, gl.UNSIGNED_INT, 1, false, true},
	gfx.FormatD16Unorm:       {gl.DEPTH_COMPONENT16, gl.DEPTH_COMPONENT, gl.UNSIGNED_SHORT, 1, true, false},
	gfx.FormatD32Float:       {gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT, 1, false, false},
	gfx.FormatD24UnormS8Uint: {gl.DEPTH24_STENCIL8, gl.DEPTH_STENCIL, gl.UNSIGNED_INT_24_8, 1, false, false},
}

func lookupFormat(f gfx.Format) glFormat {
	gf, ok := formats[f]
	if !ok {
		gfx.Violationf("format %d has no OpenGL equivalent", f)
	}
	return gf
}

func textureTarget(t gfx.TextureType, samples uint32) uint32 {
	switch t {
	case gfx.Texture2DArray:
		return gl.TEXTURE_2D_ARRAY
	case gfx.TextureCube:
		return gl.TEXTURE_CUBE_MAP
	case gfx.Texture3D:
		return gl.TEXTURE_3D
	default:
		if samples > 1 {
			return gl.TEXTURE_2D_MULTISAMPLE
		}
		return gl.TEXTURE_2D
	}
}

func bufferUsageHint(m gfx.MemoryUsage) uint32 {
	switch m {
	case gfx.MemoryCPUToGPU:
		return gl.DYNAMIC_DRAW
	case gfx.MemoryGPUToCPU:
		return gl.STREAM_READ
	default:
		return gl.STATIC_DRAW
	}
}

func minFilter(min, mip gfx.Filter) int32 {
	switch {
	case min == gfx.FilterNearest && mip == gfx.FilterNearest:
		return gl.NEAREST_MIPMAP_NEAREST
	case min == gfx.FilterNearest:
		return gl.NEAREST_MIPMAP_LINEAR
	case mip == gfx.FilterNearest:
		return gl.LINEAR_MIPMAP_NEAREST
	default:
		return gl.LINEAR_MIPMAP_LINEAR
	}
}

func magFilter(f gfx.Filter) int32 {
	if f == gfx.FilterNearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

func blitFilter(f gfx.Filter) uint32 {
	return uint32(magFilter(f))
}

func addressMode(a gfx.AddressMode) int32 {
	switch a {
	case gfx.AddressMirroredRepeat:
		return gl.MIRRORED_REPEAT
	case gfx.AddressClampToEdge:
		return gl.CLAMP_TO_EDGE
	case gfx.AddressClampToBorder:
		return gl.CLAMP_TO_BORDER
	default:
		return gl.REPEAT
	}
}

func compareFunc(c gfx.CompareOp) uint32 {
	switch c {
	case gfx.CompareLess:
		return gl.LESS
	case gfx.CompareEqual:
		return gl.EQUAL
	case gfx.CompareLessOrEqual:
		return gl.LEQUAL
	case gfx.CompareGreater:
		return gl.GREATER
	case gfx.CompareNotEqual:
		return gl.NOTEQUAL
	case gfx.CompareGreaterOrEqual:
		return gl.GEQUAL
	case gfx.CompareAlways:
		return gl.ALWAYS
	default:
		return gl.NEVER
	}
}

func shaderType(s gfx.ShaderStage) uint32 {
	switch s {
	case gfx.StageVertex:
		return gl.VERTEX_SHADER
	case gfx.StageFragment:
		return gl.FRAGMENT_SHADER
	case gfx.StageCompute:
		return gl.COMPUTE_SHADER
	case gfx.StageGeometry:
		return gl.GEOMETRY_SHADER
	case gfx.StageTessControl:
		return gl.TESS_CONTROL_SHADER
	case gfx.StageTessEvaluation:
		return gl.TESS_EVALUATION_SHADER
	default:
		gfx.Violationf("shader module needs exactly one stage, got %b", uint32(s))
		return 0
	}
}

func primitiveMode(t gfx.Topology) uint32 {
	switch t {
	case gfx.TopologyTriangleStrip:
		return gl.TRIANGLE_STRIP
	case gfx.TopologyLineList:
		return gl.LINES
	case gfx.TopologyLineStrip:
		return gl.LINE_STRIP
	case gfx.TopologyPointList:
		return gl.POINTS
	default:
		return gl.TRIANGLES
	}
}

func indexType(t gfx.IndexType) (uint32, uint64) {
	if t == gfx.IndexUint32 {
		return gl.UNSIGNED_INT, 4
	}
	return gl.UNSIGNED_SHORT, 2
}

func blendFactor(f gfx.BlendFactor) uint32 {
	switch f {
	case gfx.BlendZero:
		return gl.ZERO
	case gfx.BlendSrcAlpha:
		return gl.SRC_ALPHA
	case gfx.BlendOneMinusSrcAlpha:
		return gl.ONE_MINUS_SRC_ALPHA
	case gfx.BlendDstAlpha:
		return gl.DST_ALPHA
	case gfx.BlendOneMinusDstAlpha:
		return gl.ONE_MINUS_DST_ALPHA
	default:
		return gl.ONE
	}
}

func blendEquation(o gfx.BlendOp) uint32 {
	switch o {
	case gfx.BlendOpSubtract:
		return gl.FUNC_SUBTRACT
	case gfx.BlendOpReverseSubtract:
		return gl.FUNC_REVERSE_SUBTRACT
	case gfx.BlendOpMin:
		return gl.MIN
	case gfx.BlendOpMax:
		return gl.MAX
	default:
		return gl.FUNC_ADD
	}
}

// bindingPoint flattens a descriptor binding into the GL binding space.
func bindingPoint(set, binding, element uint32) uint32 {
	return set*bindingsPerSet + binding + element
}
