package glr

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/starlight/gfx"
	"github.com/go-gl/gl/v4.3-core/gl"
)

func TestEveryFormatHasUpload(t *testing.T) {
	for f := gfx.FormatR8Unorm; f <= gfx.FormatD24UnormS8Uint; f++ {
		gf, ok := formats[f]
		if !ok {
			t.Errorf("format %d missing", f)
			continue
		}
		if gf.components < 1 || gf.components > 4 {
			t.Errorf("format %d has %d components", f, gf.components)
		}
	}
	qt.Assert(t, func() { lookupFormat(gfx.FormatUndefined) }, qt.PanicMatches, "gfx: format 0 has no OpenGL equivalent")
}

func TestTextureTarget(t *testing.T) {
	c := qt.New(t)
	c.Assert(textureTarget(gfx.Texture2D, 1), qt.Equals, uint32(gl.TEXTURE_2D))
	c.Assert(textureTarget(gfx.Texture2D, 4), qt.Equals, uint32(gl.TEXTURE_2D_MULTISAMPLE))
	c.Assert(textureTarget(gfx.TextureCube, 1), qt.Equals, uint32(gl.TEXTURE_CUBE_MAP))
	c.Assert(textureTarget(gfx.Texture2DArray, 1), qt.Equals, uint32(gl.TEXTURE_2D_ARRAY))
}

func TestBindingPoint(t *testing.T) {
	c := qt.New(t)
	c.Assert(bindingPoint(0, 0, 0), qt.Equals, uint32(0))
	c.Assert(bindingPoint(1, 2, 0), qt.Equals, uint32(bindingsPerSet+2))
	c.Assert(bindingPoint(maxDescriptorSets-1, bindingsPerSet-1, 0) < pushConstantBinding, qt.IsTrue)
}

func TestValidateInputLayout(t *testing.T) {
	c := qt.New(t)
	ok := gfx.PipelineInputLayoutDesc{
		Sets: []gfx.DescriptorSetLayoutDesc{{Bindings: []gfx.DescriptorBinding{
			{Binding: 7, Type: gfx.DescriptorCombinedTextureSampler, Count: 1},
		}}},
	}
	validateInputLayout(ok)

	wide := gfx.PipelineInputLayoutDesc{
		Sets: []gfx.DescriptorSetLayoutDesc{{Bindings: []gfx.DescriptorBinding{
			{Binding: 6, Type: gfx.DescriptorSampledTexture, Count: 3},
		}}},
	}
	c.Assert(func() { validateInputLayout(wide) }, qt.PanicMatches, "gfx: set 0 binding 6 .*")

	many := gfx.PipelineInputLayoutDesc{Sets: make([]gfx.DescriptorSetLayoutDesc, maxDescriptorSets+1)}
	c.Assert(func() { validateInputLayout(many) }, qt.PanicMatches, "gfx: 5 descriptor sets exceed 4")
}

func TestFilters(t *testing.T) {
	c := qt.New(t)
	c.Assert(minFilter(gfx.FilterLinear, gfx.FilterLinear), qt.Equals, int32(gl.LINEAR_MIPMAP_LINEAR))
	c.Assert(minFilter(gfx.FilterNearest, gfx.FilterLinear), qt.Equals, int32(gl.NEAREST_MIPMAP_LINEAR))
	c.Assert(blitFilter(gfx.FilterNearest), qt.Equals, uint32(gl.NEAREST))
}

func TestMipExtent(t *testing.T) {
	e := mipExtent(gfx.Extent3D{Width: 16, Height: 4, Depth: 1}, 3)
	qt.Assert(t, e, qt.Equals, gfx.Extent3D{Width: 2, Height: 1, Depth: 1})
}

func TestInfoLogErrorIsFatal(t *testing.T) {
	c := qt.New(t)
	err := infoLogError("glLinkProgram", "lit", "error: varying mismatch\x00\x00")

	var gerr *gfx.Error
	c.Assert(errors.As(err, &gerr), qt.IsTrue)
	c.Assert(gerr.Kind, qt.Equals, gfx.KindFatal)
	c.Assert(gerr.Backend, qt.Equals, gfx.OpenGL)
	c.Assert(gerr.Op, qt.Equals, "glLinkProgram")
	c.Assert(gerr.Desc, qt.Equals, `"lit": error: varying mismatch`)
	c.Assert(gerr.File, qt.Equals, "convert_test.go")
}
