package gfx_test

import (
	"bytes"
	goimage "image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/starlight/gfx"
)

func TestPixelsRGBA(t *testing.T) {
	img := goimage.NewNRGBA(goimage.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.NRGBA{R: 255, G: 128, B: 1, A: 255})

	pix, err := gfx.PixelsRGBA(img, 12)
	if err != nil {
		t.Fatal(err)
	}
	if len(pix) != 24 {
		t.Fatalf("len(pixels) = %d, want 24", len(pix))
	}
	if got := pix[12+4 : 12+8]; !bytes.Equal(got, []byte{255, 128, 1, 255}) {
		t.Errorf("pixel (1,1) = %v", got)
	}

	if _, err := gfx.PixelsRGBA(img, 4); err == nil {
		t.Error("PixelsRGBA accepted a row pitch smaller than the row")
	}
}

func TestSliceUint32(t *testing.T) {
	words := gfx.SliceUint32([]byte{0x03, 0x02, 0x23, 0x07, 0x01})
	if len(words) != 2 || words[0] != 0x07230203 || words[1] != 1 {
		t.Errorf("SliceUint32() = %#x", words)
	}
}

func TestPushMat4(t *testing.T) {
	b := gfx.PushMat4(mgl32.Ident4())
	if len(b) != 64 {
		t.Fatalf("len = %d, want 64", len(b))
	}
	// 1.0f little endian
	if !bytes.Equal(b[0:4], []byte{0, 0, 0x80, 0x3f}) || !bytes.Equal(b[4:8], []byte{0, 0, 0, 0}) {
		t.Errorf("unexpected encoding %v", b[:8])
	}
}

func TestCacheKeyOrder(t *testing.T) {
	ub := gfx.DescriptorBinding{Binding: 0, Type: gfx.DescriptorUniformBuffer, Count: 1, Stages: gfx.StageVertex}
	tex := gfx.DescriptorBinding{Binding: 1, Type: gfx.DescriptorCombinedTextureSampler, Count: 1, Stages: gfx.StageFragment}

	a := gfx.DescriptorSetLayoutDesc{Bindings: []gfx.DescriptorBinding{ub, tex}}
	b := gfx.DescriptorSetLayoutDesc{Bindings: []gfx.DescriptorBinding{ub, tex}}
	swapped := gfx.DescriptorSetLayoutDesc{Bindings: []gfx.DescriptorBinding{tex, ub}}
	flagged := gfx.DescriptorSetLayoutDesc{Flags: 1, Bindings: []gfx.DescriptorBinding{ub, tex}}

	if a.CacheKey() != b.CacheKey() {
		t.Error("equal layouts produced different keys")
	}
	if a.CacheKey() == swapped.CacheKey() {
		t.Error("reordered bindings produced the same key")
	}
	if a.CacheKey() == flagged.CacheKey() {
		t.Error("different flags produced the same key")
	}

	pl := gfx.PipelineInputLayoutDesc{
		Sets:          []gfx.DescriptorSetLayoutDesc{a},
		PushConstants: []gfx.PushConstantRange{{Stages: gfx.StageVertex, Size: 64}, {Stages: gfx.StageFragment, Offset: 64, Size: 16}},
	}
	if pl.PushConstantSize() != 80 {
		t.Errorf("PushConstantSize() = %d, want 80", pl.PushConstantSize())
	}
	other := pl
	other.Sets = []gfx.DescriptorSetLayoutDesc{swapped}
	if pl.CacheKey() == other.CacheKey() {
		t.Error("pipeline layouts with different sets share a key")
	}
}

func BenchmarkPixelsRGBA(b *testing.B) {
	img := goimage.NewNRGBA(goimage.Rect(0, 0, 512, 512))
	for i := 0; i < b.N; i++ {
		if _, err := gfx.PixelsRGBA(img, 0); err != nil {
			b.Fatal(err)
		}
	}
}

func TestShaderStageString(t *testing.T) {
	tests := []struct {
		stage gfx.ShaderStage
		want  string
	}{
		{0, "none"},
		{gfx.StageVertex, "vertex"},
		{gfx.StageVertex | gfx.StageFragment, "vertex|fragment"},
		{gfx.StageCompute | 1<<10, "compute|0x400"},
	}
	for _, test := range tests {
		if got := test.stage.String(); got != test.want {
			t.Errorf("ShaderStage(%d).String() = %q, want %q", uint32(test.stage), got, test.want)
		}
	}
}
