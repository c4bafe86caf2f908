// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package glr

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/devblok/starlight/gfx"
	"github.com/go-gl/gl/v4.3-core/gl"
)

// spirvMagic starts every SPIR-V binary.
const spirvMagic = 0x07230203

// CreateBuffer implements gfx.Renderer.
func (r *Renderer) CreateBuffer(desc gfx.BufferDesc) (gfx.Buffer, error) {
	if err := r.requireInit(); err != nil {
		return 0, err
	}
	if desc.Size == 0 {
		gfx.Violationf("buffer of size 0")
	}
	if uint64(len(desc.Data)) > desc.Size {
		gfx.Violationf("buffer data of %d bytes exceeds size %d", len(desc.Data), desc.Size)
	}

	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, id)
	gl.BufferData(gl.COPY_WRITE_BUFFER, int(desc.Size), nil, bufferUsageHint(desc.Memory))
	if len(desc.Data) > 0 {
		gl.BufferSubData(gl.COPY_WRITE_BUFFER, 0, len(desc.Data), gl.Ptr(desc.Data))
	}
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
	if err := check("glBufferData"); err != nil {
		gl.DeleteBuffers(1, &id)
		return 0, err
	}

	desc.Data = nil
	return gfx.Buffer(r.objects.buffers.Insert(buffer{id: id, desc: desc})), nil
}

// UpdateBuffer implements gfx.Renderer. The write is ordered after every
// command submitted before it.
func (r *Renderer) UpdateBuffer(h gfx.Buffer, offset uint64, data []byte) error {
	b := r.objects.buffers.Get(gfx.Handle(h))
	if offset+uint64(len(data)) > b.desc.Size {
		gfx.Violationf("update of %d bytes at %d exceeds buffer of %d bytes", len(data), offset, b.desc.Size)
	}
	if len(data) == 0 {
		return nil
	}
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, b.id)
	gl.BufferSubData(gl.COPY_WRITE_BUFFER, int(offset), len(data), gl.Ptr(data))
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
	return check("glBufferSubData")
}

// DestroyBuffer implements gfx.Renderer.
func (r *Renderer) DestroyBuffer(h gfx.Buffer) {
	b := r.objects.buffers.Remove(gfx.Handle(h))
	gl.DeleteBuffers(1, &b.id)
}

// CreateStagingBuffer implements gfx.Renderer.
func (r *Renderer) CreateStagingBuffer(data []byte) (gfx.StagingBuffer, error) {
	if len(data) == 0 {
		gfx.Violationf("staging buffer without data")
	}
	b, err := r.CreateBuffer(gfx.BufferDesc{
		Size:   uint64(len(data)),
		Usage:  gfx.BufferUsageTransferSrc,
		Memory: gfx.MemoryCPUToGPU,
		Data:   data,
	})
	if err != nil {
		return gfx.StagingBuffer{}, err
	}
	return gfx.StagingBuffer{Buffer: b, Size: uint64(len(data))}, nil
}

// DestroyStagingBuffer implements gfx.Renderer.
func (r *Renderer) DestroyStagingBuffer(s gfx.StagingBuffer) {
	r.DestroyBuffer(s.Buffer)
}

func textureDefaults(desc gfx.TextureDesc) gfx.TextureDesc {
	if desc.Extent.Depth == 0 {
		desc.Extent.Depth = 1
	}
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
	return desc
}

// CreateTexture implements gfx.Renderer with immutable texture storage.
func (r *Renderer) CreateTexture(desc gfx.TextureDesc) (gfx.Texture, error) {
	if err := r.requireInit(); err != nil {
		return 0, err
	}
	desc = textureDefaults(desc)
	if desc.Extent.Width == 0 || desc.Extent.Height == 0 {
		gfx.Violationf("texture of extent %dx%d", desc.Extent.Width, desc.Extent.Height)
	}
	if desc.Type == gfx.TextureCube && desc.Layers != 6 {
		gfx.Violationf("cube texture with %d layers", desc.Layers)
	}
	f := lookupFormat(desc.Format)
	target := textureTarget(desc.Type, desc.Samples)
	w, h := int32(desc.Extent.Width), int32(desc.Extent.Height)

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(target, id)
	switch target {
	case gl.TEXTURE_2D_MULTISAMPLE:
		gl.TexStorage2DMultisample(target, int32(desc.Samples), f.internal, w, h, true)
	case gl.TEXTURE_2D_ARRAY:
		gl.TexStorage3D(target, int32(desc.MipLevels), f.internal, w, h, int32(desc.Layers))
	case gl.TEXTURE_3D:
		gl.TexStorage3D(target, int32(desc.MipLevels), f.internal, w, h, int32(desc.Extent.Depth))
	default:
		gl.TexStorage2D(target, int32(desc.MipLevels), f.internal, w, h)
	}
	gl.BindTexture(target, 0)
	if err := check("glTexStorage"); err != nil {
		gl.DeleteTextures(1, &id)
		return 0, err
	}
	return gfx.Texture(r.objects.textures.Insert(texture{id: id, target: target, desc: desc})), nil
}

// DestroyTexture implements gfx.Renderer.
func (r *Renderer) DestroyTexture(h gfx.Texture) {
	if t := r.objects.textures.Get(gfx.Handle(h)); t.swapchain {
		gfx.Violationf("texture %s belongs to the swapchain", gfx.Handle(h))
	}
	t := r.objects.textures.Remove(gfx.Handle(h))
	gl.DeleteTextures(1, &t.id)
}

// CreateTextureView implements gfx.Renderer with glTextureView.
func (r *Renderer) CreateTextureView(desc gfx.TextureViewDesc) (gfx.TextureView, error) {
	t := r.objects.textures.Get(gfx.Handle(desc.Texture))
	if desc.Format == gfx.FormatUndefined {
		desc.Format = t.desc.Format
	}
	if t.swapchain {
		return gfx.TextureView(r.objects.views.Insert(textureView{
			target:    t.target,
			texture:   desc.Texture,
			format:    desc.Format,
			swapchain: true,
		})), nil
	}

	if desc.MipLevels == 0 {
		desc.MipLevels = t.desc.MipLevels - desc.BaseMip
	}
	if desc.Layers == 0 {
		desc.Layers = t.desc.Layers - desc.BaseLayer
	}
	if desc.BaseMip+desc.MipLevels > t.desc.MipLevels || desc.BaseLayer+desc.Layers > t.desc.Layers {
		gfx.Violationf("view at mip %d layer %d outside texture with %d mips and %d layers",
			desc.BaseMip, desc.BaseLayer, t.desc.MipLevels, t.desc.Layers)
	}
	target := textureTarget(desc.Type, t.desc.Samples)
	if desc.Type == gfx.Texture2D && t.desc.Type == gfx.Texture3D {
		target = gl.TEXTURE_3D
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.TextureView(id, target, t.id, lookupFormat(desc.Format).internal,
		desc.BaseMip, desc.MipLevels, desc.BaseLayer, desc.Layers)
	if err := check("glTextureView"); err != nil {
		gl.DeleteTextures(1, &id)
		return 0, err
	}
	return gfx.TextureView(r.objects.views.Insert(textureView{
		id:      id,
		target:  target,
		texture: desc.Texture,
		format:  desc.Format,
	})), nil
}

// DestroyTextureView implements gfx.Renderer.
func (r *Renderer) DestroyTextureView(h gfx.TextureView) {
	if v := r.objects.views.Get(gfx.Handle(h)); v.swapchain && r.isSwapchainView(h) {
		gfx.Violationf("texture view %s belongs to the swapchain", gfx.Handle(h))
	}
	v := r.objects.views.Remove(gfx.Handle(h))
	if v.id != 0 {
		gl.DeleteTextures(1, &v.id)
	}
}

// CreateSampler implements gfx.Renderer. Anisotropy needs
// EXT_texture_filter_anisotropic and is dropped without it.
func (r *Renderer) CreateSampler(desc gfx.SamplerDesc) (gfx.Sampler, error) {
	if err := r.requireInit(); err != nil {
		return 0, err
	}
	var id uint32
	gl.GenSamplers(1, &id)
	gl.SamplerParameteri(id, gl.TEXTURE_MIN_FILTER, minFilter(desc.MinFilter, desc.MipFilter))
	gl.SamplerParameteri(id, gl.TEXTURE_MAG_FILTER, magFilter(desc.MagFilter))
	gl.SamplerParameteri(id, gl.TEXTURE_WRAP_S, addressMode(desc.AddressU))
	gl.SamplerParameteri(id, gl.TEXTURE_WRAP_T, addressMode(desc.AddressV))
	gl.SamplerParameteri(id, gl.TEXTURE_WRAP_R, addressMode(desc.AddressW))
	gl.SamplerParameterf(id, gl.TEXTURE_MIN_LOD, desc.MinLod)
	gl.SamplerParameterf(id, gl.TEXTURE_MAX_LOD, desc.MaxLod)
	if desc.Compare {
		gl.SamplerParameteri(id, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
		gl.SamplerParameteri(id, gl.TEXTURE_COMPARE_FUNC, int32(compareFunc(desc.CompareOp)))
	}
	if desc.MaxAnisotropy > 1 && r.maxAniso > 0 {
		aniso := desc.MaxAnisotropy
		if aniso > r.maxAniso {
			aniso = r.maxAniso
		}
		gl.SamplerParameterf(id, textureMaxAnisotropy, aniso)
	}
	if err := check("glSamplerParameter"); err != nil {
		gl.DeleteSamplers(1, &id)
		return 0, err
	}
	return gfx.Sampler(r.objects.samplers.Insert(sampler{id: id, filter: desc.MagFilter})), nil
}

// DestroySampler implements gfx.Renderer.
func (r *Renderer) DestroySampler(h gfx.Sampler) {
	s := r.objects.samplers.Remove(gfx.Handle(h))
	gl.DeleteSamplers(1, &s.id)
}

// CreateShaderModule implements gfx.Renderer. Code is GLSL source; SPIR-V
// binaries are reported as unavailable.
func (r *Renderer) CreateShaderModule(desc gfx.ShaderModuleDesc) (gfx.ShaderModule, error) {
	if err := r.requireInit(); err != nil {
		return 0, err
	}
	if len(desc.Code) >= 4 && binary.LittleEndian.Uint32(desc.Code) == spirvMagic {
		return 0, gfx.Unavailable(gfx.OpenGL, fmt.Sprintf("shader %q: SPIR-V needs OpenGL 4.6", desc.Name))
	}

	id := gl.CreateShader(shaderType(desc.Stage))
	src, free := gl.Strs(string(desc.Code) + "\x00")
	gl.ShaderSource(id, 1, src, nil)
	free()
	gl.CompileShader(id)

	var status int32
	gl.GetShaderiv(id, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gl.GetShaderiv(id, gl.INFO_LOG_LENGTH, &n)
		info := strings.Repeat("\x00", int(n+1))
		gl.GetShaderInfoLog(id, n, nil, gl.Str(info))
		gl.DeleteShader(id)
		return 0, infoLogError("glCompileShader", desc.Name, info)
	}
	return gfx.ShaderModule(r.objects.shaders.Insert(shaderModule{id: id, stage: desc.Stage, name: desc.Name})), nil
}

// DestroyShaderModule implements gfx.Renderer.
func (r *Renderer) DestroyShaderModule(h gfx.ShaderModule) {
	s := r.objects.shaders.Remove(gfx.Handle(h))
	gl.DeleteShader(s.id)
}
