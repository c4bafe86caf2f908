// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"encoding/binary"
	"errors"
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
)

// PixelsRGBA converts img to tightly packed RGBA8 rows of rowPitch bytes,
// ready to be copied into a staging buffer. A rowPitch of zero means
// width*4.
func PixelsRGBA(img image.Image, rowPitch int) ([]byte, error) {
	if img == nil {
		return nil, errors.New("gfx: image is nil")
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if rowPitch == 0 {
		rowPitch = width * 4
	}
	if rowPitch < width*4 {
		return nil, errors.New("gfx: row pitch smaller than image row")
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != rowPitch || rgba.Rect.Min != (image.Point{}) {
		rgba = &image.RGBA{
			Pix:    make([]byte, rowPitch*height),
			Stride: rowPitch,
			Rect:   image.Rect(0, 0, width, height),
		}
		draw.Draw(rgba, rgba.Rect, img, bounds.Min, draw.Src)
	}
	return rgba.Pix, nil
}

// SliceUint32 reinterprets SPIR-V bytes as little endian words.
func SliceUint32(data []byte) []uint32 {
	words := make([]uint32, (len(data)+3)/4)
	for i := range words {
		var w [4]byte
		copy(w[:], data[i*4:])
		words[i] = binary.LittleEndian.Uint32(w[:])
	}
	return words
}

// PushMat4 encodes m column major, as shaders expect it in a push constant
// block.
func PushMat4(m mgl32.Mat4) []byte {
	out := make([]byte, 64)
	for i, v := range m {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// PushVec4 encodes v for a push constant block.
func PushVec4(v mgl32.Vec4) []byte {
	out := make([]byte, 16)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}
