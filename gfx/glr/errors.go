// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package glr

import (
	"fmt"
	"strings"

	"github.com/devblok/starlight/gfx"
	"github.com/go-gl/gl/v4.3-core/gl"
)

// check turns a pending GL error into a fatal error attributed to the
// caller.
func check(op string) error {
	code := gl.GetError()
	if code == gl.NO_ERROR {
		return nil
	}
	// Drain the remaining flags so the next check starts clean.
	for gl.GetError() != gl.NO_ERROR {
	}
	return gfx.NewFatalAt(1, gfx.OpenGL, op, int64(code), errorString(code))
}

// infoLogError reports a failed compile or link of the named object with the
// driver's NUL padded info log.
func infoLogError(op, name, info string) error {
	return gfx.NewFatalAt(1, gfx.OpenGL, op, 0, fmt.Sprintf("%q: %s", name, strings.TrimRight(info, "\x00")))
}

func errorString(code uint32) string {
	switch code {
	case gl.INVALID_ENUM:
		return "invalid enum"
	case gl.INVALID_VALUE:
		return "invalid value"
	case gl.INVALID_OPERATION:
		return "invalid operation"
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return "invalid framebuffer operation"
	case gl.OUT_OF_MEMORY:
		return "out of memory"
	case gl.STACK_UNDERFLOW:
		return "stack underflow"
	case gl.STACK_OVERFLOW:
		return "stack overflow"
	default:
		return fmt.Sprintf("unknown error 0x%x", code)
	}
}

// cstr returns a NUL terminated copy of s for GL entry points.
func cstr(s string) *uint8 {
	return gl.Str(s + "\x00")
}
