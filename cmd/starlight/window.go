// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"unsafe"

	"github.com/devblok/starlight/config"
	"github.com/devblok/starlight/gfx"
	vk "github.com/devblok/vulkan"
	"github.com/veandco/go-sdl2/sdl"
)

// window adapts an SDL window to the surface and context interfaces of
// the backends.
type window struct {
	w       *sdl.Window
	backend gfx.Backend
	gl      sdl.GLContext
}

func newWindow(cfg config.WindowConfiguration, backend gfx.Backend) (*window, error) {
	flags := uint32(sdl.WINDOW_RESIZABLE | sdl.WINDOW_ALLOW_HIGHDPI)
	switch backend {
	case gfx.Vulkan:
		if err := sdl.VulkanLoadLibrary(""); err != nil {
			return nil, gfx.Unavailable(gfx.Vulkan, "SDL cannot load vulkan: "+err.Error())
		}
		flags |= sdl.WINDOW_VULKAN
	case gfx.OpenGL:
		sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 4)
		sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 3)
		sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)
		sdl.GLSetAttribute(sdl.GL_DOUBLEBUFFER, 1)
		flags |= sdl.WINDOW_OPENGL
	}

	w, err := sdl.CreateWindow(cfg.Title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.Width),
		int32(cfg.Height),
		flags)
	if err != nil {
		return nil, err
	}
	win := &window{w: w, backend: backend}

	if backend == gfx.OpenGL {
		ctx, err := w.GLCreateContext()
		if err != nil {
			w.Destroy()
			return nil, gfx.Unavailable(gfx.OpenGL, "SDL cannot create an OpenGL 4.3 context: "+err.Error())
		}
		win.gl = ctx
	}
	return win, nil
}

func (w *window) destroy() {
	if w.gl != nil {
		sdl.GLDeleteContext(w.gl)
	}
	w.w.Destroy()
	if w.backend == gfx.Vulkan {
		sdl.VulkanUnloadLibrary()
	}
}

func (w *window) DrawableSize() (int, int) {
	var width, height int32
	switch w.backend {
	case gfx.Vulkan:
		width, height = w.w.VulkanGetDrawableSize()
	case gfx.OpenGL:
		width, height = w.w.GLGetDrawableSize()
	default:
		width, height = w.w.GetSize()
	}
	return int(width), int(height)
}

func (w *window) VulkanInstanceExtensions() []string {
	return w.w.VulkanGetInstanceExtensions()
}

func (w *window) VulkanCreateSurface(instance vk.Instance) (vk.Surface, error) {
	surface, err := w.w.VulkanCreateSurface(instance)
	if err != nil {
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(uintptr(surface)), nil
}

func (w *window) VulkanProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

func (w *window) MakeCurrent() error {
	if w.gl == nil {
		return errors.New("window has no OpenGL context")
	}
	return w.w.GLMakeCurrent(w.gl)
}

func (w *window) SwapBuffers() {
	w.w.GLSwap()
}

func (w *window) SetSwapInterval(vsync bool) error {
	if vsync {
		return sdl.GLSetSwapInterval(1)
	}
	return sdl.GLSetSwapInterval(0)
}

func (w *window) GLProcAddress(name string) unsafe.Pointer {
	return sdl.GLGetProcAddress(name)
}
