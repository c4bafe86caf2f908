// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines the backend neutral rendering interface that every
// graphics backend implements, together with the handles, descriptors and
// bookkeeping shared between them.
package gfx

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Backend identifies a graphics API implementation.
type Backend uint8

const (
	// Vulkan is the default backend.
	Vulkan Backend = iota + 1

	// D3D11 is declared but has no dispatch path.
	D3D11

	// D3D12 is declared but reports unavailability.
	D3D12

	// OpenGL is the 4.3 core profile backend.
	OpenGL
)

func (b Backend) String() string {
	switch b {
	case Vulkan:
		return "vulkan"
	case D3D11:
		return "d3d11"
	case D3D12:
		return "d3d12"
	case OpenGL:
		return "opengl"
	default:
		return fmt.Sprintf("backend(%d)", uint8(b))
	}
}

// Launch arguments recognised by the renderer.
const (
	FlagForceVulkan        = "-force_vulkan"
	FlagForceOpenGL        = "-force_opengl"
	FlagForceD3D12         = "-force_d3d12"
	FlagEnableVulkanLayers = "-enable_vulkan_layers"
)

// LaunchFlags are the renderer relevant switches found in the launch arguments.
type LaunchFlags struct {
	ForceVulkan        bool
	ForceOpenGL        bool
	ForceD3D12         bool
	EnableVulkanLayers bool
}

// ParseLaunchFlags scans args for renderer switches. Unknown arguments are ignored.
func ParseLaunchFlags(args []string) LaunchFlags {
	var f LaunchFlags
	for _, arg := range args {
		switch arg {
		case FlagForceVulkan:
			f.ForceVulkan = true
		case FlagForceOpenGL:
			f.ForceOpenGL = true
		case FlagForceD3D12:
			f.ForceD3D12 = true
		case FlagEnableVulkanLayers:
			f.EnableVulkanLayers = true
		}
	}
	return f
}

// Backend resolves the forced backend in priority order, Vulkan first.
func (f LaunchFlags) Backend() Backend {
	switch {
	case f.ForceVulkan:
		return Vulkan
	case f.ForceOpenGL:
		return OpenGL
	case f.ForceD3D12:
		return D3D12
	default:
		return Vulkan
	}
}

// ChooseBackend picks the backend from launch arguments. The result only
// depends on args.
func ChooseBackend(args []string) Backend {
	return ParseLaunchFlags(args).Backend()
}

// Window is the host window the renderer presents into. Backends assert it
// to richer interfaces for surface or context creation.
type Window interface {

	// DrawableSize returns the current size in pixels of the presentable area.
	DrawableSize() (width, height int)
}

// AllocInfo holds the construction parameters of a renderer. It is read once
// by the backend constructor.
type AllocInfo struct {
	Backend Backend
	Args    []string
	Window  Window

	// AppName is reported to drivers that accept one.
	AppName string

	// Debug enables object naming and command markers where the backend
	// supports them.
	Debug bool

	// Logger defaults to the logrus standard logger.
	Logger log.FieldLogger
}

// Log returns the logger scoped to the selected backend.
func (a AllocInfo) Log() log.FieldLogger {
	l := a.Logger
	if l == nil {
		l = log.StandardLogger()
	}
	return l.WithField("backend", a.Backend.String())
}
