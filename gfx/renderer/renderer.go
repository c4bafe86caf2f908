// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package renderer allocates the gfx.Renderer implementation for a backend.
package renderer

import (
	"github.com/devblok/starlight/gfx"
	"github.com/devblok/starlight/gfx/d3d"
	"github.com/devblok/starlight/gfx/glr"
	"github.com/devblok/starlight/gfx/vkr"
)

// Allocate creates an uninitialised renderer for info.Backend. A zero
// backend is resolved from info.Args. Direct3D backends return nil and an
// error matching gfx.ErrBackendUnavailable.
func Allocate(info gfx.AllocInfo) (gfx.Renderer, error) {
	if info.Backend == 0 {
		info.Backend = gfx.ChooseBackend(info.Args)
	}
	info.Log().Debug("allocating renderer")

	switch info.Backend {
	case gfx.Vulkan:
		r, err := vkr.New(info)
		if err != nil {
			return nil, err
		}
		return r, nil
	case gfx.OpenGL:
		r, err := glr.New(info)
		if err != nil {
			return nil, err
		}
		return r, nil
	case gfx.D3D11, gfx.D3D12:
		return d3d.New(info)
	default:
		info.Log().Warnf("unknown backend %d", info.Backend)
		return nil, gfx.Unavailable(info.Backend, "unknown backend")
	}
}
