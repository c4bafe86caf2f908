// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package d3d

import (
	"github.com/devblok/starlight/gfx"
)

// New reports that the Direct3D backends cannot be created. The returned
// error matches gfx.ErrBackendUnavailable.
func New(info gfx.AllocInfo) (gfx.Renderer, error) {
	switch info.Backend {
	case gfx.D3D12:
		info.Log().Warn("Direct3D 12 renderer is not implemented")
		return nil, gfx.Unavailable(gfx.D3D12, "Direct3D 12 renderer is not implemented")
	case gfx.D3D11:
		info.Log().Warn("Direct3D 11 has no dispatch path")
		return nil, gfx.Unavailable(gfx.D3D11, "Direct3D 11 has no dispatch path")
	default:
		return nil, gfx.Unavailable(info.Backend, "not a Direct3D backend")
	}
}
