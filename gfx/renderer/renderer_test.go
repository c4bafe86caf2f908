package renderer_test

import (
	"errors"
	"io"
	"testing"

	qt "github.com/frankban/quicktest"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/starlight/gfx"
	"github.com/devblok/starlight/gfx/renderer"
)

func quietLogger() log.FieldLogger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func TestAllocate(t *testing.T) {
	tests := []struct {
		name    string
		info    gfx.AllocInfo
		backend gfx.Backend
	}{
		{"default", gfx.AllocInfo{}, gfx.Vulkan},
		{"explicit vulkan", gfx.AllocInfo{Backend: gfx.Vulkan}, gfx.Vulkan},
		{"explicit opengl", gfx.AllocInfo{Backend: gfx.OpenGL}, gfx.OpenGL},
		{"forced by args", gfx.AllocInfo{Args: []string{"-force_opengl"}}, gfx.OpenGL},
		{"explicit wins over args", gfx.AllocInfo{Backend: gfx.Vulkan, Args: []string{"-force_opengl"}}, gfx.Vulkan},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			test.info.Logger = quietLogger()
			r, err := renderer.Allocate(test.info)
			c.Assert(err, qt.IsNil)
			c.Assert(r.Backend(), qt.Equals, test.backend)
			r.Destroy()
		})
	}
}

func TestAllocateUnavailable(t *testing.T) {
	for _, b := range []gfx.Backend{gfx.D3D11, gfx.D3D12, gfx.Backend(42)} {
		t.Run(b.String(), func(t *testing.T) {
			c := qt.New(t)
			r, err := renderer.Allocate(gfx.AllocInfo{Backend: b, Logger: quietLogger()})
			c.Assert(r, qt.IsNil)
			c.Assert(errors.Is(err, gfx.ErrBackendUnavailable), qt.IsTrue)

			var gerr *gfx.Error
			c.Assert(errors.As(err, &gerr), qt.IsTrue)
			c.Assert(gerr.Backend, qt.Equals, b)
		})
	}
}

func TestAllocateForcedD3D12(t *testing.T) {
	r, err := renderer.Allocate(gfx.AllocInfo{Args: []string{"-force_d3d12"}, Logger: quietLogger()})
	if r != nil {
		t.Fatalf("Allocate() = %v, want nil renderer", r)
	}
	if !errors.Is(err, gfx.ErrBackendUnavailable) {
		t.Fatalf("Allocate() error = %v, want %v", err, gfx.ErrBackendUnavailable)
	}
}
