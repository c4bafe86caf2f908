package gfx_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/devblok/starlight/gfx"
)

func TestChooseBackend(t *testing.T) {
	tests := []struct {
		args []string
		want gfx.Backend
	}{
		{nil, gfx.Vulkan},
		{[]string{"game", "-fullscreen"}, gfx.Vulkan},
		{[]string{"-force_vulkan"}, gfx.Vulkan},
		{[]string{"-force_opengl"}, gfx.OpenGL},
		{[]string{"-force_d3d12"}, gfx.D3D12},
		{[]string{"-force_opengl", "-force_d3d12"}, gfx.OpenGL},
		{[]string{"-force_d3d12", "-force_opengl"}, gfx.OpenGL},
		{[]string{"-force_d3d12", "-force_vulkan"}, gfx.Vulkan},
		{[]string{"-force_opengl", "-force_vulkan", "-force_d3d12"}, gfx.Vulkan},
		{[]string{"-enable_vulkan_layers"}, gfx.Vulkan},
	}

	for _, test := range tests {
		if got := gfx.ChooseBackend(test.args); got != test.want {
			t.Errorf("ChooseBackend(%v) = %s, want %s", test.args, got, test.want)
		}
		if again := gfx.ChooseBackend(test.args); again != gfx.ChooseBackend(test.args) {
			t.Errorf("ChooseBackend(%v) is not deterministic", test.args)
		}
	}
}

func TestParseLaunchFlags(t *testing.T) {
	f := gfx.ParseLaunchFlags([]string{"-enable_vulkan_layers", "-force_opengl"})
	if !f.EnableVulkanLayers || !f.ForceOpenGL || f.ForceVulkan || f.ForceD3D12 {
		t.Errorf("unexpected flags %+v", f)
	}
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("allocate: %w", gfx.Unavailable(gfx.D3D12, "not implemented"))
	if !errors.Is(err, gfx.ErrBackendUnavailable) {
		t.Errorf("errors.Is(%v, ErrBackendUnavailable) = false", err)
	}

	fatal := gfx.NewFatal(gfx.Vulkan, "vkCreateInstance", -9, "incompatible driver")
	if errors.Is(fatal, gfx.ErrBackendUnavailable) {
		t.Error("fatal error matched ErrBackendUnavailable")
	}
	if fatal.File != "backend_test.go" || fatal.Line == 0 {
		t.Errorf("location = %s:%d, want backend_test.go", fatal.File, fatal.Line)
	}
	if f := fatal.Fields(); f["op"] != "vkCreateInstance" || f["code"] != int64(-9) {
		t.Errorf("unexpected fields %v", f)
	}
}
