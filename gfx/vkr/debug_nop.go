// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

//go:build !vkdebug

package vkr

import (
	"unsafe"

	vk "github.com/devblok/vulkan"
	"github.com/go-gl/mathgl/mgl32"
)

var debugDeviceExtensions []string

// debugMarkers is compiled out; build with -tags vkdebug to name objects
// and record regions.
type debugMarkers struct {
	device  vk.Device
	enabled bool
}

func (d *debugMarkers) name(vk.DebugReportObjectType, unsafe.Pointer, string) {}

func (d *debugMarkers) begin(vk.CommandBuffer, string, mgl32.Vec4) {}

func (d *debugMarkers) end(vk.CommandBuffer) {}

func (d *debugMarkers) insert(vk.CommandBuffer, string, mgl32.Vec4) {}
