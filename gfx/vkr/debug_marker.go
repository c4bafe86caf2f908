// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

//go:build vkdebug

package vkr

import (
	"unsafe"

	vk "github.com/devblok/vulkan"
	"github.com/go-gl/mathgl/mgl32"
)

var debugDeviceExtensions = []string{"VK_EXT_debug_marker"}

// debugMarkers forwards object names and command regions to
// VK_EXT_debug_marker when the device enabled it.
type debugMarkers struct {
	device  vk.Device
	enabled bool
}

func (d *debugMarkers) name(objectType vk.DebugReportObjectType, object unsafe.Pointer, name string) {
	if !d.enabled || object == nil {
		return
	}
	info := vk.DebugMarkerObjectNameInfo{
		SType:       vk.StructureTypeDebugMarkerObjectNameInfo,
		ObjectType:  objectType,
		Object:      uint64(uintptr(object)),
		PObjectName: safeString(name),
	}
	vk.DebugMarkerSetObjectName(d.device, &info)
}

func (d *debugMarkers) begin(cmd vk.CommandBuffer, name string, color mgl32.Vec4) {
	if !d.enabled {
		return
	}
	info := vk.DebugMarkerMarkerInfo{
		SType:       vk.StructureTypeDebugMarkerMarkerInfo,
		PMarkerName: safeString(name),
		Color:       [4]float32(color),
	}
	vk.CmdDebugMarkerBegin(cmd, &info)
}

func (d *debugMarkers) end(cmd vk.CommandBuffer) {
	if d.enabled {
		vk.CmdDebugMarkerEnd(cmd)
	}
}

func (d *debugMarkers) insert(cmd vk.CommandBuffer, name string, color mgl32.Vec4) {
	if !d.enabled {
		return
	}
	info := vk.DebugMarkerMarkerInfo{
		SType:       vk.StructureTypeDebugMarkerMarkerInfo,
		PMarkerName: safeString(name),
		Color:       [4]float32(color),
	}
	vk.CmdDebugMarkerInsert(cmd, &info)
}
