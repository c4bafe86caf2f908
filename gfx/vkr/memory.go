// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"
	"unsafe"

	"github.com/devblok/starlight/gfx"
	vk "github.com/devblok/vulkan"
)

// Memory is one dedicated device memory allocation.
type Memory struct {
	device vk.Device
	memory vk.DeviceMemory
	size   uint64
	props  vk.MemoryPropertyFlags
}

// Get returns the vulkan memory handle.
func (m *Memory) Get() vk.DeviceMemory {
	return m.memory
}

// Size returns the allocation size in bytes.
func (m *Memory) Size() uint64 {
	return m.size
}

// HostVisible reports whether the memory can be mapped.
func (m *Memory) HostVisible() bool {
	return m.props&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0
}

// Write maps the range starting at offset, copies data in and unmaps it.
func (m *Memory) Write(offset uint64, data []byte) error {
	if !m.HostVisible() {
		gfx.Violationf("writing %d bytes to memory that is not host visible", len(data))
	}
	if offset+uint64(len(data)) > m.size {
		gfx.Violationf("write of %d bytes at %d exceeds allocation of %d bytes", len(data), offset, m.size)
	}
	if len(data) == 0 {
		return nil
	}

	var mapped unsafe.Pointer
	if err := check("vkMapMemory", vk.MapMemory(m.device, m.memory, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &mapped)); err != nil {
		return err
	}
	vk.Memcopy(mapped, data)
	vk.UnmapMemory(m.device, m.memory)
	return nil
}

// Release frees the allocation.
func (m *Memory) Release() {
	if m.memory != vk.NullDeviceMemory {
		vk.FreeMemory(m.device, m.memory, nil)
		m.memory = vk.NullDeviceMemory
	}
}

// NewMemoryAllocator creates an allocator for the logical device that reads
// the memory properties of the physical device to pick memory types.
func NewMemoryAllocator(device vk.Device, phyDevice vk.PhysicalDevice) *MemoryAllocator {
	var memProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(phyDevice, &memProperties)
	memProperties.Deref()
	for idx := uint32(0); idx < memProperties.MemoryTypeCount; idx++ {
		memProperties.MemoryTypes[idx].Deref()
	}

	return &MemoryAllocator{
		device:        device,
		memProperties: memProperties,
	}
}

// MemoryAllocator hands out device memory for buffers and images.
type MemoryAllocator struct {
	device        vk.Device
	memProperties vk.PhysicalDeviceMemoryProperties
}

// Malloc allocates memory satisfying req with the properties usage asks
// for. Read back memory falls back to uncached host memory.
func (ma *MemoryAllocator) Malloc(req vk.MemoryRequirements, usage gfx.MemoryUsage) (Memory, error) {
	prop := vk.MemoryPropertyFlags(vkMemoryProperties(usage))
	memTypeIdx, ok := ma.findMemoryType(req.MemoryTypeBits, prop)
	if !ok && usage == gfx.MemoryGPUToCPU {
		prop = vk.MemoryPropertyFlags(vkMemoryProperties(gfx.MemoryCPUToGPU))
		memTypeIdx, ok = ma.findMemoryType(req.MemoryTypeBits, prop)
	}
	if !ok {
		return Memory{}, fatal("vkAllocateMemory", fmt.Sprintf("no memory type for filter %#x and properties %#x", req.MemoryTypeBits, prop))
	}

	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memTypeIdx,
	}

	var memory vk.DeviceMemory
	if err := check("vkAllocateMemory", vk.AllocateMemory(ma.device, &mai, nil, &memory)); err != nil {
		return Memory{}, err
	}
	return Memory{
		device: ma.device,
		memory: memory,
		size:   uint64(req.Size),
		props:  ma.memProperties.MemoryTypes[memTypeIdx].PropertyFlags,
	}, nil
}

func (ma *MemoryAllocator) findMemoryType(filter uint32, prop vk.MemoryPropertyFlags) (uint32, bool) {
	for idx := uint32(0); idx < ma.memProperties.MemoryTypeCount; idx++ {
		if filter&(1<<idx) != 0 && (ma.memProperties.MemoryTypes[idx].PropertyFlags&prop) == prop {
			return idx, true
		}
	}
	return 0, false
}
