// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/starlight/gfx"
	vk "github.com/devblok/vulkan"
)

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            int
	VendorID      int
	DriverVersion int
	Name          string
	Type          string
	Extensions    []string
	Layers        []string
	Memory        uint64
	Queues        string

	// Suitable is set when the queue families can serve every role.
	Suitable bool
	Reason   string `json:",omitempty"`
}

// ListDevices creates a temporary instance and describes every physical
// device it exposes. A window implementing Surface is taken into account
// for present support.
func ListDevices(info gfx.AllocInfo) ([]PhysicalDeviceInfo, error) {
	r, err := New(info)
	if err != nil {
		return nil, err
	}
	defer r.destroyInstance()
	if err := r.createInstance(); err != nil {
		return nil, err
	}
	if err := r.createSurface(); err != nil {
		return nil, err
	}

	devices, err := r.enumerateDevices()
	if err != nil {
		return nil, err
	}
	out := make([]PhysicalDeviceInfo, len(devices))
	for i, dev := range devices {
		out[i] = r.describeDevice(dev)
	}
	return out, nil
}

func (r *Renderer) describeDevice(dev vk.PhysicalDevice) PhysicalDeviceInfo {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(dev, &props)
	props.Deref()

	pdi := PhysicalDeviceInfo{
		ID:            int(props.DeviceID),
		VendorID:      int(props.VendorID),
		DriverVersion: int(props.DriverVersion),
		Name:          vk.ToString(props.DeviceName[:]),
		Type:          deviceTypeName(props.DeviceType),
	}

	var count uint32
	if vk.Error(vk.EnumerateDeviceExtensionProperties(dev, "", &count, nil)) == nil {
		exts := make([]vk.ExtensionProperties, count)
		if vk.Error(vk.EnumerateDeviceExtensionProperties(dev, "", &count, exts)) == nil {
			for _, ext := range exts {
				ext.Deref()
				pdi.Extensions = append(pdi.Extensions, vk.ToString(ext.ExtensionName[:]))
			}
		}
	}

	count = 0
	if vk.Error(vk.EnumerateDeviceLayerProperties(dev, &count, nil)) == nil {
		layers := make([]vk.LayerProperties, count)
		if vk.Error(vk.EnumerateDeviceLayerProperties(dev, &count, layers)) == nil {
			for _, layer := range layers {
				layer.Deref()
				pdi.Layers = append(pdi.Layers, vk.ToString(layer.LayerName[:]))
			}
		}
	}

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(dev, &memory)
	memory.Deref()
	for i := uint32(0); i < memory.MemoryHeapCount; i++ {
		memory.MemoryHeaps[i].Deref()
		pdi.Memory += uint64(memory.MemoryHeaps[i].Size)
	}

	families := r.queueFamilies(dev)
	queues := gfx.FindQueueFamilies(families, true)
	pdi.Queues = queues.String()
	if err := queues.Validate(families); err != nil {
		pdi.Reason = err.Error()
	} else {
		pdi.Suitable = true
	}
	return pdi
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	default:
		return "other"
	}
}
