// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"

	"github.com/devblok/starlight/gfx"
	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"
)

func (r *Renderer) enumerateDevices() ([]vk.PhysicalDevice, error) {
	var deviceCount uint32
	if err := check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(r.instance, &deviceCount, nil)); err != nil {
		return nil, err
	}
	if deviceCount == 0 {
		return nil, gfx.Unavailable(gfx.Vulkan, "no physical devices")
	}
	availableDevices := make([]vk.PhysicalDevice, deviceCount)
	if err := check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(r.instance, &deviceCount, availableDevices)); err != nil {
		return nil, err
	}
	return availableDevices, nil
}

// pickPhysicalDevice prefers the first discrete GPU whose queues can serve
// every role, then the first integrated one.
func (r *Renderer) pickPhysicalDevice() error {
	devices, err := r.enumerateDevices()
	if err != nil {
		return err
	}

	best, bestScore := -1, -1
	var bestQueues gfx.DeviceQueues
	for i, dev := range devices {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(dev, &props)
		props.Deref()

		families := r.queueFamilies(dev)
		queues := gfx.FindQueueFamilies(families, true)
		entry := r.log.WithFields(log.Fields{
			"device": vk.ToString(props.DeviceName[:]),
			"queues": queues.String(),
		})
		if err := queues.Validate(families); err != nil {
			entry.WithError(err).Debug("physical device skipped")
			continue
		}

		score := 0
		switch props.DeviceType {
		case vk.PhysicalDeviceTypeDiscreteGpu:
			score = 3
		case vk.PhysicalDeviceTypeIntegratedGpu:
			score = 2
		case vk.PhysicalDeviceTypeVirtualGpu:
			score = 1
		}
		if score > bestScore {
			best, bestScore, bestQueues = i, score, queues
		}
	}
	if best < 0 {
		return fatal("vkGetPhysicalDeviceQueueFamilyProperties", "no physical device exposes graphics, present, compute and transfer queues")
	}

	r.physicalDevice = devices[best]
	r.queues = bestQueues

	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(r.physicalDevice, &props)
	props.Deref()
	props.Limits.Deref()
	r.limits.maxAnisotropy = props.Limits.MaxSamplerAnisotropy

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(r.physicalDevice, &features)
	features.Deref()
	r.limits.samplerAnisotropy = features.SamplerAnisotropy == vk.True
	r.limits.fillModeNonSolid = features.FillModeNonSolid == vk.True
	r.limits.wideLines = features.WideLines == vk.True

	r.log.WithFields(log.Fields{
		"device": vk.ToString(props.DeviceName[:]),
		"driver": props.DriverVersion,
		"queues": r.queues.String(),
	}).Info("physical device selected")
	return nil
}

// queueFamilies describes the queue families of dev. Without a surface
// every graphics family is treated as able to present.
func (r *Renderer) queueFamilies(dev vk.PhysicalDevice) []gfx.QueueFamily {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(dev, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(dev, &count, props)

	families := make([]gfx.QueueFamily, count)
	for i := range props {
		props[i].Deref()
		f := &families[i]
		f.QueueCount = props[i].QueueCount
		f.Caps = queueCaps(props[i].QueueFlags)

		if r.surface == vk.NullSurface {
			f.Present = f.Caps&gfx.CapGraphics != 0
			continue
		}
		var supported vk.Bool32
		if err := vk.Error(vk.GetPhysicalDeviceSurfaceSupport(dev, uint32(i), r.surface, &supported)); err == nil {
			f.Present = supported.B()
		}
	}
	return families
}

func (r *Renderer) deviceExtensionSupported(name string) bool {
	var count uint32
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(r.physicalDevice, "", &count, nil)); err != nil {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(r.physicalDevice, "", &count, available)); err != nil {
		return false
	}
	for _, ext := range available {
		ext.Deref()
		if vk.ToString(ext.ExtensionName[:]) == name {
			return true
		}
	}
	return false
}

func (r *Renderer) createDevice() error {
	var extensions []string
	if r.surface != vk.NullSurface {
		extensions = append(extensions, vk.KhrSwapchainExtensionName)
	}
	if r.info.Debug {
		for _, ext := range debugDeviceExtensions {
			if r.deviceExtensionSupported(ext) {
				extensions = append(extensions, ext)
				r.debug.enabled = true
			}
		}
	}

	families := r.queues.UniqueFamilies()
	counts := r.queues.QueueCounts()
	queueInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		priorities := make([]float32, counts[i])
		for p := range priorities {
			priorities[p] = 1
		}
		queueInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(family),
			QueueCount:       counts[i],
			PQueuePriorities: priorities,
		}
	}

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			SamplerAnisotropy: vkBool(r.limits.samplerAnisotropy),
			FillModeNonSolid:  vkBool(r.limits.fillModeNonSolid),
			WideLines:         vkBool(r.limits.wideLines),
		}},
	}

	var device vk.Device
	if err := check("vkCreateDevice", vk.CreateDevice(r.physicalDevice, &dci, nil, &device)); err != nil {
		return err
	}
	r.device = device

	for role := gfx.QueueGraphics; role <= gfx.QueueTransfer; role++ {
		a := r.queues.Assignment(role)
		var queue vk.Queue
		vk.GetDeviceQueue(device, uint32(a.Family()), a.Index, &queue)
		if queue == nil {
			return fatal("vkGetDeviceQueue", fmt.Sprintf("no %s queue at family %d index %d", role, a.Family(), a.Index))
		}
		r.deviceQueues[role] = queue
	}

	r.log.WithFields(log.Fields{
		"families":   families,
		"counts":     counts,
		"extensions": extensions,
	}).Info("vulkan device created")
	return nil
}

func (r *Renderer) queue(q gfx.QueueType) vk.Queue {
	if q < gfx.QueueGraphics || q > gfx.QueueTransfer {
		gfx.Violationf("unknown queue %d", q)
	}
	return r.deviceQueues[q]
}
