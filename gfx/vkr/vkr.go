// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vkr implements the vulkan renderer.
package vkr

import (
	"github.com/devblok/starlight/event"
	"github.com/devblok/starlight/gfx"
	"github.com/devblok/starlight/gfx/layoutcache"
	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"
)

// Renderer is the Vulkan implementation of gfx.Renderer.
type Renderer struct {
	info   gfx.AllocInfo
	flags  gfx.LaunchFlags
	log    log.FieldLogger
	events *event.Registry

	surfaceWindow Surface

	instance       vk.Instance
	debugReport    vk.DebugReportCallback
	surface        vk.Surface
	physicalDevice vk.PhysicalDevice
	device         vk.Device
	queues         gfx.DeviceQueues
	deviceQueues   [gfx.QueueTransfer + 1]vk.Queue
	memory         *MemoryAllocator
	pipelineCache  vk.PipelineCache
	debug          debugMarkers

	limits struct {
		maxAnisotropy     float32
		samplerAnisotropy bool
		fillModeNonSolid  bool
		wideLines         bool
	}

	objects         objects
	setLayouts      *layoutcache.Cache[vk.DescriptorSetLayout]
	pipelineLayouts *layoutcache.Cache[vk.PipelineLayout]

	descriptors     *DescriptorPool
	descriptorPools map[*DescriptorPool]struct{}
	commandPools    map[*CommandPool]struct{}
	transfer        *CommandPool

	swapchain *swapchain
}

// New creates an uninitialised Vulkan renderer. A window implementing
// Surface enables presentation; without one the renderer is headless.
func New(info gfx.AllocInfo) (*Renderer, error) {
	info.Backend = gfx.Vulkan
	if info.AppName == "" {
		info.AppName = "starlight"
	}
	r := &Renderer{
		info:            info,
		flags:           gfx.ParseLaunchFlags(info.Args),
		log:             info.Log(),
		events:          event.NewRegistry(),
		objects:         newObjects(),
		descriptorPools: make(map[*DescriptorPool]struct{}),
		commandPools:    make(map[*CommandPool]struct{}),
		queues:          gfx.NewDeviceQueues(),
	}
	if s, ok := info.Window.(Surface); ok {
		r.surfaceWindow = s
	} else if info.Window != nil {
		r.log.Warn("window cannot create a vulkan surface, presenting is disabled")
	}
	return r, nil
}

// Init implements gfx.Renderer.
func (r *Renderer) Init() error {
	if r.device != nil {
		gfx.Violationf("Init called twice")
	}
	steps := []func() error{
		r.createInstance,
		r.createSurface,
		r.pickPhysicalDevice,
		r.createDevice,
		r.createPipelineCache,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			r.Destroy()
			return err
		}
	}

	r.memory = NewMemoryAllocator(r.device, r.physicalDevice)
	r.debug.device = r.device
	r.setLayouts = layoutcache.New("descriptor set layouts", func(l vk.DescriptorSetLayout) {
		vk.DestroyDescriptorSetLayout(r.device, l, nil)
	}, r.log)
	r.pipelineLayouts = layoutcache.New("pipeline layouts", func(l vk.PipelineLayout) {
		vk.DestroyPipelineLayout(r.device, l, nil)
	}, r.log)
	r.descriptors = r.CreateDescriptorPool(defaultSetsPerPool)

	transfer, err := r.newCommandPool(gfx.QueueGraphics, true)
	if err != nil {
		r.Destroy()
		return err
	}
	r.transfer = transfer
	return nil
}

func (r *Renderer) createPipelineCache() error {
	pcci := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	var pipelineCache vk.PipelineCache
	if err := check("vkCreatePipelineCache", vk.CreatePipelineCache(r.device, &pcci, nil, &pipelineCache)); err != nil {
		return err
	}
	r.pipelineCache = pipelineCache
	return nil
}

// Destroy implements gfx.Renderer.
func (r *Renderer) Destroy() {
	if r.device != nil {
		vk.DeviceWaitIdle(r.device)

		if r.swapchain != nil {
			r.destroySwapchain()
		}
		for pool := range r.commandPools {
			pool.destroy()
		}
		r.transfer = nil
		for pool := range r.descriptorPools {
			pool.Destroy()
		}
		r.descriptors = nil

		if n := r.objects.live(); n > 0 {
			r.log.WithField("objects", n).Warn("destroying objects still alive at renderer teardown")
		}
		r.objects.destroyAll(r)
		if r.pipelineLayouts != nil {
			r.pipelineLayouts.Destroy()
		}
		if r.setLayouts != nil {
			r.setLayouts.Destroy()
		}
		if r.pipelineCache != nil {
			vk.DestroyPipelineCache(r.device, r.pipelineCache, nil)
			r.pipelineCache = nil
		}
		vk.DestroyDevice(r.device, nil)
		r.device = nil
	}
	r.destroyInstance()
}

// Backend implements gfx.Renderer.
func (r *Renderer) Backend() gfx.Backend {
	return gfx.Vulkan
}

// DeviceQueues implements gfx.Renderer.
func (r *Renderer) DeviceQueues() gfx.DeviceQueues {
	return r.queues
}

// Events implements gfx.Renderer.
func (r *Renderer) Events() *event.Registry {
	return r.events
}

// Device returns the logical device.
func (r *Renderer) Device() vk.Device {
	return r.device
}

// WaitForQueueIdle implements gfx.Renderer.
func (r *Renderer) WaitForQueueIdle(q gfx.QueueType) error {
	return check("vkQueueWaitIdle", vk.QueueWaitIdle(r.queue(q)))
}

// WaitForDeviceIdle implements gfx.Renderer.
func (r *Renderer) WaitForDeviceIdle() error {
	if err := check("vkDeviceWaitIdle", vk.DeviceWaitIdle(r.device)); err != nil {
		return err
	}
	r.events.Trigger(gfx.EventDeviceIdle, nil)
	return nil
}

// immediate records fn into a one time command buffer, submits it to the
// graphics queue and waits for it to finish.
func (r *Renderer) immediate(fn func(cmd vk.CommandBuffer)) error {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		Level:              vk.CommandBufferLevelPrimary,
		CommandPool:        r.transfer.pool,
		CommandBufferCount: 1,
	}
	commandBuffers := make([]vk.CommandBuffer, 1)
	if err := check("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(r.device, &cbai, commandBuffers)); err != nil {
		return err
	}
	defer vk.FreeCommandBuffers(r.device, r.transfer.pool, 1, commandBuffers)

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := check("vkBeginCommandBuffer", vk.BeginCommandBuffer(commandBuffers[0], &cbbi)); err != nil {
		return err
	}
	fn(commandBuffers[0])
	if err := check("vkEndCommandBuffer", vk.EndCommandBuffer(commandBuffers[0])); err != nil {
		return err
	}

	si := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    commandBuffers,
	}
	q := r.queue(gfx.QueueGraphics)
	if err := check("vkQueueSubmit", vk.QueueSubmit(q, 1, []vk.SubmitInfo{si}, vk.NullFence)); err != nil {
		return err
	}
	return check("vkQueueWaitIdle", vk.QueueWaitIdle(q))
}
