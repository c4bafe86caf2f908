// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"time"

	"github.com/devblok/starlight/gfx"
	vk "github.com/devblok/vulkan"
)

// CreateFence implements gfx.Renderer.
func (r *Renderer) CreateFence(signaled bool) (gfx.Fence, error) {
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fci.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if err := check("vkCreateFence", vk.CreateFence(r.device, &fci, nil, &fence)); err != nil {
		return 0, err
	}
	return gfx.Fence(r.objects.fences.Insert(fence)), nil
}

// DestroyFence implements gfx.Renderer.
func (r *Renderer) DestroyFence(h gfx.Fence) {
	f := r.objects.fences.Remove(gfx.Handle(h))
	vk.DestroyFence(r.device, f, nil)
}

func (r *Renderer) vkFences(fences []gfx.Fence) []vk.Fence {
	out := make([]vk.Fence, len(fences))
	for i, h := range fences {
		out[i] = *r.objects.fences.Get(gfx.Handle(h))
	}
	return out
}

// WaitForFences implements gfx.Renderer. A negative timeout waits forever.
func (r *Renderer) WaitForFences(fences []gfx.Fence, all bool, timeout time.Duration) (bool, error) {
	if len(fences) == 0 {
		return true, nil
	}
	ns := ^uint(0)
	if timeout >= 0 {
		ns = uint(timeout.Nanoseconds())
	}
	vkFences := r.vkFences(fences)
	res := vk.WaitForFences(r.device, uint32(len(vkFences)), vkFences, vkBool(all), ns)
	if res == vk.Timeout {
		return false, nil
	}
	if err := check("vkWaitForFences", res); err != nil {
		return false, err
	}
	return true, nil
}

// ResetFences implements gfx.Renderer.
func (r *Renderer) ResetFences(fences []gfx.Fence) error {
	if len(fences) == 0 {
		return nil
	}
	vkFences := r.vkFences(fences)
	return check("vkResetFences", vk.ResetFences(r.device, uint32(len(vkFences)), vkFences))
}

// CreateSemaphore implements gfx.Renderer.
func (r *Renderer) CreateSemaphore() (gfx.Semaphore, error) {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if err := check("vkCreateSemaphore", vk.CreateSemaphore(r.device, &sci, nil, &semaphore)); err != nil {
		return 0, err
	}
	return gfx.Semaphore(r.objects.semaphores.Insert(semaphore)), nil
}

// DestroySemaphore implements gfx.Renderer.
func (r *Renderer) DestroySemaphore(h gfx.Semaphore) {
	s := r.objects.semaphores.Remove(gfx.Handle(h))
	vk.DestroySemaphore(r.device, s, nil)
}

func (r *Renderer) vkSemaphores(semaphores []gfx.Semaphore) []vk.Semaphore {
	out := make([]vk.Semaphore, len(semaphores))
	for i, h := range semaphores {
		out[i] = *r.objects.semaphores.Get(gfx.Handle(h))
	}
	return out
}

// SubmitToQueue implements gfx.Renderer. Waits happen at the colour
// attachment output stage.
func (r *Renderer) SubmitToQueue(queue gfx.QueueType, submits []gfx.SubmitInfo, fence gfx.Fence) error {
	q := r.queue(queue)
	infos := make([]vk.SubmitInfo, len(submits))
	for i, s := range submits {
		cmds := make([]vk.CommandBuffer, len(s.CommandBuffers))
		for j, b := range s.CommandBuffers {
			cb, ok := b.(*CommandBuffer)
			if !ok || cb.pool == nil || cb.pool.r != r {
				gfx.Violationf("submitting a command buffer of another renderer")
			}
			if cb.Level() != gfx.LevelPrimary {
				gfx.Violationf("submitting a secondary command buffer")
			}
			cb.RequireSubmittable()
			cmds[j] = cb.cmd
		}
		wait := r.vkSemaphores(s.Wait)
		stages := make([]vk.PipelineStageFlags, len(wait))
		for j := range stages {
			stages[j] = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
		}
		infos[i] = vk.SubmitInfo{
			SType:                vk.StructureTypeSubmitInfo,
			WaitSemaphoreCount:   uint32(len(wait)),
			PWaitSemaphores:      wait,
			PWaitDstStageMask:    stages,
			CommandBufferCount:   uint32(len(cmds)),
			PCommandBuffers:      cmds,
			SignalSemaphoreCount: uint32(len(s.Signal)),
			PSignalSemaphores:    r.vkSemaphores(s.Signal),
		}
	}

	vkFence := vk.NullFence
	if fence != 0 {
		vkFence = *r.objects.fences.Get(gfx.Handle(fence))
	}
	return check("vkQueueSubmit", vk.QueueSubmit(q, uint32(len(infos)), infos, vkFence))
}
