// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package glr

import (
	"time"

	"github.com/devblok/starlight/gfx"
	"github.com/go-gl/gl/v4.3-core/gl"
)

// CreateFence implements gfx.Renderer. A fence holds a GL sync object
// between the submit that signals it and the wait that observes it.
func (r *Renderer) CreateFence(signaled bool) (gfx.Fence, error) {
	return gfx.Fence(r.objects.fences.Insert(fence{signaled: signaled})), nil
}

// DestroyFence implements gfx.Renderer.
func (r *Renderer) DestroyFence(h gfx.Fence) {
	f := r.objects.fences.Remove(gfx.Handle(h))
	if f.sync != 0 {
		gl.DeleteSync(f.sync)
	}
}

// poll waits up to ns nanoseconds for f and reports whether it signaled.
func (f *fence) poll(ns uint64) (bool, error) {
	if f.signaled {
		return true, nil
	}
	if f.sync == 0 {
		return false, nil
	}
	switch gl.ClientWaitSync(f.sync, gl.SYNC_FLUSH_COMMANDS_BIT, ns) {
	case gl.ALREADY_SIGNALED, gl.CONDITION_SATISFIED:
		gl.DeleteSync(f.sync)
		f.sync = 0
		f.signaled = true
		return true, nil
	case gl.TIMEOUT_EXPIRED:
		return false, nil
	default:
		return false, check("glClientWaitSync")
	}
}

// WaitForFences implements gfx.Renderer. A negative timeout waits forever.
// Submissions complete in order, so waiting for any fence waits for the
// one submitted first.
func (r *Renderer) WaitForFences(fences []gfx.Fence, all bool, timeout time.Duration) (bool, error) {
	if len(fences) == 0 {
		return true, nil
	}
	ns := ^uint64(0)
	if timeout >= 0 {
		ns = uint64(timeout.Nanoseconds())
	}
	fs := make([]*fence, len(fences))
	for i, h := range fences {
		fs[i] = r.objects.fences.Get(gfx.Handle(h))
	}

	if !all {
		var first *fence
		for _, f := range fs {
			if f.signaled {
				return true, nil
			}
			if f.sync != 0 && (first == nil || f.serial < first.serial) {
				first = f
			}
		}
		if first == nil {
			return false, nil
		}
		return first.poll(ns)
	}

	deadline := time.Now().Add(timeout)
	for _, f := range fs {
		wait := ns
		if timeout >= 0 {
			left := time.Until(deadline)
			if left < 0 {
				left = 0
			}
			wait = uint64(left.Nanoseconds())
		}
		ok, err := f.poll(wait)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// ResetFences implements gfx.Renderer.
func (r *Renderer) ResetFences(fences []gfx.Fence) error {
	for _, h := range fences {
		f := r.objects.fences.Get(gfx.Handle(h))
		if f.sync != 0 {
			gl.DeleteSync(f.sync)
		}
		*f = fence{}
	}
	return nil
}

// CreateSemaphore implements gfx.Renderer. The GL command stream is
// ordered, so semaphores only validate submit descriptions.
func (r *Renderer) CreateSemaphore() (gfx.Semaphore, error) {
	return gfx.Semaphore(r.objects.semaphores.Insert(struct{}{})), nil
}

// DestroySemaphore implements gfx.Renderer.
func (r *Renderer) DestroySemaphore(h gfx.Semaphore) {
	r.objects.semaphores.Remove(gfx.Handle(h))
}

// SubmitToQueue implements gfx.Renderer by replaying the command lists in
// order. The fence is signaled once the GPU has consumed them.
func (r *Renderer) SubmitToQueue(queue gfx.QueueType, submits []gfx.SubmitInfo, signal gfx.Fence) error {
	if queue < gfx.QueueGraphics || queue > gfx.QueueTransfer {
		gfx.Violationf("unknown queue %d", queue)
	}
	for _, s := range submits {
		for _, h := range s.Wait {
			r.objects.semaphores.Get(gfx.Handle(h))
		}
		for _, h := range s.Signal {
			r.objects.semaphores.Get(gfx.Handle(h))
		}
		for _, b := range s.CommandBuffers {
			cb, ok := b.(*CommandBuffer)
			if !ok || cb.pool == nil || cb.pool.r != r {
				gfx.Violationf("submitting a command buffer of another renderer")
			}
			if cb.Level() != gfx.LevelPrimary {
				gfx.Violationf("submitting a secondary command buffer")
			}
			cb.RequireSubmittable()
		}
	}

	for _, s := range submits {
		for _, b := range s.CommandBuffers {
			newExecState(r).execute(b.(*CommandBuffer))
		}
	}
	gl.BindVertexArray(0)
	gl.UseProgram(0)

	if signal != 0 {
		f := r.objects.fences.Get(gfx.Handle(signal))
		if f.sync != 0 {
			gl.DeleteSync(f.sync)
		}
		r.serial++
		*f = fence{sync: gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0), serial: r.serial}
	}
	gl.Flush()
	return check("SubmitToQueue")
}
